// Package biology holds the model's transformation functions and their
// templates: masks, temperature and acidity aggregation, mortality,
// survival, recruitment and biomass integration. Every transform is a pure
// State -> partial State function suitable for a kernel unit.
package biology

import "pelagos/internal/state"

// Forcing and derived field names.
const (
	Temperature       = "temperature"
	Acidity           = "acidity"
	PrimaryProduction = "primary_production"
	DayLength         = "day_length"

	GlobalMask       = "global_mask"
	MaskByFGroup     = "mask_by_fgroup"
	AvgTemperature   = "avg_temperature_by_fgroup"
	AvgAcidity       = "avg_acidity_by_fgroup"
	MinTemperature   = "min_temperature"
	MaskTemperature  = "mask_temperature"
	Mortality        = "mortality_field"
	SurvivalRate     = "survival_rate"
	PPByFGroup       = "primary_production_by_fgroup"
	Recruited        = "recruited"
	Biomass          = "biomass"
)

// Configuration-derived field names.
const (
	DayLayer                     = "day_layer"
	NightLayer                   = "night_layer"
	EnergyTransfert              = "energy_transfert"
	Lambda0                      = "lambda_0"
	GammaLambdaTemperature       = "gamma_lambda_temperature"
	GammaLambdaAcidity           = "gamma_lambda_acidity"
	Tr0                          = "tr_0"
	GammaTr                      = "gamma_tr"
	SurvivalRate0                = "survival_rate_0"
	GammaSurvivalRateTemperature = "gamma_survival_rate_temperature"
	GammaSurvivalRateAcidity     = "gamma_survival_rate_acidity"
	DensityDependence            = "density_dependence"
	MeanTimestep                 = "mean_timestep"
	Timestep                     = "timestep"
	InitialConditionBiomass      = "initial_condition_biomass"
)

// BiomassUnits is the unit the biomass field is produced in. Observations in
// other mass units are converted through cost.UnitScale.
const BiomassUnits = "mgC/m2"

func globalMaskAttrs() state.Attrs {
	return state.Attrs{"standard_name": "global_mask", "description": "ocean cells (land excluded)", "units": "1"}
}

func maskByFGroupAttrs() state.Attrs {
	return state.Attrs{"standard_name": "mask_by_fgroup", "description": "ocean at both day and night layers", "units": "1"}
}

func avgTemperatureAttrs() state.Attrs {
	return state.Attrs{"standard_name": "avg_temperature_by_fgroup", "units": "degC"}
}

func avgAcidityAttrs() state.Attrs {
	return state.Attrs{"standard_name": "avg_acidity_by_fgroup", "units": "pH"}
}

func minTemperatureAttrs() state.Attrs {
	return state.Attrs{"standard_name": "min_temperature_by_cohort", "units": "degC"}
}

func maskTemperatureAttrs() state.Attrs {
	return state.Attrs{"standard_name": "mask_temperature", "description": "cohort warm enough for recruitment", "units": "1"}
}

func mortalityAttrs() state.Attrs {
	return state.Attrs{"standard_name": "mortality_field", "units": "1/day"}
}

func survivalRateAttrs() state.Attrs {
	return state.Attrs{"standard_name": "survival_rate", "units": "1"}
}

func ppByFGroupAttrs() state.Attrs {
	return state.Attrs{"standard_name": "primary_production_by_fgroup", "units": "mgC/m2/day"}
}

func recruitedAttrs() state.Attrs {
	return state.Attrs{"standard_name": "recruited", "units": "mgC/m2/day"}
}

func biomassAttrs() state.Attrs {
	return state.Attrs{"standard_name": "biomass", "units": BiomassUnits}
}
