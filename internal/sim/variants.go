package sim

import (
	"pelagos/internal/biology"
	"pelagos/internal/kernel"
)

// Variant tags. Acidity is the pteropod model with acidity-driven
// mortality only; AcidityBed adds Bednarsek survival discounting of the
// recruits; AcidityBedBH further adds Beverton-Holt density-dependent
// recruitment.
const (
	Acidity      = "acidity"
	AcidityBed   = "acidity-bed"
	AcidityBedBH = "acidity-bed-bh"
)

func init() {
	register(Variant{
		Tag:      Acidity,
		Describe: "temperature/acidity mortality without survival discounting",
		Units:    acidityUnits(false),
	})
	register(Variant{
		Tag:      AcidityBed,
		Describe: "temperature/acidity mortality with Bednarsek survival",
		Units:    acidityUnits(true),
	})
	register(Variant{
		Tag:      AcidityBedBH,
		Describe: "acidity-bed with Beverton-Holt density-dependent recruitment",
		Units:    acidityUnits(true),
		Biomass:  biology.BiomassOptions{BevertonHolt: true},
	})
}

func acidityUnits(withSurvival bool) []UnitBuilder {
	units := []UnitBuilder{
		func(o Options) (kernel.Unit, error) {
			return biology.GlobalMaskUnit(o.Chunks, o.Parallel, o.Scheduler)
		},
		func(o Options) (kernel.Unit, error) {
			return biology.MaskByFGroupUnit(o.Chunks, o.Parallel, o.Scheduler)
		},
		func(o Options) (kernel.Unit, error) {
			return biology.AverageTemperatureUnit(o.Chunks, o.Parallel, o.Scheduler)
		},
		func(o Options) (kernel.Unit, error) {
			return biology.AverageAcidityUnit(o.Chunks, o.Parallel, o.Scheduler)
		},
		func(o Options) (kernel.Unit, error) {
			return biology.PPByFGroupUnit(o.Chunks, o.Parallel, o.Scheduler)
		},
		func(o Options) (kernel.Unit, error) {
			return biology.MinTemperatureByCohortUnit(o.Chunks, o.Parallel, o.Scheduler)
		},
		func(o Options) (kernel.Unit, error) {
			return biology.MaskTemperatureUnit(o.Chunks, o.Parallel, o.Scheduler)
		},
	}
	if withSurvival {
		units = append(units, func(o Options) (kernel.Unit, error) {
			return biology.SurvivalRateUnit(o.Chunks, o.Parallel, o.Scheduler)
		})
	}
	units = append(units,
		func(o Options) (kernel.Unit, error) {
			return biology.MortalityUnit(o.Chunks, o.Parallel, o.Scheduler)
		},
		func(o Options) (kernel.Unit, error) {
			return biology.RecruitmentUnit(o.Chunks, o.Parallel, o.Scheduler)
		},
	)
	if withSurvival {
		units = append(units, func(o Options) (kernel.Unit, error) {
			return biology.ApplySurvivalRateUnit(o.Chunks, o.Parallel, o.Scheduler)
		})
	}
	units = append(units, func(o Options) (kernel.Unit, error) {
		return biology.BiomassUnit(o.Biomass, o.Chunks, o.Parallel, o.Scheduler)
	})
	return units
}
