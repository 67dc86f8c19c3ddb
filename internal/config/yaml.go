package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"pelagos/internal/coords"
)

// File is the on-disk YAML form of a configuration. Forcing is generated
// from the grid and field specs it carries.
type File struct {
	Forcing struct {
		Timestep float64        `yaml:"timestep"`
		Parallel bool           `yaml:"parallel"`
		Workers  int            `yaml:"workers"`
		Chunk    map[string]int `yaml:"chunk"`

		Grid              GridSpec  `yaml:"grid"`
		Temperature       FieldSpec `yaml:"temperature"`
		Acidity           FieldSpec `yaml:"acidity"`
		PrimaryProduction float64   `yaml:"primary_production"`
		DayLength         float64   `yaml:"day_length"`
	} `yaml:"forcing"`

	FunctionalGroups []struct {
		Name            string  `yaml:"name"`
		EnergyTransfert float64 `yaml:"energy_transfert"`
		Migratory       struct {
			DayLayer   float64 `yaml:"day_layer"`
			NightLayer float64 `yaml:"night_layer"`
		} `yaml:"migratory"`
		Functional struct {
			Lambda0                      float64 `yaml:"lambda_0"`
			GammaLambdaTemperature       float64 `yaml:"gamma_lambda_temperature"`
			GammaLambdaAcidity           float64 `yaml:"gamma_lambda_acidity"`
			Tr0                          float64 `yaml:"tr_0"`
			GammaTr                      float64 `yaml:"gamma_tr"`
			SurvivalRate0                float64 `yaml:"survival_rate_0"`
			GammaSurvivalRateTemperature float64 `yaml:"gamma_survival_rate_temperature"`
			GammaSurvivalRateAcidity     float64 `yaml:"gamma_survival_rate_acidity"`
			DensityDependence            float64 `yaml:"density_dependence"`
		} `yaml:"functional"`
	} `yaml:"functional_groups"`

	CohortMeanAges []float64 `yaml:"cohort_mean_ages"`

	Kernel struct {
		Scheme string `yaml:"scheme"`
	} `yaml:"kernel"`
}

// Load reads and assembles a configuration from a YAML file.
func Load(path string) (*Configuration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}
	return Parse(raw)
}

// Parse assembles a configuration from YAML bytes.
func Parse(raw []byte) (*Configuration, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}

	forcing, err := SyntheticForcing(f.Forcing.Grid, f.Forcing.Temperature, f.Forcing.Acidity,
		f.Forcing.PrimaryProduction, f.Forcing.DayLength, f.Forcing.Timestep)
	if err != nil {
		return nil, err
	}
	forcing.Parallel = f.Forcing.Parallel
	forcing.Workers = f.Forcing.Workers
	if len(f.Forcing.Chunk) > 0 {
		forcing.Chunk = make(map[coords.Axis]int, len(f.Forcing.Chunk))
		for ax, n := range f.Forcing.Chunk {
			forcing.Chunk[coords.Axis(ax)] = n
		}
	}

	groups := make([]FunctionalGroupUnit, len(f.FunctionalGroups))
	for i, g := range f.FunctionalGroups {
		groups[i] = FunctionalGroupUnit{
			Name:            g.Name,
			EnergyTransfert: g.EnergyTransfert,
			Migratory: MigratoryType{
				DayLayer:   g.Migratory.DayLayer,
				NightLayer: g.Migratory.NightLayer,
			},
			Functional: FunctionalType{
				Lambda0:                      g.Functional.Lambda0,
				GammaLambdaTemperature:       g.Functional.GammaLambdaTemperature,
				GammaLambdaAcidity:           g.Functional.GammaLambdaAcidity,
				Tr0:                          g.Functional.Tr0,
				GammaTr:                      g.Functional.GammaTr,
				SurvivalRate0:                g.Functional.SurvivalRate0,
				GammaSurvivalRateTemperature: g.Functional.GammaSurvivalRateTemperature,
				GammaSurvivalRateAcidity:     g.Functional.GammaSurvivalRateAcidity,
				DensityDependence:            g.Functional.DensityDependence,
			},
		}
	}

	return New(forcing, groups, f.CohortMeanAges, KernelParameter{Scheme: f.Kernel.Scheme})
}
