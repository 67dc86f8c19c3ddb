// Package config composes the independent parameter groups a model needs:
// forcing, functional groups, and kernel options. A Configuration is the
// combination of the groups a variant uses, assembled by a builder rather
// than inherited.
package config

import (
	"fmt"

	"pelagos/internal/coords"
	"pelagos/internal/state"
)

// ForcingParameter carries the environmental input fields and the execution
// settings derived from their layout.
type ForcingParameter struct {
	Temperature       *state.Array // [T, Y, X, Z]
	Acidity           *state.Array // [T, Y, X, Z]
	PrimaryProduction *state.Array // [T, Y, X]
	DayLength         *state.Array // [T, Y, X]
	InitialBiomass    *state.Array // [functional_group, Y, X], optional

	Timestep float64 // days
	Chunk    map[coords.Axis]int
	Parallel bool
	Workers  int
}

func (f ForcingParameter) validate() error {
	if f.Timestep <= 0 {
		return fmt.Errorf("forcing: timestep must be > 0, got %v", f.Timestep)
	}
	required := []struct {
		name  string
		field *state.Array
		dims  []coords.Axis
	}{
		{"temperature", f.Temperature, []coords.Axis{coords.Time, coords.Y, coords.X, coords.Z}},
		{"acidity", f.Acidity, []coords.Axis{coords.Time, coords.Y, coords.X, coords.Z}},
		{"primary_production", f.PrimaryProduction, []coords.Axis{coords.Time, coords.Y, coords.X}},
		{"day_length", f.DayLength, []coords.Axis{coords.Time, coords.Y, coords.X}},
	}
	for _, r := range required {
		if r.field == nil {
			return fmt.Errorf("forcing: %s is required", r.name)
		}
		dims := r.field.Dims()
		if len(dims) != len(r.dims) {
			return fmt.Errorf("forcing: %s must have dims %v, got %v", r.name, r.dims, dims)
		}
		for i := range dims {
			if dims[i] != r.dims[i] {
				return fmt.Errorf("forcing: %s must have dims %v, got %v", r.name, r.dims, dims)
			}
		}
	}
	for ax, n := range f.Chunk {
		if n <= 0 {
			return fmt.Errorf("forcing: chunk size for axis %s must be > 0, got %d", ax, n)
		}
	}
	if f.Parallel && f.Workers < 0 {
		return fmt.Errorf("forcing: workers must be >= 0")
	}
	return nil
}

// MigratoryType positions a functional group in the water column.
type MigratoryType struct {
	DayLayer   float64
	NightLayer float64
}

// FunctionalType holds the group's physiological parameters: mortality
// (lambda), recruitment age (tr), acidity survival (Bednarsek) and
// density-dependent recruitment (Beverton-Holt).
type FunctionalType struct {
	Lambda0                      float64
	GammaLambdaTemperature       float64
	GammaLambdaAcidity           float64
	Tr0                          float64
	GammaTr                      float64
	SurvivalRate0                float64
	GammaSurvivalRateTemperature float64
	GammaSurvivalRateAcidity     float64
	DensityDependence            float64
}

// FunctionalGroupUnit is one modeled sub-population.
type FunctionalGroupUnit struct {
	Name            string
	EnergyTransfert float64
	Migratory       MigratoryType
	Functional      FunctionalType
}

func (u FunctionalGroupUnit) validate(i int) error {
	if u.Name == "" {
		return fmt.Errorf("functional group %d: name is required", i)
	}
	if u.EnergyTransfert < 0 {
		return fmt.Errorf("functional group %s: energy_transfert must be >= 0", u.Name)
	}
	if u.Functional.Tr0 <= 0 {
		return fmt.Errorf("functional group %s: tr_0 must be > 0", u.Name)
	}
	if u.Functional.GammaTr == 0 {
		return fmt.Errorf("functional group %s: gamma_tr must not be 0", u.Name)
	}
	if u.Functional.DensityDependence < 0 {
		return fmt.Errorf("functional group %s: density_dependence must be >= 0", u.Name)
	}
	return nil
}

// KernelParameter fixes the numerical options of the pipeline.
type KernelParameter struct {
	Scheme string // euler-implicit (default) or euler-explicit
}
