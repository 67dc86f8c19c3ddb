package config

import (
	"fmt"

	"pelagos/internal/biology"
	"pelagos/internal/coords"
	"pelagos/internal/state"
)

// Configuration is the full parameterization of one model run: forcing
// fields, the functional groups, the cohort structure and the kernel
// options.
type Configuration struct {
	Forcing          ForcingParameter
	FunctionalGroups []FunctionalGroupUnit
	CohortMeanAges   []float64 // days, one per cohort, strictly increasing
	Kernel           KernelParameter
}

// New validates the parameter groups together and returns the assembled
// configuration. The functional group layers must exist on the forcing Z
// axis, which can only be checked here, not per group.
func New(forcing ForcingParameter, groups []FunctionalGroupUnit, cohortMeanAges []float64, kern KernelParameter) (*Configuration, error) {
	c := &Configuration{
		Forcing:          forcing,
		FunctionalGroups: groups,
		CohortMeanAges:   cohortMeanAges,
		Kernel:           kern,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Configuration) Validate() error {
	if err := c.Forcing.validate(); err != nil {
		return err
	}
	if len(c.FunctionalGroups) == 0 {
		return fmt.Errorf("at least one functional group is required")
	}
	seen := map[string]bool{}
	zc, ok := c.Forcing.Temperature.Coord(coords.Z)
	if !ok {
		return fmt.Errorf("forcing: temperature has no %s axis", coords.Z)
	}
	for i, g := range c.FunctionalGroups {
		if err := g.validate(i); err != nil {
			return err
		}
		if seen[g.Name] {
			return fmt.Errorf("duplicate functional group name %q", g.Name)
		}
		seen[g.Name] = true
		if zc.IndexOf(g.Migratory.DayLayer) < 0 {
			return fmt.Errorf("functional group %s: day layer %v is not on the %s axis", g.Name, g.Migratory.DayLayer, coords.Z)
		}
		if zc.IndexOf(g.Migratory.NightLayer) < 0 {
			return fmt.Errorf("functional group %s: night layer %v is not on the %s axis", g.Name, g.Migratory.NightLayer, coords.Z)
		}
	}
	if len(c.CohortMeanAges) == 0 {
		return fmt.Errorf("at least one cohort is required")
	}
	prev := 0.0
	for i, age := range c.CohortMeanAges {
		if age <= prev {
			return fmt.Errorf("cohort mean ages must be positive and strictly increasing, got %v at %d", age, i)
		}
		prev = age
	}
	if _, err := biology.ParseScheme(c.Kernel.Scheme); err != nil {
		return err
	}
	return nil
}

// State derives the initial model state: the forcing fields, the timestep
// scalar, the cohort age array and one per-group parameter array per
// physiological coefficient.
func (c *Configuration) State() (*state.State, error) {
	fg, err := coords.IndexCoordinate(coords.FunctionalGroup, len(c.FunctionalGroups))
	if err != nil {
		return nil, err
	}
	cohort, err := coords.IndexCoordinate(coords.Cohort, len(c.CohortMeanAges))
	if err != nil {
		return nil, err
	}

	fields := []*state.Array{
		c.Forcing.Temperature.WithName(biology.Temperature),
		c.Forcing.Acidity.WithName(biology.Acidity),
		c.Forcing.PrimaryProduction.WithName(biology.PrimaryProduction),
		c.Forcing.DayLength.WithName(biology.DayLength),
		state.NewScalar(biology.Timestep, c.Forcing.Timestep, state.Attrs{"units": "day"}),
	}
	if c.Forcing.InitialBiomass != nil {
		fields = append(fields, c.Forcing.InitialBiomass.WithName(biology.InitialConditionBiomass))
	}

	ages := make([]float64, len(c.CohortMeanAges))
	copy(ages, c.CohortMeanAges)
	agesData, err := state.NewArrayFromValues(biology.MeanTimestep, []coords.Coordinate{cohort}, ages,
		state.Attrs{"standard_name": "mean_timestep", "units": "day"})
	if err != nil {
		return nil, err
	}
	fields = append(fields, agesData)

	for _, p := range []struct {
		name  string
		pick  func(FunctionalGroupUnit) float64
		attrs state.Attrs
	}{
		{biology.DayLayer, func(g FunctionalGroupUnit) float64 { return g.Migratory.DayLayer }, state.Attrs{"units": "m"}},
		{biology.NightLayer, func(g FunctionalGroupUnit) float64 { return g.Migratory.NightLayer }, state.Attrs{"units": "m"}},
		{biology.EnergyTransfert, func(g FunctionalGroupUnit) float64 { return g.EnergyTransfert }, state.Attrs{"units": "1"}},
		{biology.Lambda0, func(g FunctionalGroupUnit) float64 { return g.Functional.Lambda0 }, state.Attrs{"units": "1/day"}},
		{biology.GammaLambdaTemperature, func(g FunctionalGroupUnit) float64 { return g.Functional.GammaLambdaTemperature }, state.Attrs{"units": "1/degC"}},
		{biology.GammaLambdaAcidity, func(g FunctionalGroupUnit) float64 { return g.Functional.GammaLambdaAcidity }, state.Attrs{"units": "1/pH"}},
		{biology.Tr0, func(g FunctionalGroupUnit) float64 { return g.Functional.Tr0 }, state.Attrs{"units": "day"}},
		{biology.GammaTr, func(g FunctionalGroupUnit) float64 { return g.Functional.GammaTr }, state.Attrs{"units": "1/degC"}},
		{biology.SurvivalRate0, func(g FunctionalGroupUnit) float64 { return g.Functional.SurvivalRate0 }, state.Attrs{"units": "1"}},
		{biology.GammaSurvivalRateTemperature, func(g FunctionalGroupUnit) float64 { return g.Functional.GammaSurvivalRateTemperature }, state.Attrs{"units": "1/degC"}},
		{biology.GammaSurvivalRateAcidity, func(g FunctionalGroupUnit) float64 { return g.Functional.GammaSurvivalRateAcidity }, state.Attrs{"units": "1/pH"}},
		{biology.DensityDependence, func(g FunctionalGroupUnit) float64 { return g.Functional.DensityDependence }, state.Attrs{"units": "m2/mgC"}},
	} {
		values := make([]float64, len(c.FunctionalGroups))
		for i, g := range c.FunctionalGroups {
			values[i] = p.pick(g)
		}
		a, err := state.NewGroupValues(p.name, fg, values, p.attrs)
		if err != nil {
			return nil, err
		}
		fields = append(fields, a)
	}

	return state.New(fields...)
}

// GroupNames returns the functional group names in axis order.
func (c *Configuration) GroupNames() []string {
	names := make([]string, len(c.FunctionalGroups))
	for i, g := range c.FunctionalGroups {
		names[i] = g.Name
	}
	return names
}

// GroupIndex resolves a functional group name to its axis position.
func (c *Configuration) GroupIndex(name string) (int, error) {
	for i, g := range c.FunctionalGroups {
		if g.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown functional group %q", name)
}
