package main

import (
	"context"
	"fmt"

	"pelagos/internal/biology"
	"pelagos/internal/config"
	"pelagos/internal/coords"
	"pelagos/internal/cost"
	"pelagos/internal/obs"
	"pelagos/internal/state"
	pelagosapi "pelagos/pkg/pelagos"
)

// twinCostFunction runs the base configuration once and turns the biomass
// series at the grid's center station into the observation to calibrate
// against. Recovering the base parameters from perturbed bounds is the
// standard identical-twin check of a calibration setup.
func twinCostFunction(ctx context.Context, client *pelagosapi.Client, cfg *config.Configuration, variant string, processor cost.Processor, metric cost.Metric, interval float64) (*cost.Function, error) {
	_, final, err := client.Simulate(ctx, pelagosapi.SimulateRequest{Config: cfg, Variant: variant})
	if err != nil {
		return nil, fmt.Errorf("reference run: %w", err)
	}
	biomass, ok := final.Get(biology.Biomass)
	if !ok {
		return nil, fmt.Errorf("reference run produced no %s field", biology.Biomass)
	}

	layer := cfg.FunctionalGroups[0].Migratory.DayLayer
	var groups []int
	for g, unit := range cfg.FunctionalGroups {
		if unit.Migratory.DayLayer == layer {
			groups = append(groups, g)
		}
	}

	tc, _ := biomass.Coord(coords.Time)
	yc, _ := biomass.Coord(coords.Y)
	xc, _ := biomass.Coord(coords.X)
	cy, cx := yc.Size()/2, xc.Size()/2

	values := make([]float64, tc.Size())
	for t := 0; t < tc.Size(); t++ {
		for _, g := range groups {
			v, err := biomass.At(g, t, cy, cx)
			if err != nil {
				return nil, err
			}
			values[t] += v
		}
	}

	oyc, err := coords.NewCoordinate(coords.Y, []float64{yc.Values[cy]}, nil)
	if err != nil {
		return nil, err
	}
	oxc, err := coords.NewCoordinate(coords.X, []float64{xc.Values[cx]}, nil)
	if err != nil {
		return nil, err
	}
	data, err := state.NewArrayFromValues("twin_observation",
		[]coords.Coordinate{tc, oyc, oxc}, values, state.Attrs{"units": biology.BiomassUnits})
	if err != nil {
		return nil, err
	}
	observation, err := obs.NewTimeSeries("twin", data, obs.Day, layer, interval)
	if err != nil {
		return nil, err
	}
	return cost.New(cost.Term{Observation: observation, Processor: processor, Metric: metric, Weight: 1})
}
