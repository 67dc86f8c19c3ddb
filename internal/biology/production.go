package biology

import (
	"fmt"
	"math"

	"pelagos/internal/coords"
	"pelagos/internal/kernel"
	"pelagos/internal/state"
	"pelagos/internal/template"
)

// PPByFGroupTransform distributes the primary production forcing to each
// functional group through its energy transfer coefficient, masked to the
// group's habitat.
func PPByFGroupTransform(st *state.State) (*state.State, error) {
	pp, err := getField(st, PrimaryProduction)
	if err != nil {
		return nil, err
	}
	mask, err := getField(st, MaskByFGroup)
	if err != nil {
		return nil, err
	}
	energy, err := groupValues(st, EnergyTransfert)
	if err != nil {
		return nil, err
	}

	grid, err := fgroupGridCoords(st)
	if err != nil {
		return nil, err
	}
	out, data, err := newGrid(PPByFGroup, grid, ppByFGroupAttrs())
	if err != nil {
		return nil, err
	}
	nFG, nT, nY, nX := grid[0].Size(), grid[1].Size(), grid[2].Size(), grid[3].Size()
	for g := 0; g < nFG; g++ {
		for t := 0; t < nT; t++ {
			for y := 0; y < nY; y++ {
				for x := 0; x < nX; x++ {
					habitable, err := mask.At(g, y, x)
					if err != nil {
						return nil, err
					}
					if habitable == 0 {
						data.Set(state.NaN, g, t, y, x)
						continue
					}
					v, err := pp.At(t, y, x)
					if err != nil {
						return nil, err
					}
					data.Set(energy[g]*v, g, t, y, x)
				}
			}
		}
	}
	return singleFieldState(out)
}

// RecruitmentTransform scales each group's production by the share of
// cohorts warm enough to be recruited at that cell and time.
func RecruitmentTransform(st *state.State) (*state.State, error) {
	pp, err := getField(st, PPByFGroup)
	if err != nil {
		return nil, err
	}
	mask, err := getField(st, MaskTemperature)
	if err != nil {
		return nil, err
	}
	cohort, ok := mask.Coord(coords.Cohort)
	if !ok {
		return nil, fmt.Errorf("field %s has no %s axis", MaskTemperature, coords.Cohort)
	}

	grid, err := fgroupGridCoords(st)
	if err != nil {
		return nil, err
	}
	out, data, err := newGrid(Recruited, grid, recruitedAttrs())
	if err != nil {
		return nil, err
	}
	nFG, nT, nY, nX := grid[0].Size(), grid[1].Size(), grid[2].Size(), grid[3].Size()
	nCohort := float64(cohort.Size())
	for g := 0; g < nFG; g++ {
		for t := 0; t < nT; t++ {
			for y := 0; y < nY; y++ {
				for x := 0; x < nX; x++ {
					v, err := pp.At(g, t, y, x)
					if err != nil {
						return nil, err
					}
					if math.IsNaN(v) {
						data.Set(state.NaN, g, t, y, x)
						continue
					}
					recruitable := 0.0
					for c := 0; c < cohort.Size(); c++ {
						m, err := mask.At(g, t, y, x, c)
						if err != nil {
							return nil, err
						}
						recruitable += m
					}
					data.Set(v*recruitable/nCohort, g, t, y, x)
				}
			}
		}
	}
	return singleFieldState(out)
}

// ApplySurvivalRateTransform discounts the recruited biomass by the
// acidity-driven survival rate. Its template redeclares the recruited
// field, so the override-merge replaces the upstream value.
func ApplySurvivalRateTransform(st *state.State) (*state.State, error) {
	recruited, err := getField(st, Recruited)
	if err != nil {
		return nil, err
	}
	survival, err := getField(st, SurvivalRate)
	if err != nil {
		return nil, err
	}

	grid, err := fgroupGridCoords(st)
	if err != nil {
		return nil, err
	}
	out, data, err := newGrid(Recruited, grid, recruitedAttrs())
	if err != nil {
		return nil, err
	}
	nFG, nT, nY, nX := grid[0].Size(), grid[1].Size(), grid[2].Size(), grid[3].Size()
	for g := 0; g < nFG; g++ {
		for t := 0; t < nT; t++ {
			for y := 0; y < nY; y++ {
				for x := 0; x < nX; x++ {
					r, err := recruited.At(g, t, y, x)
					if err != nil {
						return nil, err
					}
					s, err := survival.At(g, t, y, x)
					if err != nil {
						return nil, err
					}
					data.Set(r*s, g, t, y, x)
				}
			}
		}
	}
	return singleFieldState(out)
}

func PPByFGroupUnit(chunks map[coords.Axis]int, parallel bool, scheduler kernel.Scheduler) (kernel.Unit, error) {
	return buildUnit(
		"primary_production_by_fgroup", PPByFGroup, ppByFGroupAttrs(),
		fgroupGridDims(), template.Float64, PPByFGroupTransform, chunks, parallel, scheduler,
	)
}

func RecruitmentUnit(chunks map[coords.Axis]int, parallel bool, scheduler kernel.Scheduler) (kernel.Unit, error) {
	return buildUnit(
		"recruitment", Recruited, recruitedAttrs(),
		fgroupGridDims(), template.Float64, RecruitmentTransform, chunks, parallel, scheduler,
		PPByFGroup, MaskTemperature,
	)
}

func ApplySurvivalRateUnit(chunks map[coords.Axis]int, parallel bool, scheduler kernel.Scheduler) (kernel.Unit, error) {
	return buildUnit(
		"apply_survival_rate", Recruited, recruitedAttrs(),
		fgroupGridDims(), template.Float64, ApplySurvivalRateTransform, chunks, parallel, scheduler,
		SurvivalRate,
	)
}
