package biology

import (
	"math"

	"pelagos/internal/coords"
	"pelagos/internal/kernel"
	"pelagos/internal/state"
	"pelagos/internal/template"
)

// MortalityTransform computes the temperature/acidity-driven mortality
// coefficient lambda = lambda_0 * exp(gamma_T * T + gamma_A * A) per
// functional group. Cells outside the group's habitat stay NaN.
func MortalityTransform(st *state.State) (*state.State, error) {
	avgT, err := getField(st, AvgTemperature)
	if err != nil {
		return nil, err
	}
	avgA, err := getField(st, AvgAcidity)
	if err != nil {
		return nil, err
	}
	lambda0, err := groupValues(st, Lambda0)
	if err != nil {
		return nil, err
	}
	gammaT, err := groupValues(st, GammaLambdaTemperature)
	if err != nil {
		return nil, err
	}
	gammaA, err := groupValues(st, GammaLambdaAcidity)
	if err != nil {
		return nil, err
	}

	grid, err := fgroupGridCoords(st)
	if err != nil {
		return nil, err
	}
	out, data, err := newGrid(Mortality, grid, mortalityAttrs())
	if err != nil {
		return nil, err
	}
	nFG, nT, nY, nX := grid[0].Size(), grid[1].Size(), grid[2].Size(), grid[3].Size()
	for g := 0; g < nFG; g++ {
		for t := 0; t < nT; t++ {
			for y := 0; y < nY; y++ {
				for x := 0; x < nX; x++ {
					temp, err := avgT.At(g, t, y, x)
					if err != nil {
						return nil, err
					}
					acid, err := avgA.At(g, t, y, x)
					if err != nil {
						return nil, err
					}
					if math.IsNaN(temp) || math.IsNaN(acid) {
						data.Set(state.NaN, g, t, y, x)
						continue
					}
					data.Set(lambda0[g]*math.Exp(gammaT[g]*temp+gammaA[g]*acid), g, t, y, x)
				}
			}
		}
	}
	return singleFieldState(out)
}

// SurvivalRateTransform applies the Bednarsek et al. (2021) relationship: a
// sigmoid of a linear model in average temperature and acidity.
func SurvivalRateTransform(st *state.State) (*state.State, error) {
	avgT, err := getField(st, AvgTemperature)
	if err != nil {
		return nil, err
	}
	avgA, err := getField(st, AvgAcidity)
	if err != nil {
		return nil, err
	}
	s0, err := groupValues(st, SurvivalRate0)
	if err != nil {
		return nil, err
	}
	gammaT, err := groupValues(st, GammaSurvivalRateTemperature)
	if err != nil {
		return nil, err
	}
	gammaA, err := groupValues(st, GammaSurvivalRateAcidity)
	if err != nil {
		return nil, err
	}

	grid, err := fgroupGridCoords(st)
	if err != nil {
		return nil, err
	}
	out, data, err := newGrid(SurvivalRate, grid, survivalRateAttrs())
	if err != nil {
		return nil, err
	}
	nFG, nT, nY, nX := grid[0].Size(), grid[1].Size(), grid[2].Size(), grid[3].Size()
	for g := 0; g < nFG; g++ {
		for t := 0; t < nT; t++ {
			for y := 0; y < nY; y++ {
				for x := 0; x < nX; x++ {
					temp, err := avgT.At(g, t, y, x)
					if err != nil {
						return nil, err
					}
					acid, err := avgA.At(g, t, y, x)
					if err != nil {
						return nil, err
					}
					if math.IsNaN(temp) || math.IsNaN(acid) {
						data.Set(state.NaN, g, t, y, x)
						continue
					}
					data.Set(sigmoid(s0[g]+gammaT[g]*temp+gammaA[g]*acid), g, t, y, x)
				}
			}
		}
	}
	return singleFieldState(out)
}

func MortalityUnit(chunks map[coords.Axis]int, parallel bool, scheduler kernel.Scheduler) (kernel.Unit, error) {
	return buildUnit(
		"mortality_temperature_acidity", Mortality, mortalityAttrs(),
		fgroupGridDims(), template.Float64, MortalityTransform, chunks, parallel, scheduler,
	)
}

func SurvivalRateUnit(chunks map[coords.Axis]int, parallel bool, scheduler kernel.Scheduler) (kernel.Unit, error) {
	return buildUnit(
		"survival_rate_bednarsek", SurvivalRate, survivalRateAttrs(),
		fgroupGridDims(), template.Float64, SurvivalRateTransform, chunks, parallel, scheduler,
	)
}
