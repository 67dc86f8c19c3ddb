package biology

import (
	"fmt"
	"math"

	"pelagos/internal/coords"
	"pelagos/internal/kernel"
	"pelagos/internal/state"
	"pelagos/internal/template"
)

// AverageTemperatureTransform computes the temperature experienced by each
// functional group: day-length weighted mean of the day-layer and
// night-layer temperature, masked to the group's habitable cells and
// clamped at zero.
func AverageTemperatureTransform(st *state.State) (*state.State, error) {
	return averageByLayer(st, Temperature, AvgTemperature, avgTemperatureAttrs(), true)
}

// AverageAcidityTransform does the same selection over the acidity forcing,
// without the clamp: pH is not bounded below by zero in any meaningful way
// for the mortality model.
func AverageAcidityTransform(st *state.State) (*state.State, error) {
	return averageByLayer(st, Acidity, AvgAcidity, avgAcidityAttrs(), false)
}

func averageByLayer(st *state.State, source, out string, attrs state.Attrs, clampAtZero bool) (*state.State, error) {
	forcing, err := getField(st, source)
	if err != nil {
		return nil, err
	}
	dayLength, err := getField(st, DayLength)
	if err != nil {
		return nil, err
	}
	mask, err := getField(st, MaskByFGroup)
	if err != nil {
		return nil, err
	}
	dayLayers, err := groupValues(st, DayLayer)
	if err != nil {
		return nil, err
	}
	nightLayers, err := groupValues(st, NightLayer)
	if err != nil {
		return nil, err
	}

	grid, err := fgroupGridCoords(st)
	if err != nil {
		return nil, err
	}
	zc, ok := forcing.Coord(coords.Z)
	if !ok {
		return nil, fmt.Errorf("field %s has no %s axis", source, coords.Z)
	}

	avg, data, err := newGrid(out, grid, attrs)
	if err != nil {
		return nil, err
	}
	nFG, nT, nY, nX := grid[0].Size(), grid[1].Size(), grid[2].Size(), grid[3].Size()
	for g := 0; g < nFG; g++ {
		zDay, err := layerIndex(zc, dayLayers[g], DayLayer)
		if err != nil {
			return nil, err
		}
		zNight, err := layerIndex(zc, nightLayers[g], NightLayer)
		if err != nil {
			return nil, err
		}
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
					dl, err := dayLength.At(t, y, x)
					if err != nil {
						return nil, err
					}
					day, err := forcing.At(t, y, x, zDay)
					if err != nil {
						return nil, err
					}
					night, err := forcing.At(t, y, x, zNight)
					if err != nil {
						return nil, err
					}
					v := dl*day + (1-dl)*night
					if clampAtZero && v < 0 {
						v = 0
					}
					data.Set(v, g, t, y, x)
				}
			}
		}
	}
	return singleFieldState(avg)
}

// MinTemperatureByCohortTransform derives the minimal recruitment
// temperature per cohort by inverting tau_r = tr_0 * exp(gamma_tr * T) at
// the cohort's mean age.
func MinTemperatureByCohortTransform(st *state.State) (*state.State, error) {
	meanTimestep, err := getField(st, MeanTimestep)
	if err != nil {
		return nil, err
	}
	tr0, err := groupValues(st, Tr0)
	if err != nil {
		return nil, err
	}
	gammaTr, err := groupValues(st, GammaTr)
	if err != nil {
		return nil, err
	}

	fg, ok := st.Coord(coords.FunctionalGroup)
	if !ok {
		return nil, fmt.Errorf("axis %s is not defined in the state", coords.FunctionalGroup)
	}
	cohort, ok := meanTimestep.Coord(coords.Cohort)
	if !ok {
		return nil, fmt.Errorf("field %s has no %s axis", MeanTimestep, coords.Cohort)
	}
	ages, err := meanTimestep.Values()
	if err != nil {
		return nil, err
	}

	out, data, err := newGrid(MinTemperature, []coords.Coordinate{fg, cohort}, minTemperatureAttrs())
	if err != nil {
		return nil, err
	}
	for g := 0; g < fg.Size(); g++ {
		if gammaTr[g] == 0 {
			return nil, fmt.Errorf("%s is zero for functional group %d", GammaTr, g)
		}
		for c := 0; c < cohort.Size(); c++ {
			data.Set(math.Log(ages[c]/tr0[g])/gammaTr[g], g, c)
		}
	}
	return singleFieldState(out)
}

// MaskTemperatureTransform marks, per cohort, where the group's average
// temperature reaches the cohort's recruitment threshold. Undefined average
// temperature never recruits.
func MaskTemperatureTransform(st *state.State) (*state.State, error) {
	avg, err := getField(st, AvgTemperature)
	if err != nil {
		return nil, err
	}
	minTemp, err := getField(st, MinTemperature)
	if err != nil {
		return nil, err
	}
	grid, err := fgroupGridCoords(st)
	if err != nil {
		return nil, err
	}
	cohort, ok := minTemp.Coord(coords.Cohort)
	if !ok {
		return nil, fmt.Errorf("field %s has no %s axis", MinTemperature, coords.Cohort)
	}

	out, data, err := newGrid(MaskTemperature, append(grid, cohort), maskTemperatureAttrs())
	if err != nil {
		return nil, err
	}
	nFG, nT, nY, nX := grid[0].Size(), grid[1].Size(), grid[2].Size(), grid[3].Size()
	for g := 0; g < nFG; g++ {
		for t := 0; t < nT; t++ {
			for y := 0; y < nY; y++ {
				for x := 0; x < nX; x++ {
					v, err := avg.At(g, t, y, x)
					if err != nil {
						return nil, err
					}
					if math.IsNaN(v) {
						continue
					}
					for c := 0; c < cohort.Size(); c++ {
						threshold, err := minTemp.At(g, c)
						if err != nil {
							return nil, err
						}
						if v >= threshold {
							data.Set(1, g, t, y, x, c)
						}
					}
				}
			}
		}
	}
	return singleFieldState(out)
}

func AverageTemperatureUnit(chunks map[coords.Axis]int, parallel bool, scheduler kernel.Scheduler) (kernel.Unit, error) {
	return buildUnit(
		"average_temperature", AvgTemperature, avgTemperatureAttrs(),
		fgroupGridDims(), template.Float64, AverageTemperatureTransform, chunks, parallel, scheduler,
	)
}

func AverageAcidityUnit(chunks map[coords.Axis]int, parallel bool, scheduler kernel.Scheduler) (kernel.Unit, error) {
	return buildUnit(
		"average_acidity", AvgAcidity, avgAcidityAttrs(),
		fgroupGridDims(), template.Float64, AverageAcidityTransform, chunks, parallel, scheduler,
		Acidity, Temperature, DayLength,
	)
}

func MinTemperatureByCohortUnit(chunks map[coords.Axis]int, parallel bool, scheduler kernel.Scheduler) (kernel.Unit, error) {
	return buildUnit(
		"min_temperature_by_cohort", MinTemperature, minTemperatureAttrs(),
		[]template.Dim{template.AxisDim(coords.FunctionalGroup), template.AxisDim(coords.Cohort)},
		template.Float64, MinTemperatureByCohortTransform, nil, false, scheduler,
	)
}

func MaskTemperatureUnit(chunks map[coords.Axis]int, parallel bool, scheduler kernel.Scheduler) (kernel.Unit, error) {
	return buildUnit(
		"mask_temperature", MaskTemperature, maskTemperatureAttrs(),
		append(fgroupGridDims(), template.AxisDim(coords.Cohort)),
		template.Bool, MaskTemperatureTransform, chunks, parallel, scheduler,
		MinTemperature,
	)
}

func fgroupGridDims() []template.Dim {
	return []template.Dim{
		template.AxisDim(coords.FunctionalGroup),
		template.AxisDim(coords.Time),
		template.AxisDim(coords.Y),
		template.AxisDim(coords.X),
	}
}
