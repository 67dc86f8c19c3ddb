package config

import (
	"fmt"

	"pelagos/internal/biology"
	"pelagos/internal/coords"
	"pelagos/internal/state"
)

// GridSpec describes a regular space/time grid for generated forcing.
type GridSpec struct {
	Times      int       `yaml:"times"`
	Latitudes  AxisSpec  `yaml:"latitudes"`
	Longitudes AxisSpec  `yaml:"longitudes"`
	Layers     []float64 `yaml:"layers"`
}

// AxisSpec is a regularly spaced coordinate axis.
type AxisSpec struct {
	Start float64 `yaml:"start"`
	Step  float64 `yaml:"step"`
	Count int     `yaml:"count"`
}

func (s AxisSpec) coordinate(ax coords.Axis, units string) (coords.Coordinate, error) {
	if s.Count <= 0 {
		return coords.Coordinate{}, fmt.Errorf("axis %s: count must be > 0", ax)
	}
	step := s.Step
	if step == 0 {
		step = 1
	}
	values := make([]float64, s.Count)
	for i := range values {
		values[i] = s.Start + float64(i)*step
	}
	return coords.NewCoordinate(ax, values, map[string]string{"units": units})
}

// FieldSpec is a generated forcing field: a surface value plus an optional
// linear depth gradient.
type FieldSpec struct {
	Surface  float64 `yaml:"surface"`
	Gradient float64 `yaml:"gradient"`
}

func (f FieldSpec) at(depth float64) float64 { return f.Surface + f.Gradient*depth }

// SyntheticForcing generates constant-in-time forcing fields on a regular
// grid. It exists for demonstration runs and tests; production forcing is
// built by the caller from real data.
func SyntheticForcing(grid GridSpec, temperature, acidity FieldSpec, primaryProduction, dayLength, timestep float64) (ForcingParameter, error) {
	var zero ForcingParameter
	if grid.Times <= 0 {
		return zero, fmt.Errorf("grid: times must be > 0")
	}
	if len(grid.Layers) == 0 {
		return zero, fmt.Errorf("grid: at least one layer is required")
	}
	tValues := make([]float64, grid.Times)
	for i := range tValues {
		tValues[i] = float64(i) * timestep
	}
	tc, err := coords.NewCoordinate(coords.Time, tValues, map[string]string{"units": "day"})
	if err != nil {
		return zero, err
	}
	yc, err := grid.Latitudes.coordinate(coords.Y, "degrees_north")
	if err != nil {
		return zero, err
	}
	xc, err := grid.Longitudes.coordinate(coords.X, "degrees_east")
	if err != nil {
		return zero, err
	}
	zc, err := coords.NewCoordinate(coords.Z, grid.Layers, map[string]string{"units": "m"})
	if err != nil {
		return zero, err
	}

	layered := func(name string, spec FieldSpec, attrs state.Attrs) (*state.Array, error) {
		n := tc.Size() * yc.Size() * xc.Size() * zc.Size()
		values := make([]float64, 0, n)
		for t := 0; t < tc.Size(); t++ {
			for y := 0; y < yc.Size(); y++ {
				for x := 0; x < xc.Size(); x++ {
					for z := 0; z < zc.Size(); z++ {
						values = append(values, spec.at(zc.Values[z]))
					}
				}
			}
		}
		return state.NewArrayFromValues(name, []coords.Coordinate{tc, yc, xc, zc}, values, attrs)
	}
	surface := func(name string, value float64, attrs state.Attrs) (*state.Array, error) {
		n := tc.Size() * yc.Size() * xc.Size()
		values := make([]float64, n)
		for i := range values {
			values[i] = value
		}
		return state.NewArrayFromValues(name, []coords.Coordinate{tc, yc, xc}, values, attrs)
	}

	temp, err := layered(biology.Temperature, temperature, state.Attrs{"units": "degC"})
	if err != nil {
		return zero, err
	}
	acid, err := layered(biology.Acidity, acidity, state.Attrs{"units": "pH"})
	if err != nil {
		return zero, err
	}
	pp, err := surface(biology.PrimaryProduction, primaryProduction, state.Attrs{"units": "mgC/m2/day"})
	if err != nil {
		return zero, err
	}
	dl, err := surface(biology.DayLength, dayLength, state.Attrs{"units": "1"})
	if err != nil {
		return zero, err
	}

	return ForcingParameter{
		Temperature:       temp,
		Acidity:           acid,
		PrimaryProduction: pp,
		DayLength:         dl,
		Timestep:          timestep,
	}, nil
}
