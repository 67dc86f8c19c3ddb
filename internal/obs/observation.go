// Package obs defines observation datasets used to score model output.
package obs

import (
	"fmt"

	"pelagos/internal/coords"
	"pelagos/internal/state"
)

// Cycle identifies which part of the day an observation samples. It selects
// the functional groups whose position at that time matches the observed
// layer.
type Cycle string

const (
	Day   Cycle = "day"
	Night Cycle = "night"
)

// ParseCycle validates a cycle name.
func ParseCycle(s string) (Cycle, error) {
	switch Cycle(s) {
	case Day, Night:
		return Cycle(s), nil
	default:
		return "", fmt.Errorf("unknown observation cycle %q (want day or night)", s)
	}
}

// Kind distinguishes the comparison geometry of an observation.
type Kind string

const (
	// TimeSeriesKind compares a single-location time series.
	TimeSeriesKind Kind = "timeseries"
	// SpatialKind compares a gridded snapshot set.
	SpatialKind Kind = "spatial"
)

// Observation is one dataset of measured biomass with the sampling context
// needed to extract the comparable model values.
type Observation struct {
	Name     string
	Kind     Kind
	Data     *state.Array
	Cycle    Cycle
	Layer    float64 // observed depth layer, resolved on the model Z axis
	Interval float64 // optional resampling interval in days, 0 = exact times
}

// NewTimeSeries builds a time-series observation. The data must carry T, Y
// and X axes; Y and X are expected to be single-valued (the station
// position).
func NewTimeSeries(name string, data *state.Array, cycle Cycle, layer float64, interval float64) (Observation, error) {
	o := Observation{Name: name, Kind: TimeSeriesKind, Data: data, Cycle: cycle, Layer: layer, Interval: interval}
	if err := o.validate([]coords.Axis{coords.Time, coords.Y, coords.X}); err != nil {
		return Observation{}, err
	}
	if interval < 0 {
		return Observation{}, fmt.Errorf("observation %s: interval must be >= 0, got %v", name, interval)
	}
	return o, nil
}

// NewSpatial builds a gridded observation carrying its own depth axis.
func NewSpatial(name string, data *state.Array, cycle Cycle, layer float64) (Observation, error) {
	o := Observation{Name: name, Kind: SpatialKind, Data: data, Cycle: cycle, Layer: layer}
	if err := o.validate([]coords.Axis{coords.Time, coords.Y, coords.X, coords.Z}); err != nil {
		return Observation{}, err
	}
	return o, nil
}

func (o Observation) validate(required []coords.Axis) error {
	if o.Name == "" {
		return fmt.Errorf("observation name is required")
	}
	if o.Data == nil {
		return fmt.Errorf("observation %s: data is required", o.Name)
	}
	if _, err := ParseCycle(string(o.Cycle)); err != nil {
		return fmt.Errorf("observation %s: %w", o.Name, err)
	}
	for _, ax := range required {
		if !o.Data.HasDim(ax) {
			return fmt.Errorf("observation %s: data must carry the %s axis", o.Name, ax)
		}
	}
	return nil
}

// Times returns the observation's time coordinate values.
func (o Observation) Times() ([]float64, error) {
	tc, ok := o.Data.Coord(coords.Time)
	if !ok {
		return nil, fmt.Errorf("observation %s: no %s axis", o.Name, coords.Time)
	}
	return tc.Values, nil
}
