package coords

import (
	"fmt"
	"math"
	"slices"
)

// Axis names a coordinate dimension. The six canonical axes follow the
// cf-convention ordering used by all model fields; additional ad-hoc axes
// (for example an aggregation layer) sort after the canonical set.
type Axis string

const (
	FunctionalGroup Axis = "functional_group"
	Time            Axis = "T"
	Y               Axis = "Y"
	X               Axis = "X"
	Z               Axis = "Z"
	Cohort          Axis = "cohort"
)

// Ordered returns the canonical axis order.
func Ordered() []Axis {
	return []Axis{FunctionalGroup, Time, Y, X, Z, Cohort}
}

func canonicalRank(ax Axis) int {
	for i, canonical := range Ordered() {
		if ax == canonical {
			return i
		}
	}
	return len(Ordered())
}

// OrderDims returns dims sorted into canonical order. Non-canonical axes keep
// their relative declaration order after the canonical ones.
func OrderDims(dims []Axis) []Axis {
	out := make([]Axis, len(dims))
	copy(out, dims)
	slices.SortStableFunc(out, func(a, b Axis) int {
		return canonicalRank(a) - canonicalRank(b)
	})
	return out
}

// Coordinate is a named axis with its materialized values and metadata.
type Coordinate struct {
	Axis   Axis
	Values []float64
	Attrs  map[string]string
}

func NewCoordinate(ax Axis, values []float64, attrs map[string]string) (Coordinate, error) {
	if ax == "" {
		return Coordinate{}, fmt.Errorf("coordinate axis name is required")
	}
	if len(values) == 0 {
		return Coordinate{}, fmt.Errorf("coordinate %s has no values", ax)
	}
	c := Coordinate{Axis: ax, Values: slices.Clone(values), Attrs: cloneAttrs(attrs)}
	if err := Validate(c); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// IndexCoordinate builds a coordinate with values 0..n-1, the default for
// axes that carry no physical positions (functional groups, cohorts).
func IndexCoordinate(ax Axis, n int) (Coordinate, error) {
	if n <= 0 {
		return Coordinate{}, fmt.Errorf("coordinate %s needs a positive size, got %d", ax, n)
	}
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i)
	}
	return NewCoordinate(ax, values, nil)
}

func (c Coordinate) Size() int { return len(c.Values) }

func (c Coordinate) Clone() Coordinate {
	return Coordinate{Axis: c.Axis, Values: slices.Clone(c.Values), Attrs: cloneAttrs(c.Attrs)}
}

// IndexOf returns the position of value on the axis, or -1 when absent.
func (c Coordinate) IndexOf(value float64) int {
	for i, v := range c.Values {
		if v == value {
			return i
		}
	}
	return -1
}

// NearestIndex returns the position whose value is closest to value.
func (c Coordinate) NearestIndex(value float64) int {
	best := 0
	bestDist := math.Abs(c.Values[0] - value)
	for i := 1; i < len(c.Values); i++ {
		if d := math.Abs(c.Values[i] - value); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func cloneAttrs(attrs map[string]string) map[string]string {
	if attrs == nil {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
