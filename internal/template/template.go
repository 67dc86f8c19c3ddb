// Package template declares the expected output of a kernel unit before the
// unit runs: name, dimensions, chunking, dtype and metadata. Generating a
// template against a state yields a lazily-backed placeholder array whose
// coordinates come from the state, so shape errors surface before any
// transform is executed.
package template

import (
	"errors"
	"fmt"

	"pelagos/internal/coords"
	"pelagos/internal/state"
)

// ErrMissingState is returned when a template referencing state coordinates
// is generated without a state.
var ErrMissingState = errors.New("template: state is required to resolve coordinate references")

// DType records the declared element kind. Storage is always float64; Bool
// fields hold 0/1 and carry the declaration for validation and metadata.
type DType string

const (
	Float64 DType = "float64"
	Bool    DType = "bool"
)

// Dim references one output axis: either by name, resolved against the
// generating state's coordinates, or as an explicit coordinate carried by
// the template itself.
type Dim struct {
	axis     coords.Axis
	explicit *coords.Coordinate
}

// AxisDim references a state coordinate by axis name.
func AxisDim(ax coords.Axis) Dim { return Dim{axis: ax} }

// CoordDim embeds an explicit coordinate, for axes the state does not carry.
func CoordDim(c coords.Coordinate) Dim {
	clone := c.Clone()
	return Dim{axis: c.Axis, explicit: &clone}
}

func (d Dim) Axis() coords.Axis { return d.axis }

func (d Dim) resolve(st *state.State) (coords.Coordinate, error) {
	if d.explicit != nil {
		return d.explicit.Clone(), nil
	}
	if st == nil {
		return coords.Coordinate{}, ErrMissingState
	}
	c, ok := st.Coord(d.axis)
	if !ok {
		return coords.Coordinate{}, fmt.Errorf("template: axis %s is not defined in the state", d.axis)
	}
	return c.Clone(), nil
}

// Unit declares a single output variable.
type Unit struct {
	Name   string
	Attrs  state.Attrs
	Dims   []Dim
	Chunks map[coords.Axis]int
	DType  DType
}

// NewUnit validates the declaration. Dim references must name an axis; the
// dtype defaults to float64.
func NewUnit(name string, attrs state.Attrs, dims []Dim, chunks map[coords.Axis]int, dtype DType) (Unit, error) {
	if name == "" {
		return Unit{}, fmt.Errorf("template: unit name is required")
	}
	for i, d := range dims {
		if d.axis == "" {
			return Unit{}, fmt.Errorf("template %s: dim %d has no axis reference", name, i)
		}
	}
	if dtype == "" {
		dtype = Float64
	}
	if dtype != Float64 && dtype != Bool {
		return Unit{}, fmt.Errorf("template %s: unknown dtype %q", name, dtype)
	}
	return Unit{Name: name, Attrs: attrs.Clone(), Dims: dims, Chunks: chunks, DType: dtype}, nil
}

// Generate materializes the placeholder: declared dims resolved against the
// state, reordered to canonical order, attrs attached, content left
// uninitialized until something forces the array.
func (u Unit) Generate(st *state.State) (*state.Array, error) {
	resolved := make([]coords.Coordinate, 0, len(u.Dims))
	for _, d := range u.Dims {
		c, err := d.resolve(st)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", u.Name, err)
		}
		resolved = append(resolved, c)
	}

	byAxis := make(map[coords.Axis]coords.Coordinate, len(resolved))
	axes := make([]coords.Axis, 0, len(resolved))
	for _, c := range resolved {
		if _, ok := byAxis[c.Axis]; ok {
			return nil, fmt.Errorf("template %s: duplicate axis %s", u.Name, c.Axis)
		}
		byAxis[c.Axis] = c
		axes = append(axes, c.Axis)
	}
	ordered := coords.OrderDims(axes)
	orderedCoords := make([]coords.Coordinate, len(ordered))
	for i, ax := range ordered {
		orderedCoords[i] = byAxis[ax]
	}

	attrs := u.Attrs.Clone()
	if attrs == nil {
		attrs = state.Attrs{}
	}
	attrs["dtype"] = string(u.DType)
	placeholder, err := state.NewLazyArray(u.Name, orderedCoords, attrs, nil)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", u.Name, err)
	}
	return placeholder, nil
}

// Template is an ordered collection of units with unique names. Declaration
// order drives merge order, not execution order.
type Template struct {
	units []Unit
}

func New(units ...Unit) (Template, error) {
	seen := make(map[string]struct{}, len(units))
	for _, u := range units {
		if _, ok := seen[u.Name]; ok {
			return Template{}, fmt.Errorf("template: duplicate unit name %s", u.Name)
		}
		seen[u.Name] = struct{}{}
	}
	out := make([]Unit, len(units))
	copy(out, units)
	return Template{units: out}, nil
}

func (t Template) Units() []Unit {
	out := make([]Unit, len(t.units))
	copy(out, t.units)
	return out
}

// Chunks returns the union of the units' chunk declarations.
func (t Template) Chunks() map[coords.Axis]int {
	out := map[coords.Axis]int{}
	for _, u := range t.units {
		for ax, n := range u.Chunks {
			out[ax] = n
		}
	}
	return out
}

// Generate materializes every unit and merges the placeholders into one
// partial state, validating cross-field coordinate consistency.
func (t Template) Generate(st *state.State) (*state.State, error) {
	arrays := make([]*state.Array, 0, len(t.units))
	for _, u := range t.units {
		placeholder, err := u.Generate(st)
		if err != nil {
			return nil, err
		}
		arrays = append(arrays, placeholder)
	}
	out, err := state.New(arrays...)
	if err != nil {
		return nil, err
	}
	if err := out.ValidateIntegrity(); err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	return out, nil
}
