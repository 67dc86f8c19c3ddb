package state

import (
	"fmt"
	"math"
	"sync"

	"github.com/ctessum/sparse"

	"pelagos/internal/coords"
)

// Attrs is the metadata attached to a field: units, standard name,
// free-form description.
type Attrs map[string]string

func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Array is an N-dimensional field with named coordinate axes in canonical
// order. The backing dense array may be deferred: a lazy array carries a
// thunk that is forced exactly once, on first data access. A placeholder
// array (no data, no thunk) allocates zeroed storage on demand.
type Array struct {
	name  string
	dims  []coords.Axis
	coord map[coords.Axis]coords.Coordinate
	attrs Attrs

	mu   sync.Mutex
	data *sparse.DenseArray
	load func() (*sparse.DenseArray, error)
}

// NewArray builds an eager array. Coordinates must already be in canonical
// axis order and their sizes must match the data shape.
func NewArray(name string, coordinates []coords.Coordinate, data *sparse.DenseArray, attrs Attrs) (*Array, error) {
	a, err := newShell(name, coordinates, attrs)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("field %s: data is required", name)
	}
	if err := a.checkShape(data); err != nil {
		return nil, err
	}
	a.data = data
	return a, nil
}

// NewLazyArray builds an array whose data is produced by load on first
// access. A nil load yields an uninitialized placeholder (zeros on demand).
func NewLazyArray(name string, coordinates []coords.Coordinate, attrs Attrs, load func() (*sparse.DenseArray, error)) (*Array, error) {
	a, err := newShell(name, coordinates, attrs)
	if err != nil {
		return nil, err
	}
	a.load = load
	return a, nil
}

// NewScalar builds a dimensionless single-value array.
func NewScalar(name string, value float64, attrs Attrs) *Array {
	data := sparse.ZerosDense(1)
	data.Elements[0] = value
	return &Array{name: name, coord: map[coords.Axis]coords.Coordinate{}, attrs: attrs.Clone(), data: data}
}

// NewArrayFromValues builds an array from a flat row-major value slice.
func NewArrayFromValues(name string, coordinates []coords.Coordinate, values []float64, attrs Attrs) (*Array, error) {
	shape := make([]int, len(coordinates))
	for i, c := range coordinates {
		shape[i] = c.Size()
	}
	data := sparse.ZerosDense(shape...)
	if len(values) != len(data.Elements) {
		return nil, fmt.Errorf("field %s: %d values for shape %v", name, len(values), shape)
	}
	copy(data.Elements, values)
	return NewArray(name, coordinates, data, attrs)
}

// NewGroupValues builds a per-functional-group 1-d array, the shape used by
// every scalar parameter that varies across groups.
func NewGroupValues(name string, fgroup coords.Coordinate, values []float64, attrs Attrs) (*Array, error) {
	if fgroup.Axis != coords.FunctionalGroup {
		return nil, fmt.Errorf("field %s: expected %s coordinate, got %s", name, coords.FunctionalGroup, fgroup.Axis)
	}
	if len(values) != fgroup.Size() {
		return nil, fmt.Errorf("field %s: %d values for %d functional groups", name, len(values), fgroup.Size())
	}
	data := sparse.ZerosDense(len(values))
	copy(data.Elements, values)
	return NewArray(name, []coords.Coordinate{fgroup}, data, attrs)
}

func newShell(name string, coordinates []coords.Coordinate, attrs Attrs) (*Array, error) {
	if name == "" {
		return nil, fmt.Errorf("array name is required")
	}
	dims := make([]coords.Axis, 0, len(coordinates))
	coord := make(map[coords.Axis]coords.Coordinate, len(coordinates))
	for _, c := range coordinates {
		if err := coords.Validate(c); err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		dims = append(dims, c.Axis)
		coord[c.Axis] = c.Clone()
	}
	if err := coords.ValidateDims(dims); err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}
	return &Array{name: name, dims: dims, coord: coord, attrs: attrs.Clone()}, nil
}

func (a *Array) checkShape(data *sparse.DenseArray) error {
	want := a.Shape()
	if len(a.dims) == 0 {
		if len(data.Elements) != 1 {
			return fmt.Errorf("field %s: scalar needs exactly one element, got %d", a.name, len(data.Elements))
		}
		return nil
	}
	if len(data.Shape) != len(want) {
		return fmt.Errorf("field %s: rank mismatch: data %d, coords %d", a.name, len(data.Shape), len(want))
	}
	for i := range want {
		if data.Shape[i] != want[i] {
			return fmt.Errorf("field %s: axis %s size mismatch: data %d, coordinate %d",
				a.name, a.dims[i], data.Shape[i], want[i])
		}
	}
	return nil
}

func (a *Array) Name() string { return a.name }

func (a *Array) Dims() []coords.Axis {
	out := make([]coords.Axis, len(a.dims))
	copy(out, a.dims)
	return out
}

func (a *Array) HasDim(ax coords.Axis) bool {
	for _, d := range a.dims {
		if d == ax {
			return true
		}
	}
	return false
}

func (a *Array) Coord(ax coords.Axis) (coords.Coordinate, bool) {
	c, ok := a.coord[ax]
	return c, ok
}

// Coordinates returns the array's coordinates in dim order.
func (a *Array) Coordinates() []coords.Coordinate {
	out := make([]coords.Coordinate, len(a.dims))
	for i, ax := range a.dims {
		out[i] = a.coord[ax].Clone()
	}
	return out
}

func (a *Array) Shape() []int {
	shape := make([]int, len(a.dims))
	for i, ax := range a.dims {
		shape[i] = a.coord[ax].Size()
	}
	return shape
}

func (a *Array) Size() int {
	n := 1
	for _, s := range a.Shape() {
		n *= s
	}
	return n
}

func (a *Array) Attrs() Attrs { return a.attrs.Clone() }

// WithAttrs returns a view of the array with attrs replaced. The backing
// data (or thunk) is shared: templates overwrite metadata, never values.
func (a *Array) WithAttrs(attrs Attrs) *Array {
	out := a.shallow()
	out.attrs = attrs.Clone()
	return out
}

// WithName returns a renamed view sharing the backing data.
func (a *Array) WithName(name string) *Array {
	out := a.shallow()
	out.name = name
	return out
}

func (a *Array) shallow() *Array {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &Array{name: a.name, dims: a.dims, coord: a.coord, attrs: a.attrs, data: a.data, load: a.load}
}

// Data forces the array and returns the backing dense storage.
func (a *Array) Data() (*sparse.DenseArray, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.data != nil {
		return a.data, nil
	}
	if a.load == nil {
		shape := a.Shape()
		if len(shape) == 0 {
			shape = []int{1}
		}
		a.data = sparse.ZerosDense(shape...)
		return a.data, nil
	}
	data, err := a.load()
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", a.name, err)
	}
	if err := a.checkShape(data); err != nil {
		return nil, err
	}
	a.data = data
	a.load = nil
	return a.data, nil
}

// Values forces the array and returns its elements in row-major order.
func (a *Array) Values() ([]float64, error) {
	data, err := a.Data()
	if err != nil {
		return nil, err
	}
	return data.Elements, nil
}

// At forces the array and reads one element by multi-index.
func (a *Array) At(idx ...int) (float64, error) {
	data, err := a.Data()
	if err != nil {
		return 0, err
	}
	if len(a.dims) == 0 {
		return data.Elements[0], nil
	}
	return data.Get(idx...), nil
}

// Scalar returns the value of a dimensionless or single-element array.
func (a *Array) Scalar() (float64, error) {
	if a.Size() != 1 {
		return 0, fmt.Errorf("field %s: not a scalar (size %d)", a.name, a.Size())
	}
	values, err := a.Values()
	if err != nil {
		return 0, err
	}
	return values[0], nil
}

// Clone forces the array and returns a deep copy.
func (a *Array) Clone() (*Array, error) {
	data, err := a.Data()
	if err != nil {
		return nil, err
	}
	coordinates := make([]coords.Coordinate, 0, len(a.dims))
	for _, ax := range a.dims {
		coordinates = append(coordinates, a.coord[ax].Clone())
	}
	out, err := newShell(a.name, coordinates, a.attrs)
	if err != nil {
		return nil, err
	}
	out.data = data.Copy()
	return out, nil
}

// Fill forces the array and sets every element to value.
func Fill(a *Array, value float64) error {
	values, err := a.Values()
	if err != nil {
		return err
	}
	for i := range values {
		values[i] = value
	}
	return nil
}

// NaN marks missing values in forcing fields.
var NaN = math.NaN()
