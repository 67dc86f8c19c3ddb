// Package kernel composes pure state transformations into a fixed pipeline.
// Each unit's output shape is declared by a template and checked against
// what the transform actually produced; units may run eagerly or defer into
// a chunk-parallel evaluation forced on first data access.
package kernel

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ctessum/sparse"

	"pelagos/internal/state"
	"pelagos/internal/template"
)

// ErrMissingVariable reports a transform that did not produce a variable its
// template declares. This is a contract violation in the transform, never
// retried.
var ErrMissingVariable = errors.New("kernel: declared variable missing from transform output")

// Transform is one pure computation step. It must not mutate its input and,
// when run chunked, must be chunk-local: no reductions across chunk
// boundaries.
type Transform func(*state.State) (*state.State, error)

// Unit binds a transform to its template. Parallel selects deferred chunked
// execution through the scheduler; RemoveFromState lists upstream fields the
// enclosing kernel drops after this unit ran.
type Unit struct {
	Name            string
	Template        template.Template
	Transform       Transform
	RemoveFromState []string
	Parallel        bool
	Scheduler       Scheduler
}

// NewUnit validates the unit definition.
func NewUnit(name string, tpl template.Template, transform Transform, opts ...UnitOption) (Unit, error) {
	if name == "" {
		return Unit{}, fmt.Errorf("kernel: unit name is required")
	}
	if transform == nil {
		return Unit{}, fmt.Errorf("kernel unit %s: transform is required", name)
	}
	u := Unit{Name: name, Template: tpl, Transform: transform}
	for _, opt := range opts {
		opt(&u)
	}
	if u.Scheduler == nil {
		u.Scheduler = Sync{}
	}
	return u, nil
}

type UnitOption func(*Unit)

func WithRemoveFromState(names ...string) UnitOption {
	return func(u *Unit) { u.RemoveFromState = append(u.RemoveFromState, names...) }
}

func WithParallel(scheduler Scheduler) UnitOption {
	return func(u *Unit) {
		u.Parallel = true
		u.Scheduler = scheduler
	}
}

// Run executes the unit against the state and returns its partial state.
// Eager mode runs the transform now; parallel mode returns lazy fields whose
// chunked computation happens when a consumer forces them. Either way, every
// variable the template declares must be produced, and the template's attrs
// overwrite whatever metadata the transform attached.
func (u Unit) Run(st *state.State) (*state.State, error) {
	if u.Parallel {
		return u.runDeferred(st)
	}
	return u.runEager(st)
}

func (u Unit) runEager(st *state.State) (*state.State, error) {
	out, err := u.Transform(st)
	if err != nil {
		return nil, fmt.Errorf("kernel unit %s: %w", u.Name, err)
	}
	arrays := make([]*state.Array, 0, out.Len())
	declared := make(map[string]struct{})
	for _, tu := range u.Template.Units() {
		produced, ok := out.Get(tu.Name)
		if !ok {
			return nil, fmt.Errorf("kernel unit %s: variable %s: %w", u.Name, tu.Name, ErrMissingVariable)
		}
		attrs := tu.Attrs.Clone()
		if attrs == nil {
			attrs = state.Attrs{}
		}
		attrs["dtype"] = string(tu.DType)
		arrays = append(arrays, produced.WithAttrs(attrs))
		declared[tu.Name] = struct{}{}
	}
	// Undeclared extras pass through untouched.
	for _, name := range out.Names() {
		if _, ok := declared[name]; ok {
			continue
		}
		extra, _ := out.Get(name)
		arrays = append(arrays, extra)
	}
	return state.New(arrays...)
}

func (u Unit) runDeferred(st *state.State) (*state.State, error) {
	placeholder, err := u.Template.Generate(st)
	if err != nil {
		return nil, fmt.Errorf("kernel unit %s: %w", u.Name, err)
	}

	run := &chunkRun{
		unit:        u,
		input:       st,
		destination: placeholder,
	}

	arrays := make([]*state.Array, 0, placeholder.Len())
	for _, name := range placeholder.Names() {
		field, _ := placeholder.Get(name)
		fieldName := name
		lazy, err := state.NewLazyArray(fieldName, field.Coordinates(), field.Attrs(), func() (*sparse.DenseArray, error) {
			if err := run.force(); err != nil {
				return nil, err
			}
			dest, _ := run.destination.Get(fieldName)
			return dest.Data()
		})
		if err != nil {
			return nil, fmt.Errorf("kernel unit %s: %w", u.Name, err)
		}
		arrays = append(arrays, lazy)
	}
	return state.New(arrays...)
}

// chunkRun is the deferred fan-out of one parallel unit: the transform runs
// once per region of the chunked axes, and each region's output blocks are
// written into the template placeholder at the region offsets. Forced at
// most once, shared by all of the unit's output fields.
type chunkRun struct {
	unit        Unit
	input       *state.State
	destination *state.State

	once sync.Once
	err  error
}

func (r *chunkRun) force() error {
	r.once.Do(func() { r.err = r.run() })
	return r.err
}

func (r *chunkRun) run() error {
	regions := state.Partition(r.input.AxisSizes(), r.unit.Template.Chunks())
	return r.unit.Scheduler.Map(len(regions), func(i int) error {
		region := regions[i]
		sub, err := r.input.Slice(region)
		if err != nil {
			return fmt.Errorf("kernel unit %s: slice chunk %d: %w", r.unit.Name, i, err)
		}
		out, err := r.unit.Transform(sub)
		if err != nil {
			return fmt.Errorf("kernel unit %s: chunk %d: %w", r.unit.Name, i, err)
		}
		for _, tu := range r.unit.Template.Units() {
			block, ok := out.Get(tu.Name)
			if !ok {
				return fmt.Errorf("kernel unit %s: chunk %d: variable %s: %w", r.unit.Name, i, tu.Name, ErrMissingVariable)
			}
			dest, _ := r.destination.Get(tu.Name)
			if err := dest.SetRegion(region, block); err != nil {
				return fmt.Errorf("kernel unit %s: chunk %d: %w", r.unit.Name, i, err)
			}
		}
		return nil
	})
}
