package state

import (
	"fmt"

	"pelagos/internal/coords"
)

// State maps field names to arrays. It is treated as an immutable value:
// Merge and Drop return new States and never mutate the receiver, so a state
// captured before a kernel step stays valid after it.
type State struct {
	fields map[string]*Array
	order  []string
}

// New builds a state from arrays. Field names must be unique.
func New(arrays ...*Array) (*State, error) {
	s := &State{fields: make(map[string]*Array, len(arrays))}
	for _, a := range arrays {
		if a == nil {
			return nil, fmt.Errorf("nil array in state")
		}
		if _, ok := s.fields[a.Name()]; ok {
			return nil, fmt.Errorf("duplicate field %s", a.Name())
		}
		s.fields[a.Name()] = a
		s.order = append(s.order, a.Name())
	}
	return s, nil
}

func (s *State) Get(name string) (*Array, bool) {
	a, ok := s.fields[name]
	return a, ok
}

func (s *State) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Names returns field names in insertion order.
func (s *State) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *State) Len() int { return len(s.fields) }

// Merge returns a new state holding the union of both states' fields.
// Fields of partial win on name collision (last-writer-wins), keeping their
// position in the receiver's order.
func (s *State) Merge(partial *State) *State {
	out := &State{fields: make(map[string]*Array, len(s.fields)+partial.Len())}
	for _, name := range s.order {
		if replacement, ok := partial.fields[name]; ok {
			out.fields[name] = replacement
		} else {
			out.fields[name] = s.fields[name]
		}
		out.order = append(out.order, name)
	}
	for _, name := range partial.order {
		if _, ok := out.fields[name]; ok {
			continue
		}
		out.fields[name] = partial.fields[name]
		out.order = append(out.order, name)
	}
	return out
}

// Drop returns a new state without the named fields. Missing names are
// ignored.
func (s *State) Drop(names ...string) *State {
	dropped := make(map[string]struct{}, len(names))
	for _, name := range names {
		dropped[name] = struct{}{}
	}
	out := &State{fields: make(map[string]*Array, len(s.fields))}
	for _, name := range s.order {
		if _, ok := dropped[name]; ok {
			continue
		}
		out.fields[name] = s.fields[name]
		out.order = append(out.order, name)
	}
	return out
}

// Coord resolves an axis to its coordinate by scanning fields in order.
// The first field carrying the axis wins; ValidateIntegrity catches
// cross-field disagreements.
func (s *State) Coord(ax coords.Axis) (coords.Coordinate, bool) {
	for _, name := range s.order {
		if c, ok := s.fields[name].Coord(ax); ok {
			return c, true
		}
	}
	return coords.Coordinate{}, false
}

// Slice copies out the sub-state selected by the region: every field is
// narrowed on the axes it shares with the region.
func (s *State) Slice(r Region) (*State, error) {
	arrays := make([]*Array, 0, len(s.order))
	for _, name := range s.order {
		sub, err := s.fields[name].Slice(r)
		if err != nil {
			return nil, err
		}
		arrays = append(arrays, sub)
	}
	return New(arrays...)
}

// AxisSizes reports the size of every axis present in the state.
func (s *State) AxisSizes() map[coords.Axis]int {
	sizes := map[coords.Axis]int{}
	for _, name := range s.order {
		for _, ax := range s.fields[name].Dims() {
			if c, ok := s.fields[name].Coord(ax); ok {
				if _, seen := sizes[ax]; !seen {
					sizes[ax] = c.Size()
				}
			}
		}
	}
	return sizes
}

// ValidateIntegrity runs the coordinate authority over the whole state:
// every field's dims in canonical order, every coordinate strictly
// increasing, and every axis materialized identically across fields. This is
// the final cross-unit pass of a kernel run.
func (s *State) ValidateIntegrity() error {
	seen := map[coords.Axis]struct {
		field string
		coord coords.Coordinate
	}{}
	for _, name := range s.order {
		a := s.fields[name]
		if err := coords.ValidateDims(a.Dims()); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		for _, ax := range a.Dims() {
			c, _ := a.Coord(ax)
			if err := coords.Validate(c); err != nil {
				return fmt.Errorf("field %s: %w", name, err)
			}
			if prev, ok := seen[ax]; ok {
				if err := coords.ValidateConsistent(prev.coord, c); err != nil {
					return fmt.Errorf("fields %s and %s: %w", prev.field, name, err)
				}
			} else {
				seen[ax] = struct {
					field string
					coord coords.Coordinate
				}{field: name, coord: c}
			}
		}
	}
	return nil
}
