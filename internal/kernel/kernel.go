package kernel

import (
	"fmt"

	"pelagos/internal/state"
)

// Kernel is a fixed ordered pipeline of units. The order encodes a
// pre-validated topological order of the model's dependency graph; the
// kernel performs no dependency inference. Running the same kernel twice on
// equal states is deterministic and leaves no shared external state behind.
type Kernel struct {
	units []Unit
}

func New(units ...Unit) (*Kernel, error) {
	if len(units) == 0 {
		return nil, fmt.Errorf("kernel: at least one unit is required")
	}
	seen := make(map[string]struct{}, len(units))
	for _, u := range units {
		if u.Transform == nil {
			return nil, fmt.Errorf("kernel unit %s: transform is required", u.Name)
		}
		if _, ok := seen[u.Name]; ok {
			return nil, fmt.Errorf("kernel: duplicate unit name %s", u.Name)
		}
		seen[u.Name] = struct{}{}
	}
	out := make([]Unit, len(units))
	copy(out, units)
	return &Kernel{units: out}, nil
}

func (k *Kernel) Units() []Unit {
	out := make([]Unit, len(k.units))
	copy(out, k.units)
	return out
}

// Run executes the units strictly in order. Each unit's partial state is
// override-merged into the accumulating state (partial wins on collision),
// then the unit's freed variables are dropped. Any unit failure aborts the
// whole run; there is no partial-result recovery. A final coordinate
// integrity pass catches cross-unit inconsistencies per-unit validation
// cannot see.
func (k *Kernel) Run(st *state.State) (*state.State, error) {
	for _, u := range k.units {
		partial, err := u.Run(st)
		if err != nil {
			return nil, err
		}
		st = st.Merge(partial)
		if len(u.RemoveFromState) > 0 {
			st = st.Drop(u.RemoveFromState...)
		}
	}
	if err := st.ValidateIntegrity(); err != nil {
		return nil, fmt.Errorf("kernel: final coordinate integrity: %w", err)
	}
	return st, nil
}

// Template merges the input state with every unit's generated placeholder
// without running any transform. Used to estimate the size and shape of a
// full run before paying for the computation.
func (k *Kernel) Template(st *state.State) (*state.State, error) {
	merged := st
	for _, u := range k.units {
		placeholder, err := u.Template.Generate(st)
		if err != nil {
			return nil, fmt.Errorf("kernel unit %s: %w", u.Name, err)
		}
		merged = merged.Merge(placeholder)
	}
	return merged, nil
}
