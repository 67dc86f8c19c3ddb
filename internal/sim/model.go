// Package sim assembles configurations into runnable models. A model pairs
// a derived initial state with the kernel of one registered variant.
package sim

import (
	"fmt"
	"sort"

	"pelagos/internal/biology"
	"pelagos/internal/config"
	"pelagos/internal/coords"
	"pelagos/internal/kernel"
	"pelagos/internal/state"
)

// UnitBuilder produces one kernel unit from the run options.
type UnitBuilder func(opts Options) (kernel.Unit, error)

// Options are the execution settings a variant's units share.
type Options struct {
	Chunks    map[coords.Axis]int
	Parallel  bool
	Scheduler kernel.Scheduler
	Biomass   biology.BiomassOptions
}

// Variant is a named, fixed ordering of unit builders.
type Variant struct {
	Tag      string
	Units    []UnitBuilder
	Biomass  biology.BiomassOptions
	Describe string
}

var variants = map[string]Variant{}

func register(v Variant) {
	if _, dup := variants[v.Tag]; dup {
		panic(fmt.Sprintf("duplicate model variant %q", v.Tag))
	}
	variants[v.Tag] = v
}

// Variants lists the registered variant tags, sorted.
func Variants() []string {
	tags := make([]string, 0, len(variants))
	for tag := range variants {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Model is a configuration bound to a variant's kernel, ready to run.
type Model struct {
	cfg    *config.Configuration
	kernel *kernel.Kernel
	state  *state.State
}

// FromConfiguration builds the model for the given variant tag. The
// configuration's forcing settings decide chunking and parallelism for
// every unit.
func FromConfiguration(cfg *config.Configuration, tag string) (*Model, error) {
	v, ok := variants[tag]
	if !ok {
		return nil, fmt.Errorf("unknown model variant %q (have %v)", tag, Variants())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scheme, err := biology.ParseScheme(cfg.Kernel.Scheme)
	if err != nil {
		return nil, err
	}
	var scheduler kernel.Scheduler = kernel.Sync{}
	if cfg.Forcing.Parallel {
		scheduler = kernel.Pool{Workers: cfg.Forcing.Workers}
	}
	opts := Options{
		Chunks:    cfg.Forcing.Chunk,
		Parallel:  cfg.Forcing.Parallel,
		Scheduler: scheduler,
		Biomass:   biology.BiomassOptions{Scheme: scheme, BevertonHolt: v.Biomass.BevertonHolt},
	}

	units := make([]kernel.Unit, 0, len(v.Units))
	for _, build := range v.Units {
		u, err := build(opts)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	k, err := kernel.New(units...)
	if err != nil {
		return nil, err
	}
	st, err := cfg.State()
	if err != nil {
		return nil, err
	}
	return &Model{cfg: cfg, kernel: k, state: st}, nil
}

// Run executes the kernel over the configuration's state and returns the
// final state.
func (m *Model) Run() (*state.State, error) {
	return m.kernel.Run(m.state)
}

// Template returns the state extended with every unit's output placeholder,
// without running any transform. Used to preview shapes and memory cost.
func (m *Model) Template() (*state.State, error) {
	return m.kernel.Template(m.state)
}

// State returns the derived initial state.
func (m *Model) State() *state.State { return m.state }

// Kernel exposes the assembled kernel, mainly for inspection in tests.
func (m *Model) Kernel() *kernel.Kernel { return m.kernel }

// Configuration returns the bound configuration.
func (m *Model) Configuration() *config.Configuration { return m.cfg }
