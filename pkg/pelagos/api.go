// Package pelagos is the public entry point: a Client that runs model
// simulations, calibrates parameters against observations and reads back
// persisted calibration artifacts.
package pelagos

import (
	"context"
	"fmt"
	"time"

	"pelagos/internal/biology"
	"pelagos/internal/config"
	"pelagos/internal/coords"
	"pelagos/internal/cost"
	"pelagos/internal/opt"
	"pelagos/internal/sim"
	"pelagos/internal/state"
	"pelagos/internal/storage"
)

const defaultDBPath = "pelagos.db"

type Options struct {
	StoreKind string
	DBPath    string
}

type Client struct {
	store storage.Store
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

type SimulateRequest struct {
	Config  *config.Configuration
	Variant string
}

// FieldSummary describes one field of a state.
type FieldSummary struct {
	Name  string   `json:"name"`
	Dims  []string `json:"dims"`
	Shape []int    `json:"shape"`
	Cells int      `json:"cells"`
}

type SimulateSummary struct {
	Variant      string         `json:"variant"`
	Fields       []FieldSummary `json:"fields"`
	TotalBiomass []float64      `json:"total_biomass"` // per functional group, final timestep
}

// Simulate runs the variant's kernel over the configuration and summarizes
// the final state.
func (c *Client) Simulate(_ context.Context, req SimulateRequest) (SimulateSummary, *state.State, error) {
	if req.Config == nil {
		return SimulateSummary{}, nil, fmt.Errorf("simulate: configuration is required")
	}
	variant := req.Variant
	if variant == "" {
		variant = sim.AcidityBed
	}
	model, err := sim.FromConfiguration(req.Config, variant)
	if err != nil {
		return SimulateSummary{}, nil, err
	}
	final, err := model.Run()
	if err != nil {
		return SimulateSummary{}, nil, err
	}

	summary := SimulateSummary{Variant: variant, Fields: summarizeFields(final)}
	summary.TotalBiomass, err = totalBiomass(final)
	if err != nil {
		return SimulateSummary{}, nil, err
	}
	return summary, final, nil
}

type EstimateSummary struct {
	Variant string         `json:"variant"`
	Fields  []FieldSummary `json:"fields"`
	Cells   int            `json:"cells"`
}

// Estimate previews the fields a run would produce, without computing any
// of them.
func (c *Client) Estimate(_ context.Context, req SimulateRequest) (EstimateSummary, error) {
	if req.Config == nil {
		return EstimateSummary{}, fmt.Errorf("estimate: configuration is required")
	}
	variant := req.Variant
	if variant == "" {
		variant = sim.AcidityBed
	}
	model, err := sim.FromConfiguration(req.Config, variant)
	if err != nil {
		return EstimateSummary{}, err
	}
	tpl, err := model.Template()
	if err != nil {
		return EstimateSummary{}, err
	}
	fields := summarizeFields(tpl)
	cells := 0
	for _, f := range fields {
		cells += f.Cells
	}
	return EstimateSummary{Variant: variant, Fields: fields, Cells: cells}, nil
}

type OptimizeRequest struct {
	Base    *config.Configuration
	Variant string
	Space   opt.FunctionalGroupSet
	Cost    *cost.Function

	PopulationSize int
	Generations    int
	Seed           int64
	Workers        int // 0 = sequential evaluation
	Initializer    string
	HallOfFameSize int
}

type OptimizeSummary struct {
	RunID      string       `json:"run_id"`
	BestCost   float64      `json:"best_cost"`
	BestGenes  []float64    `json:"best_genes"`
	Evaluated  int          `json:"evaluated"`
	Records    []opt.Record `json:"records"`
	HallOfFame int          `json:"hall_of_fame"`
}

// Optimize calibrates the search space against the cost function and
// persists the run, its logbook and its hall of fame.
func (c *Client) Optimize(ctx context.Context, req OptimizeRequest) (OptimizeSummary, error) {
	if req.Base == nil {
		return OptimizeSummary{}, fmt.Errorf("optimize: base configuration is required")
	}
	if req.Cost == nil {
		return OptimizeSummary{}, fmt.Errorf("optimize: cost function is required")
	}
	variant := req.Variant
	if variant == "" {
		variant = sim.AcidityBed
	}
	if req.PopulationSize <= 0 {
		req.PopulationSize = 24
	}
	if req.Generations <= 0 {
		req.Generations = 10
	}
	if req.HallOfFameSize <= 0 {
		req.HallOfFameSize = 5
	}

	var initializer opt.Initializer
	switch req.Initializer {
	case "", "uniform":
		initializer = opt.Uniform{}
	case "sobol":
		initializer = opt.Sobol{}
	default:
		return OptimizeSummary{}, fmt.Errorf("optimize: unknown initializer %q", req.Initializer)
	}
	var strategy opt.Strategy = opt.Sequential{}
	if req.Workers > 0 {
		strategy = opt.Parallel{Workers: req.Workers}
	}

	ga, err := opt.New(opt.Config{
		Set:            req.Space,
		PopulationSize: req.PopulationSize,
		Generations:    req.Generations,
		CrossoverRate:  0.6,
		MutationRate:   0.3,
		TournamentSize: 3,
		BlendAlpha:     0.5,
		MutationSigma:  0.1,
		HallOfFameSize: req.HallOfFameSize,
		Seed:           req.Seed,
		Initializer:    initializer,
		Strategy:       strategy,
	})
	if err != nil {
		return OptimizeSummary{}, err
	}

	evaluator := opt.Evaluator{
		Set:       req.Space,
		Generator: opt.ParameterGenerator{Base: req.Base},
		Variant:   variant,
		Cost:      req.Cost,
	}
	result, err := ga.Run(ctx, evaluator.Evaluate)
	if err != nil {
		return OptimizeSummary{}, err
	}

	runID := storage.NewRunID()
	run := storage.RunRecord{
		VersionedRecord: storage.Stamp(),
		ID:              runID,
		Variant:         variant,
		CreatedAt:       time.Now().UTC(),
		Seed:            req.Seed,
		Generations:     req.Generations,
		PopulationSize:  req.PopulationSize,
		Evaluated:       result.Evaluated,
		BestCost:        result.Best.Cost,
		BestGenes:       result.Best.Genes,
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return OptimizeSummary{}, err
	}
	if err := c.store.SaveLogbook(ctx, runID, result.Logbook.Records()); err != nil {
		return OptimizeSummary{}, err
	}
	entries := make([]storage.HallOfFameEntry, len(result.HallOfFame))
	for i, ind := range result.HallOfFame {
		entries[i] = storage.HallOfFameEntry{
			VersionedRecord: storage.Stamp(),
			Rank:            i + 1,
			Cost:            ind.Cost,
			Genes:           ind.Genes,
		}
	}
	if err := c.store.SaveHallOfFame(ctx, runID, entries); err != nil {
		return OptimizeSummary{}, err
	}

	return OptimizeSummary{
		RunID:      runID,
		BestCost:   result.Best.Cost,
		BestGenes:  result.Best.Genes,
		Evaluated:  result.Evaluated,
		Records:    result.Logbook.Records(),
		HallOfFame: len(entries),
	}, nil
}

// Runs lists persisted calibration runs in creation order.
func (c *Client) Runs(ctx context.Context) ([]storage.RunRecord, error) {
	return c.store.ListRuns(ctx)
}

// Logbook returns the per-generation statistics of one run.
func (c *Client) Logbook(ctx context.Context, runID string) ([]opt.Record, error) {
	records, ok, err := c.store.GetLogbook(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no logbook for run %s", runID)
	}
	return records, nil
}

// Best returns the hall of fame of one run, best first.
func (c *Client) Best(ctx context.Context, runID string) ([]storage.HallOfFameEntry, error) {
	entries, ok, err := c.store.GetHallOfFame(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no hall of fame for run %s", runID)
	}
	return entries, nil
}

func summarizeFields(st *state.State) []FieldSummary {
	var out []FieldSummary
	for _, name := range st.Names() {
		a, _ := st.Get(name)
		shape := a.Shape()
		cells := 1
		for _, n := range shape {
			cells *= n
		}
		dims := make([]string, 0, len(a.Dims()))
		for _, d := range a.Dims() {
			dims = append(dims, string(d))
		}
		out = append(out, FieldSummary{Name: name, Dims: dims, Shape: shape, Cells: cells})
	}
	return out
}

// totalBiomass sums the final-timestep biomass over the grid, per
// functional group.
func totalBiomass(st *state.State) ([]float64, error) {
	biomass, ok := st.Get(biology.Biomass)
	if !ok {
		return nil, fmt.Errorf("field %s is not in the state", biology.Biomass)
	}
	fg, _ := biomass.Coord(coords.FunctionalGroup)
	tc, _ := biomass.Coord(coords.Time)
	yc, _ := biomass.Coord(coords.Y)
	xc, _ := biomass.Coord(coords.X)
	last := tc.Size() - 1
	out := make([]float64, fg.Size())
	for g := 0; g < fg.Size(); g++ {
		for y := 0; y < yc.Size(); y++ {
			for x := 0; x < xc.Size(); x++ {
				v, err := biomass.At(g, last, y, x)
				if err != nil {
					return nil, err
				}
				out[g] += v
			}
		}
	}
	return out, nil
}
