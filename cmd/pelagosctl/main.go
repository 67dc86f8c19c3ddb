package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"pelagos/internal/config"
	"pelagos/internal/cost"
	"pelagos/internal/opt"
	"pelagos/internal/sim"
	"pelagos/internal/storage"
	pelagosapi "pelagos/pkg/pelagos"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "variants":
		return runVariants(ctx, args[1:])
	case "run":
		return runSimulate(ctx, args[1:])
	case "estimate":
		return runEstimate(ctx, args[1:])
	case "optimize":
		return runOptimize(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "logbook":
		return runLogbook(ctx, args[1:])
	case "best":
		return runBest(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: pelagosctl <init|variants|run|estimate|optimize|runs|logbook|best> [flags]", msg)
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "pelagos.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := pelagosapi.New(pelagosapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Init(ctx); err != nil {
		return err
	}
	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runVariants(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("variants", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, tag := range sim.Variants() {
		fmt.Println(tag)
	}
	return nil
}

func runSimulate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "model configuration YAML path")
	variant := fs.String("variant", sim.AcidityBed, "model variant tag")
	asJSON := fs.Bool("json", false, "emit JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return usageError("run: -config is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	client, err := pelagosapi.New(pelagosapi.Options{})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, _, err := client.Simulate(ctx, pelagosapi.SimulateRequest{Config: cfg, Variant: *variant})
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(summary)
	}
	fmt.Printf("variant=%s fields=%d\n", summary.Variant, len(summary.Fields))
	for g, total := range summary.TotalBiomass {
		fmt.Printf("  %s: final biomass %.4f\n", cfg.FunctionalGroups[g].Name, total)
	}
	return nil
}

func runEstimate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("estimate", flag.ContinueOnError)
	configPath := fs.String("config", "", "model configuration YAML path")
	variant := fs.String("variant", sim.AcidityBed, "model variant tag")
	asJSON := fs.Bool("json", false, "emit JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return usageError("estimate: -config is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	client, err := pelagosapi.New(pelagosapi.Options{})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Estimate(ctx, pelagosapi.SimulateRequest{Config: cfg, Variant: *variant})
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(summary)
	}
	fmt.Printf("variant=%s cells=%d\n", summary.Variant, summary.Cells)
	for _, f := range summary.Fields {
		fmt.Printf("  %s %v %v\n", f.Name, f.Dims, f.Shape)
	}
	return nil
}

func runOptimize(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ContinueOnError)
	configPath := fs.String("config", "", "model configuration YAML path")
	variant := fs.String("variant", sim.AcidityBed, "model variant tag")
	params := fs.String("params", "", "search space: group/parameter/low/high, comma separated")
	population := fs.Int("pop", 24, "population size")
	generations := fs.Int("gens", 10, "generation count")
	seed := fs.Int64("seed", 1, "rng seed")
	workers := fs.Int("workers", 0, "parallel evaluation workers (0 = sequential)")
	initializer := fs.String("init", "uniform", "population initializer: uniform|sobol")
	metricName := fs.String("metric", "nrmse", "cost metric: rmse|nrmse")
	processorName := fs.String("processor", "timeseries", "extraction: timeseries|log-timeseries")
	interval := fs.Float64("interval", 0, "resampling interval in days (0 = exact times)")
	storeKind := fs.String("store", storage.DefaultStoreKind, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "pelagos.db", "sqlite database path")
	asJSON := fs.Bool("json", false, "emit JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return usageError("optimize: -config is required")
	}
	if *params == "" {
		return usageError("optimize: -params is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	space, err := parseSearchSpace(*params)
	if err != nil {
		return err
	}
	var metric cost.Metric
	switch *metricName {
	case "rmse":
		metric = cost.RMSE{}
	case "nrmse":
		metric = cost.NRMSEStd{}
	default:
		return usageError(fmt.Sprintf("optimize: unknown metric %q", *metricName))
	}
	var processor cost.Processor
	switch *processorName {
	case "timeseries":
		processor = cost.TimeSeries{}
	case "log-timeseries":
		processor = cost.LogTimeSeries{}
	default:
		return usageError(fmt.Sprintf("optimize: unknown processor %q", *processorName))
	}

	client, err := pelagosapi.New(pelagosapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	// Twin experiment: the reference run of the base configuration
	// provides the observation the calibration has to recover.
	costFn, err := twinCostFunction(ctx, client, cfg, *variant, processor, metric, *interval)
	if err != nil {
		return err
	}

	summary, err := client.Optimize(ctx, pelagosapi.OptimizeRequest{
		Base:           cfg,
		Variant:        *variant,
		Space:          space,
		Cost:           costFn,
		PopulationSize: *population,
		Generations:    *generations,
		Seed:           *seed,
		Workers:        *workers,
		Initializer:    *initializer,
	})
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(summary)
	}
	fmt.Printf("run=%s best=%.6f evaluated=%d\n", summary.RunID, summary.BestCost, summary.Evaluated)
	for i, g := range space.Genes() {
		fmt.Printf("  %s/%s = %.6f\n", g.Group, g.Parameter, summary.BestGenes[i])
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "pelagos.db", "sqlite database path")
	asJSON := fs.Bool("json", false, "emit JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := pelagosapi.New(pelagosapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	runs, err := client.Runs(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(runs)
	}
	for _, r := range runs {
		fmt.Printf("%s %s variant=%s gens=%d pop=%d best=%.6f\n",
			r.ID, r.CreatedAt.Format("2006-01-02T15:04:05Z"), r.Variant, r.Generations, r.PopulationSize, r.BestCost)
	}
	return nil
}

func runLogbook(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("logbook", flag.ContinueOnError)
	runID := fs.String("run-id", "", "calibration run id")
	category := fs.String("category", opt.CategoryPopulation, "record category: population|hall-of-fame")
	storeKind := fs.String("store", storage.DefaultStoreKind, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "pelagos.db", "sqlite database path")
	asJSON := fs.Bool("json", false, "emit JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("logbook: -run-id is required")
	}

	client, err := pelagosapi.New(pelagosapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	records, err := client.Logbook(ctx, *runID)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(records)
	}
	for _, r := range records {
		if r.Category != *category {
			continue
		}
		fmt.Printf("gen=%d n=%d min=%.6f mean=%.6f max=%.6f std=%.6f\n",
			r.Generation, r.N, r.Min, r.Mean, r.Max, r.Std)
	}
	return nil
}

func runBest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("best", flag.ContinueOnError)
	runID := fs.String("run-id", "", "calibration run id")
	storeKind := fs.String("store", storage.DefaultStoreKind, "store backend: memory|sqlite")
	dbPath := fs.String("db-path", "pelagos.db", "sqlite database path")
	asJSON := fs.Bool("json", false, "emit JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return usageError("best: -run-id is required")
	}

	client, err := pelagosapi.New(pelagosapi.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	entries, err := client.Best(ctx, *runID)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(entries)
	}
	for _, e := range entries {
		fmt.Printf("rank=%d cost=%.6f genes=%v\n", e.Rank, e.Cost, e.Genes)
	}
	return nil
}

// parseSearchSpace parses "group/parameter/low/high" entries into the
// search space, grouping entries that share a group name.
func parseSearchSpace(spec string) (opt.FunctionalGroupSet, error) {
	byGroup := map[string][]opt.Parameter{}
	var order []string
	for _, entry := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(entry), "/")
		if len(parts) != 4 {
			return opt.FunctionalGroupSet{}, fmt.Errorf("bad search space entry %q (want group/parameter/low/high)", entry)
		}
		low, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return opt.FunctionalGroupSet{}, fmt.Errorf("bad lower bound in %q: %w", entry, err)
		}
		high, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return opt.FunctionalGroupSet{}, fmt.Errorf("bad upper bound in %q: %w", entry, err)
		}
		if _, seen := byGroup[parts[0]]; !seen {
			order = append(order, parts[0])
		}
		byGroup[parts[0]] = append(byGroup[parts[0]], opt.Parameter{Name: parts[1], Low: low, High: high})
	}
	groups := make([]opt.FunctionalGroup, 0, len(order))
	for _, name := range order {
		groups = append(groups, opt.FunctionalGroup{Name: name, Parameters: byGroup[name]})
	}
	return opt.NewFunctionalGroupSet(groups...)
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
