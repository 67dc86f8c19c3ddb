package pelagos

import (
	"context"
	"testing"

	"pelagos/internal/biology"
	"pelagos/internal/config"
	"pelagos/internal/coords"
	"pelagos/internal/cost"
	"pelagos/internal/obs"
	"pelagos/internal/opt"
	"pelagos/internal/sim"
	"pelagos/internal/state"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := client.Init(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testConfiguration(t *testing.T) *config.Configuration {
	t.Helper()
	grid := config.GridSpec{
		Times:      4,
		Latitudes:  config.AxisSpec{Start: 44, Step: 1, Count: 2},
		Longitudes: config.AxisSpec{Start: -125, Step: 1, Count: 2},
		Layers:     []float64{0, 200},
	}
	forcing, err := config.SyntheticForcing(grid,
		config.FieldSpec{Surface: 18, Gradient: -0.04},
		config.FieldSpec{Surface: 8.1, Gradient: -0.001},
		100, 0.5, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := config.New(forcing, []config.FunctionalGroupUnit{{
		Name:            "pteropods",
		EnergyTransfert: 0.1668,
		Migratory:       config.MigratoryType{DayLayer: 200, NightLayer: 0},
		Functional: config.FunctionalType{
			Lambda0:                      0.01,
			GammaLambdaTemperature:       0.05,
			GammaLambdaAcidity:           -0.1,
			Tr0:                          20,
			GammaTr:                      -0.1,
			SurvivalRate0:                1,
			GammaSurvivalRateTemperature: 0.1,
			GammaSurvivalRateAcidity:     0.2,
			DensityDependence:            0.01,
		},
	}}, []float64{10, 20}, config.KernelParameter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return cfg
}

func TestSimulate(t *testing.T) {
	client := testClient(t)
	summary, final, err := client.Simulate(context.Background(), SimulateRequest{Config: testConfiguration(t)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Variant != sim.AcidityBed {
		t.Fatalf("variant %q, want default %q", summary.Variant, sim.AcidityBed)
	}
	if len(summary.TotalBiomass) != 1 || summary.TotalBiomass[0] <= 0 {
		t.Fatalf("total biomass %v, want one positive group total", summary.TotalBiomass)
	}
	if final == nil || !final.Has(biology.Biomass) {
		t.Fatal("final state must carry the biomass field")
	}
	found := false
	for _, f := range summary.Fields {
		if f.Name == biology.Biomass {
			found = true
			if f.Cells != 1*4*2*2 {
				t.Fatalf("biomass cells %d, want 16", f.Cells)
			}
		}
	}
	if !found {
		t.Fatal("summary is missing the biomass field")
	}
}

func TestSimulateRequiresConfig(t *testing.T) {
	client := testClient(t)
	if _, _, err := client.Simulate(context.Background(), SimulateRequest{}); err == nil {
		t.Fatal("expected error for missing configuration")
	}
}

func TestEstimate(t *testing.T) {
	client := testClient(t)
	summary, err := client.Estimate(context.Background(), SimulateRequest{Config: testConfiguration(t)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Cells <= 0 {
		t.Fatalf("estimated cells %d, want > 0", summary.Cells)
	}
	found := false
	for _, f := range summary.Fields {
		if f.Name == biology.Biomass {
			found = true
		}
	}
	if !found {
		t.Fatal("estimate is missing the biomass placeholder")
	}
}

// twinObservation reproduces the base run's own biomass at the first
// station, so the true parameters score zero.
func twinObservation(t *testing.T, client *Client, cfg *config.Configuration) obs.Observation {
	t.Helper()
	_, final, err := client.Simulate(context.Background(), SimulateRequest{Config: cfg})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	biomass, _ := final.Get(biology.Biomass)
	tc, _ := biomass.Coord(coords.Time)
	values := make([]float64, tc.Size())
	for ti := range values {
		v, err := biomass.At(0, ti, 0, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		values[ti] = v
	}
	yc, _ := coords.NewCoordinate(coords.Y, []float64{44}, nil)
	xc, _ := coords.NewCoordinate(coords.X, []float64{-125}, nil)
	data, err := state.NewArrayFromValues("twin", []coords.Coordinate{tc, yc, xc}, values,
		state.Attrs{"units": biology.BiomassUnits})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o, err := obs.NewTimeSeries("twin", data, obs.Day, 200, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return o
}

func TestOptimizeAndReadBack(t *testing.T) {
	client := testClient(t)
	cfg := testConfiguration(t)
	o := twinObservation(t, client, cfg)
	fn, err := cost.New(cost.Term{Observation: o, Processor: cost.TimeSeries{}, Metric: cost.RMSE{}, Weight: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	space, err := opt.NewFunctionalGroupSet(opt.FunctionalGroup{Name: "pteropods", Parameters: []opt.Parameter{
		{Name: biology.EnergyTransfert, Low: 0.05, High: 0.5},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary, err := client.Optimize(context.Background(), OptimizeRequest{
		Base:           cfg,
		Space:          space,
		Cost:           fn,
		PopulationSize: 6,
		Generations:    3,
		Seed:           1,
		HallOfFameSize: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.RunID == "" {
		t.Fatal("optimize must mint a run id")
	}
	if summary.Evaluated < 6 {
		t.Fatalf("evaluated %d individuals, want at least the first generation", summary.Evaluated)
	}
	if len(summary.BestGenes) != 1 {
		t.Fatalf("best genes %v, want one dimension", summary.BestGenes)
	}
	if summary.HallOfFame != 3 {
		t.Fatalf("hall of fame size %d, want 3", summary.HallOfFame)
	}

	runs, err := client.Runs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != summary.RunID {
		t.Fatalf("runs %+v, want the optimized run", runs)
	}
	records, err := client.Logbook(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("got %d logbook records, want 2 per generation", len(records))
	}
	best, err := client.Best(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(best) != 3 || best[0].Cost != summary.BestCost {
		t.Fatalf("hall of fame %+v does not lead with the best cost", best)
	}
	if _, err := client.Logbook(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestOptimizeRejectsUnknownInitializer(t *testing.T) {
	client := testClient(t)
	cfg := testConfiguration(t)
	o := twinObservation(t, client, cfg)
	fn, err := cost.New(cost.Term{Observation: o, Processor: cost.TimeSeries{}, Metric: cost.RMSE{}, Weight: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	space, err := opt.NewFunctionalGroupSet(opt.FunctionalGroup{Name: "pteropods", Parameters: []opt.Parameter{
		{Name: biology.EnergyTransfert, Low: 0.05, High: 0.5},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = client.Optimize(context.Background(), OptimizeRequest{
		Base: cfg, Space: space, Cost: fn, Initializer: "latin-hypercube",
	})
	if err == nil {
		t.Fatal("expected error for unknown initializer")
	}
}
