package cost

import (
	"math"
	"testing"

	"pelagos/internal/biology"
	"pelagos/internal/coords"
	"pelagos/internal/obs"
	"pelagos/internal/state"
)

func approx(t *testing.T, got, want, tol float64, what string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %v, want %v", what, got, want)
	}
}

// finalState builds a post-run state: two functional groups at day layers
// 200 and 0, biomass 10*(g+1)+t constant over the grid.
func finalState(t *testing.T) *state.State {
	t.Helper()
	fg, _ := coords.IndexCoordinate(coords.FunctionalGroup, 2)
	tc, _ := coords.NewCoordinate(coords.Time, []float64{0, 1, 2, 3}, nil)
	yc, _ := coords.NewCoordinate(coords.Y, []float64{44, 45}, nil)
	xc, _ := coords.NewCoordinate(coords.X, []float64{-125, -124}, nil)

	values := make([]float64, 0, 2*4*2*2)
	for g := 0; g < 2; g++ {
		for ti := 0; ti < 4; ti++ {
			for y := 0; y < 2; y++ {
				for x := 0; x < 2; x++ {
					values = append(values, float64(10*(g+1)+ti))
				}
			}
		}
	}
	biomass, err := state.NewArrayFromValues(biology.Biomass,
		[]coords.Coordinate{fg, tc, yc, xc}, values, state.Attrs{"units": biology.BiomassUnits})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dayLayers, err := state.NewGroupValues(biology.DayLayer, fg, []float64{200, 0}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nightLayers, err := state.NewGroupValues(biology.NightLayer, fg, []float64{0, 0}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st, err := state.New(biomass, dayLayers, nightLayers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return st
}

func stationObs(t *testing.T, values []float64, units string, cycle obs.Cycle, layer, interval float64) obs.Observation {
	t.Helper()
	times := make([]float64, len(values))
	for i := range times {
		times[i] = float64(i)
	}
	tc, _ := coords.NewCoordinate(coords.Time, times, nil)
	yc, _ := coords.NewCoordinate(coords.Y, []float64{45.2}, nil)
	xc, _ := coords.NewCoordinate(coords.X, []float64{-124.9}, nil)
	var attrs state.Attrs
	if units != "" {
		attrs = state.Attrs{"units": units}
	}
	data, err := state.NewArrayFromValues("measured", []coords.Coordinate{tc, yc, xc}, values, attrs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o, err := obs.NewTimeSeries("station", data, cycle, layer, interval)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return o
}

func TestRMSE(t *testing.T) {
	score, err := RMSE{}.Score([]float64{1, 2, 3}, []float64{1, 2, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 0 {
		t.Fatalf("perfect prediction scored %v, want 0", score)
	}
	score, err = RMSE{}.Score([]float64{0, 0}, []float64{3, 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	approx(t, score, math.Sqrt(12.5), 1e-12, "rmse")

	if _, err := (RMSE{}).Score(nil, nil); err == nil {
		t.Fatal("expected error for empty pairs")
	}
	if _, err := (RMSE{}).Score([]float64{1}, []float64{1, 2}); err == nil {
		t.Fatal("expected error for length mismatch")
	}
	if _, err := (RMSE{}).Score([]float64{math.NaN()}, []float64{1}); err == nil {
		t.Fatal("expected error for NaN pair")
	}
}

func TestNRMSEStd(t *testing.T) {
	// observations {0, 2}: population std 1, so NRMSE equals RMSE
	rmse, err := RMSE{}.Score([]float64{1, 1}, []float64{0, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nrmse, err := NRMSEStd{}.Score([]float64{1, 1}, []float64{0, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	approx(t, nrmse, rmse, 1e-12, "nrmse with unit std")

	// observations {1, 2, 3, 4}: population std sqrt(1.25)
	nrmse, err = NRMSEStd{}.Score([]float64{2, 2, 2, 2}, []float64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	approx(t, nrmse, math.Sqrt(1.5)/math.Sqrt(1.25), 1e-12, "nrmse with non-unit std")

	if _, err := (NRMSEStd{}).Score([]float64{1, 2}, []float64{5, 5}); err == nil {
		t.Fatal("expected error for zero-variance observations")
	}
}

func TestUnitScale(t *testing.T) {
	s, err := UnitScale("gC/m2", "mgC/m2")
	if err != nil || s != 1e3 {
		t.Fatalf("gC->mgC scale = (%v, %v), want 1000", s, err)
	}
	s, err = UnitScale("ugC/m2", "mgC/m2")
	if err != nil || s != 1e-3 {
		t.Fatalf("ugC->mgC scale = (%v, %v), want 0.001", s, err)
	}
	if _, err := UnitScale("molC/m2", "mgC/m2"); err == nil {
		t.Fatal("expected error for unsupported unit")
	}
}

func TestTimeSeriesExtractSelectsDayGroup(t *testing.T) {
	st := finalState(t)
	// day cycle at layer 200 matches group 0 only: biomass 10+t
	o := stationObs(t, []float64{10, 11, 12, 13}, "", obs.Day, 200, 0)
	predicted, observed, err := TimeSeries{}.Extract(st, o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(predicted) != 4 {
		t.Fatalf("got %d pairs, want 4", len(predicted))
	}
	for i := range predicted {
		approx(t, predicted[i], float64(10+i), 1e-12, "predicted")
		approx(t, observed[i], float64(10+i), 1e-12, "observed")
	}
}

func TestTimeSeriesExtractSumsNightGroups(t *testing.T) {
	st := finalState(t)
	// both groups sit at layer 0 at night: sum is 10+t + 20+t
	o := stationObs(t, []float64{30, 32, 34, 36}, "", obs.Night, 0, 0)
	predicted, _, err := TimeSeries{}.Extract(st, o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range predicted {
		approx(t, predicted[i], float64(30+2*i), 1e-12, "summed prediction")
	}
}

func TestTimeSeriesExtractScalesUnits(t *testing.T) {
	st := finalState(t)
	o := stationObs(t, []float64{0.01, 0.011, 0.012, 0.013}, "gC/m2", obs.Day, 200, 0)
	_, observed, err := TimeSeries{}.Extract(st, o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	approx(t, observed[0], 10, 1e-9, "scaled observation")
}

func TestTimeSeriesExtractSkipsNaNObservations(t *testing.T) {
	st := finalState(t)
	o := stationObs(t, []float64{10, math.NaN(), 12, math.NaN()}, "", obs.Day, 200, 0)
	predicted, observed, err := TimeSeries{}.Extract(st, o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(predicted) != 2 || len(observed) != 2 {
		t.Fatalf("got %d pairs, want 2", len(predicted))
	}
	approx(t, predicted[1], 12, 1e-12, "prediction after NaN skip")
}

func TestTimeSeriesExtractRejectsUnknownTime(t *testing.T) {
	st := finalState(t)
	tc, _ := coords.NewCoordinate(coords.Time, []float64{0.5}, nil)
	yc, _ := coords.NewCoordinate(coords.Y, []float64{45}, nil)
	xc, _ := coords.NewCoordinate(coords.X, []float64{-125}, nil)
	data, err := state.NewArrayFromValues("measured", []coords.Coordinate{tc, yc, xc}, []float64{1}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o, err := obs.NewTimeSeries("offgrid", data, obs.Day, 200, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := (TimeSeries{}).Extract(st, o); err == nil {
		t.Fatal("expected error for a time off the model axis")
	}
}

func TestTimeSeriesExtractNoMatchingGroup(t *testing.T) {
	st := finalState(t)
	o := stationObs(t, []float64{1, 2, 3, 4}, "", obs.Day, 550, 0)
	if _, _, err := (TimeSeries{}).Extract(st, o); err == nil {
		t.Fatal("expected error when no group occupies the layer")
	}
}

func TestTimeSeriesResampling(t *testing.T) {
	st := finalState(t)
	// interval 2 bins times {0,1} and {2,3}: predictions 10,11,12,13 -> 10.5, 12.5
	o := stationObs(t, []float64{1, 2, 3, 4}, "", obs.Day, 200, 2)
	predicted, observed, err := TimeSeries{}.Extract(st, o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(predicted) != 2 {
		t.Fatalf("got %d bins, want 2", len(predicted))
	}
	approx(t, predicted[0], 10.5, 1e-12, "bin 0 prediction")
	approx(t, predicted[1], 12.5, 1e-12, "bin 1 prediction")
	approx(t, observed[0], 1.5, 1e-12, "bin 0 observation")
	approx(t, observed[1], 3.5, 1e-12, "bin 1 observation")
}

func TestLogTimeSeries(t *testing.T) {
	st := finalState(t)
	o := stationObs(t, []float64{10, 11, 12, 13}, "", obs.Day, 200, 0)
	predicted, observed, err := LogTimeSeries{}.Extract(st, o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	approx(t, predicted[0], math.Log10(11), 1e-12, "log prediction")
	approx(t, observed[3], math.Log10(14), 1e-12, "log observation")
}

func TestSpatialExtractNearestNeighbor(t *testing.T) {
	st := finalState(t)
	tc, _ := coords.NewCoordinate(coords.Time, []float64{1.2}, nil)
	yc, _ := coords.NewCoordinate(coords.Y, []float64{44.1, 44.9}, nil)
	xc, _ := coords.NewCoordinate(coords.X, []float64{-124.8}, nil)
	zc, _ := coords.NewCoordinate(coords.Z, []float64{0, 200}, nil)
	values := []float64{11, math.NaN(), 11, 99}
	data, err := state.NewArrayFromValues("survey", []coords.Coordinate{tc, yc, xc, zc}, values, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o, err := obs.NewSpatial("survey", data, obs.Day, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	predicted, observed, err := Spatial{}.Extract(st, o)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// z=1 picks the 200m layer: NaN at y=0 is skipped, 99 at y=1 pairs up
	if len(predicted) != 1 {
		t.Fatalf("got %d pairs, want 1 after the NaN skip", len(predicted))
	}
	// nearest model time to 1.2 is t=1, day group at 200m has biomass 11
	approx(t, predicted[0], 11, 1e-12, "spatial prediction")
	approx(t, observed[0], 99, 1e-12, "spatial observation")
}

func TestSpatialExtractLayerMustBeOnObsAxis(t *testing.T) {
	st := finalState(t)
	tc, _ := coords.NewCoordinate(coords.Time, []float64{0}, nil)
	yc, _ := coords.NewCoordinate(coords.Y, []float64{45}, nil)
	xc, _ := coords.NewCoordinate(coords.X, []float64{-125}, nil)
	zc, _ := coords.NewCoordinate(coords.Z, []float64{0, 500}, nil)
	data, err := state.NewArrayFromValues("survey", []coords.Coordinate{tc, yc, xc, zc}, []float64{1, 2}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	o, err := obs.NewSpatial("survey", data, obs.Day, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := (Spatial{}).Extract(st, o); err == nil {
		t.Fatal("expected error for a layer missing from the observation axis")
	}
}

func TestFunctionEvaluateWeightedSum(t *testing.T) {
	st := finalState(t)
	perfect := stationObs(t, []float64{10, 11, 12, 13}, "", obs.Day, 200, 0)
	offByOne := stationObs(t, []float64{11, 12, 13, 14}, "", obs.Day, 200, 0)

	f, err := New(
		Term{Observation: perfect, Processor: TimeSeries{}, Metric: RMSE{}, Weight: 1},
		Term{Observation: offByOne, Processor: TimeSeries{}, Metric: RMSE{}, Weight: 2},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	total, err := f.Evaluate(st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	approx(t, total, 2, 1e-12, "weighted total")
}

func TestFunctionScoresPerObservation(t *testing.T) {
	st := finalState(t)
	perfect := stationObs(t, []float64{10, 11, 12, 13}, "", obs.Day, 200, 0)
	f, err := New(Term{Observation: perfect, Processor: TimeSeries{}, Metric: RMSE{}, Weight: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scores, err := f.Scores(st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scores["station"] != 0 {
		t.Fatalf("score %v, want 0", scores["station"])
	}
}

func TestNewRejectsBadTerms(t *testing.T) {
	o := stationObs(t, []float64{1}, "", obs.Day, 200, 0)
	if _, err := New(); err == nil {
		t.Fatal("expected error for no terms")
	}
	if _, err := New(Term{Observation: o, Metric: RMSE{}, Weight: 1}); err == nil {
		t.Fatal("expected error for nil processor")
	}
	if _, err := New(Term{Observation: o, Processor: TimeSeries{}, Weight: 1}); err == nil {
		t.Fatal("expected error for nil metric")
	}
	if _, err := New(Term{Observation: o, Processor: TimeSeries{}, Metric: RMSE{}, Weight: 0}); err == nil {
		t.Fatal("expected error for zero weight")
	}
}
