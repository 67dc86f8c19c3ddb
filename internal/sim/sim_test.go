package sim

import (
	"math"
	"testing"

	"pelagos/internal/biology"
	"pelagos/internal/config"
	"pelagos/internal/coords"
)

func testConfiguration(t *testing.T, parallel bool) *config.Configuration {
	t.Helper()
	grid := config.GridSpec{
		Times:      5,
		Latitudes:  config.AxisSpec{Start: -1, Step: 1, Count: 3},
		Longitudes: config.AxisSpec{Start: 0, Step: 1, Count: 3},
		Layers:     []float64{0, 200},
	}
	forcing, err := config.SyntheticForcing(grid,
		config.FieldSpec{Surface: 18, Gradient: -0.04},
		config.FieldSpec{Surface: 8.1, Gradient: -0.001},
		100, 0.5, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	forcing.Parallel = parallel
	if parallel {
		forcing.Workers = 2
		forcing.Chunk = map[coords.Axis]int{coords.Y: 2}
	}

	group := config.FunctionalGroupUnit{
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
	}
	cfg, err := config.New(forcing, []config.FunctionalGroupUnit{group},
		[]float64{10, 20, 30}, config.KernelParameter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return cfg
}

func TestVariantsRegistered(t *testing.T) {
	tags := Variants()
	found := map[string]bool{}
	for _, tag := range tags {
		found[tag] = true
	}
	if !found[Acidity] || !found[AcidityBed] || !found[AcidityBedBH] {
		t.Fatalf("registered variants %v, want %s, %s and %s", tags, Acidity, AcidityBed, AcidityBedBH)
	}
}

func TestAcidityVariantOmitsSurvivalDiscount(t *testing.T) {
	cfg := testConfiguration(t, false)
	plain, err := FromConfiguration(cfg, Acidity)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	discounted, err := FromConfiguration(cfg, AcidityBed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pf, err := plain.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	df, err := discounted.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := pf.Get(biology.SurvivalRate); ok {
		t.Fatal("acidity variant must not compute a survival rate")
	}
	pb, _ := pf.Get(biology.Biomass)
	db, _ := df.Get(biology.Biomass)
	pv, _ := pb.At(0, 4, 1, 1)
	dv, err := db.At(0, 4, 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// the survival sigmoid is strictly below one, so discounting the
	// recruits must lose biomass
	if !(dv < pv) {
		t.Fatalf("survival discounting did not lower biomass: %v vs %v", dv, pv)
	}
}

func TestFromConfigurationUnknownVariant(t *testing.T) {
	if _, err := FromConfiguration(testConfiguration(t, false), "no-such-model"); err == nil {
		t.Fatal("expected unknown variant error")
	}
}

func TestRunProducesBiomass(t *testing.T) {
	model, err := FromConfiguration(testConfiguration(t, false), AcidityBed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	final, err := model.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	biomass, ok := final.Get(biology.Biomass)
	if !ok {
		t.Fatal("final state has no biomass")
	}
	dims := biomass.Dims()
	want := []coords.Axis{coords.FunctionalGroup, coords.Time, coords.Y, coords.X}
	for i := range want {
		if dims[i] != want[i] {
			t.Fatalf("biomass dims %v, want %v", dims, want)
		}
	}
	if biomass.Attrs()["units"] != biology.BiomassUnits {
		t.Fatalf("biomass units %q, want %s", biomass.Attrs()["units"], biology.BiomassUnits)
	}
	prev := 0.0
	for ti := 0; ti < 5; ti++ {
		v, err := biomass.At(0, ti, 1, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.IsNaN(v) || v < 0 {
			t.Fatalf("biomass at t=%d is %v", ti, v)
		}
		if v <= prev {
			t.Fatalf("biomass not accumulating at t=%d: %v <= %v", ti, v, prev)
		}
		prev = v
	}

	// intermediate pipeline fields are freed
	for _, name := range []string{
		biology.GlobalMask, biology.Temperature, biology.DayLength,
		biology.MinTemperature, biology.MaskTemperature, biology.Mortality,
		biology.Recruited, biology.SurvivalRate, biology.PPByFGroup,
	} {
		if final.Has(name) {
			t.Fatalf("field %s must be removed from the final state", name)
		}
	}
	// group parameters survive for downstream selection
	if !final.Has(biology.DayLayer) || !final.Has(biology.NightLayer) {
		t.Fatal("group layer parameters must stay in the final state")
	}
}

func TestParallelRunMatchesSequential(t *testing.T) {
	seq, err := FromConfiguration(testConfiguration(t, false), AcidityBed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	par, err := FromConfiguration(testConfiguration(t, true), AcidityBed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sf, err := seq.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pf, err := par.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sb, _ := sf.Get(biology.Biomass)
	pb, _ := pf.Get(biology.Biomass)
	for ti := 0; ti < 5; ti++ {
		for y := 0; y < 3; y++ {
			for x := 0; x < 3; x++ {
				sv, err := sb.At(0, ti, y, x)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				pv, err := pb.At(0, ti, y, x)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if sv != pv {
					t.Fatalf("parallel biomass differs at (%d,%d,%d): %v vs %v", ti, y, x, sv, pv)
				}
			}
		}
	}
}

func TestBevertonHoltVariantDampens(t *testing.T) {
	cfg := testConfiguration(t, false)
	plain, err := FromConfiguration(cfg, AcidityBed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	damped, err := FromConfiguration(cfg, AcidityBedBH)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pf, err := plain.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	df, err := damped.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pb, _ := pf.Get(biology.Biomass)
	db, _ := df.Get(biology.Biomass)
	pv, _ := pb.At(0, 4, 1, 1)
	dv, err := db.At(0, 4, 1, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !(dv < pv) {
		t.Fatalf("density dependence did not damp biomass: %v vs %v", dv, pv)
	}
}

func TestTemplatePreview(t *testing.T) {
	model, err := FromConfiguration(testConfiguration(t, false), AcidityBed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	preview, err := model.Template()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	biomass, ok := preview.Get(biology.Biomass)
	if !ok {
		t.Fatal("preview has no biomass placeholder")
	}
	shape := biomass.Shape()
	want := []int{1, 5, 3, 3}
	for i := range want {
		if shape[i] != want[i] {
			t.Fatalf("biomass placeholder shape %v, want %v", shape, want)
		}
	}
}
