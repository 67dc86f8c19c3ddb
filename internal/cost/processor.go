package cost

import (
	"fmt"
	"math"

	"pelagos/internal/biology"
	"pelagos/internal/coords"
	"pelagos/internal/obs"
	"pelagos/internal/state"
)

// Processor extracts aligned prediction/observation value pairs from a
// final model state and one observation.
type Processor interface {
	Name() string
	Extract(st *state.State, o obs.Observation) (predicted, observed []float64, err error)
}

// selectGroups picks the functional groups whose position during the
// observation's cycle matches the observed layer.
func selectGroups(st *state.State, cycle obs.Cycle, layer float64) ([]int, error) {
	field := biology.DayLayer
	if cycle == obs.Night {
		field = biology.NightLayer
	}
	layers, ok := st.Get(field)
	if !ok {
		return nil, fmt.Errorf("field %s is not in the state", field)
	}
	values, err := layers.Values()
	if err != nil {
		return nil, err
	}
	var groups []int
	for g, v := range values {
		if v == layer {
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("no functional group occupies layer %v during %s", layer, cycle)
	}
	return groups, nil
}

// observationScale converts the observation's units into the biomass units.
func observationScale(o obs.Observation) (float64, error) {
	units := o.Data.Attrs()["units"]
	if units == "" {
		return 1, nil
	}
	scale, err := UnitScale(units, biology.BiomassUnits)
	if err != nil {
		return 0, fmt.Errorf("observation %s: %w", o.Name, err)
	}
	return scale, nil
}

// TimeSeries compares the summed biomass of the matching groups at the
// observation's station against the observed series. Observation times must
// exist exactly on the model time axis; a positive Interval instead bins
// both series by that width and compares bin means.
type TimeSeries struct{}

func (TimeSeries) Name() string { return "timeseries" }

func (TimeSeries) Extract(st *state.State, o obs.Observation) ([]float64, []float64, error) {
	return extractTimeSeries(st, o)
}

func extractTimeSeries(st *state.State, o obs.Observation) ([]float64, []float64, error) {
	biomass, ok := st.Get(biology.Biomass)
	if !ok {
		return nil, nil, fmt.Errorf("field %s is not in the state", biology.Biomass)
	}
	groups, err := selectGroups(st, o.Cycle, o.Layer)
	if err != nil {
		return nil, nil, err
	}
	scale, err := observationScale(o)
	if err != nil {
		return nil, nil, err
	}

	tc, _ := biomass.Coord(coords.Time)
	yc, _ := biomass.Coord(coords.Y)
	xc, _ := biomass.Coord(coords.X)
	oyc, _ := o.Data.Coord(coords.Y)
	oxc, _ := o.Data.Coord(coords.X)
	if oyc.Size() != 1 || oxc.Size() != 1 {
		return nil, nil, fmt.Errorf("observation %s: a time series must have a single station position", o.Name)
	}
	yi := yc.NearestIndex(oyc.Values[0])
	xi := xc.NearestIndex(oxc.Values[0])

	times, err := o.Times()
	if err != nil {
		return nil, nil, err
	}
	var predicted, observed, sampleTimes []float64
	for ti, when := range times {
		ov, err := o.Data.At(ti, 0, 0)
		if err != nil {
			return nil, nil, err
		}
		if math.IsNaN(ov) {
			continue
		}
		mt := tc.IndexOf(when)
		if mt < 0 {
			return nil, nil, fmt.Errorf("observation %s: time %v is not on the model time axis", o.Name, when)
		}
		sum := 0.0
		for _, g := range groups {
			v, err := biomass.At(g, mt, yi, xi)
			if err != nil {
				return nil, nil, err
			}
			sum += v
		}
		predicted = append(predicted, sum)
		observed = append(observed, ov*scale)
		sampleTimes = append(sampleTimes, when)
	}
	if o.Interval > 0 {
		predicted, observed = resample(sampleTimes, predicted, observed, o.Interval)
	}
	return predicted, observed, nil
}

// resample bins both series by interval width and keeps the bin means,
// preserving bin order.
func resample(times, predicted, observed []float64, interval float64) ([]float64, []float64) {
	if len(times) == 0 {
		return predicted, observed
	}
	t0 := times[0]
	var predOut, obsOut []float64
	var predSum, obsSum float64
	bin, n := 0, 0
	flush := func() {
		if n > 0 {
			predOut = append(predOut, predSum/float64(n))
			obsOut = append(obsOut, obsSum/float64(n))
		}
		predSum, obsSum, n = 0, 0, 0
	}
	for i, t := range times {
		b := int((t - t0) / interval)
		if b != bin {
			flush()
			bin = b
		}
		predSum += predicted[i]
		obsSum += observed[i]
		n++
	}
	flush()
	return predOut, obsOut
}

// LogTimeSeries is TimeSeries in log10(1+x) space on both sides, damping
// the influence of bloom peaks.
type LogTimeSeries struct{}

func (LogTimeSeries) Name() string { return "log-timeseries" }

func (LogTimeSeries) Extract(st *state.State, o obs.Observation) ([]float64, []float64, error) {
	predicted, observed, err := extractTimeSeries(st, o)
	if err != nil {
		return nil, nil, err
	}
	for i := range predicted {
		predicted[i] = math.Log10(1 + predicted[i])
		observed[i] = math.Log10(1 + observed[i])
	}
	return predicted, observed, nil
}

// Spatial compares gridded snapshots point by point, pairing each
// observation cell with the nearest model cell in time and space.
type Spatial struct{}

func (Spatial) Name() string { return "spatial" }

func (Spatial) Extract(st *state.State, o obs.Observation) ([]float64, []float64, error) {
	biomass, ok := st.Get(biology.Biomass)
	if !ok {
		return nil, nil, fmt.Errorf("field %s is not in the state", biology.Biomass)
	}
	groups, err := selectGroups(st, o.Cycle, o.Layer)
	if err != nil {
		return nil, nil, err
	}
	scale, err := observationScale(o)
	if err != nil {
		return nil, nil, err
	}

	tc, _ := biomass.Coord(coords.Time)
	yc, _ := biomass.Coord(coords.Y)
	xc, _ := biomass.Coord(coords.X)
	otc, _ := o.Data.Coord(coords.Time)
	oyc, _ := o.Data.Coord(coords.Y)
	oxc, _ := o.Data.Coord(coords.X)
	ozc, ok := o.Data.Coord(coords.Z)
	if !ok {
		return nil, nil, fmt.Errorf("observation %s: no %s axis", o.Name, coords.Z)
	}
	zi := ozc.IndexOf(o.Layer)
	if zi < 0 {
		return nil, nil, fmt.Errorf("observation %s: layer %v is not on the observation depth axis", o.Name, o.Layer)
	}

	var predicted, observed []float64
	for t := 0; t < otc.Size(); t++ {
		mt := tc.NearestIndex(otc.Values[t])
		for y := 0; y < oyc.Size(); y++ {
			my := yc.NearestIndex(oyc.Values[y])
			for x := 0; x < oxc.Size(); x++ {
				ov, err := o.Data.At(t, y, x, zi)
				if err != nil {
					return nil, nil, err
				}
				if math.IsNaN(ov) {
					continue
				}
				mx := xc.NearestIndex(oxc.Values[x])
				sum := 0.0
				for _, g := range groups {
					v, err := biomass.At(g, mt, my, mx)
					if err != nil {
						return nil, nil, err
					}
					sum += v
				}
				predicted = append(predicted, sum)
				observed = append(observed, ov*scale)
			}
		}
	}
	return predicted, observed, nil
}
