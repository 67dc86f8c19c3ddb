package cost

import (
	"fmt"

	"pelagos/internal/obs"
	"pelagos/internal/state"
)

// Term scores one observation.
type Term struct {
	Observation obs.Observation
	Processor   Processor
	Metric      Metric
	Weight      float64
}

// Function is a weighted sum of observation terms evaluated on a final
// model state.
type Function struct {
	terms []Term
}

// New validates the terms and builds the cost function.
func New(terms ...Term) (*Function, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("a cost function needs at least one term")
	}
	for i, t := range terms {
		if t.Processor == nil {
			return nil, fmt.Errorf("term %d (%s): processor is required", i, t.Observation.Name)
		}
		if t.Metric == nil {
			return nil, fmt.Errorf("term %d (%s): metric is required", i, t.Observation.Name)
		}
		if t.Weight <= 0 {
			return nil, fmt.Errorf("term %d (%s): weight must be > 0, got %v", i, t.Observation.Name, t.Weight)
		}
	}
	return &Function{terms: terms}, nil
}

// Terms returns the function's terms in order.
func (f *Function) Terms() []Term {
	out := make([]Term, len(f.terms))
	copy(out, f.terms)
	return out
}

// Evaluate scores the state: the weighted sum of each term's metric over
// its extracted pairs. Lower is better.
func (f *Function) Evaluate(st *state.State) (float64, error) {
	total := 0.0
	for _, t := range f.terms {
		predicted, observed, err := t.Processor.Extract(st, t.Observation)
		if err != nil {
			return 0, fmt.Errorf("observation %s: %w", t.Observation.Name, err)
		}
		score, err := t.Metric.Score(predicted, observed)
		if err != nil {
			return 0, fmt.Errorf("observation %s: %w", t.Observation.Name, err)
		}
		total += t.Weight * score
	}
	return total, nil
}

// Scores evaluates each term separately, keyed by observation name.
func (f *Function) Scores(st *state.State) (map[string]float64, error) {
	out := make(map[string]float64, len(f.terms))
	for _, t := range f.terms {
		predicted, observed, err := t.Processor.Extract(st, t.Observation)
		if err != nil {
			return nil, fmt.Errorf("observation %s: %w", t.Observation.Name, err)
		}
		score, err := t.Metric.Score(predicted, observed)
		if err != nil {
			return nil, fmt.Errorf("observation %s: %w", t.Observation.Name, err)
		}
		out[t.Observation.Name] = score
	}
	return out, nil
}
