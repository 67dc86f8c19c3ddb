package opt

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Logbook categories.
const (
	CategoryPopulation = "population"
	CategoryHallOfFame = "hall-of-fame"
)

// Record is the cost summary of one generation for one category.
type Record struct {
	Generation int     `json:"generation"`
	Category   string  `json:"category"`
	N          int     `json:"n"`
	Min        float64 `json:"min"`
	Mean       float64 `json:"mean"`
	Max        float64 `json:"max"`
	Std        float64 `json:"std"`
}

// Logbook accumulates per-generation statistics over the run.
type Logbook struct {
	records []Record
}

// Observe summarizes the costs of one generation into a record. Empty cost
// slices are ignored.
func (l *Logbook) Observe(generation int, category string, costs []float64) {
	if len(costs) == 0 {
		return
	}
	l.records = append(l.records, Record{
		Generation: generation,
		Category:   category,
		N:          len(costs),
		Min:        floats.Min(costs),
		Mean:       stat.Mean(costs, nil),
		Max:        floats.Max(costs),
		Std:        math.Sqrt(stat.Moment(2, costs, nil)),
	})
}

// Records returns every record in observation order.
func (l *Logbook) Records() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Select returns the records of one category in generation order.
func (l *Logbook) Select(category string) []Record {
	var out []Record
	for _, r := range l.records {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}
