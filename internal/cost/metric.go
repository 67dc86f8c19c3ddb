// Package cost scores a model's final state against observations. A cost
// function is a weighted sum of terms; each term pairs an observation with
// an extraction processor and a metric. Lower is better.
package cost

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metric reduces aligned prediction/observation pairs to a scalar score.
type Metric interface {
	Name() string
	Score(predicted, observed []float64) (float64, error)
}

// RMSE is the root mean squared error.
type RMSE struct{}

func (RMSE) Name() string { return "rmse" }

func (RMSE) Score(predicted, observed []float64) (float64, error) {
	if err := checkPairs(predicted, observed); err != nil {
		return 0, err
	}
	sum := 0.0
	for i := range predicted {
		d := predicted[i] - observed[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(predicted))), nil
}

// NRMSEStd is the RMSE normalized by the population standard deviation of
// the observations, making scores comparable across observation scales.
type NRMSEStd struct{}

func (NRMSEStd) Name() string { return "nrmse-std" }

func (NRMSEStd) Score(predicted, observed []float64) (float64, error) {
	rmse, err := RMSE{}.Score(predicted, observed)
	if err != nil {
		return 0, err
	}
	std := stat.PopStdDev(observed, nil)
	if std == 0 {
		return 0, fmt.Errorf("nrmse-std: observations have zero variance")
	}
	return rmse / std, nil
}

func checkPairs(predicted, observed []float64) error {
	if len(predicted) == 0 {
		return fmt.Errorf("no prediction/observation pairs to score")
	}
	if len(predicted) != len(observed) {
		return fmt.Errorf("length mismatch: %d predictions, %d observations", len(predicted), len(observed))
	}
	for i := range predicted {
		if math.IsNaN(predicted[i]) || math.IsNaN(observed[i]) {
			return fmt.Errorf("NaN pair at index %d", i)
		}
	}
	return nil
}
