package cost

import "fmt"

// factors to mgC/m2.
var massUnits = map[string]float64{
	"mgC/m2": 1,
	"gC/m2":  1e3,
	"kgC/m2": 1e6,
	"ugC/m2": 1e-3,
}

// UnitScale returns the factor converting values in `from` to values in
// `to`. Only areal carbon mass units are supported.
func UnitScale(from, to string) (float64, error) {
	f, ok := massUnits[from]
	if !ok {
		return 0, fmt.Errorf("unsupported unit %q", from)
	}
	t, ok := massUnits[to]
	if !ok {
		return 0, fmt.Errorf("unsupported unit %q", to)
	}
	return f / t, nil
}
