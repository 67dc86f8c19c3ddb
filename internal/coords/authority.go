package coords

import "fmt"

// Validate checks a single coordinate: strictly increasing values, which also
// guarantees uniqueness.
func Validate(c Coordinate) error {
	for i := 1; i < len(c.Values); i++ {
		if c.Values[i] <= c.Values[i-1] {
			return fmt.Errorf("coordinate %s is not strictly increasing at position %d (%v <= %v)",
				c.Axis, i, c.Values[i], c.Values[i-1])
		}
	}
	return nil
}

// ValidateDims checks that dims are unique and already in canonical order.
func ValidateDims(dims []Axis) error {
	seen := make(map[Axis]struct{}, len(dims))
	for _, ax := range dims {
		if _, ok := seen[ax]; ok {
			return fmt.Errorf("duplicate axis %s", ax)
		}
		seen[ax] = struct{}{}
	}
	ordered := OrderDims(dims)
	for i, ax := range dims {
		if ordered[i] != ax {
			return fmt.Errorf("axis %s is out of canonical order", ax)
		}
	}
	return nil
}

// ValidateConsistent checks that two materializations of the same axis agree.
// Coordinates coming from different fields of one state must be identical,
// not merely compatible.
func ValidateConsistent(a, b Coordinate) error {
	if a.Axis != b.Axis {
		return fmt.Errorf("axis mismatch: %s vs %s", a.Axis, b.Axis)
	}
	if len(a.Values) != len(b.Values) {
		return fmt.Errorf("coordinate %s size mismatch: %d vs %d", a.Axis, len(a.Values), len(b.Values))
	}
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			return fmt.Errorf("coordinate %s differs at position %d: %v vs %v", a.Axis, i, a.Values[i], b.Values[i])
		}
	}
	return nil
}
