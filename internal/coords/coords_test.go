package coords

import "testing"

func TestNewCoordinateRejectsUnsorted(t *testing.T) {
	if _, err := NewCoordinate(Y, []float64{0, 2, 1}, nil); err == nil {
		t.Fatal("expected error for non-increasing values")
	}
	if _, err := NewCoordinate(Y, []float64{0, 0, 1}, nil); err == nil {
		t.Fatal("expected error for repeated values")
	}
}

func TestOrderDimsCanonical(t *testing.T) {
	got := OrderDims([]Axis{X, Cohort, FunctionalGroup, Time})
	want := []Axis{FunctionalGroup, Time, X, Cohort}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestValidateDimsRejectsWrongOrder(t *testing.T) {
	if err := ValidateDims([]Axis{Y, Time}); err == nil {
		t.Fatal("expected error for non-canonical order")
	}
	if err := ValidateDims([]Axis{Time, Time}); err == nil {
		t.Fatal("expected error for duplicate axis")
	}
	if err := ValidateDims([]Axis{FunctionalGroup, Time, Y, X, Z, Cohort}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIndexOfAndNearest(t *testing.T) {
	c, err := NewCoordinate(Z, []float64{0, 200, 500}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := c.IndexOf(200); got != 1 {
		t.Fatalf("IndexOf(200) = %d, want 1", got)
	}
	if got := c.IndexOf(250); got != -1 {
		t.Fatalf("IndexOf(250) = %d, want -1", got)
	}
	if got := c.NearestIndex(260); got != 1 {
		t.Fatalf("NearestIndex(260) = %d, want 1", got)
	}
	if got := c.NearestIndex(-50); got != 0 {
		t.Fatalf("NearestIndex(-50) = %d, want 0", got)
	}
}

func TestValidateConsistent(t *testing.T) {
	a, _ := NewCoordinate(Y, []float64{0, 1}, nil)
	b, _ := NewCoordinate(Y, []float64{0, 2}, nil)
	if err := ValidateConsistent(a, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateConsistent(a, b); err == nil {
		t.Fatal("expected error for diverging materializations")
	}
}
