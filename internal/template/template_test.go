package template

import (
	"errors"
	"testing"

	"pelagos/internal/coords"
	"pelagos/internal/state"
)

func baseState(t *testing.T) *state.State {
	t.Helper()
	yc, _ := coords.IndexCoordinate(coords.Y, 3)
	xc, _ := coords.IndexCoordinate(coords.X, 2)
	field, err := state.NewArrayFromValues("forcing", []coords.Coordinate{yc, xc},
		[]float64{1, 2, 3, 4, 5, 6}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st, err := state.New(field)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return st
}

func TestGenerateResolvesAndReorders(t *testing.T) {
	// dims declared out of canonical order on purpose
	u, err := NewUnit("out", state.Attrs{"units": "1"},
		[]Dim{AxisDim(coords.X), AxisDim(coords.Y)}, nil, Float64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	placeholder, err := u.Generate(baseState(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dims := placeholder.Dims()
	if dims[0] != coords.Y || dims[1] != coords.X {
		t.Fatalf("dims %v, want canonical [Y X]", dims)
	}
	shape := placeholder.Shape()
	if shape[0] != 3 || shape[1] != 2 {
		t.Fatalf("shape %v, want [3 2]", shape)
	}
	if placeholder.Attrs()["dtype"] != "float64" {
		t.Fatalf("dtype attr %q, want float64", placeholder.Attrs()["dtype"])
	}
	if placeholder.Attrs()["units"] != "1" {
		t.Fatal("declared attrs must be carried onto the placeholder")
	}
}

func TestGenerateWithoutStateFails(t *testing.T) {
	u, err := NewUnit("out", nil, []Dim{AxisDim(coords.Y)}, nil, Float64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := u.Generate(nil); !errors.Is(err, ErrMissingState) {
		t.Fatalf("got %v, want ErrMissingState", err)
	}
}

func TestGenerateWithExplicitCoordinate(t *testing.T) {
	cohort, _ := coords.IndexCoordinate(coords.Cohort, 4)
	u, err := NewUnit("out", nil, []Dim{AxisDim(coords.Y), CoordDim(cohort)}, nil, Bool)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	placeholder, err := u.Generate(baseState(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	shape := placeholder.Shape()
	if shape[0] != 3 || shape[1] != 4 {
		t.Fatalf("shape %v, want [3 4]", shape)
	}
	if placeholder.Attrs()["dtype"] != "bool" {
		t.Fatalf("dtype attr %q, want bool", placeholder.Attrs()["dtype"])
	}
}

func TestGenerateUnknownAxisFails(t *testing.T) {
	u, err := NewUnit("out", nil, []Dim{AxisDim(coords.Z)}, nil, Float64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := u.Generate(baseState(t)); err == nil {
		t.Fatal("expected error for axis missing from state")
	}
}

func TestNewRejectsDuplicateUnits(t *testing.T) {
	a, _ := NewUnit("same", nil, []Dim{AxisDim(coords.Y)}, nil, Float64)
	b, _ := NewUnit("same", nil, []Dim{AxisDim(coords.X)}, nil, Float64)
	if _, err := New(a, b); err == nil {
		t.Fatal("expected duplicate unit name error")
	}
}

func TestTemplateChunksUnion(t *testing.T) {
	a, _ := NewUnit("a", nil, []Dim{AxisDim(coords.Y)}, map[coords.Axis]int{coords.Y: 2}, Float64)
	b, _ := NewUnit("b", nil, []Dim{AxisDim(coords.X)}, map[coords.Axis]int{coords.X: 1}, Float64)
	tpl, err := New(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chunks := tpl.Chunks()
	if chunks[coords.Y] != 2 || chunks[coords.X] != 1 {
		t.Fatalf("chunks %v, want Y:2 X:1", chunks)
	}
}

func TestTemplateGenerateIsIdempotent(t *testing.T) {
	u, _ := NewUnit("out", nil, []Dim{AxisDim(coords.Y), AxisDim(coords.X)}, nil, Float64)
	tpl, err := New(u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := baseState(t)
	first, err := tpl.Generate(st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := tpl.Generate(st)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fa, _ := first.Get("out")
	sa, _ := second.Get("out")
	fs, ss := fa.Shape(), sa.Shape()
	for i := range fs {
		if fs[i] != ss[i] {
			t.Fatalf("shapes differ between generations: %v vs %v", fs, ss)
		}
	}
}
