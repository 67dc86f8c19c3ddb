package biology

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"

	"pelagos/internal/coords"
	"pelagos/internal/kernel"
	"pelagos/internal/state"
	"pelagos/internal/template"
)

func getField(st *state.State, name string) (*state.Array, error) {
	a, ok := st.Get(name)
	if !ok {
		return nil, fmt.Errorf("field %s is not in the state", name)
	}
	return a, nil
}

func groupValues(st *state.State, name string) ([]float64, error) {
	a, err := getField(st, name)
	if err != nil {
		return nil, err
	}
	return a.Values()
}

// layerIndex resolves a layer depth value to its position on the Z axis.
func layerIndex(z coords.Coordinate, layer float64, field string) (int, error) {
	idx := z.IndexOf(layer)
	if idx < 0 {
		return 0, fmt.Errorf("%s references layer %v which is not on axis %s", field, layer, z.Axis)
	}
	return idx, nil
}

func sigmoid(x float64) float64 {
	return math.Exp(x) / (1 + math.Exp(x))
}

// BevertonHolt is the stock-recruitment saturation coefficient
// a*B / (1 + a*B): zero at zero biomass or zero alpha, 0.5 at B = 1/alpha,
// asymptotically approaching (never exceeding) one.
func BevertonHolt(biomass, alpha float64) float64 {
	return alpha * biomass / (1 + alpha*biomass)
}

func newGrid(name string, coordinates []coords.Coordinate, attrs state.Attrs) (*state.Array, *sparse.DenseArray, error) {
	shape := make([]int, len(coordinates))
	for i, c := range coordinates {
		shape[i] = c.Size()
	}
	data := sparse.ZerosDense(shape...)
	a, err := state.NewArray(name, coordinates, data, attrs)
	if err != nil {
		return nil, nil, err
	}
	return a, data, nil
}

// fgroupGridCoords assembles the [functional_group, T, Y, X] coordinate list
// most derived fields share.
func fgroupGridCoords(st *state.State) ([]coords.Coordinate, error) {
	out := make([]coords.Coordinate, 0, 4)
	for _, ax := range []coords.Axis{coords.FunctionalGroup, coords.Time, coords.Y, coords.X} {
		c, ok := st.Coord(ax)
		if !ok {
			return nil, fmt.Errorf("axis %s is not defined in the state", ax)
		}
		out = append(out, c)
	}
	return out, nil
}

func singleFieldState(a *state.Array) (*state.State, error) {
	return state.New(a)
}

// buildUnit assembles a kernel unit from one template declaration, applying
// the shared chunk map and parallel flag every unit of a kernel is bound to.
func buildUnit(
	name string,
	tplName string,
	attrs state.Attrs,
	dims []template.Dim,
	dtype template.DType,
	transform kernel.Transform,
	chunks map[coords.Axis]int,
	parallel bool,
	scheduler kernel.Scheduler,
	removeFromState ...string,
) (kernel.Unit, error) {
	unitChunks := chunks
	if !parallel {
		unitChunks = nil
	}
	tu, err := template.NewUnit(tplName, attrs, dims, unitChunks, dtype)
	if err != nil {
		return kernel.Unit{}, err
	}
	tpl, err := template.New(tu)
	if err != nil {
		return kernel.Unit{}, err
	}
	opts := []kernel.UnitOption{}
	if len(removeFromState) > 0 {
		opts = append(opts, kernel.WithRemoveFromState(removeFromState...))
	}
	if parallel {
		opts = append(opts, kernel.WithParallel(scheduler))
	}
	return kernel.NewUnit(name, tpl, transform, opts...)
}
