package biology

import (
	"fmt"
	"math"

	"pelagos/internal/coords"
	"pelagos/internal/kernel"
	"pelagos/internal/state"
	"pelagos/internal/template"
)

// Scheme selects the numerical integration of dB/dt = R - lambda*B.
type Scheme string

const (
	// EulerExplicit evaluates recruitment and mortality at time t:
	// B(t+1) = B(t) + dt*R(t) - dt*lambda(t)*B(t). Conditionally stable:
	// dt must stay below 2/lambda_max or biomass oscillates negative.
	EulerExplicit Scheme = "euler-explicit"
	// EulerImplicit treats the mortality term implicitly:
	// B(t+1) = (B(t) + dt*R(t)) / (1 + dt*lambda(t)). Unconditionally
	// stable, the default.
	EulerImplicit Scheme = "euler-implicit"
)

func ParseScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case EulerExplicit, EulerImplicit:
		return Scheme(s), nil
	case "":
		return EulerImplicit, nil
	default:
		return "", fmt.Errorf("unknown integration scheme %q", s)
	}
}

// BiomassOptions fixes the integration behavior of the biomass unit at
// kernel construction: the scheme, and optionally Beverton-Holt
// density-dependent recruitment saturation.
type BiomassOptions struct {
	Scheme       Scheme
	BevertonHolt bool
}

// BiomassTransform integrates the biomass time series from recruitment and
// mortality. NaNs in the inputs are treated as zero, matching the masked
// cells outside a group's habitat. With BevertonHolt set, recruitment is
// scaled by the saturation coefficient of the previous step's biomass using
// the per-group density dependence parameter.
func BiomassTransform(opts BiomassOptions) kernel.Transform {
	return func(st *state.State) (*state.State, error) {
		recruited, err := getField(st, Recruited)
		if err != nil {
			return nil, err
		}
		mortality, err := getField(st, Mortality)
		if err != nil {
			return nil, err
		}
		timestep, ok := st.Get(Timestep)
		if !ok {
			return nil, fmt.Errorf("field %s is not in the state", Timestep)
		}
		dt, err := timestep.Scalar()
		if err != nil {
			return nil, err
		}

		var alpha []float64
		if opts.BevertonHolt {
			alpha, err = groupValues(st, DensityDependence)
			if err != nil {
				return nil, err
			}
		}

		var initial *state.Array
		if a, ok := st.Get(InitialConditionBiomass); ok {
			initial = a
		}

		grid, err := fgroupGridCoords(st)
		if err != nil {
			return nil, err
		}
		out, data, err := newGrid(Biomass, grid, biomassAttrs())
		if err != nil {
			return nil, err
		}
		nFG, nT, nY, nX := grid[0].Size(), grid[1].Size(), grid[2].Size(), grid[3].Size()
		for g := 0; g < nFG; g++ {
			for y := 0; y < nY; y++ {
				for x := 0; x < nX; x++ {
					prev := 0.0
					if initial != nil {
						v, err := initial.At(g, y, x)
						if err != nil {
							return nil, err
						}
						prev = zeroIfNaN(v)
					}
					for t := 0; t < nT; t++ {
						r, err := recruited.At(g, t, y, x)
						if err != nil {
							return nil, err
						}
						m, err := mortality.At(g, t, y, x)
						if err != nil {
							return nil, err
						}
						r = zeroIfNaN(r)
						m = zeroIfNaN(m)
						if opts.BevertonHolt {
							r *= BevertonHolt(prev, alpha[g])
						}
						var b float64
						switch opts.Scheme {
						case EulerExplicit:
							b = prev + dt*r - dt*m*prev
						default:
							b = (prev + dt*r) / (1 + dt*m)
						}
						data.Set(b, g, t, y, x)
						prev = b
					}
				}
			}
		}
		return singleFieldState(out)
	}
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

// BiomassUnit declares the biomass integration. The time recurrence crosses
// every timestep, so the unit is never chunked over time; chunking over the
// horizontal axes stays chunk-local and is allowed.
func BiomassUnit(opts BiomassOptions, chunks map[coords.Axis]int, parallel bool, scheduler kernel.Scheduler) (kernel.Unit, error) {
	horizontal := map[coords.Axis]int{}
	for ax, n := range chunks {
		if ax == coords.Y || ax == coords.X {
			horizontal[ax] = n
		}
	}
	return buildUnit(
		"biomass", Biomass, biomassAttrs(),
		fgroupGridDims(), template.Float64, BiomassTransform(opts), horizontal, parallel, scheduler,
		Recruited, Mortality,
	)
}
