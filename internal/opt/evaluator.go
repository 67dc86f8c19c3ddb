package opt

import (
	"context"
	"fmt"

	"pelagos/internal/biology"
	"pelagos/internal/config"
	"pelagos/internal/cost"
	"pelagos/internal/sim"
)

// ConfigurationGenerator turns calibrated parameter values into a runnable
// configuration. Values are keyed group name -> parameter name.
type ConfigurationGenerator interface {
	Generate(values map[string]map[string]float64) (*config.Configuration, error)
}

// Evaluator scores one gene vector: generate the configuration, run the
// model variant, evaluate the cost function on the final state.
type Evaluator struct {
	Set       FunctionalGroupSet
	Generator ConfigurationGenerator
	Variant   string
	Cost      *cost.Function
}

func (e Evaluator) validate() error {
	if e.Set.Dimension() == 0 {
		return fmt.Errorf("evaluator: empty search space")
	}
	if e.Generator == nil {
		return fmt.Errorf("evaluator: configuration generator is required")
	}
	if e.Variant == "" {
		return fmt.Errorf("evaluator: model variant is required")
	}
	if e.Cost == nil {
		return fmt.Errorf("evaluator: cost function is required")
	}
	return nil
}

// Evaluate implements EvaluateFn.
func (e Evaluator) Evaluate(ctx context.Context, genes []float64) (float64, error) {
	if err := e.validate(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	values, err := e.Set.Unflatten(genes)
	if err != nil {
		return 0, err
	}
	cfg, err := e.Generator.Generate(values)
	if err != nil {
		return 0, err
	}
	model, err := sim.FromConfiguration(cfg, e.Variant)
	if err != nil {
		return 0, err
	}
	final, err := model.Run()
	if err != nil {
		return 0, err
	}
	return e.Cost.Evaluate(final)
}

// ParameterGenerator overrides functional group coefficients of a base
// configuration by parameter name. Parameter names follow the model's
// field labels (lambda_0, gamma_tr, energy_transfert, ...).
type ParameterGenerator struct {
	Base *config.Configuration
}

func (g ParameterGenerator) Generate(values map[string]map[string]float64) (*config.Configuration, error) {
	if g.Base == nil {
		return nil, fmt.Errorf("parameter generator needs a base configuration")
	}
	cfg := *g.Base
	cfg.FunctionalGroups = make([]config.FunctionalGroupUnit, len(g.Base.FunctionalGroups))
	copy(cfg.FunctionalGroups, g.Base.FunctionalGroups)

	for groupName, params := range values {
		i, err := cfg.GroupIndex(groupName)
		if err != nil {
			return nil, err
		}
		unit := cfg.FunctionalGroups[i]
		for name, v := range params {
			if err := applyParameter(&unit, name, v); err != nil {
				return nil, fmt.Errorf("functional group %s: %w", groupName, err)
			}
		}
		cfg.FunctionalGroups[i] = unit
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyParameter(unit *config.FunctionalGroupUnit, name string, v float64) error {
	switch name {
	case biology.EnergyTransfert:
		unit.EnergyTransfert = v
	case biology.DayLayer:
		unit.Migratory.DayLayer = v
	case biology.NightLayer:
		unit.Migratory.NightLayer = v
	case biology.Lambda0:
		unit.Functional.Lambda0 = v
	case biology.GammaLambdaTemperature:
		unit.Functional.GammaLambdaTemperature = v
	case biology.GammaLambdaAcidity:
		unit.Functional.GammaLambdaAcidity = v
	case biology.Tr0:
		unit.Functional.Tr0 = v
	case biology.GammaTr:
		unit.Functional.GammaTr = v
	case biology.SurvivalRate0:
		unit.Functional.SurvivalRate0 = v
	case biology.GammaSurvivalRateTemperature:
		unit.Functional.GammaSurvivalRateTemperature = v
	case biology.GammaSurvivalRateAcidity:
		unit.Functional.GammaSurvivalRateAcidity = v
	case biology.DensityDependence:
		unit.Functional.DensityDependence = v
	default:
		return fmt.Errorf("unknown parameter %q", name)
	}
	return nil
}
