package rates

import (
	"fmt"
	"math"
)

// SpecConfig is the YAML-facing form of a rate specification, used by
// scenario files. Exactly one variant's fields should be populated:
//
//	type: constant    value: 0.2
//	type: step        values: [0.1, 0.2]   shifts: [0, 10]
//	type: env-linear  params: {a: 0.05, b: 0.01}   # rate = max(0, a + b*env(t))
//	type: env-exp     params: {a: 0.05, b: 0.01}   # rate = a * exp(b*env(t))
//
// The two env response shapes cover the usual exponential and linear
// dependencies on an environmental driver without requiring Go code; callers
// with bespoke responses construct an EnvFunc Spec directly.
type SpecConfig struct {
	Type   string             `yaml:"type"`
	Value  float64            `yaml:"value,omitempty"`
	Values []float64          `yaml:"values,omitempty"`
	Shifts []float64          `yaml:"shifts,omitempty"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

// requireParam checks that all required keys exist in a params map.
func requireParam(params map[string]float64, keys ...string) error {
	for _, k := range keys {
		if _, ok := params[k]; !ok {
			return fmt.Errorf("rate config requires parameter %q", k)
		}
	}
	return nil
}

// NewSpec converts a SpecConfig into a Spec.
func NewSpec(cfg SpecConfig) (Spec, error) {
	switch cfg.Type {
	case "constant":
		return Constant(cfg.Value), nil

	case "step":
		if len(cfg.Values) == 0 {
			return Spec{}, fmt.Errorf("step rate config requires values")
		}
		return StepFunc(cfg.Values), nil

	case "env-linear":
		if err := requireParam(cfg.Params, "a", "b"); err != nil {
			return Spec{}, err
		}
		a, b := cfg.Params["a"], cfg.Params["b"]
		return EnvFunc(func(_, env float64) float64 {
			return math.Max(0, a+b*env)
		}), nil

	case "env-exp":
		if err := requireParam(cfg.Params, "a", "b"); err != nil {
			return Spec{}, err
		}
		a, b := cfg.Params["a"], cfg.Params["b"]
		return EnvFunc(func(_, env float64) float64 {
			return a * math.Exp(b*env)
		}), nil

	default:
		return Spec{}, fmt.Errorf("unknown rate type %q", cfg.Type)
	}
}

// BuildConfig normalizes a SpecConfig in one call, routing its shift times
// into Build. A nil config pointer yields a nil Rate (the caller treats the
// rate as absent).
func BuildConfig(cfg *SpecConfig, tMax float64, env *EnvTable) (Rate, error) {
	if cfg == nil {
		return nil, nil
	}
	spec, err := NewSpec(*cfg)
	if err != nil {
		return nil, err
	}
	return spec.Build(tMax, env, cfg.Shifts)
}
