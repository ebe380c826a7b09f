// Package rates normalizes heterogeneous rate specifications into a single
// callable rate-of-time abstraction.
//
// A rate may be supplied as a constant, a pure function of time, a function of
// time and an environmental variable, or a step function given as a value
// vector plus shift times. Build collapses every variant into a Rate, a plain
// func(t) float64 over clade-relative time: 0 is the clade origin, tMax the
// present. Step shift times supplied in the descending present-to-origin
// convention are reflected to the ascending convention during normalization.
package rates

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Rate is a normalized rate function over clade-relative time.
// Values must be finite and non-negative over [0, tMax]; the sampler
// validates this lazily at each query.
type Rate func(t float64) float64

// Construction errors. All are detected before any simulation work begins.
var (
	// ErrMissingEnv indicates a time+environment rate function was supplied
	// without an environment table.
	ErrMissingEnv = errors.New("rates: environment-dependent rate requires an environment table")

	// ErrShiftLengthMismatch indicates a step-value vector and its shift-time
	// vector differ in length.
	ErrShiftLengthMismatch = errors.New("rates: step values and shift times differ in length")

	// ErrUnsupportedCombination indicates a step-function rate was combined
	// with an environment table; the two cannot be composed in closed form.
	ErrUnsupportedCombination = errors.New("rates: step function cannot be combined with an environment table")

	// ErrBadSpec indicates a malformed specification (empty, non-finite or
	// negative constants, unordered shift times).
	ErrBadSpec = errors.New("rates: malformed rate specification")
)

// Kind discriminates the rate specification variants.
type Kind int

const (
	// KindConstant is a single scalar rate.
	KindConstant Kind = iota
	// KindTimeFunc is a pure function of clade-relative time.
	KindTimeFunc
	// KindEnvFunc is a function of time and an interpolated environment value.
	KindEnvFunc
	// KindStep is a piecewise-constant rate given by values plus shift times.
	KindStep
)

func (k Kind) String() string {
	switch k {
	case KindConstant:
		return "constant"
	case KindTimeFunc:
		return "time-function"
	case KindEnvFunc:
		return "env-function"
	case KindStep:
		return "step"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Spec is a tagged-variant rate specification. Exactly one payload field is
// meaningful, selected by Kind. Use the constructors rather than literal
// structs.
type Spec struct {
	Kind     Kind
	Value    float64                 // KindConstant
	TimeFunc func(t float64) float64 // KindTimeFunc
	EnvFunc  func(t, env float64) float64
	Values   []float64 // KindStep
}

// Constant specifies a fixed rate.
func Constant(v float64) Spec {
	return Spec{Kind: KindConstant, Value: v}
}

// TimeFunc specifies a rate varying with clade-relative time.
func TimeFunc(f func(t float64) float64) Spec {
	return Spec{Kind: KindTimeFunc, TimeFunc: f}
}

// EnvFunc specifies a rate varying with time and an environmental variable.
// Build requires an environment table for this variant.
func EnvFunc(f func(t, env float64) float64) Spec {
	return Spec{Kind: KindEnvFunc, EnvFunc: f}
}

// StepFunc specifies a piecewise-constant rate. Build requires shift times of
// the same length.
func StepFunc(values []float64) Spec {
	return Spec{Kind: KindStep, Values: values}
}

// Build normalizes the specification into a Rate over [0, tMax].
//
// Shift times for the step variant may be given ascending from the origin or
// descending from the present; a descending sequence is reflected as
// tMax - shift before use. The resulting step function is right-continuous:
// the value at query t belongs to the greatest shift time <= t, clamped to
// the final interval beyond the last shift.
func (s Spec) Build(tMax float64, env *EnvTable, shiftTimes []float64) (Rate, error) {
	if tMax <= 0 || math.IsNaN(tMax) || math.IsInf(tMax, 0) {
		return nil, fmt.Errorf("%w: tMax must be a positive finite number, got %g", ErrBadSpec, tMax)
	}
	switch s.Kind {
	case KindConstant:
		v := s.Value
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, fmt.Errorf("%w: constant rate %g", ErrBadSpec, v)
		}
		return func(float64) float64 { return v }, nil

	case KindTimeFunc:
		if s.TimeFunc == nil {
			return nil, fmt.Errorf("%w: nil time function", ErrBadSpec)
		}
		// Already normalized. Non-negativity is validated lazily by the
		// sampler at each query.
		return Rate(s.TimeFunc), nil

	case KindEnvFunc:
		if s.EnvFunc == nil {
			return nil, fmt.Errorf("%w: nil env function", ErrBadSpec)
		}
		if env == nil {
			return nil, ErrMissingEnv
		}
		f := s.EnvFunc
		return func(t float64) float64 {
			return f(t, env.At(t))
		}, nil

	case KindStep:
		if env != nil {
			return nil, ErrUnsupportedCombination
		}
		return buildStep(s.Values, shiftTimes, tMax)

	default:
		return nil, fmt.Errorf("%w: unknown kind %v", ErrBadSpec, s.Kind)
	}
}

// buildStep normalizes a step-vector specification.
func buildStep(values, shiftTimes []float64, tMax float64) (Rate, error) {
	if len(values) < 2 {
		return nil, fmt.Errorf("%w: step rate needs at least 2 values, got %d", ErrBadSpec, len(values))
	}
	if len(shiftTimes) != len(values) {
		return nil, fmt.Errorf("%w: %d values vs %d shift times", ErrShiftLengthMismatch, len(values), len(shiftTimes))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, fmt.Errorf("%w: step value %g at index %d", ErrBadSpec, v, i)
		}
	}

	shifts := make([]float64, len(shiftTimes))
	copy(shifts, shiftTimes)
	vals := make([]float64, len(values))
	copy(vals, values)

	if descending(shifts) {
		// Present-to-origin convention: reflect onto origin-to-present.
		// Reflection of a descending sequence is ascending, with each
		// value still paired to its own shift.
		for i := range shifts {
			shifts[i] = tMax - shifts[i]
		}
	}
	if !ascending(shifts) {
		return nil, fmt.Errorf("%w: shift times must be strictly monotonic", ErrBadSpec)
	}

	return func(t float64) float64 {
		// index of the first shift > t; the active segment is i-1
		i := sort.SearchFloat64s(shifts, t)
		if i < len(shifts) && shifts[i] == t {
			return vals[i] // right-continuous at the shift itself
		}
		if i == 0 {
			return vals[0]
		}
		return vals[i-1]
	}, nil
}

func ascending(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return false
		}
	}
	return true
}

func descending(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if xs[i] >= xs[i-1] {
			return false
		}
	}
	return true
}
