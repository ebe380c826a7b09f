package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cladesim/cladesim/sim/rates"
)

// Numerical policy for waiting-time sampling. The solver is deterministic:
// repeated calls with the same exponential draw and inputs return the same
// duration, so records are reproducible from the seed alone.
const (
	// MinShape is the smallest accepted Weibull shape. Near-zero shapes
	// concentrate the hazard into an integrable singularity at age zero and
	// destabilize quadrature.
	MinShape = 0.01

	// solverTol is the absolute tolerance on the solved waiting time,
	// relative to max(1, horizon).
	solverTol = 1e-9

	// solverMaxIter caps the bisection iteration count. Exceeding it aborts
	// the attempt with ErrNonConvergence rather than returning an
	// approximate event time.
	solverMaxIter = 200

	// quadPanels is the (even) number of composite-Simpson subintervals per
	// cumulative-hazard evaluation.
	quadPanels = 256

	// constProbes is the number of grid points used to detect a numerically
	// constant rate, which unlocks closed-form exponential inversion.
	constProbes = 33
)

// Hazard bundles everything needed to sample one lineage's next event: the
// normalized rate, an optional time-varying Weibull shape, and the lineage's
// age at the current simulation time.
//
// With Shape nil the hazard at elapsed time s is rate(now+s): a
// non-homogeneous Poisson process. With Shape set, the hazard additionally
// depends on total lifetime age+s:
//
//	h(s) = k(t) * r(t) * (r(t) * (age+s))^(k(t)-1),  t = now+s
//
// which reduces exactly to the age-independent case at k=1, so constant-shape
// Weibull sampling is continuous with exponential sampling.
type Hazard struct {
	Rate  rates.Rate
	Shape rates.Rate // nil = age-independent
	Age   float64    // lineage age at the current simulation time
}

// at evaluates the hazard at elapsed time s past now, validating the user
// rate lazily: a negative or non-finite rate is ErrInvalidRate, a degenerate
// shape is ErrDegenerateShape.
func (h Hazard) at(now, s float64) (float64, error) {
	r := h.Rate(now + s)
	if math.IsNaN(r) || math.IsInf(r, 0) || r < 0 {
		return 0, fmt.Errorf("%w: %g at t=%g", ErrInvalidRate, r, now+s)
	}
	if h.Shape == nil {
		return r, nil
	}
	k := h.Shape(now + s)
	if math.IsNaN(k) || math.IsInf(k, 0) || k < MinShape {
		return 0, fmt.Errorf("%w: shape %g at t=%g (minimum %g)", ErrDegenerateShape, k, now+s, MinShape)
	}
	if r == 0 {
		return 0, nil
	}
	age := h.Age + s
	if age < ageFloor {
		// k < 1 puts an integrable singularity at age 0; the floor keeps
		// quadrature nodes finite.
		age = ageFloor
	}
	return k * r * math.Pow(r*age, k-1), nil
}

// ageFloor bounds hazard evaluations away from the age-zero singularity.
const ageFloor = 1e-12

// SampleWait draws the time to this hazard's next event, starting at absolute
// time now with horizon the absolute end of the simulation window.
//
// It draws E ~ Exp(1) and solves cumulative hazard = E for the elapsed time.
// When the rate is numerically constant over [now, horizon] and no age
// dependence is set, the solve collapses to closed-form inversion E/rate.
//
// The second return is false when the event does not occur before the
// horizon (cumulative hazard over the whole window falls short of E).
func SampleWait(h Hazard, now, horizon float64, rng *rand.Rand) (float64, bool, error) {
	if h.Rate == nil {
		return 0, false, fmt.Errorf("%w: nil rate", ErrInvalidRate)
	}
	window := horizon - now
	if window <= 0 {
		return 0, false, nil
	}
	target := rng.ExpFloat64()

	if h.Shape == nil {
		if r, constant, err := constantRateOver(h.Rate, now, horizon); err != nil {
			return 0, false, err
		} else if constant {
			if r == 0 {
				return 0, false, nil
			}
			s := target / r
			if s > window {
				return 0, false, nil
			}
			return s, true, nil
		}
	}

	cum := func(s float64) (float64, error) {
		return simpson(func(u float64) (float64, error) { return h.at(now, u) }, 0, s, quadPanels)
	}
	return solveNextEvent(cum, target, window)
}

// solveNextEvent solves cumHazard(s) = target for s in [0, window] by
// bisection. cumHazard must be nondecreasing with cumHazard(0) = 0. Returns
// (s, true, nil) on success, (0, false, nil) when the cumulative hazard over
// the window never reaches the target, and ErrNonConvergence when the
// iteration budget runs out.
//
// Kept separate from SampleWait so synthetic hazards with closed-form
// integrals can exercise it directly.
func solveNextEvent(cumHazard func(s float64) (float64, error), target, window float64) (float64, bool, error) {
	total, err := cumHazard(window)
	if err != nil {
		return 0, false, err
	}
	if total < target {
		return 0, false, nil
	}

	tol := solverTol * math.Max(1, window)
	lo, hi := 0.0, window
	for i := 0; i < solverMaxIter; i++ {
		mid := 0.5 * (lo + hi)
		v, err := cumHazard(mid)
		if err != nil {
			return 0, false, err
		}
		if v < target {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < tol {
			return 0.5 * (lo + hi), true, nil
		}
	}
	return 0, false, fmt.Errorf("%w: interval [%g, %g] after %d iterations (tol %g)",
		ErrNonConvergence, lo, hi, solverMaxIter, tol)
}

// constantRateOver probes the rate on a fixed grid over [now, horizon] and
// reports whether it is numerically constant there, returning the common
// value. Probing also surfaces invalid rate values before any integration.
func constantRateOver(rate rates.Rate, now, horizon float64) (float64, bool, error) {
	step := (horizon - now) / float64(constProbes-1)
	first := rate(now)
	if math.IsNaN(first) || math.IsInf(first, 0) || first < 0 {
		return 0, false, fmt.Errorf("%w: %g at t=%g", ErrInvalidRate, first, now)
	}
	for i := 1; i < constProbes; i++ {
		t := now + float64(i)*step
		v := rate(t)
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0, false, fmt.Errorf("%w: %g at t=%g", ErrInvalidRate, v, t)
		}
		if math.Abs(v-first) > 1e-12*math.Max(1, math.Abs(first)) {
			return 0, false, nil
		}
	}
	return first, true, nil
}

// simpson integrates f over [a, b] with n composite-Simpson subintervals.
// n must be even.
func simpson(f func(x float64) (float64, error), a, b float64, n int) (float64, error) {
	if b <= a {
		return 0, nil
	}
	step := (b - a) / float64(n)
	sum, err := f(a)
	if err != nil {
		return 0, err
	}
	last, err := f(b)
	if err != nil {
		return 0, err
	}
	sum += last
	for i := 1; i < n; i++ {
		v, err := f(a + float64(i)*step)
		if err != nil {
			return 0, err
		}
		if i%2 == 1 {
			sum += 4 * v
		} else {
			sum += 2 * v
		}
	}
	return sum * step / 3, nil
}
