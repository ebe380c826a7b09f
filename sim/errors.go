package sim

import "errors"

// Runtime errors raised while a simulation attempt is in flight.
var (
	// ErrInvalidRate indicates a user rate function returned a negative,
	// NaN, or infinite value at some query time. Rate functions are
	// validated lazily, at the moment the sampler evaluates them.
	ErrInvalidRate = errors.New("sim: rate function returned an invalid value")

	// ErrNonConvergence indicates the waiting-time root-finder exhausted its
	// iteration budget. The attempt is aborted rather than approximated,
	// since downstream statistics depend on event-time correctness.
	ErrNonConvergence = errors.New("sim: waiting-time solver did not converge")

	// ErrDegenerateShape indicates a Weibull shape parameter below MinShape,
	// which produces numerically unstable hazards.
	ErrDegenerateShape = errors.New("sim: age-dependence shape below minimum")

	// ErrRetryCapExceeded is the normal, recoverable outcome of a run whose
	// acceptance constraints were not met within the retry cap. It means
	// "constraints unsatisfiable in practice", not a defect.
	ErrRetryCapExceeded = errors.New("sim: retry cap exceeded without an accepted run")
)
