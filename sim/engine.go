package sim

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/cladesim/cladesim/sim/rates"
)

// DefaultRetryCap bounds the number of rejected attempts before a run gives
// up and reports ErrRetryCapExceeded.
const DefaultRetryCap = 100000

// CountRange is an inclusive acceptance interval on a lineage count.
// Max < 0 means unbounded above; the zero value is the unconstrained
// interval [0, inf) once normalized by Run.
type CountRange struct {
	Min int
	Max int
}

// Unbounded returns the default acceptance interval [0, ∞).
func Unbounded() CountRange {
	return CountRange{Min: 0, Max: -1}
}

// Contains reports whether n falls inside the interval.
func (c CountRange) Contains(n int) bool {
	if n < c.Min {
		return false
	}
	return c.Max < 0 || n <= c.Max
}

// normalized maps a non-positive Max to unbounded-above, the same reading
// RangeConfig.countRange gives the YAML form. A zero-value CountRange is
// therefore unconstrained rather than the impossible interval [0, 0].
func (c CountRange) normalized() CountRange {
	if c.Max <= 0 {
		c.Max = -1
	}
	return c
}

func (c CountRange) String() string {
	if c.Max < 0 {
		return fmt.Sprintf("[%d, inf)", c.Min)
	}
	return fmt.Sprintf("[%d, %d]", c.Min, c.Max)
}

// Config drives one simulation run.
//
// Lambda and Mu are normalized speciation and extinction rates over
// clade-relative time (see rates.Spec.Build). LambdaShape and MuShape, when
// non-nil, make the corresponding process age-dependent with a Weibull shape
// that may itself vary over time.
type Config struct {
	N0   int     // founding lineage count
	TMax float64 // horizon: 0 is the clade origin, TMax the present

	Lambda rates.Rate
	Mu     rates.Rate

	LambdaShape rates.Rate
	MuShape     rates.Rate

	NTotal  CountRange // acceptance interval on total lineages ever created
	NExtant CountRange // acceptance interval on lineages extant at TMax

	// ReportTrueExtinction records survivors' death time as the literal TMax.
	// When false, survivors keep the censored DeathUnknown sentinel.
	ReportTrueExtinction bool

	RetryCap int // 0 = DefaultRetryCap
	Seed     int64
}

func (c Config) validate() error {
	if c.N0 < 1 {
		return fmt.Errorf("config: n0 must be >= 1, got %d", c.N0)
	}
	if c.TMax <= 0 {
		return fmt.Errorf("config: tMax must be positive, got %g", c.TMax)
	}
	if c.Lambda == nil || c.Mu == nil {
		return fmt.Errorf("config: both lambda and mu rates are required")
	}
	return nil
}

func (c Config) retryCap() int {
	if c.RetryCap <= 0 {
		return DefaultRetryCap
	}
	return c.RetryCap
}

// Result is the outcome of a run. Record is non-nil exactly when an attempt
// satisfied the acceptance constraints; Attempts counts every attempt made,
// including the accepted one.
type Result struct {
	Record   *Record
	Attempts int
}

// Accepted reports whether the run produced a record.
func (r Result) Accepted() bool {
	return r.Record != nil
}

// Run simulates the birth-death process, retrying rejected attempts up to the
// retry cap with a fresh RNG stream per attempt.
//
// The error is non-nil in two distinct situations: fatal conditions
// (construction problems, ErrInvalidRate, ErrNonConvergence) and the normal
// "constraints unsatisfiable in practice" outcome, reported as
// ErrRetryCapExceeded (check with errors.Is). A cap-exceeded Result carries a
// nil Record, so it can never be mistaken for an empty clade.
func Run(cfg Config) (Result, error) {
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	cfg.NTotal = cfg.NTotal.normalized()
	cfg.NExtant = cfg.NExtant.normalized()
	prng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	maxAttempts := cfg.retryCap()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		rng := prng.ForStream(StreamAttempt(attempt))
		rec, err := runAttempt(cfg, rng)
		if err != nil {
			return Result{Attempts: attempt + 1}, err
		}
		total, extant := rec.TotalCount(), rec.ExtantCount()
		if !cfg.NTotal.Contains(total) || !cfg.NExtant.Contains(extant) {
			logrus.Debugf("attempt %d rejected: total=%d (want %v), extant=%d (want %v)",
				attempt, total, cfg.NTotal, extant, cfg.NExtant)
			continue
		}
		logrus.Debugf("attempt %d accepted: total=%d extant=%d", attempt, total, extant)
		return Result{Record: rec, Attempts: attempt + 1}, nil
	}
	return Result{Attempts: maxAttempts}, fmt.Errorf(
		"%w: %d attempts, total in %v and extant in %v never satisfied",
		ErrRetryCapExceeded, maxAttempts, cfg.NTotal, cfg.NExtant)
}

// runAttempt performs a single simulation attempt, event by event. State is
// exclusively owned by the attempt; a rejected attempt is discarded whole.
func runAttempt(cfg Config, rng *rand.Rand) (*Record, error) {
	rec := &Record{TMax: cfg.TMax}
	living := make([]int, 0, cfg.N0)
	for i := 0; i < cfg.N0; i++ {
		rec.Lineages = append(rec.Lineages, Lineage{
			ID:        i,
			Parent:    NoParent,
			BirthTime: 0,
			DeathTime: DeathUnknown,
		})
		living = append(living, i)
	}

	clock := 0.0
	for len(living) > 0 {
		// Sample each living lineage's speciation and extinction candidates
		// and advance to the globally earliest event. Lineages are visited
		// in slice order so draws are reproducible.
		eventTime := cfg.TMax
		eventID := -1
		eventIsBirth := false
		found := false

		for _, id := range living {
			age := clock - rec.Lineages[id].BirthTime

			wait, occurs, err := SampleWait(Hazard{Rate: cfg.Lambda, Shape: cfg.LambdaShape, Age: age}, clock, cfg.TMax, rng)
			if err != nil {
				return nil, fmt.Errorf("speciation sample for lineage %d at t=%g: %w", id, clock, err)
			}
			if occurs && (!found || clock+wait < eventTime) {
				eventTime, eventID, eventIsBirth, found = clock+wait, id, true, true
			}

			wait, occurs, err = SampleWait(Hazard{Rate: cfg.Mu, Shape: cfg.MuShape, Age: age}, clock, cfg.TMax, rng)
			if err != nil {
				return nil, fmt.Errorf("extinction sample for lineage %d at t=%g: %w", id, clock, err)
			}
			if occurs && (!found || clock+wait < eventTime) {
				eventTime, eventID, eventIsBirth, found = clock+wait, id, false, true
			}
		}

		if !found {
			// No event fires before the horizon: every remaining lineage
			// survives to the present.
			break
		}

		clock = eventTime
		if eventIsBirth {
			child := len(rec.Lineages)
			rec.Lineages = append(rec.Lineages, Lineage{
				ID:        child,
				Parent:    eventID,
				BirthTime: clock,
				DeathTime: DeathUnknown,
			})
			living = append(living, child)
			logrus.Debugf("[t=%.6g] speciation: %d -> %d (%d living)", clock, eventID, child, len(living))
		} else {
			rec.Lineages[eventID].DeathTime = clock
			living = removeID(living, eventID)
			logrus.Debugf("[t=%.6g] extinction: %d (%d living)", clock, eventID, len(living))
		}
	}

	for _, id := range living {
		rec.Lineages[id].Extant = true
		if cfg.ReportTrueExtinction {
			rec.Lineages[id].DeathTime = cfg.TMax
		}
	}
	return rec, nil
}

// removeID deletes the first occurrence of id, preserving order so the
// sampling sequence stays deterministic.
func removeID(living []int, id int) []int {
	for i, v := range living {
		if v == id {
			return append(living[:i], living[i+1:]...)
		}
	}
	return living
}
