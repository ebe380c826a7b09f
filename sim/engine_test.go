package sim

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cladesim/cladesim/sim/rates"
)

func constRate(v float64) rates.Rate {
	return func(float64) float64 { return v }
}

func TestRun_AcceptedRecordSatisfiesInvariants(t *testing.T) {
	cfg := Config{
		N0:     1,
		TMax:   5,
		Lambda: constRate(0.8),
		Mu:     constRate(0.2),
		Seed:   42,
	}
	res, err := Run(cfg)
	require.NoError(t, err)
	require.True(t, res.Accepted())

	rec := res.Record
	assert.NoError(t, rec.Validate())
	assert.GreaterOrEqual(t, rec.TotalCount(), 1)

	for _, l := range rec.Lineages {
		if l.Extant {
			assert.False(t, l.Died(), "extant lineage %d carries a death time", l.ID)
		}
	}
}

func TestRun_ZeroValueRangesUnconstrained(t *testing.T) {
	// Leaving NTotal/NExtant at their zero value must accept the first
	// attempt, not reject everything as the impossible interval [0, 0].
	cfg := Config{
		N0:       1,
		TMax:     3,
		Lambda:   constRate(0.8),
		Mu:       constRate(0.2),
		RetryCap: 20,
		Seed:     9,
	}
	res, err := Run(cfg)
	require.NoError(t, err)
	require.True(t, res.Accepted())
	assert.Equal(t, 1, res.Attempts)
}

func TestCountRange_Normalized(t *testing.T) {
	cases := []struct {
		in, want CountRange
	}{
		{CountRange{}, CountRange{Min: 0, Max: -1}},
		{CountRange{Min: 2}, CountRange{Min: 2, Max: -1}},
		{CountRange{Min: 1, Max: 5}, CountRange{Min: 1, Max: 5}},
		{CountRange{Min: 3, Max: -1}, CountRange{Min: 3, Max: -1}},
	}
	for _, c := range cases {
		if got := c.in.normalized(); got != c.want {
			t.Errorf("normalized(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestRun_Reproducible(t *testing.T) {
	cfg := Config{
		N0:     2,
		TMax:   4,
		Lambda: constRate(0.6),
		Mu:     constRate(0.3),
		Seed:   7,
	}
	a, err := Run(cfg)
	require.NoError(t, err)
	b, err := Run(cfg)
	require.NoError(t, err)

	if !reflect.DeepEqual(a.Record, b.Record) {
		t.Fatal("same seed and config produced different records")
	}
	assert.Equal(t, a.Attempts, b.Attempts)
}

func TestRun_DifferentSeedsDiverge(t *testing.T) {
	cfg := Config{
		N0:     1,
		TMax:   3,
		Lambda: constRate(2.0),
		Mu:     constRate(0.3),
		Seed:   1,
	}
	a, err := Run(cfg)
	require.NoError(t, err)
	cfg.Seed = 2
	b, err := Run(cfg)
	require.NoError(t, err)

	assert.False(t, reflect.DeepEqual(a.Record, b.Record))
}

func TestRun_AcceptanceIntervalsHonored(t *testing.T) {
	cfg := Config{
		N0:      1,
		TMax:    3,
		Lambda:  constRate(1.0),
		Mu:      constRate(0.2),
		NTotal:  CountRange{Min: 3, Max: 50},
		NExtant: CountRange{Min: 2, Max: 30},
		Seed:    11,
	}
	res, err := Run(cfg)
	require.NoError(t, err)
	require.True(t, res.Accepted())

	assert.True(t, cfg.NTotal.Contains(res.Record.TotalCount()),
		"total %d outside %v", res.Record.TotalCount(), cfg.NTotal)
	assert.True(t, cfg.NExtant.Contains(res.Record.ExtantCount()),
		"extant %d outside %v", res.Record.ExtantCount(), cfg.NExtant)
}

func TestRun_RetryCapExceeded(t *testing.T) {
	// Statistically unreachable: demand exactly 1000 lineages from a
	// near-sterile process over a single time unit.
	cfg := Config{
		N0:       1,
		TMax:     1,
		Lambda:   constRate(0.001),
		Mu:       constRate(0.5),
		NTotal:   CountRange{Min: 1000, Max: 1000},
		RetryCap: 2000,
		Seed:     3,
	}
	res, err := Run(cfg)
	if !errors.Is(err, ErrRetryCapExceeded) {
		t.Fatalf("err = %v, want ErrRetryCapExceeded", err)
	}
	assert.False(t, res.Accepted(), "a cap-exceeded result must not carry a record")
	assert.Equal(t, 2000, res.Attempts)
}

func TestRun_PureBirth_AllExtant(t *testing.T) {
	cfg := Config{
		N0:     1,
		TMax:   3,
		Lambda: constRate(0.7),
		Mu:     constRate(0),
		Seed:   5,
	}
	res, err := Run(cfg)
	require.NoError(t, err)
	require.True(t, res.Accepted())

	for _, l := range res.Record.Lineages {
		assert.True(t, l.Extant, "lineage %d extinct in a pure-birth run", l.ID)
		assert.Equal(t, DeathUnknown, l.DeathTime, "lineage %d: censored death expected", l.ID)
	}
}

func TestRun_ReportTrueExtinction_SurvivorsDatedAtHorizon(t *testing.T) {
	cfg := Config{
		N0:                   1,
		TMax:                 3,
		Lambda:               constRate(0.7),
		Mu:                   constRate(0),
		ReportTrueExtinction: true,
		Seed:                 5,
	}
	res, err := Run(cfg)
	require.NoError(t, err)
	require.True(t, res.Accepted())

	for _, l := range res.Record.Lineages {
		assert.True(t, l.Extant)
		assert.Equal(t, cfg.TMax, l.DeathTime)
	}
}

func TestRun_FoundersAreTheOnlyParentless(t *testing.T) {
	cfg := Config{
		N0:     3,
		TMax:   4,
		Lambda: constRate(0.5),
		Mu:     constRate(0.2),
		Seed:   9,
	}
	res, err := Run(cfg)
	require.NoError(t, err)
	require.True(t, res.Accepted())

	for i, l := range res.Record.Lineages {
		if i < cfg.N0 {
			assert.Equal(t, NoParent, l.Parent, "founder %d", i)
			assert.Equal(t, 0.0, l.BirthTime, "founder %d", i)
		} else {
			assert.NotEqual(t, NoParent, l.Parent, "lineage %d", i)
		}
	}
}

func TestRun_StepRates(t *testing.T) {
	// High early speciation, then extinction takes over.
	lambda, err := rates.StepFunc([]float64{1.5, 0.1}).Build(4, nil, []float64{0, 2})
	require.NoError(t, err)
	mu, err := rates.StepFunc([]float64{0.05, 0.8}).Build(4, nil, []float64{0, 2})
	require.NoError(t, err)

	res, err := Run(Config{N0: 1, TMax: 4, Lambda: lambda, Mu: mu, Seed: 21})
	require.NoError(t, err)
	require.True(t, res.Accepted())
	assert.NoError(t, res.Record.Validate())
}

func TestRun_ConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero founders", Config{N0: 0, TMax: 1, Lambda: constRate(1), Mu: constRate(1)}},
		{"negative horizon", Config{N0: 1, TMax: -1, Lambda: constRate(1), Mu: constRate(1)}},
		{"missing lambda", Config{N0: 1, TMax: 1, Mu: constRate(1)}},
		{"missing mu", Config{N0: 1, TMax: 1, Lambda: constRate(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Run(tt.cfg); err == nil {
				t.Error("Run succeeded, want error")
			}
		})
	}
}

func TestRun_InvalidRateAbortsAttempt(t *testing.T) {
	cfg := Config{
		N0:     1,
		TMax:   5,
		Lambda: func(t float64) float64 { return 1 - t }, // negative past t=1
		Mu:     constRate(0.1),
		Seed:   13,
	}
	_, err := Run(cfg)
	if !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("err = %v, want ErrInvalidRate", err)
	}
}

func TestCountRange_Contains(t *testing.T) {
	tests := []struct {
		r    CountRange
		n    int
		want bool
	}{
		{Unbounded(), 0, true},
		{Unbounded(), 1 << 30, true},
		{CountRange{Min: 2, Max: 5}, 1, false},
		{CountRange{Min: 2, Max: 5}, 2, true},
		{CountRange{Min: 2, Max: 5}, 5, true},
		{CountRange{Min: 2, Max: 5}, 6, false},
		{CountRange{Min: 3, Max: -1}, 100, true},
		{CountRange{Min: 3, Max: -1}, 2, false},
	}
	for _, tt := range tests {
		if got := tt.r.Contains(tt.n); got != tt.want {
			t.Errorf("%v.Contains(%d) = %v, want %v", tt.r, tt.n, got, tt.want)
		}
	}
}
