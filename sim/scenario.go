package sim

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cladesim/cladesim/sim/rates"
)

// Scenario is the top-level simulation configuration.
// Loaded from YAML via LoadScenario(path).
type Scenario struct {
	Seed int64   `yaml:"seed"`
	N0   int     `yaml:"n0"`
	TMax float64 `yaml:"t_max"`

	Lambda rates.SpecConfig `yaml:"lambda"`
	Mu     rates.SpecConfig `yaml:"mu"`

	// Constant Weibull shapes; 0 = age-independent.
	LambdaShape float64 `yaml:"lambda_shape,omitempty"`
	MuShape     float64 `yaml:"mu_shape,omitempty"`

	NTotal  *RangeConfig `yaml:"n_total,omitempty"`
	NExtant *RangeConfig `yaml:"n_extant,omitempty"`

	ReportTrueExtinction bool   `yaml:"report_true_extinction,omitempty"`
	RetryCap             int    `yaml:"retry_cap,omitempty"`
	EnvFile              string `yaml:"env_file,omitempty"`
}

// RangeConfig is the YAML form of a CountRange. Max omitted, zero, or
// negative means unbounded above.
type RangeConfig struct {
	Min int `yaml:"min"`
	Max int `yaml:"max,omitempty"`
}

func (rc *RangeConfig) countRange() CountRange {
	if rc == nil {
		return Unbounded()
	}
	r := CountRange{Min: rc.Min, Max: rc.Max}
	if rc.Max <= 0 {
		r.Max = -1
	}
	return r
}

// LoadScenario reads and strictly decodes a scenario YAML file; unknown keys
// are an error.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &sc, nil
}

// envFor selects the environment table for one rate's build.
func envFor(cfg rates.SpecConfig, env *rates.EnvTable) *rates.EnvTable {
	switch cfg.Type {
	case "env-linear", "env-exp":
		return env
	}
	return nil
}

// Config normalizes the scenario's rate specifications and assembles an
// engine Config. The environment table, when the scenario names one, is
// loaded once and shared read-only by both rates.
func (sc *Scenario) Config() (Config, error) {
	var env *rates.EnvTable
	if sc.EnvFile != "" {
		table, err := rates.LoadEnvTable(sc.EnvFile)
		if err != nil {
			return Config{}, err
		}
		env = table
	}

	// The table is handed only to environment-driven rates, so a scenario
	// can mix an env-driven rate with a step rate on the other process.
	lambda, err := rates.BuildConfig(&sc.Lambda, sc.TMax, envFor(sc.Lambda, env))
	if err != nil {
		return Config{}, fmt.Errorf("lambda: %w", err)
	}
	mu, err := rates.BuildConfig(&sc.Mu, sc.TMax, envFor(sc.Mu, env))
	if err != nil {
		return Config{}, fmt.Errorf("mu: %w", err)
	}

	cfg := Config{
		N0:                   sc.N0,
		TMax:                 sc.TMax,
		Lambda:               lambda,
		Mu:                   mu,
		NTotal:               sc.NTotal.countRange(),
		NExtant:              sc.NExtant.countRange(),
		ReportTrueExtinction: sc.ReportTrueExtinction,
		RetryCap:             sc.RetryCap,
		Seed:                 sc.Seed,
	}
	if sc.LambdaShape != 0 {
		if sc.LambdaShape < MinShape {
			return Config{}, fmt.Errorf("lambda_shape %g: %w", sc.LambdaShape, ErrDegenerateShape)
		}
		k := sc.LambdaShape
		cfg.LambdaShape = func(float64) float64 { return k }
	}
	if sc.MuShape != 0 {
		if sc.MuShape < MinShape {
			return Config{}, fmt.Errorf("mu_shape %g: %w", sc.MuShape, ErrDegenerateShape)
		}
		k := sc.MuShape
		cfg.MuShape = func(float64) float64 { return k }
	}
	return cfg, nil
}
