package rates

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
)

// EnvTable is an immutable, time-ordered environmental series (e.g. a
// paleotemperature or sea-level curve). Times are clade-relative: 0 is the
// clade origin. The table is consumed read-only by rate construction.
type EnvTable struct {
	times  []float64
	values []float64
}

// NewEnvTable builds an EnvTable from parallel time/value slices.
// Times must be strictly ascending and all entries finite; at least two rows
// are required so interpolation is always defined.
func NewEnvTable(times, values []float64) (*EnvTable, error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("env table: %d times vs %d values", len(times), len(values))
	}
	if len(times) < 2 {
		return nil, fmt.Errorf("env table: need at least 2 rows, got %d", len(times))
	}
	for i := range times {
		if math.IsNaN(times[i]) || math.IsInf(times[i], 0) || math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			return nil, fmt.Errorf("env table: non-finite entry at row %d", i)
		}
		if i > 0 && times[i] <= times[i-1] {
			return nil, fmt.Errorf("env table: times not strictly ascending at row %d (%g after %g)", i, times[i], times[i-1])
		}
	}
	t := make([]float64, len(times))
	v := make([]float64, len(values))
	copy(t, times)
	copy(v, values)
	return &EnvTable{times: t, values: v}, nil
}

// Len returns the number of rows in the table.
func (e *EnvTable) Len() int {
	return len(e.times)
}

// Span returns the first and last times covered by the table.
func (e *EnvTable) Span() (float64, float64) {
	return e.times[0], e.times[len(e.times)-1]
}

// At returns the linearly interpolated environment value at query time t.
// Queries outside the table's time range clamp to the nearest endpoint:
// empirical series rarely cover the exact simulation window, and the engine
// needs one deterministic policy rather than a mid-run failure at a boundary
// epsilon.
func (e *EnvTable) At(t float64) float64 {
	n := len(e.times)
	if t <= e.times[0] {
		return e.values[0]
	}
	if t >= e.times[n-1] {
		return e.values[n-1]
	}
	// index of the first time > t; the bracketing rows are i-1 and i
	i := sort.SearchFloat64s(e.times, t)
	if e.times[i] == t {
		return e.values[i]
	}
	t0, t1 := e.times[i-1], e.times[i]
	v0, v1 := e.values[i-1], e.values[i]
	return v0 + (v1-v0)*(t-t0)/(t1-t0)
}

// LoadEnvTable reads a two-column CSV time series (time,value). A single
// non-numeric header row is skipped if present.
func LoadEnvTable(path string) (*EnvTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening env table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing env table %s: %w", path, err)
	}
	var times, values []float64
	for i, row := range rows {
		t, terr := strconv.ParseFloat(row[0], 64)
		v, verr := strconv.ParseFloat(row[1], 64)
		if terr != nil || verr != nil {
			if i == 0 {
				continue // header row
			}
			return nil, fmt.Errorf("env table %s: non-numeric entry at row %d", path, i+1)
		}
		times = append(times, t)
		values = append(values, v)
	}
	table, err := NewEnvTable(times, values)
	if err != nil {
		return nil, fmt.Errorf("env table %s: %w", path, err)
	}
	return table, nil
}
