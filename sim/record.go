package sim

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// NoParent marks a founding lineage. All n0 founders form the single
// parentless group; every later lineage records the lineage it budded from.
const NoParent = -1

// DeathUnknown is the open/censored death-time sentinel. It marks a lineage
// still alive at the horizon whose true extinction time was not reported
// (all real death times are >= 0, so the sentinel is unambiguous).
const DeathUnknown = -1.0

// Lineage is one species' row in the simulation record. Created when a
// speciation event fires (or at simulation start for founders), mutated once
// when its extinction fires or once at the horizon if still alive, immutable
// afterwards.
type Lineage struct {
	ID        int     // index in the Record, creation order
	Parent    int     // parent lineage ID, or NoParent for founders
	BirthTime float64 // absolute, in [0, tMax]
	DeathTime float64 // absolute, or DeathUnknown while alive / censored
	Extant    bool    // alive at the horizon, resolved at simulation end
}

// Died reports whether the lineage has a recorded extinction time.
func (l Lineage) Died() bool {
	return l.DeathTime != DeathUnknown
}

// Record is the append-only output of a simulation run: every lineage ever
// created, dead or alive, in creation (birth-time) order. A lineage's parent
// always precedes it.
type Record struct {
	TMax     float64
	Lineages []Lineage
}

// TotalCount returns the number of lineages ever created.
func (r *Record) TotalCount() int {
	return len(r.Lineages)
}

// ExtantCount returns the number of lineages alive at the horizon.
func (r *Record) ExtantCount() int {
	n := 0
	for _, l := range r.Lineages {
		if l.Extant {
			n++
		}
	}
	return n
}

// Validate checks the record's structural invariants: birth times within
// [0, tMax], death times at or after births, parents preceding children, and
// extant flags consistent with the absence of a pre-horizon death time.
func (r *Record) Validate() error {
	for i, l := range r.Lineages {
		if l.ID != i {
			return fmt.Errorf("lineage %d: ID %d does not match position", i, l.ID)
		}
		if l.BirthTime < 0 || l.BirthTime > r.TMax {
			return fmt.Errorf("lineage %d: birth time %g outside [0, %g]", i, l.BirthTime, r.TMax)
		}
		if l.Parent != NoParent {
			if l.Parent < 0 || l.Parent >= i {
				return fmt.Errorf("lineage %d: parent %d does not precede it", i, l.Parent)
			}
			if l.BirthTime < r.Lineages[l.Parent].BirthTime {
				return fmt.Errorf("lineage %d: born at %g before parent %d at %g",
					i, l.BirthTime, l.Parent, r.Lineages[l.Parent].BirthTime)
			}
		}
		if l.Died() {
			if l.DeathTime < l.BirthTime {
				return fmt.Errorf("lineage %d: death %g before birth %g", i, l.DeathTime, l.BirthTime)
			}
			if l.Extant && l.DeathTime < r.TMax {
				return fmt.Errorf("lineage %d: extant but died at %g before horizon %g", i, l.DeathTime, r.TMax)
			}
		}
	}
	return nil
}

// Summary aggregates headline statistics from a Record.
type Summary struct {
	Total          int
	Extant         int
	Extinct        int
	Founders       int
	FirstEventTime float64 // earliest non-founder birth or death, tMax if none
	LastEventTime  float64 // latest birth or pre-horizon death, 0 if none
}

// Summarize computes aggregate statistics from a Record.
// Safe for nil or empty records (returns zero-value fields).
func Summarize(r *Record) *Summary {
	s := &Summary{}
	if r == nil {
		return s
	}
	s.Total = len(r.Lineages)
	s.FirstEventTime = r.TMax
	for _, l := range r.Lineages {
		if l.Parent == NoParent {
			s.Founders++
		}
		if l.Extant {
			s.Extant++
		} else {
			s.Extinct++
		}
		if l.Parent != NoParent && l.BirthTime < s.FirstEventTime {
			s.FirstEventTime = l.BirthTime
		}
		if l.BirthTime > s.LastEventTime {
			s.LastEventTime = l.BirthTime
		}
		if l.Died() && l.DeathTime < r.TMax {
			if l.DeathTime < s.FirstEventTime {
				s.FirstEventTime = l.DeathTime
			}
			if l.DeathTime > s.LastEventTime {
				s.LastEventTime = l.DeathTime
			}
		}
	}
	return s
}

// WriteCSV writes the record as a table with one row per lineage. Censored
// death times are written as NA, the form downstream fossil-record tooling
// expects.
func (r *Record) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "parent", "birth", "death", "extant"}); err != nil {
		return err
	}
	for _, l := range r.Lineages {
		death := "NA"
		if l.Died() {
			death = strconv.FormatFloat(l.DeathTime, 'g', -1, 64)
		}
		parent := "NA"
		if l.Parent != NoParent {
			parent = strconv.Itoa(l.Parent)
		}
		row := []string{
			strconv.Itoa(l.ID),
			parent,
			strconv.FormatFloat(l.BirthTime, 'g', -1, 64),
			death,
			strconv.FormatBool(l.Extant),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
