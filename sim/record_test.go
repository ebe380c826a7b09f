package sim

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoSpeciesRecord is a founder that speciates at 2.5; the daughter goes
// extinct at 7.25 and the founder survives (censored).
func twoSpeciesRecord() *Record {
	return &Record{
		TMax: 10,
		Lineages: []Lineage{
			{ID: 0, Parent: NoParent, BirthTime: 0, DeathTime: DeathUnknown, Extant: true},
			{ID: 1, Parent: 0, BirthTime: 2.5, DeathTime: 7.25, Extant: false},
		},
	}
}

func TestRecord_Counts(t *testing.T) {
	rec := twoSpeciesRecord()
	assert.Equal(t, 2, rec.TotalCount())
	assert.Equal(t, 1, rec.ExtantCount())
}

func TestValidate_AcceptsWellFormedRecord(t *testing.T) {
	assert.NoError(t, twoSpeciesRecord().Validate())
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"id mismatch", func(r *Record) { r.Lineages[1].ID = 5 }},
		{"birth before origin", func(r *Record) { r.Lineages[1].BirthTime = -1 }},
		{"birth past horizon", func(r *Record) { r.Lineages[1].BirthTime = 11 }},
		{"self parent", func(r *Record) { r.Lineages[1].Parent = 1 }},
		{"forward parent", func(r *Record) { r.Lineages[1].Parent = 2 }},
		{"death before birth", func(r *Record) { r.Lineages[1].DeathTime = 1.0 }},
		{"child before parent", func(r *Record) {
			r.Lineages[0].BirthTime = 3
			r.Lineages[0].Extant = false
			r.Lineages[0].DeathTime = 9
		}},
		{"extant with early death", func(r *Record) {
			r.Lineages[1].Extant = true
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := twoSpeciesRecord()
			tt.mutate(rec)
			if err := rec.Validate(); err == nil {
				t.Error("Validate accepted a malformed record")
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(twoSpeciesRecord())
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Extant)
	assert.Equal(t, 1, s.Extinct)
	assert.Equal(t, 1, s.Founders)
	assert.Equal(t, 2.5, s.FirstEventTime)
	assert.Equal(t, 7.25, s.LastEventTime)
}

func TestSummarize_NilAndEmpty(t *testing.T) {
	assert.Equal(t, 0, Summarize(nil).Total)
	assert.Equal(t, 0, Summarize(&Record{TMax: 5}).Total)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, twoSpeciesRecord().WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,parent,birth,death,extant", lines[0])
	assert.Equal(t, "0,NA,0,NA,true", lines[1])
	assert.Equal(t, "1,0,2.5,7.25,false", lines[2])
}
