package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cladesim/cladesim/sim"
)

func TestReplicatePath(t *testing.T) {
	tests := []struct {
		path string
		i, n int
		want string
	}{
		{"out.csv", 0, 1, "out.csv"},
		{"out.csv", 0, 3, "out_0.csv"},
		{"out.csv", 2, 3, "out_2.csv"},
		{"trees.nwk", 1, 2, "trees_1.nwk"},
		{"noext", 1, 2, "noext_1"},
	}
	for _, tt := range tests {
		if got := replicatePath(tt.path, tt.i, tt.n); got != tt.want {
			t.Errorf("replicatePath(%q, %d, %d) = %q, want %q", tt.path, tt.i, tt.n, got, tt.want)
		}
	}
}

func TestWriteOutputs(t *testing.T) {
	res, err := sim.Run(sim.Config{
		N0:     1,
		TMax:   3,
		Lambda: func(float64) float64 { return 0.8 },
		Mu:     func(float64) float64 { return 0.2 },
		Seed:   42,
	})
	require.NoError(t, err)
	require.True(t, res.Accepted())

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "record.csv")
	nwkPath := filepath.Join(dir, "tree.nwk")

	require.NoError(t, writeRecordCSV(res.Record, csvPath))
	require.NoError(t, writeNewick(res.Record, nwkPath))

	csvData, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csvData), "id,parent,birth,death,extant\n"))

	nwkData, err := os.ReadFile(nwkPath)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(string(nwkData)), ";"))
}
