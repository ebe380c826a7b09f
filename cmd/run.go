package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cladesim/cladesim/sim"
	"github.com/cladesim/cladesim/sim/newick"
)

var (
	configPath string // Scenario YAML path
	seed       int64  // Master seed; overrides the scenario's seed when set
	replicates int    // Number of independent replicate runs
	workers    int    // Worker pool size for replicates
	outPath    string // Record CSV output path
	newickPath string // Newick tree output path
)

// runCmd executes the simulation described by a scenario file.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a birth-death diversification simulation",
	Run: func(cmd *cobra.Command, args []string) {
		if configPath == "" {
			logrus.Fatalf("No scenario file provided. Exiting simulation.")
		}
		scenario, err := sim.LoadScenario(configPath)
		if err != nil {
			logrus.Fatalf("unable to read scenario: %v", err)
		}
		if cmd.Flags().Changed("seed") {
			scenario.Seed = seed
		}
		cfg, err := scenario.Config()
		if err != nil {
			logrus.Fatalf("invalid scenario: %v", err)
		}

		logrus.Infof("Starting simulation: n0=%d, tMax=%g, seed=%d, replicates=%d",
			cfg.N0, cfg.TMax, cfg.Seed, replicates)
		startTime := time.Now()

		results, err := sim.RunReplicates(cfg, replicates, workers)
		if err != nil {
			logrus.Fatalf("simulation failed: %v", err)
		}

		accepted := 0
		for i, res := range results {
			if !res.Accepted() {
				fmt.Printf("replicate %d: rejected (retry cap reached after %d attempts)\n", i, res.Attempts)
				continue
			}
			accepted++
			s := sim.Summarize(res.Record)
			fmt.Printf("replicate %d: %d lineages (%d extant, %d extinct), %d attempts\n",
				i, s.Total, s.Extant, s.Extinct, res.Attempts)
			if outPath != "" {
				if err := writeRecordCSV(res.Record, replicatePath(outPath, i, replicates)); err != nil {
					logrus.Fatalf("writing record: %v", err)
				}
			}
			if newickPath != "" {
				if err := writeNewick(res.Record, replicatePath(newickPath, i, replicates)); err != nil {
					logrus.Fatalf("writing tree: %v", err)
				}
			}
		}
		fmt.Printf("%d/%d replicates accepted in %v\n", accepted, replicates, time.Since(startTime).Round(time.Millisecond))

		logrus.Info("Simulation complete.")
	},
}

// replicatePath suffixes the base path with the replicate index when more
// than one replicate is written.
func replicatePath(path string, i, n int) string {
	if n <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), i, ext)
}

func writeRecordCSV(rec *sim.Record, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return rec.WriteCSV(f)
}

func writeNewick(rec *sim.Record, path string) error {
	tree, err := newick.FromRecord(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(tree.Newick()+"\n"), 0644)
}

// init sets up CLI flags and attaches `run` to `root`.
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Scenario YAML file")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed (overrides the scenario seed)")
	runCmd.Flags().IntVar(&replicates, "replicates", 1, "Number of independent replicate runs")
	runCmd.Flags().IntVar(&workers, "workers", 1, "Worker pool size for replicates")
	runCmd.Flags().StringVar(&outPath, "out", "", "Write the record table as CSV to this path")
	runCmd.Flags().StringVar(&newickPath, "newick", "", "Write the phylogeny in Newick format to this path")

	rootCmd.AddCommand(runCmd)
}
