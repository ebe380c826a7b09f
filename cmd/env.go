package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cladesim/cladesim/sim/rates"
)

var (
	envFile string  // Environment CSV path
	envAt   float64 // Query time for interpolation
)

// envCmd inspects an environment table and interpolates it at a query time,
// useful for sanity-checking a dataset before wiring it into a scenario.
var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Inspect an environment time-series table",
	Run: func(cmd *cobra.Command, args []string) {
		if envFile == "" {
			logrus.Fatalf("No environment file provided.")
		}
		table, err := rates.LoadEnvTable(envFile)
		if err != nil {
			logrus.Fatalf("unable to load environment table: %v", err)
		}
		lo, hi := table.Span()
		fmt.Printf("%s: %d rows spanning [%g, %g]\n", envFile, table.Len(), lo, hi)
		if cmd.Flags().Changed("at") {
			fmt.Printf("value at t=%g: %g\n", envAt, table.At(envAt))
		}
	},
}

func init() {
	envCmd.Flags().StringVar(&envFile, "file", "", "Environment CSV file (time,value)")
	envCmd.Flags().Float64Var(&envAt, "at", 0, "Interpolate the table at this time")

	rootCmd.AddCommand(envCmd)
}
