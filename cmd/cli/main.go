package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cloneselect",
		Short: "Monte Carlo simulator for multi-stage clone selection workflows",
		Long: `Estimate how likely a multi-stage screening workflow is to end with only
top performers, given historical assay results.

Data comes from an .xlsx workbook or .csv file with a "Results" column and
optional "Criteria*" columns. Parameters come from flags, a YAML scenario
(--scenario) or both; flags win.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newSimulateCmd(),
		newSweepCmd(),
		newSensitivityCmd(),
		newCompareCmd(),
		newProfileCmd(),
		newEfficiencyCmd(),
		newSyntheticCmd(),
	)
	return rootCmd
}
