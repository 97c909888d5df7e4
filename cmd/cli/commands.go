package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cloneselect/app"
	"cloneselect/domain/clone"
	"cloneselect/domain/core"
	"cloneselect/domain/workflow"
	"cloneselect/internal/config"
	"cloneselect/internal/profiling"
	"cloneselect/internal/report"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSimulateCmd() *cobra.Command {
	var opts workflowOptions
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Estimate the success probability of one workflow configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, &opts, asJSON)
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}

func runSimulate(cmd *cobra.Command, opts *workflowOptions, asJSON bool) error {
	env, scenario, loaded, err := prepare(cmd, opts)
	if err != nil {
		return err
	}
	table := loaded.Table

	result, err := env.SimulationService.Simulate(cmd.Context(), table.Results(), table, scenario.Workflow)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return writeJSON(out, map[string]interface{}{"run_id": core.NewRunID(), "result": result})
	}

	fmt.Fprintf(out, "Clones: %d (sheet %s, %d rows dropped)\n", table.Len(), loaded.Sheet, loaded.DroppedRows)
	if result.Model != nil {
		fmt.Fprintf(out, "Lognormal fit: shape=%.4f loc=%.4f scale=%.4f\n", result.Model.Shape, result.Model.Loc, result.Model.Scale)
	}
	fmt.Fprintf(out, "Success cutoff (top %g%%): %.4f\n", scenario.Workflow.TopXPercent, result.Cutoff)
	fmt.Fprintf(out, "Success probability at correlation %.2f: %.4f\n", result.Correlation, result.Probability)
	fmt.Fprintf(out, "Fully successful trials: %d of %d", result.SuccessfulCount, result.NRep)
	if result.SkippedTrials > 0 {
		fmt.Fprintf(out, " (%d skipped by criteria)", result.SkippedTrials)
	}
	fmt.Fprintln(out)

	hist := app.SuccessHistogram(result.SuccessCounts, result.FinalKeep)
	fmt.Fprintf(out, "Mean successes per trial: %.2f of %d\n", hist.Mean, result.FinalKeep)
	for count, freq := range hist.Frequencies {
		if freq > 0 {
			fmt.Fprintf(out, "  %3d successes: %d\n", count, freq)
		}
	}
	return nil
}

func newSweepCmd() *cobra.Command {
	var opts workflowOptions
	var (
		minRho, maxRho, stepRho float64
		csvOut, reportOut       string
		withCompare, asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Sweep the inter-assay correlation and report success probability per value",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, scenario, loaded, err := prepare(cmd, &opts)
			if err != nil {
				return err
			}
			spec := scenario.Correlations
			if cmd.Flags().Changed("min") {
				spec.Min = minRho
			}
			if cmd.Flags().Changed("max") {
				spec.Max = maxRho
			}
			if cmd.Flags().Changed("step") {
				spec.Step = stepRho
			}
			return runSweep(cmd.Context(), cmd.OutOrStdout(), env, scenario, sweepOutputs{
				spec:      spec,
				csvPath:   csvOut,
				report:    reportOut,
				compare:   withCompare,
				asJSON:    asJSON,
				table:     loaded.Table,
				totalRows: loaded.TotalRows,
			})
		},
	}
	opts.bind(cmd)
	defaults := config.DefaultScenario().Correlations
	cmd.Flags().Float64Var(&minRho, "min", defaults.Min, "Lowest correlation")
	cmd.Flags().Float64Var(&maxRho, "max", defaults.Max, "Highest correlation")
	cmd.Flags().Float64Var(&stepRho, "step", defaults.Step, "Correlation increment")
	cmd.Flags().StringVar(&csvOut, "csv", "", "Write Correlation,Success_Probability rows to this file")
	cmd.Flags().StringVar(&reportOut, "report", "", "Write a report (.md or .html)")
	cmd.Flags().BoolVar(&withCompare, "compare", false, "Include a 2-step vs 3-step comparison in the report")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the sweep as JSON")
	return cmd
}

func newSensitivityCmd() *cobra.Command {
	var opts workflowOptions
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sensitivity",
		Short: "Vary step 1 keep, step 2 keep and top X% one at a time",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, scenario, loaded, err := prepare(cmd, &opts)
			if err != nil {
				return err
			}
			var correlations []float64
			if cmd.Flags().Changed("correlation") || opts.scenario != "" {
				correlations = []float64{scenario.Workflow.Correlation}
			}
			table := loaded.Table
			curves, err := env.SensitivityService.Analyze(cmd.Context(), table.Results(), table, scenario.Workflow, correlations)
			if err != nil {
				return fmt.Errorf("sensitivity analysis failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, curves)
			}
			names := make([]string, 0, len(curves))
			for name := range curves {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				curve := curves[name]
				fmt.Fprintf(out, "%s\n", name)
				for i, v := range curve.Values {
					fmt.Fprintf(out, "  %8g  %.4f\n", v, curve.Probabilities[i])
				}
			}
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print curves as JSON")
	return cmd
}

func newCompareCmd() *cobra.Command {
	var opts workflowOptions

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the 2-step and 3-step variants of the workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, scenario, loaded, err := prepare(cmd, &opts)
			if err != nil {
				return err
			}
			table := loaded.Table
			cmp, err := env.SweepService.CompareWorkflows(cmd.Context(), table.Results(), table, scenario.Workflow)
			if err != nil {
				return fmt.Errorf("comparison failed: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Correlation %.2f\n", cmp.Correlation)
			fmt.Fprintf(out, "  2-step (%d -> %d):        %.4f\n", scenario.Workflow.Step1Keep, scenario.Workflow.Step2Keep, cmp.TwoStep)
			fmt.Fprintf(out, "  3-step (%d -> %d -> %d):  %.4f\n", scenario.Workflow.Step1Keep, scenario.Workflow.Step2Keep, scenario.Workflow.Step3Keep, cmp.ThreeStep)
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}

func newProfileCmd() *cobra.Command {
	var dataFile, sheet string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Describe a data file before simulating",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment()
			if err != nil {
				return err
			}
			scenario := config.DefaultScenario()
			scenario.DataFile, scenario.Sheet = dataFile, sheet
			loaded, err := env.load(&scenario)
			if err != nil {
				return fmt.Errorf("failed to load data: %w", err)
			}
			profile, err := profiling.Profile(loaded.Table, loaded.TotalRows)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, map[string]interface{}{
					"load":             loaded,
					"profile":          profile,
					"recommendations":  profiling.Recommendations(profile),
					"suggested_method": profiling.SuggestedMethod(profile.Quality.Skewness),
				})
			}

			s := profile.Summary
			fmt.Fprintf(out, "Sheet: %s\n", loaded.Sheet)
			fmt.Fprintf(out, "Rows: %d total, %d valid, %d missing\n", s.TotalRows, s.ValidResults, s.MissingResults)
			fmt.Fprintf(out, "Results: mean %.4f, std %.4f, median %.4f, range [%.4f, %.4f]\n", s.Mean, s.StdDev, s.Median, s.Min, s.Max)
			fmt.Fprintf(out, "Quartiles: Q1 %.4f, Q3 %.4f\n", s.Q1, s.Q3)
			fmt.Fprintf(out, "Skewness %.3f, %d outliers\n", profile.Quality.Skewness, profile.Quality.Outliers)
			for _, c := range profile.Criteria {
				fmt.Fprintf(out, "Criteria %s: %d valid, median %.4f\n", c.Column, c.Valid, c.Median)
			}
			fmt.Fprintln(out, "Recommendations:")
			for _, r := range profiling.Recommendations(profile) {
				fmt.Fprintf(out, "  - %s\n", r)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dataFile, "data", "", "Data file (.xlsx or .csv)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Workbook sheet (default: first sheet)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the profile as JSON")
	return cmd
}

func newEfficiencyCmd() *cobra.Command {
	var step1, step2, step3, steps int

	cmd := &cobra.Command{
		Use:   "efficiency",
		Short: "Compute reduction ratio and per-step efficiency of a keep plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := workflow.WorkflowEfficiency(step1, step2, step3, steps)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Reduction ratio:    %.2fx\n", eff.ReductionRatio)
			fmt.Fprintf(out, "Step 1 efficiency:  %.4f\n", eff.Step1Efficiency)
			fmt.Fprintf(out, "Step 2 efficiency:  %.4f\n", eff.Step2Efficiency)
			fmt.Fprintf(out, "Overall efficiency: %.4f\n", eff.OverallEfficiency)
			return nil
		},
	}
	defaults := config.DefaultScenario().Workflow
	cmd.Flags().IntVar(&step1, "step1", defaults.Step1Keep, "Clones kept after assay 1")
	cmd.Flags().IntVar(&step2, "step2", defaults.Step2Keep, "Clones kept after assay 2")
	cmd.Flags().IntVar(&step3, "step3", defaults.Step3Keep, "Clones kept after assay 3")
	cmd.Flags().IntVar(&steps, "steps", defaults.WorkflowSteps, "Workflow steps: 2 or 3")
	return cmd
}

func newSyntheticCmd() *cobra.Command {
	var opts workflowOptions
	var count int
	var output string

	cmd := &cobra.Command{
		Use:   "synthetic",
		Short: "Draw synthetic results from the fitted distribution",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, scenario, loaded, err := prepare(cmd, &opts)
			if err != nil {
				return err
			}
			values, err := env.SimulationService.Synthetic(cmd.Context(), loaded.Table.Results(), count, scenario.Workflow.Method, nil, scenario.Workflow.Seed)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return writeColumn(w, "Synthetic_Results", values)
		},
	}
	opts.bind(cmd)
	cmd.Flags().IntVar(&count, "count", app.SyntheticOverlaySize, "Number of values to draw")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write CSV to this file instead of stdout")
	return cmd
}

func writeColumn(w io.Writer, header string, values []float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{header}); err != nil {
		return err
	}
	for _, v := range values {
		if err := cw.Write([]string{strconv.FormatFloat(v, 'f', -1, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type sweepOutputs struct {
	spec      config.CorrelationSpec
	csvPath   string
	report    string
	compare   bool
	asJSON    bool
	table     *clone.Table
	totalRows int
}

func runSweep(ctx context.Context, out io.Writer, env *environment, scenario *config.Scenario, o sweepOutputs) error {
	correlations, err := app.CorrelationRange(o.spec.Min, o.spec.Max, o.spec.Step)
	if err != nil {
		return err
	}
	table := o.table

	result, err := env.SweepService.SweepCorrelations(ctx, table.Results(), table, scenario.Workflow, correlations)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	if o.csvPath != "" {
		if err := writeFile(o.csvPath, func(w io.Writer) error { return report.WriteCSV(w, result) }); err != nil {
			return err
		}
	}

	if o.report != "" {
		rr := report.RunReport{
			Sweep:    result,
			Warnings: workflow.ValidateParameters(scenario.Workflow, table.Len()).Warnings,
		}
		if o.compare {
			if rr.Comparison, err = env.SweepService.CompareWorkflows(ctx, table.Results(), table, scenario.Workflow); err != nil {
				return fmt.Errorf("comparison failed: %w", err)
			}
		}
		if profile, err := profiling.Profile(table, o.totalRows); err == nil {
			rr.Profile = profile
		}
		render := func(w io.Writer) error {
			_, err := io.WriteString(w, report.Markdown(rr))
			return err
		}
		if strings.EqualFold(filepath.Ext(o.report), ".html") {
			render = func(w io.Writer) error {
				_, err := w.Write(report.HTML(rr))
				return err
			}
		}
		if err := writeFile(o.report, render); err != nil {
			return err
		}
	}

	if o.asJSON {
		return writeJSON(out, result)
	}

	s := result.Summary
	fmt.Fprintf(out, "Run %s: %d correlations in %dms\n", result.RunID, len(result.Points), result.RuntimeMs)
	fmt.Fprintf(out, "Max %.4f at correlation %.2f, min %.4f, mean %.4f\n", s.MaxProbability, s.OptimalCorrelation, s.MinProbability, s.MeanProbability)
	for _, f := range report.Findings(s) {
		fmt.Fprintf(out, "  - %s\n", f)
	}
	return nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
