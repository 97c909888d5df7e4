package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cloneselect/adapters/excel"
	"cloneselect/domain/workflow"
	"cloneselect/internal/config"
	"cloneselect/internal/container"
)

// workflowOptions are the flags shared by every command that runs the simulator
type workflowOptions struct {
	scenario  string
	dataFile  string
	sheet     string
	topX      float64
	step1     int
	step2     int
	step3     int
	steps     int
	nRep      int
	rho       float64
	method    string
	seed      int64
	criteria  []string
	finalStep bool
}

func (o *workflowOptions) bind(cmd *cobra.Command) {
	defaults := config.DefaultScenario().Workflow
	f := cmd.Flags()
	f.StringVar(&o.scenario, "scenario", "", "YAML scenario file providing defaults")
	f.StringVar(&o.dataFile, "data", "", "Data file (.xlsx or .csv); falls back to the scenario, then DATA_FILE")
	f.StringVar(&o.sheet, "sheet", "", "Workbook sheet (default: first sheet)")
	f.Float64Var(&o.topX, "top-x", defaults.TopXPercent, "Success threshold as top X percent of observed results")
	f.IntVar(&o.step1, "step1", defaults.Step1Keep, "Clones kept after assay 1")
	f.IntVar(&o.step2, "step2", defaults.Step2Keep, "Clones kept after assay 2")
	f.IntVar(&o.step3, "step3", defaults.Step3Keep, "Clones kept after assay 3 (3-step workflows)")
	f.IntVar(&o.steps, "steps", defaults.WorkflowSteps, "Workflow steps: 2 or 3")
	f.IntVar(&o.nRep, "n-rep", defaults.NRep, "Monte Carlo repetitions")
	f.Float64Var(&o.rho, "correlation", defaults.Correlation, "Inter-assay correlation")
	f.StringVar(&o.method, "method", string(defaults.Method), "Distribution method: lognormal|kde")
	f.Int64Var(&o.seed, "seed", defaults.Seed, "Random seed for deterministic runs")
	f.StringArrayVar(&o.criteria, "criterion", nil, `Criteria filter, repeatable (e.g. "Criteria_Viability>=0.9")`)
	f.BoolVar(&o.finalStep, "criteria-at-final", false, "Apply criteria to the final selection instead of up front")
}

// resolve merges scenario values with explicitly set flags
func (o *workflowOptions) resolve(cmd *cobra.Command) (*config.Scenario, error) {
	scenario := config.DefaultScenario()
	if o.scenario != "" {
		loaded, err := config.LoadScenario(o.scenario)
		if err != nil {
			return nil, err
		}
		scenario = *loaded
	}

	cfg := &scenario.Workflow
	f := cmd.Flags()
	if f.Changed("top-x") {
		cfg.TopXPercent = o.topX
	}
	if f.Changed("step1") {
		cfg.Step1Keep = o.step1
	}
	if f.Changed("step2") {
		cfg.Step2Keep = o.step2
	}
	if f.Changed("step3") {
		cfg.Step3Keep = o.step3
	}
	if f.Changed("steps") {
		cfg.WorkflowSteps = o.steps
	}
	if f.Changed("n-rep") {
		cfg.NRep = o.nRep
	}
	if f.Changed("correlation") {
		cfg.Correlation = o.rho
	}
	if f.Changed("method") {
		cfg.Method = workflow.ParseMethod(o.method)
	}
	if f.Changed("seed") {
		cfg.Seed = o.seed
	}
	if f.Changed("criteria-at-final") {
		cfg.ApplyCriteriaAtFinalStep = o.finalStep
	}
	if len(o.criteria) > 0 {
		cfg.Criteria = cfg.Criteria[:0:0]
		for _, raw := range o.criteria {
			crit, err := workflow.ParseCriterion(raw)
			if err != nil {
				return nil, err
			}
			cfg.Criteria = append(cfg.Criteria, crit)
		}
	}
	if o.dataFile != "" {
		scenario.DataFile = o.dataFile
	}
	if o.sheet != "" {
		scenario.Sheet = o.sheet
	}
	return &scenario, nil
}

// environment is what every command needs: the env config and the services
type environment struct {
	*container.Container
}

func newEnvironment() (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	c, err := container.New(cfg)
	if err != nil {
		return nil, err
	}
	return &environment{Container: c}, nil
}

func (e *environment) load(scenario *config.Scenario) (*excel.LoadResult, error) {
	path, sheet := scenario.DataFile, scenario.Sheet
	if path == "" {
		path = e.Config.Data.File
		if sheet == "" {
			sheet = e.Config.Data.Sheet
		}
	}
	if path == "" {
		return nil, fmt.Errorf("no data file: pass --data, set data_file in the scenario or DATA_FILE")
	}
	return excel.NewDataReader(path).LoadTable(sheet)
}

// prepare resolves options, builds services and loads data in one step
func prepare(cmd *cobra.Command, opts *workflowOptions) (*environment, *config.Scenario, *excel.LoadResult, error) {
	scenario, err := opts.resolve(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	env, err := newEnvironment()
	if err != nil {
		return nil, nil, nil, err
	}
	loaded, err := env.load(scenario)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load data: %w", err)
	}
	return env, scenario, loaded, nil
}
