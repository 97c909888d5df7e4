package workflow

import (
	"fmt"
	"strconv"
	"strings"
)

// Method selects how synthetic assay values are drawn
type Method string

const (
	MethodLognormal Method = "lognormal"
	MethodKDE       Method = "kde"
)

// Valid reports whether the method is one the generator understands
func (m Method) Valid() bool {
	return m == MethodLognormal || m == MethodKDE
}

// ParseMethod normalizes user input ("LogNormal", " kde ") into a Method.
// Unknown strings are returned as-is so the generator can reject them.
func ParseMethod(s string) Method {
	return Method(strings.ToLower(strings.TrimSpace(s)))
}

// Operator is a criteria comparison
type Operator string

const (
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "="
)

// EqualityEpsilon is the tolerance used by OpEqual
const EqualityEpsilon = 1e-10

// Valid reports whether the operator is supported
func (o Operator) Valid() bool {
	return o == OpGreaterEqual || o == OpLessEqual || o == OpEqual
}

// Criterion is a single threshold predicate over a criteria column
type Criterion struct {
	Column    string   `json:"column" yaml:"column"`
	Operator  Operator `json:"operator" yaml:"operator"`
	Threshold float64  `json:"threshold" yaml:"threshold"`
}

func (c Criterion) String() string {
	return fmt.Sprintf("%s %s %g", c.Column, c.Operator, c.Threshold)
}

// ParseCriterion reads "Column>=0.9", "Column <= 3" or "Column=1"
func ParseCriterion(s string) (Criterion, error) {
	for _, op := range []Operator{OpGreaterEqual, OpLessEqual, OpEqual} {
		idx := strings.Index(s, string(op))
		if idx < 0 {
			continue
		}
		column := strings.TrimSpace(s[:idx])
		raw := strings.TrimSpace(s[idx+len(op):])
		if column == "" {
			return Criterion{}, fmt.Errorf("criterion %q has no column", s)
		}
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Criterion{}, fmt.Errorf("criterion %q has invalid threshold %q", s, raw)
		}
		return Criterion{Column: column, Operator: op, Threshold: threshold}, nil
	}
	return Criterion{}, fmt.Errorf("criterion %q needs one of >=, <=, =", s)
}

// Config holds the immutable per-run parameters of a selection workflow
type Config struct {
	TopXPercent              float64     `json:"top_x_percent" yaml:"top_x_percent"`
	Step1Keep                int         `json:"step1_keep" yaml:"step1_keep"`
	Step2Keep                int         `json:"step2_keep" yaml:"step2_keep"`
	Step3Keep                int         `json:"step3_keep" yaml:"step3_keep"`
	Correlation              float64     `json:"correlation" yaml:"correlation"`
	NRep                     int         `json:"n_rep" yaml:"n_rep"`
	Method                   Method      `json:"distribution_method" yaml:"distribution_method"`
	Criteria                 []Criterion `json:"criteria_settings,omitempty" yaml:"criteria_settings,omitempty"`
	ApplyCriteriaAtFinalStep bool        `json:"apply_criteria_at_final_step" yaml:"apply_criteria_at_final_step"`
	WorkflowSteps            int         `json:"workflow_steps" yaml:"workflow_steps"`
	Seed                     int64       `json:"seed" yaml:"seed"`
}

// DefaultConfig mirrors the defaults offered to users of the dashboard
func DefaultConfig() Config {
	return Config{
		TopXPercent:   2,
		Step1Keep:     96,
		Step2Keep:     48,
		Step3Keep:     48,
		Correlation:   0.5,
		NRep:          1000,
		Method:        MethodLognormal,
		WorkflowSteps: 2,
		Seed:          42,
	}
}

// FinalKeep is the number of clones that survive the last stage
func (c Config) FinalKeep() int {
	if c.WorkflowSteps == 3 {
		return c.Step3Keep
	}
	return c.Step2Keep
}

// Normalize returns a copy with the 2-step alias applied (step3 = step2) and
// the criteria slice detached from the caller's backing array.
func (c Config) Normalize() Config {
	out := c
	if out.WorkflowSteps == 2 {
		out.Step3Keep = out.Step2Keep
	}
	if len(c.Criteria) > 0 {
		out.Criteria = append([]Criterion(nil), c.Criteria...)
	}
	return out
}

// FittedModel is the parameter set fitted once per simulation run.
// For lognormal it carries shape (sigma of the log), location and scale
// (exp of the log mean). KDE runs return no model.
type FittedModel struct {
	Method Method  `json:"method"`
	Shape  float64 `json:"shape"`
	Loc    float64 `json:"loc"`
	Scale  float64 `json:"scale"`
}

// TrialOutcome is the record of one repetition that ran to completion
type TrialOutcome struct {
	SuccessCount    int
	FullySuccessful bool
}

// Result aggregates all trials of one simulate call
type Result struct {
	Probability     float64      `json:"probability"`
	Model           *FittedModel `json:"fitted_model,omitempty"`
	SuccessCounts   []int        `json:"success_counts"`
	Cutoff          float64      `json:"success_cutoff"`
	Correlation     float64      `json:"correlation"`
	FinalKeep       int          `json:"final_keep"`
	NRep            int          `json:"n_rep"`
	SkippedTrials   int          `json:"skipped_trials"`
	SuccessfulCount int          `json:"fully_successful_trials"`
}

// CompletedTrials is the number of trials that produced an outcome
func (r *Result) CompletedTrials() int {
	return len(r.SuccessCounts)
}

// SensitivityCurve holds the tested values of one swept parameter and the
// resulting probabilities, index-aligned.
type SensitivityCurve struct {
	Values        []float64 `json:"values"`
	Probabilities []float64 `json:"probabilities"`
}

// Efficiency summarizes how aggressively a workflow narrows the population
type Efficiency struct {
	ReductionRatio    float64 `json:"reduction_ratio"`
	Step1Efficiency   float64 `json:"step1_efficiency"`
	Step2Efficiency   float64 `json:"step2_efficiency"`
	OverallEfficiency float64 `json:"overall_efficiency"`
}
