package workflow

import (
	"fmt"

	"cloneselect/domain/core"
)

// Validate checks every precondition that must hold before any trial runs.
// The returned error wraps core.ErrInvalidConfiguration (or the method /
// operator sentinels) and names the violated constraint.
func (c Config) Validate(sampleSize int) error {
	if sampleSize == 0 {
		return core.NewConfigurationError("observed sample is empty")
	}
	if c.WorkflowSteps != 2 && c.WorkflowSteps != 3 {
		return core.NewConfigurationError("workflow steps must be 2 or 3, got %d", c.WorkflowSteps)
	}
	if c.Step1Keep <= 0 || c.Step2Keep <= 0 || (c.WorkflowSteps == 3 && c.Step3Keep <= 0) {
		return core.NewConfigurationError("all keep values must be positive (step1=%d, step2=%d, step3=%d)",
			c.Step1Keep, c.Step2Keep, c.Step3Keep)
	}
	if c.Step1Keep > sampleSize {
		return core.NewConfigurationError("step 1 keep (%d) cannot exceed data size (%d)", c.Step1Keep, sampleSize)
	}
	if c.Step2Keep > c.Step1Keep {
		return core.NewConfigurationError("step 2 keep (%d) cannot exceed step 1 keep (%d)", c.Step2Keep, c.Step1Keep)
	}
	if c.WorkflowSteps == 3 && c.Step3Keep > c.Step2Keep {
		return core.NewConfigurationError("step 3 keep (%d) cannot exceed step 2 keep (%d)", c.Step3Keep, c.Step2Keep)
	}
	if c.TopXPercent < 1 || c.TopXPercent > 100 {
		return core.NewConfigurationError("top x percent must be within [1, 100], got %g", c.TopXPercent)
	}
	if c.Correlation < 0 || c.Correlation > 1 {
		return core.NewConfigurationError("correlation must be within [0, 1], got %g", c.Correlation)
	}
	if c.NRep <= 0 {
		return core.NewConfigurationError("n_rep must be positive, got %d", c.NRep)
	}
	if !c.Method.Valid() {
		return core.NewUnsupportedMethodError(string(c.Method))
	}
	for _, crit := range c.Criteria {
		if !crit.Operator.Valid() {
			return core.NewUnsupportedOperatorError(string(crit.Operator))
		}
	}
	return nil
}

// ParameterReport collects blocking errors and advisory warnings about a
// workflow configuration against a concrete dataset.
type ParameterReport struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// OK reports whether the configuration has no blocking errors
func (r ParameterReport) OK() bool {
	return len(r.Errors) == 0
}

// ValidateParameters checks keep-counts for logical consistency and flags
// choices that tend to produce poor selections.
func ValidateParameters(c Config, totalClones int) ParameterReport {
	report := ParameterReport{Errors: []string{}, Warnings: []string{}}

	if c.Step1Keep > totalClones {
		report.Errors = append(report.Errors, fmt.Sprintf("Step 1 keep (%d) exceeds available clones (%d)", c.Step1Keep, totalClones))
	}
	if c.Step2Keep > c.Step1Keep {
		report.Errors = append(report.Errors, fmt.Sprintf("Step 2 keep (%d) cannot exceed step 1 keep (%d)", c.Step2Keep, c.Step1Keep))
	}
	if c.WorkflowSteps == 3 && c.Step3Keep > c.Step2Keep {
		report.Errors = append(report.Errors, fmt.Sprintf("Step 3 keep (%d) cannot exceed step 2 keep (%d)", c.Step3Keep, c.Step2Keep))
	}
	if c.Step1Keep <= 0 || c.Step2Keep <= 0 || c.Step3Keep <= 0 {
		report.Errors = append(report.Errors, "All keep values must be positive")
	}

	if c.Step1Keep < 10 {
		report.Warnings = append(report.Warnings, "Step 1 keep is very small (< 10), which may lead to poor selection")
	}
	if c.Step2Keep < 5 {
		report.Warnings = append(report.Warnings, "Step 2 keep is very small (< 5), which may lead to poor selection")
	}
	if c.FinalKeep() < 3 {
		report.Warnings = append(report.Warnings, "Final selection is very small (< 3), consider increasing")
	}
	if c.Step2Keep > 0 && float64(c.Step1Keep)/float64(c.Step2Keep) < 2 {
		report.Warnings = append(report.Warnings, "Step 1 to Step 2 reduction ratio is low (< 2)")
	}
	if c.WorkflowSteps == 3 && c.Step3Keep > 0 && float64(c.Step2Keep)/float64(c.Step3Keep) < 2 {
		report.Warnings = append(report.Warnings, "Step 2 to Step 3 reduction ratio is low (< 2)")
	}

	return report
}
