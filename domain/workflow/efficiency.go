package workflow

import (
	"cloneselect/domain/core"
)

// WorkflowEfficiency computes the narrowing ratios of a keep-count plan.
// In a 2-step workflow the final selection is step2Keep and the second
// stage efficiency is reported as 1.
func WorkflowEfficiency(step1Keep, step2Keep, step3Keep, workflowSteps int) (Efficiency, error) {
	if step1Keep <= 0 || step2Keep <= 0 || (workflowSteps == 3 && step3Keep <= 0) {
		return Efficiency{}, core.NewConfigurationError("all keep values must be positive")
	}

	final := step2Keep
	step2Eff := 1.0
	if workflowSteps == 3 {
		final = step3Keep
		step2Eff = float64(step3Keep) / float64(step2Keep)
	}

	return Efficiency{
		ReductionRatio:    float64(step1Keep) / float64(final),
		Step1Efficiency:   float64(step2Keep) / float64(step1Keep),
		Step2Efficiency:   step2Eff,
		OverallEfficiency: float64(final) / float64(step1Keep),
	}, nil
}
