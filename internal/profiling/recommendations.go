package profiling

import (
	"fmt"
	"math"

	"cloneselect/domain/workflow"
)

// Step1Range suggests how many clones to carry out of the first assay for a
// dataset of the given size.
func Step1Range(clones int) (lo, hi int) {
	switch {
	case clones >= 2000:
		return 96, 192
	case clones >= 1000:
		return 48, 96
	default:
		return 24, 48
	}
}

// SuggestedMethod picks KDE for highly skewed data and lognormal otherwise
func SuggestedMethod(skewness float64) workflow.Method {
	if math.Abs(skewness) > 2 {
		return workflow.MethodKDE
	}
	return workflow.MethodLognormal
}

// Recommendations turns a profile into advice about workflow setup
func Recommendations(p *DataProfile) []string {
	var out []string

	lo, hi := Step1Range(p.Summary.ValidResults)
	size := "Small"
	switch {
	case p.Summary.ValidResults >= 2000:
		size = "Large"
	case p.Summary.ValidResults >= 1000:
		size = "Medium"
	}
	out = append(out, fmt.Sprintf("%s dataset detected: consider using %d-%d clones in Step 1", size, lo, hi))

	if len(p.Criteria) > 0 {
		out = append(out, "Criteria columns found: consider using filtering to improve selection quality")
	} else {
		out = append(out, "No criteria columns: consider adding quality criteria for better filtering")
	}

	skew := math.Abs(p.Quality.Skewness)
	switch {
	case skew > 2:
		out = append(out, "Highly skewed data: consider using KDE instead of lognormal distribution")
	case skew > 1:
		out = append(out, "Moderately skewed data: both lognormal and KDE should work well")
	default:
		out = append(out, "Normal-like data: lognormal distribution should work well")
	}

	if p.Quality.Outliers > 0 {
		out = append(out, fmt.Sprintf("%d potential outliers detected in Results", p.Quality.Outliers))
	}
	return out
}
