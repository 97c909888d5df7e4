// Package distribution fits assay-value models and draws synthetic samples
// from them. Both the whole-population resample and the per-stage noise
// vectors of a simulation go through the same Sampler contract.
package distribution

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"cloneselect/domain/core"
	"cloneselect/domain/workflow"
)

// PositiveOnly returns the strictly positive values of data, in order
func PositiveOnly(data []float64) []float64 {
	out := make([]float64, 0, len(data))
	for _, v := range data {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}

// FitLognormal fits a two-parameter lognormal (location fixed at 0) by
// maximum likelihood. Non-positive values are discarded first.
func FitLognormal(data []float64) (*workflow.FittedModel, error) {
	positive := PositiveOnly(data)
	if len(positive) == 0 {
		return nil, core.NewInvalidDataError("no positive data points for lognormal fitting")
	}

	logs := make([]float64, len(positive))
	for i, v := range positive {
		logs[i] = math.Log(v)
	}

	// With loc fixed the MLE is closed form: mu and the population sigma of log(x)
	mu, sigma := stat.PopMeanStdDev(logs, nil)

	return &workflow.FittedModel{
		Method: workflow.MethodLognormal,
		Shape:  sigma,
		Loc:    0,
		Scale:  math.Exp(mu),
	}, nil
}
