package distribution

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"cloneselect/domain/core"
	"cloneselect/domain/workflow"
)

// Sampler draws i.i.d. synthetic assay values
type Sampler interface {
	Sample(rng *rand.Rand, count int) []float64
}

// LognormalSampler draws from a fitted lognormal model
type LognormalSampler struct {
	model workflow.FittedModel
}

// NewLognormalSampler wraps a fitted model
func NewLognormalSampler(model workflow.FittedModel) *LognormalSampler {
	return &LognormalSampler{model: model}
}

// Sample draws count values
func (s *LognormalSampler) Sample(rng *rand.Rand, count int) []float64 {
	dist := distuv.LogNormal{
		Mu:    math.Log(s.model.Scale),
		Sigma: s.model.Shape,
		Src:   rng,
	}
	out := make([]float64, count)
	for i := range out {
		out[i] = s.model.Loc + dist.Rand()
	}
	return out
}

// KDE is a one-dimensional Gaussian kernel density estimate with Scott's
// bandwidth. Resampling picks a data point uniformly and perturbs it by a
// kernel-width normal draw.
type KDE struct {
	points    []float64
	bandwidth float64
}

// NewKDE builds the estimator. Values are used as-is (no positivity filter).
func NewKDE(data []float64) (*KDE, error) {
	if len(data) == 0 {
		return nil, core.NewInvalidDataError("no valid data points for sample generation")
	}
	points := append([]float64(nil), data...)

	bandwidth := 0.0
	if len(points) > 1 {
		sd := stat.StdDev(points, nil)
		if !math.IsNaN(sd) {
			bandwidth = sd * scottFactor(len(points))
		}
	}
	return &KDE{points: points, bandwidth: bandwidth}, nil
}

// scottFactor is n^(-1/(d+4)) for d = 1
func scottFactor(n int) float64 {
	return math.Pow(float64(n), -0.2)
}

// Bandwidth is the kernel standard deviation
func (k *KDE) Bandwidth() float64 {
	return k.bandwidth
}

// Sample draws count values
func (k *KDE) Sample(rng *rand.Rand, count int) []float64 {
	kernel := distuv.Normal{Mu: 0, Sigma: k.bandwidth, Src: rng}
	out := make([]float64, count)
	for i := range out {
		out[i] = k.points[rng.IntN(len(k.points))] + kernel.Rand()
	}
	return out
}

// NewSampler prepares a sampler for method. For lognormal a supplied model
// is reused, otherwise one is fitted from the positive values of data.
func NewSampler(data []float64, method workflow.Method, model *workflow.FittedModel) (Sampler, error) {
	switch method {
	case workflow.MethodLognormal:
		if len(PositiveOnly(data)) == 0 {
			return nil, core.NewInvalidDataError("no valid data points for sample generation")
		}
		if model == nil {
			fitted, err := FitLognormal(data)
			if err != nil {
				return nil, err
			}
			model = fitted
		}
		return NewLognormalSampler(*model), nil
	case workflow.MethodKDE:
		return NewKDE(data)
	default:
		return nil, core.NewUnsupportedMethodError(string(method))
	}
}

// Generate draws count synthetic values from data using method. It is the
// one-shot form of NewSampler followed by Sample.
func Generate(rng *rand.Rand, data []float64, count int, method workflow.Method, model *workflow.FittedModel) ([]float64, error) {
	sampler, err := NewSampler(data, method, model)
	if err != nil {
		return nil, err
	}
	return sampler.Sample(rng, count), nil
}
