package distribution

import (
	"math"
	"sort"

	"cloneselect/domain/core"
)

// Percentile returns the p-th percentile (0..100) of data using linear
// interpolation between closest ranks: position p/100*(n-1) in the sorted
// sample, the same definition as numpy's default percentile.
func Percentile(data []float64, p float64) (float64, error) {
	if len(data) == 0 {
		return math.NaN(), core.NewInvalidDataError("percentile of empty sample")
	}
	if p < 0 || p > 100 || math.IsNaN(p) {
		return math.NaN(), core.NewInvalidDataError("percentile must be within [0, 100]")
	}

	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)

	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], nil
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo]), nil
}

// SuccessCutoff is the (100 - topXPercent)-th percentile of the observed sample
func SuccessCutoff(observed []float64, topXPercent float64) (float64, error) {
	return Percentile(observed, 100-topXPercent)
}
