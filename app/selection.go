package app

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// topK returns the positions of the k largest values, ordered by ascending value
func topK(values []float64, k int) []int {
	sorted := append([]float64(nil), values...)
	inds := make([]int, len(values))
	floats.Argsort(sorted, inds)
	return inds[len(inds)-k:]
}

func gather(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}

func gatherRows(rows []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}

func identityRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// keepMasked drops the entries whose mask is false, keeping values and rows aligned
func keepMasked(values []float64, rows []int, mask []bool) ([]float64, []int) {
	outV := make([]float64, 0, len(values))
	outR := make([]int, 0, len(rows))
	for i, ok := range mask {
		if ok {
			outV = append(outV, values[i])
			outR = append(outR, rows[i])
		}
	}
	return outV, outR
}

// correlatedMix builds the next-stage measurement rho*base + sqrt(1-rho^2)*noise
func correlatedMix(base, noise []float64, rho float64) []float64 {
	w := math.Sqrt(1 - rho*rho)
	out := make([]float64, len(base))
	for i := range base {
		out[i] = rho*base[i] + w*noise[i]
	}
	return out
}
