package distribution

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"cloneselect/domain/core"
	"cloneselect/domain/workflow"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 7))
}

// lognormalData draws n values with log-mean mu and log-sigma sigma
func lognormalData(n int, mu, sigma float64, seed uint64) []float64 {
	r := newRand(seed)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Exp(mu + sigma*r.NormFloat64())
	}
	return out
}

func TestFitLognormal_RecoversParameters(t *testing.T) {
	data := lognormalData(5000, 0, 0.5, 1)

	model, err := FitLognormal(data)
	require.NoError(t, err)

	assert.Equal(t, workflow.MethodLognormal, model.Method)
	assert.Equal(t, 0.0, model.Loc)
	assert.InDelta(t, 0.5, model.Shape, 0.02)
	assert.InDelta(t, 1.0, model.Scale, 0.03)
}

func TestFitLognormal_DiscardsNonPositive(t *testing.T) {
	withNoise := []float64{-3, 0, 1, math.E, math.E * math.E}
	clean := []float64{1, math.E, math.E * math.E}

	a, err := FitLognormal(withNoise)
	require.NoError(t, err)
	b, err := FitLognormal(clean)
	require.NoError(t, err)

	assert.InDelta(t, b.Shape, a.Shape, 1e-12)
	assert.InDelta(t, b.Scale, a.Scale, 1e-12)
	// logs are 0,1,2: mean 1, population sigma sqrt(2/3)
	assert.InDelta(t, math.E, a.Scale, 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3.0), a.Shape, 1e-12)
}

func TestFitLognormal_NoPositiveValues(t *testing.T) {
	_, err := FitLognormal([]float64{0, -1, -2})
	assert.ErrorIs(t, err, core.ErrInvalidData)

	_, err = FitLognormal(nil)
	assert.ErrorIs(t, err, core.ErrInvalidData)
}

func TestGenerate_Lognormal(t *testing.T) {
	data := lognormalData(2000, 0, 0.5, 2)

	out, err := Generate(newRand(3), data, 4000, workflow.MethodLognormal, nil)
	require.NoError(t, err)
	require.Len(t, out, 4000)

	logs := make([]float64, len(out))
	for i, v := range out {
		require.Greater(t, v, 0.0)
		logs[i] = math.Log(v)
	}
	mean, sd := stat.MeanStdDev(logs, nil)
	assert.InDelta(t, 0.0, mean, 0.05)
	assert.InDelta(t, 0.5, sd, 0.05)
}

func TestGenerate_ReusesSuppliedModel(t *testing.T) {
	model := &workflow.FittedModel{Method: workflow.MethodLognormal, Shape: 0.1, Scale: 100}

	// the data would fit to scale ~1; the supplied model must win
	out, err := Generate(newRand(4), []float64{1, 1.1, 0.9}, 500, workflow.MethodLognormal, model)
	require.NoError(t, err)

	mean := stat.Mean(out, nil)
	assert.InDelta(t, 100.0, mean, 5.0)
}

func TestGenerate_KDEKeepsNonPositive(t *testing.T) {
	data := []float64{-5, -4, -6, -5.5, -4.5}

	out, err := Generate(newRand(5), data, 1000, workflow.MethodKDE, nil)
	require.NoError(t, err)
	require.Len(t, out, 1000)
	assert.Less(t, stat.Mean(out, nil), 0.0)
}

func TestGenerate_LognormalAllNonPositive(t *testing.T) {
	_, err := Generate(newRand(6), []float64{-1, 0}, 10, workflow.MethodLognormal, nil)
	assert.ErrorIs(t, err, core.ErrInvalidData)
}

func TestGenerate_EmptyData(t *testing.T) {
	_, err := Generate(newRand(6), nil, 10, workflow.MethodKDE, nil)
	assert.ErrorIs(t, err, core.ErrInvalidData)
}

func TestGenerate_UnsupportedMethod(t *testing.T) {
	_, err := Generate(newRand(7), []float64{1, 2, 3}, 10, workflow.Method("gamma"), nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedMethod)
}

func TestGenerate_DeterministicUnderSeed(t *testing.T) {
	data := lognormalData(300, 1, 0.3, 8)

	for _, method := range []workflow.Method{workflow.MethodLognormal, workflow.MethodKDE} {
		a, err := Generate(newRand(9), data, 50, method, nil)
		require.NoError(t, err)
		b, err := Generate(newRand(9), data, 50, method, nil)
		require.NoError(t, err)
		assert.Equal(t, a, b, "method %s", method)
	}
}

func TestKDE_Bandwidth(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	k, err := NewKDE(data)
	require.NoError(t, err)

	expected := stat.StdDev(data, nil) * math.Pow(10, -0.2)
	assert.InDelta(t, expected, k.Bandwidth(), 1e-12)

	single, err := NewKDE([]float64{3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, single.Bandwidth())
	assert.Equal(t, []float64{3, 3}, single.Sample(newRand(1), 2))
}

func TestPercentile(t *testing.T) {
	data := []float64{4, 1, 3, 2, 5}

	cases := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{25, 2},
		{50, 3},
		{90, 4.6},
		{100, 5},
	}
	for _, tc := range cases {
		got, err := Percentile(data, tc.p)
		require.NoError(t, err)
		assert.InDelta(t, tc.want, got, 1e-12, "p=%v", tc.p)
	}

	_, err := Percentile(nil, 50)
	assert.ErrorIs(t, err, core.ErrInvalidData)
	_, err = Percentile(data, 101)
	assert.ErrorIs(t, err, core.ErrInvalidData)
}

func TestSuccessCutoff(t *testing.T) {
	data := make([]float64, 101)
	for i := range data {
		data[i] = float64(i)
	}
	cutoff, err := SuccessCutoff(data, 2)
	require.NoError(t, err)
	assert.InDelta(t, 98.0, cutoff, 1e-12)
}
