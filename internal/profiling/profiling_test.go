package profiling

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cloneselect/domain/clone"
	"cloneselect/domain/core"
	"cloneselect/domain/workflow"
)

func TestProfile_Summary(t *testing.T) {
	table, err := clone.NewTable(
		[]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100},
		map[string][]float64{"Criteria_Viability": {1, 1, math.NaN(), 1, 1, 1, 1, 1, math.NaN(), 0.2}},
	)
	require.NoError(t, err)

	p, err := Profile(table, 12)
	require.NoError(t, err)

	assert.Equal(t, 12, p.Summary.TotalRows)
	assert.Equal(t, 10, p.Summary.ValidResults)
	assert.Equal(t, 2, p.Summary.MissingResults)
	assert.InDelta(t, 14.5, p.Summary.Mean, 1e-12)
	assert.Equal(t, 1.0, p.Summary.Min)
	assert.Equal(t, 100.0, p.Summary.Max)
	assert.Equal(t, 5.5, p.Summary.Median)
	assert.InDelta(t, 3.25, p.Summary.Q1, 1e-12)
	assert.InDelta(t, 7.75, p.Summary.Q3, 1e-12)

	assert.Equal(t, 1, p.Quality.Outliers)
	assert.Greater(t, p.Quality.Skewness, 2.0)
	assert.True(t, p.Quality.Skewed)

	require.Len(t, p.Criteria, 1)
	assert.Equal(t, "Criteria_Viability", p.Criteria[0].Column)
	assert.Equal(t, 8, p.Criteria[0].Valid)
	assert.Equal(t, 1.0, p.Criteria[0].Median)
}

func TestProfile_SymmetricData(t *testing.T) {
	table, err := clone.NewTable([]float64{1, 2, 3, 4, 5}, nil)
	require.NoError(t, err)

	p, err := Profile(table, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Summary.TotalRows)
	assert.InDelta(t, 0, p.Quality.Skewness, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), p.Summary.StdDev, 1e-12)
	assert.Zero(t, p.Quality.Outliers)
	assert.False(t, p.Quality.Skewed)
	assert.Empty(t, p.Criteria)
}

func TestProfile_Empty(t *testing.T) {
	_, err := Profile(nil, 3)
	assert.ErrorIs(t, err, core.ErrInvalidData)
}

func TestRecommendations(t *testing.T) {
	tests := []struct {
		name     string
		profile  DataProfile
		expected []string
	}{
		{
			name: "large skewed with criteria",
			profile: DataProfile{
				Summary:  Summary{ValidResults: 2500},
				Quality:  Quality{Skewness: 2.5, Outliers: 3},
				Criteria: []CriteriaSummary{{Column: "Criteria_A"}},
			},
			expected: []string{
				"Large dataset detected: consider using 96-192 clones in Step 1",
				"Criteria columns found: consider using filtering to improve selection quality",
				"Highly skewed data: consider using KDE instead of lognormal distribution",
				"3 potential outliers detected in Results",
			},
		},
		{
			name:    "medium moderately skewed",
			profile: DataProfile{Summary: Summary{ValidResults: 1000}, Quality: Quality{Skewness: -1.5}},
			expected: []string{
				"Medium dataset detected: consider using 48-96 clones in Step 1",
				"No criteria columns: consider adding quality criteria for better filtering",
				"Moderately skewed data: both lognormal and KDE should work well",
			},
		},
		{
			name:    "small normal-like",
			profile: DataProfile{Summary: Summary{ValidResults: 999}, Quality: Quality{Skewness: 0.3}},
			expected: []string{
				"Small dataset detected: consider using 24-48 clones in Step 1",
				"No criteria columns: consider adding quality criteria for better filtering",
				"Normal-like data: lognormal distribution should work well",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Recommendations(&tt.profile))
		})
	}
}

func TestSuggestedMethod(t *testing.T) {
	assert.Equal(t, workflow.MethodKDE, SuggestedMethod(2.1))
	assert.Equal(t, workflow.MethodKDE, SuggestedMethod(-3))
	assert.Equal(t, workflow.MethodLognormal, SuggestedMethod(1.5))
}
