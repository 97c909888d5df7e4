package profiling

import (
	"math"

	"github.com/montanaflynn/stats"

	"cloneselect/adapters/stats/distribution"
	"cloneselect/domain/clone"
	"cloneselect/domain/core"
)

// Profile summarizes a loaded clone table. totalRows is the row count
// before invalid Results were dropped; values below table.Len() are raised
// to it.
func Profile(table *clone.Table, totalRows int) (*DataProfile, error) {
	data := table.Results()
	if len(data) == 0 {
		return nil, core.NewInvalidDataError("no valid Results values to profile")
	}
	if totalRows < len(data) {
		totalRows = len(data)
	}

	summary, err := summarize(data)
	if err != nil {
		return nil, err
	}
	summary.TotalRows = totalRows
	summary.ValidResults = len(data)
	summary.MissingResults = totalRows - len(data)

	popStdDev, err := stats.StandardDeviationPopulation(data)
	if err != nil {
		return nil, err
	}
	skewness := calculateSkewness(data, summary.Mean, popStdDev)

	profile := &DataProfile{
		Summary: *summary,
		Quality: Quality{
			Outliers: detectOutliers(data, summary.Q1, summary.Q3),
			Skewness: skewness,
			Skewed:   math.Abs(skewness) > 1,
		},
	}

	for _, name := range table.CriteriaColumns() {
		values, _ := table.Column(name)
		valid := 0
		for _, v := range values {
			if !math.IsNaN(v) {
				valid++
			}
		}
		profile.Criteria = append(profile.Criteria, CriteriaSummary{
			Column: name,
			Valid:  valid,
			Median: table.ColumnMedian(name),
		})
	}

	return profile, nil
}

func summarize(data stats.Float64Data) (*Summary, error) {
	mean, err := data.Mean()
	if err != nil {
		return nil, err
	}
	min, err := data.Min()
	if err != nil {
		return nil, err
	}
	max, err := data.Max()
	if err != nil {
		return nil, err
	}
	median, err := data.Median()
	if err != nil {
		return nil, err
	}

	stdDev := 0.0
	if len(data) > 1 {
		if stdDev, err = data.StandardDeviationSample(); err != nil {
			return nil, err
		}
	}

	// linear interpolation between closest ranks, same as the success cutoff
	q1, err := distribution.Percentile(data, 25)
	if err != nil {
		return nil, err
	}
	q3, err := distribution.Percentile(data, 75)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Mean:   mean,
		StdDev: stdDev,
		Min:    min,
		Max:    max,
		Median: median,
		Q1:     q1,
		Q3:     q3,
	}, nil
}

// calculateSkewness computes sample skewness using the adjusted Fisher-Pearson coefficient
func calculateSkewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}

	n := float64(len(data))
	sumCubedDeviations := 0.0
	for _, x := range data {
		deviation := (x - mean) / stdDev
		sumCubedDeviations += deviation * deviation * deviation
	}

	skewness := sumCubedDeviations / n
	return skewness * math.Sqrt(n*(n-1)) / (n - 2)
}

// detectOutliers counts values outside the 1.5 IQR fences
func detectOutliers(data []float64, q1, q3 float64) int {
	iqr := q3 - q1
	lowerBound := q1 - 1.5*iqr
	upperBound := q3 + 1.5*iqr

	outlierCount := 0
	for _, x := range data {
		if x < lowerBound || x > upperBound {
			outlierCount++
		}
	}
	return outlierCount
}
