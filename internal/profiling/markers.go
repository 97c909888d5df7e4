package profiling

// Summary holds descriptive statistics of the Results column
type Summary struct {
	TotalRows      int     `json:"total_rows"`
	ValidResults   int     `json:"valid_results"`
	MissingResults int     `json:"missing_results"`
	Mean           float64 `json:"mean"`
	StdDev         float64 `json:"std_dev"` // sample (n-1)
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	Median         float64 `json:"median"`
	Q1             float64 `json:"q1"`
	Q3             float64 `json:"q3"`
}

// Quality flags properties of the Results column that affect model choice
type Quality struct {
	Outliers int     `json:"outliers"` // outside 1.5 IQR of the quartiles
	Skewness float64 `json:"skewness"`
	Skewed   bool    `json:"skewed"` // |skewness| > 1
}

// CriteriaSummary counts usable values in one criteria column
type CriteriaSummary struct {
	Column string  `json:"column"`
	Valid  int     `json:"valid"`
	Median float64 `json:"median"`
}

// DataProfile is the loader-side report shown before a simulation is run
type DataProfile struct {
	Summary  Summary           `json:"summary"`
	Quality  Quality           `json:"quality"`
	Criteria []CriteriaSummary `json:"criteria"`
}
