package clone

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
)

// ResultsColumn is the name of the measured assay column
const ResultsColumn = "Results"

// Table is a row-indexed view of the clone population. Row positions
// 0..Len()-1 are stable and are the key used to look criteria attributes up
// after selections have been composed across stages.
type Table struct {
	results  []float64
	criteria map[string][]float64
	order    []string
}

// NewTable builds a table from a Results column and optional criteria
// columns. Every criteria column must have one value per result row.
func NewTable(results []float64, criteria map[string][]float64) (*Table, error) {
	t := &Table{
		results:  append([]float64(nil), results...),
		criteria: make(map[string][]float64, len(criteria)),
	}
	for name, values := range criteria {
		if len(values) != len(results) {
			return nil, fmt.Errorf("criteria column %q has %d values, expected %d", name, len(values), len(results))
		}
		t.criteria[name] = append([]float64(nil), values...)
		t.order = append(t.order, name)
	}
	sort.Strings(t.order)
	return t, nil
}

// Len returns the number of clone rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.results)
}

// Results returns a copy of the Results column
func (t *Table) Results() []float64 {
	if t == nil {
		return nil
	}
	return append([]float64(nil), t.results...)
}

// CriteriaColumns lists criteria column names in sorted order
func (t *Table) CriteriaColumns() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.order...)
}

// HasColumn reports whether a criteria column exists
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.criteria[name]
	return ok
}

// Column returns a copy of a criteria column
func (t *Table) Column(name string) ([]float64, bool) {
	if t == nil {
		return nil, false
	}
	col, ok := t.criteria[name]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), col...), true
}

// Value looks up a criteria attribute. ok is false when the column does not
// exist; an out-of-range row is an error.
func (t *Table) Value(row int, column string) (value float64, ok bool, err error) {
	if t == nil {
		return 0, false, nil
	}
	col, exists := t.criteria[column]
	if !exists {
		return 0, false, nil
	}
	if row < 0 || row >= len(col) {
		return 0, true, fmt.Errorf("row %d out of range [0, %d)", row, len(col))
	}
	return col[row], true, nil
}

// ColumnMedian returns the median of the non-NaN values of a criteria column,
// used as the suggested default threshold for a new criterion.
func (t *Table) ColumnMedian(name string) float64 {
	col, ok := t.Column(name)
	if !ok {
		return 0
	}
	valid := col[:0]
	for _, v := range col {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	median, err := stats.Median(valid)
	if err != nil {
		return 0
	}
	return median
}

// IsCriteriaColumn reports whether a header names a criteria attribute
func IsCriteriaColumn(header string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(header)), "criteria")
}
