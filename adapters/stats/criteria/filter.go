package criteria

import (
	"math"

	"cloneselect/domain/clone"
	"cloneselect/domain/core"
	"cloneselect/domain/workflow"
)

// Passes evaluates the conjunction of criteria for each row position and
// returns a mask aligned with rows. Criteria naming a column the table does
// not have are ignored, so configurations built for richer tables keep
// working against tables missing optional columns.
func Passes(table *clone.Table, criteria []workflow.Criterion, rows []int) ([]bool, error) {
	mask := make([]bool, len(rows))
	for i := range mask {
		mask[i] = true
	}
	if len(criteria) == 0 {
		return mask, nil
	}

	for _, crit := range criteria {
		if !table.HasColumn(crit.Column) {
			continue
		}
		if !crit.Operator.Valid() {
			return nil, core.NewUnsupportedOperatorError(string(crit.Operator))
		}
		for i, row := range rows {
			value, _, err := table.Value(row, crit.Column)
			if err != nil {
				return nil, core.NewInvalidDataError(err.Error())
			}
			mask[i] = mask[i] && compare(value, crit.Operator, crit.Threshold)
		}
	}
	return mask, nil
}

// AllPass reports whether every entry of mask is true
func AllPass(mask []bool) bool {
	for _, ok := range mask {
		if !ok {
			return false
		}
	}
	return true
}

func compare(value float64, op workflow.Operator, threshold float64) bool {
	switch op {
	case workflow.OpGreaterEqual:
		return value >= threshold
	case workflow.OpLessEqual:
		return value <= threshold
	case workflow.OpEqual:
		return math.Abs(value-threshold) < workflow.EqualityEpsilon
	}
	return false
}
