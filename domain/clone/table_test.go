package clone

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable(t *testing.T) {
	results := []float64{3, 1, 2}
	table, err := NewTable(results, map[string][]float64{
		"Criteria_B": {0, 1, 0},
		"Criteria_A": {0.5, 0.9, math.NaN()},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"Criteria_A", "Criteria_B"}, table.CriteriaColumns())
	assert.True(t, table.HasColumn("Criteria_B"))
	assert.False(t, table.HasColumn("Criteria_C"))

	results[0] = 99
	assert.Equal(t, []float64{3, 1, 2}, table.Results())

	col, ok := table.Column("Criteria_B")
	require.True(t, ok)
	col[0] = 7
	v, ok, err := table.Value(0, "Criteria_B")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestNewTable_MismatchedColumn(t *testing.T) {
	_, err := NewTable([]float64{1, 2}, map[string][]float64{"Criteria_A": {1}})
	assert.Error(t, err)
}

func TestTable_Value(t *testing.T) {
	table, err := NewTable([]float64{1, 2}, map[string][]float64{"Criteria_A": {5, 6}})
	require.NoError(t, err)

	_, ok, err := table.Value(0, "Criteria_X")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = table.Value(2, "Criteria_A")
	assert.True(t, ok)
	assert.Error(t, err)

	var nilTable *Table
	assert.Zero(t, nilTable.Len())
	assert.Nil(t, nilTable.Results())
	_, ok, err = nilTable.Value(0, "Criteria_A")
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestColumnMedian(t *testing.T) {
	table, err := NewTable([]float64{1, 2, 3, 4}, map[string][]float64{
		"Criteria_A": {4, math.NaN(), 1, 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, table.ColumnMedian("Criteria_A"))
	assert.Zero(t, table.ColumnMedian("Criteria_Missing"))

	col, _ := table.Column("Criteria_A")
	assert.True(t, math.IsNaN(col[1]))
}

func TestIsCriteriaColumn(t *testing.T) {
	assert.True(t, IsCriteriaColumn("Criteria_Viability"))
	assert.True(t, IsCriteriaColumn(" criteria titer"))
	assert.False(t, IsCriteriaColumn("Results"))
	assert.False(t, IsCriteriaColumn("My_Criteria"))
}
