package table

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRecords(t *testing.T) {
	tab := FromRecords([]map[string]any{
		{"name": "a", "value": 1.0},
		{"name": "b", "value": 2.0},
	})
	assert.Equal(t, []string{"name", "value"}, tab.Columns())
	assert.Equal(t, 2, tab.Len())
	assert.Equal(t, "b", tab.Cell(1, "name"))
}

func TestFromColumns(t *testing.T) {
	tab := FromColumns(map[string]map[string]any{
		"temp": {"1": 20.5, "2": 21.0},
		"rh":   {"1": 60.0, "2": 65.0},
	})
	assert.Equal(t, []string{"rh", "temp"}, tab.Columns())
	assert.Equal(t, []any{1.0, 2.0}, tab.Index())
	assert.Equal(t, 21.0, tab.Cell(1, "temp"))
}

func TestFromJSON_DetectsShape(t *testing.T) {
	recs, err := FromJSON(json.RawMessage(`[{"x":1},{"x":2}]`))
	require.NoError(t, err)
	assert.Equal(t, 2, recs.Len())

	cols, err := FromJSON(json.RawMessage(`{"x":{"a":1,"b":2}}`))
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, cols.Index())

	_, err = FromJSON(json.RawMessage(`"scalar"`))
	assert.Error(t, err)
}

func TestSetIndex(t *testing.T) {
	tab := FromRecords([]map[string]any{
		{"id": "x", "v": 1.0},
		{"id": "y", "v": 2.0},
	})
	indexed, err := tab.SetIndex("id")
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, indexed.Index())
	assert.Equal(t, []string{"v"}, indexed.Columns())

	_, err = tab.SetIndex("missing")
	assert.Error(t, err)
}

func TestMerge_OnKeyColumn(t *testing.T) {
	left := FromRecords([]map[string]any{
		{"ts": 1.0, "temp": 20.0},
		{"ts": 2.0, "temp": 21.0},
	})
	right := FromRecords([]map[string]any{
		{"ts": 2.0, "rh": 65.0},
		{"ts": 3.0, "rh": 70.0},
	})

	merged, err := Merge([]*Table{left, right}, "ts")
	require.NoError(t, err)
	assert.Equal(t, []string{"temp", "rh"}, merged.Columns())
	assert.Equal(t, 3, merged.Len())
	// ts=2 row carries both columns, ts=3 only rh.
	assert.Equal(t, 21.0, merged.Cell(1, "temp"))
	assert.Equal(t, 65.0, merged.Cell(1, "rh"))
	assert.Nil(t, merged.Cell(2, "temp"))
	assert.Equal(t, 70.0, merged.Cell(2, "rh"))
}

func TestMerge_KeepsSameNamedColumns(t *testing.T) {
	left := FromRecords([]map[string]any{
		{"key": "a", "value": 1.0},
		{"key": "b", "value": 2.0},
	})
	right := FromRecords([]map[string]any{
		{"key": "a", "value": 10.0},
		{"key": "b", "value": 20.0},
	})

	merged, err := Merge([]*Table{left, right}, "key")
	require.NoError(t, err)
	assert.Equal(t, []string{"value", "value"}, merged.Columns())
	// Both tables' values stay addressable by column position.
	assert.Equal(t, 1.0, merged.CellAt(0, 0))
	assert.Equal(t, 10.0, merged.CellAt(0, 1))
	assert.Equal(t, 2.0, merged.CellAt(1, 0))
	assert.Equal(t, 20.0, merged.CellAt(1, 1))
	// Name lookup resolves to the first table's column.
	assert.Equal(t, 1.0, merged.Cell(0, "value"))
}

func TestMerge_HomogenizesMixedIndexTypes(t *testing.T) {
	numeric := FromRecords([]map[string]any{
		{"ts": 1.0, "a": 10.0},
	})
	stringly := FromRecords([]map[string]any{
		{"ts": "1", "b": 99.0},
	})

	merged, err := Merge([]*Table{numeric, stringly}, "ts")
	require.NoError(t, err)
	// "1" coerces to 1.0, so both columns land on one row.
	assert.Equal(t, 1, merged.Len())
	assert.Equal(t, 10.0, merged.Cell(0, "a"))
	assert.Equal(t, 99.0, merged.Cell(0, "b"))
}

func TestMerge_DefaultIndexKeepsOrdinals(t *testing.T) {
	a := FromRecords([]map[string]any{{"a": 1.0}, {"a": 2.0}})
	b := FromRecords([]map[string]any{{"b": 3.0}, {"b": 4.0}})

	merged, err := Merge([]*Table{a, b}, DefaultIndex)
	require.NoError(t, err)
	assert.Equal(t, 2, merged.Len())
	assert.Equal(t, 1.0, merged.Cell(0, "a"))
	assert.Equal(t, 3.0, merged.Cell(0, "b"))
}

func TestMerge_Idempotent(t *testing.T) {
	build := func() []*Table {
		return []*Table{
			FromRecords([]map[string]any{{"ts": 1.0, "a": 10.0}}),
			FromRecords([]map[string]any{{"ts": 1.0, "b": 20.0}}),
		}
	}
	first, err := Merge(build(), "ts")
	require.NoError(t, err)
	second, err := Merge(build(), "ts")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMerge_MissingIndexColumn(t *testing.T) {
	_, err := Merge([]*Table{FromRecords([]map[string]any{{"a": 1.0}})}, "ts")
	assert.Error(t, err)
}
