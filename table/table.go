// Package table implements the row-oriented tables produced by data-surface
// responses and the column-wise merge applied to fan-out batches.
package table

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// DefaultIndex is the pseudo column name that keeps a table on its ordinal
// index instead of re-indexing on a key column.
const DefaultIndex = "_index"

// Table is a small column store: an ordered index plus columns whose values
// align with the index positions. Columns are positional, so a merge may
// carry several columns with the same name without losing any of them.
// Missing cells are nil.
type Table struct {
	index   []any
	columns []string
	cells   [][]any
	// ordinal marks a default 0..n-1 index, which never drives type
	// homogenization during a merge.
	ordinal bool
}

// Columns returns the column names in order.
func (t *Table) Columns() []string { return t.columns }

// Index returns the index labels in order.
func (t *Table) Index() []any { return t.index }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.index) }

// Cell returns the value at (index position, column name), nil when absent.
// With duplicate column names the first matching column wins; use CellAt to
// address the others.
func (t *Table) Cell(pos int, column string) any {
	for c, name := range t.columns {
		if name == column {
			return t.CellAt(pos, c)
		}
	}
	return nil
}

// CellAt returns the value at (index position, column position), nil when
// out of range.
func (t *Table) CellAt(pos, col int) any {
	if col < 0 || col >= len(t.cells) || pos < 0 || pos >= len(t.cells[col]) {
		return nil
	}
	return t.cells[col][pos]
}

// FromRecords builds a table from a list of row maps with an ordinal index.
// Columns are sorted by name so tables built from JSON are deterministic.
func FromRecords(records []map[string]any) *Table {
	names := map[string]bool{}
	for _, rec := range records {
		for k := range rec {
			names[k] = true
		}
	}
	columns := sortedKeys(names)

	t := &Table{columns: columns, cells: make([][]any, len(columns)), ordinal: true}
	for i, rec := range records {
		t.index = append(t.index, i)
		for c, col := range columns {
			t.cells[c] = append(t.cells[c], rec[col])
		}
	}
	return t
}

// FromColumns builds a table from column -> (index label -> value) maps,
// the shape pandas calls dict-of-dicts. Index labels are the union across
// columns, sorted with numeric awareness.
func FromColumns(cols map[string]map[string]any) *Table {
	names := map[string]bool{}
	labels := map[string]bool{}
	for col, values := range cols {
		names[col] = true
		for label := range values {
			labels[label] = true
		}
	}
	columns := sortedKeys(names)
	keys, typedLabels := sortedLabels(labels)

	t := &Table{columns: columns, cells: make([][]any, len(columns))}
	for i, key := range keys {
		t.index = append(t.index, typedLabels[i])
		for c, col := range columns {
			t.cells[c] = append(t.cells[c], cols[col][key])
		}
	}
	return t
}

// FromJSON decodes a response body into a table: a JSON array is treated as
// records, an object as dict-of-dicts columns.
func FromJSON(body json.RawMessage) (*Table, error) {
	var records []map[string]any
	if err := json.Unmarshal(body, &records); err == nil {
		return FromRecords(records), nil
	}
	var cols map[string]map[string]any
	if err := json.Unmarshal(body, &cols); err != nil {
		return nil, fmt.Errorf("body is neither records nor columns: %w", err)
	}
	return FromColumns(cols), nil
}

// SetIndex returns a copy of the table re-indexed on the given column. The
// column (first occurrence on duplicates) is removed from the data columns.
func (t *Table) SetIndex(column string) (*Table, error) {
	idx := -1
	for c, name := range t.columns {
		if name == column {
			idx = c
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("index column %q not found", column)
	}

	out := &Table{}
	out.index = append(out.index, t.cells[idx]...)
	for c, name := range t.columns {
		if c == idx {
			continue
		}
		out.columns = append(out.columns, name)
		out.cells = append(out.cells, append([]any(nil), t.cells[c]...))
	}
	return out, nil
}

// Merge concatenates tables column-wise into one combined table, preserving
// every original column; same-named columns from different tables stay as
// distinct positional columns. When on is not DefaultIndex each table is
// first re-indexed on that column. Mixed index types are homogenized to the
// first non-ordinal numeric index so labels like "3" and 3.0 line up. Merge
// is a pure function of its inputs.
func Merge(tables []*Table, on string) (*Table, error) {
	if len(tables) == 0 {
		return &Table{}, nil
	}

	prepared := make([]*Table, len(tables))
	for i, t := range tables {
		if on != "" && on != DefaultIndex {
			indexed, err := t.SetIndex(on)
			if err != nil {
				return nil, err
			}
			prepared[i] = indexed
		} else {
			prepared[i] = t
		}
	}

	if numericIndexPresent(prepared) {
		for _, t := range prepared {
			coerceNumericIndex(t)
		}
	}

	out := &Table{}
	positions := map[string]int{}
	for _, t := range prepared {
		for _, label := range t.index {
			key := labelKey(label)
			if _, seen := positions[key]; !seen {
				positions[key] = len(out.index)
				out.index = append(out.index, label)
			}
		}
	}

	for _, t := range prepared {
		for c, col := range t.columns {
			out.columns = append(out.columns, col)
			values := make([]any, len(out.index))
			for pos, label := range t.index {
				values[positions[labelKey(label)]] = t.cells[c][pos]
			}
			out.cells = append(out.cells, values)
		}
	}
	return out, nil
}

func numericIndexPresent(tables []*Table) bool {
	for _, t := range tables {
		if !t.ordinal && indexIsNumeric(t) {
			return true
		}
	}
	return false
}

func indexIsNumeric(t *Table) bool {
	if len(t.index) == 0 {
		return false
	}
	for _, label := range t.index {
		switch label.(type) {
		case int, int64, float64:
		default:
			return false
		}
	}
	return true
}

func coerceNumericIndex(t *Table) {
	for i, label := range t.index {
		switch v := label.(type) {
		case int:
			t.index[i] = float64(v)
		case int64:
			t.index[i] = float64(v)
		case float64:
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				t.index[i] = f
			}
		}
	}
}

// labelKey canonicalizes an index label so 3, 3.0 and "3" (after coercion)
// address the same row.
func labelKey(label any) string {
	switch v := label.(type) {
	case int:
		return strconv.FormatFloat(float64(v), 'g', -1, 64)
	case int64:
		return strconv.FormatFloat(float64(v), 'g', -1, 64)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return "s:" + v
	default:
		return fmt.Sprint(v)
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortedLabels orders index labels numerically when every label parses as a
// number, lexically otherwise. It returns the raw string keys alongside the
// typed labels, position-aligned.
func sortedLabels(set map[string]bool) ([]string, []any) {
	keys := sortedKeys(set)
	numeric := len(keys) > 0
	values := make([]float64, len(keys))
	for i, k := range keys {
		f, err := strconv.ParseFloat(k, 64)
		if err != nil {
			numeric = false
			break
		}
		values[i] = f
	}

	labels := make([]any, len(keys))
	if numeric {
		sort.Slice(keys, func(i, j int) bool {
			fi, _ := strconv.ParseFloat(keys[i], 64)
			fj, _ := strconv.ParseFloat(keys[j], 64)
			return fi < fj
		})
		for i, k := range keys {
			f, _ := strconv.ParseFloat(k, 64)
			labels[i] = f
		}
		return keys, labels
	}
	for i, k := range keys {
		labels[i] = k
	}
	return keys, labels
}
