package dataset

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateColumn is returned when a header names the same column twice.
var ErrDuplicateColumn = errors.New("duplicate column")

// Table is an ordered set of named string columns. An empty cell is the
// absent marker: it is what a row holds for a column its source never had.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New returns an empty table with the given columns.
func New(columns ...string) (*Table, error) {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		if _, ok := t.index[c]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
		}
		t.index[c] = len(t.columns)
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// Empty returns a table with no columns and no rows.
func Empty() *Table {
	return &Table{index: map[string]int{}}
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// HasColumn reports whether name is a column of t.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Row returns a copy of row i in column order.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.columns))
	copy(out, t.rows[i])
	return out
}

// Get returns the cell at row i for column col. ok is false when the column
// does not exist or the cell holds the absent marker.
func (t *Table) Get(i int, col string) (string, bool) {
	j, found := t.index[col]
	if !found {
		return "", false
	}
	v := t.rows[i][j]
	return v, v != ""
}

// AddRow appends a row. values must have one entry per column.
func (t *Table) AddRow(values []string) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("row has %d fields, want %d", len(values), len(t.columns))
	}
	row := make([]string, len(values))
	copy(row, values)
	t.rows = append(t.rows, row)
	return nil
}

// Fill sets column name to value on every row, adding the column at the end
// if it does not exist yet.
func (t *Table) Fill(name, value string) {
	j, ok := t.index[name]
	if !ok {
		j = len(t.columns)
		t.index[name] = j
		t.columns = append(t.columns, name)
		for i := range t.rows {
			t.rows[i] = append(t.rows[i], "")
		}
	}
	for i := range t.rows {
		t.rows[i][j] = value
	}
}

// MoveColumnLast moves column name to the final position. It is a no-op if
// the column does not exist or is already last.
func (t *Table) MoveColumnLast(name string) {
	j, ok := t.index[name]
	if !ok || j == len(t.columns)-1 {
		return
	}
	order := make([]int, 0, len(t.columns))
	for k := range t.columns {
		if k != j {
			order = append(order, k)
		}
	}
	order = append(order, j)
	t.reorder(order)
}

func (t *Table) reorder(order []int) {
	cols := make([]string, len(order))
	for k, src := range order {
		cols[k] = t.columns[src]
	}
	for i, r := range t.rows {
		nr := make([]string, len(order))
		for k, src := range order {
			nr[k] = r[src]
		}
		t.rows[i] = nr
	}
	t.columns = cols
	t.index = make(map[string]int, len(cols))
	for k, c := range cols {
		t.index[c] = k
	}
}

// ValueCounts counts rows per non-absent value of col. A missing column
// yields an empty map.
func (t *Table) ValueCounts(col string) map[string]int {
	out := map[string]int{}
	j, ok := t.index[col]
	if !ok {
		return out
	}
	for _, r := range t.rows {
		if v := r[j]; v != "" {
			out[v]++
		}
	}
	return out
}

// Distinct returns the sorted distinct non-absent values of col.
func (t *Table) Distinct(col string) []string {
	counts := t.ValueCounts(col)
	out := make([]string, 0, len(counts))
	for v := range counts {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Head returns a table holding the first n rows of t.
func (t *Table) Head(n int) *Table {
	if n < 0 || n > len(t.rows) {
		n = len(t.rows)
	}
	h, _ := New(t.columns...)
	for _, r := range t.rows[:n] {
		_ = h.AddRow(r)
	}
	return h
}

// Concat stacks tables vertically in argument order. The result has the
// union of all columns in order of first appearance; rows from a table that
// lacks a column hold the absent marker there. Nil tables are skipped.
func Concat(tables ...*Table) *Table {
	out := Empty()
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.columns {
			if _, ok := out.index[c]; !ok {
				out.index[c] = len(out.columns)
				out.columns = append(out.columns, c)
			}
		}
	}
	for _, t := range tables {
		if t == nil {
			continue
		}
		pos := make([]int, len(t.columns))
		for k, c := range t.columns {
			pos[k] = out.index[c]
		}
		for _, r := range t.rows {
			nr := make([]string, len(out.columns))
			for k, v := range r {
				nr[pos[k]] = v
			}
			out.rows = append(out.rows, nr)
		}
	}
	return out
}
