// Package table provides the in-memory tabular model shared by the
// extraction, mapping, validation and comparison pipelines.
//
// A Table is an ordered set of named columns over rows of string cells.
// Cells hold the raw extracted text; numeric interpretation is deferred
// to ParseOptionalNumber so that no stage of the pipeline relies on
// exceptions or panics for coercion failures.
package table

// Table is an ordered sequence of rows under an ordered list of columns.
// Rows are always kept at exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New creates an empty table with the given column names.
func New(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols}
}

// FromRows builds a table from a header row and data rows.
// Short rows are padded with empty cells; long rows are truncated.
func FromRows(header []string, rows [][]string) *Table {
	t := New(header...)
	for _, r := range rows {
		t.AppendRow(r)
	}
	return t
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// IsEmpty reports whether the table has no data rows.
func (t *Table) IsEmpty() bool { return len(t.Rows) == 0 }

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// AppendRow adds a data row, padding or truncating to the column count.
func (t *Table) AppendRow(cells []string) {
	row := make([]string, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// Cell returns the value at (row, column name), or "" if either is out
// of range. Out-of-range access is not an error: extracted tables are
// frequently ragged and callers treat absent cells as blank.
func (t *Table) Cell(row int, name string) string {
	idx := t.ColumnIndex(name)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][idx]
}

// SetCell assigns the value at (row, column name). Unknown columns and
// out-of-range rows are ignored.
func (t *Table) SetCell(row int, name, value string) {
	idx := t.ColumnIndex(name)
	if idx < 0 || row < 0 || row >= len(t.Rows) {
		return
	}
	t.Rows[row][idx] = value
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := New(t.Columns...)
	out.Rows = make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := make([]string, len(r))
		copy(row, r)
		out.Rows = append(out.Rows, row)
	}
	return out
}

// RenameColumns applies oldName -> newName renames in place. Columns not
// present in the mapping keep their names.
func (t *Table) RenameColumns(mapping map[string]string) {
	for i, c := range t.Columns {
		if n, ok := mapping[c]; ok {
			t.Columns[i] = n
		}
	}
}

// EnsureColumn appends a column filled with def when it is absent.
func (t *Table) EnsureColumn(name, def string) {
	if t.HasColumn(name) {
		return
	}
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], def)
	}
}

// DropColumn removes the named column and its cells. Unknown names are a
// no-op.
func (t *Table) DropColumn(name string) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return
	}
	t.Columns = append(t.Columns[:idx], t.Columns[idx+1:]...)
	for i, r := range t.Rows {
		t.Rows[i] = append(r[:idx], r[idx+1:]...)
	}
}

// DropEmptyRows removes rows whose cells are all blank.
func (t *Table) DropEmptyRows() {
	kept := t.Rows[:0]
	for _, r := range t.Rows {
		empty := true
		for _, c := range r {
			if !IsBlank(c) {
				empty = false
				break
			}
		}
		if !empty {
			kept = append(kept, r)
		}
	}
	t.Rows = kept
}

// Record is a named view over one row. It preserves the table's column
// order, giving merge and comparison logic defined iteration semantics
// instead of map-ordering surprises.
type Record struct {
	columns []string
	cells   []string
}

// RecordAt returns a copy of row i as a Record. Mutations on the record
// do not write back to the table.
func (t *Table) RecordAt(i int) Record {
	r := Record{columns: t.Columns, cells: make([]string, len(t.Columns))}
	if i >= 0 && i < len(t.Rows) {
		copy(r.cells, t.Rows[i])
	}
	return r
}

// Get returns the value for the named column, or "".
func (r Record) Get(name string) string {
	for i, c := range r.columns {
		if c == name {
			return r.cells[i]
		}
	}
	return ""
}

// Set assigns the value for the named column. Unknown names are ignored.
func (r Record) Set(name, value string) {
	for i, c := range r.columns {
		if c == name {
			r.cells[i] = value
			return
		}
	}
}

// Columns returns the record's column names in table order.
func (r Record) Columns() []string { return r.columns }

// Cells returns the record's values in column order.
func (r Record) Cells() []string { return r.cells }
