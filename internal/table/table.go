package table

import (
	"encoding/json"
	"fmt"
	"slices"
)

// StepColumn is the system-managed 1-based row identifier.
const StepColumn = "step"

// Column describes one named, typed column.
type Column struct {
	Name    string   `json:"name"`
	Kind    Kind     `json:"kind"`
	Options []string `json:"options,omitempty"`
}

// Allows reports whether v is acceptable for the column's option set.
// Columns without an option set accept any value.
func (c Column) Allows(v string) bool {
	if c.Kind != KindCategory || len(c.Options) == 0 {
		return true
	}
	return slices.Contains(c.Options, v)
}

// Row is a positional record aligned with Table.Columns.
type Row []Cell

// Table is an ordered sequence of rows sharing one column schema.
type Table struct {
	Columns []Column
	Rows    []Row
}

// New builds an empty table with the given columns.
func New(cols ...Column) *Table {
	return &Table{Columns: append([]Column(nil), cols...)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of the named column or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	i := t.Index(name)
	if i < 0 {
		return Column{}, false
	}
	return t.Columns[i], true
}

// Get returns the cell at row i in the named column.
func (t *Table) Get(i int, name string) (Cell, bool) {
	j := t.Index(name)
	if j < 0 || i < 0 || i >= len(t.Rows) {
		return Cell{}, false
	}
	return t.Rows[i][j], true
}

// Append adds a row; it must match the column count.
func (t *Table) Append(r Row) error {
	if len(r) != len(t.Columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(r), len(t.Columns))
	}
	t.Rows = append(t.Rows, r)
	return nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	if t == nil {
		return &Table{}
	}
	out := &Table{Columns: make([]Column, len(t.Columns)), Rows: make([]Row, len(t.Rows))}
	for i, c := range t.Columns {
		c.Options = slices.Clone(c.Options)
		out.Columns[i] = c
	}
	for i, r := range t.Rows {
		out.Rows[i] = slices.Clone(r)
	}
	return out
}

// Subset returns a copy holding only the rows at the given positions, in that order.
func (t *Table) Subset(idx []int) *Table {
	out := &Table{Columns: t.Clone().Columns, Rows: make([]Row, 0, len(idx))}
	for _, i := range idx {
		out.Rows = append(out.Rows, slices.Clone(t.Rows[i]))
	}
	return out
}

// Renumber recomputes step as 1..N in row order and moves it to the first column.
// The input is not modified.
func Renumber(t *Table) *Table {
	src := t.Clone()
	out := &Table{Columns: make([]Column, 0, len(src.Columns)+1), Rows: make([]Row, len(src.Rows))}
	stepAt := src.Index(StepColumn)
	out.Columns = append(out.Columns, Column{Name: StepColumn, Kind: KindInt})
	for j, c := range src.Columns {
		if j != stepAt {
			out.Columns = append(out.Columns, c)
		}
	}
	for i, r := range src.Rows {
		row := make(Row, 0, len(out.Columns))
		row = append(row, Int(int64(i+1)))
		for j, c := range r {
			if j != stepAt {
				row = append(row, c)
			}
		}
		out.Rows[i] = row
	}
	return out
}

type wireTable struct {
	Columns []Column            `json:"columns"`
	Rows    [][]json.RawMessage `json:"rows"`
}

// MarshalJSON encodes rows as arrays of JSON scalars.
func (t *Table) MarshalJSON() ([]byte, error) {
	w := wireTable{Columns: t.Columns, Rows: make([][]json.RawMessage, len(t.Rows))}
	if w.Columns == nil {
		w.Columns = []Column{}
	}
	for i, r := range t.Rows {
		cells := make([]json.RawMessage, len(r))
		for j, c := range r {
			cells[j] = c.marshal(t.Columns[j].Kind)
		}
		w.Rows[i] = cells
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the form written by MarshalJSON, coercing cells by column kind.
func (t *Table) UnmarshalJSON(b []byte) error {
	var w wireTable
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	t.Columns = w.Columns
	t.Rows = make([]Row, len(w.Rows))
	for i, raw := range w.Rows {
		if len(raw) != len(w.Columns) {
			return fmt.Errorf("row %d: has %d cells, want %d", i+1, len(raw), len(w.Columns))
		}
		row := make(Row, len(raw))
		for j, rc := range raw {
			c, err := unmarshalCell(w.Columns[j].Kind, rc)
			if err != nil {
				return fmt.Errorf("row %d column %s: %w", i+1, w.Columns[j].Name, err)
			}
			row[j] = c
		}
		t.Rows[i] = row
	}
	return nil
}
