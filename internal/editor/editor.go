// Package editor implements the row-editing operations over a session table.
// Every structural change ends with table.Renumber so step never goes stale.
package editor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/taxisim-cli/internal/table"
)

var (
	ErrNotInOptions   = errors.New("value not in option set")
	ErrReadOnlyColumn = errors.New("column is system-managed")
	ErrNoSuchRow      = errors.New("no such row")
	ErrNoSuchColumn   = errors.New("no such column")
)

// OptionError rejects a category value outside the column's option set.
type OptionError struct {
	Column  string
	Value   string
	Options []string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("%s: %q is not one of [%s]", e.Column, e.Value, strings.Join(e.Options, ", "))
}

func (e *OptionError) Unwrap() error { return ErrNotInOptions }

// AddBlankRow appends a row whose non-step cells are all absent.
func AddBlankRow(t *table.Table) *table.Table {
	out := t.Clone()
	row := make(table.Row, len(out.Columns))
	for j := range row {
		row[j] = table.Null()
	}
	out.Rows = append(out.Rows, row)
	return table.Renumber(out)
}

// ApplyEdits replaces t wholesale with the edited table. Values are not validated here.
func ApplyEdits(_ *table.Table, edited *table.Table) *table.Table {
	return table.Renumber(edited)
}

// SetCell parses raw for the column's kind and stores it in the row with the given step.
func SetCell(t *table.Table, step int, column, raw string) (*table.Table, error) {
	if column == table.StepColumn {
		return nil, fmt.Errorf("%s: %w", column, ErrReadOnlyColumn)
	}
	j := t.Index(column)
	if j < 0 {
		return nil, fmt.Errorf("%s: %w", column, ErrNoSuchColumn)
	}
	i, err := rowIndex(t, step)
	if err != nil {
		return nil, err
	}
	col := t.Columns[j]
	cell, err := table.Parse(col.Kind, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", column, err)
	}
	if !cell.Null && !col.Allows(cell.Text) {
		return nil, &OptionError{Column: col.Name, Value: cell.Text, Options: col.Options}
	}
	out := t.Clone()
	out.Rows[i][j] = cell
	return table.Renumber(out), nil
}

// DeleteRow removes the row with the given step.
func DeleteRow(t *table.Table, step int) (*table.Table, error) {
	i, err := rowIndex(t, step)
	if err != nil {
		return nil, err
	}
	out := t.Clone()
	out.Rows = append(out.Rows[:i], out.Rows[i+1:]...)
	return table.Renumber(out), nil
}

// ValidateOptions checks every category cell against its option set.
func ValidateOptions(t *table.Table) error {
	var errs []error
	for j, col := range t.Columns {
		if col.Kind != table.KindCategory {
			continue
		}
		for _, r := range t.Rows {
			c := r[j]
			if !c.Null && !col.Allows(c.Text) {
				errs = append(errs, &OptionError{Column: col.Name, Value: c.Text, Options: col.Options})
			}
		}
	}
	return errors.Join(errs...)
}

// rowIndex resolves a 1-based step to a row position. Steps are positional after Renumber.
func rowIndex(t *table.Table, step int) (int, error) {
	if step < 1 || step > t.Len() {
		return 0, fmt.Errorf("step %d: %w", step, ErrNoSuchRow)
	}
	return step - 1, nil
}
