package filter

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/Knetic/govaluate"

	"github.com/KaramelBytes/taxisim-cli/internal/table"
)

// Criteria narrows a table for display.
type Criteria struct {
	CategoryColumn string   // defaults to "area"
	Selected       []string // empty selects everything
	DateColumn     string   // defaults to "date"
	Days           int      // trailing window; 0 disables
	Expr           string   // optional govaluate expression over row fields
}

// Apply runs the category, window and expression filters in that order.
func Apply(t *table.Table, c Criteria) (*table.Table, error) {
	cat := c.CategoryColumn
	if cat == "" {
		cat = "area"
	}
	dc := c.DateColumn
	if dc == "" {
		dc = "date"
	}
	out := ByCategory(t, cat, c.Selected)
	if c.Days > 0 {
		out = ByWindow(out, dc, c.Days)
	}
	if strings.TrimSpace(c.Expr) != "" {
		return Expr(out, c.Expr)
	}
	return out, nil
}

// ByCategory keeps rows whose column value is in selected. An empty selection
// returns t unchanged.
func ByCategory(t *table.Table, column string, selected []string) *table.Table {
	if len(selected) == 0 {
		return t
	}
	j := t.Index(column)
	if j < 0 {
		return t.Subset(nil)
	}
	var keep []int
	for i, r := range t.Rows {
		c := r[j]
		if !c.Null && slices.Contains(selected, c.Format(t.Columns[j].Kind)) {
			keep = append(keep, i)
		}
	}
	return t.Subset(keep)
}

// ByWindow keeps rows dated strictly after max(date) minus days.
// Tables with no dated rows yield an empty table.
func ByWindow(t *table.Table, column string, days int) *table.Table {
	j := t.Index(column)
	if j < 0 || t.Columns[j].Kind != table.KindDate {
		return t.Subset(nil)
	}
	var latest time.Time
	found := false
	for _, r := range t.Rows {
		if c := r[j]; !c.Null && (!found || c.Date.After(latest)) {
			latest, found = c.Date, true
		}
	}
	if !found {
		return t.Subset(nil)
	}
	cutoff := latest.AddDate(0, 0, -days)
	var keep []int
	for i, r := range t.Rows {
		if c := r[j]; !c.Null && c.Date.After(cutoff) {
			keep = append(keep, i)
		}
	}
	return t.Subset(keep)
}

// Expr keeps rows for which the boolean expression evaluates to true.
// Column values are exposed by name. Dates compare against quoted literals
// such as 'YYYY-MM-DD'. Missing numbers and dates are NaN, so every comparison
// against them is false; missing text is "". Unknown names and evaluation
// errors are returned.
func Expr(t *table.Table, expression string) (*table.Table, error) {
	expr, err := govaluate.NewEvaluableExpression(expression)
	if err != nil {
		return nil, fmt.Errorf("parse expression: %w", err)
	}
	for _, name := range expr.Vars() {
		if t.Index(name) < 0 {
			return nil, fmt.Errorf("expression references unknown column %q", name)
		}
	}
	var keep []int
	for i, r := range t.Rows {
		params := make(map[string]any, len(t.Columns))
		for j, col := range t.Columns {
			params[col.Name] = exprValue(r[j], col.Kind)
		}
		result, err := expr.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if b, ok := result.(bool); ok && b {
			keep = append(keep, i)
		}
	}
	return t.Subset(keep), nil
}

// exprValue maps a cell to a govaluate parameter. govaluate compares numbers as
// float64 and turns date literals into local-time Unix seconds.
func exprValue(c table.Cell, k table.Kind) any {
	switch k {
	case table.KindInt, table.KindFloat:
		if c.Null {
			return math.NaN()
		}
		n, _ := c.Number(k)
		return n
	case table.KindDate:
		if c.Null {
			return math.NaN()
		}
		y, m, d := c.Date.Date()
		return float64(time.Date(y, m, d, 0, 0, 0, 0, time.Local).Unix())
	}
	if c.Null {
		return ""
	}
	return c.Any(k)
}
