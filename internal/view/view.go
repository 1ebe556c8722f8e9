// Package view renders tables for the terminal with lipgloss.
package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/KaramelBytes/taxisim-cli/internal/table"
)

type Styles struct {
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Missing lipgloss.Style
	Predict lipgloss.Style
	Rule    lipgloss.Style
	Footer  lipgloss.Style
}

// NewStyles returns the palette for theme "dark", "light" or "plain".
// Unknown themes fall back to dark.
func NewStyles(theme string) Styles {
	s := Styles{}
	switch theme {
	case "plain":
		s.Header = lipgloss.NewStyle()
		s.Cell = lipgloss.NewStyle()
		s.Missing = lipgloss.NewStyle()
		s.Predict = lipgloss.NewStyle()
		s.Rule = lipgloss.NewStyle()
		s.Footer = lipgloss.NewStyle()
		return s
	case "light":
		s.Header = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("27"))
		s.Cell = lipgloss.NewStyle()
		s.Missing = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
		s.Predict = lipgloss.NewStyle().Foreground(lipgloss.Color("130"))
		s.Rule = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
		s.Footer = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	default:
		s.Header = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
		s.Cell = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
		s.Missing = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
		s.Predict = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
		s.Rule = lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
		s.Footer = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	}
	return s
}

const gap = "  "

// Render lays t out as aligned columns. Numeric columns are right-aligned and
// rows labeled predict use the Predict style.
func Render(t *table.Table, s Styles) string {
	widths := make([]int, len(t.Columns))
	cells := make([][]string, t.Len())
	for j, c := range t.Columns {
		widths[j] = lipgloss.Width(c.Name)
	}
	for i, r := range t.Rows {
		cells[i] = make([]string, len(t.Columns))
		for j, c := range t.Columns {
			v := r[j].Format(c.Kind)
			cells[i][j] = v
			if w := lipgloss.Width(v); w > widths[j] {
				widths[j] = w
			}
		}
	}
	label := t.Index("label")

	var b strings.Builder
	head := make([]string, len(t.Columns))
	total := 0
	for j, c := range t.Columns {
		head[j] = s.Header.Render(pad(c.Name, widths[j], numeric(c.Kind)))
		total += widths[j]
	}
	if len(widths) > 1 {
		total += len(gap) * (len(widths) - 1)
	}
	b.WriteString(strings.TrimRight(strings.Join(head, gap), " "))
	b.WriteString("\n")
	b.WriteString(s.Rule.Render(strings.Repeat("─", total)))
	b.WriteString("\n")
	for i, r := range t.Rows {
		predicted := label >= 0 && !r[label].Null && r[label].Text == "predict"
		line := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			st := s.Cell
			switch {
			case r[j].Null:
				st = s.Missing
			case predicted:
				st = s.Predict
			}
			line[j] = st.Render(pad(cells[i][j], widths[j], numeric(c.Kind)))
		}
		b.WriteString(strings.TrimRight(strings.Join(line, gap), " "))
		b.WriteString("\n")
	}
	b.WriteString(s.Footer.Render(rowCount(t.Len())))
	b.WriteString("\n")
	return b.String()
}

func numeric(k table.Kind) bool { return k == table.KindInt || k == table.KindFloat }

func pad(v string, w int, right bool) string {
	n := w - lipgloss.Width(v)
	if n <= 0 {
		return v
	}
	if right {
		return strings.Repeat(" ", n) + v
	}
	return v + strings.Repeat(" ", n)
}

func rowCount(n int) string {
	if n == 1 {
		return "(1 row)"
	}
	return fmt.Sprintf("(%d rows)", n)
}
