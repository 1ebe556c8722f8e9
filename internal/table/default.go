package table

import (
	"slices"
	"time"
)

// AreaOptions is the built-in option set for the area column.
var AreaOptions = []string{"Sendai", "Nara", "Shiga", "Kyoto", "Shizuoka", "Tokyo", "Osaka"}

// Default returns the starter sequence table, already renumbered.
// A nil or empty options slice falls back to AreaOptions.
func Default(options []string) *Table {
	if len(options) == 0 {
		options = AreaOptions
	}
	t := New(
		Column{Name: "area", Kind: KindCategory, Options: slices.Clone(options)},
		Column{Name: "population", Kind: KindInt},
		Column{Name: "date", Kind: KindDate},
		Column{Name: "StarCity", Kind: KindInt},
	)
	seed := []struct {
		area string
		pop  int64
		star int64
	}{
		{"Sendai", 100, 1},
		{"Nara", 50, 0},
		{"Shiga", 20, 0},
		{"Kyoto", 200, 1},
		{"Shizuoka", 60, 0},
	}
	for _, s := range seed {
		t.Rows = append(t.Rows, Row{Text(s.area), Int(s.pop), Date(2025, time.November, 2), Int(s.star)})
	}
	return Renumber(t)
}
