package filter

import (
	"strings"
	"testing"
	"time"

	"github.com/KaramelBytes/taxisim-cli/internal/table"
)

func trips() *table.Table {
	t := table.New(
		table.Column{Name: "area", Kind: table.KindCategory},
		table.Column{Name: "date", Kind: table.KindDate},
		table.Column{Name: "num_trip", Kind: table.KindInt},
	)
	t.Rows = []table.Row{
		{table.Text("Kyoto"), table.Date(2025, time.November, 1), table.Int(10)},
		{table.Text("Nara"), table.Date(2025, time.November, 2), table.Int(20)},
		{table.Text("Kyoto"), table.Date(2025, time.November, 3), table.Int(30)},
	}
	return t
}

func areas(t *table.Table) []string {
	var out []string
	for i := range t.Rows {
		c, _ := t.Get(i, "area")
		out = append(out, c.Text)
	}
	return out
}

func days(t *table.Table) []int {
	var out []int
	for i := range t.Rows {
		c, _ := t.Get(i, "date")
		out = append(out, c.Date.Day())
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestByCategoryEmptySelectionIsIdentity(t *testing.T) {
	in := trips()
	if out := ByCategory(in, "area", nil); out != in {
		t.Fatalf("expected the same table back")
	}
}

func TestByCategoryKeepsOrder(t *testing.T) {
	in := trips()
	out := ByCategory(in, "area", []string{"Kyoto"})
	if got := days(out); !equalInts(got, []int{1, 3}) {
		t.Fatalf("days=%v", got)
	}
	if in.Len() != 3 {
		t.Fatalf("input mutated")
	}
	if out := ByCategory(in, "area", []string{"Tokyo"}); out.Len() != 0 {
		t.Fatalf("expected no rows, got %v", areas(out))
	}
}

func TestByWindowBoundaryExclusive(t *testing.T) {
	cases := []struct {
		days int
		want []int
	}{
		{1, []int{3}},
		{2, []int{2, 3}},
		{3, []int{1, 2, 3}},
	}
	for _, c := range cases {
		if got := days(ByWindow(trips(), "date", c.days)); !equalInts(got, c.want) {
			t.Errorf("days=%d: got %v want %v", c.days, got, c.want)
		}
	}
}

func TestByWindowEmptyAndNullDates(t *testing.T) {
	empty := trips().Subset(nil)
	if out := ByWindow(empty, "date", 7); out.Len() != 0 {
		t.Fatalf("expected empty result")
	}
	nulls := trips()
	for i := range nulls.Rows {
		nulls.Rows[i][1] = table.Null()
	}
	if out := ByWindow(nulls, "date", 7); out.Len() != 0 {
		t.Fatalf("expected empty result for undated rows")
	}
	mixed := trips()
	mixed.Rows[2][1] = table.Null()
	if got := days(ByWindow(mixed, "date", 1)); !equalInts(got, []int{2}) {
		t.Fatalf("days=%v", got)
	}
}

func TestExpr(t *testing.T) {
	out, err := Expr(trips(), "num_trip >= 20 && area == 'Kyoto'")
	if err != nil {
		t.Fatalf("expr: %v", err)
	}
	if got := days(out); !equalInts(got, []int{3}) {
		t.Fatalf("days=%v", got)
	}
	if _, err := Expr(trips(), "(num_trip > 1"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestExprUnknownColumn(t *testing.T) {
	out, err := Expr(trips(), "num_trips > 1")
	if err == nil || !strings.Contains(err.Error(), "num_trips") {
		t.Fatalf("expected unknown column error, got rows=%d err=%v", out.Len(), err)
	}
}

func TestExprDates(t *testing.T) {
	out, err := Expr(trips(), "date >= '2025-11-02' && area == 'Kyoto'")
	if err != nil {
		t.Fatalf("expr: %v", err)
	}
	if got := days(out); !equalInts(got, []int{3}) {
		t.Fatalf("days=%v", got)
	}
	in := trips()
	in.Rows[1][1] = table.Null()
	out, err = Expr(in, "date == '2025-11-02' || num_trip == 30")
	if err != nil {
		t.Fatalf("expr: %v", err)
	}
	if got := days(out); !equalInts(got, []int{3}) {
		t.Fatalf("days=%v", got)
	}
}

func TestExprMissingValues(t *testing.T) {
	in := trips()
	in.Rows[0][2] = table.Null()
	out, err := Expr(in, "num_trip > 1 || area == 'Kyoto'")
	if err != nil {
		t.Fatalf("expr: %v", err)
	}
	if got := days(out); !equalInts(got, []int{1, 2, 3}) {
		t.Fatalf("days=%v", got)
	}

	out, err = Expr(in, "num_trip <= 10")
	if err != nil {
		t.Fatalf("expr: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("missing num_trip should not satisfy a comparison, got %d rows", out.Len())
	}
}

func TestApply(t *testing.T) {
	out, err := Apply(trips(), Criteria{Selected: []string{"Kyoto", "Nara"}, Days: 2, Expr: "num_trip > 15"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got := days(out); !equalInts(got, []int{2, 3}) {
		t.Fatalf("days=%v", got)
	}
}
