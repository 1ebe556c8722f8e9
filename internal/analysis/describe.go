package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/taxisim-cli/internal/table"
)

// Options controls the summary.
type Options struct {
	// HeadRows is how many leading rows to include; 0 means 5.
	HeadRows int
	// GroupBy, when set, adds per-value means of numeric columns.
	GroupBy string
	// TopValues caps the category counts listed per column; 0 means 5.
	TopValues int
}

// DefaultOptions returns the defaults used by the describe command.
func DefaultOptions() Options {
	return Options{HeadRows: 5, TopValues: 5}
}

// Report summarises a table: leading rows, missing values, kinds and numeric stats.
type Report struct {
	Name       string
	Rows       int
	Head       [][]string
	Header     []string
	Cols       []ColumnSummary
	KindCounts map[table.Kind]int
	Groups     []GroupResult
}

// ColumnSummary captures statistics for one column.
type ColumnSummary struct {
	Name    string
	Kind    table.Kind
	NonNull int
	Missing int
	Unique  int
	// Numeric stats, set when Kind is int or float
	Min, Max, Mean, Std float64
	P25, P50, P75       float64
	// Date range, set when Kind is date
	First, Last string
	TopValues   []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// GroupResult holds per-group means keyed by numeric column name.
type GroupResult struct {
	Key   string
	Size  int
	Means map[string]float64
}

// Describe computes the report for t.
func Describe(name string, t *table.Table, opt Options) *Report {
	if opt.HeadRows <= 0 {
		opt.HeadRows = 5
	}
	if opt.TopValues <= 0 {
		opt.TopValues = 5
	}
	rep := &Report{Name: name, Rows: t.Len(), KindCounts: map[table.Kind]int{}}
	for _, c := range t.Columns {
		rep.Header = append(rep.Header, c.Name)
		rep.KindCounts[c.Kind]++
	}
	for i := 0; i < t.Len() && i < opt.HeadRows; i++ {
		row := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			row[j] = t.Rows[i][j].Format(c.Kind)
		}
		rep.Head = append(rep.Head, row)
	}
	for j, c := range t.Columns {
		rep.Cols = append(rep.Cols, summarize(t, j, c, opt.TopValues))
	}
	if opt.GroupBy != "" {
		rep.Groups = groupMeans(t, opt.GroupBy)
	}
	return rep
}

func summarize(t *table.Table, j int, c table.Column, top int) ColumnSummary {
	s := ColumnSummary{Name: c.Name, Kind: c.Kind}
	counts := map[string]int{}
	var nums []float64
	for _, r := range t.Rows {
		cell := r[j]
		if cell.Null {
			s.Missing++
			continue
		}
		s.NonNull++
		v := cell.Format(c.Kind)
		counts[v]++
		if x, ok := cell.Number(c.Kind); ok {
			nums = append(nums, x)
		}
		if c.Kind == table.KindDate {
			if s.First == "" || v < s.First {
				s.First = v
			}
			if v > s.Last {
				s.Last = v
			}
		}
	}
	s.Unique = len(counts)
	if len(nums) > 0 {
		sort.Float64s(nums)
		s.Min, s.Max = nums[0], nums[len(nums)-1]
		s.Mean, s.Std = meanStd(nums)
		s.P25 = quantile(nums, 0.25)
		s.P50 = quantile(nums, 0.5)
		s.P75 = quantile(nums, 0.75)
	}
	if c.Kind == table.KindCategory || c.Kind == table.KindText {
		for v, n := range counts {
			s.TopValues = append(s.TopValues, CategoryCount{Value: v, Count: n})
		}
		sort.Slice(s.TopValues, func(a, b int) bool {
			if s.TopValues[a].Count != s.TopValues[b].Count {
				return s.TopValues[a].Count > s.TopValues[b].Count
			}
			return s.TopValues[a].Value < s.TopValues[b].Value
		})
		if len(s.TopValues) > top {
			s.TopValues = s.TopValues[:top]
		}
	}
	return s
}

func groupMeans(t *table.Table, by string) []GroupResult {
	gi := t.Index(by)
	if gi < 0 {
		return nil
	}
	kind := t.Columns[gi].Kind
	type acc struct {
		size int
		sum  map[string]float64
		cnt  map[string]int
	}
	groups := map[string]*acc{}
	var order []string
	for _, r := range t.Rows {
		key := r[gi].Format(kind)
		g := groups[key]
		if g == nil {
			g = &acc{sum: map[string]float64{}, cnt: map[string]int{}}
			groups[key] = g
			order = append(order, key)
		}
		g.size++
		for j, c := range t.Columns {
			if j == gi || c.Name == table.StepColumn {
				continue
			}
			if x, ok := r[j].Number(c.Kind); ok {
				g.sum[c.Name] += x
				g.cnt[c.Name]++
			}
		}
	}
	sort.Strings(order)
	out := make([]GroupResult, 0, len(order))
	for _, k := range order {
		g := groups[k]
		gr := GroupResult{Key: fmt.Sprintf("%s=%s", by, k), Size: g.size, Means: map[string]float64{}}
		for name, sum := range g.sum {
			gr.Means[name] = sum / float64(g.cnt[name])
		}
		out = append(out, gr)
	}
	return out
}

// Markdown renders the report in the describe command's output format.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\nColumns: %d\n\n", r.Rows, len(r.Cols)))

	b.WriteString("[HEAD]\n")
	if len(r.Head) == 0 {
		b.WriteString("(empty)\n")
	} else {
		b.WriteString("| " + strings.Join(r.Header, " | ") + " |\n")
		b.WriteString("|" + strings.Repeat(" --- |", len(r.Header)) + "\n")
		for _, row := range r.Head {
			b.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
	}

	b.WriteString("\n[MISSING VALUES]\n")
	anyMissing := false
	for _, c := range r.Cols {
		if c.Missing > 0 {
			anyMissing = true
			b.WriteString(fmt.Sprintf("- %s: %d\n", c.Name, c.Missing))
		}
	}
	if !anyMissing {
		b.WriteString("(none)\n")
	}

	b.WriteString("\n[KINDS]\n")
	kinds := make([]string, 0, len(r.KindCounts))
	for k := range r.KindCounts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		b.WriteString(fmt.Sprintf("- %s: %d\n", k, r.KindCounts[table.Kind(k)]))
	}

	b.WriteString("\n[SCHEMA]\n")
	for _, c := range r.Cols {
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, unique %d)", c.Name, c.Kind, c.NonNull, c.Unique))
		switch c.Kind {
		case table.KindInt, table.KindFloat:
			if c.NonNull > 0 {
				b.WriteString(fmt.Sprintf(": mean %.4g, std %.4g, min %.4g, 25%% %.4g, 50%% %.4g, 75%% %.4g, max %.4g",
					c.Mean, c.Std, c.Min, c.P25, c.P50, c.P75, c.Max))
			}
		case table.KindDate:
			if c.First != "" {
				b.WriteString(fmt.Sprintf(": %s to %s", c.First, c.Last))
			}
		case table.KindCategory, table.KindText:
			if len(c.TopValues) > 0 {
				parts := make([]string, len(c.TopValues))
				for i, kv := range c.TopValues {
					parts[i] = fmt.Sprintf("%s(%d)", kv.Value, kv.Count)
				}
				b.WriteString(": top " + strings.Join(parts, ", "))
			}
		}
		b.WriteString("\n")
	}

	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			b.WriteString(fmt.Sprintf("- %s (n=%d)\n", g.Key, g.Size))
			keys := make([]string, 0, len(g.Means))
			for k := range g.Means {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				b.WriteString(fmt.Sprintf("  • %s: mean %.4g\n", k, g.Means[k]))
			}
		}
	}
	return b.String()
}

// meanStd returns the mean and sample standard deviation (n-1), 0 for a single value.
func meanStd(vals []float64) (mean, std float64) {
	var n, m2 float64
	for _, x := range vals {
		n++
		delta := x - mean
		mean += delta / n
		m2 += delta * (x - mean)
	}
	if n > 1 {
		std = math.Sqrt(m2 / (n - 1))
	}
	return
}

// quantile interpolates linearly between closest ranks of a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
