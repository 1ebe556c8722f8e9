package inference

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/KaramelBytes/taxisim-cli/internal/table"
)

// Columns every inference input must carry.
const (
	AreaColumn   = "area"
	DateColumn   = "date"
	TripsColumn  = "num_trip"
	LabelColumn  = "label"
	LabelReal    = "real"
	LabelPredict = "predict"
	FeatureLag1  = "lag1"
	FeatureLag7  = "lag7"
	FeatureDow   = "dow"
)

// SchemaError lists why a table cannot be used as model input.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	if len(e.Problems) == 1 {
		return "schema: " + e.Problems[0]
	}
	return fmt.Sprintf("schema: %d problems, first: %s", len(e.Problems), e.Problems[0])
}

var ErrSchema = errors.New("input does not match inference schema")

func (e *SchemaError) Unwrap() error { return ErrSchema }

// Validate checks the fixed input schema: area, a date column, an int num_trip,
// and no missing area or date values.
func Validate(t *table.Table) error {
	var problems []string
	need := []struct {
		name  string
		kinds []table.Kind
	}{
		{AreaColumn, []table.Kind{table.KindCategory, table.KindText, table.KindInt}},
		{DateColumn, []table.Kind{table.KindDate}},
		{TripsColumn, []table.Kind{table.KindInt}},
	}
	for _, n := range need {
		col, ok := t.Column(n.name)
		if !ok {
			problems = append(problems, fmt.Sprintf("missing column %s", n.name))
			continue
		}
		if !kindIn(col.Kind, n.kinds) {
			problems = append(problems, fmt.Sprintf("column %s has kind %s", n.name, col.Kind))
		}
	}
	if len(problems) == 0 {
		ai, di := t.Index(AreaColumn), t.Index(DateColumn)
		for i, r := range t.Rows {
			if r[ai].Null {
				problems = append(problems, fmt.Sprintf("row %d: %s is missing", i+1, AreaColumn))
			}
			if r[di].Null {
				problems = append(problems, fmt.Sprintf("row %d: %s is missing", i+1, DateColumn))
			}
		}
	}
	if len(problems) > 0 {
		return &SchemaError{Problems: problems}
	}
	return nil
}

func kindIn(k table.Kind, ks []table.Kind) bool {
	for _, x := range ks {
		if x == k {
			return true
		}
	}
	return false
}

type observation struct {
	date  time.Time
	trips int64
}

// Preprocess validates t and maps it into feature space ordered by (area, date).
// Features: lag1 and lag7 (latest observed trips at or before date-k in the same
// area, 0 when none), dow (weekday, Sunday=0), and every other numeric column.
func Preprocess(t *table.Table) (Features, error) {
	if err := Validate(t); err != nil {
		return Features{}, err
	}
	ai, di, ni := t.Index(AreaColumn), t.Index(DateColumn), t.Index(TripsColumn)
	areaKind := t.Columns[ai].Kind
	var extra []int
	for j, c := range t.Columns {
		if j == ni || c.Name == table.StepColumn {
			continue
		}
		if c.Kind == table.KindInt || c.Kind == table.KindFloat {
			if j != ai {
				extra = append(extra, j)
			}
		}
	}
	f := Features{Names: []string{FeatureLag1, FeatureLag7, FeatureDow}}
	for _, j := range extra {
		f.Names = append(f.Names, t.Columns[j].Name)
	}

	order := make([]int, t.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := t.Rows[order[a]], t.Rows[order[b]]
		aa, ab := ra[ai].Format(areaKind), rb[ai].Format(areaKind)
		if aa != ab {
			return aa < ab
		}
		return ra[di].Date.Before(rb[di].Date)
	})

	history := map[string][]observation{}
	for _, i := range order {
		r := t.Rows[i]
		if !r[ni].Null {
			a := r[ai].Format(areaKind)
			history[a] = append(history[a], observation{date: r[di].Date, trips: r[ni].Int})
		}
	}

	for _, i := range order {
		r := t.Rows[i]
		area := r[ai].Format(areaKind)
		d := r[di].Date
		fr := FeatureRow{Area: area, Date: d.Format(table.DateLayout), Values: map[string]float64{}}
		if !r[ni].Null {
			v := r[ni].Int
			fr.Observed = &v
		}
		fr.Values[FeatureLag1] = lag(history[area], d, 1)
		fr.Values[FeatureLag7] = lag(history[area], d, 7)
		fr.Values[FeatureDow] = float64(d.Weekday())
		for _, j := range extra {
			n, _ := r[j].Number(t.Columns[j].Kind)
			fr.Values[t.Columns[j].Name] = n
		}
		f.Rows = append(f.Rows, fr)
	}
	return f, nil
}

// lag returns the latest observation dated on or before d minus k days.
// obs is sorted by date.
func lag(obs []observation, d time.Time, k int) float64 {
	limit := d.AddDate(0, 0, -k)
	n := sort.Search(len(obs), func(i int) bool { return obs[i].date.After(limit) })
	if n == 0 {
		return 0
	}
	return float64(obs[n-1].trips)
}

// tripCount rounds a prediction to a trip count, clamping NaN and negatives to 0
// and anything beyond int64 to math.MaxInt64.
func tripCount(v float64) int64 {
	v = math.Round(v)
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	}
	return int64(v)
}

// Postprocess maps predictions back to the area/date/num_trip/label schema.
// Rows dated before start keep their observed trips and are labeled real; the
// rest carry the rounded, non-negative prediction and are labeled predict.
func Postprocess(p *Predictions, start time.Time) *table.Table {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	out := table.New(
		table.Column{Name: AreaColumn, Kind: table.KindCategory},
		table.Column{Name: DateColumn, Kind: table.KindDate},
		table.Column{Name: TripsColumn, Kind: table.KindInt},
		table.Column{Name: LabelColumn, Kind: table.KindText},
	)
	seen := map[string]bool{}
	for i, fr := range p.Rows {
		d, _ := time.Parse(table.DateLayout, fr.Date)
		row := table.Row{table.Text(fr.Area), table.DateOf(d), table.Null(), table.Text(LabelReal)}
		if d.Before(start) {
			if fr.Observed != nil {
				row[2] = table.Int(*fr.Observed)
			}
		} else {
			row[2] = table.Int(tripCount(p.Values[i]))
			row[3] = table.Text(LabelPredict)
		}
		out.Rows = append(out.Rows, row)
		if !seen[fr.Area] {
			seen[fr.Area] = true
			out.Columns[0].Options = append(out.Columns[0].Options, fr.Area)
		}
	}
	sort.Strings(out.Columns[0].Options)
	return out
}
