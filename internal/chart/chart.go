package chart

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/KaramelBytes/taxisim-cli/internal/table"
)

// Options names the visual channels and titles of a line chart.
type Options struct {
	X, Y, Color, Dash string
	Title             string
	XTitle, YTitle    string
	LegendTitle       string
	Markers           bool
}

// DefaultOptions maps date/num_trip/area/label the way the trip dashboard plots predictions.
func DefaultOptions() Options {
	return Options{
		X:           "date",
		Y:           "num_trip",
		Color:       "area",
		Dash:        "label",
		Title:       "乗車数の推移",
		XTitle:      "日付",
		YTitle:      "乗車数",
		LegendTitle: "エリア, ラベル",
		Markers:     true,
	}
}

// Point is one observation; Y is nil when the value is missing.
type Point struct {
	X string   `json:"x"`
	Y *float64 `json:"y"`
}

// Series is one line: a (color, dash) group.
type Series struct {
	Name   string  `json:"name"`
	Color  string  `json:"color"`
	Dash   string  `json:"dash"`
	Points []Point `json:"points"`
}

// Spec is a declarative line-chart description.
type Spec struct {
	Title       string   `json:"title"`
	XTitle      string   `json:"xaxis_title"`
	YTitle      string   `json:"yaxis_title"`
	LegendTitle string   `json:"legend_title"`
	X           string   `json:"x"`
	Y           string   `json:"y"`
	Color       string   `json:"color"`
	Dash        string   `json:"line_dash"`
	Markers     bool     `json:"markers"`
	Colors      []string `json:"color_groups"`
	Dashes      []string `json:"dash_groups"`
	Series      []Series `json:"series"`
}

var ErrMissingColumn = errors.New("missing chart column")

// Build maps a table onto the chart channels with DefaultOptions.
func Build(t *table.Table) (*Spec, error) {
	return BuildWith(t, DefaultOptions())
}

// BuildWith maps a table onto the requested channels. Series are ordered by first
// appearance of their (color, dash) pair; points within a series by date.
// A missing dash column puts every row in one dash group.
func BuildWith(t *table.Table, opt Options) (*Spec, error) {
	for _, name := range []string{opt.X, opt.Y, opt.Color} {
		if t.Index(name) < 0 {
			return nil, fmt.Errorf("%s: %w", name, ErrMissingColumn)
		}
	}
	xi, yi, ci := t.Index(opt.X), t.Index(opt.Y), t.Index(opt.Color)
	di := t.Index(opt.Dash)
	s := &Spec{
		Title: opt.Title, XTitle: opt.XTitle, YTitle: opt.YTitle, LegendTitle: opt.LegendTitle,
		X: opt.X, Y: opt.Y, Color: opt.Color, Markers: opt.Markers,
	}
	if di >= 0 {
		s.Dash = opt.Dash
	}
	type key struct{ color, dash string }
	pos := map[key]int{}
	seenColor, seenDash := map[string]bool{}, map[string]bool{}
	type dated struct {
		at  table.Cell
		pt  Point
		seq int
	}
	var buckets [][]dated
	for i, r := range t.Rows {
		xc := r[xi]
		if xc.Null {
			continue
		}
		k := key{color: r[ci].Format(t.Columns[ci].Kind)}
		if di >= 0 {
			k.dash = r[di].Format(t.Columns[di].Kind)
		}
		if !seenColor[k.color] {
			seenColor[k.color] = true
			s.Colors = append(s.Colors, k.color)
		}
		if di >= 0 && !seenDash[k.dash] {
			seenDash[k.dash] = true
			s.Dashes = append(s.Dashes, k.dash)
		}
		p, ok := pos[k]
		if !ok {
			p = len(s.Series)
			pos[k] = p
			name := k.color
			if di >= 0 {
				name += ", " + k.dash
			}
			s.Series = append(s.Series, Series{Name: name, Color: k.color, Dash: k.dash})
			buckets = append(buckets, nil)
		}
		pt := Point{X: xc.Format(t.Columns[xi].Kind)}
		if y, ok := r[yi].Number(t.Columns[yi].Kind); ok {
			pt.Y = &y
		}
		buckets[p] = append(buckets[p], dated{at: xc, pt: pt, seq: i})
	}
	xKind := t.Columns[xi].Kind
	for p, b := range buckets {
		sort.SliceStable(b, func(i, j int) bool {
			if xKind == table.KindDate {
				return b[i].at.Date.Before(b[j].at.Date)
			}
			return b[i].seq < b[j].seq
		})
		pts := make([]Point, len(b))
		for i, d := range b {
			pts[i] = d.pt
		}
		s.Series[p].Points = pts
	}
	return s, nil
}

// JSON renders the spec as indented JSON.
func (s *Spec) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal chart: %w", err)
	}
	return b, nil
}
