package chart

import (
	"encoding/json"
	"fmt"
)

// Plotly's default qualitative palette and dash sequence, assigned in group order.
var (
	palette = []string{"#636efa", "#EF553B", "#00cc96", "#ab63fa", "#FFA15A", "#19d3f3", "#FF6692", "#B6E880", "#FF97FF", "#FECB52"}
	dashes  = []string{"solid", "dot", "dash", "longdash", "dashdot", "longdashdot"}
)

type plotlyTitle struct {
	Text string `json:"text"`
}

type plotlyAxis struct {
	Title plotlyTitle `json:"title"`
}

type plotlyLine struct {
	Color string `json:"color"`
	Dash  string `json:"dash"`
}

type plotlyTrace struct {
	Type        string     `json:"type"`
	Mode        string     `json:"mode"`
	Name        string     `json:"name"`
	LegendGroup string     `json:"legendgroup"`
	X           []string   `json:"x"`
	Y           []*float64 `json:"y"`
	Line        plotlyLine `json:"line"`
}

type plotlyLayout struct {
	Title  plotlyTitle `json:"title"`
	XAxis  plotlyAxis  `json:"xaxis"`
	YAxis  plotlyAxis  `json:"yaxis"`
	Legend struct {
		Title plotlyTitle `json:"title"`
	} `json:"legend"`
}

type plotlyFigure struct {
	Data   []plotlyTrace `json:"data"`
	Layout plotlyLayout  `json:"layout"`
}

// Plotly renders the spec as a Plotly figure JSON document.
func (s *Spec) Plotly() ([]byte, error) {
	colorIdx := map[string]int{}
	for i, c := range s.Colors {
		colorIdx[c] = i
	}
	dashIdx := map[string]int{}
	for i, d := range s.Dashes {
		dashIdx[d] = i
	}
	mode := "lines"
	if s.Markers {
		mode = "lines+markers"
	}
	fig := plotlyFigure{Data: make([]plotlyTrace, 0, len(s.Series))}
	for _, ser := range s.Series {
		tr := plotlyTrace{
			Type:        "scatter",
			Mode:        mode,
			Name:        ser.Name,
			LegendGroup: ser.Name,
			X:           make([]string, len(ser.Points)),
			Y:           make([]*float64, len(ser.Points)),
			Line: plotlyLine{
				Color: palette[colorIdx[ser.Color]%len(palette)],
				Dash:  dashes[dashIdx[ser.Dash]%len(dashes)],
			},
		}
		for i, p := range ser.Points {
			tr.X[i] = p.X
			tr.Y[i] = p.Y
		}
		fig.Data = append(fig.Data, tr)
	}
	fig.Layout.Title.Text = s.Title
	fig.Layout.XAxis.Title.Text = s.XTitle
	fig.Layout.YAxis.Title.Text = s.YTitle
	fig.Layout.Legend.Title.Text = s.LegendTitle
	b, err := json.MarshalIndent(fig, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal plotly figure: %w", err)
	}
	return b, nil
}
