package table

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the semantic type of a column.
type Kind string

const (
	KindInt      Kind = "int"
	KindFloat    Kind = "float"
	KindText     Kind = "text"
	KindCategory Kind = "category"
	KindDate     Kind = "date"
)

// DateLayout is the canonical calendar-date format used for display and persistence.
const DateLayout = "2006-01-02"

// Absence markers shown for Null cells.
const (
	MissingDate  = "NaT"
	MissingValue = "<NA>"
)

// Cell holds one value. Which field is meaningful depends on the column Kind.
type Cell struct {
	Null  bool
	Int   int64
	Float float64
	Text  string
	Date  time.Time
}

// Null returns an absent value.
func Null() Cell { return Cell{Null: true} }

// Int returns an integer cell.
func Int(v int64) Cell { return Cell{Int: v} }

// Float returns a float cell.
func Float(v float64) Cell { return Cell{Float: v} }

// Text returns a text or category cell.
func Text(v string) Cell { return Cell{Text: v} }

// Date returns a calendar-date cell at UTC midnight.
func Date(year int, month time.Month, day int) Cell {
	return Cell{Date: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Cell {
	return Date(t.Year(), t.Month(), t.Day())
}

// Format renders the cell for display according to kind.
func (c Cell) Format(k Kind) string {
	if c.Null {
		if k == KindDate {
			return MissingDate
		}
		return MissingValue
	}
	switch k {
	case KindInt:
		return strconv.FormatInt(c.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case KindDate:
		return c.Date.Format(DateLayout)
	default:
		return c.Text
	}
}

// Number returns the numeric value of an int or float cell.
func (c Cell) Number(k Kind) (float64, bool) {
	if c.Null {
		return 0, false
	}
	switch k {
	case KindInt:
		return float64(c.Int), true
	case KindFloat:
		return c.Float, true
	}
	return 0, false
}

// Any returns a plain Go value suitable for expression evaluation or JSON.
func (c Cell) Any(k Kind) any {
	if c.Null {
		return nil
	}
	switch k {
	case KindInt:
		return c.Int
	case KindFloat:
		return c.Float
	case KindDate:
		return c.Date.Format(DateLayout)
	default:
		return c.Text
	}
}

// Parse converts raw text into a cell of kind k. Empty input yields Null.
func Parse(k Kind, raw string) (Cell, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == MissingDate || s == MissingValue {
		return Null(), nil
	}
	switch k {
	case KindInt:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			// accept integral floats such as "100.0"
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil || f != math.Trunc(f) {
				return Cell{}, fmt.Errorf("invalid int %q", raw)
			}
			// float64(math.MaxInt64) rounds up to 2^63, which does not fit
			if f >= math.MaxInt64 || f < math.MinInt64 {
				return Cell{}, fmt.Errorf("int %q out of range", raw)
			}
			v = int64(f)
		}
		return Int(v), nil
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Cell{}, fmt.Errorf("invalid float %q", raw)
		}
		return Float(f), nil
	case KindDate:
		t, ok := ParseDate(s)
		if !ok {
			return Cell{}, fmt.Errorf("invalid date %q", raw)
		}
		return DateOf(t), nil
	default:
		return Text(s), nil
	}
}

var dateLayouts = []string{
	DateLayout, time.RFC3339, "2006/01/02", "2006-01-02 15:04", "2006-01-02 15:04:05",
	"2006-01-02T15:04:05", "01/02/2006", "1/2/2006", "1/2/2006 15:04", "1/2/2006 15:04:05",
}

// ParseDate tries the supported date layouts in order.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (c Cell) marshal(k Kind) json.RawMessage {
	b, _ := json.Marshal(c.Any(k))
	return b
}

func unmarshalCell(k Kind, raw json.RawMessage) (Cell, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Null(), nil
	}
	switch k {
	case KindInt, KindFloat:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return Cell{}, err
		}
		return Parse(k, n.String())
	default:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Cell{}, err
		}
		if k == KindDate {
			return Parse(k, s)
		}
		return Text(s), nil
	}
}
