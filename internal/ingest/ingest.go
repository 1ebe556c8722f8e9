package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/taxisim-cli/internal/table"
)

// Options controls how an upload is turned into a table.
type Options struct {
	// Delimiter for delimited text. If 0, sniffed from the header line.
	Delimiter rune
	// DateColumn is parsed into calendar dates and is required. Defaults to "date".
	DateColumn string
	// CategoryColumn is cast to a category column. Defaults to "area".
	CategoryColumn string
	// Sheet selects an XLSX sheet by name; empty means the first sheet.
	Sheet string
}

// DefaultOptions returns the upload format described for sequence files.
func DefaultOptions() Options {
	return Options{DateColumn: "date", CategoryColumn: "area"}
}

func (o Options) withDefaults() Options {
	if o.DateColumn == "" {
		o.DateColumn = "date"
	}
	if o.CategoryColumn == "" {
		o.CategoryColumn = "area"
	}
	return o
}

// ErrNoDateColumn marks uploads without the required date column.
var ErrNoDateColumn = errors.New("date column missing")

// ParseError reports why an upload could not be ingested.
type ParseError struct {
	Line   int    // 1-based record number including the header; 0 if unknown
	Column string // offending column, if any
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse upload")
	if e.Line > 0 {
		fmt.Fprintf(&b, ": line %d", e.Line)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, ": column %s", e.Column)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Ingest parses delimited text into a table. The result is not renumbered.
func Ingest(raw []byte, opt Options) (*table.Table, error) {
	opt = opt.withDefaults()
	if !utf8.Valid(raw) || bytes.IndexByte(raw, 0) >= 0 {
		return nil, &ParseError{Err: errors.New("not delimited text")}
	}
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(raw)
	}
	r := csv.NewReader(bytes.NewReader(raw))
	r.Comma = delim
	r.TrimLeadingSpace = true
	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, &ParseError{Line: line, Err: err}
		}
		records = append(records, rec)
	}
	return Build(records, opt)
}

// Build types a header-first record grid into a table.
func Build(records [][]string, opt Options) (*table.Table, error) {
	opt = opt.withDefaults()
	if len(records) == 0 {
		return nil, &ParseError{Err: errors.New("empty upload")}
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		header[i] = h
	}
	ncol := len(header)
	dateAt := -1
	for i, h := range header {
		if h == opt.DateColumn {
			dateAt = i
		}
	}
	if dateAt < 0 {
		return nil, &ParseError{Line: 1, Column: opt.DateColumn, Err: ErrNoDateColumn}
	}
	body := records[1:]
	for i, rec := range body {
		if len(rec) != ncol {
			return nil, &ParseError{Line: i + 2, Err: fmt.Errorf("has %d fields, header has %d", len(rec), ncol)}
		}
	}

	t := table.New()
	for j, name := range header {
		var kind table.Kind
		switch {
		case j == dateAt:
			kind = table.KindDate
		case name == opt.CategoryColumn:
			kind = table.KindCategory
		default:
			kind = inferKind(body, j)
		}
		t.Columns = append(t.Columns, table.Column{Name: name, Kind: kind})
	}
	for i, rec := range body {
		row := make(table.Row, ncol)
		for j, v := range rec {
			c, err := table.Parse(t.Columns[j].Kind, v)
			if err != nil {
				return nil, &ParseError{Line: i + 2, Column: header[j], Err: err}
			}
			row[j] = c
		}
		if err := t.Append(row); err != nil {
			return nil, &ParseError{Line: i + 2, Err: err}
		}
	}
	if j := t.Index(opt.CategoryColumn); j >= 0 {
		t.Columns[j].Options = categories(t, j)
	}
	return t, nil
}

// inferKind picks int, then float, then text for a column's non-empty values.
func inferKind(body [][]string, j int) table.Kind {
	isInt, isFloat, seen := true, true, false
	for _, rec := range body {
		v := strings.TrimSpace(rec[j])
		if v == "" {
			continue
		}
		seen = true
		if isInt {
			if _, err := table.Parse(table.KindInt, v); err != nil || strings.ContainsAny(v, ".eE") {
				isInt = false
			}
		}
		if isFloat {
			if _, err := table.Parse(table.KindFloat, v); err != nil {
				isFloat = false
			}
		}
		if !isInt && !isFloat {
			return table.KindText
		}
	}
	switch {
	case !seen:
		return table.KindText
	case isInt:
		return table.KindInt
	case isFloat:
		return table.KindFloat
	}
	return table.KindText
}

func categories(t *table.Table, j int) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range t.Rows {
		if c := r[j]; !c.Null && !seen[c.Text] {
			seen[c.Text] = true
			out = append(out, c.Text)
		}
	}
	sort.Strings(out)
	return out
}

func sniffDelimiter(raw []byte) rune {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
