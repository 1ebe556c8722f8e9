package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/taxisim-cli/internal/table"
)

// Reader turns a file's bytes into a table.
type Reader interface {
	CanRead(filename string) bool
	Read(content []byte, opt Options) (*table.Table, error)
}

var registry []Reader

// Register adds a reader implementation to the registry.
func Register(r Reader) {
	registry = append(registry, r)
}

// ErrUnsupported indicates a file extension no reader handles.
var ErrUnsupported = errors.New("unsupported upload format")

// IngestFile selects a reader by filename and ingests the file.
func IngestFile(path string, opt Options) (*table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	for _, r := range registry {
		if r.CanRead(path) {
			return r.Read(data, opt)
		}
	}
	return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
}

type csvReader struct{}

func (csvReader) CanRead(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".txt")
}

func (csvReader) Read(content []byte, opt Options) (*table.Table, error) {
	return Ingest(content, opt)
}

type tsvReader struct{}

func (tsvReader) CanRead(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".tsv")
}

func (tsvReader) Read(content []byte, opt Options) (*table.Table, error) {
	if opt.Delimiter == 0 {
		opt.Delimiter = '\t'
	}
	return Ingest(content, opt)
}

type xlsxReader struct{}

func (xlsxReader) CanRead(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

func (xlsxReader) Read(content []byte, opt Options) (*table.Table, error) {
	records, err := ReadXLSX(content, opt.Sheet)
	if err != nil {
		return nil, err
	}
	return Build(records, opt)
}

// ReadXLSX returns the rows of the named sheet, or the first sheet when name is empty.
// Short rows are padded to the header width.
func ReadXLSX(content []byte, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("open xlsx: %w", err)}
	}
	defer f.Close()
	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, &ParseError{Err: errors.New("workbook has no sheets")}
		}
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, &ParseError{Err: fmt.Errorf("sheet %q not found; available: %s", sheet, strings.Join(f.GetSheetList(), ", "))}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("read sheet %s: %w", sheet, err)}
	}
	if len(rows) == 0 {
		return nil, &ParseError{Err: errors.New("empty sheet")}
	}
	width := len(rows[0])
	for i, r := range rows {
		if len(r) < width {
			padded := make([]string, width)
			copy(padded, r)
			rows[i] = padded
		}
	}
	return rows, nil
}

func init() {
	Register(csvReader{})
	Register(tsvReader{})
	Register(xlsxReader{})
}
