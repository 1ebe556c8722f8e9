package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/taxisim-cli/internal/ingest"
	"github.com/KaramelBytes/taxisim-cli/internal/table"
	"github.com/KaramelBytes/taxisim-cli/internal/utils"
	"github.com/KaramelBytes/taxisim-cli/internal/view"
)

// addIngestFlags registers the upload parsing flags shared by import, inspect, replace, describe, chart and predict.
func addIngestFlags(c *cobra.Command) {
	c.Flags().String("delimiter", "", "field delimiter for delimited text (default: sniffed)")
	c.Flags().String("date-column", "date", "column parsed as calendar dates")
	c.Flags().String("category-column", "area", "column cast to a category")
	c.Flags().String("sheet", "", "XLSX sheet name (default: first sheet)")
}

func ingestOptions(c *cobra.Command) (ingest.Options, error) {
	opt := ingest.DefaultOptions()
	f := c.Flags()
	if v, _ := f.GetString("date-column"); v != "" {
		opt.DateColumn = v
	}
	if v, _ := f.GetString("category-column"); v != "" {
		opt.CategoryColumn = v
	}
	opt.Sheet, _ = f.GetString("sheet")
	if d, _ := f.GetString("delimiter"); d != "" {
		if d == `\t` || d == "tab" {
			d = "\t"
		}
		r, size := utf8.DecodeRuneInString(d)
		if size != len(d) {
			return opt, fmt.Errorf("--delimiter must be a single character, got %q", d)
		}
		opt.Delimiter = r
	}
	return opt, nil
}

// loadTableFile reads a table from a .json export or any upload format.
func loadTableFile(path string, opt ingest.Options) (*table.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		var t table.Table
		if err := json.Unmarshal(b, &t); err != nil {
			return nil, fmt.Errorf("parse table json: %w", err)
		}
		return &t, nil
	}
	return ingest.IngestFile(path, opt)
}

// tableSource resolves the -s session or a positional file into a table.
func tableSource(c *cobra.Command, args []string) (*table.Table, string, error) {
	name, _ := c.Flags().GetString("session")
	switch {
	case name != "" && len(args) > 0:
		return nil, "", fmt.Errorf("use either --session or a file, not both")
	case name != "":
		s, err := openSession(name)
		if err != nil {
			return nil, "", err
		}
		return s.Table, s.Name, nil
	case len(args) == 1:
		opt, err := ingestOptions(c)
		if err != nil {
			return nil, "", err
		}
		t, err := loadTableFile(args[0], opt)
		if err != nil {
			return nil, "", err
		}
		return t, filepath.Base(args[0]), nil
	}
	return nil, "", fmt.Errorf("specify --session or a file")
}

func printTable(c *cobra.Command, t *table.Table) error {
	out := c.OutOrStdout()
	if asJSON, _ := c.Flags().GetBool("json"); asJSON {
		b, err := utils.PrettyJSON(t)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	}
	_, err := fmt.Fprint(out, view.Render(t, styles()))
	return err
}
