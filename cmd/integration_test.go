package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/taxisim-cli/internal/logx"
	"github.com/KaramelBytes/taxisim-cli/internal/table"
)

// resetFlags clears values and Changed state that persist across Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmdErr executes the root command with args and returns stdout and the error.
func runCmdErr(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmdErr(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TAXISIM_LOG_LEVEL", "error")
	return home
}

func decodeTable(t *testing.T, out string) *table.Table {
	t.Helper()
	var tb table.Table
	if err := json.Unmarshal([]byte(out), &tb); err != nil {
		t.Fatalf("decode table json: %v\n%s", err, out)
	}
	return &tb
}

func TestCLI_New_Edit_Register_Delete(t *testing.T) {
	isolateHome(t)

	runCmd(t, "new", "seq")
	runCmd(t, "set", "-s", "seq", "2", "population", "75")
	runCmd(t, "add-row", "-s", "seq")

	tb := decodeTable(t, runCmd(t, "show", "-s", "seq", "--json"))
	if tb.Len() != 6 || tb.Columns[0].Name != table.StepColumn {
		t.Fatalf("unexpected table: %d rows, columns %v", tb.Len(), tb.Columns)
	}
	if c, _ := tb.Get(1, "population"); c.Int != 75 {
		t.Fatalf("population=%+v", c)
	}
	if c, _ := tb.Get(5, "step"); c.Int != 6 {
		t.Fatalf("blank row step=%+v", c)
	}

	if _, err := runCmdErr(t, "set", "-s", "seq", "1", "area", "Fukuoka"); err == nil {
		t.Fatalf("expected rejection for value outside the option set")
	}
	if _, err := runCmdErr(t, "set", "-s", "seq", "1", "step", "9"); err == nil {
		t.Fatalf("expected rejection for step edit")
	}

	runCmd(t, "delete-row", "-s", "seq", "6")
	if out := runCmd(t, "register", "-s", "seq"); !strings.Contains(out, "Registered sequence seq (5 rows)") {
		t.Fatalf("register output: %q", out)
	}
	if out := runCmd(t, "list"); !strings.Contains(out, "- seq: 5 rows, registered") {
		t.Fatalf("list output: %q", out)
	}

	plain := runCmd(t, "show", "-s", "seq", "--theme", "plain", "--area", "Kyoto", "--area", "Nara")
	if !strings.Contains(plain, "Kyoto") || strings.Contains(plain, "Sendai") || !strings.Contains(plain, "(2 rows)") {
		t.Fatalf("filtered show:\n%s", plain)
	}

	runCmd(t, "delete", "seq")
	if out := runCmd(t, "list"); !strings.Contains(out, "(no sessions)") {
		t.Fatalf("list after delete: %q", out)
	}
}

func TestCLI_Import_Predict_Chart(t *testing.T) {
	home := isolateHome(t)
	csvPath := filepath.Join(home, "trips.csv")
	csv := "area,date,num_trip\n" +
		"Kyoto,2019-12-01,100\nKyoto,2019-12-02,120\nKyoto,2019-12-03,\n" +
		"Nara,2019-12-01,40\nNara,2019-12-02,50\nNara,2019-12-03,\n"
	if err := os.WriteFile(csvPath, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	modelPath := filepath.Join(home, "model.yaml")
	if err := os.WriteFile(modelPath, []byte("name: persistence\nintercept: 0\ncoefficients:\n  lag1: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	runCmd(t, "new", "trips")
	runCmd(t, "import", "-s", "trips", csvPath)
	desc := runCmd(t, "describe", "-s", "trips")
	if !strings.Contains(desc, "Rows: 6") || !strings.Contains(desc, "- num_trip: 2") {
		t.Fatalf("describe output:\n%s", desc)
	}

	out := runCmd(t, "predict", "-s", "trips", "--model", modelPath, "--start", "2019-12-03", "--area", "Kyoto", "--json")
	pred := decodeTable(t, out)
	if pred.Len() != 3 {
		t.Fatalf("expected 3 Kyoto rows, got %d", pred.Len())
	}
	last := pred.Rows[2]
	if last[pred.Index("label")].Text != "predict" || last[pred.Index("num_trip")].Int != 120 {
		t.Fatalf("forecast row=%+v", last)
	}
	if first := pred.Rows[0]; first[pred.Index("label")].Text != "real" || first[pred.Index("num_trip")].Int != 100 {
		t.Fatalf("history row=%+v", first)
	}

	chartPath := filepath.Join(home, "chart.json")
	runCmd(t, "predict", csvPath, "--model", modelPath, "--start", "2019-12-03", "--chart", chartPath, "--plotly")
	b, err := os.ReadFile(chartPath)
	if err != nil {
		t.Fatalf("read chart: %v", err)
	}
	var fig struct {
		Data []struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &fig); err != nil {
		t.Fatalf("chart json: %v", err)
	}
	if len(fig.Data) != 4 || fig.Data[0].Name != "Kyoto, real" {
		t.Fatalf("traces=%+v", fig.Data)
	}
}

func TestCLI_ImportFailureKeepsSession(t *testing.T) {
	home := isolateHome(t)
	bad := filepath.Join(home, "bad.csv")
	if err := os.WriteFile(bad, []byte("area,num_trip\nKyoto,1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	runCmd(t, "new", "keep")
	if _, err := runCmdErr(t, "import", "-s", "keep", bad); err == nil {
		t.Fatalf("expected import error")
	}
	tb := decodeTable(t, runCmd(t, "show", "-s", "keep", "--json"))
	if tb.Len() != 5 {
		t.Fatalf("session changed after failed import: %d rows", tb.Len())
	}
}

func TestCLI_ErrorLogKeepsDebugLines(t *testing.T) {
	home := isolateHome(t)
	logx.SetOutput(nil)
	defer logx.SetOutput(os.Stderr)

	_, err := runCmdErr(t, "set", "-s", "missing", "1", "area", "Kyoto")
	if err == nil {
		t.Fatalf("expected error for a missing session")
	}
	path, err := writeErrorLog(err)
	if err != nil {
		t.Fatalf("write error log: %v", err)
	}
	if path != filepath.Join(home, ".taxisim", "last-error.log") {
		t.Fatalf("path=%s", path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	log := string(b)
	if !strings.Contains(log, "DEBUG config loaded") || !strings.Contains(log, "ERROR command failed") {
		t.Fatalf("unexpected error log:\n%s", log)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	isolateHome(t)
	runCmd(t, "config", "set", "display_days", "7")
	runCmd(t, "config", "set", "area_options", "Kyoto, Nara")
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "display_days: 7") || !strings.Contains(out, "area_options: Kyoto,Nara") {
		t.Fatalf("config show:\n%s", out)
	}
	if _, err := runCmdErr(t, "config", "set", "theme", "neon"); err == nil {
		t.Fatalf("expected invalid theme error")
	}
}
