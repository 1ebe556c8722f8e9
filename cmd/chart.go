package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/taxisim-cli/internal/chart"
	"github.com/KaramelBytes/taxisim-cli/internal/table"
	"github.com/KaramelBytes/taxisim-cli/internal/utils"
)

// chartBytes renders t as a chart spec, or a Plotly figure when plotly is set.
func chartBytes(t *table.Table, plotly bool) ([]byte, error) {
	opt := chart.DefaultOptions()
	if cfg != nil && cfg.ChartTitle != "" {
		opt.Title = cfg.ChartTitle
	}
	spec, err := chart.BuildWith(t, opt)
	if err != nil {
		return nil, err
	}
	if plotly {
		return spec.Plotly()
	}
	return spec.JSON()
}

func writeChart(cmd *cobra.Command, t *table.Table, plotly bool, path string) error {
	b, err := chartBytes(t, plotly)
	if err != nil {
		return err
	}
	if path == "" || path == "-" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return err
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote chart to %s\n", path)
	return nil
}

var chartCmd = &cobra.Command{
	Use:   "chart [file]",
	Short: "Render a date/num_trip line chart spec for a table",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, _, err := tableSource(cmd, args)
		if err != nil {
			return err
		}
		t, err = applyFilterFlags(cmd, t)
		if err != nil {
			return err
		}
		plotly, _ := cmd.Flags().GetBool("plotly")
		out, _ := cmd.Flags().GetString("output")
		return writeChart(cmd, t, plotly, out)
	},
}

func init() {
	chartCmd.Flags().StringP("session", "s", "", "session name")
	chartCmd.Flags().Bool("plotly", false, "emit a Plotly figure instead of the chart spec")
	chartCmd.Flags().StringP("output", "o", "", "write to file instead of stdout")
	addFilterFlags(chartCmd)
	addIngestFlags(chartCmd)
	rootCmd.AddCommand(chartCmd)
}
