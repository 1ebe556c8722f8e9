package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/taxisim-cli/internal/inference"
	"github.com/KaramelBytes/taxisim-cli/internal/table"
)

var predictCmd = &cobra.Command{
	Use:   "predict [file]",
	Short: "Forecast num_trip from a start date and show real vs predicted rows",
	Long: `predict runs the model over a table with area, date and num_trip columns.
Rows dated before --start keep their observed counts (label real); the rest
carry the model's forecast (label predict). The result is then filtered by
--area/--days/--where and printed, and optionally written as a chart.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		modelPath, _ := f.GetString("model")
		if modelPath == "" && cfg != nil {
			modelPath = cfg.DefaultModel
		}
		if modelPath == "" {
			return fmt.Errorf("--model is required (or set default_model)")
		}
		startRaw, _ := f.GetString("start")
		start, ok := table.ParseDate(startRaw)
		if !ok {
			return fmt.Errorf("invalid --start date %q (want YYYY-MM-DD)", startRaw)
		}
		t, _, err := tableSource(cmd, args)
		if err != nil {
			return err
		}

		uc := inference.NewUseCase(inference.NewRegistryLoader(runtimeConfig()))
		result, err := uc.Run(cmd.Context(), t, modelPath, start)
		if err != nil {
			return err
		}
		shown, err := applyFilterFlags(cmd, result)
		if err != nil {
			return err
		}
		if err := printTable(cmd, shown); err != nil {
			return err
		}
		if out, _ := f.GetString("chart"); out != "" {
			plotly, _ := f.GetBool("plotly")
			return writeChart(cmd, shown, plotly, out)
		}
		return nil
	},
}

func init() {
	predictCmd.Flags().StringP("session", "s", "", "session name")
	predictCmd.Flags().String("model", "", "model reference: YAML artifact path, file:// or http(s):// endpoint")
	predictCmd.Flags().String("start", time.Now().Format(table.DateLayout), "first predicted date (YYYY-MM-DD)")
	predictCmd.Flags().String("chart", "", "also write the chart to this file")
	predictCmd.Flags().Bool("plotly", false, "write the chart as a Plotly figure")
	predictCmd.Flags().Bool("json", false, "print the table as JSON")
	addFilterFlags(predictCmd)
	addIngestFlags(predictCmd)
	rootCmd.AddCommand(predictCmd)
}
