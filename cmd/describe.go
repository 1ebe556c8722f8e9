package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/taxisim-cli/internal/analysis"
)

var (
	descHead    int
	descGroupBy string
)

var describeCmd = &cobra.Command{
	Use:   "describe [file]",
	Short: "Summarise a table: head, missing values, kinds and numeric stats",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, name, err := tableSource(cmd, args)
		if err != nil {
			return err
		}
		opt := analysis.DefaultOptions()
		if descHead > 0 {
			opt.HeadRows = descHead
		}
		opt.GroupBy = descGroupBy
		rep := analysis.Describe(name, t, opt)
		fmt.Fprint(cmd.OutOrStdout(), rep.Markdown())
		return nil
	},
}

func init() {
	describeCmd.Flags().StringP("session", "s", "", "session name")
	describeCmd.Flags().IntVar(&descHead, "head", 5, "number of leading rows to show")
	describeCmd.Flags().StringVar(&descGroupBy, "group-by", "", "column to compute per-value means over")
	addIngestFlags(describeCmd)
	rootCmd.AddCommand(describeCmd)
}
