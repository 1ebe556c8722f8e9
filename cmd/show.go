package cmd

import (
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/taxisim-cli/internal/filter"
	"github.com/KaramelBytes/taxisim-cli/internal/table"
)

// addFilterFlags registers --area, --days and --where.
func addFilterFlags(c *cobra.Command) {
	c.Flags().StringSlice("area", nil, "only rows for these areas (repeatable; default all)")
	c.Flags().Int("days", 0, "trailing display window in days (default: display_days from config, 0 = all)")
	c.Flags().String("where", "", "boolean row filter, e.g. \"num_trip > 100 && area == 'Kyoto'\"")
}

func applyFilterFlags(c *cobra.Command, t *table.Table) (*table.Table, error) {
	f := c.Flags()
	areas, _ := f.GetStringSlice("area")
	days, _ := f.GetInt("days")
	if !f.Changed("days") && cfg != nil {
		days = cfg.DisplayDays
	}
	where, _ := f.GetString("where")
	cat, _ := f.GetString("category-column")
	dc, _ := f.GetString("date-column")
	return filter.Apply(t, filter.Criteria{
		CategoryColumn: cat,
		Selected:       areas,
		DateColumn:     dc,
		Days:           days,
		Expr:           where,
	})
}

var showCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Print a session table or an upload, optionally filtered",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, _, err := tableSource(cmd, args)
		if err != nil {
			return err
		}
		out, err := applyFilterFlags(cmd, t)
		if err != nil {
			return err
		}
		return printTable(cmd, out)
	},
}

func init() {
	showCmd.Flags().StringP("session", "s", "", "session name")
	showCmd.Flags().Bool("json", false, "print the table as JSON")
	addFilterFlags(showCmd)
	addIngestFlags(showCmd)
	rootCmd.AddCommand(showCmd)
}
