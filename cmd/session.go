package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a session seeded with the default table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := sessionStore()
		if err != nil {
			return err
		}
		s, err := st.Create(args[0], cfg.AreaOptions)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created session %s (%d rows) at %s\n", s.Name, s.Table.Len(), s.RootDir())
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := sessionStore()
		if err != nil {
			return err
		}
		all, err := st.List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(all) == 0 {
			fmt.Fprintln(out, "(no sessions)")
			return nil
		}
		for _, s := range all {
			status := "draft"
			if s.RegisteredAt != nil {
				status = "registered " + s.RegisteredAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(out, "- %s: %d rows, %s\n", s.Name, s.Table.Len(), status)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a session and its table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := sessionStore()
		if err != nil {
			return err
		}
		if err := st.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted session %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
}
