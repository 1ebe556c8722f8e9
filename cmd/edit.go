package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/taxisim-cli/internal/logx"
	"github.com/KaramelBytes/taxisim-cli/internal/session"
)

// editSession loads the -s session, applies fn, saves and prints the new table.
func editSession(c *cobra.Command, fn func(s *session.Session) error) error {
	name, _ := c.Flags().GetString("session")
	s, err := openSession(name)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	if err := s.Save(); err != nil {
		return err
	}
	logx.Infof("session %s saved rows=%d", s.Name, s.Table.Len())
	return printTable(c, s.Table)
}

func parseStep(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid step %q: want a positive integer", v)
	}
	return n, nil
}

var addRowCmd = &cobra.Command{
	Use:   "add-row",
	Short: "Append a blank row to the session table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return editSession(cmd, func(s *session.Session) error {
			s.AddRow()
			return nil
		})
	},
}

var setCmd = &cobra.Command{
	Use:   "set <step> <column> <value>",
	Short: "Set one cell; an empty value clears it",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		step, err := parseStep(args[0])
		if err != nil {
			return err
		}
		return editSession(cmd, func(s *session.Session) error {
			return s.SetCell(step, args[1], args[2])
		})
	},
}

var deleteRowCmd = &cobra.Command{
	Use:   "delete-row <step>",
	Short: "Remove the row with the given step",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		step, err := parseStep(args[0])
		if err != nil {
			return err
		}
		return editSession(cmd, func(s *session.Session) error {
			return s.DeleteRow(step)
		})
	},
}

var replaceCmd = &cobra.Command{
	Use:   "replace <file>",
	Short: "Replace the session table with an edited copy (.json export or upload)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := ingestOptions(cmd)
		if err != nil {
			return err
		}
		edited, err := loadTableFile(args[0], opt)
		if err != nil {
			return err
		}
		return editSession(cmd, func(s *session.Session) error {
			s.Replace(edited)
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a CSV, TSV or XLSX upload into the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := ingestOptions(cmd)
		if err != nil {
			return err
		}
		return editSession(cmd, func(s *session.Session) error {
			return s.Import(args[0], opt)
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Validate the session table and mark the sequence registered",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("session")
		s, err := openSession(name)
		if err != nil {
			return err
		}
		if err := s.Register(time.Now()); err != nil {
			return fmt.Errorf("sequence not registered: %w", err)
		}
		if err := s.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Registered sequence %s (%d rows)\n", s.Name, s.Table.Len())
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Parse an upload and print it without touching any session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := ingestOptions(cmd)
		if err != nil {
			return err
		}
		t, err := loadTableFile(args[0], opt)
		if err != nil {
			return err
		}
		return printTable(cmd, t)
	},
}

func init() {
	for _, c := range []*cobra.Command{addRowCmd, setCmd, deleteRowCmd, replaceCmd, importCmd, registerCmd} {
		c.Flags().StringP("session", "s", "", "session name (required)")
		_ = c.MarkFlagRequired("session")
		c.Flags().Bool("json", false, "print the table as JSON")
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{replaceCmd, importCmd, inspectCmd} {
		addIngestFlags(c)
	}
	inspectCmd.Flags().Bool("json", false, "print the table as JSON")
	rootCmd.AddCommand(inspectCmd)
}
