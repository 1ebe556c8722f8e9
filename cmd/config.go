package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/taxisim-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set taxisim configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "sessions_dir: %s\n", cfg.SessionsDir)
		fmt.Fprintf(out, "area_options: %s\n", strings.Join(cfg.AreaOptions, ","))
		if cfg.DefaultModel != "" {
			fmt.Fprintf(out, "default_model: %s\n", cfg.DefaultModel)
		}
		fmt.Fprintf(out, "display_days: %d\n", cfg.DisplayDays)
		fmt.Fprintf(out, "chart_title: %s\n", cfg.ChartTitle)
		fmt.Fprintf(out, "theme: %s\n", cfg.Theme)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(out, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Fprintf(out, "retry_base_delay_ms: %d\n", cfg.RetryBaseDelayMs)
		fmt.Fprintf(out, "retry_max_delay_ms: %d\n", cfg.RetryMaxDelayMs)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := requireConfig()
		if err != nil {
			return err
		}
		atoi := func() (int, error) {
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return 0, fmt.Errorf("invalid non-negative int for %s: %v", key, val)
			}
			return i, nil
		}
		switch key {
		case "sessions_dir":
			c.SessionsDir = val
		case "area_options":
			var opts []string
			for _, p := range strings.Split(val, ",") {
				if p = strings.TrimSpace(p); p != "" {
					opts = append(opts, p)
				}
			}
			if len(opts) == 0 {
				return fmt.Errorf("area_options needs at least one value")
			}
			c.AreaOptions = opts
		case "default_model":
			c.DefaultModel = val
		case "chart_title":
			c.ChartTitle = val
		case "theme":
			switch val {
			case "dark", "light", "plain":
				c.Theme = val
			default:
				return fmt.Errorf("invalid theme: %s (use dark, light or plain)", val)
			}
		case "display_days", "http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms":
			i, err := atoi()
			if err != nil {
				return err
			}
			switch key {
			case "display_days":
				c.DisplayDays = i
			case "http_timeout_sec":
				c.HTTPTimeoutSec = i
			case "retry_max_attempts":
				c.RetryMaxAttempts = i
			case "retry_base_delay_ms":
				c.RetryBaseDelayMs = i
			case "retry_max_delay_ms":
				c.RetryMaxDelayMs = i
			}
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
