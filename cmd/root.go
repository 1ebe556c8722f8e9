package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/taxisim-cli/internal/config"
	"github.com/KaramelBytes/taxisim-cli/internal/inference"
	"github.com/KaramelBytes/taxisim-cli/internal/logx"
	"github.com/KaramelBytes/taxisim-cli/internal/session"
	"github.com/KaramelBytes/taxisim-cli/internal/utils"
	"github.com/KaramelBytes/taxisim-cli/internal/view"
)

var (
	cfgFile   string
	debug     bool
	flagTheme string
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "taxisim",
	Short: "taxisim: edit ride-count tables and chart forecasts",
	Long: `taxisim manages editable area/date tables in named sessions, imports CSV, TSV
and XLSX uploads, runs a forecasting model over them and renders the result as
a terminal table or a Plotly chart.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		if path, lerr := writeErrorLog(err); lerr == nil {
			fmt.Fprintf(os.Stderr, "  recent log: %s\n", path)
		}
		stop()
		os.Exit(1)
	}
}

// writeErrorLog saves the recent log ring, debug lines included, to
// ~/.taxisim/last-error.log so a failed run can be inspected afterwards.
func writeErrorLog(err error) (string, error) {
	logx.Errorf("command failed: %v", err)
	dir, derr := cfgpkg.Dir()
	if derr != nil {
		return "", derr
	}
	path := filepath.Join(dir, "last-error.log")
	data := []byte(strings.Join(logx.Lines(), "\n") + "\n")
	if werr := utils.SafeWriteFile(path, data); werr != nil {
		return "", werr
	}
	return path, nil
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.taxisim/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagTheme, "theme", "", "table theme: dark, light or plain (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds for remote models (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max attempts on 5xx/network errors (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	logx.SetLevelFromEnv()
	if debug {
		logx.SetLevel(logx.Debug)
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		return
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("theme") && flagTheme != "" {
		cfg.Theme = flagTheme
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}
	logx.Debugf("config loaded sessions_dir=%s theme=%s", cfg.SessionsDir, cfg.Theme)
}

func requireConfig() (*cfgpkg.Global, error) {
	if cfg == nil {
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	return cfg, nil
}

func sessionStore() (session.Store, error) {
	c, err := requireConfig()
	if err != nil {
		return session.Store{}, err
	}
	return session.Store{Root: c.SessionsDir}, nil
}

func openSession(name string) (*session.Session, error) {
	if name == "" {
		return nil, fmt.Errorf("--session is required")
	}
	st, err := sessionStore()
	if err != nil {
		return nil, err
	}
	return st.Open(name)
}

func styles() view.Styles {
	if cfg == nil {
		return view.NewStyles("dark")
	}
	return view.NewStyles(cfg.Theme)
}

func runtimeConfig() inference.RuntimeConfig {
	if cfg == nil {
		return inference.RuntimeConfig{}
	}
	return inference.RuntimeConfig{
		HTTPTimeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second,
		RetryMax:    cfg.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond,
	}
}
