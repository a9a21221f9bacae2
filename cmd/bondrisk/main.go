// bondrisk values fixed-rate bond portfolios and measures their
// sensitivity to yield shocks.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/bondrisk/internal/config"
	"github.com/seenimoa/bondrisk/pkg/logger"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set up before every command runs.
var (
	cfg        *config.Config
	configFile string
	log        zerolog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "bondrisk",
	Short: "Bond portfolio valuation and yield-shock analysis",
	Long: `bondrisk prices fixed-rate coupon bonds, computes their duration,
convexity and DV01, and re-prices the portfolio under parallel or
per-instrument yield shocks.

Portfolios are read from CSV, YAML or JSON files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ = cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := applyFlagOverrides(cmd, cfg); err != nil {
			return err
		}

		level := cfg.Logging.Level
		if v, _ := cmd.Flags().GetString("log-level"); v != "" {
			level = v
		}
		log = logger.New(logger.Config{Level: level, Format: cfg.Logging.Format, Out: cmd.ErrOrStderr()})
		logger.SetGlobalLogger(log)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file path (default: ./config/config.yaml)")
	pf.String("log-level", "", "log level override (debug, info, warn, error)")
	pf.String("convention", "", "pricing convention: whole or fractional")
	pf.Int("frequency", 0, "default compounding periods per year for rows without one")
	pf.Int("workers", 0, "concurrent valuations")
	pf.String("format", "", "report format: text, markdown, pretty, csv, json")
	pf.String("currency", "", "ISO 4217 currency for money columns")
	pf.Int("top", -1, "most sensitive bonds to list (0 = all)")
	pf.String("duration-unit", "", "report durations in periods or years")
	pf.String("spot-date", "", "valuation date for maturity_date rows (YYYY-MM-DD)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(valueCmd)
	rootCmd.AddCommand(shockCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// applyFlagOverrides copies explicitly set persistent flags into the loaded
// config and validates the result.
func applyFlagOverrides(cmd *cobra.Command, c *config.Config) error {
	f := cmd.Flags()
	if f.Changed("convention") {
		c.Engine.Convention, _ = f.GetString("convention")
	}
	if f.Changed("frequency") {
		c.Engine.Frequency, _ = f.GetInt("frequency")
	}
	if f.Changed("workers") {
		c.Engine.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("format") {
		c.Report.Format, _ = f.GetString("format")
	}
	if f.Changed("currency") {
		c.Report.Currency, _ = f.GetString("currency")
	}
	if f.Changed("top") {
		c.Report.TopN, _ = f.GetInt("top")
	}
	if f.Changed("duration-unit") {
		c.Report.DurationUnit, _ = f.GetString("duration-unit")
	}
	if f.Changed("spot-date") {
		c.Input.SpotDate, _ = f.GetString("spot-date")
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "bondrisk %s\n", version)
		fmt.Fprintf(out, "  commit:  %s\n", commit)
		fmt.Fprintf(out, "  built:   %s\n", date)
	},
}
