package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/bondrisk/internal/config"
	"github.com/seenimoa/bondrisk/internal/holdings"
	"github.com/seenimoa/bondrisk/internal/portfolio"
	"github.com/seenimoa/bondrisk/internal/report"
	"github.com/seenimoa/bondrisk/pkg/models"
)

// inputOptions are the per-command portfolio file options.
type inputOptions struct {
	ISINs   []string
	Percent bool
}

// --- Value Command ---

var valueCmd = &cobra.Command{
	Use:   "value [portfolio-file]",
	Short: "Value every bond: price, duration, convexity and DV01",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := analyzeFile(cmd.Context(), cfg, args[0], readInputOptions(cmd), nil, log)
		if err != nil {
			return err
		}
		return report.Render(cmd.OutOrStdout(), a, reportConfig(cfg))
	},
}

// --- Shock Command ---

var shockCmd = &cobra.Command{
	Use:   "shock [portfolio-file]",
	Short: "Re-price the portfolio under a yield shock",
	Long: `Re-price every bond under a parallel or per-instrument yield shock and
report full-reprice P/L next to the duration and convexity estimates.

Examples:
  bondrisk shock holdings.csv --shift-bps 50
  bondrisk shock holdings.csv --isin-shift IN0020200011=-25,IN0020210027=40
  bondrisk shock holdings.yaml --scenario stress.yaml --format markdown`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := runShock(cmd, args[0])
		if err != nil {
			return err
		}
		return report.Render(cmd.OutOrStdout(), a, reportConfig(cfg))
	},
}

// --- Rank Command ---

var rankCmd = &cobra.Command{
	Use:   "rank [portfolio-file]",
	Short: "List the bonds most sensitive to a yield shock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := runShock(cmd, args[0])
		if err != nil {
			return err
		}
		return report.RenderRanking(cmd.OutOrStdout(), a, reportConfig(cfg))
	},
}

func init() {
	for _, c := range []*cobra.Command{valueCmd, shockCmd, rankCmd} {
		c.Flags().StringSlice("isin", nil, "only analyse these ISINs (repeatable or comma separated)")
		c.Flags().Bool("percent", false, "coupon and ytm columns are in percent (6.45 = 6.45%)")
	}
	for _, c := range []*cobra.Command{shockCmd, rankCmd} {
		c.Flags().Int("shift-bps", 0, "parallel yield shift in basis points")
		c.Flags().StringToInt("isin-shift", nil, "per-instrument shifts, ISIN=bps")
		c.Flags().String("scenario", "", "scenario file (YAML or JSON)")
	}
}

func readInputOptions(cmd *cobra.Command) inputOptions {
	isins, _ := cmd.Flags().GetStringSlice("isin")
	percent, _ := cmd.Flags().GetBool("percent")
	return inputOptions{ISINs: isins, Percent: percent}
}

func runShock(cmd *cobra.Command, path string) (*portfolio.Analysis, error) {
	f := cmd.Flags()
	shift, _ := f.GetInt("shift-bps")
	perISIN, _ := f.GetStringToInt("isin-shift")
	scenarioFile, _ := f.GetString("scenario")

	sc, err := buildScenario(f.Changed("shift-bps"), shift, perISIN, scenarioFile)
	if err != nil {
		return nil, err
	}
	return analyzeFile(cmd.Context(), cfg, path, readInputOptions(cmd), &sc, log)
}

// buildScenario turns the shock flags into a scenario. Exactly one of the
// parallel shift, the per-instrument map and the scenario file must be set.
func buildScenario(shiftSet bool, shift int, perISIN map[string]int, scenarioFile string) (models.ShockScenario, error) {
	sources := 0
	for _, set := range []bool{shiftSet, len(perISIN) > 0, scenarioFile != ""} {
		if set {
			sources++
		}
	}
	switch {
	case sources == 0:
		return models.ShockScenario{}, errors.New("a shock is required: use --shift-bps, --isin-shift or --scenario")
	case sources > 1:
		return models.ShockScenario{}, errors.New("use only one of --shift-bps, --isin-shift and --scenario")
	case shiftSet:
		return models.ParallelShift(shift), nil
	case scenarioFile != "":
		return holdings.LoadScenario(scenarioFile)
	}
	shifts, err := holdings.NormalizeShifts(perISIN)
	if err != nil {
		return models.ShockScenario{}, err
	}
	return models.PerInstrumentShift(shifts), nil
}

// analyzeFile loads a portfolio file and runs one analysis pass over it.
// Exclusions found while reading are attached to the result.
func analyzeFile(ctx context.Context, c *config.Config, path string, in inputOptions, sc *models.ShockScenario, l zerolog.Logger) (*portfolio.Analysis, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	spot, err := c.SpotDate()
	if err != nil {
		return nil, err
	}

	p, err := holdings.Load(path, holdings.Options{
		SpotDate:         spot,
		DayCountBasis:    c.Input.DayCountBasis,
		DefaultFrequency: c.Engine.Frequency,
		PercentRates:     in.Percent,
		Logger:           &l,
	})
	if err != nil {
		return nil, err
	}

	bonds, unknown := holdings.Filter(p.Bonds, in.ISINs)
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown isins: %s", strings.Join(unknown, ", "))
	}
	if sc != nil && sc.PerInstrumentShiftBps != nil {
		warnUnmatchedShifts(l, bonds, sc.PerInstrumentShiftBps)
	}

	analyzer := portfolio.NewAnalyzer(portfolio.Options{
		Convention: c.Convention(),
		Workers:    c.Engine.Workers,
		Logger:     &l,
	})
	a, err := analyzer.Run(ctx, bonds, sc)
	if err != nil {
		return nil, err
	}
	a.Exclusions = p.Exclusions
	return a, nil
}

// warnUnmatchedShifts logs shifts naming bonds that are not in the portfolio.
func warnUnmatchedShifts(l zerolog.Logger, bonds []models.BondTerms, shifts map[string]int) {
	held := make(map[string]bool, len(bonds))
	for _, b := range bonds {
		held[b.ISIN] = true
	}
	for isin := range shifts {
		if !held[isin] {
			l.Warn().Str("isin", isin).Msg("shift names a bond not in the portfolio")
		}
	}
}

// reportConfig builds report options from the effective config.
func reportConfig(c *config.Config) report.ReportConfig {
	rc := report.DefaultReportConfig()
	if f, err := report.ParseFormat(c.Report.Format); err == nil {
		rc.Format = f
	}
	rc.Currency = strings.ToUpper(c.Report.Currency)
	rc.TopN = c.Report.TopN
	rc.DurationUnit = report.DurationUnit(strings.ToLower(c.Report.DurationUnit))
	return rc
}
