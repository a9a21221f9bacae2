package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/seenimoa/bondrisk/internal/portfolio"
	"github.com/seenimoa/bondrisk/pkg/models"
	"github.com/seenimoa/bondrisk/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Report Generator: renders an analysis pass in the requested format
// ════════════════════════════════════════════════════════════════════

// ReportFormat specifies the output format.
type ReportFormat string

const (
	FormatText     ReportFormat = "text"
	FormatMarkdown ReportFormat = "markdown"
	FormatPretty   ReportFormat = "pretty"
	FormatCSV      ReportFormat = "csv"
	FormatJSON     ReportFormat = "json"
)

// ParseFormat parses a format name. "md" is accepted for markdown.
func ParseFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatMarkdown, FormatPretty, FormatCSV, FormatJSON:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown report format %q", s)
}

// DurationUnit selects which duration measures a report shows.
type DurationUnit string

const (
	UnitPeriods DurationUnit = "periods"
	UnitYears   DurationUnit = "years"
)

// ReportConfig controls report generation behaviour.
type ReportConfig struct {
	Format       ReportFormat // output format (default: text)
	Currency     string       // ISO 4217 code for money columns (default: INR)
	TopN         int          // most sensitive bonds to list (0 = all)
	DurationUnit DurationUnit // periods or years (default: periods)
	Title        string       // custom report title (optional)
	GeneratedAt  time.Time    // report timestamp (default: now)
	Style        string       // glamour style for pretty output (default: dark)
	WordWrap     int          // pretty output width (default: 120)
}

// DefaultReportConfig returns sensible defaults.
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		Format:       FormatText,
		Currency:     "INR",
		TopN:         5,
		DurationUnit: UnitPeriods,
		Title:        "Bond Portfolio Risk Report",
		Style:        "dark",
		WordWrap:     120,
	}
}

func (rc ReportConfig) withDefaults() ReportConfig {
	def := DefaultReportConfig()
	if rc.Format == "" {
		rc.Format = def.Format
	}
	if rc.Currency == "" {
		rc.Currency = def.Currency
	}
	if rc.DurationUnit == "" {
		rc.DurationUnit = def.DurationUnit
	}
	if rc.Title == "" {
		rc.Title = def.Title
	}
	if rc.GeneratedAt.IsZero() {
		rc.GeneratedAt = time.Now().UTC()
	}
	if rc.Style == "" {
		rc.Style = def.Style
	}
	if rc.WordWrap <= 0 {
		rc.WordWrap = def.WordWrap
	}
	return rc
}

// Render writes the analysis to w in the configured format.
func Render(w io.Writer, a *portfolio.Analysis, cfg ReportConfig) error {
	if a == nil {
		return fmt.Errorf("analysis is nil")
	}
	cfg = cfg.withDefaults()

	switch cfg.Format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	case FormatCSV:
		return writeCSV(w, a, cfg)
	case FormatText:
		_, err := io.WriteString(w, renderTextReport(buildReportData(a, cfg)))
		return err
	case FormatMarkdown:
		md, err := renderMarkdown(buildReportData(a, cfg))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, md)
		return err
	case FormatPretty:
		md, err := renderMarkdown(buildReportData(a, cfg))
		if err != nil {
			return err
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(cfg.Style),
			glamour.WithWordWrap(cfg.WordWrap),
		)
		if err != nil {
			return fmt.Errorf("creating terminal renderer: %w", err)
		}
		out, err := r.Render(md)
		if err != nil {
			return fmt.Errorf("rendering markdown: %w", err)
		}
		_, err = io.WriteString(w, out)
		return err
	}
	return fmt.Errorf("unknown report format %q", cfg.Format)
}

// ════════════════════════════════════════════════════════════════════
// Report Data: flattened for rendering
// ════════════════════════════════════════════════════════════════════

// ReportData is the flattened model shared by the text and markdown renderers.
type ReportData struct {
	Title        string
	GeneratedAt  string
	RunID        string
	Convention   string
	Scenario     string
	DurationUnit string
	HasShock     bool

	Metrics    []MetricRow
	Top        []ShockRow
	Bonds      []BondRow
	Exclusions []models.Exclusion
	Failures   []models.Failure
}

// MetricRow is one labelled portfolio figure.
type MetricRow struct {
	Label string
	Value string
}

// ShockRow is the formatted shock result of one bond.
type ShockRow struct {
	Rank         int
	ISIN         string
	Shift        string
	ShockedYield string
	ShockedPrice string
	PL           string
	DurationPL   string
	ConvexityPL  string
	Contribution string
}

// BondRow is the formatted valuation of one bond, with its shock result
// when the bond was shocked.
type BondRow struct {
	ISIN      string
	Coupon    string
	YTM       string
	Years     string
	Frequency string
	Price     string
	MacDur    string
	ModDur    string
	Convexity string
	DV01      string
	Shock     ShockRow
}

func buildReportData(a *portfolio.Analysis, cfg ReportConfig) ReportData {
	d := ReportData{
		Title:        cfg.Title,
		GeneratedAt:  cfg.GeneratedAt.Format("02 Jan 2006, 15:04 MST"),
		RunID:        a.RunID,
		Convention:   a.Convention.String(),
		Scenario:     describeScenario(a.Scenario),
		DurationUnit: string(cfg.DurationUnit),
		HasShock:     a.Scenario != nil,
		Exclusions:   a.Exclusions,
		Failures:     a.Failures,
	}

	s := a.Summary
	d.Metrics = []MetricRow{
		{"Bonds", fmt.Sprintf("%d", s.Bonds)},
		{"Market value", fmt.Sprintf("%s (%s)", formatMoney(s.TotalMarketValue, cfg.Currency), utils.FormatCompact(s.TotalMarketValue, cfg.Currency))},
		{"Weighted modified duration", weightedDuration(s, cfg.DurationUnit)},
		{"Total DV01", formatMoney(s.TotalDV01, cfg.Currency)},
	}
	if d.HasShock {
		pl := formatSignedMoney(s.TotalPL, cfg.Currency)
		if s.TotalMarketValue != 0 {
			pl += " (" + utils.FormatPct(s.TotalPL/s.TotalMarketValue*100) + ")"
		}
		d.Metrics = append(d.Metrics, MetricRow{"Total P/L", pl})
	}

	top := a.Ranking
	if cfg.TopN > 0 && len(top) > cfg.TopN {
		top = top[:cfg.TopN]
	}
	for i, r := range top {
		row := shockRow(r, cfg.Currency)
		row.Rank = i + 1
		d.Top = append(d.Top, row)
	}

	// Shocks keep position order with failed bonds left out.
	j := 0
	for _, p := range a.Positions {
		row := bondRow(p, cfg.DurationUnit)
		if j < len(a.Shocks) && a.Shocks[j].ISIN == p.Bond.ISIN {
			row.Shock = shockRow(a.Shocks[j], cfg.Currency)
			j++
		} else {
			row.Shock = emptyShockRow(p.Bond.ISIN)
		}
		d.Bonds = append(d.Bonds, row)
	}
	return d
}

func bondRow(p models.Position, unit DurationUnit) BondRow {
	v := p.Valuation
	mac, mod, conv := v.MacaulayDuration, v.ModifiedDuration, v.Convexity
	if unit == UnitYears {
		mac, mod, conv = v.MacaulayDurationYears, v.ModifiedDurationYears, v.ConvexityYears
	}
	return BondRow{
		ISIN:      p.Bond.ISIN,
		Coupon:    formatRate(p.Bond.CouponRate),
		YTM:       formatRate(p.Bond.YieldToMaturity),
		Years:     fmt.Sprintf("%.2f", p.Bond.YearsToMaturity),
		Frequency: fmt.Sprintf("%d", p.Bond.CompoundingFrequency),
		Price:     fmt.Sprintf("%.4f", v.Price),
		MacDur:    fmt.Sprintf("%.4f", mac),
		ModDur:    fmt.Sprintf("%.4f", mod),
		Convexity: fmt.Sprintf("%.4f", conv),
		DV01:      fmt.Sprintf("%.4f", v.DV01),
	}
}

func shockRow(r models.ShockResult, currency string) ShockRow {
	contribution := utils.FormatPct(r.ContributionToPLPercent)
	if !r.ContributionDefined {
		contribution = "n/a"
	}
	return ShockRow{
		ISIN:         r.ISIN,
		Shift:        utils.FormatBps(r.ShiftBps),
		ShockedYield: formatRate(r.ShockedYield),
		ShockedPrice: fmt.Sprintf("%.4f", r.ShockedPrice),
		PL:           formatSignedMoney(r.PLImpact, currency),
		DurationPL:   formatSignedMoney(r.DurationApproxPL, currency),
		ConvexityPL:  formatSignedMoney(r.ConvexityApproxPL, currency),
		Contribution: contribution,
	}
}

func emptyShockRow(isin string) ShockRow {
	return ShockRow{
		ISIN: isin, Shift: "-", ShockedYield: "-", ShockedPrice: "-",
		PL: "-", DurationPL: "-", ConvexityPL: "-", Contribution: "-",
	}
}

func describeScenario(sc *models.ShockScenario) string {
	switch {
	case sc == nil:
		return "none (valuation only)"
	case sc.IsParallel():
		return "parallel " + utils.FormatBps(*sc.ParallelShiftBps)
	}
	return fmt.Sprintf("per-instrument (%d ISINs)", len(sc.PerInstrumentShiftBps))
}

func weightedDuration(s models.PortfolioSummary, unit DurationUnit) string {
	if !s.DurationDefined {
		return "n/a (zero market value)"
	}
	if unit == UnitYears {
		return fmt.Sprintf("%.4f years", s.WeightedAverageDurationYears)
	}
	return fmt.Sprintf("%.4f periods", s.WeightedAverageDuration)
}

// formatRate formats a decimal rate as a percentage, e.g. 0.0645 → "6.450%".
func formatRate(r float64) string {
	if math.IsNaN(r) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f%%", r*100)
}
