package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/bondrisk/internal/analysis/fixedincome"
	"github.com/seenimoa/bondrisk/internal/portfolio"
	"github.com/seenimoa/bondrisk/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

func sampleBonds() []models.BondTerms {
	return []models.BondTerms{
		{ISIN: "IN0020200011", FaceValue: 1000, CouponRate: 0.0645, YieldToMaturity: 0.0712, YearsToMaturity: 4.6, CompoundingFrequency: 2},
		{ISIN: "IN0020210027", FaceValue: 1000, CouponRate: 0.0726, YieldToMaturity: 0.0705, YearsToMaturity: 9.1, CompoundingFrequency: 2},
		{ISIN: "IN0020230085", FaceValue: 500, CouponRate: 0, YieldToMaturity: 0.068, YearsToMaturity: 0.75, CompoundingFrequency: 2},
	}
}

func sampleAnalysis(t *testing.T, sc *models.ShockScenario) *portfolio.Analysis {
	t.Helper()
	bonds := append(sampleBonds(), models.BondTerms{
		ISIN: "MATURED", FaceValue: 1000, CouponRate: 0.05, YieldToMaturity: 0.05, YearsToMaturity: -0.5, CompoundingFrequency: 2,
	})
	a := portfolio.NewAnalyzer(portfolio.Options{Convention: fixedincome.FractionalPeriodConvention, Workers: 2})
	res, err := a.Run(context.Background(), bonds, sc)
	require.NoError(t, err)
	res.Exclusions = []models.Exclusion{{ISIN: "IN0020190016", Reason: "matured on 2024-06-30 (spot 2025-01-01)"}}
	return res
}

func testConfig(format ReportFormat) ReportConfig {
	cfg := DefaultReportConfig()
	cfg.Format = format
	cfg.GeneratedAt = time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	return cfg
}

func render(t *testing.T, a *portfolio.Analysis, cfg ReportConfig) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, a, cfg))
	return buf.String()
}

// ════════════════════════════════════════════════════════════════════
// Formats
// ════════════════════════════════════════════════════════════════════

func TestParseFormat(t *testing.T) {
	tests := map[string]ReportFormat{
		"text":     FormatText,
		"":         FormatText,
		"Markdown": FormatMarkdown,
		"md":       FormatMarkdown,
		"pretty":   FormatPretty,
		"csv":      FormatCSV,
		" JSON ":   FormatJSON,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}

func TestRenderNilAnalysis(t *testing.T) {
	err := Render(&bytes.Buffer{}, nil, DefaultReportConfig())
	assert.Error(t, err)
}

// ════════════════════════════════════════════════════════════════════
// Text
// ════════════════════════════════════════════════════════════════════

func TestRenderTextValuationOnly(t *testing.T) {
	out := render(t, sampleAnalysis(t, nil), testConfig(FormatText))

	assert.Contains(t, out, "Bond Portfolio Risk Report")
	assert.Contains(t, out, "01 Jan 2025, 09:30 UTC")
	assert.Contains(t, out, "PORTFOLIO METRICS")
	assert.Contains(t, out, "none (valuation only)")
	assert.Contains(t, out, "periods")
	for _, b := range sampleBonds() {
		assert.Contains(t, out, b.ISIN)
	}
	assert.NotContains(t, out, "MOST SENSITIVE")
	assert.NotContains(t, out, "Total P/L")

	assert.Contains(t, out, "EXCLUDED")
	assert.Contains(t, out, "IN0020190016")
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "MATURED")
	assert.Contains(t, out, "[valuation]")
}

func TestRenderTextShock(t *testing.T) {
	sc := models.ParallelShift(50)
	out := render(t, sampleAnalysis(t, &sc), testConfig(FormatText))

	assert.Contains(t, out, "parallel +50 bps")
	assert.Contains(t, out, "MOST SENSITIVE BONDS")
	assert.Contains(t, out, "Total P/L")
	assert.Contains(t, out, "+50 bps")
	assert.Contains(t, out, "₹")
}

func TestRenderTextEmptyPortfolio(t *testing.T) {
	sc := models.ParallelShift(10)
	a := portfolio.NewAnalyzer(portfolio.Options{})
	res, err := a.Run(context.Background(), nil, &sc)
	require.NoError(t, err)

	out := render(t, res, testConfig(FormatText))
	assert.Contains(t, out, "n/a (zero market value)")
	assert.Contains(t, out, "No bond was re-priced.")
	assert.Contains(t, out, "No bonds were valued.")
}

// ════════════════════════════════════════════════════════════════════
// Report data
// ════════════════════════════════════════════════════════════════════

func TestBuildReportDataTopN(t *testing.T) {
	sc := models.ParallelShift(25)
	a := sampleAnalysis(t, &sc)

	cfg := testConfig(FormatText)
	cfg.TopN = 2
	d := buildReportData(a, cfg.withDefaults())
	require.Len(t, d.Top, 2)
	assert.Equal(t, 1, d.Top[0].Rank)
	assert.Equal(t, a.Ranking[0].ISIN, d.Top[0].ISIN)
	assert.Equal(t, a.Ranking[1].ISIN, d.Top[1].ISIN)

	cfg.TopN = 0
	d = buildReportData(a, cfg.withDefaults())
	assert.Len(t, d.Top, len(a.Ranking))
}

func TestBuildReportDataDurationUnit(t *testing.T) {
	a := sampleAnalysis(t, nil)
	v := a.Positions[0].Valuation

	cfg := testConfig(FormatText)
	d := buildReportData(a, cfg.withDefaults())
	assert.Equal(t, fmt.Sprintf("%.4f", v.ModifiedDuration), d.Bonds[0].ModDur)

	cfg.DurationUnit = UnitYears
	d = buildReportData(a, cfg.withDefaults())
	assert.Equal(t, fmt.Sprintf("%.4f", v.ModifiedDurationYears), d.Bonds[0].ModDur)
	assert.Equal(t, fmt.Sprintf("%.4f", v.ConvexityYears), d.Bonds[0].Convexity)
	assert.Contains(t, d.Metrics[2].Value, "years")
}

func TestBuildReportDataPerInstrument(t *testing.T) {
	sc := models.PerInstrumentShift(map[string]int{"IN0020210027": -15})
	a := sampleAnalysis(t, &sc)
	d := buildReportData(a, testConfig(FormatText).withDefaults())

	assert.Equal(t, "per-instrument (1 ISINs)", d.Scenario)
	require.Len(t, d.Bonds, 3)
	assert.Equal(t, "0 bps", d.Bonds[0].Shock.Shift)
	assert.Equal(t, "-15 bps", d.Bonds[1].Shock.Shift)
	assert.True(t, strings.HasPrefix(d.Bonds[1].Shock.PL, "+"), "yield down means a gain: %s", d.Bonds[1].Shock.PL)
}

// ════════════════════════════════════════════════════════════════════
// Markdown / Pretty
// ════════════════════════════════════════════════════════════════════

func TestRenderMarkdown(t *testing.T) {
	sc := models.ParallelShift(-20)
	out := render(t, sampleAnalysis(t, &sc), testConfig(FormatMarkdown))

	assert.True(t, strings.HasPrefix(out, "# Bond Portfolio Risk Report"))
	assert.Contains(t, out, "## Portfolio metrics")
	assert.Contains(t, out, "## Most sensitive bonds")
	assert.Contains(t, out, "| IN0020200011 |")
	assert.Contains(t, out, "| 1 | IN0020210027 | -20 bps |")
	assert.Contains(t, out, "## Excluded")
	assert.Contains(t, out, "- **MATURED** (valuation): ")
	assert.NotContains(t, out, "<no value>")
}

func TestRenderMarkdownValuationOnly(t *testing.T) {
	out := render(t, sampleAnalysis(t, nil), testConfig(FormatMarkdown))
	assert.NotContains(t, out, "## Most sensitive bonds")
	assert.NotContains(t, out, "Shocked price")
	assert.Contains(t, out, "## Bonds")
}

func TestRenderPretty(t *testing.T) {
	cfg := testConfig(FormatPretty)
	cfg.Style = "notty"
	out := render(t, sampleAnalysis(t, nil), cfg)
	assert.Contains(t, out, "Bond Portfolio Risk Report")
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `a\|b \*c\* d\_e f`, escapeMarkdown("a|b *c* d_e\nf"))
}

// ════════════════════════════════════════════════════════════════════
// CSV / JSON
// ════════════════════════════════════════════════════════════════════

func TestRenderCSV(t *testing.T) {
	sc := models.ParallelShift(50)
	a := sampleAnalysis(t, &sc)
	out := render(t, a, testConfig(FormatCSV))

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1+len(a.Positions))
	assert.Equal(t, csvHeader, records[0])

	first := records[1]
	require.Len(t, first, len(csvHeader))
	assert.Equal(t, "IN0020200011", first[0])
	assert.Equal(t, "2", first[5])
	assert.Equal(t, "50", first[11])
	assert.Equal(t, num(a.Shocks[0].PLImpact), first[15])
	assert.Equal(t, num(a.Positions[0].Valuation.Price), first[6])
}

func TestRenderCSVValuationOnly(t *testing.T) {
	out := render(t, sampleAnalysis(t, nil), testConfig(FormatCSV))
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "", records[1][11])
	assert.Equal(t, "", records[1][18])
}

func TestRenderJSON(t *testing.T) {
	sc := models.ParallelShift(50)
	a := sampleAnalysis(t, &sc)
	out := render(t, a, testConfig(FormatJSON))

	var decoded struct {
		RunID      string `json:"run_id"`
		Convention string `json:"convention"`
		Summary    struct {
			Bonds           int      `json:"bonds"`
			WeightedDur     *float64 `json:"weighted_average_duration"`
			DurationDefined bool     `json:"duration_defined"`
		} `json:"summary"`
		Shocks   []models.ShockResult `json:"shocks"`
		Failures []models.Failure     `json:"failures"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, a.RunID, decoded.RunID)
	assert.Equal(t, "fractional", decoded.Convention)
	assert.Equal(t, 3, decoded.Summary.Bonds)
	require.NotNil(t, decoded.Summary.WeightedDur)
	assert.Len(t, decoded.Shocks, 3)
	require.Len(t, decoded.Failures, 1)
	assert.Equal(t, "MATURED", decoded.Failures[0].ISIN)
}

// ════════════════════════════════════════════════════════════════════
// Money
// ════════════════════════════════════════════════════════════════════

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount   float64
		currency string
		expected string
	}{
		{1234.5, "INR", "₹1,234.50"},
		{1234.5, "inr", "₹1,234.50"},
		{-1234.567, "USD", "-$1,234.57"},
		{0, "USD", "$0.00"},
		{12, "XYZ", "12.00 XYZ"},
		{math.NaN(), "INR", "n/a"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatMoney(tt.amount, tt.currency))
		})
	}

	assert.Equal(t, "+$5.00", formatSignedMoney(5, "USD"))
	assert.Equal(t, "-$5.00", formatSignedMoney(-5, "USD"))
	assert.Equal(t, "$0.00", formatSignedMoney(0, "USD"))
}
