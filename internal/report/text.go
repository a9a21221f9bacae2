package report

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// ════════════════════════════════════════════════════════════════════
// Plain-text renderer
// ════════════════════════════════════════════════════════════════════

func renderTextReport(d ReportData) string {
	var sb strings.Builder
	line := strings.Repeat("═", 72)
	thinLine := strings.Repeat("─", 72)

	sb.WriteString("\n" + line + "\n")
	sb.WriteString(fmt.Sprintf("  %s\n", d.Title))
	sb.WriteString(fmt.Sprintf("  Generated: %s | Run: %s\n", d.GeneratedAt, d.RunID))
	sb.WriteString(line + "\n\n")

	sb.WriteString(fmt.Sprintf("  Convention: %s | Scenario: %s | Durations: %s\n", d.Convention, d.Scenario, d.DurationUnit))
	sb.WriteString(thinLine + "\n")

	// Portfolio metrics
	sb.WriteString("\n  ■ PORTFOLIO METRICS\n")
	for _, m := range d.Metrics {
		sb.WriteString(fmt.Sprintf("    %-28s %s\n", m.Label, m.Value))
	}
	sb.WriteString(thinLine + "\n")

	// Most sensitive
	if d.HasShock {
		sb.WriteString("\n  ■ MOST SENSITIVE BONDS\n")
		if len(d.Top) == 0 {
			sb.WriteString("    No bond was re-priced.\n")
		} else {
			tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "    #\tISIN\tShift\tP/L\tDuration est.\tConvexity est.\tContribution\t")
			for _, r := range d.Top {
				fmt.Fprintf(tw, "    %d\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
					r.Rank, r.ISIN, r.Shift, r.PL, r.DurationPL, r.ConvexityPL, r.Contribution)
			}
			tw.Flush()
		}
		sb.WriteString(thinLine + "\n")
	}

	// Per-bond table
	sb.WriteString("\n  ■ BONDS\n")
	if len(d.Bonds) == 0 {
		sb.WriteString("    No bonds were valued.\n")
	} else {
		tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
		header := "    ISIN\tCoupon\tYTM\tYears\tFreq\tPrice\tMac dur\tMod dur\tConvexity\tDV01\t"
		if d.HasShock {
			header += "Shift\tShocked price\tP/L\t"
		}
		fmt.Fprintln(tw, header)
		for _, b := range d.Bonds {
			row := fmt.Sprintf("    %s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t",
				b.ISIN, b.Coupon, b.YTM, b.Years, b.Frequency, b.Price, b.MacDur, b.ModDur, b.Convexity, b.DV01)
			if d.HasShock {
				row += fmt.Sprintf("%s\t%s\t%s\t", b.Shock.Shift, b.Shock.ShockedPrice, b.Shock.PL)
			}
			fmt.Fprintln(tw, row)
		}
		tw.Flush()
	}
	sb.WriteString(thinLine + "\n")

	if len(d.Exclusions) > 0 {
		sb.WriteString("\n  ■ EXCLUDED\n")
		for _, e := range d.Exclusions {
			sb.WriteString(fmt.Sprintf("    %-14s %s\n", e.ISIN, e.Reason))
		}
		sb.WriteString(thinLine + "\n")
	}

	if len(d.Failures) > 0 {
		sb.WriteString("\n  ■ FAILED\n")
		for _, f := range d.Failures {
			sb.WriteString(fmt.Sprintf("    %-14s [%s] %s\n", f.ISIN, f.Stage, f.Error))
		}
		sb.WriteString(thinLine + "\n")
	}

	return sb.String()
}
