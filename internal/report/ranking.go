package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/seenimoa/bondrisk/internal/portfolio"
	"github.com/seenimoa/bondrisk/pkg/models"
)

var rankingHeader = []string{"rank", "isin", "shift_bps", "pl_impact", "duration_approx_pl", "convexity_approx_pl", "contribution_pct"}

// RenderRanking writes only the top-N most sensitive bonds of a shocked
// analysis. JSON and CSV keep raw numbers; every other format gets an
// aligned text table.
func RenderRanking(w io.Writer, a *portfolio.Analysis, cfg ReportConfig) error {
	if a == nil {
		return fmt.Errorf("analysis is nil")
	}
	if a.Scenario == nil {
		return fmt.Errorf("ranking needs a shock scenario")
	}
	cfg = cfg.withDefaults()

	top := a.Ranking
	if cfg.TopN > 0 && len(top) > cfg.TopN {
		top = top[:cfg.TopN]
	}

	switch cfg.Format {
	case FormatJSON:
		if top == nil {
			top = []models.ShockResult{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(top)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(rankingHeader); err != nil {
			return fmt.Errorf("writing csv header: %w", err)
		}
		for i, r := range top {
			rec := []string{
				strconv.Itoa(i + 1), r.ISIN, strconv.Itoa(r.ShiftBps),
				num(r.PLImpact), num(r.DurationApproxPL), num(r.ConvexityApproxPL), "",
			}
			if r.ContributionDefined {
				rec[6] = num(r.ContributionToPLPercent)
			}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("writing csv row %s: %w", r.ISIN, err)
			}
		}
		cw.Flush()
		return cw.Error()
	}

	d := buildReportData(a, cfg)
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Scenario: %s | Convention: %s\n\n", d.Scenario, d.Convention))
	if len(d.Top) == 0 {
		sb.WriteString("No bond was re-priced.\n")
	} else {
		tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tISIN\tShift\tP/L\tContribution")
		for _, r := range d.Top {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Rank, r.ISIN, r.Shift, r.PL, r.Contribution)
		}
		tw.Flush()
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
