package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/seenimoa/bondrisk/internal/portfolio"
	"github.com/seenimoa/bondrisk/pkg/models"
)

// csvHeader is the full per-bond table. Shock columns are blank for bonds
// that were not re-priced.
var csvHeader = []string{
	"isin", "face_value", "coupon_rate", "ytm", "years_to_maturity", "frequency",
	"price", "macaulay_duration", "modified_duration", "convexity", "dv01",
	"shift_bps", "shocked_yield", "shocked_price", "price_change", "pl_impact",
	"duration_approx_pl", "convexity_approx_pl", "contribution_pct",
}

func writeCSV(w io.Writer, a *portfolio.Analysis, cfg ReportConfig) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	j := 0
	for _, p := range a.Positions {
		var sr *models.ShockResult
		if j < len(a.Shocks) && a.Shocks[j].ISIN == p.Bond.ISIN {
			sr = &a.Shocks[j]
			j++
		}
		if err := cw.Write(csvRecord(p, sr, cfg.DurationUnit)); err != nil {
			return fmt.Errorf("writing csv row %s: %w", p.Bond.ISIN, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRecord(p models.Position, sr *models.ShockResult, unit DurationUnit) []string {
	v := p.Valuation
	mac, mod, conv := v.MacaulayDuration, v.ModifiedDuration, v.Convexity
	if unit == UnitYears {
		mac, mod, conv = v.MacaulayDurationYears, v.ModifiedDurationYears, v.ConvexityYears
	}

	rec := []string{
		p.Bond.ISIN,
		num(p.Bond.FaceValue),
		num(p.Bond.CouponRate),
		num(p.Bond.YieldToMaturity),
		num(p.Bond.YearsToMaturity),
		strconv.Itoa(p.Bond.CompoundingFrequency),
		num(v.Price),
		num(mac),
		num(mod),
		num(conv),
		num(v.DV01),
	}
	if sr == nil {
		return append(rec, make([]string, 8)...)
	}
	contribution := ""
	if sr.ContributionDefined {
		contribution = num(sr.ContributionToPLPercent)
	}
	return append(rec,
		strconv.Itoa(sr.ShiftBps),
		num(sr.ShockedYield),
		num(sr.ShockedPrice),
		num(sr.PriceChange),
		num(sr.PLImpact),
		num(sr.DurationApproxPL),
		num(sr.ConvexityApproxPL),
		contribution,
	)
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
