// Package holdings reads bond portfolios and shock scenarios from files.
//
// Portfolios may be CSV (one bond per row), YAML or JSON (a top-level
// "bonds" list). Column and key names are matched case-insensitively and
// the holdings-statement headings ("Maturity Value", "Coupon",
// "Maturity Date") are accepted as aliases. Rows that have already matured
// at the spot date are excluded rather than rejected.
package holdings

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/bondrisk/pkg/models"
	"github.com/seenimoa/bondrisk/pkg/utils"
)

// Format is a supported input file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is returned for files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported portfolio format")

// ErrDuplicateISIN is returned when two rows carry the same identifier.
var ErrDuplicateISIN = errors.New("duplicate isin")

// Options controls how raw rows are turned into bond terms.
type Options struct {
	SpotDate         time.Time // valuation date for maturity_date rows (default: today)
	DayCountBasis    float64   // days per year (default: 365)
	DefaultFrequency int       // used when a row has no frequency (default: 2)
	PercentRates     bool      // coupon and ytm are given in percent (6.45 = 6.45%)
	Logger           *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.SpotDate.IsZero() {
		now := time.Now().UTC()
		o.SpotDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if o.DayCountBasis <= 0 {
		o.DayCountBasis = 365
	}
	if o.DefaultFrequency <= 0 {
		o.DefaultFrequency = 2
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o
}

// Portfolio is the parsed content of one holdings file.
type Portfolio struct {
	Source     string             `json:"source,omitempty"`
	SpotDate   time.Time          `json:"spot_date"`
	Bonds      []models.BondTerms `json:"bonds"`
	Exclusions []models.Exclusion `json:"exclusions,omitempty"`
}

// FormatFromPath infers the file format from its extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// ParseFormat parses a format name such as "csv" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv", "text/csv":
		return FormatCSV, nil
	case "yaml", "yml", "application/yaml", "application/x-yaml":
		return FormatYAML, nil
	case "json", "application/json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Load reads a portfolio file, choosing the parser by extension.
func Load(path string, opts Options) (*Portfolio, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open portfolio: %w", err)
	}
	defer f.Close()

	p, err := Read(f, format, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Source = path
	return p, nil
}

// Read parses a portfolio from r in the given format.
func Read(r io.Reader, format Format, opts Options) (*Portfolio, error) {
	opts = opts.withDefaults()

	var (
		rows []row
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = readCSV(r)
	case FormatYAML, FormatJSON:
		rows, err = readStructured(r, format)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	p := &Portfolio{SpotDate: opts.SpotDate}
	// ISIN -> first row it appeared on
	seen := make(map[string]int, len(rows))
	for _, rw := range rows {
		bond, excl, err := rw.terms(opts)
		if err != nil {
			return nil, err
		}
		id := bond.ISIN
		if excl != nil {
			id = excl.ISIN
		}
		if first, dup := seen[id]; dup {
			return nil, rw.errorf("%w: %s (first on row %d)", ErrDuplicateISIN, id, first)
		}
		seen[id] = rw.line
		if excl != nil {
			opts.Logger.Warn().Str("isin", excl.ISIN).Str("reason", excl.Reason).Msg("bond excluded")
			p.Exclusions = append(p.Exclusions, *excl)
			continue
		}
		if !utils.IsValidISIN(bond.ISIN) {
			opts.Logger.Debug().Str("isin", bond.ISIN).Msg("identifier is not a well-formed ISIN")
		}
		p.Bonds = append(p.Bonds, bond)
	}
	return p, nil
}

// Filter keeps only the bonds whose ISIN is listed. An empty list keeps
// everything. Requested ISINs that match no bond are returned as unknown.
func Filter(bonds []models.BondTerms, isins []string) (kept []models.BondTerms, unknown []string) {
	if len(isins) == 0 {
		return bonds, nil
	}
	want := make(map[string]bool, len(isins))
	for _, id := range isins {
		if id = utils.NormalizeISIN(id); id != "" {
			want[id] = true
		}
	}
	found := make(map[string]bool, len(want))
	for _, b := range bonds {
		id := utils.NormalizeISIN(b.ISIN)
		if want[id] {
			kept = append(kept, b)
			found[id] = true
		}
	}
	for _, id := range isins {
		id = utils.NormalizeISIN(id)
		if id != "" && !found[id] {
			unknown = append(unknown, id)
			found[id] = true
		}
	}
	return kept, unknown
}

// ── Row parsing ──

// Canonical field names.
const (
	fieldISIN      = "isin"
	fieldFace      = "face_value"
	fieldCoupon    = "coupon_rate"
	fieldYTM       = "ytm"
	fieldYears     = "years_to_maturity"
	fieldMaturity  = "maturity_date"
	fieldFrequency = "frequency"
)

// fieldAliases maps normalised column headings to canonical field names.
var fieldAliases = map[string]string{
	"isin":                  fieldISIN,
	"isin_code":             fieldISIN,
	"face_value":            fieldFace,
	"face":                  fieldFace,
	"maturity_value":        fieldFace,
	"par_value":             fieldFace,
	"coupon_rate":           fieldCoupon,
	"coupon":                fieldCoupon,
	"ytm":                   fieldYTM,
	"yield":                 fieldYTM,
	"yield_to_maturity":     fieldYTM,
	"years_to_maturity":     fieldYears,
	"years":                 fieldYears,
	"maturity_date":         fieldMaturity,
	"maturity":              fieldMaturity,
	"frequency":             fieldFrequency,
	"compounding_frequency": fieldFrequency,
	"freq":                  fieldFrequency,
}

// canonicalField normalises a heading ("Maturity Value" → "face_value").
// Unknown headings return "".
func canonicalField(heading string) string {
	h := strings.ToLower(strings.TrimSpace(heading))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	return fieldAliases[h]
}

// row is one input record with canonical keys and raw string values.
type row struct {
	line   int
	fields map[string]string
}

func (r row) get(field string) string {
	return strings.TrimSpace(r.fields[field])
}

func (r row) errorf(format string, args ...any) error {
	return fmt.Errorf("row %d: %w", r.line, fmt.Errorf(format, args...))
}

// terms converts a row into bond terms, or an exclusion when the bond has
// already matured at the spot date.
func (r row) terms(opts Options) (models.BondTerms, *models.Exclusion, error) {
	var b models.BondTerms

	b.ISIN = utils.NormalizeISIN(r.get(fieldISIN))
	if b.ISIN == "" {
		return b, nil, r.errorf("missing %s", fieldISIN)
	}

	var err error
	if b.FaceValue, err = r.number(fieldFace, false); err != nil {
		return b, nil, err
	}
	if b.CouponRate, err = r.number(fieldCoupon, opts.PercentRates); err != nil {
		return b, nil, err
	}
	if b.YieldToMaturity, err = r.number(fieldYTM, opts.PercentRates); err != nil {
		return b, nil, err
	}

	b.CompoundingFrequency = opts.DefaultFrequency
	if s := r.get(fieldFrequency); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != float64(int(f)) || f <= 0 {
			return b, nil, r.errorf("%s: invalid frequency %q", b.ISIN, s)
		}
		b.CompoundingFrequency = int(f)
	}

	switch {
	case r.get(fieldYears) != "":
		if b.YearsToMaturity, err = r.number(fieldYears, false); err != nil {
			return b, nil, err
		}
		if b.YearsToMaturity <= 0 {
			return b, &models.Exclusion{
				ISIN:   b.ISIN,
				Reason: fmt.Sprintf("non-positive years to maturity (%g)", b.YearsToMaturity),
			}, nil
		}
	case r.get(fieldMaturity) != "":
		maturity, err := utils.ParseDate(r.get(fieldMaturity))
		if err != nil {
			return b, nil, r.errorf("%s: %v", b.ISIN, err)
		}
		b.YearsToMaturity = utils.YearsBetween(opts.SpotDate, maturity, opts.DayCountBasis)
		if b.YearsToMaturity <= 0 {
			return b, &models.Exclusion{
				ISIN: b.ISIN,
				Reason: fmt.Sprintf("matured on %s (spot %s)",
					utils.FormatDate(maturity), utils.FormatDate(opts.SpotDate)),
			}, nil
		}
	default:
		return b, nil, r.errorf("%s: missing %s or %s", b.ISIN, fieldYears, fieldMaturity)
	}
	return b, nil, nil
}

// number parses a numeric field. Thousands separators are ignored and a
// trailing "%" always divides by 100; percent forces that for bare values.
func (r row) number(field string, percent bool) (float64, error) {
	s := r.get(field)
	if s == "" {
		return 0, r.errorf("missing %s", field)
	}
	s = strings.ReplaceAll(s, ",", "")
	if strings.HasSuffix(s, "%") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
		percent = true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, r.errorf("%s: invalid number %q", field, r.get(field))
	}
	if percent {
		v /= 100
	}
	return v, nil
}
