package portfolio

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/bondrisk/internal/analysis/fixedincome"
	"github.com/seenimoa/bondrisk/internal/analysis/shock"
	"github.com/seenimoa/bondrisk/pkg/models"
)

// Failure stages.
const (
	StageValuation = "valuation"
	StageShock     = "shock"
)

// Options configures an Analyzer.
type Options struct {
	Convention fixedincome.Convention
	Workers    int // concurrent valuations (default: 4)
	Logger     *zerolog.Logger
}

// Analysis is the result of one analysis pass. It is built fresh on every
// run and never mutated afterwards.
type Analysis struct {
	RunID      string                  `json:"run_id"`
	Convention fixedincome.Convention  `json:"convention"`
	Scenario   *models.ShockScenario   `json:"scenario,omitempty"`
	Positions  []models.Position       `json:"positions"`
	Shocks     []models.ShockResult    `json:"shocks,omitempty"`
	Summary    models.PortfolioSummary `json:"summary"`
	Ranking    []models.ShockResult    `json:"ranking,omitempty"`
	Failures   []models.Failure        `json:"failures,omitempty"`
	Exclusions []models.Exclusion      `json:"exclusions,omitempty"`
}

// Analyzer values a set of bonds concurrently and applies a scenario.
type Analyzer struct {
	opts Options
	log  zerolog.Logger
}

// NewAnalyzer creates an analyzer, filling defaults for unset options.
func NewAnalyzer(opts Options) *Analyzer {
	if opts.Convention == "" {
		opts.Convention = fixedincome.FractionalPeriodConvention
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	l := zerolog.Nop()
	if opts.Logger != nil {
		l = *opts.Logger
	}
	return &Analyzer{opts: opts, log: l}
}

// Convention returns the pricing convention the analyzer uses.
func (a *Analyzer) Convention() fixedincome.Convention { return a.opts.Convention }

// Value prices every bond, one task per bond, bounded by Workers. Results
// keep the input order. Bonds that cannot be valued are reported as
// failures; only context cancellation aborts the whole call.
func (a *Analyzer) Value(ctx context.Context, bonds []models.BondTerms) ([]models.Position, []models.Failure, error) {
	type slot struct {
		val models.ValuationResult
		err error
	}
	slots := make([]slot, len(bonds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Workers)
	for i := range bonds {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := fixedincome.Value(bonds[i], a.opts.Convention)
			slots[i] = slot{val: v, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	positions := make([]models.Position, 0, len(bonds))
	var failures []models.Failure
	for i, s := range slots {
		if s.err != nil {
			a.log.Warn().Str("isin", bonds[i].ISIN).Str("stage", StageValuation).Err(s.err).Msg("bond skipped")
			failures = append(failures, models.Failure{ISIN: bonds[i].ISIN, Stage: StageValuation, Error: s.err.Error()})
			continue
		}
		positions = append(positions, models.Position{Bond: bonds[i], Valuation: s.val})
	}
	return positions, failures, nil
}

// Run performs a full analysis pass: valuation, optional shock scenario,
// aggregation and ranking. A nil scenario produces a valuation-only
// analysis. A zero-value portfolio is not an error: the summary carries
// DurationDefined = false.
func (a *Analyzer) Run(ctx context.Context, bonds []models.BondTerms, sc *models.ShockScenario) (*Analysis, error) {
	start := time.Now()
	runID := uuid.NewString()
	l := a.log.With().Str("run_id", runID).Logger()
	l.Debug().Int("bonds", len(bonds)).Str("convention", a.opts.Convention.String()).Msg("analysis started")

	positions, failures, err := a.Value(ctx, bonds)
	if err != nil {
		return nil, err
	}

	res := &Analysis{
		RunID:      runID,
		Convention: a.opts.Convention,
		Scenario:   sc,
		Positions:  positions,
		Failures:   failures,
	}

	var aggErr error
	if sc == nil {
		res.Summary, aggErr = Summarize(positions)
	} else {
		outcomes := shock.Apply(positions, *sc, a.opts.Convention)
		res.Shocks = make([]models.ShockResult, 0, len(outcomes))
		for _, o := range outcomes {
			if !o.OK() {
				l.Warn().Str("isin", o.Position.Bond.ISIN).Str("stage", StageShock).Err(o.Err).Msg("shock skipped")
				res.Failures = append(res.Failures, models.Failure{ISIN: o.Position.Bond.ISIN, Stage: StageShock, Error: o.Err.Error()})
				continue
			}
			res.Shocks = append(res.Shocks, o.Result)
		}
		res.Summary, aggErr = Aggregate(outcomes)
		res.Ranking = Rank(outcomes)
	}
	if aggErr != nil {
		if !errors.Is(aggErr, ErrDegenerateAggregate) {
			return nil, aggErr
		}
		l.Warn().Err(aggErr).Msg("weighted duration undefined")
	}

	l.Info().
		Int("valued", len(positions)).
		Int("failed", len(res.Failures)).
		Float64("market_value", res.Summary.TotalMarketValue).
		Float64("total_pl", res.Summary.TotalPL).
		Dur("elapsed", time.Since(start)).
		Msg("analysis complete")
	return res, nil
}
