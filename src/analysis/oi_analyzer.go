package analysis

import (
	"context"
	"fmt"
	"time"

	"oi-signal-engine/src/analysis/core"
	"oi-signal-engine/src/helpers"
	"oi-signal-engine/src/interfaces"
	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/metrics"
	"oi-signal-engine/src/models"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// OIAnalyzer compares the two newest ticks of a token and grades the OI move.
type OIAnalyzer struct {
	Config     *models.MConfig
	Logger     *logger.Logger
	Thresholds core.Thresholds

	catalog interfaces.IInstrumentCatalog
	ticks   interfaces.ITickStore
	limiter *rate.Limiter

	// Now stamps signals and anchors the lookback. Tests replace it.
	Now func() time.Time
}

// -----------------------------------------------------------------------------

func NewOIAnalyzer(cfg *models.MConfig, catalog interfaces.IInstrumentCatalog, ticks interfaces.ITickStore, log *logger.Logger) *OIAnalyzer {
	a := &OIAnalyzer{
		Config:     cfg,
		Logger:     log,
		Thresholds: core.ThresholdsFrom(cfg.Engine),
		catalog:    catalog,
		ticks:      ticks,
		Now:        time.Now,
	}
	if r := cfg.Engine.TickQueryRate; r > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(r), max(1, int(r)))
	}
	return a
}

// -----------------------------------------------------------------------------

// AnalyzeToken returns the signal for one token, nil when the move was
// filtered out by the IV floor. Missing data comes back as a data-gap error;
// anything else is a dependency failure.
func (a *OIAnalyzer) AnalyzeToken(ctx context.Context, token string) (*models.MOISignal, error) {
	now := a.Now()
	eng := a.Config.Engine

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, helpers.NewTransientError("tick query throttle", err)
		}
	}

	samples, err := a.recentSamples(ctx, token, now.Add(-eng.Lookback()), eng.MaxSamples)
	if err != nil {
		return nil, helpers.WrapDependency(fmt.Sprintf("recent samples for %s", token), err)
	}
	if len(samples) < 2 {
		return nil, helpers.NewDataGapError(fmt.Sprintf("%s: %d sample(s) in window", token, len(samples)), nil)
	}

	inst, err := a.instrument(ctx, token)
	if err != nil {
		return nil, helpers.WrapDependency(fmt.Sprintf("instrument %s", token), err)
	}
	if inst == nil {
		return nil, helpers.NewDataGapError(fmt.Sprintf("%s: not in catalog", token), nil)
	}

	signal := NewOISignal(*inst, samples[0], samples[1], a.Thresholds, now)
	if signal.ImpliedVolatility < a.Thresholds.MinIV {
		return nil, nil
	}
	return &signal, nil
}

// -----------------------------------------------------------------------------

// AnalyzeUniverse runs AnalyzeToken over tokens with bounded parallelism and
// returns the produced signals in token order. Data gaps are skipped; the
// first dependency failure aborts the whole run.
func (a *OIAnalyzer) AnalyzeUniverse(ctx context.Context, tokens []string) ([]models.MOISignal, error) {
	results := make([]*models.MOISignal, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, a.Config.Engine.AnalysisConcurrency))

	for i, token := range tokens {
		g.Go(func() error {
			signal, err := a.AnalyzeToken(gctx, token)
			switch {
			case err == nil && signal == nil:
				metrics.TokensAnalyzed.WithLabelValues("discarded").Inc()
				a.Logger.Debug("%s: below IV floor, discarded", token)
			case err == nil:
				metrics.TokensAnalyzed.WithLabelValues("signal").Inc()
				results[i] = signal
			case helpers.Classify(err) == helpers.KindDataGap:
				metrics.TokensAnalyzed.WithLabelValues("data_gap").Inc()
				a.Logger.Debug("no signal: %v", err)
			default:
				metrics.TokensAnalyzed.WithLabelValues("error").Inc()
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	signals := make([]models.MOISignal, 0, len(tokens))
	for _, s := range results {
		if s != nil {
			signals = append(signals, *s)
		}
	}
	return signals, nil
}

// -----------------------------------------------------------------------------

func (a *OIAnalyzer) recentSamples(ctx context.Context, token string, since time.Time, limit int) ([]models.MMarketSample, error) {
	ctx, cancel := helpers.WithTimeout(ctx, a.Config.Engine.DependencyTimeout())
	defer cancel()
	return a.ticks.RecentSamples(ctx, token, since, limit)
}

func (a *OIAnalyzer) instrument(ctx context.Context, token string) (*models.MInstrument, error) {
	ctx, cancel := helpers.WithTimeout(ctx, a.Config.Engine.DependencyTimeout())
	defer cancel()
	return a.catalog.GetInstrument(ctx, token)
}
