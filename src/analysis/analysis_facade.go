package analysis

import (
	"context"
	"sort"
	"time"

	"oi-signal-engine/src/interfaces"
	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/models"
)

// AnalysisFacade runs the analysis half of a cycle: analyse every token, keep
// the actionable signals ordered by move size, and roll them up.
type AnalysisFacade struct {
	Config     *models.MConfig
	Analyzer   *OIAnalyzer
	Aggregator *SignalAggregator
	Logger     *logger.Logger
}

// CycleResult is what one analysis pass produced.
type CycleResult struct {
	Generated int
	Kept      []models.MOISignal
	Analytics []models.MOIAnalytics
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(cfg *models.MConfig, catalog interfaces.IInstrumentCatalog, ticks interfaces.ITickStore, log *logger.Logger) *AnalysisFacade {
	return &AnalysisFacade{
		Config:     cfg,
		Analyzer:   NewOIAnalyzer(cfg, catalog, ticks, log),
		Aggregator: NewSignalAggregator(cfg, log),
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// Analyze processes tokens in order. Only dependency failures are returned.
func (a *AnalysisFacade) Analyze(ctx context.Context, tokens []string, at time.Time) (*CycleResult, error) {
	signals, err := a.Analyzer.AnalyzeUniverse(ctx, tokens)
	if err != nil {
		return nil, err
	}

	kept := SelectActionable(signals)
	return &CycleResult{
		Generated: len(signals),
		Kept:      kept,
		Analytics: a.Aggregator.Aggregate(kept, at),
	}, nil
}

// -----------------------------------------------------------------------------

// SelectActionable keeps STRONG and MEDIUM signals, largest |oi_change_percent|
// first. Equal moves keep their input order.
func SelectActionable(signals []models.MOISignal) []models.MOISignal {
	kept := make([]models.MOISignal, 0, len(signals))
	for _, s := range signals {
		if IsActionable(s) {
			kept = append(kept, s)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return absf(kept[i].OIChangePercent) > absf(kept[j].OIChangePercent)
	})
	return kept
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
