package analysis

import (
	"time"

	"oi-signal-engine/src/analysis/core"
	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/models"
)

// SignalAggregator rolls a set of signals up into one analytics record per
// supported underlying.
type SignalAggregator struct {
	Config *models.MConfig
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSignalAggregator(cfg *models.MConfig, log *logger.Logger) *SignalAggregator {
	return &SignalAggregator{Config: cfg, Logger: log}
}

// -----------------------------------------------------------------------------

// Aggregate groups signals by underlying and returns analytics for every
// supported underlying that has at least one signal, in configured order.
func (g *SignalAggregator) Aggregate(signals []models.MOISignal, at time.Time) []models.MOIAnalytics {
	groups := make(map[string][]models.MOISignal)
	for _, s := range signals {
		groups[s.Underlying] = append(groups[s.Underlying], s)
	}

	out := make([]models.MOIAnalytics, 0, len(g.Config.Engine.SupportedUnderlyings))
	for _, underlying := range g.Config.Engine.SupportedUnderlyings {
		group, ok := groups[underlying]
		if !ok {
			continue
		}
		a := AggregateUnderlying(underlying, group)
		a.Timestamp = at
		out = append(out, a)
		g.Logger.Debug("%s: %d signal(s), sentiment %s (%.2f), pcr %.2f",
			underlying, a.SignalCount, a.MarketSentiment, a.SentimentScore, a.PCROI)
	}
	return out
}

// -----------------------------------------------------------------------------

// AggregateUnderlying computes the rollup for one underlying's signals. Ties
// on the largest call/put move go to the first signal in input order.
func AggregateUnderlying(underlying string, signals []models.MOISignal) models.MOIAnalytics {
	a := models.MOIAnalytics{
		Underlying:      underlying,
		SignalCount:     len(signals),
		SessionType:     models.SessionRegular,
		MarketSentiment: models.SignalNeutral,
	}
	if len(signals) == 0 {
		return a
	}
	a.Exchange = signals[0].Exchange

	var maxCall, maxPut *models.MOISignal
	ivs := make([]float64, 0, len(signals))
	bullish, bearish := 0, 0

	for i := range signals {
		s := &signals[i]
		a.TotalOIChange += s.OIChange
		ivs = append(ivs, s.ImpliedVolatility)

		switch s.OptionType {
		case models.OptionTypeCall:
			a.CallOIChange += s.OIChange
			if maxCall == nil || abs(s.OIChange) > abs(maxCall.OIChange) {
				maxCall = s
			}
		case models.OptionTypePut:
			a.PutOIChange += s.OIChange
			if maxPut == nil || abs(s.OIChange) > abs(maxPut.OIChange) {
				maxPut = s
			}
		}

		switch s.SignalType {
		case models.SignalBullish:
			bullish++
		case models.SignalBearish:
			bearish++
		}
	}

	if maxCall != nil {
		a.MaxCallOIChange = maxCall.OIChange
		a.MaxCallOIToken = maxCall.Token
	}
	if maxPut != nil {
		a.MaxPutOIChange = maxPut.OIChange
		a.MaxPutOIToken = maxPut.Token
	}

	a.AvgIV = core.CalculateMean(ivs)
	a.MaxIV = core.CalculateMax(ivs)
	a.HighIVCount = core.CountAbove(ivs, core.HighIVThreshold)
	a.PCROI = core.SafeRatio(a.PutOIChange, a.CallOIChange)

	total := float64(len(signals))
	switch {
	case bullish > bearish:
		a.MarketSentiment = models.SignalBullish
		a.SentimentScore = float64(bullish-bearish) / total
	case bearish > bullish:
		a.MarketSentiment = models.SignalBearish
		a.SentimentScore = -float64(bearish-bullish) / total
	default:
		a.MarketSentiment = models.SignalNeutral
		a.SentimentScore = 0
	}
	return a
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
