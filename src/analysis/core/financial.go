package core

import (
	"math"

	"oi-signal-engine/src/models"
)

const (
	// FutureIV is the flat volatility estimate for futures.
	FutureIV = 15.0
	MinIV    = 0.0
	MaxIV    = 200.0

	// HighIVThreshold is the cutoff for an underlying's high-IV count. It does
	// not follow the configurable min_iv filter.
	HighIVThreshold = 15.0
)

// Thresholds grade a signal.
type Thresholds struct {
	MinIV         float64
	StrongPct     float64
	MediumPct     float64
	MinOIAbsolute int64
}

// DefaultThresholds are the production grading thresholds.
var DefaultThresholds = Thresholds{MinIV: 15.0, StrongPct: 20.0, MediumPct: 10.0, MinOIAbsolute: 1000}

// ThresholdsFrom reads the grading thresholds out of the engine config.
func ThresholdsFrom(cfg models.MEngineConfig) Thresholds {
	return Thresholds{
		MinIV:         cfg.MinIV,
		StrongPct:     cfg.StrongOIChangePct,
		MediumPct:     cfg.MediumOIChangePct,
		MinOIAbsolute: cfg.MinOIAbsolute,
	}
}

// -----------------------------------------------------------------------------

// CalculateChangePercent returns the percentage change, 0 when previous is 0.
func CalculateChangePercent(current, previous int64) float64 {
	if previous == 0 {
		return 0.0
	}
	return float64(current-previous) / float64(previous) * 100
}

// -----------------------------------------------------------------------------

// EstimateImpliedVolatility is a moneyness proxy, not an options-pricing model.
// In the money: distance/strike*100 capped at 100. Out of the money:
// distance/strike*50 floored at 5. Futures get FutureIV. A missing or zero
// strike falls back to the price.
func EstimateImpliedVolatility(price float64, strike *float64, optionType string) float64 {
	if optionType == models.OptionTypeFuture {
		return ClampIV(FutureIV)
	}

	k := price
	if strike != nil && *strike != 0 {
		k = *strike
	}
	if k <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return ClampIV(FutureIV)
	}

	var iv float64
	switch optionType {
	case models.OptionTypeCall:
		if price > k {
			iv = math.Min((price-k)/k*100, 100)
		} else {
			iv = math.Max((k-price)/k*50, 5)
		}
	case models.OptionTypePut:
		if price < k {
			iv = math.Min((k-price)/k*100, 100)
		} else {
			iv = math.Max((price-k)/k*50, 5)
		}
	default:
		iv = FutureIV
	}
	return ClampIV(iv)
}

// -----------------------------------------------------------------------------

// ClampIV bounds an estimate to [MinIV, MaxIV]. NaN maps to MinIV.
func ClampIV(iv float64) float64 {
	if math.IsNaN(iv) {
		return MinIV
	}
	return math.Max(MinIV, math.Min(iv, MaxIV))
}

// -----------------------------------------------------------------------------

// SignalStrength grades an OI move. STRONG needs all three of the percentage,
// IV and absolute change thresholds; MEDIUM needs percentage and IV.
func SignalStrength(changePct float64, iv float64, change int64, th Thresholds) string {
	pct := math.Abs(changePct)
	switch {
	case pct >= th.StrongPct && iv >= th.MinIV && abs64(change) >= th.MinOIAbsolute:
		return models.StrengthStrong
	case pct >= th.MediumPct && iv >= th.MinIV:
		return models.StrengthMedium
	default:
		return models.StrengthWeak
	}
}

// -----------------------------------------------------------------------------

// SignalType reads direction off the option side. Rising call OI and rising
// futures OI are bullish; rising put OI is bearish.
func SignalType(optionType string, change int64) string {
	up := change > 0
	if optionType == models.OptionTypePut {
		up = !up
	}
	if up {
		return models.SignalBullish
	}
	return models.SignalBearish
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
