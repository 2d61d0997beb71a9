package analysis

import (
	"time"

	"oi-signal-engine/src/analysis/core"
	"oi-signal-engine/src/models"
)

// NewOISignal builds a signal from the two newest ticks of one instrument.
// OI change, percentage, IV, strength and direction are all derived here and
// nowhere else.
func NewOISignal(inst models.MInstrument, current, previous models.MMarketSample, th core.Thresholds, at time.Time) models.MOISignal {
	optionType := inst.OptionType()
	change := current.OpenInterest - previous.OpenInterest
	pct := core.CalculateChangePercent(current.OpenInterest, previous.OpenInterest)
	iv := core.EstimateImpliedVolatility(current.LastPrice, inst.Strike, optionType)

	var strike *float64
	if inst.Strike != nil {
		v := *inst.Strike
		strike = &v
	}

	return models.MOISignal{
		Timestamp:         at,
		Token:             inst.Token,
		Symbol:            inst.Symbol,
		CurrentOI:         current.OpenInterest,
		PreviousOI:        previous.OpenInterest,
		OIChange:          change,
		OIChangePercent:   pct,
		CurrentPrice:      current.LastPrice,
		ImpliedVolatility: iv,
		SignalStrength:    core.SignalStrength(pct, iv, change, th),
		SignalType:        core.SignalType(optionType, change),
		Exchange:          inst.Exchange,
		InstrumentType:    inst.InstrumentType,
		Underlying:        inst.Name,
		StrikePrice:       strike,
		OptionType:        optionType,
		AnalysisWindow:    models.AnalysisWindow,
	}
}

// IsActionable reports STRONG and MEDIUM signals.
func IsActionable(s models.MOISignal) bool {
	return s.SignalStrength == models.StrengthStrong || s.SignalStrength == models.StrengthMedium
}
