package testsupport

import (
	"time"

	"oi-signal-engine/src/models"
)

// Option builds a catalog entry for an option contract.
func Option(token, symbol, underlying, exchange string, strike float64, expiry time.Time) *models.MInstrument {
	return &models.MInstrument{
		Token:          token,
		Symbol:         symbol,
		Name:           underlying,
		Exchange:       exchange,
		InstrumentType: models.InstrumentOptIdx,
		Strike:         &strike,
		Expiry:         &expiry,
	}
}

// Future builds a catalog entry for a futures contract.
func Future(token, symbol, underlying, exchange string, expiry time.Time) *models.MInstrument {
	return &models.MInstrument{
		Token:          token,
		Symbol:         symbol,
		Name:           underlying,
		Exchange:       exchange,
		InstrumentType: models.InstrumentFutIdx,
		Expiry:         &expiry,
	}
}

// Pair returns the newest-first tick pair the analyzer compares.
func Pair(token string, at time.Time, previousOI, currentOI int64, price float64) []models.MMarketSample {
	return []models.MMarketSample{
		{Token: token, Timestamp: at, OpenInterest: currentOI, LastPrice: price},
		{Token: token, Timestamp: at.Add(-time.Minute), OpenInterest: previousOI, LastPrice: price},
	}
}

// Signal builds a graded signal directly, for aggregation and storage tests.
func Signal(token, underlying, optionType string, change int64, iv float64, strength, signalType string) models.MOISignal {
	return models.MOISignal{
		Token:             token,
		Symbol:            underlying + "24JAN" + optionType,
		Underlying:        underlying,
		OptionType:        optionType,
		OIChange:          change,
		CurrentOI:         10_000 + change,
		PreviousOI:        10_000,
		OIChangePercent:   float64(change) / 100,
		ImpliedVolatility: iv,
		SignalStrength:    strength,
		SignalType:        signalType,
		Exchange:          "NFO",
		AnalysisWindow:    "5m",
	}
}
