package models

import "time"

const (
	StrengthStrong = "STRONG"
	StrengthMedium = "MEDIUM"
	StrengthWeak   = "WEAK"

	SignalBullish = "BULLISH"
	SignalBearish = "BEARISH"
	SignalNeutral = "NEUTRAL"

	// AnalysisWindow labels every signal regardless of the configured lookback.
	AnalysisWindow = "5m"
)

// MOISignal is produced once per qualifying token per cycle. Build it with
// analysis.NewOISignal so the derived fields stay consistent.
type MOISignal struct {
	ID                int64     `json:"id,omitempty"`
	CycleID           string    `json:"cycle_id,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	Token             string    `json:"token"`
	Symbol            string    `json:"symbol"`
	CurrentOI         int64     `json:"current_oi"`
	PreviousOI        int64     `json:"previous_oi"`
	OIChange          int64     `json:"oi_change"`
	OIChangePercent   float64   `json:"oi_change_percent"`
	CurrentPrice      float64   `json:"current_price"`
	ImpliedVolatility float64   `json:"implied_volatility"`
	SignalStrength    string    `json:"signal_strength"`
	SignalType        string    `json:"signal_type"`
	Exchange          string    `json:"exchange"`
	InstrumentType    string    `json:"instrument_type"`
	Underlying        string    `json:"underlying"`
	StrikePrice       *float64  `json:"strike_price,omitempty"`
	OptionType        string    `json:"option_type"`
	AnalysisWindow    string    `json:"analysis_window"`
}

// MSignalFilter narrows QuerySignals. Empty fields do not filter.
type MSignalFilter struct {
	Strength   string
	Underlying string
	Exchange   string
	Since      time.Time
	Limit      int
}
