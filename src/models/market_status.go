package models

// MMarketStatus is the detailed calendar view handed to API callers.
type MMarketStatus struct {
	CurrentTime          string            `json:"current_time"`
	CurrentDay           string            `json:"current_day"`
	IsTradingDay         bool              `json:"is_trading_day"`
	IsAnyMarketOpen      bool              `json:"is_any_market_open"`
	ActiveExchanges      []string          `json:"active_exchanges"`
	StatusReason         string            `json:"status_reason"`
	NextTradingDay       string            `json:"next_trading_day"`
	DaysUntilNextTrading int               `json:"days_until_next_trading"`
	TradingHours         map[string]string `json:"trading_hours"`
}

// MEngineStatus is the lifecycle view of the signal engine.
type MEngineStatus struct {
	IsRunning          bool     `json:"is_running"`
	ActiveExchanges    []string `json:"active_exchanges"`
	CurrentSignalCount int      `json:"current_signal_count"`
	AnalysisInterval   string   `json:"analysis_interval"`
	LastAnalysisTime   *int64   `json:"last_analysis_time,omitempty"` // unix seconds
	LastCycleID        string   `json:"last_cycle_id,omitempty"`
	LastError          string   `json:"last_error,omitempty"`
	CyclesCompleted    int64    `json:"cycles_completed"`
}
