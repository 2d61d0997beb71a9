package config

import "oi-signal-engine/src/models"

// DefaultUnderlyings are analysed when the config names none.
var DefaultUnderlyings = []string{"NIFTY", "BANKNIFTY", "CRUDEOIL", "NATURALGAS"}

// DefaultExchanges are the Monday to Friday sessions, local exchange time.
var DefaultExchanges = []models.MExchangeWindow{
	{Name: "MCX", Open: "09:00", Close: "23:30"},
	{Name: "NSE", Open: "09:20", Close: "15:30"},
	{Name: "NFO", Open: "09:20", Close: "15:30"},
}

// -----------------------------------------------------------------------------

// presetDefaults covers keys where zero is a legal value. It runs before the
// YAML is decoded, so only an absent key keeps the default.
func presetDefaults(m *models.MConfig) {
	m.Engine.MinOIAbsolute = 1000
}

// ApplyDefaults fills every zero value with its documented default.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "oi-signal-engine"
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.GrpcPort == 0 {
		c.GrpcPort = 50051
	}
	if c.GrpcHost == "" {
		c.GrpcHost = c.Host
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Kolkata"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}

	s := &c.Storage
	if s.DBType == "" {
		s.DBType = "sqlite"
	}
	if s.DBType == "sqlite" && s.DBPath == "" {
		s.DBPath = "oi_signals.db"
	}
	if s.RetentionDays == 0 {
		s.RetentionDays = 30
	}

	if len(c.Exchanges) == 0 {
		c.Exchanges = append([]models.MExchangeWindow(nil), DefaultExchanges...)
	}

	e := &c.Engine
	if len(e.SupportedUnderlyings) == 0 {
		e.SupportedUnderlyings = append([]string(nil), DefaultUnderlyings...)
	}
	setFloat(&e.MinIV, 15.0)
	setFloat(&e.StrongOIChangePct, 20.0)
	setFloat(&e.MediumOIChangePct, 10.0)
	setInt(&e.AnalysisWindowSeconds, 300)
	setInt(&e.ClosedMarketPollSeconds, 60)
	setInt(&e.ErrorBackoffSeconds, 60)
	setInt(&e.ConfigErrorBackoffSeconds, 300)
	setInt(&e.DependencyTimeoutSeconds, 10)
	setInt(&e.LookbackMinutes, 5)
	setInt(&e.MaxSamples, 50)
	setInt(&e.CurrentSignalsLimit, 10)
	setInt(&e.AnalysisConcurrency, 4)
	setInt(&e.MaxFutures, 50)
	setInt(&e.MaxOptionsPerSide, 5)

	r := &c.Publishers.Redis
	if r.Channel == "" {
		r.Channel = "oi_signals"
	}
	if r.RecentKey == "" {
		r.RecentKey = "recent_signals"
	}
	setInt(&r.RecentMax, 100)

	k := &c.Publishers.Kafka
	if k.SignalsTopic == "" {
		k.SignalsTopic = "oi.signals"
	}
	if k.AnalyticsTopic == "" {
		k.AnalyticsTopic = "oi.analytics"
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setFloat(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}
