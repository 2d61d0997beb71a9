package storage

import (
	"database/sql"
	"time"

	"oi-signal-engine/src/models"
)

// Timestamps are stored as unix milliseconds, expiries as UTC midnight of
// their calendar date.

// -----------------------------------------------------------------------------

type instrumentRow struct {
	Token          string          `db:"token"`
	Symbol         string          `db:"symbol"`
	Name           string          `db:"name"`
	Exchange       string          `db:"exchange"`
	InstrumentType string          `db:"instrument_type"`
	Strike         sql.NullFloat64 `db:"strike"`
	Expiry         sql.NullInt64   `db:"expiry"`
	LotSize        int             `db:"lot_size"`
}

func newInstrumentRow(i models.MInstrument) instrumentRow {
	r := instrumentRow{
		Token:          i.Token,
		Symbol:         i.Symbol,
		Name:           i.Name,
		Exchange:       i.Exchange,
		InstrumentType: i.InstrumentType,
		LotSize:        i.LotSize,
	}
	if i.Strike != nil {
		r.Strike = sql.NullFloat64{Float64: *i.Strike, Valid: true}
	}
	if i.Expiry != nil {
		r.Expiry = sql.NullInt64{Int64: dayStart(*i.Expiry).UnixMilli(), Valid: true}
	}
	return r
}

func (r instrumentRow) model() models.MInstrument {
	inst := models.MInstrument{
		Token:          r.Token,
		Symbol:         r.Symbol,
		Name:           r.Name,
		Exchange:       r.Exchange,
		InstrumentType: r.InstrumentType,
		LotSize:        r.LotSize,
	}
	if r.Strike.Valid {
		v := r.Strike.Float64
		inst.Strike = &v
	}
	if r.Expiry.Valid {
		t := fromMillis(r.Expiry.Int64)
		inst.Expiry = &t
	}
	return inst
}

// -----------------------------------------------------------------------------

type sampleRow struct {
	Token          string  `db:"token"`
	Timestamp      int64   `db:"timestamp"`
	LastPrice      float64 `db:"last_price"`
	OpenInterest   int64   `db:"open_interest"`
	OIChange       int64   `db:"oi_change"`
	Volume         int64   `db:"volume"`
	Exchange       string  `db:"exchange"`
	InstrumentType string  `db:"instrument_type"`
}

func newSampleRow(s models.MMarketSample) sampleRow {
	return sampleRow{
		Token:          s.Token,
		Timestamp:      s.Timestamp.UnixMilli(),
		LastPrice:      s.LastPrice,
		OpenInterest:   s.OpenInterest,
		OIChange:       s.OIChange,
		Volume:         s.Volume,
		Exchange:       s.Exchange,
		InstrumentType: s.InstrumentType,
	}
}

func (r sampleRow) model() models.MMarketSample {
	return models.MMarketSample{
		Token:          r.Token,
		Timestamp:      fromMillis(r.Timestamp),
		LastPrice:      r.LastPrice,
		OpenInterest:   r.OpenInterest,
		OIChange:       r.OIChange,
		Volume:         r.Volume,
		Exchange:       r.Exchange,
		InstrumentType: r.InstrumentType,
	}
}

// -----------------------------------------------------------------------------

type signalRow struct {
	ID                int64           `db:"id"`
	CycleID           string          `db:"cycle_id"`
	Timestamp         int64           `db:"timestamp"`
	Token             string          `db:"token"`
	Symbol            string          `db:"symbol"`
	CurrentOI         int64           `db:"current_oi"`
	PreviousOI        int64           `db:"previous_oi"`
	OIChange          int64           `db:"oi_change"`
	OIChangePercent   float64         `db:"oi_change_percent"`
	CurrentPrice      float64         `db:"current_price"`
	ImpliedVolatility float64         `db:"implied_volatility"`
	SignalStrength    string          `db:"signal_strength"`
	SignalType        string          `db:"signal_type"`
	Exchange          string          `db:"exchange"`
	InstrumentType    string          `db:"instrument_type"`
	Underlying        string          `db:"underlying"`
	StrikePrice       sql.NullFloat64 `db:"strike_price"`
	OptionType        string          `db:"option_type"`
	AnalysisWindow    string          `db:"analysis_window"`
}

func newSignalRow(s models.MOISignal) signalRow {
	r := signalRow{
		CycleID:           s.CycleID,
		Timestamp:         s.Timestamp.UnixMilli(),
		Token:             s.Token,
		Symbol:            s.Symbol,
		CurrentOI:         s.CurrentOI,
		PreviousOI:        s.PreviousOI,
		OIChange:          s.OIChange,
		OIChangePercent:   s.OIChangePercent,
		CurrentPrice:      s.CurrentPrice,
		ImpliedVolatility: s.ImpliedVolatility,
		SignalStrength:    s.SignalStrength,
		SignalType:        s.SignalType,
		Exchange:          s.Exchange,
		InstrumentType:    s.InstrumentType,
		Underlying:        s.Underlying,
		OptionType:        s.OptionType,
		AnalysisWindow:    s.AnalysisWindow,
	}
	if s.StrikePrice != nil {
		r.StrikePrice = sql.NullFloat64{Float64: *s.StrikePrice, Valid: true}
	}
	return r
}

func (r signalRow) model() models.MOISignal {
	s := models.MOISignal{
		ID:                r.ID,
		CycleID:           r.CycleID,
		Timestamp:         fromMillis(r.Timestamp),
		Token:             r.Token,
		Symbol:            r.Symbol,
		CurrentOI:         r.CurrentOI,
		PreviousOI:        r.PreviousOI,
		OIChange:          r.OIChange,
		OIChangePercent:   r.OIChangePercent,
		CurrentPrice:      r.CurrentPrice,
		ImpliedVolatility: r.ImpliedVolatility,
		SignalStrength:    r.SignalStrength,
		SignalType:        r.SignalType,
		Exchange:          r.Exchange,
		InstrumentType:    r.InstrumentType,
		Underlying:        r.Underlying,
		OptionType:        r.OptionType,
		AnalysisWindow:    r.AnalysisWindow,
	}
	if r.StrikePrice.Valid {
		v := r.StrikePrice.Float64
		s.StrikePrice = &v
	}
	return s
}

// -----------------------------------------------------------------------------

type analyticsRow struct {
	ID              int64   `db:"id"`
	CycleID         string  `db:"cycle_id"`
	Timestamp       int64   `db:"timestamp"`
	Underlying      string  `db:"underlying"`
	TotalOIChange   int64   `db:"total_oi_change"`
	CallOIChange    int64   `db:"call_oi_change"`
	PutOIChange     int64   `db:"put_oi_change"`
	MaxCallOIChange int64   `db:"max_call_oi_change"`
	MaxPutOIChange  int64   `db:"max_put_oi_change"`
	MaxCallOIToken  string  `db:"max_call_oi_token"`
	MaxPutOIToken   string  `db:"max_put_oi_token"`
	AvgIV           float64 `db:"avg_iv"`
	MaxIV           float64 `db:"max_iv"`
	HighIVCount     int     `db:"high_iv_count"`
	PCROI           float64 `db:"pcr_oi"`
	MarketSentiment string  `db:"market_sentiment"`
	SentimentScore  float64 `db:"sentiment_score"`
	SignalCount     int     `db:"signal_count"`
	Exchange        string  `db:"exchange"`
	SessionType     string  `db:"session_type"`
}

func newAnalyticsRow(a models.MOIAnalytics) analyticsRow {
	return analyticsRow{
		CycleID:         a.CycleID,
		Timestamp:       a.Timestamp.UnixMilli(),
		Underlying:      a.Underlying,
		TotalOIChange:   a.TotalOIChange,
		CallOIChange:    a.CallOIChange,
		PutOIChange:     a.PutOIChange,
		MaxCallOIChange: a.MaxCallOIChange,
		MaxPutOIChange:  a.MaxPutOIChange,
		MaxCallOIToken:  a.MaxCallOIToken,
		MaxPutOIToken:   a.MaxPutOIToken,
		AvgIV:           a.AvgIV,
		MaxIV:           a.MaxIV,
		HighIVCount:     a.HighIVCount,
		PCROI:           a.PCROI,
		MarketSentiment: a.MarketSentiment,
		SentimentScore:  a.SentimentScore,
		SignalCount:     a.SignalCount,
		Exchange:        a.Exchange,
		SessionType:     a.SessionType,
	}
}

func (r analyticsRow) model() models.MOIAnalytics {
	return models.MOIAnalytics{
		ID:              r.ID,
		CycleID:         r.CycleID,
		Timestamp:       fromMillis(r.Timestamp),
		Underlying:      r.Underlying,
		TotalOIChange:   r.TotalOIChange,
		CallOIChange:    r.CallOIChange,
		PutOIChange:     r.PutOIChange,
		MaxCallOIChange: r.MaxCallOIChange,
		MaxPutOIChange:  r.MaxPutOIChange,
		MaxCallOIToken:  r.MaxCallOIToken,
		MaxPutOIToken:   r.MaxPutOIToken,
		AvgIV:           r.AvgIV,
		MaxIV:           r.MaxIV,
		HighIVCount:     r.HighIVCount,
		PCROI:           r.PCROI,
		MarketSentiment: r.MarketSentiment,
		SentimentScore:  r.SentimentScore,
		SignalCount:     r.SignalCount,
		Exchange:        r.Exchange,
		SessionType:     r.SessionType,
	}
}

// -----------------------------------------------------------------------------

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
