package models

import "time"

const SessionRegular = "REGULAR"

// MOIAnalytics rolls one cycle's signals up per underlying.
type MOIAnalytics struct {
	ID              int64     `json:"id,omitempty"`
	CycleID         string    `json:"cycle_id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Underlying      string    `json:"underlying"`
	TotalOIChange   int64     `json:"total_oi_change"`
	CallOIChange    int64     `json:"call_oi_change"`
	PutOIChange     int64     `json:"put_oi_change"`
	MaxCallOIChange int64     `json:"max_call_oi_change"`
	MaxPutOIChange  int64     `json:"max_put_oi_change"`
	MaxCallOIToken  string    `json:"max_call_oi_token"`
	MaxPutOIToken   string    `json:"max_put_oi_token"`
	AvgIV           float64   `json:"avg_iv"`
	MaxIV           float64   `json:"max_iv"`
	HighIVCount     int       `json:"high_iv_count"`
	PCROI           float64   `json:"pcr_oi"`
	MarketSentiment string    `json:"market_sentiment"`
	SentimentScore  float64   `json:"sentiment_score"`
	SignalCount     int       `json:"signal_count"`
	Exchange        string    `json:"exchange"`
	SessionType     string    `json:"session_type"`
}
