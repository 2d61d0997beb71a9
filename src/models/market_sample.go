package models

import "time"

// MMarketSample is one tick as written by ingestion. Never mutated afterwards.
type MMarketSample struct {
	Token          string    `json:"token"`
	Timestamp      time.Time `json:"timestamp"`
	LastPrice      float64   `json:"ltp"`
	OpenInterest   int64     `json:"oi"`
	OIChange       int64     `json:"oi_change"` // exchange-reported
	Volume         int64     `json:"volume"`
	Exchange       string    `json:"exchange"`
	InstrumentType string    `json:"instrument_type"`
}
