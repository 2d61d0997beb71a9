package models

import (
	"strings"
	"time"
)

// Option types derived from the instrument symbol.
const (
	OptionTypeCall   = "CE"
	OptionTypePut    = "PE"
	OptionTypeFuture = "FUTURE"
)

// Instrument types as listed by the exchanges.
const (
	InstrumentFutStk = "FUTSTK"
	InstrumentFutIdx = "FUTIDX"
	InstrumentFutCom = "FUTCOM"
	InstrumentOptStk = "OPTSTK"
	InstrumentOptIdx = "OPTIDX"
	InstrumentOptFut = "OPTFUT"
)

// MInstrument is a catalog entry. Strike and Expiry are nil when not listed.
type MInstrument struct {
	Token          string     `json:"token"`
	Symbol         string     `json:"symbol"`
	Name           string     `json:"name"` // underlying
	Exchange       string     `json:"exchange"`
	InstrumentType string     `json:"instrument_type"`
	Strike         *float64   `json:"strike,omitempty"`
	Expiry         *time.Time `json:"expiry,omitempty"`
	LotSize        int        `json:"lot_size"`
}

// OptionType reads CE / PE off the symbol; everything else is a future.
func (i MInstrument) OptionType() string {
	switch {
	case strings.Contains(i.Symbol, OptionTypeCall):
		return OptionTypeCall
	case strings.Contains(i.Symbol, OptionTypePut):
		return OptionTypePut
	default:
		return OptionTypeFuture
	}
}

func (i MInstrument) IsFuture() bool {
	switch i.InstrumentType {
	case InstrumentFutStk, InstrumentFutIdx, InstrumentFutCom:
		return true
	}
	return false
}

func (i MInstrument) IsOption() bool {
	switch i.InstrumentType {
	case InstrumentOptStk, InstrumentOptIdx, InstrumentOptFut:
		return true
	}
	return false
}

// MStreamingUniverse is the token set analysed every cycle.
type MStreamingUniverse struct {
	Futures   []string `json:"futures"`
	OptionsCE []string `json:"options_ce"`
	OptionsPE []string `json:"options_pe"`
}

// Tokens flattens the universe: futures, then calls, then puts.
func (u MStreamingUniverse) Tokens() []string {
	out := make([]string, 0, len(u.Futures)+len(u.OptionsCE)+len(u.OptionsPE))
	out = append(out, u.Futures...)
	out = append(out, u.OptionsCE...)
	out = append(out, u.OptionsPE...)
	return out
}
