package utils

import (
	"fmt"
	"time"

	"oi-signal-engine/src/config"
	"oi-signal-engine/src/models"

	"github.com/scmhub/calendar"
)

// TradingCalendar is one exchange's weekday session. Holidays, when a MIC is
// configured, come from scmhub/calendar.
type TradingCalendar struct {
	Exchange string
	Open     time.Duration // offset from local midnight
	Close    time.Duration
	Holidays *calendar.Calendar
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// NewTradingCalendar parses a configured window. holidays may be nil.
func NewTradingCalendar(w models.MExchangeWindow, loc *time.Location, holidays *calendar.Calendar) (*TradingCalendar, error) {
	if loc == nil {
		return nil, fmt.Errorf("exchange %s: no timezone", w.Name)
	}
	open, err := config.ParseClock(w.Open)
	if err != nil {
		return nil, fmt.Errorf("exchange %s: %w", w.Name, err)
	}
	closeAt, err := config.ParseClock(w.Close)
	if err != nil {
		return nil, fmt.Errorf("exchange %s: %w", w.Name, err)
	}
	return &TradingCalendar{
		Exchange: w.Name,
		Open:     open,
		Close:    closeAt,
		Holidays: holidays,
		Timezone: loc,
	}, nil
}

// -----------------------------------------------------------------------------

// IsWeekday reports Monday to Friday in the calendar's timezone.
func (tc *TradingCalendar) IsWeekday(date time.Time) bool {
	weekday := date.In(tc.Timezone).Weekday()
	return weekday != time.Saturday && weekday != time.Sunday
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	date = date.In(tc.Timezone)
	if !tc.IsWeekday(date) {
		return false
	}
	if tc.Holidays != nil {
		return tc.Holidays.IsBusinessDay(date)
	}
	return true
}

// -----------------------------------------------------------------------------

// IsOpenAt checks the session window, both ends inclusive.
func (tc *TradingCalendar) IsOpenAt(t time.Time) bool {
	t = t.In(tc.Timezone)
	if !tc.IsTradingDay(t) {
		return false
	}
	tod := sinceMidnight(t)
	return tod >= tc.Open && tod <= tc.Close
}

// -----------------------------------------------------------------------------

// HoursLabel renders the session as "9:00 AM - 11:30 PM IST (Mon-Fri)".
func (tc *TradingCalendar) HoursLabel(ref time.Time) string {
	ref = ref.In(tc.Timezone)
	midnight := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, tc.Timezone)
	return fmt.Sprintf("%s - %s %s (Mon-Fri)",
		midnight.Add(tc.Open).Format("3:04 PM"),
		midnight.Add(tc.Close).Format("3:04 PM"),
		ref.Format("MST"))
}

// -----------------------------------------------------------------------------

func sinceMidnight(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}
