package utils

import (
	"fmt"
	"time"

	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/models"

	"github.com/scmhub/calendar"
)

const unknown = "Unknown"

// MarketScheduler answers "which exchanges are trading right now" for the
// configured sessions. Exchange order follows the config.
type MarketScheduler struct {
	Calendars []*TradingCalendar
	Location  *time.Location
	Logger    *logger.Logger

	// Now is the wall clock. Tests replace it.
	Now func() time.Time
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(cfg *models.MConfig, l *logger.Logger) (*MarketScheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	var holidays *calendar.Calendar
	if mic := cfg.Calendar.HolidayMIC; mic != "" {
		holidays = calendar.GetCalendar(mic)
		if holidays == nil {
			l.Warning("No holiday calendar for MIC '%s'; using Mon-Fri only", mic)
		}
	}

	ms := &MarketScheduler{
		Location: loc,
		Logger:   l,
		Now:      time.Now,
	}
	for _, w := range cfg.Exchanges {
		tc, err := NewTradingCalendar(w, loc, holidays)
		if err != nil {
			return nil, err
		}
		ms.Calendars = append(ms.Calendars, tc)
	}

	l.Info("MarketScheduler: %d exchange sessions in %s", len(ms.Calendars), loc)
	return ms, nil
}

// -----------------------------------------------------------------------------

// IsMarketOpen reports whether exchange is inside its session now. Unknown
// exchanges are closed.
func (ms *MarketScheduler) IsMarketOpen(exchange string) bool {
	return ms.IsMarketOpenAt(exchange, ms.now())
}

func (ms *MarketScheduler) IsMarketOpenAt(exchange string, t time.Time) (open bool) {
	defer func() {
		if r := recover(); r != nil {
			ms.Logger.Error("market open check for %s failed: %v", exchange, r)
			open = false
		}
	}()

	for _, cal := range ms.Calendars {
		if cal.Exchange == exchange {
			return cal.IsOpenAt(t)
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// ActiveExchanges lists the open exchanges, each checked on its own.
func (ms *MarketScheduler) ActiveExchanges() []string {
	return ms.ActiveExchangesAt(ms.now())
}

func (ms *MarketScheduler) ActiveExchangesAt(t time.Time) (active []string) {
	defer func() {
		if r := recover(); r != nil {
			ms.Logger.Error("active exchange check failed: %v", r)
			active = []string{}
		}
	}()

	active = []string{}
	for _, cal := range ms.Calendars {
		if cal.IsOpenAt(t) {
			active = append(active, cal.Exchange)
		}
	}
	return active
}

// -----------------------------------------------------------------------------

// AnyMarketOpen checks if ANY configured exchange is currently open
func (ms *MarketScheduler) AnyMarketOpen() bool {
	return len(ms.ActiveExchanges()) > 0
}

// -----------------------------------------------------------------------------

// DetailedStatus never fails: on an internal error it reports closed/unknown.
func (ms *MarketScheduler) DetailedStatus() models.MMarketStatus {
	return ms.DetailedStatusAt(ms.now())
}

func (ms *MarketScheduler) DetailedStatusAt(t time.Time) (status models.MMarketStatus) {
	defer func() {
		if r := recover(); r != nil {
			ms.Logger.Error("market status failed: %v", r)
			status = UnknownMarketStatus()
		}
	}()

	if ms.Location == nil {
		return UnknownMarketStatus()
	}

	local := t.In(ms.Location)
	weekday := local.Weekday()
	weekend := weekday == time.Saturday || weekday == time.Sunday
	tradingDay := !weekend
	for _, cal := range ms.Calendars {
		if !cal.IsTradingDay(local) {
			tradingDay = false
			break
		}
	}

	active := ms.ActiveExchangesAt(local)

	var reason string
	switch {
	case weekend:
		reason = fmt.Sprintf("Weekend - Markets closed on %s", weekday)
	case !tradingDay:
		reason = fmt.Sprintf("Exchange holiday - Markets closed on %s", weekday)
	case len(active) == 0:
		reason = "Outside trading hours"
	default:
		reason = fmt.Sprintf("%d exchange(s) active", len(active))
	}

	next, days := NextTradingDay(weekday)
	if tradingDay {
		days = 0
	}

	hours := make(map[string]string, len(ms.Calendars))
	for _, cal := range ms.Calendars {
		hours[cal.Exchange] = cal.HoursLabel(local)
	}

	return models.MMarketStatus{
		CurrentTime:          local.Format("2006-01-02 15:04:05 MST"),
		CurrentDay:           weekday.String(),
		IsTradingDay:         tradingDay,
		IsAnyMarketOpen:      len(active) > 0,
		ActiveExchanges:      active,
		StatusReason:         reason,
		NextTradingDay:       next.String(),
		DaysUntilNextTrading: days,
		TradingHours:         hours,
	}
}

// -----------------------------------------------------------------------------

// NextTradingDay returns the next weekday session after `day` and how many
// calendar days away it is.
func NextTradingDay(day time.Weekday) (time.Weekday, int) {
	switch day {
	case time.Friday:
		return time.Monday, 3
	case time.Saturday:
		return time.Monday, 2
	case time.Sunday:
		return time.Monday, 1
	default:
		return day + 1, 1
	}
}

// -----------------------------------------------------------------------------

// UnknownMarketStatus is the safe answer when the calendar cannot decide.
func UnknownMarketStatus() models.MMarketStatus {
	return models.MMarketStatus{
		CurrentTime:     unknown,
		CurrentDay:      unknown,
		ActiveExchanges: []string{},
		StatusReason:    "Unable to determine market status",
		NextTradingDay:  unknown,
		TradingHours:    map[string]string{},
	}
}

// -----------------------------------------------------------------------------

func (ms *MarketScheduler) now() time.Time {
	if ms.Now == nil {
		return time.Now()
	}
	return ms.Now()
}
