package utils

import (
	"testing"
	"time"

	"oi-signal-engine/src/config"
	"oi-signal-engine/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScheduler(t *testing.T) *MarketScheduler {
	t.Helper()
	ms, err := NewMarketScheduler(config.Default().MConfig, logger.NewNop("test"))
	require.NoError(t, err)
	return ms
}

// ist builds a wall-clock time in the scheduler's zone. 2024-01-01 is a Monday.
func ist(t *testing.T, ms *MarketScheduler, day, hour, min, sec int) time.Time {
	t.Helper()
	return time.Date(2024, time.January, day, hour, min, sec, 0, ms.Location)
}

func TestWeekendClosedForEveryExchange(t *testing.T) {
	ms := newScheduler(t)
	for _, day := range []int{6, 7} { // Saturday, Sunday
		for hour := 0; hour < 24; hour++ {
			at := ist(t, ms, day, hour, 0, 0)
			for _, ex := range []string{"MCX", "NSE", "NFO"} {
				assert.False(t, ms.IsMarketOpenAt(ex, at), "%s open at %s", ex, at)
			}
			assert.Empty(t, ms.ActiveExchangesAt(at))
		}
	}
}

func TestFridayLateOnlyMCX(t *testing.T) {
	ms := newScheduler(t)
	at := ist(t, ms, 5, 23, 0, 0)

	assert.True(t, ms.IsMarketOpenAt("MCX", at))
	assert.False(t, ms.IsMarketOpenAt("NSE", at))
	assert.False(t, ms.IsMarketOpenAt("NFO", at))
	assert.Equal(t, []string{"MCX"}, ms.ActiveExchangesAt(at))
}

func TestWindowsAreInclusive(t *testing.T) {
	ms := newScheduler(t)
	cases := []struct {
		name     string
		at       time.Time
		exchange string
		open     bool
	}{
		{"nse before open", ist(t, ms, 2, 9, 19, 59), "NSE", false},
		{"nse at open", ist(t, ms, 2, 9, 20, 0), "NSE", true},
		{"nse at close", ist(t, ms, 2, 15, 30, 0), "NSE", true},
		{"nse after close", ist(t, ms, 2, 15, 30, 1), "NSE", false},
		{"mcx at open", ist(t, ms, 2, 9, 0, 0), "MCX", true},
		{"mcx at close", ist(t, ms, 2, 23, 30, 0), "MCX", true},
		{"mcx after close", ist(t, ms, 2, 23, 31, 0), "MCX", false},
		{"unknown exchange", ist(t, ms, 2, 12, 0, 0), "BSE", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.open, ms.IsMarketOpenAt(tc.exchange, tc.at))
		})
	}
}

func TestActiveExchangesOverlap(t *testing.T) {
	ms := newScheduler(t)
	assert.Equal(t, []string{"MCX", "NSE", "NFO"}, ms.ActiveExchangesAt(ist(t, ms, 3, 11, 0, 0)))
	assert.Equal(t, []string{"MCX"}, ms.ActiveExchangesAt(ist(t, ms, 3, 9, 10, 0)))
	assert.Empty(t, ms.ActiveExchangesAt(ist(t, ms, 3, 8, 0, 0)))
}

func TestTimezoneIsApplied(t *testing.T) {
	ms := newScheduler(t)
	// 05:30 UTC is 11:00 IST on a Wednesday.
	at := time.Date(2024, time.January, 3, 5, 30, 0, 0, time.UTC)
	assert.True(t, ms.IsMarketOpenAt("NSE", at))
}

func TestNextTradingDay(t *testing.T) {
	cases := []struct {
		today time.Weekday
		next  time.Weekday
		days  int
	}{
		{time.Monday, time.Tuesday, 1},
		{time.Tuesday, time.Wednesday, 1},
		{time.Thursday, time.Friday, 1},
		{time.Friday, time.Monday, 3},
		{time.Saturday, time.Monday, 2},
		{time.Sunday, time.Monday, 1},
	}
	for _, tc := range cases {
		next, days := NextTradingDay(tc.today)
		assert.Equal(t, tc.next, next, tc.today.String())
		assert.Equal(t, tc.days, days, tc.today.String())
	}
}

func TestDetailedStatus(t *testing.T) {
	ms := newScheduler(t)

	sat := ms.DetailedStatusAt(ist(t, ms, 6, 12, 0, 0))
	assert.Equal(t, "Saturday", sat.CurrentDay)
	assert.False(t, sat.IsTradingDay)
	assert.False(t, sat.IsAnyMarketOpen)
	assert.Equal(t, "Weekend - Markets closed on Saturday", sat.StatusReason)
	assert.Equal(t, "Monday", sat.NextTradingDay)
	assert.Equal(t, 2, sat.DaysUntilNextTrading)
	assert.Equal(t, "2024-01-06 12:00:00 IST", sat.CurrentTime)

	tueNight := ms.DetailedStatusAt(ist(t, ms, 2, 23, 45, 0))
	assert.True(t, tueNight.IsTradingDay)
	assert.Equal(t, "Outside trading hours", tueNight.StatusReason)
	assert.Equal(t, "Wednesday", tueNight.NextTradingDay)
	assert.Equal(t, 0, tueNight.DaysUntilNextTrading)

	friLate := ms.DetailedStatusAt(ist(t, ms, 5, 23, 0, 0))
	assert.True(t, friLate.IsAnyMarketOpen)
	assert.Equal(t, "1 exchange(s) active", friLate.StatusReason)
	assert.Equal(t, []string{"MCX"}, friLate.ActiveExchanges)
	assert.Equal(t, "Monday", friLate.NextTradingDay)
	assert.Equal(t, 0, friLate.DaysUntilNextTrading)

	assert.Equal(t, "9:00 AM - 11:30 PM IST (Mon-Fri)", friLate.TradingHours["MCX"])
	assert.Equal(t, "9:20 AM - 3:30 PM IST (Mon-Fri)", friLate.TradingHours["NSE"])
}

func TestDetailedStatusDegradesToUnknown(t *testing.T) {
	ms := &MarketScheduler{Logger: logger.NewNop("test")}
	st := ms.DetailedStatusAt(time.Now())
	assert.Equal(t, UnknownMarketStatus(), st)
	assert.False(t, st.IsAnyMarketOpen)
}

func TestNowIsInjectable(t *testing.T) {
	ms := newScheduler(t)
	ms.Now = func() time.Time { return ist(t, ms, 7, 10, 0, 0) }
	assert.False(t, ms.AnyMarketOpen())
	assert.Equal(t, "Sunday", ms.DetailedStatus().CurrentDay)
	assert.Equal(t, 1, ms.DetailedStatus().DaysUntilNextTrading)
}
