package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"oi-signal-engine/src/config"
	"oi-signal-engine/src/helpers"
	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/models"
	"oi-signal-engine/src/testsupport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	cycleTime = time.Date(2024, time.January, 3, 11, 0, 0, 0, time.UTC)
	expiry    = time.Date(2024, time.January, 25, 0, 0, 0, 0, time.UTC)
)

func newAnalyzer(t *testing.T) (*OIAnalyzer, *testsupport.MockCatalog, *testsupport.MockTickStore) {
	t.Helper()
	catalog := &testsupport.MockCatalog{}
	ticks := &testsupport.MockTickStore{}
	a := NewOIAnalyzer(config.Default().MConfig, catalog, ticks, logger.NewNop("test"))
	a.Now = func() time.Time { return cycleTime }
	return a, catalog, ticks
}

func TestAnalyzeTokenIVFloorOverridesStrongMove(t *testing.T) {
	a, catalog, ticks := newAnalyzer(t)
	ticks.On("RecentSamples", mock.Anything, "T1", cycleTime.Add(-5*time.Minute), 50).
		Return(testsupport.Pair("T1", cycleTime, 5000, 6200, 105), nil)
	catalog.On("GetInstrument", mock.Anything, "T1").
		Return(testsupport.Option("T1", "NIFTY24JAN100CE", "NIFTY", "NFO", 100, expiry), nil)

	signal, err := a.AnalyzeToken(context.Background(), "T1")
	require.NoError(t, err)
	assert.Nil(t, signal)

	ticks.AssertExpectations(t)
	catalog.AssertExpectations(t)
}

func TestAnalyzeTokenDeepITMPut(t *testing.T) {
	a, catalog, ticks := newAnalyzer(t)
	put := testsupport.Option("T2", "CRUDEOIL24JAN5000PE", "CRUDEOIL", "MCX", 5000, expiry)
	catalog.On("GetInstrument", mock.Anything, "T2").Return(put, nil)

	ticks.On("RecentSamples", mock.Anything, "T2", mock.Anything, 50).
		Return(testsupport.Pair("T2", cycleTime, 2000, 1000, 4950), nil).Once()
	signal, err := a.AnalyzeToken(context.Background(), "T2")
	require.NoError(t, err)
	assert.Nil(t, signal, "IV 1.0 is under the floor")

	ticks.On("RecentSamples", mock.Anything, "T2", mock.Anything, 50).
		Return(testsupport.Pair("T2", cycleTime, 2000, 1000, 3000), nil).Once()
	signal, err = a.AnalyzeToken(context.Background(), "T2")
	require.NoError(t, err)
	require.NotNil(t, signal)

	assert.Equal(t, int64(-1000), signal.OIChange)
	assert.Equal(t, -50.0, signal.OIChangePercent)
	assert.InDelta(t, 40.0, signal.ImpliedVolatility, 1e-9)
	assert.Equal(t, models.StrengthStrong, signal.SignalStrength)
	assert.Equal(t, models.SignalBullish, signal.SignalType)
	assert.Equal(t, models.OptionTypePut, signal.OptionType)
	assert.Equal(t, "CRUDEOIL", signal.Underlying)
	assert.Equal(t, "MCX", signal.Exchange)
	assert.Equal(t, "5m", signal.AnalysisWindow)
	assert.Equal(t, cycleTime, signal.Timestamp)
	require.NotNil(t, signal.StrikePrice)
	assert.Equal(t, 5000.0, *signal.StrikePrice)
}

func TestAnalyzeTokenFuture(t *testing.T) {
	a, catalog, ticks := newAnalyzer(t)
	ticks.On("RecentSamples", mock.Anything, "F1", mock.Anything, 50).
		Return(testsupport.Pair("F1", cycleTime, 10000, 11500, 21500), nil)
	catalog.On("GetInstrument", mock.Anything, "F1").
		Return(testsupport.Future("F1", "NIFTY24JANFUT", "NIFTY", "NFO", expiry), nil)

	signal, err := a.AnalyzeToken(context.Background(), "F1")
	require.NoError(t, err)
	require.NotNil(t, signal)
	assert.Equal(t, models.OptionTypeFuture, signal.OptionType)
	assert.Equal(t, 15.0, signal.ImpliedVolatility)
	assert.Equal(t, models.StrengthMedium, signal.SignalStrength)
	assert.Equal(t, models.SignalBullish, signal.SignalType)
	assert.Nil(t, signal.StrikePrice)
}

func TestAnalysisWindowLabelIsFixed(t *testing.T) {
	a, catalog, ticks := newAnalyzer(t)
	a.Config.Engine.LookbackMinutes = 15
	ticks.On("RecentSamples", mock.Anything, "F1", cycleTime.Add(-15*time.Minute), 50).
		Return(testsupport.Pair("F1", cycleTime, 10000, 11500, 21500), nil)
	catalog.On("GetInstrument", mock.Anything, "F1").
		Return(testsupport.Future("F1", "NIFTY24JANFUT", "NIFTY", "NFO", expiry), nil)

	signal, err := a.AnalyzeToken(context.Background(), "F1")
	require.NoError(t, err)
	require.NotNil(t, signal)
	assert.Equal(t, "5m", signal.AnalysisWindow)
	ticks.AssertExpectations(t)
}

func TestAnalyzeTokenZeroPreviousOI(t *testing.T) {
	a, catalog, ticks := newAnalyzer(t)
	ticks.On("RecentSamples", mock.Anything, "F2", mock.Anything, 50).
		Return(testsupport.Pair("F2", cycleTime, 0, 5000, 100), nil)
	catalog.On("GetInstrument", mock.Anything, "F2").
		Return(testsupport.Future("F2", "GOLD24JANFUT", "GOLD", "MCX", expiry), nil)

	signal, err := a.AnalyzeToken(context.Background(), "F2")
	require.NoError(t, err)
	require.NotNil(t, signal)
	assert.Equal(t, 0.0, signal.OIChangePercent)
	assert.Equal(t, int64(5000), signal.OIChange)
	assert.Equal(t, models.StrengthWeak, signal.SignalStrength)
}

func TestAnalyzeTokenDataGaps(t *testing.T) {
	a, catalog, ticks := newAnalyzer(t)

	ticks.On("RecentSamples", mock.Anything, "ONE", mock.Anything, 50).
		Return(testsupport.Pair("ONE", cycleTime, 1, 2, 3)[:1], nil)
	_, err := a.AnalyzeToken(context.Background(), "ONE")
	assert.ErrorIs(t, err, helpers.ErrDataGap)

	ticks.On("RecentSamples", mock.Anything, "GHOST", mock.Anything, 50).
		Return(testsupport.Pair("GHOST", cycleTime, 1000, 2000, 3), nil)
	catalog.On("GetInstrument", mock.Anything, "GHOST").Return(nil, nil)
	_, err = a.AnalyzeToken(context.Background(), "GHOST")
	assert.ErrorIs(t, err, helpers.ErrDataGap)

	catalog.AssertNotCalled(t, "GetInstrument", mock.Anything, "ONE")
}

func TestAnalyzeTokenDependencyFailureIsTransient(t *testing.T) {
	a, _, ticks := newAnalyzer(t)
	ticks.On("RecentSamples", mock.Anything, "X", mock.Anything, 50).Return(nil, errors.New("connection refused"))

	_, err := a.AnalyzeToken(context.Background(), "X")
	require.Error(t, err)
	assert.Equal(t, helpers.KindTransient, helpers.Classify(err))
}

func TestAnalyzeTokenAppliesDependencyTimeout(t *testing.T) {
	a, _, ticks := newAnalyzer(t)
	ticks.On("RecentSamples", mock.Anything, "SLOW", mock.Anything, 50).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			_, ok := ctx.Deadline()
			assert.True(t, ok, "tick query must carry a deadline")
		}).
		Return(nil, context.DeadlineExceeded)

	_, err := a.AnalyzeToken(context.Background(), "SLOW")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, helpers.KindTransient, helpers.Classify(err))
}

func TestAnalyzeUniverseKeepsTokenOrderAndSkipsGaps(t *testing.T) {
	a, catalog, ticks := newAnalyzer(t)
	a.Config.Engine.AnalysisConcurrency = 3

	tokens := []string{"A", "GAP", "B", "LOWIV", "C"}
	for i, tok := range []string{"A", "B", "C"} {
		ticks.On("RecentSamples", mock.Anything, tok, mock.Anything, 50).
			Return(testsupport.Pair(tok, cycleTime, 10000, int64(12000+i), 21500), nil)
		catalog.On("GetInstrument", mock.Anything, tok).
			Return(testsupport.Future(tok, "NIFTY24JANFUT", "NIFTY", "NFO", expiry), nil)
	}
	ticks.On("RecentSamples", mock.Anything, "GAP", mock.Anything, 50).Return([]models.MMarketSample{}, nil)
	ticks.On("RecentSamples", mock.Anything, "LOWIV", mock.Anything, 50).
		Return(testsupport.Pair("LOWIV", cycleTime, 5000, 6200, 105), nil)
	catalog.On("GetInstrument", mock.Anything, "LOWIV").
		Return(testsupport.Option("LOWIV", "NIFTY24JAN100CE", "NIFTY", "NFO", 100, expiry), nil)

	signals, err := a.AnalyzeUniverse(context.Background(), tokens)
	require.NoError(t, err)
	require.Len(t, signals, 3)
	assert.Equal(t, "A", signals[0].Token)
	assert.Equal(t, "B", signals[1].Token)
	assert.Equal(t, "C", signals[2].Token)
}

func TestAnalyzeUniverseAbortsOnDependencyFailure(t *testing.T) {
	a, catalog, ticks := newAnalyzer(t)
	ticks.On("RecentSamples", mock.Anything, "A", mock.Anything, 50).
		Return(testsupport.Pair("A", cycleTime, 10000, 12000, 21500), nil).Maybe()
	catalog.On("GetInstrument", mock.Anything, "A").
		Return(testsupport.Future("A", "NIFTY24JANFUT", "NIFTY", "NFO", expiry), nil).Maybe()
	ticks.On("RecentSamples", mock.Anything, "DOWN", mock.Anything, 50).Return(nil, errors.New("store down"))

	signals, err := a.AnalyzeUniverse(context.Background(), []string{"A", "DOWN"})
	assert.Error(t, err)
	assert.Nil(t, signals)
}

func TestTickQueryRateLimit(t *testing.T) {
	cfg := config.Default().MConfig
	cfg.Engine.TickQueryRate = 1000
	a := NewOIAnalyzer(cfg, &testsupport.MockCatalog{}, &testsupport.MockTickStore{}, logger.NewNop("test"))
	require.NotNil(t, a.limiter)

	cfg = config.Default().MConfig
	a = NewOIAnalyzer(cfg, &testsupport.MockCatalog{}, &testsupport.MockTickStore{}, logger.NewNop("test"))
	assert.Nil(t, a.limiter)
}
