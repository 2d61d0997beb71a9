package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"oi-signal-engine/src/config"
	"oi-signal-engine/src/helpers"
	"oi-signal-engine/src/interfaces"
	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/models"
	"oi-signal-engine/src/testsupport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLite(t *testing.T) *SQLStore {
	t.Helper()
	cfg := config.Default().MConfig
	cfg.Storage.DBPath = ":memory:"
	s, err := NewSQLiteStore(cfg, logger.NewNop("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newMemory(t *testing.T) *MemoryStore {
	t.Helper()
	return NewMemoryStore(config.Default().MConfig, logger.NewNop("test"))
}

// backends runs fn against every storage implementation.
func backends(t *testing.T, fn func(t *testing.T, s interfaces.IStorage)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLite(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, newMemory(t)) })
}

// -----------------------------------------------------------------------------

func TestInstrumentCatalog(t *testing.T) {
	backends(t, func(t *testing.T, s interfaces.IStorage) {
		ctx := context.Background()
		require.NoError(t, s.UpsertInstruments(ctx, catalog()))

		inst, err := s.GetInstrument(ctx, "CE2")
		require.NoError(t, err)
		require.NotNil(t, inst)
		assert.Equal(t, "NIFTY24JAN21200CE", inst.Symbol)
		assert.Equal(t, "NIFTY", inst.Name)
		assert.Equal(t, models.OptionTypeCall, inst.OptionType())
		require.NotNil(t, inst.Strike)
		assert.Equal(t, 21200.0, *inst.Strike)
		require.NotNil(t, inst.Expiry)
		assert.True(t, janExp.Equal(*inst.Expiry))

		fut, err := s.GetInstrument(ctx, "FUT-NOEXP")
		require.NoError(t, err)
		require.NotNil(t, fut)
		assert.Nil(t, fut.Strike)
		assert.Nil(t, fut.Expiry)

		missing, err := s.GetInstrument(ctx, "NOPE")
		require.NoError(t, err)
		assert.Nil(t, missing)

		// upsert replaces
		renamed := *testsupport.Future("FUT-A", "NIFTY24JANFUT2", "NIFTY", "NFO", janExp)
		require.NoError(t, s.UpsertInstruments(ctx, []models.MInstrument{renamed}))
		inst, err = s.GetInstrument(ctx, "FUT-A")
		require.NoError(t, err)
		assert.Equal(t, "NIFTY24JANFUT2", inst.Symbol)
	})
}

func TestListStreamingUniverse(t *testing.T) {
	backends(t, func(t *testing.T, s interfaces.IStorage) {
		ctx := context.Background()
		require.NoError(t, s.UpsertInstruments(ctx, catalog()))

		u, err := s.ListStreamingUniverse(ctx, []string{"NIFTY", "BANKNIFTY"}, today)
		require.NoError(t, err)
		assert.Equal(t, []string{"FUT-T", "FUT-A", "FUT-B"}, u.Futures)
		assert.Equal(t, []string{"CE0", "CE1", "CE2", "CE3", "CE4"}, u.OptionsCE)
		assert.Equal(t, []string{"PE0", "PE1", "PE2", "PE3", "PE4"}, u.OptionsPE)
	})
}

func TestTickStore(t *testing.T) {
	backends(t, func(t *testing.T, s interfaces.IStorage) {
		ctx := context.Background()
		base := time.Date(2024, time.January, 3, 5, 30, 0, 0, time.UTC)

		var samples []models.MMarketSample
		for i := 0; i < 10; i++ {
			samples = append(samples, models.MMarketSample{
				Token:        "T1",
				Timestamp:    base.Add(time.Duration(i) * time.Minute),
				LastPrice:    100 + float64(i),
				OpenInterest: 1000 * int64(i+1),
				Exchange:     "NFO",
			})
		}
		samples = append(samples, models.MMarketSample{Token: "T2", Timestamp: base, OpenInterest: 7})
		require.NoError(t, s.AppendSamples(ctx, samples))

		got, err := s.RecentSamples(ctx, "T1", base.Add(5*time.Minute), 50)
		require.NoError(t, err)
		require.Len(t, got, 5)
		assert.Equal(t, int64(10000), got[0].OpenInterest, "newest first")
		assert.Equal(t, int64(6000), got[4].OpenInterest)
		assert.True(t, base.Add(9*time.Minute).Equal(got[0].Timestamp))

		got, err = s.RecentSamples(ctx, "T1", base, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, int64(9000), got[1].OpenInterest)

		got, err = s.RecentSamples(ctx, "NONE", base, 50)
		require.NoError(t, err)
		assert.Empty(t, got)

		pruned, err := s.PruneBefore(ctx, base.Add(3*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(4), pruned, "three T1 ticks and the T2 tick")

		got, err = s.RecentSamples(ctx, "T1", base, 50)
		require.NoError(t, err)
		assert.Len(t, got, 7)
	})
}

func TestSignalStore(t *testing.T) {
	backends(t, func(t *testing.T, s interfaces.IStorage) {
		ctx := context.Background()
		base := time.Date(2024, time.January, 3, 5, 30, 0, 0, time.UTC)

		strike := 5000.0
		put := testsupport.Signal("T2", "CRUDEOIL", models.OptionTypePut, -1000, 40, models.StrengthStrong, models.SignalBullish)
		put.Exchange = "MCX"
		put.StrikePrice = &strike
		put.Timestamp = base
		put.CycleID = "c1"

		call := testsupport.Signal("T3", "NIFTY", models.OptionTypeCall, 1500, 20, models.StrengthMedium, models.SignalBullish)
		call.Timestamp = base.Add(5 * time.Minute)
		call.CycleID = "c2"

		sameTime := testsupport.Signal("T4", "NIFTY", models.OptionTypeCall, 2500, 20, models.StrengthStrong, models.SignalBullish)
		sameTime.Timestamp = base.Add(5 * time.Minute)
		sameTime.CycleID = "c2"

		for _, sig := range []models.MOISignal{put, call, sameTime} {
			require.NoError(t, s.AppendSignal(ctx, sig))
		}

		all, err := s.QuerySignals(ctx, models.MSignalFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"T4", "T3", "T2"}, []string{all[0].Token, all[1].Token, all[2].Token})
		assert.NotZero(t, all[0].ID)

		got := all[2]
		assert.Equal(t, "c1", got.CycleID)
		assert.Equal(t, int64(-1000), got.OIChange)
		assert.Equal(t, 40.0, got.ImpliedVolatility)
		require.NotNil(t, got.StrikePrice)
		assert.Equal(t, 5000.0, *got.StrikePrice)
		assert.True(t, base.Equal(got.Timestamp))
		assert.Nil(t, all[0].StrikePrice)

		strong, err := s.QuerySignals(ctx, models.MSignalFilter{Strength: models.StrengthStrong})
		require.NoError(t, err)
		assert.Len(t, strong, 2)

		mcx, err := s.QuerySignals(ctx, models.MSignalFilter{Exchange: "MCX", Underlying: "CRUDEOIL"})
		require.NoError(t, err)
		require.Len(t, mcx, 1)
		assert.Equal(t, "T2", mcx[0].Token)

		recent, err := s.QuerySignals(ctx, models.MSignalFilter{Since: base.Add(time.Minute), Limit: 1})
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, "T4", recent[0].Token)

		none, err := s.QuerySignals(ctx, models.MSignalFilter{Underlying: "GOLD"})
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})
}

func TestAnalyticsStore(t *testing.T) {
	backends(t, func(t *testing.T, s interfaces.IStorage) {
		ctx := context.Background()
		base := time.Date(2024, time.January, 3, 5, 30, 0, 0, time.UTC)

		for i, u := range []string{"NIFTY", "CRUDEOIL", "NIFTY"} {
			require.NoError(t, s.AppendAnalytics(ctx, models.MOIAnalytics{
				CycleID:         "c",
				Timestamp:       base.Add(time.Duration(i) * time.Minute),
				Underlying:      u,
				PutOIChange:     int64(i),
				PCROI:           0.5,
				MarketSentiment: models.SignalBullish,
				SentimentScore:  1,
				SignalCount:     i + 1,
				SessionType:     models.SessionRegular,
			}))
		}

		nifty, err := s.QueryAnalytics(ctx, "NIFTY", 0)
		require.NoError(t, err)
		require.Len(t, nifty, 2)
		assert.Equal(t, 3, nifty[0].SignalCount)
		assert.Equal(t, 0.5, nifty[0].PCROI)

		all, err := s.QueryAnalytics(ctx, "", 2)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "NIFTY", all[0].Underlying)
		assert.Equal(t, "CRUDEOIL", all[1].Underlying)
	})
}

func TestSchemaIsCreatedLazily(t *testing.T) {
	s := newSQLite(t)
	assert.False(t, s.migrated.Load())

	_, err := s.GetInstrument(context.Background(), "X")
	require.NoError(t, err)
	assert.True(t, s.migrated.Load())
}

func TestNewStorage(t *testing.T) {
	cfg := config.Default().MConfig
	cfg.Storage.DBType = "memory"
	st, err := NewStorage(cfg, logger.NewNop("test"))
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, st)

	cfg.Storage.DBType = "oracle"
	_, err = NewStorage(cfg, logger.NewNop("test"))
	require.Error(t, err)
	assert.Equal(t, helpers.KindConfiguration, helpers.Classify(err))
}

func TestUnopenableSQLiteIsConfigurationError(t *testing.T) {
	cfg := config.Default().MConfig
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "missing", "oi.db")
	s, err := NewSQLiteStore(cfg, logger.NewNop("test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.ListStreamingUniverse(context.Background(), []string{"NIFTY"}, time.Now())
	require.Error(t, err)
	assert.Equal(t, helpers.KindConfiguration, helpers.Classify(err))
	assert.False(t, s.migrated.Load())
}
