package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/models"
	"oi-signal-engine/src/utils"
)

// MemoryStore keeps everything in process. Ticks live in one ring buffer per
// token, so old samples fall off once a buffer is full.
type MemoryStore struct {
	Config *models.MConfig
	Logger *logger.Logger

	ticks *utils.MemoryManager

	mu          sync.RWMutex
	instruments map[string]models.MInstrument
	signals     []models.MOISignal
	analytics   []models.MOIAnalytics
	nextID      int64
}

// -----------------------------------------------------------------------------

func NewMemoryStore(cfg *models.MConfig, log *logger.Logger) *MemoryStore {
	maxPoints := utils.CalculateMaxDataPoints(cfg.Engine.LookbackMinutes, 1)
	log.Info("Memory store (%d ticks per token)", maxPoints)
	return &MemoryStore{
		Config:      cfg,
		Logger:      log,
		ticks:       utils.NewMemoryManager(maxPoints),
		instruments: make(map[string]models.MInstrument),
	}
}

// -----------------------------------------------------------------------------
// Instrument catalog
// -----------------------------------------------------------------------------

func (m *MemoryStore) GetInstrument(ctx context.Context, token string) (*models.MInstrument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instruments[token]
	if !ok {
		return nil, nil
	}
	return &inst, nil
}

func (m *MemoryStore) ListStreamingUniverse(ctx context.Context, underlyings []string, asOf time.Time) (models.MStreamingUniverse, error) {
	m.mu.RLock()
	all := make([]models.MInstrument, 0, len(m.instruments))
	for _, inst := range m.instruments {
		all = append(all, inst)
	}
	m.mu.RUnlock()

	eng := m.Config.Engine
	return SelectStreamingUniverse(all, underlyings, asOf, eng.MaxFutures, eng.MaxOptionsPerSide), nil
}

func (m *MemoryStore) UpsertInstruments(ctx context.Context, instruments []models.MInstrument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inst := range instruments {
		m.instruments[inst.Token] = inst
	}
	return nil
}

// -----------------------------------------------------------------------------
// Tick store
// -----------------------------------------------------------------------------

func (m *MemoryStore) RecentSamples(ctx context.Context, token string, since time.Time, limit int) ([]models.MMarketSample, error) {
	return m.ticks.Latest(token, limit, since), nil
}

// AppendSamples expects each token's ticks in timestamp order.
func (m *MemoryStore) AppendSamples(ctx context.Context, samples []models.MMarketSample) error {
	for _, s := range samples {
		m.ticks.AddDataPoint(s)
	}
	return nil
}

func (m *MemoryStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	dropped := m.ticks.Prune(cutoff)
	m.Logger.Debug("Pruned %d tick(s); %d token(s) still buffered", dropped, m.ticks.TokenCount())
	return dropped, nil
}

// -----------------------------------------------------------------------------
// Signal store
// -----------------------------------------------------------------------------

func (m *MemoryStore) AppendSignal(ctx context.Context, signal models.MOISignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	signal.ID = m.nextID
	m.signals = append(m.signals, signal)
	return nil
}

func (m *MemoryStore) AppendAnalytics(ctx context.Context, analytics models.MOIAnalytics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	analytics.ID = m.nextID
	m.analytics = append(m.analytics, analytics)
	return nil
}

func (m *MemoryStore) QuerySignals(ctx context.Context, filter models.MSignalFilter) ([]models.MOISignal, error) {
	m.mu.RLock()
	var out []models.MOISignal
	for _, s := range m.signals {
		switch {
		case filter.Strength != "" && s.SignalStrength != filter.Strength:
		case filter.Underlying != "" && s.Underlying != filter.Underlying:
		case filter.Exchange != "" && s.Exchange != filter.Exchange:
		case !filter.Since.IsZero() && s.Timestamp.Before(filter.Since):
		default:
			out = append(out, s)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return truncate(out, limitOr(filter.Limit, 50)), nil
}

func (m *MemoryStore) QueryAnalytics(ctx context.Context, underlying string, limit int) ([]models.MOIAnalytics, error) {
	m.mu.RLock()
	var out []models.MOIAnalytics
	for _, a := range m.analytics {
		if underlying == "" || a.Underlying == underlying {
			out = append(out, a)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return truncate(out, limitOr(limit, 20)), nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func truncate[T any](items []T, n int) []T {
	if items == nil {
		return []T{}
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}
