package testsupport

import (
	"context"
	"sync"

	"oi-signal-engine/src/models"
)

// FakeEngine records lifecycle calls and serves a fixed signal cache.
type FakeEngine struct {
	mu        sync.Mutex
	running   bool
	Starts    int
	Stops     int
	LastLimit int
	Signals   []models.MOISignal
	Market    models.MMarketStatus
}

func (f *FakeEngine) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = true
	f.Starts++
}

func (f *FakeEngine) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	f.Stops++
}

func (f *FakeEngine) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *FakeEngine) Status() models.MEngineStatus {
	return models.MEngineStatus{
		IsRunning:          f.IsRunning(),
		ActiveExchanges:    f.Market.ActiveExchanges,
		CurrentSignalCount: len(f.Signals),
		AnalysisInterval:   "5m",
	}
}

func (f *FakeEngine) CurrentSignals(limit int) []models.MOISignal {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastLimit = limit
	n := len(f.Signals)
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]models.MOISignal{}, f.Signals[:n]...)
}

func (f *FakeEngine) MarketStatus() models.MMarketStatus {
	return f.Market
}

func (f *FakeEngine) LatestSnapshot() models.MSignalSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.MSignalSnapshot{
		Type:      models.SnapshotInitial,
		Signals:   append([]models.MOISignal{}, f.Signals...),
		Analytics: []models.MOIAnalytics{},
	}
}
