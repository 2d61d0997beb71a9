package testsupport

import (
	"context"
	"sync"
	"time"

	"oi-signal-engine/src/models"

	"github.com/stretchr/testify/mock"
)

// MockCatalog is a testify mock of interfaces.IInstrumentCatalog.
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) GetInstrument(ctx context.Context, token string) (*models.MInstrument, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MInstrument), args.Error(1)
}

func (m *MockCatalog) ListStreamingUniverse(ctx context.Context, underlyings []string, asOf time.Time) (models.MStreamingUniverse, error) {
	args := m.Called(ctx, underlyings, asOf)
	return args.Get(0).(models.MStreamingUniverse), args.Error(1)
}

// -----------------------------------------------------------------------------

// MockTickStore is a testify mock of interfaces.ITickStore.
type MockTickStore struct {
	mock.Mock
}

func (m *MockTickStore) RecentSamples(ctx context.Context, token string, since time.Time, limit int) ([]models.MMarketSample, error) {
	args := m.Called(ctx, token, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MMarketSample), args.Error(1)
}

// -----------------------------------------------------------------------------

// MockSignalStore is a testify mock of interfaces.ISignalStore.
type MockSignalStore struct {
	mock.Mock
}

func (m *MockSignalStore) AppendSignal(ctx context.Context, signal models.MOISignal) error {
	return m.Called(ctx, signal).Error(0)
}

func (m *MockSignalStore) AppendAnalytics(ctx context.Context, analytics models.MOIAnalytics) error {
	return m.Called(ctx, analytics).Error(0)
}

func (m *MockSignalStore) QuerySignals(ctx context.Context, filter models.MSignalFilter) ([]models.MOISignal, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MOISignal), args.Error(1)
}

func (m *MockSignalStore) QueryAnalytics(ctx context.Context, underlying string, limit int) ([]models.MOIAnalytics, error) {
	args := m.Called(ctx, underlying, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.MOIAnalytics), args.Error(1)
}

// -----------------------------------------------------------------------------

// MockPublisher is a testify mock of interfaces.ISignalPublisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishSignals(ctx context.Context, signals []models.MOISignal) error {
	return m.Called(ctx, signals).Error(0)
}

func (m *MockPublisher) PublishAnalytics(ctx context.Context, analytics []models.MOIAnalytics) error {
	return m.Called(ctx, analytics).Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

// -----------------------------------------------------------------------------

// MockCalendar is a testify mock of interfaces.IMarketCalendar.
type MockCalendar struct {
	mock.Mock
}

func (m *MockCalendar) ActiveExchanges() []string {
	return m.Called().Get(0).([]string)
}

func (m *MockCalendar) DetailedStatus() models.MMarketStatus {
	return m.Called().Get(0).(models.MMarketStatus)
}

// -----------------------------------------------------------------------------

// RecordingExchanger keeps every broadcast snapshot.
type RecordingExchanger struct {
	mu        sync.Mutex
	Snapshots []models.MSignalSnapshot
}

func (r *RecordingExchanger) Broadcast(snapshot models.MSignalSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Snapshots = append(r.Snapshots, snapshot)
}

func (r *RecordingExchanger) Last() (models.MSignalSnapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Snapshots) == 0 {
		return models.MSignalSnapshot{}, false
	}
	return r.Snapshots[len(r.Snapshots)-1], true
}
