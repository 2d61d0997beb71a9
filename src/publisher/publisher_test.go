package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"oi-signal-engine/src/config"
	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/models"
	"oi-signal-engine/src/testsupport"

	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleSignals() []models.MOISignal {
	return []models.MOISignal{
		testsupport.Signal("T1", "NIFTY", models.OptionTypeCall, 2000, 30, models.StrengthStrong, models.SignalBullish),
		testsupport.Signal("T2", "CRUDEOIL", models.OptionTypePut, -1000, 40, models.StrengthStrong, models.SignalBullish),
	}
}

// -----------------------------------------------------------------------------

func TestKafkaPublisherKeysMessages(t *testing.T) {
	sw, aw := &fakeWriter{}, &fakeWriter{}
	p := &KafkaPublisher{Logger: logger.NewNop("test"), signals: sw, analytics: aw}
	ctx := context.Background()

	require.NoError(t, p.PublishSignals(ctx, sampleSignals()))
	require.Len(t, sw.msgs, 2)
	assert.Equal(t, "T1", string(sw.msgs[0].Key))
	assert.Equal(t, "T2", string(sw.msgs[1].Key))

	var decoded models.MOISignal
	require.NoError(t, json.Unmarshal(sw.msgs[1].Value, &decoded))
	assert.Equal(t, "CRUDEOIL", decoded.Underlying)
	assert.Equal(t, int64(-1000), decoded.OIChange)

	require.NoError(t, p.PublishAnalytics(ctx, []models.MOIAnalytics{{Underlying: "NIFTY", SignalCount: 1}}))
	require.Len(t, aw.msgs, 1)
	assert.Equal(t, "NIFTY", string(aw.msgs[0].Key))

	require.NoError(t, p.PublishSignals(ctx, nil))
	assert.Len(t, sw.msgs, 2, "empty batches are not written")

	require.NoError(t, p.Close())
	assert.True(t, sw.closed)
	assert.True(t, aw.closed)
}

func TestKafkaPublisherWrapsWriteErrors(t *testing.T) {
	p := &KafkaPublisher{Logger: logger.NewNop("test"), signals: &fakeWriter{err: errors.New("leader not available")}, analytics: &fakeWriter{}}
	err := p.PublishSignals(context.Background(), sampleSignals())
	assert.ErrorContains(t, err, "leader not available")
}

func TestNewKafkaPublisherNeedsBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(config.Default().MConfig, logger.NewNop("test"))
	assert.Error(t, err)
}

func TestMultiPublisherJoinsErrors(t *testing.T) {
	ok := &testsupport.MockPublisher{}
	bad := &testsupport.MockPublisher{}
	signals := sampleSignals()
	ctx := context.Background()

	ok.On("PublishSignals", ctx, signals).Return(nil)
	bad.On("PublishSignals", ctx, signals).Return(errors.New("redis down"))
	ok.On("Close").Return(nil)
	bad.On("Close").Return(nil)

	m := NewMultiPublisher(bad, ok)
	err := m.PublishSignals(ctx, signals)
	assert.ErrorContains(t, err, "redis down")
	ok.AssertCalled(t, "PublishSignals", ctx, signals)

	ok.On("PublishAnalytics", mock.Anything, mock.Anything).Return(nil)
	bad.On("PublishAnalytics", mock.Anything, mock.Anything).Return(nil)
	assert.NoError(t, m.PublishAnalytics(ctx, nil))

	assert.NoError(t, m.Close())
}

func TestNewPublisher(t *testing.T) {
	cfg := config.Default().MConfig
	p, err := NewPublisher(cfg, logger.NewNop("test"))
	require.NoError(t, err)
	assert.Nil(t, p)

	cfg.Publishers.Redis.Enabled = true
	cfg.Publishers.Redis.Addr = "localhost:6379"
	cfg.Publishers.Kafka.Enabled = true
	cfg.Publishers.Kafka.Brokers = []string{"localhost:9092"}
	p, err = NewPublisher(cfg, logger.NewNop("test"))
	require.NoError(t, err)
	require.IsType(t, &MultiPublisher{}, p)
	assert.Equal(t, 2, p.(*MultiPublisher).Len())
	_ = p.Close()
}

func TestRedisAnalyticsKeyAndTTL(t *testing.T) {
	assert.Equal(t, "oi_analytics:NIFTY", AnalyticsKey("NIFTY"))
	assert.Equal(t, 10*time.Minute, AnalyticsTTL(5*time.Minute))

	p := NewRedisPublisher(config.Default().MConfig, logger.NewNop("test"))
	assert.Equal(t, 10*time.Minute, p.ttl)
	assert.Equal(t, "oi_signals", p.Config.Channel)
	assert.NoError(t, p.PublishSignals(context.Background(), nil))
	_ = p.Close()
}
