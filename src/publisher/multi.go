package publisher

import (
	"context"
	"errors"

	"oi-signal-engine/src/interfaces"
	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/models"
)

// MultiPublisher forwards to every configured publisher. One failing target
// does not stop the others; the errors come back joined.
type MultiPublisher struct {
	publishers []interfaces.ISignalPublisher
}

func NewMultiPublisher(publishers ...interfaces.ISignalPublisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

func (m *MultiPublisher) PublishSignals(ctx context.Context, signals []models.MOISignal) error {
	var errs []error
	for _, p := range m.publishers {
		errs = append(errs, p.PublishSignals(ctx, signals))
	}
	return errors.Join(errs...)
}

func (m *MultiPublisher) PublishAnalytics(ctx context.Context, analytics []models.MOIAnalytics) error {
	var errs []error
	for _, p := range m.publishers {
		errs = append(errs, p.PublishAnalytics(ctx, analytics))
	}
	return errors.Join(errs...)
}

func (m *MultiPublisher) Close() error {
	var errs []error
	for _, p := range m.publishers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

func (m *MultiPublisher) Len() int {
	return len(m.publishers)
}

// -----------------------------------------------------------------------------

// NewPublisher builds the enabled publishers. It returns nil when none is
// enabled, so callers can skip publication entirely.
func NewPublisher(cfg *models.MConfig, log *logger.Logger) (interfaces.ISignalPublisher, error) {
	var publishers []interfaces.ISignalPublisher

	if cfg.Publishers.Redis.Enabled {
		publishers = append(publishers, NewRedisPublisher(cfg, log.Named("redis")))
	}
	if cfg.Publishers.Kafka.Enabled {
		kp, err := NewKafkaPublisher(cfg, log.Named("kafka"))
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, kp)
	}

	if len(publishers) == 0 {
		return nil, nil
	}
	return NewMultiPublisher(publishers...), nil
}
