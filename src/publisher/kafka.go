package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/models"

	kafka "github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes signals keyed by token and analytics keyed by
// underlying, one writer per topic.
type KafkaPublisher struct {
	Logger *logger.Logger

	signals   messageWriter
	analytics messageWriter
}

// -----------------------------------------------------------------------------

func NewKafkaPublisher(cfg *models.MConfig, log *logger.Logger) (*KafkaPublisher, error) {
	kc := cfg.Publishers.Kafka
	if len(kc.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}

	writer := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:     kafka.TCP(kc.Brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		}
	}
	log.Info("Kafka publisher -> %v (topics %s, %s)", kc.Brokers, kc.SignalsTopic, kc.AnalyticsTopic)
	return &KafkaPublisher{
		Logger:    log,
		signals:   writer(kc.SignalsTopic),
		analytics: writer(kc.AnalyticsTopic),
	}, nil
}

// -----------------------------------------------------------------------------

func (p *KafkaPublisher) PublishSignals(ctx context.Context, signals []models.MOISignal) error {
	if len(signals) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(signals))
	for _, s := range signals {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode signal %s: %w", s.Token, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(s.Token), Value: data})
	}
	if err := p.signals.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write signals: %w", err)
	}
	p.Logger.Debug("Wrote %d signal(s) to kafka", len(msgs))
	return nil
}

func (p *KafkaPublisher) PublishAnalytics(ctx context.Context, analytics []models.MOIAnalytics) error {
	if len(analytics) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(analytics))
	for _, a := range analytics {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("encode analytics %s: %w", a.Underlying, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(a.Underlying), Value: data})
	}
	if err := p.analytics.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write analytics: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return errors.Join(p.signals.Close(), p.analytics.Close())
}
