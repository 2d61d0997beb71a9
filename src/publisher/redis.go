package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/models"

	"github.com/redis/go-redis/v9"
)

const analyticsKeyPrefix = "oi_analytics:"

// RedisPublisher fans signals out on a pub/sub channel, keeps a capped list of
// recent signals and caches the latest analytics per underlying.
type RedisPublisher struct {
	Config models.MRedisConfig
	Logger *logger.Logger

	rdb *redis.Client
	ttl time.Duration
}

// -----------------------------------------------------------------------------

// NewRedisPublisher does not dial; go-redis connects on first use.
func NewRedisPublisher(cfg *models.MConfig, log *logger.Logger) *RedisPublisher {
	rc := cfg.Publishers.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	log.Info("Redis publisher -> %s (channel %s)", rc.Addr, rc.Channel)
	return &RedisPublisher{
		Config: rc,
		Logger: log,
		rdb:    rdb,
		ttl:    AnalyticsTTL(cfg.Engine.AnalysisInterval()),
	}
}

// -----------------------------------------------------------------------------

// PublishSignals sends every signal in one pipeline.
func (p *RedisPublisher) PublishSignals(ctx context.Context, signals []models.MOISignal) error {
	if len(signals) == 0 {
		return nil
	}

	payloads := make([]any, 0, len(signals))
	for _, s := range signals {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode signal %s: %w", s.Token, err)
		}
		payloads = append(payloads, data)
	}

	_, err := p.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, data := range payloads {
			pipe.Publish(ctx, p.Config.Channel, data)
		}
		pipe.LPush(ctx, p.Config.RecentKey, payloads...)
		pipe.LTrim(ctx, p.Config.RecentKey, 0, int64(p.Config.RecentMax-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish signals: %w", err)
	}
	p.Logger.Debug("Published %d signal(s) to redis", len(signals))
	return nil
}

// PublishAnalytics caches each rollup under oi_analytics:<underlying>.
func (p *RedisPublisher) PublishAnalytics(ctx context.Context, analytics []models.MOIAnalytics) error {
	if len(analytics) == 0 {
		return nil
	}

	_, err := p.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, a := range analytics {
			data, err := json.Marshal(a)
			if err != nil {
				return fmt.Errorf("encode analytics %s: %w", a.Underlying, err)
			}
			pipe.Set(ctx, AnalyticsKey(a.Underlying), data, p.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish analytics: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

// -----------------------------------------------------------------------------

func AnalyticsKey(underlying string) string {
	return analyticsKeyPrefix + underlying
}

// AnalyticsTTL keeps a rollup alive for two analysis intervals.
func AnalyticsTTL(interval time.Duration) time.Duration {
	return 2 * interval
}
