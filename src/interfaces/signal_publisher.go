package interfaces

import (
	"context"

	"oi-signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// ISignalPublisher pushes fresh signals to downstream consumers.
// -----------------------------------------------------------------------------

type ISignalPublisher interface {
	PublishSignals(ctx context.Context, signals []models.MOISignal) error
	PublishAnalytics(ctx context.Context, analytics []models.MOIAnalytics) error
	Close() error
}
