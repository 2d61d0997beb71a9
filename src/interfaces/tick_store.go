package interfaces

import (
	"context"
	"time"

	"oi-signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// ITickStore serves recent ticks per token.
// -----------------------------------------------------------------------------

type ITickStore interface {

	// RecentSamples returns at most limit ticks for token stamped at or after
	// since, newest first.
	RecentSamples(ctx context.Context, token string, since time.Time, limit int) ([]models.MMarketSample, error)
}

// -----------------------------------------------------------------------------
// ITickWriter is the ingestion side of the tick store.
// -----------------------------------------------------------------------------

type ITickWriter interface {
	AppendSamples(ctx context.Context, samples []models.MMarketSample) error
	UpsertInstruments(ctx context.Context, instruments []models.MInstrument) error

	// PruneBefore removes ticks older than cutoff and reports how many went.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
