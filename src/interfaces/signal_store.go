package interfaces

import (
	"context"

	"oi-signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// ISignalStore is the durable home of generated signals and analytics.
// -----------------------------------------------------------------------------

type ISignalStore interface {

	// AppendSignal stores one signal.
	AppendSignal(ctx context.Context, signal models.MOISignal) error

	// -----------------------------------------------------------------------------

	// AppendAnalytics stores one per-underlying rollup.
	AppendAnalytics(ctx context.Context, analytics models.MOIAnalytics) error

	// -----------------------------------------------------------------------------

	// QuerySignals returns matching signals, newest first.
	QuerySignals(ctx context.Context, filter models.MSignalFilter) ([]models.MOISignal, error)

	// -----------------------------------------------------------------------------

	// QueryAnalytics returns rollups, newest first. An empty underlying matches all.
	QueryAnalytics(ctx context.Context, underlying string, limit int) ([]models.MOIAnalytics, error)
}

// -----------------------------------------------------------------------------
// IStorage bundles everything a storage backend provides.
// -----------------------------------------------------------------------------

type IStorage interface {
	IInstrumentCatalog
	ITickStore
	ITickWriter
	ISignalStore

	// Close the database connection
	Close() error
}
