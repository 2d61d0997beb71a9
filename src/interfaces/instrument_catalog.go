package interfaces

import (
	"context"
	"time"

	"oi-signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// IInstrumentCatalog resolves tokens to contract metadata. Read-only for the engine.
// -----------------------------------------------------------------------------

type IInstrumentCatalog interface {

	// GetInstrument returns nil, nil when the token is unknown.
	GetInstrument(ctx context.Context, token string) (*models.MInstrument, error)

	// -----------------------------------------------------------------------------

	// ListStreamingUniverse selects the futures and nearest-strike options the
	// engine analyses for the given underlyings, as of the given day.
	ListStreamingUniverse(ctx context.Context, underlyings []string, asOf time.Time) (models.MStreamingUniverse, error)
}
