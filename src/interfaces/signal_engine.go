package interfaces

import (
	"context"

	"oi-signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// ISignalEngine is what the API and control surfaces need from the engine.
// -----------------------------------------------------------------------------

type ISignalEngine interface {
	Start(ctx context.Context)
	Stop()
	IsRunning() bool

	// -----------------------------------------------------------------------------

	Status() models.MEngineStatus
	CurrentSignals(limit int) []models.MOISignal
	MarketStatus() models.MMarketStatus

	// -----------------------------------------------------------------------------

	// LatestSnapshot is shown to a listener before the next cycle completes.
	LatestSnapshot() models.MSignalSnapshot
}
