package interfaces

import "oi-signal-engine/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger shares engine output with live listeners (websocket push).
// -----------------------------------------------------------------------------

type IDataExchanger interface {

	// Broadcast pushes a cycle snapshot to every listener and keeps it as the
	// latest state for new connections. Must not block the caller.
	Broadcast(snapshot models.MSignalSnapshot)
}
