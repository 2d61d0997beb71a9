package models

// -----------------------------------------------------------------------------
// Snapshot pushed to websocket clients after each cycle
// -----------------------------------------------------------------------------

const (
	SnapshotInitial = "INITIAL"
	SnapshotUpdate  = "UPDATE"
)

type MSignalSnapshot struct {
	Type      string         `json:"type"` // "INITIAL" or "UPDATE"
	CycleID   string         `json:"cycle_id"`
	Timestamp int64          `json:"timestamp"`
	Signals   []MOISignal    `json:"signals"`
	Analytics []MOIAnalytics `json:"analytics"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command     string   `json:"command"`
	Underlyings []string `json:"underlyings"`
}
