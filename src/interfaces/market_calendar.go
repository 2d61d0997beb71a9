package interfaces

import "oi-signal-engine/src/models"

// -----------------------------------------------------------------------------
// IMarketCalendar tells the engine which exchanges are trading right now.
// -----------------------------------------------------------------------------

type IMarketCalendar interface {

	// ActiveExchanges lists the open exchanges in configured order. Never fails.
	ActiveExchanges() []string

	// -----------------------------------------------------------------------------

	// DetailedStatus reports the calendar view for API callers. Never fails.
	DetailedStatus() models.MMarketStatus
}
