package server

import (
	"net/http"
	"slices"
	"strconv"

	"oi-signal-engine/src/models"

	"github.com/gin-gonic/gin"
)

const (
	defaultCurrentLimit   = 10
	defaultSignalsLimit   = 50
	defaultAnalyticsLimit = 20
	maxQueryLimit         = 1000
)

// -----------------------------------------------------------------------------

// engineResponse mirrors the start/stop result shape: success, message and
// the status after the call when it succeeded.
func engineResponse(success bool, message string, status *models.MEngineStatus) gin.H {
	return gin.H{
		"success": success,
		"message": message,
		"status":  status,
	}
}

// -----------------------------------------------------------------------------

// queryLimit reads ?limit=, falling back to def. Writes a 400 and returns
// false when the value is not a positive integer.
func queryLimit(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return min(n, maxQueryLimit), true
}

// -----------------------------------------------------------------------------

// filterSnapshot keeps the signals and analytics of the given underlyings. An
// empty list keeps everything.
func filterSnapshot(snap models.MSignalSnapshot, underlyings []string, kind string) models.MSignalSnapshot {
	out := models.MSignalSnapshot{
		Type:      kind,
		CycleID:   snap.CycleID,
		Timestamp: snap.Timestamp,
		Signals:   []models.MOISignal{},
		Analytics: []models.MOIAnalytics{},
	}
	for _, sig := range snap.Signals {
		if len(underlyings) == 0 || slices.Contains(underlyings, sig.Underlying) {
			out.Signals = append(out.Signals, sig)
		}
	}
	for _, a := range snap.Analytics {
		if len(underlyings) == 0 || slices.Contains(underlyings, a.Underlying) {
			out.Analytics = append(out.Analytics, a)
		}
	}
	return out
}
