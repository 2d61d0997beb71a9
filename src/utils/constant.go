package utils

import "math"

// -----------------------------------------------------------------------------

// A token ticks at most about once a second while an exchange is open; keep
// enough history to cover several analysis windows.
const (
	DefaultSamplesPerToken = 512
)

// -----------------------------------------------------------------------------

// CalculateMaxDataPoints sizes a per-token buffer for the given lookback at
// tickSeconds spacing, never below DefaultSamplesPerToken.
func CalculateMaxDataPoints(lookbackMinutes int, tickSeconds float64) int {
	if tickSeconds <= 0 {
		return DefaultSamplesPerToken
	}
	n := int(math.Ceil(float64(lookbackMinutes) * 60 / tickSeconds))
	return max(n, DefaultSamplesPerToken)
}
