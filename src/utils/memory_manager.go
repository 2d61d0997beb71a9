package utils

import (
	"sync"
	"time"

	"oi-signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// MemoryManager keeps one ring buffer of ticks per token.
// -----------------------------------------------------------------------------

type MemoryManager struct {
	DataStreams   map[string]*RingBuffer
	MaxDataPoints int
	mu            sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMemoryManager(maxDataPoints int) *MemoryManager {
	return &MemoryManager{
		DataStreams:   make(map[string]*RingBuffer),
		MaxDataPoints: maxDataPoints,
	}
}

// -----------------------------------------------------------------------------

// AddDataPoint appends a tick to its token's buffer.
func (mm *MemoryManager) AddDataPoint(sample models.MMarketSample) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	buf, ok := mm.DataStreams[sample.Token]
	if !ok {
		buf = NewRingBuffer(mm.MaxDataPoints)
		mm.DataStreams[sample.Token] = buf
	}
	buf.Append(sample)
}

// -----------------------------------------------------------------------------

// Latest returns up to n ticks for token no older than since, newest first.
func (mm *MemoryManager) Latest(token string, n int, since time.Time) []models.MMarketSample {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	buf, ok := mm.DataStreams[token]
	if !ok {
		return []models.MMarketSample{}
	}
	return buf.Newest(n, since)
}

// -----------------------------------------------------------------------------

// Prune drops ticks older than cutoff from every buffer.
func (mm *MemoryManager) Prune(cutoff time.Time) int64 {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	var dropped int64
	for token, buf := range mm.DataStreams {
		dropped += int64(buf.DropBefore(cutoff))
		if buf.Size() == 0 {
			delete(mm.DataStreams, token)
		}
	}
	return dropped
}

// -----------------------------------------------------------------------------

// TokenCount returns how many tokens hold data.
func (mm *MemoryManager) TokenCount() int {
	mm.mu.RLock()
	defer mm.mu.RUnlock()
	return len(mm.DataStreams)
}
