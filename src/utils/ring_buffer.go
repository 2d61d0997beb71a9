package utils

import (
	"time"

	"oi-signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of one token's ticks.
// True ring buffer - no resizing allowed!
// -----------------------------------------------------------------------------

type RingBuffer struct {
	data     []models.MMarketSample
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultSamplesPerToken
	}

	return &RingBuffer{
		data:     make([]models.MMarketSample, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds a sample, overwriting the oldest one when full.
func (rb *RingBuffer) Append(sample models.MMarketSample) {
	rb.data[rb.index] = sample
	rb.index = (rb.index + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// Newest returns up to n samples stamped at or after since, newest first.
// Samples are assumed to arrive in timestamp order.
func (rb *RingBuffer) Newest(n int, since time.Time) []models.MMarketSample {
	if rb.size == 0 || n <= 0 {
		return []models.MMarketSample{}
	}

	result := make([]models.MMarketSample, 0, min(n, rb.size))
	for i := 1; i <= rb.size && len(result) < n; i++ {
		s := rb.data[(rb.index-i+rb.capacity)%rb.capacity]
		if s.Timestamp.Before(since) {
			break
		}
		result = append(result, s)
	}
	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all data in insertion order (oldest to newest)
func (rb *RingBuffer) GetAll() []models.MMarketSample {
	result := make([]models.MMarketSample, rb.size)

	start := 0
	if rb.size == rb.capacity {
		start = rb.index
	}
	for i := 0; i < rb.size; i++ {
		result[i] = rb.data[(start+i)%rb.capacity]
	}
	return result
}

// -----------------------------------------------------------------------------

// DropBefore discards samples older than cutoff and returns how many went.
func (rb *RingBuffer) DropBefore(cutoff time.Time) int {
	all := rb.GetAll()
	keep := all[:0]
	for _, s := range all {
		if !s.Timestamp.Before(cutoff) {
			keep = append(keep, s)
		}
	}
	dropped := len(all) - len(keep)
	if dropped == 0 {
		return 0
	}

	rb.Clear()
	for _, s := range keep {
		rb.Append(s)
	}
	return dropped
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	return rb.size
}

// Capacity returns buffer capacity (fixed)
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// IsFull returns whether buffer is full
func (rb *RingBuffer) IsFull() bool {
	return rb.size == rb.capacity
}

// Clear resets the buffer
func (rb *RingBuffer) Clear() {
	rb.index = 0
	rb.size = 0
}
