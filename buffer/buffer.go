// Package buffer implements a bounded staging area for incoming stream bytes.
//
// The buffer is advisory: it smooths short network interruptions in front of
// the audio backend and feeds the TUI fill gauge. It has no timeshift
// semantics. Reaching either ceiling silently drops the oldest data.
package buffer

import (
	"sync"
	"time"
)

// chunk is one appended write with its arrival time, used for the duration ceiling.
type chunk struct {
	data []byte
	at   time.Time
}

// Buffer is a ring of byte chunks bounded by a byte ceiling and a duration
// ceiling. Appends never block beyond the mutex hold and never fail: a full
// buffer evicts the oldest chunks to make room.
type Buffer struct {
	mu       sync.Mutex
	chunks   []chunk
	size     int
	maxBytes int
	maxAge   time.Duration

	now func() time.Time // injectable clock
}

// New creates a buffer with the given ceilings. Non-positive maxBytes disables
// the byte ceiling; non-positive maxAge disables the duration ceiling.
func New(maxBytes int, maxAge time.Duration) *Buffer {
	return &Buffer{
		maxBytes: maxBytes,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Append stages a copy of data. Oldest chunks are evicted as needed so the
// buffer never exceeds its ceilings after the write. A single write larger
// than the byte ceiling keeps only its newest ceiling-sized tail.
func (b *Buffer) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	if b.maxBytes > 0 && len(data) > b.maxBytes {
		data = data[len(data)-b.maxBytes:]
	}

	owned := make([]byte, len(data))
	copy(owned, data)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = append(b.chunks, chunk{data: owned, at: b.now()})
	b.size += len(owned)
	b.evictLocked()
}

// FillLevel returns the staged byte count and, when a byte ceiling is set,
// the fill percentage (0-100).
func (b *Buffer) FillLevel() (bytes int, percent int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxBytes > 0 {
		percent = b.size * 100 / b.maxBytes
	}
	return b.size, percent
}

// Flush discards all staged data.
func (b *Buffer) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = nil
	b.size = 0
}

// evictLocked drops the oldest chunks until both ceilings hold. The newest
// chunk is never dropped; Append pre-trims it to the byte ceiling.
func (b *Buffer) evictLocked() {
	cutoff := time.Time{}
	if b.maxAge > 0 {
		cutoff = b.now().Add(-b.maxAge)
	}

	drop := 0
	for i, c := range b.chunks {
		last := i == len(b.chunks)-1

		overBytes := b.maxBytes > 0 && b.size > b.maxBytes
		tooOld := !cutoff.IsZero() && c.at.Before(cutoff)

		if last || (!overBytes && !tooOld) {
			break
		}
		b.size -= len(c.data)
		drop = i + 1
	}

	if drop > 0 {
		b.chunks = b.chunks[drop:]
	}
}
