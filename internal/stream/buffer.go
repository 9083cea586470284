// Package stream provides per-connection byte buffering for reassembling HTTP
// requests that arrive fragmented across packets, and the connection table
// that owns one buffer per TCP stream.
package stream

import (
	"time"
)

// DefaultBufferCap is the per-connection accumulation limit. A single replay
// request with headers fits well inside it; anything larger is not traffic
// the sensor cares about.
const DefaultBufferCap = 16 * 1024

// Buffer accumulates payload bytes for a single TCP stream until a complete
// HTTP request can be extracted from it.
type Buffer struct {
	data         []byte
	cap          int
	lastActivity time.Time
}

// NewBuffer creates an empty buffer with the given byte cap. A cap of zero or
// below falls back to DefaultBufferCap.
func NewBuffer(byteCap int) *Buffer {
	if byteCap <= 0 {
		byteCap = DefaultBufferCap
	}
	return &Buffer{
		cap:          byteCap,
		lastActivity: time.Now(),
	}
}

// Append concatenates payload onto the buffer and refreshes the activity
// stamp. Appends that would push the buffer past its cap are dropped whole,
// preserving the bytes already buffered.
func (b *Buffer) Append(payload []byte) {
	if len(b.data)+len(payload) > b.cap {
		return
	}
	b.data = append(b.data, payload...)
	b.lastActivity = time.Now()
}

// Clear empties the buffer and refreshes the activity stamp
func (b *Buffer) Clear() {
	b.data = b.data[:0]
	b.lastActivity = time.Now()
}

// Bytes returns the accumulated bytes. The slice aliases the buffer's
// internal storage and is invalidated by Append or Clear.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the number of accumulated bytes
func (b *Buffer) Len() int {
	return len(b.data)
}

// IsStale reports whether the time since the last activity exceeds timeout
func (b *Buffer) IsStale(timeout time.Duration) bool {
	return time.Since(b.lastActivity) > timeout
}
