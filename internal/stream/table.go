package stream

import (
	"time"

	"github.com/deadlock-api/deadlock-ingest/internal/packet"
)

const (
	// DefaultTableCap is the connection count past which stale entries are pruned
	DefaultTableCap = 1000

	// DefaultIdleTimeout is the inactivity window after which a stream is prunable
	DefaultIdleTimeout = 30 * time.Second
)

// Table owns one Buffer per TCP stream. It is not safe for concurrent use;
// each capture worker runs its own instance.
type Table struct {
	buffers     map[packet.StreamID]*Buffer
	bufferCap   int
	tableCap    int
	idleTimeout time.Duration
}

// NewTable creates a connection table. Non-positive arguments fall back to
// the package defaults.
func NewTable(bufferCap, tableCap int, idleTimeout time.Duration) *Table {
	if tableCap <= 0 {
		tableCap = DefaultTableCap
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Table{
		buffers:     make(map[packet.StreamID]*Buffer),
		bufferCap:   bufferCap,
		tableCap:    tableCap,
		idleTimeout: idleTimeout,
	}
}

// Get returns the buffer for a stream, creating it on first sight
func (t *Table) Get(id packet.StreamID) *Buffer {
	buf, ok := t.buffers[id]
	if !ok {
		buf = NewBuffer(t.bufferCap)
		t.buffers[id] = buf
	}
	return buf
}

// Len returns the number of tracked streams
func (t *Table) Len() int {
	return len(t.buffers)
}

// PruneIfOverCap drops stale streams once the table exceeds its size cap.
// Returns the number of streams removed.
func (t *Table) PruneIfOverCap() int {
	if len(t.buffers) <= t.tableCap {
		return 0
	}

	pruned := 0
	for id, buf := range t.buffers {
		if buf.IsStale(t.idleTimeout) {
			delete(t.buffers, id)
			pruned++
		}
	}
	return pruned
}
