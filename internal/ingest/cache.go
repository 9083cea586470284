// Package ingest delivers extracted salt records to the remote collector,
// deduplicating per (match, salt kind) so each pair is submitted at most once
// per process lifetime.
package ingest

import (
	"sync"

	"github.com/deadlock-api/deadlock-ingest/internal/salts"
)

// DefaultCacheCap is the entry count past which the cache resets
const DefaultCacheCap = 10_000

type cacheEntry struct {
	hasMetadata bool
	hasReplay   bool
}

// Cache tracks which salt kinds have been successfully ingested per match.
// It is shared between the capture worker and the Steam cache watcher, so
// all access goes through one RWMutex; the map is small and bounded, keeping
// lock hold times trivially short.
//
// Growth is bounded by wiping the whole cache once it exceeds its cap. That
// re-opens earlier matches for re-ingestion, which the collector tolerates.
type Cache struct {
	mu         sync.RWMutex
	entries    map[uint64]cacheEntry
	maxEntries int
}

// NewCache creates a cache with the given entry cap. Non-positive caps fall
// back to DefaultCacheCap.
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheCap
	}
	return &Cache{
		entries:    make(map[uint64]cacheEntry),
		maxEntries: maxEntries,
	}
}

// IsIngested reports whether the given salt kind has already been ingested
// for this match.
func (c *Cache) IsIngested(matchID uint64, metadata bool) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[matchID]
	if !ok {
		return false
	}
	if metadata {
		return entry.hasMetadata
	}
	return entry.hasReplay
}

// MarkIngested records a successful ingestion. Call only after the collector
// accepted the record.
func (c *Cache) MarkIngested(s *salts.Salts) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := c.entries[s.MatchID]
	if s.MetadataSalt != nil {
		entry.hasMetadata = true
	}
	if s.ReplaySalt != nil {
		entry.hasReplay = true
	}
	c.entries[s.MatchID] = entry

	if len(c.entries) > c.maxEntries {
		c.entries = make(map[uint64]cacheEntry)
	}
}

// Len returns the number of tracked matches
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
