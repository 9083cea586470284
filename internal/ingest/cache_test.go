package ingest

import (
	"sync"
	"testing"

	"github.com/deadlock-api/deadlock-ingest/internal/salts"
)

func metaSalts(matchID uint64, salt uint32) *salts.Salts {
	return &salts.Salts{MatchID: matchID, ClusterID: 1, MetadataSalt: &salt}
}

func replaySalts(matchID uint64, salt uint32) *salts.Salts {
	return &salts.Salts{MatchID: matchID, ClusterID: 1, ReplaySalt: &salt}
}

func TestCacheTracksSaltKindsSeparately(t *testing.T) {
	cache := NewCache(0)

	if cache.IsIngested(42, true) || cache.IsIngested(42, false) {
		t.Fatal("fresh cache should report nothing ingested")
	}

	cache.MarkIngested(metaSalts(42, 7))
	if !cache.IsIngested(42, true) {
		t.Error("metadata kind should be marked for match 42")
	}
	if cache.IsIngested(42, false) {
		t.Error("replay kind should not be marked for match 42")
	}

	cache.MarkIngested(replaySalts(42, 9))
	if !cache.IsIngested(42, true) || !cache.IsIngested(42, false) {
		t.Error("both kinds should be marked after both ingestions")
	}
}

func TestCacheClearsPastCap(t *testing.T) {
	cache := NewCache(10)

	for i := uint64(1); i <= 10; i++ {
		cache.MarkIngested(metaSalts(i, 1))
	}
	if cache.Len() != 10 {
		t.Fatalf("expected 10 entries, got %d", cache.Len())
	}

	// The 11th distinct match pushes past the cap and wipes everything.
	cache.MarkIngested(metaSalts(11, 1))
	if cache.Len() != 0 {
		t.Errorf("expected cache wiped past cap, got %d entries", cache.Len())
	}
	if cache.IsIngested(1, true) {
		t.Error("entries should be forgotten after the wipe")
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	cache := NewCache(0)
	var wg sync.WaitGroup

	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := uint64(0); i < 200; i++ {
				cache.MarkIngested(metaSalts(i, 1))
				cache.IsIngested(i, true)
				cache.IsIngested(i, false)
			}
		}(w)
	}
	wg.Wait()

	if !cache.IsIngested(199, true) {
		t.Error("expected match 199 marked after concurrent writes")
	}
}
