// Package journal provides a persistent audit trail of successfully ingested
// salts using BadgerDB.
//
// BadgerDB is an embedded, pure-Go key-value store, so the journal needs no
// external service and survives sensor restarts. Records are stored under
// prefixed keys:
//
//	salt:<match_id>:<kind> → JSON-serialized Entry
//
// The journal is advisory: it backs the status API's recent-ingestion view
// and local debugging. Failures to record are logged and swallowed, never
// allowed to disturb the capture path.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/deadlock-api/deadlock-ingest/internal/logger"
	"github.com/deadlock-api/deadlock-ingest/internal/salts"
)

const saltPrefix = "salt:"

// Entry is one journaled ingestion
type Entry struct {
	MatchID    uint64    `json:"match_id"`
	ClusterID  uint32    `json:"cluster_id"`
	Kind       string    `json:"kind"` // "metadata" or "replay"
	Salt       uint32    `json:"salt"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Journal persists ingestion records
type Journal struct {
	db  *badger.DB
	log *logger.Logger
}

// DefaultPath returns the platform data directory for the journal
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, "deadlock-ingest", "journal"), nil
}

// Open opens (or creates) the journal database at path
func Open(path string) (*Journal, error) {
	log := logger.NewComponentLogger("Journal")

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil // badger's own logger is too chatty for a tray app

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database at %s: %w", path, err)
	}

	log.Info("Journal opened at %s", path)
	return &Journal{db: db, log: log}, nil
}

// Close releases the database
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record journals one successfully ingested salt record
func (j *Journal) Record(s *salts.Salts) error {
	entry := Entry{
		MatchID:    s.MatchID,
		ClusterID:  s.ClusterID,
		IngestedAt: time.Now().UTC(),
	}
	if s.IsMetadata() {
		entry.Kind = "metadata"
		entry.Salt = *s.MetadataSalt
	} else if s.ReplaySalt != nil {
		entry.Kind = "replay"
		entry.Salt = *s.ReplaySalt
	} else {
		return fmt.Errorf("salt record for match %d carries no salt", s.MatchID)
	}

	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to serialize journal entry: %w", err)
	}

	key := fmt.Sprintf("%s%d:%s", saltPrefix, entry.MatchID, entry.Kind)
	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, most recent first
func (j *Journal) Recent(limit int) ([]Entry, error) {
	var entries []Entry

	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(saltPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var entry Entry
				if err := json.Unmarshal(val, &entry); err != nil {
					// Skip corrupt entries rather than failing the listing
					j.log.Warn("Skipping corrupt journal entry: %v", err)
					return nil
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	sort.Slice(entries, func(a, b int) bool {
		return entries[a].IngestedAt.After(entries[b].IngestedAt)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Count returns the number of journaled ingestions
func (j *Journal) Count() (int, error) {
	count := 0
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(saltPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count journal entries: %w", err)
	}
	return count, nil
}
