package steamcache

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/deadlock-api/deadlock-ingest/internal/logger"
	"github.com/deadlock-api/deadlock-ingest/internal/salts"
)

// Watcher monitors the Steam HTTP cache directory and feeds every replay
// record it finds to the sink. Delivery errors are logged and dropped; the
// cache is a best-effort side channel next to the live capture, and the same
// records will be seen again on the next scan of an unchanged file.
type Watcher struct {
	dir  string
	sink func(*salts.Salts) error
	log  *logger.Logger
}

// NewWatcher creates a watcher over the given cache directory
func NewWatcher(dir string, sink func(*salts.Salts) error) *Watcher {
	return &Watcher{
		dir:  dir,
		sink: sink,
		log:  logger.NewComponentLogger("SteamCache"),
	}
}

// Run watches the cache directory until the context is cancelled. When
// initialScan is set, existing files are scanned first so downloads that
// happened before startup are recovered too.
func (w *Watcher) Run(ctx context.Context, initialScan bool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Steam nests cache files in two levels of hash-prefix directories, so
	// every subdirectory needs its own watch.
	if err := w.watchTree(watcher); err != nil {
		return err
	}

	if initialScan {
		w.scanTree()
	}

	w.log.Info("Watching Steam HTTP cache at %s", w.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("Cache watch error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}

	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := watcher.Add(event.Name); err != nil {
				w.log.Warn("Failed to watch new cache directory %s: %v", event.Name, err)
			}
		}
		return
	}

	w.scanPath(event.Name)
}

// watchTree registers the cache root and all existing subdirectories
func (w *Watcher) watchTree(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == w.dir {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				w.log.Warn("Failed to watch cache directory %s: %v", path, err)
			}
		}
		return nil
	})
}

// scanTree scans every existing cache file once
func (w *Watcher) scanTree() {
	count := 0
	filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		count++
		w.scanPath(path)
		return nil
	})
	w.log.Info("Initial cache scan finished (%d files)", count)
}

func (w *Watcher) scanPath(path string) {
	urls, err := ScanFile(path)
	if err != nil {
		w.log.Debug("Failed to scan cache file %s: %v", path, err)
		return
	}

	for _, url := range urls {
		record, ok := salts.FromURL(url)
		if !ok {
			continue
		}
		w.log.Debug("Recovered %s from cache file %s", record, filepath.Base(path))
		if err := w.sink(record); err != nil {
			w.log.Warn("Failed to deliver %s from cache: %v", record, err)
		}
	}
}
