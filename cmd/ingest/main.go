// Command ingest is the Deadlock replay ingest sensor.
//
// It passively watches local HTTP traffic for Valve replay downloads,
// recovers the replay salts from the request URLs, and submits them to the
// community collector. A Steam HTTP cache watcher covers downloads the live
// capture missed. The sensor lives in the system tray.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/deadlock-api/deadlock-ingest/internal/api"
	"github.com/deadlock-api/deadlock-ingest/internal/config"
	"github.com/deadlock-api/deadlock-ingest/internal/desktop/notify"
	"github.com/deadlock-api/deadlock-ingest/internal/desktop/tray"
	sensorerrors "github.com/deadlock-api/deadlock-ingest/internal/errors"
	"github.com/deadlock-api/deadlock-ingest/internal/ingest"
	"github.com/deadlock-api/deadlock-ingest/internal/journal"
	"github.com/deadlock-api/deadlock-ingest/internal/logger"
	"github.com/deadlock-api/deadlock-ingest/internal/salts"
	"github.com/deadlock-api/deadlock-ingest/internal/sniffer"
	"github.com/deadlock-api/deadlock-ingest/internal/statlocker"
	"github.com/deadlock-api/deadlock-ingest/internal/steamcache"
	"github.com/deadlock-api/deadlock-ingest/internal/steamuser"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.json", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("deadlock-ingest %s\n", version)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.Logging.File, cfg.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewComponentLogger("Main")
	log.Info("Deadlock ingest sensor %s starting", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := ingest.NewCache(cfg.Cache.MaxEntries)
	client := ingest.NewClient(cfg.Collector, cache)

	// Journal successful ingestions for the status API
	var jnl *journal.Journal
	if cfg.Journal.Enabled {
		path := cfg.Journal.Path
		if path == "" {
			path, err = journal.DefaultPath()
			if err != nil {
				log.Error("Failed to resolve journal path: %v", err)
			}
		}
		if path != "" {
			jnl, err = journal.Open(path)
			if err != nil {
				log.Error("Journal disabled: %v", err)
				jnl = nil
			} else {
				defer sensorerrors.SafeClose(jnl, "journal")
				client.OnIngested(func(s *salts.Salts) {
					if err := jnl.Record(s); err != nil {
						log.Warn("Failed to journal %s: %v", s, err)
					}
				})
			}
		}
	}

	snf := sniffer.New(newCaptureProvider(), cfg.Capture, client)
	var guidanceOnce sync.Once
	snf.OnSessionError(func(err error) {
		notify.Alert(fmt.Sprintf("Capture stopped: %v", err))
		guidanceOnce.Do(func() {
			log.Info("Capture setup hint: %s", captureGuidance())
		})
	})

	var server *api.Server
	if cfg.API.Enabled {
		server = api.NewServer(cfg.API, snf.Stats, jnl)
		server.Start()
		client.OnIngested(func(s *salts.Salts) {
			server.Hub().Broadcast(api.EventSaltsIngested, s)
		})
	}

	if cfg.Statlocker.Enabled {
		notifier := newStatlockerNotifier(log)
		go notifier.Run(ctx)
		client.OnIngested(notifier.Notify)
	}

	if cfg.SteamCache.Enabled {
		go runSteamCacheWatcher(ctx, cfg.SteamCache, client, log)
	}

	go snf.Run(ctx)

	log.Info("Sensor running (capture filter %q)", cfg.Capture.BPFFilter)

	// systray must own the main goroutine; quitting the tray shuts the
	// sensor down.
	tray.Run(tray.Options{
		Sniffer: snf,
		Version: version,
		OnQuit: func() {
			log.Info("Shutting down")
			cancel()
			if server != nil {
				shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
				defer done()
				if err := server.Shutdown(shutdownCtx); err != nil {
					log.Warn("Status API shutdown: %v", err)
				}
			}
		},
	})
}

// newStatlockerNotifier attributes notifications to the signed-in Steam
// account when one can be resolved.
func newStatlockerNotifier(log *logger.Logger) *statlocker.Notifier {
	var opts []statlocker.Option
	if path, err := steamuser.LocateLoginUsers(); err == nil {
		if user, err := steamuser.MostRecentUser(path); err == nil {
			log.Info("Attributing notifications to account %d", user.AccountID())
			opts = append(opts, statlocker.WithAccountID(user.AccountID()))
		}
	}
	return statlocker.NewNotifier(opts...)
}

// runSteamCacheWatcher feeds replay records found in Steam's HTTP cache into
// the same delivery client as the live capture.
func runSteamCacheWatcher(ctx context.Context, cfg config.SteamCacheConfig, client *ingest.Client, log *logger.Logger) {
	dir := cfg.Directory
	if dir == "" {
		located, err := steamcache.LocateCacheDir()
		if err != nil {
			log.Info("Steam cache watching disabled: %v", err)
			return
		}
		dir = located
	}

	watcher := steamcache.NewWatcher(dir, func(s *salts.Salts) error {
		err := client.Ingest(s)
		if err == ingest.ErrMatchIDTooLarge {
			return nil
		}
		return err
	})
	if err := watcher.Run(ctx, cfg.InitialScan); err != nil {
		log.Error("Steam cache watcher failed: %v", err)
	}
}
