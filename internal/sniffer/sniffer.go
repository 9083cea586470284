// Package sniffer drives the passive capture pipeline: it pulls raw frames
// from a platform capture provider, reassembles per-connection byte streams,
// extracts replay URLs from reconstructed HTTP requests, and hands the parsed
// salts to the delivery stage.
//
// The whole pipeline runs synchronously on one worker goroutine; there is no
// shared mutable state inside it. The only cross-goroutine resources are the
// ingestion dedup cache owned by the delivery client and the atomic Stats
// counters polled by the status surfaces. Per-frame failures
// (malformed packets, non-matching URLs) never stop the loop; only a failed
// capture source or a terminal delivery failure ends a session, after which
// Run restarts it with a short delay.
package sniffer

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/deadlock-api/deadlock-ingest/internal/config"
	"github.com/deadlock-api/deadlock-ingest/internal/httpparse"
	"github.com/deadlock-api/deadlock-ingest/internal/ingest"
	"github.com/deadlock-api/deadlock-ingest/internal/logger"
	"github.com/deadlock-api/deadlock-ingest/internal/packet"
	"github.com/deadlock-api/deadlock-ingest/internal/platform"
	"github.com/deadlock-api/deadlock-ingest/internal/salts"
	"github.com/deadlock-api/deadlock-ingest/internal/stream"
)

// Stats is a snapshot of pipeline counters
type Stats struct {
	FramesSeen     uint64 `json:"frames_seen"`
	FramesDropped  uint64 `json:"frames_dropped"`
	URLsRecovered  uint64 `json:"urls_recovered"`
	StreamsTracked int    `json:"streams_tracked"`
}

// Sniffer owns one capture worker's state
type Sniffer struct {
	provider platform.CaptureProvider
	cfg      config.CaptureConfig
	client   *ingest.Client
	table    *stream.Table
	limiter  *rate.Limiter
	log      *logger.Logger

	paused atomic.Bool

	// Counters are atomics because Stats is polled from the API and tray
	// goroutines while the worker updates them. The connection table itself
	// is touched only by the worker; streamsTracked mirrors its size so
	// Stats never reads the table's map.
	framesSeen     atomic.Uint64
	framesDropped  atomic.Uint64
	urlsRecovered  atomic.Uint64
	streamsTracked atomic.Int64

	onSessionError func(error)
}

// New creates a sniffer over the given capture provider and delivery client
func New(provider platform.CaptureProvider, cfg config.CaptureConfig, client *ingest.Client) *Sniffer {
	rateLimit := cfg.RateLimit
	if rateLimit <= 0 {
		rateLimit = 10000
	}
	return &Sniffer{
		provider: provider,
		cfg:      cfg,
		client:   client,
		table: stream.NewTable(cfg.BufferCap, cfg.TableCap,
			time.Duration(cfg.IdleTimeout)*time.Second),
		limiter: rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		log:     logger.NewComponentLogger("Sniffer"),
	}
}

// OnSessionError registers a callback invoked whenever a capture session ends
// with an error, before the restart delay. Used by the tray shell to surface
// failures to the user.
func (s *Sniffer) OnSessionError(fn func(error)) {
	s.onSessionError = fn
}

// SetPaused suspends or resumes frame processing. While paused, frames are
// read and discarded so the capture buffer does not back up.
func (s *Sniffer) SetPaused(paused bool) {
	s.paused.Store(paused)
}

// Paused reports whether processing is suspended
func (s *Sniffer) Paused() bool {
	return s.paused.Load()
}

// Stats returns a snapshot of the pipeline counters
func (s *Sniffer) Stats() Stats {
	return Stats{
		FramesSeen:     s.framesSeen.Load(),
		FramesDropped:  s.framesDropped.Load(),
		URLsRecovered:  s.urlsRecovered.Load(),
		StreamsTracked: int(s.streamsTracked.Load()),
	}
}

// Run restarts capture sessions forever, sleeping the configured delay after
// each failure, until the context is cancelled.
func (s *Sniffer) Run(ctx context.Context) {
	delay := time.Duration(s.cfg.RestartDelay) * time.Second
	if delay <= 0 {
		delay = time.Second
	}

	for {
		if err := s.Listen(ctx); err != nil {
			s.log.Error("Capture session ended: %v", err)
			if s.onSessionError != nil {
				s.onSessionError(err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// Listen runs one capture session: open the source, pull frames until the
// source fails or the context is cancelled. Read timeouts mean "no data yet"
// and are not errors.
func (s *Sniffer) Listen(ctx context.Context) error {
	if err := s.provider.Open(s.cfg.Interface, s.cfg.Promiscuous, s.cfg.BPFFilter); err != nil {
		return err
	}
	defer s.provider.Close()

	s.log.Info("Capture session started (filter %q)", s.cfg.BPFFilter)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := s.provider.ReadFrame()
		if err != nil {
			if err == platform.ErrReadTimeout {
				continue
			}
			return err
		}

		if err := s.processFrame(frame); err != nil {
			// Terminal delivery failures end the session; the restart
			// loop absorbs them.
			return err
		}
	}
}

// processFrame runs one frame through the pipeline. Only terminal delivery
// failures are returned; everything else is dealt with in place.
func (s *Sniffer) processFrame(frame []byte) error {
	if s.paused.Load() {
		return nil
	}
	if len(frame) < s.cfg.MinFrameBytes {
		return nil
	}

	s.framesSeen.Add(1)
	if !s.limiter.Allow() {
		// Over the processing budget: drop rather than fall behind.
		s.framesDropped.Add(1)
		return nil
	}

	id, payload, ok := packet.Parse(frame)
	if !ok {
		return nil
	}

	buf := s.table.Get(id)
	s.streamsTracked.Store(int64(s.table.Len()))
	buf.Append(payload)

	url, ok := httpparse.ExtractURL(buf.Bytes())
	if ok {
		buf.Clear()
		if err := s.handleURL(url); err != nil {
			return err
		}
	}

	if pruned := s.table.PruneIfOverCap(); pruned > 0 {
		s.streamsTracked.Store(int64(s.table.Len()))
		s.log.Debug("Pruned %d stale streams", pruned)
	}
	return nil
}

// handleURL feeds one recovered URL through identifier parsing and delivery
func (s *Sniffer) handleURL(url string) error {
	s.urlsRecovered.Add(1)
	s.log.Debug("Recovered HTTP URL: %s", url)

	record, ok := salts.FromURL(url)
	if !ok {
		return nil
	}

	err := s.client.Ingest(record)
	switch {
	case err == nil:
		return nil
	case err == ingest.ErrMatchIDTooLarge:
		// Sanity-ceiling rejection is logged by the client; not fatal.
		return nil
	default:
		return err
	}
}
