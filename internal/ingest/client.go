package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/deadlock-api/deadlock-ingest/internal/config"
	sensorerrors "github.com/deadlock-api/deadlock-ingest/internal/errors"
	"github.com/deadlock-api/deadlock-ingest/internal/logger"
	"github.com/deadlock-api/deadlock-ingest/internal/salts"
)

// ErrMatchIDTooLarge marks a record whose match ID exceeds the sanity
// ceiling. It is rejected before any network call.
var ErrMatchIDTooLarge = fmt.Errorf("match ID exceeds sanity ceiling")

// maxResponseBody bounds how much of a collector response is read back for
// error reporting.
const maxResponseBody = 8 * 1024

// Client submits salt records to the remote collector with bounded retry.
// Delivery runs synchronously on the caller's goroutine; the retry backoff
// sleep is the only long wait besides the network round-trip itself.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	maxAttempts int
	retryDelay  time.Duration
	maxMatchID  uint64
	cache       *Cache
	log         *logger.Logger
	observers   []func(*salts.Salts)
}

// NewClient creates a delivery client around the shared dedup cache
func NewClient(cfg config.CollectorConfig, cache *Cache) *Client {
	maxMatchID := cfg.MaxMatchID
	if maxMatchID == 0 {
		maxMatchID = salts.MaxMatchID
	}
	return &Client{
		endpoint:    cfg.Endpoint,
		httpClient:  &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  time.Duration(cfg.RetryDelay) * time.Second,
		maxMatchID:  maxMatchID,
		cache:       cache,
		log:         logger.NewComponentLogger("Ingest"),
	}
}

// OnIngested registers a callback invoked after each successful delivery.
// Callbacks run on the delivering goroutine and must not block.
func (c *Client) OnIngested(fn func(*salts.Salts)) {
	c.observers = append(c.observers, fn)
}

// Ingest delivers one salt record unless its kind is already recorded for
// the match. Transient failures are retried with a fixed delay up to the
// attempt ceiling; an HTTP 400 or exhausted retries surface as a terminal
// error carrying the collector's response.
func (c *Client) Ingest(s *salts.Salts) error {
	if s.MatchID > c.maxMatchID {
		c.log.Warn("Rejecting match %d: above sanity ceiling %d", s.MatchID, c.maxMatchID)
		return ErrMatchIDTooLarge
	}

	if c.cache.IsIngested(s.MatchID, s.IsMetadata()) {
		c.log.Debug("Skipping already-ingested %s", s)
		return nil
	}

	err := sensorerrors.RetryFixed("ingest salts", sensorerrors.RetryConfig{
		MaxAttempts: c.maxAttempts,
		Delay:       c.retryDelay,
	}, func() error {
		return c.post(s)
	})
	if err != nil {
		return err
	}

	c.cache.MarkIngested(s)
	c.log.Info("Ingested %s", s)
	for _, fn := range c.observers {
		fn(s)
	}
	return nil
}

// post performs one delivery attempt: a single-element JSON array POSTed to
// the collector.
func (c *Client) post(s *salts.Salts) error {
	body, err := json.Marshal([]*salts.Salts{s})
	if err != nil {
		return sensorerrors.Wrap(err, "failed to serialize salts")
	}

	resp, err := c.httpClient.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return sensorerrors.Wrap(err, "collector request failed")
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		// The collector definitively rejected the record; retrying the
		// same payload cannot succeed.
		return sensorerrors.NewTerminalError(resp.StatusCode, string(respBody))
	default:
		return fmt.Errorf("collector returned status %d: %s", resp.StatusCode, respBody)
	}
}
