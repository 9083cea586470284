// Package statlocker notifies statlocker.gg about freshly seen matches so it
// can populate its own match page early. Notification is strictly
// best-effort: failures are logged and never retried, and a full queue drops
// the notification rather than slowing down ingestion.
package statlocker

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/deadlock-api/deadlock-ingest/internal/logger"
	"github.com/deadlock-api/deadlock-ingest/internal/salts"
)

const (
	defaultBaseURL = "https://statlocker.gg"
	queueCap       = 1000
	requestTimeout = 10 * time.Second
)

// Notifier posts populate requests for matches on a background worker
type Notifier struct {
	baseURL    string
	username   string
	httpClient *http.Client
	queue      chan uint64
	log        *logger.Logger
}

// Option configures a Notifier
type Option func(*Notifier)

// WithBaseURL overrides the statlocker.gg endpoint, for tests
func WithBaseURL(baseURL string) Option {
	return func(n *Notifier) { n.baseURL = baseURL }
}

// WithAccountID attributes notifications to the local Steam account
func WithAccountID(accountID uint32) Option {
	return func(n *Notifier) { n.username = fmt.Sprintf("ingest-tool:%d", accountID) }
}

// NewNotifier creates a notifier; Run must be started for it to do anything
func NewNotifier(opts ...Option) *Notifier {
	n := &Notifier{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		queue:      make(chan uint64, queueCap),
		log:        logger.NewComponentLogger("Statlocker"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify queues a populate request for the match. It never blocks; when the
// queue is full the notification is dropped.
func (n *Notifier) Notify(s *salts.Salts) {
	select {
	case n.queue <- s.MatchID:
	default:
		n.log.Warn("Notification queue full, dropping match %d", s.MatchID)
	}
}

// Run drains the queue until the context is cancelled
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case matchID := <-n.queue:
			n.populate(ctx, matchID)
		}
	}
}

func (n *Notifier) populate(ctx context.Context, matchID uint64) {
	endpoint := fmt.Sprintf("%s/api/match/%d/populate", n.baseURL, matchID)
	if n.username != "" {
		endpoint += "?username=" + url.QueryEscape(n.username)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		n.log.Warn("Failed to build populate request for match %d: %v", matchID, err)
		return
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.log.Debug("Populate request for match %d failed: %v", matchID, err)
		return
	}
	resp.Body.Close()

	n.log.Debug("Notified statlocker about match %d (status %d)", matchID, resp.StatusCode)
}
