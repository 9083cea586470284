package statlocker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadlock-api/deadlock-ingest/internal/salts"
)

func metaSalts(matchID uint64) *salts.Salts {
	salt := uint32(1)
	return &salts.Salts{MatchID: matchID, ClusterID: 404, MetadataSalt: &salt}
}

func TestNotifierPostsPopulateRequest(t *testing.T) {
	requests := make(chan *http.Request, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r
	}))
	defer server.Close()

	n := NewNotifier(WithBaseURL(server.URL))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	n.Notify(metaSalts(37959196))

	select {
	case r := <-requests:
		assert.Equal(t, "/api/match/37959196/populate", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("username"))
	case <-time.After(2 * time.Second):
		t.Fatal("no populate request arrived")
	}
}

func TestNotifierAttributesAccount(t *testing.T) {
	requests := make(chan *http.Request, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r
	}))
	defer server.Close()

	n := NewNotifier(WithBaseURL(server.URL), WithAccountID(163191061))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	n.Notify(metaSalts(42))

	select {
	case r := <-requests:
		assert.Equal(t, "ingest-tool:163191061", r.URL.Query().Get("username"))
	case <-time.After(2 * time.Second):
		t.Fatal("no populate request arrived")
	}
}

func TestNotifyNeverBlocksWhenQueueFull(t *testing.T) {
	// No worker running, so the queue only fills
	n := NewNotifier(WithBaseURL("http://127.0.0.1:0"))

	done := make(chan struct{})
	go func() {
		for i := 0; i < queueCap+10; i++ {
			n.Notify(metaSalts(uint64(i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full queue")
	}
	require.Len(t, n.queue, queueCap)
}

func TestNotifierSurvivesServerErrors(t *testing.T) {
	hits := make(chan struct{}, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- struct{}{}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewNotifier(WithBaseURL(server.URL))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go n.Run(ctx)

	n.Notify(metaSalts(1))
	n.Notify(metaSalts(2))

	for i := 0; i < 2; i++ {
		select {
		case <-hits:
		case <-time.After(2 * time.Second):
			t.Fatal("worker stopped after a server error")
		}
	}
}
