package ingest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deadlock-api/deadlock-ingest/internal/config"
	sensorerrors "github.com/deadlock-api/deadlock-ingest/internal/errors"
	"github.com/deadlock-api/deadlock-ingest/internal/salts"
)

func testClient(endpoint string, maxAttempts int, cache *Cache) *Client {
	return NewClient(config.CollectorConfig{
		Endpoint:    endpoint,
		MaxAttempts: maxAttempts,
		RetryDelay:  0, // keep tests fast; production uses 3s
		Timeout:     5,
	}, cache)
}

func TestIngestDeliversSingleElementArray(t *testing.T) {
	var got []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cache := NewCache(0)
	client := testClient(server.URL, 3, cache)

	salt := uint32(937530290)
	err := client.Ingest(&salts.Salts{MatchID: 37959196, ClusterID: 404, MetadataSalt: &salt})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, float64(37959196), got[0]["match_id"])
	assert.Equal(t, float64(404), got[0]["cluster_id"])
	assert.Equal(t, float64(937530290), got[0]["metadata_salt"])
	assert.Nil(t, got[0]["replay_salt"])

	assert.True(t, cache.IsIngested(37959196, true))
	assert.False(t, cache.IsIngested(37959196, false))
}

func TestIngestSkipsAlreadyIngestedKind(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cache := NewCache(0)
	client := testClient(server.URL, 3, cache)

	require.NoError(t, client.Ingest(metaSalts(42, 1)))
	require.NoError(t, client.Ingest(metaSalts(42, 1)))
	assert.Equal(t, int32(1), calls.Load(), "second metadata ingest should be deduped")

	// The replay kind for the same match is still fresh.
	require.NoError(t, client.Ingest(replaySalts(42, 2)))
	assert.Equal(t, int32(2), calls.Load())
}

func TestIngestRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := testClient(server.URL, 5, NewCache(0))
	require.NoError(t, client.Ingest(metaSalts(7, 1)))
	assert.Equal(t, int32(3), calls.Load())
}

func TestIngestBadRequestIsTerminal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, "unknown cluster")
	}))
	defer server.Close()

	cache := NewCache(0)
	client := testClient(server.URL, 10, cache)

	err := client.Ingest(metaSalts(7, 1))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "a 400 must not be retried")

	var te *sensorerrors.TerminalError
	require.True(t, sensorerrors.As(err, &te))
	assert.Equal(t, http.StatusBadRequest, te.StatusCode)
	assert.Contains(t, te.Body, "unknown cluster")

	assert.False(t, cache.IsIngested(7, true), "failed delivery must not mark the cache")
}

func TestIngestExhaustedRetriesFail(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := testClient(server.URL, 4, NewCache(0))
	err := client.Ingest(metaSalts(7, 1))
	require.Error(t, err)
	assert.Equal(t, int32(4), calls.Load())
}

func TestIngestRejectsOversizedMatchIDBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := testClient(server.URL, 3, NewCache(0))
	err := client.Ingest(metaSalts(100_000_001, 1))
	assert.ErrorIs(t, err, ErrMatchIDTooLarge)
	assert.Equal(t, int32(0), calls.Load(), "sanity-ceiling rejection must precede any network call")
}

func TestIngestNotifiesObservers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := testClient(server.URL, 3, NewCache(0))

	var seen []uint64
	client.OnIngested(func(s *salts.Salts) { seen = append(seen, s.MatchID) })

	require.NoError(t, client.Ingest(metaSalts(9, 1)))
	require.NoError(t, client.Ingest(metaSalts(9, 1))) // deduped, no callback
	assert.Equal(t, []uint64{9}, seen)
}
