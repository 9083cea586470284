// Package api exposes a local HTTP status surface for the sensor.
//
// The server binds to loopback by default and serves sensor health, pipeline
// counters, the recent ingestion journal, and a websocket event stream used
// by companion UIs. Requests are rate limited per client IP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/deadlock-api/deadlock-ingest/internal/config"
	"github.com/deadlock-api/deadlock-ingest/internal/journal"
	"github.com/deadlock-api/deadlock-ingest/internal/logger"
	"github.com/deadlock-api/deadlock-ingest/internal/sniffer"
)

// recentSaltsDefault is how many journal entries /salts/recent returns when
// no limit is given.
const recentSaltsDefault = 50

// Server is the local status API
type Server struct {
	cfg        config.APIConfig
	stats      func() sniffer.Stats
	journal    *journal.Journal
	hub        *Hub
	httpServer *http.Server
	log        *logger.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewServer creates the status API around the given stats source. The
// journal may be nil when journaling is disabled.
func NewServer(cfg config.APIConfig, stats func() sniffer.Stats, jnl *journal.Journal) *Server {
	s := &Server{
		cfg:      cfg,
		stats:    stats,
		journal:  jnl,
		hub:      NewHub(),
		log:      logger.NewComponentLogger("API"),
		limiters: make(map[string]*rate.Limiter),
	}

	router := mux.NewRouter()
	router.Use(s.corsMiddleware, s.rateLimitMiddleware)
	router.HandleFunc("/api/v1/health", s.handleHealth).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/v1/stats", s.handleStats).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/v1/salts/recent", s.handleRecentSalts).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/v1/events", s.hub.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Hub returns the websocket event hub so other components can broadcast
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins serving in a background goroutine
func (s *Server) Start() {
	s.log.Info("Status API listening on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("Status API failed: %v", err)
		}
	}()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats())
}

func (s *Server) handleRecentSalts(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeJSON(w, http.StatusOK, []journal.Entry{})
		return
	}

	limit := recentSaltsDefault
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	entries, err := s.journal.Recent(limit)
	if err != nil {
		s.log.Error("Failed to read journal: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "journal read failed"})
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// rateLimitMiddleware enforces the configured per-IP request budget
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiterFor(clientIP(r)).Allow() {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limiterFor(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.limiters[ip]
	if !ok {
		perMinute := s.cfg.RateLimitPerMinute
		if perMinute <= 0 {
			perMinute = 100
		}
		limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
		s.limiters[ip] = limiter
	}
	return limiter
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
