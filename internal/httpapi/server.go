// Package httpapi exposes the monitor's observation surface: health and
// status endpoints, the redacted config snapshot, Prometheus metrics and
// a server-sent-events stream of stats matrices.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/you/soopcast/internal/core"
	"github.com/you/soopcast/internal/stats"
)

// Probes sample live state for /status and the metric gauges. Nil
// fields report zero.
type Probes struct {
	PendingDonations func() int
	ChatHistory      func() int
	DonationHistory  func() int
	BufferedRows     func() int
	Addons           func() int
	Metadata         func() *core.BroadcastMetadata
}

type Options struct {
	Addr       string
	RateRPS    float64
	RateBurst  int
	ConfigJSON []byte

	// AuthToken, when set, is required as a bearer token on every route
	// except /healthz and /metrics.
	AuthToken string
}

// frame is one SSE message: the channel name and the marshaled payload.
type frame struct {
	event string
	data  []byte
}

type Server struct {
	httpServer *http.Server
	metrics    *Metrics
	limiter    *ipRateLimiter
	probes     Probes
	configJSON []byte
	authToken  string
	startedAt  time.Time

	mu      sync.Mutex
	clients map[chan frame]struct{}
	closed  bool
}

func New(probes Probes, opts Options) *Server {
	srv := &Server{
		metrics:    newMetrics(),
		limiter:    newIPRateLimiter(opts.RateRPS, opts.RateBurst),
		probes:     probes,
		configJSON: opts.ConfigJSON,
		authToken:  opts.AuthToken,
		startedAt:  time.Now(),
		clients:    make(map[chan frame]struct{}),
	}
	srv.metrics.registerProbes(probes)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.wrap("healthz", srv.handleHealthz))
	mux.HandleFunc("/status", srv.wrap("status", srv.handleStatus))
	mux.HandleFunc("/config", srv.wrap("config", srv.handleConfig))
	mux.HandleFunc("/stream", srv.wrap("stream", srv.handleStream))
	mux.Handle("/metrics", srv.metrics.Handler())

	srv.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return srv
}

// Metrics exposes the collector bundle so the pipeline can record
// dispatch and store counters.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler returns the full route set. Used by tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// wrap applies the rate limit, bearer auth and request accounting to a
// handler. The health probe stays unauthenticated.
func (s *Server) wrap(route string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(remoteIP(r)) {
			s.metrics.IncRateLimited()
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		if s.authToken != "" && route != "healthz" {
			if r.Header.Get("Authorization") != "Bearer "+s.authToken {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		rec := newResponseRecorder(w)
		start := time.Now()
		handler(rec, r)
		s.metrics.ObserveRequest(route, r.Method, rec.Status(), time.Since(start))
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func sample(fn func() int) int {
	if fn == nil {
		return 0
	}
	return fn()
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"uptime_seconds":    int64(time.Since(s.startedAt).Seconds()),
		"pending_donations": sample(s.probes.PendingDonations),
		"chat_history":      sample(s.probes.ChatHistory),
		"donation_history":  sample(s.probes.DonationHistory),
		"buffered_log_rows": sample(s.probes.BufferedRows),
		"addons":            sample(s.probes.Addons),
	}
	if s.probes.Metadata != nil {
		if meta := s.probes.Metadata(); meta != nil {
			status["broadcast"] = map[string]any{
				"channel_id":   meta.ChannelID,
				"title":        meta.Title,
				"started_at":   meta.StartedAt,
				"viewer_count": meta.ViewerCount,
				"fetched_at":   meta.Timestamp,
			}
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(status)
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	if len(s.configJSON) == 0 {
		http.Error(w, "config unavailable", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(s.configJSON)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	clientCh := make(chan frame, 64)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.clients[clientCh] = struct{}{}
	s.mu.Unlock()
	s.metrics.IncSSEClients(1)

	defer func() {
		s.mu.Lock()
		delete(s.clients, clientCh)
		s.mu.Unlock()
		s.metrics.IncSSEClients(-1)
	}()

	fmt.Fprintf(w, ":ok\n\n")
	flusher.Flush()

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprintf(w, ":ping\n\n")
			flusher.Flush()
		case f, ok := <-clientCh:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.event, f.data)
			flusher.Flush()
		}
	}
}

// Notify implements the addon notifier: the payload is marshaled once
// and fanned out to every connected SSE client under the channel name.
// Slow clients drop frames rather than stall the dispatch path.
func (s *Server) Notify(channel string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	f := frame{event: channel, data: data}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- f:
		default:
		}
	}
}

// MatrixSink adapts the server to the stats engine's sink: matrices are
// counted and streamed on their channel.
type MatrixSink struct {
	Server *Server
}

func (ms MatrixSink) Notify(channel string, payload any) {
	if m, ok := payload.(stats.Matrix); ok {
		ms.Server.metrics.IncMatricesEmitted(string(m.Kind))
	}
	ms.Server.Notify(channel, payload)
}

func (s *Server) Start() error {
	log.Printf("http api listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for ch := range s.clients {
		close(ch)
	}
	s.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}
