package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/you/soopcast/internal/core"
	"github.com/you/soopcast/internal/stats"
)

func testProbes() Probes {
	return Probes{
		PendingDonations: func() int { return 2 },
		ChatHistory:      func() int { return 150 },
		DonationHistory:  func() int { return 7 },
		BufferedRows:     func() int { return 13 },
		Addons:           func() int { return 3 },
		Metadata: func() *core.BroadcastMetadata {
			return &core.BroadcastMetadata{
				ChannelID:   "streamer1",
				Title:       "late night",
				ViewerCount: 900,
				Timestamp:   time.Now().UTC(),
			}
		},
	}
}

func TestHealthz(t *testing.T) {
	srv := New(testProbes(), Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected healthz response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestStatusSamplesProbes(t *testing.T) {
	srv := New(testProbes(), Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if body["pending_donations"].(float64) != 2 {
		t.Fatalf("unexpected pending_donations: %v", body["pending_donations"])
	}
	if body["chat_history"].(float64) != 150 {
		t.Fatalf("unexpected chat_history: %v", body["chat_history"])
	}
	broadcast, ok := body["broadcast"].(map[string]any)
	if !ok || broadcast["title"].(string) != "late night" {
		t.Fatalf("unexpected broadcast block: %v", body["broadcast"])
	}
}

func TestConfigSnapshot(t *testing.T) {
	srv := New(Probes{}, Options{ConfigJSON: []byte(`{"channel":{"id":"streamer1"}}`)})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status code %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode config: %v", err)
	}

	empty := New(Probes{}, Options{})
	rec = httptest.NewRecorder()
	empty.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without config snapshot, got %d", rec.Code)
	}
}

func TestAuthTokenGuardsEndpoints(t *testing.T) {
	srv := New(testProbes(), Options{AuthToken: "s3cret", ConfigJSON: []byte(`{}`)})

	for _, path := range []string{"/status", "/config", "/stream"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: expected 401, got %d", path, rec.Code)
		}

		rec = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer wrong")
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s with wrong token: expected 401, got %d", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token should pass, got %d", rec.Code)
	}

	// Health probe stays open for load balancers.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz must not require auth, got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	srv := New(Probes{}, Options{RateRPS: 1, RateBurst: 1})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "10.1.1.1:4000"

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %d", rec.Code)
	}

	other := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	other.RemoteAddr = "10.1.1.2:4000"
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("different client should pass, got %d", rec.Code)
	}
}

func TestNotifyDropsWhenClientSlow(t *testing.T) {
	srv := New(Probes{}, Options{})

	clientCh := make(chan frame, 1)
	srv.mu.Lock()
	srv.clients[clientCh] = struct{}{}
	srv.mu.Unlock()

	srv.Notify("chat", map[string]int{"n": 1})
	srv.Notify("chat", map[string]int{"n": 2})

	first := <-clientCh
	if first.event != "chat" || string(first.data) != `{"n":1}` {
		t.Fatalf("expected first frame delivered, got %+v", first)
	}
	select {
	case extra := <-clientCh:
		t.Fatalf("expected overflow frame dropped, got %+v", extra)
	default:
	}
}

func TestMatrixSinkStreamsOnStatsChannel(t *testing.T) {
	srv := New(Probes{}, Options{})

	clientCh := make(chan frame, 4)
	srv.mu.Lock()
	srv.clients[clientCh] = struct{}{}
	srv.mu.Unlock()

	var sink stats.Sink = MatrixSink{Server: srv}
	sink.Notify(stats.StatsChannel, stats.Matrix{
		Kind:      stats.MatrixLaugh,
		Timestamp: time.Now().UTC(),
		Laugh:     &stats.LaughData{Count: 4},
	})

	f := <-clientCh
	if f.event != stats.StatsChannel {
		t.Fatalf("expected stats channel, got %q", f.event)
	}
	var m stats.Matrix
	if err := json.Unmarshal(f.data, &m); err != nil {
		t.Fatalf("decode matrix: %v", err)
	}
	if m.Kind != stats.MatrixLaugh || m.Laugh == nil || m.Laugh.Count != 4 {
		t.Fatalf("unexpected matrix payload: %+v", m)
	}
}
