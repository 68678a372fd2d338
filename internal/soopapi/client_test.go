package soopapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const stationLiveBody = `{
	"station": {"user_id": "streamer1", "broad_start": "2026-08-28 12:00:00"},
	"broad": {"broad_no": 123, "current_sum_viewer": 4821}
}`

const stationOfflineBody = `{
	"station": {"user_id": "streamer1", "broad_start": "2026-08-20 09:30:00"},
	"broad": null
}`

const liveBody = `{"CHANNEL": {"RESULT": 1, "TITLE": "speedrun marathon", "BNO": "123"}}`

const liveOfflineBody = `{"CHANNEL": {"RESULT": 0}}`

func TestGetStation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/streamer1/station" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(stationLiveBody))
	}))
	defer srv.Close()

	c := &Client{StationBaseURL: srv.URL}
	st, err := c.GetStation(context.Background(), "streamer1")
	if err != nil {
		t.Fatalf("GetStation: %v", err)
	}
	if !st.IsLive || st.ViewerCount != 4821 {
		t.Fatalf("unexpected station: %+v", st)
	}
	want := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	if !st.BroadStart.Equal(want) {
		t.Fatalf("expected start %v, got %v", want, st.BroadStart)
	}
}

func TestGetStationOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(stationOfflineBody))
	}))
	defer srv.Close()

	c := &Client{StationBaseURL: srv.URL}
	st, err := c.GetStation(context.Background(), "streamer1")
	if err != nil {
		t.Fatalf("GetStation: %v", err)
	}
	if st.IsLive || st.ViewerCount != 0 {
		t.Fatalf("expected offline station, got %+v", st)
	}
}

func TestGetStationHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := &Client{StationBaseURL: srv.URL}
	if _, err := c.GetStation(context.Background(), "streamer1"); err == nil {
		t.Fatalf("expected error on HTTP 502")
	}
}

func TestGetLiveDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("bid") != "streamer1" {
			t.Errorf("unexpected bid %q", r.PostForm.Get("bid"))
		}
		w.Write([]byte(liveBody))
	}))
	defer srv.Close()

	c := &Client{LiveBaseURL: srv.URL}
	detail, err := c.GetLiveDetail(context.Background(), "streamer1")
	if err != nil {
		t.Fatalf("GetLiveDetail: %v", err)
	}
	if !detail.Live || detail.Title != "speedrun marathon" || detail.BroadNo != "123" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
}

func TestFetchMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(liveBody))
			return
		}
		w.Write([]byte(stationLiveBody))
	}))
	defer srv.Close()

	c := &Client{StationBaseURL: srv.URL, LiveBaseURL: srv.URL}
	meta, err := c.FetchMetadata(context.Background(), "streamer1")
	if err != nil {
		t.Fatalf("FetchMetadata: %v", err)
	}
	if meta.ChannelID != "streamer1" || meta.Title != "speedrun marathon" || meta.ViewerCount != 4821 {
		t.Fatalf("unexpected metadata: %+v", meta)
	}
	if meta.Timestamp.IsZero() {
		t.Fatalf("expected fetch timestamp to be set")
	}
}

func TestFetchMetadataOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(liveOfflineBody))
			return
		}
		w.Write([]byte(stationOfflineBody))
	}))
	defer srv.Close()

	c := &Client{StationBaseURL: srv.URL, LiveBaseURL: srv.URL}
	if _, err := c.FetchMetadata(context.Background(), "streamer1"); !errors.Is(err, ErrOffline) {
		t.Fatalf("expected ErrOffline, got %v", err)
	}
}
