// Package soopapi is a minimal client for the SOOP platform HTTP APIs:
// the station endpoint (broadcast start time, viewer count) and the live
// player endpoint (title, live state). Only the fields the monitor needs
// are decoded.
package soopapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultStationBaseURL = "https://chapi.sooplive.co.kr"
	DefaultLiveBaseURL    = "https://live.sooplive.co.kr"

	defaultRequestTimeout = 15 * time.Second

	// broad_start arrives as a bare local timestamp.
	broadStartLayout = "2006-01-02 15:04:05"
)

// ErrOffline is returned when the channel exists but is not currently
// broadcasting.
var ErrOffline = errors.New("soopapi: channel is not live")

type Client struct {
	StationBaseURL string
	LiveBaseURL    string
	HTTP           *http.Client
}

// Station is the subset of the station endpoint the monitor reads.
type Station struct {
	BroadStart  time.Time
	ViewerCount uint64
	IsLive      bool
}

// LiveDetail is the subset of the player live endpoint the monitor
// reads.
type LiveDetail struct {
	Live    bool
	Title   string
	BroadNo string
}

type stationResponse struct {
	Station struct {
		UserID     string `json:"user_id"`
		BroadStart string `json:"broad_start"`
	} `json:"station"`
	Broad *struct {
		BroadNo          int    `json:"broad_no"`
		CurrentSumViewer uint64 `json:"current_sum_viewer"`
	} `json:"broad"`
}

type liveResponse struct {
	Channel struct {
		Result  json.Number `json:"RESULT"`
		Title   string      `json:"TITLE"`
		BroadNo string      `json:"BNO"`
	} `json:"CHANNEL"`
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

func (c *Client) stationBase() string {
	if c.StationBaseURL != "" {
		return strings.TrimRight(c.StationBaseURL, "/")
	}
	return DefaultStationBaseURL
}

func (c *Client) liveBase() string {
	if c.LiveBaseURL != "" {
		return strings.TrimRight(c.LiveBaseURL, "/")
	}
	return DefaultLiveBaseURL
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), defaultRequestTimeout)
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultRequestTimeout)
}

// GetStation fetches broadcast start time and viewer count for the
// channel. IsLive is false when the platform reports no current
// broadcast.
func (c *Client) GetStation(ctx context.Context, channelID string) (Station, error) {
	reqCtx, cancel := withTimeout(ctx)
	defer cancel()

	endpoint := fmt.Sprintf("%s/api/%s/station", c.stationBase(), url.PathEscape(channelID))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Station{}, fmt.Errorf("soopapi: create station request: %w", err)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return Station{}, fmt.Errorf("soopapi: station request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Station{}, fmt.Errorf("soopapi: read station response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Station{}, fmt.Errorf("soopapi: station request failed: status %d", resp.StatusCode)
	}

	var parsed stationResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Station{}, fmt.Errorf("soopapi: decode station response: %w", err)
	}

	st := Station{IsLive: parsed.Broad != nil}
	if parsed.Broad != nil {
		st.ViewerCount = parsed.Broad.CurrentSumViewer
	}
	if raw := strings.TrimSpace(parsed.Station.BroadStart); raw != "" {
		start, err := time.Parse(broadStartLayout, raw)
		if err != nil {
			return Station{}, fmt.Errorf("soopapi: parse broad_start %q: %w", raw, err)
		}
		st.BroadStart = start.UTC()
	}
	return st, nil
}

// GetLiveDetail fetches the live title for the channel. Live is false
// when the player API reports the channel offline.
func (c *Client) GetLiveDetail(ctx context.Context, channelID string) (LiveDetail, error) {
	reqCtx, cancel := withTimeout(ctx)
	defer cancel()

	form := url.Values{}
	form.Set("bid", channelID)
	form.Set("type", "live")

	endpoint := c.liveBase() + "/afreeca/player_live_api.php"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return LiveDetail{}, fmt.Errorf("soopapi: create live request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return LiveDetail{}, fmt.Errorf("soopapi: live request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return LiveDetail{}, fmt.Errorf("soopapi: read live response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return LiveDetail{}, fmt.Errorf("soopapi: live request failed: status %d", resp.StatusCode)
	}

	var parsed liveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return LiveDetail{}, fmt.Errorf("soopapi: decode live response: %w", err)
	}

	result, _ := parsed.Channel.Result.Int64()
	return LiveDetail{
		Live:    result == 1,
		Title:   parsed.Channel.Title,
		BroadNo: parsed.Channel.BroadNo,
	}, nil
}
