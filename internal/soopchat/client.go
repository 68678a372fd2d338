// Package soopchat maintains the websocket connection to the platform's
// chat gateway and hands decoded raw events to the ingestion pipeline.
package soopchat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"nhooyr.io/websocket"
)

// Config selects the channel to join and where the gateway lives.
type Config struct {
	StreamerID string
	GatewayURL string // defaults to DefaultGatewayURL
	PingPeriod time.Duration
}

// DefaultGatewayURL is the production chat gateway endpoint; the streamer
// id is appended as a query parameter.
const DefaultGatewayURL = "wss://chat.sooplive.co.kr/ws"

const defaultPingPeriod = 30 * time.Second

// Handler receives every decoded raw event, in arrival order, on the
// client's read goroutine.
type Handler func(RawEvent)

// Client connects to the gateway and keeps the session alive, redialing
// with capped exponential backoff after transient failures. A normal
// close from the server ends the session: Run returns nil and the caller
// treats it as "broadcast ended".
type Client struct {
	cfg    Config
	handle Handler
}

// ErrSessionEnded reports that the gateway closed the stream normally.
var ErrSessionEnded = errors.New("soopchat: session ended by gateway")

func New(cfg Config, h Handler) *Client {
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = DefaultGatewayURL
	}
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = defaultPingPeriod
	}
	return &Client{cfg: cfg, handle: h}
}

// Run blocks until the session ends or ctx is cancelled. Transient
// connection failures are retried with backoff; a normal server close
// returns ErrSessionEnded.
func (c *Client) Run(ctx context.Context) error {
	if strings.TrimSpace(c.cfg.StreamerID) == "" {
		return errors.New("soopchat: streamer id is required")
	}

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := c.runOnce(ctx)
		switch {
		case err == nil, errors.Is(err, ErrSessionEnded):
			return ErrSessionEnded
		case ctx.Err() != nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return ctx.Err()
		}

		log.Printf("soopchat: disconnected: %v; reconnecting in %s", err, backoff)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if backoff < 60*time.Second {
			backoff *= 2
			if backoff > 60*time.Second {
				backoff = 60 * time.Second
			}
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	url := fmt.Sprintf("%s?channel=%s", c.cfg.GatewayURL, c.cfg.StreamerID)
	log.Printf("soopchat: connecting to %s", c.cfg.GatewayURL)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, url, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusInternalError, "closing")
	conn.SetReadLimit(1 << 20)

	// Keepalive pings on a side goroutine; its failure surfaces through
	// the blocked Read below once the connection is gone.
	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go func() {
		ticker := time.NewTicker(c.cfg.PingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				if err := conn.Ping(pingCtx); err != nil {
					return
				}
			}
		}
	}()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return ErrSessionEnded
			}
			return fmt.Errorf("read: %w", err)
		}
		if typ != websocket.MessageText {
			continue
		}

		ev, err := decodeFrame(data, time.Now().UTC())
		if err != nil {
			if errors.Is(err, errUnknownFrame) {
				continue
			}
			log.Printf("soopchat: bad frame: %v", err)
			continue
		}
		if c.handle != nil {
			c.handle(ev)
		}
	}
}
