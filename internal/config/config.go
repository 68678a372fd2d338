package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Channel   ChannelConfig
	Correlate CorrelateConfig
	Stats     StatsConfig
	Logger    LoggerConfig
	HTTP      HTTPConfig
	Sentiment SentimentConfig
}

type ChannelConfig struct {
	ID                 string
	GatewayURL         string
	MetadataRefreshSec int
}

type CorrelateConfig struct {
	WindowMS    int
	FlushTickMS int
}

type StatsConfig struct {
	BaseTickMS   int
	SweepMS      int
	RetentionMin int
	ChatCap      int
	DonationCap  int
}

type LoggerConfig struct {
	SQLitePath      string
	BatchSize       int
	FlushIntervalMS int
	MaxBuffer       int
}

type HTTPConfig struct {
	Addr      string
	RateRPS   float64
	RateBurst int
	AuthToken string
}

type SentimentConfig struct {
	Enabled     bool
	LexiconPath string
}

const (
	defaultGatewayURL      = "wss://chat.sooplive.co.kr/ws"
	defaultMetadataSec     = 60
	defaultWindowMS        = 500
	defaultFlushTickMS     = 50
	defaultBaseTickMS      = 2500
	defaultSweepMS         = 1000
	defaultRetentionMin    = 10
	defaultChatCap         = 50000
	defaultDonationCap     = 5000
	defaultSQLitePath      = "soopcast.db"
	defaultBatchSize       = 100
	defaultFlushIntervalMS = 5000
	defaultMaxBuffer       = 1000
	defaultHTTPAddr        = ":8790"
	defaultRateRPS         = 10
	defaultRateBurst       = 20
)

func Load() Config {
	cfg := Config{}

	cfg.Channel.ID = strings.TrimSpace(os.Getenv("SOOPCAST_CHANNEL_ID"))
	cfg.Channel.GatewayURL = strings.TrimSpace(os.Getenv("SOOPCAST_GATEWAY_URL"))
	if cfg.Channel.GatewayURL == "" {
		cfg.Channel.GatewayURL = defaultGatewayURL
	}
	cfg.Channel.MetadataRefreshSec = readInt("SOOPCAST_METADATA_REFRESH_SEC", defaultMetadataSec)

	cfg.Correlate.WindowMS = readInt("SOOPCAST_CORRELATION_WINDOW_MS", defaultWindowMS)
	cfg.Correlate.FlushTickMS = readInt("SOOPCAST_FLUSH_TICK_MS", defaultFlushTickMS)

	cfg.Stats.BaseTickMS = readInt("SOOPCAST_STATS_BASE_TICK_MS", defaultBaseTickMS)
	cfg.Stats.SweepMS = readInt("SOOPCAST_STATS_SWEEP_MS", defaultSweepMS)
	cfg.Stats.RetentionMin = readInt("SOOPCAST_STATS_RETENTION_MIN", defaultRetentionMin)
	cfg.Stats.ChatCap = readInt("SOOPCAST_STATS_CHAT_CAP", defaultChatCap)
	cfg.Stats.DonationCap = readInt("SOOPCAST_STATS_DONATION_CAP", defaultDonationCap)

	cfg.Logger.SQLitePath = strings.TrimSpace(os.Getenv("SOOPCAST_SQLITE_PATH"))
	if cfg.Logger.SQLitePath == "" {
		cfg.Logger.SQLitePath = defaultSQLitePath
	}
	cfg.Logger.BatchSize = readInt("SOOPCAST_LOG_BATCH_SIZE", defaultBatchSize)
	cfg.Logger.FlushIntervalMS = readInt("SOOPCAST_LOG_FLUSH_MS", defaultFlushIntervalMS)
	cfg.Logger.MaxBuffer = readInt("SOOPCAST_LOG_MAX_BUFFER", defaultMaxBuffer)

	cfg.HTTP.Addr = strings.TrimSpace(os.Getenv("SOOPCAST_HTTP_ADDR"))
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = defaultHTTPAddr
	}
	cfg.HTTP.RateRPS = readFloat("SOOPCAST_HTTP_RATE_RPS", defaultRateRPS)
	cfg.HTTP.RateBurst = readInt("SOOPCAST_HTTP_RATE_BURST", defaultRateBurst)
	cfg.HTTP.AuthToken = strings.TrimSpace(os.Getenv("SOOPCAST_HTTP_AUTH_TOKEN"))

	cfg.Sentiment.LexiconPath = strings.TrimSpace(os.Getenv("SOOPCAST_LEXICON_PATH"))
	cfg.Sentiment.Enabled = readBool("SOOPCAST_SENTIMENT_ENABLED", true)

	return cfg
}

func readInt(name string, def int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n <= 0 {
		return def
	}
	return n
}

func readFloat(name string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	if f <= 0 {
		return def
	}
	return f
}

func readBool(name string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func (c Config) CorrelationWindow() time.Duration {
	return time.Duration(c.Correlate.WindowMS) * time.Millisecond
}

func (c Config) FlushTick() time.Duration {
	return time.Duration(c.Correlate.FlushTickMS) * time.Millisecond
}

func (c Config) StatsBaseTick() time.Duration {
	return time.Duration(c.Stats.BaseTickMS) * time.Millisecond
}

func (c Config) StatsSweep() time.Duration {
	return time.Duration(c.Stats.SweepMS) * time.Millisecond
}

func (c Config) StatsRetention() time.Duration {
	return time.Duration(c.Stats.RetentionMin) * time.Minute
}

func (c Config) LogFlushInterval() time.Duration {
	return time.Duration(c.Logger.FlushIntervalMS) * time.Millisecond
}

func (c Config) MetadataRefresh() time.Duration {
	return time.Duration(c.Channel.MetadataRefreshSec) * time.Second
}

func (c Config) Redacted() map[string]any {
	return map[string]any{
		"channel": map[string]any{
			"id":                   c.Channel.ID,
			"gateway_url":          c.Channel.GatewayURL,
			"metadata_refresh_sec": c.Channel.MetadataRefreshSec,
		},
		"correlate": map[string]any{
			"window_ms":     c.Correlate.WindowMS,
			"flush_tick_ms": c.Correlate.FlushTickMS,
		},
		"stats": map[string]any{
			"base_tick_ms":  c.Stats.BaseTickMS,
			"sweep_ms":      c.Stats.SweepMS,
			"retention_min": c.Stats.RetentionMin,
			"chat_cap":      c.Stats.ChatCap,
			"donation_cap":  c.Stats.DonationCap,
		},
		"logger": map[string]any{
			"sqlite_path": c.Logger.SQLitePath,
			"batch_size":  c.Logger.BatchSize,
			"flush_ms":    c.Logger.FlushIntervalMS,
			"max_buffer":  c.Logger.MaxBuffer,
		},
		"http": map[string]any{
			"addr":       c.HTTP.Addr,
			"rate_rps":   c.HTTP.RateRPS,
			"rate_burst": c.HTTP.RateBurst,
			"auth_token": redactString(c.HTTP.AuthToken),
		},
		"sentiment": map[string]any{
			"enabled":      c.Sentiment.Enabled,
			"lexicon_path": c.Sentiment.LexiconPath,
		},
	}
}

func (c Config) RedactedJSON() []byte {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return data
}

type Summary struct {
	ChannelID    string  `json:"channel_id"`
	GatewayURL   string  `json:"gateway_url"`
	WindowMS     int     `json:"window_ms"`
	FlushTickMS  int     `json:"flush_tick_ms"`
	BaseTickMS   int     `json:"base_tick_ms"`
	RetentionMin int     `json:"retention_min"`
	SQLitePath   string  `json:"sqlite_path"`
	BatchSize    int     `json:"batch"`
	HTTPAddr     string  `json:"http_addr"`
	RateRPS      float64 `json:"rate_rps"`
	Sentiment    bool    `json:"sentiment"`
}

func (c Config) Summary() Summary {
	return Summary{
		ChannelID:    c.Channel.ID,
		GatewayURL:   c.Channel.GatewayURL,
		WindowMS:     c.Correlate.WindowMS,
		FlushTickMS:  c.Correlate.FlushTickMS,
		BaseTickMS:   c.Stats.BaseTickMS,
		RetentionMin: c.Stats.RetentionMin,
		SQLitePath:   c.Logger.SQLitePath,
		BatchSize:    c.Logger.BatchSize,
		HTTPAddr:     c.HTTP.Addr,
		RateRPS:      c.HTTP.RateRPS,
		Sentiment:    c.Sentiment.Enabled,
	}
}

func (c Config) SummaryJSON() []byte {
	summary := struct {
		Config Summary `json:"config_summary"`
	}{Config: c.Summary()}
	data, _ := json.Marshal(summary)
	return data
}

func redactString(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return "***REDACTED*** (len=" + strconv.Itoa(len(value)) + ")"
}
