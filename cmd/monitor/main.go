package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/you/soopcast/internal/addon"
	"github.com/you/soopcast/internal/addons/dblogger"
	"github.com/you/soopcast/internal/addons/enrich"
	"github.com/you/soopcast/internal/addons/uinotify"
	"github.com/you/soopcast/internal/config"
	"github.com/you/soopcast/internal/controller"
	"github.com/you/soopcast/internal/core"
	"github.com/you/soopcast/internal/eventbus"
	"github.com/you/soopcast/internal/httpapi"
	"github.com/you/soopcast/internal/mapper"
	"github.com/you/soopcast/internal/scheduler"
	"github.com/you/soopcast/internal/sentiment"
	"github.com/you/soopcast/internal/soopapi"
	"github.com/you/soopcast/internal/soopchat"
	"github.com/you/soopcast/internal/stats"
	"github.com/you/soopcast/internal/store"
	"github.com/you/soopcast/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	var (
		versionFlag   bool
		channelID     string
		gatewayURL    string
		dbPath        string
		windowMS      int
		flushTickMS   int
		httpAddr      string
		httpRateRPS   float64
		httpRateBurst int
		lexiconPath   string
		sentimentOn   bool
	)

	flag.BoolVar(&versionFlag, "version", false, "Print build version and exit")
	flag.StringVar(&channelID, "channel", "", "SOOP channel (streamer) id to monitor")
	flag.StringVar(&gatewayURL, "gateway-url", "", "Chat gateway WebSocket URL")
	flag.StringVar(&dbPath, "sqlite", "", "Path to SQLite database file")
	flag.IntVar(&windowMS, "window-ms", 0, "Donation correlation window in milliseconds")
	flag.IntVar(&flushTickMS, "flush-tick-ms", 0, "Donation flush tick in milliseconds")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP status/stream address (e.g., :8790)")
	flag.Float64Var(&httpRateRPS, "http-rate-rps", 0, "Maximum HTTP requests per second per client")
	flag.IntVar(&httpRateBurst, "http-rate-burst", 0, "Burst size for HTTP rate limiter")
	flag.StringVar(&lexiconPath, "lexicon", "", "Path to sentiment lexicon file")
	flag.BoolVar(&sentimentOn, "sentiment", true, "Enable sentiment analysis")
	flag.Parse()

	if versionFlag {
		fmt.Printf(
			"monitor version: %s (commit %s, built %s)\n",
			version.Version,
			version.Commit,
			version.BuildTime,
		)
		os.Exit(0)
	}

	overrides := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		overrides[f.Name] = true
	})

	cfg := config.Load()
	if overrides["channel"] {
		cfg.Channel.ID = strings.TrimSpace(channelID)
	}
	if overrides["gateway-url"] {
		cfg.Channel.GatewayURL = strings.TrimSpace(gatewayURL)
	}
	if overrides["sqlite"] {
		cfg.Logger.SQLitePath = strings.TrimSpace(dbPath)
	}
	if overrides["window-ms"] && windowMS > 0 {
		cfg.Correlate.WindowMS = windowMS
	}
	if overrides["flush-tick-ms"] && flushTickMS > 0 {
		cfg.Correlate.FlushTickMS = flushTickMS
	}
	if overrides["http-addr"] {
		cfg.HTTP.Addr = strings.TrimSpace(httpAddr)
	}
	if overrides["http-rate-rps"] && httpRateRPS > 0 {
		cfg.HTTP.RateRPS = httpRateRPS
	}
	if overrides["http-rate-burst"] && httpRateBurst > 0 {
		cfg.HTTP.RateBurst = httpRateBurst
	}
	if overrides["lexicon"] {
		cfg.Sentiment.LexiconPath = strings.TrimSpace(lexiconPath)
	}
	if overrides["sentiment"] {
		cfg.Sentiment.Enabled = sentimentOn
	}

	if cfg.Channel.ID == "" {
		log.Fatal("monitor: channel id is required (-channel or SOOPCAST_CHANNEL_ID)")
	}

	log.Printf("%s", cfg.SummaryJSON())

	logger := slog.Default()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("monitor: received %s, shutting down", sig)
		cancel()
	}()

	st, err := store.Open(cfg.Logger.SQLitePath)
	if err != nil {
		log.Fatalf("monitor: open store: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("monitor: closing store: %v", err)
		}
	}()
	if err := st.Ping(ctx); err != nil {
		log.Fatalf("monitor: ping store: %v", err)
	}

	var analyzer *sentiment.Analyzer
	lexiconStop := make(chan struct{})
	defer close(lexiconStop)
	if cfg.Sentiment.Enabled {
		analyzer = sentiment.NewAnalyzer()
		if path := cfg.Sentiment.LexiconPath; path != "" {
			if err := analyzer.LoadLexicon(path); err != nil {
				log.Printf("monitor: load lexicon: %v", err)
			}
			if err := analyzer.Watch(path, lexiconStop); err != nil {
				log.Printf("monitor: watch lexicon: %v", err)
			}
		}
	}

	pipe := mapper.New(cfg.Channel.ID, cfg.CorrelationWindow())
	manager := addon.NewManager()
	bus := eventbus.New()

	// Declared before the server so the probes can close over them; both
	// are assigned before any request can arrive.
	var (
		engine *stats.Engine
		dblog  *dblogger.Addon
		ctrl   *controller.Controller
	)

	srv := httpapi.New(httpapi.Probes{
		PendingDonations: pipe.PendingDonations,
		ChatHistory:      func() int { return engine.ChatLen() },
		DonationHistory:  func() int { return engine.DonationLen() },
		BufferedRows:     func() int { return dblog.BufferedRows() },
		Addons:           manager.Count,
		Metadata:         func() *core.BroadcastMetadata { return ctrl.Metadata() },
	}, httpapi.Options{
		Addr:       cfg.HTTP.Addr,
		RateRPS:    cfg.HTTP.RateRPS,
		RateBurst:  cfg.HTTP.RateBurst,
		ConfigJSON: cfg.RedactedJSON(),
		AuthToken:  cfg.HTTP.AuthToken,
	})

	engine = stats.NewEngine(stats.Options{
		BaseTick:      cfg.StatsBaseTick(),
		SweepInterval: cfg.StatsSweep(),
		Retention:     cfg.StatsRetention(),
		ChatCap:       cfg.Stats.ChatCap,
		DonationCap:   cfg.Stats.DonationCap,
	}, httpapi.MatrixSink{Server: srv})

	dblog = dblogger.New(st, cfg.Channel.ID, dblogger.Options{
		BatchSize:     cfg.Logger.BatchSize,
		FlushInterval: cfg.LogFlushInterval(),
		MaxBuffer:     cfg.Logger.MaxBuffer,
	}, logger)

	manager.Register(enrich.New(engine, analyzer))
	manager.Register(dblog)
	manager.Register(uinotify.New())

	ctrl = controller.New(controller.Options{
		ChannelID:       cfg.Channel.ID,
		FlushTick:       cfg.FlushTick(),
		MetadataRefresh: cfg.MetadataRefresh(),
		Mapper:          pipe,
		Manager:         manager,
		Engine:          engine,
		Bus:             bus,
		Scheduler:       scheduler.New(),
		Notifier:        srv,
		Store:           st,
		Metadata:        &soopapi.Client{},
		NewSource: func(h func(soopchat.RawEvent)) controller.Source {
			return soopchat.New(soopchat.Config{
				StreamerID: cfg.Channel.ID,
				GatewayURL: cfg.Channel.GatewayURL,
			}, h)
		},
		OnDispatch: srv.Metrics().IncEventsDispatched,
		Logger:     logger,
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("monitor: http api: %v", err)
		}
	}()

	recv := bus.Subscribe("main")
	go func() {
		for {
			ev, ok := recv.Recv(ctx)
			if !ok {
				return
			}
			if ev.Err != "" {
				log.Printf("monitor: %s component=%s err=%s", ev.Type, ev.Component, ev.Err)
				continue
			}
			log.Printf("monitor: %s", ev.Type)
		}
	}()

	ctrl.Start(ctx)

	select {
	case <-ctx.Done():
	case <-ctrl.Done():
		log.Printf("monitor: session ended, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	ctrl.Stop(shutdownCtx)
	bus.Unsubscribe("main")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("monitor: http shutdown: %v", err)
	}
}
