// Package controller wires the ingest, correlation, dispatch and stats
// components into one lifecycle: Start brings the pipeline up, Stop
// drains it in reverse order.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/you/soopcast/internal/addon"
	"github.com/you/soopcast/internal/core"
	"github.com/you/soopcast/internal/eventbus"
	"github.com/you/soopcast/internal/mapper"
	"github.com/you/soopcast/internal/scheduler"
	"github.com/you/soopcast/internal/soopchat"
	"github.com/you/soopcast/internal/stats"
)

const (
	taskDonationFlush   = "donation_flush"
	taskMetadataRefresh = "metadata_refresh"
	taskViewerRefresh   = "viewer_refresh"
)

// MetadataClient fetches the broadcast snapshot from the platform.
type MetadataClient interface {
	FetchMetadata(ctx context.Context, channelID string) (core.BroadcastMetadata, error)
}

// ViewerCounter is the light refresh path: the viewer count changes far
// more often than the rest of the snapshot, so clients that support it
// get polled between full fetches.
type ViewerCounter interface {
	UpdateViewerCount(ctx context.Context, channelID string) (uint64, error)
}

// Source is the raw event feed. Run blocks until the context is
// cancelled, reconnecting internally.
type Source interface {
	Run(ctx context.Context) error
}

type Options struct {
	ChannelID       string
	FlushTick       time.Duration
	MetadataRefresh time.Duration
	ViewerRefresh   time.Duration

	Mapper    *mapper.Mapper
	Manager   *addon.Manager
	Engine    *stats.Engine
	Bus       *eventbus.Bus
	Scheduler *scheduler.Scheduler
	Notifier  addon.Notifier
	Store     addon.Store
	Metadata  MetadataClient

	// NewSource builds the feed around the controller's raw handler.
	// Nil means no live source (tests drive HandleRaw directly).
	NewSource func(h func(soopchat.RawEvent)) Source

	// OnDispatch is called once per dispatched event with the kind
	// name. Optional; used for metrics.
	OnDispatch func(kind string)

	Logger *slog.Logger
}

type Controller struct {
	opts   Options
	logger *slog.Logger

	runCtx    context.Context
	runCancel context.CancelFunc

	metaMu sync.RWMutex
	meta   *core.BroadcastMetadata

	startOnce sync.Once
	stopOnce  sync.Once
	sourceErr chan error
	done      chan struct{}
}

func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.FlushTick <= 0 {
		opts.FlushTick = mapper.DefaultFlushInterval
	}
	if opts.MetadataRefresh <= 0 {
		opts.MetadataRefresh = time.Minute
	}
	if opts.ViewerRefresh <= 0 {
		opts.ViewerRefresh = 30 * time.Second
	}
	return &Controller{
		opts:      opts,
		logger:    logger,
		sourceErr: make(chan error, 1),
		done:      make(chan struct{}),
	}
}

// Done is closed when the live source terminates on its own, which ends
// the broadcast session. Callers should treat it like a shutdown signal
// and run Stop.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Metadata returns the latest broadcast snapshot, or nil before the
// first successful fetch.
func (c *Controller) Metadata() *core.BroadcastMetadata {
	c.metaMu.RLock()
	defer c.metaMu.RUnlock()
	return c.meta
}

func (c *Controller) setMetadata(meta core.BroadcastMetadata) {
	c.metaMu.Lock()
	c.meta = &meta
	c.metaMu.Unlock()
}

func (c *Controller) addonContext() *addon.Context {
	return &addon.Context{
		Notifier: c.opts.Notifier,
		Store:    c.opts.Store,
		Metadata: c.Metadata(),
	}
}

// Start brings the pipeline up: initial metadata, stats engine,
// recurring tasks and the live source. Safe to call once.
func (c *Controller) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.runCtx, c.runCancel = context.WithCancel(ctx)

		if c.opts.Metadata != nil {
			if meta, err := c.opts.Metadata.FetchMetadata(c.runCtx, c.opts.ChannelID); err != nil {
				c.logger.Warn("initial metadata fetch failed", "channel", c.opts.ChannelID, "err", err)
				c.publish(eventbus.SystemEvent{Type: eventbus.MetadataFetchFailed, Component: "metadata", Err: err.Error()})
			} else {
				c.setMetadata(meta)
				c.publish(eventbus.SystemEvent{Type: eventbus.MetadataUpdated, Metadata: &meta})
			}
		}

		if c.opts.Engine != nil {
			c.opts.Engine.Start()
		}

		if c.opts.Scheduler != nil {
			c.opts.Scheduler.ScheduleRecurring(taskDonationFlush, c.opts.FlushTick, func(context.Context) {
				c.dispatchAll(c.opts.Mapper.FlushExpired(time.Now()))
			})
			if c.opts.Metadata != nil {
				c.opts.Scheduler.ScheduleRecurring(taskMetadataRefresh, c.opts.MetadataRefresh, c.refreshMetadata)
				if vc, ok := c.opts.Metadata.(ViewerCounter); ok {
					c.opts.Scheduler.ScheduleRecurring(taskViewerRefresh, c.opts.ViewerRefresh, func(ctx context.Context) {
						c.refreshViewerCount(ctx, vc)
					})
				}
			}
		}

		if c.opts.NewSource != nil {
			src := c.opts.NewSource(c.HandleRaw)
			go func() {
				err := src.Run(c.runCtx)
				if c.runCtx.Err() == nil {
					switch {
					case errors.Is(err, soopchat.ErrSessionEnded):
						c.logger.Info("broadcast session ended", "channel", c.opts.ChannelID)
						c.publish(eventbus.SystemEvent{Type: eventbus.SessionEnded, Component: "source"})
					case err != nil:
						c.logger.Error("source terminated", "err", err)
						c.publish(eventbus.SystemEvent{Type: eventbus.ComponentError, Component: "source", Err: err.Error()})
					}
					close(c.done)
				}
				c.sourceErr <- err
			}()
		} else {
			c.sourceErr <- nil
		}

		c.publish(eventbus.SystemEvent{Type: eventbus.SystemStarted})
		c.logger.Info("pipeline started", "channel", c.opts.ChannelID)
	})
}

// HandleRaw feeds one wire event through the mapper and dispatches the
// finalized result, if any. Donations do not produce an event here;
// they surface later through the flush task.
func (c *Controller) HandleRaw(raw soopchat.RawEvent) {
	ev, ok := c.opts.Mapper.Process(raw)
	if !ok {
		return
	}
	c.dispatch(ev)
}

func (c *Controller) dispatch(ev core.DomainEvent) {
	ctx := c.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	c.opts.Manager.Dispatch(ctx, c.addonContext(), ev)
	if c.opts.OnDispatch != nil {
		c.opts.OnDispatch(ev.Kind.String())
	}
}

func (c *Controller) dispatchAll(events []core.DomainEvent) {
	for _, ev := range events {
		c.dispatch(ev)
	}
}

// refreshMetadata replaces the snapshot wholesale and dispatches a
// metadata update event so addons see the new title and viewer count.
func (c *Controller) refreshMetadata(ctx context.Context) {
	meta, err := c.opts.Metadata.FetchMetadata(ctx, c.opts.ChannelID)
	if err != nil {
		c.logger.Warn("metadata refresh failed", "channel", c.opts.ChannelID, "err", err)
		c.publish(eventbus.SystemEvent{Type: eventbus.MetadataFetchFailed, Component: "metadata", Err: err.Error()})
		return
	}
	c.setMetadata(meta)
	c.publish(eventbus.SystemEvent{Type: eventbus.MetadataUpdated, Metadata: &meta})

	c.dispatch(core.DomainEvent{
		Kind: core.KindMetadataUpdate,
		Metadata: &core.MetadataEvent{
			ID:          uuid.New(),
			Timestamp:   time.Now().UTC(),
			ChannelID:   meta.ChannelID,
			Title:       meta.Title,
			StartedAt:   meta.StartedAt,
			ViewerCount: meta.ViewerCount,
		},
	})
}

// refreshViewerCount updates only the viewer count between full
// fetches. Skipped until the first full snapshot exists.
func (c *Controller) refreshViewerCount(ctx context.Context, vc ViewerCounter) {
	current := c.Metadata()
	if current == nil {
		return
	}
	count, err := vc.UpdateViewerCount(ctx, c.opts.ChannelID)
	if err != nil {
		c.logger.Warn("viewer count refresh failed", "channel", c.opts.ChannelID, "err", err)
		return
	}

	meta := *current
	meta.ViewerCount = count
	meta.Timestamp = time.Now().UTC()
	c.setMetadata(meta)
	c.publish(eventbus.SystemEvent{Type: eventbus.MetadataUpdated, Metadata: &meta})

	c.dispatch(core.DomainEvent{
		Kind: core.KindMetadataUpdate,
		Metadata: &core.MetadataEvent{
			ID:          uuid.New(),
			Timestamp:   meta.Timestamp,
			ChannelID:   meta.ChannelID,
			Title:       meta.Title,
			StartedAt:   meta.StartedAt,
			ViewerCount: meta.ViewerCount,
		},
	})
}

func (c *Controller) publish(ev eventbus.SystemEvent) {
	if c.opts.Bus != nil {
		c.opts.Bus.Publish(ev)
	}
}

// Stop drains the pipeline: cancel the recurring tasks and the source,
// flush every pending donation, stop the stats engine, then give each
// addon its final flush. Safe to call once; later calls are no-ops.
func (c *Controller) Stop(ctx context.Context) {
	c.stopOnce.Do(func() {
		c.publish(eventbus.SystemEvent{Type: eventbus.SystemStopping})

		if c.opts.Scheduler != nil {
			c.opts.Scheduler.CancelAll()
		}
		if c.runCancel != nil {
			c.runCancel()
			<-c.sourceErr
		}

		c.dispatchAll(c.opts.Mapper.FlushAll())

		if c.opts.Engine != nil {
			c.opts.Engine.Stop()
		}

		c.opts.Manager.StopAll(ctx, c.addonContext())

		c.publish(eventbus.SystemEvent{Type: eventbus.SystemStopped})
		c.logger.Info("pipeline stopped", "channel", c.opts.ChannelID)
	})
}
