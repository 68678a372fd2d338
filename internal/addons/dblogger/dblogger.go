// Package dblogger persists chat and event logs to the SQLite store in
// batches so each incoming message costs one append, not one write.
package dblogger

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/you/soopcast/internal/addon"
	"github.com/you/soopcast/internal/core"
	"github.com/you/soopcast/internal/store"
)

const (
	DefaultBatchSize     = 100
	DefaultFlushInterval = 5 * time.Second
	DefaultMaxBuffer     = 1000
)

// Options tune the write batching. Zero values fall back to the
// defaults above.
type Options struct {
	BatchSize     int
	FlushInterval time.Duration
	MaxBuffer     int
}

func (o *Options) fill() {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = DefaultFlushInterval
	}
	if o.MaxBuffer <= 0 {
		o.MaxBuffer = DefaultMaxBuffer
	}
}

// Addon buffers rows and writes them through the store's single writer.
// A broadcast session row is created lazily on the first persisted
// event and closed on Stop.
type Addon struct {
	addon.Nop

	store     addon.Store
	channelID string
	buf       *buffer
	logger    *slog.Logger

	mu          sync.Mutex
	broadcastID int64
	sessionOpen bool
	meta        *core.BroadcastMetadata
}

func New(st addon.Store, channelID string, opts Options, logger *slog.Logger) *Addon {
	opts.fill()
	if logger == nil {
		logger = slog.Default()
	}
	a := &Addon{
		store:     st,
		channelID: channelID,
		logger:    logger,
	}
	a.buf = newBuffer(opts.BatchSize, opts.FlushInterval, opts.MaxBuffer, a.writeBatch)
	return a
}

func (a *Addon) Name() string { return "db_logger" }

func (a *Addon) writeBatch(chats []store.ChatLog, events []store.EventLog) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if len(chats) > 0 {
		if err := a.store.InsertChatLogs(ctx, chats); err != nil {
			return err
		}
	}
	if len(events) > 0 {
		if err := a.store.InsertEventLogs(ctx, events); err != nil {
			return err
		}
	}
	return nil
}

// ensureSession creates the broadcast session row on first use. The
// title and start time come from the latest metadata snapshot when one
// exists.
func (a *Addon) ensureSession(ctx context.Context, at time.Time) (int64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sessionOpen {
		return a.broadcastID, true
	}

	title := ""
	startedAt := at
	if a.meta != nil {
		title = a.meta.Title
		if !a.meta.StartedAt.IsZero() {
			startedAt = a.meta.StartedAt
		}
	}
	id, err := a.store.CreateBroadcastSession(ctx, a.channelID, title, startedAt)
	if err != nil {
		a.logger.Error("db_logger: create broadcast session", "err", err)
		return 0, false
	}
	a.broadcastID = id
	a.sessionOpen = true
	return id, true
}

func (a *Addon) observeMetadata(actx *addon.Context) {
	if actx == nil || actx.Metadata == nil {
		return
	}
	a.mu.Lock()
	a.meta = actx.Metadata
	a.mu.Unlock()
}

func (a *Addon) OnChat(ctx context.Context, actx *addon.Context, ev *core.ChatEvent) {
	a.observeMetadata(actx)
	id, ok := a.ensureSession(ctx, ev.Timestamp)
	if !ok {
		return
	}
	err := a.buf.AddChat(store.ChatLog{
		BroadcastID: id,
		UserID:      ev.User.ID,
		UserLabel:   ev.User.Label,
		Message:     ev.Comment,
		MessageType: string(ev.ChatType),
		IsAdmin:     ev.IsAdmin,
		Timestamp:   ev.Timestamp,
	})
	if err != nil {
		a.logger.Error("db_logger: buffer chat", "err", err)
	}
}

// logEvent serializes the payload and enqueues one event_logs row.
// Marshal failures are logged and dropped; one bad payload must not
// stall the pipeline.
func (a *Addon) logEvent(ctx context.Context, eventType, userID string, at time.Time, payload any) {
	id, ok := a.ensureSession(ctx, at)
	if !ok {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		a.logger.Error("db_logger: marshal payload", "event_type", eventType, "err", err)
		return
	}
	if err := a.buf.AddEvent(store.EventLog{
		BroadcastID: id,
		EventType:   eventType,
		UserID:      userID,
		Payload:     string(body),
		Timestamp:   at,
	}); err != nil {
		a.logger.Error("db_logger: buffer event", "event_type", eventType, "err", err)
	}
}

func (a *Addon) OnDonation(ctx context.Context, actx *addon.Context, ev *core.DonationEvent) {
	a.observeMetadata(actx)
	a.logEvent(ctx, core.EventTypeDonation, ev.From, ev.Timestamp, ev)
}

func (a *Addon) OnSubscribe(ctx context.Context, actx *addon.Context, ev *core.SubscribeEvent) {
	a.observeMetadata(actx)
	a.logEvent(ctx, core.EventTypeSubscribe, ev.UserID, ev.Timestamp, ev)
}

func (a *Addon) OnKickCancel(ctx context.Context, actx *addon.Context, ev *core.SimpleUserEvent) {
	a.observeMetadata(actx)
	a.logEvent(ctx, core.EventTypeKickCancel, ev.UserID, ev.Timestamp, ev)
}

func (a *Addon) OnMute(ctx context.Context, actx *addon.Context, ev *core.MuteEvent) {
	a.observeMetadata(actx)
	a.logEvent(ctx, core.EventTypeMute, ev.User.ID, ev.Timestamp, ev)
}

func (a *Addon) OnBlack(ctx context.Context, actx *addon.Context, ev *core.SimpleUserEvent) {
	a.observeMetadata(actx)
	a.logEvent(ctx, core.EventTypeBlack, ev.UserID, ev.Timestamp, ev)
}

func (a *Addon) OnFreeze(ctx context.Context, actx *addon.Context, ev *core.FreezeEvent) {
	a.observeMetadata(actx)
	a.logEvent(ctx, core.EventTypeFreeze, "", ev.Timestamp, ev)
}

func (a *Addon) OnNotification(ctx context.Context, actx *addon.Context, ev *core.NotificationEvent) {
	a.observeMetadata(actx)
	a.logEvent(ctx, core.EventTypeNotification, "", ev.Timestamp, ev)
}

func (a *Addon) OnMissionDonation(ctx context.Context, actx *addon.Context, ev *core.MissionEvent) {
	a.observeMetadata(actx)
	a.logEvent(ctx, core.EventTypeMissionDonation, ev.From, ev.Timestamp, ev)
}

func (a *Addon) OnMissionTotal(ctx context.Context, actx *addon.Context, ev *core.MissionTotalEvent) {
	a.observeMetadata(actx)
	a.logEvent(ctx, core.EventTypeMissionTotal, "", ev.Timestamp, ev)
}

func (a *Addon) OnBattleMissionResult(ctx context.Context, actx *addon.Context, ev *core.BattleMissionResultEvent) {
	a.observeMetadata(actx)
	a.logEvent(ctx, core.EventTypeBattleMissionResult, "", ev.Timestamp, ev)
}

func (a *Addon) OnChallengeMissionResult(ctx context.Context, actx *addon.Context, ev *core.ChallengeMissionResultEvent) {
	a.observeMetadata(actx)
	a.logEvent(ctx, core.EventTypeChallengeMissionResult, "", ev.Timestamp, ev)
}

func (a *Addon) OnSlow(ctx context.Context, actx *addon.Context, ev *core.SlowEvent) {
	a.observeMetadata(actx)
	a.logEvent(ctx, core.EventTypeSlow, "", ev.Timestamp, ev)
}

func (a *Addon) OnMetadataUpdate(ctx context.Context, actx *addon.Context, ev *core.MetadataEvent) {
	a.observeMetadata(actx)
	a.logEvent(ctx, core.EventTypeMetadataUpdate, "", ev.Timestamp, ev)
}

// Stop flushes whatever is buffered and closes the broadcast session.
func (a *Addon) Stop(ctx context.Context, _ *addon.Context) {
	if err := a.buf.Close(); err != nil {
		a.logger.Error("db_logger: final flush", "err", err)
	}

	a.mu.Lock()
	open := a.sessionOpen
	id := a.broadcastID
	a.sessionOpen = false
	a.mu.Unlock()

	if open {
		if err := a.store.EndBroadcastSession(ctx, id, time.Now().UTC()); err != nil {
			a.logger.Error("db_logger: end broadcast session", "err", err)
		}
	}
}

// BufferedRows reports how many rows are waiting to be written.
func (a *Addon) BufferedRows() int { return a.buf.Len() }
