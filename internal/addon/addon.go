// Package addon defines the consumer side of the event pipeline: a
// capability interface with one optional handler per DomainEvent variant
// and the manager that fans finalized events out to every registered
// consumer.
package addon

import (
	"context"
	"time"

	"github.com/you/soopcast/internal/core"
	"github.com/you/soopcast/internal/store"
)

// Notifier is the fire-and-forget UI sink. Implementations must swallow
// delivery failures; a missing listener is not an error.
type Notifier interface {
	Notify(channel string, payload any)
}

// Store is the persistence collaborator. Batch inserts are atomic and
// retry-safe on the store side.
type Store interface {
	CreateBroadcastSession(ctx context.Context, channelID, title string, startedAt time.Time) (int64, error)
	EndBroadcastSession(ctx context.Context, broadcastID int64, endedAt time.Time) error
	InsertChatLogs(ctx context.Context, rows []store.ChatLog) error
	InsertEventLogs(ctx context.Context, rows []store.EventLog) error
}

// Context is the per-dispatch bundle handed to every handler. Consumers
// treat it as read-only; Metadata is replaced wholesale by the periodic
// refresh task, never partially mutated.
type Context struct {
	Notifier Notifier
	Store    Store
	Metadata *core.BroadcastMetadata
}

// Addon is one independently registered consumer of domain events.
// Embed Nop to get a no-op default for every handler, so an addon only
// implements the variants it cares about. Handlers must trap their own
// errors and panics; the manager does not recover on their behalf.
type Addon interface {
	Name() string

	OnConnected(ctx context.Context, actx *Context)
	OnDisconnected(ctx context.Context, actx *Context)
	OnHostStateChange(ctx context.Context, actx *Context)
	OnChat(ctx context.Context, actx *Context, ev *core.ChatEvent)
	OnDonation(ctx context.Context, actx *Context, ev *core.DonationEvent)
	OnSubscribe(ctx context.Context, actx *Context, ev *core.SubscribeEvent)
	OnKickCancel(ctx context.Context, actx *Context, ev *core.SimpleUserEvent)
	OnMute(ctx context.Context, actx *Context, ev *core.MuteEvent)
	OnBlack(ctx context.Context, actx *Context, ev *core.SimpleUserEvent)
	OnFreeze(ctx context.Context, actx *Context, ev *core.FreezeEvent)
	OnNotification(ctx context.Context, actx *Context, ev *core.NotificationEvent)
	OnMissionDonation(ctx context.Context, actx *Context, ev *core.MissionEvent)
	OnMissionTotal(ctx context.Context, actx *Context, ev *core.MissionTotalEvent)
	OnBattleMissionResult(ctx context.Context, actx *Context, ev *core.BattleMissionResultEvent)
	OnChallengeMissionResult(ctx context.Context, actx *Context, ev *core.ChallengeMissionResultEvent)
	OnSlow(ctx context.Context, actx *Context, ev *core.SlowEvent)
	OnMetadataUpdate(ctx context.Context, actx *Context, ev *core.MetadataEvent)

	// Stop gives the addon a chance to flush and release resources. Called
	// once, after the last dispatch.
	Stop(ctx context.Context, actx *Context)
}

// Nop implements every Addon handler as a no-op. An unknown or unhandled
// event variant is therefore always safe.
type Nop struct{}

func (Nop) OnConnected(context.Context, *Context)                                        {}
func (Nop) OnDisconnected(context.Context, *Context)                                     {}
func (Nop) OnHostStateChange(context.Context, *Context)                                  {}
func (Nop) OnChat(context.Context, *Context, *core.ChatEvent)                            {}
func (Nop) OnDonation(context.Context, *Context, *core.DonationEvent)                    {}
func (Nop) OnSubscribe(context.Context, *Context, *core.SubscribeEvent)                  {}
func (Nop) OnKickCancel(context.Context, *Context, *core.SimpleUserEvent)                {}
func (Nop) OnMute(context.Context, *Context, *core.MuteEvent)                            {}
func (Nop) OnBlack(context.Context, *Context, *core.SimpleUserEvent)                     {}
func (Nop) OnFreeze(context.Context, *Context, *core.FreezeEvent)                        {}
func (Nop) OnNotification(context.Context, *Context, *core.NotificationEvent)            {}
func (Nop) OnMissionDonation(context.Context, *Context, *core.MissionEvent)              {}
func (Nop) OnMissionTotal(context.Context, *Context, *core.MissionTotalEvent)            {}
func (Nop) OnBattleMissionResult(context.Context, *Context, *core.BattleMissionResultEvent) {
}
func (Nop) OnChallengeMissionResult(context.Context, *Context, *core.ChallengeMissionResultEvent) {
}
func (Nop) OnSlow(context.Context, *Context, *core.SlowEvent)               {}
func (Nop) OnMetadataUpdate(context.Context, *Context, *core.MetadataEvent) {}
func (Nop) Stop(context.Context, *Context)                                  {}
