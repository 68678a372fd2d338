// Package uinotify forwards finalized domain events to the UI notifier
// so a frontend can render the live feed. Delivery is fire and forget;
// the addon never blocks the dispatch path on a slow listener.
package uinotify

import (
	"context"

	"github.com/you/soopcast/internal/addon"
	"github.com/you/soopcast/internal/core"
)

// Channel names the UI subscribes to.
const (
	ChannelChat         = "chat"
	ChannelDonation     = "donation"
	ChannelSubscribe    = "subscribe"
	ChannelModeration   = "moderation"
	ChannelMission      = "mission"
	ChannelNotification = "notification"
	ChannelMetadata     = "metadata"
	ChannelLifecycle    = "lifecycle"
)

type Addon struct {
	addon.Nop
}

func New() *Addon { return &Addon{} }

func (a *Addon) Name() string { return "ui_notify" }

func notify(actx *addon.Context, channel string, payload any) {
	if actx == nil || actx.Notifier == nil {
		return
	}
	actx.Notifier.Notify(channel, payload)
}

func (a *Addon) OnConnected(_ context.Context, actx *addon.Context) {
	notify(actx, ChannelLifecycle, map[string]string{"state": "connected"})
}

func (a *Addon) OnDisconnected(_ context.Context, actx *addon.Context) {
	notify(actx, ChannelLifecycle, map[string]string{"state": "disconnected"})
}

func (a *Addon) OnHostStateChange(_ context.Context, actx *addon.Context) {
	notify(actx, ChannelLifecycle, map[string]string{"state": "host_state_change"})
}

func (a *Addon) OnChat(_ context.Context, actx *addon.Context, ev *core.ChatEvent) {
	notify(actx, ChannelChat, ev)
}

func (a *Addon) OnDonation(_ context.Context, actx *addon.Context, ev *core.DonationEvent) {
	notify(actx, ChannelDonation, ev)
}

func (a *Addon) OnSubscribe(_ context.Context, actx *addon.Context, ev *core.SubscribeEvent) {
	notify(actx, ChannelSubscribe, ev)
}

func (a *Addon) OnKickCancel(_ context.Context, actx *addon.Context, ev *core.SimpleUserEvent) {
	notify(actx, ChannelModeration, ev)
}

func (a *Addon) OnMute(_ context.Context, actx *addon.Context, ev *core.MuteEvent) {
	notify(actx, ChannelModeration, ev)
}

func (a *Addon) OnBlack(_ context.Context, actx *addon.Context, ev *core.SimpleUserEvent) {
	notify(actx, ChannelModeration, ev)
}

func (a *Addon) OnFreeze(_ context.Context, actx *addon.Context, ev *core.FreezeEvent) {
	notify(actx, ChannelModeration, ev)
}

func (a *Addon) OnSlow(_ context.Context, actx *addon.Context, ev *core.SlowEvent) {
	notify(actx, ChannelModeration, ev)
}

func (a *Addon) OnNotification(_ context.Context, actx *addon.Context, ev *core.NotificationEvent) {
	notify(actx, ChannelNotification, ev)
}

func (a *Addon) OnMissionDonation(_ context.Context, actx *addon.Context, ev *core.MissionEvent) {
	notify(actx, ChannelMission, ev)
}

func (a *Addon) OnMissionTotal(_ context.Context, actx *addon.Context, ev *core.MissionTotalEvent) {
	notify(actx, ChannelMission, ev)
}

func (a *Addon) OnBattleMissionResult(_ context.Context, actx *addon.Context, ev *core.BattleMissionResultEvent) {
	notify(actx, ChannelMission, ev)
}

func (a *Addon) OnChallengeMissionResult(_ context.Context, actx *addon.Context, ev *core.ChallengeMissionResultEvent) {
	notify(actx, ChannelMission, ev)
}

func (a *Addon) OnMetadataUpdate(_ context.Context, actx *addon.Context, ev *core.MetadataEvent) {
	notify(actx, ChannelMetadata, ev)
}
