// Package mapper turns raw gateway events into finalized DomainEvents.
// It owns the donation correlator: chat events pass through immediately
// (after a link attempt), donations are held back for the correlation
// window, and everything else maps one to one.
package mapper

import (
	"time"

	"github.com/google/uuid"

	"github.com/you/soopcast/internal/core"
	"github.com/you/soopcast/internal/correlator"
	"github.com/you/soopcast/internal/soopchat"
)

// DefaultFlushInterval is how often the scheduler should drive
// FlushExpired; a fraction of the correlation window so finalization lag
// stays small.
const DefaultFlushInterval = 50 * time.Millisecond

type Mapper struct {
	channelID  string
	correlator *correlator.Correlator
}

func New(channelID string, window time.Duration) *Mapper {
	return &Mapper{
		channelID:  channelID,
		correlator: correlator.New(window),
	}
}

// Process maps one raw event. ok is false when the event produces no
// immediate domain event: donations wait on the correlation window, and
// unrecognized raw types are dropped.
func (m *Mapper) Process(raw soopchat.RawEvent) (ev core.DomainEvent, ok bool) {
	switch raw.Type {
	case "CONNECTED":
		return core.DomainEvent{Kind: core.KindConnected}, true
	case "DISCONNECTED":
		return core.DomainEvent{Kind: core.KindDisconnected}, true
	case "HOST_STATE":
		return core.DomainEvent{Kind: core.KindHostStateChange}, true
	}

	switch {
	case raw.Chat != nil:
		// Link attempt first; the chat is forwarded regardless of outcome.
		m.correlator.TryAttachChat(raw.Chat.User.ID, raw.Chat.User.Label, raw.Chat.Comment, raw.ReceivedAt)
		return core.DomainEvent{
			Kind: core.KindChat,
			Chat: &core.ChatEvent{
				ID:        uuid.New(),
				Timestamp: raw.ReceivedAt,
				ChannelID: m.channelID,
				Comment:   raw.Chat.Comment,
				ChatType:  core.ChatType(raw.Chat.ChatType),
				User: core.User{
					ID:         raw.Chat.User.ID,
					Label:      raw.Chat.User.Label,
					Subscriber: raw.Chat.User.Subscriber,
					Fan:        raw.Chat.User.Fan,
				},
				IsAdmin: raw.Chat.IsAdmin,
			},
		}, true

	case raw.Donation != nil:
		m.correlator.RecordDonation(raw.Donation.From, correlator.Fields{
			ChannelID:      m.channelID,
			From:           raw.Donation.From,
			FromLabel:      raw.Donation.FromLabel,
			Amount:         raw.Donation.Amount,
			FanClubOrdinal: raw.Donation.FanClubOrdinal,
			BecomeTopFan:   raw.Donation.BecomeTopFan,
			DonationType:   core.DonationType(raw.Donation.DonationType),
		}, raw.ReceivedAt)
		return core.DomainEvent{}, false

	case raw.Subscribe != nil:
		return core.DomainEvent{
			Kind: core.KindSubscribe,
			Subscribe: &core.SubscribeEvent{
				ID:        uuid.New(),
				Timestamp: raw.ReceivedAt,
				ChannelID: m.channelID,
				UserID:    raw.Subscribe.UserID,
				Label:     raw.Subscribe.Label,
				Tier:      raw.Subscribe.Tier,
				Renew:     raw.Subscribe.Renew,
			},
		}, true

	case raw.KickCancel != nil:
		return core.DomainEvent{
			Kind:       core.KindKickCancel,
			KickCancel: m.simpleUser(raw.KickCancel.UserID, raw.ReceivedAt),
		}, true

	case raw.Mute != nil:
		return core.DomainEvent{
			Kind: core.KindMute,
			Mute: &core.MuteEvent{
				ID:        uuid.New(),
				Timestamp: raw.ReceivedAt,
				ChannelID: m.channelID,
				User: core.User{
					ID:         raw.Mute.User.ID,
					Label:      raw.Mute.User.Label,
					Subscriber: raw.Mute.User.Subscriber,
					Fan:        raw.Mute.User.Fan,
				},
				Seconds:       raw.Mute.Seconds,
				Message:       raw.Mute.Message,
				By:            raw.Mute.By,
				Counts:        raw.Mute.Counts,
				SuperuserType: raw.Mute.SuperuserType,
			},
		}, true

	case raw.Black != nil:
		return core.DomainEvent{
			Kind:  core.KindBlack,
			Black: m.simpleUser(raw.Black.UserID, raw.ReceivedAt),
		}, true

	case raw.Freeze != nil:
		return core.DomainEvent{
			Kind: core.KindFreeze,
			Freeze: &core.FreezeEvent{
				ID:                     uuid.New(),
				Timestamp:              raw.ReceivedAt,
				ChannelID:              m.channelID,
				Freezed:                raw.Freeze.Freezed,
				LimitSubscriptionMonth: raw.Freeze.LimitSubscriptionMonth,
				LimitBalloons:          raw.Freeze.LimitBalloons,
				Targets:                append([]string(nil), raw.Freeze.Targets...),
			},
		}, true

	case raw.Notification != nil:
		return core.DomainEvent{
			Kind: core.KindNotification,
			Notification: &core.NotificationEvent{
				ID:        uuid.New(),
				Timestamp: raw.ReceivedAt,
				ChannelID: m.channelID,
				Message:   raw.Notification.Message,
				Show:      raw.Notification.Show,
			},
		}, true

	case raw.MissionDonation != nil:
		return core.DomainEvent{
			Kind: core.KindMissionDonation,
			MissionDonation: &core.MissionEvent{
				ID:          uuid.New(),
				Timestamp:   raw.ReceivedAt,
				ChannelID:   m.channelID,
				From:        raw.MissionDonation.From,
				FromLabel:   raw.MissionDonation.FromLabel,
				Amount:      raw.MissionDonation.Amount,
				MissionType: core.MissionType(raw.MissionDonation.MissionType),
			},
		}, true

	case raw.MissionTotal != nil:
		return core.DomainEvent{
			Kind: core.KindMissionTotal,
			MissionTotal: &core.MissionTotalEvent{
				ID:          uuid.New(),
				Timestamp:   raw.ReceivedAt,
				ChannelID:   m.channelID,
				MissionType: core.MissionType(raw.MissionTotal.MissionType),
				Amount:      raw.MissionTotal.Amount,
			},
		}, true

	case raw.BattleMissionResult != nil:
		return core.DomainEvent{
			Kind: core.KindBattleMissionResult,
			BattleMissionResult: &core.BattleMissionResultEvent{
				ID:        uuid.New(),
				Timestamp: raw.ReceivedAt,
				ChannelID: m.channelID,
				IsDraw:    raw.BattleMissionResult.IsDraw,
				Winner:    raw.BattleMissionResult.Winner,
				Title:     raw.BattleMissionResult.Title,
			},
		}, true

	case raw.ChallengeMissionResult != nil:
		return core.DomainEvent{
			Kind: core.KindChallengeMissionResult,
			ChallengeMissionResult: &core.ChallengeMissionResultEvent{
				ID:        uuid.New(),
				Timestamp: raw.ReceivedAt,
				ChannelID: m.channelID,
				IsSuccess: raw.ChallengeMissionResult.IsSuccess,
				Title:     raw.ChallengeMissionResult.Title,
			},
		}, true

	case raw.Slow != nil:
		return core.DomainEvent{
			Kind: core.KindSlow,
			Slow: &core.SlowEvent{
				ID:        uuid.New(),
				Timestamp: raw.ReceivedAt,
				ChannelID: m.channelID,
				Duration:  raw.Slow.Duration,
			},
		}, true
	}

	return core.DomainEvent{}, false
}

// FlushExpired finalizes every donation whose correlation window has
// elapsed as of now.
func (m *Mapper) FlushExpired(now time.Time) []core.DomainEvent {
	donations := m.correlator.FlushExpired(now)
	if len(donations) == 0 {
		return nil
	}
	events := make([]core.DomainEvent, 0, len(donations))
	for i := range donations {
		d := donations[i]
		events = append(events, core.DomainEvent{Kind: core.KindDonation, Donation: &d})
	}
	return events
}

// FlushAll finalizes every pending donation immediately. Shutdown path.
func (m *Mapper) FlushAll() []core.DomainEvent {
	donations := m.correlator.FlushAll()
	if len(donations) == 0 {
		return nil
	}
	events := make([]core.DomainEvent, 0, len(donations))
	for i := range donations {
		d := donations[i]
		events = append(events, core.DomainEvent{Kind: core.KindDonation, Donation: &d})
	}
	return events
}

// PendingDonations reports the correlator's pending count, for gauges.
func (m *Mapper) PendingDonations() int {
	return m.correlator.PendingCount()
}

func (m *Mapper) simpleUser(userID string, ts time.Time) *core.SimpleUserEvent {
	return &core.SimpleUserEvent{
		ID:        uuid.New(),
		Timestamp: ts,
		ChannelID: m.channelID,
		UserID:    userID,
	}
}
