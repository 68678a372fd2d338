package core

import (
	"time"

	"github.com/google/uuid"
)

// Event type names used when an event is persisted or exported.
const (
	EventTypeDonation               = "DONATION"
	EventTypeSubscribe              = "SUBSCRIBE"
	EventTypeKick                   = "KICK"
	EventTypeKickCancel             = "KICK_CANCEL"
	EventTypeMute                   = "MUTE"
	EventTypeBlack                  = "BLACK"
	EventTypeFreeze                 = "FREEZE"
	EventTypeNotification           = "NOTIFICATION"
	EventTypeMissionDonation        = "MISSION_DONATION"
	EventTypeMissionTotal           = "MISSION_TOTAL"
	EventTypeBattleMissionResult    = "BATTLE_MISSION_RESULT"
	EventTypeChallengeMissionResult = "CHALLENGE_MISSION_RESULT"
	EventTypeSlow                   = "SLOW"
	EventTypeMetadataUpdate         = "METADATA_UPDATE"
)

// Kind discriminates the DomainEvent union.
type Kind int

const (
	KindConnected Kind = iota
	KindDisconnected
	KindHostStateChange
	KindChat
	KindDonation
	KindSubscribe
	KindKickCancel
	KindMute
	KindBlack
	KindFreeze
	KindNotification
	KindMissionDonation
	KindMissionTotal
	KindBattleMissionResult
	KindChallengeMissionResult
	KindSlow
	KindMetadataUpdate
)

var kindNames = map[Kind]string{
	KindConnected:              "connected",
	KindDisconnected:           "disconnected",
	KindHostStateChange:        "host_state_change",
	KindChat:                   "chat",
	KindDonation:               "donation",
	KindSubscribe:              "subscribe",
	KindKickCancel:             "kick_cancel",
	KindMute:                   "mute",
	KindBlack:                  "black",
	KindFreeze:                 "freeze",
	KindNotification:           "notification",
	KindMissionDonation:        "mission_donation",
	KindMissionTotal:           "mission_total",
	KindBattleMissionResult:    "battle_mission_result",
	KindChallengeMissionResult: "challenge_mission_result",
	KindSlow:                   "slow",
	KindMetadataUpdate:         "metadata_update",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// DomainEvent is the finalized, channel-scoped representation of one
// broadcast interaction, independent of the raw wire format. Exactly one
// payload pointer matching Kind is non-nil; lifecycle kinds (Connected,
// Disconnected, HostStateChange) carry no payload. Values are never
// mutated after construction; consumers receive the same value and must
// copy anything they keep.
type DomainEvent struct {
	Kind Kind

	Chat                   *ChatEvent
	Donation               *DonationEvent
	Subscribe              *SubscribeEvent
	KickCancel             *SimpleUserEvent
	Mute                   *MuteEvent
	Black                  *SimpleUserEvent
	Freeze                 *FreezeEvent
	Notification           *NotificationEvent
	MissionDonation        *MissionEvent
	MissionTotal           *MissionTotalEvent
	BattleMissionResult    *BattleMissionResultEvent
	ChallengeMissionResult *ChallengeMissionResultEvent
	Slow                   *SlowEvent
	Metadata               *MetadataEvent
}

// User identifies a chat participant together with the channel-scoped
// flags the platform attaches to them.
type User struct {
	ID         string
	Label      string
	Subscriber bool
	Fan        bool
}

// ChatType distinguishes plain text from emoticon and manager chat.
type ChatType string

const (
	ChatTypeText     ChatType = "TEXT"
	ChatTypeEmoticon ChatType = "EMOTICON"
	ChatTypeManager  ChatType = "MANAGER"
)

type ChatEvent struct {
	ID        uuid.UUID
	Timestamp time.Time
	ChannelID string
	Comment   string
	ChatType  ChatType
	User      User
	IsAdmin   bool
}

// DonationType distinguishes the platform's donation currencies.
type DonationType string

const (
	DonationTypeBalloon   DonationType = "BALLOON"
	DonationTypeADBalloon DonationType = "AD_BALLOON"
	DonationTypeVOD       DonationType = "VOD"
)

// DonationEvent is finalized only after the correlation window has
// elapsed; Message holds the donor's first follow-up chat line, if one
// arrived inside the window.
type DonationEvent struct {
	ID             uuid.UUID
	Timestamp      time.Time
	ChannelID      string
	From           string
	FromLabel      string
	Amount         uint32
	FanClubOrdinal uint32
	BecomeTopFan   bool
	DonationType   DonationType
	Message        string
	HasMessage     bool
}

type SubscribeEvent struct {
	ID        uuid.UUID
	Timestamp time.Time
	ChannelID string
	UserID    string
	Label     string
	Tier      uint32
	Renew     uint32
}

type SimpleUserEvent struct {
	ID        uuid.UUID
	Timestamp time.Time
	ChannelID string
	UserID    string
}

type MuteEvent struct {
	ID            uuid.UUID
	Timestamp     time.Time
	ChannelID     string
	User          User
	Seconds       uint32
	Message       string
	By            string
	Counts        uint32
	SuperuserType string
}

type FreezeEvent struct {
	ID                     uuid.UUID
	Timestamp              time.Time
	ChannelID              string
	Freezed                bool
	LimitSubscriptionMonth uint32
	LimitBalloons          uint32
	Targets                []string
}

type NotificationEvent struct {
	ID        uuid.UUID
	Timestamp time.Time
	ChannelID string
	Message   string
	Show      bool
}

// MissionType distinguishes challenge missions from battle missions.
type MissionType string

const (
	MissionTypeChallenge MissionType = "CHALLENGE"
	MissionTypeBattle    MissionType = "BATTLE"
)

type MissionEvent struct {
	ID          uuid.UUID
	Timestamp   time.Time
	ChannelID   string
	From        string
	FromLabel   string
	Amount      uint32
	MissionType MissionType
}

type MissionTotalEvent struct {
	ID          uuid.UUID
	Timestamp   time.Time
	ChannelID   string
	MissionType MissionType
	Amount      uint32
}

type BattleMissionResultEvent struct {
	ID        uuid.UUID
	Timestamp time.Time
	ChannelID string
	IsDraw    bool
	Winner    string
	Title     string
}

type ChallengeMissionResultEvent struct {
	ID        uuid.UUID
	Timestamp time.Time
	ChannelID string
	IsSuccess bool
	Title     string
}

type SlowEvent struct {
	ID        uuid.UUID
	Timestamp time.Time
	ChannelID string
	Duration  uint32
}

type MetadataEvent struct {
	ID          uuid.UUID
	Timestamp   time.Time
	ChannelID   string
	Title       string
	StartedAt   time.Time
	ViewerCount uint64
}

// BroadcastMetadata is the most recently fetched description of the live
// broadcast, replaced wholesale on every refresh.
type BroadcastMetadata struct {
	ChannelID   string
	Title       string
	StartedAt   time.Time
	ViewerCount uint64
	Timestamp   time.Time
}
