package soopchat

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Raw event type tags as they appear on the wire.
const (
	rawTypeConnected              = "CONNECTED"
	rawTypeDisconnected           = "DISCONNECTED"
	rawTypeHostState              = "HOST_STATE"
	rawTypeChat                   = "CHAT"
	rawTypeDonation               = "DONATION"
	rawTypeSubscribe              = "SUBSCRIBE"
	rawTypeKickCancel             = "KICK_CANCEL"
	rawTypeMute                   = "MUTE"
	rawTypeBlack                  = "BLACK"
	rawTypeFreeze                 = "FREEZE"
	rawTypeNotification           = "NOTIFICATION"
	rawTypeMissionDonation        = "MISSION_DONATION"
	rawTypeMissionTotal           = "MISSION_TOTAL"
	rawTypeBattleMissionResult    = "BATTLE_MISSION_RESULT"
	rawTypeChallengeMissionResult = "CHALLENGE_MISSION_RESULT"
	rawTypeSlow                   = "SLOW"
)

// RawUser is the wire shape of a chat participant.
type RawUser struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Subscriber bool   `json:"subscriber"`
	Fan        bool   `json:"fan"`
}

type RawChat struct {
	User     RawUser `json:"user"`
	Comment  string  `json:"comment"`
	ChatType string  `json:"chatType"`
	IsAdmin  bool    `json:"isAdmin"`
}

type RawDonation struct {
	From           string `json:"from"`
	FromLabel      string `json:"fromLabel"`
	Amount         uint32 `json:"amount"`
	FanClubOrdinal uint32 `json:"fanClubOrdinal"`
	BecomeTopFan   bool   `json:"becomeTopFan"`
	DonationType   string `json:"donationType"`
}

type RawSubscribe struct {
	UserID string `json:"userId"`
	Label  string `json:"label"`
	Tier   uint32 `json:"tier"`
	Renew  uint32 `json:"renew"`
}

type RawUserRef struct {
	UserID string `json:"userId"`
}

type RawMute struct {
	User          RawUser `json:"user"`
	Seconds       uint32  `json:"seconds"`
	Message       string  `json:"message"`
	By            string  `json:"by"`
	Counts        uint32  `json:"counts"`
	SuperuserType string  `json:"superuserType"`
}

type RawFreeze struct {
	Freezed                bool     `json:"freezed"`
	LimitSubscriptionMonth uint32   `json:"limitSubscriptionMonth"`
	LimitBalloons          uint32   `json:"limitBalloons"`
	Targets                []string `json:"targets"`
}

type RawNotification struct {
	Message string `json:"message"`
	Show    bool   `json:"show"`
}

type RawMission struct {
	From        string `json:"from"`
	FromLabel   string `json:"fromLabel"`
	Amount      uint32 `json:"amount"`
	MissionType string `json:"missionType"`
}

type RawMissionTotal struct {
	MissionType string `json:"missionType"`
	Amount      uint32 `json:"amount"`
}

type RawBattleMissionResult struct {
	IsDraw bool   `json:"isDraw"`
	Winner string `json:"winner"`
	Title  string `json:"title"`
}

type RawChallengeMissionResult struct {
	IsSuccess bool   `json:"isSuccess"`
	Title     string `json:"title"`
}

type RawSlow struct {
	Duration uint32 `json:"duration"`
}

// RawEvent is one decoded gateway frame. Exactly one payload pointer
// matching Type is non-nil; lifecycle types carry none. ReceivedAt is
// stamped locally on decode.
type RawEvent struct {
	Type       string
	ReceivedAt time.Time

	Chat                   *RawChat
	Donation               *RawDonation
	Subscribe              *RawSubscribe
	KickCancel             *RawUserRef
	Mute                   *RawMute
	Black                  *RawUserRef
	Freeze                 *RawFreeze
	Notification           *RawNotification
	MissionDonation        *RawMission
	MissionTotal           *RawMissionTotal
	BattleMissionResult    *RawBattleMissionResult
	ChallengeMissionResult *RawChallengeMissionResult
	Slow                   *RawSlow
}

type frameEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

var errUnknownFrame = errors.New("soopchat: unknown frame type")

// decodeFrame parses one gateway frame. Unknown frame types return
// errUnknownFrame so the read loop can skip them without reconnecting.
func decodeFrame(data []byte, receivedAt time.Time) (RawEvent, error) {
	var env frameEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return RawEvent{}, errors.Wrap(err, "decode frame envelope")
	}

	ev := RawEvent{Type: env.Type, ReceivedAt: receivedAt}
	var payload any
	switch env.Type {
	case rawTypeConnected, rawTypeDisconnected, rawTypeHostState:
		return ev, nil
	case rawTypeChat:
		ev.Chat = &RawChat{}
		payload = ev.Chat
	case rawTypeDonation:
		ev.Donation = &RawDonation{}
		payload = ev.Donation
	case rawTypeSubscribe:
		ev.Subscribe = &RawSubscribe{}
		payload = ev.Subscribe
	case rawTypeKickCancel:
		ev.KickCancel = &RawUserRef{}
		payload = ev.KickCancel
	case rawTypeMute:
		ev.Mute = &RawMute{}
		payload = ev.Mute
	case rawTypeBlack:
		ev.Black = &RawUserRef{}
		payload = ev.Black
	case rawTypeFreeze:
		ev.Freeze = &RawFreeze{}
		payload = ev.Freeze
	case rawTypeNotification:
		ev.Notification = &RawNotification{}
		payload = ev.Notification
	case rawTypeMissionDonation:
		ev.MissionDonation = &RawMission{}
		payload = ev.MissionDonation
	case rawTypeMissionTotal:
		ev.MissionTotal = &RawMissionTotal{}
		payload = ev.MissionTotal
	case rawTypeBattleMissionResult:
		ev.BattleMissionResult = &RawBattleMissionResult{}
		payload = ev.BattleMissionResult
	case rawTypeChallengeMissionResult:
		ev.ChallengeMissionResult = &RawChallengeMissionResult{}
		payload = ev.ChallengeMissionResult
	case rawTypeSlow:
		ev.Slow = &RawSlow{}
		payload = ev.Slow
	default:
		return RawEvent{}, errUnknownFrame
	}

	if len(env.Payload) == 0 {
		return RawEvent{}, errors.Errorf("frame %s missing payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return RawEvent{}, errors.Wrapf(err, "decode %s payload", env.Type)
	}
	return ev, nil
}
