package soopchat

import (
	"errors"
	"testing"
	"time"
)

func TestDecodeChatFrame(t *testing.T) {
	data := []byte(`{"type":"CHAT","payload":{"user":{"id":"u1","label":"Viewer","subscriber":true},"comment":"hello","chatType":"TEXT","isAdmin":false}}`)
	now := time.Now().UTC()

	ev, err := decodeFrame(data, now)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != "CHAT" || ev.Chat == nil {
		t.Fatalf("expected chat event, got %+v", ev)
	}
	if ev.Chat.User.ID != "u1" || !ev.Chat.User.Subscriber || ev.Chat.Comment != "hello" {
		t.Fatalf("unexpected chat payload: %+v", ev.Chat)
	}
	if !ev.ReceivedAt.Equal(now) {
		t.Fatalf("expected local receive stamp")
	}
}

func TestDecodeDonationFrame(t *testing.T) {
	data := []byte(`{"type":"DONATION","payload":{"from":"u2","fromLabel":"Donor","amount":100,"fanClubOrdinal":3,"becomeTopFan":true,"donationType":"BALLOON"}}`)
	ev, err := decodeFrame(data, time.Now())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Donation == nil || ev.Donation.Amount != 100 || !ev.Donation.BecomeTopFan {
		t.Fatalf("unexpected donation payload: %+v", ev.Donation)
	}
}

func TestDecodeLifecycleFrameHasNoPayload(t *testing.T) {
	ev, err := decodeFrame([]byte(`{"type":"CONNECTED"}`), time.Now())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != "CONNECTED" || ev.Chat != nil {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestDecodeUnknownFrameSkipped(t *testing.T) {
	_, err := decodeFrame([]byte(`{"type":"EMOJI_RAIN","payload":{}}`), time.Now())
	if !errors.Is(err, errUnknownFrame) {
		t.Fatalf("expected errUnknownFrame, got %v", err)
	}
}

func TestDecodeMissingPayload(t *testing.T) {
	if _, err := decodeFrame([]byte(`{"type":"CHAT"}`), time.Now()); err == nil {
		t.Fatalf("expected error for missing payload")
	}
	if _, err := decodeFrame([]byte(`not json`), time.Now()); err == nil {
		t.Fatalf("expected error for malformed frame")
	}
}

func TestDecodeFreezeFrame(t *testing.T) {
	data := []byte(`{"type":"FREEZE","payload":{"freezed":true,"limitSubscriptionMonth":3,"limitBalloons":1000,"targets":["normal"]}}`)
	ev, err := decodeFrame(data, time.Now())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Freeze == nil || !ev.Freeze.Freezed || len(ev.Freeze.Targets) != 1 {
		t.Fatalf("unexpected freeze payload: %+v", ev.Freeze)
	}
}
