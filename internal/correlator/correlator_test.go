package correlator

import (
	"testing"
	"time"

	"github.com/you/soopcast/internal/core"
)

func donationFields() Fields {
	return Fields{
		ChannelID:    "chan1",
		From:         "donor",
		FromLabel:    "Donor",
		Amount:       100,
		DonationType: core.DonationTypeBalloon,
	}
}

func TestAttachWithinWindow(t *testing.T) {
	c := New(500 * time.Millisecond)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	c.RecordDonation("donor", donationFields(), base)
	if !c.TryAttachChat("donor", "Donor", "thanks!", base.Add(300*time.Millisecond)) {
		t.Fatalf("expected chat at +300ms to link")
	}

	events := c.FlushExpired(base.Add(600 * time.Millisecond))
	if len(events) != 1 {
		t.Fatalf("expected 1 finalized donation, got %d", len(events))
	}
	if !events[0].HasMessage || events[0].Message != "thanks!" {
		t.Fatalf("expected linked message %q, got %q (has=%t)", "thanks!", events[0].Message, events[0].HasMessage)
	}
}

func TestAttachOutsideWindow(t *testing.T) {
	c := New(500 * time.Millisecond)
	base := time.Now().UTC()

	c.RecordDonation("donor", donationFields(), base)
	if c.TryAttachChat("donor", "Donor", "too late", base.Add(600*time.Millisecond)) {
		t.Fatalf("chat at +600ms must not link")
	}

	events := c.FlushExpired(base.Add(time.Second))
	if len(events) != 1 {
		t.Fatalf("expected 1 finalized donation, got %d", len(events))
	}
	if events[0].HasMessage {
		t.Fatalf("expected no message, got %q", events[0].Message)
	}
}

func TestNegativeDeltaFailsClosed(t *testing.T) {
	c := New(500 * time.Millisecond)
	base := time.Now().UTC()

	c.RecordDonation("donor", donationFields(), base)
	if c.TryAttachChat("donor", "Donor", "from the past", base.Add(-50*time.Millisecond)) {
		t.Fatalf("negative delta must not link")
	}
}

func TestFirstChatWins(t *testing.T) {
	c := New(500 * time.Millisecond)
	base := time.Now().UTC()

	c.RecordDonation("donor", donationFields(), base)
	if !c.TryAttachChat("donor", "Donor", "first", base.Add(100*time.Millisecond)) {
		t.Fatalf("first chat should link")
	}
	if c.TryAttachChat("donor", "Donor", "second", base.Add(200*time.Millisecond)) {
		t.Fatalf("second chat must not replace the first")
	}

	events := c.FlushExpired(base.Add(time.Second))
	if len(events) != 1 || events[0].Message != "first" {
		t.Fatalf("expected message %q, got %+v", "first", events)
	}
}

func TestSecondDonationReplacesPending(t *testing.T) {
	c := New(500 * time.Millisecond)
	base := time.Now().UTC()

	first := donationFields()
	first.Amount = 10
	second := donationFields()
	second.Amount = 20

	c.RecordDonation("donor", first, base)
	c.RecordDonation("donor", second, base.Add(100*time.Millisecond))

	events := c.FlushExpired(base.Add(time.Second))
	if len(events) != 1 {
		t.Fatalf("expected exactly 1 donation after replacement, got %d", len(events))
	}
	if events[0].Amount != 20 {
		t.Fatalf("expected the second donation to survive, got amount %d", events[0].Amount)
	}
}

func TestFlushIsIdempotent(t *testing.T) {
	c := New(500 * time.Millisecond)
	base := time.Now().UTC()

	c.RecordDonation("donor", donationFields(), base)
	if got := len(c.FlushExpired(base.Add(time.Second))); got != 1 {
		t.Fatalf("first flush: expected 1, got %d", got)
	}
	if got := len(c.FlushExpired(base.Add(2 * time.Second))); got != 0 {
		t.Fatalf("second flush: expected 0, got %d", got)
	}
	if c.PendingCount() != 0 {
		t.Fatalf("pending table should be empty")
	}
}

func TestFlushKeepsUnexpired(t *testing.T) {
	c := New(500 * time.Millisecond)
	base := time.Now().UTC()

	c.RecordDonation("early", donationFields(), base)
	c.RecordDonation("late", donationFields(), base.Add(400*time.Millisecond))

	events := c.FlushExpired(base.Add(600 * time.Millisecond))
	if len(events) != 1 {
		t.Fatalf("expected only the early donation, got %d events", len(events))
	}
	if c.PendingCount() != 1 {
		t.Fatalf("late donation should still be pending")
	}
}
