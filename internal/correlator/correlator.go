package correlator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/you/soopcast/internal/core"
)

// DefaultWindow is the maximum gap between a donation and the donor's
// follow-up chat line for the two to be linked.
const DefaultWindow = 500 * time.Millisecond

type pendingDonation struct {
	event     core.DonationEvent
	arrivedAt time.Time
	firstChat string
	hasChat   bool
}

// Correlator holds donations back for a short window so the donor's next
// chat line can ride along as the donation message. Chat events are never
// delayed; only donation finalization waits.
//
// The pending table is keyed by user id: a second donation from the same
// user before the first flushes replaces it outright. The replaced
// donation is dropped, not merged.
type Correlator struct {
	window time.Duration

	mu      sync.Mutex
	pending map[string]*pendingDonation
}

// Fields carries the donation payload the platform delivered; the
// correlator fills in id and message.
type Fields struct {
	ChannelID      string
	From           string
	FromLabel      string
	Amount         uint32
	FanClubOrdinal uint32
	BecomeTopFan   bool
	DonationType   core.DonationType
}

func New(window time.Duration) *Correlator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Correlator{
		window:  window,
		pending: make(map[string]*pendingDonation),
	}
}

// RecordDonation inserts (or replaces) the pending entry for userID. No
// finalized event is produced until the window elapses.
func (c *Correlator) RecordDonation(userID string, fields Fields, ts time.Time) {
	entry := &pendingDonation{
		event: core.DonationEvent{
			ID:             uuid.New(),
			Timestamp:      ts,
			ChannelID:      fields.ChannelID,
			From:           fields.From,
			FromLabel:      fields.FromLabel,
			Amount:         fields.Amount,
			FanClubOrdinal: fields.FanClubOrdinal,
			BecomeTopFan:   fields.BecomeTopFan,
			DonationType:   fields.DonationType,
		},
		arrivedAt: ts,
	}

	c.mu.Lock()
	c.pending[userID] = entry
	c.mu.Unlock()
}

// TryAttachChat links message to a pending donation from userID when the
// chat arrived within the window and no chat has been linked yet. A
// negative delta (clock skew) fails closed. Returns whether the link was
// made; the chat event itself must be forwarded regardless.
func (c *Correlator) TryAttachChat(userID, userLabel, message string, ts time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.pending[userID]
	if !ok || entry.hasChat {
		return false
	}
	delta := ts.Sub(entry.arrivedAt)
	if delta < 0 || delta > c.window {
		return false
	}
	entry.firstChat = message
	entry.hasChat = true
	slog.Debug("chat linked to donation", "user", userLabel, "delta_ms", delta.Milliseconds())
	return true
}

// FlushExpired removes every pending entry older than the window as of
// now and returns it finalized, with whatever chat was linked. Order is
// unspecified. Calling again without new input returns nothing.
func (c *Correlator) FlushExpired(now time.Time) []core.DonationEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var done []core.DonationEvent
	for userID, entry := range c.pending {
		if now.Sub(entry.arrivedAt) <= c.window {
			continue
		}
		ev := entry.event
		ev.Message = entry.firstChat
		ev.HasMessage = entry.hasChat
		done = append(done, ev)
		delete(c.pending, userID)
	}
	return done
}

// FlushAll drains every pending entry regardless of age. Used on
// shutdown so no donation is lost.
func (c *Correlator) FlushAll() []core.DonationEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	var done []core.DonationEvent
	for userID, entry := range c.pending {
		ev := entry.event
		ev.Message = entry.firstChat
		ev.HasMessage = entry.hasChat
		done = append(done, ev)
		delete(c.pending, userID)
	}
	return done
}

// PendingCount reports how many donations are waiting on the window.
func (c *Correlator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
