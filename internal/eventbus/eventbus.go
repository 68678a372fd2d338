package eventbus

import (
	"context"
	"sync"

	"github.com/you/soopcast/internal/core"
)

// EventType enumerates the coarse lifecycle signals carried by the bus.
type EventType int

const (
	SystemStarted EventType = iota
	SystemStopping
	SystemStopped
	SessionEnded
	MetadataUpdated
	MetadataFetchFailed
	DonationFlushRequested
	MetadataUpdateRequested
	ComponentError
)

var eventTypeNames = map[EventType]string{
	SystemStarted:           "system_started",
	SystemStopping:          "system_stopping",
	SystemStopped:           "system_stopped",
	SessionEnded:            "session_ended",
	MetadataUpdated:         "metadata_updated",
	MetadataFetchFailed:     "metadata_fetch_failed",
	DonationFlushRequested:  "donation_flush_requested",
	MetadataUpdateRequested: "metadata_update_requested",
	ComponentError:          "component_error",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// SystemEvent is a lifecycle signal. Payload fields are set per type:
// Metadata for MetadataUpdated, Component/Err for ComponentError and
// MetadataFetchFailed.
type SystemEvent struct {
	Type      EventType
	Metadata  *core.BroadcastMetadata
	Component string
	Err       string
}

// Receiver is one subscriber's private unbounded inbound queue. The queue
// grows without bound while the receiving side stops polling; the bus is
// a low-volume lifecycle channel and accepts that trade-off.
type Receiver struct {
	mu     sync.Mutex
	queue  []SystemEvent
	notify chan struct{}
	closed bool
}

// Recv blocks until an event is available or ctx is done. It returns
// false once the receiver has been dropped and its backlog drained.
func (r *Receiver) Recv(ctx context.Context) (SystemEvent, bool) {
	for {
		r.mu.Lock()
		if len(r.queue) > 0 {
			ev := r.queue[0]
			r.queue = r.queue[1:]
			r.mu.Unlock()
			return ev, true
		}
		closed := r.closed
		r.mu.Unlock()
		if closed {
			return SystemEvent{}, false
		}

		select {
		case <-ctx.Done():
			return SystemEvent{}, false
		case <-r.notify:
		}
	}
}

func (r *Receiver) push(ev SystemEvent) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.queue = append(r.queue, ev)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *Receiver) close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Bus fans lifecycle events out to every registered receiver. Multiple
// subscriptions under the same id each get an independent queue. Events
// from a single publisher arrive at each receiver in publish order.
type Bus struct {
	mu       sync.Mutex
	channels map[string][]*Receiver
}

func New() *Bus {
	return &Bus{channels: make(map[string][]*Receiver)}
}

// Subscribe registers a fresh queue under subscriberID and returns it.
func (b *Bus) Subscribe(subscriberID string) *Receiver {
	r := &Receiver{notify: make(chan struct{}, 1)}
	b.mu.Lock()
	b.channels[subscriberID] = append(b.channels[subscriberID], r)
	b.mu.Unlock()
	return r
}

// Publish delivers ev to every currently registered queue. A queue whose
// receiving side is gone simply accumulates (or drops, once closed);
// delivery failure is not an error condition.
func (b *Bus) Publish(ev SystemEvent) {
	b.mu.Lock()
	receivers := make([]*Receiver, 0, len(b.channels))
	for _, rs := range b.channels {
		receivers = append(receivers, rs...)
	}
	b.mu.Unlock()

	for _, r := range receivers {
		r.push(ev)
	}
}

// Unsubscribe drops every queue registered under subscriberID. Pending
// events already queued remain readable until drained.
func (b *Bus) Unsubscribe(subscriberID string) {
	b.mu.Lock()
	receivers := b.channels[subscriberID]
	delete(b.channels, subscriberID)
	b.mu.Unlock()

	for _, r := range receivers {
		r.close()
	}
}

// SubscriberCount reports how many distinct subscriber ids are registered.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.channels)
}
