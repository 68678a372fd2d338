package eventbus

import (
	"context"
	"testing"
	"time"
)

func recvOne(t *testing.T, r *Receiver) SystemEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, ok := r.Recv(ctx)
	if !ok {
		t.Fatalf("expected an event")
	}
	return ev
}

func TestPublishFansOutToAllQueues(t *testing.T) {
	bus := New()
	a := bus.Subscribe("stats")
	b := bus.Subscribe("logger")
	c := bus.Subscribe("logger") // same id, independent queue

	bus.Publish(SystemEvent{Type: SystemStarted})

	for _, r := range []*Receiver{a, b, c} {
		if ev := recvOne(t, r); ev.Type != SystemStarted {
			t.Fatalf("expected SystemStarted, got %v", ev.Type)
		}
	}
}

func TestPublishOrderPreservedPerSubscriber(t *testing.T) {
	bus := New()
	r := bus.Subscribe("sub")

	bus.Publish(SystemEvent{Type: SystemStarted})
	bus.Publish(SystemEvent{Type: SystemStopping})
	bus.Publish(SystemEvent{Type: SystemStopped})

	want := []EventType{SystemStarted, SystemStopping, SystemStopped}
	for i, w := range want {
		if ev := recvOne(t, r); ev.Type != w {
			t.Fatalf("event %d: expected %v, got %v", i, w, ev.Type)
		}
	}
}

func TestBacklogAccumulatesUnbounded(t *testing.T) {
	bus := New()
	r := bus.Subscribe("slow")

	const n = 1000
	for i := 0; i < n; i++ {
		bus.Publish(SystemEvent{Type: DonationFlushRequested})
	}
	for i := 0; i < n; i++ {
		recvOne(t, r)
	}
}

func TestUnsubscribeDropsQueues(t *testing.T) {
	bus := New()
	r := bus.Subscribe("gone")
	bus.Publish(SystemEvent{Type: SystemStarted})
	bus.Unsubscribe("gone")

	// Already-queued events stay readable, then the receiver reports closed.
	if ev := recvOne(t, r); ev.Type != SystemStarted {
		t.Fatalf("expected queued event before close")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, ok := r.Recv(ctx); ok {
		t.Fatalf("expected closed receiver")
	}

	// Publishing after unsubscribe must not panic or deliver.
	bus.Publish(SystemEvent{Type: SystemStopped})
	if bus.SubscriberCount() != 0 {
		t.Fatalf("expected no subscribers, got %d", bus.SubscriberCount())
	}
}

func TestRecvHonorsContext(t *testing.T) {
	bus := New()
	r := bus.Subscribe("idle")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, ok := r.Recv(ctx); ok {
		t.Fatalf("expected context expiry, not an event")
	}
}
