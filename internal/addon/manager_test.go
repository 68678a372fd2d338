package addon

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/you/soopcast/internal/core"
)

type recordingAddon struct {
	Nop
	name string

	mu      sync.Mutex
	chats   []string
	stopped int
	fail    bool
	order   *[]string
}

func (r *recordingAddon) Name() string { return r.name }

func (r *recordingAddon) OnChat(_ context.Context, _ *Context, ev *core.ChatEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats = append(r.chats, ev.Comment)
	if r.order != nil {
		*r.order = append(*r.order, r.name)
	}
	if r.fail {
		// Internal failure: logged and swallowed by the addon itself.
		_ = fmt.Errorf("%s: handler failed", r.name)
	}
}

func (r *recordingAddon) Stop(context.Context, *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped++
}

func (r *recordingAddon) chatCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chats)
}

func chatEvent(comment string) core.DomainEvent {
	return core.DomainEvent{
		Kind: core.KindChat,
		Chat: &core.ChatEvent{
			ID:        uuid.New(),
			Timestamp: time.Now().UTC(),
			ChannelID: "chan1",
			Comment:   comment,
			ChatType:  core.ChatTypeText,
			User:      core.User{ID: "u1", Label: "User"},
		},
	}
}

func TestDispatchFanOutInRegistrationOrder(t *testing.T) {
	m := NewManager()
	var order []string
	a := &recordingAddon{name: "stats", order: &order}
	b := &recordingAddon{name: "logger", order: &order, fail: true}
	c := &recordingAddon{name: "ui", order: &order}
	m.Register(a)
	m.Register(b)
	m.Register(c)

	m.Dispatch(context.Background(), &Context{}, chatEvent("hello"))

	want := []string{"stats", "logger", "ui"}
	if len(order) != len(want) {
		t.Fatalf("expected %d handler calls, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("call %d: expected %s, got %s", i, want[i], order[i])
		}
	}
	for _, r := range []*recordingAddon{a, b, c} {
		if r.chatCount() != 1 {
			t.Fatalf("%s: expected exactly one OnChat call, got %d", r.name, r.chatCount())
		}
	}
}

func TestRegisterReplacesByName(t *testing.T) {
	m := NewManager()
	first := &recordingAddon{name: "logger"}
	second := &recordingAddon{name: "logger"}
	m.Register(first)
	m.Register(second)

	if m.Count() != 1 {
		t.Fatalf("expected 1 addon after replacement, got %d", m.Count())
	}
	m.Dispatch(context.Background(), &Context{}, chatEvent("x"))
	if first.chatCount() != 0 {
		t.Fatalf("replaced addon must not receive events")
	}
	if second.chatCount() != 1 {
		t.Fatalf("replacement addon should receive the event")
	}
}

func TestUnregister(t *testing.T) {
	m := NewManager()
	a := &recordingAddon{name: "stats"}
	m.Register(a)
	m.Unregister("stats")
	m.Unregister("missing") // no-op

	m.Dispatch(context.Background(), &Context{}, chatEvent("x"))
	if a.chatCount() != 0 {
		t.Fatalf("unregistered addon must not receive events")
	}
}

func TestUnhandledVariantIsNoOp(t *testing.T) {
	m := NewManager()
	a := &recordingAddon{name: "stats"}
	m.Register(a)

	// recordingAddon embeds Nop: every variant it does not implement is safe.
	m.Dispatch(context.Background(), &Context{}, core.DomainEvent{
		Kind: core.KindSlow,
		Slow: &core.SlowEvent{ID: uuid.New(), Timestamp: time.Now().UTC(), Duration: 10},
	})
	m.Dispatch(context.Background(), &Context{}, core.DomainEvent{Kind: core.KindConnected})
}

func TestStopAll(t *testing.T) {
	m := NewManager()
	a := &recordingAddon{name: "a"}
	b := &recordingAddon{name: "b"}
	m.Register(a)
	m.Register(b)

	m.StopAll(context.Background(), &Context{})
	if a.stopped != 1 || b.stopped != 1 {
		t.Fatalf("expected every addon stopped exactly once, got %d/%d", a.stopped, b.stopped)
	}
}
