package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduleRecurringFires(t *testing.T) {
	s := New()
	defer s.CancelAll()

	var ticks atomic.Int64
	s.ScheduleRecurring("tick", 10*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	})

	time.Sleep(100 * time.Millisecond)
	if got := ticks.Load(); got < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", got)
	}
}

func TestReplaceCancelsPrevious(t *testing.T) {
	s := New()
	defer s.CancelAll()

	var first, second atomic.Int64
	s.ScheduleRecurring("job", 10*time.Millisecond, func(context.Context) {
		first.Add(1)
	})
	time.Sleep(35 * time.Millisecond)

	s.ScheduleRecurring("job", 10*time.Millisecond, func(context.Context) {
		second.Add(1)
	})
	firstAtReplace := first.Load()

	time.Sleep(60 * time.Millisecond)
	if got := first.Load(); got != firstAtReplace {
		t.Fatalf("replaced task fired again: %d -> %d", firstAtReplace, got)
	}
	if second.Load() == 0 {
		t.Fatalf("replacement task never fired")
	}
	if s.TaskCount() != 1 {
		t.Fatalf("expected exactly one live task, got %d", s.TaskCount())
	}
}

func TestCancelTaskStopsTicks(t *testing.T) {
	s := New()

	var ticks atomic.Int64
	s.ScheduleRecurring("job", 10*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	})
	time.Sleep(35 * time.Millisecond)

	s.CancelTask("job")
	at := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	if got := ticks.Load(); got != at {
		t.Fatalf("cancelled task still ticking: %d -> %d", at, got)
	}
	if s.TaskCount() != 0 {
		t.Fatalf("task table should be empty")
	}

	// Unknown id is a no-op.
	s.CancelTask("missing")
}

func TestCancelAll(t *testing.T) {
	s := New()

	var ticks atomic.Int64
	s.ScheduleRecurring("a", 10*time.Millisecond, func(context.Context) { ticks.Add(1) })
	s.ScheduleRecurring("b", 10*time.Millisecond, func(context.Context) { ticks.Add(1) })
	time.Sleep(30 * time.Millisecond)

	s.CancelAll()
	at := ticks.Load()
	time.Sleep(40 * time.Millisecond)
	if got := ticks.Load(); got != at {
		t.Fatalf("tasks still ticking after CancelAll: %d -> %d", at, got)
	}
}

func TestTaskSeesCancellation(t *testing.T) {
	s := New()

	cancelled := make(chan struct{})
	s.ScheduleRecurring("job", 5*time.Millisecond, func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	})
	time.Sleep(20 * time.Millisecond)

	go s.CancelTask("job")
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatalf("in-flight run never observed cancellation")
	}
}
