package scheduler

import (
	"context"
	"sync"
	"time"
)

// Scheduler owns every recurring background task in the process, keyed by
// a string id. Registering under an id that is already live cancels the
// previous task first, so at most one task runs per id. Cancellation is
// cooperative: the tick loop exits at its next select, and an in-flight
// run is abandoned at its next ctx check. Tasks must be idempotent or
// side-effect-light per tick; the scheduler does not retry or recover a
// failed run.
type Scheduler struct {
	mu    sync.Mutex
	tasks map[string]*task
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func New() *Scheduler {
	return &Scheduler{tasks: make(map[string]*task)}
}

// ScheduleRecurring runs fn every period until the task is cancelled. The
// first run happens after one full period. fn receives a context that is
// cancelled when the task is.
func (s *Scheduler) ScheduleRecurring(id string, period time.Duration, fn func(context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()

	s.mu.Lock()
	old := s.tasks[id]
	s.tasks[id] = t
	s.mu.Unlock()

	if old != nil {
		old.stop()
	}
}

// CancelTask stops the task registered under id, if any, and waits for
// its loop to exit. Cancelling an unknown id is a no-op.
func (s *Scheduler) CancelTask(id string) {
	s.mu.Lock()
	t := s.tasks[id]
	delete(s.tasks, id)
	s.mu.Unlock()

	if t != nil {
		t.stop()
	}
}

// CancelAll stops every registered task and waits for their loops to exit.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	stopped := make([]*task, 0, len(s.tasks))
	for id, t := range s.tasks {
		stopped = append(stopped, t)
		delete(s.tasks, id)
	}
	s.mu.Unlock()

	for _, t := range stopped {
		t.stop()
	}
}

// TaskCount reports how many tasks are currently registered.
func (s *Scheduler) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (t *task) stop() {
	t.cancel()
	<-t.done
}
