package dblogger

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/you/soopcast/internal/store"
)

// flushFunc receives ownership of both row slices. It runs outside the
// buffer lock.
type flushFunc func(chats []store.ChatLog, events []store.EventLog) error

// buffer accumulates log rows until the batch size is reached or the
// flush interval elapses, whichever comes first. Above MaxBuffer rows
// the oldest entries are dropped so a dead database cannot grow the
// buffer without bound. A flush error is held and returned to the next
// caller rather than lost.
type buffer struct {
	batchSize     int
	flushInterval time.Duration
	maxBuffer     int
	flush         flushFunc

	mu      sync.Mutex
	chats   []store.ChatLog
	events  []store.EventLog
	timer   *time.Timer
	closed  bool
	lastErr error
}

func newBuffer(batchSize int, flushInterval time.Duration, maxBuffer int, flush flushFunc) *buffer {
	if batchSize <= 0 {
		batchSize = 1
	}
	if maxBuffer <= 0 {
		maxBuffer = DefaultMaxBuffer
	}
	return &buffer{
		batchSize:     batchSize,
		flushInterval: flushInterval,
		maxBuffer:     maxBuffer,
		flush:         flush,
	}
}

func (b *buffer) AddChat(row store.ChatLog) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("dblogger: buffer closed")
	}
	b.chats = append(b.chats, row)
	return b.afterAddLocked()
}

func (b *buffer) AddEvent(row store.EventLog) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return errors.New("dblogger: buffer closed")
	}
	b.events = append(b.events, row)
	return b.afterAddLocked()
}

// afterAddLocked enforces the cap, arms the timer and flushes when the
// batch is full. Unlocks b.mu before returning.
func (b *buffer) afterAddLocked() error {
	pendingErr := b.lastErr
	b.lastErr = nil

	for len(b.chats)+len(b.events) > b.maxBuffer {
		if len(b.chats) > 0 && (len(b.events) == 0 || !b.chats[0].Timestamp.After(b.events[0].Timestamp)) {
			b.chats = b.chats[1:]
		} else {
			b.events = b.events[1:]
		}
	}

	if len(b.chats)+len(b.events) == 1 && b.flushInterval > 0 {
		b.startTimerLocked()
	}

	if len(b.chats)+len(b.events) < b.batchSize {
		b.mu.Unlock()
		return pendingErr
	}

	chats, events := b.takeLocked()
	b.stopTimerLocked()
	b.mu.Unlock()

	if err := b.flush(chats, events); err != nil {
		return err
	}
	return pendingErr
}

// Flush writes out everything buffered right now. Used on shutdown and
// by tests.
func (b *buffer) Flush() error {
	b.mu.Lock()
	chats, events := b.takeLocked()
	b.stopTimerLocked()
	pendingErr := b.lastErr
	b.lastErr = nil
	b.mu.Unlock()

	if len(chats)+len(events) > 0 {
		if err := b.flush(chats, events); err != nil {
			return err
		}
	}
	return pendingErr
}

func (b *buffer) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	chats, events := b.takeLocked()
	b.stopTimerLocked()
	pendingErr := b.lastErr
	b.lastErr = nil
	b.mu.Unlock()

	if len(chats)+len(events) > 0 {
		if err := b.flush(chats, events); err != nil {
			return err
		}
	}
	return pendingErr
}

func (b *buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chats) + len(b.events)
}

func (b *buffer) onTimer() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	if len(b.chats)+len(b.events) == 0 {
		b.timer = nil
		b.mu.Unlock()
		return
	}
	chats, events := b.takeLocked()
	b.timer = nil
	b.mu.Unlock()

	if err := b.flush(chats, events); err != nil {
		b.mu.Lock()
		b.lastErr = err
		b.mu.Unlock()
	}
}

func (b *buffer) takeLocked() ([]store.ChatLog, []store.EventLog) {
	chats := append([]store.ChatLog(nil), b.chats...)
	events := append([]store.EventLog(nil), b.events...)
	b.chats = b.chats[:0]
	b.events = b.events[:0]
	return chats, events
}

func (b *buffer) startTimerLocked() {
	if b.flushInterval <= 0 {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.flushInterval, b.onTimer)
}

func (b *buffer) stopTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
