// Package stats maintains rolling derived metrics over a sliding window
// of enriched chat and donation records, with bounded memory, and emits
// metric snapshots on per-processor cadences.
package stats

import (
	"log/slog"
	"sync"
	"time"
)

// Processor derives one metric from the histories. Evaluate must be a
// pure function of its inputs: it runs against per-tick clones and must
// not retain or mutate them.
type Processor interface {
	Name() string
	// Cadence is the number of base ticks between evaluations; a processor
	// with cadence k fires on tick counts 0, k, 2k, ...
	Cadence() int
	Evaluate(chats []EnrichedChatData, donations []EnrichedDonationData, now time.Time) Matrix
}

// Sink receives emitted metric snapshots. Implementations must not block
// for long: emission happens on the engine's tick loop.
type Sink interface {
	Notify(channel string, payload any)
}

// StatsChannel is the sink channel metric snapshots are emitted on.
const StatsChannel = "stats"

// Engine defaults.
const (
	DefaultBaseTick         = 2500 * time.Millisecond
	DefaultSweepInterval    = time.Second
	DefaultRetentionMinutes = 10
	DefaultChatCap          = 50000
	DefaultDonationCap      = 5000
)

// Options tunes the engine; zero values take the defaults above.
type Options struct {
	BaseTick      time.Duration
	SweepInterval time.Duration
	Retention     time.Duration
	ChatCap       int
	DonationCap   int
}

func (o *Options) fill() {
	if o.BaseTick <= 0 {
		o.BaseTick = DefaultBaseTick
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.Retention <= 0 {
		o.Retention = DefaultRetentionMinutes * time.Minute
	}
	if o.ChatCap <= 0 {
		o.ChatCap = DefaultChatCap
	}
	if o.DonationCap <= 0 {
		o.DonationCap = DefaultDonationCap
	}
}

// Engine owns the two bounded history buffers and the evaluation loop.
// Each buffer is guarded by its own RWMutex; the tick loop takes one read
// lock per tick to clone both, so processor count never multiplies lock
// contention. Stop is idempotent.
type Engine struct {
	opts       Options
	processors []Processor
	sink       Sink
	now        func() time.Time

	chatMu sync.RWMutex
	chats  []EnrichedChatData

	donationMu sync.RWMutex
	donations  []EnrichedDonationData

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewEngine(opts Options, sink Sink) *Engine {
	opts.fill()
	e := &Engine{
		opts:   opts,
		sink:   sink,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	e.AddProcessor(ChatPerMinuteProcessor{})
	e.AddProcessor(LaughProcessor{})
	e.AddProcessor(ActiveViewerProcessor{})
	e.AddProcessor(SentimentProcessor{})
	e.AddProcessor(ChatterRankingProcessor{})
	e.AddProcessor(WordCountProcessor{})
	return e
}

// AddProcessor registers an extra metric. Must be called before Start.
func (e *Engine) AddProcessor(p Processor) {
	e.processors = append(e.processors, p)
}

// RecordChat appends to the chat history, evicting from the oldest end
// when the hard cap would be exceeded.
func (e *Engine) RecordChat(data EnrichedChatData) {
	e.chatMu.Lock()
	if len(e.chats) >= e.opts.ChatCap {
		drop := len(e.chats) - e.opts.ChatCap + 1
		e.chats = append(e.chats[:0], e.chats[drop:]...)
	}
	e.chats = append(e.chats, data)
	e.chatMu.Unlock()
}

// RecordDonation appends to the donation history under the same cap rule.
func (e *Engine) RecordDonation(data EnrichedDonationData) {
	e.donationMu.Lock()
	if len(e.donations) >= e.opts.DonationCap {
		drop := len(e.donations) - e.opts.DonationCap + 1
		e.donations = append(e.donations[:0], e.donations[drop:]...)
	}
	e.donations = append(e.donations, data)
	e.donationMu.Unlock()
}

// ChatLen reports the current chat history length.
func (e *Engine) ChatLen() int {
	e.chatMu.RLock()
	defer e.chatMu.RUnlock()
	return len(e.chats)
}

// DonationLen reports the current donation history length.
func (e *Engine) DonationLen() int {
	e.donationMu.RLock()
	defer e.donationMu.RUnlock()
	return len(e.donations)
}

// Start launches the eviction sweep and the base-tick evaluation loop.
func (e *Engine) Start() {
	e.wg.Add(2)
	go e.sweepLoop()
	go e.tickLoop()
}

// Stop cancels both loops and waits for them to exit. Safe to call more
// than once.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
}

func (e *Engine) sweepLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.evictExpired(e.now())
		}
	}
}

// evictExpired drops records older than the retention window from the
// front of each buffer. Both buffers stay sorted by arrival, so the scan
// stops at the first record still inside the window.
func (e *Engine) evictExpired(now time.Time) {
	cutoff := now.Add(-e.opts.Retention)

	e.chatMu.Lock()
	idx := 0
	for idx < len(e.chats) && e.chats[idx].Timestamp.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		e.chats = append(e.chats[:0], e.chats[idx:]...)
	}
	e.chatMu.Unlock()

	e.donationMu.Lock()
	idx = 0
	for idx < len(e.donations) && e.donations[idx].Timestamp.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		e.donations = append(e.donations[:0], e.donations[idx:]...)
	}
	e.donationMu.Unlock()
}

func (e *Engine) tickLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.opts.BaseTick)
	defer ticker.Stop()

	tickCount := 0
	// Tick 0 fires immediately so consumers see metrics as soon as the
	// engine starts.
	e.runDue(tickCount)
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			tickCount++
			e.runDue(tickCount)
		}
	}
}

// runDue clones both histories once, then evaluates every processor whose
// cadence divides tickCount against the clones.
func (e *Engine) runDue(tickCount int) {
	var due []Processor
	for _, p := range e.processors {
		k := p.Cadence()
		if k <= 0 {
			k = 1
		}
		if tickCount%k == 0 {
			due = append(due, p)
		}
	}
	if len(due) == 0 {
		return
	}

	chats, donations := e.cloneHistories()
	now := e.now()
	for _, p := range due {
		matrix := p.Evaluate(chats, donations, now)
		if e.sink != nil {
			e.sink.Notify(StatsChannel, matrix)
		}
		slog.Debug("stats emitted", "processor", p.Name(), "kind", matrix.Kind)
	}
}

func (e *Engine) cloneHistories() ([]EnrichedChatData, []EnrichedDonationData) {
	e.chatMu.RLock()
	chats := make([]EnrichedChatData, len(e.chats))
	copy(chats, e.chats)
	e.chatMu.RUnlock()

	e.donationMu.RLock()
	donations := make([]EnrichedDonationData, len(e.donations))
	copy(donations, e.donations)
	e.donationMu.RUnlock()

	return chats, donations
}
