// Package enrich derives per-message features (tokens, counts, laugh
// flag, sentiment) from chat and donation events and records them into
// the statistics engine.
package enrich

import (
	"context"
	"unicode/utf8"

	"github.com/you/soopcast/internal/addon"
	"github.com/you/soopcast/internal/core"
	"github.com/you/soopcast/internal/sentiment"
	"github.com/you/soopcast/internal/stats"
)

// Recorder is the slice of the stats engine this addon feeds.
type Recorder interface {
	RecordChat(stats.EnrichedChatData)
	RecordDonation(stats.EnrichedDonationData)
}

// Addon enriches chat/donation events. The analyzer handle is shared and
// may be nil, in which case sentiment is skipped.
type Addon struct {
	addon.Nop
	recorder Recorder
	analyzer *sentiment.Analyzer
}

func New(recorder Recorder, analyzer *sentiment.Analyzer) *Addon {
	return &Addon{recorder: recorder, analyzer: analyzer}
}

func (a *Addon) Name() string { return "enrich" }

func (a *Addon) OnChat(_ context.Context, _ *addon.Context, ev *core.ChatEvent) {
	tokens := Tokenize(ev.Comment)
	data := stats.EnrichedChatData{
		EventID:        ev.ID,
		ChannelID:      ev.ChannelID,
		User:           ev.User,
		Message:        ev.Comment,
		Timestamp:      ev.Timestamp,
		Tokens:         tokens,
		WordCount:      len(tokens),
		CharacterCount: utf8.RuneCountInString(ev.Comment),
		IsLaugh:        IsLaugh(ev.Comment),
	}
	if a.analyzer != nil {
		result := a.analyzer.Analyze(tokens)
		data.Sentiment = &result
	}
	a.recorder.RecordChat(data)
}

func (a *Addon) OnDonation(_ context.Context, _ *addon.Context, ev *core.DonationEvent) {
	var tokens []string
	if ev.HasMessage {
		tokens = Tokenize(ev.Message)
	}
	a.recorder.RecordDonation(stats.EnrichedDonationData{
		EventID:       ev.ID,
		ChannelID:     ev.ChannelID,
		UserID:        ev.From,
		UserName:      ev.FromLabel,
		Amount:        ev.Amount,
		Message:       ev.Message,
		HasMessage:    ev.HasMessage,
		Timestamp:     ev.Timestamp,
		MessageTokens: tokens,
	})
}
