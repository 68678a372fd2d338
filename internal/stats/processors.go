package stats

import (
	"sort"
	"time"

	"github.com/you/soopcast/internal/core"
	"github.com/you/soopcast/internal/sentiment"
)

// recentChats returns the suffix of chats no older than window. The
// history is sorted by arrival, so a single scan for the first in-window
// record suffices.
func recentChats(chats []EnrichedChatData, now time.Time, window time.Duration) []EnrichedChatData {
	cutoff := now.Add(-window)
	start := len(chats)
	for i, c := range chats {
		if !c.Timestamp.Before(cutoff) {
			start = i
			break
		}
	}
	return chats[start:]
}

// ChatPerMinuteProcessor counts chats over the last minute, every tick.
type ChatPerMinuteProcessor struct{}

func (ChatPerMinuteProcessor) Name() string { return "chat_per_minute" }
func (ChatPerMinuteProcessor) Cadence() int { return 1 }

func (ChatPerMinuteProcessor) Evaluate(chats []EnrichedChatData, _ []EnrichedDonationData, now time.Time) Matrix {
	recent := recentChats(chats, now, time.Minute)
	return Matrix{
		Kind:          MatrixChatPerMinute,
		Timestamp:     now,
		ChatPerMinute: &ChatPerMinuteData{Count: uint32(len(recent))},
	}
}

// LaughProcessor counts laugh-flagged chats over the last 10 seconds,
// every tick.
type LaughProcessor struct{}

func (LaughProcessor) Name() string { return "laugh" }
func (LaughProcessor) Cadence() int { return 1 }

func (LaughProcessor) Evaluate(chats []EnrichedChatData, _ []EnrichedDonationData, now time.Time) Matrix {
	var count uint32
	for _, c := range recentChats(chats, now, 10*time.Second) {
		if c.IsLaugh {
			count++
		}
	}
	return Matrix{
		Kind:      MatrixLaugh,
		Timestamp: now,
		Laugh:     &LaughData{Count: count},
	}
}

// ActiveViewerProcessor breaks distinct active users over the whole
// retained window down into subscriber/fan/normal, every tick. Subscriber
// wins when a user is both; donation-only users count as normal.
type ActiveViewerProcessor struct{}

func (ActiveViewerProcessor) Name() string { return "active_viewer" }
func (ActiveViewerProcessor) Cadence() int { return 1 }

func (ActiveViewerProcessor) Evaluate(chats []EnrichedChatData, donations []EnrichedDonationData, now time.Time) Matrix {
	type class struct {
		subscriber bool
		fan        bool
	}
	users := make(map[string]class)
	for _, c := range chats {
		cl := users[c.User.ID]
		cl.subscriber = cl.subscriber || c.User.Subscriber
		cl.fan = cl.fan || c.User.Fan
		users[c.User.ID] = cl
	}
	for _, d := range donations {
		if _, ok := users[d.UserID]; !ok {
			users[d.UserID] = class{}
		}
	}

	data := &ActiveViewerData{Total: uint32(len(users))}
	for _, cl := range users {
		switch {
		case cl.subscriber:
			data.Subscriber++
		case cl.fan:
			data.Fan++
		default:
			data.Normal++
		}
	}
	return Matrix{Kind: MatrixActiveViewer, Timestamp: now, ActiveViewer: data}
}

// ChatterRankingProcessor ranks the top 10 chatters of the last two
// minutes, every other tick.
type ChatterRankingProcessor struct{}

func (ChatterRankingProcessor) Name() string { return "active_chatter_ranking" }
func (ChatterRankingProcessor) Cadence() int { return 2 }

func (ChatterRankingProcessor) Evaluate(chats []EnrichedChatData, _ []EnrichedDonationData, now time.Time) Matrix {
	type entry struct {
		user  core.User
		count uint32
	}
	counts := make(map[string]*entry)
	for _, c := range recentChats(chats, now, 2*time.Minute) {
		if e, ok := counts[c.User.ID]; ok {
			e.count++
		} else {
			counts[c.User.ID] = &entry{user: c.User, count: 1}
		}
	}

	rankings := make([]ChatterRankingItem, 0, len(counts))
	for _, e := range counts {
		rankings = append(rankings, ChatterRankingItem{User: e.user, ChatCount: e.count})
	}
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].ChatCount != rankings[j].ChatCount {
			return rankings[i].ChatCount > rankings[j].ChatCount
		}
		return rankings[i].User.ID < rankings[j].User.ID
	})
	if len(rankings) > 10 {
		rankings = rankings[:10]
	}
	return Matrix{
		Kind:           MatrixChatterRanking,
		Timestamp:      now,
		ChatterRanking: &ChatterRankingData{Rankings: rankings},
	}
}

// WordCountProcessor tallies the top 100 tokens of the last 30 seconds,
// every other tick.
type WordCountProcessor struct{}

func (WordCountProcessor) Name() string { return "word_count" }
func (WordCountProcessor) Cadence() int { return 2 }

func (WordCountProcessor) Evaluate(chats []EnrichedChatData, _ []EnrichedDonationData, now time.Time) Matrix {
	counts := make(map[string]uint32)
	for _, c := range recentChats(chats, now, 30*time.Second) {
		for _, tok := range c.Tokens {
			if tok == "" {
				continue
			}
			counts[tok]++
		}
	}

	words := make([]WordCountItem, 0, len(counts))
	for w, n := range counts {
		words = append(words, WordCountItem{Word: w, Count: n})
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return words[i].Word < words[j].Word
	})
	if len(words) > 100 {
		words = words[:100]
	}
	return Matrix{
		Kind:      MatrixWordCount,
		Timestamp: now,
		WordCount: &WordCountData{Words: words},
	}
}

// SentimentProcessor summarizes the analyzed chats of the last 15
// seconds, every tick. Chats without an analysis result are skipped.
type SentimentProcessor struct{}

func (SentimentProcessor) Name() string { return "sentiment" }
func (SentimentProcessor) Cadence() int { return 1 }

func (SentimentProcessor) Evaluate(chats []EnrichedChatData, _ []EnrichedDonationData, now time.Time) Matrix {
	summary := &SentimentSummary{}
	var scoreSum float32
	for _, c := range recentChats(chats, now, 15*time.Second) {
		if c.Sentiment == nil {
			continue
		}
		summary.TotalCount++
		scoreSum += c.Sentiment.Score
		switch c.Sentiment.Sentiment {
		case sentiment.Positive:
			summary.PositiveCount++
		case sentiment.Negative:
			summary.NegativeCount++
		default:
			summary.NeutralCount++
		}
	}
	if summary.TotalCount > 0 {
		total := float32(summary.TotalCount)
		summary.PositiveRatio = float32(summary.PositiveCount) / total
		summary.NegativeRatio = float32(summary.NegativeCount) / total
		summary.NeutralRatio = float32(summary.NeutralCount) / total
		summary.AverageScore = scoreSum / total
	}
	return Matrix{Kind: MatrixSentiment, Timestamp: now, Sentiment: summary}
}
