package stats

import (
	"fmt"
	"testing"
	"time"

	"github.com/you/soopcast/internal/sentiment"
)

func TestChatPerMinuteWindow(t *testing.T) {
	now := time.Now().UTC()
	chats := []EnrichedChatData{
		chatAt(now.Add(-2*time.Minute), "u1"), // outside
		chatAt(now.Add(-59*time.Second), "u1"),
		chatAt(now.Add(-10*time.Second), "u2"),
	}
	m := ChatPerMinuteProcessor{}.Evaluate(chats, nil, now)
	if m.Kind != MatrixChatPerMinute || m.ChatPerMinute.Count != 2 {
		t.Fatalf("expected count 2, got %+v", m.ChatPerMinute)
	}
}

func TestLaughWindow(t *testing.T) {
	now := time.Now().UTC()
	laugh := chatAt(now.Add(-5*time.Second), "u1")
	laugh.IsLaugh = true
	old := chatAt(now.Add(-30*time.Second), "u1")
	old.IsLaugh = true
	chats := []EnrichedChatData{old, laugh, chatAt(now.Add(-2*time.Second), "u2")}

	m := LaughProcessor{}.Evaluate(chats, nil, now)
	if m.Laugh.Count != 1 {
		t.Fatalf("expected 1 laugh in last 10s, got %d", m.Laugh.Count)
	}
}

func TestActiveViewerBreakdown(t *testing.T) {
	now := time.Now().UTC()
	sub := chatAt(now, "sub")
	sub.User.Subscriber = true
	sub.User.Fan = true // subscriber wins over fan
	fan := chatAt(now, "fan")
	fan.User.Fan = true
	normal := chatAt(now, "normal")

	donations := []EnrichedDonationData{
		{UserID: "donor-only", Timestamp: now},
		{UserID: "fan", Timestamp: now}, // already counted as chatter
	}

	m := ActiveViewerProcessor{}.Evaluate([]EnrichedChatData{sub, fan, normal, sub}, donations, now)
	av := m.ActiveViewer
	if av.Total != 4 {
		t.Fatalf("expected 4 distinct viewers, got %d", av.Total)
	}
	if av.Subscriber != 1 || av.Fan != 1 || av.Normal != 2 {
		t.Fatalf("unexpected breakdown: %+v", av)
	}
}

func TestChatterRankingTop10(t *testing.T) {
	now := time.Now().UTC()
	var chats []EnrichedChatData
	// user-i sends i+1 chats; 12 users total.
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("user-%02d", i)
		for n := 0; n <= i; n++ {
			chats = append(chats, chatAt(now.Add(-time.Second), id))
		}
	}
	// A stale burst outside the 2 minute window.
	for n := 0; n < 50; n++ {
		chats = append(chats, chatAt(now.Add(-3*time.Minute), "stale"))
	}

	m := ChatterRankingProcessor{}.Evaluate(chats, nil, now)
	ranks := m.ChatterRanking.Rankings
	if len(ranks) != 10 {
		t.Fatalf("expected top 10, got %d", len(ranks))
	}
	if ranks[0].User.ID != "user-11" || ranks[0].ChatCount != 12 {
		t.Fatalf("expected user-11 with 12 chats on top, got %+v", ranks[0])
	}
	for i := 1; i < len(ranks); i++ {
		if ranks[i].ChatCount > ranks[i-1].ChatCount {
			t.Fatalf("ranking not sorted at %d", i)
		}
	}
}

func TestWordCountTopTokens(t *testing.T) {
	now := time.Now().UTC()
	mk := func(tokens ...string) EnrichedChatData {
		c := chatAt(now.Add(-time.Second), "u1")
		c.Tokens = tokens
		return c
	}
	chats := []EnrichedChatData{
		mk("hype", "hype", "stream"),
		mk("hype", ""),
		mk("stream"),
	}
	old := mk("hype")
	old.Timestamp = now.Add(-time.Minute)
	chats = append([]EnrichedChatData{old}, chats...)

	m := WordCountProcessor{}.Evaluate(chats, nil, now)
	words := m.WordCount.Words
	if len(words) != 2 {
		t.Fatalf("expected 2 distinct tokens, got %d", len(words))
	}
	if words[0].Word != "hype" || words[0].Count != 3 {
		t.Fatalf("expected hype x3 first, got %+v", words[0])
	}
	if words[1].Word != "stream" || words[1].Count != 2 {
		t.Fatalf("expected stream x2 second, got %+v", words[1])
	}
}

func TestSentimentSummary(t *testing.T) {
	now := time.Now().UTC()
	mk := func(label sentiment.Label, score float32, age time.Duration) EnrichedChatData {
		c := chatAt(now.Add(-age), "u1")
		c.Sentiment = &sentiment.Result{Sentiment: label, Score: score}
		return c
	}
	chats := []EnrichedChatData{
		mk(sentiment.Positive, 1.0, 20*time.Second), // outside 15s
		mk(sentiment.Positive, 0.5, 5*time.Second),
		mk(sentiment.Negative, -0.5, 4*time.Second),
		mk(sentiment.Neutral, 0, 3*time.Second),
		chatAt(now.Add(-2*time.Second), "u2"), // unanalyzed, skipped
	}

	m := SentimentProcessor{}.Evaluate(chats, nil, now)
	s := m.Sentiment
	if s.TotalCount != 3 || s.PositiveCount != 1 || s.NegativeCount != 1 || s.NeutralCount != 1 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.AverageScore != 0 {
		t.Fatalf("expected average score 0, got %f", s.AverageScore)
	}
	if s.PositiveRatio < 0.33 || s.PositiveRatio > 0.34 {
		t.Fatalf("unexpected positive ratio %f", s.PositiveRatio)
	}
}

func TestSentimentSummaryEmpty(t *testing.T) {
	m := SentimentProcessor{}.Evaluate(nil, nil, time.Now().UTC())
	if m.Sentiment.TotalCount != 0 || m.Sentiment.AverageScore != 0 {
		t.Fatalf("expected zero summary, got %+v", m.Sentiment)
	}
}

func TestProcessorsDoNotMutateHistory(t *testing.T) {
	now := time.Now().UTC()
	chats := []EnrichedChatData{chatAt(now, "u1"), chatAt(now, "u2")}
	donations := []EnrichedDonationData{{UserID: "d1", Timestamp: now}}
	snapshot := make([]EnrichedChatData, len(chats))
	copy(snapshot, chats)

	procs := []Processor{
		ChatPerMinuteProcessor{}, LaughProcessor{}, ActiveViewerProcessor{},
		ChatterRankingProcessor{}, WordCountProcessor{}, SentimentProcessor{},
	}
	for _, p := range procs {
		p.Evaluate(chats, donations, now)
	}
	for i := range snapshot {
		if chats[i].User.ID != snapshot[i].User.ID || chats[i].Message != snapshot[i].Message {
			t.Fatalf("history mutated by a processor at %d", i)
		}
	}
}
