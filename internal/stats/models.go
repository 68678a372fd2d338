package stats

import (
	"time"

	"github.com/google/uuid"

	"github.com/you/soopcast/internal/core"
	"github.com/you/soopcast/internal/sentiment"
)

// EnrichedChatData is one chat record in the engine's history, carrying
// the features precomputed by the enrichment addon. Append-only; evicted
// strictly from the oldest end.
type EnrichedChatData struct {
	EventID        uuid.UUID
	ChannelID      string
	User           core.User
	Message        string
	Timestamp      time.Time
	Tokens         []string
	WordCount      int
	CharacterCount int
	IsLaugh        bool
	Sentiment      *sentiment.Result
}

// EnrichedDonationData is one finalized donation record in the history.
type EnrichedDonationData struct {
	EventID       uuid.UUID
	ChannelID     string
	UserID        string
	UserName      string
	Amount        uint32
	Message       string
	HasMessage    bool
	Timestamp     time.Time
	MessageTokens []string
}

// MatrixKind discriminates the Matrix union.
type MatrixKind string

const (
	MatrixChatPerMinute  MatrixKind = "chat_per_minute"
	MatrixLaugh          MatrixKind = "laugh"
	MatrixActiveViewer   MatrixKind = "active_viewer"
	MatrixChatterRanking MatrixKind = "active_chatter_ranking"
	MatrixWordCount      MatrixKind = "word_count"
	MatrixSentiment      MatrixKind = "sentiment"
)

// Matrix is one metric snapshot, produced fresh on every evaluation
// cycle. Exactly one payload pointer matching Kind is non-nil; it has no
// identity beyond its timestamp.
type Matrix struct {
	Kind      MatrixKind
	Timestamp time.Time

	ChatPerMinute  *ChatPerMinuteData
	Laugh          *LaughData
	ActiveViewer   *ActiveViewerData
	ChatterRanking *ChatterRankingData
	WordCount      *WordCountData
	Sentiment      *SentimentSummary
}

// ChatPerMinuteData counts chats over the last minute.
type ChatPerMinuteData struct {
	Count uint32
}

// LaughData counts laugh-flagged chats over the last 10 seconds.
type LaughData struct {
	Count uint32
}

// ActiveViewerData breaks the retained window's distinct chatters and
// donors down by classification. A user who is both subscriber and fan
// counts as subscriber.
type ActiveViewerData struct {
	Total      uint32
	Subscriber uint32
	Fan        uint32
	Normal     uint32
}

// ChatterRankingItem is one user's chat volume over the ranking window.
type ChatterRankingItem struct {
	User      core.User
	ChatCount uint32
}

// ChatterRankingData holds the top chatters of the last two minutes,
// most active first.
type ChatterRankingData struct {
	Rankings []ChatterRankingItem
}

// WordCountItem is one token's frequency over the word-count window.
type WordCountItem struct {
	Word  string
	Count uint32
}

// WordCountData holds the most frequent tokens of the last 30 seconds,
// most frequent first.
type WordCountData struct {
	Words []WordCountItem
}

// SentimentSummary aggregates the analyzed chats of the last 15 seconds.
type SentimentSummary struct {
	PositiveCount uint32
	NegativeCount uint32
	NeutralCount  uint32
	TotalCount    uint32
	PositiveRatio float32
	NegativeRatio float32
	NeutralRatio  float32
	AverageScore  float32
}
