// Package sentiment scores chat messages with a lexicon-based analyzer.
// One Analyzer handle is constructed at startup and shared by every
// consumer that needs scoring; there is no package-level singleton.
package sentiment

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Label classifies the overall tone of a message.
type Label string

const (
	Positive Label = "POSITIVE"
	Negative Label = "NEGATIVE"
	Neutral  Label = "NEUTRAL"
)

// Result is one message's analysis. Score is in [-1, 1]; the label flips
// away from Neutral once |score| crosses the threshold.
type Result struct {
	Sentiment Label
	Score     float32
}

const labelThreshold = 0.2

// Analyzer scores text against positive/negative token lexicons. The
// lexicons can be swapped at runtime (see Watch); scoring takes a read
// lock only.
type Analyzer struct {
	mu       sync.RWMutex
	positive map[string]struct{}
	negative map[string]struct{}
}

// defaults cover the most common Korean/English chat tokens so the
// analyzer is useful with no lexicon file configured.
var defaultPositive = []string{
	"좋다", "좋아", "최고", "감사", "사랑", "대박", "축하",
	"good", "great", "awesome", "love", "nice", "best", "thanks", "gg",
}

var defaultNegative = []string{
	"싫다", "싫어", "최악", "별로", "나쁘다", "화나", "실망",
	"bad", "terrible", "awful", "hate", "worst", "boring", "trash",
}

func NewAnalyzer() *Analyzer {
	a := &Analyzer{}
	a.swap(defaultPositive, defaultNegative)
	return a
}

func (a *Analyzer) swap(pos, neg []string) {
	positive := make(map[string]struct{}, len(pos))
	for _, w := range pos {
		positive[strings.ToLower(w)] = struct{}{}
	}
	negative := make(map[string]struct{}, len(neg))
	for _, w := range neg {
		negative[strings.ToLower(w)] = struct{}{}
	}
	a.mu.Lock()
	a.positive = positive
	a.negative = negative
	a.mu.Unlock()
}

// Analyze scores the tokenized message. Tokens are matched whole against
// both lexicons; the score is the signed hit balance normalized by token
// count.
func (a *Analyzer) Analyze(tokens []string) Result {
	if len(tokens) == 0 {
		return Result{Sentiment: Neutral}
	}

	a.mu.RLock()
	var hits float32
	for _, tok := range tokens {
		t := strings.ToLower(tok)
		if _, ok := a.positive[t]; ok {
			hits++
			continue
		}
		if _, ok := a.negative[t]; ok {
			hits--
		}
	}
	a.mu.RUnlock()

	score := hits / float32(len(tokens))
	label := Neutral
	switch {
	case score >= labelThreshold:
		label = Positive
	case score <= -labelThreshold:
		label = Negative
	}
	return Result{Sentiment: label, Score: score}
}

// LoadLexicon replaces both lexicons from a file of one token per line.
// Lines are "+word" or "-word"; blanks and "#" comments are skipped.
func (a *Analyzer) LoadLexicon(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open lexicon")
	}
	defer f.Close()

	var pos, neg []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+"):
			pos = append(pos, strings.TrimSpace(line[1:]))
		case strings.HasPrefix(line, "-"):
			neg = append(neg, strings.TrimSpace(line[1:]))
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "read lexicon")
	}
	if len(pos) == 0 && len(neg) == 0 {
		return errors.New("lexicon file has no entries")
	}

	a.swap(pos, neg)
	return nil
}
