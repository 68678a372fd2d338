package sentiment

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAnalyzeDefaults(t *testing.T) {
	a := NewAnalyzer()

	if got := a.Analyze([]string{"gg", "best"}); got.Sentiment != Positive {
		t.Fatalf("expected positive, got %v (score=%f)", got.Sentiment, got.Score)
	}
	if got := a.Analyze([]string{"trash", "boring"}); got.Sentiment != Negative {
		t.Fatalf("expected negative, got %v (score=%f)", got.Sentiment, got.Score)
	}
	if got := a.Analyze([]string{"the", "stream", "is", "on", "now", "yes", "ok", "hm"}); got.Sentiment != Neutral {
		t.Fatalf("expected neutral, got %v (score=%f)", got.Sentiment, got.Score)
	}
	if got := a.Analyze(nil); got.Sentiment != Neutral || got.Score != 0 {
		t.Fatalf("empty input should be neutral zero, got %+v", got)
	}
}

func TestLoadLexicon(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.txt")
	content := "# test lexicon\n+poggers\n-cringe\n\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write lexicon: %v", err)
	}

	a := NewAnalyzer()
	if err := a.LoadLexicon(path); err != nil {
		t.Fatalf("load lexicon: %v", err)
	}

	if got := a.Analyze([]string{"poggers"}); got.Sentiment != Positive {
		t.Fatalf("expected positive from loaded lexicon, got %v", got.Sentiment)
	}
	// Defaults are replaced wholesale.
	if got := a.Analyze([]string{"gg"}); got.Sentiment != Neutral {
		t.Fatalf("expected defaults gone after reload, got %v", got.Sentiment)
	}
}

func TestLoadLexiconRejectsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, []byte("# nothing here\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	a := NewAnalyzer()
	if err := a.LoadLexicon(path); err == nil {
		t.Fatalf("expected error for empty lexicon")
	}
}
