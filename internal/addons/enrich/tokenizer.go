package enrich

import (
	"strings"
	"unicode"
)

// Tokenize splits text on whitespace and normalizes each token to
// lowercase alphanumerics (Hangul included). Empty tokens are dropped.
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := cleanToken(f)
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func cleanToken(tok string) string {
	var b strings.Builder
	for _, r := range tok {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

var laughTokens = map[string]struct{}{
	"lol": {}, "lmao": {}, "kkk": {}, "kek": {},
}

// IsLaugh reports whether the message reads as laughter: a run of two or
// more ㅋ/ㅎ jamo, or a known laugh token.
func IsLaugh(message string) bool {
	run := 0
	for _, r := range message {
		if r == 'ㅋ' || r == 'ㅎ' {
			run++
			if run >= 2 {
				return true
			}
		} else if !unicode.IsSpace(r) {
			run = 0
		}
	}
	for _, tok := range Tokenize(message) {
		if _, ok := laughTokens[tok]; ok {
			return true
		}
	}
	return false
}
