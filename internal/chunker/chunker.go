package chunker

import (
	"strings"
)

const (
	// promptReserve is the token headroom kept for instructions and the reply.
	promptReserve = 1024
	minWords      = 256
)

// Budget converts a model context window in tokens into the number of
// transcript words that fit alongside a prompt. Tokens are approximated as
// 0.75 words. A non-positive window means no limit.
func Budget(contextTokens int) int {
	if contextTokens <= 0 {
		return 0
	}
	words := (contextTokens - promptReserve) * 3 / 4
	if words < minWords {
		return minWords
	}
	return words
}

// Clip keeps the first maxWords whitespace-delimited words of text and
// reports whether anything was dropped. maxWords <= 0 returns text unchanged.
func Clip(text string, maxWords int) (string, bool) {
	if maxWords <= 0 {
		return text, false
	}
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text, false
	}
	return strings.Join(words[:maxWords], " "), true
}
