package store

import (
	"regexp"
	"strings"
)

// tokenRegex matches runs of letters/digits/apostrophes, so "O'Reilly" and
// "won't" survive as single tokens rather than being split at the quote.
var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}']+`)

// TokenizeProse splits document/chunk text into lowercase lexical tokens.
// Unlike a code tokenizer there is no camelCase/snake_case boundary to
// split on; prose tokens are already word-delimited.
func TokenizeProse(text string) []string {
	words := tokenRegex.FindAllString(text, -1)

	tokens := make([]string, 0, len(words))
	for _, word := range words {
		lower := strings.ToLower(strings.Trim(word, "'"))
		if len(lower) >= 2 {
			tokens = append(tokens, lower)
		}
	}

	return tokens
}

// FilterStopWords removes stop words from a token list.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		lower := strings.ToLower(token)
		if _, isStop := stopWords[lower]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// BuildStopWordMap converts a slice of stop words to a map for efficient lookup.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
