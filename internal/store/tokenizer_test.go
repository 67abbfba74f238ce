package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeProse_SplitsOnWhitespace(t *testing.T) {
	tokens := TokenizeProse("hybrid retrieval systems")
	assert.Equal(t, []string{"hybrid", "retrieval", "systems"}, tokens)
}

func TestTokenizeProse_LowercasesTokens(t *testing.T) {
	tokens := TokenizeProse("Concept Graphs")
	assert.Equal(t, []string{"concept", "graphs"}, tokens)
}

func TestTokenizeProse_SplitsOnPunctuation(t *testing.T) {
	tokens := TokenizeProse("retrieval, ranking; scoring.")
	assert.Equal(t, []string{"retrieval", "ranking", "scoring"}, tokens)
}

func TestTokenizeProse_KeepsApostrophesWithinWords(t *testing.T) {
	tokens := TokenizeProse("O'Reilly published it")
	assert.Equal(t, []string{"o'reilly", "published", "it"}, tokens)
}

func TestTokenizeProse_DropsSingleCharacterTokens(t *testing.T) {
	tokens := TokenizeProse("a concept x")
	assert.Equal(t, []string{"concept"}, tokens)
}

func TestTokenizeProse_HandlesUnicodeLetters(t *testing.T) {
	tokens := TokenizeProse("naïve Bayes")
	assert.Equal(t, []string{"naïve", "bayes"}, tokens)
}

func TestFilterStopWords_RemovesStopWords(t *testing.T) {
	stopWords := BuildStopWordMap(DefaultProseStopWords)
	tokens := []string{"the", "concept", "of", "retrieval"}

	result := FilterStopWords(tokens, stopWords)

	assert.Equal(t, []string{"concept", "retrieval"}, result)
}

func TestBuildStopWordMap_LowercasesEntries(t *testing.T) {
	m := BuildStopWordMap([]string{"The", "OF"})

	_, hasThe := m["the"]
	_, hasOf := m["of"]
	assert.True(t, hasThe)
	assert.True(t, hasOf)
}
