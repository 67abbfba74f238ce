package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageChunker_EmptyDocument_ReturnsNoChunks(t *testing.T) {
	c := NewPageChunker()
	chunks, err := c.Chunk(context.Background(), &DocumentInput{Source: "empty.txt", Pages: []PageInput{{Number: 1, Text: "   \n\n  "}}})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestPageChunker_MarkdownHeaders_SplitIntoSections(t *testing.T) {
	c := NewPageChunker()
	text := "# Introduction\n\nThis chapter introduces the system.\n\n## Background\n\nSome background material.\n"
	chunks, err := c.Chunk(context.Background(), &DocumentInput{Source: "book.md", Pages: []PageInput{{Number: 1, Text: text}}})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Introduction", chunks[0].Loc)
	assert.Equal(t, "Introduction > Background", chunks[1].Loc)
	assert.Contains(t, chunks[0].Text, "introduces the system")
	assert.Contains(t, chunks[1].Text, "background material")
}

func TestPageChunker_NumberedSections_RecognizedAsHeaders(t *testing.T) {
	c := NewPageChunker()
	text := "2 Related Work\n\nPrior approaches relied on sparse retrieval.\n\n2.1 Dense Retrieval\n\nDense retrieval uses embeddings.\n"
	chunks, err := c.Chunk(context.Background(), &DocumentInput{Source: "paper.txt", Pages: []PageInput{{Number: 3, Text: text}}})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Related Work", chunks[0].Loc)
	assert.Equal(t, "Related Work > Dense Retrieval", chunks[1].Loc)
	for _, ch := range chunks {
		assert.Equal(t, uint32(3), ch.PageNumber)
	}
}

func TestPageChunker_AllCapsHeader_RecognizedAsHeader(t *testing.T) {
	c := NewPageChunker()
	text := "INTRODUCTION\n\nThe system retrieves concepts, categories, and chunks.\n"
	chunks, err := c.Chunk(context.Background(), &DocumentInput{Source: "book.txt", Pages: []PageInput{{Number: 1, Text: text}}})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "INTRODUCTION", chunks[0].Loc)
}

func TestPageChunker_NoHeaders_ChunksByParagraph(t *testing.T) {
	c := NewPageChunker()
	text := "First paragraph of plain prose.\n\nSecond paragraph continues the thought.\n"
	chunks, err := c.Chunk(context.Background(), &DocumentInput{Source: "plain.txt", Pages: []PageInput{{Number: 5, Text: text}}})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "", chunks[0].Loc)
	assert.Contains(t, chunks[0].Text, "First paragraph")
	assert.Contains(t, chunks[0].Text, "Second paragraph")
}

func TestPageChunker_OversizedSection_SplitsOnTokenBudget(t *testing.T) {
	c := NewPageChunkerWithOptions(PageChunkerOptions{MaxChunkTokens: 20})
	var paras []string
	for i := 0; i < 10; i++ {
		paras = append(paras, strings.Repeat("word ", 20))
	}
	text := "# Long Chapter\n\n" + strings.Join(paras, "\n\n")
	chunks, err := c.Chunk(context.Background(), &DocumentInput{Source: "long.md", Pages: []PageInput{{Number: 1, Text: text}}})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.Equal(t, "Long Chapter", ch.Loc)
	}
}

func TestPageChunker_MultiplePages_PreservesPageNumbers(t *testing.T) {
	c := NewPageChunker()
	doc := &DocumentInput{
		Source: "multi.txt",
		Pages: []PageInput{
			{Number: 1, Text: "# Chapter One\n\nOpening material.\n"},
			{Number: 2, Text: "# Chapter Two\n\nFollow-up material.\n"},
		},
	}
	chunks, err := c.Chunk(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, uint32(1), chunks[0].PageNumber)
	assert.Equal(t, uint32(2), chunks[1].PageNumber)
}

func TestPageChunker_ContextCancellation_StopsEarly(t *testing.T) {
	c := NewPageChunker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Chunk(ctx, &DocumentInput{Source: "x.txt", Pages: []PageInput{{Number: 1, Text: "# A\n\nbody\n"}}})
	assert.Error(t, err)
}

func TestEstimateTokens_RoughCharRatio(t *testing.T) {
	assert.Equal(t, 4, estimateTokens("16 characters!!!"))
}
