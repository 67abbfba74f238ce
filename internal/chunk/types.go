package chunk

import (
	"context"

	"github.com/m2ux/concept-rag-sub008/internal/store"
)

// Chunk size defaults, tuned for the embedding model's effective context
// window rather than a fixed token count.
const (
	DefaultMaxChunkTokens = 512 // Optimal for 85-90% recall
	DefaultOverlapTokens  = 64  // ~12.5% overlap
	MinChunkTokens        = 100 // Minimum viable chunk
	TokensPerChar         = 4   // Rough approximation: 4 chars = 1 token
)

// PageInput is one page of text already extracted from a source document
// (PDF, EPUB, or plain text), as produced by a document loader before
// chunking.
type PageInput struct {
	Number int // 1-indexed page number, 0 if the source has no pagination
	Text   string
}

// DocumentInput is a document's extracted pages, ready for chunking.
type DocumentInput struct {
	Source string // path or identifier of the originating file
	Pages  []PageInput
}

// Chunker splits a document's extracted pages into retrievable chunks.
// Implementations assign Text, PageNumber, and Loc on the returned chunks;
// ID, CatalogID, and classification/embedding fields are filled in by the
// ingestion pipeline afterward.
type Chunker interface {
	Chunk(ctx context.Context, doc *DocumentInput) ([]*store.Chunk, error)
}
