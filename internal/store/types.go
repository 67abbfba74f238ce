// Package store provides vector storage (HNSW), lexical storage (BM25), and
// metadata persistence (SQLite) for the retrieval-over-concepts engine.
package store

import (
	"context"
	"fmt"
	"time"
)

// ConceptType distinguishes concepts surfaced by frequency/co-occurrence
// analysis from concepts pinned by controlled vocabulary.
type ConceptType string

const (
	ConceptTypeThematic    ConceptType = "thematic"
	ConceptTypeTerminology ConceptType = "terminology"
)

// EnrichmentSource records where a concept's synonym/broader/narrower terms
// came from.
type EnrichmentSource string

const (
	EnrichmentCorpus  EnrichmentSource = "corpus"
	EnrichmentWordnet EnrichmentSource = "wordnet"
	EnrichmentHybrid  EnrichmentSource = "hybrid"
)

// VisualType classifies a Visual row.
type VisualType string

const (
	VisualTypeDiagram   VisualType = "diagram"
	VisualTypeFlowchart VisualType = "flowchart"
	VisualTypeChart     VisualType = "chart"
	VisualTypeTable     VisualType = "table"
	VisualTypeFigure    VisualType = "figure"
)

// State keys for the metadata store's key-value runtime state.
const (
	StateKeyIndexDimension = "index_embedding_dimension"
	StateKeyIndexModel     = "index_embedding_model"
)

// Checkpoint state keys for resumable ingestion.
const (
	StateKeyCheckpointStage     = "checkpoint_stage"
	StateKeyCheckpointTotal     = "checkpoint_total"
	StateKeyCheckpointEmbedded  = "checkpoint_embedded"
	StateKeyCheckpointTimestamp = "checkpoint_timestamp"
)

// CurrentSchemaVersion is the current database schema version.
const CurrentSchemaVersion = 1

// Category is a top-level or nested grouping of documents. Ids are
// content-derived (see internal/ids); they are never renumbered.
type Category struct {
	ID                 uint32
	Name               string
	Description        string
	ParentID           *uint32
	Aliases            []string
	RelatedCategoryIDs []uint32
	DocumentCount      uint32
	ChunkCount         uint32
	ConceptCount       uint32
	Embedding          []float32
}

// Concept is a thematic or terminology term discovered in the corpus or
// enriched from an external ontology. Concepts carry no category of their
// own; membership is discovered by joining through CatalogEntry.CategoryIDs.
type Concept struct {
	ID               uint32
	Name             string
	Type             ConceptType
	CatalogIDs       []uint32
	RelatedConcepts  []string
	Synonyms         []string
	Broader          []string
	Narrower         []string
	Weight           float64
	ChunkCount       uint32
	EnrichmentSource EnrichmentSource
	Embedding        []float32
}

// CatalogEntry is a single ingested document.
type CatalogEntry struct {
	ID           uint32
	Title        string
	Source       string
	Hash         string
	OriginHash   *string
	Text         string
	Embedding    []float32
	ConceptIDs   []uint32
	CategoryIDs  []uint32
	FilenameTags []string
	Author       *string
	Year         *string
	Publisher    *string
	ISBN         *string
}

// Chunk is a retrievable unit of a CatalogEntry's content.
type Chunk struct {
	ID                  uint32
	CatalogID           uint32
	Text                string
	PageNumber          uint32
	Loc                 string
	Embedding           []float32
	ConceptIDs          []uint32
	CategoryIDs         []uint32
	ConceptDensity      float64
	IsToC               bool
	IsFrontMatter       bool
	IsBackMatter        bool
	IsMetaContent       bool
	IsReference         bool
	ContainsCitations   bool
	HasMath             bool
	HasExtractionIssues bool
	CreatedAt           time.Time
}

// Visual is a non-text artifact (figure, diagram, table) extracted from a
// document. Association to chunks is only via CatalogID, never stored
// directly.
type Visual struct {
	ID           uint32
	CatalogID    uint32
	CatalogTitle string
	VisualType   VisualType
	PageNumber   uint32
	Description  string
	ConceptIDs   []uint32
	ImagePath    string
	Embedding    []float32
}

// SearchResult is a scored candidate returned by a hybrid search.
type SearchResult struct {
	ID              uint32
	CatalogID       uint32
	Title           string
	Text            string
	Source          string
	HybridScore     float64
	VectorScore     float64
	BM25Score       float64
	TitleScore      float64
	ConceptScore    float64
	WordnetBonus    float64
	MatchedConcepts []string
	ExpandedTerms   []string
}

// MetadataStore persists Category/Concept/CatalogEntry/Chunk/Visual rows in
// SQLite. The repositories in internal/repository sit on top of this plus
// the VectorStore below.
type MetadataStore interface {
	// Category operations
	SaveCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id uint32) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	UpdateCategoryStats(ctx context.Context, id uint32, documentCount, chunkCount, conceptCount uint32) error

	// Concept operations
	SaveConcept(ctx context.Context, c *Concept) error
	GetConcept(ctx context.Context, id uint32) (*Concept, error)
	ListConcepts(ctx context.Context) ([]*Concept, error)

	// CatalogEntry operations
	SaveCatalogEntry(ctx context.Context, e *CatalogEntry) error
	GetCatalogEntry(ctx context.Context, id uint32) (*CatalogEntry, error)
	GetCatalogEntryBySource(ctx context.Context, source string) (*CatalogEntry, error)
	ListCatalogEntriesByCategory(ctx context.Context, categoryID uint32) ([]*CatalogEntry, error)
	DeleteCatalogEntry(ctx context.Context, id uint32) error

	// Chunk operations
	SaveChunks(ctx context.Context, chunks []*Chunk) error
	GetChunk(ctx context.Context, id uint32) (*Chunk, error)
	GetChunks(ctx context.Context, ids []uint32) ([]*Chunk, error)
	GetChunksByCatalog(ctx context.Context, catalogID uint32) ([]*Chunk, error)
	DeleteChunksByCatalog(ctx context.Context, catalogID uint32) error
	CountChunks(ctx context.Context) (int, error)

	// Visual operations
	SaveVisuals(ctx context.Context, visuals []*Visual) error
	GetVisuals(ctx context.Context, ids []uint32) ([]*Visual, error)
	GetVisualsByCatalog(ctx context.Context, catalogID uint32) ([]*Visual, error)
	GetVisualsByType(ctx context.Context, vt VisualType, limit int) ([]*Visual, error)
	ListVisuals(ctx context.Context, limit int) ([]*Visual, error)

	// State operations (key-value store for runtime/checkpoint state)
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	// Checkpoint operations (resumable ingestion)
	SaveIngestCheckpoint(ctx context.Context, stage string, total, embeddedCount int) error
	LoadIngestCheckpoint(ctx context.Context) (*IngestCheckpoint, error)
	ClearIngestCheckpoint(ctx context.Context) error

	Close() error
}

// IngestCheckpoint is the saved state of an ingestion run, for resume.
type IngestCheckpoint struct {
	Stage         string
	Total         int
	EmbeddedCount int
	Timestamp     time.Time
}

// Document is a unit of text handed to the BM25 index. Its ID matches the
// owning row's content-derived id, encoded as a decimal string so bleve's
// string-keyed document store can address it.
type Document struct {
	ID      string
	Content string
}

// BM25Result is a single BM25 search hit.
type BM25Result struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// IndexStats describes a BM25 index.
type IndexStats struct {
	DocumentCount int
	TermCount     int
	AvgDocLength  float64
}

// BM25Index provides keyword search using the BM25 algorithm.
type BM25Index interface {
	Index(ctx context.Context, docs []*Document) error
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)
	Delete(ctx context.Context, docIDs []string) error
	AllIDs() ([]string, error)
	Stats() *IndexStats
	Save(path string) error
	Load(path string) error
	Close() error
}

// BM25Config configures the BM25 index.
type BM25Config struct {
	K1             float64
	B              float64
	StopWords      []string
	MinTokenLength int
}

// DefaultBM25Config returns default BM25 configuration tuned for prose.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:             1.2,
		B:              0.75,
		StopWords:      DefaultProseStopWords,
		MinTokenLength: 2,
	}
}

// DefaultProseStopWords are common English function words filtered out
// during lexical tokenization of document/chunk text.
var DefaultProseStopWords = []string{
	"a", "an", "the", "and", "or", "but", "of", "to", "in", "on", "at",
	"for", "with", "as", "is", "are", "was", "were", "be", "been", "being",
	"this", "that", "these", "those", "it", "its", "from", "by", "which",
}

// VectorResult is a single ANN search hit. IDs are the decimal string form
// of a row's content-derived uint32 id, matching BM25Index.Document's
// string-keyed addressing.
type VectorResult struct {
	ID       string
	Distance float32
	Score    float32
}

// VectorStoreConfig configures the HNSW vector store.
type VectorStoreConfig struct {
	Dimensions     int
	Metric         string
	M              int
	EfConstruction int
	EfSearch       int
}

// DefaultVectorStoreConfig returns sensible defaults for the vector store.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions:     dimensions,
		Metric:         "cos",
		M:              32,
		EfConstruction: 128,
		EfSearch:       64,
	}
}

// VectorStore provides approximate nearest-neighbor search over embeddings.
// IDs are the decimal string form of a row's content-derived uint32 id.
type VectorStore interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Delete(ctx context.Context, ids []string) error
	AllIDs() []string
	Contains(id string) bool
	Count() int
	Save(path string) error
	Load(path string) error
	Close() error
}

// ErrDimensionMismatch indicates an embedding arrived with a dimension that
// does not match the store's configured dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d (run 'refresh --force')", e.Expected, e.Got)
}
