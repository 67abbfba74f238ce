// Package container is the composition root: it constructs every store,
// cache, and repository the tool surface needs, wires them together, and
// owns their lifecycle (initialize, refresh, close).
package container

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/m2ux/concept-rag-sub008/internal/async"
	"github.com/m2ux/concept-rag-sub008/internal/cache"
	"github.com/m2ux/concept-rag-sub008/internal/config"
	"github.com/m2ux/concept-rag-sub008/internal/embed"
	"github.com/m2ux/concept-rag-sub008/internal/mcp"
	"github.com/m2ux/concept-rag-sub008/internal/repository"
	"github.com/m2ux/concept-rag-sub008/internal/search"
	"github.com/m2ux/concept-rag-sub008/internal/store"
	"github.com/m2ux/concept-rag-sub008/internal/telemetry"
	"github.com/m2ux/concept-rag-sub008/internal/wordnet"
)

const (
	metadataFileName  = "metadata.db"
	conceptVectorName = "concepts"
	catalogVectorName = "catalog"
	chunkVectorName   = "chunks"
	catalogLexName    = "catalog_fts"
	chunkLexName      = "chunks_fts"
	ingestLockName    = ".ingest.lock"
	imagesDirName     = "images"
)

// Container owns every long-lived dependency the MCP tool surface needs:
// the metadata store, the per-row-family vector and lexical indexes, the
// identifier caches, the query-expansion/WordNet service, and the
// repositories built over all of the above.
type Container struct {
	cfg    *config.Config
	logger *slog.Logger

	metadata store.MetadataStore

	conceptVectors store.VectorStore
	catalogVectors store.VectorStore
	chunkVectors   store.VectorStore

	catalogLexical store.BM25Index
	chunkLexical   store.BM25Index

	embedder embed.Embedder
	wordnet  *wordnet.Service
	expander *search.QueryExpander

	categoryCache *cache.CategoryCache
	conceptCache  *cache.ConceptCache

	categories *repository.CategoryRepository
	concepts   *repository.ConceptRepository
	catalog    *repository.CatalogRepository
	chunks     *repository.ChunkRepository
	visuals    *repository.VisualRepository

	tools   *mcp.Server
	metrics *telemetry.QueryMetrics

	lock *flock.Flock

	mu     sync.RWMutex
	closed bool

	compactMu   sync.Mutex
	lastCompact time.Time
	idleTimer   *time.Timer
}

// New constructs a Container from cfg: it opens or creates the metadata
// database and vector/lexical indexes under cfg.Store.DataDir, builds an
// embedder, loads the WordNet dataset (if present), and wires the
// repository layer and MCP tool surface over all of it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("container: config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("container: invalid config: %w", err)
	}

	if err := os.MkdirAll(cfg.Store.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("container: create data dir: %w", err)
	}
	imagesRoot := filepath.Join(cfg.Store.DataDir, imagesDirName)
	if err := os.MkdirAll(imagesRoot, 0o755); err != nil {
		return nil, fmt.Errorf("container: create images dir: %w", err)
	}

	c := &Container{cfg: cfg, logger: logger}

	metadata, err := store.NewSQLiteStore(filepath.Join(cfg.Store.DataDir, metadataFileName))
	if err != nil {
		return nil, fmt.Errorf("container: open metadata store: %w", err)
	}
	c.metadata = metadata

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		_ = metadata.Close()
		return nil, fmt.Errorf("container: build embedder: %w", err)
	}
	c.embedder = embedder
	dims := embedder.Dimensions()

	if c.conceptVectors, err = c.openVectorStore(conceptVectorName, dims); err != nil {
		c.Close()
		return nil, err
	}
	if c.catalogVectors, err = c.openVectorStore(catalogVectorName, dims); err != nil {
		c.Close()
		return nil, err
	}
	if c.chunkVectors, err = c.openVectorStore(chunkVectorName, dims); err != nil {
		c.Close()
		return nil, err
	}

	bm25Cfg := store.DefaultBM25Config()
	if c.catalogLexical, err = store.NewBM25IndexWithBackend(
		filepath.Join(cfg.Store.DataDir, catalogLexName), bm25Cfg, cfg.Search.BM25Backend); err != nil {
		c.Close()
		return nil, fmt.Errorf("container: open catalog lexical index: %w", err)
	}
	if c.chunkLexical, err = store.NewBM25IndexWithBackend(
		filepath.Join(cfg.Store.DataDir, chunkLexName), bm25Cfg, cfg.Search.BM25Backend); err != nil {
		c.Close()
		return nil, fmt.Errorf("container: open chunk lexical index: %w", err)
	}

	svc, err := loadWordNet(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.wordnet = svc

	if err := c.buildCaches(ctx); err != nil {
		c.Close()
		return nil, err
	}

	c.wireRepositories()

	metrics, err := newQueryMetrics(c.metadata, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("container: build query metrics: %w", err)
	}

	tools, err := mcp.NewServer(mcp.Deps{
		Categories: c.categories,
		Concepts:   c.concepts,
		Catalog:    c.catalog,
		Chunks:     c.chunks,
		Visuals:    c.visuals,
		Metrics:    metrics,
	}, imagesRoot, logger)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("container: build tool surface: %w", err)
	}
	c.tools = tools
	c.metrics = metrics

	c.lock = flock.New(filepath.Join(cfg.Store.DataDir, ingestLockName))

	return c, nil
}

// sqlDB is implemented by store.MetadataStore backends that expose their
// underlying *sql.DB, so query telemetry can persist into the same database
// file instead of opening a second connection.
type sqlDB interface {
	DB() *sql.DB
}

// newQueryMetrics builds the search tool surface's query telemetry
// collector. When metadata exposes its *sql.DB (the SQLite backend does),
// telemetry persists across restarts in a sidecar table; otherwise it falls
// back to an in-memory-only collector.
func newQueryMetrics(metadata store.MetadataStore, logger *slog.Logger) (*telemetry.QueryMetrics, error) {
	backend, ok := metadata.(sqlDB)
	if !ok {
		return telemetry.NewQueryMetrics(nil), nil
	}
	db := backend.DB()
	if err := telemetry.InitTelemetrySchema(db); err != nil {
		return nil, fmt.Errorf("init telemetry schema: %w", err)
	}
	metricsStore, err := telemetry.NewSQLiteMetricsStore(db)
	if err != nil {
		return nil, fmt.Errorf("open telemetry store: %w", err)
	}
	logger.Debug("query telemetry persisting to metadata store")
	return telemetry.NewQueryMetrics(metricsStore), nil
}

func newEmbedder(ctx context.Context, cfg *config.Config) (embed.Embedder, error) {
	if cfg.Embeddings.Provider != "" {
		return embed.NewEmbedder(ctx, embed.ProviderType(cfg.Embeddings.Provider), cfg.Embeddings.Model)
	}
	return embed.NewDefaultEmbedder(ctx)
}

// openVectorStore opens an HNSW store with dims, loading any existing
// persisted graph from disk under cfg.Store.DataDir/<name>.hnsw.
func (c *Container) openVectorStore(name string, dims int) (store.VectorStore, error) {
	vs, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(dims))
	if err != nil {
		return nil, fmt.Errorf("container: create %s vector store: %w", name, err)
	}
	path := c.vectorPath(name)
	if _, statErr := os.Stat(path); statErr == nil {
		if err := vs.Load(path); err != nil {
			return nil, fmt.Errorf("container: load %s vector store: %w", name, err)
		}
	}
	return vs, nil
}

func (c *Container) vectorPath(name string) string {
	return filepath.Join(c.cfg.Store.DataDir, name+".hnsw")
}

// loadWordNet loads the synset dataset named by cfg.WordNet.DatasetPath. A
// missing dataset is not an error - query expansion simply runs without
// WordNet enrichment (concept and vector signals still apply).
func loadWordNet(cfg *config.Config) (*wordnet.Service, error) {
	ttl, err := time.ParseDuration(cfg.WordNet.CacheTTL)
	if err != nil {
		ttl = wordnet.DefaultCacheTTL
	}
	opts := []wordnet.Option{wordnet.WithCache(cfg.WordNet.CacheSize, ttl)}

	if cfg.WordNet.DatasetPath == "" {
		return wordnet.New(nil, opts...), nil
	}
	if _, err := os.Stat(cfg.WordNet.DatasetPath); err != nil {
		return wordnet.New(nil, opts...), nil
	}
	svc, err := wordnet.LoadFromFile(cfg.WordNet.DatasetPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("container: load wordnet dataset: %w", err)
	}
	return svc, nil
}

// buildCaches loads every category and concept from the metadata store and
// builds the identifier caches repositories resolve names/aliases through.
func (c *Container) buildCaches(ctx context.Context) error {
	categories, err := c.metadata.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("container: list categories: %w", err)
	}
	concepts, err := c.metadata.ListConcepts(ctx)
	if err != nil {
		return fmt.Errorf("container: list concepts: %w", err)
	}
	c.categoryCache = cache.NewCategoryCache(categories)
	c.conceptCache = cache.NewConceptCache(concepts)
	return nil
}

// wireRepositories builds the repository layer. ConceptRepository is built
// first since it satisfies search.ConceptSearcher for QueryExpander, which
// CatalogRepository and ChunkRepository in turn depend on.
func (c *Container) wireRepositories() {
	c.concepts = repository.NewConceptRepository(c.metadata, c.conceptVectors, c.conceptCache)
	c.expander = search.NewQueryExpander(c.embedder, c.concepts, c.wordnet)
	c.catalog = repository.NewCatalogRepository(c.metadata, c.catalogVectors, c.expander)
	c.chunks = repository.NewChunkRepository(c.metadata, c.chunkVectors, c.concepts, c.expander)
	c.categories = repository.NewCategoryRepository(c.metadata, c.categoryCache)
	c.visuals = repository.NewVisualRepository(c.metadata)
}

// Tools returns the MCP tool surface wired over this Container's
// repositories, for cmd/ to register against a transport.
func (c *Container) Tools() *mcp.Server {
	return c.tools
}

// Embedder returns the embedder this Container opened its vector stores
// with, so an ingestion pipeline built over the same Container embeds
// chunks at the matching dimensionality.
func (c *Container) Embedder() embed.Embedder {
	return c.embedder
}

// MetadataStore returns the metadata store backing this Container, for
// doctor's store-integrity checks.
func (c *Container) MetadataStore() store.MetadataStore {
	return c.metadata
}

// Refresh reloads the category and concept identifier caches from the
// metadata store. Call after any write that changes the category or
// concept identity set (new categories/concepts, renames, alias changes).
func (c *Container) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := cache.RefreshCategoryCache(ctx, c.metadata, c.categoryCache); err != nil {
		return err
	}
	if err := cache.RefreshConceptCache(ctx, c.metadata, c.conceptCache); err != nil {
		return err
	}
	return nil
}

// Close releases every resource the Container opened: the metadata store,
// the vector and lexical indexes (persisting them to disk first), and the
// ingest lock. Close is safe to call more than once.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	for name, vs := range map[string]store.VectorStore{
		conceptVectorName: c.conceptVectors,
		catalogVectorName: c.catalogVectors,
		chunkVectorName:   c.chunkVectors,
	} {
		if vs == nil {
			continue
		}
		if err := vs.Save(c.vectorPath(name)); err != nil {
			errs = append(errs, fmt.Errorf("save %s vector store: %w", name, err))
		}
		if err := vs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s vector store: %w", name, err))
		}
	}
	for name, lex := range map[string]store.BM25Index{
		catalogLexName: c.catalogLexical,
		chunkLexName:   c.chunkLexical,
	} {
		if lex == nil {
			continue
		}
		if err := lex.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s lexical index: %w", name, err))
		}
	}
	if c.metrics != nil {
		if err := c.metrics.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush query metrics: %w", err))
		}
		if err := c.metrics.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close query metrics: %w", err))
		}
	}
	if c.metadata != nil {
		if err := c.metadata.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close metadata store: %w", err))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("container: close: %v", errs)
}

// IndexedDocument is one document ready to be written into the corpus: its
// catalog metadata, embedding, classified chunks, and any extracted
// visuals. Produced upstream by a DocumentLoader implementation and the
// ingestion classification pipeline; this package only owns the write fan-out.
type IndexedDocument struct {
	Entry   *store.CatalogEntry
	Chunks  []*store.Chunk
	Visuals []*store.Visual
}

// Ingest writes a batch of documents across the metadata store, the vector
// and lexical indexes, and refreshes the identifier caches, reporting
// progress through a async.BackgroundIndexer. It holds the cross-process
// ingest write lock for the duration so two ingests never interleave their
// writes; Refresh does not take that lock.
func (c *Container) Ingest(ctx context.Context, docs []IndexedDocument) *async.BackgroundIndexer {
	indexer := async.NewBackgroundIndexer(async.IndexerConfig{DataDir: c.cfg.Store.DataDir})
	indexer.IndexFunc = func(ctx context.Context, progress *async.IndexProgress) error {
		if err := c.lock.Lock(); err != nil {
			progress.SetError(err.Error())
			return fmt.Errorf("container: acquire ingest lock: %w", err)
		}
		defer c.lock.Unlock()

		progress.SetStage(async.StageIndexing, len(docs))
		for i, doc := range docs {
			if err := ctx.Err(); err != nil {
				progress.SetError(err.Error())
				return err
			}
			if err := c.writeDocument(ctx, doc); err != nil {
				progress.SetError(err.Error())
				return fmt.Errorf("container: ingest %s: %w", doc.Entry.Source, err)
			}
			progress.UpdateFiles(i + 1)
		}

		if err := c.Refresh(ctx); err != nil {
			progress.SetError(err.Error())
			return err
		}
		progress.SetReady()
		return nil
	}
	indexer.Start(ctx)
	return indexer
}

// writeDocument fans a single document's write out across every store: the
// catalog entry and its chunks/visuals in the metadata store, their
// embeddings in the matching vector store, and their text in the lexical
// index for keyword-recall fallback.
func (c *Container) writeDocument(ctx context.Context, doc IndexedDocument) error {
	if err := c.metadata.SaveCatalogEntry(ctx, doc.Entry); err != nil {
		return fmt.Errorf("save catalog entry: %w", err)
	}
	if doc.Entry.Embedding != nil {
		if err := c.catalogVectors.Add(ctx, []string{idKey(doc.Entry.ID)}, [][]float32{doc.Entry.Embedding}); err != nil {
			return fmt.Errorf("index catalog embedding: %w", err)
		}
	}
	if err := c.catalogLexical.Index(ctx, []*store.Document{{ID: idKey(doc.Entry.ID), Content: doc.Entry.Text}}); err != nil {
		return fmt.Errorf("index catalog text: %w", err)
	}

	if len(doc.Chunks) > 0 {
		if err := c.metadata.SaveChunks(ctx, doc.Chunks); err != nil {
			return fmt.Errorf("save chunks: %w", err)
		}
		chunkIDs := make([]string, 0, len(doc.Chunks))
		chunkVecs := make([][]float32, 0, len(doc.Chunks))
		lexDocs := make([]*store.Document, 0, len(doc.Chunks))
		for _, chunk := range doc.Chunks {
			if chunk.Embedding != nil {
				chunkIDs = append(chunkIDs, idKey(chunk.ID))
				chunkVecs = append(chunkVecs, chunk.Embedding)
			}
			lexDocs = append(lexDocs, &store.Document{ID: idKey(chunk.ID), Content: chunk.Text})
		}
		if len(chunkIDs) > 0 {
			if err := c.chunkVectors.Add(ctx, chunkIDs, chunkVecs); err != nil {
				return fmt.Errorf("index chunk embeddings: %w", err)
			}
		}
		if err := c.chunkLexical.Index(ctx, lexDocs); err != nil {
			return fmt.Errorf("index chunk text: %w", err)
		}
	}

	if len(doc.Visuals) > 0 {
		if err := c.metadata.SaveVisuals(ctx, doc.Visuals); err != nil {
			return fmt.Errorf("save visuals: %w", err)
		}
	}

	return nil
}

func idKey(id uint32) string {
	return fmt.Sprintf("%d", id)
}
