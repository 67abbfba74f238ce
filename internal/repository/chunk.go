package repository

import (
	"context"
	"sort"

	"github.com/m2ux/concept-rag-sub008/internal/search"
	"github.com/m2ux/concept-rag-sub008/internal/store"
)

// conceptProbeMultiplier is how many ANN candidates findByConceptName pulls
// per requested result, before filtering down to chunks that actually
// contain the concept. This is what keeps the operation O(log n) on the
// vector index instead of a full chunk-table scan.
const conceptProbeMultiplier = 3

// ChunkRepository resolves page-level chunks: hybrid search, lookup by
// source document, and the concept-probe path used by
// list_concepts_in_category-adjacent tools.
type ChunkRepository struct {
	metadata store.MetadataStore
	vectors  store.VectorStore
	concepts *ConceptRepository
	hybrid   *search.HybridSearchService
}

// NewChunkRepository builds a ChunkRepository. expander may be nil to run
// without concept/WordNet expansion.
func NewChunkRepository(metadata store.MetadataStore, vectors store.VectorStore, concepts *ConceptRepository, expander *search.QueryExpander) *ChunkRepository {
	r := &ChunkRepository{metadata: metadata, vectors: vectors, concepts: concepts}
	r.hybrid = search.NewHybridSearchService(search.ContextChunk, r, expander)
	return r
}

// Search runs the five-signal hybrid search over chunks.
func (r *ChunkRepository) Search(ctx context.Context, opts search.Options) ([]store.SearchResult, error) {
	results, err := r.hybrid.Search(ctx, opts)
	if err != nil {
		return nil, err
	}
	return toSearchResults(results), nil
}

// FindByConceptName is the critical O(log n) path: it never scans the
// chunk table. It fetches the concept's own embedding and probes the chunk
// vector index for 3*limit ANN candidates, filters to chunks whose
// concept_ids actually include it, sorts by concept_density descending, and
// returns the top limit.
func (r *ChunkRepository) FindByConceptName(ctx context.Context, name string, limit int) ([]*store.Chunk, error) {
	concept, err := r.concepts.FindByName(ctx, name)
	if err != nil || concept == nil {
		return nil, err
	}

	hits, err := r.vectors.Search(ctx, concept.Embedding, limit*conceptProbeMultiplier)
	if err != nil {
		return nil, err
	}

	candidates := make([]*store.Chunk, 0, len(hits))
	for _, hit := range hits {
		id, ok := keyToID(hit.ID)
		if !ok {
			continue
		}
		chunk, err := r.metadata.GetChunk(ctx, id)
		if err != nil {
			return nil, err
		}
		if chunk == nil || !containsConceptID(chunk.ConceptIDs, concept.ID) {
			continue
		}
		candidates = append(candidates, chunk)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ConceptDensity > candidates[j].ConceptDensity
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// FindBySource returns every chunk belonging to the catalog entry at
// source, or nil when no entry has that source.
func (r *ChunkRepository) FindBySource(ctx context.Context, source string) ([]*store.Chunk, error) {
	entry, err := r.metadata.GetCatalogEntryBySource(ctx, source)
	if err != nil || entry == nil {
		return nil, err
	}
	return r.metadata.GetChunksByCatalog(ctx, entry.ID)
}

// FindByCatalogID returns every chunk belonging to a single document, in
// storage order, for tools that page through one document at a time.
func (r *ChunkRepository) FindByCatalogID(ctx context.Context, catalogID uint32) ([]*store.Chunk, error) {
	return r.metadata.GetChunksByCatalog(ctx, catalogID)
}

// CountChunks returns the total number of chunks in the corpus.
func (r *ChunkRepository) CountChunks(ctx context.Context) (int, error) {
	return r.metadata.CountChunks(ctx)
}

// FetchCandidates implements search.CandidateSource: an ANN probe over the
// chunk embedding index, filtered by source substring and/or category.
func (r *ChunkRepository) FetchCandidates(ctx context.Context, queryVec []float32, k int, sourceFilter string, categoryID *uint32) ([]search.Candidate, error) {
	hits, err := r.vectors.Search(ctx, queryVec, k)
	if err != nil {
		return nil, err
	}

	candidates := make([]search.Candidate, 0, len(hits))
	for i, hit := range hits {
		id, ok := keyToID(hit.ID)
		if !ok {
			continue
		}
		chunk, err := r.metadata.GetChunk(ctx, id)
		if err != nil {
			return nil, err
		}
		if chunk == nil || !matchesCategory(chunk.CategoryIDs, categoryID) {
			continue
		}
		source, title := r.resolveSource(ctx, chunk.CatalogID)
		if !matchesSourceFilter(source, sourceFilter) {
			continue
		}
		candidates = append(candidates, search.Candidate{
			ID:             chunk.ID,
			CatalogID:      chunk.CatalogID,
			Title:          title,
			Text:           chunk.Text,
			Source:         source,
			ConceptIDs:     chunk.ConceptIDs,
			VectorDistance: hit.Distance,
			InsertionOrder: i,
		})
	}
	return candidates, nil
}

// resolveSource looks up the owning catalog entry's source path and title
// for a chunk, tolerating a missing entry (returns empty strings).
func (r *ChunkRepository) resolveSource(ctx context.Context, catalogID uint32) (source, title string) {
	entry, err := r.metadata.GetCatalogEntry(ctx, catalogID)
	if err != nil || entry == nil {
		return "", ""
	}
	return entry.Source, entry.Title
}

func containsConceptID(ids []uint32, target uint32) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

var _ search.CandidateSource = (*ChunkRepository)(nil)
