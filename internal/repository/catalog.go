package repository

import (
	"context"

	"github.com/m2ux/concept-rag-sub008/internal/search"
	"github.com/m2ux/concept-rag-sub008/internal/store"
)

// CatalogRepository resolves whole documents: hybrid search over catalog
// entries, exact lookup by source path, category membership, and the
// aggregated concept set within a category.
type CatalogRepository struct {
	metadata store.MetadataStore
	vectors  store.VectorStore
	hybrid   *search.HybridSearchService
}

// NewCatalogRepository builds a CatalogRepository. expander may be nil to
// run without concept/WordNet expansion (bare vector+title+BM25 scoring).
func NewCatalogRepository(metadata store.MetadataStore, vectors store.VectorStore, expander *search.QueryExpander) *CatalogRepository {
	r := &CatalogRepository{metadata: metadata, vectors: vectors}
	r.hybrid = search.NewHybridSearchService(search.ContextCatalog, r, expander)
	return r
}

// Search runs the five-signal hybrid search over catalog entries.
func (r *CatalogRepository) Search(ctx context.Context, opts search.Options) ([]store.SearchResult, error) {
	results, err := r.hybrid.Search(ctx, opts)
	if err != nil {
		return nil, err
	}
	return toSearchResults(results), nil
}

// FindBySource resolves a single catalog entry by its exact source path.
func (r *CatalogRepository) FindBySource(ctx context.Context, source string) (*store.CatalogEntry, error) {
	return r.metadata.GetCatalogEntryBySource(ctx, source)
}

// FindByID resolves a single catalog entry by id.
func (r *CatalogRepository) FindByID(ctx context.Context, id uint32) (*store.CatalogEntry, error) {
	return r.metadata.GetCatalogEntry(ctx, id)
}

// FindByCategory returns every catalog entry whose category_ids includes
// categoryID.
func (r *CatalogRepository) FindByCategory(ctx context.Context, categoryID uint32) ([]*store.CatalogEntry, error) {
	return r.metadata.ListCatalogEntriesByCategory(ctx, categoryID)
}

// GetConceptsInCategory aggregates the unique concept ids across every
// catalog entry belonging to categoryID.
func (r *CatalogRepository) GetConceptsInCategory(ctx context.Context, categoryID uint32) ([]uint32, error) {
	entries, err := r.metadata.ListCatalogEntriesByCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint32]bool)
	var out []uint32
	for _, e := range entries {
		for _, id := range e.ConceptIDs {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out, nil
}

// FetchCandidates implements search.CandidateSource: an ANN probe over the
// catalog embedding index, filtered by source substring and/or category.
func (r *CatalogRepository) FetchCandidates(ctx context.Context, queryVec []float32, k int, sourceFilter string, categoryID *uint32) ([]search.Candidate, error) {
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
		entry, err := r.metadata.GetCatalogEntry(ctx, id)
		if err != nil {
			return nil, err
		}
		if entry == nil || !matchesSourceFilter(entry.Source, sourceFilter) || !matchesCategory(entry.CategoryIDs, categoryID) {
			continue
		}
		candidates = append(candidates, search.Candidate{
			ID:             entry.ID,
			CatalogID:      entry.ID,
			Title:          entry.Title,
			Text:           entry.Text,
			Source:         entry.Source,
			ConceptIDs:     entry.ConceptIDs,
			VectorDistance: hit.Distance,
			InsertionOrder: i,
		})
	}
	return candidates, nil
}

var _ search.CandidateSource = (*CatalogRepository)(nil)
