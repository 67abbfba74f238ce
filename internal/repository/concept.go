package repository

import (
	"context"

	"github.com/m2ux/concept-rag-sub008/internal/cache"
	"github.com/m2ux/concept-rag-sub008/internal/search"
	"github.com/m2ux/concept-rag-sub008/internal/store"
)

// ConceptRepository resolves concepts by exact name and by embedding
// similarity. It implements search.ConceptSearcher so a HybridSearchService
// can fold concept matches into a query's expansion without this package
// reaching back into internal/search's internals.
type ConceptRepository struct {
	metadata store.MetadataStore
	vectors  store.VectorStore
	ids      *cache.ConceptCache
}

// NewConceptRepository builds a ConceptRepository over a metadata store,
// the concept embedding index, and the concept identifier cache.
func NewConceptRepository(metadata store.MetadataStore, vectors store.VectorStore, ids *cache.ConceptCache) *ConceptRepository {
	return &ConceptRepository{metadata: metadata, vectors: vectors, ids: ids}
}

// FindByName resolves a concept by its exact (normalized) name, or nil if
// none exists.
func (r *ConceptRepository) FindByName(ctx context.Context, name string) (*store.Concept, error) {
	id, ok := r.ids.GetID(name)
	if !ok {
		return nil, nil
	}
	return r.metadata.GetConcept(ctx, id)
}

// FindByID resolves a concept by id via the identifier cache.
func (r *ConceptRepository) FindByID(ctx context.Context, id uint32) (*store.Concept, error) {
	c, ok := r.ids.Get(id)
	if !ok {
		return nil, nil
	}
	return c, nil
}

// FindRelated returns the k concepts whose embeddings are nearest to the
// named concept's, excluding the concept itself.
func (r *ConceptRepository) FindRelated(ctx context.Context, name string, k int) ([]*store.Concept, error) {
	concept, err := r.FindByName(ctx, name)
	if err != nil || concept == nil {
		return nil, err
	}
	related, err := r.searchVector(ctx, concept.Embedding, k+1, concept.ID)
	if err != nil {
		return nil, err
	}
	if len(related) > k {
		related = related[:k]
	}
	return related, nil
}

// SearchConcepts runs an ANN probe over the concept embedding index and
// returns the k nearest concepts as search.ConceptSignal, enriched with
// each concept's corpus synonym/broader/narrower terms. It implements
// search.ConceptSearcher.
func (r *ConceptRepository) SearchConcepts(ctx context.Context, queryVec []float32, k int) ([]search.ConceptSignal, error) {
	hits, err := r.vectors.Search(ctx, queryVec, k)
	if err != nil {
		return nil, err
	}

	signals := make([]search.ConceptSignal, 0, len(hits))
	for _, hit := range hits {
		id, ok := keyToID(hit.ID)
		if !ok {
			continue
		}
		concept, err := r.metadata.GetConcept(ctx, id)
		if err != nil {
			return nil, err
		}
		if concept == nil {
			continue
		}
		signals = append(signals, search.ConceptSignal{
			ID:         concept.ID,
			Name:       concept.Name,
			Synonyms:   concept.Synonyms,
			Broader:    concept.Broader,
			Narrower:   concept.Narrower,
			Similarity: 1 - float64(hit.Distance),
		})
	}
	return signals, nil
}

func (r *ConceptRepository) searchVector(ctx context.Context, vec []float32, k int, excludeID uint32) ([]*store.Concept, error) {
	hits, err := r.vectors.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	out := make([]*store.Concept, 0, len(hits))
	for _, hit := range hits {
		id, ok := keyToID(hit.ID)
		if !ok || id == excludeID {
			continue
		}
		concept, err := r.metadata.GetConcept(ctx, id)
		if err != nil {
			return nil, err
		}
		if concept == nil {
			continue
		}
		out = append(out, concept)
	}
	return out, nil
}

var _ search.ConceptSearcher = (*ConceptRepository)(nil)
