package repository

import (
	"context"

	"github.com/m2ux/concept-rag-sub008/internal/store"
)

// VisualRepository resolves non-text artifacts (figures, diagrams, tables)
// extracted from documents.
type VisualRepository struct {
	metadata store.MetadataStore
}

// NewVisualRepository builds a VisualRepository over a metadata store.
func NewVisualRepository(metadata store.MetadataStore) *VisualRepository {
	return &VisualRepository{metadata: metadata}
}

// FindByIDs resolves a batch of visuals by id.
func (r *VisualRepository) FindByIDs(ctx context.Context, ids []uint32) ([]*store.Visual, error) {
	return r.metadata.GetVisuals(ctx, ids)
}

// FindByCatalogID returns every visual belonging to a catalog entry.
func (r *VisualRepository) FindByCatalogID(ctx context.Context, catalogID uint32) ([]*store.Visual, error) {
	return r.metadata.GetVisualsByCatalog(ctx, catalogID)
}

// FindByVisualType returns up to limit visuals of the given type.
func (r *VisualRepository) FindByVisualType(ctx context.Context, vt store.VisualType, limit int) ([]*store.Visual, error) {
	return r.metadata.GetVisualsByType(ctx, vt, limit)
}

// FindAll returns up to limit visuals across the corpus.
func (r *VisualRepository) FindAll(ctx context.Context, limit int) ([]*store.Visual, error) {
	return r.metadata.ListVisuals(ctx, limit)
}
