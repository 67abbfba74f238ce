package repository

import (
	"context"

	"github.com/m2ux/concept-rag-sub008/internal/cache"
	"github.com/m2ux/concept-rag-sub008/internal/store"
)

// CategoryRepository resolves Category rows by id, name, alias, and
// hierarchy position. Every lookup below except FindByID is served from
// cache.CategoryCache,
// a full in-memory snapshot refreshed after each write — so name/alias/
// hierarchy/substring resolution never touches SQLite and never scales with
// corpus size, only with category count.
type CategoryRepository struct {
	metadata store.MetadataStore
	ids      *cache.CategoryCache
}

// NewCategoryRepository builds a CategoryRepository over a metadata store
// and its already-populated identifier cache.
func NewCategoryRepository(metadata store.MetadataStore, ids *cache.CategoryCache) *CategoryRepository {
	return &CategoryRepository{metadata: metadata, ids: ids}
}

// FindAll returns every category, unordered.
func (r *CategoryRepository) FindAll(ctx context.Context) ([]*store.Category, error) {
	return r.ids.ExportAll(), nil
}

// FindByID resolves a single category by id, going straight to the
// metadata store so a just-written row is visible even before the next
// cache refresh.
func (r *CategoryRepository) FindByID(ctx context.Context, id uint32) (*store.Category, error) {
	return r.metadata.GetCategory(ctx, id)
}

// FindByName resolves a category by its exact (normalized) name.
func (r *CategoryRepository) FindByName(ctx context.Context, name string) (*store.Category, error) {
	id, ok := r.ids.GetID(name)
	if !ok {
		return nil, nil
	}
	c, _ := r.ids.Get(id)
	return c, nil
}

// FindByAlias resolves a category by an alternate name.
func (r *CategoryRepository) FindByAlias(ctx context.Context, alias string) (*store.Category, error) {
	id, ok := r.ids.GetIDByAlias(alias)
	if !ok {
		return nil, nil
	}
	c, _ := r.ids.Get(id)
	return c, nil
}

// FindRootCategories returns every category with no parent.
func (r *CategoryRepository) FindRootCategories(ctx context.Context) ([]*store.Category, error) {
	return r.ids.FindRootCategories(), nil
}

// FindChildren returns the direct children of a category.
func (r *CategoryRepository) FindChildren(ctx context.Context, parentID uint32) ([]*store.Category, error) {
	childIDs := r.ids.GetChildren(parentID)
	out := make([]*store.Category, 0, len(childIDs))
	for _, id := range childIDs {
		if c, ok := r.ids.Get(id); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetTopCategories returns the limit categories with the highest
// document_count, descending.
func (r *CategoryRepository) GetTopCategories(ctx context.Context, limit int) ([]*store.Category, error) {
	return r.ids.GetTopCategories(limit), nil
}

// SearchByName does a case-insensitive substring search over category
// names.
func (r *CategoryRepository) SearchByName(ctx context.Context, substring string) ([]*store.Category, error) {
	return r.ids.SearchByName(substring), nil
}
