// Package cache holds the in-memory identifier caches built at startup (and
// rebuilt on refresh) that give O(1) id/name/alias resolution without a
// round trip to the metadata store.
package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/m2ux/concept-rag-sub008/internal/ids"
	"github.com/m2ux/concept-rag-sub008/internal/store"
)

// Stats summarizes a cache's contents, returned by getStats().
type Stats struct {
	EntryCount int
	AliasCount int
}

// CategoryCache is the Category-namespace IdentifierCache: bidirectional
// id/name resolution plus alias lookup and parent/child hierarchy
// navigation.
type CategoryCache struct {
	mu           sync.RWMutex
	byID         map[uint32]*store.Category
	idByName     map[string]uint32
	idByAlias    map[string]uint32
	childrenOf   map[uint32][]uint32
	rootIDs      []uint32
}

// NewCategoryCache builds a CategoryCache from a full snapshot of
// categories. Call Refresh after any repository write that changes the
// category identity set (new/renamed/reparented categories).
func NewCategoryCache(categories []*store.Category) *CategoryCache {
	c := &CategoryCache{}
	c.rebuild(categories)
	return c
}

func (c *CategoryCache) rebuild(categories []*store.Category) {
	byID := make(map[uint32]*store.Category, len(categories))
	idByName := make(map[string]uint32, len(categories))
	idByAlias := make(map[string]uint32)
	childrenOf := make(map[uint32][]uint32)
	var roots []uint32

	for _, cat := range categories {
		byID[cat.ID] = cat
		idByName[ids.Normalize(cat.Name)] = cat.ID
		for _, alias := range cat.Aliases {
			idByAlias[ids.Normalize(alias)] = cat.ID
		}
		if cat.ParentID == nil {
			roots = append(roots, cat.ID)
		} else {
			childrenOf[*cat.ParentID] = append(childrenOf[*cat.ParentID], cat.ID)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = byID
	c.idByName = idByName
	c.idByAlias = idByAlias
	c.childrenOf = childrenOf
	c.rootIDs = roots
}

// Refresh rebuilds the cache from a fresh snapshot.
func (c *CategoryCache) Refresh(categories []*store.Category) {
	c.rebuild(categories)
}

// GetID resolves a category name to its id.
func (c *CategoryCache) GetID(name string) (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.idByName[ids.Normalize(name)]
	return id, ok
}

// GetIDByAlias resolves a category alias to its id.
func (c *CategoryCache) GetIDByAlias(alias string) (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.idByAlias[ids.Normalize(alias)]
	return id, ok
}

// GetName returns the category name for id.
func (c *CategoryCache) GetName(id uint32) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cat, ok := c.byID[id]
	if !ok {
		return "", false
	}
	return cat.Name, true
}

// Get returns the full cached Category row for id.
func (c *CategoryCache) Get(id uint32) (*store.Category, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cat, ok := c.byID[id]
	return cat, ok
}

// GetNames resolves a batch of ids to names in O(k).
func (c *CategoryCache) GetNames(ids []uint32) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if cat, ok := c.byID[id]; ok {
			names = append(names, cat.Name)
		}
	}
	return names
}

// GetChildren returns the direct children of id.
func (c *CategoryCache) GetChildren(id uint32) []uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]uint32(nil), c.childrenOf[id]...)
}

// GetHierarchyPathNames returns the chain of names from the root category
// down to id, inclusive.
func (c *CategoryCache) GetHierarchyPathNames(id uint32) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var chain []string
	cur, ok := c.byID[id]
	for ok {
		chain = append([]string{cur.Name}, chain...)
		if cur.ParentID == nil {
			break
		}
		cur, ok = c.byID[*cur.ParentID]
	}
	return chain
}

// GetTopCategories returns the k categories with the highest document_count.
func (c *CategoryCache) GetTopCategories(k int) []*store.Category {
	c.mu.RLock()
	all := make([]*store.Category, 0, len(c.byID))
	for _, cat := range c.byID {
		all = append(all, cat)
	}
	c.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].DocumentCount > all[j].DocumentCount })
	if k > 0 && k < len(all) {
		all = all[:k]
	}
	return all
}

// SearchByName does a case-insensitive substring match over category names.
func (c *CategoryCache) SearchByName(substring string) []*store.Category {
	needle := strings.ToLower(substring)
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*store.Category
	for _, cat := range c.byID {
		if strings.Contains(strings.ToLower(cat.Name), needle) {
			out = append(out, cat)
		}
	}
	return out
}

// FindRootCategories returns every category with no parent.
func (c *CategoryCache) FindRootCategories() []*store.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*store.Category, 0, len(c.rootIDs))
	for _, id := range c.rootIDs {
		out = append(out, c.byID[id])
	}
	return out
}

// ExportAll returns every cached category, for diagnostics and bulk export.
func (c *CategoryCache) ExportAll() []*store.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*store.Category, 0, len(c.byID))
	for _, cat := range c.byID {
		out = append(out, cat)
	}
	return out
}

// GetStats reports the cache's current size.
func (c *CategoryCache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{EntryCount: len(c.byID), AliasCount: len(c.idByAlias)}
}

// ConceptCache is the Concept-namespace IdentifierCache: bidirectional
// id/name resolution. Concepts have no alias or parent/child hierarchy, so
// those IdentifierCache operations are Category-only.
type ConceptCache struct {
	mu       sync.RWMutex
	byID     map[uint32]*store.Concept
	idByName map[string]uint32
}

// NewConceptCache builds a ConceptCache from a full snapshot of concepts.
func NewConceptCache(concepts []*store.Concept) *ConceptCache {
	c := &ConceptCache{}
	c.rebuild(concepts)
	return c
}

func (c *ConceptCache) rebuild(concepts []*store.Concept) {
	byID := make(map[uint32]*store.Concept, len(concepts))
	idByName := make(map[string]uint32, len(concepts))
	for _, concept := range concepts {
		byID[concept.ID] = concept
		idByName[ids.Normalize(concept.Name)] = concept.ID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = byID
	c.idByName = idByName
}

// Refresh rebuilds the cache from a fresh snapshot.
func (c *ConceptCache) Refresh(concepts []*store.Concept) {
	c.rebuild(concepts)
}

// GetID resolves a concept name to its id.
func (c *ConceptCache) GetID(name string) (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.idByName[ids.Normalize(name)]
	return id, ok
}

// GetName returns the concept name for id.
func (c *ConceptCache) GetName(id uint32) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	concept, ok := c.byID[id]
	if !ok {
		return "", false
	}
	return concept.Name, true
}

// Get returns the full cached Concept row for id.
func (c *ConceptCache) Get(id uint32) (*store.Concept, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	concept, ok := c.byID[id]
	return concept, ok
}

// GetNames resolves a batch of ids to names in O(k).
func (c *ConceptCache) GetNames(ids []uint32) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if concept, ok := c.byID[id]; ok {
			names = append(names, concept.Name)
		}
	}
	return names
}

// SearchByName does a case-insensitive substring match over concept names.
func (c *ConceptCache) SearchByName(substring string) []*store.Concept {
	needle := strings.ToLower(substring)
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*store.Concept
	for _, concept := range c.byID {
		if strings.Contains(strings.ToLower(concept.Name), needle) {
			out = append(out, concept)
		}
	}
	return out
}

// ExportAll returns every cached concept.
func (c *ConceptCache) ExportAll() []*store.Concept {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*store.Concept, 0, len(c.byID))
	for _, concept := range c.byID {
		out = append(out, concept)
	}
	return out
}

// GetStats reports the cache's current size.
func (c *ConceptCache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{EntryCount: len(c.byID)}
}

// RefreshCategoryCache reloads a CategoryCache from the metadata store. It
// is the `refresh()` entry point named in the spec, invoked after any
// repository write that changes the category identity set.
func RefreshCategoryCache(ctx context.Context, metadata store.MetadataStore, c *CategoryCache) error {
	categories, err := metadata.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("refresh category cache: %w", err)
	}
	c.Refresh(categories)
	return nil
}

// RefreshConceptCache reloads a ConceptCache from the metadata store.
func RefreshConceptCache(ctx context.Context, metadata store.MetadataStore, c *ConceptCache) error {
	concepts, err := metadata.ListConcepts(ctx)
	if err != nil {
		return fmt.Errorf("refresh concept cache: %w", err)
	}
	c.Refresh(concepts)
	return nil
}
