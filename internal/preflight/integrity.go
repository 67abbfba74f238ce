package preflight

import (
	"context"
	"fmt"

	"github.com/m2ux/concept-rag-sub008/internal/ids"
	"github.com/m2ux/concept-rag-sub008/internal/store"
)

// CheckHashStability validates invariant 1: every category and concept id in
// the metadata store must equal ids.Hash of its own normalized name. A
// mismatch means the id was assigned by something other than ids.Hash (a
// bad migration, hand-edited row, or a collision that slipped through at
// ingest time).
func (c *Checker) CheckHashStability(ctx context.Context, metadata store.MetadataStore) CheckResult {
	result := CheckResult{Name: "hash_stability", Required: false}

	categories, err := metadata.ListCategories(ctx)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to list categories: %v", err)
		return result
	}
	concepts, err := metadata.ListConcepts(ctx)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to list concepts: %v", err)
		return result
	}

	var violations []string
	for _, cat := range categories {
		if want := ids.Hash(cat.Name); want != cat.ID {
			violations = append(violations, fmt.Sprintf("category %q: id %d, want %d", cat.Name, cat.ID, want))
		}
	}
	for _, con := range concepts {
		if want := ids.Hash(con.Name); want != con.ID {
			violations = append(violations, fmt.Sprintf("concept %q: id %d, want %d", con.Name, con.ID, want))
		}
	}

	if len(violations) == 0 {
		result.Status = StatusPass
		result.Message = fmt.Sprintf("OK (%d categories, %d concepts)", len(categories), len(concepts))
		return result
	}

	result.Status = StatusFail
	result.Message = fmt.Sprintf("%d id(s) do not match hash(normalize(name))", len(violations))
	result.Details = joinSample(violations, 5)
	return result
}

// CheckCategoryInheritance validates invariant 2: every chunk's category ids
// must equal its parent catalog entry's category ids at the time of
// insertion. It samples every category's catalog entries rather than every
// chunk in the store, since a single inherited mismatch at the catalog
// level implies every one of that entry's chunks is wrong the same way.
func (c *Checker) CheckCategoryInheritance(ctx context.Context, metadata store.MetadataStore) CheckResult {
	result := CheckResult{Name: "category_inheritance", Required: false}

	categories, err := metadata.ListCategories(ctx)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to list categories: %v", err)
		return result
	}

	var violations []string
	entriesChecked := 0
	for _, cat := range categories {
		entries, err := metadata.ListCatalogEntriesByCategory(ctx, cat.ID)
		if err != nil {
			result.Status = StatusFail
			result.Message = fmt.Sprintf("failed to list entries for category %q: %v", cat.Name, err)
			return result
		}
		for _, entry := range entries {
			entriesChecked++
			chunks, err := metadata.GetChunksByCatalog(ctx, entry.ID)
			if err != nil {
				result.Status = StatusFail
				result.Message = fmt.Sprintf("failed to list chunks for catalog entry %q: %v", entry.Title, err)
				return result
			}
			for _, chunk := range chunks {
				if !sameCategoryIDs(chunk.CategoryIDs, entry.CategoryIDs) {
					violations = append(violations, fmt.Sprintf("chunk %d of %q: categories %v, want %v",
						chunk.ID, entry.Title, chunk.CategoryIDs, entry.CategoryIDs))
				}
			}
		}
	}

	if len(violations) == 0 {
		result.Status = StatusPass
		result.Message = fmt.Sprintf("OK (%d catalog entries)", entriesChecked)
		return result
	}

	result.Status = StatusFail
	result.Message = fmt.Sprintf("%d chunk(s) have category ids diverging from their catalog entry", len(violations))
	result.Details = joinSample(violations, 5)
	return result
}

func sameCategoryIDs(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[uint32]int, len(a))
	for _, id := range a {
		seen[id]++
	}
	for _, id := range b {
		seen[id]--
	}
	for _, count := range seen {
		if count != 0 {
			return false
		}
	}
	return true
}

func joinSample(items []string, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	out := ""
	for i, item := range items {
		if i > 0 {
			out += "; "
		}
		out += item
	}
	return out
}
