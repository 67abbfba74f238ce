package repository

import (
	"strings"

	"github.com/m2ux/concept-rag-sub008/internal/search"
	"github.com/m2ux/concept-rag-sub008/internal/store"
)

// matchesSourceFilter reports whether source satisfies an optional
// case-insensitive substring filter. An empty filter matches everything.
func matchesSourceFilter(source, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(source), strings.ToLower(filter))
}

// matchesCategory reports whether categoryIDs contains the optional
// required category. A nil requirement matches everything.
func matchesCategory(categoryIDs []uint32, required *uint32) bool {
	if required == nil {
		return true
	}
	for _, id := range categoryIDs {
		if id == *required {
			return true
		}
	}
	return false
}

// toSearchResults converts scored search.Result values into the public
// store.SearchResult shape repositories hand back to callers.
func toSearchResults(results []search.Result) []store.SearchResult {
	out := make([]store.SearchResult, len(results))
	for i, r := range results {
		out[i] = store.SearchResult{
			ID:              r.ID,
			CatalogID:       r.CatalogID,
			Title:           r.Title,
			Text:            r.Text,
			Source:          r.Source,
			HybridScore:     r.HybridScore,
			VectorScore:     r.Signals.VectorScore,
			BM25Score:       r.Signals.BM25Score,
			TitleScore:      r.Signals.TitleScore,
			ConceptScore:    r.Signals.ConceptScore,
			WordnetBonus:    r.Signals.WordnetBonus,
			MatchedConcepts: r.MatchedConcepts,
			ExpandedTerms:   r.ExpandedTerms,
		}
	}
	return out
}
