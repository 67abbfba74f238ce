package search

import (
	"context"
	"sort"

	engerrors "github.com/m2ux/concept-rag-sub008/internal/errors"
	"github.com/m2ux/concept-rag-sub008/internal/store"
)

// candidateMultiplier is how many ANN candidates HybridSearchService
// requests per requested result, before scoring and truncation.
const candidateMultiplier = 4

// minCandidates is the floor on the ANN candidate count regardless of how
// small Options.Limit is, so scoring still has enough of a pool to rank.
const minCandidates = 100

// defaultLimit is used when Options.Limit is zero or negative.
const defaultLimit = 10

// HybridSearchService runs the five-signal hybrid search: expand the query,
// fetch an ANN candidate pool, score every candidate on all five signals,
// and return the top results ranked by HybridScore.
type HybridSearchService struct {
	ctx       SearchContext
	source    CandidateSource
	expander  *QueryExpander
	weighting DynamicWeights
}

// NewHybridSearchService builds a HybridSearchService for one row family.
// expander may be nil, in which case Search falls back to an unexpanded
// query (original terms only, no concept or WordNet signal).
func NewHybridSearchService(ctx SearchContext, source CandidateSource, expander *QueryExpander) *HybridSearchService {
	return &HybridSearchService{ctx: ctx, source: source, expander: expander}
}

// Search implements the spec's five-step search() orchestration.
func (svc *HybridSearchService) Search(ctx context.Context, opts Options) ([]Result, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	expanded, queryVec, err := svc.expandQuery(ctx, opts.Text)
	if err != nil {
		return nil, engerrors.SearchError("expand query", err)
	}

	weights := svc.weighting.For(svc.ctx, expanded)

	k := limit * candidateMultiplier
	if k < minCandidates {
		k = minCandidates
	}

	candidates, err := svc.source.FetchCandidates(ctx, queryVec, k, opts.SourceFilter, opts.CategoryID)
	if err != nil {
		return nil, engerrors.SearchError("fetch candidates", err)
	}

	matchedConceptIDs := make([]uint32, 0, len(expanded.ConceptMatches))
	matchedConceptNames := make([]string, 0, len(expanded.ConceptMatches))
	for _, m := range expanded.ConceptMatches {
		matchedConceptIDs = append(matchedConceptIDs, m.ID)
		matchedConceptNames = append(matchedConceptNames, m.Name)
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		signals := Signals{
			VectorScore:  VectorScoreFromDistance(c.VectorDistance),
			BM25Score:    BM25Score(expanded.Terms, c.Text, matchedConceptNames),
			TitleScore:   TitleScore(expanded.Terms, c.Title),
			ConceptScore: ConceptScore(matchedConceptIDs, c.ConceptIDs),
			WordnetBonus: WordnetBonus(expanded.OntologyTerms, c.Text, len(expanded.Terms)),
		}
		results = append(results, Result{
			Candidate:       c,
			Signals:         signals,
			HybridScore:     HybridScore(signals, weights),
			MatchedConcepts: matchedConceptNames,
			ExpandedTerms:   expanded.Terms,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].HybridScore != results[j].HybridScore {
			return results[i].HybridScore > results[j].HybridScore
		}
		if results[i].Signals.VectorScore != results[j].Signals.VectorScore {
			return results[i].Signals.VectorScore > results[j].Signals.VectorScore
		}
		return results[i].InsertionOrder < results[j].InsertionOrder
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// expandQuery runs the QueryExpander when one is configured, falling back
// to a bare tokenization with no concept or WordNet signal otherwise.
func (svc *HybridSearchService) expandQuery(ctx context.Context, text string) (ExpandedQuery, []float32, error) {
	if svc.expander == nil {
		return ExpandedQuery{Original: text, Terms: store.TokenizeProse(text)}, nil, nil
	}
	return svc.expander.Expand(ctx, text)
}
