package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCandidateSource struct {
	candidates []Candidate
	err        error
	lastK      int
}

func (s *stubCandidateSource) FetchCandidates(ctx context.Context, queryVec []float32, k int, sourceFilter string, categoryID *uint32) ([]Candidate, error) {
	s.lastK = k
	return s.candidates, s.err
}

func TestHybridSearchService_RanksByHybridScoreDescending(t *testing.T) {
	source := &stubCandidateSource{candidates: []Candidate{
		{ID: 1, Title: "unrelated", Text: "nothing relevant here", VectorDistance: 0.9, InsertionOrder: 0},
		{ID: 2, Title: "Eventual Consistency", Text: "eventual consistency in distributed systems", VectorDistance: 0.1, InsertionOrder: 1},
	}}
	svc := NewHybridSearchService(ContextCatalog, source, nil)

	results, err := svc.Search(context.Background(), Options{Text: "eventual consistency", Limit: 5})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint32(2), results[0].ID)
	assert.GreaterOrEqual(t, results[0].HybridScore, results[1].HybridScore)
}

func TestHybridSearchService_TruncatesToLimit(t *testing.T) {
	source := &stubCandidateSource{candidates: []Candidate{
		{ID: 1, Title: "a", Text: "a", InsertionOrder: 0},
		{ID: 2, Title: "b", Text: "b", InsertionOrder: 1},
		{ID: 3, Title: "c", Text: "c", InsertionOrder: 2},
	}}
	svc := NewHybridSearchService(ContextCatalog, source, nil)

	results, err := svc.Search(context.Background(), Options{Text: "query", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestHybridSearchService_RequestsAtLeastMinCandidates(t *testing.T) {
	source := &stubCandidateSource{}
	svc := NewHybridSearchService(ContextCatalog, source, nil)

	_, err := svc.Search(context.Background(), Options{Text: "query", Limit: 1})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, source.lastK, minCandidates)
}

func TestHybridSearchService_DefaultsLimitWhenUnset(t *testing.T) {
	candidates := make([]Candidate, 0, defaultLimit+5)
	for i := 0; i < defaultLimit+5; i++ {
		candidates = append(candidates, Candidate{ID: uint32(i), InsertionOrder: i})
	}
	source := &stubCandidateSource{candidates: candidates}
	svc := NewHybridSearchService(ContextCatalog, source, nil)

	results, err := svc.Search(context.Background(), Options{Text: "query"})
	require.NoError(t, err)
	assert.Len(t, results, defaultLimit)
}

func TestHybridSearchService_PropagatesCandidateSourceError(t *testing.T) {
	source := &stubCandidateSource{err: errors.New("store unavailable")}
	svc := NewHybridSearchService(ContextCatalog, source, nil)

	_, err := svc.Search(context.Background(), Options{Text: "query"})
	assert.Error(t, err)
}

func TestHybridSearchService_UsesExpanderWhenConfigured(t *testing.T) {
	source := &stubCandidateSource{candidates: []Candidate{
		{ID: 1, Title: "Fault Tolerance", Text: "fault tolerance patterns", InsertionOrder: 0},
	}}
	concepts := &stubConceptSearcher{signals: []ConceptSignal{
		{ID: 42, Name: "fault tolerance", Similarity: 0.9},
	}}
	expander := NewQueryExpander(&stubEmbedder{vec: []float32{0.2, 0.3}}, concepts, nil)
	svc := NewHybridSearchService(ContextConcept, source, expander)

	results, err := svc.Search(context.Background(), Options{Text: "fault tolerance"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].MatchedConcepts, "fault tolerance")
}

func TestHybridSearchService_PropagatesExpanderError(t *testing.T) {
	expander := NewQueryExpander(&stubEmbedder{err: errors.New("embed down")}, &stubConceptSearcher{}, nil)
	svc := NewHybridSearchService(ContextConcept, &stubCandidateSource{}, expander)

	_, err := svc.Search(context.Background(), Options{Text: "query"})
	assert.Error(t, err)
}
