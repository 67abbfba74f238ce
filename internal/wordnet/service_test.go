package wordnet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset() Dataset {
	return Dataset{
		"consistency": {
			{
				Term:       "consistency",
				Definition: "agreement among replicas in a distributed system",
				Synonyms:   []string{"coherence"},
				Broader:    []string{"consistency model"},
				Narrower:   []string{"eventual consistency", "strong consistency"},
			},
		},
		"eventual consistency": {
			{
				Term:       "eventual consistency",
				Definition: "a consistency model where replicas converge given no new updates",
				Synonyms:   []string{"weak consistency"},
				Broader:    []string{"consistency"},
				Narrower:   nil,
			},
		},
		"consistency model": {
			{
				Term:       "consistency model",
				Definition: "a contract describing the visibility of updates across replicas",
				Synonyms:   nil,
				Broader:    nil,
				Narrower:   []string{"consistency"},
			},
		},
		"bank": {
			{
				Term:       "bank",
				Definition: "a financial institution holding deposits",
				Synonyms:   []string{"financial institution"},
			},
			{
				Term:       "bank",
				Definition: "the land alongside a river or lake",
				Synonyms:   []string{"riverbank", "shore"},
			},
		},
	}
}

func TestService_GetSynonyms_ReturnsFirstSenseByDefault(t *testing.T) {
	svc := New(testDataset())
	assert.Equal(t, []string{"coherence"}, svc.GetSynonyms("consistency"))
}

func TestService_GetSynonyms_UnknownTermReturnsNil(t *testing.T) {
	svc := New(testDataset())
	assert.Nil(t, svc.GetSynonyms("unobtainium"))
}

func TestService_GetBroaderTerms_WalksMultipleHops(t *testing.T) {
	svc := New(testDataset())
	broader := svc.GetBroaderTerms("eventual consistency", 2)
	assert.Contains(t, broader, "consistency")
}

func TestService_GetNarrowerTerms_WalksOneHop(t *testing.T) {
	svc := New(testDataset())
	narrower := svc.GetNarrowerTerms("consistency", 1)
	assert.ElementsMatch(t, []string{"eventual consistency", "strong consistency"}, narrower)
}

func TestContextAwareStrategy_PicksSenseMatchingQueryContext(t *testing.T) {
	svc := New(testDataset(), WithStrategy(ContextAwareStrategy{}))
	synonyms := svc.GetSynonyms("bank", "deposits", "account")
	assert.Equal(t, []string{"financial institution"}, synonyms)
}

func TestService_GetAllRelatedTerms_AggregatesAndCaches(t *testing.T) {
	svc := New(testDataset())
	ctx := context.Background()

	result, err := svc.GetAllRelatedTerms(ctx, "eventual consistency")
	require.NoError(t, err)
	assert.Equal(t, []string{"weak consistency"}, result.Synonyms)
	assert.Contains(t, result.Broader, "consistency")

	cached, ok := svc.cache.Get("eventual consistency")
	require.True(t, ok)
	assert.Equal(t, result, cached)
}

func TestService_FindHierarchyPath_FindsConnectingChain(t *testing.T) {
	svc := New(testDataset())
	path := svc.FindHierarchyPath("eventual consistency", "consistency model", 3)
	require.NotEmpty(t, path)
	assert.Equal(t, "eventual consistency", path[0])
	assert.Equal(t, "consistency model", path[len(path)-1])
}

func TestService_PrewarmCache_DeduplicatesAndPopulatesCache(t *testing.T) {
	svc := New(testDataset())
	ctx := context.Background()

	err := svc.PrewarmCache(ctx, []string{"consistency", "Consistency", "eventual consistency"}, PrewarmOptions{Concurrency: 2})
	require.NoError(t, err)

	_, ok := svc.cache.Get("consistency")
	assert.True(t, ok)
	_, ok = svc.cache.Get("eventual consistency")
	assert.True(t, ok)
}
