package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m2ux/concept-rag-sub008/internal/search"
	"github.com/m2ux/concept-rag-sub008/internal/store"
)

func seedCatalogEntries(t *testing.T, s *store.SQLiteStore, vectors *fakeVectorStore) {
	t.Helper()
	entries := []*store.CatalogEntry{
		{ID: 1, Title: "Eventual Consistency in Distributed Systems", Source: "/papers/ec.pdf", Text: "a survey of eventual consistency models", Embedding: []float32{1, 0, 0}, CategoryIDs: []uint32{10}},
		{ID: 2, Title: "Unrelated Cooking Guide", Source: "/books/cooking.pdf", Text: "how to bake bread", Embedding: []float32{0, 1, 0}, CategoryIDs: []uint32{20}},
	}
	for _, e := range entries {
		require.NoError(t, s.SaveCatalogEntry(context.Background(), e))
		require.NoError(t, vectors.Add(context.Background(), []string{idToKey(e.ID)}, [][]float32{e.Embedding}))
	}
}

func TestCatalogRepository_FindBySource(t *testing.T) {
	s := newTestMetadataStore(t)
	vectors := newFakeVectorStore()
	seedCatalogEntries(t, s, vectors)
	repo := NewCatalogRepository(s, vectors, nil)

	got, err := repo.FindBySource(context.Background(), "/papers/ec.pdf")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, uint32(1), got.ID)
}

func TestCatalogRepository_FindByCategory(t *testing.T) {
	s := newTestMetadataStore(t)
	vectors := newFakeVectorStore()
	seedCatalogEntries(t, s, vectors)
	repo := NewCatalogRepository(s, vectors, nil)

	entries, err := repo.FindByCategory(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, uint32(1), entries[0].ID)
}

func TestCatalogRepository_GetConceptsInCategory_DeduplicatesAcrossEntries(t *testing.T) {
	s := newTestMetadataStore(t)
	vectors := newFakeVectorStore()
	entries := []*store.CatalogEntry{
		{ID: 1, Source: "/a.pdf", CategoryIDs: []uint32{10}, ConceptIDs: []uint32{100, 200}},
		{ID: 2, Source: "/b.pdf", CategoryIDs: []uint32{10}, ConceptIDs: []uint32{200, 300}},
	}
	for _, e := range entries {
		require.NoError(t, s.SaveCatalogEntry(context.Background(), e))
	}
	repo := NewCatalogRepository(s, vectors, nil)

	ids, err := repo.GetConceptsInCategory(context.Background(), 10)
	require.NoError(t, err)
	require.ElementsMatch(t, []uint32{100, 200, 300}, ids)
}

func TestCatalogRepository_Search_RanksByRelevance(t *testing.T) {
	s := newTestMetadataStore(t)
	vectors := newFakeVectorStore()
	seedCatalogEntries(t, s, vectors)
	repo := NewCatalogRepository(s, vectors, nil)

	results, err := repo.Search(context.Background(), search.Options{Text: "eventual consistency", Limit: 2})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, uint32(1), results[0].ID)
}

func TestCatalogRepository_Search_AppliesSourceFilter(t *testing.T) {
	s := newTestMetadataStore(t)
	vectors := newFakeVectorStore()
	seedCatalogEntries(t, s, vectors)
	repo := NewCatalogRepository(s, vectors, nil)

	results, err := repo.Search(context.Background(), search.Options{Text: "consistency", Limit: 5, SourceFilter: "cooking"})
	require.NoError(t, err)
	for _, r := range results {
		require.Contains(t, r.Source, "cooking")
	}
}
