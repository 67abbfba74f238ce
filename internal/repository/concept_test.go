package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m2ux/concept-rag-sub008/internal/cache"
	"github.com/m2ux/concept-rag-sub008/internal/store"
)

func seedConcepts(t *testing.T, s *store.SQLiteStore, vectors *fakeVectorStore) []*store.Concept {
	t.Helper()
	concepts := []*store.Concept{
		{ID: 1, Name: "eventual consistency", Synonyms: []string{"BASE consistency"}, Embedding: []float32{1, 0, 0}},
		{ID: 2, Name: "strong consistency", Embedding: []float32{0.9, 0.1, 0}},
		{ID: 3, Name: "unrelated topic", Embedding: []float32{0, 0, 1}},
	}
	for _, c := range concepts {
		require.NoError(t, s.SaveConcept(context.Background(), c))
		require.NoError(t, vectors.Add(context.Background(), []string{idToKey(c.ID)}, [][]float32{c.Embedding}))
	}
	return concepts
}

func TestConceptRepository_FindByName(t *testing.T) {
	s := newTestMetadataStore(t)
	vectors := newFakeVectorStore()
	seedConcepts(t, s, vectors)
	concepts, _ := s.ListConcepts(context.Background())
	repo := NewConceptRepository(s, vectors, cache.NewConceptCache(concepts))

	got, err := repo.FindByName(context.Background(), "Eventual Consistency")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, uint32(1), got.ID)
}

func TestConceptRepository_FindByName_UnknownReturnsNil(t *testing.T) {
	s := newTestMetadataStore(t)
	repo := NewConceptRepository(s, newFakeVectorStore(), cache.NewConceptCache(nil))

	got, err := repo.FindByName(context.Background(), "does not exist")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestConceptRepository_FindRelated_ExcludesSelf(t *testing.T) {
	s := newTestMetadataStore(t)
	vectors := newFakeVectorStore()
	seedConcepts(t, s, vectors)
	concepts, _ := s.ListConcepts(context.Background())
	repo := NewConceptRepository(s, vectors, cache.NewConceptCache(concepts))

	related, err := repo.FindRelated(context.Background(), "eventual consistency", 2)
	require.NoError(t, err)
	for _, c := range related {
		require.NotEqual(t, "eventual consistency", c.Name)
	}
	require.Equal(t, "strong consistency", related[0].Name)
}

func TestConceptRepository_SearchConcepts_ReturnsSynonyms(t *testing.T) {
	s := newTestMetadataStore(t)
	vectors := newFakeVectorStore()
	seedConcepts(t, s, vectors)
	concepts, _ := s.ListConcepts(context.Background())
	repo := NewConceptRepository(s, vectors, cache.NewConceptCache(concepts))

	signals, err := repo.SearchConcepts(context.Background(), []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	require.Equal(t, "eventual consistency", signals[0].Name)
	require.Contains(t, signals[0].Synonyms, "BASE consistency")
}
