package repository

import (
	"context"
	"math"
	"sort"

	"github.com/m2ux/concept-rag-sub008/internal/store"
)

// fakeVectorStore is an in-memory store.VectorStore computing exact cosine
// distance over whatever vectors were Add-ed — small enough for tests that
// the O(n) scan it does doesn't matter, unlike the real HNSW-backed store.
type fakeVectorStore struct {
	vectors map[string][]float32
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{vectors: make(map[string][]float32)}
}

func (f *fakeVectorStore) Add(ctx context.Context, ids []string, vecs [][]float32) error {
	for i, id := range ids {
		f.vectors[id] = vecs[i]
	}
	return nil
}

func (f *fakeVectorStore) Search(ctx context.Context, query []float32, k int) ([]*store.VectorResult, error) {
	results := make([]*store.VectorResult, 0, len(f.vectors))
	for id, v := range f.vectors {
		d := cosineDistance(query, v)
		results = append(results, &store.VectorResult{ID: id, Distance: d, Score: 1 - d})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (f *fakeVectorStore) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(f.vectors, id)
	}
	return nil
}

func (f *fakeVectorStore) AllIDs() []string {
	ids := make([]string, 0, len(f.vectors))
	for id := range f.vectors {
		ids = append(ids, id)
	}
	return ids
}

func (f *fakeVectorStore) Contains(id string) bool { _, ok := f.vectors[id]; return ok }
func (f *fakeVectorStore) Count() int              { return len(f.vectors) }
func (f *fakeVectorStore) Save(path string) error  { return nil }
func (f *fakeVectorStore) Load(path string) error  { return nil }
func (f *fakeVectorStore) Close() error            { return nil }

func cosineDistance(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return float32(1 - cos)
}

var _ store.VectorStore = (*fakeVectorStore)(nil)
