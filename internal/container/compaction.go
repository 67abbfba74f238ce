package container

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/m2ux/concept-rag-sub008/internal/store"
)

// OnQueryComplete resets the idle timer that triggers background
// compaction once the corpus goes quiet, matching CompactionConfig's
// idle-then-compact policy. No-op when compaction is disabled.
func (c *Container) OnQueryComplete() {
	if !c.cfg.Compaction.Enabled {
		return
	}
	idle, err := time.ParseDuration(c.cfg.Compaction.IdleTimeout)
	if err != nil {
		idle = 30 * time.Second
	}

	c.compactMu.Lock()
	defer c.compactMu.Unlock()
	if c.idleTimer != nil {
		c.idleTimer.Stop()
	}
	c.idleTimer = time.AfterFunc(idle, func() {
		if err := c.Compact(context.Background()); err != nil {
			c.logger.Warn("background compaction failed", slog.String("error", err.Error()))
		}
	})
}

// Compact rebuilds any of the three HNSW indexes whose orphan ratio
// exceeds CompactionConfig's threshold. Orphans are nodes VectorStore.Delete
// has lazily tombstoned out of lookup but left in the underlying graph;
// compaction reclaims that space by rebuilding from scratch and re-adding
// only the currently valid ids, reading each vector back from the metadata
// store rather than re-embedding anything.
func (c *Container) Compact(ctx context.Context) error {
	if !c.cfg.Compaction.Enabled {
		return nil
	}

	cooldown, err := time.ParseDuration(c.cfg.Compaction.Cooldown)
	if err != nil {
		cooldown = time.Hour
	}
	c.compactMu.Lock()
	sinceLast := time.Since(c.lastCompact)
	c.compactMu.Unlock()
	if sinceLast < cooldown {
		return nil
	}

	targets := []struct {
		name  string
		store *store.VectorStore
		fetch func(context.Context, uint32) ([]float32, error)
	}{
		{conceptVectorName, &c.conceptVectors, c.fetchConceptEmbedding},
		{catalogVectorName, &c.catalogVectors, c.fetchCatalogEmbedding},
		{chunkVectorName, &c.chunkVectors, c.fetchChunkEmbedding},
	}

	compacted := false
	for _, t := range targets {
		hnsw, ok := (*t.store).(*store.HNSWStore)
		if !ok {
			continue
		}
		stats := hnsw.Stats()
		if stats.Orphans < c.cfg.Compaction.MinOrphanCount || stats.GraphNodes == 0 {
			continue
		}
		if float64(stats.Orphans)/float64(stats.GraphNodes) < c.cfg.Compaction.OrphanThreshold {
			continue
		}

		rebuilt, err := c.rebuildVectorStore(ctx, hnsw, t.fetch)
		if err != nil {
			return fmt.Errorf("container: compact %s: %w", t.name, err)
		}
		if err := rebuilt.Save(c.vectorPath(t.name)); err != nil {
			return fmt.Errorf("container: save compacted %s: %w", t.name, err)
		}

		c.mu.Lock()
		*t.store = rebuilt
		c.mu.Unlock()

		if err := hnsw.Close(); err != nil {
			c.logger.Warn("close pre-compaction store", slog.String("name", t.name), slog.String("error", err.Error()))
		}

		compacted = true
		c.logger.Info("compacted vector store",
			slog.String("name", t.name),
			slog.Int("orphans_removed", stats.Orphans),
			slog.Int("remaining", stats.ValidIDs))
	}

	if compacted {
		c.compactMu.Lock()
		c.lastCompact = time.Now()
		c.compactMu.Unlock()
	}
	return nil
}

// rebuildVectorStore reads every currently-valid id's vector back from the
// metadata store and re-adds it to a fresh HNSW graph, dropping any
// tombstoned nodes the old graph was still carrying.
func (c *Container) rebuildVectorStore(ctx context.Context, old *store.HNSWStore, fetch func(context.Context, uint32) ([]float32, error)) (*store.HNSWStore, error) {
	ids := old.AllIDs()

	type pair struct {
		id  string
		vec []float32
	}
	pairs := make([]pair, 0, len(ids))
	dims := 0
	for _, id := range ids {
		n, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			continue
		}
		vec, err := fetch(ctx, uint32(n))
		if err != nil {
			return nil, err
		}
		if vec == nil {
			continue
		}
		if dims == 0 {
			dims = len(vec)
		}
		pairs = append(pairs, pair{id: id, vec: vec})
	}
	if dims == 0 {
		dims = 1
	}

	fresh, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(dims))
	if err != nil {
		return nil, err
	}

	const batchSize = 1000
	batchIDs := make([]string, 0, batchSize)
	batchVecs := make([][]float32, 0, batchSize)
	flush := func() error {
		if len(batchIDs) == 0 {
			return nil
		}
		if err := fresh.Add(ctx, batchIDs, batchVecs); err != nil {
			return err
		}
		batchIDs = batchIDs[:0]
		batchVecs = batchVecs[:0]
		return nil
	}
	for _, p := range pairs {
		batchIDs = append(batchIDs, p.id)
		batchVecs = append(batchVecs, p.vec)
		if len(batchIDs) >= batchSize {
			if err := flush(); err != nil {
				_ = fresh.Close()
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		_ = fresh.Close()
		return nil, err
	}

	return fresh, nil
}

func (c *Container) fetchConceptEmbedding(ctx context.Context, id uint32) ([]float32, error) {
	concept, err := c.metadata.GetConcept(ctx, id)
	if err != nil || concept == nil {
		return nil, err
	}
	return concept.Embedding, nil
}

func (c *Container) fetchCatalogEmbedding(ctx context.Context, id uint32) ([]float32, error) {
	entry, err := c.metadata.GetCatalogEntry(ctx, id)
	if err != nil || entry == nil {
		return nil, err
	}
	return entry.Embedding, nil
}

func (c *Container) fetchChunkEmbedding(ctx context.Context, id uint32) ([]float32, error) {
	chunk, err := c.metadata.GetChunk(ctx, id)
	if err != nil || chunk == nil {
		return nil, err
	}
	return chunk.Embedding, nil
}
