package container

import (
	"context"
	"log/slog"

	"github.com/m2ux/concept-rag-sub008/internal/watcher"
)

// WatchAndRefresh watches the WordNet dataset and category seed paths (if
// configured) and calls Refresh whenever either changes on disk, so a
// taxonomy or synset edit takes effect without restarting the server.
// Returns immediately with a nil error if neither path is configured;
// otherwise blocks until ctx is canceled.
func (c *Container) WatchAndRefresh(ctx context.Context) error {
	var paths []string
	if c.cfg.WordNet.DatasetPath != "" {
		paths = append(paths, c.cfg.WordNet.DatasetPath)
	}
	if c.cfg.Categories.SeedPath != "" {
		paths = append(paths, c.cfg.Categories.SeedPath)
	}
	if len(paths) == 0 {
		return nil
	}

	fw, err := watcher.New(paths, watcher.DefaultOptions(), c.logger)
	if err != nil {
		return err
	}

	go fw.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-fw.Events():
			if !ok {
				return nil
			}
			c.logger.Info("config file changed, refreshing caches", slog.Int("changed", len(batch)))
			if err := c.Refresh(ctx); err != nil {
				c.logger.Warn("refresh after config change failed", slog.String("error", err.Error()))
			}
		}
	}
}
