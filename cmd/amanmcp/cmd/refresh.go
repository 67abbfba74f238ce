package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/m2ux/concept-rag-sub008/internal/config"
	"github.com/m2ux/concept-rag-sub008/internal/container"
	"github.com/m2ux/concept-rag-sub008/internal/output"
)

func newRefreshCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Reload identifier caches and compact vector indexes",
		Long: `refresh reloads the category and concept identifier caches from the
metadata store - run after any out-of-band write that changes the
category or concept identity set - and runs compaction on the vector
indexes if the configured orphan threshold has been crossed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(cmd.Context(), root)
		},
	}

	cmd.Flags().StringVar(&root, "dir", ".", "Project directory to load config/data from")

	return cmd
}

func runRefresh(ctx context.Context, root string) error {
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("refresh: load config: %w", err)
	}

	c, err := container.New(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("refresh: build container: %w", err)
	}
	defer func() { _ = c.Close() }()

	w := output.New(os.Stdout)

	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh: reload caches: %w", err)
	}
	w.Success("identifier caches reloaded")

	if err := c.Compact(ctx); err != nil {
		return fmt.Errorf("refresh: compact: %w", err)
	}
	w.Success("compaction checked (runs only past the configured orphan threshold and cooldown)")

	return nil
}
