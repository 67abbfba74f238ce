package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/m2ux/concept-rag-sub008/internal/config"
	"github.com/m2ux/concept-rag-sub008/internal/container"
	"github.com/m2ux/concept-rag-sub008/internal/daemon"
	"github.com/m2ux/concept-rag-sub008/internal/logging"
)

const pidFileName = "amanmcp.pid"

func newServeCmd() *cobra.Command {
	var root string
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the corpus to MCP clients over stdio",
		Long: `serve constructs the application container (metadata store, vector
and lexical indexes, query expander, and the nine-tool MCP surface) and
runs it until the context is canceled or the transport closes.

MCP protocol compliance requires stdout be reserved exclusively for
JSON-RPC frames, so logging runs through internal/logging.SetupMCPModeWithLevel,
writing only to a file under ~/.amanmcp/logs/.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), root, transport)
		},
	}

	cmd.Flags().StringVar(&root, "dir", ".", "Project directory to load config/data from")
	cmd.Flags().StringVar(&transport, "transport", "", "Transport to serve over (default: config's server.transport)")

	return cmd
}

func runServe(ctx context.Context, root, transport string) error {
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("serve: load config: %w", err)
	}
	if transport == "" {
		transport = cfg.Server.Transport
	}

	var logger *slog.Logger
	if transport == "stdio" {
		cleanup, err := logging.SetupMCPModeWithLevel(cfg.Server.LogLevel)
		if err != nil {
			return fmt.Errorf("serve: setup MCP-safe logging: %w", err)
		}
		defer cleanup()
		logger = slog.Default()
	} else {
		logger = slog.Default()
	}

	pidPath := filepath.Join(cfg.Store.DataDir, pidFileName)
	pid := daemon.NewPIDFile(pidPath)
	if pid.IsRunning() {
		existing, _ := pid.Read()
		return fmt.Errorf("serve: another instance is already running (pid %d, %s)", existing, pidPath)
	}
	if err := pid.Write(); err != nil {
		return fmt.Errorf("serve: write pid file: %w", err)
	}
	defer func() { _ = pid.Remove() }()

	c, err := container.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("serve: build container: %w", err)
	}
	defer func() { _ = c.Close() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := c.WatchAndRefresh(ctx); err != nil {
			logger.Warn("config file watcher stopped", slog.String("error", err.Error()))
		}
	}()

	logger.Info("serving MCP tool surface", slog.String("transport", transport), slog.String("data_dir", cfg.Store.DataDir))
	return c.Tools().Serve(ctx, transport)
}
