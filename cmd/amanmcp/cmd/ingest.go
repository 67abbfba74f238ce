package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/m2ux/concept-rag-sub008/internal/config"
	"github.com/m2ux/concept-rag-sub008/internal/container"
	"github.com/m2ux/concept-rag-sub008/internal/ingest"
	"github.com/m2ux/concept-rag-sub008/internal/output"
)

func newIngestCmd() *cobra.Command {
	var root string
	var sourceDir string

	cmd := &cobra.Command{
		Use:   "ingest <source-dir>",
		Short: "Load, classify, and embed documents into the corpus",
		Long: `ingest walks source-dir for plain-text and markdown documents,
runs the ingestion classification pipeline (math recovery, meta-content
and references detection, paper detection, metadata extraction), embeds
every chunk and catalog entry, and writes the results into the metadata
store and vector/lexical indexes.

Concept extraction is left to an external ConceptExtractor; documents
ingested here carry no concept ids until one is wired in.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceDir = args[0]
			return runIngest(cmd.Context(), root, sourceDir)
		},
	}

	cmd.Flags().StringVar(&root, "dir", ".", "Project directory to load config/data from")

	return cmd
}

func runIngest(ctx context.Context, root, sourceDir string) error {
	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("ingest: load config: %w", err)
	}

	logger := slog.Default()
	c, err := container.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("ingest: build container: %w", err)
	}
	defer func() { _ = c.Close() }()

	w := output.New(os.Stdout)
	w.Status("INGEST", fmt.Sprintf("scanning %s", sourceDir))

	loader := ingest.NewFileLoader()
	raw, err := loader.Load(ctx, sourceDir)
	if err != nil {
		return fmt.Errorf("ingest: load documents: %w", err)
	}
	if len(raw) == 0 {
		w.Warning("no matching documents found")
		return nil
	}
	w.Successf("found %d document(s)", len(raw))

	pipeline := ingest.NewPipeline(c.Embedder(), nil)

	docs := make([]container.IndexedDocument, 0, len(raw))
	for i, doc := range raw {
		w.Statusf("CLASSIFY", "%d/%d %s", i+1, len(raw), doc.Source)
		indexed, err := pipeline.Build(ctx, doc)
		if err != nil {
			w.Errorf("%s: %v", doc.Source, err)
			continue
		}
		docs = append(docs, indexed)
	}

	if len(docs) == 0 {
		return fmt.Errorf("ingest: no documents built successfully")
	}

	chunkCount := 0
	for _, d := range docs {
		chunkCount += len(d.Chunks)
	}

	indexer := c.Ingest(ctx, docs)
	if err := indexer.Wait(); err != nil {
		return fmt.Errorf("ingest: write corpus: %w", err)
	}

	w.Successf("ingested %d document(s), %d chunk(s)", len(docs), chunkCount)
	return nil
}
