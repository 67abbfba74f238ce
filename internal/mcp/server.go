package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	engerrors "github.com/m2ux/concept-rag-sub008/internal/errors"
	"github.com/m2ux/concept-rag-sub008/internal/repository"
	"github.com/m2ux/concept-rag-sub008/internal/search"
	"github.com/m2ux/concept-rag-sub008/internal/store"
	"github.com/m2ux/concept-rag-sub008/internal/telemetry"
	"github.com/m2ux/concept-rag-sub008/pkg/version"
)

// Server is the MCP tool surface over the hybrid search engine. It bridges
// MCP clients (Claude Desktop, Claude Code, and similar) with the five
// repository types that resolve concepts, categories, documents, chunks, and
// visuals.
type Server struct {
	mcp *mcp.Server

	categories *repository.CategoryRepository
	concepts   *repository.ConceptRepository
	catalog    *repository.CatalogRepository
	chunks     *repository.ChunkRepository
	visuals    *repository.VisualRepository

	imagesRoot string
	logger     *slog.Logger
	metrics    *telemetry.QueryMetrics

	mu sync.RWMutex
}

// Deps bundles the repositories a Server dispatches tool calls to.
type Deps struct {
	Categories *repository.CategoryRepository
	Concepts   *repository.ConceptRepository
	Catalog    *repository.CatalogRepository
	Chunks     *repository.ChunkRepository
	Visuals    *repository.VisualRepository

	// Metrics collects query telemetry (latency, zero-result rate, term
	// frequency) across the three search tools. Optional: a nil Metrics
	// gets an in-memory-only collector, so telemetry is always available
	// even when no caller wired a persistent QueryMetricsStore.
	Metrics *telemetry.QueryMetrics
}

// NewServer builds a Server over the given repositories. imagesRoot is the
// directory visual image files are served from.
func NewServer(deps Deps, imagesRoot string, logger *slog.Logger) (*Server, error) {
	if deps.Categories == nil || deps.Concepts == nil || deps.Catalog == nil || deps.Chunks == nil || deps.Visuals == nil {
		return nil, errors.New("all five repositories are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = telemetry.NewQueryMetrics(nil)
	}

	s := &Server{
		categories: deps.Categories,
		concepts:   deps.Concepts,
		catalog:    deps.Catalog,
		chunks:     deps.Chunks,
		visuals:    deps.Visuals,
		imagesRoot: imagesRoot,
		logger:     logger,
		metrics:    metrics,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "concept-rag",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying MCP SDK server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return "concept-rag", version.Version
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var toolCatalog = []ToolInfo{
	{Name: "concept_search", Description: "Find chunks and documents discussing a named concept, ranked by concept density."},
	{Name: "catalog_search", Description: "Hybrid search over whole documents: vector, BM25, title, concept, and WordNet signals combined."},
	{Name: "chunks_search", Description: "Search or list the chunks belonging to one document, identified by catalog id."},
	{Name: "broad_chunks_search", Description: "Hybrid search over chunks across the entire corpus, not scoped to one document."},
	{Name: "extract_concepts", Description: "Return the bibliographic metadata and resolved concept list for a single ingested document."},
	{Name: "category_search", Description: "Find the documents and concepts belonging to a category, resolved by name, id, or alias."},
	{Name: "list_categories", Description: "List every category in the corpus, sorted by name, popularity, or document count."},
	{Name: "list_concepts_in_category", Description: "List the concepts discovered across a category's documents, resolved by name, id, or alias."},
	{Name: "get_visuals", Description: "Fetch figures, diagrams, charts, and tables extracted from the corpus, by id, document, or type."},
}

// ListTools returns every registered tool.
func (s *Server) ListTools() []ToolInfo {
	return toolCatalog
}

// Serve runs the tool surface over transport until ctx is canceled. Only
// stdio is implemented; sse is accepted by config validation but not yet
// wired to an SDK transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	switch strings.ToLower(transport) {
	case "", "stdio":
		s.logger.Info("starting MCP server", slog.String("transport", "stdio"))
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped")
		return nil
	default:
		return fmt.Errorf("mcp: unsupported transport %q (supported: stdio)", transport)
	}
}

// CallTool invokes a tool by name against a generic argument map, decoding
// args into the tool's typed input. Used by tests and any non-SDK caller.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch name {
	case "concept_search":
		var in ConceptSearchInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, NewInvalidParamsError(err.Error())
		}
		return s.handleConceptSearch(ctx, in)
	case "catalog_search":
		var in CatalogSearchInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, NewInvalidParamsError(err.Error())
		}
		return s.handleCatalogSearch(ctx, in)
	case "chunks_search":
		var in ChunksSearchInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, NewInvalidParamsError(err.Error())
		}
		return s.handleChunksSearch(ctx, in)
	case "broad_chunks_search":
		var in BroadChunksSearchInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, NewInvalidParamsError(err.Error())
		}
		return s.handleBroadChunksSearch(ctx, in)
	case "extract_concepts":
		var in ExtractConceptsInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, NewInvalidParamsError(err.Error())
		}
		return s.handleExtractConcepts(ctx, in)
	case "category_search":
		var in CategorySearchInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, NewInvalidParamsError(err.Error())
		}
		return s.handleCategorySearch(ctx, in)
	case "list_categories":
		var in ListCategoriesInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, NewInvalidParamsError(err.Error())
		}
		return s.handleListCategories(ctx, in)
	case "list_concepts_in_category":
		var in ListConceptsInCategoryInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, NewInvalidParamsError(err.Error())
		}
		return s.handleListConceptsInCategory(ctx, in)
	case "get_visuals":
		var in GetVisualsInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, NewInvalidParamsError(err.Error())
		}
		return s.handleGetVisuals(ctx, in)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// decodeArgs round-trips a generic argument map through JSON into a typed
// input struct, so handlers work from the same field tags the SDK path
// uses.
func decodeArgs(args map[string]any, into any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, into)
}

// registerTools registers the typed SDK handler for every tool.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "concept_search", Description: toolCatalog[0].Description}, s.mcpConceptSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "catalog_search", Description: toolCatalog[1].Description}, s.mcpCatalogSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "chunks_search", Description: toolCatalog[2].Description}, s.mcpChunksSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "broad_chunks_search", Description: toolCatalog[3].Description}, s.mcpBroadChunksSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "extract_concepts", Description: toolCatalog[4].Description}, s.mcpExtractConceptsHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "category_search", Description: toolCatalog[5].Description}, s.mcpCategorySearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "list_categories", Description: toolCatalog[6].Description}, s.mcpListCategoriesHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "list_concepts_in_category", Description: toolCatalog[7].Description}, s.mcpListConceptsInCategoryHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: "get_visuals", Description: toolCatalog[8].Description}, s.mcpGetVisualsHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", len(toolCatalog)))
}

// ---- concept_search ----

func (s *Server) handleConceptSearch(ctx context.Context, in ConceptSearchInput) (*ConceptSearchOutput, error) {
	if in.Concept == "" {
		return nil, NewInvalidParamsError("concept is required")
	}
	limit := clampLimit(in.Limit, 10, 1, 100)

	concept, err := s.concepts.FindByName(ctx, in.Concept)
	if err != nil {
		return nil, MapError(err)
	}
	if concept == nil {
		return nil, MapError(engerrors.NotFound(engerrors.ErrCodeConceptNotFound, "concept not found: "+in.Concept))
	}

	chunks, err := s.chunks.FindByConceptName(ctx, in.Concept, limit)
	if err != nil {
		return nil, MapError(err)
	}

	out := &ConceptSearchOutput{Concept: concept.Name}
	seenCatalogs := make(map[uint32]bool)
	imageIDs := make(map[uint32]bool)

	for _, c := range chunks {
		if in.SourceFilter != "" {
			entry, err := s.catalog.FindByID(ctx, c.CatalogID)
			if err != nil {
				return nil, MapError(err)
			}
			if entry == nil || !sourceContains(entry.Source, in.SourceFilter) {
				continue
			}
		}

		out.Chunks = append(out.Chunks, ChunkRef{
			ID:             c.ID,
			CatalogID:      c.CatalogID,
			Text:           c.Text,
			ConceptDensity: c.ConceptDensity,
		})

		if !seenCatalogs[c.CatalogID] {
			seenCatalogs[c.CatalogID] = true
			entry, err := s.catalog.FindByID(ctx, c.CatalogID)
			if err != nil {
				return nil, MapError(err)
			}
			if entry != nil {
				out.Sources = append(out.Sources, DocumentRef{
					CatalogID: entry.ID,
					Title:     entry.Title,
					Source:    entry.Source,
				})
			}

			visuals, err := s.visuals.FindByCatalogID(ctx, c.CatalogID)
			if err != nil {
				return nil, MapError(err)
			}
			for _, v := range visuals {
				if containsConceptID(v.ConceptIDs, concept.ID) && !imageIDs[v.ID] {
					imageIDs[v.ID] = true
					out.ImageIDs = append(out.ImageIDs, v.ID)
				}
			}
		}
	}

	return out, nil
}

func (s *Server) mcpConceptSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, in ConceptSearchInput) (*mcp.CallToolResult, ConceptSearchOutput, error) {
	out, err := s.handleConceptSearch(ctx, in)
	if err != nil {
		return nil, ConceptSearchOutput{}, MapError(err)
	}
	return nil, *out, nil
}

// ---- catalog_search ----

func (s *Server) handleCatalogSearch(ctx context.Context, in CatalogSearchInput) (*CatalogSearchOutput, error) {
	if in.Text == "" {
		return nil, NewInvalidParamsError("text is required")
	}
	opts := search.Options{
		Text:  in.Text,
		Limit: clampLimit(in.Limit, 5, 1, 50),
		Debug: in.Debug,
	}

	start := time.Now()
	results, err := s.catalog.Search(ctx, opts)
	elapsed := time.Since(start)
	if err != nil {
		return nil, MapError(err)
	}
	s.recordQuery(in.Text, len(results), elapsed)

	out := &CatalogSearchOutput{Results: toSearchResultOutputs(results, in.Debug)}
	if in.Debug {
		out.TraceID = uuid.NewString()
		out.Timings = map[string]int64{"search_ms": elapsed.Milliseconds()}
	}
	return out, nil
}

func (s *Server) mcpCatalogSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, in CatalogSearchInput) (*mcp.CallToolResult, CatalogSearchOutput, error) {
	out, err := s.handleCatalogSearch(ctx, in)
	if err != nil {
		return nil, CatalogSearchOutput{}, MapError(err)
	}
	return nil, *out, nil
}

// ---- chunks_search ----

func (s *Server) handleChunksSearch(ctx context.Context, in ChunksSearchInput) (*ChunksSearchOutput, error) {
	if in.CatalogID == 0 {
		return nil, NewInvalidParamsError("catalog_id is required")
	}
	limit := clampLimit(in.Limit, 10, 1, 100)

	if in.Text == "" {
		chunks, err := s.chunks.FindByCatalogID(ctx, in.CatalogID)
		if err != nil {
			return nil, MapError(err)
		}
		if len(chunks) > limit {
			chunks = chunks[:limit]
		}
		out := &ChunksSearchOutput{Results: make([]SearchResultOutput, 0, len(chunks))}
		for _, c := range chunks {
			out.Results = append(out.Results, SearchResultOutput{
				CatalogID: c.CatalogID,
				Text:      c.Text,
			})
		}
		return out, nil
	}

	// oversample the corpus-wide search, then keep only this document's hits.
	oversampleLimit := limit * chunksSearchOversample
	start := time.Now()
	results, err := s.chunks.Search(ctx, search.Options{Text: in.Text, Limit: oversampleLimit})
	elapsed := time.Since(start)
	if err != nil {
		return nil, MapError(err)
	}

	out := &ChunksSearchOutput{}
	for _, r := range results {
		if r.CatalogID != in.CatalogID {
			continue
		}
		out.Results = append(out.Results, toSearchResultOutput(r, false))
		if len(out.Results) >= limit {
			break
		}
	}
	s.recordQuery(in.Text, len(out.Results), elapsed)
	return out, nil
}

// chunksSearchOversample is how many corpus-wide hits chunks_search pulls
// per requested result before filtering down to the requested document,
// since the hybrid search path has no per-document ANN scope.
const chunksSearchOversample = 5

func (s *Server) mcpChunksSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, in ChunksSearchInput) (*mcp.CallToolResult, ChunksSearchOutput, error) {
	out, err := s.handleChunksSearch(ctx, in)
	if err != nil {
		return nil, ChunksSearchOutput{}, MapError(err)
	}
	return nil, *out, nil
}

// ---- broad_chunks_search ----

func (s *Server) handleBroadChunksSearch(ctx context.Context, in BroadChunksSearchInput) (*BroadChunksSearchOutput, error) {
	if in.Text == "" {
		return nil, NewInvalidParamsError("text is required")
	}
	opts := search.Options{
		Text:         in.Text,
		Limit:        clampLimit(in.Limit, 10, 1, 100),
		SourceFilter: in.SourceFilter,
		Debug:        in.Debug,
	}

	start := time.Now()
	results, err := s.chunks.Search(ctx, opts)
	elapsed := time.Since(start)
	if err != nil {
		return nil, MapError(err)
	}
	s.recordQuery(in.Text, len(results), elapsed)

	out := &BroadChunksSearchOutput{Results: toSearchResultOutputs(results, in.Debug)}
	if in.Debug {
		out.TraceID = uuid.NewString()
		out.Timings = map[string]int64{"search_ms": elapsed.Milliseconds()}
	}
	return out, nil
}

func (s *Server) mcpBroadChunksSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, in BroadChunksSearchInput) (*mcp.CallToolResult, BroadChunksSearchOutput, error) {
	out, err := s.handleBroadChunksSearch(ctx, in)
	if err != nil {
		return nil, BroadChunksSearchOutput{}, MapError(err)
	}
	return nil, *out, nil
}

// ---- extract_concepts ----

func (s *Server) handleExtractConcepts(ctx context.Context, in ExtractConceptsInput) (*ExtractConceptsOutput, error) {
	if in.Source == "" {
		return nil, NewInvalidParamsError("source is required")
	}

	entry, err := s.catalog.FindBySource(ctx, in.Source)
	if err != nil {
		return nil, MapError(err)
	}
	if entry == nil {
		return nil, MapError(engerrors.NotFound(engerrors.ErrCodeDocumentNotFound, "document not found: "+in.Source))
	}

	out := &ExtractConceptsOutput{
		Source:       entry.Source,
		Title:        entry.Title,
		Author:       entry.Author,
		Year:         entry.Year,
		Publisher:    entry.Publisher,
		ISBN:         entry.ISBN,
		FilenameTags: entry.FilenameTags,
	}

	for _, id := range entry.ConceptIDs {
		c, err := s.concepts.FindByID(ctx, id)
		if err != nil {
			return nil, MapError(err)
		}
		if c == nil {
			continue
		}
		out.Concepts = append(out.Concepts, ConceptSummary{
			ID:     c.ID,
			Name:   c.Name,
			Type:   string(c.Type),
			Weight: c.Weight,
		})
	}

	return out, nil
}

func (s *Server) mcpExtractConceptsHandler(ctx context.Context, _ *mcp.CallToolRequest, in ExtractConceptsInput) (*mcp.CallToolResult, ExtractConceptsOutput, error) {
	out, err := s.handleExtractConcepts(ctx, in)
	if err != nil {
		return nil, ExtractConceptsOutput{}, MapError(err)
	}
	return nil, *out, nil
}

// ---- category_search ----

func (s *Server) handleCategorySearch(ctx context.Context, in CategorySearchInput) (*CategorySearchOutput, error) {
	category, err := s.resolveCategory(ctx, in.Category)
	if err != nil {
		return nil, MapError(err)
	}

	categoryIDs := []uint32{category.ID}
	if in.IncludeChildren {
		children, err := s.categories.FindChildren(ctx, category.ID)
		if err != nil {
			return nil, MapError(err)
		}
		for _, c := range children {
			categoryIDs = append(categoryIDs, c.ID)
		}
	}

	limit := clampLimit(in.Limit, 10, 1, 100)
	out := &CategorySearchOutput{CategoryID: category.ID, Name: category.Name}
	conceptSeen := make(map[uint32]bool)

	for _, cid := range categoryIDs {
		entries, err := s.catalog.FindByCategory(ctx, cid)
		if err != nil {
			return nil, MapError(err)
		}
		for _, e := range entries {
			if len(out.Documents) >= limit {
				break
			}
			out.Documents = append(out.Documents, DocumentRef{CatalogID: e.ID, Title: e.Title, Source: e.Source})
		}

		conceptIDs, err := s.catalog.GetConceptsInCategory(ctx, cid)
		if err != nil {
			return nil, MapError(err)
		}
		for _, id := range conceptIDs {
			if conceptSeen[id] {
				continue
			}
			conceptSeen[id] = true
			c, err := s.concepts.FindByID(ctx, id)
			if err != nil {
				return nil, MapError(err)
			}
			if c == nil {
				continue
			}
			out.Concepts = append(out.Concepts, ConceptSummary{ID: c.ID, Name: c.Name, Type: string(c.Type), Weight: c.Weight})
		}
	}

	return out, nil
}

func (s *Server) mcpCategorySearchHandler(ctx context.Context, _ *mcp.CallToolRequest, in CategorySearchInput) (*mcp.CallToolResult, CategorySearchOutput, error) {
	out, err := s.handleCategorySearch(ctx, in)
	if err != nil {
		return nil, CategorySearchOutput{}, MapError(err)
	}
	return nil, *out, nil
}

// ---- list_categories ----

func (s *Server) handleListCategories(ctx context.Context, in ListCategoriesInput) (*ListCategoriesOutput, error) {
	categories, err := s.categories.FindAll(ctx)
	if err != nil {
		return nil, MapError(err)
	}

	sortBy := in.SortBy
	if sortBy == "" {
		sortBy = "documentCount"
	}
	sort.Slice(categories, func(i, j int) bool {
		switch sortBy {
		case "name":
			return categories[i].Name < categories[j].Name
		case "popularity":
			return categories[i].ChunkCount > categories[j].ChunkCount
		default:
			return categories[i].DocumentCount > categories[j].DocumentCount
		}
	})

	limit := clampLimit(in.Limit, 50, 1, 500)
	if len(categories) > limit {
		categories = categories[:limit]
	}

	out := &ListCategoriesOutput{Categories: make([]CategorySummary, 0, len(categories))}
	for _, c := range categories {
		out.Categories = append(out.Categories, CategorySummary{
			ID:            c.ID,
			Name:          c.Name,
			DocumentCount: c.DocumentCount,
			ChunkCount:    c.ChunkCount,
			ConceptCount:  c.ConceptCount,
		})
	}
	return out, nil
}

func (s *Server) mcpListCategoriesHandler(ctx context.Context, _ *mcp.CallToolRequest, in ListCategoriesInput) (*mcp.CallToolResult, ListCategoriesOutput, error) {
	out, err := s.handleListCategories(ctx, in)
	if err != nil {
		return nil, ListCategoriesOutput{}, MapError(err)
	}
	return nil, *out, nil
}

// ---- list_concepts_in_category ----

func (s *Server) handleListConceptsInCategory(ctx context.Context, in ListConceptsInCategoryInput) (*ListConceptsInCategoryOutput, error) {
	category, err := s.resolveCategory(ctx, in.Category)
	if err != nil {
		return nil, MapError(err)
	}

	conceptIDs, err := s.catalog.GetConceptsInCategory(ctx, category.ID)
	if err != nil {
		return nil, MapError(err)
	}

	concepts := make([]*store.Concept, 0, len(conceptIDs))
	for _, id := range conceptIDs {
		c, err := s.concepts.FindByID(ctx, id)
		if err != nil {
			return nil, MapError(err)
		}
		if c != nil {
			concepts = append(concepts, c)
		}
	}

	sortBy := in.SortBy
	if sortBy == "" {
		sortBy = "popularity"
	}
	sort.Slice(concepts, func(i, j int) bool {
		if sortBy == "name" {
			return concepts[i].Name < concepts[j].Name
		}
		return concepts[i].Weight > concepts[j].Weight
	})

	limit := clampLimit(in.Limit, 50, 1, 500)
	if len(concepts) > limit {
		concepts = concepts[:limit]
	}

	out := &ListConceptsInCategoryOutput{CategoryID: category.ID, Concepts: make([]ConceptSummary, 0, len(concepts))}
	for _, c := range concepts {
		out.Concepts = append(out.Concepts, ConceptSummary{ID: c.ID, Name: c.Name, Type: string(c.Type), Weight: c.Weight})
	}
	return out, nil
}

func (s *Server) mcpListConceptsInCategoryHandler(ctx context.Context, _ *mcp.CallToolRequest, in ListConceptsInCategoryInput) (*mcp.CallToolResult, ListConceptsInCategoryOutput, error) {
	out, err := s.handleListConceptsInCategory(ctx, in)
	if err != nil {
		return nil, ListConceptsInCategoryOutput{}, MapError(err)
	}
	return nil, *out, nil
}

// resolveCategory resolves a category_search/list_concepts_in_category
// Category argument by trying, in order: numeric id, exact name, alias.
func (s *Server) resolveCategory(ctx context.Context, raw string) (*store.Category, error) {
	if raw == "" {
		return nil, NewInvalidParamsError("category is required")
	}

	if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
		c, err := s.categories.FindByID(ctx, uint32(id))
		if err != nil {
			return nil, err
		}
		if c != nil {
			return c, nil
		}
	}

	if c, err := s.categories.FindByName(ctx, raw); err != nil {
		return nil, err
	} else if c != nil {
		return c, nil
	}

	if c, err := s.categories.FindByAlias(ctx, raw); err != nil {
		return nil, err
	} else if c != nil {
		return c, nil
	}

	return nil, engerrors.NotFound(engerrors.ErrCodeCategoryNotFound, "category not found: "+raw)
}

// ---- get_visuals ----

func (s *Server) handleGetVisuals(ctx context.Context, in GetVisualsInput) (*GetVisualsOutput, error) {
	limit := clampLimit(in.Limit, 20, 1, 200)

	var visuals []*store.Visual
	var err error

	switch {
	case len(in.IDs) > 0:
		visuals, err = s.visuals.FindByIDs(ctx, in.IDs)
	case in.CatalogID != nil:
		visuals, err = s.visuals.FindByCatalogID(ctx, *in.CatalogID)
	case in.VisualType != "":
		visuals, err = s.visuals.FindByVisualType(ctx, store.VisualType(in.VisualType), limit)
	default:
		visuals, err = s.visuals.FindAll(ctx, limit)
	}
	if err != nil {
		return nil, MapError(err)
	}
	if len(visuals) > limit {
		visuals = visuals[:limit]
	}

	out := &GetVisualsOutput{Visuals: make([]VisualOutput, 0, len(visuals))}
	for _, v := range visuals {
		out.Visuals = append(out.Visuals, VisualOutput{
			ID:           v.ID,
			CatalogID:    v.CatalogID,
			CatalogTitle: v.CatalogTitle,
			VisualType:   string(v.VisualType),
			PageNumber:   v.PageNumber,
			Description:  v.Description,
			ConceptIDs:   v.ConceptIDs,
			ResourceURI:  visualResourceURI(v.ID),
		})
	}
	return out, nil
}

func (s *Server) mcpGetVisualsHandler(ctx context.Context, _ *mcp.CallToolRequest, in GetVisualsInput) (*mcp.CallToolResult, GetVisualsOutput, error) {
	out, err := s.handleGetVisuals(ctx, in)
	if err != nil {
		return nil, GetVisualsOutput{}, MapError(err)
	}
	return nil, *out, nil
}

// ---- shared helpers ----

// recordQuery feeds a completed search into the query metrics collector.
// All three search tools run the same hybrid vector+BM25+title+concept+
// WordNet pipeline, so every query is classified QueryTypeMixed.
func (s *Server) recordQuery(text string, resultCount int, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.Record(telemetry.QueryEvent{
		Query:       text,
		QueryType:   telemetry.QueryTypeMixed,
		ResultCount: resultCount,
		Latency:     elapsed,
		Timestamp:   time.Now(),
	})
}

func toSearchResultOutputs(results []store.SearchResult, debug bool) []SearchResultOutput {
	out := make([]SearchResultOutput, 0, len(results))
	for _, r := range results {
		out = append(out, toSearchResultOutput(r, debug))
	}
	return out
}

func toSearchResultOutput(r store.SearchResult, debug bool) SearchResultOutput {
	o := SearchResultOutput{
		CatalogID:   r.CatalogID,
		Title:       r.Title,
		Source:      r.Source,
		Text:        r.Text,
		HybridScore: r.HybridScore,
	}
	if debug {
		o.VectorScore = r.VectorScore
		o.BM25Score = r.BM25Score
		o.TitleScore = r.TitleScore
		o.ConceptScore = r.ConceptScore
		o.WordnetBonus = r.WordnetBonus
		o.MatchedConcepts = r.MatchedConcepts
		o.ExpandedTerms = r.ExpandedTerms
	}
	return o
}

func sourceContains(source, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(source), strings.ToLower(filter))
}

// containsConceptID reports whether ids contains target.
func containsConceptID(ids []uint32, target uint32) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

// clampLimit clamps value to [min, max], substituting def when value <= 0.
func clampLimit(value, def, min, max int) int {
	if value <= 0 {
		value = def
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
