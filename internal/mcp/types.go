package mcp

// ConceptSearchInput is the input schema for the concept_search tool.
type ConceptSearchInput struct {
	Concept      string `json:"concept" jsonschema:"the concept name to search for"`
	Limit        int    `json:"limit,omitempty" jsonschema:"maximum number of chunks to return, default 10"`
	SourceFilter string `json:"source_filter,omitempty" jsonschema:"restrict to sources whose path contains this substring"`
}

// DocumentRef identifies a catalog entry in a tool result.
type DocumentRef struct {
	CatalogID uint32 `json:"catalog_id"`
	Title     string `json:"title"`
	Source    string `json:"source"`
}

// ChunkRef is a chunk carrying a matched concept.
type ChunkRef struct {
	ID             uint32  `json:"id"`
	CatalogID      uint32  `json:"catalog_id"`
	Text           string  `json:"text"`
	ConceptDensity float64 `json:"concept_density"`
}

// ConceptSearchOutput is the output schema for the concept_search tool.
type ConceptSearchOutput struct {
	Concept  string        `json:"concept"`
	Sources  []DocumentRef `json:"sources"`
	Chunks   []ChunkRef    `json:"chunks"`
	ImageIDs []uint32      `json:"image_ids"`
}

// CatalogSearchInput is the input schema for the catalog_search tool.
type CatalogSearchInput struct {
	Text  string `json:"text" jsonschema:"the search query to execute"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 5"`
	Debug bool   `json:"debug,omitempty" jsonschema:"attach per-signal scores and expansion details"`
}

// SearchResultOutput is a scored search hit, shared by the catalog_search,
// chunks_search, and broad_chunks_search tools.
type SearchResultOutput struct {
	CatalogID       uint32   `json:"catalog_id"`
	Title           string   `json:"title,omitempty"`
	Source          string   `json:"source,omitempty"`
	Text            string   `json:"text,omitempty"`
	HybridScore     float64  `json:"hybrid_score"`
	VectorScore     float64  `json:"vector_score,omitempty"`
	BM25Score       float64  `json:"bm25_score,omitempty"`
	TitleScore      float64  `json:"title_score,omitempty"`
	ConceptScore    float64  `json:"concept_score,omitempty"`
	WordnetBonus    float64  `json:"wordnet_bonus,omitempty"`
	MatchedConcepts []string `json:"matched_concepts,omitempty"`
	ExpandedTerms   []string `json:"expanded_terms,omitempty"`
}

// CatalogSearchOutput is the output schema for the catalog_search tool.
type CatalogSearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	TraceID string               `json:"trace_id,omitempty"`
	Timings map[string]int64     `json:"timings,omitempty"`
}

// ChunksSearchInput is the input schema for the chunks_search tool.
type ChunksSearchInput struct {
	CatalogID uint32 `json:"catalog_id" jsonschema:"the document to search within"`
	Text      string `json:"text,omitempty" jsonschema:"optional query; omit to list the document's chunks in order"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

// ChunksSearchOutput is the output schema for the chunks_search tool.
type ChunksSearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	TraceID string               `json:"trace_id,omitempty"`
	Timings map[string]int64     `json:"timings,omitempty"`
}

// BroadChunksSearchInput is the input schema for the broad_chunks_search tool.
type BroadChunksSearchInput struct {
	Text         string `json:"text" jsonschema:"the search query to execute"`
	Limit        int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	SourceFilter string `json:"source_filter,omitempty" jsonschema:"restrict to sources whose path contains this substring"`
	Debug        bool   `json:"debug,omitempty" jsonschema:"attach per-signal scores and expansion details"`
}

// BroadChunksSearchOutput is the output schema for the broad_chunks_search tool.
type BroadChunksSearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	TraceID string               `json:"trace_id,omitempty"`
	Timings map[string]int64     `json:"timings,omitempty"`
}

// ExtractConceptsInput is the input schema for the extract_concepts tool.
type ExtractConceptsInput struct {
	Source string `json:"source" jsonschema:"the exact source path of the ingested document"`
}

// ConceptSummary is a concept reference carried in several tool outputs.
type ConceptSummary struct {
	ID     uint32  `json:"id"`
	Name   string  `json:"name"`
	Type   string  `json:"type,omitempty"`
	Weight float64 `json:"weight"`
}

// ExtractConceptsOutput is the output schema for the extract_concepts tool.
// It preserves the ingestion's bibliographic metadata block alongside the
// resolved concept list.
type ExtractConceptsOutput struct {
	Source       string           `json:"source"`
	Title        string           `json:"title"`
	Author       *string          `json:"author,omitempty"`
	Year         *string          `json:"year,omitempty"`
	Publisher    *string          `json:"publisher,omitempty"`
	ISBN         *string          `json:"isbn,omitempty"`
	FilenameTags []string         `json:"filename_tags,omitempty"`
	Concepts     []ConceptSummary `json:"concepts"`
}

// CategorySearchInput is the input schema for the category_search tool.
// Category accepts a name, alias, or numeric id.
type CategorySearchInput struct {
	Category        string `json:"category" jsonschema:"category name, alias, or id"`
	IncludeChildren bool   `json:"includeChildren,omitempty" jsonschema:"also include documents/concepts from direct child categories"`
	Limit           int    `json:"limit,omitempty" jsonschema:"maximum number of documents to return, default 10"`
}

// CategorySearchOutput is the output schema for the category_search tool.
type CategorySearchOutput struct {
	CategoryID uint32           `json:"category_id"`
	Name       string           `json:"name"`
	Documents  []DocumentRef    `json:"documents"`
	Concepts   []ConceptSummary `json:"concepts"`
}

// ListCategoriesInput is the input schema for the list_categories tool.
type ListCategoriesInput struct {
	SortBy string `json:"sortBy,omitempty" jsonschema:"one of name, popularity, documentCount; default documentCount"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of categories to return, default 50"`
}

// CategorySummary is a category reference carried in list_categories and
// category_search results.
type CategorySummary struct {
	ID            uint32 `json:"id"`
	Name          string `json:"name"`
	DocumentCount uint32 `json:"document_count"`
	ChunkCount    uint32 `json:"chunk_count"`
	ConceptCount  uint32 `json:"concept_count"`
}

// ListCategoriesOutput is the output schema for the list_categories tool.
type ListCategoriesOutput struct {
	Categories []CategorySummary `json:"categories"`
}

// ListConceptsInCategoryInput is the input schema for the
// list_concepts_in_category tool.
type ListConceptsInCategoryInput struct {
	Category string `json:"category" jsonschema:"category name, alias, or id"`
	SortBy   string `json:"sortBy,omitempty" jsonschema:"one of name, popularity; default popularity"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of concepts to return, default 50"`
}

// ListConceptsInCategoryOutput is the output schema for the
// list_concepts_in_category tool.
type ListConceptsInCategoryOutput struct {
	CategoryID uint32           `json:"category_id"`
	Concepts   []ConceptSummary `json:"concepts"`
}

// GetVisualsInput is the input schema for the get_visuals tool. Exactly one
// of IDs, CatalogID, or VisualType should be set; an empty input lists
// across the whole corpus.
type GetVisualsInput struct {
	IDs        []uint32 `json:"ids,omitempty" jsonschema:"explicit visual ids to fetch"`
	CatalogID  *uint32  `json:"catalog_id,omitempty" jsonschema:"restrict to visuals belonging to this document"`
	VisualType string   `json:"visual_type,omitempty" jsonschema:"one of diagram, flowchart, chart, table, figure"`
	Limit      int      `json:"limit,omitempty" jsonschema:"maximum number of visuals to return, default 20"`
}

// VisualOutput is a single visual in a get_visuals result.
type VisualOutput struct {
	ID           uint32   `json:"id"`
	CatalogID    uint32   `json:"catalog_id"`
	CatalogTitle string   `json:"catalog_title"`
	VisualType   string   `json:"visual_type"`
	PageNumber   uint32   `json:"page_number"`
	Description  string   `json:"description,omitempty"`
	ConceptIDs   []uint32 `json:"concept_ids,omitempty"`
	ResourceURI  string   `json:"resource_uri"`
}

// GetVisualsOutput is the output schema for the get_visuals tool.
type GetVisualsOutput struct {
	Visuals []VisualOutput `json:"visuals"`
}
