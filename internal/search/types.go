// Package search implements the retrieval-over-concepts engine's query
// expansion, multi-signal scoring, and hybrid search orchestration.
package search

import "context"

// SearchContext names which row family a HybridSearchService instance is
// configured against — each carries its own default signal weights.
type SearchContext string

const (
	ContextCatalog SearchContext = "catalog"
	ContextChunk   SearchContext = "chunk"
	ContextConcept SearchContext = "concept"
)

// ConceptMatch is a concept whose embedding matched the query above
// threshold, carried in an ExpandedQuery for concept-score boosting.
type ConceptMatch struct {
	ID     uint32
	Name   string
	Weight float64
}

// OntologySource records which WordNet relation produced an expansion term.
type OntologySource string

const (
	OntologySynonym  OntologySource = "synonym"
	OntologyBroader  OntologySource = "broader"
	OntologyNarrower OntologySource = "narrower"
)

// OntologyTerm is a single WordNet-sourced expansion term.
type OntologyTerm struct {
	Term   string
	Source OntologySource
}

// ExpandedQuery is QueryExpander's output: the original text, its
// tokenized terms, matched concepts (with corpus-enriched synonym/hierarchy
// terms folded into OntologyTerms), and WordNet-sourced ontology terms for
// the remaining salient terms.
type ExpandedQuery struct {
	Original       string
	Terms          []string
	ConceptMatches []ConceptMatch
	OntologyTerms  []OntologyTerm
}

// Weights is the five-signal weight profile consumed by HybridScore.
type Weights struct {
	Vector  float64
	BM25    float64
	Title   float64
	Concept float64
	Wordnet float64
}

// Normalize rescales w so its components sum to 1.0. A zero-sum Weights is
// returned unchanged to avoid a divide by zero.
func (w Weights) Normalize() Weights {
	sum := w.Vector + w.BM25 + w.Title + w.Concept + w.Wordnet
	if sum <= 0 {
		return w
	}
	return Weights{
		Vector:  w.Vector / sum,
		BM25:    w.BM25 / sum,
		Title:   w.Title / sum,
		Concept: w.Concept / sum,
		Wordnet: w.Wordnet / sum,
	}
}

// Signals holds the five per-candidate normalized scores.
type Signals struct {
	VectorScore  float64
	BM25Score    float64
	TitleScore   float64
	ConceptScore float64
	WordnetBonus float64
}

// HybridScore combines Signals via Weights into the final ranking score.
func HybridScore(s Signals, w Weights) float64 {
	return w.Vector*s.VectorScore + w.BM25*s.BM25Score + w.Title*s.TitleScore +
		w.Concept*s.ConceptScore + w.Wordnet*s.WordnetBonus
}

// Candidate is one row under consideration for a hybrid search, already
// resolved from the ANN probe.
type Candidate struct {
	ID             uint32
	CatalogID      uint32
	Title          string
	Text           string
	Source         string
	ConceptIDs     []uint32
	VectorDistance float32
	InsertionOrder int
}

// Result is a scored, ranked Candidate, the shape HybridSearchService
// returns before the caller converts it to store.SearchResult.
type Result struct {
	Candidate
	Signals         Signals
	HybridScore     float64
	MatchedConcepts []string
	ExpandedTerms   []string
}

// Options configures a single HybridSearchService.Search call.
type Options struct {
	Text         string
	Limit        int
	SourceFilter string
	CategoryID   *uint32
	Debug        bool
}

// CandidateSource fetches the ANN candidate set for a query vector, scoped
// to whatever row family a HybridSearchService instance searches. It is
// implemented per-context by internal/repository so that this package never
// imports internal/store.MetadataStore directly.
type CandidateSource interface {
	FetchCandidates(ctx context.Context, queryVec []float32, k int, sourceFilter string, categoryID *uint32) ([]Candidate, error)
}

// ConceptSearcher finds concepts by embedding similarity. Implemented by
// internal/repository.ConceptRepository; QueryExpander depends on this
// narrow interface instead of the concrete repository to avoid an import
// cycle (repository.ConceptRepository in turn depends on this package for
// its own concept-context hybrid search).
type ConceptSearcher interface {
	SearchConcepts(ctx context.Context, queryVec []float32, k int) ([]ConceptSignal, error)
}

// ConceptSignal is one ANN hit returned by ConceptSearcher, carrying the
// corpus-enriched synonym/hierarchy terms QueryExpander folds into
// OntologyTerms.
type ConceptSignal struct {
	ID         uint32
	Name       string
	Synonyms   []string
	Broader    []string
	Narrower   []string
	Similarity float64
}

// OntologyLookup resolves WordNet relations for a single salient term.
// internal/wordnet.Service satisfies this directly.
type OntologyLookup interface {
	GetSynonyms(term string, contextTerms ...string) []string
	GetBroaderTerms(term string, depth int) []string
	GetNarrowerTerms(term string, depth int) []string
}
