package search

import (
	"context"
	"strings"

	"github.com/m2ux/concept-rag-sub008/internal/store"
)

// conceptSimilarityThreshold is the minimum embedding similarity for a
// concept match to be folded into an ExpandedQuery.
const conceptSimilarityThreshold = 0.55

// defaultTopConcepts bounds how many concept matches QueryExpander considers.
const defaultTopConcepts = 5

// maxOntologyTermsPerCategory caps how many synonym/broader/narrower terms
// survive deduplication, per term category.
const maxOntologyTermsPerCategory = 8

// wordnetBFSDepth is the hypernym/hyponym walk depth QueryExpander uses when
// consulting OntologyLookup for a salient term.
const wordnetBFSDepth = 1

// Embedder is the minimal capability QueryExpander needs from
// internal/embed.Embedder — narrowed here to avoid this package depending
// on the embedding provider's full interface.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// QueryExpander turns raw query text into an ExpandedQuery: its tokenized
// terms, any corpus concepts the query's embedding matches, and WordNet
// synonym/hierarchy terms for the query's remaining salient terms.
type QueryExpander struct {
	embedder Embedder
	concepts ConceptSearcher
	ontology OntologyLookup
}

// NewQueryExpander builds a QueryExpander. ontology may be nil, in which
// case step 3 (WordNet consultation) is skipped — callers running without a
// loaded synset dataset still get concept-based expansion.
func NewQueryExpander(embedder Embedder, concepts ConceptSearcher, ontology OntologyLookup) *QueryExpander {
	return &QueryExpander{embedder: embedder, concepts: concepts, ontology: ontology}
}

// Expand implements the spec's four-step expansion algorithm. It also
// returns the query's embedding, computed once here so callers (the
// HybridSearchService candidate fetch) don't re-embed the same text.
func (e *QueryExpander) Expand(ctx context.Context, queryText string) (ExpandedQuery, []float32, error) {
	terms := store.TokenizeProse(queryText)
	expanded := ExpandedQuery{Original: queryText, Terms: terms}
	if len(terms) == 0 {
		return expanded, nil, nil
	}

	queryVec, err := e.embedder.Embed(ctx, queryText)
	if err != nil {
		return expanded, nil, err
	}

	matchedTerms := make(map[string]bool, len(terms))

	signals, err := e.concepts.SearchConcepts(ctx, queryVec, defaultTopConcepts)
	if err != nil {
		return expanded, nil, err
	}

	var ontologyTerms []OntologyTerm
	for _, sig := range signals {
		if sig.Similarity < conceptSimilarityThreshold {
			continue
		}
		expanded.ConceptMatches = append(expanded.ConceptMatches, ConceptMatch{
			ID: sig.ID, Name: sig.Name, Weight: sig.Similarity,
		})
		for _, t := range store.TokenizeProse(sig.Name) {
			matchedTerms[t] = true
		}
		ontologyTerms = appendCapped(ontologyTerms, sig.Synonyms, OntologySynonym)
		ontologyTerms = appendCapped(ontologyTerms, sig.Broader, OntologyBroader)
		ontologyTerms = appendCapped(ontologyTerms, sig.Narrower, OntologyNarrower)
	}

	if e.ontology != nil {
		for _, term := range terms {
			if matchedTerms[strings.ToLower(term)] {
				continue
			}
			contextTerms := otherTerms(terms, term)
			ontologyTerms = appendCapped(ontologyTerms, e.ontology.GetSynonyms(term, contextTerms...), OntologySynonym)
			ontologyTerms = appendCapped(ontologyTerms, e.ontology.GetBroaderTerms(term, wordnetBFSDepth), OntologyBroader)
			ontologyTerms = appendCapped(ontologyTerms, e.ontology.GetNarrowerTerms(term, wordnetBFSDepth), OntologyNarrower)
		}
	}

	expanded.OntologyTerms = dedupeOntologyTerms(ontologyTerms)
	return expanded, queryVec, nil
}

func otherTerms(terms []string, exclude string) []string {
	out := make([]string, 0, len(terms)-1)
	for _, t := range terms {
		if t != exclude {
			out = append(out, t)
		}
	}
	return out
}

// appendCapped appends up to maxOntologyTermsPerCategory-worth of new terms
// tagged with source, counted per call (the final cap-per-category
// dedupe happens in dedupeOntologyTerms).
func appendCapped(existing []OntologyTerm, terms []string, source OntologySource) []OntologyTerm {
	for i, t := range terms {
		if i >= maxOntologyTermsPerCategory {
			break
		}
		existing = append(existing, OntologyTerm{Term: t, Source: source})
	}
	return existing
}

// dedupeOntologyTerms removes duplicate (normalized term, source) pairs and
// caps each source category to maxOntologyTermsPerCategory entries.
func dedupeOntologyTerms(terms []OntologyTerm) []OntologyTerm {
	seen := make(map[OntologyTerm]bool, len(terms))
	counts := make(map[OntologySource]int)
	var out []OntologyTerm
	for _, t := range terms {
		key := OntologyTerm{Term: strings.ToLower(t.Term), Source: t.Source}
		if seen[key] || counts[t.Source] >= maxOntologyTermsPerCategory {
			continue
		}
		seen[key] = true
		counts[t.Source]++
		out = append(out, t)
	}
	return out
}
