package search

import (
	"strings"

	"github.com/m2ux/concept-rag-sub008/internal/store"
)

// VectorScoreFromDistance converts a cosine distance (as reported by the
// ANN index) into the [0,1] vector signal, clipped at 0.
func VectorScoreFromDistance(cosineDistance float32) float64 {
	s := 1 - float64(cosineDistance)
	if s < 0 {
		return 0
	}
	return s
}

// conceptMatchBoost is the per-token BM25 weight multiplier applied when a
// candidate token coincides with one of the query's matched concept names.
const conceptMatchBoost = 0.5

// BM25Score is a self-contained weighted term-overlap score of the
// expanded query terms against candidate text — not a corpus-level BM25
// computation (that lives in store.BM25Index for the lexical index proper);
// here it is a normalized per-candidate signal, so term weights are summed
// and divided by the maximum possible weight to land in [0,1].
func BM25Score(expandedTerms []string, text string, matchedConceptNames []string) float64 {
	if len(expandedTerms) == 0 {
		return 0
	}

	tokens := store.TokenizeProse(text)
	tokenSet := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = true
	}

	conceptTerms := make(map[string]bool, len(matchedConceptNames))
	for _, name := range matchedConceptNames {
		for _, tok := range store.TokenizeProse(name) {
			conceptTerms[tok] = true
		}
	}

	var scored, total float64
	for _, term := range expandedTerms {
		weight := 1.0
		lower := strings.ToLower(term)
		if conceptTerms[lower] {
			weight = 1 + conceptMatchBoost
		}
		total += weight
		if tokenSet[lower] {
			scored += weight
		}
	}

	if total == 0 {
		return 0
	}
	return scored / total
}

// TitleScore scores the raw (unexpanded) query terms against a title
// (catalog context) or concept name (chunk context).
func TitleScore(queryTerms []string, title string) float64 {
	if len(queryTerms) == 0 || title == "" {
		return 0
	}

	lowerTitle := strings.ToLower(title)
	joined := strings.ToLower(strings.Join(queryTerms, " "))
	if strings.Contains(lowerTitle, joined) {
		return 1.0
	}

	titleTokens := make(map[string]bool)
	for _, t := range store.TokenizeProse(title) {
		titleTokens[t] = true
	}

	hits := 0
	for _, term := range queryTerms {
		if titleTokens[strings.ToLower(term)] {
			hits++
		}
	}
	coverage := float64(hits) / float64(len(queryTerms))

	switch {
	case hits == len(queryTerms):
		return 0.8
	case coverage >= 0.5:
		return 0.4
	default:
		return coverage
	}
}

// ConceptScore is the Jaccard-style overlap of the query's matched concept
// ids against the candidate's own concept_ids, divided by the number of
// matched concepts (not the union), per spec.
func ConceptScore(matchedConceptIDs []uint32, candidateConceptIDs []uint32) float64 {
	if len(matchedConceptIDs) == 0 {
		return 0
	}
	candidateSet := make(map[uint32]bool, len(candidateConceptIDs))
	for _, id := range candidateConceptIDs {
		candidateSet[id] = true
	}

	hits := 0
	for _, id := range matchedConceptIDs {
		if candidateSet[id] {
			hits++
		}
	}
	return float64(hits) / float64(len(matchedConceptIDs))
}

// wordnetSynonymWeight and wordnetHierarchyWeight are the per-term
// contribution weights for WordnetBonus, per spec: synonym hits count in
// full, broader/narrower hits count at 0.6.
const (
	wordnetSynonymWeight  = 1.0
	wordnetHierarchyWeight = 0.6
)

// WordnetBonus is the capped sum of per-term ontology contributions,
// divided by the number of query terms so it stays comparable across
// queries of different lengths.
func WordnetBonus(ontologyTerms []OntologyTerm, text string, queryTermCount int) float64 {
	if queryTermCount == 0 || len(ontologyTerms) == 0 {
		return 0
	}

	lowerText := strings.ToLower(text)
	var sum float64
	for _, ot := range ontologyTerms {
		if !strings.Contains(lowerText, strings.ToLower(ot.Term)) {
			continue
		}
		switch ot.Source {
		case OntologySynonym:
			sum += wordnetSynonymWeight
		case OntologyBroader, OntologyNarrower:
			sum += wordnetHierarchyWeight
		}
	}

	bonus := sum / float64(queryTermCount)
	if bonus > 1 {
		bonus = 1
	}
	return bonus
}
