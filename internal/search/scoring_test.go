package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVectorScoreFromDistance(t *testing.T) {
	assert.InDelta(t, 1.0, VectorScoreFromDistance(0), 1e-9)
	assert.InDelta(t, 0.7, VectorScoreFromDistance(0.3), 1e-9)
	assert.Equal(t, 0.0, VectorScoreFromDistance(1.5))
}

func TestBM25Score_NoTermsScoresZero(t *testing.T) {
	assert.Equal(t, 0.0, BM25Score(nil, "some text here", nil))
}

func TestBM25Score_FullOverlapScoresOne(t *testing.T) {
	score := BM25Score([]string{"consistency", "model"}, "the consistency model defines guarantees", nil)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestBM25Score_ConceptMatchedTermsWeightMore(t *testing.T) {
	withoutConcept := BM25Score([]string{"consistency", "latency"}, "discussion of consistency only", nil)
	withConcept := BM25Score([]string{"consistency", "latency"}, "discussion of consistency only", []string{"consistency"})
	assert.Greater(t, withConcept, withoutConcept)
}

func TestTitleScore_ExactPhraseMatch(t *testing.T) {
	score := TitleScore([]string{"eventual", "consistency"}, "Eventual Consistency in Distributed Systems")
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestTitleScore_AllTermsPresentButNotPhrase(t *testing.T) {
	score := TitleScore([]string{"consistency", "eventual"}, "Consistency models: eventual and strong")
	assert.InDelta(t, 0.8, score, 1e-9)
}

func TestTitleScore_NoOverlap(t *testing.T) {
	score := TitleScore([]string{"consistency"}, "Unrelated title about caching")
	assert.Equal(t, 0.0, score)
}

func TestConceptScore_NoMatchedConceptsScoresZero(t *testing.T) {
	assert.Equal(t, 0.0, ConceptScore(nil, []uint32{1, 2}))
}

func TestConceptScore_PartialOverlap(t *testing.T) {
	score := ConceptScore([]uint32{1, 2, 3}, []uint32{2, 3, 99})
	assert.InDelta(t, 2.0/3.0, score, 1e-9)
}

func TestWordnetBonus_NoOntologyTermsScoresZero(t *testing.T) {
	assert.Equal(t, 0.0, WordnetBonus(nil, "some text", 2))
}

func TestWordnetBonus_SynonymHitWeightsFull(t *testing.T) {
	terms := []OntologyTerm{{Term: "bug", Source: OntologySynonym}}
	bonus := WordnetBonus(terms, "a bug in the system", 1)
	assert.InDelta(t, 1.0, bonus, 1e-9)
}

func TestWordnetBonus_HierarchyHitWeightsPartial(t *testing.T) {
	terms := []OntologyTerm{{Term: "defect", Source: OntologyBroader}}
	bonus := WordnetBonus(terms, "a defect in the system", 1)
	assert.InDelta(t, 0.6, bonus, 1e-9)
}

func TestWordnetBonus_CapsAtOne(t *testing.T) {
	terms := []OntologyTerm{
		{Term: "bug", Source: OntologySynonym},
		{Term: "fault", Source: OntologySynonym},
		{Term: "defect", Source: OntologyBroader},
	}
	bonus := WordnetBonus(terms, "bug fault defect all present", 1)
	assert.Equal(t, 1.0, bonus)
}
