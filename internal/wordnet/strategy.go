package wordnet

import "strings"

// SynsetStrategy picks one sense of a term out of several candidates.
// Implementations must be deterministic given the same inputs.
type SynsetStrategy interface {
	Select(term string, candidates []Synset, queryTerms []string) Synset
}

// FirstSynsetStrategy always picks the most-common sense: the first entry
// in the dataset's candidate list. This is the default strategy.
type FirstSynsetStrategy struct{}

func (FirstSynsetStrategy) Select(_ string, candidates []Synset, _ []string) Synset {
	return candidates[0]
}

// Scoring weights for ContextAwareStrategy, per spec: term overlap with the
// definition dominates, domain hints and related-term overlap contribute
// less, and a small bonus goes to technical-sounding definitions.
const (
	weightTermOverlap        = 3.0
	weightTechnicalIndicator = 1.0
	weightDomainHint         = 2.0
	weightRelatedTermOverlap = 1.5
)

// domainHints are vocabulary fragments that suggest a synset belongs to the
// technical/computing sense of a term rather than its everyday sense.
var domainHints = []string{
	"computing", "computer science", "data", "system", "algorithm",
	"network", "database", "software", "protocol", "distributed",
}

// technicalIndicators are surface markers (abbreviation parens, acronym
// casing) that a definition is describing a technical term.
var technicalIndicators = []string{"e.g.", "i.e.", "aka", "abbr", "acronym"}

// ContextAwareStrategy scores each candidate synset against the surrounding
// query terms and picks the argmax. Used when a bare FirstSynsetStrategy
// pick would favor a common-but-wrong sense (e.g. "bank" the riverbank vs.
// "bank" the financial institution) for a query that is clearly technical.
type ContextAwareStrategy struct{}

func (ContextAwareStrategy) Select(_ string, candidates []Synset, queryTerms []string) Synset {
	if len(candidates) == 1 {
		return candidates[0]
	}

	best := candidates[0]
	bestScore := -1.0
	for _, c := range candidates {
		score := scoreSynset(c, queryTerms)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	return best
}

func scoreSynset(s Synset, queryTerms []string) float64 {
	def := strings.ToLower(s.Definition)

	overlap := termOverlap(def, queryTerms)
	technical := countHits(def, technicalIndicators)
	domain := countHits(def, domainHints)
	related := relatedTermOverlap(s, queryTerms)

	return weightTermOverlap*overlap +
		weightTechnicalIndicator*float64(technical) +
		weightDomainHint*float64(domain) +
		weightRelatedTermOverlap*related
}

func termOverlap(definition string, queryTerms []string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	hits := 0
	for _, t := range queryTerms {
		if strings.Contains(definition, strings.ToLower(t)) {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTerms))
}

func countHits(text string, needles []string) int {
	count := 0
	for _, n := range needles {
		if strings.Contains(text, n) {
			count++
		}
	}
	return count
}

func relatedTermOverlap(s Synset, queryTerms []string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	related := make([]string, 0, len(s.Synonyms)+len(s.Broader)+len(s.Narrower))
	related = append(related, s.Synonyms...)
	related = append(related, s.Broader...)
	related = append(related, s.Narrower...)

	hits := 0
	for _, t := range queryTerms {
		lt := strings.ToLower(t)
		for _, r := range related {
			if strings.ToLower(r) == lt {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(queryTerms))
}
