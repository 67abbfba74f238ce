// Package wordnet wraps a lexical ontology (synonyms, hypernyms, hyponyms)
// used to enrich query expansion and concept synonym discovery.
package wordnet

import "time"

// Synset is one sense of a term: a definition plus its synonym ring and its
// immediate hypernyms ("broader") and hyponyms ("narrower").
type Synset struct {
	Term       string   `json:"term"`
	Definition string   `json:"definition"`
	Synonyms   []string `json:"synonyms"`
	Broader    []string `json:"broader"`
	Narrower   []string `json:"narrower"`
}

// Dataset is the on-disk shape of a synset data file: term (normalized,
// lowercase) to its candidate senses, most-common sense first.
type Dataset map[string][]Synset

// RelatedTerms is the aggregate result of GetAllRelatedTerms: every synonym,
// broader, and narrower term reachable from a term's selected sense(s).
type RelatedTerms struct {
	Synonyms []string
	Broader  []string
	Narrower []string
}

// Default prewarm tuning.
const (
	DefaultCacheSize   = 5000
	DefaultCacheTTL    = 30 * time.Minute
	DefaultConcurrency = 8
	DefaultBFSDepth    = 2
)
