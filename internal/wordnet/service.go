package wordnet

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"
)

// Service wraps a synset dataset with synonym/hypernym/hyponym lookups, a
// pluggable sense-selection strategy, and a prewarm cache for related-term
// fan-out queries issued repeatedly during query expansion.
type Service struct {
	mu       sync.RWMutex
	dataset  Dataset
	strategy SynsetStrategy
	cache    *expirable.LRU[string, RelatedTerms]
}

// Option configures a Service at construction time.
type Option func(*Service)

// WithStrategy overrides the default FirstSynsetStrategy.
func WithStrategy(s SynsetStrategy) Option {
	return func(svc *Service) { svc.strategy = s }
}

// WithCache overrides the default cache size/TTL.
func WithCache(size int, ttl time.Duration) Option {
	return func(svc *Service) {
		svc.cache = expirable.NewLRU[string, RelatedTerms](size, nil, ttl)
	}
}

// New constructs a Service over an in-memory dataset.
func New(dataset Dataset, opts ...Option) *Service {
	svc := &Service{
		dataset:  dataset,
		strategy: FirstSynsetStrategy{},
		cache:    expirable.NewLRU[string, RelatedTerms](DefaultCacheSize, nil, DefaultCacheTTL),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// LoadFromFile reads a JSON-encoded Dataset from path and constructs a
// Service over it.
func LoadFromFile(path string, opts ...Option) (*Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wordnet dataset %s: %w", path, err)
	}
	var dataset Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("parse wordnet dataset %s: %w", path, err)
	}
	return New(dataset, opts...), nil
}

func normalize(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// GetSynsets returns every candidate sense for term, or nil if unknown.
func (s *Service) GetSynsets(term string) []Synset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset[normalize(term)]
}

// selectSense picks a single sense using the configured strategy, given
// context terms drawn from the rest of the query.
func (s *Service) selectSense(term string, contextTerms []string) (Synset, bool) {
	candidates := s.GetSynsets(term)
	if len(candidates) == 0 {
		return Synset{}, false
	}
	return s.strategy.Select(term, candidates, contextTerms), true
}

// GetSynonyms returns the synonym ring of term's selected sense.
func (s *Service) GetSynonyms(term string, contextTerms ...string) []string {
	sense, ok := s.selectSense(term, contextTerms)
	if !ok {
		return nil
	}
	return sense.Synonyms
}

// GetBroaderTerms does a breadth-first hypernym walk up to depth levels and
// returns every term visited (excluding the starting term itself).
func (s *Service) GetBroaderTerms(term string, depth int) []string {
	return s.bfs(term, depth, func(syn Synset) []string { return syn.Broader })
}

// GetNarrowerTerms does a breadth-first hyponym walk up to depth levels.
func (s *Service) GetNarrowerTerms(term string, depth int) []string {
	return s.bfs(term, depth, func(syn Synset) []string { return syn.Narrower })
}

func (s *Service) bfs(term string, depth int, next func(Synset) []string) []string {
	if depth <= 0 {
		return nil
	}
	visited := map[string]bool{normalize(term): true}
	var out []string
	frontier := []string{term}

	for d := 0; d < depth && len(frontier) > 0; d++ {
		var nextFrontier []string
		for _, t := range frontier {
			sense, ok := s.selectSense(t, nil)
			if !ok {
				continue
			}
			for _, related := range next(sense) {
				norm := normalize(related)
				if visited[norm] {
					continue
				}
				visited[norm] = true
				out = append(out, related)
				nextFrontier = append(nextFrontier, related)
			}
		}
		frontier = nextFrontier
	}
	return out
}

// GetAllRelatedTerms fans out synonym/broader/narrower lookups concurrently
// and aggregates the results, using the cache keyed on the normalized term.
func (s *Service) GetAllRelatedTerms(ctx context.Context, term string) (RelatedTerms, error) {
	key := normalize(term)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	var result RelatedTerms
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		result.Synonyms = s.GetSynonyms(term)
		return nil
	})
	g.Go(func() error {
		result.Broader = s.GetBroaderTerms(term, DefaultBFSDepth)
		return nil
	})
	g.Go(func() error {
		result.Narrower = s.GetNarrowerTerms(term, DefaultBFSDepth)
		return nil
	})

	if err := g.Wait(); err != nil {
		return RelatedTerms{}, err
	}

	s.cache.Add(key, result)
	return result, nil
}

// FindHierarchyPath does a bidirectional BFS between a and b bounded to
// maxDepth hops each direction, returning the chain of terms from a to b
// (inclusive), or nil if no path was found within the bound.
func (s *Service) FindHierarchyPath(a, b string, maxDepth int) []string {
	if normalize(a) == normalize(b) {
		return []string{a}
	}

	forward := map[string][]string{normalize(a): {a}}
	backward := map[string][]string{normalize(b): {b}}
	frontierF := []string{a}
	frontierB := []string{b}

	for depth := 0; depth < maxDepth; depth++ {
		if path := s.expandFrontier(&frontierF, forward, backward, false); path != nil {
			return path
		}
		if path := s.expandFrontier(&frontierB, backward, forward, true); path != nil {
			return path
		}
		if len(frontierF) == 0 && len(frontierB) == 0 {
			break
		}
	}
	return nil
}

func (s *Service) expandFrontier(frontier *[]string, own, other map[string][]string, reversed bool) []string {
	var next []string
	for _, t := range *frontier {
		sense, ok := s.selectSense(t, nil)
		if !ok {
			continue
		}
		neighbors := append(append([]string{}, sense.Broader...), sense.Narrower...)
		for _, n := range neighbors {
			norm := normalize(n)
			if _, seen := own[norm]; seen {
				continue
			}
			path := append(append([]string{}, own[normalize(t)]...), n)
			own[norm] = path
			next = append(next, n)

			if otherPath, meet := other[norm]; meet {
				if reversed {
					return joinPaths(reverse(otherPath), path[1:])
				}
				return joinPaths(path, reverse(otherPath)[1:])
			}
		}
	}
	*frontier = next
	return nil
}

func joinPaths(a, b []string) []string {
	return append(append([]string{}, a...), b...)
}

func reverse(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

// PrewarmOptions configures PrewarmCache's concurrency bound.
type PrewarmOptions struct {
	Concurrency int
}

// PrewarmCache deduplicates terms (normalized), fetches all related forms
// concurrently bounded by opts.Concurrency, and seeds the cache. Cancelling
// ctx stops in-flight lookups and returns the context error.
func (s *Service) PrewarmCache(ctx context.Context, terms []string, opts PrewarmOptions) error {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	seen := make(map[string]bool, len(terms))
	unique := make([]string, 0, len(terms))
	for _, t := range terms {
		norm := normalize(t)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		unique = append(unique, t)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, term := range unique {
		term := term
		g.Go(func() error {
			_, err := s.GetAllRelatedTerms(gctx, term)
			return err
		})
	}

	return g.Wait()
}
