package classify

import (
	"regexp"
	"strings"
)

// Page is an ordered page of extracted document text.
type Page struct {
	Text       string
	PageNumber int
}

// ReferencesResult is the outcome of scanning a document for the start of
// its bibliography.
type ReferencesResult struct {
	Found        bool
	StartsAtPage int
	HeaderFound  bool
	Confidence   float64
}

var (
	referencesHeaderPattern = regexp.MustCompile(`(?im)^(\d+\.?\s*)?(references|bibliography|works cited|literature cited|cited literature)\s*$`)

	citationBracketPattern  = regexp.MustCompile(`\[\d+\]\s*[A-Z]`)
	citationNumberedPattern = regexp.MustCompile(`(?m)^\s*\d{1,3}\.\s+[A-Z][a-zA-Z]*,\s*[A-Z]\.`)
	citationSurnamePattern  = regexp.MustCompile(`[A-Z][a-z]+,\s*[A-Z]\.(\s*[A-Z]\.)?`)
	citationEtAlPattern     = regexp.MustCompile(`[A-Z][a-z]+\s+et al\.?\s*\(\d{4}\)`)
)

// ReferencesDetector locates the start of a document's bibliography by
// scanning for a conventional section header and, failing that, by the
// density of citation-entry-shaped lines.
type ReferencesDetector struct{}

// NewReferencesDetector constructs a stateless detector.
func NewReferencesDetector() *ReferencesDetector {
	return &ReferencesDetector{}
}

// DetectReferencesStart operates on an ordered list of page-documents, only
// searching the last 40% of pages for a header match.
func (d *ReferencesDetector) DetectReferencesStart(pages []Page) ReferencesResult {
	if len(pages) == 0 {
		return ReferencesResult{}
	}

	searchFrom := int(float64(len(pages)) * 0.6)
	if searchFrom < 0 {
		searchFrom = 0
	}

	for i := searchFrom; i < len(pages); i++ {
		if !hasReferencesHeaderLine(pages[i].Text) {
			continue
		}
		strong := citationEntryCount(pages[i].Text) > 0
		if !strong && i+1 < len(pages) {
			strong = citationEntryCount(pages[i+1].Text) > 0
		}
		if strong {
			return ReferencesResult{Found: true, StartsAtPage: pages[i].PageNumber, HeaderFound: true, Confidence: 0.95}
		}
		return ReferencesResult{Found: true, StartsAtPage: pages[i].PageNumber, HeaderFound: true, Confidence: 0.6}
	}

	return d.densityFallback(pages)
}

// densityFallback scans pages back-to-front, seeding on a citation density
// above 0.3 and then walking backward while density stays above 0.2.
func (d *ReferencesDetector) densityFallback(pages []Page) ReferencesResult {
	seedIdx := -1
	for i := len(pages) - 1; i >= 0; i-- {
		if citationDensity(pages[i].Text) > 0.3 {
			seedIdx = i
			break
		}
	}
	if seedIdx == -1 {
		return ReferencesResult{}
	}

	start := seedIdx
	for i := seedIdx - 1; i >= 0; i-- {
		if citationDensity(pages[i].Text) > 0.2 {
			start = i
			continue
		}
		break
	}

	return ReferencesResult{
		Found:        true,
		StartsAtPage: pages[start].PageNumber,
		HeaderFound:  false,
		Confidence:   0.7,
	}
}

func hasReferencesHeaderLine(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if referencesHeaderPattern.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

func citationEntryCount(text string) int {
	return len(citationBracketPattern.FindAllString(text, -1)) +
		len(citationNumberedPattern.FindAllString(text, -1)) +
		len(citationSurnamePattern.FindAllString(text, -1)) +
		len(citationEtAlPattern.FindAllString(text, -1))
}

func citationDensity(text string) float64 {
	lines := splitNonEmptyLines(text)
	if len(lines) == 0 {
		return 0
	}
	matches := 0
	for _, l := range lines {
		if citationBracketPattern.MatchString(l) || citationNumberedPattern.MatchString(l) ||
			citationSurnamePattern.MatchString(l) || citationEtAlPattern.MatchString(l) {
			matches++
		}
	}
	return float64(matches) / float64(len(lines))
}

// TagReferenceChunks marks every chunk on or after startsAtPage as a
// reference chunk, given a reliable detection.
func TagReferenceChunks(pages []Page, startsAtPage int) map[int]bool {
	tags := make(map[int]bool, len(pages))
	for _, p := range pages {
		tags[p.PageNumber] = p.PageNumber >= startsAtPage
	}
	return tags
}
