package classify

import (
	"regexp"
	"strings"
)

// ExtractedMetadata is the common output shape for both metadata extractors.
// Each field carries its own confidence so the caller can decide whether to
// persist it (the usual threshold is 0.6).
type ExtractedMetadata struct {
	Title          string
	TitleConf      float64
	Authors        []string
	AuthorsConf    float64
	Year           string
	YearConf       float64
	Publisher      string
	PublisherConf  float64
	Abstract       string
	AbstractConf   float64
	Keywords       []string
	Venue          string
	VenueConf      float64
	DOI            string
	ArxivID        string
}

var (
	paperVenuePattern    = regexp.MustCompile(`(?i)(ieee|acm)\s+[a-z ]+(journal|transactions)|proceedings of [^\n]{3,80}|arxiv preprint`)
	paperKeywordsPattern = regexp.MustCompile(`(?im)^\s*keywords?\s*[:\-]\s*(.+)$`)
	paperAuthorLine      = regexp.MustCompile(`(?m)^([A-Z][a-zA-Z.'-]+(\s+[A-Z][a-zA-Z.'-]+){1,3})(,\s*([A-Z][a-zA-Z.'-]+(\s+[A-Z][a-zA-Z.'-]+){1,3}))*\s*$`)
)

// PaperMetadataExtractor targets LaTeX-generated research papers.
type PaperMetadataExtractor struct{}

// NewPaperMetadataExtractor constructs a stateless extractor.
func NewPaperMetadataExtractor() *PaperMetadataExtractor {
	return &PaperMetadataExtractor{}
}

// Extract pulls title/authors/abstract/venue/doi/arxivId from the front
// matter of a paper-classified document.
func (e *PaperMetadataExtractor) Extract(frontMatterText string) ExtractedMetadata {
	md := ExtractedMetadata{}

	if id := arxivIDPattern.FindString(frontMatterText); id != "" {
		md.ArxivID = id
	}
	if doi := doiPattern.FindString(frontMatterText); doi != "" {
		md.DOI = doi
	}

	lines := splitNonEmptyLines(frontMatterText)
	abstractIdx := indexOfMatch(lines, abstractHeaderPattern)

	titleLines := lines
	if abstractIdx >= 0 {
		titleLines = lines[:abstractIdx]
	}
	title, titleConf := firstNonSkipLine(titleLines)
	md.Title = title
	md.TitleConf = titleConf

	if authorLine := findAuthorLine(titleLines); authorLine != "" {
		md.Authors = splitAuthorNames(authorLine)
		md.AuthorsConf = 0.7
	}

	if abstractIdx >= 0 {
		nextHeading := len(lines)
		for i := abstractIdx + 1; i < len(lines); i++ {
			if academicHeadingsPattern.MatchString(lines[i]) || paperKeywordsPattern.MatchString(lines[i]) {
				nextHeading = i
				break
			}
		}
		if abstractIdx+1 < nextHeading {
			md.Abstract = strings.Join(lines[abstractIdx+1:nextHeading], " ")
			md.AbstractConf = 0.8
		}
	}

	if m := paperKeywordsPattern.FindStringSubmatch(frontMatterText); len(m) > 1 {
		for _, k := range strings.Split(m[1], ",") {
			if k = strings.TrimSpace(k); k != "" {
				md.Keywords = append(md.Keywords, k)
			}
		}
	}

	if venue := paperVenuePattern.FindString(frontMatterText); venue != "" {
		md.Venue = strings.TrimSpace(venue)
		md.VenueConf = 0.7
	}

	return md
}

func indexOfMatch(lines []string, re *regexp.Regexp) int {
	for i, l := range lines {
		if re.MatchString(l) {
			return i
		}
	}
	return -1
}

func firstNonSkipLine(lines []string) (string, float64) {
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if academicEmailPattern.MatchString(l) || paperAuthorLine.MatchString(l) {
			break
		}
		return l, 0.6
	}
	return "", 0
}

func findAuthorLine(lines []string) string {
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if paperAuthorLine.MatchString(l) && !academicHeadingsPattern.MatchString(l) {
			return l
		}
	}
	return ""
}

func splitAuthorNames(line string) []string {
	var out []string
	for _, name := range strings.Split(line, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

var (
	copyrightAuthorPattern  = regexp.MustCompile(`(?i)copyright\s+(©|\(c\))?\s*\d{4}\s+by\s+([A-Z][a-zA-Z.' -]{2,60})`)
	byAuthorPattern         = regexp.MustCompile(`(?im)^\s*by\s+([A-Z][a-zA-Z.' -]{2,60})\s*$`)
	authorLabelPattern      = regexp.MustCompile(`(?im)^\s*author\s*:\s*([A-Z][a-zA-Z.' -]{2,60})\s*$`)
	copyrightYearPattern    = regexp.MustCompile(`(?i)copyright\s+(©|\(c\))?\s*(\d{4})`)
	publishedYearPattern    = regexp.MustCompile(`(?i)published\s+(\d{4})`)
	publishedByPattern      = regexp.MustCompile(`(?im)^\s*published by\s+([A-Z][a-zA-Z.&,' -]{2,60})\s*$`)
	titleLabelPattern       = regexp.MustCompile(`(?im)^\s*title\s*:\s*(.+)$`)
	authorBoundaryTrimmer   = regexp.MustCompile(`(?i)\s*(copyright|published|isbn|ph\.?d\.?|m\.?d\.?)\b.*$`)
	knownPublishers         = []string{"O'Reilly", "Addison-Wesley", "Prentice Hall", "Manning", "Packt", "Springer", "Wiley", "MIT Press", "No Starch Press", "Apress"}
)

// ContentMetadataExtractor targets books: ordered regex families over
// front-matter chunks (or, absent that flag, pages 1-10, always skipping
// table-of-contents and reference chunks).
type ContentMetadataExtractor struct{}

// NewContentMetadataExtractor constructs a stateless extractor.
func NewContentMetadataExtractor() *ContentMetadataExtractor {
	return &ContentMetadataExtractor{}
}

// CandidateChunk is a chunk eligible for book metadata extraction.
type CandidateChunk struct {
	Text          string
	PageNumber    int
	IsFrontMatter bool
	IsToC         bool
	IsReference   bool
}

// Extract pulls author/year/publisher/title from the eligible chunks of a
// book-classified document.
func (e *ContentMetadataExtractor) Extract(chunks []CandidateChunk) ExtractedMetadata {
	md := ExtractedMetadata{}

	eligible := eligibleChunks(chunks)

	for _, c := range eligible {
		if md.Authors == nil {
			if m := copyrightAuthorPattern.FindStringSubmatch(c.Text); len(m) > 2 {
				md.Authors = []string{cleanAuthorName(m[2])}
				md.AuthorsConf = 0.7
			} else if m := byAuthorPattern.FindStringSubmatch(c.Text); len(m) > 1 {
				md.Authors = []string{cleanAuthorName(m[1])}
				md.AuthorsConf = 0.6
			} else if m := authorLabelPattern.FindStringSubmatch(c.Text); len(m) > 1 {
				md.Authors = []string{cleanAuthorName(m[1])}
				md.AuthorsConf = 0.75
			}
		}
		if md.Year == "" {
			if m := copyrightYearPattern.FindStringSubmatch(c.Text); len(m) > 2 {
				md.Year = m[2]
				md.YearConf = 0.7
			} else if m := publishedYearPattern.FindStringSubmatch(c.Text); len(m) > 1 {
				md.Year = m[1]
				md.YearConf = 0.6
			}
		}
		if md.Publisher == "" {
			if m := publishedByPattern.FindStringSubmatch(c.Text); len(m) > 1 {
				md.Publisher = strings.TrimSpace(m[1])
				md.PublisherConf = 0.7
			} else if p := matchKnownPublisher(c.Text); p != "" {
				md.Publisher = p
				md.PublisherConf = 0.6
			}
		}
		if md.Title == "" {
			if m := titleLabelPattern.FindStringSubmatch(c.Text); len(m) > 1 {
				md.Title = strings.TrimSpace(m[1])
				md.TitleConf = 0.7
			} else if m := byAuthorPattern.FindStringSubmatch(c.Text); len(m) > 0 {
				if t := lineBefore(c.Text, m[0]); t != "" {
					md.Title = t
					md.TitleConf = 0.5
				}
			}
		}
	}

	return md
}

func eligibleChunks(chunks []CandidateChunk) []CandidateChunk {
	var frontMatter []CandidateChunk
	for _, c := range chunks {
		if c.IsToC || c.IsReference {
			continue
		}
		if c.IsFrontMatter {
			frontMatter = append(frontMatter, c)
		}
	}
	if len(frontMatter) > 0 {
		return frontMatter
	}
	var firstTen []CandidateChunk
	for _, c := range chunks {
		if c.IsToC || c.IsReference {
			continue
		}
		if c.PageNumber >= 1 && c.PageNumber <= 10 {
			firstTen = append(firstTen, c)
		}
	}
	return firstTen
}

func cleanAuthorName(name string) string {
	return strings.TrimRight(strings.TrimSpace(authorBoundaryTrimmer.ReplaceAllString(strings.TrimSpace(name), "")), " .,;")
}

func matchKnownPublisher(text string) string {
	for _, p := range knownPublishers {
		if strings.Contains(text, p) {
			return p
		}
	}
	return ""
}

func lineBefore(text, marker string) string {
	idx := strings.Index(text, marker)
	if idx <= 0 {
		return ""
	}
	before := text[:idx]
	lines := splitNonEmptyLines(before)
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
