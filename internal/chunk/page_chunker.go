package chunk

import (
	"context"
	"regexp"
	"strings"

	"github.com/m2ux/concept-rag-sub008/internal/store"
)

// PageChunkerOptions configures PageChunker behavior.
type PageChunkerOptions struct {
	MaxChunkTokens int // Maximum tokens per chunk (default: DefaultMaxChunkTokens)
	OverlapTokens  int // Defaulted to DefaultOverlapTokens; chunks produced by splitting do not overlap
}

// PageChunker splits extracted document pages into section- and
// paragraph-bounded chunks. It recognizes markdown-style headers (for
// sources that preserve them through extraction) and falls back to
// heading heuristics common in book/paper text: numbered sections and
// short all-caps lines.
type PageChunker struct {
	options PageChunkerOptions
}

var (
	mdHeaderPattern       = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	numberedHeaderPattern = regexp.MustCompile(`(?m)^\s*(\d+(\.\d+){0,3})\s+([A-Z][^\n]{2,80})\s*$`)
	allCapsHeaderPattern  = regexp.MustCompile(`(?m)^\s*([A-Z][A-Z0-9 ,:'-]{3,80})\s*$`)
)

// NewPageChunker creates a PageChunker with default options.
func NewPageChunker() *PageChunker {
	return NewPageChunkerWithOptions(PageChunkerOptions{})
}

// NewPageChunkerWithOptions creates a PageChunker with custom options.
func NewPageChunkerWithOptions(opts PageChunkerOptions) *PageChunker {
	if opts.MaxChunkTokens == 0 {
		opts.MaxChunkTokens = DefaultMaxChunkTokens
	}
	if opts.OverlapTokens == 0 {
		opts.OverlapTokens = DefaultOverlapTokens
	}
	return &PageChunker{options: opts}
}

// Chunk splits a document's pages into chunks, one section at a time
// within each page.
func (c *PageChunker) Chunk(ctx context.Context, doc *DocumentInput) ([]*store.Chunk, error) {
	var chunks []*store.Chunk

	for _, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(page.Text) == "" {
			continue
		}

		sections := c.parseSections(page.Text)
		if len(sections) == 0 {
			chunks = append(chunks, c.chunkByParagraphs(doc.Source, page.Number, "", page.Text)...)
			continue
		}
		for _, sec := range sections {
			chunks = append(chunks, c.createSectionChunks(doc.Source, page.Number, sec)...)
		}
	}

	return chunks, nil
}

// section is a header-delimited span of page text.
type section struct {
	headerPath string
	content    string
}

// parseSections splits page text on recognized headers, building a
// header-path trail the same way nested markdown headers would.
func (c *PageChunker) parseSections(text string) []*section {
	lines := strings.Split(text, "\n")
	var sections []*section
	var headerStack []string

	var current *section
	var body strings.Builder

	flush := func() {
		if current != nil {
			current.content = body.String()
			sections = append(sections, current)
			body.Reset()
		}
	}

	for _, line := range lines {
		if title, level, ok := matchHeader(line); ok {
			flush()
			if level > len(headerStack) {
				headerStack = append(headerStack, title)
			} else {
				headerStack = append(headerStack[:level-1], title)
			}
			current = &section{headerPath: strings.Join(headerStack, " > ")}
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return sections
}

// matchHeader recognizes a line as a section header and returns its title
// and nesting level (1 = top level). It tries markdown headers first, then
// numbered sections ("2.1 Related Work"), then short all-caps lines
// ("INTRODUCTION"), the three heading shapes most book/paper extraction
// pipelines preserve.
func matchHeader(line string) (title string, level int, ok bool) {
	if m := mdHeaderPattern.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[2]), len(m[1]), true
	}
	if m := numberedHeaderPattern.FindStringSubmatch(line); m != nil {
		depth := strings.Count(m[1], ".") + 1
		return strings.TrimSpace(m[3]), depth, true
	}
	if m := allCapsHeaderPattern.FindStringSubmatch(line); m != nil && len(strings.Fields(m[1])) <= 8 {
		return strings.TrimSpace(m[1]), 1, true
	}
	return "", 0, false
}

// createSectionChunks turns one section into one or more chunks, splitting
// on a token budget when the section is too large for a single chunk.
func (c *PageChunker) createSectionChunks(source string, pageNumber int, sec *section) []*store.Chunk {
	content := strings.TrimSpace(sec.content)
	if content == "" {
		return nil
	}

	if estimateTokens(content) <= c.options.MaxChunkTokens {
		return []*store.Chunk{c.newChunk(source, pageNumber, sec.headerPath, content)}
	}

	var chunks []*store.Chunk
	var current strings.Builder
	for _, para := range splitParagraphs(content) {
		paraTokens := estimateTokens(para)
		currentTokens := estimateTokens(current.String())
		if current.Len() > 0 && currentTokens+paraTokens > c.options.MaxChunkTokens {
			chunks = append(chunks, c.newChunk(source, pageNumber, sec.headerPath, strings.TrimSpace(current.String())))
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, c.newChunk(source, pageNumber, sec.headerPath, strings.TrimSpace(current.String())))
	}
	return chunks
}

// chunkByParagraphs handles page text with no recognizable headers at all.
func (c *PageChunker) chunkByParagraphs(source string, pageNumber int, headerPath, text string) []*store.Chunk {
	return c.createSectionChunks(source, pageNumber, &section{headerPath: headerPath, content: text})
}

func splitParagraphs(content string) []string {
	parts := strings.Split(content, "\n\n")
	var paragraphs []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

func (c *PageChunker) newChunk(source string, pageNumber int, headerPath, text string) *store.Chunk {
	return &store.Chunk{
		Text:       text,
		PageNumber: uint32(pageNumber),
		Loc:        headerPath,
	}
}

// estimateTokens estimates the number of tokens in content.
func estimateTokens(content string) int {
	return len(content) / TokensPerChar
}
