// Package ingest assembles raw document text into the container.IndexedDocument
// shape the metadata store, vector stores, and lexical indexes expect,
// running the ingestion classification pipeline (MathHandler,
// MetaContentDetector, ReferencesDetector, PaperDetector, metadata
// extractors) the spec's data flow names. Raw document acquisition
// (PDF/EPUB parsing) and concept extraction are out of scope here — both
// are external collaborators, injected as the DocumentLoader and
// ConceptExtractor interfaces below.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/m2ux/concept-rag-sub008/internal/chunk"
	"github.com/m2ux/concept-rag-sub008/internal/classify"
	"github.com/m2ux/concept-rag-sub008/internal/container"
	"github.com/m2ux/concept-rag-sub008/internal/embed"
	"github.com/m2ux/concept-rag-sub008/internal/ids"
	"github.com/m2ux/concept-rag-sub008/internal/mathtext"
	"github.com/m2ux/concept-rag-sub008/internal/store"
)

// RawPage is one page of text already extracted from a source document.
type RawPage struct {
	Number int
	Text   string
}

// RawDocument is a document's extracted pages plus the little file-level
// metadata a loader can cheaply provide (filename, PDF producer string).
type RawDocument struct {
	Source      string
	Pages       []RawPage
	PDFProducer string
}

// DocumentLoader acquires raw document text from outside this repo's
// domain (PDF/EPUB/plain-text extraction). The concrete implementation
// this repo ships, FileLoader, only reads plain text and markdown files;
// anything richer is a real upstream collaborator swapped in by the
// caller of Pipeline.Run.
type DocumentLoader interface {
	Load(ctx context.Context, root string) ([]RawDocument, error)
}

// ConceptExtractor assigns concept ids to a catalog entry's text. It is an
// external collaborator (typically LLM-based) per the spec's Non-goals; a
// Pipeline with no ConceptExtractor set leaves ConceptIDs empty rather than
// guessing.
type ConceptExtractor interface {
	Extract(ctx context.Context, sourceText string) ([]uint32, error)
}

// FileLoader walks a directory for plain-text and markdown files, treating
// a form-feed (\f) as a page break the way extracted-PDF text commonly
// encodes one, and everything else as a single unpaginated page.
type FileLoader struct {
	Extensions []string
}

// NewFileLoader returns a FileLoader matching .txt and .md files.
func NewFileLoader() *FileLoader {
	return &FileLoader{Extensions: []string{".txt", ".md"}}
}

func (l *FileLoader) Load(ctx context.Context, root string) ([]RawDocument, error) {
	var docs []RawDocument
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		if !l.matches(path) {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("ingest: read %s: %w", path, err)
		}
		docs = append(docs, RawDocument{Source: path, Pages: splitPages(string(raw))})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (l *FileLoader) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range l.Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func splitPages(text string) []RawPage {
	parts := strings.Split(text, "\f")
	pages := make([]RawPage, 0, len(parts))
	for i, p := range parts {
		pages = append(pages, RawPage{Number: i + 1, Text: p})
	}
	return pages
}

// Pipeline turns loaded RawDocuments into container.IndexedDocuments,
// running the classification pipeline the spec's ingest data flow
// describes: MathHandler normalizes math text first, then
// MetaContentDetector/ReferencesDetector/PaperDetector classify each
// chunk and the document as a whole, then the metadata extractors pull
// title/author/year/publisher from the front matter.
type Pipeline struct {
	Embedder  embed.Embedder
	Concepts  ConceptExtractor
	Chunker   chunk.Chunker
	paper     *classify.PaperDetector
	meta      *classify.MetaContentDetector
	refs      *classify.ReferencesDetector
	paperMD   *classify.PaperMetadataExtractor
	contentMD *classify.ContentMetadataExtractor
}

// NewPipeline builds a Pipeline with the default classifiers and a
// section/paragraph-bounded chunker.
func NewPipeline(embedder embed.Embedder, concepts ConceptExtractor) *Pipeline {
	return &Pipeline{
		Embedder:  embedder,
		Concepts:  concepts,
		Chunker:   chunk.NewPageChunker(),
		paper:     classify.NewPaperDetector(),
		meta:      classify.NewMetaContentDetector(),
		refs:      classify.NewReferencesDetector(),
		paperMD:   classify.NewPaperMetadataExtractor(),
		contentMD: classify.NewContentMetadataExtractor(),
	}
}

// Build classifies and chunks a single RawDocument, embeds its text and
// chunks, and returns it ready for container.Ingest.
func (p *Pipeline) Build(ctx context.Context, doc RawDocument) (container.IndexedDocument, error) {
	cleanedPages := make([]chunk.PageInput, len(doc.Pages))
	var allText strings.Builder
	for i, pg := range doc.Pages {
		cleaned := mathtext.Clean(pg.Text)
		cleanedPages[i] = chunk.PageInput{Number: pg.Number, Text: cleaned}
		allText.WriteString(cleaned)
		allText.WriteString("\n")
	}

	chunks, err := p.Chunker.Chunk(ctx, &chunk.DocumentInput{Source: doc.Source, Pages: cleanedPages})
	if err != nil {
		return container.IndexedDocument{}, fmt.Errorf("ingest: chunk %s: %w", doc.Source, err)
	}

	firstPageText := ""
	if len(cleanedPages) > 0 {
		firstPageText = cleanedPages[0].Text
	}
	kind := p.paper.Detect(classify.PaperDetectionInput{
		Filename:       filepath.Base(doc.Source),
		FirstPagesText: firstPageText,
		AllText:        allText.String(),
		PageCount:      len(cleanedPages),
		PDFProducer:    doc.PDFProducer,
	})

	refPages := make([]classify.Page, len(cleanedPages))
	for i, pg := range cleanedPages {
		refPages[i] = classify.Page{Text: pg.Text, PageNumber: pg.Number}
	}
	refResult := p.refs.DetectReferencesStart(refPages)
	refTags := classify.TagReferenceChunks(refPages, refResult.StartsAtPage)

	catalogID := ids.Hash(doc.Source)
	for _, c := range chunks {
		c.CatalogID = catalogID
		c.ID = ids.Hash(fmt.Sprintf("%s#%d#%s", doc.Source, c.PageNumber, c.Loc+c.Text))

		analysis := mathtext.Analyze(c.Text)
		c.HasMath = analysis.HasMath
		c.HasExtractionIssues = analysis.HasExtractionIssues

		mc := p.meta.Detect(classify.ChunkInput{Text: c.Text, PageNumber: int(c.PageNumber), TotalPages: len(cleanedPages)})
		c.IsToC = mc.IsToC
		c.IsFrontMatter = mc.IsFrontMatter
		c.IsBackMatter = mc.IsBackMatter
		c.IsMetaContent = mc.IsMetaContent

		if refResult.Found {
			c.IsReference = refTags[int(c.PageNumber)]
		}
		c.ContainsCitations = c.IsReference
	}

	md := p.extractMetadata(kind, firstPageText, chunks)

	for _, c := range chunks {
		if p.Embedder != nil {
			vec, err := p.Embedder.Embed(ctx, mathtext.Searchable(c.Text))
			if err != nil {
				return container.IndexedDocument{}, fmt.Errorf("ingest: embed chunk of %s: %w", doc.Source, err)
			}
			c.Embedding = vec
		}
	}

	entry := &store.CatalogEntry{
		ID:     catalogID,
		Title:  md.Title,
		Source: doc.Source,
		Hash:   fmt.Sprintf("%08x", ids.Hash(allText.String())),
		Text:   allText.String(),
	}
	if md.Author != "" {
		author := md.Author
		entry.Author = &author
	}
	if md.Year != "" {
		year := md.Year
		entry.Year = &year
	}
	if md.Publisher != "" {
		publisher := md.Publisher
		entry.Publisher = &publisher
	}
	if entry.Title == "" {
		entry.Title = filepath.Base(doc.Source)
	}

	if p.Embedder != nil {
		vec, err := p.Embedder.Embed(ctx, mathtext.Searchable(entry.Text))
		if err != nil {
			return container.IndexedDocument{}, fmt.Errorf("ingest: embed catalog entry %s: %w", doc.Source, err)
		}
		entry.Embedding = vec
	}
	if p.Concepts != nil {
		conceptIDs, err := p.Concepts.Extract(ctx, entry.Text)
		if err != nil {
			return container.IndexedDocument{}, fmt.Errorf("ingest: extract concepts for %s: %w", doc.Source, err)
		}
		entry.ConceptIDs = conceptIDs
		for _, c := range chunks {
			c.ConceptIDs = conceptIDs
			c.ConceptDensity = float64(len(conceptIDs))
		}
	}

	return container.IndexedDocument{Entry: entry, Chunks: chunks}, nil
}

// extractMetadata picks the paper or content extractor by document kind,
// falling back to the content extractor's best-effort candidates when the
// preferred one yields nothing usable.
func (p *Pipeline) extractMetadata(kind classify.PaperDetectionResult, frontMatterText string, chunks []*store.Chunk) metadataPick {
	if kind.Kind == classify.KindPaper || kind.Kind == classify.KindArticle {
		md := p.paperMD.Extract(frontMatterText)
		if md.TitleConf >= 0.6 {
			return pickFrom(md)
		}
	}

	candidates := make([]classify.CandidateChunk, 0, len(chunks))
	for _, c := range chunks {
		candidates = append(candidates, classify.CandidateChunk{
			Text:          c.Text,
			PageNumber:    int(c.PageNumber),
			IsFrontMatter: c.IsFrontMatter,
			IsToC:         c.IsToC,
			IsReference:   c.IsReference,
		})
	}
	md := p.contentMD.Extract(candidates)
	return pickFrom(md)
}

type metadataPick struct {
	Title     string
	Author    string
	Year      string
	Publisher string
}

func pickFrom(md classify.ExtractedMetadata) metadataPick {
	pick := metadataPick{}
	if md.TitleConf >= 0.6 {
		pick.Title = md.Title
	}
	if md.AuthorsConf >= 0.6 && len(md.Authors) > 0 {
		pick.Author = strings.Join(md.Authors, ", ")
	}
	if md.YearConf >= 0.6 {
		pick.Year = md.Year
	}
	if md.PublisherConf >= 0.6 {
		pick.Publisher = md.Publisher
	}
	return pick
}
