package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteStore implements MetadataStore over a single SQLite database file.
// It is the columnar row store backing every Repository: Category, Concept,
// CatalogEntry, Chunk, and Visual tables, plus a generic key-value state
// table for runtime/checkpoint state.
type SQLiteStore struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS categories (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	parent_id INTEGER,
	aliases TEXT NOT NULL DEFAULT '[]',
	related_category_ids TEXT NOT NULL DEFAULT '[]',
	document_count INTEGER NOT NULL DEFAULT 0,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	concept_count INTEGER NOT NULL DEFAULT 0,
	embedding BLOB
);

CREATE TABLE IF NOT EXISTS concepts (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	type TEXT NOT NULL,
	catalog_ids TEXT NOT NULL DEFAULT '[]',
	related_concepts TEXT NOT NULL DEFAULT '[]',
	synonyms TEXT NOT NULL DEFAULT '[]',
	broader TEXT NOT NULL DEFAULT '[]',
	narrower TEXT NOT NULL DEFAULT '[]',
	weight REAL NOT NULL DEFAULT 0,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	enrichment_source TEXT NOT NULL DEFAULT 'corpus',
	embedding BLOB
);

CREATE TABLE IF NOT EXISTS catalog_entries (
	id INTEGER PRIMARY KEY,
	title TEXT NOT NULL,
	source TEXT NOT NULL UNIQUE,
	hash TEXT NOT NULL,
	origin_hash TEXT,
	text TEXT NOT NULL DEFAULT '',
	embedding BLOB,
	concept_ids TEXT NOT NULL DEFAULT '[]',
	category_ids TEXT NOT NULL DEFAULT '[]',
	filename_tags TEXT NOT NULL DEFAULT '[]',
	author TEXT,
	year TEXT,
	publisher TEXT,
	isbn TEXT
);
CREATE INDEX IF NOT EXISTS idx_catalog_source ON catalog_entries(source);

CREATE TABLE IF NOT EXISTS chunks (
	id INTEGER PRIMARY KEY,
	catalog_id INTEGER NOT NULL,
	text TEXT NOT NULL,
	page_number INTEGER NOT NULL DEFAULT 0,
	loc TEXT NOT NULL DEFAULT '',
	embedding BLOB,
	concept_ids TEXT NOT NULL DEFAULT '[]',
	category_ids TEXT NOT NULL DEFAULT '[]',
	concept_density REAL NOT NULL DEFAULT 0,
	is_toc INTEGER NOT NULL DEFAULT 0,
	is_front_matter INTEGER NOT NULL DEFAULT 0,
	is_back_matter INTEGER NOT NULL DEFAULT 0,
	is_meta_content INTEGER NOT NULL DEFAULT 0,
	is_reference INTEGER NOT NULL DEFAULT 0,
	contains_citations INTEGER NOT NULL DEFAULT 0,
	has_math INTEGER NOT NULL DEFAULT 0,
	has_extraction_issues INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_catalog ON chunks(catalog_id);

CREATE TABLE IF NOT EXISTS visuals (
	id INTEGER PRIMARY KEY,
	catalog_id INTEGER NOT NULL,
	catalog_title TEXT NOT NULL DEFAULT '',
	visual_type TEXT NOT NULL,
	page_number INTEGER NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	concept_ids TEXT NOT NULL DEFAULT '[]',
	image_path TEXT NOT NULL DEFAULT '',
	embedding BLOB
);
CREATE INDEX IF NOT EXISTS idx_visuals_catalog ON visuals(catalog_id);
CREATE INDEX IF NOT EXISTS idx_visuals_type ON visuals(visual_type);

CREATE TABLE IF NOT EXISTS kv_state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// NewSQLiteStore opens (creating if necessary) the metadata database at
// path. An empty path opens an in-memory database, used by tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == "" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

func jsonEncode(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func jsonDecodeUint32s(s string) []uint32 {
	var out []uint32
	if s == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func jsonDecodeStrings(s string) []string {
	var out []string
	if s == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func encodeEmbedding(v []float32) []byte {
	if v == nil {
		return nil
	}
	b := make([]byte, 4*len(v))
	for i, f := range v {
		bits := math.Float32bits(f)
		b[i*4] = byte(bits)
		b[i*4+1] = byte(bits >> 8)
		b[i*4+2] = byte(bits >> 16)
		b[i*4+3] = byte(bits >> 24)
	}
	return b
}

func decodeEmbedding(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		bits := uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}

// --- Category ---

func (s *SQLiteStore) SaveCategory(ctx context.Context, c *Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var parentID any
	if c.ParentID != nil {
		parentID = *c.ParentID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, description, parent_id, aliases, related_category_ids, document_count, chunk_count, concept_count, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, description=excluded.description, parent_id=excluded.parent_id,
			aliases=excluded.aliases, related_category_ids=excluded.related_category_ids,
			document_count=excluded.document_count, chunk_count=excluded.chunk_count,
			concept_count=excluded.concept_count, embedding=excluded.embedding`,
		c.ID, c.Name, c.Description, parentID, jsonEncode(c.Aliases), jsonEncode(c.RelatedCategoryIDs),
		c.DocumentCount, c.ChunkCount, c.ConceptCount, encodeEmbedding(c.Embedding))
	if err != nil {
		return fmt.Errorf("save category %d: %w", c.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetCategory(ctx context.Context, id uint32) (*Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT id, name, description, parent_id, aliases, related_category_ids, document_count, chunk_count, concept_count, embedding FROM categories WHERE id = ?`, id)
	return scanCategory(row)
}

func (s *SQLiteStore) ListCategories(ctx context.Context) ([]*Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, parent_id, aliases, related_category_ids, document_count, chunk_count, concept_count, embedding FROM categories ORDER BY document_count DESC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []*Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateCategoryStats(ctx context.Context, id uint32, documentCount, chunkCount, conceptCount uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE categories SET document_count = ?, chunk_count = ?, concept_count = ? WHERE id = ?`,
		documentCount, chunkCount, conceptCount, id)
	if err != nil {
		return fmt.Errorf("update category stats %d: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*Category, error) {
	var c Category
	var parentID sql.NullInt64
	var aliases, related string
	var embedding []byte
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &parentID, &aliases, &related, &c.DocumentCount, &c.ChunkCount, &c.ConceptCount, &embedding); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}
	if parentID.Valid {
		p := uint32(parentID.Int64)
		c.ParentID = &p
	}
	c.Aliases = jsonDecodeStrings(aliases)
	c.RelatedCategoryIDs = jsonDecodeUint32s(related)
	c.Embedding = decodeEmbedding(embedding)
	return &c, nil
}

// --- Concept ---

func (s *SQLiteStore) SaveConcept(ctx context.Context, c *Concept) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO concepts (id, name, type, catalog_ids, related_concepts, synonyms, broader, narrower, weight, chunk_count, enrichment_source, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, type=excluded.type, catalog_ids=excluded.catalog_ids,
			related_concepts=excluded.related_concepts, synonyms=excluded.synonyms,
			broader=excluded.broader, narrower=excluded.narrower, weight=excluded.weight,
			chunk_count=excluded.chunk_count, enrichment_source=excluded.enrichment_source, embedding=excluded.embedding`,
		c.ID, c.Name, string(c.Type), jsonEncode(c.CatalogIDs), jsonEncode(c.RelatedConcepts),
		jsonEncode(c.Synonyms), jsonEncode(c.Broader), jsonEncode(c.Narrower), c.Weight, c.ChunkCount,
		string(c.EnrichmentSource), encodeEmbedding(c.Embedding))
	if err != nil {
		return fmt.Errorf("save concept %d: %w", c.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetConcept(ctx context.Context, id uint32) (*Concept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT id, name, type, catalog_ids, related_concepts, synonyms, broader, narrower, weight, chunk_count, enrichment_source, embedding FROM concepts WHERE id = ?`, id)
	return scanConcept(row)
}

func (s *SQLiteStore) ListConcepts(ctx context.Context) ([]*Concept, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, type, catalog_ids, related_concepts, synonyms, broader, narrower, weight, chunk_count, enrichment_source, embedding FROM concepts`)
	if err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}
	defer rows.Close()

	var out []*Concept
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanConcept(row rowScanner) (*Concept, error) {
	var c Concept
	var typ, catalogIDs, related, synonyms, broader, narrower, source string
	var embedding []byte
	if err := row.Scan(&c.ID, &c.Name, &typ, &catalogIDs, &related, &synonyms, &broader, &narrower, &c.Weight, &c.ChunkCount, &source, &embedding); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan concept: %w", err)
	}
	c.Type = ConceptType(typ)
	c.CatalogIDs = jsonDecodeUint32s(catalogIDs)
	c.RelatedConcepts = jsonDecodeStrings(related)
	c.Synonyms = jsonDecodeStrings(synonyms)
	c.Broader = jsonDecodeStrings(broader)
	c.Narrower = jsonDecodeStrings(narrower)
	c.EnrichmentSource = EnrichmentSource(source)
	c.Embedding = decodeEmbedding(embedding)
	return &c, nil
}

// --- CatalogEntry ---

func (s *SQLiteStore) SaveCatalogEntry(ctx context.Context, e *CatalogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO catalog_entries (id, title, source, hash, origin_hash, text, embedding, concept_ids, category_ids, filename_tags, author, year, publisher, isbn)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, source=excluded.source, hash=excluded.hash, origin_hash=excluded.origin_hash,
			text=excluded.text, embedding=excluded.embedding, concept_ids=excluded.concept_ids,
			category_ids=excluded.category_ids, filename_tags=excluded.filename_tags,
			author=excluded.author, year=excluded.year, publisher=excluded.publisher, isbn=excluded.isbn`,
		e.ID, e.Title, e.Source, e.Hash, e.OriginHash, e.Text, encodeEmbedding(e.Embedding),
		jsonEncode(e.ConceptIDs), jsonEncode(e.CategoryIDs), jsonEncode(e.FilenameTags),
		e.Author, e.Year, e.Publisher, e.ISBN)
	if err != nil {
		return fmt.Errorf("save catalog entry %d: %w", e.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetCatalogEntry(ctx context.Context, id uint32) (*CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, catalogSelectCols+` WHERE id = ?`, id)
	return scanCatalogEntry(row)
}

func (s *SQLiteStore) GetCatalogEntryBySource(ctx context.Context, source string) (*CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, catalogSelectCols+` WHERE source = ?`, source)
	return scanCatalogEntry(row)
}

func (s *SQLiteStore) ListCatalogEntriesByCategory(ctx context.Context, categoryID uint32) ([]*CatalogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// category_ids is a JSON array; stripping its brackets and wrapping it in
	// commas lets the ",id," LIKE pattern below match the id as a bare integer
	// at any array position without a full JSON parse per row. json_each would be the alternative if query volume grows.
	needle := strconv.FormatUint(uint64(categoryID), 10)
	rows, err := s.db.QueryContext(ctx, catalogSelectCols+` WHERE (',' || replace(replace(category_ids, '[', ''), ']', '') || ',') LIKE ?`,
		"%,"+needle+",%")
	if err != nil {
		return nil, fmt.Errorf("list catalog entries by category %d: %w", categoryID, err)
	}
	defer rows.Close()

	var out []*CatalogEntry
	for rows.Next() {
		e, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteCatalogEntry(ctx context.Context, id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete catalog entry %d: %w", id, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE catalog_id = ?`, id); err != nil {
		return fmt.Errorf("delete chunks for catalog %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM visuals WHERE catalog_id = ?`, id); err != nil {
		return fmt.Errorf("delete visuals for catalog %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete catalog entry %d: %w", id, err)
	}
	return tx.Commit()
}

const catalogSelectCols = `SELECT id, title, source, hash, origin_hash, text, embedding, concept_ids, category_ids, filename_tags, author, year, publisher, isbn FROM catalog_entries`

func scanCatalogEntry(row rowScanner) (*CatalogEntry, error) {
	var e CatalogEntry
	var conceptIDs, categoryIDs, tags string
	var embedding []byte
	var originHash, author, year, publisher, isbn sql.NullString
	if err := row.Scan(&e.ID, &e.Title, &e.Source, &e.Hash, &originHash, &e.Text, &embedding, &conceptIDs, &categoryIDs, &tags, &author, &year, &publisher, &isbn); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan catalog entry: %w", err)
	}
	if originHash.Valid {
		e.OriginHash = &originHash.String
	}
	if author.Valid {
		e.Author = &author.String
	}
	if year.Valid {
		e.Year = &year.String
	}
	if publisher.Valid {
		e.Publisher = &publisher.String
	}
	if isbn.Valid {
		e.ISBN = &isbn.String
	}
	e.ConceptIDs = jsonDecodeUint32s(conceptIDs)
	e.CategoryIDs = jsonDecodeUint32s(categoryIDs)
	e.FilenameTags = jsonDecodeStrings(tags)
	e.Embedding = decodeEmbedding(embedding)
	return &e, nil
}

// --- Chunk ---

func (s *SQLiteStore) SaveChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save chunks: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, catalog_id, text, page_number, loc, embedding, concept_ids, category_ids, concept_density,
			is_toc, is_front_matter, is_back_matter, is_meta_content, is_reference, contains_citations, has_math, has_extraction_issues, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			catalog_id=excluded.catalog_id, text=excluded.text, page_number=excluded.page_number, loc=excluded.loc,
			embedding=excluded.embedding, concept_ids=excluded.concept_ids, category_ids=excluded.category_ids,
			concept_density=excluded.concept_density, is_toc=excluded.is_toc, is_front_matter=excluded.is_front_matter,
			is_back_matter=excluded.is_back_matter, is_meta_content=excluded.is_meta_content, is_reference=excluded.is_reference,
			contains_citations=excluded.contains_citations, has_math=excluded.has_math, has_extraction_issues=excluded.has_extraction_issues`)
	if err != nil {
		return fmt.Errorf("prepare save chunks: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.CatalogID, c.Text, c.PageNumber, c.Loc, encodeEmbedding(c.Embedding),
			jsonEncode(c.ConceptIDs), jsonEncode(c.CategoryIDs), c.ConceptDensity,
			boolToInt(c.IsToC), boolToInt(c.IsFrontMatter), boolToInt(c.IsBackMatter), boolToInt(c.IsMetaContent),
			boolToInt(c.IsReference), boolToInt(c.ContainsCitations), boolToInt(c.HasMath), boolToInt(c.HasExtractionIssues),
			createdAt); err != nil {
			return fmt.Errorf("save chunk %d: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetChunk(ctx context.Context, id uint32) (*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, chunkSelectCols+` WHERE id = ?`, id)
	return scanChunk(row)
}

func (s *SQLiteStore) GetChunks(ctx context.Context, ids []uint32) ([]*Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := chunkSelectCols + fmt.Sprintf(` WHERE id IN (%s)`, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	defer rows.Close()

	var out []*Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetChunksByCatalog(ctx context.Context, catalogID uint32) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, chunkSelectCols+` WHERE catalog_id = ? ORDER BY page_number`, catalogID)
	if err != nil {
		return nil, fmt.Errorf("get chunks by catalog %d: %w", catalogID, err)
	}
	defer rows.Close()

	var out []*Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteChunksByCatalog(ctx context.Context, catalogID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE catalog_id = ?`, catalogID)
	if err != nil {
		return fmt.Errorf("delete chunks by catalog %d: %w", catalogID, err)
	}
	return nil
}

func (s *SQLiteStore) CountChunks(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

const chunkSelectCols = `SELECT id, catalog_id, text, page_number, loc, embedding, concept_ids, category_ids, concept_density,
	is_toc, is_front_matter, is_back_matter, is_meta_content, is_reference, contains_citations, has_math, has_extraction_issues, created_at FROM chunks`

func scanChunk(row rowScanner) (*Chunk, error) {
	var c Chunk
	var conceptIDs, categoryIDs string
	var embedding []byte
	var isToC, isFront, isBack, isMeta, isRef, hasCitations, hasMath, hasIssues int
	if err := row.Scan(&c.ID, &c.CatalogID, &c.Text, &c.PageNumber, &c.Loc, &embedding, &conceptIDs, &categoryIDs, &c.ConceptDensity,
		&isToC, &isFront, &isBack, &isMeta, &isRef, &hasCitations, &hasMath, &hasIssues, &c.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan chunk: %w", err)
	}
	c.ConceptIDs = jsonDecodeUint32s(conceptIDs)
	c.CategoryIDs = jsonDecodeUint32s(categoryIDs)
	c.Embedding = decodeEmbedding(embedding)
	c.IsToC = isToC != 0
	c.IsFrontMatter = isFront != 0
	c.IsBackMatter = isBack != 0
	c.IsMetaContent = isMeta != 0
	c.IsReference = isRef != 0
	c.ContainsCitations = hasCitations != 0
	c.HasMath = hasMath != 0
	c.HasExtractionIssues = hasIssues != 0
	return &c, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// --- Visual ---

func (s *SQLiteStore) SaveVisuals(ctx context.Context, visuals []*Visual) error {
	if len(visuals) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save visuals: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO visuals (id, catalog_id, catalog_title, visual_type, page_number, description, concept_ids, image_path, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			catalog_id=excluded.catalog_id, catalog_title=excluded.catalog_title, visual_type=excluded.visual_type,
			page_number=excluded.page_number, description=excluded.description, concept_ids=excluded.concept_ids,
			image_path=excluded.image_path, embedding=excluded.embedding`)
	if err != nil {
		return fmt.Errorf("prepare save visuals: %w", err)
	}
	defer stmt.Close()

	for _, v := range visuals {
		if _, err := stmt.ExecContext(ctx, v.ID, v.CatalogID, v.CatalogTitle, string(v.VisualType), v.PageNumber,
			v.Description, jsonEncode(v.ConceptIDs), v.ImagePath, encodeEmbedding(v.Embedding)); err != nil {
			return fmt.Errorf("save visual %d: %w", v.ID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetVisuals(ctx context.Context, ids []uint32) ([]*Visual, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, visualSelectCols+fmt.Sprintf(` WHERE id IN (%s)`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, fmt.Errorf("get visuals: %w", err)
	}
	defer rows.Close()
	return scanVisuals(rows)
}

func (s *SQLiteStore) GetVisualsByCatalog(ctx context.Context, catalogID uint32) ([]*Visual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, visualSelectCols+` WHERE catalog_id = ?`, catalogID)
	if err != nil {
		return nil, fmt.Errorf("get visuals by catalog %d: %w", catalogID, err)
	}
	defer rows.Close()
	return scanVisuals(rows)
}

func (s *SQLiteStore) GetVisualsByType(ctx context.Context, vt VisualType, limit int) ([]*Visual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, visualSelectCols+` WHERE visual_type = ? LIMIT ?`, string(vt), limit)
	if err != nil {
		return nil, fmt.Errorf("get visuals by type %s: %w", vt, err)
	}
	defer rows.Close()
	return scanVisuals(rows)
}

func (s *SQLiteStore) ListVisuals(ctx context.Context, limit int) ([]*Visual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, visualSelectCols+` LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list visuals: %w", err)
	}
	defer rows.Close()
	return scanVisuals(rows)
}

const visualSelectCols = `SELECT id, catalog_id, catalog_title, visual_type, page_number, description, concept_ids, image_path, embedding FROM visuals`

func scanVisuals(rows *sql.Rows) ([]*Visual, error) {
	var out []*Visual
	for rows.Next() {
		var v Visual
		var vt, conceptIDs string
		var embedding []byte
		if err := rows.Scan(&v.ID, &v.CatalogID, &v.CatalogTitle, &vt, &v.PageNumber, &v.Description, &conceptIDs, &v.ImagePath, &embedding); err != nil {
			return nil, fmt.Errorf("scan visual: %w", err)
		}
		v.VisualType = VisualType(vt)
		v.ConceptIDs = jsonDecodeUint32s(conceptIDs)
		v.Embedding = decodeEmbedding(embedding)
		out = append(out, &v)
	}
	return out, rows.Err()
}

// --- State & checkpoint ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get state %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv_state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) SaveIngestCheckpoint(ctx context.Context, stage string, total, embeddedCount int) error {
	if err := s.SetState(ctx, StateKeyCheckpointStage, stage); err != nil {
		return err
	}
	if err := s.SetState(ctx, StateKeyCheckpointTotal, strconv.Itoa(total)); err != nil {
		return err
	}
	if err := s.SetState(ctx, StateKeyCheckpointEmbedded, strconv.Itoa(embeddedCount)); err != nil {
		return err
	}
	return s.SetState(ctx, StateKeyCheckpointTimestamp, time.Now().Format(time.RFC3339))
}

func (s *SQLiteStore) LoadIngestCheckpoint(ctx context.Context) (*IngestCheckpoint, error) {
	stage, err := s.GetState(ctx, StateKeyCheckpointStage)
	if err != nil {
		return nil, err
	}
	if stage == "" {
		return nil, nil
	}
	totalStr, _ := s.GetState(ctx, StateKeyCheckpointTotal)
	embeddedStr, _ := s.GetState(ctx, StateKeyCheckpointEmbedded)
	tsStr, _ := s.GetState(ctx, StateKeyCheckpointTimestamp)

	total, _ := strconv.Atoi(totalStr)
	embedded, _ := strconv.Atoi(embeddedStr)
	ts, _ := time.Parse(time.RFC3339, tsStr)

	return &IngestCheckpoint{Stage: stage, Total: total, EmbeddedCount: embedded, Timestamp: ts}, nil
}

func (s *SQLiteStore) ClearIngestCheckpoint(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_state WHERE key IN (?, ?, ?, ?)`,
		StateKeyCheckpointStage, StateKeyCheckpointTotal, StateKeyCheckpointEmbedded, StateKeyCheckpointTimestamp)
	if err != nil {
		return fmt.Errorf("clear ingest checkpoint: %w", err)
	}
	return nil
}

// DB returns the underlying *sql.DB, so callers outside this package (query
// telemetry persistence, in particular) can open their own tables in the
// same database file without a second SQLite connection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

var _ MetadataStore = (*SQLiteStore)(nil)
