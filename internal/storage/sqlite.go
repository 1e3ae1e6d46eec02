package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/matsen/searchforest/internal/paper"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// selectPaperFields contains the standard field list for SELECT queries.
const selectPaperFields = `id, doi, title, abstract, venue, year, authors_json`

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			doi TEXT,
			title TEXT NOT NULL,
			abstract TEXT,
			venue TEXT,
			year INTEGER,
			authors_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_papers_doi ON papers(doi) WHERE doi IS NOT NULL AND doi != '';

		-- Full-text search virtual table (standalone, not external content)
		CREATE VIRTUAL TABLE IF NOT EXISTS papers_fts USING fts5(
			id,
			title,
			abstract,
			authors_text
		);

		-- Outgoing references in recorded order; targets may be outside the corpus
		CREATE TABLE IF NOT EXISTS citations (
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (source_id, target_id)
		);

		CREATE INDEX IF NOT EXISTS idx_citations_target ON citations(target_id);

		-- Embedding metadata for semantic index staleness detection
		CREATE TABLE IF NOT EXISTS embedding_metadata (
			paper_id TEXT PRIMARY KEY,
			model_name TEXT NOT NULL,
			indexed_at INTEGER NOT NULL,
			abstract_hash TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tree_cache (
			cache_key TEXT PRIMARY KEY,
			payload BLOB NOT NULL,
			created_at INTEGER NOT NULL
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromJSONL clears the paper and citation tables and rebuilds them
// from a JSONL file in one transaction. Cached trees are dropped too since
// they were built from the old corpus.
func (d *DB) RebuildFromJSONL(jsonlPath string) (int, error) {
	papers, err := ReadAll(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading JSONL: %w", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"papers", "papers_fts", "citations", "tree_cache"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return 0, fmt.Errorf("clearing %s table: %w", table, err)
		}
	}

	papersStmt, err := tx.Prepare(`
		INSERT INTO papers (id, doi, title, abstract, venue, year, authors_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing papers insert: %w", err)
	}
	defer papersStmt.Close()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO papers_fts (id, title, abstract, authors_text)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	citeStmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO citations (source_id, target_id, position)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing citations insert: %w", err)
	}
	defer citeStmt.Close()

	for _, p := range papers {
		authorsJSON, err := json.Marshal(p.Authors)
		if err != nil {
			return 0, fmt.Errorf("marshaling authors for %s: %w", p.ID, err)
		}

		_, err = papersStmt.Exec(
			p.ID, nullableStringValue(p.DOI), p.Title, p.Abstract,
			nullableStringValue(p.Venue), p.Year, string(authorsJSON),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting paper %s: %w", p.ID, err)
		}

		if _, err := ftsStmt.Exec(p.ID, p.Title, p.Abstract, formatAuthorsText(p.Authors)); err != nil {
			return 0, fmt.Errorf("inserting fts for %s: %w", p.ID, err)
		}

		for pos, ref := range p.References {
			if _, err := citeStmt.Exec(p.ID, ref, pos); err != nil {
				return 0, fmt.Errorf("inserting citation %s -> %s: %w", p.ID, ref, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return len(papers), nil
}

// formatAuthorsText creates a searchable text representation of authors.
func formatAuthorsText(authors []paper.Author) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, a.Display())
	}
	return strings.Join(names, ", ")
}

// GetByID retrieves a paper and its references. A missing paper yields
// nil and no error.
func (d *DB) GetByID(id string) (*paper.Paper, error) {
	row := d.db.QueryRow(`SELECT `+selectPaperFields+` FROM papers WHERE id = ?`, id)
	p, err := scanPaper(row)
	if err != nil || p == nil {
		return nil, err
	}
	refs, err := d.GetReferences(id)
	if err != nil {
		return nil, err
	}
	p.References = refs
	return p, nil
}

// Search performs a full-text search over titles, abstracts, and authors.
// Results carry no references.
func (d *DB) Search(query string, limit int) ([]paper.Paper, error) {
	ftsQuery := prepareFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	rows, err := d.db.Query(`
		SELECT `+selectPaperFields+`
		FROM papers
		WHERE id IN (SELECT id FROM papers_fts WHERE papers_fts MATCH ?)
		ORDER BY id
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	return scanPapers(rows)
}

// ListAll returns all papers ordered by ID with their references attached,
// optionally limited.
func (d *DB) ListAll(limit int) ([]paper.Paper, error) {
	query := `SELECT ` + selectPaperFields + ` FROM papers ORDER BY id`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = []any{limit}
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	papers, err := scanPapers(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	refs, err := d.allReferences()
	if err != nil {
		return nil, err
	}
	for i := range papers {
		papers[i].References = refs[papers[i].ID]
	}
	return papers, nil
}

// Count returns the total number of papers.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM papers").Scan(&count)
	return count, err
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanPaper(s scanner) (*paper.Paper, error) {
	var p paper.Paper
	var doi, abstract, venue sql.NullString
	var year sql.NullInt64
	var authorsJSON string

	err := s.Scan(&p.ID, &doi, &p.Title, &abstract, &venue, &year, &authorsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	p.DOI = doi.String
	p.Abstract = abstract.String
	p.Venue = venue.String
	p.Year = int(year.Int64)

	if authorsJSON != "" && authorsJSON != "null" {
		if err := json.Unmarshal([]byte(authorsJSON), &p.Authors); err != nil {
			return nil, fmt.Errorf("parsing authors JSON for %s: %w", p.ID, err)
		}
	}

	return &p, nil
}

func scanPapers(rows *sql.Rows) ([]paper.Paper, error) {
	var papers []paper.Paper
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		if p != nil {
			papers = append(papers, *p)
		}
	}
	return papers, rows.Err()
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// FTS5 uses double quotes for phrase matching
	if strings.ContainsAny(query, "\"*+-:(){}[]^~") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}

// EmbeddingMetadata represents embedding metadata stored in the database.
type EmbeddingMetadata struct {
	PaperID      string
	ModelName    string
	IndexedAt    int64  // Unix timestamp
	AbstractHash string // SHA256 of abstract
}

// SaveEmbeddingMetadata saves or updates embedding metadata for a paper.
func (d *DB) SaveEmbeddingMetadata(meta EmbeddingMetadata) error {
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO embedding_metadata (paper_id, model_name, indexed_at, abstract_hash)
		VALUES (?, ?, ?, ?)
	`, meta.PaperID, meta.ModelName, meta.IndexedAt, meta.AbstractHash)
	return err
}

// GetEmbeddingMetadata retrieves embedding metadata for a paper.
func (d *DB) GetEmbeddingMetadata(paperID string) (*EmbeddingMetadata, error) {
	var meta EmbeddingMetadata
	err := d.db.QueryRow(`
		SELECT paper_id, model_name, indexed_at, abstract_hash
		FROM embedding_metadata
		WHERE paper_id = ?
	`, paperID).Scan(&meta.PaperID, &meta.ModelName, &meta.IndexedAt, &meta.AbstractHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &meta, nil
}

// ClearEmbeddingMetadata removes all embedding metadata.
func (d *DB) ClearEmbeddingMetadata() error {
	_, err := d.db.Exec("DELETE FROM embedding_metadata")
	return err
}

// CountEmbeddingMetadata returns the number of papers with embedding metadata.
func (d *DB) CountEmbeddingMetadata() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM embedding_metadata").Scan(&count)
	return count, err
}

// CountPapersWithAbstract returns the number of papers that have abstracts.
func (d *DB) CountPapersWithAbstract(minLength int) (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM papers WHERE abstract IS NOT NULL AND LENGTH(TRIM(abstract)) >= ?", minLength).Scan(&count)
	return count, err
}

// ListPaperIDsWithAbstract returns IDs of papers that have abstracts of sufficient length.
func (d *DB) ListPaperIDsWithAbstract(minLength int) ([]string, error) {
	rows, err := d.db.Query("SELECT id FROM papers WHERE abstract IS NOT NULL AND LENGTH(TRIM(abstract)) >= ? ORDER BY id", minLength)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
