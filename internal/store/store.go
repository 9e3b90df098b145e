// Package store implements the read-side corpus backend: dense vector
// search, lexical (FTS5/BM25) search, and kapitel-level parent lookups
// over a SQLite database built offline by the (out of scope) indexing
// pipeline. Every collection (SFS, DiVA, motions, committee reports, ...)
// lives in one shared chunks table distinguished by the collection column,
// mirroring the teacher's single-database-many-tables layout.
package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/itsimonfredlingjack/svenskrag/internal/ragerr"
	"github.com/itsimonfredlingjack/svenskrag/internal/ragtypes"
)

func init() {
	sqlite_vec.Auto()
}

// Store wraps the shared SQLite corpus database.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// Open opens the corpus database read-only in production; readWrite only
// matters for the test helper that builds a throwaway database with schema.
func Open(dbPath string, embeddingDim int, readWrite bool) (*Store, error) {
	mode := "ro"
	if readWrite {
		mode = "rwc"
		dir := filepath.Dir(dbPath)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating db directory: %w", err)
			}
		}
	}

	dsn := fmt.Sprintf("file:%s?mode=%s&_journal_mode=WAL&_busy_timeout=30000", dbPath, mode)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening corpus database: %v", ragerr.ErrDependencyUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pinging corpus database: %v", ragerr.ErrDependencyUnavailable, err)
	}

	if readWrite {
		if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db, embeddingDim: embeddingDim}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// VectorSearch performs a top-k nearest neighbor search restricted to one
// collection (C6: dense retrieval is always scoped to a single collection
// per call; fan-out across collections is the caller's job).
func (s *Store) VectorSearch(ctx context.Context, collection string, queryEmbedding []float32, k int) ([]ragtypes.SearchResult, error) {
	clean := sanitizeCollectionList([]string{collection})
	if len(clean) == 0 {
		return nil, fmt.Errorf("%w: empty collection name", ragerr.ErrInput)
	}
	collection = clean[0]

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.chunk_id, v.distance,
			c.title, c.content, c.collection, c.doc_type,
			c.sfs_nummer, c.kortnamn, c.kapitel, c.kapitel_rubrik, c.paragraf,
			c.stycke_count, c.punkt_count, c.cross_refs, c.amendment_ref,
			c.parent_chapter_id, c.prev_paragraf_id, c.next_paragraf_id, c.content_hash
		FROM vec_chunks v
		JOIN chunks c ON c.chunk_id = v.chunk_id
		WHERE v.embedding MATCH ? AND k = ? AND c.collection = ?
		ORDER BY v.distance
	`, serializeFloat32(queryEmbedding), k, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", ragerr.ErrDependencyUnavailable, err)
	}
	defer rows.Close()

	var results []ragtypes.SearchResult
	for rows.Next() {
		var distance float64
		r, err := scanChunkRow(rows, &distance)
		if err != nil {
			return nil, err
		}
		r.Score = 1.0 - distance
		r.RetrieverTag = ragtypes.RetrieverDense
		results = append(results, r)
	}
	return results, rows.Err()
}

// FTSSearch performs a BM25-ranked lexical search restricted to one
// collection. query must already be FTS5-sanitized by the caller (C7).
func (s *Store) FTSSearch(ctx context.Context, collection, query string, limit int) ([]ragtypes.SearchResult, error) {
	clean := sanitizeCollectionList([]string{collection})
	if len(clean) == 0 {
		return nil, fmt.Errorf("%w: empty collection name", ragerr.ErrInput)
	}
	collection = clean[0]

	rows, err := s.db.QueryContext(ctx, `
		SELECT c.chunk_id, f.rank,
			c.title, c.content, c.collection, c.doc_type,
			c.sfs_nummer, c.kortnamn, c.kapitel, c.kapitel_rubrik, c.paragraf,
			c.stycke_count, c.punkt_count, c.cross_refs, c.amendment_ref,
			c.parent_chapter_id, c.prev_paragraf_id, c.next_paragraf_id, c.content_hash
		FROM chunks_fts f
		JOIN chunks c ON c.rowid = f.rowid
		WHERE chunks_fts MATCH ? AND c.collection = ?
		ORDER BY f.rank
		LIMIT ?
	`, query, collection, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: fts search: %v", ragerr.ErrDependencyUnavailable, err)
	}
	defer rows.Close()

	var results []ragtypes.SearchResult
	for rows.Next() {
		var rank float64
		r, err := scanChunkRowWithRank(rows, &rank)
		if err != nil {
			return nil, err
		}
		r.Score = -rank
		r.RetrieverTag = ragtypes.RetrieverBM25
		results = append(results, r)
	}
	return results, rows.Err()
}

// GetParent resolves a kapitel-level parent record by parent id. Missing
// store data is never a pipeline failure (C11): callers treat a nil,nil
// return as "no parent available" and pass the child chunk through.
func (s *Store) GetParent(ctx context.Context, parentID string) (*ragtypes.ParentContext, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT parent_id, sfs_nummer, law_name, kortnamn, kapitel, kapitel_rubrik, full_text
		FROM parents WHERE parent_id = ?
	`, parentID)

	var pc ragtypes.ParentContext
	var lawName, kortnamn, kapitel, kapitelRubrik sql.NullString
	err := row.Scan(&pc.ParentID, &pc.SFSNummer, &lawName, &kortnamn, &kapitel, &kapitelRubrik, &pc.FullText)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parent lookup: %v", ragerr.ErrDependencyUnavailable, err)
	}
	pc.LawName = lawName.String
	pc.Kortnamn = kortnamn.String
	pc.Kapitel = kapitel.String
	pc.KapitelRubrik = kapitelRubrik.String

	var childCount int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM child_parent_map WHERE parent_id = ?", parentID,
	).Scan(&childCount); err == nil {
		pc.ChildCount = childCount
	}
	return &pc, nil
}

// ParentIDForChunk resolves a child chunk's explicit parent mapping. It
// returns "" when no mapping row exists; the chunk-id grammar fallback is
// left to the caller (internal/parentctx).
func (s *Store) ParentIDForChunk(ctx context.Context, chunkID string) (string, error) {
	var parentID string
	err := s.db.QueryRowContext(ctx,
		"SELECT parent_id FROM child_parent_map WHERE chunk_id = ?", chunkID,
	).Scan(&parentID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: parent map lookup: %v", ragerr.ErrDependencyUnavailable, err)
	}
	return parentID, nil
}

// chunkRowScanner is satisfied by *sql.Rows.
type chunkRowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChunkRow(rows chunkRowScanner, score *float64) (ragtypes.SearchResult, error) {
	return scanChunkRowWithRank(rows, score)
}

func scanChunkRowWithRank(rows chunkRowScanner, rank *float64) (ragtypes.SearchResult, error) {
	var r ragtypes.SearchResult
	var meta ragtypes.SFSMetadata
	var sfsNummer, kortnamn, kapitel, kapitelRubrik, paragraf sql.NullString
	var crossRefsJSON, amendmentRef, parentChapterID, prevID, nextID, contentHash sql.NullString

	if err := rows.Scan(&r.ID, rank,
		&r.Title, &r.Snippet, &r.SourceCollection, &r.DocType,
		&sfsNummer, &kortnamn, &kapitel, &kapitelRubrik, &paragraf,
		&meta.StyckeCount, &meta.PunktCount, &crossRefsJSON, &amendmentRef,
		&parentChapterID, &prevID, &nextID, &contentHash,
	); err != nil {
		return r, fmt.Errorf("%w: scanning chunk row: %v", ragerr.ErrDependencyUnavailable, err)
	}

	if sfsNummer.Valid {
		meta.SFSNummer = sfsNummer.String
		meta.Kortnamn = kortnamn.String
		meta.Kapitel = kapitel.String
		meta.KapitelRubrik = kapitelRubrik.String
		meta.Paragraf = paragraf.String
		meta.AmendmentRef = amendmentRef.String
		meta.ParentChapterID = parentChapterID.String
		meta.PrevParagrafID = prevID.String
		meta.NextParagrafID = nextID.String
		meta.ContentHash = contentHash.String
		if crossRefsJSON.Valid && crossRefsJSON.String != "" {
			_ = json.Unmarshal([]byte(crossRefsJSON.String), &meta.CrossRefs)
		}
		r.Metadata = &meta
	}
	return r, nil
}

// sanitizeCollectionList trims whitespace from each collection name and
// drops names that are empty after trimming. The names are always passed
// to SQL as bound parameters.
func sanitizeCollectionList(collections []string) []string {
	out := make([]string, 0, len(collections))
	for _, c := range collections {
		c = strings.TrimSpace(c)
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// serializeFloat32 converts a float32 slice to little-endian bytes for
// sqlite-vec, matching the on-disk layout vec0 expects.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
