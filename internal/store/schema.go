package store

import "fmt"

// schemaSQL returns the DDL for the read-side corpus store. Unlike the
// ingestion pipeline this service never runs (indexing is out of scope,
// spec §1 Non-goals), the schema here only needs to exist for tests that
// build a throwaway database; production databases are built offline and
// opened read-only (see Open).
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- One row per retrievable collection chunk (SFS statute paragraph, DiVA
-- abstract, motion excerpt, committee report excerpt, ...).
CREATE TABLE IF NOT EXISTS chunks (
    chunk_id TEXT PRIMARY KEY,
    collection TEXT NOT NULL,
    doc_type TEXT NOT NULL,
    title TEXT,
    content TEXT NOT NULL,
    sfs_nummer TEXT,
    kortnamn TEXT,
    kapitel TEXT,
    kapitel_rubrik TEXT,
    paragraf TEXT,
    stycke_count INTEGER DEFAULT 0,
    punkt_count INTEGER DEFAULT 0,
    cross_refs JSON,
    amendment_ref TEXT,
    parent_chapter_id TEXT,
    prev_paragraf_id TEXT,
    next_paragraf_id TEXT,
    content_hash TEXT
);

CREATE INDEX IF NOT EXISTS idx_chunks_collection ON chunks(collection);
CREATE INDEX IF NOT EXISTS idx_chunks_sfs ON chunks(sfs_nummer);
CREATE INDEX IF NOT EXISTS idx_chunks_parent ON chunks(parent_chapter_id);

-- Dense vector index, one row per chunk_id.
CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    chunk_id TEXT PRIMARY KEY,
    embedding float[%d]
);

-- Lexical index. porter+unicode61 matches the teacher's tokenizer choice;
-- Swedish compound folding is handled upstream by the lexical retriever,
-- not by the tokenizer itself (spec §4.7 note).
CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
    content,
    title,
    content='chunks',
    content_rowid='rowid',
    tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
    INSERT INTO chunks_fts(rowid, content, title) VALUES (new.rowid, new.content, new.title);
END;
CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
    INSERT INTO chunks_fts(chunks_fts, rowid, content, title) VALUES ('delete', old.rowid, old.content, old.title);
END;
CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
    INSERT INTO chunks_fts(chunks_fts, rowid, content, title) VALUES ('delete', old.rowid, old.content, old.title);
    INSERT INTO chunks_fts(rowid, content, title) VALUES (new.rowid, new.content, new.title);
END;

-- Kapitel-level parent text, the expansion target of the parent-context
-- resolver (C11).
CREATE TABLE IF NOT EXISTS parents (
    parent_id TEXT PRIMARY KEY,
    sfs_nummer TEXT NOT NULL,
    law_name TEXT,
    kortnamn TEXT,
    kapitel TEXT,
    kapitel_rubrik TEXT,
    full_text TEXT NOT NULL,
    references JSON
);

CREATE TABLE IF NOT EXISTS child_parent_map (
    chunk_id TEXT PRIMARY KEY REFERENCES chunks(chunk_id),
    parent_id TEXT NOT NULL REFERENCES parents(parent_id)
);

CREATE INDEX IF NOT EXISTS idx_child_parent_parent ON child_parent_map(parent_id);
`, embeddingDim)
}
