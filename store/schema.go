package store

import "fmt"

// schemaSQL returns the DDL for every table the Chunk Store owns (§4.6):
// a documents/sections registry plus the four persisted indices
// (chunk_versions, chunk_relationships, concept_mappings,
// chunk_metadata_index). embeddingDim controls the vec0 virtual table
// dimension for the optional external embedding attachment.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- Source document registry with hash-based change detection
CREATE TABLE IF NOT EXISTS documents (
    document_id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    content_kind TEXT NOT NULL,
    file_path TEXT NOT NULL,
    byte_size INTEGER NOT NULL,
    content_hash TEXT NOT NULL,
    subject TEXT,
    grade_level TEXT,
    curriculum TEXT,
    language TEXT,
    status TEXT NOT NULL DEFAULT 'pending',
    version INTEGER NOT NULL DEFAULT 1,
    total_pages INTEGER DEFAULT 0,
    total_characters INTEGER DEFAULT 0,
    total_words INTEGER DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    processed_at DATETIME
);

-- Mother sections re-derived on each processing run
CREATE TABLE IF NOT EXISTS sections (
    section_id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL REFERENCES documents(document_id) ON DELETE CASCADE,
    section_number TEXT NOT NULL,
    title TEXT,
    start_offset INTEGER NOT NULL,
    end_offset INTEGER NOT NULL,
    page_number INTEGER,
    UNIQUE(document_id, section_number)
);

-- Content-addressed chunk versions (§4.6): one row per (chunk_id, version).
CREATE TABLE IF NOT EXISTS chunk_versions (
    version_id TEXT PRIMARY KEY,
    chunk_id TEXT NOT NULL,
    version_number INTEGER NOT NULL,
    document_id TEXT NOT NULL REFERENCES documents(document_id) ON DELETE CASCADE,
    mother_section_id TEXT NOT NULL,
    sequence_in_mother INTEGER NOT NULL,
    chunk_kind TEXT NOT NULL,
    content TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    metadata JSON NOT NULL,
    metadata_hash TEXT NOT NULL,
    quality_score REAL NOT NULL,
    validation_state TEXT NOT NULL,
    prerequisite_chunk_ids JSON,
    related_chunk_ids JSON,
    concept_tags JSON,
    previous_version_id TEXT,
    changes_summary TEXT,
    embedding_ref TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(chunk_id, version_number)
);

-- Optional embedding attachment keyed by the stable chunk id, populated by an
-- external embedding service (§6); the core never computes or searches these.
CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    chunk_id TEXT PRIMARY KEY,
    embedding float[%d]
);

-- Typed relationship graph (§3, §4.5): unique on (source, target, kind) so a
-- second insert of the same edge is a merge, not a duplicate row.
CREATE TABLE IF NOT EXISTS chunk_relationships (
    relationship_id TEXT PRIMARY KEY,
    source_chunk_id TEXT NOT NULL,
    target_chunk_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    strength REAL NOT NULL,
    confidence REAL NOT NULL,
    metadata JSON,
    created_by TEXT NOT NULL,
    validated BOOLEAN DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(source_chunk_id, target_chunk_id, kind)
);

-- Concept-to-chunk index (§3): composite primary key, evidence accumulates.
CREATE TABLE IF NOT EXISTS concept_mappings (
    concept_id TEXT NOT NULL,
    chunk_id TEXT NOT NULL,
    concept_name TEXT NOT NULL,
    confidence REAL NOT NULL,
    evidence JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    last_updated DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (concept_id, chunk_id)
);

-- Denormalised fast-lookup index, kept current on every chunk_versions write.
CREATE TABLE IF NOT EXISTS chunk_metadata_index (
    chunk_id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL,
    chunk_kind TEXT NOT NULL,
    mother_section_id TEXT NOT NULL,
    subject TEXT,
    grade_level TEXT,
    concept_list JSON,
    last_updated DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_chunk_versions_chunk ON chunk_versions(chunk_id);
CREATE INDEX IF NOT EXISTS idx_chunk_versions_document ON chunk_versions(document_id);
CREATE INDEX IF NOT EXISTS idx_chunk_versions_section ON chunk_versions(mother_section_id);
CREATE INDEX IF NOT EXISTS idx_chunk_relationships_source ON chunk_relationships(source_chunk_id);
CREATE INDEX IF NOT EXISTS idx_chunk_relationships_target ON chunk_relationships(target_chunk_id);
CREATE INDEX IF NOT EXISTS idx_chunk_relationships_kind ON chunk_relationships(kind);
CREATE INDEX IF NOT EXISTS idx_concept_mappings_concept ON concept_mappings(concept_id);
CREATE INDEX IF NOT EXISTS idx_concept_mappings_name ON concept_mappings(concept_name);
CREATE INDEX IF NOT EXISTS idx_metadata_index_document ON chunk_metadata_index(document_id);
CREATE INDEX IF NOT EXISTS idx_metadata_index_kind ON chunk_metadata_index(chunk_kind);
CREATE INDEX IF NOT EXISTS idx_sections_document ON sections(document_id);
`, embeddingDim)
}
