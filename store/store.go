// Package store implements the Chunk Store (§4.6): content-addressed chunk
// versioning, the typed relationship graph, the concept-to-chunk index, and
// a denormalised fast-lookup index, all backed by a single embedded SQLite
// database file.
//
// Grounded on the teacher's store/store.go (connection setup, WAL mode,
// upsert-then-reselect idiom, schema_version migration runner) generalised
// from the teacher's legal/GDPR RAG schema to the §4.6 tables.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	corekb "github.com/ncertrag/corekb"
	"github.com/ncertrag/corekb/core"
)

func init() {
	sqlite_vec.Auto()
}

// Store wraps the SQLite database backing the Chunk Store.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema, including the vec0 virtual table used for
// optional embedding attachment.
func New(dbPath string, embeddingDim int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, corekb.NewError(corekb.KindConnection, "creating store directory", err, "path", dbPath)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, corekb.NewError(corekb.KindConnection, "opening store database", err, "path", dbPath)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, corekb.NewError(corekb.KindConnection, "pinging store database", err, "path", dbPath)
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, corekb.NewError(corekb.KindDatabase, "creating schema", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, corekb.NewError(corekb.KindDatabase, "running migrations", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB { return s.db }

// --- Document / section registry ---

// UpsertDocument records or updates a source document's registry row,
// keyed by document id so re-ingest of the same document updates in place.
func (s *Store) UpsertDocument(ctx context.Context, doc core.SourceDocument) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (document_id, title, content_kind, file_path, byte_size, content_hash,
			subject, grade_level, curriculum, language, status, version,
			total_pages, total_characters, total_words)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			title = excluded.title, content_kind = excluded.content_kind,
			file_path = excluded.file_path, byte_size = excluded.byte_size,
			content_hash = excluded.content_hash, subject = excluded.subject,
			grade_level = excluded.grade_level, curriculum = excluded.curriculum,
			language = excluded.language, status = excluded.status,
			version = excluded.version, total_pages = excluded.total_pages,
			total_characters = excluded.total_characters, total_words = excluded.total_words,
			updated_at = CURRENT_TIMESTAMP
	`, doc.DocumentID, doc.Title, doc.ContentKind, doc.FilePath, doc.ByteSize, doc.ContentHash,
		doc.Subject, doc.GradeLevel, doc.Curriculum, doc.Language, doc.Status, doc.Version,
		doc.TotalPages, doc.TotalCharacters, doc.TotalWords)
	if err != nil {
		return corekb.NewError(corekb.KindDatabase, "upserting document", err, "document_id", doc.DocumentID)
	}
	return nil
}

// UpsertSection records or updates a mother section's registry row.
func (s *Store) UpsertSection(ctx context.Context, sec core.MotherSection) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sections (section_id, document_id, section_number, title, start_offset, end_offset, page_number)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id, section_number) DO UPDATE SET
			section_id = excluded.section_id, title = excluded.title,
			start_offset = excluded.start_offset, end_offset = excluded.end_offset,
			page_number = excluded.page_number
	`, sec.SectionID, sec.DocumentID, sec.SectionNumber, sec.Title, sec.Start, sec.End, sec.PageNumber)
	if err != nil {
		return corekb.NewError(corekb.KindDatabase, "upserting section", err, "section_id", sec.SectionID)
	}
	return nil
}

// --- Chunk versioning (§4.6 store()) ---

// ChunkHashes computes the content hash and metadata hash used for
// idempotent versioning.
func ChunkHashes(content string, md core.ChunkMetadata) (contentHash, metadataHash string, err error) {
	contentSum := sha256.Sum256([]byte(content))
	mdBytes, err := json.Marshal(md)
	if err != nil {
		return "", "", corekb.NewError(corekb.KindDataIntegrity, "marshalling metadata for hashing", err)
	}
	mdSum := sha256.Sum256(mdBytes)
	return hex.EncodeToString(contentSum[:]), hex.EncodeToString(mdSum[:]), nil
}

// Store writes a chunk version (§4.6). If a version with both the content
// hash and metadata hash already exists for this chunk id, that version is
// returned unchanged — this is what makes store() idempotent across
// re-ingest runs with no actual change (§8 invariant 3). Otherwise a new
// row is appended with version_number = max + 1.
func (s *Store) Store(ctx context.Context, chunk core.BabyChunk, changesSummary string) (core.BabyChunk, error) {
	contentHash, metadataHash, err := ChunkHashes(chunk.Content, chunk.Metadata)
	if err != nil {
		return core.BabyChunk{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.BabyChunk{}, corekb.NewError(corekb.KindDatabase, "beginning store transaction", err)
	}
	defer tx.Rollback()

	var existingVersionID string
	var existingVersion int
	row := tx.QueryRowContext(ctx, `
		SELECT version_id, version_number FROM chunk_versions
		WHERE chunk_id = ? AND content_hash = ? AND metadata_hash = ?
		ORDER BY version_number DESC LIMIT 1
	`, chunk.ChunkID, contentHash, metadataHash)
	scanErr := row.Scan(&existingVersionID, &existingVersion)
	if scanErr == nil {
		if err := tx.Commit(); err != nil {
			return core.BabyChunk{}, corekb.NewError(corekb.KindDatabase, "committing idempotent store", err)
		}
		chunk.Version = existingVersion
		return chunk, nil
	}
	if scanErr != sql.ErrNoRows {
		return core.BabyChunk{}, corekb.NewError(corekb.KindDatabase, "checking existing chunk version", scanErr, "chunk_id", chunk.ChunkID)
	}

	var maxVersion int
	var previousVersionID sql.NullString
	row = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version_number), 0) FROM chunk_versions WHERE chunk_id = ?
	`, chunk.ChunkID)
	if err := row.Scan(&maxVersion); err != nil {
		return core.BabyChunk{}, corekb.NewError(corekb.KindDatabase, "reading max chunk version", err, "chunk_id", chunk.ChunkID)
	}
	if maxVersion > 0 {
		row = tx.QueryRowContext(ctx, `
			SELECT version_id FROM chunk_versions WHERE chunk_id = ? AND version_number = ?
		`, chunk.ChunkID, maxVersion)
		if err := row.Scan(&previousVersionID); err != nil {
			return core.BabyChunk{}, corekb.NewError(corekb.KindDatabase, "reading previous version id", err, "chunk_id", chunk.ChunkID)
		}
	}

	nextVersion := maxVersion + 1
	versionID := fmt.Sprintf("%s_v%d", chunk.ChunkID, nextVersion)

	mdBytes, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return core.BabyChunk{}, corekb.NewError(corekb.KindDataIntegrity, "marshalling chunk metadata", err)
	}
	prereqBytes, _ := json.Marshal(chunk.PrerequisiteChunkIDs)
	relatedBytes, _ := json.Marshal(chunk.RelatedChunkIDs)
	conceptBytes, _ := json.Marshal(chunk.ConceptTags)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chunk_versions (version_id, chunk_id, version_number, document_id, mother_section_id,
			sequence_in_mother, chunk_kind, content, content_hash, metadata, metadata_hash,
			quality_score, validation_state, prerequisite_chunk_ids, related_chunk_ids, concept_tags,
			previous_version_id, changes_summary, embedding_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, versionID, chunk.ChunkID, nextVersion, chunk.DocumentID, chunk.MotherSectionID,
		chunk.SequenceInMother, chunk.ChunkKind, chunk.Content, contentHash, string(mdBytes), metadataHash,
		chunk.QualityScore, chunk.ValidationState, string(prereqBytes), string(relatedBytes), string(conceptBytes),
		previousVersionID, changesSummary, chunk.EmbeddingRef)
	if err != nil {
		return core.BabyChunk{}, corekb.NewError(corekb.KindDatabase, "inserting chunk version", err, "chunk_id", chunk.ChunkID)
	}

	if err := upsertMetadataIndex(ctx, tx, chunk); err != nil {
		return core.BabyChunk{}, err
	}

	if err := tx.Commit(); err != nil {
		return core.BabyChunk{}, corekb.NewError(corekb.KindDatabase, "committing chunk version", err, "chunk_id", chunk.ChunkID)
	}

	chunk.Version = nextVersion
	return chunk, nil
}

func upsertMetadataIndex(ctx context.Context, tx *sql.Tx, chunk core.BabyChunk) error {
	conceptBytes, _ := json.Marshal(chunk.ConceptTags)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO chunk_metadata_index (chunk_id, document_id, chunk_kind, mother_section_id, subject, grade_level, concept_list, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(chunk_id) DO UPDATE SET
			document_id = excluded.document_id, chunk_kind = excluded.chunk_kind,
			mother_section_id = excluded.mother_section_id, subject = excluded.subject,
			grade_level = excluded.grade_level, concept_list = excluded.concept_list,
			last_updated = CURRENT_TIMESTAMP
	`, chunk.ChunkID, chunk.DocumentID, chunk.ChunkKind, chunk.MotherSectionID,
		chunk.Metadata.BasicInfo.Subject, chunk.Metadata.BasicInfo.GradeLevel, string(conceptBytes))
	if err != nil {
		return corekb.NewError(corekb.KindDatabase, "upserting metadata index", err, "chunk_id", chunk.ChunkID)
	}
	return nil
}

// History returns every version of a chunk, newest first.
func (s *Store) History(ctx context.Context, chunkID core.ChunkID) ([]core.BabyChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT version_id, chunk_id, version_number, document_id, mother_section_id, sequence_in_mother,
			chunk_kind, content, metadata, quality_score, validation_state,
			prerequisite_chunk_ids, related_chunk_ids, concept_tags, embedding_ref, created_at
		FROM chunk_versions WHERE chunk_id = ? ORDER BY version_number DESC
	`, chunkID)
	if err != nil {
		return nil, corekb.NewError(corekb.KindDatabase, "querying chunk history", err, "chunk_id", chunkID)
	}
	defer rows.Close()

	var out []core.BabyChunk
	for rows.Next() {
		c, err := scanChunkVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanChunkVersion(rows *sql.Rows) (core.BabyChunk, error) {
	var c core.BabyChunk
	var versionID string
	var mdJSON, prereqJSON, relatedJSON, conceptJSON sql.NullString
	var embeddingRef sql.NullString
	var createdAt time.Time
	if err := rows.Scan(&versionID, &c.ChunkID, &c.Version, &c.DocumentID, &c.MotherSectionID,
		&c.SequenceInMother, &c.ChunkKind, &c.Content, &mdJSON, &c.QualityScore, &c.ValidationState,
		&prereqJSON, &relatedJSON, &conceptJSON, &embeddingRef, &createdAt); err != nil {
		return core.BabyChunk{}, corekb.NewError(corekb.KindDatabase, "scanning chunk version", err)
	}
	c.CreatedAt = createdAt
	c.EmbeddingRef = embeddingRef.String
	if mdJSON.Valid {
		_ = json.Unmarshal([]byte(mdJSON.String), &c.Metadata)
	}
	if prereqJSON.Valid {
		_ = json.Unmarshal([]byte(prereqJSON.String), &c.PrerequisiteChunkIDs)
	}
	if relatedJSON.Valid {
		_ = json.Unmarshal([]byte(relatedJSON.String), &c.RelatedChunkIDs)
	}
	if conceptJSON.Valid {
		_ = json.Unmarshal([]byte(conceptJSON.String), &c.ConceptTags)
	}
	return c, nil
}

// Latest returns the newest version of a chunk.
func (s *Store) Latest(ctx context.Context, chunkID core.ChunkID) (core.BabyChunk, error) {
	history, err := s.History(ctx, chunkID)
	if err != nil {
		return core.BabyChunk{}, err
	}
	if len(history) == 0 {
		return core.BabyChunk{}, corekb.ErrChunkNotFound
	}
	return history[0], nil
}

// --- Relationship graph (§4.6 add_relationship) ---

// AddRelationship inserts a typed edge, or merges it into an existing edge
// on the same (source, target, kind) by taking the max of strength and
// confidence (§4.5, §8 invariant 5).
func (s *Store) AddRelationship(ctx context.Context, rel core.ChunkRelationship) (core.ChunkRelationship, error) {
	if rel.SourceChunkID == rel.TargetChunkID {
		return core.ChunkRelationship{}, corekb.NewError(corekb.KindValidation, "self-edges are not permitted", nil,
			"chunk_id", rel.SourceChunkID)
	}
	if rel.RelationshipID == "" {
		rel.RelationshipID = relationshipID(rel.SourceChunkID, rel.TargetChunkID, rel.Kind)
	}
	if rel.CreatedBy == "" {
		rel.CreatedBy = "system"
	}
	mdBytes, err := json.Marshal(rel.Metadata)
	if err != nil {
		return core.ChunkRelationship{}, corekb.NewError(corekb.KindDataIntegrity, "marshalling relationship metadata", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chunk_relationships (relationship_id, source_chunk_id, target_chunk_id, kind, strength, confidence, metadata, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_chunk_id, target_chunk_id, kind) DO UPDATE SET
			strength = MAX(strength, excluded.strength),
			confidence = MAX(confidence, excluded.confidence)
	`, rel.RelationshipID, rel.SourceChunkID, rel.TargetChunkID, rel.Kind, rel.Strength, rel.Confidence, string(mdBytes), rel.CreatedBy)
	if err != nil {
		return core.ChunkRelationship{}, corekb.NewError(corekb.KindDatabase, "upserting relationship", err,
			"source", rel.SourceChunkID, "target", rel.TargetChunkID, "kind", rel.Kind)
	}
	return rel, nil
}

func relationshipID(source, target core.ChunkID, kind core.RelationshipType) string {
	sum := sha256.Sum256([]byte(string(source) + "|" + string(target) + "|" + string(kind)))
	return "rel_" + hex.EncodeToString(sum[:16])
}

// Relationships returns every stored edge originating at source.
func (s *Store) Relationships(ctx context.Context, source core.ChunkID) ([]core.ChunkRelationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT relationship_id, source_chunk_id, target_chunk_id, kind, strength, confidence, metadata, created_by, created_at, validated
		FROM chunk_relationships WHERE source_chunk_id = ?
	`, source)
	if err != nil {
		return nil, corekb.NewError(corekb.KindDatabase, "querying relationships", err, "source", source)
	}
	defer rows.Close()

	var out []core.ChunkRelationship
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

func scanRelationship(rows *sql.Rows) (core.ChunkRelationship, error) {
	var rel core.ChunkRelationship
	var mdJSON sql.NullString
	if err := rows.Scan(&rel.RelationshipID, &rel.SourceChunkID, &rel.TargetChunkID, &rel.Kind,
		&rel.Strength, &rel.Confidence, &mdJSON, &rel.CreatedBy, &rel.CreatedAt, &rel.Validated); err != nil {
		return core.ChunkRelationship{}, corekb.NewError(corekb.KindDatabase, "scanning relationship", err)
	}
	if mdJSON.Valid {
		_ = json.Unmarshal([]byte(mdJSON.String), &rel.Metadata)
	}
	return rel, nil
}

// --- Concept index (§4.6 add_concept_mapping, chunks_by_concept, chunk_concepts) ---

// AddConceptMapping records that chunkID exercises the named concept,
// merging confidence (max) and appending evidence on a second call for the
// same (concept, chunk) pair.
func (s *Store) AddConceptMapping(ctx context.Context, conceptID core.ConceptID, conceptName string, chunkID core.ChunkID, confidence float64, evidence []string) error {
	evBytes, err := json.Marshal(evidence)
	if err != nil {
		return corekb.NewError(corekb.KindDataIntegrity, "marshalling concept evidence", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return corekb.NewError(corekb.KindDatabase, "beginning concept mapping transaction", err)
	}
	defer tx.Rollback()

	var existingEvidence sql.NullString
	row := tx.QueryRowContext(ctx, `
		SELECT evidence FROM concept_mappings WHERE concept_id = ? AND chunk_id = ?
	`, conceptID, chunkID)
	switch err := row.Scan(&existingEvidence); err {
	case nil:
		var merged []string
		if existingEvidence.Valid {
			_ = json.Unmarshal([]byte(existingEvidence.String), &merged)
		}
		merged = appendUniqueEvidence(merged, evidence)
		mergedBytes, _ := json.Marshal(merged)
		if _, err := tx.ExecContext(ctx, `
			UPDATE concept_mappings SET confidence = MAX(confidence, ?), evidence = ?, last_updated = CURRENT_TIMESTAMP
			WHERE concept_id = ? AND chunk_id = ?
		`, confidence, string(mergedBytes), conceptID, chunkID); err != nil {
			return corekb.NewError(corekb.KindDatabase, "updating concept mapping", err)
		}
	case sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO concept_mappings (concept_id, chunk_id, concept_name, confidence, evidence)
			VALUES (?, ?, ?, ?, ?)
		`, conceptID, chunkID, conceptName, confidence, string(evBytes)); err != nil {
			return corekb.NewError(corekb.KindDatabase, "inserting concept mapping", err)
		}
	default:
		return corekb.NewError(corekb.KindDatabase, "checking existing concept mapping", err)
	}

	return tx.Commit()
}

func appendUniqueEvidence(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[e] = true
	}
	for _, e := range extra {
		if !seen[e] {
			seen[e] = true
			existing = append(existing, e)
		}
	}
	return existing
}

// ConceptChunkRef is one row of a concept-index lookup.
type ConceptChunkRef struct {
	ChunkID    core.ChunkID
	Confidence float64
}

// ChunksByConcept returns every chunk mapped to name at or above minConfidence.
func (s *Store) ChunksByConcept(ctx context.Context, name string, minConfidence float64) ([]ConceptChunkRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, confidence FROM concept_mappings WHERE concept_name = ? AND confidence >= ?
		ORDER BY confidence DESC
	`, name, minConfidence)
	if err != nil {
		return nil, corekb.NewError(corekb.KindDatabase, "querying chunks by concept", err, "concept", name)
	}
	defer rows.Close()

	var out []ConceptChunkRef
	for rows.Next() {
		var ref ConceptChunkRef
		if err := rows.Scan(&ref.ChunkID, &ref.Confidence); err != nil {
			return nil, corekb.NewError(corekb.KindDatabase, "scanning concept chunk ref", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// ConceptRef is one row of a chunk's concept list.
type ConceptRef struct {
	Name       string
	Confidence float64
}

// ChunkConcepts returns every concept mapped to chunkID.
func (s *Store) ChunkConcepts(ctx context.Context, chunkID core.ChunkID) ([]ConceptRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT concept_name, confidence FROM concept_mappings WHERE chunk_id = ? ORDER BY confidence DESC
	`, chunkID)
	if err != nil {
		return nil, corekb.NewError(corekb.KindDatabase, "querying chunk concepts", err, "chunk_id", chunkID)
	}
	defer rows.Close()

	var out []ConceptRef
	for rows.Next() {
		var ref ConceptRef
		if err := rows.Scan(&ref.Name, &ref.Confidence); err != nil {
			return nil, corekb.NewError(corekb.KindDatabase, "scanning chunk concept ref", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// --- Traversal (§4.6 related()) ---

// RelatedChunk is one result of a depth-bounded traversal.
type RelatedChunk struct {
	ChunkID         core.ChunkID
	CombinedStrength float64
	Path            []string // edge kind labels, in traversal order
}

// Related performs a depth-bounded traversal following outgoing edges whose
// strength is at least minStrength, multiplying edge strengths along the
// path. Duplicate destinations are deduped, keeping the strongest path
// (§4.6 related()).
func (s *Store) Related(ctx context.Context, chunkID core.ChunkID, maxDepth int, minStrength float64) ([]RelatedChunk, error) {
	best := make(map[core.ChunkID]RelatedChunk)

	type frontierNode struct {
		id       core.ChunkID
		strength float64
		path     []string
	}
	frontier := []frontierNode{{id: chunkID, strength: 1.0}}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []frontierNode
		for _, node := range frontier {
			edges, err := s.Relationships(ctx, node.id)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				if e.Strength < minStrength {
					continue
				}
				combined := node.strength * e.Strength
				path := append(append([]string{}, node.path...), string(e.Kind))

				if existing, ok := best[e.TargetChunkID]; !ok || combined > existing.CombinedStrength {
					best[e.TargetChunkID] = RelatedChunk{ChunkID: e.TargetChunkID, CombinedStrength: combined, Path: path}
				}
				next = append(next, frontierNode{id: e.TargetChunkID, strength: combined, path: path})
			}
		}
		frontier = next
	}

	delete(best, chunkID)

	out := make([]RelatedChunk, 0, len(best))
	for _, rc := range best {
		out = append(out, rc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CombinedStrength > out[j].CombinedStrength })
	return out, nil
}

// --- Embedding attachment (SPEC_FULL Part C: storage surface for an
// external embedding service; the core never computes or searches these) ---

// AttachEmbedding stores an externally-computed embedding vector for chunkID
// in the vec0 virtual table and records the reference on the latest chunk
// version.
func (s *Store) AttachEmbedding(ctx context.Context, chunkID core.ChunkID, embedding []float32) error {
	if len(embedding) != s.embeddingDim {
		return corekb.NewError(corekb.KindValidation, "embedding dimension mismatch", nil,
			"chunk_id", chunkID, "expected", s.embeddingDim, "got", len(embedding))
	}
	raw, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return corekb.NewError(corekb.KindDataIntegrity, "serializing embedding", err, "chunk_id", chunkID)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET embedding = excluded.embedding
	`, chunkID, raw)
	if err != nil {
		return corekb.NewError(corekb.KindDatabase, "attaching embedding", err, "chunk_id", chunkID)
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE chunk_versions SET embedding_ref = ?
		WHERE chunk_id = ? AND version_number = (SELECT MAX(version_number) FROM chunk_versions WHERE chunk_id = ?)
	`, string(chunkID), chunkID, chunkID); err != nil {
		return corekb.NewError(corekb.KindDatabase, "recording embedding reference", err, "chunk_id", chunkID)
	}
	return nil
}

// VectorSearch returns the k nearest chunk ids to query by the vec0
// virtual table's configured distance metric.
func (s *Store) VectorSearch(ctx context.Context, query []float32, k int) ([]core.ChunkID, error) {
	raw, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, corekb.NewError(corekb.KindDataIntegrity, "serializing query embedding", err)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id FROM vec_chunks WHERE embedding MATCH ? AND k = ? ORDER BY distance
	`, raw, k)
	if err != nil {
		return nil, corekb.NewError(corekb.KindDatabase, "vector search", err)
	}
	defer rows.Close()

	var out []core.ChunkID
	for rows.Next() {
		var id core.ChunkID
		if err := rows.Scan(&id); err != nil {
			return nil, corekb.NewError(corekb.KindDatabase, "scanning vector search result", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// --- Statistics (§4.6 statistics()) ---

// Statistics reports counts per table, per relationship kind, and the
// unique concept count (§4.6).
type Statistics struct {
	Documents            int
	Sections              int
	ChunkVersions        int
	DistinctChunks        int
	Relationships        int
	RelationshipsByKind  map[core.RelationshipType]int
	ConceptMappings      int
	DistinctConcepts     int
}

// Statistics computes store-wide counts.
func (s *Store) Statistics(ctx context.Context) (Statistics, error) {
	var stats Statistics
	stats.RelationshipsByKind = make(map[core.RelationshipType]int)

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&stats.Documents); err != nil {
		return Statistics{}, corekb.NewError(corekb.KindDatabase, "counting documents", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sections").Scan(&stats.Sections); err != nil {
		return Statistics{}, corekb.NewError(corekb.KindDatabase, "counting sections", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunk_versions").Scan(&stats.ChunkVersions); err != nil {
		return Statistics{}, corekb.NewError(corekb.KindDatabase, "counting chunk versions", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT chunk_id) FROM chunk_versions").Scan(&stats.DistinctChunks); err != nil {
		return Statistics{}, corekb.NewError(corekb.KindDatabase, "counting distinct chunks", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunk_relationships").Scan(&stats.Relationships); err != nil {
		return Statistics{}, corekb.NewError(corekb.KindDatabase, "counting relationships", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM concept_mappings").Scan(&stats.ConceptMappings); err != nil {
		return Statistics{}, corekb.NewError(corekb.KindDatabase, "counting concept mappings", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT concept_id) FROM concept_mappings").Scan(&stats.DistinctConcepts); err != nil {
		return Statistics{}, corekb.NewError(corekb.KindDatabase, "counting distinct concepts", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM chunk_relationships GROUP BY kind")
	if err != nil {
		return Statistics{}, corekb.NewError(corekb.KindDatabase, "counting relationships by kind", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind core.RelationshipType
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return Statistics{}, corekb.NewError(corekb.KindDatabase, "scanning relationship kind count", err)
		}
		stats.RelationshipsByKind[kind] = count
	}
	return stats, rows.Err()
}

// --- Corpus-wide lookups consumed by the Relationship Mapper (§4.5) ---

// DocumentChunkRow is the latest-version view of one stored chunk, denormalised
// with its mother section's number and sequence, the minimal shape
// relationship.ChunkInput needs. DocumentChunks reads a single point-in-time
// snapshot (one query), matching the §5 ordering guarantee that relationship
// derivation is consistent with the snapshot it read.
type DocumentChunkRow struct {
	ChunkID          core.ChunkID
	DocumentID       core.DocumentID
	MotherSectionID  core.SectionID
	SectionNumber    string
	SequenceInMother int
	Kind             core.ChunkKind
	GradeLevel       string
	MainConcepts     []string
	Content          string

	// SplitGroupID/SplitIndex are read back from the stored metadata bundle's
	// BasicInfo (§4.4) — the split lineage a pedagogical split (§4.3) stamped
	// on the owning LearningUnit, needed by the Relationship Mapper's S5
	// "follows" derivation (§4.5, §8).
	SplitGroupID core.UnitID
	SplitIndex   int
}

// DocumentChunks returns the latest version of every chunk belonging to
// documentID, joined against its mother section's number, for the
// Relationship Mapper to consume (§4.5 sequential/prerequisite/concept-overlap
// derivation all operate within or across one document's chunk set).
func (s *Store) DocumentChunks(ctx context.Context, documentID core.DocumentID) ([]DocumentChunkRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cv.chunk_id, cv.document_id, cv.mother_section_id, sec.section_number,
			cv.sequence_in_mother, cv.chunk_kind, cmi.grade_level, cmi.concept_list, cv.content, cv.metadata
		FROM chunk_versions cv
		JOIN (
			SELECT chunk_id, MAX(version_number) AS max_version
			FROM chunk_versions WHERE document_id = ? GROUP BY chunk_id
		) latest ON latest.chunk_id = cv.chunk_id AND latest.max_version = cv.version_number
		LEFT JOIN chunk_metadata_index cmi ON cmi.chunk_id = cv.chunk_id
		LEFT JOIN sections sec ON sec.section_id = cv.mother_section_id
		WHERE cv.document_id = ?
		ORDER BY cv.mother_section_id, cv.sequence_in_mother
	`, documentID, documentID)
	if err != nil {
		return nil, corekb.NewError(corekb.KindDatabase, "querying document chunks", err, "document_id", documentID)
	}
	defer rows.Close()

	var out []DocumentChunkRow
	for rows.Next() {
		var r DocumentChunkRow
		var sectionNumber, gradeLevel sql.NullString
		var conceptJSON, mdJSON sql.NullString
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.MotherSectionID, &sectionNumber,
			&r.SequenceInMother, &r.Kind, &gradeLevel, &conceptJSON, &r.Content, &mdJSON); err != nil {
			return nil, corekb.NewError(corekb.KindDatabase, "scanning document chunk row", err)
		}
		r.SectionNumber = sectionNumber.String
		r.GradeLevel = gradeLevel.String
		if conceptJSON.Valid {
			_ = json.Unmarshal([]byte(conceptJSON.String), &r.MainConcepts)
		}
		if mdJSON.Valid {
			var md core.ChunkMetadata
			if err := json.Unmarshal([]byte(mdJSON.String), &md); err == nil {
				r.SplitGroupID = md.BasicInfo.SplitGroupID
				r.SplitIndex = md.BasicInfo.SplitIndex
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ConceptGradeRef is one (chunk, grade) pair a concept name maps to,
// corpus-wide, for cross-grade prerequisite derivation (§4.5).
type ConceptGradeRef struct {
	ChunkID core.ChunkID
	Grade   string
}

// GlobalConceptIndex loads the entire concept_mappings table, joined against
// chunk_metadata_index for grade level, as a name-keyed index (§4.6 "global
// concept index" consumed by cross-grade prerequisite derivation). The
// corpus is assumed small enough (one curriculum's worth of textbooks) to
// load wholesale rather than paginate.
func (s *Store) GlobalConceptIndex(ctx context.Context) (map[string][]ConceptGradeRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cm.concept_name, cm.chunk_id, cmi.grade_level
		FROM concept_mappings cm
		LEFT JOIN chunk_metadata_index cmi ON cmi.chunk_id = cm.chunk_id
	`)
	if err != nil {
		return nil, corekb.NewError(corekb.KindDatabase, "loading global concept index", err)
	}
	defer rows.Close()

	index := make(map[string][]ConceptGradeRef)
	for rows.Next() {
		var name string
		var ref ConceptGradeRef
		var grade sql.NullString
		if err := rows.Scan(&name, &ref.ChunkID, &grade); err != nil {
			return nil, corekb.NewError(corekb.KindDatabase, "scanning global concept index row", err)
		}
		ref.Grade = grade.String
		index[name] = append(index[name], ref)
	}
	return index, rows.Err()
}
