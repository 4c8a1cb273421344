package ingest

import (
	"context"
	"log/slog"
	"time"

	corekb "github.com/ncertrag/corekb"
	"github.com/ncertrag/corekb/core"
	"github.com/ncertrag/corekb/learningunit"
	"github.com/ncertrag/corekb/metadata"
	"github.com/ncertrag/corekb/patternlib"
	"github.com/ncertrag/corekb/relationship"
	"github.com/ncertrag/corekb/section"
	"github.com/ncertrag/corekb/store"
)

// Engine wires the Pattern Library, Section Detector, Learning-Unit
// Builder, Metadata Extractor, and Chunk Store into the §2 pipeline. One
// Engine is safe to share across documents processed concurrently by an
// external job dispatcher (§5): the Pattern Library is read-mostly, the
// Store serializes its own writes, and nothing else is mutable shared
// state.
type Engine struct {
	Config corekb.Config
	Store  *store.Store
	Logger *slog.Logger

	library  *patternlib.Library
	detector *section.Detector
	builder  *learningunit.Builder
	metadata *metadata.Extractor
}

// BoundaryProposer and ConceptProposer are satisfied by *llmassist.Assist;
// Engine only depends on the narrower learningunit/metadata interfaces so it
// never needs to import the llm provider stack directly.
type (
	BoundaryProposer = learningunit.BoundaryProposer
	ConceptProposer  = metadata.ConceptProposer
)

// New builds an Engine: loads the default NCERT pattern set and constructs
// the Section Detector, Learning-Unit Builder, and Metadata Extractor from
// cfg (§9 Design Notes, "Init order: Pattern Library → Chunk Store → LLM
// client (optional) → detectors" — st is constructed by the caller before
// New is called, matching that order). boundaryProposer and conceptProposer
// may be nil, or both may be satisfied by one *llmassist.Assist value.
func New(cfg corekb.Config, st *store.Store, boundaryProposer BoundaryProposer, conceptProposer ConceptProposer, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lib := patternlib.NewLibrary(logger)
	if err := lib.LoadDefaults(); err != nil {
		return nil, corekb.NewError(corekb.KindConfiguration, "loading default pattern library", err)
	}

	detector := section.NewDetector(lib, cfg.Detection.ConfidenceThreshold, cfg.Detection.PatternMatchingThreshold, logger)
	builder := learningunit.NewBuilder(lib, boundaryProposer, cfg.Chunking.MinChunkSize, cfg.Chunking.MaxChunkSize, cfg.Detection.PatternMatchingThreshold, logger)
	extractor := metadata.NewExtractor(conceptProposer)

	return &Engine{
		Config:   cfg,
		Store:    st,
		Logger:   logger,
		library:  lib,
		detector: detector,
		builder:  builder,
		metadata: extractor,
	}, nil
}

// Library exposes the Engine's Pattern Library, e.g. for AddCustomPattern
// calls from an operator tool.
func (e *Engine) Library() *patternlib.Library { return e.library }

// IngestDocument runs the full §2 flow for one document: detect sections,
// build learning units per section, extract metadata, write versioned
// chunks, then derive and store relationship edges from the committed
// chunk set. A section-level failure aborts that section and continues
// with the next (§7); the document's final status reflects whether every
// section succeeded.
func (e *Engine) IngestDocument(ctx context.Context, req DocumentRequest, extracted ExtractedText) (Result, error) {
	doc := core.SourceDocument{
		DocumentID:      req.DocumentID,
		Title:           req.Title,
		ContentKind:     req.ContentKind,
		FilePath:        req.FilePath,
		ByteSize:        req.ByteSize,
		ContentHash:     req.ContentHash,
		Subject:         req.Subject,
		GradeLevel:      req.GradeLevel,
		Curriculum:      req.Curriculum,
		Language:        req.Language,
		Status:          core.StatusProcessing,
		Version:         1,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
		TotalPages:      len(extracted.Pages),
		TotalCharacters: len(extracted.FullText),
		TotalWords:      extracted.TotalWords(),
	}

	if err := e.withRetry(ctx, func() error { return e.Store.UpsertDocument(ctx, doc) }); err != nil {
		return Result{}, corekb.NewError(corekb.KindDatabase, "upserting document", err, "document_id", doc.DocumentID)
	}

	sections, issues, err := e.detector.DetectSections(ctx, extracted.FullText, extracted.PageAt, req.Subject, req.GradeLevel, req.Language)
	if err != nil {
		doc.Status = core.StatusFailed
		_ = e.Store.UpsertDocument(ctx, doc)
		return Result{}, corekb.NewError(corekb.KindSectionDetection, "detecting sections", err, "document_id", doc.DocumentID)
	}
	for i := range sections {
		sections[i].DocumentID = doc.DocumentID
		sections[i].SectionID = sectionID(doc.DocumentID, sections[i].SectionNumber)
	}
	for _, iss := range issues {
		e.Logger.Warn("section detection issue", "document_id", doc.DocumentID, "kind", iss.Kind, "detail", iss.Detail, "section", iss.Section)
	}

	result := Result{
		Document:      doc,
		Sections:      sections,
		SectionIssues: make(map[core.SectionID][]string),
	}

	allSectionsOK := true
	for _, sec := range sections {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := e.withRetry(ctx, func() error { return e.Store.UpsertSection(ctx, sec) }); err != nil {
			allSectionsOK = false
			result.SectionIssues[sec.SectionID] = append(result.SectionIssues[sec.SectionID], err.Error())
			e.Logger.Error("failed to persist section, skipping", "section_id", sec.SectionID, "error", err)
			continue
		}

		chunks, err := e.processSection(ctx, doc, sec, extracted)
		if err != nil {
			allSectionsOK = false
			result.SectionIssues[sec.SectionID] = append(result.SectionIssues[sec.SectionID], err.Error())
			e.Logger.Error("section processing failed, continuing with next section", "section_id", sec.SectionID, "error", err)
			continue
		}
		result.Chunks = append(result.Chunks, chunks...)
	}

	edges, err := e.mapRelationships(ctx, doc.DocumentID)
	if err != nil {
		e.Logger.Error("relationship mapping failed", "document_id", doc.DocumentID, "error", err)
	}
	result.Relationships = edges

	if allSectionsOK {
		doc.Status = core.StatusCompleted
	} else {
		doc.Status = core.StatusFailed
	}
	now := time.Now()
	doc.ProcessedAt = &now
	doc.UpdatedAt = now
	if err := e.withRetry(ctx, func() error { return e.Store.UpsertDocument(ctx, doc) }); err != nil {
		return result, corekb.NewError(corekb.KindDatabase, "finalizing document status", err, "document_id", doc.DocumentID)
	}
	result.Document = doc
	return result, nil
}

// processSection builds, extracts, and stores every chunk for one mother
// section. A unit-level failure aborts that unit and continues with the
// next (§7).
func (e *Engine) processSection(ctx context.Context, doc core.SourceDocument, sec core.MotherSection, extracted ExtractedText) ([]core.BabyChunk, error) {
	slice := extracted.FullText[sec.Start:sec.End]

	units, err := e.builder.BuildUnits(ctx, slice, doc.Subject, doc.GradeLevel, doc.Language)
	if err != nil {
		return nil, corekb.NewError(corekb.KindChunking, "building learning units", err, "section_id", sec.SectionID)
	}

	var chunks []core.BabyChunk
	for idx, unit := range units {
		content := assembleContent(&unit)
		if content == "" {
			continue
		}
		kind := metadata.DeriveChunkKind(sec.SectionNumber, &unit)

		basicInfo := metadata.BasicInfoInput{
			GradeLevel:        doc.GradeLevel,
			Subject:           doc.Subject,
			Chapter:           doc.Title,
			SectionNumber:     sec.SectionNumber,
			SectionTitle:      sec.Title,
			Curriculum:        doc.Curriculum,
			SequenceInSection: idx,
		}

		md, quality := e.metadata.Extract(ctx, &unit, content, basicInfo, kind)

		validation := core.ValidationPending
		switch {
		case quality < e.Config.Quality.RequireHumanReviewThreshold:
			validation = core.ValidationNeedsReview
		case quality >= e.Config.Quality.MinQualityScore:
			validation = core.ValidationValidated
		}

		chunk := core.BabyChunk{
			ChunkID:          chunkID(doc.DocumentID, sec.SectionID, idx),
			ChunkKind:        kind,
			DocumentID:       doc.DocumentID,
			MotherSectionID:  sec.SectionID,
			SequenceInMother: idx,
			Content:          content,
			Metadata:         md,
			QualityScore:     quality,
			ValidationState:  validation,
			ConceptTags:      md.ConceptsAndSkills.MainConcepts,
			CreatedAt:        time.Now(),
			UpdatedAt:        time.Now(),
		}

		stored, err := e.storeChunk(ctx, chunk)
		if err != nil {
			e.Logger.Error("storing chunk failed, skipping unit", "section_id", sec.SectionID, "sequence", idx, "error", err)
			continue
		}
		chunks = append(chunks, stored)
	}
	return chunks, nil
}

// storeChunk writes one chunk with the §7 exponential-backoff retry policy
// for DatabaseError/ConnectionError/DataIntegrityError.
func (e *Engine) storeChunk(ctx context.Context, chunk core.BabyChunk) (core.BabyChunk, error) {
	var stored core.BabyChunk
	err := e.withRetry(ctx, func() error {
		s, storeErr := e.Store.Store(ctx, chunk, "ingest")
		if storeErr != nil {
			return storeErr
		}
		stored = s
		return nil
	})
	if err != nil {
		return core.BabyChunk{}, corekb.NewError(corekb.KindDatabase, "storing chunk", err, "chunk_id", chunk.ChunkID)
	}
	return stored, nil
}

// mapRelationships derives and persists edges over this document's
// just-committed chunk set using a point-in-time snapshot (§4.5, §5
// ordering guarantees).
func (e *Engine) mapRelationships(ctx context.Context, docID core.DocumentID) ([]core.ChunkRelationship, error) {
	rows, err := e.Store.DocumentChunks(ctx, docID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	inputs := make([]relationship.ChunkInput, 0, len(rows))
	for _, r := range rows {
		inputs = append(inputs, relationship.ChunkInput{
			ChunkID:          r.ChunkID,
			DocumentID:       r.DocumentID,
			MotherSectionID:  r.MotherSectionID,
			SectionNumber:    r.SectionNumber,
			SequenceInMother: r.SequenceInMother,
			Kind:             r.Kind,
			GradeLevel:       r.GradeLevel,
			MainConcepts:     r.MainConcepts,
			Content:          r.Content,
			SplitGroupID:     r.SplitGroupID,
			SplitIndex:       r.SplitIndex,
		})
	}

	globalIndex, err := e.Store.GlobalConceptIndex(ctx)
	if err != nil {
		return nil, err
	}
	conceptIndex := make(relationship.ConceptIndex, len(globalIndex))
	for name, refs := range globalIndex {
		out := make([]relationship.ConceptCorpusRef, 0, len(refs))
		for _, r := range refs {
			out = append(out, relationship.ConceptCorpusRef{ChunkID: r.ChunkID, Grade: r.Grade})
		}
		conceptIndex[name] = out
	}

	edges := relationship.Map(inputs, conceptIndex)

	stored := make([]core.ChunkRelationship, 0, len(edges))
	for _, edge := range edges {
		rel, err := withRetryValue(ctx, func() (core.ChunkRelationship, error) {
			return e.Store.AddRelationship(ctx, edge)
		})
		if err != nil {
			e.Logger.Error("storing relationship failed", "relationship_id", edge.RelationshipID, "error", err)
			continue
		}
		stored = append(stored, rel)
	}
	return stored, nil
}

// withRetry retries fn with exponential backoff capped at 5 minutes for
// retryable error kinds (§7 "DatabaseError, DataIntegrityError,
// ConnectionError ... retried with exponential backoff capped at 5
// minutes; after max retries the document is marked failed").
func (e *Engine) withRetry(ctx context.Context, fn func() error) error {
	_, err := withRetryValue(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func withRetryValue[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	const maxAttempts = 5
	const backoffCap = 5 * time.Minute

	backoff := 500 * time.Millisecond
	var zero T
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !corekb.IsRetryable(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > backoffCap {
			backoff = backoffCap
		}
	}
	return zero, lastErr
}
