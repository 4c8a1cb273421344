package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	corekb "github.com/ncertrag/corekb"
	"github.com/ncertrag/corekb/core"
	"github.com/ncertrag/corekb/store"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := store.New(dbPath, 8)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := corekb.DefaultConfig()
	engine, err := New(cfg, st, nil, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return engine
}

// sampleChapterText mirrors spec.md §8 scenario S2: an intro, two numbered
// sections (one with an activity and an example), a summary, and exercises.
func sampleChapterText() string {
	intro := strings.Repeat("This chapter introduces the idea of force and motion in everyday life. ", 4)
	body1 := "8.1 Force and Motion\n" +
		strings.Repeat("A force can change the state of motion of an object in predictable ways. ", 10) +
		"\nActivity 8.1\n" + strings.Repeat("Take a ball and push it gently across a smooth floor and observe. ", 4) +
		"\nFrom this activity we learn that an unbalanced force changes an object's state of motion.\n" +
		"Example 8.1\nA trolley of mass 2 kg is pushed with a force of 10 N. Find its acceleration.\n" +
		"Solution: Using F = ma, a = F/m = 10/2 = 5 m/s-squared.\n"
	body2 := "8.2 Newton's Laws\n" +
		strings.Repeat("Newton's first law states that a body continues in its state unless acted upon by a net external force. ", 10)
	summary := "What you have learnt\nForce changes motion. Newton's laws govern mechanics.\n"
	exercises := "Exercises\n1. State Newton's first law of motion.\n2. Define force.\n"
	return intro + body1 + body2 + summary + exercises
}

func TestIngestDocumentEndToEnd(t *testing.T) {
	engine := newTestEngine(t)
	text := sampleChapterText()

	req := DocumentRequest{
		DocumentID:  "doc1",
		Title:       "Chapter 8",
		ContentKind: core.ContentKindText,
		FilePath:    "chapter8.txt",
		ByteSize:    int64(len(text)),
		ContentHash: "deadbeef",
		Subject:     "Physics",
		GradeLevel:  "8",
		Curriculum:  "NCERT",
		Language:    "en",
	}
	extracted := ExtractedText{FullText: text, Pages: []PageRecord{{PageNumber: 1, Text: text}}}

	result, err := engine.IngestDocument(context.Background(), req, extracted)
	if err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}

	if result.Document.Status != core.StatusCompleted {
		t.Errorf("expected status completed, got %s (issues: %v)", result.Document.Status, result.SectionIssues)
	}
	if len(result.Sections) < 4 {
		t.Errorf("expected at least 4 mother sections (intro, 8.1, 8.2, summary/exercises), got %d", len(result.Sections))
	}
	if len(result.Chunks) == 0 {
		t.Fatalf("expected at least one chunk to be stored")
	}

	for i := 0; i+1 < len(result.Sections); i++ {
		if result.Sections[i].End > result.Sections[i+1].Start {
			t.Errorf("section %d overlaps section %d: [%d,%d) vs [%d,%d)",
				i, i+1, result.Sections[i].Start, result.Sections[i].End,
				result.Sections[i+1].Start, result.Sections[i+1].End)
		}
	}

	for _, c := range result.Chunks {
		if c.QualityScore < 0 || c.QualityScore > 1 {
			t.Errorf("chunk %s quality score out of bounds: %v", c.ChunkID, c.QualityScore)
		}
		if c.Content == "" {
			t.Errorf("chunk %s has empty content", c.ChunkID)
		}
	}
}

func TestIngestDocumentIsIdempotent(t *testing.T) {
	engine := newTestEngine(t)
	text := sampleChapterText()
	req := DocumentRequest{
		DocumentID:  "doc1",
		Title:       "Chapter 8",
		ContentKind: core.ContentKindText,
		Subject:     "Physics",
		GradeLevel:  "8",
		Curriculum:  "NCERT",
		Language:    "en",
		ContentHash: "deadbeef",
	}
	extracted := ExtractedText{FullText: text, Pages: []PageRecord{{PageNumber: 1, Text: text}}}

	first, err := engine.IngestDocument(context.Background(), req, extracted)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	second, err := engine.IngestDocument(context.Background(), req, extracted)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	if len(first.Chunks) != len(second.Chunks) {
		t.Fatalf("chunk count changed across identical re-ingest: %d vs %d", len(first.Chunks), len(second.Chunks))
	}
	firstVersions := make(map[core.ChunkID]int, len(first.Chunks))
	for _, c := range first.Chunks {
		firstVersions[c.ChunkID] = c.Version
	}
	for _, c := range second.Chunks {
		if firstVersions[c.ChunkID] != c.Version {
			t.Errorf("chunk %s got a new version on unchanged re-ingest: %d -> %d", c.ChunkID, firstVersions[c.ChunkID], c.Version)
		}
	}
}

func TestIngestDocumentNoHeadersStillCompletes(t *testing.T) {
	engine := newTestEngine(t)
	text := strings.Repeat("Plain prose with no numbered sections at all, just running text. ", 10)
	req := DocumentRequest{
		DocumentID: "doc2",
		Title:      "Untitled",
		Subject:    "Biology",
		GradeLevel: "6",
		Curriculum: "NCERT",
		Language:   "en",
	}
	extracted := ExtractedText{FullText: text}

	result, err := engine.IngestDocument(context.Background(), req, extracted)
	if err != nil {
		t.Fatalf("IngestDocument: %v", err)
	}
	if result.Document.Status != core.StatusCompleted && result.Document.Status != core.StatusFailed {
		t.Errorf("unexpected status %s", result.Document.Status)
	}
}
