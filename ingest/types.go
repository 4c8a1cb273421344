// Package ingest implements the orchestration Engine that ties the Pattern
// Library, Section Detector, Learning-Unit Builder, Metadata Extractor,
// Relationship Mapper, and Chunk Store into the §2 pipeline: extracted text
// in, versioned chunks and relationship edges out. It is the one package
// that knows about every other stage; none of them import it.
//
// Grounded on the teacher's goreason.go (the top-level Engine type wiring
// parser → chunker → graph → store into one Ingest call) generalized from a
// single-pass document chunker to the two-stage detect/build pipeline §2
// describes, and on cmd/server's handleIngest for the document lifecycle
// state machine (queued → processing → completed/failed).
package ingest

import "github.com/ncertrag/corekb/core"

// PageRecord is one page's extraction record from the PDF extractor
// collaborator (§6 "per-page records"). Only the fields the core actually
// consumes are modeled; extraction-quality fields pass through untouched
// for downstream logging.
type PageRecord struct {
	PageNumber      int
	TextbookPage    string
	Text            string
	WordCount       int
	CharCount       int
	LineCount       int
	HasFigures      bool
	HasActivities   bool
	IsMostlyEmpty   bool
	ExtractionMethod string
	Confidence      float64
}

// QualityBag is the free-form aggregate quality metric bundle the PDF
// extractor attaches to a full extraction run (§6 "aggregate counts and a
// quality metric bag"). The core never inspects its contents; it is
// logged and passed through to the document record for observability.
type QualityBag map[string]any

// ExtractedText is the §6 "Extracted text input" contract: the core trusts
// that offsets are character units over FullText and that CharToPage
// covers every offset in range.
type ExtractedText struct {
	FullText string
	Pages    []PageRecord
	Quality  QualityBag

	// charToPage is built lazily from Pages by PageAt.
	charToPage []int // charToPage[i] = absolute end-offset of page i (cumulative)
}

// pageJoinSeparator is the exact separator FromParseResult inserts between
// consecutive pages when assembling FullText. PageAt's cumulative offsets
// must account for it or the char→page map drifts by one separator length
// per page boundary.
const pageJoinSeparator = "\n"

// PageAt returns the 1-based page number containing offset, derived from
// the cumulative character lengths of Pages in order (plus one
// pageJoinSeparator between each pair, matching how FromParseResult
// assembles FullText). Returns 0 ("page unknown") if Pages is empty; an
// offset past the last page's end maps to the last page.
func (e *ExtractedText) PageAt(offset int) int {
	if len(e.Pages) == 0 {
		return 0
	}
	if e.charToPage == nil {
		e.charToPage = make([]int, len(e.Pages))
		cum := 0
		for i, p := range e.Pages {
			if i > 0 {
				cum += len(pageJoinSeparator)
			}
			cum += len(p.Text)
			e.charToPage[i] = cum
		}
	}
	for i, end := range e.charToPage {
		if offset < end {
			pn := e.Pages[i].PageNumber
			if pn == 0 {
				pn = i + 1
			}
			return pn
		}
	}
	last := e.Pages[len(e.Pages)-1]
	if last.PageNumber == 0 {
		return len(e.Pages)
	}
	return last.PageNumber
}

// TotalWords sums word counts across pages, falling back to a naive count
// over FullText when no per-page records are available.
func (e *ExtractedText) TotalWords() int {
	if len(e.Pages) == 0 {
		return naiveWordCount(e.FullText)
	}
	n := 0
	for _, p := range e.Pages {
		n += p.WordCount
	}
	return n
}

func naiveWordCount(s string) int {
	n := 0
	inWord := false
	for _, r := range s {
		isSpace := r == ' ' || r == '\n' || r == '\t' || r == '\r'
		if !isSpace && !inWord {
			n++
		}
		inWord = !isSpace
	}
	return n
}

// DocumentRequest is the caller-supplied half of an ingest call: everything
// about the SourceDocument the core cannot derive from the extracted text
// itself (§3 SourceDocument — content kind, subject/grade/curriculum
// classification, the file's own identity).
type DocumentRequest struct {
	DocumentID  core.DocumentID
	Title       string
	ContentKind core.ContentKind
	FilePath    string
	ByteSize    int64
	ContentHash string // SHA-256 hex of the raw source bytes, computed by the caller
	Subject     string
	GradeLevel  string
	Curriculum  string
	Language    string
}

// Result is what IngestDocument returns: the final document record, the
// mother sections detected, the chunks written (already at their post-store
// version), the relationship edges derived from this document's chunks, and
// any non-fatal issues accumulated along the way.
type Result struct {
	Document      core.SourceDocument
	Sections      []core.MotherSection
	Chunks        []core.BabyChunk
	Relationships []core.ChunkRelationship
	SectionIssues map[core.SectionID][]string
}
