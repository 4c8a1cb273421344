package ingest

import (
	"strings"

	"github.com/ncertrag/corekb/parser"
)

// FromParseResult adapts a parser.ParseResult (the out-of-scope PDF/DOCX/
// PPTX extractor collaborator's output, §1) into the §6 ExtractedText
// contract the Section Detector and Learning-Unit Builder consume: a single
// contiguous full_text plus a per-page record list whose character lengths
// are used to derive the char→page map (§6 "the core trusts offsets are in
// character units over full_text and that char_to_page covers every
// offset").
//
// Grounded on the teacher's chunker.go (which already walks ParseResult
// sections to build one logical document stream) generalized from
// "feed a fixed-window chunker" to "feed a page-boundary-aware full text".
func FromParseResult(pr *parser.ParseResult) ExtractedText {
	var flat []flatPiece
	flattenSections(pr.Sections, &flat)

	pages := make(map[int]*strings.Builder)
	var pageOrder []int
	for _, piece := range flat {
		b, ok := pages[piece.page]
		if !ok {
			b = &strings.Builder{}
			pages[piece.page] = b
			pageOrder = append(pageOrder, piece.page)
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(piece.text)
	}

	var full strings.Builder
	records := make([]PageRecord, 0, len(pageOrder))
	for _, pn := range pageOrder {
		text := pages[pn].String()
		if full.Len() > 0 {
			full.WriteString(pageJoinSeparator)
		}
		full.WriteString(text)
		records = append(records, PageRecord{
			PageNumber:    pn,
			Text:          text,
			WordCount:     naiveWordCount(text),
			CharCount:     len(text),
			LineCount:     strings.Count(text, "\n") + 1,
			HasFigures:    strings.Contains(strings.ToLower(text), "fig."),
			HasActivities: strings.Contains(strings.ToLower(text), "activity"),
			IsMostlyEmpty: len(strings.TrimSpace(text)) < 20,
			ExtractionMethod: pr.Method,
		})
	}

	quality := make(QualityBag, len(pr.Metadata))
	for k, v := range pr.Metadata {
		quality[k] = v
	}

	return ExtractedText{FullText: full.String(), Pages: records, Quality: quality}
}

type flatPiece struct {
	page int
	text string
}

func flattenSections(sections []parser.Section, out *[]flatPiece) {
	for _, s := range sections {
		var b strings.Builder
		if s.Heading != "" {
			b.WriteString(s.Heading)
		}
		if s.Content != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(s.Content)
		}
		if b.Len() > 0 {
			*out = append(*out, flatPiece{page: s.PageNumber, text: b.String()})
		}
		if len(s.Children) > 0 {
			flattenSections(s.Children, out)
		}
	}
}
