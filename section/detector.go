// Package section implements the Section Detector (§4.2): given extracted
// text and a char→page map, it emits an ordered list of core.MotherSection
// for one document, including sentinel intro/summary/exercises sections and
// the in-section pedagogical special-content inventory.
//
// Grounded on _examples/original_source/dynamic_rag_system's
// section_detector.py (not directly present in the retrieved pack beyond
// pattern_library.py's companion classes) and on the teacher's
// chunker/structure.go for the idiom of a phased, synchronous detector over
// a compiled pattern table.
package section

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ncertrag/corekb/core"
	"github.com/ncertrag/corekb/patternlib"
	"github.com/ncertrag/corekb/textutil"
)

// PageMap maps an absolute character offset to a 1-based page number. A nil
// PageMap is treated as "page unknown" (0) throughout.
type PageMap func(offset int) int

// activityBucketWidth is the position-bucket width used to deduplicate
// activities that share an identifier but recur at different document
// locations (§4.2 phase 3).
const activityBucketWidth = 100

// minIntroLength is how far the intro text must run before phase 4
// bothers inserting a Chapter_Intro sentinel (§4.2 phase 4).
const minIntroLength = 100

// Detector runs the five-phase section detection pipeline.
type Detector struct {
	Library *patternlib.Library
	Logger  *slog.Logger

	HeaderThreshold  float64 // default 0.7, §4.2 phase 1
	ContentThreshold float64 // threshold for in-section special content matches
}

// NewDetector builds a Detector with the given header and in-section
// content match thresholds (the caller threads these through from
// corekb.Config.Detection).
func NewDetector(lib *patternlib.Library, headerThreshold, contentThreshold float64, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{
		Library:          lib,
		Logger:           logger,
		HeaderThreshold:  headerThreshold,
		ContentThreshold: contentThreshold,
	}
}

// Issue is a non-fatal validation finding from DetectSections (§4.2
// Validation).
type Issue struct {
	Kind    string
	Detail  string
	Section string // section_number, when applicable
}

// DetectSections runs all five phases over text for one document and
// returns the ordered mother sections plus any validation issues. Nothing
// here is fatal: an empty result with issues is a valid outcome, since a
// badly structured source document is expected input, not a caller error.
func (d *Detector) DetectSections(ctx context.Context, text string, pageMap PageMap, subject, grade, language string) ([]core.MotherSection, []Issue, error) {
	if pageMap == nil {
		pageMap = func(int) int { return 0 }
	}

	headers, err := d.Library.FindMatches(text, core.PatternSectionHeader, subject, grade, language, d.HeaderThreshold)
	if err != nil {
		return nil, nil, fmt.Errorf("section: detecting headers: %w", err)
	}
	headers = dedupeHeadersByNumber(headers)
	sort.Slice(headers, func(i, j int) bool { return headers[i].Start < headers[j].Start })

	sections := d.buildSections(text, headers, subject, grade, language)
	sections = d.addIntroAndEndMatter(text, sections, subject, grade, language)

	for i := range sections {
		sections[i].PageNumber = pageMap(sections[i].Start)
		sections[i].Version = 1
	}

	issues := validateSections(sections)
	return sections, issues, nil
}

// buildSections implements phases 2-3 and 5: boundary construction from
// header matches, per-section special-content detection, and conversion to
// core.MotherSection.
func (d *Detector) buildSections(text string, headers []patternlib.Match, subject, grade, language string) []core.MotherSection {
	sections := make([]core.MotherSection, 0, len(headers))
	for i, h := range headers {
		start := h.Start
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1].Start
		}

		number, title := headerNumberAndTitle(h)
		slice := text[start:end]
		special, _ := d.detectSpecialContent(slice, start, subject, grade, language)

		conf := d.headerConfidence(h, title, text)

		sections = append(sections, core.MotherSection{
			SectionNumber:  number,
			Title:          title,
			Start:          start,
			End:            end,
			ContentLength:  end - start,
			WordCount:      textutil.WordCount(slice),
			Confidence:     conf,
			SpecialContent: special,
			ContentPreview: textutil.Truncate(strings.TrimSpace(slice), 200),
		})
	}
	return sections
}

// headerConfidence applies the §4.2-specific bonuses on top of the §4.1
// match confidence already computed by the Pattern Library.
func (d *Detector) headerConfidence(h patternlib.Match, title string, text string) float64 {
	conf := h.Confidence

	if textutil.WordCount(title) >= 2 {
		conf += 0.05
	}
	if len(title) > 20 {
		conf += 0.02
	}
	if h.Start == 0 || text[h.Start-1] == '\n' {
		conf += 0.05
	}
	afterEnd := h.End + 100
	if afterEnd > len(text) {
		afterEnd = len(text)
	}
	after := ""
	if h.End < len(text) {
		after = text[h.End:afterEnd]
	}
	if !looksLikeAnotherHeader(after) {
		conf += 0.03
	}

	return core.ClampConfidence(conf)
}

var headerLikeLine = func() func(string) bool {
	return func(s string) bool {
		for _, line := range strings.SplitN(strings.TrimLeft(s, "\n"), "\n", 2) {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			return looksNumberedHeader(line)
		}
		return false
	}
}()

func looksLikeAnotherHeader(s string) bool {
	return headerLikeLine(s)
}

func looksNumberedHeader(line string) bool {
	i := 0
	digits := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
		digits++
	}
	if digits == 0 || i >= len(line) || line[i] != '.' {
		return false
	}
	return true
}

// headerNumberAndTitle extracts the section number and title from a header
// match, tolerating patterns with only a number capture group (e.g. a bare
// chapter heading).
func headerNumberAndTitle(m patternlib.Match) (number, title string) {
	switch {
	case len(m.Groups) >= 2:
		return strings.TrimSpace(m.Groups[0]), strings.TrimSpace(m.Groups[1])
	case len(m.Groups) == 1:
		n := strings.TrimSpace(m.Groups[0])
		return n, "Chapter " + n
	default:
		return strings.TrimSpace(m.Text), strings.TrimSpace(m.Text)
	}
}

// detectSpecialContent runs the in-section pattern searches of phase 3. It
// returns the deduplicated inventory and the count of figure_reference
// matches filtered out (logged by the caller, never persisted — §4.2 phase
// 3: reference-kind figures are "matched and counted only").
func (d *Detector) detectSpecialContent(slice string, sectionStart int, subject, grade, language string) (map[core.SpecialContentKind][]core.SpecialContentItem, int) {
	out := make(map[core.SpecialContentKind][]core.SpecialContentItem)

	activitySeen := make(map[string]bool)
	for _, m := range d.findIn(slice, core.PatternActivity, subject, grade, language) {
		id := identifierFromMatch(m)
		bucket := fmt.Sprintf("%s@%d", id, (m.Start/activityBucketWidth)*activityBucketWidth)
		if activitySeen[bucket] {
			continue
		}
		activitySeen[bucket] = true
		out[core.SpecialActivity] = append(out[core.SpecialActivity], newItem(core.SpecialActivity, id, m, sectionStart))
	}

	for _, m := range d.findIn(slice, core.PatternExample, subject, grade, language) {
		id := identifierFromMatch(m)
		out[core.SpecialExample] = append(out[core.SpecialExample], newItem(core.SpecialExample, id, m, sectionStart))
	}

	figureSeen := make(map[string]bool)
	for _, m := range d.findIn(slice, core.PatternFigureContent, subject, grade, language) {
		id := identifierFromMatch(m)
		if figureSeen[id] {
			continue
		}
		figureSeen[id] = true
		out[core.SpecialFigureContent] = append(out[core.SpecialFigureContent], newItem(core.SpecialFigureContent, id, m, sectionStart))
	}

	refCount := len(d.findIn(slice, core.PatternFigureReference, subject, grade, language))

	for _, m := range d.findIn(slice, core.PatternSpecialBox, subject, grade, language) {
		id := identifierFromMatch(m)
		out[core.SpecialBox] = append(out[core.SpecialBox], newItem(core.SpecialBox, id, m, sectionStart))
	}

	for _, m := range d.findIn(slice, core.PatternMathematical, subject, grade, language) {
		id := identifierFromMatch(m)
		out[core.SpecialMathematical] = append(out[core.SpecialMathematical], newItem(core.SpecialMathematical, id, m, sectionStart))
	}

	return out, refCount
}

func (d *Detector) findIn(slice string, kind core.PatternType, subject, grade, language string) []patternlib.Match {
	matches, err := d.Library.FindMatches(slice, kind, subject, grade, language, d.ContentThreshold)
	if err != nil {
		d.Logger.Warn("special content detection failed", "kind", kind, "error", err)
		return nil
	}
	return matches
}

func identifierFromMatch(m patternlib.Match) string {
	if len(m.Groups) > 0 && m.Groups[0] != "" {
		return m.Groups[0]
	}
	return textutil.Truncate(strings.TrimSpace(m.Text), 20)
}

func newItem(kind core.SpecialContentKind, id string, m patternlib.Match, sectionStart int) core.SpecialContentItem {
	return core.SpecialContentItem{
		Kind:           kind,
		Identifier:     id,
		RelativeOffset: m.Start,
		AbsoluteOffset: sectionStart + m.Start,
		Preview:        textutil.Truncate(strings.TrimSpace(m.Text), 80),
		Confidence:     m.Confidence,
	}
}

func dedupeHeadersByNumber(matches []patternlib.Match) []patternlib.Match {
	earliest := make(map[string]patternlib.Match)
	var order []string
	for _, m := range matches {
		number, _ := headerNumberAndTitle(m)
		if existing, ok := earliest[number]; !ok || m.Start < existing.Start {
			if !ok {
				order = append(order, number)
			}
			earliest[number] = m
		}
	}
	out := make([]patternlib.Match, 0, len(order))
	for _, n := range order {
		out = append(out, earliest[n])
	}
	return out
}

// validateSections implements the §4.2 Validation rules: these are
// reported, never fatal.
func validateSections(sections []core.MotherSection) []Issue {
	var issues []Issue
	if len(sections) == 0 {
		issues = append(issues, Issue{Kind: "zero_sections", Detail: "no mother sections detected"})
		return issues
	}

	sorted := append([]core.MotherSection(nil), sections...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Start < sorted[i-1].End {
			issues = append(issues, Issue{
				Kind:    "overlapping_sections",
				Detail:  fmt.Sprintf("%q overlaps %q", sorted[i-1].SectionNumber, sorted[i].SectionNumber),
				Section: sorted[i].SectionNumber,
			})
		}
	}

	for _, s := range sections {
		if s.WordCount < 50 {
			issues = append(issues, Issue{Kind: "low_word_count", Detail: fmt.Sprintf("%d words", s.WordCount), Section: s.SectionNumber})
		}
		if s.Confidence < 0.5 {
			issues = append(issues, Issue{Kind: "low_confidence", Detail: fmt.Sprintf("%.2f", s.Confidence), Section: s.SectionNumber})
		}
	}
	return issues
}
