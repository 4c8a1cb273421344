// Package patternlib implements the Pattern Library (§4.1): a typed,
// versioned regex catalogue with subject/grade/language filters, a
// confidence-scoring function with context bonuses, and an exponential
// moving average of per-pattern success rate.
//
// Grounded on _examples/original_source/dynamic_rag_system/chunking/pattern_library.py
// and on the teacher's chunker/structure.go for the idiom of compiled,
// package-level regex tables plus small classifier predicate helpers.
package patternlib

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/ncertrag/corekb/core"
)

// Pattern is one entry in the library: a compiled regex plus the metadata
// fields that gate which document it applies to and how confident a match
// from it should be treated.
type Pattern struct {
	core.PatternMeta
	RegexSource string
	re          *regexp.Regexp
	seeded      bool // true once UpdatePerformance has recorded a first observation
}

// NewPattern compiles regexSrc and validates it against every worked
// example. A pattern whose regex fails to compile, or whose worked examples
// fail to match, is rejected — "loading a pattern with a failing example is
// an error" (§3 Pattern invariant).
func NewPattern(meta core.PatternMeta, regexSrc string) (*Pattern, error) {
	re, err := regexp.Compile(regexSrc)
	if err != nil {
		return nil, fmt.Errorf("patternlib: pattern %q: invalid regex: %w", meta.PatternID, err)
	}
	p := &Pattern{PatternMeta: meta, RegexSource: regexSrc, re: re}
	for _, ex := range meta.Examples {
		if !re.MatchString(ex) {
			return nil, fmt.Errorf("patternlib: pattern %q: worked example %q does not match", meta.PatternID, ex)
		}
	}
	if p.LastUpdated.IsZero() {
		p.LastUpdated = time.Now()
	}
	if p.Version == "" {
		p.Version = "1.0"
	}
	if p.Curriculum == "" {
		p.Curriculum = "NCERT"
	}
	if p.Language == "" {
		p.Language = "en"
	}
	return p, nil
}

// Match is one non-overlapping regex match with its computed confidence.
type Match struct {
	Pattern    *Pattern
	Start, End int
	Text       string
	Groups     []string
	Confidence float64
}

// FindAll enumerates every non-overlapping match of the pattern's regex in
// text. A runtime regexp panic (Go's regexp package does not itself error
// at match time, but custom patterns compiled via AddCustomPattern could in
// principle carry pathological input) is recovered so one bad pattern never
// aborts the caller's loop over the whole library.
func (p *Pattern) FindAll(text string) (matches []Match, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("patternlib: pattern %q: panic during match: %v", p.PatternID, r)
		}
	}()
	for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[0], loc[1]
		groups := make([]string, 0, len(loc)/2-1)
		for i := 2; i < len(loc); i += 2 {
			if loc[i] < 0 {
				groups = append(groups, "")
				continue
			}
			groups = append(groups, text[loc[i]:loc[i+1]])
		}
		matches = append(matches, Match{
			Pattern: p,
			Start:   start,
			End:     end,
			Text:    text[start:end],
			Groups:  groups,
		})
	}
	return matches, nil
}

// contextBonusWindow is the ≈200-char window (±100 either side) used to
// look for chapter/section/lesson context cues (§4.1).
const contextBonusWindow = 100

var contextCueWords = []string{"chapter", "section", "lesson"}

// CalculateConfidence computes the per-match confidence for a match at
// [start, end) within text: base confidence plus the context bonuses in
// §4.1, clamped to [0, 0.95]. The success-rate EMA multiplier is applied by
// the caller (Library.FindMatches), not here, since it is a library-wide
// concern rather than a per-match one.
func (p *Pattern) CalculateConfidence(start, end int, text string) float64 {
	conf := p.ConfidenceBase

	ctxStart := start - contextBonusWindow
	if ctxStart < 0 {
		ctxStart = 0
	}
	ctxEnd := end + contextBonusWindow
	if ctxEnd > len(text) {
		ctxEnd = len(text)
	}
	ctx := strings.ToLower(text[ctxStart:ctxEnd])
	for _, w := range contextCueWords {
		if strings.Contains(ctx, w) {
			conf += 0.1
			break
		}
	}

	if start > 0 && isAlnumByte(text[start-1]) {
		conf -= 0.2
	}

	if start == 0 || text[start-1] == '\n' {
		conf += 0.05
	}

	after := ""
	afterEnd := end + 100
	if afterEnd > len(text) {
		afterEnd = len(text)
	}
	if end < len(text) {
		after = text[end:afterEnd]
	}
	if !looksLikeSectionHeaderLine(after) {
		conf += 0.03
	}

	if p.Kind == core.PatternSectionHeader {
		title := strings.TrimSpace(text[start:end])
		if wordCount(title) >= 2 {
			conf += 0.05
		}
	}

	return core.ClampConfidence(conf)
}

func isAlnumByte(b byte) bool {
	r := rune(b)
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// looksLikeSectionHeaderLine is a light, library-internal check (not the
// full Section Detector) used only to implement the "+0.03 if the text just
// after the match is not another section header" bonus without creating an
// import cycle back to the section package.
var quickHeaderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^\s*\d+\.\d+\s+[A-Z]`),
	regexp.MustCompile(`(?m)^\s*(What you have learnt|Summary|SUMMARY|Exercises)\b`),
}

func looksLikeSectionHeaderLine(s string) bool {
	for _, re := range quickHeaderPatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
