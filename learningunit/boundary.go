package learningunit

import (
	"regexp"

	"github.com/ncertrag/corekb/textutil"
)

// Boundary priority tiers (§4.3 Boundary search rules). Priority 3 wins over
// 2, which wins over 1.
var (
	ncertSectionBoundary = regexp.MustCompile(`(?i)(what you have learnt|summary|key points|exercises|(multiple choice|short answer|long answer) questions|numerical problems|project work|extended learning)`)
	elementBoundary      = regexp.MustCompile(`(?i)(activity\s+\d{1,2}\.\d{1,2}|example\s+\d{1,2}\.\d{1,2}|fig(?:ure)?\.?\s*\d{1,2}\.\d{1,2}|do you know\??|think (and act|it over)|biography|note\s*:)`)
	majorBoundary        = regexp.MustCompile(`(?m)(^\s*\d{1,2}\.\d{1,2}\s+[A-Z]|chapter\s+\d{1,2})`)
)

// findBoundary searches text[searchStart:searchEnd) for the first match of
// the given priority tier, returning its absolute start offset.
func findBoundary(text string, searchStart, searchEnd int, re *regexp.Regexp) (int, bool) {
	if searchStart < 0 {
		searchStart = 0
	}
	if searchEnd > len(text) {
		searchEnd = len(text)
	}
	if searchStart >= searchEnd {
		return 0, false
	}
	loc := re.FindStringIndex(text[searchStart:searchEnd])
	if loc == nil {
		return 0, false
	}
	return searchStart + loc[0], true
}

// resolveContentEnd implements the full §4.3 boundary search: priority-3
// then priority-2 then priority-1 search within [start+min, start+preferred),
// then the same three searches in [start+preferred, start+absoluteMax), then
// a nearest-sentence-boundary fallback, then completeness repair.
func resolveContentEnd(text string, start int, env sizeEnvelope) int {
	end, ok := searchBoundaryTiers(text, start+env.Min, start+env.PreferredMax)
	if !ok {
		end, ok = searchBoundaryTiers(text, start+env.PreferredMax, start+env.AbsoluteMax)
	}
	if !ok {
		if b := textutil.NextSentenceBoundary(text, start+env.PreferredMax-100, 200); b >= 0 {
			end = b
		} else {
			end = min(start+env.AbsoluteMax, len(text))
		}
	}
	end = min(end, len(text))
	return applyCompletenessRepair(text, start, end)
}

func searchBoundaryTiers(text string, from, to int) (int, bool) {
	if pos, ok := findBoundary(text, from, to, ncertSectionBoundary); ok {
		return pos, true
	}
	if pos, ok := findBoundary(text, from, to, elementBoundary); ok {
		return pos, true
	}
	if pos, ok := findBoundary(text, from, to, majorBoundary); ok {
		return pos, true
	}
	return 0, false
}

// incompleteMarkers are trailing cues that indicate the slice was cut off
// mid-structure (§4.3 completeness repair).
var incompleteMarkers = []string{"Solution:", "Given:", "Materials needed:", "Time required:", "Safety note:"}

func applyCompletenessRepair(text string, start, end int) int {
	tailStart := end - 50
	if tailStart < start {
		tailStart = start
	}
	tail := text[tailStart:end]
	for _, marker := range incompleteMarkers {
		if hasSuffixWord(tail, marker) {
			if b := textutil.NextSentenceBoundary(text, end, 200); b >= 0 {
				return min(b, len(text))
			}
		}
	}
	if !endsAtSentenceBoundary(text, end) {
		maxExtra := start + 2500
		if b := textutil.NextSentenceBoundary(text, end, min(maxExtra, len(text))-end); b >= 0 {
			return min(b, len(text))
		}
	}
	return end
}

func hasSuffixWord(tail, marker string) bool {
	for i := 0; i+len(marker) <= len(tail); i++ {
		if tail[i:i+len(marker)] == marker {
			return true
		}
	}
	return false
}

func endsAtSentenceBoundary(text string, pos int) bool {
	if pos == 0 || pos >= len(text) {
		return true
	}
	c := text[pos-1]
	return c == '.' || c == '?' || c == '!'
}

// absorbTrailingConclusion implements the "learning-unit completion" rule
// for activities lacking a concluding phrase: try to extend end by up to
// 500 chars to the next sentence boundary.
func absorbTrailingConclusion(text string, end int) int {
	b := textutil.NextSentenceBoundary(text, end, 500)
	if b < 0 {
		return end
	}
	return b
}

// absorbShortSolution implements the example-completion rule: if the
// element's tail Solution looks truncated, extend up to 800 chars to the
// next sentence boundary.
func absorbShortSolution(text string, end int) int {
	b := textutil.NextSentenceBoundary(text, end, 800)
	if b < 0 {
		return end
	}
	return b
}
