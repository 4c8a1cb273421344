// Package learningunit implements the Learning-Unit Builder (§4.3): given a
// mother section's content slice, it identifies pedagogical elements, groups
// them into coherent LearningUnits honoring per-kind size envelopes and
// pedagogical-boundary-only splitting, and applies validation/repair and an
// optional LLM-assisted boundary proposal with a deterministic fallback.
//
// Grounded on the teacher's graph/builder.go for the idiom of a
// multi-pass, position-sorted grouping algorithm over extracted elements,
// and on spec.md §4.3 for the exact envelope and boundary-priority rules
// (no equivalent learning-unit builder exists in original_source/, so the
// rule set here is a direct, careful translation of the specification
// itself rather than a port of existing Python).
package learningunit

import "github.com/ncertrag/corekb/core"

// sizeEnvelope bounds how far a "spanning" element's content_end may run.
type sizeEnvelope struct {
	Min, PreferredMax, AbsoluteMax int
}

var envelopes = map[core.SpecialContentKind]sizeEnvelope{
	core.SpecialActivity: {Min: 150, PreferredMax: 1200, AbsoluteMax: 2000},
	core.SpecialExample:  {Min: 100, PreferredMax: 800, AbsoluteMax: 1500},
	core.SpecialBox:      {Min: 50, PreferredMax: 600, AbsoluteMax: 1000},
	"question":           {Min: 20, PreferredMax: 400, AbsoluteMax: 800},
	"concept":            {Min: 50, PreferredMax: 300, AbsoluteMax: 600},
}

var defaultEnvelope = sizeEnvelope{Min: 100, PreferredMax: 800, AbsoluteMax: 1500}

func envelopeFor(kind core.SpecialContentKind) sizeEnvelope {
	if e, ok := envelopes[kind]; ok {
		return e
	}
	return defaultEnvelope
}

// newUnitGapThreshold is the "gap from the last-processed position exceeds
// 2000 chars" rule that forces a new unit to begin even without an
// intervening header (§4.3 grouping rule).
const newUnitGapThreshold = 2000

// pedagogicalSplitFactor: a unit must exceed 1.5x max_chunk_size before a
// pedagogical split is even considered (§4.3 Pedagogical split).
const pedagogicalSplitFactor = 1.5
