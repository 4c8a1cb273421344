package learningunit

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/ncertrag/corekb/core"
	"github.com/ncertrag/corekb/patternlib"
	"github.com/ncertrag/corekb/textutil"
	"github.com/tiendc/go-deepcopy"
)

// spanningKinds get a content_end computed via the boundary search; the
// rest are single-position markers recorded at their match offset only.
var spanningKinds = map[core.SpecialContentKind]bool{
	core.SpecialActivity: true,
	core.SpecialExample:  true,
	core.SpecialBox:      true,
	"question":           true,
	"assessment":          true,
}

// elementKindPatterns maps each identified element kind to the Pattern
// Library kind(s) used to find it (§4.3 Element identification).
var elementKindPatterns = map[core.SpecialContentKind][]core.PatternType{
	core.SpecialActivity:     {core.PatternActivity, core.PatternHandsOnActivity},
	core.SpecialExample:      {core.PatternExample},
	core.SpecialFigureContent: {core.PatternFigureContent},
	core.SpecialBox:          {core.PatternSpecialBox},
	"concept":                {core.PatternConcept, core.PatternBasicConcept},
	"question":               {core.PatternQuestion},
	"formula":                {core.PatternFormula},
	core.SpecialMathematical: {core.PatternMathematical},
	"cross_reference":        {core.PatternCrossReference},
	"assessment":             {core.PatternAssessmentElement},
	"pedagogical_marker":     {core.PatternPedagogicalMarker},
}

// BoundaryProposer is the optional LLM-assist hook (§4.3, §6): given section
// text, it may return a set of proposed unit boundaries. A nil Proposer (or
// one returning an error) falls back to the deterministic rule-based path,
// which must be sufficient on its own.
type BoundaryProposer interface {
	ProposeBoundaries(ctx context.Context, text string) ([]ProposedUnit, error)
}

// ProposedUnit mirrors the (start, end, unit_type, educational_elements,
// description) shape of an LLM boundary proposal (§4.3, §6).
type ProposedUnit struct {
	Start, End           int
	UnitType             string
	EducationalElements  []string
	Description          string
}

// Builder runs the element-identification, grouping, and validation/repair
// pipeline.
type Builder struct {
	Library  *patternlib.Library
	Proposer BoundaryProposer
	Logger   *slog.Logger

	MinChunkSize int // default 500
	MaxChunkSize int // default 2000

	ElementThreshold float64
}

// NewBuilder constructs a Builder. proposer may be nil.
func NewBuilder(lib *patternlib.Library, proposer BoundaryProposer, minChunkSize, maxChunkSize int, elementThreshold float64, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		Library:          lib,
		Proposer:         proposer,
		Logger:           logger,
		MinChunkSize:     minChunkSize,
		MaxChunkSize:     maxChunkSize,
		ElementThreshold: elementThreshold,
	}
}

// rawElement is an identified element before grouping.
type rawElement struct {
	Kind         core.SpecialContentKind
	AbsPos       int
	Identifier   string
	ContentStart int
	ContentEnd   int
	Confidence   float64
}

// BuildUnits runs the full pipeline over one mother section's content slice
// (slice is the section's own text). Every offset in the returned units —
// Start/End and each member's AbsolutePos/ContentStart/ContentEnd — is
// relative to slice, not to the whole document.
func (b *Builder) BuildUnits(ctx context.Context, slice string, subject, grade, language string) ([]core.LearningUnit, error) {
	elements, err := b.identifyElements(slice, subject, grade, language)
	if err != nil {
		return nil, fmt.Errorf("learningunit: identifying elements: %w", err)
	}
	ruleBased := b.validateAndRepair(slice, b.groupElements(slice, elements))

	if b.Proposer != nil && len(slice) > 500 {
		// The rule-based path must be sufficient on its own, so it is
		// deep-copied before the optional LLM path is attempted: a
		// malformed proposal can never corrupt the fallback we'd return.
		var preserved []core.LearningUnit
		if err := deepcopy.Copy(&preserved, &ruleBased); err != nil {
			b.Logger.Warn("deep-copying rule-based units failed, skipping LLM assist", "error", err)
			return assignUnitIDs(ruleBased), nil
		}

		if proposals, err := b.Proposer.ProposeBoundaries(ctx, slice); err == nil && len(proposals) > 0 {
			units, convErr := b.unitsFromProposals(slice, proposals)
			if convErr == nil {
				return assignUnitIDs(units), nil
			}
			b.Logger.Warn("LLM boundary proposal rejected, falling back to rule-based path", "error", convErr)
		} else if err != nil {
			b.Logger.Debug("LLM boundary proposal unavailable, using rule-based path", "error", err)
		}
		return assignUnitIDs(preserved), nil
	}

	return assignUnitIDs(ruleBased), nil
}

// assignUnitIDs gives every unit lacking one a fresh opaque identifier
// (§3 UnitID — not a content hash, since a unit's boundaries can shift
// across re-ingest even when its content doesn't).
func assignUnitIDs(units []core.LearningUnit) []core.LearningUnit {
	for i := range units {
		if units[i].UnitID == "" {
			units[i].UnitID = core.UnitID(uuid.NewString())
		}
	}
	return units
}

// identifyElements implements §4.3 Element identification: find all matches
// per kind, computing content_end for spanning kinds via boundary search.
func (b *Builder) identifyElements(slice string, subject, grade, language string) ([]rawElement, error) {
	var elements []rawElement
	for kind, patternTypes := range elementKindPatterns {
		for _, pt := range patternTypes {
			matches, err := b.Library.FindMatches(slice, pt, subject, grade, language, b.ElementThreshold)
			if err != nil {
				return nil, err
			}
			for _, m := range matches {
				el := rawElement{
					Kind:         kind,
					AbsPos:       m.Start,
					Identifier:   identifierFromMatch(m),
					ContentStart: m.Start,
					Confidence:   m.Confidence,
				}
				if spanningKinds[kind] {
					env := envelopeFor(kind)
					el.ContentEnd = resolveContentEnd(slice, m.Start, env)
					el.ContentEnd = b.applyCompletionHeuristics(slice, kind, el.ContentEnd)
				} else {
					el.ContentEnd = m.End
				}
				elements = append(elements, el)
			}
		}
	}
	sort.Slice(elements, func(i, j int) bool { return elements[i].AbsPos < elements[j].AbsPos })
	return elements, nil
}

func (b *Builder) applyCompletionHeuristics(slice string, kind core.SpecialContentKind, end int) int {
	switch kind {
	case core.SpecialActivity:
		tail := slice[max(0, end-300):end]
		if !containsAny(tail, "from this activity", "we learn", "demonstrates", "shows that") {
			return absorbTrailingConclusion(slice, end)
		}
	case core.SpecialExample:
		if idx := strings.LastIndex(slice[:end], "Solution"); idx >= 0 && end-idx < 50 {
			return absorbShortSolution(slice, end)
		}
	}
	return end
}

func containsAny(haystack string, needles ...string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

func identifierFromMatch(m patternlib.Match) string {
	if len(m.Groups) > 0 && m.Groups[0] != "" {
		return m.Groups[0]
	}
	return textutil.Truncate(strings.TrimSpace(m.Text), 20)
}
