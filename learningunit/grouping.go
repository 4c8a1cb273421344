package learningunit

import (
	"regexp"
	"strings"

	"github.com/ncertrag/corekb/core"
)

// newSectionMarker detects the intervening-header rule for starting a new
// unit mid-section: a numbered subsection header or a "Chapter N" line
// appearing between the last-processed position and the next element
// (§4.3 Grouping into units).
var newSectionMarker = regexp.MustCompile(`(?m)(^\s*\d{1,2}\.\d{1,2}\s+[A-Z]|chapter\s+\d{1,2})`)

// groupElements implements §4.3 "Grouping into units": sort by position, cut
// a new unit on an intervening header or a >2000-char gap, otherwise append
// to the current unit's appropriate bucket.
func (b *Builder) groupElements(slice string, elements []rawElement) []core.LearningUnit {
	if len(elements) == 0 {
		if len(strings.TrimSpace(slice)) > 100 {
			return []core.LearningUnit{{
				Start:           0,
				End:             len(slice),
				IntroContent:    slice,
				EducationalFlow: core.FlowIntroOnly,
			}}
		}
		return nil
	}

	var units []core.LearningUnit
	var cur *core.LearningUnit
	lastPos := 0

	flush := func() {
		if cur == nil {
			return
		}
		if cur.End < lastPos {
			cur.ConclusionContent = slice[cur.End:min(lastPos, len(slice))]
			cur.End = lastPos
		}
		cur.EducationalFlow = classifyFlow(cur)
		units = append(units, *cur)
		cur = nil
	}

	for _, el := range elements {
		if cur != nil {
			between := slice[min(lastPos, len(slice)):min(el.AbsPos, len(slice))]
			gap := el.AbsPos - lastPos
			if newSectionMarker.MatchString(between) || gap > newUnitGapThreshold {
				flush()
			}
		}

		if cur == nil {
			cur = &core.LearningUnit{Start: el.AbsPos}
			cur.IntroContent = slice[min(cur.Start, len(slice)):min(el.AbsPos, len(slice))]
			if el.AbsPos > 0 && cur.Start == el.AbsPos {
				// First element in the unit: intro is everything since the
				// previous unit ended (captured via lastPos below for
				// subsequent elements, but the very first unit's intro runs
				// from 0).
				if len(units) == 0 {
					cur.Start = 0
					cur.IntroContent = slice[:min(el.AbsPos, len(slice))]
				} else {
					cur.Start = lastPos
					cur.IntroContent = slice[min(lastPos, len(slice)):min(el.AbsPos, len(slice))]
				}
			}
		}

		member := core.ElementMember{
			Kind:         el.Kind,
			Identifier:   el.Identifier,
			ContentStart: el.ContentStart,
			ContentEnd:   el.ContentEnd,
			AbsolutePos:  el.AbsPos,
			Content:      slice[min(el.ContentStart, len(slice)):min(el.ContentEnd, len(slice))],
		}
		appendMember(cur, member)

		if el.ContentEnd > cur.End {
			cur.End = el.ContentEnd
		}
		if el.ContentEnd > lastPos {
			lastPos = el.ContentEnd
		}
	}
	flush()

	return units
}

// appendMember places a member into its corresponding LearningUnit bucket.
func appendMember(u *core.LearningUnit, m core.ElementMember) {
	switch m.Kind {
	case core.SpecialActivity:
		u.Activities = append(u.Activities, m)
	case core.SpecialExample:
		u.Examples = append(u.Examples, m)
	case core.SpecialFigureContent:
		u.Figures = append(u.Figures, m)
	case core.SpecialBox:
		u.SpecialBoxes = append(u.SpecialBoxes, m)
	case core.SpecialMathematical:
		u.MathematicalExpressions = append(u.MathematicalExpressions, m)
	case "question":
		u.Questions = append(u.Questions, m)
	case "formula":
		u.Formulas = append(u.Formulas, m)
	case "cross_reference":
		u.CrossReferences = append(u.CrossReferences, m)
	case "assessment":
		u.Assessments = append(u.Assessments, m)
	case "pedagogical_marker":
		u.PedagogicalMarkers = append(u.PedagogicalMarkers, m)
	case "concept":
		// Concept markers feed Concepts directly rather than a member bucket.
		u.Concepts = append(u.Concepts, m.Identifier)
	}
}

// classifyFlow derives the §3 educational_flow tag from which buckets are
// populated.
func classifyFlow(u *core.LearningUnit) core.EducationalFlow {
	hasActivity := len(u.Activities) > 0
	hasExample := len(u.Examples) > 0
	switch {
	case hasActivity && hasExample:
		return core.FlowIntroActivityExampleConclusion
	case hasExample:
		return core.FlowIntroExampleConclusion
	case hasActivity:
		return core.FlowIntroActivityConclusion
	case u.MemberCount() == 0:
		return core.FlowIntroOnly
	default:
		return core.FlowMixed
	}
}
