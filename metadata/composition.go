package metadata

import (
	"strings"

	"github.com/ncertrag/corekb/core"
	"github.com/ncertrag/corekb/textutil"
)

// extractContentComposition implements §4.4 content_composition: counts per
// member kind, identifier lists, previews, and the raw member content
// callers need for downstream indexing.
func extractContentComposition(u *core.LearningUnit) core.ContentComposition {
	cc := core.ContentComposition{
		MemberCounts: map[string]int{
			"activities":     len(u.Activities),
			"examples":       len(u.Examples),
			"figures":        len(u.Figures),
			"questions":      len(u.Questions),
			"formulas":       len(u.Formulas),
			"special_boxes":  len(u.SpecialBoxes),
			"mathematical":   len(u.MathematicalExpressions),
			"cross_references": len(u.CrossReferences),
			"assessments":    len(u.Assessments),
		},
	}

	for _, m := range u.Activities {
		cc.ActivityIDs = append(cc.ActivityIDs, m.Identifier)
	}
	for _, m := range u.Examples {
		cc.ExampleIDs = append(cc.ExampleIDs, m.Identifier)
		if strings.Contains(m.Content, "Solution") {
			cc.HasSolution = true
		}
	}
	for _, m := range u.Figures {
		cc.FigureIDs = append(cc.FigureIDs, m.Identifier)
	}
	for _, m := range u.Questions {
		cc.QuestionPreviews = append(cc.QuestionPreviews, textutil.Truncate(strings.TrimSpace(m.Content), 50))
	}
	for _, m := range u.Formulas {
		cc.Formulas = append(cc.Formulas, strings.TrimSpace(m.Content))
	}
	for _, m := range u.SpecialBoxes {
		cc.SpecialBoxTypes = append(cc.SpecialBoxTypes, boxSubtype(m))
	}
	for _, m := range u.MathematicalExpressions {
		cc.MathPreviews = append(cc.MathPreviews, textutil.Truncate(strings.TrimSpace(m.Content), 30))
	}
	for _, m := range u.CrossReferences {
		cc.CrossReferences = append(cc.CrossReferences, strings.TrimSpace(m.Content))
	}
	for _, m := range u.Assessments {
		cc.AssessmentTypes = append(cc.AssessmentTypes, strings.TrimSpace(m.Content))
	}
	for _, m := range u.PedagogicalMarkers {
		cc.PedagogicalMarkers = append(cc.PedagogicalMarkers, strings.TrimSpace(m.Content))
	}

	return cc
}

// boxSubtype classifies a special-box member by its opening phrase, falling
// back to "general" when no known subtype phrase is present.
func boxSubtype(m core.ElementMember) string {
	lower := strings.ToLower(m.Content)
	switch {
	case strings.Contains(lower, "think"):
		return "think_it_over"
	case strings.Contains(lower, "do you know"):
		return "do_you_know"
	case strings.Contains(lower, "biography"):
		return "biography"
	case strings.Contains(lower, "note"):
		return "note"
	default:
		return "general"
	}
}
