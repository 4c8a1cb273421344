package ingest

import (
	"sort"
	"strings"

	"github.com/ncertrag/corekb/core"
)

// assembleContent renders a LearningUnit's final persisted text: intro
// prose, then every member's content in document order, then conclusion
// prose. This is exactly what metadata.Extractor.Extract and
// store.ChunkHashes operate on, so previews, concept extraction, and
// content-hash versioning all see the same canonical string (§3, §4.4).
func assembleContent(u *core.LearningUnit) string {
	members := orderedMembers(u)

	var b strings.Builder
	if u.IntroContent != "" {
		b.WriteString(strings.TrimSpace(u.IntroContent))
	}
	for _, m := range members {
		if m.Content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimSpace(m.Content))
	}
	if u.ConclusionContent != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.TrimSpace(u.ConclusionContent))
	}
	return b.String()
}

// orderedMembers flattens every member bucket into one slice sorted by
// absolute document position.
func orderedMembers(u *core.LearningUnit) []core.ElementMember {
	var all []core.ElementMember
	all = append(all, u.Activities...)
	all = append(all, u.Examples...)
	all = append(all, u.Figures...)
	all = append(all, u.Questions...)
	all = append(all, u.Formulas...)
	all = append(all, u.SpecialBoxes...)
	all = append(all, u.MathematicalExpressions...)
	all = append(all, u.CrossReferences...)
	all = append(all, u.Assessments...)
	all = append(all, u.PedagogicalMarkers...)

	sort.Slice(all, func(i, j int) bool { return all[i].AbsolutePos < all[j].AbsolutePos })
	return all
}
