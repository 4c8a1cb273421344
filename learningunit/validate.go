package learningunit

import (
	"sort"

	"github.com/google/uuid"
	"github.com/ncertrag/corekb/core"
)

// validateAndRepair implements §4.3 "Validation and repair": merge
// undersized units into their predecessor, split oversized ones at
// pedagogical boundaries, and leave everything else untouched.
func (b *Builder) validateAndRepair(slice string, units []core.LearningUnit) []core.LearningUnit {
	minSize := b.MinChunkSize
	maxSize := b.MaxChunkSize
	if minSize <= 0 {
		minSize = 500
	}
	if maxSize <= 0 {
		maxSize = 2000
	}

	var accepted []core.LearningUnit
	for _, u := range units {
		size := u.Size()

		if size < minSize && len(accepted) > 0 {
			merged := mergeUnits(accepted[len(accepted)-1], u)
			if merged.Size() <= maxSize {
				accepted[len(accepted)-1] = merged
				continue
			}
		}

		if size > maxSize {
			split := b.pedagogicalSplit(slice, u, maxSize)
			accepted = append(accepted, split...)
			continue
		}

		accepted = append(accepted, u)
	}

	return accepted
}

// mergeUnits combines a trailing undersized unit into its predecessor,
// concatenating prose and member buckets and recomputing the [start,end).
func mergeUnits(prev, next core.LearningUnit) core.LearningUnit {
	merged := prev
	merged.End = next.End
	if next.ConclusionContent != "" {
		merged.ConclusionContent = next.ConclusionContent
	} else if next.IntroContent != "" {
		merged.ConclusionContent = prev.ConclusionContent + next.IntroContent
	}

	merged.Activities = append(append([]core.ElementMember{}, prev.Activities...), next.Activities...)
	merged.Examples = append(append([]core.ElementMember{}, prev.Examples...), next.Examples...)
	merged.Figures = append(append([]core.ElementMember{}, prev.Figures...), next.Figures...)
	merged.Questions = append(append([]core.ElementMember{}, prev.Questions...), next.Questions...)
	merged.Formulas = append(append([]core.ElementMember{}, prev.Formulas...), next.Formulas...)
	merged.SpecialBoxes = append(append([]core.ElementMember{}, prev.SpecialBoxes...), next.SpecialBoxes...)
	merged.MathematicalExpressions = append(append([]core.ElementMember{}, prev.MathematicalExpressions...), next.MathematicalExpressions...)
	merged.CrossReferences = append(append([]core.ElementMember{}, prev.CrossReferences...), next.CrossReferences...)
	merged.Assessments = append(append([]core.ElementMember{}, prev.Assessments...), next.Assessments...)
	merged.PedagogicalMarkers = append(append([]core.ElementMember{}, prev.PedagogicalMarkers...), next.PedagogicalMarkers...)
	merged.Concepts = append(append([]string{}, prev.Concepts...), next.Concepts...)
	merged.EducationalFlow = classifyFlow(&merged)
	return merged
}

// splitPointCandidate is one eligible pedagogical split point: an example or
// activity member, ordered by absolute position.
type splitPointCandidate struct {
	pos  int
	kind core.SpecialContentKind
}

// pedagogicalSplit implements §4.3 "Pedagogical split": only permitted when
// content exceeds 1.5x max_chunk_size AND at least two examples/activities
// exist as split points. Otherwise the unit is emitted whole (flagged as a
// split residual per §8 invariant 7).
func (b *Builder) pedagogicalSplit(slice string, u core.LearningUnit, maxSize int) []core.LearningUnit {
	threshold := int(float64(maxSize) * pedagogicalSplitFactor)
	if u.Size() <= threshold {
		u.SplitResidual = true
		return []core.LearningUnit{u}
	}

	var points []splitPointCandidate
	for _, m := range u.Examples {
		points = append(points, splitPointCandidate{pos: m.AbsolutePos, kind: core.SpecialExample})
	}
	for _, m := range u.Activities {
		points = append(points, splitPointCandidate{pos: m.AbsolutePos, kind: core.SpecialActivity})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].pos < points[j].pos })

	if len(points) < 2 {
		u.SplitResidual = true
		return []core.LearningUnit{u}
	}

	// Split at each point except the first: boundaries are the split points
	// from the second onward.
	boundaries := make([]int, 0, len(points)-1)
	for _, p := range points[1:] {
		boundaries = append(boundaries, p.pos)
	}

	ranges := make([][2]int, 0, len(boundaries)+1)
	start := u.Start
	for _, b := range boundaries {
		ranges = append(ranges, [2]int{start, b})
		start = b
	}
	ranges = append(ranges, [2]int{start, u.End})

	groupID := core.UnitID(uuid.NewString())
	subUnits := make([]core.LearningUnit, 0, len(ranges))
	for i, r := range ranges {
		sub := core.LearningUnit{Start: r[0], End: r[1], SplitGroupID: groupID, SplitIndex: i}
		if i == 0 {
			sub.IntroContent = u.IntroContent
		}
		if i == len(ranges)-1 {
			sub.ConclusionContent = u.ConclusionContent
		}
		sub.Activities = membersInRange(u.Activities, r[0], r[1])
		sub.Examples = membersInRange(u.Examples, r[0], r[1])
		sub.Figures = membersInRange(u.Figures, r[0], r[1])
		sub.Questions = membersInRange(u.Questions, r[0], r[1])
		sub.Formulas = membersInRange(u.Formulas, r[0], r[1])
		sub.SpecialBoxes = membersInRange(u.SpecialBoxes, r[0], r[1])
		sub.MathematicalExpressions = membersInRange(u.MathematicalExpressions, r[0], r[1])
		sub.CrossReferences = membersInRange(u.CrossReferences, r[0], r[1])
		sub.Assessments = membersInRange(u.Assessments, r[0], r[1])
		sub.PedagogicalMarkers = membersInRange(u.PedagogicalMarkers, r[0], r[1])
		sub.Concepts = u.Concepts
		sub.EducationalFlow = classifyFlow(&sub)
		subUnits = append(subUnits, sub)
	}
	return subUnits
}

func membersInRange(members []core.ElementMember, start, end int) []core.ElementMember {
	var out []core.ElementMember
	for _, m := range members {
		if m.AbsolutePos >= start && m.AbsolutePos < end {
			out = append(out, m)
		}
	}
	return out
}
