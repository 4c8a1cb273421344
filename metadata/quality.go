package metadata

import "github.com/ncertrag/corekb/core"

// computeQualityIndicators implements §4.4 quality_indicators.
func computeQualityIndicators(u *core.LearningUnit, md core.ChunkMetadata) core.QualityIndicators {
	qi := core.QualityIndicators{}

	qi.Completeness = completeness(u, md)
	qi.Coherence = coherence(u)
	qi.PedagogicalSoundness = pedagogicalSoundness(u, md)
	qi.ContentDepth = contentDepth(u)
	qi.PedagogicalCompleteness = pedagogicalCompleteness(u)
	qi.ConceptualClarity = conceptualClarity(md)
	qi.EngagementLevel = engagementLevel(u)

	return qi
}

// completeness is the weighted sum: intro 0.2 + activities 0.3 +
// examples 0.3 + conclusion 0.1 + concepts 0.1.
func completeness(u *core.LearningUnit, md core.ChunkMetadata) float64 {
	var score float64
	if u.IntroContent != "" {
		score += 0.2
	}
	if len(u.Activities) > 0 {
		score += 0.3
	}
	if len(u.Examples) > 0 {
		score += 0.3
	}
	if u.ConclusionContent != "" {
		score += 0.1
	}
	if len(md.ConceptsAndSkills.MainConcepts) > 0 {
		score += 0.1
	}
	return core.Clamp01(score)
}

// coherence is an 0.8 baseline: +0.05 per activity whose identifier is
// mentioned in the intro, +0.1 if both activities and examples are present.
func coherence(u *core.LearningUnit) float64 {
	score := 0.8
	for _, a := range u.Activities {
		if a.Identifier != "" && containsFold(u.IntroContent, a.Identifier) {
			score += 0.05
		}
	}
	if len(u.Activities) > 0 && len(u.Examples) > 0 {
		score += 0.1
	}
	return core.Clamp01(score)
}

func containsFold(haystack, needle string) bool {
	return len(needle) > 0 && len(haystack) >= len(needle) && indexFold(haystack, needle) >= 0
}

func indexFold(haystack, needle string) int {
	h, n := toLower(haystack), toLower(needle)
	for i := 0; i+len(n) <= len(h); i++ {
		if h[i:i+len(n)] == n {
			return i
		}
	}
	return -1
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// pedagogicalSoundness is a 0.7 baseline: +0.1 for intro+member present,
// +0.1 for kind diversity (>=3 distinct non-empty buckets), +0.1 for
// non-empty md.ConceptsAndSkills.MainConcepts (md must already carry the
// extracted concepts).
func pedagogicalSoundness(u *core.LearningUnit, md core.ChunkMetadata) float64 {
	score := 0.7
	if u.IntroContent != "" && u.MemberCount() > 0 {
		score += 0.1
	}
	if distinctBucketCount(u) >= 3 {
		score += 0.1
	}
	if len(md.ConceptsAndSkills.MainConcepts) > 0 {
		score += 0.1
	}
	return core.Clamp01(score)
}

func distinctBucketCount(u *core.LearningUnit) int {
	n := 0
	buckets := [][]core.ElementMember{
		u.Activities, u.Examples, u.Figures, u.Questions, u.Formulas,
		u.SpecialBoxes, u.MathematicalExpressions, u.CrossReferences,
		u.Assessments, u.PedagogicalMarkers,
	}
	for _, b := range buckets {
		if len(b) > 0 {
			n++
		}
	}
	return n
}

// contentDepth scales with unit size and member richness.
func contentDepth(u *core.LearningUnit) float64 {
	sizeScore := float64(u.Size()) / 2000.0
	if sizeScore > 0.6 {
		sizeScore = 0.6
	}
	memberScore := float64(u.MemberCount()) * 0.08
	if memberScore > 0.4 {
		memberScore = 0.4
	}
	return core.Clamp01(sizeScore + memberScore)
}

// pedagogicalCompleteness rewards the full intro→member(s)→conclusion arc.
func pedagogicalCompleteness(u *core.LearningUnit) float64 {
	score := 0.0
	if u.IntroContent != "" {
		score += 0.35
	}
	if u.MemberCount() > 0 {
		score += 0.4
	}
	if u.ConclusionContent != "" {
		score += 0.25
	}
	return core.Clamp01(score)
}

// conceptualClarity rewards having both named concepts and definitions for
// them.
func conceptualClarity(md core.ChunkMetadata) float64 {
	score := 0.3
	if len(md.ConceptsAndSkills.MainConcepts) > 0 {
		score += 0.35
	}
	if len(md.ConceptsAndSkills.ConceptDefinitions) > 0 {
		score += 0.35
	}
	return core.Clamp01(score)
}

// engagementLevel rewards interactive/visual elements over plain prose.
func engagementLevel(u *core.LearningUnit) float64 {
	score := 0.2
	if len(u.Activities) > 0 {
		score += 0.3
	}
	if len(u.Figures) > 0 {
		score += 0.2
	}
	if len(u.SpecialBoxes) > 0 {
		score += 0.2
	}
	if len(u.Examples) > 0 {
		score += 0.1
	}
	return core.Clamp01(score)
}
