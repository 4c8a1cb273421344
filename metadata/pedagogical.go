package metadata

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ncertrag/corekb/core"
	"github.com/ncertrag/corekb/textutil"
)

var advancedMathGlyphs = regexp.MustCompile(`[√∫∑∂≈≠≤≥π±∞]|\^-?\d|\b(integral|derivative|differential)\b`)

var (
	higherOrderTerms = []string{"analyze", "analyse", "evaluate", "create", "synthesize", "critique"}
	applicationTerms = []string{"apply", "demonstrate", "solve", "calculate", "construct"}
)

// extractPedagogicalElements implements §4.4 pedagogical_elements.
func extractPedagogicalElements(u *core.LearningUnit, content string) core.PedagogicalElements {
	pe := core.PedagogicalElements{
		ContentTypes:   contentTypes(u),
		LearningStyles: learningStyles(u),
	}
	pe.CognitiveLevel = cognitiveLevel(content)
	pe.DifficultyLevel = difficultyLevel(u, content)
	words := textutil.WordCount(content)
	pe.EstimatedTimeMinutes = float64(words)/200.0 + 15*float64(len(u.Activities)) + 5*float64(len(u.Examples))
	pe.ReadingLevel = readingLevel(content)
	pe.CognitiveLevels = cognitiveLevels(u)
	return pe
}

// contentTypes maps non-empty member buckets to a deterministic set of
// content-type labels (§4.4: "any activities ⇒ hands_on_activity").
func contentTypes(u *core.LearningUnit) []string {
	var out []string
	if len(u.Activities) > 0 {
		out = append(out, "hands_on_activity")
	}
	if len(u.Examples) > 0 {
		out = append(out, "worked_example")
	}
	if len(u.Figures) > 0 {
		out = append(out, "visual_aid")
	}
	if len(u.SpecialBoxes) > 0 {
		out = append(out, "enrichment")
	}
	if len(u.Formulas) > 0 || len(u.MathematicalExpressions) > 0 {
		out = append(out, "mathematical")
	}
	if len(u.Questions) > 0 || len(u.Assessments) > 0 {
		out = append(out, "assessment")
	}
	if len(out) == 0 {
		out = append(out, "conceptual_explanation")
	}
	return out
}

// learningStyles implements the §4.4 deterministic presence rules.
func learningStyles(u *core.LearningUnit) []string {
	var out []string
	if len(u.Activities) > 0 {
		out = append(out, "kinesthetic")
	}
	if len(u.Figures) > 0 {
		out = append(out, "visual")
	}
	if len(u.Examples) > 0 || len(u.Formulas) > 0 || len(u.MathematicalExpressions) > 0 {
		out = append(out, "logical_mathematical")
	}
	if len(u.Questions) > 0 || len(u.Assessments) > 0 {
		out = append(out, "analytical")
	}
	if len(u.IntroContent) > 200 {
		out = append(out, "verbal_linguistic")
	}
	if len(u.SpecialBoxes) > 0 {
		out = append(out, "exploratory")
	}
	if len(u.CrossReferences) > 0 {
		out = append(out, "connective")
	}
	return out
}

func cognitiveLevel(content string) string {
	lower := strings.ToLower(content)
	if containsAnyWord(lower, higherOrderTerms) {
		return "higher_order"
	}
	if containsAnyWord(lower, applicationTerms) {
		return "application"
	}
	return "understanding"
}

func containsAnyWord(haystack string, words []string) bool {
	for _, w := range words {
		if strings.Contains(haystack, w) {
			return true
		}
	}
	return false
}

// difficultyLevel implements §4.4: a 0-4 score from advanced-math-glyph
// presence (+2), >=3 examples (+1), total size > 1500 chars (+1); >=3
// advanced, >=1 intermediate, else beginner.
func difficultyLevel(u *core.LearningUnit, content string) core.DifficultyLevel {
	score := 0
	if advancedMathGlyphs.MatchString(content) {
		score += 2
	}
	if len(u.Examples) >= 3 {
		score++
	}
	if len(content) > 1500 {
		score++
	}
	switch {
	case score >= 3:
		return core.DifficultyAdvanced
	case score >= 1:
		return core.DifficultyIntermediate
	default:
		return core.DifficultyBeginner
	}
}

// readingLevel buckets by average words/sentence and average syllables/word
// (§4.4 reading_level).
func readingLevel(content string) string {
	sentences := textutil.SplitSentences(content)
	if len(sentences) == 0 {
		return "middle_school"
	}
	words := strings.Fields(content)
	if len(words) == 0 {
		return "middle_school"
	}
	avgWordsPerSentence := float64(len(words)) / float64(len(sentences))

	totalSyllables := 0
	for _, w := range words {
		totalSyllables += estimateSyllables(w)
	}
	avgSyllablesPerWord := float64(totalSyllables) / float64(len(words))

	switch {
	case avgWordsPerSentence <= 12 && avgSyllablesPerWord <= 1.4:
		return "elementary"
	case avgWordsPerSentence <= 20 && avgSyllablesPerWord <= 1.8:
		return "middle_school"
	default:
		return "high_school"
	}
}

// estimateSyllables is a simple vowel-group counting heuristic, the same
// class of approximation typically used for Flesch-style readability scores
// without a dictionary lookup.
func estimateSyllables(word string) int {
	word = strings.ToLower(strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) }))
	if word == "" {
		return 1
	}
	count := 0
	prevVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune("aeiouy", r)
		if isVowel && !prevVowel {
			count++
		}
		prevVowel = isVowel
	}
	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

// cognitiveLevels derives the Bloom's-taxonomy subset a unit touches from its
// member composition (§4.4 cognitive_levels).
func cognitiveLevels(u *core.LearningUnit) []core.CognitiveLevel {
	levels := map[core.CognitiveLevel]bool{core.CognitiveUnderstand: true}
	if len(u.Activities) > 0 {
		levels[core.CognitiveApply] = true
	}
	if len(u.Examples) > 0 {
		levels[core.CognitiveApply] = true
	}
	if len(u.Questions) > 0 {
		levels[core.CognitiveAnalyze] = true
	}
	if len(u.Assessments) > 0 {
		levels[core.CognitiveEvaluate] = true
	}
	if len(u.IntroContent) == 0 && u.MemberCount() == 0 {
		levels[core.CognitiveRemember] = true
	}

	order := []core.CognitiveLevel{
		core.CognitiveRemember, core.CognitiveUnderstand, core.CognitiveApply,
		core.CognitiveAnalyze, core.CognitiveEvaluate, core.CognitiveCreate,
	}
	var out []core.CognitiveLevel
	for _, l := range order {
		if levels[l] {
			out = append(out, l)
		}
	}
	return out
}
