package metadata

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ncertrag/corekb/core"
)

var (
	titleCaseTermRe  = regexp.MustCompile(`\b([A-Z][a-z]+(?:'s)?(?:\s+[A-Z][a-z]+){0,3})\b`)
	definitionRe     = regexp.MustCompile(`(?i)\b([A-Za-z][A-Za-z '\-]{2,40})\s+is\s+(?:defined as|called)\s+([^.]{5,200})\.`)
	causalRe         = regexp.MustCompile(`(?i)\b([A-Za-z][A-Za-z '\-]{2,30})\s+(?:causes|leads to|results in)\s+([A-Za-z][A-Za-z '\-]{2,30})`)
	dependsOnRe      = regexp.MustCompile(`(?i)\b([A-Za-z][A-Za-z '\-]{2,30})\s+(?:depends on|requires)\s+([A-Za-z][A-Za-z '\-]{2,30})`)
	objectiveRe      = regexp.MustCompile(`(?i)(by the end of this (?:chapter|section|activity),?\s*(?:you will|students will)[^.]{3,200}\.)`)
)

const maxMainConcepts = 20
const maxKeywords = 10

// subjectKeywordPatterns are coarse subject-specific keyword cues
// (metadata_extraction_engine.py's subject keyword banks) used, alongside the
// definition and title-case regexes, to seed main_concepts.
var subjectKeywordPatterns = map[string][]string{
	"Physics":   {"force", "motion", "energy", "velocity", "acceleration", "gravity", "momentum", "electricity", "magnetism"},
	"Chemistry": {"atom", "molecule", "reaction", "acid", "base", "compound", "element", "bond"},
	"Biology":   {"cell", "organism", "tissue", "photosynthesis", "respiration", "ecosystem", "gene"},
}

// extractConceptsAndSkills implements §4.4 concepts_and_skills in full.
func extractConceptsAndSkills(u *core.LearningUnit, content, subject, grade string) core.ConceptsAndSkills {
	cs := core.ConceptsAndSkills{}

	cs.MainConcepts = mainConcepts(content, subject)
	cs.SubConcepts = subConcepts(content, cs.MainConcepts)
	cs.ConceptRelationships = conceptRelationships(content, cs.MainConcepts, cs.SubConcepts)
	cs.ConceptDefinitions = conceptDefinitions(content)
	cs.SkillsDeveloped = skillsDeveloped(u)
	cs.Competencies = competencies(cs.SkillsDeveloped, subject)
	cs.PrerequisiteConcepts = prerequisiteConcepts(cs.MainConcepts, subject, grade)
	cs.LearningObjectives = learningObjectives(u, content)
	cs.Keywords = keywords(cs.MainConcepts, content)

	return cs
}

// mainConcepts extracts via definition-sentence subjects, title-case terms,
// and subject keyword hits; normalizes to title case, dedups, caps at 20,
// and filters stop words.
func mainConcepts(content, subject string) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(raw string) {
		t := normalizeConceptTitle(raw)
		if t == "" || isStopPhrase(t) {
			return
		}
		key := strings.ToLower(t)
		if seen[key] || len(out) >= maxMainConcepts {
			return
		}
		seen[key] = true
		out = append(out, t)
	}

	for _, m := range definitionRe.FindAllStringSubmatch(content, -1) {
		add(m[1])
	}
	for _, m := range titleCaseTermRe.FindAllString(content, -1) {
		add(m)
	}
	lower := strings.ToLower(content)
	for _, kw := range subjectKeywordPatterns[subject] {
		if strings.Contains(lower, kw) {
			add(kw)
		}
	}

	sort.Strings(out)
	if len(out) > maxMainConcepts {
		out = out[:maxMainConcepts]
	}
	return out
}

func normalizeConceptTitle(raw string) string {
	words := strings.Fields(strings.TrimSpace(raw))
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
	}
	return strings.Join(words, " ")
}

func isStopPhrase(s string) bool {
	switch strings.ToLower(s) {
	case "the", "this", "that", "these", "those", "it", "chapter", "section":
		return true
	}
	return false
}

// subConcepts are capitalized multi-token terms found within ±200 chars of a
// main concept occurrence, excluding the main concepts themselves.
func subConcepts(content string, mainConcepts []string) []string {
	mainSet := make(map[string]bool, len(mainConcepts))
	for _, c := range mainConcepts {
		mainSet[strings.ToLower(c)] = true
	}

	seen := make(map[string]bool)
	var out []string
	for _, c := range mainConcepts {
		idx := strings.Index(strings.ToLower(content), strings.ToLower(c))
		if idx < 0 {
			continue
		}
		winStart := max0(idx - 200)
		winEnd := idx + len(c) + 200
		if winEnd > len(content) {
			winEnd = len(content)
		}
		window := content[winStart:winEnd]
		for _, m := range titleCaseTermRe.FindAllString(window, -1) {
			if len(strings.Fields(m)) < 2 {
				continue
			}
			key := strings.ToLower(m)
			if mainSet[key] || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, m)
		}
	}
	return out
}

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// conceptRelationships builds the §4.4 map: co-occurring sub-concepts per
// paragraph, plus causal/dependency pairs matched by regex.
func conceptRelationships(content string, mainConcepts, subConcepts []string) map[string][]string {
	rels := make(map[string][]string)

	paragraphs := strings.Split(content, "\n\n")
	for _, c := range mainConcepts {
		cLower := strings.ToLower(c)
		for _, p := range paragraphs {
			pLower := strings.ToLower(p)
			if !strings.Contains(pLower, cLower) {
				continue
			}
			for _, sc := range subConcepts {
				if strings.Contains(pLower, strings.ToLower(sc)) {
					rels[c] = appendUnique(rels[c], sc)
				}
			}
		}
	}

	for _, m := range causalRe.FindAllStringSubmatch(content, -1) {
		from, to := normalizeConceptTitle(m[1]), normalizeConceptTitle(m[2])
		rels[from] = appendUnique(rels[from], to)
	}
	for _, m := range dependsOnRe.FindAllStringSubmatch(content, -1) {
		from, to := normalizeConceptTitle(m[1]), normalizeConceptTitle(m[2])
		rels[from] = appendUnique(rels[from], to)
	}

	if len(rels) == 0 {
		return nil
	}
	return rels
}

func conceptDefinitions(content string) map[string]string {
	defs := make(map[string]string)
	for _, m := range definitionRe.FindAllStringSubmatch(content, -1) {
		concept := normalizeConceptTitle(m[1])
		if _, exists := defs[concept]; !exists {
			defs[concept] = strings.TrimSpace(m[0])
		}
	}
	if len(defs) == 0 {
		return nil
	}
	return defs
}

// skillsDeveloped is the deterministic union over member presence (§4.4).
func skillsDeveloped(u *core.LearningUnit) []string {
	var out []string
	if len(u.Activities) > 0 {
		out = append(out, "observation", "experimentation", "data_collection", "hands_on")
	}
	if len(u.Examples) > 0 {
		out = append(out, "problem_solving", "mathematical_application", "logical_thinking")
	}
	if len(u.Questions) > 0 || len(u.Assessments) > 0 {
		out = append(out, "critical_thinking", "self_assessment")
	}
	if len(u.Figures) > 0 {
		out = append(out, "visual_interpretation")
	}
	if len(u.CrossReferences) > 0 {
		out = append(out, "conceptual_linking")
	}
	return out
}

// competencyMap is the fixed skill→competency mapping (§4.4).
var competencyMap = map[string]string{
	"observation":               "scientific_inquiry",
	"experimentation":           "scientific_inquiry",
	"data_collection":           "data_literacy",
	"hands_on":                  "practical_application",
	"problem_solving":           "analytical_reasoning",
	"mathematical_application":  "quantitative_reasoning",
	"logical_thinking":          "analytical_reasoning",
	"critical_thinking":         "analytical_reasoning",
	"self_assessment":           "metacognition",
	"visual_interpretation":     "data_literacy",
	"conceptual_linking":        "systems_thinking",
}

var subjectCompetencyAdditions = map[string]string{
	"Physics":   "quantitative_reasoning",
	"Chemistry": "laboratory_safety",
	"Biology":   "systems_thinking",
}

func competencies(skills []string, subject string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range skills {
		if c, ok := competencyMap[s]; ok && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	if add, ok := subjectCompetencyAdditions[subject]; ok && !seen[add] {
		out = append(out, add)
	}
	return out
}

// prerequisiteConceptMap is the small built-in concept→prerequisites table
// (§9 Open Question 2: "treated as data, not as an algorithm").
var prerequisiteConceptMap = map[string][]string{
	"force":            {"motion", "mass", "acceleration"},
	"energy":           {"work", "force", "motion"},
	"acceleration":     {"velocity", "motion"},
	"electric current": {"charge", "voltage"},
	"photosynthesis":   {"chlorophyll", "sunlight", "carbon dioxide"},
}

// subjectGradeBaseline is a minimal baseline of expected prior concepts per
// subject, applied regardless of the unit's own main concepts.
var subjectGradeBaseline = map[string][]string{
	"Physics":   {"measurement", "units"},
	"Chemistry": {"matter", "states of matter"},
	"Biology":   {"classification"},
}

func prerequisiteConcepts(mainConcepts []string, subject, grade string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range mainConcepts {
		if prereqs, ok := prerequisiteConceptMap[strings.ToLower(c)]; ok {
			for _, p := range prereqs {
				if !seen[p] {
					seen[p] = true
					out = append(out, p)
				}
			}
		}
	}
	for _, p := range subjectGradeBaseline[subject] {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// learningObjectives combines explicit objective sentences with implicit
// ones inferred from member presence (§4.4).
func learningObjectives(u *core.LearningUnit, content string) []string {
	var out []string
	for _, m := range objectiveRe.FindAllStringSubmatch(content, -1) {
		out = append(out, strings.TrimSpace(m[1]))
	}
	if len(u.Activities) > 0 {
		out = append(out, "perform the hands-on activity and observe its outcome")
	}
	if len(u.Examples) > 0 {
		out = append(out, "apply the concept to solve a worked example")
	}
	if len(u.Questions) > 0 {
		out = append(out, "answer the associated questions to check understanding")
	}
	return out
}

// keywords is the union of concepts and regex-extracted technical terms,
// capped at 10.
func keywords(mainConcepts []string, content string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range mainConcepts {
		key := strings.ToLower(c)
		if seen[key] || len(out) >= maxKeywords {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	for _, m := range titleCaseTermRe.FindAllString(content, -1) {
		key := strings.ToLower(m)
		if seen[key] || len(out) >= maxKeywords {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}
