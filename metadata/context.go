package metadata

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ncertrag/corekb/core"
)

var (
	applicationRe   = regexp.MustCompile(`(?i)([A-Z][^.?!]{15,180}(?:is used (?:to|for|in)|helps (?:us|to)|is applied (?:to|in))[^.?!]{0,120}[.?!])`)
	correctionRe    = regexp.MustCompile(`(?i)(many (?:people|students) (?:think|believe)[^.?!]*,? (?:but|however)[^.?!]*[.?!]|a common (?:misconception|mistake) is[^.?!]*[.?!])`)
	historicalRe    = regexp.MustCompile(`(?i)([A-Z][a-zA-Z]+ (?:discovered|invented|proposed|formulated)[^.?!]*in\s+\d{3,4}[^.?!]*[.?!])`)
)

const maxApplications = 10

// builtinMisconceptions is the per-subject list consulted alongside
// correction-pattern matches (§4.4 common_misconceptions).
var builtinMisconceptions = map[string][]string{
	"Physics": {
		"heavier objects fall faster than lighter ones in the absence of air resistance",
		"a constant force is needed to keep an object moving at constant velocity",
	},
	"Chemistry": {
		"all acids are dangerous to touch",
		"mixtures and compounds are the same thing",
	},
	"Biology": {
		"plants only respire at night",
		"evolution means an organism chooses to adapt",
	},
}

// careerMap is the fixed subject→concept→careers table (§4.4
// career_connections).
var careerMap = map[string]map[string][]string{
	"Physics": {
		"force":    {"mechanical engineer", "structural engineer"},
		"energy":   {"renewable energy technician", "power systems engineer"},
		"motion":   {"aerospace engineer", "sports scientist"},
	},
	"Chemistry": {
		"reaction": {"chemical engineer", "pharmacist"},
		"compound": {"materials scientist"},
	},
	"Biology": {
		"cell":           {"cell biologist", "medical lab technician"},
		"photosynthesis": {"agricultural scientist", "botanist"},
	},
}

// extractEducationalContext implements §4.4 educational_context.
func extractEducationalContext(content, subject string, mainConcepts []string) core.EducationalContext {
	ec := core.EducationalContext{}

	ec.RealWorldApplications = realWorldApplications(content)
	ec.CommonMisconceptions = misconceptions(content, subject, mainConcepts)
	ec.CareerConnections = careerConnections(subject, mainConcepts)
	ec.HistoricalContext = historicalContext(content)
	ec.AssessmentObjectives = assessmentObjectives(content)

	return ec
}

// realWorldApplications extracts and validates candidate sentences: ≥20
// chars, ≥3 words, starts with a capital letter, not a stop-word fragment,
// terminates with sentence punctuation; deduplicated, capped at 10.
func realWorldApplications(content string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range applicationRe.FindAllString(content, -1) {
		s := strings.TrimSpace(m)
		if !validApplication(s) {
			continue
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) >= maxApplications {
			break
		}
	}
	return out
}

func validApplication(s string) bool {
	if len(s) < 20 {
		return false
	}
	words := strings.Fields(s)
	if len(words) < 3 {
		return false
	}
	r := []rune(s)
	if !unicode.IsUpper(r[0]) {
		return false
	}
	last := r[len(r)-1]
	if last != '.' && last != '!' && last != '?' {
		return false
	}
	if isStopPhrase(words[0]) {
		return false
	}
	return true
}

func misconceptions(content, subject string, mainConcepts []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range correctionRe.FindAllString(content, -1) {
		s := strings.TrimSpace(m)
		key := strings.ToLower(s)
		if !seen[key] {
			seen[key] = true
			out = append(out, s)
		}
	}

	conceptSet := make(map[string]bool, len(mainConcepts))
	for _, c := range mainConcepts {
		conceptSet[strings.ToLower(c)] = true
	}
	for _, m := range builtinMisconceptions[subject] {
		for c := range conceptSet {
			if strings.Contains(m, c) {
				key := strings.ToLower(m)
				if !seen[key] {
					seen[key] = true
					out = append(out, m)
				}
				break
			}
		}
	}
	return out
}

func careerConnections(subject string, mainConcepts []string) []string {
	bySubject, ok := careerMap[subject]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, c := range mainConcepts {
		careers, ok := bySubject[strings.ToLower(c)]
		if !ok {
			continue
		}
		for _, career := range careers {
			if !seen[career] {
				seen[career] = true
				out = append(out, career)
			}
		}
	}
	return out
}

func historicalContext(content string) []string {
	var out []string
	for _, m := range historicalRe.FindAllString(content, -1) {
		out = append(out, strings.TrimSpace(m))
	}
	return out
}

func assessmentObjectives(content string) []string {
	lower := strings.ToLower(content)
	var out []string
	if strings.Contains(lower, "state") || strings.Contains(lower, "define") {
		out = append(out, "recall key definitions and statements")
	}
	if strings.Contains(lower, "explain") || strings.Contains(lower, "why") {
		out = append(out, "explain the underlying mechanism or reasoning")
	}
	if strings.Contains(lower, "calculate") || strings.Contains(lower, "find") {
		out = append(out, "apply the relevant formula to calculate a value")
	}
	return out
}
