package patternlib

import (
	"strings"
	"testing"

	"github.com/ncertrag/corekb/core"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	lib := NewLibrary(nil)
	if err := lib.LoadDefaults(); err != nil {
		t.Fatalf("LoadDefaults: %v", err)
	}
	return lib
}

func TestLoadDefaultsCoversEveryPatternType(t *testing.T) {
	lib := newTestLibrary(t)
	stats := lib.Statistics()

	allTypes := []core.PatternType{
		core.PatternSectionHeader, core.PatternActivity, core.PatternExample,
		core.PatternFigureContent, core.PatternFigureReference, core.PatternSpecialBox,
		core.PatternMathematical, core.PatternSummary, core.PatternExercises,
		core.PatternRealWorldApplication, core.PatternPracticalUse, core.PatternBasicConcept,
		core.PatternConceptualExplanation, core.PatternDefinition, core.PatternExperimentalProcedure,
		core.PatternHandsOnActivity, core.PatternPhysicalPhenomena, core.PatternQuestion,
		core.PatternConcept, core.PatternCrossReference, core.PatternAssessmentElement,
		core.PatternPedagogicalMarker, core.PatternFormula,
	}
	for _, kind := range allTypes {
		if stats[kind].Count == 0 {
			t.Errorf("no default pattern registered for kind %q", kind)
		}
	}
}

func TestFindMatchesSectionHeader(t *testing.T) {
	lib := newTestLibrary(t)
	text := "Intro text.\n8.1 Force and Motion\nBody text follows describing forces."

	matches, err := lib.FindMatches(text, core.PatternSectionHeader, "Physics", "9", "en", 0.5)
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("expected at least one section header match")
	}
	if !strings.Contains(matches[0].Text, "8.1") {
		t.Errorf("expected match to contain the section number, got %q", matches[0].Text)
	}
	if matches[0].Confidence <= 0 || matches[0].Confidence > 0.95 {
		t.Errorf("confidence out of range: %v", matches[0].Confidence)
	}
}

// TestFindMatchesDoesNotScaleUnseededPatterns guards §4.1: the success-rate
// multiplier only applies "once the EMA is non-zero." A freshly-loaded
// library has never observed an outcome for any pattern, so a header match
// clamped near 0.95 must clear the default confidence_threshold of 0.7
// unscaled, not be halved to ~0.475 by an unseeded SuccessRate of 0.
func TestFindMatchesDoesNotScaleUnseededPatterns(t *testing.T) {
	lib := newTestLibrary(t)
	text := "8.1 Force and Motion\nBody text follows describing forces and motion in detail."

	matches, err := lib.FindMatches(text, core.PatternSectionHeader, "Physics", "9", "en", 0.7)
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("expected an unseeded pattern's match to clear the 0.7 default threshold unscaled")
	}
}

// TestFindMatchesSortsByConfidenceDescending guards §4.1's find_matches
// contract ("sorts by confidence descending").
func TestFindMatchesSortsByConfidenceDescending(t *testing.T) {
	lib := newTestLibrary(t)
	text := "8.1 Force and Motion\n8.2 X\nBody text follows describing forces in detail for this section."

	matches, err := lib.FindMatches(text, core.PatternSectionHeader, "Physics", "9", "en", 0.0)
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i-1].Confidence < matches[i].Confidence {
			t.Fatalf("matches not sorted by confidence descending: %+v", matches)
		}
	}
}

func TestFigureReferencePatternsAreSingleEscaped(t *testing.T) {
	lib := newTestLibrary(t)
	text := "The pendulum swings as shown in [Fig. 8.1] and also (Fig. 8.1), see Fig. 8.1 for details."

	matches, err := lib.FindMatches(text, core.PatternFigureReference, "", "", "", 0.0)
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected 3 figure-reference matches (bracket, paren, see), got %d: %+v", len(matches), matches)
	}
}

func TestUpdatePerformanceEMA(t *testing.T) {
	lib := newTestLibrary(t)
	const id = "section_header_numbered"

	if err := lib.UpdatePerformance(id, true); err != nil {
		t.Fatalf("UpdatePerformance: %v", err)
	}
	lib.mu.RLock()
	rate := lib.byID[id].SuccessRate
	lib.mu.RUnlock()
	if rate != 1.0 {
		t.Fatalf("expected first observation to seed rate to 1.0, got %v", rate)
	}

	if err := lib.UpdatePerformance(id, false); err != nil {
		t.Fatalf("UpdatePerformance: %v", err)
	}
	lib.mu.RLock()
	rate = lib.byID[id].SuccessRate
	lib.mu.RUnlock()
	want := successRateEMA*0 + (1-successRateEMA)*1.0
	if rate != want {
		t.Fatalf("EMA mismatch: got %v, want %v", rate, want)
	}
}

func TestAddCustomPatternRejectsDuplicateID(t *testing.T) {
	lib := newTestLibrary(t)
	meta := core.PatternMeta{PatternID: "section_header_numbered", Kind: core.PatternSectionHeader, ConfidenceBase: 0.5}
	if err := lib.AddCustomPattern(meta, `foo`); err == nil {
		t.Fatal("expected error for duplicate pattern id")
	}
}

func TestAddCustomPatternRejectsFailingExample(t *testing.T) {
	lib := newTestLibrary(t)
	meta := core.PatternMeta{
		PatternID: "custom_test_pattern",
		Kind:      core.PatternConcept,
		Examples:  []string{"this does not match"},
	}
	if err := lib.AddCustomPattern(meta, `^ZZZ$`); err == nil {
		t.Fatal("expected error for a pattern whose worked example does not match")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newTestLibrary(t)
	data, err := src.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}

	dst := NewLibrary(nil)
	n, err := dst.ImportJSON(data)
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if n != len(defaultPatternSpecs) {
		t.Fatalf("expected %d imported patterns, got %d", len(defaultPatternSpecs), n)
	}

	// Re-importing the same payload must not duplicate entries.
	n2, err := dst.ImportJSON(data)
	if err != nil {
		t.Fatalf("ImportJSON (second pass): %v", err)
	}
	if n2 != 0 {
		t.Fatalf("expected 0 newly imported patterns on re-import, got %d", n2)
	}
}

// TestPatternsForSortsByBaseConfidenceDescending guards §4.1's patterns_for
// contract ("sorted by base confidence descending").
func TestPatternsForSortsByBaseConfidenceDescending(t *testing.T) {
	lib := newTestLibrary(t)
	patterns := lib.PatternsFor(core.PatternSectionHeader, "", "", "")
	for i := 1; i < len(patterns); i++ {
		if patterns[i-1].ConfidenceBase < patterns[i].ConfidenceBase {
			t.Fatalf("patterns not sorted by base confidence descending at index %d: %+v", i, patterns)
		}
	}
}

func TestPatternsForFiltersBySubjectSpecificity(t *testing.T) {
	lib := NewLibrary(nil)
	if err := lib.AddCustomPattern(core.PatternMeta{
		PatternID:       "physics_only",
		Kind:            core.PatternConcept,
		SubjectSpecific: true,
		Subjects:        []string{"Physics"},
		Examples:        []string{"Newton's Second Law"},
	}, `[A-Z][a-z]+(?:'s)?(?:\s+[A-Z][a-z]+){1,3}`); err != nil {
		t.Fatalf("AddCustomPattern: %v", err)
	}

	if got := lib.PatternsFor(core.PatternConcept, "Biology", "9", "en"); len(got) != 0 {
		t.Errorf("expected 0 patterns to apply to Biology, got %d", len(got))
	}
	if got := lib.PatternsFor(core.PatternConcept, "Physics", "9", "en"); len(got) != 1 {
		t.Errorf("expected 1 pattern to apply to Physics, got %d", len(got))
	}
}
