package patternlib

import "github.com/ncertrag/corekb/core"

// patternSpec is the uncompiled form a default pattern is declared in;
// NewPattern compiles and validates it against Examples at load time.
type patternSpec struct {
	meta  core.PatternMeta
	regex string
}

// defaultPatternSpecs is the built-in NCERT pattern set, grounded on
// pattern_library.py's hard-coded regex banks and, for the six content-type
// patterns without a direct equivalent there, on
// metadata_extraction_engine.py's content_type_patterns banks (§4.1, Part D
// supplement 3).
//
// The figure-reference patterns fix a double-escaping bug present in the
// original Python source (figure_bracket_ref, figure_paren_ref,
// figure_see_ref in pattern_library.py escape the backslash itself, e.g.
// `\\(Fig\\.` instead of `\(Fig\.`, which in Python's regex engine still
// happens to work but is not portable); Go's regexp package treats `\\(` as
// a literal backslash followed by a group open, not an escaped paren, so the
// single-escaped form below is required for correctness (§9 Open Question 3).
var defaultPatternSpecs = []patternSpec{
	{
		meta: core.PatternMeta{
			PatternID:      "section_header_numbered",
			Kind:           core.PatternSectionHeader,
			ConfidenceBase: 0.85,
			Description:    "numbered section heading, e.g. '8.1 Force and Motion'",
			Examples:       []string{"8.1 Force and Motion", "12.3 The Human Eye"},
		},
		regex: `(?m)^\s*(\d{1,2}\.\d{1,2})\s+([A-Z][A-Za-z ,'\-]{2,80})\s*$`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "section_header_chapter",
			Kind:           core.PatternSectionHeader,
			ConfidenceBase: 0.8,
			Description:    "chapter-level heading, e.g. 'Chapter 8'",
			Examples:       []string{"Chapter 8", "CHAPTER 12"},
		},
		regex: `(?mi)^\s*chapter\s+(\d{1,2})\s*$`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "activity_numbered",
			Kind:           core.PatternActivity,
			ConfidenceBase: 0.8,
			Description:    "numbered activity box, e.g. 'Activity 8.1'",
			Examples:       []string{"Activity 8.1", "ACTIVITY 12.3"},
		},
		regex: `(?mi)^\s*activity\s+(\d{1,2}\.\d{1,2})\s*$`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "example_numbered",
			Kind:           core.PatternExample,
			ConfidenceBase: 0.8,
			Description:    "numbered worked example, e.g. 'Example 8.1'",
			Examples:       []string{"Example 8.1", "EXAMPLE 3.2"},
		},
		regex: `(?mi)^\s*example\s+(\d{1,2}\.\d{1,2})\s*$`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "figure_content_caption",
			Kind:           core.PatternFigureContent,
			ConfidenceBase: 0.75,
			Description:    "figure caption line introducing new figure content",
			Examples:       []string{"Fig. 8.1 A pendulum in motion", "Figure 12.3: Structure of the eye"},
		},
		regex: `(?mi)^\s*Fig(?:ure)?\.?\s*(\d{1,2}\.\d{1,2})\s*[:\-]?\s*(.+)$`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "figure_bracket_ref",
			Kind:           core.PatternFigureReference,
			ConfidenceBase: 0.6,
			Description:    "inline reference to a figure in square brackets",
			Examples:       []string{"as shown in [Fig. 8.1]"},
		},
		regex: `\[Fig(?:ure)?\.?\s*\d{1,2}\.\d{1,2}\]`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "figure_paren_ref",
			Kind:           core.PatternFigureReference,
			ConfidenceBase: 0.6,
			Description:    "inline reference to a figure in parentheses",
			Examples:       []string{"the pendulum swings (Fig. 8.1)"},
		},
		regex: `\(Fig(?:ure)?\.?\s*\d{1,2}\.\d{1,2}\)`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "figure_see_ref",
			Kind:           core.PatternFigureReference,
			ConfidenceBase: 0.55,
			Description:    "'see Fig. N.N' inline reference",
			Examples:       []string{"see Fig. 8.1 for details"},
		},
		regex: `(?i)see\s+Fig(?:ure)?\.?\s*\d{1,2}\.\d{1,2}`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "special_box_think",
			Kind:           core.PatternSpecialBox,
			ConfidenceBase: 0.7,
			Description:    "'Think it over' callout box",
			Examples:       []string{"Think it over", "THINK IT OVER"},
		},
		regex: `(?mi)^\s*think\s+it\s+over\s*$`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "special_box_didyouknow",
			Kind:           core.PatternSpecialBox,
			ConfidenceBase: 0.7,
			Description:    "'Do you know?' callout box",
			Examples:       []string{"Do you know?", "DO YOU KNOW?"},
		},
		regex: `(?mi)^\s*do\s+you\s+know\??\s*$`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "mathematical_equation",
			Kind:           core.PatternMathematical,
			ConfidenceBase: 0.65,
			Description:    "an equality expression with a named quantity",
			Examples:       []string{"F = ma", "v = u + at"},
		},
		regex: `[A-Za-z](?:_\w+)?\s*=\s*[A-Za-z0-9().,+\-*/ ]{1,40}`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "summary_heading",
			Kind:           core.PatternSummary,
			ConfidenceBase: 0.85,
			Description:    "chapter summary heading",
			Examples:       []string{"What you have learnt", "Summary"},
		},
		regex: `(?mi)^\s*(what you have learnt|summary)\s*$`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "exercises_heading",
			Kind:           core.PatternExercises,
			ConfidenceBase: 0.85,
			Description:    "end-of-chapter exercises heading",
			Examples:       []string{"Exercises", "EXERCISES"},
		},
		regex: `(?mi)^\s*exercises\s*$`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "real_world_application",
			Kind:           core.PatternRealWorldApplication,
			ConfidenceBase: 0.55,
			Description:    "sentence framing everyday or real-world use",
			Examples:       []string{"This principle is used in everyday life to design car brakes."},
		},
		regex: `(?i)(used in (everyday life|daily life)|in real life|real[- ]world application)`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "practical_use",
			Kind:           core.PatternPracticalUse,
			ConfidenceBase: 0.5,
			Description:    "sentence describing a practical device or technique",
			Examples:       []string{"This technique is used to purify water in rural areas."},
		},
		regex: `(?i)(is used (to|for)|this method is applied)`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "basic_concept_definition",
			Kind:           core.PatternBasicConcept,
			ConfidenceBase: 0.55,
			Description:    "introduces a foundational concept",
			Examples:       []string{"The basic concept of force is a push or a pull."},
		},
		regex: `(?i)(the (basic|fundamental) concept of|in simple terms)`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "conceptual_explanation",
			Kind:           core.PatternConceptualExplanation,
			ConfidenceBase: 0.5,
			Description:    "explanatory sentence giving the reason or mechanism behind a phenomenon",
			Examples:       []string{"This happens because the net force acting on the body is zero."},
		},
		regex: `(?i)(this (happens|occurs) because|the reason (for|behind) this is|this explains why)`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "definition_sentence",
			Kind:           core.PatternDefinition,
			ConfidenceBase: 0.6,
			Description:    "'X is defined as Y' sentence",
			Examples:       []string{"Velocity is defined as the rate of change of displacement."},
		},
		regex: `(?i)\b[A-Za-z ]{2,40}\s+is\s+(defined as|called)\b`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "experimental_procedure",
			Kind:           core.PatternExperimentalProcedure,
			ConfidenceBase: 0.6,
			Description:    "step-by-step experimental instruction",
			Examples:       []string{"Take a beaker and fill it with 100 ml of water."},
		},
		regex: `(?i)^(take|place|pour|measure|observe|record)\s+(a|the|\d)`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "hands_on_activity_prompt",
			Kind:           core.PatternHandsOnActivity,
			ConfidenceBase: 0.55,
			Description:    "instruction inviting the reader to do something themselves",
			Examples:       []string{"Try this at home with your friends.", "Let us find out by doing this ourselves."},
		},
		regex: `(?i)(try this|let us (find out|do this)|you can try)`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "physical_phenomena",
			Kind:           core.PatternPhysicalPhenomena,
			ConfidenceBase: 0.5,
			Description:    "sentence naming an observable physical phenomenon",
			Examples:       []string{"When light passes through a prism, it splits into seven colours."},
		},
		regex: `(?i)(when (light|heat|sound|current)\s+\w+)`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "question_numbered",
			Kind:           core.PatternQuestion,
			ConfidenceBase: 0.75,
			Description:    "numbered end-of-chapter question",
			Examples:       []string{"1. State Newton's first law of motion.", "12. Why does a ball bounce?"},
		},
		regex: `(?m)^\s*\d{1,2}\.\s+[A-Z].{5,200}\?*\s*$`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "concept_keyword",
			Kind:           core.PatternConcept,
			ConfidenceBase: 0.4,
			Description:    "a capitalized multi-word technical term",
			Examples:       []string{"Newton's First Law", "Electromagnetic Induction"},
		},
		regex: `\b([A-Z][a-z]+(?:'s)?(?:\s+[A-Z][a-z]+){1,3})\b`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "cross_reference_chapter",
			Kind:           core.PatternCrossReference,
			ConfidenceBase: 0.6,
			Description:    "reference to another chapter or section",
			Examples:       []string{"as discussed in Chapter 6", "see Section 8.2"},
		},
		regex: `(?i)(as (discussed|explained) in (chapter|section)\s+\d{1,2}(\.\d{1,2})?|see (chapter|section)\s+\d{1,2}(\.\d{1,2})?)`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "assessment_marker",
			Kind:           core.PatternAssessmentElement,
			ConfidenceBase: 0.6,
			Description:    "marker introducing a graded assessment item",
			Examples:       []string{"Multiple Choice Questions", "Short Answer Type Questions"},
		},
		regex: `(?mi)^\s*(multiple choice questions|short answer type questions|long answer type questions)\s*$`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "pedagogical_marker_recall",
			Kind:           core.PatternPedagogicalMarker,
			ConfidenceBase: 0.45,
			Description:    "phrase signalling a recall-of-prior-learning cue",
			Examples:       []string{"Recall from the previous chapter that force causes acceleration."},
		},
		regex: `(?i)(recall (from|that)|as you (already know|learnt))`,
	},
	{
		meta: core.PatternMeta{
			PatternID:      "formula_named",
			Kind:           core.PatternFormula,
			ConfidenceBase: 0.7,
			Description:    "a labelled formula line",
			Examples:       []string{"F = ma ... (1)", "v^2 = u^2 + 2as"},
		},
		regex: `[A-Za-z](?:\^\d+)?\s*=\s*[A-Za-z0-9^().,+\-*/ ]{1,40}(\s*\.\.\.\s*\(\d+\))?`,
	},
}
