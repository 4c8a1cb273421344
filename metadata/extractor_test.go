package metadata

import (
	"context"
	"strings"
	"testing"

	"github.com/ncertrag/corekb/core"
)

func TestExtractPopulatesAllGroups(t *testing.T) {
	unit := &core.LearningUnit{
		IntroContent:      strings.Repeat("Force is defined as a push or a pull. ", 6),
		ConclusionContent: "This demonstrates that unbalanced forces change motion.",
		Activities: []core.ElementMember{
			{Kind: core.SpecialActivity, Identifier: "8.1", Content: strings.Repeat("Push a ball gently. ", 5)},
		},
		Examples: []core.ElementMember{
			{Kind: core.SpecialExample, Identifier: "8.1", Content: "A block moves at constant velocity. Solution: the net force is zero."},
		},
	}
	content := unit.IntroContent + unit.Activities[0].Content + unit.Examples[0].Content + unit.ConclusionContent

	e := NewExtractor(nil)
	md, quality := e.Extract(context.Background(), unit, content, BasicInfoInput{
		GradeLevel: "9", Subject: "Physics", Chapter: "8", SectionNumber: "8.1", SectionTitle: "Force and Motion",
		Curriculum: "NCERT", SequenceInSection: 1,
	}, core.ChunkMixedContent)

	if quality < 0 || quality > 1 {
		t.Fatalf("quality score out of [0,1]: %v", quality)
	}
	if md.ContentComposition.MemberCounts["activities"] != 1 {
		t.Errorf("expected 1 activity, got %d", md.ContentComposition.MemberCounts["activities"])
	}
	if !md.ContentComposition.HasSolution {
		t.Error("expected HasSolution to be true given a 'Solution:' marker")
	}
	if len(md.PedagogicalElements.LearningStyles) == 0 {
		t.Error("expected at least one learning style to be derived")
	}
	if md.BasicInfo.ChunkKind != core.ChunkMixedContent {
		t.Errorf("expected basic_info chunk kind to be passed through, got %v", md.BasicInfo.ChunkKind)
	}
}

func TestQualityScoreMonotoneInMemberPresence(t *testing.T) {
	e := NewExtractor(nil)

	bare := &core.LearningUnit{IntroContent: "Some introductory prose about force."}
	_, bareScore := e.Extract(context.Background(), bare, bare.IntroContent, BasicInfoInput{Subject: "Physics"}, core.ChunkContent)

	richer := &core.LearningUnit{
		IntroContent:      bare.IntroContent,
		ConclusionContent: "In summary, force changes motion.",
		Activities:        []core.ElementMember{{Kind: core.SpecialActivity, Identifier: "8.1", Content: "Do this activity."}},
		Examples:          []core.ElementMember{{Kind: core.SpecialExample, Identifier: "8.1", Content: "Worked example content."}},
	}
	richContent := richer.IntroContent + richer.Activities[0].Content + richer.Examples[0].Content + richer.ConclusionContent
	_, richScore := e.Extract(context.Background(), richer, richContent, BasicInfoInput{Subject: "Physics"}, core.ChunkMixedContent)

	if richScore < bareScore {
		t.Errorf("expected quality score to be non-decreasing with more member kinds: bare=%v richer=%v", bareScore, richScore)
	}
}

func TestDeriveChunkKindSentinelsTakePriority(t *testing.T) {
	if k := DeriveChunkKind(core.SectionSummary, &core.LearningUnit{}); k != core.ChunkSummary {
		t.Errorf("expected summary sentinel to yield ChunkSummary, got %v", k)
	}
	if k := DeriveChunkKind(core.SectionChapterIntro, &core.LearningUnit{}); k != core.ChunkIntro {
		t.Errorf("expected intro sentinel to yield ChunkIntro, got %v", k)
	}
}

func TestConceptIDStable(t *testing.T) {
	a := ConceptID("  Force  ")
	b := ConceptID("force")
	if a != b {
		t.Errorf("expected case/whitespace-insensitive concept ids to match: %v != %v", a, b)
	}
}
