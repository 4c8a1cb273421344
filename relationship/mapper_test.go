package relationship

import (
	"testing"

	"github.com/ncertrag/corekb/core"
)

func TestSequentialEdgesWithinSection(t *testing.T) {
	chunks := []ChunkInput{
		{ChunkID: "c1", MotherSectionID: "s1", SectionNumber: "8.1", SequenceInMother: 0, Kind: core.ChunkConceptualExplanation},
		{ChunkID: "c2", MotherSectionID: "s1", SectionNumber: "8.1", SequenceInMother: 1, Kind: core.ChunkConceptualExplanation},
	}
	edges := Map(chunks, nil)

	found := false
	for _, e := range edges {
		if e.Kind == core.RelPrerequisite && e.SourceChunkID == "c1" && e.TargetChunkID == "c2" {
			found = true
			if e.Strength != 0.7 || e.Confidence != 0.8 {
				t.Errorf("expected strength 0.7 confidence 0.8, got %v/%v", e.Strength, e.Confidence)
			}
		}
	}
	if !found {
		t.Fatal("expected a sequential prerequisite edge from c1 to c2")
	}
}

func TestNoSelfEdge(t *testing.T) {
	chunks := []ChunkInput{
		{ChunkID: "c1", MotherSectionID: "s1", SequenceInMother: 0},
	}
	for _, e := range Map(chunks, nil) {
		if e.SourceChunkID == e.TargetChunkID {
			t.Fatalf("unexpected self-edge: %+v", e)
		}
	}
}

// TestSplitFollowsEdge covers §8 scenario S5: two sub-units produced by a
// pedagogical split get a "follows" edge with strength 0.6, in addition to
// the ordinary same-section sequential prerequisite edge.
func TestSplitFollowsEdge(t *testing.T) {
	chunks := []ChunkInput{
		{
			ChunkID: "c1", MotherSectionID: "s1", SectionNumber: "8.1", SequenceInMother: 0,
			Kind: core.ChunkWorkedExamples, SplitGroupID: "group-1", SplitIndex: 0,
		},
		{
			ChunkID: "c2", MotherSectionID: "s1", SectionNumber: "8.1", SequenceInMother: 1,
			Kind: core.ChunkWorkedExamples, SplitGroupID: "group-1", SplitIndex: 1,
		},
	}
	edges := Map(chunks, nil)

	var follows *core.ChunkRelationship
	for i := range edges {
		if edges[i].Kind == core.RelFollows {
			follows = &edges[i]
		}
	}
	if follows == nil {
		t.Fatal("expected a follows edge between the split sub-units")
	}
	if follows.SourceChunkID != "c1" || follows.TargetChunkID != "c2" {
		t.Errorf("expected follows from c1 to c2, got %s -> %s", follows.SourceChunkID, follows.TargetChunkID)
	}
	if follows.Strength != 0.6 {
		t.Errorf("expected follows strength 0.6 per §8 scenario S5, got %v", follows.Strength)
	}
}

func TestSplitFollowsEdgeIgnoresUnsplitChunks(t *testing.T) {
	chunks := []ChunkInput{
		{ChunkID: "c1", MotherSectionID: "s1", SequenceInMother: 0},
		{ChunkID: "c2", MotherSectionID: "s1", SequenceInMother: 1},
	}
	for _, e := range Map(chunks, nil) {
		if e.Kind == core.RelFollows {
			t.Fatalf("unexpected follows edge for chunks with no split lineage: %+v", e)
		}
	}
}

func TestMergeTakesMaxStrengthAndConfidence(t *testing.T) {
	edges := make(map[string]core.ChunkRelationship)
	emit := func(e core.ChunkRelationship) {
		key := string(e.SourceChunkID) + "|" + string(e.TargetChunkID) + "|" + string(e.Kind)
		if existing, ok := edges[key]; ok {
			if e.Strength > existing.Strength {
				existing.Strength = e.Strength
			}
			if e.Confidence > existing.Confidence {
				existing.Confidence = e.Confidence
			}
			edges[key] = existing
			return
		}
		edges[key] = e
	}

	emit(core.ChunkRelationship{SourceChunkID: "a", TargetChunkID: "b", Kind: core.RelRelated, Strength: 0.4, Confidence: 0.5})
	emit(core.ChunkRelationship{SourceChunkID: "a", TargetChunkID: "b", Kind: core.RelRelated, Strength: 0.9, Confidence: 0.2})

	got := edges["a|b|related"]
	if got.Strength != 0.9 || got.Confidence != 0.5 {
		t.Errorf("expected max-merged strength 0.9 confidence 0.5, got %v/%v", got.Strength, got.Confidence)
	}
}
