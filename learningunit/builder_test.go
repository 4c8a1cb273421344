package learningunit

import (
	"context"
	"strings"
	"testing"

	"github.com/ncertrag/corekb/core"
	"github.com/ncertrag/corekb/patternlib"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	lib := patternlib.NewLibrary(nil)
	if err := lib.LoadDefaults(); err != nil {
		t.Fatalf("LoadDefaults: %v", err)
	}
	return NewBuilder(lib, nil, 500, 2000, 0.3, nil)
}

func TestBuildUnitsGroupsActivityAndExample(t *testing.T) {
	b := newTestBuilder(t)
	slice := strings.Repeat("Force and motion are related through Newton's laws. ", 6) +
		"Activity 8.1\n" + strings.Repeat("Push a ball gently across a smooth floor and observe its path. ", 5) +
		"Example 8.1\n" + strings.Repeat("A 2 kg block moves at constant velocity. ", 6) + "Solution: the net force is zero.\n" +
		strings.Repeat("This demonstrates that unbalanced forces change motion. ", 4)

	units, err := b.BuildUnits(context.Background(), slice, "Physics", "9", "en")
	if err != nil {
		t.Fatalf("BuildUnits: %v", err)
	}
	if len(units) == 0 {
		t.Fatal("expected at least one learning unit")
	}

	var found bool
	for _, u := range units {
		if len(u.Activities) > 0 && len(u.Examples) > 0 {
			found = true
		}
		if u.End < u.Start {
			t.Errorf("unit has end %d before start %d", u.End, u.Start)
		}
		for _, bucket := range u.Activities {
			if bucket.AbsolutePos < u.Start || bucket.AbsolutePos >= u.End {
				t.Errorf("activity member at %d falls outside unit range [%d,%d)", bucket.AbsolutePos, u.Start, u.End)
			}
		}
	}
	if !found {
		t.Error("expected a unit grouping both the activity and example together")
	}
}

func TestBuildUnitsNoElementsEmitsWholeSliceAsIntro(t *testing.T) {
	b := newTestBuilder(t)
	slice := strings.Repeat("Plain descriptive prose with no pedagogical markers at all. ", 10)

	units, err := b.BuildUnits(context.Background(), slice, "Physics", "9", "en")
	if err != nil {
		t.Fatalf("BuildUnits: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected exactly one unit, got %d", len(units))
	}
	if units[0].IntroContent != slice {
		t.Error("expected the whole slice to become the unit's intro content")
	}
}

func TestPedagogicalSplitRequiresTwoSplitPoints(t *testing.T) {
	b := newTestBuilder(t)
	u := core.LearningUnit{
		Start: 0, End: 100,
		Examples: []core.ElementMember{{Kind: core.SpecialExample, AbsolutePos: 10, Content: strings.Repeat("x", 3500)}},
	}
	out := b.pedagogicalSplit(strings.Repeat("x", 100), u, 2000)
	if len(out) != 1 {
		t.Fatalf("expected no split with a single split point, got %d sub-units", len(out))
	}
	if !out[0].SplitResidual {
		t.Error("expected the oversized, unsplittable unit to be flagged as a split residual")
	}
}

func TestPedagogicalSplitDividesAtSecondPointOnward(t *testing.T) {
	b := newTestBuilder(t)
	slice := strings.Repeat("a", 4000)
	u := core.LearningUnit{
		Start: 0, End: 4000,
		Examples: []core.ElementMember{
			{Kind: core.SpecialExample, AbsolutePos: 800, Content: strings.Repeat("x", 1750)},
			{Kind: core.SpecialExample, AbsolutePos: 2200, Content: strings.Repeat("x", 1750)},
		},
	}
	out := b.pedagogicalSplit(slice, u, 2000)
	if len(out) != 2 {
		t.Fatalf("expected a 2-way split, got %d sub-units", len(out))
	}
	if out[0].End != 2200 {
		t.Errorf("expected first sub-unit to end at the second split point 2200, got %d", out[0].End)
	}
	if out[0].SplitGroupID == "" || out[0].SplitGroupID != out[1].SplitGroupID {
		t.Error("expected both sub-units to share a non-empty split group id (§8 scenario S5)")
	}
	if out[0].SplitIndex != 0 || out[1].SplitIndex != 1 {
		t.Errorf("expected sub-unit split indices 0, 1 in document order, got %d, %d", out[0].SplitIndex, out[1].SplitIndex)
	}
}

func TestUnitsFromProposalsRejectsOutOfBounds(t *testing.T) {
	b := newTestBuilder(t)
	_, err := b.unitsFromProposals("short text", []ProposedUnit{{Start: 0, End: 1000, UnitType: "activity"}})
	if err == nil {
		t.Fatal("expected an error for an out-of-bounds proposed unit")
	}
}
