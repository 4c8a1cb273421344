package section

import (
	"context"
	"strings"
	"testing"

	"github.com/ncertrag/corekb/core"
	"github.com/ncertrag/corekb/patternlib"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	lib := patternlib.NewLibrary(nil)
	if err := lib.LoadDefaults(); err != nil {
		t.Fatalf("LoadDefaults: %v", err)
	}
	return NewDetector(lib, 0.5, 0.3, nil)
}

func sampleChapterText() string {
	intro := strings.Repeat("This chapter introduces the idea of force and motion in everyday life. ", 4) + "\n"
	body1 := "8.1 Force and Motion\n" +
		strings.Repeat("A force can change the state of motion of an object. ", 12) +
		"\nActivity 8.1\nTake a ball and push it gently across the floor.\n"
	body2 := "8.2 Newton's Laws\n" +
		strings.Repeat("Newton's first law states that a body continues in its state unless acted upon by a force. ", 12) + "\n"
	summary := "What you have learnt\nForce changes motion. Newton's laws govern mechanics.\n"
	exercises := "Exercises\n1. State Newton's first law of motion.\n2. Define force.\n"
	return intro + body1 + body2 + summary + exercises
}

func TestDetectSectionsEndToEnd(t *testing.T) {
	d := newTestDetector(t)
	text := sampleChapterText()

	sections, issues, err := d.DetectSections(context.Background(), text, nil, "Physics", "9", "en")
	if err != nil {
		t.Fatalf("DetectSections: %v", err)
	}
	if len(sections) == 0 {
		t.Fatal("expected at least one section")
	}

	var gotIntro, gotSummary, gotExercises, got81, got82 bool
	for _, s := range sections {
		switch s.SectionNumber {
		case core.SectionChapterIntro:
			gotIntro = true
		case core.SectionSummary:
			gotSummary = true
		case core.SectionExercises:
			gotExercises = true
		case "8.1":
			got81 = true
			if len(s.SpecialContent[core.SpecialActivity]) == 0 {
				t.Error("expected section 8.1 to carry a detected activity")
			}
		case "8.2":
			got82 = true
		}
	}
	if !gotIntro {
		t.Error("expected a Chapter_Intro sentinel section")
	}
	if !gotSummary {
		t.Error("expected a Summary sentinel section")
	}
	if !gotExercises {
		t.Error("expected an Exercises sentinel section")
	}
	if !got81 || !got82 {
		t.Error("expected both numbered sections 8.1 and 8.2")
	}

	for i := 1; i < len(sections); i++ {
		if sections[i].Start < sections[i-1].Start {
			t.Fatal("sections must be returned in ascending start order")
		}
	}

	for _, iss := range issues {
		if iss.Kind == "overlapping_sections" {
			t.Errorf("unexpected overlap issue: %+v", iss)
		}
	}
}

func TestDetectSectionsNoHeadersReportsZeroSections(t *testing.T) {
	d := newTestDetector(t)
	text := "Just some plain prose with no numbered headings anywhere in it at all."

	sections, issues, err := d.DetectSections(context.Background(), text, nil, "Physics", "9", "en")
	if err != nil {
		t.Fatalf("DetectSections: %v", err)
	}
	if len(sections) != 0 {
		t.Fatalf("expected zero sections, got %d", len(sections))
	}
	foundZero := false
	for _, iss := range issues {
		if iss.Kind == "zero_sections" {
			foundZero = true
		}
	}
	if !foundZero {
		t.Error("expected a zero_sections issue")
	}
}

func TestDetectSectionsLowWordCountFlagged(t *testing.T) {
	d := newTestDetector(t)
	text := "8.1 A Short Section\nToo little content here.\n8.2 Another One\n" +
		strings.Repeat("word ", 60)

	_, issues, err := d.DetectSections(context.Background(), text, nil, "Physics", "9", "en")
	if err != nil {
		t.Fatalf("DetectSections: %v", err)
	}
	found := false
	for _, iss := range issues {
		if iss.Kind == "low_word_count" && iss.Section == "8.1" {
			found = true
		}
	}
	if !found {
		t.Error("expected a low_word_count issue for the short section 8.1")
	}
}

func TestPageMapIsApplied(t *testing.T) {
	d := newTestDetector(t)
	text := sampleChapterText()
	pm := func(offset int) int { return 1 + offset/500 }

	sections, _, err := d.DetectSections(context.Background(), text, pm, "Physics", "9", "en")
	if err != nil {
		t.Fatalf("DetectSections: %v", err)
	}
	for _, s := range sections {
		if s.PageNumber != pm(s.Start) {
			t.Errorf("section %q: page number %d does not match page map", s.SectionNumber, s.PageNumber)
		}
	}
}
