package section

import (
	"sort"
	"strings"

	"github.com/ncertrag/corekb/core"
	"github.com/ncertrag/corekb/textutil"
)

// addIntroAndEndMatter implements §4.2 phase 4: a Chapter_Intro sentinel
// ahead of the first real header, a Summary sentinel truncating whatever
// section would otherwise have run past the summary marker, and a trailing
// Exercises sentinel. All three sentinels carry confidence 0.9.
func (d *Detector) addIntroAndEndMatter(text string, sections []core.MotherSection, subject, grade, language string) []core.MotherSection {
	firstStart := len(text)
	if len(sections) > 0 {
		firstStart = sections[0].Start
	}

	out := make([]core.MotherSection, 0, len(sections)+3)

	if firstStart > minIntroLength {
		introSlice := text[:firstStart]
		special, _ := d.detectSpecialContent(introSlice, 0, subject, grade, language)
		out = append(out, core.MotherSection{
			SectionNumber:  core.SectionChapterIntro,
			Title:          "Chapter Introduction",
			Start:          0,
			End:            firstStart,
			ContentLength:  firstStart,
			WordCount:      textutil.WordCount(introSlice),
			Confidence:     0.9,
			SpecialContent: special,
			ContentPreview: textutil.Truncate(strings.TrimSpace(introSlice), 200),
		})
	}

	summaryStart, summaryFound := d.findFirstMarker(text, core.PatternSummary)
	exercisesStart, exercisesFound := d.findFirstMarker(text, core.PatternExercises)

	for _, s := range sections {
		if summaryFound && s.End > summaryStart {
			if s.Start >= summaryStart {
				// Entirely inside or after the summary marker: drop, the
				// summary sentinel below covers this span instead.
				continue
			}
			s.End = summaryStart
			s.ContentLength = s.End - s.Start
			truncSlice := text[s.Start:s.End]
			s.WordCount = textutil.WordCount(truncSlice)
			s.SpecialContent, _ = d.detectSpecialContent(truncSlice, s.Start, subject, grade, language)
			s.ContentPreview = textutil.Truncate(strings.TrimSpace(truncSlice), 200)
		}
		out = append(out, s)
	}

	if summaryFound {
		end := len(text)
		if exercisesFound && exercisesStart > summaryStart {
			end = exercisesStart
		}
		slice := text[summaryStart:end]
		special, _ := d.detectSpecialContent(slice, summaryStart, subject, grade, language)
		out = append(out, core.MotherSection{
			SectionNumber:  core.SectionSummary,
			Title:          "Summary",
			Start:          summaryStart,
			End:            end,
			ContentLength:  end - summaryStart,
			WordCount:      textutil.WordCount(slice),
			Confidence:     0.9,
			SpecialContent: special,
			ContentPreview: textutil.Truncate(strings.TrimSpace(slice), 200),
		})
	}

	if exercisesFound {
		slice := text[exercisesStart:]
		special, _ := d.detectSpecialContent(slice, exercisesStart, subject, grade, language)
		out = append(out, core.MotherSection{
			SectionNumber:  core.SectionExercises,
			Title:          "Exercises",
			Start:          exercisesStart,
			End:            len(text),
			ContentLength:  len(text) - exercisesStart,
			WordCount:      textutil.WordCount(slice),
			Confidence:     0.9,
			SpecialContent: special,
			ContentPreview: textutil.Truncate(strings.TrimSpace(slice), 200),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// findFirstMarker returns the earliest match of kind in the full document
// text, at a fixed low threshold since summary/exercises markers are short,
// high-precision headings rather than fuzzy content cues.
func (d *Detector) findFirstMarker(text string, kind core.PatternType) (int, bool) {
	matches, err := d.Library.FindMatches(text, kind, "", "", "", 0.5)
	if err != nil || len(matches) == 0 {
		return 0, false
	}
	earliest := matches[0]
	for _, m := range matches[1:] {
		if m.Start < earliest.Start {
			earliest = m
		}
	}
	return earliest.Start, true
}
