// Package metadata implements the Metadata Extractor (§4.4): given a
// LearningUnit plus its placement context, it derives the five-group
// ChunkMetadata bundle and the chunk's overall quality score, with an
// optional LLM-assisted concept-extraction pass that unions into the
// deterministic result rather than replacing it.
//
// Grounded on _examples/original_source/dynamic_rag_system's
// metadata_extraction_engine.py (content_type_patterns, application_patterns,
// skill/competency/misconception maps, quality-score weighting) and on the
// teacher's graph/builder.go for the idiom of regex-bank-driven extraction
// functions feeding a structured result.
package metadata

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/ncertrag/corekb/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// conceptFold does Unicode-aware case folding (not the ASCII-biased
// strings.ToLower) so two spellings of the same Devanagari or accented
// concept name normalize to the same ConceptID.
var conceptFold = cases.Fold()

// BasicInfoInput is the placement context the caller (the ingest engine, via
// the Section Detector and Learning-Unit Builder's output) supplies; the
// Metadata Extractor has no other way to know where a unit sits.
type BasicInfoInput struct {
	GradeLevel        string
	Subject           string
	Chapter           string
	SectionNumber     string
	SectionTitle      string
	Curriculum        string
	SequenceInSection int
}

// ConceptProposer is the optional LLM-assist hook (§4.4, §6 concept
// extraction). A nil Proposer, or one returning an error, leaves the
// deterministic result untouched.
type ConceptProposer interface {
	ProposeConcepts(ctx context.Context, content string) (*ConceptProposal, error)
}

// ConceptProposal mirrors the §6 concept-extraction response shape.
type ConceptProposal struct {
	MainConcepts         []string
	SubConcepts          []string
	ConceptRelationships []ConceptRelation
	Applications         []string
	Examples             []string
	Misconceptions       []string
	Definitions          map[string]string
	Phenomena            []string
	ContentTypes         []string
}

// ConceptRelation is one {from,to,relationship,strength} edge from an LLM
// concept-extraction response.
type ConceptRelation struct {
	From         string
	To           string
	Relationship string
	Strength     float64
}

// Extractor derives ChunkMetadata for one LearningUnit at a time. It is
// stateless beyond its optional Proposer — safe to share across documents,
// matching the Pattern Library's read-mostly discipline (§5).
type Extractor struct {
	Proposer ConceptProposer
}

// NewExtractor builds an Extractor. proposer may be nil.
func NewExtractor(proposer ConceptProposer) *Extractor {
	return &Extractor{Proposer: proposer}
}

// Extract derives the full metadata bundle and the chunk's quality score for
// one LearningUnit (§4.4). content is the already-assembled chunk content
// (intro + members + conclusion, in document order) so previews and concept
// extraction operate on exactly what gets persisted.
func (e *Extractor) Extract(ctx context.Context, unit *core.LearningUnit, content string, in BasicInfoInput, chunkKind core.ChunkKind) (core.ChunkMetadata, float64) {
	md := core.ChunkMetadata{
		BasicInfo: core.BasicInfo{
			ChunkKind:         chunkKind,
			GradeLevel:        in.GradeLevel,
			Subject:           in.Subject,
			Chapter:           in.Chapter,
			SectionNumber:     in.SectionNumber,
			SectionTitle:      in.SectionTitle,
			Curriculum:        in.Curriculum,
			SequenceInSection: in.SequenceInSection,
			SplitGroupID:      unit.SplitGroupID,
			SplitIndex:        unit.SplitIndex,
		},
	}

	md.ContentComposition = extractContentComposition(unit)
	md.PedagogicalElements = extractPedagogicalElements(unit, content)
	md.ConceptsAndSkills = extractConceptsAndSkills(unit, content, in.Subject, in.GradeLevel)
	md.EducationalContext = extractEducationalContext(content, in.Subject, md.ConceptsAndSkills.MainConcepts)
	md.QualityIndicators = computeQualityIndicators(unit, md)

	if e.Proposer != nil && len(content) > 300 {
		if proposal, err := e.Proposer.ProposeConcepts(ctx, content); err == nil && proposal != nil {
			applyProposal(&md, proposal)
		}
	}

	quality := 0.3*md.QualityIndicators.Completeness +
		0.3*md.QualityIndicators.Coherence +
		0.4*md.QualityIndicators.PedagogicalSoundness
	quality = round2(core.Clamp01(quality))

	return md, quality
}

// applyProposal unions an LLM concept proposal into the deterministic
// result, preserving order of first appearance and swallowing anything
// malformed (§4.4 "Any failure is swallowed").
func applyProposal(md *core.ChunkMetadata, p *ConceptProposal) {
	md.ConceptsAndSkills.MainConcepts = unionPreserveOrder(md.ConceptsAndSkills.MainConcepts, p.MainConcepts)
	md.ConceptsAndSkills.SubConcepts = unionPreserveOrder(md.ConceptsAndSkills.SubConcepts, p.SubConcepts)

	if md.ConceptsAndSkills.ConceptRelationships == nil {
		md.ConceptsAndSkills.ConceptRelationships = make(map[string][]string)
	}
	for _, rel := range p.ConceptRelationships {
		md.ConceptsAndSkills.ConceptRelationships[rel.From] = appendUnique(md.ConceptsAndSkills.ConceptRelationships[rel.From], rel.To)
	}

	if md.ConceptsAndSkills.ConceptDefinitions == nil {
		md.ConceptsAndSkills.ConceptDefinitions = make(map[string]string)
	}
	for concept, def := range p.Definitions {
		if _, exists := md.ConceptsAndSkills.ConceptDefinitions[concept]; !exists {
			md.ConceptsAndSkills.ConceptDefinitions[concept] = def
		}
	}

	md.EducationalContext.RealWorldApplications = unionPreserveOrder(md.EducationalContext.RealWorldApplications, p.Applications)
	md.EducationalContext.CommonMisconceptions = unionPreserveOrder(md.EducationalContext.CommonMisconceptions, p.Misconceptions)

	if len(p.ContentTypes) > 0 {
		md.PedagogicalElements.ContentTypes = unionPreserveOrder(md.PedagogicalElements.ContentTypes, p.ContentTypes)
	}
}

func unionPreserveOrder(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	out := append([]string{}, base...)
	for _, s := range base {
		seen[strings.ToLower(s)] = true
	}
	for _, s := range extra {
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return list
		}
	}
	return append(list, v)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

// ConceptID derives the stable §3 concept identifier: md5(NFC-normalized,
// case-folded, underscored, trimmed name), prefixed. NFC normalization and
// Unicode case folding (rather than strings.ToLower) keep the identifier
// stable across Hindi-language NCERT content where combining-mark and
// case variants of the same concept name must collide to one id.
func ConceptID(name string) core.ConceptID {
	folded := norm.NFC.String(conceptFold.String(strings.TrimSpace(name)))
	folded = strings.Join(strings.Fields(folded), "_")
	sum := md5.Sum([]byte(folded))
	return core.ConceptID("concept_" + hex.EncodeToString(sum[:]))
}

// DeriveChunkKind implements the §3/§9 Open Question 1 resolution: the
// chunk's top-level type is always drawn from the closed ChunkKind set,
// determined by sentinel section and member composition, never guessed.
func DeriveChunkKind(sectionNumber string, unit *core.LearningUnit) core.ChunkKind {
	switch sectionNumber {
	case core.SectionChapterIntro:
		return core.ChunkIntro
	case core.SectionSummary:
		return core.ChunkSummary
	case core.SectionExercises:
		if len(unit.Assessments) > 0 || len(unit.Questions) > 2 {
			return core.ChunkAssessmentQuestions
		}
		return core.ChunkExercises
	}

	hasActivity := len(unit.Activities) > 0
	hasExample := len(unit.Examples) > 0
	hasFigures := len(unit.Figures) > 0
	hasFormulas := len(unit.Formulas) > 0 || len(unit.MathematicalExpressions) > 0
	hasBoxes := len(unit.SpecialBoxes) > 0
	hasAssessment := len(unit.Assessments) > 0 || len(unit.Questions) > 0

	switch {
	case hasActivity && hasExample:
		return core.ChunkMixedContent
	case hasActivity:
		return core.ChunkHandsOnActivity
	case hasExample:
		return core.ChunkWorkedExamples
	case hasAssessment && !hasFigures && !hasFormulas:
		return core.ChunkAssessmentQuestions
	case hasFormulas && !hasFigures:
		return core.ChunkMathematicalFormulas
	case hasFigures && !hasFormulas:
		return core.ChunkVisualAids
	case hasBoxes:
		return core.ChunkSpecialBox
	case unit.MemberCount() == 0 && len(unit.IntroContent) > 0:
		return core.ChunkConceptualExplanation
	default:
		return core.ChunkContent
	}
}

// sortedKeys returns the keys of m in ascending order. No extractor in this
// package calls it.
func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
