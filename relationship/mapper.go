// Package relationship implements the Relationship Mapper (§4.5): given the
// stored chunks for one or many documents, it derives typed edges —
// sequential prerequisite, activity/explanation pairs, concept overlap, and
// cross-grade prerequisite — ready to hand to the Chunk Store's upsert,
// which performs the strength/confidence max-merge on collision (§3, §4.6).
//
// Grounded on the teacher's graph/builder.go (the relationship-extraction
// idiom: derive typed edges from a structured input set, keyed by a stable
// id) and on _examples/original_source/dynamic_rag_system/chunking's
// relationship-derivation rules in spec.md §4.5, which has no single direct
// Python source file in the retrieved pack beyond the README-level
// description of chunk_manager.py's traversal (credited in SPEC_FULL.md
// Part D supplement 5).
package relationship

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/ncertrag/corekb/core"
)

// ChunkInput is the minimal view of a stored chunk the mapper needs: full
// BabyChunk plus its mother-section sequence, grade, and concept tags,
// already denormalised by the Chunk Store's metadata index (§4.6
// chunk_metadata_index).
type ChunkInput struct {
	ChunkID          core.ChunkID
	DocumentID       core.DocumentID
	MotherSectionID  core.SectionID
	SectionNumber    string
	SequenceInMother int
	Kind             core.ChunkKind
	GradeLevel       string
	MainConcepts     []string
	Content          string

	// SplitGroupID/SplitIndex carry a pedagogical split's (§4.3) lineage:
	// every chunk derived from the same oversized unit shares a non-empty
	// SplitGroupID, ordered by SplitIndex. Empty for chunks that were never
	// split.
	SplitGroupID core.UnitID
	SplitIndex   int
}

// ConceptCorpusRef is one (grade, chunk) pair the global concept index
// associates with a concept name, used for cross-grade prerequisite
// derivation.
type ConceptCorpusRef struct {
	ChunkID core.ChunkID
	Grade   string
}

// ConceptIndex maps a lowercased concept name to every chunk in the corpus
// (across all documents) that mentions it, as supplied by the Chunk Store's
// concept_mappings table (§4.6 chunks_by_concept).
type ConceptIndex map[string][]ConceptCorpusRef

// prerequisiteConceptMap is the built-in heuristic concept→prerequisite
// table (§4.5, §9 Open Question 2 — treated as data, not algorithm).
var prerequisiteConceptMap = map[string][]string{
	"force":            {"motion", "mass", "acceleration"},
	"energy":           {"work", "force", "motion"},
	"acceleration":     {"velocity", "motion"},
	"electric current": {"charge", "voltage"},
}

// RelationshipID derives the stable §3 relationship identifier as a function
// of (source, target, kind).
func RelationshipID(source, target core.ChunkID, kind core.RelationshipType) string {
	sum := sha256.Sum256([]byte(string(source) + "|" + string(target) + "|" + string(kind)))
	return "rel_" + hex.EncodeToString(sum[:16])
}

// Map derives every edge among the given chunks, grouped by mother section
// (for sequential/activity-explanation rules) and by document (for concept
// overlap), plus cross-grade prerequisites from the supplied global concept
// index. Duplicate (source, target, kind) triples are merged by taking the
// max strength/confidence before being returned, matching the merge rule
// the Chunk Store itself applies on a second insert (§3, §4.5, §8
// invariant 5).
func Map(chunks []ChunkInput, index ConceptIndex) []core.ChunkRelationship {
	edges := make(map[string]core.ChunkRelationship)

	emit := func(e core.ChunkRelationship) {
		if e.SourceChunkID == e.TargetChunkID {
			return // §8 invariant 6: no self-edge
		}
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
		e.RelationshipID = RelationshipID(e.SourceChunkID, e.TargetChunkID, e.Kind)
		e.CreatedBy = "system"
		edges[key] = e
	}

	bySection := groupBySection(chunks)
	for _, section := range bySection {
		sequentialEdges(section, emit)
		activityExplanationEdges(section, emit)
	}

	crossSectionPrerequisites(bySection, emit)

	splitFollowsEdges(chunks, emit)

	byDocument := groupByDocument(chunks)
	for _, doc := range byDocument {
		conceptOverlapEdges(doc, emit)
	}

	crossGradePrerequisites(chunks, index, emit)

	out := make([]core.ChunkRelationship, 0, len(edges))
	for _, e := range edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelationshipID < out[j].RelationshipID })
	return out
}

func groupBySection(chunks []ChunkInput) map[core.SectionID][]ChunkInput {
	out := make(map[core.SectionID][]ChunkInput)
	for _, c := range chunks {
		out[c.MotherSectionID] = append(out[c.MotherSectionID], c)
	}
	for k := range out {
		sort.Slice(out[k], func(i, j int) bool { return out[k][i].SequenceInMother < out[k][j].SequenceInMother })
	}
	return out
}

func groupByDocument(chunks []ChunkInput) map[core.DocumentID][]ChunkInput {
	out := make(map[core.DocumentID][]ChunkInput)
	for _, c := range chunks {
		out[c.DocumentID] = append(out[c.DocumentID], c)
	}
	return out
}

// sequentialEdges implements "within the same mother section, chunk at
// position i+1 has a prerequisite edge from position i" (§4.5).
func sequentialEdges(section []ChunkInput, emit func(core.ChunkRelationship)) {
	for i := 0; i+1 < len(section); i++ {
		emit(core.ChunkRelationship{
			SourceChunkID: section[i].ChunkID,
			TargetChunkID: section[i+1].ChunkID,
			Kind:          core.RelPrerequisite,
			Strength:      0.7,
			Confidence:    0.8,
			Metadata:      map[string]any{"method": "sequential"},
		})
	}
}

// splitFollowsEdges implements §8 scenario S5: when a pedagogical split
// (§4.3) divides one oversized unit into sub-units, each consecutive pair
// gets a "follows" edge with strength 0.6, distinct from (and in addition
// to) the same-section sequential prerequisite edge sequentialEdges already
// emits for them.
func splitFollowsEdges(chunks []ChunkInput, emit func(core.ChunkRelationship)) {
	groups := make(map[core.UnitID][]ChunkInput)
	for _, c := range chunks {
		if c.SplitGroupID == "" {
			continue
		}
		groups[c.SplitGroupID] = append(groups[c.SplitGroupID], c)
	}
	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool { return group[i].SplitIndex < group[j].SplitIndex })
		for i := 0; i+1 < len(group); i++ {
			emit(core.ChunkRelationship{
				SourceChunkID: group[i].ChunkID,
				TargetChunkID: group[i+1].ChunkID,
				Kind:          core.RelFollows,
				Strength:      0.6,
				Confidence:    0.8,
				Metadata:      map[string]any{"method": "pedagogical_split"},
			})
		}
	}
}

func isActivityKind(k core.ChunkKind) bool {
	return k == core.ChunkActivity || k == core.ChunkHandsOnActivity
}

// activityExplanationEdges implements "when adjacent units are of opposite
// kinds, emit demonstrates (activity→explanation) or explains
// (explanation→activity)" (§4.5).
func activityExplanationEdges(section []ChunkInput, emit func(core.ChunkRelationship)) {
	for i := 0; i+1 < len(section); i++ {
		a, b := section[i], section[i+1]
		aIsActivity, bIsActivity := isActivityKind(a.Kind), isActivityKind(b.Kind)
		if aIsActivity == bIsActivity {
			continue
		}
		if aIsActivity {
			emit(core.ChunkRelationship{
				SourceChunkID: a.ChunkID, TargetChunkID: b.ChunkID,
				Kind: core.RelDemonstrates, Strength: 0.8, Confidence: 0.7,
				Metadata: map[string]any{"method": "activity_explanation_adjacency"},
			})
		} else {
			emit(core.ChunkRelationship{
				SourceChunkID: a.ChunkID, TargetChunkID: b.ChunkID,
				Kind: core.RelExplains, Strength: 0.7, Confidence: 0.7,
				Metadata: map[string]any{"method": "activity_explanation_adjacency"},
			})
		}
	}
}

// crossSectionPrerequisites implements "when mother sections differ but
// section numbers parse as dotted decimals, the chunk in the
// numerically-lower section is a prerequisite of the higher" (§4.5).
func crossSectionPrerequisites(bySection map[core.SectionID][]ChunkInput, emit func(core.ChunkRelationship)) {
	type sectionRef struct {
		id    core.SectionID
		major int
		minor int
		last  ChunkInput
		first ChunkInput
	}
	var refs []sectionRef
	for id, chunks := range bySection {
		if len(chunks) == 0 {
			continue
		}
		major, minor, ok := parseDottedSection(chunks[0].SectionNumber)
		if !ok {
			continue
		}
		refs = append(refs, sectionRef{id: id, major: major, minor: minor, last: chunks[len(chunks)-1], first: chunks[0]})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].major != refs[j].major {
			return refs[i].major < refs[j].major
		}
		return refs[i].minor < refs[j].minor
	})
	for i := 0; i+1 < len(refs); i++ {
		emit(core.ChunkRelationship{
			SourceChunkID: refs[i].last.ChunkID,
			TargetChunkID: refs[i+1].first.ChunkID,
			Kind:          core.RelPrerequisite,
			Strength:      0.6,
			Confidence:    0.7,
			Metadata:      map[string]any{"method": "cross_section_numbering"},
		})
	}
}

func parseDottedSection(number string) (major, minor int, ok bool) {
	parts := strings.SplitN(number, ".", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	maj, err1 := strconv.Atoi(parts[0])
	min, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return maj, min, true
}

// conceptOverlapEdges implements "for chunks of differing kinds in the same
// document, if Jaccard similarity of lowercased token sets exceeds 0.3, emit
// related" (§4.5).
func conceptOverlapEdges(doc []ChunkInput, emit func(core.ChunkRelationship)) {
	tokenSets := make([]map[string]bool, len(doc))
	for i, c := range doc {
		tokenSets[i] = tokenSet(c.Content)
	}
	for i := 0; i < len(doc); i++ {
		for j := i + 1; j < len(doc); j++ {
			if doc[i].Kind == doc[j].Kind {
				continue
			}
			overlap := jaccard(tokenSets[i], tokenSets[j])
			if overlap <= 0.3 {
				continue
			}
			emit(core.ChunkRelationship{
				SourceChunkID: doc[i].ChunkID, TargetChunkID: doc[j].ChunkID,
				Kind: core.RelRelated, Strength: overlap, Confidence: 0.7,
				Metadata: map[string]any{"method": "concept_overlap", "jaccard": overlap},
			})
		}
	}
}

func tokenSet(content string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(content)) {
		w = strings.Trim(w, ".,;:!?()[]\"'")
		if len(w) >= 4 {
			set[w] = true
		}
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// crossGradePrerequisites implements the §4.5 cross-grade rule: for each
// chunk's main concepts at grade g, consult the built-in prerequisite map
// and consider each matching concept present in the corpus at any grade < g
// a prerequisite.
func crossGradePrerequisites(chunks []ChunkInput, index ConceptIndex, emit func(core.ChunkRelationship)) {
	if index == nil {
		return
	}
	for _, c := range chunks {
		g, ok := gradeRank(c.GradeLevel)
		if !ok {
			continue
		}
		for _, concept := range c.MainConcepts {
			prereqs, ok := prerequisiteConceptMap[strings.ToLower(concept)]
			if !ok {
				continue
			}
			for _, prereqConcept := range prereqs {
				refs := index[strings.ToLower(prereqConcept)]
				for _, ref := range refs {
					rg, ok := gradeRank(ref.Grade)
					if !ok || rg >= g {
						continue
					}
					emit(core.ChunkRelationship{
						SourceChunkID: ref.ChunkID,
						TargetChunkID: c.ChunkID,
						Kind:          core.RelPrerequisite,
						Strength:      0.9,
						Confidence:    0.7,
						Metadata: map[string]any{
							"method":  "cross_grade",
							"concept": prereqConcept,
							"evidence": []string{string(ref.ChunkID)},
						},
					})
				}
			}
		}
	}
}

func gradeRank(grade string) (int, bool) {
	n, err := strconv.Atoi(grade)
	if err != nil {
		return 0, false
	}
	return n, true
}
