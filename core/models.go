package core

import "time"

// SourceDocument is one ingested file (§3).
type SourceDocument struct {
	DocumentID  DocumentID
	Title       string
	ContentKind ContentKind
	FilePath    string
	ByteSize    int64
	ContentHash string // SHA-256 hex of the raw bytes
	Subject     string
	GradeLevel  string
	Curriculum  string
	Language    string
	Status      ProcessingStatus
	Version     int

	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt *time.Time

	TotalPages      int
	TotalCharacters int
	TotalWords      int
}

// SpecialContentItem is a detected pedagogical element (§3).
type SpecialContentItem struct {
	Kind SpecialContentKind

	// Identifier is "8.1" for activities/examples, the figure number for
	// figures, or the first ~20 chars of the match for a special box.
	Identifier string

	RelativeOffset int // offset within the owning section
	AbsoluteOffset int // offset within the full document text

	Preview    string
	Confidence float64

	// Metadata is free-form: caption, matching pattern id, box subtype,
	// equation kind, depending on Kind.
	Metadata map[string]any
}

// MotherSection is a numbered top-level section (§3).
type MotherSection struct {
	SectionID  SectionID
	DocumentID DocumentID

	// SectionNumber is e.g. "8.1", or a sentinel: Chapter_Intro, Summary,
	// Exercises.
	SectionNumber string
	Title         string

	Start, End int // absolute character range [Start, End)
	PageNumber int

	ContentLength int
	WordCount     int
	Confidence    float64

	SpecialContent map[SpecialContentKind][]SpecialContentItem

	ContentPreview string
	Version        int
	CreatedAt      time.Time
}

// Sentinel section numbers used for non-numbered mother sections.
const (
	SectionChapterIntro = "Chapter_Intro"
	SectionSummary      = "Summary"
	SectionExercises    = "Exercises"
)

// EducationalFlow tags the shape of a learning unit's pedagogical arc.
type EducationalFlow string

const (
	FlowIntroActivityExampleConclusion EducationalFlow = "intro_activity_example_conclusion"
	FlowIntroExampleConclusion         EducationalFlow = "intro_example_conclusion"
	FlowIntroActivityConclusion        EducationalFlow = "intro_activity_conclusion"
	FlowIntroOnly                      EducationalFlow = "intro_only"
	FlowMixed                          EducationalFlow = "mixed"
)

// ElementMember is one pedagogical element grouped into a LearningUnit:
// an activity, example, figure, question, formula, special box, assessment
// marker, cross-reference, or pedagogical marker. ContentEnd is only
// meaningful for "spanning" kinds; others use a single offset.
type ElementMember struct {
	Kind           SpecialContentKind
	Identifier     string
	Content        string
	ContentStart   int
	ContentEnd     int
	AbsolutePos    int
	Metadata       map[string]any
}

// LearningUnit is a coherent chunk of pedagogy before persistence (§3).
type LearningUnit struct {
	UnitID UnitID

	Start, End int

	IntroContent      string
	ConclusionContent string

	Activities              []ElementMember
	Examples                []ElementMember
	Figures                 []ElementMember
	Questions               []ElementMember
	Formulas                []ElementMember
	SpecialBoxes            []ElementMember
	MathematicalExpressions []ElementMember
	CrossReferences         []ElementMember
	Assessments             []ElementMember
	PedagogicalMarkers      []ElementMember

	Concepts       []string
	EducationalFlow EducationalFlow

	// SplitResidual marks a unit that exceeded max_chunk_size but could not
	// be split (no eligible split points) — §8 invariant 7.
	SplitResidual bool

	// SplitGroupID is shared by every sub-unit a pedagogical split (§4.3)
	// produced from one oversized unit; empty for units that were never
	// split. SplitIndex is the sub-unit's position within that group,
	// 0-based in document order. The Relationship Mapper uses both to emit
	// the §4.5/§8 scenario S5 "follows" edge between adjacent split halves.
	SplitGroupID UnitID
	SplitIndex   int
}

// Size is the sum of prose plus member content lengths (§3 invariant).
func (u *LearningUnit) Size() int {
	n := len(u.IntroContent) + len(u.ConclusionContent)
	for _, members := range u.allBuckets() {
		for _, m := range members {
			n += len(m.Content)
		}
	}
	return n
}

func (u *LearningUnit) allBuckets() [][]ElementMember {
	return [][]ElementMember{
		u.Activities, u.Examples, u.Figures, u.Questions, u.Formulas,
		u.SpecialBoxes, u.MathematicalExpressions, u.CrossReferences,
		u.Assessments, u.PedagogicalMarkers,
	}
}

// MemberCount returns the total number of pedagogical elements in the unit.
func (u *LearningUnit) MemberCount() int {
	n := 0
	for _, members := range u.allBuckets() {
		n += len(members)
	}
	return n
}

// ChunkMetadata is the five-group bundle attached to every BabyChunk (§4.4).
type ChunkMetadata struct {
	BasicInfo          BasicInfo
	ContentComposition ContentComposition
	PedagogicalElements PedagogicalElements
	ConceptsAndSkills  ConceptsAndSkills
	EducationalContext EducationalContext
	QualityIndicators  QualityIndicators
}

type BasicInfo struct {
	ChunkKind     ChunkKind
	GradeLevel    string
	Subject       string
	Chapter       string
	SectionNumber string
	SectionTitle  string
	Curriculum    string
	SequenceInSection int

	// SplitGroupID/SplitIndex carry the owning LearningUnit's split lineage
	// (see LearningUnit.SplitGroupID) through to the persisted chunk, so the
	// Relationship Mapper can recover it from the Chunk Store without the
	// in-memory unit.
	SplitGroupID UnitID
	SplitIndex   int
}

type ContentComposition struct {
	MemberCounts       map[string]int
	ActivityIDs        []string
	ExampleIDs         []string
	FigureIDs          []string
	QuestionPreviews   []string
	Formulas           []string
	SpecialBoxTypes    []string
	MathPreviews       []string
	CrossReferences    []string
	AssessmentTypes    []string
	PedagogicalMarkers []string
	HasSolution        bool
}

type PedagogicalElements struct {
	ContentTypes         []string
	LearningStyles       []string
	CognitiveLevel       string
	DifficultyLevel      DifficultyLevel
	EstimatedTimeMinutes float64
	ReadingLevel         string
	CognitiveLevels      []CognitiveLevel
}

type ConceptsAndSkills struct {
	MainConcepts         []string
	SubConcepts          []string
	ConceptRelationships map[string][]string
	ConceptDefinitions   map[string]string
	SkillsDeveloped      []string
	Competencies         []string
	PrerequisiteConcepts []string
	LearningObjectives   []string
	Keywords             []string
}

type EducationalContext struct {
	CommonMisconceptions   []string
	RealWorldApplications  []string
	CareerConnections      []string
	HistoricalContext      []string
	AssessmentObjectives   []string
}

type QualityIndicators struct {
	Completeness           float64
	Coherence              float64
	PedagogicalSoundness   float64
	ContentDepth           float64
	PedagogicalCompleteness float64
	ConceptualClarity      float64
	EngagementLevel        float64
}

// BabyChunk is a persisted chunk (§3).
type BabyChunk struct {
	ChunkID         ChunkID
	ChunkKind       ChunkKind
	DocumentID      DocumentID
	MotherSectionID SectionID
	SequenceInMother int

	Content     string
	ContentHash string

	Metadata ChunkMetadata

	QualityScore    float64
	ValidationState ValidationState

	PrerequisiteChunkIDs []ChunkID
	RelatedChunkIDs      []ChunkID
	ConceptTags          []string

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time

	EmbeddingRef string // opaque reference into an external embedding store
}

// ChunkRelationship is a typed edge (§3).
type ChunkRelationship struct {
	RelationshipID string
	SourceChunkID  ChunkID
	TargetChunkID  ChunkID
	Kind           RelationshipType
	Strength       float64
	Confidence     float64
	Metadata       map[string]any
	CreatedBy      string // "system" or a user id
	CreatedAt      time.Time
	Validated      bool
}

// ConceptMapping is concept-to-chunks (§3).
type ConceptMapping struct {
	ConceptID   ConceptID
	ConceptName string
	ChunkIDs    map[ChunkID]struct{}
	Confidence  float64
	Evidence    []string
	CreatedAt   time.Time
	LastUpdated time.Time
}

// Pattern is an item in the Pattern Library (§3). The regex itself lives in
// patternlib.Pattern, which embeds this for the data fields shared with
// persistence/export.
type PatternMeta struct {
	PatternID       string
	Kind            PatternType
	ConfidenceBase  float64
	SubjectSpecific bool
	Subjects        []string
	GradeLevels     []string
	Curriculum      string
	Language        string
	Description     string
	Examples        []string
	Version         string
	SuccessRate     float64
	LastUpdated     time.Time
}
