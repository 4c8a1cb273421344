package corekb

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds every recognized option for the decomposition pipeline (§6
// Configuration). It is an explicit value constructed once at startup and
// threaded into the Pattern Library, Section Detector, Learning-Unit
// Builder, and Metadata Extractor — never a process-wide singleton (§9
// Design Notes, "Global singletons").
type Config struct {
	// DBPath is the full path to the SQLite database file. If empty,
	// defaults to ~/.corekb/<DBName>.db.
	DBPath     string `json:"db_path" yaml:"db_path"`
	DBName     string `json:"db_name" yaml:"db_name"`
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	Chunking  ChunkingConfig  `json:"chunking" yaml:"chunking"`
	Detection DetectionConfig `json:"detection" yaml:"detection"`
	Quality   QualityConfig   `json:"quality" yaml:"quality"`
	LLM       LLMPolicyConfig `json:"llm" yaml:"llm"`

	// Closed sets recognized by the metadata extractor and section detector.
	Subjects   []string `json:"subjects" yaml:"subjects"`
	Grades     []string `json:"grades" yaml:"grades"`
	Curricula  []string `json:"curricula" yaml:"curricula"`

	// Optional LLM client endpoint configuration (§6 LLM client). Any field
	// left zero-valued means "unavailable" and the core falls back to the
	// deterministic rule-based path.
	LLMClient LLMConfig `json:"llm_client" yaml:"llm_client"`

	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`
}

// ChunkingConfig are the size and overlap defaults (§6 chunking).
type ChunkingConfig struct {
	MinChunkSize      int `json:"min_chunk_size" yaml:"min_chunk_size"`
	MaxChunkSize      int `json:"max_chunk_size" yaml:"max_chunk_size"`
	TargetChunkSize   int `json:"target_chunk_size" yaml:"target_chunk_size"`
	OverlapPercentage int `json:"overlap_percentage" yaml:"overlap_percentage"`
}

// DetectionConfig are the thresholds the Section Detector and Pattern
// Library use (§6 detection).
type DetectionConfig struct {
	ConfidenceThreshold      float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
	PatternMatchingThreshold float64 `json:"pattern_matching_threshold" yaml:"pattern_matching_threshold"`
	MergeThreshold           int     `json:"merge_threshold" yaml:"merge_threshold"`
}

// QualityConfig are the review-trigger thresholds (§6 quality).
type QualityConfig struct {
	MinQualityScore              float64 `json:"min_quality_score" yaml:"min_quality_score"`
	RequireHumanReviewThreshold  float64 `json:"require_human_review_threshold" yaml:"require_human_review_threshold"`
}

// LLMPolicyConfig are the timeout/retry/enable knobs for the optional LLM
// assist calls (§5 Cancellation and timeouts, §6 LLM client).
type LLMPolicyConfig struct {
	TimeoutSeconds int  `json:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int  `json:"max_retries" yaml:"max_retries"`
	EnableReasoning bool `json:"enable_reasoning" yaml:"enable_reasoning"`
	MaxTokens      int  `json:"max_tokens" yaml:"max_tokens"`
	Temperature    float64 `json:"temperature" yaml:"temperature"`
}

// LLMConfig configures a single LLM provider endpoint, retained from the
// teacher's llm.Config shape.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns the defaults enumerated in §6.
func DefaultConfig() Config {
	return Config{
		DBName:     "corekb",
		StorageDir: "home",
		Chunking: ChunkingConfig{
			MinChunkSize:      500,
			MaxChunkSize:      2000,
			TargetChunkSize:   1200,
			OverlapPercentage: 15,
		},
		Detection: DetectionConfig{
			ConfidenceThreshold:      0.7,
			PatternMatchingThreshold: 0.8,
			MergeThreshold:           80,
		},
		Quality: QualityConfig{
			MinQualityScore:             0.6,
			RequireHumanReviewThreshold: 0.5,
		},
		LLM: LLMPolicyConfig{
			TimeoutSeconds:  30,
			MaxRetries:      3,
			EnableReasoning: true,
			MaxTokens:       2000,
			Temperature:     0.1,
		},
		Subjects: []string{
			"Physics", "Chemistry", "Biology", "Mathematics", "English",
			"Hindi", "Social Science", "Geography", "History",
			"Political Science", "Economics",
		},
		Grades: []string{
			"4", "5", "6", "7", "8", "9", "10", "11", "12",
		},
		Curricula:    []string{"NCERT", "CBSE", "ICSE", "State Board"},
		EmbeddingDim: 768,
	}
}

// resolveDBPath computes the final database path from config fields,
// following the teacher's DBPath > DBName+StorageDir > ~/.corekb/ resolution
// order.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "corekb"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db"
		}
		return filepath.Join(home, ".corekb", name+".db")
	}
}

// LoadConfigYAML reads a YAML configuration file and overlays it onto the
// defaults, letting a deployment override the closed-set option lists
// without recompiling (§6 Configuration; Part C domain-stack wiring for
// gopkg.in/yaml.v3).
func LoadConfigYAML(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, NewError(KindConfiguration, "reading config file", err, "path", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, NewError(KindConfiguration, "parsing config file", err, "path", path)
	}
	return cfg, nil
}

// Validate checks the invariants the original SystemConfig._validate_configuration
// enforced (min < max chunk size, min <= target <= max, overlap in [0,50],
// confidence_threshold in [0,1]). The other thresholds are not checked.
func (c *Config) Validate() error {
	ch := c.Chunking
	if ch.MinChunkSize >= ch.MaxChunkSize {
		return NewError(KindConfiguration, "min_chunk_size must be less than max_chunk_size", nil)
	}
	if ch.TargetChunkSize < ch.MinChunkSize || ch.TargetChunkSize > ch.MaxChunkSize {
		return NewError(KindConfiguration, "target_chunk_size must be between min and max chunk sizes", nil)
	}
	if ch.OverlapPercentage < 0 || ch.OverlapPercentage > 50 {
		return NewError(KindConfiguration, "overlap_percentage must be between 0 and 50", nil)
	}
	if c.Detection.ConfidenceThreshold < 0 || c.Detection.ConfidenceThreshold > 1 {
		return NewError(KindConfiguration, "confidence_threshold must be between 0 and 1", nil)
	}
	return nil
}
