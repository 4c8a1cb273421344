package patternlib

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ncertrag/corekb/core"
)

// successRateEMA is the smoothing factor applied to a pattern's rolling
// success rate (§4.1: "EMA with alpha 0.1, seeded from the first
// observation").
const successRateEMA = 0.1

// Library is the Pattern Library: a versioned, filterable collection of
// Patterns with a confidence-weighted matcher and a learned success rate per
// pattern. Safe for concurrent use — §5 allows the Pattern Library to be
// shared read-mostly across a worker pool even though document ingestion
// itself is single-threaded per document.
//
// Grounded on pattern_library.py's PatternLibrary class and on the teacher's
// chunker/structure.go for the idiom of a compiled-pattern table consulted
// by a classifier.
type Library struct {
	mu       sync.RWMutex
	patterns map[core.PatternType][]*Pattern
	byID     map[string]*Pattern
	logger   *slog.Logger
}

// NewLibrary builds an empty library. Callers typically follow with
// LoadDefaults to populate the built-in NCERT pattern set.
func NewLibrary(logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{
		patterns: make(map[core.PatternType][]*Pattern),
		byID:     make(map[string]*Pattern),
		logger:   logger,
	}
}

// add inserts a compiled pattern, indexing it by kind and id. Callers hold mu.
func (l *Library) add(p *Pattern) {
	l.patterns[p.Kind] = append(l.patterns[p.Kind], p)
	l.byID[p.PatternID] = p
}

// LoadDefaults registers the built-in NCERT pattern set (defaults.go).
func (l *Library) LoadDefaults() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, spec := range defaultPatternSpecs {
		p, err := NewPattern(spec.meta, spec.regex)
		if err != nil {
			return fmt.Errorf("patternlib: loading default pattern: %w", err)
		}
		l.add(p)
	}
	l.logger.Info("pattern library loaded defaults", "count", len(l.byID))
	return nil
}

// PatternsFor returns every pattern of the given kind applicable to subject,
// grade, and language, sorted by base confidence descending (§4.1): a
// pattern with SubjectSpecific=false or an empty Subjects/GradeLevels list
// applies universally; otherwise it must list the given subject/grade. An
// empty language argument skips the language filter.
func (l *Library) PatternsFor(kind core.PatternType, subject, grade, language string) []*Pattern {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*Pattern
	for _, p := range l.patterns[kind] {
		if !patternApplies(p, subject, grade, language) {
			continue
		}
		out = append(out, p)
	}
	sortPatternsByBaseConfidence(out)
	return out
}

// sortPatternsByBaseConfidence orders patterns by ConfidenceBase descending,
// stable on ties (insertion sort — pattern counts per kind are small).
func sortPatternsByBaseConfidence(p []*Pattern) {
	for i := 1; i < len(p); i++ {
		for j := i; j > 0 && p[j-1].ConfidenceBase < p[j].ConfidenceBase; j-- {
			p[j-1], p[j] = p[j], p[j-1]
		}
	}
}

func patternApplies(p *Pattern, subject, grade, language string) bool {
	if language != "" && p.Language != "" && p.Language != language {
		return false
	}
	if p.SubjectSpecific && len(p.Subjects) > 0 && subject != "" {
		if !containsFold(p.Subjects, subject) {
			return false
		}
	}
	if len(p.GradeLevels) > 0 && grade != "" {
		if !containsFold(p.GradeLevels, grade) {
			return false
		}
	}
	return true
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// FindMatches runs every applicable pattern of kind against text, computes
// each match's confidence (base + context bonuses, scaled by the pattern's
// learned success rate), and drops matches below threshold. Matches are
// returned sorted by confidence descending (§4.1).
//
// The success-rate scaling is `0.5 + 0.5*success_rate`, applied only once the
// EMA is non-zero (§4.1: "once the EMA is non-zero"; pattern_library.py:
// "if self.success_rate > 0"). A freshly-loaded pattern with no observations
// yet scales by 1.0 — it has not yet earned the discount a poor record would
// apply, and has not yet proven a perfect one either.
func (l *Library) FindMatches(text string, kind core.PatternType, subject, grade, language string, threshold float64) ([]Match, error) {
	patterns := l.PatternsFor(kind, subject, grade, language)

	var all []Match
	for _, p := range patterns {
		raw, err := p.FindAll(text)
		if err != nil {
			l.logger.Warn("pattern match failed", "pattern_id", p.PatternID, "error", err)
			continue
		}
		scale := 1.0
		if p.SuccessRate > 0 {
			scale = 0.5 + 0.5*p.SuccessRate
		}
		for _, m := range raw {
			m.Confidence = core.ClampConfidence(p.CalculateConfidence(m.Start, m.End, text) * scale)
			if m.Confidence < threshold {
				continue
			}
			all = append(all, m)
		}
	}

	sortMatchesByConfidence(all)
	return all, nil
}

// sortMatchesByConfidence orders matches by Confidence descending, stable on
// ties (insertion sort — per-call match counts are small).
func sortMatchesByConfidence(m []Match) {
	for i := 1; i < len(m); i++ {
		for j := i; j > 0 && m[j-1].Confidence < m[j].Confidence; j-- {
			m[j-1], m[j] = m[j], m[j-1]
		}
	}
}

// AddCustomPattern registers a new pattern at runtime (§4.1 add_custom_pattern).
// It returns an error if the id is already taken or the regex/examples are
// invalid.
func (l *Library) AddCustomPattern(meta core.PatternMeta, regexSrc string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.byID[meta.PatternID]; exists {
		return fmt.Errorf("patternlib: pattern id %q already registered", meta.PatternID)
	}
	p, err := NewPattern(meta, regexSrc)
	if err != nil {
		return err
	}
	l.add(p)
	l.logger.Info("custom pattern added", "pattern_id", p.PatternID, "kind", p.Kind)
	return nil
}

// UpdatePerformance records a match outcome (true/false positive as judged
// downstream) against a pattern's rolling success rate, via an exponential
// moving average seeded from the first observation (§4.1 update_performance).
func (l *Library) UpdatePerformance(patternID string, success bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.byID[patternID]
	if !ok {
		return fmt.Errorf("patternlib: unknown pattern id %q", patternID)
	}

	outcome := 0.0
	if success {
		outcome = 1.0
	}

	if !p.seeded {
		p.SuccessRate = outcome
		p.seeded = true
	} else {
		p.SuccessRate = successRateEMA*outcome + (1-successRateEMA)*p.SuccessRate
	}
	p.LastUpdated = time.Now()
	return nil
}

// Statistics returns, per pattern kind, the number of registered patterns and
// their mean learned success rate — a Part D supplement grounded on
// pattern_library.py's get_pattern_statistics.
type KindStats struct {
	Count              int
	MeanSuccessRate    float64
	MeanConfidenceBase float64
}

func (l *Library) Statistics() map[core.PatternType]KindStats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[core.PatternType]KindStats, len(l.patterns))
	for kind, list := range l.patterns {
		var sumSuccess, sumBase float64
		for _, p := range list {
			sumSuccess += p.SuccessRate
			sumBase += p.ConfidenceBase
		}
		n := float64(len(list))
		stats := KindStats{Count: len(list)}
		if n > 0 {
			stats.MeanSuccessRate = sumSuccess / n
			stats.MeanConfidenceBase = sumBase / n
		}
		out[kind] = stats
	}
	return out
}

// exportedPattern is the JSON wire shape for ExportJSON/ImportJSON.
type exportedPattern struct {
	core.PatternMeta
	Regex string `json:"regex"`
}

// ExportJSON serializes every registered pattern (§4.1 Part D supplement:
// pattern export/import, grounded on pattern_library.py's export_patterns).
func (l *Library) ExportJSON() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]exportedPattern, 0, len(l.byID))
	for _, p := range l.byID {
		out = append(out, exportedPattern{PatternMeta: p.PatternMeta, Regex: p.RegexSource})
	}
	return json.MarshalIndent(out, "", "  ")
}

// ImportJSON loads patterns previously produced by ExportJSON, skipping any
// whose id is already registered (import never overwrites).
func (l *Library) ImportJSON(data []byte) (imported int, err error) {
	var in []exportedPattern
	if err := json.Unmarshal(data, &in); err != nil {
		return 0, fmt.Errorf("patternlib: invalid export payload: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ep := range in {
		if _, exists := l.byID[ep.PatternID]; exists {
			continue
		}
		p, err := NewPattern(ep.PatternMeta, ep.Regex)
		if err != nil {
			l.logger.Warn("skipping invalid imported pattern", "pattern_id", ep.PatternID, "error", err)
			continue
		}
		l.add(p)
		imported++
	}
	return imported, nil
}
