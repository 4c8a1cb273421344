// Package llmassist adapts the teacher's multi-provider llm.Provider into
// the two optional LLM-assist contracts the core defines (§4.3 boundary
// proposal, §4.4 concept extraction, §6 LLM client). Both adapters are a
// quality lever, never a correctness dependency: a nil provider, a timeout,
// a retry exhaustion, or a response that fails strict-JSON validation all
// resolve to "unavailable", and the caller (learningunit.Builder,
// metadata.Extractor) falls back to its deterministic rule-based path.
//
// Grounded on the teacher's llm/provider.go (Provider.Chat, ChatRequest,
// retry-free single call) generalized with the bounded-retry, timeout, and
// strict-JSON-or-unavailable discipline spec.md §5 and §6 require. Retries
// here use a linear backoff (500ms times the attempt number), not the
// exponential backoff of errors.go's CoreError/IsRetryable policy.
package llmassist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ncertrag/corekb/learningunit"
	"github.com/ncertrag/corekb/llm"
	"github.com/ncertrag/corekb/metadata"
)

// Policy carries the §5/§6 timeout and retry knobs threaded in from
// corekb.Config.LLM. A zero-value Policy applies sane defaults rather than
// making every call instantaneous-timeout.
type Policy struct {
	Model          string
	Timeout        time.Duration
	MaxRetries     int
	MaxTokens      int
	Temperature    float64
	EnableReasoning bool
}

func (p Policy) timeout() time.Duration {
	if p.Timeout <= 0 {
		return 30 * time.Second
	}
	return p.Timeout
}

func (p Policy) retries() int {
	if p.MaxRetries <= 0 {
		return 3
	}
	return p.MaxRetries
}

// Assist wraps an llm.Provider with the boundary-proposal and
// concept-extraction calls. A nil Provider makes every call return
// "unavailable" without ever touching the network, satisfying §6 ("A client
// may declare itself unavailable; the core then never invokes it").
type Assist struct {
	Provider llm.Provider
	Policy   Policy
}

// New builds an Assist. provider may be nil — every method then reports
// itself unavailable immediately.
func New(provider llm.Provider, policy Policy) *Assist {
	return &Assist{Provider: provider, Policy: policy}
}

var (
	_ learningunit.BoundaryProposer = (*Assist)(nil)
	_ metadata.ConceptProposer      = (*Assist)(nil)
)

// chatJSON runs one bounded-retry, timeout-guarded chat completion and
// returns the raw response content. Enable_reasoning off disables the call
// entirely — §6 "enable_reasoning=true" default, but an operator may turn it
// off to force the deterministic path even with a reachable client.
func (a *Assist) chatJSON(ctx context.Context, systemPrompt, userText string) (string, error) {
	if a.Provider == nil {
		return "", fmt.Errorf("llmassist: no provider configured")
	}
	if !a.Policy.EnableReasoning {
		return "", fmt.Errorf("llmassist: reasoning disabled by policy")
	}

	var lastErr error
	retries := a.Policy.retries()
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, a.Policy.timeout())
		resp, err := a.Provider.Chat(callCtx, llm.ChatRequest{
			Model: a.Policy.Model,
			Messages: []llm.Message{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userText},
			},
			Temperature:    a.Policy.Temperature,
			MaxTokens:      a.Policy.MaxTokens,
			ResponseFormat: "json_object",
		})
		cancel()
		if err == nil {
			return resp.Content, nil
		}
		lastErr = err
		// A nested-executor or cancellation error never benefits from
		// retrying (§5 "detect this and fall back ... without error").
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("llmassist: exhausted %d retries: %w", retries, lastErr)
}

// extractJSON isolates the first top-level JSON object in s, tolerating a
// model that wraps its JSON in prose or a markdown code fence despite the
// json_object response format request.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

// boundaryProposalResponse mirrors the §6 boundary-proposal JSON shape.
type boundaryProposalResponse struct {
	Boundaries    []json.RawMessage `json:"boundaries"`
	LearningUnits []struct {
		Start               int      `json:"start"`
		End                 int      `json:"end"`
		Type                string   `json:"type"`
		Description         string   `json:"description"`
		EducationalElements []string `json:"educational_elements"`
		ContentTypes        []string `json:"content_types"`
		LearningObjectives  []string `json:"learning_objectives"`
	} `json:"learning_units"`
}

// ProposeBoundaries implements learningunit.BoundaryProposer (§4.3, §6).
// Non-JSON or missing fields are treated as "unavailable", never an error
// that aborts the document.
func (a *Assist) ProposeBoundaries(ctx context.Context, text string) ([]learningunit.ProposedUnit, error) {
	raw, err := a.chatJSON(ctx, boundaryProposalSystemPrompt, text)
	if err != nil {
		return nil, err
	}

	var parsed boundaryProposalResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("llmassist: boundary proposal did not parse as strict JSON: %w", err)
	}
	if len(parsed.LearningUnits) == 0 {
		return nil, fmt.Errorf("llmassist: boundary proposal had no learning_units")
	}

	units := make([]learningunit.ProposedUnit, 0, len(parsed.LearningUnits))
	for _, u := range parsed.LearningUnits {
		units = append(units, learningunit.ProposedUnit{
			Start:               u.Start,
			End:                 u.End,
			UnitType:            u.Type,
			EducationalElements: u.EducationalElements,
			Description:         u.Description,
		})
	}
	return units, nil
}

const boundaryProposalSystemPrompt = `You segment a textbook section into coherent learning units (intro, activity, example, assessment, theory). Respond with strict JSON only: {"boundaries": [...], "learning_units": [{"start": int, "end": int, "type": "activity|example|assessment|theory", "description": "...", "educational_elements": ["..."], "content_types": ["..."], "learning_objectives": ["..."]}]}. start/end are character offsets into the given text. No prose outside the JSON object.`

// conceptExtractionResponse mirrors the §6 concept-extraction JSON shape.
type conceptExtractionResponse struct {
	MainConcepts         []string `json:"main_concepts"`
	SubConcepts          []string `json:"sub_concepts"`
	ConceptRelationships []struct {
		From         string  `json:"from"`
		To           string  `json:"to"`
		Relationship string  `json:"relationship"`
		Strength     float64 `json:"strength"`
	} `json:"concept_relationships"`
	EducationalContext struct {
		Applications   []string `json:"applications"`
		Examples       []string `json:"examples"`
		Misconceptions []string `json:"misconceptions"`
		Definitions    []string `json:"definitions"`
		Phenomena      []string `json:"phenomena"`
	} `json:"educational_context"`
	ContentTypes []string `json:"content_types"`
}

// ProposeConcepts implements metadata.ConceptProposer (§4.4, §6). Partial
// responses are tolerated — only totally unparseable JSON is an error.
func (a *Assist) ProposeConcepts(ctx context.Context, content string) (*metadata.ConceptProposal, error) {
	raw, err := a.chatJSON(ctx, conceptExtractionSystemPrompt, content)
	if err != nil {
		return nil, err
	}

	var parsed conceptExtractionResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("llmassist: concept extraction did not parse as strict JSON: %w", err)
	}

	proposal := &metadata.ConceptProposal{
		MainConcepts:   parsed.MainConcepts,
		SubConcepts:    parsed.SubConcepts,
		Applications:   parsed.EducationalContext.Applications,
		Examples:       parsed.EducationalContext.Examples,
		Misconceptions: parsed.EducationalContext.Misconceptions,
		Phenomena:      parsed.EducationalContext.Phenomena,
		ContentTypes:   parsed.ContentTypes,
	}
	if len(parsed.EducationalContext.Definitions) > 0 {
		proposal.Definitions = make(map[string]string, len(parsed.EducationalContext.Definitions))
		for _, d := range parsed.EducationalContext.Definitions {
			if term, def, ok := strings.Cut(d, ":"); ok {
				proposal.Definitions[strings.TrimSpace(term)] = strings.TrimSpace(def)
			}
		}
	}
	for _, r := range parsed.ConceptRelationships {
		proposal.ConceptRelationships = append(proposal.ConceptRelationships, metadata.ConceptRelation{
			From:         r.From,
			To:           r.To,
			Relationship: r.Relationship,
			Strength:     r.Strength,
		})
	}
	return proposal, nil
}

const conceptExtractionSystemPrompt = `You extract pedagogical concepts from a textbook passage. Respond with strict JSON only: {"main_concepts": ["..."], "sub_concepts": ["..."], "concept_relationships": [{"from":"...","to":"...","relationship":"...","strength":0.0}], "educational_context": {"applications": ["..."], "examples": ["..."], "misconceptions": ["..."], "definitions": ["term: definition", ...], "phenomena": ["..."]}, "content_types": ["..."]}. Unknown fields are ignored by the caller; omit fields you cannot fill rather than guessing. No prose outside the JSON object.`
