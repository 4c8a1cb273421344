package llmassist

import (
	"context"
	"errors"
	"testing"

	"github.com/ncertrag/corekb/llm"
)

type fakeProvider struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	content := ""
	if i < len(f.responses) {
		content = f.responses[i]
	}
	return &llm.ChatResponse{Content: content}, nil
}

func (f *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("not implemented")
}

func TestProposeBoundariesParsesStrictJSON(t *testing.T) {
	p := &fakeProvider{responses: []string{`{
		"boundaries": [],
		"learning_units": [
			{"start": 0, "end": 50, "type": "activity", "description": "intro activity", "educational_elements": ["activity"]}
		]
	}`}}
	a := New(p, Policy{EnableReasoning: true})

	units, err := a.ProposeBoundaries(context.Background(), "some section text")
	if err != nil {
		t.Fatalf("ProposeBoundaries: %v", err)
	}
	if len(units) != 1 || units[0].Start != 0 || units[0].End != 50 {
		t.Fatalf("unexpected units: %+v", units)
	}
}

func TestProposeBoundariesRejectsNonJSON(t *testing.T) {
	p := &fakeProvider{responses: []string{"not json at all"}}
	a := New(p, Policy{EnableReasoning: true})

	if _, err := a.ProposeBoundaries(context.Background(), "text"); err == nil {
		t.Fatal("expected an error for non-JSON response")
	}
}

func TestNilProviderIsUnavailable(t *testing.T) {
	a := New(nil, Policy{EnableReasoning: true})
	if _, err := a.ProposeBoundaries(context.Background(), "text"); err == nil {
		t.Fatal("expected an error with a nil provider")
	}
	if _, err := a.ProposeConcepts(context.Background(), "text"); err == nil {
		t.Fatal("expected an error with a nil provider")
	}
}

func TestReasoningDisabledIsUnavailable(t *testing.T) {
	p := &fakeProvider{responses: []string{`{"learning_units":[{"start":0,"end":5,"type":"activity"}]}`}}
	a := New(p, Policy{EnableReasoning: false})
	if _, err := a.ProposeBoundaries(context.Background(), "text"); err == nil {
		t.Fatal("expected an error when reasoning is disabled")
	}
	if p.calls != 0 {
		t.Fatalf("expected zero provider calls, got %d", p.calls)
	}
}

func TestProposeConceptsToleratesPartialResponse(t *testing.T) {
	p := &fakeProvider{responses: []string{`{"main_concepts": ["Force", "Motion"]}`}}
	a := New(p, Policy{EnableReasoning: true})

	proposal, err := a.ProposeConcepts(context.Background(), "content about force and motion")
	if err != nil {
		t.Fatalf("ProposeConcepts: %v", err)
	}
	if len(proposal.MainConcepts) != 2 {
		t.Fatalf("expected 2 main concepts, got %v", proposal.MainConcepts)
	}
	if len(proposal.SubConcepts) != 0 {
		t.Fatalf("expected no sub concepts from a partial response, got %v", proposal.SubConcepts)
	}
}

func TestChatJSONRetriesThenSucceeds(t *testing.T) {
	p := &fakeProvider{
		errs:      []error{errors.New("transient"), nil},
		responses: []string{"", `{"learning_units":[{"start":0,"end":5,"type":"theory"}]}`},
	}
	a := New(p, Policy{EnableReasoning: true, MaxRetries: 2})

	units, err := a.ProposeBoundaries(context.Background(), "text")
	if err != nil {
		t.Fatalf("ProposeBoundaries: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 unit after retry, got %d", len(units))
	}
	if p.calls != 2 {
		t.Fatalf("expected 2 provider calls (1 failure + 1 success), got %d", p.calls)
	}
}
