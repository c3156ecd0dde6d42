package mining

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/rcliao/discovery-agent/internal/config"
	"github.com/rcliao/discovery-agent/internal/graph"
	"github.com/rcliao/discovery-agent/internal/model"
	"github.com/rcliao/discovery-agent/internal/resilience"
)

// fakeLLM returns a canned response or error.
type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Generate(_ context.Context, _ string, _ int, _ float64) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeLLM) Available() bool { return true }

func miningConfig() config.MiningConfig {
	return config.MiningConfig{
		TopK:             10,
		MinFrequency:     2,
		MaxCandidates:    10,
		MinGapConfidence: 0.5,
		MethodGapRatio:   0.3,
	}
}

// gapCorpus builds 5 documents over materials {A,B} and properties {X,Y}
// where only A co-occurs with X.
func gapCorpus() []model.Document {
	return []model.Document{
		{ID: "d1", Materials: []string{"A"}, Properties: []string{"X"}, ResearchType: "computational", Relevance: 7},
		{ID: "d2", Materials: []string{"A"}, Properties: []string{"X"}, ResearchType: "computational", Relevance: 6},
		{ID: "d3", Materials: []string{"A"}, ResearchType: "computational", Relevance: 5},
		{ID: "d4", Materials: []string{"B"}, ResearchType: "computational", Relevance: 5},
		{ID: "d5", Properties: []string{"Y"}, ResearchType: "computational", Relevance: 4},
	}
}

func TestPairCandidates(t *testing.T) {
	g := graph.New()
	g.Build(gapCorpus())

	m := NewMiner(miningConfig(), nil, zap.NewNop())
	candidates := m.pairCandidates(g)

	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}

	want := map[string]bool{"A/Y": true, "B/X": true, "B/Y": true}
	for _, c := range candidates {
		key := c.material + "/" + c.property
		if !want[key] {
			t.Errorf("unexpected candidate %s", key)
		}
		delete(want, key)
	}
	if len(want) != 0 {
		t.Errorf("missing candidates: %v", want)
	}
}

func TestFindGapsWithLLMJudgment(t *testing.T) {
	g := graph.New()
	g.Build(gapCorpus())

	client := &fakeLLM{response: `[
		{"description": "A with Y is unexplored", "evidence": ["e1"], "confidence": 0.9, "priority": "high"},
		{"description": "B with X is unexplored", "evidence": ["e2"], "confidence": 0.4, "priority": "low"},
		{"description": "B with Y is unexplored", "evidence": ["e3"], "confidence": 0.7, "priority": "medium"}
	]`}

	m := NewMiner(miningConfig(), client, zap.NewNop())
	gaps, err := m.FindGaps(context.Background(), g, gapCorpus())
	if err != nil {
		t.Fatalf("FindGaps: %v", err)
	}

	// The 0.4-confidence judgment falls below the floor.
	if len(gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %d", len(gaps))
	}
	for _, gap := range gaps {
		if gap.Confidence < miningConfig().MinGapConfidence {
			t.Errorf("gap %s below confidence floor: %v", gap.ID, gap.Confidence)
		}
		if !model.ValidPriorities[gap.Priority] {
			t.Errorf("gap %s has invalid priority %q", gap.ID, gap.Priority)
		}
	}
}

func TestFindGapsFallbackOnParseFailure(t *testing.T) {
	g := graph.New()
	g.Build(gapCorpus())

	client := &fakeLLM{response: "Sorry, I can't produce JSON right now."}
	m := NewMiner(miningConfig(), client, zap.NewNop())
	gaps, err := m.FindGaps(context.Background(), g, gapCorpus())
	if err != nil {
		t.Fatalf("FindGaps: %v", err)
	}

	// All 3 candidates survive with the templated 0.5 judgment.
	if len(gaps) != 3 {
		t.Fatalf("expected 3 fallback gaps, got %d", len(gaps))
	}
	for _, gap := range gaps {
		if gap.Confidence != 0.5 {
			t.Errorf("expected fallback confidence 0.5, got %v", gap.Confidence)
		}
	}
}

func TestFindGapsFallbackOnError(t *testing.T) {
	g := graph.New()
	g.Build(gapCorpus())

	client := &fakeLLM{err: errors.New("upstream down")}
	m := NewMiner(miningConfig(), client, zap.NewNop())
	gaps, err := m.FindGaps(context.Background(), g, gapCorpus())
	if err != nil {
		t.Fatalf("FindGaps: %v", err)
	}

	if len(gaps) != 3 {
		t.Fatalf("expected fallback gaps on LLM error, got %d", len(gaps))
	}
}

func TestFindGapsCredentialExhaustionIsFatal(t *testing.T) {
	g := graph.New()
	g.Build(gapCorpus())

	client := &fakeLLM{err: fmt.Errorf("gemini: %w", resilience.ErrCredentialsExhausted)}
	m := NewMiner(miningConfig(), client, zap.NewNop())

	_, err := m.FindGaps(context.Background(), g, gapCorpus())
	if !errors.Is(err, resilience.ErrCredentialsExhausted) {
		t.Fatalf("expected ErrCredentialsExhausted, got %v", err)
	}
}

func TestMethodGap(t *testing.T) {
	docs := []model.Document{
		{ID: "d1", ResearchType: "experimental"},
		{ID: "d2", ResearchType: "experimental"},
		{ID: "d3", ResearchType: "review"},
		{ID: "d4", ResearchType: "computational"},
	}

	m := NewMiner(miningConfig(), nil, zap.NewNop())
	gaps := m.methodGaps(docs)

	if len(gaps) != 1 {
		t.Fatalf("expected 1 method gap, got %d", len(gaps))
	}
	gap := gaps[0]
	if gap.Confidence != 0.8 || gap.Priority != "high" {
		t.Errorf("unexpected method gap: confidence=%v priority=%q", gap.Confidence, gap.Priority)
	}
	if len(gap.Evidence) != 3 {
		t.Errorf("expected 3 non-computational evidence ids, got %d", len(gap.Evidence))
	}
}

func TestMethodGapNotFlaggedWhenBalanced(t *testing.T) {
	docs := []model.Document{
		{ID: "d1", ResearchType: "computational"},
		{ID: "d2", ResearchType: "experimental"},
	}

	m := NewMiner(miningConfig(), nil, zap.NewNop())
	if gaps := m.methodGaps(docs); len(gaps) != 0 {
		t.Errorf("expected no method gap at 50%% computational, got %d", len(gaps))
	}
}

func TestPatterns(t *testing.T) {
	g := graph.New()
	g.Build(gapCorpus())

	report := Patterns(g, 2)

	if len(report.MaterialPropertyPairs) != 1 {
		t.Fatalf("expected 1 frequent pair, got %d", len(report.MaterialPropertyPairs))
	}
	p := report.MaterialPropertyPairs[0]
	if p.Pair != "A -> X" || p.Count != 2 {
		t.Errorf("unexpected top pair %+v", p)
	}

	if len(report.TopMaterials) == 0 || report.TopMaterials[0].Name != "A" {
		t.Errorf("expected A as top material, got %+v", report.TopMaterials)
	}
}
