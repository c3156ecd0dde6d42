package experiment

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/rcliao/discovery-agent/internal/materials"
	"github.com/rcliao/discovery-agent/internal/model"
	"github.com/rcliao/discovery-agent/internal/resilience"
)

type fakeSearcher struct {
	records map[string][]materials.PropertyRecord
	err     error
	calls   int
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]materials.PropertyRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records[query], nil
}

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

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func records(n int) []materials.PropertyRecord {
	out := make([]materials.PropertyRecord, n)
	for i := range out {
		out[i] = materials.PropertyRecord{MaterialID: "mp-1", Formula: "SiC"}
	}
	return out
}

func TestNoMaterialsIsInconclusiveWithoutCalls(t *testing.T) {
	s := &fakeSearcher{}
	l := &fakeLLM{}
	tester := NewTester(s, l, zap.NewNop())

	r, err := tester.Test(context.Background(), model.Hypothesis{Statement: "vague"})
	if err != nil {
		t.Fatalf("Test: %v", err)
	}

	if r.Verdict != model.VerdictInconclusive || r.Confidence != 0 {
		t.Errorf("unexpected result: %+v", r)
	}
	if s.calls != 0 || l.calls != 0 {
		t.Errorf("expected zero external calls, got searcher=%d llm=%d", s.calls, l.calls)
	}
}

func TestNoDataFoundIsInconclusive(t *testing.T) {
	s := &fakeSearcher{}
	tester := NewTester(s, nil, zap.NewNop())

	h := model.Hypothesis{Statement: "something", Materials: []string{"Unobtainium"}}
	r, err := tester.Test(context.Background(), h)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if r.Verdict != model.VerdictInconclusive {
		t.Errorf("expected INCONCLUSIVE, got %s", r.Verdict)
	}
}

func TestLookupsCappedAtTwo(t *testing.T) {
	s := &fakeSearcher{records: map[string][]materials.PropertyRecord{"SiC": records(1)}}
	tester := NewTester(s, nil, zap.NewNop())

	h := model.Hypothesis{Statement: "x", Materials: []string{"SiC", "GaN", "AlN"}}
	if _, err := tester.Test(context.Background(), h); err != nil {
		t.Fatalf("Test: %v", err)
	}
	if s.calls != 2 {
		t.Errorf("expected 2 lookups, got %d", s.calls)
	}
}

func TestLLMJudgedConfidence(t *testing.T) {
	s := &fakeSearcher{records: map[string][]materials.PropertyRecord{"SiC": records(3)}}
	l := &fakeLLM{response: "0.85"}
	tester := NewTester(s, l, zap.NewNop())

	h := model.Hypothesis{
		Statement:        "If we dope SiC then conductivity rises.",
		PredictedOutcome: "Conductivity of SiC increases by 15%",
		Materials:        []string{"SiC"},
	}
	r, err := tester.Test(context.Background(), h)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}

	if r.Confidence != 0.85 {
		t.Errorf("confidence: got %v want 0.85", r.Confidence)
	}
	if r.Verdict != model.VerdictPass {
		t.Errorf("verdict: got %s want PASS", r.Verdict)
	}
	if r.Evidence["SiC"].Count != 3 {
		t.Errorf("evidence count: got %d want 3", r.Evidence["SiC"].Count)
	}
}

func TestHeuristicConfidenceFallback(t *testing.T) {
	s := &fakeSearcher{records: map[string][]materials.PropertyRecord{"SiC": records(1)}}
	l := &fakeLLM{err: errors.New("quota")}
	tester := NewTester(s, l, zap.NewNop())

	h := model.Hypothesis{
		Statement:        "If we dope SiC then conductivity rises.",
		PredictedOutcome: "Conductivity of SiC increases",
		Materials:        []string{"SiC"},
	}
	r, err := tester.Test(context.Background(), h)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}

	// 0.3 baseline + 0.4 found ratio + 0.1 named in prediction.
	if !approx(r.Confidence, 0.8) {
		t.Errorf("confidence: got %v want 0.8", r.Confidence)
	}
	if r.Verdict != model.VerdictPass {
		t.Errorf("verdict: got %s want PASS", r.Verdict)
	}
}

func TestHeuristicConfidenceCapped(t *testing.T) {
	evidence := map[string]model.Finding{
		"SiC": {Found: true},
		"GaN": {Found: true},
	}
	got := heuristicConfidence(evidence, "SiC and GaN and SiC again")
	if !approx(got, 0.9) {
		t.Errorf("got %v want 0.9", got)
	}

	if c := heuristicConfidence(evidence, "sic gan sic gan sic gan"); c > 1 {
		t.Errorf("confidence exceeds 1: %v", c)
	}
}

func TestVerdictThresholds(t *testing.T) {
	tests := []struct {
		confidence string
		want       string
	}{
		{"0.9", model.VerdictPass},
		{"0.5", model.VerdictInconclusive},
		{"0.1", model.VerdictFail},
	}
	for _, tt := range tests {
		s := &fakeSearcher{records: map[string][]materials.PropertyRecord{"SiC": records(1)}}
		l := &fakeLLM{response: tt.confidence}
		tester := NewTester(s, l, zap.NewNop())

		h := model.Hypothesis{
			Statement:        "x",
			PredictedOutcome: "y",
			Materials:        []string{"SiC"},
		}
		r, err := tester.Test(context.Background(), h)
		if err != nil {
			t.Fatalf("Test: %v", err)
		}
		if r.Verdict != tt.want {
			t.Errorf("confidence %s: got %s want %s", tt.confidence, r.Verdict, tt.want)
		}
	}
}

func TestBatchTestContinuesPastFailures(t *testing.T) {
	s := &fakeSearcher{err: errors.New("api down")}
	tester := NewTester(s, nil, zap.NewNop())

	hs := []model.Hypothesis{
		{Statement: "h1", Materials: []string{"SiC"}},
		{Statement: "h2", Materials: []string{"GaN"}},
		{Statement: "h3"},
	}
	results, err := tester.BatchTest(context.Background(), hs, 0)
	if err != nil {
		t.Fatalf("BatchTest: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Verdict != model.VerdictInconclusive {
			t.Errorf("expected INCONCLUSIVE for %q, got %s", r.Hypothesis, r.Verdict)
		}
	}
}

func TestBatchTestHonorsMaxTests(t *testing.T) {
	s := &fakeSearcher{records: map[string][]materials.PropertyRecord{"SiC": records(1)}}
	tester := NewTester(s, nil, zap.NewNop())

	hs := []model.Hypothesis{
		{Statement: "h1", Materials: []string{"SiC"}},
		{Statement: "h2", Materials: []string{"SiC"}},
		{Statement: "h3", Materials: []string{"SiC"}},
	}
	results, err := tester.BatchTest(context.Background(), hs, 2)
	if err != nil {
		t.Fatalf("BatchTest: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestCredentialExhaustionAbortsBatch(t *testing.T) {
	s := &fakeSearcher{err: fmt.Errorf("materials: %w", resilience.ErrCredentialsExhausted)}
	tester := NewTester(s, nil, zap.NewNop())

	hs := []model.Hypothesis{{Statement: "h1", Materials: []string{"SiC"}}}
	if _, err := tester.BatchTest(context.Background(), hs, 0); !errors.Is(err, resilience.ErrCredentialsExhausted) {
		t.Fatalf("expected ErrCredentialsExhausted, got %v", err)
	}
}

func TestStats(t *testing.T) {
	tester := NewTester(&fakeSearcher{}, nil, zap.NewNop())

	if s := tester.Stats(); s.Total != 0 || s.AvgConfidence != 0 {
		t.Errorf("empty stats wrong: %+v", s)
	}

	tester.record(model.TestResult{Verdict: model.VerdictPass, Confidence: 0.8})
	tester.record(model.TestResult{Verdict: model.VerdictFail, Confidence: 0.2})
	tester.record(model.TestResult{Verdict: model.VerdictInconclusive, Confidence: 0.5})

	s := tester.Stats()
	if s.Total != 3 || s.Passed != 1 || s.Failed != 1 || s.Inconclusive != 1 {
		t.Errorf("counts wrong: %+v", s)
	}
	if s.AvgConfidence != 0.5 {
		t.Errorf("avg confidence: got %v want 0.5", s.AvgConfidence)
	}
}
