// Package experiment validates hypotheses against materials-property data.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/discovery-agent/internal/llm"
	"github.com/rcliao/discovery-agent/internal/materials"
	"github.com/rcliao/discovery-agent/internal/model"
	"github.com/rcliao/discovery-agent/internal/resilience"
)

// Verdict thresholds over the evidence confidence.
const (
	passThreshold         = 0.6
	inconclusiveThreshold = 0.3
)

// Tester runs computational checks of hypotheses: property lookups for the
// required materials, judged by the LLM when one is available and a
// deterministic heuristic otherwise.
type Tester struct {
	searcher materials.Searcher
	llm      llm.Client
	log      *zap.Logger

	results []model.TestResult
}

// NewTester creates a hypothesis tester. The LLM client is optional.
func NewTester(searcher materials.Searcher, client llm.Client, log *zap.Logger) *Tester {
	return &Tester{searcher: searcher, llm: client, log: log}
}

// Test runs one hypothesis. A hypothesis without required materials cannot
// be checked and is immediately inconclusive with no external calls. The
// only returned error is credential exhaustion.
func (t *Tester) Test(ctx context.Context, h model.Hypothesis) (model.TestResult, error) {
	if len(h.Materials) == 0 {
		return t.record(inconclusive(h, "No materials specified")), nil
	}

	evidence, err := t.gatherEvidence(ctx, h.Materials)
	if err != nil {
		return model.TestResult{}, err
	}

	anyFound := false
	for _, f := range evidence {
		if f.Found {
			anyFound = true
			break
		}
	}
	if !anyFound {
		return t.record(inconclusive(h, "No data available in Materials Project")), nil
	}

	confidence, err := t.confidence(ctx, h, evidence)
	if err != nil {
		return model.TestResult{}, err
	}

	result := model.TestResult{
		Hypothesis: h.Statement,
		Method:     "Materials Project Lookup",
		Confidence: confidence,
		Evidence:   evidence,
	}
	switch {
	case confidence > passThreshold:
		result.Verdict = model.VerdictPass
		result.Notes = "Materials Project data supports hypothesis"
	case confidence > inconclusiveThreshold:
		result.Verdict = model.VerdictInconclusive
		result.Notes = "Partial evidence found"
	default:
		result.Verdict = model.VerdictFail
		result.Notes = "Insufficient evidence"
	}
	return t.record(result), nil
}

// BatchTest runs up to maxTests hypotheses in order. Individual test
// failures become inconclusive results; only credential exhaustion aborts
// the batch.
func (t *Tester) BatchTest(ctx context.Context, hypotheses []model.Hypothesis, maxTests int) ([]model.TestResult, error) {
	if maxTests > 0 && len(hypotheses) > maxTests {
		hypotheses = hypotheses[:maxTests]
	}

	out := make([]model.TestResult, 0, len(hypotheses))
	for _, h := range hypotheses {
		if err := ctx.Err(); err != nil {
			t.log.Warn("batch testing interrupted", zap.Error(err))
			break
		}
		r, err := t.Test(ctx, h)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

// gatherEvidence queries up to two required materials, recording found
// counts and per-material errors.
func (t *Tester) gatherEvidence(ctx context.Context, mats []string) (map[string]model.Finding, error) {
	evidence := make(map[string]model.Finding)

	limit := len(mats)
	if limit > 2 {
		limit = 2
	}
	for _, m := range mats[:limit] {
		m = strings.TrimSpace(m)
		if len(m) < 2 {
			continue
		}

		recs, err := t.searcher.Search(ctx, m)
		if err != nil {
			if errors.Is(err, resilience.ErrCredentialsExhausted) {
				return nil, err
			}
			t.log.Debug("lookup failed", zap.String("material", m), zap.Error(err))
			evidence[m] = model.Finding{Found: false, Error: truncate(err.Error(), 100)}
			continue
		}
		if len(recs) > 0 {
			evidence[m] = model.Finding{Found: true, Count: len(recs)}
		} else {
			evidence[m] = model.Finding{Found: false}
		}
	}
	return evidence, nil
}

// confidence judges the evidence with the LLM when possible, falling back
// to the availability heuristic.
func (t *Tester) confidence(ctx context.Context, h model.Hypothesis, evidence map[string]model.Finding) (float64, error) {
	if t.llm != nil && t.llm.Available() && h.PredictedOutcome != "" {
		score, err := t.judge(ctx, h, evidence)
		if err == nil {
			return score, nil
		}
		if errors.Is(err, resilience.ErrCredentialsExhausted) {
			return 0, err
		}
		t.log.Debug("evidence judgment failed, using heuristic", zap.Error(err))
	}
	return heuristicConfidence(evidence, h.PredictedOutcome), nil
}

// judge asks the LLM for a single numeric confidence.
func (t *Tester) judge(ctx context.Context, h model.Hypothesis, evidence map[string]model.Finding) (float64, error) {
	var lines []string
	for m, f := range evidence {
		lines = append(lines, fmt.Sprintf("%s: found=%t count=%d", m, f.Found, f.Count))
	}
	sort.Strings(lines)

	prompt := fmt.Sprintf(`Analyze this scientific hypothesis test:

Hypothesis: %s

Predicted Outcome: %s

Evidence Found: %s

Rate the confidence that the evidence supports the hypothesis on a scale of 0.0 to 1.0.
Consider:
- Material availability in database
- Relevance of findings
- Alignment with prediction

Respond with ONLY a number between 0.0 and 1.0.`, h.Statement, h.PredictedOutcome, strings.Join(lines, "; "))

	response, err := t.llm.Generate(ctx, prompt, 50, 0.1)
	if err != nil {
		return 0, err
	}

	fields := strings.Fields(response)
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty judgment response")
	}
	score := llm.ExtractScore(fields[0], -1)
	if score < 0 {
		return 0, fmt.Errorf("no numeric confidence in %q", response)
	}
	return model.Clamp(score, 0, 1), nil
}

// heuristicConfidence scores on data availability: a 0.3 baseline, up to
// 0.4 for the found fraction, and 0.1 per material named in the predicted
// outcome, capped at 1.
func heuristicConfidence(evidence map[string]model.Finding, predictedOutcome string) float64 {
	score := 0.3

	if len(evidence) > 0 {
		found := 0
		for _, f := range evidence {
			if f.Found {
				found++
			}
		}
		score += 0.4 * float64(found) / float64(len(evidence))
	}

	if predictedOutcome != "" {
		lower := strings.ToLower(predictedOutcome)
		for m := range evidence {
			if strings.Contains(lower, strings.ToLower(m)) {
				score += 0.1
			}
		}
	}

	if score > 1 {
		score = 1
	}
	return score
}

// SummaryStats aggregates the verdicts of every test run so far.
type SummaryStats struct {
	Total         int     `json:"total_tests"`
	Passed        int     `json:"passed"`
	Failed        int     `json:"failed"`
	Inconclusive  int     `json:"inconclusive"`
	AvgConfidence float64 `json:"average_confidence"`
}

// Stats returns verdict counts and mean confidence over recorded results.
func (t *Tester) Stats() SummaryStats {
	stats := SummaryStats{Total: len(t.results)}
	if stats.Total == 0 {
		return stats
	}

	var sum float64
	for _, r := range t.results {
		sum += r.Confidence
		switch r.Verdict {
		case model.VerdictPass:
			stats.Passed++
		case model.VerdictFail:
			stats.Failed++
		case model.VerdictInconclusive:
			stats.Inconclusive++
		}
	}
	stats.AvgConfidence = sum / float64(stats.Total)
	return stats
}

func (t *Tester) record(r model.TestResult) model.TestResult {
	t.results = append(t.results, r)
	return r
}

func inconclusive(h model.Hypothesis, reason string) model.TestResult {
	return model.TestResult{
		Hypothesis: h.Statement,
		Method:     "None",
		Verdict:    model.VerdictInconclusive,
		Confidence: 0,
		Notes:      reason,
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
