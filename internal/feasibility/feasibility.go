// Package feasibility scores hypotheses on data availability, method
// coverage, and estimated computational complexity.
package feasibility

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/discovery-agent/internal/config"
	"github.com/rcliao/discovery-agent/internal/materials"
	"github.com/rcliao/discovery-agent/internal/model"
)

// Analyzer scores hypotheses for practicality. The composite weighs data
// availability at 0.4, method coverage at 0.3, and inverse complexity at
// 0.3.
type Analyzer struct {
	searcher materials.Searcher
	methods  []string
	log      *zap.Logger
}

// NewAnalyzer creates a feasibility analyzer backed by a materials lookup.
func NewAnalyzer(cfg config.FeasibilityConfig, searcher materials.Searcher, log *zap.Logger) *Analyzer {
	return &Analyzer{searcher: searcher, methods: cfg.Methods, log: log}
}

// Analyze scores one hypothesis. Lookup failures degrade to the neutral
// annotation rather than erroring.
func (a *Analyzer) Analyze(ctx context.Context, h model.Hypothesis) model.FeasibilityAnnotation {
	dataScore, dataAvailable, sources := a.checkData(ctx, h.Materials)
	methodScore, methodsAvailable := a.checkMethods(h.Methods)
	complexity, timeEstimate := estimateComplexity(h.Statement)

	score := 0.4*dataScore + 0.3*methodScore + 0.3*(1-complexity)

	ann := model.FeasibilityAnnotation{
		Score:            score,
		Level:            level(score),
		DataAvailable:    dataAvailable,
		MethodsAvailable: methodsAvailable,
		TimeEstimate:     timeEstimate,
		DataSources:      sources,
	}
	ann.Challenges = challenges(h, ann, complexity)
	ann.Recommendations = recommendations(score)
	return ann
}

// AnnotateBatch scores every hypothesis in place. Individual failures never
// abort the batch.
func (a *Analyzer) AnnotateBatch(ctx context.Context, hypotheses []model.Hypothesis) {
	for i := range hypotheses {
		ann := a.Analyze(ctx, hypotheses[i])
		hypotheses[i].FeasibilityAn = &ann
		a.log.Debug("feasibility analyzed",
			zap.String("hypothesis", hypotheses[i].ID),
			zap.Float64("score", ann.Score),
			zap.String("level", ann.Level))
	}
}

// checkData looks up at most three required materials. The score is the
// fraction of all required materials found; no listed materials means a
// fixed low score.
func (a *Analyzer) checkData(ctx context.Context, mats []string) (float64, bool, []string) {
	if len(mats) == 0 {
		return 0.3, false, nil
	}

	limit := len(mats)
	if limit > 3 {
		limit = 3
	}

	found := 0
	var sources []string
	for _, m := range mats[:limit] {
		m = strings.TrimSpace(m)
		if len(m) < 2 {
			continue
		}
		recs, err := a.search(ctx, m)
		if err != nil {
			a.log.Debug("materials lookup failed", zap.String("material", m), zap.Error(err))
			continue
		}
		if len(recs) > 0 {
			found++
			sources = append(sources, fmt.Sprintf("Materials Project: %s", m))
		}
	}

	score := float64(found) / float64(len(mats))
	return score, score > 0.3, sources
}

func (a *Analyzer) search(ctx context.Context, query string) ([]materials.PropertyRecord, error) {
	if a.searcher == nil {
		return nil, fmt.Errorf("no materials searcher configured")
	}
	return a.searcher.Search(ctx, query)
}

// checkMethods scores the overlap between required methods and the
// supported whitelist, substring matched case-insensitively. Unspecified
// methods are assumed feasible.
func (a *Analyzer) checkMethods(required []string) (float64, bool) {
	if len(required) == 0 {
		return 0.8, true
	}

	covered := 0
	for _, r := range required {
		rl := strings.ToLower(r)
		for _, avail := range a.methods {
			if strings.Contains(rl, strings.ToLower(avail)) {
				covered++
				break
			}
		}
	}

	score := float64(covered) / float64(len(required))
	return score, score > 0.5
}

var (
	highComplexityKeywords = []string{
		"quantum", "molecular dynamics", "ab initio", "dft",
		"optimization", "simulation", "machine learning",
	}
	lowComplexityKeywords = []string{"estimate", "comparison", "survey", "review"}
)

// estimateComplexity applies a keyword heuristic over the statement text
// and derives a wall-time tier from the result.
func estimateComplexity(statement string) (float64, string) {
	text := strings.ToLower(statement)

	score := 0.5
	for _, kw := range highComplexityKeywords {
		if strings.Contains(text, kw) {
			score = 0.8
			break
		}
	}
	if score < 0.7 {
		for _, kw := range lowComplexityKeywords {
			if strings.Contains(text, kw) {
				score = 0.3
				break
			}
		}
	}

	switch {
	case score > 0.7:
		return score, "12-24 hours"
	case score > 0.4:
		return score, "2-6 hours"
	default:
		return score, "< 1 hour"
	}
}

func level(score float64) string {
	switch {
	case score > 0.7:
		return "Easy"
	case score > 0.5:
		return "Medium"
	case score > 0.3:
		return "Hard"
	default:
		return "Infeasible"
	}
}

func challenges(h model.Hypothesis, ann model.FeasibilityAnnotation, complexity float64) []string {
	var out []string
	if !ann.DataAvailable {
		out = append(out, "Limited material property data available")
	}
	if !ann.MethodsAvailable {
		out = append(out, "Required simulation methods not readily available")
	}
	if complexity > 0.7 {
		out = append(out, "High computational complexity")
	}
	if h.TestableMetric == "" {
		out = append(out, "Success metric not clearly defined")
	}
	if len(out) == 0 {
		out = []string{"No major challenges identified"}
	}
	return out
}

func recommendations(score float64) []string {
	switch {
	case score > 0.7:
		return []string{
			"Proceed with computational validation",
			"Prepare simulation environment",
		}
	case score > 0.5:
		return []string{
			"Gather additional material data first",
			"Consider simplified initial experiments",
		}
	default:
		return []string{
			"Refine hypothesis to be more computationally tractable",
			"Seek alternative validation approaches",
		}
	}
}
