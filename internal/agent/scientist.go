// Package agent orchestrates the discovery pipeline: graph building, gap
// mining, hypothesis generation, scoring, and computational testing.
package agent

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/discovery-agent/internal/config"
	"github.com/rcliao/discovery-agent/internal/experiment"
	"github.com/rcliao/discovery-agent/internal/feasibility"
	"github.com/rcliao/discovery-agent/internal/graph"
	"github.com/rcliao/discovery-agent/internal/hypothesis"
	"github.com/rcliao/discovery-agent/internal/llm"
	"github.com/rcliao/discovery-agent/internal/materials"
	"github.com/rcliao/discovery-agent/internal/mining"
	"github.com/rcliao/discovery-agent/internal/model"
	"github.com/rcliao/discovery-agent/internal/novelty"
	"github.com/rcliao/discovery-agent/internal/session"
)

// discoveryThreshold is the test confidence a PASS must clear to count as
// a discovery.
const discoveryThreshold = 0.6

// Priority score weights over the enrichment annotations.
const (
	weightNovelty       = 0.4
	weightFeasibility   = 0.3
	weightGapConfidence = 0.3
)

// Deps are the collaborators a Scientist needs. Fast and Strong may be nil
// for degraded runs; Store may be nil when no session tracking is wanted.
type Deps struct {
	Store    session.Store
	Fast     llm.Client
	Strong   llm.Client
	Searcher materials.Searcher
}

// Scientist runs the full research loop over an analyzed document corpus.
type Scientist struct {
	cfg  config.Config
	deps Deps
	log  *zap.Logger

	miner     *mining.Miner
	generator *hypothesis.Generator
	tester    *experiment.Tester

	// Run state, inspected by SaveResults after a run.
	docs        []model.Document
	graph       *graph.Graph
	gaps        []model.ResearchGap
	hypotheses  []model.Hypothesis
	results     []model.TestResult
	discoveries []model.Discovery
	topic       string
	iteration   int
}

// NewScientist wires the pipeline components.
func NewScientist(cfg config.Config, deps Deps, log *zap.Logger) *Scientist {
	return &Scientist{
		cfg:       cfg,
		deps:      deps,
		log:       log,
		miner:     mining.NewMiner(cfg.Mining, deps.Strong, log),
		generator: hypothesis.NewGenerator(cfg.Generation, deps.Fast, deps.Strong, cfg.LLM.RefineCandidates, log),
		tester:    experiment.NewTester(deps.Searcher, deps.Fast, log),
	}
}

// RunParams bound one research run.
type RunParams struct {
	SessionID     string
	Topic         string
	MaxHypotheses int
	Iterations    int
}

// Run executes the research loop over the corpus. Credential exhaustion is
// fatal: the session is marked failed and the error returned. Per-item
// failures inside a phase are logged and skipped by the components.
func (s *Scientist) Run(ctx context.Context, docs []model.Document, p RunParams) (model.Summary, error) {
	if p.Iterations <= 0 {
		p.Iterations = 1
	}
	if p.MaxHypotheses <= 0 {
		p.MaxHypotheses = 10
	}

	s.docs = docs
	s.topic = p.Topic
	s.graph = graph.New()
	s.log.Info("starting research run",
		zap.String("topic", p.Topic),
		zap.Int("documents", len(docs)),
		zap.Int("iterations", p.Iterations))

	if err := s.updateStatus(ctx, p.SessionID, model.StatusRunning, ""); err != nil {
		return model.Summary{}, err
	}

	for i := 1; i <= p.Iterations; i++ {
		s.iteration = i
		if err := s.runIteration(ctx, i, p); err != nil {
			s.updateStatus(ctx, p.SessionID, model.StatusFailed, err.Error())
			return model.Summary{}, err
		}
	}

	s.progress(ctx, p.SessionID, 100, "done", fmt.Sprintf("run complete: %d discoveries", len(s.discoveries)))
	if err := s.updateStatus(ctx, p.SessionID, model.StatusCompleted, ""); err != nil {
		return model.Summary{}, err
	}

	return s.Summary(), nil
}

// runIteration executes one build → mine → generate → score → test cycle.
func (s *Scientist) runIteration(ctx context.Context, iteration int, p RunParams) error {
	base := (iteration - 1) * 100 / p.Iterations
	span := 100 / p.Iterations
	step := func(fraction int) int { return base + span*fraction/100 }

	s.progress(ctx, p.SessionID, step(10), "graph",
		fmt.Sprintf("iteration %d: building knowledge graph", iteration))
	s.graph.Build(s.docs)
	stats := s.graph.Statistics()
	s.log.Info("graph built", zap.Int("nodes", stats.TotalNodes), zap.Int("edges", stats.TotalEdges))

	s.progress(ctx, p.SessionID, step(25), "mining", "mining patterns and gaps")
	report := mining.Patterns(s.graph, s.cfg.Mining.MinFrequency)
	s.log.Info("patterns mined",
		zap.Int("material_property_pairs", len(report.MaterialPropertyPairs)),
		zap.Int("top_materials", len(report.TopMaterials)))

	gaps, err := s.miner.FindGaps(ctx, s.graph, s.docs)
	if err != nil {
		return fmt.Errorf("gap mining: %w", err)
	}
	s.gaps = gaps

	s.progress(ctx, p.SessionID, step(45), "generation",
		fmt.Sprintf("generating hypotheses from %d gaps", len(gaps)))
	hypotheses, err := s.generator.FromGaps(ctx, gaps)
	if err != nil {
		return fmt.Errorf("hypothesis generation: %w", err)
	}

	s.progress(ctx, p.SessionID, step(65), "scoring", "scoring novelty and feasibility")
	s.score(ctx, hypotheses)
	s.hypotheses = hypotheses

	s.progress(ctx, p.SessionID, step(80), "testing",
		fmt.Sprintf("testing top %d hypotheses", p.MaxHypotheses))
	byPriority := make([]model.Hypothesis, len(hypotheses))
	copy(byPriority, hypotheses)
	sortByPriorityScore(byPriority)

	results, err := s.tester.BatchTest(ctx, byPriority, p.MaxHypotheses)
	s.results = results
	if err != nil {
		return fmt.Errorf("hypothesis testing: %w", err)
	}

	for _, r := range results {
		if r.Verdict == model.VerdictPass && r.Confidence > discoveryThreshold {
			s.discoveries = append(s.discoveries, model.Discovery{
				Hypothesis: r.Hypothesis,
				Confidence: r.Confidence,
				Evidence:   r.Notes,
				Iteration:  iteration,
			})
		}
	}

	s.progress(ctx, p.SessionID, step(95), "evaluation",
		fmt.Sprintf("iteration %d: %d tested, %d discoveries so far",
			iteration, len(results), len(s.discoveries)))
	return nil
}

// score annotates hypotheses with novelty and feasibility, then computes
// the composite priority.
func (s *Scientist) score(ctx context.Context, hypotheses []model.Hypothesis) {
	checker := novelty.NewChecker(s.cfg.Novelty, s.docs, s.log)
	checker.Annotate(hypotheses)

	analyzer := feasibility.NewAnalyzer(s.cfg.Feasibility, s.deps.Searcher, s.log)
	analyzer.AnnotateBatch(ctx, hypotheses)

	for i := range hypotheses {
		hypotheses[i].PriorityScore = priorityScore(&hypotheses[i])
	}
}

// priorityScore combines the enrichment annotations; missing annotations
// contribute a neutral 0.5.
func priorityScore(h *model.Hypothesis) float64 {
	noveltyScore := 0.5
	if h.Novelty != nil {
		noveltyScore = h.Novelty.Score
	}
	feasibilityScore := 0.5
	if h.FeasibilityAn != nil {
		feasibilityScore = h.FeasibilityAn.Score
	}
	return weightNovelty*noveltyScore +
		weightFeasibility*feasibilityScore +
		weightGapConfidence*h.GapConfidence
}

func sortByPriorityScore(hs []model.Hypothesis) {
	sort.SliceStable(hs, func(i, j int) bool {
		return hs[i].PriorityScore > hs[j].PriorityScore
	})
}

// Summary reports the totals of the completed run.
func (s *Scientist) Summary() model.Summary {
	return model.Summary{
		Topic:       s.topic,
		Iterations:  s.iteration,
		Documents:   len(s.docs),
		Gaps:        len(s.gaps),
		Hypotheses:  len(s.hypotheses),
		Tested:      len(s.results),
		Discoveries: len(s.discoveries),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
}

// Discoveries returns the discoveries collected across iterations.
func (s *Scientist) Discoveries() []model.Discovery { return s.discoveries }

func (s *Scientist) updateStatus(ctx context.Context, id, status, errMsg string) error {
	if s.deps.Store == nil || id == "" {
		return nil
	}
	return s.deps.Store.UpdateStatus(ctx, id, status, errMsg)
}

func (s *Scientist) progress(ctx context.Context, id string, pct int, phase, message string) {
	s.log.Info(message, zap.String("phase", phase), zap.Int("progress", pct))
	if s.deps.Store == nil || id == "" {
		return
	}
	if err := s.deps.Store.UpdateProgress(ctx, id, pct, phase, message); err != nil {
		s.log.Warn("progress update failed", zap.Error(err))
	}
}
