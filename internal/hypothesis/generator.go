// Package hypothesis turns research gaps into testable hypothesis records
// using a two-model pipeline: fast bulk generation, then refinement of the
// strongest candidates.
package hypothesis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rcliao/discovery-agent/internal/config"
	"github.com/rcliao/discovery-agent/internal/llm"
	"github.com/rcliao/discovery-agent/internal/model"
	"github.com/rcliao/discovery-agent/internal/resilience"
)

// Generator derives hypotheses from mined gaps. The fast client handles
// bulk drafting; the strong client refines the top candidates per gap.
// Either client may be nil or unavailable, degrading gracefully.
type Generator struct {
	cfg        config.GenerationConfig
	fast       llm.Client
	strong     llm.Client
	refineTopN int
	log        *zap.Logger
}

// NewGenerator creates a hypothesis generator. refineTopN bounds how many
// drafts per gap get the expensive refinement pass.
func NewGenerator(cfg config.GenerationConfig, fast, strong llm.Client, refineTopN int, log *zap.Logger) *Generator {
	return &Generator{cfg: cfg, fast: fast, strong: strong, refineTopN: refineTopN, log: log}
}

// FromGaps generates hypotheses for the highest-priority gaps, up to the
// configured totals. Gaps that yield nothing are skipped; the only fatal
// error is credential exhaustion.
func (g *Generator) FromGaps(ctx context.Context, gaps []model.ResearchGap) ([]model.Hypothesis, error) {
	ordered := make([]model.ResearchGap, len(gaps))
	copy(ordered, gaps)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := model.PriorityRank(ordered[i].Priority), model.PriorityRank(ordered[j].Priority)
		if ri != rj {
			return ri > rj
		}
		return ordered[i].Confidence > ordered[j].Confidence
	})
	if len(ordered) > g.cfg.MaxGaps {
		ordered = ordered[:g.cfg.MaxGaps]
	}

	var out []model.Hypothesis
	for _, gap := range ordered {
		if len(out) >= g.cfg.MaxTotal {
			break
		}

		statements, err := g.draft(ctx, gap)
		if err != nil {
			return nil, err
		}
		if len(statements) == 0 {
			g.log.Warn("no hypotheses drafted for gap", zap.String("gap", gap.ID))
			continue
		}

		for i, stmt := range statements {
			h := model.Hypothesis{
				ID:              fmt.Sprintf("%s_hyp_%d", gap.ID, i+1),
				Statement:       stmt,
				Materials:       gap.Materials,
				Properties:      gap.Properties,
				NoveltyEstimate: 0.5,
				Feasibility:     "Medium",
				SourceGap:       gap.ID,
				GapConfidence:   gap.Confidence,
				GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
			}

			if i < g.refineTopN {
				if err := g.refine(ctx, &h); err != nil {
					return nil, err
				}
			}

			out = append(out, h)
			if len(out) >= g.cfg.MaxTotal {
				break
			}
		}
	}

	g.log.Info("hypothesis generation complete",
		zap.Int("gaps", len(ordered)),
		zap.Int("hypotheses", len(out)))
	return out, nil
}

// draft asks the fast client for a numbered batch of hypothesis statements.
func (g *Generator) draft(ctx context.Context, gap model.ResearchGap) ([]string, error) {
	if g.fast == nil || !g.fast.Available() {
		return nil, nil
	}

	prompt := fmt.Sprintf(`You are a materials science researcher. Generate %d specific, testable hypotheses to address this research gap:

Gap: %s
Domain: materials science
Current Knowledge: Limited experimental data available

Generate hypotheses in this exact format:

HYPOTHESIS 1: If we [specific action], then [predicted outcome] because [scientific reasoning].

Requirements:
- Be specific (mention exact materials, conditions, values)
- Be testable (can be validated computationally or experimentally)
- Be novel (address the unexplored aspect of the gap)
- Include quantitative predictions where possible

Generate %d hypotheses now:`, g.cfg.PerGap, gap.Description, g.cfg.PerGap)

	response, err := g.fast.Generate(ctx, prompt, 800, g.cfg.Creativity)
	if err != nil {
		if errors.Is(err, resilience.ErrCredentialsExhausted) {
			return nil, err
		}
		g.log.Warn("bulk generation failed", zap.String("gap", gap.ID), zap.Error(err))
		return nil, nil
	}

	statements := splitStatements(response, g.cfg.MinStatement)
	if len(statements) > g.cfg.PerGap {
		statements = statements[:g.cfg.PerGap]
	}
	return statements, nil
}

// refine asks the strong client for a structured analysis of one draft and
// merges the parsed sections into the record. Failure leaves the draft
// unrefined rather than dropping it.
func (g *Generator) refine(ctx context.Context, h *model.Hypothesis) error {
	if g.strong == nil || !g.strong.Available() {
		return nil
	}

	prompt := fmt.Sprintf(`Analyze and refine this scientific hypothesis:

%s

Provide a structured analysis:

**Refined Hypothesis**:
[Improved, more precise version]

**Scientific Reasoning**:
[Detailed explanation of why this should work]

**Predicted Outcome**:
[Specific, quantitative prediction]

**Testable Metric**:
[How to measure success - exact property/value]

**Materials Required**:
[List specific materials needed]

**Methods Required**:
[List experimental/computational techniques]

**Novelty Assessment** (0-10):
[Score] - [Brief justification]

**Feasibility** (Easy/Medium/Hard):
[Assessment] - [Key challenges]
`, h.Statement)

	response, err := g.strong.Generate(ctx, prompt, 600, 0.3)
	if err != nil {
		if errors.Is(err, resilience.ErrCredentialsExhausted) {
			return err
		}
		g.log.Warn("refinement failed, keeping draft", zap.String("hypothesis", h.ID), zap.Error(err))
		return nil
	}

	r := parseRefinement(response, h.Statement)
	h.Statement = r.Statement
	h.Reasoning = r.Reasoning
	h.PredictedOutcome = r.PredictedOutcome
	h.TestableMetric = r.TestableMetric
	if len(r.Materials) > 0 {
		h.Materials = r.Materials
	}
	if len(r.Methods) > 0 {
		h.Methods = r.Methods
	}
	h.NoveltyEstimate = r.Novelty
	if tier := canonicalTier(r.Feasibility); model.ValidFeasibilityLevels[tier] {
		h.Feasibility = tier
	}
	h.Refined = true
	return nil
}

// canonicalTier normalizes casing like "EASY" or "medium" to the tier names.
func canonicalTier(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
