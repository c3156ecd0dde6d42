package mining

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/discovery-agent/internal/config"
	"github.com/rcliao/discovery-agent/internal/graph"
	"github.com/rcliao/discovery-agent/internal/llm"
	"github.com/rcliao/discovery-agent/internal/model"
	"github.com/rcliao/discovery-agent/internal/resilience"
)

// Miner finds understudied entity combinations in a graph snapshot.
type Miner struct {
	cfg config.MiningConfig
	llm llm.Client
	log *zap.Logger
}

// NewMiner creates a gap miner. The LLM judges candidate plausibility; when
// it is unavailable or unparseable, mining degrades to templated
// low-confidence descriptions.
func NewMiner(cfg config.MiningConfig, client llm.Client, log *zap.Logger) *Miner {
	return &Miner{cfg: cfg, llm: client, log: log}
}

// candidate is an unjudged (material, property) pair with no edge between
// them.
type candidate struct {
	material string
	property string
}

// gapJudgment is the structured verdict the LLM returns per candidate.
type gapJudgment struct {
	Description string   `json:"description"`
	Evidence    []string `json:"evidence"`
	Confidence  float64  `json:"confidence"`
	Priority    string   `json:"priority"`
}

// FindGaps mines the graph for understudied material-property pairs and
// methodological underrepresentation. Every returned gap satisfies the
// configured confidence floor. The only returned error is credential
// exhaustion, which is fatal for the owning run; other LLM failures
// degrade to templated judgments.
func (m *Miner) FindGaps(ctx context.Context, g *graph.Graph, docs []model.Document) ([]model.ResearchGap, error) {
	var gaps []model.ResearchGap

	candidates := m.pairCandidates(g)
	if len(candidates) > m.cfg.MaxCandidates {
		candidates = candidates[:m.cfg.MaxCandidates]
	}

	if len(candidates) > 0 {
		judgments, err := m.judgeCandidates(ctx, candidates)
		if err != nil {
			return nil, err
		}
		for i, c := range candidates {
			if i >= len(judgments) {
				break
			}
			j := judgments[i]
			gap := model.ResearchGap{
				ID:          fmt.Sprintf("gap_%d", i+1),
				Description: j.Description,
				Materials:   []string{c.material},
				Properties:  []string{c.property},
				Evidence:    j.Evidence,
				Confidence:  model.Clamp(j.Confidence, 0, 1),
				Priority:    normalizePriority(j.Priority),
			}
			if gap.Confidence >= m.cfg.MinGapConfidence {
				gaps = append(gaps, gap)
			}
		}
	}

	gaps = append(gaps, m.methodGaps(docs)...)

	m.log.Info("gap mining complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("gaps", len(gaps)))
	return gaps, nil
}

// pairCandidates crosses the top-K materials with the top-K properties and
// keeps pairs with no has_property edge.
func (m *Miner) pairCandidates(g *graph.Graph) []candidate {
	materials := g.NodesByType(graph.TypeMaterial)
	properties := g.NodesByType(graph.TypeProperty)
	if len(materials) > m.cfg.TopK {
		materials = materials[:m.cfg.TopK]
	}
	if len(properties) > m.cfg.TopK {
		properties = properties[:m.cfg.TopK]
	}

	studied := make(map[[2]string]bool)
	for _, e := range g.Edges {
		if e.Relation == graph.RelHasProperty {
			studied[[2]string{e.Source, e.Target}] = true
		}
	}

	var out []candidate
	for _, mat := range materials {
		for _, prop := range properties {
			if !studied[[2]string{mat, prop}] {
				out = append(out, candidate{material: mat, property: prop})
			}
		}
	}
	return out
}

// judgeCandidates asks the LLM whether each candidate is a meaningful gap.
// Unparseable output degrades to a templated judgment per candidate.
func (m *Miner) judgeCandidates(ctx context.Context, candidates []candidate) ([]gapJudgment, error) {
	if m.llm == nil || !m.llm.Available() {
		return m.fallbackJudgments(candidates), nil
	}

	var pairs strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&pairs, "%d. %s - %s\n", i+1, c.material, c.property)
	}

	prompt := fmt.Sprintf(`Analyze these understudied material-property combinations from scientific literature:

%s
For each combination, determine:
1. Is this actually a research gap worth exploring? (Some combinations may not make sense)
2. Why might this be understudied?
3. What would be the research value of studying it?
4. Priority level (high/medium/low)

Return JSON array with format:
[
  {
    "description": "Brief description of why this gap exists and why it matters",
    "evidence": ["reason1", "reason2"],
    "confidence": <float 0-1>,
    "priority": "high/medium/low"
  }
]

Only include combinations that are scientifically meaningful. Return ONLY valid JSON.
`, pairs.String())

	response, err := m.llm.Generate(ctx, prompt, 2000, 0.4)
	if err != nil {
		if errors.Is(err, resilience.ErrCredentialsExhausted) {
			return nil, err
		}
		m.log.Warn("gap judgment call failed, using fallback", zap.Error(err))
		return m.fallbackJudgments(candidates), nil
	}

	var judgments []gapJudgment
	if err := json.Unmarshal([]byte(llm.ExtractJSON(response)), &judgments); err != nil {
		m.log.Warn("gap judgment unparseable, using fallback", zap.Error(err))
		return m.fallbackJudgments(candidates), nil
	}
	return judgments, nil
}

// fallbackJudgments keeps candidates alive at reduced confidence when the
// collaborator output is unusable.
func (m *Miner) fallbackJudgments(candidates []candidate) []gapJudgment {
	out := make([]gapJudgment, len(candidates))
	for i, c := range candidates {
		out[i] = gapJudgment{
			Description: fmt.Sprintf("Understudied combination of %s and %s", c.material, c.property),
			Evidence:    []string{"Limited research coverage"},
			Confidence:  0.5,
			Priority:    "medium",
		}
	}
	return out
}

// methodGaps flags a methodological gap when computational work is
// underrepresented in the corpus.
func (m *Miner) methodGaps(docs []model.Document) []model.ResearchGap {
	if len(docs) == 0 {
		return nil
	}

	computational := 0
	for _, d := range docs {
		if d.ResearchType == "computational" {
			computational++
		}
	}
	ratio := float64(computational) / float64(len(docs))
	if ratio >= m.cfg.MethodGapRatio {
		return nil
	}

	var evidence []string
	for _, d := range docs {
		if d.ResearchType != "computational" {
			evidence = append(evidence, d.ID)
			if len(evidence) == 5 {
				break
			}
		}
	}

	return []model.ResearchGap{{
		ID:          "gap_method_computational",
		Description: "Computational and theoretical studies are underrepresented. More simulation-based research could accelerate materials discovery.",
		Evidence:    evidence,
		Confidence:  0.8,
		Priority:    "high",
	}}
}

func normalizePriority(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if model.ValidPriorities[p] {
		return p
	}
	return "medium"
}
