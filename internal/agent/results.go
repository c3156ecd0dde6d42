package agent

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rcliao/discovery-agent/internal/model"
)

// SaveResults writes the run artifacts to dir: CSV tables for papers,
// hypotheses, and test results, JSON for discoveries and the summary, and
// the knowledge graph as GraphML.
func (s *Scientist) SaveResults(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}

	if err := s.writePapers(filepath.Join(dir, "papers.csv")); err != nil {
		return err
	}
	if err := s.writeHypotheses(filepath.Join(dir, "hypotheses.csv")); err != nil {
		return err
	}
	if err := s.writeTestResults(filepath.Join(dir, "test_results.csv")); err != nil {
		return err
	}
	discoveries := s.discoveries
	if discoveries == nil {
		discoveries = []model.Discovery{}
	}
	if err := writeJSON(filepath.Join(dir, "discoveries.json"), discoveries); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "summary.json"), s.Summary()); err != nil {
		return err
	}
	if s.graph != nil {
		f, err := os.Create(filepath.Join(dir, "knowledge_graph.graphml"))
		if err != nil {
			return fmt.Errorf("create graphml: %w", err)
		}
		if err := s.graph.WriteGraphML(f); err != nil {
			f.Close()
			return fmt.Errorf("write graphml: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}

	s.log.Info("results saved", zap.String("dir", dir))
	return nil
}

func (s *Scientist) writePapers(path string) error {
	rows := [][]string{{
		"id", "title", "research_type", "materials", "properties", "methods",
		"relevance_score", "confidence_score",
	}}
	for _, d := range s.docs {
		rows = append(rows, []string{
			d.ID, d.Title, d.ResearchType,
			strings.Join(d.Materials, "; "),
			strings.Join(d.Properties, "; "),
			strings.Join(d.Methods, "; "),
			ftoa(d.Relevance), ftoa(d.Confidence),
		})
	}
	return writeCSV(path, rows)
}

func (s *Scientist) writeHypotheses(path string) error {
	rows := [][]string{{
		"hypothesis_id", "hypothesis", "source_gap", "gap_confidence", "refined",
		"predicted_outcome", "testable_metric", "required_materials", "required_methods",
		"novelty_score", "is_novel", "feasibility_score", "feasibility_level",
		"time_estimate", "priority_score",
	}}
	for _, h := range s.hypotheses {
		noveltyScore, isNovel := "", ""
		if h.Novelty != nil {
			noveltyScore = ftoa(h.Novelty.Score)
			isNovel = strconv.FormatBool(h.Novelty.IsNovel)
		}
		feasScore, feasLevel, timeEstimate := "", "", ""
		if h.FeasibilityAn != nil {
			feasScore = ftoa(h.FeasibilityAn.Score)
			feasLevel = h.FeasibilityAn.Level
			timeEstimate = h.FeasibilityAn.TimeEstimate
		}
		rows = append(rows, []string{
			h.ID, h.Statement, h.SourceGap, ftoa(h.GapConfidence),
			strconv.FormatBool(h.Refined),
			h.PredictedOutcome, h.TestableMetric,
			strings.Join(h.Materials, "; "), strings.Join(h.Methods, "; "),
			noveltyScore, isNovel, feasScore, feasLevel, timeEstimate,
			ftoa(h.PriorityScore),
		})
	}
	return writeCSV(path, rows)
}

func (s *Scientist) writeTestResults(path string) error {
	rows := [][]string{{"hypothesis", "test_method", "result", "confidence", "evidence", "notes"}}
	for _, r := range s.results {
		b, _ := json.Marshal(r.Evidence)
		rows = append(rows, []string{
			r.Hypothesis, r.Method, r.Verdict, ftoa(r.Confidence), string(b), r.Notes,
		})
	}
	return writeCSV(path, rows)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

func writeJSON(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
