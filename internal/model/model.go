// Package model defines the core research pipeline data types.
package model

import "time"

// Document is an analyzed paper record produced by the external analysis
// component. Immutable once created.
type Document struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Abstract     string   `json:"abstract"`
	Materials    []string `json:"materials,omitempty"`
	Properties   []string `json:"properties,omitempty"`
	Methods      []string `json:"methods,omitempty"`
	Applications []string `json:"applications,omitempty"`
	Metrics      []string `json:"metrics,omitempty"`
	KeyFindings  []string `json:"key_findings,omitempty"`

	// ResearchType is one of "experimental", "theoretical",
	// "computational", "review".
	ResearchType  string `json:"research_type,omitempty"`
	MaturityLevel string `json:"maturity_level,omitempty"`

	Relevance  float64 `json:"relevance_score"`  // 0-10
	Confidence float64 `json:"confidence_score"` // 0-1

	AnalyzedAt string `json:"analyzed_at,omitempty"`
}

// Normalize clamps the document scores to their declared ranges.
func (d *Document) Normalize() {
	d.Relevance = Clamp(d.Relevance, 0, 10)
	d.Confidence = Clamp(d.Confidence, 0, 1)
}

// ResearchGap is an evidence-backed absence of coverage between frequently
// studied entities, or a methodological underrepresentation. Immutable once
// produced by a mining pass.
type ResearchGap struct {
	ID          string   `json:"gap_id"`
	Description string   `json:"description"`
	Materials   []string `json:"related_materials,omitempty"`
	Properties  []string `json:"related_properties,omitempty"`
	Evidence    []string `json:"supporting_evidence,omitempty"` // document ids
	Confidence  float64  `json:"confidence"`                    // 0-1
	Priority    string   `json:"priority"`                      // high, medium, low
}

// ValidPriorities are the allowed gap priority tiers.
var ValidPriorities = map[string]bool{
	"high":   true,
	"medium": true,
	"low":    true,
}

// PriorityRank maps a priority tier to a sortable rank (higher is better).
func PriorityRank(p string) int {
	switch p {
	case "high":
		return 3
	case "medium":
		return 2
	case "low":
		return 1
	}
	return 0
}

// Hypothesis is a falsifiable statement derived from a gap. Enrichment added
// by downstream stages lives in the annotation structs rather than growing
// this record.
type Hypothesis struct {
	ID               string   `json:"hypothesis_id"`
	Statement        string   `json:"hypothesis"`
	Reasoning        string   `json:"reasoning,omitempty"`
	PredictedOutcome string   `json:"predicted_outcome,omitempty"`
	TestableMetric   string   `json:"testable_metric,omitempty"`
	Materials        []string `json:"required_materials,omitempty"`
	Properties       []string `json:"required_properties,omitempty"`
	Methods          []string `json:"required_methods,omitempty"`
	NoveltyEstimate  float64  `json:"novelty_estimate"` // 0-1, normalized from the 0-10 LLM score
	Feasibility      string   `json:"feasibility"`      // Easy, Medium, Hard (LLM tag)
	SourceGap        string   `json:"source_gap,omitempty"`
	GapConfidence    float64  `json:"gap_confidence"`
	Refined          bool     `json:"refined"`
	GeneratedAt      string   `json:"generated_at,omitempty"`

	Novelty       *NoveltyAnnotation     `json:"novelty,omitempty"`
	FeasibilityAn *FeasibilityAnnotation `json:"feasibility_analysis,omitempty"`
	PriorityScore float64                `json:"priority_score"`
}

// NoveltyAnnotation is attached by the novelty checker.
type NoveltyAnnotation struct {
	Score         float64      `json:"novelty_score"` // 0-1, 1 = completely novel
	IsNovel       bool         `json:"is_novel"`
	MaxSimilarity float64      `json:"max_similarity"`
	SimilarDocs   []SimilarDoc `json:"similar_papers,omitempty"`
	Confidence    float64      `json:"confidence"`
}

// SimilarDoc names a corpus document similar to a hypothesis.
type SimilarDoc struct {
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// FeasibilityAnnotation is attached by the feasibility analyzer.
type FeasibilityAnnotation struct {
	Score            float64  `json:"feasibility_score"` // 0-1, 1 = highly feasible
	Level            string   `json:"feasibility_level"` // Easy, Medium, Hard, Infeasible
	DataAvailable    bool     `json:"data_available"`
	MethodsAvailable bool     `json:"methods_available"`
	TimeEstimate     string   `json:"time_estimate"`
	DataSources      []string `json:"data_sources,omitempty"`
	Challenges       []string `json:"key_challenges,omitempty"`
	Recommendations  []string `json:"recommendations,omitempty"`
}

// ValidFeasibilityLevels are the allowed feasibility tiers.
var ValidFeasibilityLevels = map[string]bool{
	"Easy":       true,
	"Medium":     true,
	"Hard":       true,
	"Infeasible": true,
}

// Test verdicts.
const (
	VerdictPass         = "PASS"
	VerdictFail         = "FAIL"
	VerdictInconclusive = "INCONCLUSIVE"
)

// TestResult is the outcome of a computational check of one hypothesis.
type TestResult struct {
	Hypothesis string             `json:"hypothesis"`
	Method     string             `json:"test_method"`
	Verdict    string             `json:"result"`
	Confidence float64            `json:"confidence"` // 0-1
	Evidence   map[string]Finding `json:"evidence,omitempty"`
	Notes      string             `json:"notes,omitempty"`
}

// Finding records the lookup outcome for one material.
type Finding struct {
	Found bool   `json:"found"`
	Count int    `json:"count,omitempty"`
	Error string `json:"error,omitempty"`
}

// Discovery is a tested hypothesis that passed with high confidence.
type Discovery struct {
	Hypothesis string  `json:"hypothesis"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence"`
	Iteration  int     `json:"iteration"`
}

// Summary is the per-run report persisted alongside the result files.
type Summary struct {
	Topic       string `json:"topic"`
	Iterations  int    `json:"iterations"`
	Documents   int    `json:"documents"`
	Gaps        int    `json:"gaps_identified"`
	Hypotheses  int    `json:"hypotheses_generated"`
	Tested      int    `json:"hypotheses_tested"`
	Discoveries int    `json:"discoveries"`
	Timestamp   string `json:"timestamp"`
}

// Session statuses.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ValidStatuses are the allowed session statuses.
var ValidStatuses = map[string]bool{
	StatusPending:   true,
	StatusRunning:   true,
	StatusCompleted: true,
	StatusFailed:    true,
}

// Session is a durable record of one pipeline run.
type Session struct {
	ID            string     `json:"session_id"`
	Topic         string     `json:"research_topic"`
	Status        string     `json:"status"`
	Progress      int        `json:"progress"` // 0-100
	CurrentPhase  string     `json:"current_phase,omitempty"`
	MaxDocuments  int        `json:"max_documents"`
	MaxHypotheses int        `json:"max_hypotheses"`
	Iterations    int        `json:"iterations"`
	Model         string     `json:"ai_model,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	ResultsPath   string     `json:"results_path,omitempty"`
}

// SessionLog is one progress line in a session's append-only log.
type SessionLog struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Phase     string    `json:"phase,omitempty"`
	Message   string    `json:"message"`
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
