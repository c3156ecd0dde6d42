// Package novelty scores hypotheses against the analyzed corpus using
// TF-IDF cosine similarity.
package novelty

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/rcliao/discovery-agent/internal/config"
	"github.com/rcliao/discovery-agent/internal/model"
)

// similarDocFloor is the minimum similarity for a document to be reported
// as related work.
const similarDocFloor = 0.3

// Checker scores hypothesis statements against a fixed corpus snapshot.
// Fit once, check many: the vector space is built at construction and
// checks do not mutate it, so results are independent of call order.
type Checker struct {
	cfg   config.NoveltyConfig
	docs  []model.Document
	space *vectorSpace
	log   *zap.Logger
}

// NewChecker fits a TF-IDF model over the corpus titles and abstracts.
func NewChecker(cfg config.NoveltyConfig, docs []model.Document, log *zap.Logger) *Checker {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Title + " " + d.Abstract
	}

	c := &Checker{cfg: cfg, docs: docs, log: log}
	if len(docs) > 0 {
		c.space = newVectorSpace(texts, cfg.MaxVocabulary)
	}
	if c.space == nil {
		log.Warn("novelty corpus empty, checks will return neutral scores")
	}
	return c
}

// Check scores one hypothesis statement. Novelty is one minus the maximum
// cosine similarity against any corpus document.
func (c *Checker) Check(statement string) model.NoveltyAnnotation {
	if c.space == nil {
		return model.NoveltyAnnotation{
			Score:      0.5,
			IsNovel:    true,
			Confidence: 0.3,
		}
	}

	sims := c.space.similarities(statement)

	maxSim := 0.0
	for _, s := range sims {
		if s > maxSim {
			maxSim = s
		}
	}

	ann := model.NoveltyAnnotation{
		Score:         model.Clamp(1-maxSim, 0, 1),
		IsNovel:       maxSim < c.cfg.Threshold,
		MaxSimilarity: maxSim,
		SimilarDocs:   c.similarDocs(sims),
		Confidence:    c.confidence(sims),
	}
	return ann
}

// Annotate scores every hypothesis in place.
func (c *Checker) Annotate(hypotheses []model.Hypothesis) {
	for i := range hypotheses {
		ann := c.Check(hypotheses[i].Statement)
		hypotheses[i].Novelty = &ann
		c.log.Debug("novelty checked",
			zap.String("hypothesis", hypotheses[i].ID),
			zap.Float64("novelty", ann.Score),
			zap.Bool("novel", ann.IsNovel))
	}
}

// similarDocs reports the top three corpus documents above the similarity
// floor, most similar first.
func (c *Checker) similarDocs(sims []float64) []model.SimilarDoc {
	idx := make([]int, len(sims))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return sims[idx[a]] > sims[idx[b]] })

	var out []model.SimilarDoc
	for _, i := range idx {
		if sims[i] <= similarDocFloor {
			break
		}
		out = append(out, model.SimilarDoc{
			Title:      c.docs[i].Title,
			Similarity: sims[i],
		})
		if len(out) == 3 {
			break
		}
	}
	return out
}

// confidence estimates how much to trust a score from the spread of the
// similarity distribution. A tight spread means the corpus treats the
// statement uniformly and the max is less informative.
func (c *Checker) confidence(sims []float64) float64 {
	if len(sims) < 5 {
		return 0.5
	}

	var mean float64
	for _, s := range sims {
		mean += s
	}
	mean /= float64(len(sims))

	var variance float64
	for _, s := range sims {
		variance += (s - mean) * (s - mean)
	}
	std := math.Sqrt(variance / float64(len(sims)))

	return model.Clamp(1-std/(mean+0.1), 0.3, 0.95)
}
