package novelty

import (
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/rcliao/discovery-agent/internal/config"
	"github.com/rcliao/discovery-agent/internal/model"
)

func noveltyConfig() config.NoveltyConfig {
	return config.NoveltyConfig{Threshold: 0.75, MaxVocabulary: 500}
}

func corpus() []model.Document {
	return []model.Document{
		{ID: "d1", Title: "Thermal conductivity of graphene", Abstract: "We measure the thermal conductivity of suspended graphene sheets."},
		{ID: "d2", Title: "Band gap engineering in MoS2", Abstract: "Strain tuning of the band gap in monolayer molybdenum disulfide."},
		{ID: "d3", Title: "DFT study of perovskite stability", Abstract: "Density functional theory predicts formation energies of halide perovskites."},
		{ID: "d4", Title: "Machine learning for materials discovery", Abstract: "Graph neural networks predict material properties from structure."},
		{ID: "d5", Title: "Superconductivity in hydrides", Abstract: "High pressure hydride superconductors approach room temperature."},
	}
}

func TestCheckRestatedCorpusTextScoresLow(t *testing.T) {
	c := NewChecker(noveltyConfig(), corpus(), zap.NewNop())

	ann := c.Check("We measure the thermal conductivity of suspended graphene sheets.")
	if ann.Score > 0.3 {
		t.Errorf("restated corpus text should score low novelty, got %v", ann.Score)
	}
	if ann.IsNovel {
		t.Error("restated corpus text should not be novel")
	}
	if len(ann.SimilarDocs) == 0 {
		t.Fatal("expected similar documents")
	}
	if ann.SimilarDocs[0].Title != "Thermal conductivity of graphene" {
		t.Errorf("wrong top similar doc: %q", ann.SimilarDocs[0].Title)
	}
}

func TestCheckUnrelatedTextScoresHigh(t *testing.T) {
	c := NewChecker(noveltyConfig(), corpus(), zap.NewNop())

	ann := c.Check("If we dope bismuth telluride nanowires with selenium vacancies then thermoelectric figure of merit improves.")
	if ann.Score < 0.7 {
		t.Errorf("unrelated statement should score high novelty, got %v", ann.Score)
	}
	if !ann.IsNovel {
		t.Error("unrelated statement should be novel")
	}
}

func TestCheckScoreBounds(t *testing.T) {
	c := NewChecker(noveltyConfig(), corpus(), zap.NewNop())

	statements := []string{
		"",
		"graphene",
		"Thermal conductivity of graphene band gap MoS2 perovskite hydride",
		"completely unrelated zebra quantum xylophone",
	}
	for _, s := range statements {
		ann := c.Check(s)
		if ann.Score < 0 || ann.Score > 1 {
			t.Errorf("novelty out of [0,1] for %q: %v", s, ann.Score)
		}
		if ann.Confidence < 0.3 || ann.Confidence > 0.95 {
			t.Errorf("confidence out of [0.3,0.95] for %q: %v", s, ann.Confidence)
		}
	}
}

func TestCheckOrderIndependence(t *testing.T) {
	a := NewChecker(noveltyConfig(), corpus(), zap.NewNop())
	b := NewChecker(noveltyConfig(), corpus(), zap.NewNop())

	s1 := "Strain tuning of band gaps in two dimensional materials."
	s2 := "Room temperature superconductivity in compressed hydrides."

	first := a.Check(s1)
	a.Check(s2)
	again := a.Check(s1)
	fresh := b.Check(s1)

	if first.Score != again.Score || first.Score != fresh.Score {
		t.Errorf("score depends on call order: %v %v %v", first.Score, again.Score, fresh.Score)
	}
}

func TestEmptyCorpusNeutralScore(t *testing.T) {
	c := NewChecker(noveltyConfig(), nil, zap.NewNop())

	ann := c.Check("anything at all")
	if ann.Score != 0.5 || !ann.IsNovel || ann.Confidence != 0.3 {
		t.Errorf("expected neutral annotation for empty corpus, got %+v", ann)
	}
}

func TestSmallCorpusConfidence(t *testing.T) {
	small := corpus()[:3]
	c := NewChecker(noveltyConfig(), small, zap.NewNop())

	if ann := c.Check("graphene thermal transport"); ann.Confidence != 0.5 {
		t.Errorf("expected 0.5 confidence below 5 documents, got %v", ann.Confidence)
	}
}

func TestAnnotate(t *testing.T) {
	c := NewChecker(noveltyConfig(), corpus(), zap.NewNop())

	hs := []model.Hypothesis{
		{ID: "hyp_1", Statement: "If we strain monolayer MoS2 then the band gap shifts measurably."},
		{ID: "hyp_2", Statement: "If we anneal copper oxide ceramics then grain boundaries shrink."},
	}
	c.Annotate(hs)

	for _, h := range hs {
		if h.Novelty == nil {
			t.Fatalf("%s missing novelty annotation", h.ID)
		}
	}
}

func TestVocabularyCap(t *testing.T) {
	docs := make([]model.Document, 30)
	for i := range docs {
		docs[i] = model.Document{
			ID:       fmt.Sprintf("d%d", i),
			Title:    fmt.Sprintf("unique%d term%d study", i, i),
			Abstract: "shared materials research corpus text",
		}
	}

	cfg := config.NoveltyConfig{Threshold: 0.75, MaxVocabulary: 10}
	c := NewChecker(cfg, docs, zap.NewNop())
	if got := len(c.space.vocab); got > 10 {
		t.Errorf("vocabulary exceeds cap: %d", got)
	}
}

func TestTerms(t *testing.T) {
	got := terms("The thermal conductivity of graphene")
	want := []string{"thermal", "conductivity", "graphene", "thermal conductivity", "conductivity graphene"}
	if len(got) != len(want) {
		t.Fatalf("terms mismatch: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("term %d: got %q want %q", i, got[i], want[i])
		}
	}
}
