package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/discovery-agent/internal/agent"
	"github.com/rcliao/discovery-agent/internal/config"
	"github.com/rcliao/discovery-agent/internal/llm"
	"github.com/rcliao/discovery-agent/internal/materials"
	"github.com/rcliao/discovery-agent/internal/resilience"
	"github.com/rcliao/discovery-agent/internal/session"
)

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a discovery session over a corpus",
		Long: "Run the full pipeline: build the knowledge graph, mine gaps, generate and\n" +
			"score hypotheses, and test the top candidates. Prints the run summary as JSON.",
		Run: runRun,
	}

	cmd.Flags().StringP("input", "i", "", "Analyzed corpus JSON file (required)")
	cmd.Flags().StringP("topic", "t", "", "Research topic (required)")
	cmd.Flags().Int("max-hypotheses", 10, "Max hypotheses to test per iteration")
	cmd.Flags().Int("iterations", 1, "Research iterations")
	cmd.Flags().StringP("out", "o", "", "Directory to write result artifacts")

	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("topic")

	RootCmd.AddCommand(cmd)
}

func runRun(cmd *cobra.Command, args []string) {
	input, _ := cmd.Flags().GetString("input")
	topic, _ := cmd.Flags().GetString("topic")
	maxHypotheses, _ := cmd.Flags().GetInt("max-hypotheses")
	iterations, _ := cmd.Flags().GetInt("iterations")
	out, _ := cmd.Flags().GetString("out")

	cfg := loadConfig()
	log := newLogger()
	defer log.Sync()

	docs, err := agent.LoadCorpus(input)
	if err != nil {
		exitErr("load corpus", err)
	}

	store, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer store.Close()

	sess, err := store.Create(cmd.Context(), session.CreateParams{
		Topic:         topic,
		MaxDocuments:  len(docs),
		MaxHypotheses: maxHypotheses,
		Iterations:    iterations,
		Model:         cfg.LLM.GeminiModel,
	})
	if err != nil {
		exitErr("create session", err)
	}

	scientist := agent.NewScientist(cfg, buildDeps(cfg, store, log), log)

	summary, err := scientist.Run(cmd.Context(), docs, agent.RunParams{
		SessionID:     sess.ID,
		Topic:         topic,
		MaxHypotheses: maxHypotheses,
		Iterations:    iterations,
	})
	if err != nil {
		exitErr("run", err)
	}

	if out != "" {
		if err := scientist.SaveResults(out); err != nil {
			exitErr("save results", err)
		}
		if err := store.SaveResultsPath(cmd.Context(), sess.ID, out); err != nil {
			log.Warn("record results path failed", zap.Error(err))
		}
	}

	b, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(b))
}

// buildDeps wires the external collaborators. Missing credentials yield nil
// rotators and degraded, heuristic-only components rather than a failure.
func buildDeps(cfg config.Config, store session.Store, log *zap.Logger) agent.Deps {
	deps := agent.Deps{Store: store}

	if rot, err := resilience.NewRotator("gemini", cfg.LLM.GeminiKeys); err == nil {
		deps.Strong = llm.NewGemini(cfg.LLM, cfg.Retry, rot, log)
	} else {
		log.Warn("gemini unavailable, running degraded", zap.Error(err))
	}
	if rot, err := resilience.NewRotator("groq", cfg.LLM.GroqKeys); err == nil {
		deps.Fast = llm.NewGroq(cfg.LLM, cfg.Retry, rot, log)
	} else {
		log.Warn("groq unavailable, running degraded", zap.Error(err))
	}

	mpRot, err := resilience.NewRotator("materials-project", cfg.Materials.Keys)
	if err != nil {
		log.Warn("materials project unavailable, lookups will fail", zap.Error(err))
		mpRot = nil
	}
	deps.Searcher = materials.NewMPClient(cfg.Materials, cfg.Retry, mpRot, log)

	return deps
}
