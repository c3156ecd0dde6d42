package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/discovery-agent/internal/agent"
	"github.com/rcliao/discovery-agent/internal/graph"
	"github.com/rcliao/discovery-agent/internal/mining"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect the knowledge graph of a corpus",
}

func init() {
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print graph statistics and frequent patterns",
		Run:   runGraphStats,
	}
	stats.Flags().StringP("input", "i", "", "Analyzed corpus JSON file (required)")
	stats.Flags().Int("min-frequency", 0, "Min pattern frequency (default from config)")
	stats.MarkFlagRequired("input")

	export := &cobra.Command{
		Use:   "export",
		Short: "Export the knowledge graph as GraphML",
		Run:   runGraphExport,
	}
	export.Flags().StringP("input", "i", "", "Analyzed corpus JSON file (required)")
	export.Flags().StringP("out", "o", "", "Output file (stdout when omitted)")
	export.MarkFlagRequired("input")

	graphCmd.AddCommand(stats, export)
	RootCmd.AddCommand(graphCmd)
}

func buildGraph(cmd *cobra.Command) *graph.Graph {
	input, _ := cmd.Flags().GetString("input")

	docs, err := agent.LoadCorpus(input)
	if err != nil {
		exitErr("load corpus", err)
	}

	g := graph.New()
	g.Build(docs)
	return g
}

func runGraphStats(cmd *cobra.Command, args []string) {
	minFrequency, _ := cmd.Flags().GetInt("min-frequency")
	if minFrequency <= 0 {
		minFrequency = loadConfig().Mining.MinFrequency
	}

	g := buildGraph(cmd)

	out := struct {
		Stats    graph.Stats          `json:"statistics"`
		Patterns mining.PatternReport `json:"patterns"`
	}{
		Stats:    g.Statistics(),
		Patterns: mining.Patterns(g, minFrequency),
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}

func runGraphExport(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")

	g := buildGraph(cmd)

	w := os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			exitErr("create output", err)
		}
		defer f.Close()
		w = f
	}

	if err := g.WriteGraphML(w); err != nil {
		exitErr("export", err)
	}
}
