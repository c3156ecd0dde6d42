// Package config loads pipeline configuration from a YAML file with
// environment-variable overrides for credentials.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is passed explicitly to every component at construction time.
type Config struct {
	// LLM holds the language-model provider settings.
	LLM LLMConfig `yaml:"llm"`

	// Materials holds the materials-lookup settings.
	Materials MaterialsConfig `yaml:"materials"`

	Mining      MiningConfig      `yaml:"mining"`
	Generation  GenerationConfig  `yaml:"generation"`
	Novelty     NoveltyConfig     `yaml:"novelty"`
	Feasibility FeasibilityConfig `yaml:"feasibility"`
	Retry       RetryConfig       `yaml:"retry"`
}

// LLMConfig configures the Gemini and Groq providers.
type LLMConfig struct {
	GeminiModel      string        `yaml:"gemini_model"`
	GroqModel        string        `yaml:"groq_model"`
	GeminiKeys       []string      `yaml:"gemini_keys,omitempty"`
	GroqKeys         []string      `yaml:"groq_keys,omitempty"`
	RequestsPerMin   int           `yaml:"requests_per_minute"`
	RequestsPerSec   int           `yaml:"requests_per_second"`
	CallDelay        time.Duration `yaml:"call_delay"`
	RefineCandidates int           `yaml:"refine_candidates"`
}

// MaterialsConfig configures the Materials Project client.
type MaterialsConfig struct {
	Keys           []string `yaml:"keys,omitempty"`
	BaseURL        string   `yaml:"base_url"`
	RequestsPerSec int      `yaml:"requests_per_second"`
}

// MiningConfig holds the pattern and gap mining tunables. The top-K bound and
// thresholds are small fixed samples for cost control, not semantic limits.
type MiningConfig struct {
	TopK             int     `yaml:"top_k"`
	MinFrequency     int     `yaml:"min_frequency"`
	MaxCandidates    int     `yaml:"max_candidates"`
	MinGapConfidence float64 `yaml:"min_gap_confidence"`
	MethodGapRatio   float64 `yaml:"method_gap_ratio"`
}

// GenerationConfig holds the hypothesis generation tunables.
type GenerationConfig struct {
	PerGap       int     `yaml:"hypotheses_per_gap"`
	MaxTotal     int     `yaml:"max_total"`
	MaxGaps      int     `yaml:"max_gaps"`
	Creativity   float64 `yaml:"creativity"`
	MinStatement int     `yaml:"min_statement_length"`
}

// NoveltyConfig holds the novelty checker tunables.
type NoveltyConfig struct {
	Threshold     float64 `yaml:"threshold"`
	MaxVocabulary int     `yaml:"max_vocabulary"`
}

// FeasibilityConfig holds the feasibility analyzer tunables.
type FeasibilityConfig struct {
	Methods []string `yaml:"available_methods,omitempty"`
}

// RetryConfig bounds the retry-with-backoff wrapper around external calls.
type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Base         float64       `yaml:"backoff_base"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			GeminiModel:      "gemini-2.0-flash",
			GroqModel:        "llama-3.3-70b-versatile",
			RequestsPerMin:   30,
			RequestsPerSec:   2,
			CallDelay:        time.Second,
			RefineCandidates: 3,
		},
		Materials: MaterialsConfig{
			BaseURL:        "https://api.materialsproject.org",
			RequestsPerSec: 5,
		},
		Mining: MiningConfig{
			TopK:             10,
			MinFrequency:     3,
			MaxCandidates:    10,
			MinGapConfidence: 0.6,
			MethodGapRatio:   0.3,
		},
		Generation: GenerationConfig{
			PerGap:       3,
			MaxTotal:     20,
			MaxGaps:      5,
			Creativity:   0.7,
			MinStatement: 50,
		},
		Novelty: NoveltyConfig{
			Threshold:     0.75,
			MaxVocabulary: 500,
		},
		Feasibility: FeasibilityConfig{
			Methods: []string{
				"DFT", "molecular_dynamics", "monte_carlo",
				"property_prediction", "structure_optimization",
				"machine_learning", "computational_screening",
			},
		},
		Retry: RetryConfig{
			MaxRetries:   3,
			InitialDelay: time.Second,
			MaxDelay:     60 * time.Second,
			Base:         2.0,
		},
	}
}

// Load reads a YAML config file over the defaults, then applies environment
// overrides. An empty path returns defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv fills credentials from the environment when the file left them
// empty. Numbered keys (PREFIX_1..3) are preferred, a bare PREFIX accepted.
func (c *Config) applyEnv() {
	if len(c.LLM.GeminiKeys) == 0 {
		c.LLM.GeminiKeys = keysFromEnv("GEMINI_API_KEY")
	}
	if len(c.LLM.GroqKeys) == 0 {
		c.LLM.GroqKeys = keysFromEnv("GROQ_API_KEY")
	}
	if len(c.Materials.Keys) == 0 {
		c.Materials.Keys = keysFromEnv("MP_API_KEY")
	}
}

func keysFromEnv(prefix string) []string {
	var keys []string
	for i := 1; i <= 3; i++ {
		if k := os.Getenv(fmt.Sprintf("%s_%d", prefix, i)); valid(k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		if k := os.Getenv(prefix); valid(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Placeholder values from unfilled .env templates are ignored.
func valid(key string) bool {
	return key != "" && !strings.HasPrefix(key, "your_")
}
