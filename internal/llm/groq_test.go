package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/rcliao/discovery-agent/internal/config"
	"github.com/rcliao/discovery-agent/internal/resilience"
)

func newTestGroq(t *testing.T, handler http.HandlerFunc) *Groq {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	rot, err := resilience.NewRotator("groq", []string{"test-key"})
	if err != nil {
		t.Fatalf("NewRotator: %v", err)
	}

	cfg := config.Default()
	g := NewGroq(cfg.LLM, config.RetryConfig{MaxRetries: 0}, rot, zap.NewNop())
	g.endpoint = srv.URL
	return g
}

func TestGroqGenerate(t *testing.T) {
	var gotAuth string
	var gotReq groqRequest

	g := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(groqResponse{
			Choices: []struct {
				Message groqMessage `json:"message"`
			}{{Message: groqMessage{Role: "assistant", Content: "HYPOTHESIS 1: something"}}},
		})
	})

	out, err := g.Generate(context.Background(), "prompt text", 800, 0.7)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "HYPOTHESIS 1: something" {
		t.Errorf("unexpected output: %q", out)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header: %q", gotAuth)
	}
	if gotReq.MaxTokens != 800 || gotReq.Temperature != 0.7 {
		t.Errorf("request params: %+v", gotReq)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "prompt text" {
		t.Errorf("request messages: %+v", gotReq.Messages)
	}
}

func TestGroqGenerateServerError(t *testing.T) {
	g := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if _, err := g.Generate(context.Background(), "p", 100, 0.1); err == nil {
		t.Fatal("expected error")
	}
}

func TestGroqGenerateNoChoices(t *testing.T) {
	g := newTestGroq(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(groqResponse{})
	})

	if _, err := g.Generate(context.Background(), "p", 100, 0.1); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestGroqUnavailableWithoutRotator(t *testing.T) {
	cfg := config.Default()
	g := NewGroq(cfg.LLM, cfg.Retry, nil, zap.NewNop())

	if g.Available() {
		t.Error("expected unavailable without credentials")
	}
	if _, err := g.Generate(context.Background(), "p", 100, 0.1); err == nil {
		t.Error("expected error without credentials")
	}
}
