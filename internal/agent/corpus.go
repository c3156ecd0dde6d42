package agent

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rcliao/discovery-agent/internal/model"
)

// LoadCorpus reads an analyzed-document corpus from a JSON file. The file
// holds either a bare array of documents or an object with a "documents"
// key. Scores are clamped to their declared ranges on load.
func LoadCorpus(path string) ([]model.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	var docs []model.Document
	if err := json.Unmarshal(b, &docs); err != nil {
		var wrapped struct {
			Documents []model.Document `json:"documents"`
		}
		if err2 := json.Unmarshal(b, &wrapped); err2 != nil {
			return nil, fmt.Errorf("parse corpus: %w", err)
		}
		docs = wrapped.Documents
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("corpus %s contains no documents", path)
	}

	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = fmt.Sprintf("doc_%d", i+1)
		}
		docs[i].Normalize()
	}
	return docs, nil
}
