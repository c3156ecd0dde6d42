package hypothesis

import (
	"strconv"
	"strings"
)

// splitStatements extracts individual hypothesis statements from a bulk
// generation response. Blocks begin at lines starting with "HYPOTHESIS";
// continuation lines are joined with spaces. Blocks at or under minLength
// characters are dropped as bad parses.
func splitStatements(text string, minLength int) []string {
	var statements []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			statements = append(statements, strings.Join(current, " "))
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "HYPOTHESIS"):
			flush()
			if _, rest, ok := strings.Cut(trimmed, ":"); ok {
				current = []string{strings.TrimSpace(rest)}
			} else {
				current = []string{trimmed}
			}
		case len(current) > 0 && trimmed != "":
			current = append(current, trimmed)
		}
	}
	flush()

	kept := statements[:0]
	for _, s := range statements {
		if len(s) > minLength {
			kept = append(kept, s)
		}
	}
	return kept
}

// refinement is the structured analysis parsed from a refinement response.
type refinement struct {
	Statement        string
	Reasoning        string
	PredictedOutcome string
	TestableMetric   string
	Materials        []string
	Methods          []string
	Novelty          float64
	Feasibility      string
}

// parseRefinement reads "**Section**:" headers from the analysis response.
// Missing sections fall back to the original statement and neutral scores.
func parseRefinement(response, original string) refinement {
	sections := splitSections(response)

	r := refinement{
		Statement:        original,
		Reasoning:        sections["scientific_reasoning"],
		PredictedOutcome: sections["predicted_outcome"],
		TestableMetric:   sections["testable_metric"],
		Materials:        extractList(sections["materials_required"]),
		Methods:          extractList(sections["methods_required"]),
		Novelty:          extractScore(sections["novelty_assessment"], 0.5),
		Feasibility:      "Medium",
	}
	if s := strings.TrimSpace(sections["refined_hypothesis"]); s != "" {
		r.Statement = s
	}
	if f := strings.Fields(sections["feasibility"]); len(f) > 0 {
		r.Feasibility = f[0]
	}
	return r
}

// splitSections maps lowercase underscore section names to their joined
// body text. A header looks like "**Predicted Outcome**:", with optional
// trailing annotation such as "**Novelty Assessment** (0-10):".
func splitSections(response string) map[string]string {
	sections := make(map[string]string)
	var name string
	var content []string

	flush := func() {
		if name != "" {
			sections[name] = strings.TrimSpace(strings.Join(content, " "))
		}
	}

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "**") && strings.HasSuffix(trimmed, ":") {
			flush()
			header := strings.TrimSuffix(trimmed, ":")
			if i := strings.Index(header, "**"); i == 0 {
				header = header[2:]
			}
			if i := strings.Index(header, "**"); i >= 0 {
				header = header[:i]
			}
			name = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(header)), " ", "_")
			content = nil
		} else if name != "" {
			content = append(content, strings.TrimSpace(line))
		}
	}
	flush()
	return sections
}

// extractList pulls up to five items from bulleted or bare-line text.
func extractList(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "" || strings.HasPrefix(line, "["):
		case strings.HasPrefix(line, "-") || strings.HasPrefix(line, "•"):
			items = append(items, strings.TrimSpace(strings.TrimLeft(line, "-•")))
		default:
			items = append(items, line)
		}
		if len(items) == 5 {
			break
		}
	}
	return items
}

// extractScore finds the first numeric run in the text and normalizes a
// 0-10 score to 0-1.
func extractScore(text string, fallback float64) float64 {
	start := -1
	for i := 0; i <= len(text); i++ {
		if i < len(text) && (text[i] >= '0' && text[i] <= '9' || start >= 0 && text[i] == '.') {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if v, err := strconv.ParseFloat(strings.TrimSuffix(text[start:i], "."), 64); err == nil {
				if v/10 > 1 {
					return 1
				}
				return v / 10
			}
			start = -1
		}
	}
	return fallback
}
