package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"pymentor/internal/requirement"
)

// RenderMode selects how the checklist is embedded in the prompt.
type RenderMode string

const (
	// RenderFlat lists requirements as "- id: title" lines.
	RenderFlat RenderMode = "flat"
	// RenderStructured embeds requirements as a JSON array.
	RenderStructured RenderMode = "structured"
)

func ParseRenderMode(s string) (RenderMode, error) {
	switch RenderMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RenderFlat:
		return RenderFlat, nil
	case RenderStructured:
		return RenderStructured, nil
	}
	return "", fmt.Errorf("analysis: unknown render mode %q", s)
}

const (
	purpose    = "Analyze this Python code for a To-Do List console project."
	background = "The project requires: Adding, Listing, Completing, and Deleting tasks " +
		"using a list of dictionaries. The student is a beginner; the code is " +
		"never executed, judge it by reading."
	rules = "- Report syntax errors and logic bugs in `errors`.\n" +
		"- Put improvements and missing requirements in `suggestions`.\n" +
		"- List the Python concepts the code uses in `conceptsUsed`.\n" +
		"- Put in `completedRequirementIds` only ids from REQUIREMENTS that the code fully satisfies.\n" +
		"- Every field is an array of strings; use an empty array when there is nothing to report."
)

type structuredRequirement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
}

// BuildPrompt renders the analysis request text.
func BuildPrompt(code string, reqs []requirement.Item, mode RenderMode) (string, error) {
	listing, err := renderRequirements(reqs, mode)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	writeSection(&buf, "PURPOSE", purpose)
	writeSection(&buf, "BACKGROUND", background)
	writeSection(&buf, "REQUIREMENTS", listing)
	writeSection(&buf, "CODE", "```python\n"+code+"\n```")
	writeSection(&buf, "RULES", rules)
	writeSection(&buf, "LANGUAGE", "Write every message in French.")
	return strings.TrimSpace(buf.String()) + "\n", nil
}

func renderRequirements(reqs []requirement.Item, mode RenderMode) (string, error) {
	switch mode {
	case RenderStructured:
		out := make([]structuredRequirement, 0, len(reqs))
		for _, r := range reqs {
			out = append(out, structuredRequirement{
				ID:          r.ID,
				Title:       r.Title,
				Description: r.Description,
				Category:    string(r.Category),
			})
		}
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return "", fmt.Errorf("analysis: encode requirements: %w", err)
		}
		return string(b), nil
	case RenderFlat, "":
		return requirement.Listing(reqs), nil
	}
	return "", fmt.Errorf("analysis: unknown render mode %q", mode)
}

func writeSection(buf *bytes.Buffer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(buf, "[%s]\n%s\n\n", title, body)
}
