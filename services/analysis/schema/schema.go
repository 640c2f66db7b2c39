// Package schema defines the JSON document remote analysis services must
// return, the instruction that asks for it, and its mapping to analysis.Result.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/parentnote/backend/internal/privacy"
	"github.com/parentnote/backend/services/analysis"
)

// SystemPrompt pins the response format for every remote backend
const SystemPrompt = `You are a child development psychologist helping parents understand everyday behavior.
Reply with a single JSON object and nothing else, using exactly this shape:
{
  "development_stage": "short label for the child's developmental stage",
  "interpretation": "2-4 sentences explaining the psychology behind the behavior",
  "suggestions": [
    {"type": "observe|guidance|encourage|environment", "content": "one concrete action for the parent"}
  ],
  "confidence": "high|medium|low"
}
Give between 2 and 5 suggestions, most important first.`

// Interpretation is the document a remote service returns
type Interpretation struct {
	DevelopmentStage string           `json:"development_stage"`
	Interpretation   string           `json:"interpretation"`
	Suggestions      []SuggestionItem `json:"suggestions"`
	Confidence       string           `json:"confidence"`
}

// SuggestionItem is one suggestion in the remote document
type SuggestionItem struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

var (
	// ErrEmptyContent is returned when the service returned no text
	ErrEmptyContent = errors.New("response content is empty")

	// ErrIncomplete is returned when required fields are missing
	ErrIncomplete = errors.New("response is missing required fields")
)

// BuildUserPrompt renders the observation for a remote service.
// Behavior and context text lose chat role markers and are PII-redacted.
func BuildUserPrompt(req analysis.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Child age: %d months\n", req.ChildAgeMonths)
	fmt.Fprintf(&b, "Behavior category: %s\n", req.Category)
	fmt.Fprintf(&b, "Observed behavior: %s\n", privacy.Sanitize(req.BehaviorText))
	if req.Context != "" {
		fmt.Fprintf(&b, "Context: %s\n", privacy.Sanitize(req.Context))
	}
	b.WriteString("\nExplain what this behavior means for the child's development and how the parent can respond.")
	return b.String()
}

// Decode parses a service reply into a complete result tagged with source.
// Markdown code fences around the JSON are tolerated.
func Decode(content string, source analysis.Source) (analysis.Result, error) {
	content = stripFences(content)
	if content == "" {
		return analysis.Result{}, ErrEmptyContent
	}

	var doc Interpretation
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return analysis.Result{}, fmt.Errorf("invalid interpretation document: %w", err)
	}

	result := analysis.Result{
		DevelopmentStage: strings.TrimSpace(doc.DevelopmentStage),
		Interpretation:   strings.TrimSpace(doc.Interpretation),
		Confidence:       parseConfidence(doc.Confidence),
		Source:           source,
	}
	for _, s := range doc.Suggestions {
		text := strings.TrimSpace(s.Content)
		if text == "" {
			continue
		}
		result.Suggestions = append(result.Suggestions, analysis.Suggestion{
			Kind:    parseKind(s.Type),
			Content: text,
		})
	}

	if err := result.Validate(); err != nil {
		return analysis.Result{}, fmt.Errorf("%w: %v", ErrIncomplete, err)
	}
	return result, nil
}

// stripFences removes a surrounding ```json ... ``` block if present
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(dropLanguageTag(content))
}

// dropLanguageTag removes an info string such as "json" that directly follows
// the opening fence, on its own line or on the same line as the document.
func dropLanguageTag(content string) string {
	end := strings.IndexFunc(content, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_')
	})
	if end == 0 {
		return content
	}
	if end < 0 {
		// nothing but a tag
		return ""
	}
	switch content[end] {
	case ' ', '\t', '\n', '\r':
		return content[end:]
	}
	return content
}

func parseConfidence(s string) analysis.ConfidenceLevel {
	c := analysis.ConfidenceLevel(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return analysis.ConfidenceMedium
	}
	return c
}

func parseKind(s string) analysis.SuggestionKind {
	k := analysis.SuggestionKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return analysis.SuggestionGuidance
	}
	return k
}
