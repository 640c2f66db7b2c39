package analysis

import (
	"errors"
	"fmt"
)

// ConfidenceLevel is a coarse quality signal attached to every result
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// Valid reports whether c is one of the known levels
func (c ConfidenceLevel) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// Source identifies which backend produced a result
type Source string

const (
	SourceRemote    Source = "remote"
	SourceAnthropic Source = "anthropic"
	SourceLocal     Source = "local"

	// SourceFallback is reserved for results synthesized by BuildFallback
	SourceFallback Source = "fallback"
)

// SuggestionKind is the closed set of suggestion types
type SuggestionKind string

const (
	SuggestionObserve     SuggestionKind = "observe"
	SuggestionGuidance    SuggestionKind = "guidance"
	SuggestionEncourage   SuggestionKind = "encourage"
	SuggestionEnvironment SuggestionKind = "environment"
)

// Valid reports whether k is one of the known suggestion kinds
func (k SuggestionKind) Valid() bool {
	switch k {
	case SuggestionObserve, SuggestionGuidance, SuggestionEncourage, SuggestionEnvironment:
		return true
	}
	return false
}

// Behavior categories accepted by the request layer
const (
	CategoryEmotion   = "emotion"
	CategorySocial    = "social"
	CategoryLanguage  = "language"
	CategoryCognitive = "cognitive"
	CategoryMotor     = "motor"
	CategorySleep     = "sleep"
	CategoryEating    = "eating"
	CategoryHabit     = "habit"
	CategoryOther     = "other"
)

// Categories lists every known behavior category in display order
var Categories = []string{
	CategoryEmotion,
	CategorySocial,
	CategoryLanguage,
	CategoryCognitive,
	CategoryMotor,
	CategorySleep,
	CategoryEating,
	CategoryHabit,
	CategoryOther,
}

// IsKnownCategory reports whether category belongs to Categories
func IsKnownCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Request is a single observation handed to the analysis chain.
// Callers validate it before it reaches the orchestrator.
type Request struct {
	// ChildAgeMonths is the age of the child when the behavior was observed
	ChildAgeMonths int `json:"child_age_months"`

	// BehaviorText is the parent's description of what happened
	BehaviorText string `json:"behavior_text"`

	// Category is one of Categories
	Category string `json:"category"`

	// Context is optional free text about the situation
	Context string `json:"context,omitempty"`
}

// Suggestion is one actionable piece of parenting advice
type Suggestion struct {
	Kind    SuggestionKind `json:"type"`
	Content string         `json:"content"`
}

// Result is the interpretation returned by a backend or by BuildFallback
type Result struct {
	DevelopmentStage string          `json:"development_stage"`
	Interpretation   string          `json:"psychological_interpretation"`
	Suggestions      []Suggestion    `json:"suggestions"`
	Confidence       ConfidenceLevel `json:"confidence_level"`
	Source           Source          `json:"source"`
}

var (
	errMissingStage          = errors.New("development stage is empty")
	errMissingInterpretation = errors.New("interpretation is empty")
	errNoSuggestions         = errors.New("result has no suggestions")
	errMissingSource         = errors.New("source is empty")
)

// Validate checks that every field of the result is populated
func (r Result) Validate() error {
	if r.DevelopmentStage == "" {
		return errMissingStage
	}
	if r.Interpretation == "" {
		return errMissingInterpretation
	}
	if len(r.Suggestions) == 0 {
		return errNoSuggestions
	}
	for i, s := range r.Suggestions {
		if !s.Kind.Valid() {
			return fmt.Errorf("suggestion %d has unknown kind %q", i, s.Kind)
		}
		if s.Content == "" {
			return fmt.Errorf("suggestion %d has empty content", i)
		}
	}
	if !r.Confidence.Valid() {
		return fmt.Errorf("unknown confidence level %q", r.Confidence)
	}
	if r.Source == "" {
		return errMissingSource
	}
	return nil
}

// clone returns a copy whose suggestion slice is not shared with r
func (r Result) clone() Result {
	out := r
	out.Suggestions = append([]Suggestion(nil), r.Suggestions...)
	return out
}
