// Package local implements the rule-based analysis backend. It has no
// external dependencies at request time, so it is always available and
// never fails.
package local

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/parentnote/backend/services/analysis"
)

const (
	// Name is the backend identifier
	Name = "local"

	// DefaultPriority keeps the local heuristic last among real backends
	DefaultPriority = 0
)

// Analyzer derives an interpretation from a RuleSet
type Analyzer struct {
	rules    *RuleSet
	priority int
	logger   *zap.Logger
}

// NewAnalyzer creates a local analyzer. A nil rule set selects DefaultRuleSet.
// Empty sections of rules are filled from DefaultRuleSet, and a rule set that
// still fails Validate is replaced by DefaultRuleSet. The caller's value is
// not modified.
func NewAnalyzer(rules *RuleSet, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		rules:    usableRules(rules, logger),
		priority: DefaultPriority,
		logger:   logger,
	}
}

func usableRules(rules *RuleSet, logger *zap.Logger) *RuleSet {
	if rules == nil {
		return DefaultRuleSet()
	}

	merged := *rules
	merged.AgeBrackets = append([]AgeBracket(nil), rules.AgeBrackets...)
	merged.fillDefaults()
	if err := merged.Validate(); err != nil {
		logger.Warn("invalid local analysis rules, using built-in rules", zap.Error(err))
		return DefaultRuleSet()
	}
	return &merged
}

// Name returns the backend name
func (a *Analyzer) Name() string {
	return Name
}

// Priority returns the backend priority
func (a *Analyzer) Priority() int {
	return a.priority
}

// IsAvailable always returns true
func (a *Analyzer) IsAvailable(ctx context.Context) bool {
	return true
}

// TryAnalyze always succeeds. Confidence is medium when the request's
// category has its own rule and low otherwise; it is never high.
func (a *Analyzer) TryAnalyze(ctx context.Context, req analysis.Request) analysis.Outcome {
	stage := analysis.StageLabel(req.ChildAgeMonths)
	focus := ""
	if bracket, ok := a.rules.bracketFor(req.ChildAgeMonths); ok {
		stage = bracket.Stage
		focus = bracket.Focus
	}

	interpretation := a.rules.DefaultInterpretation
	suggestions := a.rules.DefaultSuggestions
	confidence := analysis.ConfidenceLow

	rule, exact, found := a.rules.ruleFor(req.Category, req.BehaviorText)
	if found {
		interpretation = rule.Interpretation
		suggestions = rule.Suggestions
		if exact {
			confidence = analysis.ConfidenceMedium
		}
	}

	if focus != "" {
		interpretation = strings.TrimSpace(interpretation) + " " + focus
	}

	limit := a.rules.maxSuggestions()
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	out := make([]analysis.Suggestion, len(suggestions))
	for i, s := range suggestions {
		out[i] = analysis.Suggestion{Kind: s.Kind, Content: s.Content}
	}

	a.logger.Debug("local analysis produced",
		zap.String("stage", stage),
		zap.String("category", req.Category),
		zap.Bool("rule_matched", found),
		zap.Bool("exact_category", exact))

	return analysis.Succeeded(analysis.Result{
		DevelopmentStage: stage,
		Interpretation:   interpretation,
		Suggestions:      out,
		Confidence:       confidence,
		Source:           analysis.SourceLocal,
	})
}
