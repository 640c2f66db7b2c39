package local

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parentnote/backend/services/analysis"
)

func TestDefaultRuleSet_IsValid(t *testing.T) {
	rules := DefaultRuleSet()
	require.NoError(t, rules.Validate())

	for _, category := range analysis.Categories {
		if category == analysis.CategoryOther {
			continue
		}
		_, exact, found := rules.ruleFor(category, "")
		assert.True(t, found && exact, "no rule for category %q", category)
	}
}

func TestLoadRuleSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
age_brackets:
  - min_months: 24
    max_months: 0
    stage: "Big kid"
  - min_months: 0
    max_months: 24
    stage: "Little one"
    focus: "Everything is new."
categories:
  - category: social
    keywords: [share]
    interpretation: "Custom social text."
    suggestions:
      - type: encourage
        content: "Say thank you together."
max_suggestions: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	rules, err := LoadRuleSet(path)
	require.NoError(t, err)

	require.Len(t, rules.AgeBrackets, 2)
	assert.Equal(t, "Little one", rules.AgeBrackets[0].Stage, "brackets are sorted")
	assert.Len(t, rules.Categories, 1)
	assert.Equal(t, DefaultRuleSet().DefaultInterpretation, rules.DefaultInterpretation)
	assert.NotEmpty(t, rules.DefaultSuggestions)

	b, ok := rules.bracketFor(10)
	require.True(t, ok)
	assert.Equal(t, "Little one", b.Stage)
	b, ok = rules.bracketFor(500)
	require.True(t, ok)
	assert.Equal(t, "Big kid", b.Stage)
}

func TestLoadRuleSet_Errors(t *testing.T) {
	_, err := LoadRuleSet(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading rules file")

	_, err = ParseRuleSet([]byte("age_brackets: [::"))
	assert.ErrorContains(t, err, "parsing YAML")
}

func TestRuleSet_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RuleSet)
		wantErr string
	}{
		{
			name:    "no brackets",
			mutate:  func(r *RuleSet) { r.AgeBrackets = nil },
			wantErr: "at least one age bracket",
		},
		{
			name: "overlapping brackets",
			mutate: func(r *RuleSet) {
				r.AgeBrackets = []AgeBracket{{MinMonths: 0, MaxMonths: 24, Stage: "a"}, {MinMonths: 12, MaxMonths: 36, Stage: "b"}}
			},
			wantErr: "overlap",
		},
		{
			name: "unbounded bracket before another",
			mutate: func(r *RuleSet) {
				r.AgeBrackets = []AgeBracket{{MinMonths: 0, Stage: "a"}, {MinMonths: 12, Stage: "b"}}
			},
			wantErr: "overlap",
		},
		{
			name:    "empty range",
			mutate:  func(r *RuleSet) { r.AgeBrackets = []AgeBracket{{MinMonths: 10, MaxMonths: 10, Stage: "a"}} },
			wantErr: "empty range",
		},
		{
			name:    "bad suggestion kind",
			mutate:  func(r *RuleSet) { r.Categories[0].Suggestions[0].Kind = "lecture" },
			wantErr: "unknown type",
		},
		{
			name:    "duplicate category",
			mutate:  func(r *RuleSet) { r.Categories = append(r.Categories, r.Categories[0]) },
			wantErr: "defined twice",
		},
		{
			name:    "no default suggestions",
			mutate:  func(r *RuleSet) { r.DefaultSuggestions = nil },
			wantErr: "default rule has no suggestions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := DefaultRuleSet()
			tt.mutate(rules)
			assert.ErrorContains(t, rules.Validate(), tt.wantErr)
		})
	}
}
