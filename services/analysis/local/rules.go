package local

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/parentnote/backend/services/analysis"
)

// AgeBracket maps a half-open month range [MinMonths, MaxMonths) to a stage.
// MaxMonths of 0 means the bracket has no upper bound.
type AgeBracket struct {
	MinMonths int    `yaml:"min_months"`
	MaxMonths int    `yaml:"max_months"`
	Stage     string `yaml:"stage"`
	Focus     string `yaml:"focus"`
}

func (b AgeBracket) contains(months int) bool {
	return months >= b.MinMonths && (b.MaxMonths == 0 || months < b.MaxMonths)
}

// SuggestionRule is a canned suggestion
type SuggestionRule struct {
	Kind    analysis.SuggestionKind `yaml:"type"`
	Content string                  `yaml:"content"`
}

// CategoryRule holds the text used for one behavior category.
// Keywords let free text select the rule when the category is "other" or unknown.
type CategoryRule struct {
	Category       string           `yaml:"category"`
	Keywords       []string         `yaml:"keywords"`
	Interpretation string           `yaml:"interpretation"`
	Suggestions    []SuggestionRule `yaml:"suggestions"`
}

// RuleSet is the data the local analyzer works from
type RuleSet struct {
	AgeBrackets           []AgeBracket     `yaml:"age_brackets"`
	Categories            []CategoryRule   `yaml:"categories"`
	DefaultInterpretation string           `yaml:"default_interpretation"`
	DefaultSuggestions    []SuggestionRule `yaml:"default_suggestions"`
	MaxSuggestions        int              `yaml:"max_suggestions"`
}

const defaultMaxSuggestions = 4

// LoadRuleSet reads a YAML rule file. Sections missing from the file are
// taken from DefaultRuleSet.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return ParseRuleSet(data)
}

// ParseRuleSet decodes a YAML rule document
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var rules RuleSet
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	rules.fillDefaults()
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule set: %w", err)
	}
	return &rules, nil
}

// fillDefaults takes every empty section from DefaultRuleSet
func (r *RuleSet) fillDefaults() {
	defaults := DefaultRuleSet()
	if len(r.AgeBrackets) == 0 {
		r.AgeBrackets = defaults.AgeBrackets
	}
	if len(r.Categories) == 0 {
		r.Categories = defaults.Categories
	}
	if r.DefaultInterpretation == "" {
		r.DefaultInterpretation = defaults.DefaultInterpretation
	}
	if len(r.DefaultSuggestions) == 0 {
		r.DefaultSuggestions = defaults.DefaultSuggestions
	}
}

// Validate checks that the rule set can always produce a complete result.
// It sorts AgeBrackets by MinMonths.
func (r *RuleSet) Validate() error {
	if len(r.AgeBrackets) == 0 {
		return errors.New("at least one age bracket is required")
	}
	sort.SliceStable(r.AgeBrackets, func(i, j int) bool {
		return r.AgeBrackets[i].MinMonths < r.AgeBrackets[j].MinMonths
	})
	for i, b := range r.AgeBrackets {
		if b.Stage == "" {
			return fmt.Errorf("age bracket %d has no stage", i)
		}
		if b.MinMonths < 0 {
			return fmt.Errorf("age bracket %q starts below zero", b.Stage)
		}
		if b.MaxMonths != 0 && b.MaxMonths <= b.MinMonths {
			return fmt.Errorf("age bracket %q has an empty range", b.Stage)
		}
		if i > 0 {
			prev := r.AgeBrackets[i-1]
			if prev.MaxMonths == 0 || prev.MaxMonths > b.MinMonths {
				return fmt.Errorf("age brackets %q and %q overlap", prev.Stage, b.Stage)
			}
		}
	}

	if r.DefaultInterpretation == "" {
		return errors.New("default interpretation is required")
	}
	if err := validateSuggestions("default", r.DefaultSuggestions); err != nil {
		return err
	}

	seen := make(map[string]bool, len(r.Categories))
	for _, c := range r.Categories {
		if c.Category == "" {
			return errors.New("category rule has no category")
		}
		if seen[c.Category] {
			return fmt.Errorf("category %q is defined twice", c.Category)
		}
		seen[c.Category] = true
		if c.Interpretation == "" {
			return fmt.Errorf("category %q has no interpretation", c.Category)
		}
		if err := validateSuggestions(c.Category, c.Suggestions); err != nil {
			return err
		}
	}

	if r.MaxSuggestions < 0 {
		return errors.New("max_suggestions must not be negative")
	}
	return nil
}

func validateSuggestions(owner string, suggestions []SuggestionRule) error {
	if len(suggestions) == 0 {
		return fmt.Errorf("%s rule has no suggestions", owner)
	}
	for i, s := range suggestions {
		if !s.Kind.Valid() {
			return fmt.Errorf("%s suggestion %d has unknown type %q", owner, i, s.Kind)
		}
		if strings.TrimSpace(s.Content) == "" {
			return fmt.Errorf("%s suggestion %d is empty", owner, i)
		}
	}
	return nil
}

// bracketFor returns the bracket covering months, if any
func (r *RuleSet) bracketFor(months int) (AgeBracket, bool) {
	for _, b := range r.AgeBrackets {
		if b.contains(months) {
			return b, true
		}
	}
	return AgeBracket{}, false
}

// ruleFor picks the category rule by exact category first, then by keyword
// match against the behavior text. exact reports which way it matched.
func (r *RuleSet) ruleFor(category, behaviorText string) (rule CategoryRule, exact bool, found bool) {
	for _, c := range r.Categories {
		if c.Category == category {
			return c, true, true
		}
	}

	text := strings.ToLower(behaviorText)
	for _, c := range r.Categories {
		for _, kw := range c.Keywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				return c, false, true
			}
		}
	}
	return CategoryRule{}, false, false
}

func (r *RuleSet) maxSuggestions() int {
	if r.MaxSuggestions == 0 {
		return defaultMaxSuggestions
	}
	return r.MaxSuggestions
}

// DefaultRuleSet returns the built-in rules
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		AgeBrackets: []AgeBracket{
			{MinMonths: 0, MaxMonths: 12, Stage: "Infancy (0-1 years)",
				Focus: "At this age the child learns mainly through the senses and close, responsive care."},
			{MinMonths: 12, MaxMonths: 36, Stage: "Toddlerhood (1-3 years)",
				Focus: "Toddlers are discovering autonomy and test limits as they learn what they can control."},
			{MinMonths: 36, MaxMonths: 72, Stage: "Preschool (3-6 years)",
				Focus: "Preschoolers build imagination, language and early self-control through play."},
			{MinMonths: 72, MaxMonths: 144, Stage: "School age (6-12 years)",
				Focus: "School-age children develop competence, rules-based thinking and friendships."},
			{MinMonths: 144, Stage: "Adolescence (12+ years)",
				Focus: "Adolescents are forming an identity and need growing independence with steady support."},
		},
		Categories: []CategoryRule{
			{
				Category: analysis.CategoryEmotion,
				Keywords: []string{"cry", "cried", "tantrum", "angry", "scared", "upset", "fear"},
				Interpretation: "Strong feelings are a normal part of development. The child is learning to " +
					"notice emotions and is still building the skills to manage them.",
				Suggestions: []SuggestionRule{
					{Kind: analysis.SuggestionGuidance, Content: "Name the feeling out loud so the child learns words for it."},
					{Kind: analysis.SuggestionEnvironment, Content: "Keep routines predictable, especially around transitions."},
					{Kind: analysis.SuggestionObserve, Content: "Note what happened just before the reaction to spot triggers."},
				},
			},
			{
				Category: analysis.CategorySocial,
				Keywords: []string{"share", "shared", "friend", "sibling", "play with", "hit", "bite"},
				Interpretation: "Interactions with others show how the child is learning to balance their own " +
					"wishes with other people's, which is the basis of empathy and cooperation.",
				Suggestions: []SuggestionRule{
					{Kind: analysis.SuggestionEncourage, Content: "Praise specific moments of kindness or turn-taking."},
					{Kind: analysis.SuggestionGuidance, Content: "Model simple phrases for asking, sharing and saying no."},
					{Kind: analysis.SuggestionEnvironment, Content: "Arrange short, relaxed playtimes with one or two other children."},
				},
			},
			{
				Category: analysis.CategoryLanguage,
				Keywords: []string{"word", "talk", "speak", "babble", "say", "sentence"},
				Interpretation: "Language grows from everyday conversation. What the child says or attempts to say " +
					"reflects how they are organizing sounds, words and meaning.",
				Suggestions: []SuggestionRule{
					{Kind: analysis.SuggestionGuidance, Content: "Repeat the child's words back and add one new word."},
					{Kind: analysis.SuggestionEnvironment, Content: "Read together daily and talk about the pictures."},
					{Kind: analysis.SuggestionEncourage, Content: "Respond warmly to every attempt to communicate."},
				},
			},
			{
				Category: analysis.CategoryCognitive,
				Keywords: []string{"puzzle", "count", "why", "question", "figure out", "remember"},
				Interpretation: "The child is actively testing how the world works. Curiosity and repetition " +
					"are how new thinking skills are built.",
				Suggestions: []SuggestionRule{
					{Kind: analysis.SuggestionEncourage, Content: "Ask open questions rather than giving the answer right away."},
					{Kind: analysis.SuggestionEnvironment, Content: "Offer simple materials the child can sort, stack and explore."},
					{Kind: analysis.SuggestionObserve, Content: "Notice which activities hold the child's attention longest."},
				},
			},
			{
				Category:       analysis.CategoryMotor,
				Keywords:       []string{"climb", "run", "walk", "crawl", "draw", "grab", "jump"},
				Interpretation: "Movement is how the child builds strength, coordination and confidence in their body.",
				Suggestions: []SuggestionRule{
					{Kind: analysis.SuggestionEnvironment, Content: "Make room for safe, active play every day."},
					{Kind: analysis.SuggestionEncourage, Content: "Let the child try on their own before helping."},
					{Kind: analysis.SuggestionObserve, Content: "Track new skills over a few weeks rather than day to day."},
				},
			},
			{
				Category: analysis.CategorySleep,
				Keywords: []string{"sleep", "nap", "bedtime", "night", "wake", "nightmare"},
				Interpretation: "Sleep patterns shift as the child grows and are sensitive to changes in routine, " +
					"activity and emotions during the day.",
				Suggestions: []SuggestionRule{
					{Kind: analysis.SuggestionEnvironment, Content: "Keep a calm, consistent bedtime routine."},
					{Kind: analysis.SuggestionObserve, Content: "Keep a short sleep diary to see patterns."},
					{Kind: analysis.SuggestionGuidance, Content: "Limit screens and lively play in the hour before bed."},
				},
			},
			{
				Category: analysis.CategoryEating,
				Keywords: []string{"eat", "food", "meal", "picky", "refuse", "throw food"},
				Interpretation: "Eating is also about control and exploration. Changes in appetite and " +
					"preferences are common and usually temporary.",
				Suggestions: []SuggestionRule{
					{Kind: analysis.SuggestionGuidance, Content: "Offer choices within healthy options instead of forcing a food."},
					{Kind: analysis.SuggestionEnvironment, Content: "Eat together at regular times without distractions."},
					{Kind: analysis.SuggestionObserve, Content: "Watch overall intake over a week rather than one meal."},
				},
			},
			{
				Category: analysis.CategoryHabit,
				Keywords: []string{"thumb", "nail", "pacifier", "potty", "toilet", "habit"},
				Interpretation: "Habits often help a child soothe themselves or feel in control. They usually " +
					"fade as the child finds other ways to cope.",
				Suggestions: []SuggestionRule{
					{Kind: analysis.SuggestionObserve, Content: "Notice when the habit appears, such as when tired or anxious."},
					{Kind: analysis.SuggestionGuidance, Content: "Offer a replacement action instead of scolding."},
					{Kind: analysis.SuggestionEncourage, Content: "Celebrate small steps of progress."},
				},
			},
		},
		DefaultInterpretation: "This behavior is part of the child's ongoing development. Looking at it " +
			"alongside the child's usual patterns will show whether it is a passing phase.",
		DefaultSuggestions: []SuggestionRule{
			{Kind: analysis.SuggestionObserve, Content: "Observe when and where the behavior happens over the next week."},
			{Kind: analysis.SuggestionEnvironment, Content: "Keep daily routines steady and predictable."},
			{Kind: analysis.SuggestionEncourage, Content: "Respond with patience and acknowledge positive moments."},
		},
		MaxSuggestions: defaultMaxSuggestions,
	}
}
