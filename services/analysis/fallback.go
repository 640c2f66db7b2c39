package analysis

import "fmt"

// StageLabel derives a plain age label from months without any rule table
func StageLabel(months int) string {
	if months < 0 {
		months = 0
	}
	switch {
	case months == 1:
		return "1 month old"
	case months < 24:
		return fmt.Sprintf("%d months old", months)
	default:
		return fmt.Sprintf("%d years old", months/12)
	}
}

// BuildFallback synthesizes the last-resort result for req.
// It is a pure function of the request and cannot fail.
func BuildFallback(req Request) Result {
	return Result{
		DevelopmentStage: StageLabel(req.ChildAgeMonths),
		Interpretation: "This behavior has been recorded. Every child develops at their own pace, " +
			"and a single observation is best read together with how the child usually reacts " +
			"in similar situations.",
		Suggestions: []Suggestion{
			{Kind: SuggestionEnvironment, Content: "Provide a safe, supportive environment where the child feels free to explore."},
			{Kind: SuggestionObserve, Content: "Observe the child's reactions and interests over the next few days."},
			{Kind: SuggestionGuidance, Content: "Offer encouragement and guidance at the right moment rather than stepping in too early."},
		},
		Confidence: ConfidenceLow,
		Source:     SourceFallback,
	}
}
