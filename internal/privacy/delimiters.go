package privacy

import "regexp"

// Chat role markers that would let observation text pose as a new message
var delimiterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\[/?(SYSTEM|USER|ASSISTANT)\]`),
	regexp.MustCompile(`<\|(system|user|assistant|end|im_start|im_end)\|>`),
	regexp.MustCompile(`(?im)^\s*###\s*(SYSTEM|USER|ASSISTANT|INSTRUCTION)S?\b`),
	regexp.MustCompile(`(?i)</?(system|assistant)>`),
}

// HasDelimiters reports whether text carries a chat role marker
func HasDelimiters(text string) bool {
	for _, pattern := range delimiterPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// StripDelimiters removes chat role markers so parent-written text stays
// inside the user turn of a remote prompt. Other text is left untouched.
func StripDelimiters(text string) string {
	for _, pattern := range delimiterPatterns {
		text = pattern.ReplaceAllString(text, "")
	}
	return text
}

// Sanitize strips role markers and then redacts PII
func Sanitize(text string) string {
	return Redact(StripDelimiters(text))
}
