// Package privacy removes personal identifiers from observation text before
// it is sent to a remote analysis service.
package privacy

import (
	"regexp"
	"sort"
	"strings"
)

// PIIType represents different types of PII that can be detected
type PIIType string

const (
	PIITypeEmail      PIIType = "email"
	PIITypePhone      PIIType = "phone"
	PIITypeNationalID PIIType = "national_id"
	PIITypeCreditCard PIIType = "credit_card"
	PIITypeIPAddress  PIIType = "ip_address"
)

// Detection represents a detected PII instance
type Detection struct {
	Type     PIIType
	Value    string
	StartPos int
	EndPos   int
}

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// Order matters: the first pattern to claim a span wins
	nationalIDPattern = regexp.MustCompile(`\b[1-9][0-9]{16}[0-9Xx]\b`)

	creditCardPattern = regexp.MustCompile(`\b[0-9]{13,19}\b`)

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b1[3-9][0-9]{9}\b`), // CN mobile
		regexp.MustCompile(`(?:\+[0-9]{1,3}[-.\s]?)?\(?[0-9]{3}\)?[-.\s][0-9]{3,4}[-.\s][0-9]{4}\b`),
	}

	ipPattern = regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`)
)

// Detect returns every non-overlapping PII span in text, ordered by position
func Detect(text string) []Detection {
	var found []Detection
	add := func(t PIIType, loc []int) {
		found = append(found, Detection{Type: t, Value: text[loc[0]:loc[1]], StartPos: loc[0], EndPos: loc[1]})
	}

	for _, loc := range emailPattern.FindAllStringIndex(text, -1) {
		add(PIITypeEmail, loc)
	}
	for _, loc := range nationalIDPattern.FindAllStringIndex(text, -1) {
		add(PIITypeNationalID, loc)
	}
	for _, loc := range creditCardPattern.FindAllStringIndex(text, -1) {
		if luhnCheck(text[loc[0]:loc[1]]) {
			add(PIITypeCreditCard, loc)
		}
	}
	for _, pattern := range phonePatterns {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			add(PIITypePhone, loc)
		}
	}
	for _, loc := range ipPattern.FindAllStringIndex(text, -1) {
		add(PIITypeIPAddress, loc)
	}

	return dropOverlaps(found)
}

// Contains reports whether text has any detectable PII
func Contains(text string) bool {
	return len(Detect(text)) > 0
}

// Redact replaces every detected PII span with a typed placeholder
func Redact(text string) string {
	detections := Detect(text)
	if len(detections) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, d := range detections {
		b.WriteString(text[last:d.StartPos])
		b.WriteString(placeholder(d.Type))
		last = d.EndPos
	}
	b.WriteString(text[last:])
	return b.String()
}

// dropOverlaps keeps the earliest-registered detection for any overlapping span
func dropOverlaps(found []Detection) []Detection {
	kept := make([]Detection, 0, len(found))
	for _, d := range found {
		overlaps := false
		for _, k := range kept {
			if d.StartPos < k.EndPos && k.StartPos < d.EndPos {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, d)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].StartPos < kept[j].StartPos })
	return kept
}

func placeholder(t PIIType) string {
	switch t {
	case PIITypeEmail:
		return "[EMAIL_REDACTED]"
	case PIITypePhone:
		return "[PHONE_REDACTED]"
	case PIITypeNationalID:
		return "[ID_REDACTED]"
	case PIITypeCreditCard:
		return "[CC_REDACTED]"
	case PIITypeIPAddress:
		return "[IP_REDACTED]"
	default:
		return "[REDACTED]"
	}
}

// luhnCheck validates a card number using the Luhn algorithm
func luhnCheck(number string) bool {
	if len(number) < 13 || len(number) > 19 {
		return false
	}

	sum := 0
	isSecond := false
	for i := len(number) - 1; i >= 0; i-- {
		digit := int(number[i] - '0')
		if isSecond {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		isSecond = !isSecond
	}
	return sum%10 == 0
}
