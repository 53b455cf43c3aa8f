package service

import (
	"regexp"
	"strings"

	"tripchat/internal/constants"
)

// nameRule is one entry in the ordered extraction rule set. Rules are tried
// top to bottom and the first match wins; a promptedOnly rule fires only when
// the preceding message in the conversation asked for the customer's name.
type nameRule struct {
	tag          string
	pattern      *regexp.Regexp
	promptedOnly bool
}

var nameRules = []nameRule{
	{tag: "my-name-is", pattern: regexp.MustCompile(`(?i)\bmy name is\s+(.+)`)},
	{tag: "i-am", pattern: regexp.MustCompile(`(?i)\bi\s+am\s+(.+)`)},
	{tag: "im", pattern: regexp.MustCompile(`(?i)\bi'm\s+(.+)`)},
	{tag: "call-me", pattern: regexp.MustCompile(`(?i)\bcall me\s+(.+)`)},
	{tag: "this-is", pattern: regexp.MustCompile(`(?i)\bthis is\s+(.+)`)},
	// When the customer was just asked for their name, a short reply is
	// treated as the name itself.
	{tag: "bare-reply", promptedOnly: true},
}

// validNamePattern accepts letters and single spaces, starting uppercase.
var validNamePattern = regexp.MustCompile(`^[A-Z][A-Za-z]*(?: [A-Za-z]+)*$`)

// guestNamePattern matches auto-generated placeholder customer names such as
// "Guest-1a2b" or "Visitor 12".
var guestNamePattern = regexp.MustCompile(`(?i)^(guest|visitor|anonymous)\b`)

// IsGenericName reports whether name is empty or a guest placeholder still
// awaiting real-name capture.
func IsGenericName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed == "" || guestNamePattern.MatchString(trimmed)
}

// ExtractName applies the ordered rule set to a customer message and returns
// the captured name, if any candidate passes the acceptance bounds.
func ExtractName(content string, prompted bool) (string, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", false
	}

	for _, rule := range nameRules {
		if rule.promptedOnly && !prompted {
			continue
		}

		var candidate string
		if rule.pattern != nil {
			m := rule.pattern.FindStringSubmatch(content)
			if m == nil {
				continue
			}
			candidate = m[1]
		} else {
			candidate = content
		}

		if name, ok := acceptName(candidate); ok {
			return name, true
		}
	}
	return "", false
}

// acceptName normalizes a candidate and checks the acceptance bounds:
// 2-30 characters, letters and spaces only, uppercase first letter, at most
// 4 words.
func acceptName(candidate string) (string, bool) {
	name := strings.TrimSpace(candidate)
	name = strings.TrimRight(name, ".!?,;:")
	name = strings.TrimSpace(name)

	if len(name) < constants.MinCustomerNameLength || len(name) > constants.MaxCustomerNameLength {
		return "", false
	}
	if len(strings.Fields(name)) > constants.MaxCustomerNameWords {
		return "", false
	}
	if !validNamePattern.MatchString(name) {
		return "", false
	}
	return name, true
}

// isNamePrompt reports whether a message was asking for the customer's name.
func isNamePrompt(content string) bool {
	return strings.Contains(strings.ToLower(content), "name")
}
