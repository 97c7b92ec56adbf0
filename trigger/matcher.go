// Package trigger decides whether a chat message should be routed to the AI.
package trigger

import "strings"

// Matches reports whether the message starts with any configured prefix
// (trimmed, case-sensitive) or contains any configured keyword as a
// case-insensitive substring. Stateless and safe for concurrent use.
func Matches(message string, prefixes, keywords []string) bool {
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p != "" && strings.HasPrefix(message, p) {
			return true
		}
	}
	if len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(message)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// StripPrefix removes the first matching trigger prefix from the message so the
// AI sees the question, not the activation token.
func StripPrefix(message string, prefixes []string) string {
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p != "" && strings.HasPrefix(message, p) {
			return strings.TrimSpace(strings.TrimPrefix(message, p))
		}
	}
	return message
}
