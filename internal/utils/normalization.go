package utils

import "strings"

// StripFences removes a surrounding markdown code fence from LLM output.
// Models routinely wrap JSON replies in ```json ... ``` despite being told
// not to.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// drop an optional language tag on the opening fence
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func NormalizeRole(role string) string {
	return strings.TrimSpace(role)
}

func NormalizeLevel(level string) string {
	return strings.ToLower(strings.TrimSpace(level))
}
