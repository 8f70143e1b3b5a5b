package transform

import (
	"regexp"
	"strings"
)

type locationHint struct {
	pattern   *regexp.Regexp
	canonical string
}

// locationHints map the abbreviations volunteers typed into event names to site names
var locationHints = []locationHint{
	{regexp.MustCompile(`(?i)\b(?:WGTN|WELLINGTON)\b`), "Wellington"},
	{regexp.MustCompile(`(?i)\b(?:GI|GLEN\s+INNES)\b`), "Glen Innes"},
	{regexp.MustCompile(`(?i)\b(?:ONE|ONEHUNGA)\b`), "Onehunga"},
	{regexp.MustCompile(`(?i)\b(?:AKL|AUCKLAND)\b`), "Auckland"},
	{regexp.MustCompile(`(?i)\b(?:CHCH|CHRISTCHURCH)\b`), "Christchurch"},
}

// ResolveLocation returns the canonical site named in text, or "" when none is recognised
func ResolveLocation(text string) string {
	for _, hint := range locationHints {
		if hint.pattern.MatchString(text) {
			return hint.canonical
		}
	}
	return ""
}

// eventLocation prefers the location field, then hints in the event name
func eventLocation(field, name string) string {
	field = strings.TrimSpace(field)
	if field != "" {
		if canonical := ResolveLocation(field); canonical != "" {
			return canonical
		}
		return field
	}
	return ResolveLocation(name)
}
