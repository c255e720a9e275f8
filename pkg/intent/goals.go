package intent

import (
	"regexp"
	"strings"
)

const (
	maxGoals          = 3
	minFragmentLength = 5
	maxFragmentLength = 100
	minFallbackLength = 10
)

// goalPattern maps a message regex to its canonical goal label. Patterns are
// scanned in order; every matching pattern contributes its label once.
type goalPattern struct {
	pattern *regexp.Regexp
	label   string
}

var goalPatterns = []goalPattern{
	{regexp.MustCompile(`(?i)\b(book|booking|appointment|schedul)`), "Book more appointments"},
	{regexp.MustCompile(`(?i)\breview`), "Collect more reviews"},
	{regexp.MustCompile(`(?i)\b(lead|convert|conversion)`), "Convert more leads"},
	{regexp.MustCompile(`(?i)\b(missed call|answer|respond faster|response time)`), "Respond to every inquiry"},
	{regexp.MustCompile(`(?i)\b(social|instagram|facebook|tiktok)`), "Grow social media presence"},
	{regexp.MustCompile(`(?i)\b(traffic|seo|search|visibilit)`), "Increase website traffic"},
	{regexp.MustCompile(`(?i)\b(repeat|retention|loyal|win back|winback)`), "Bring back past customers"},
}

var fragmentSplitter = regexp.MustCompile(`[,\n;]+|\d+[.)]\s*`)

// ExtractGoals matches a message against the canonical goal patterns, in
// order. When nothing matches and the message is long enough to carry intent,
// it falls back to splitting on commas, newlines and numbering, keeping
// fragments of reasonable length. At most three goals are returned.
func ExtractGoals(message string) []string {
	var goals []string

	for _, gp := range goalPatterns {
		if gp.pattern.MatchString(message) {
			goals = append(goals, gp.label)
			if len(goals) == maxGoals {
				return goals
			}
		}
	}

	if len(goals) > 0 {
		return goals
	}

	if len(strings.TrimSpace(message)) <= minFallbackLength {
		return nil
	}

	for _, fragment := range fragmentSplitter.Split(message, -1) {
		fragment = strings.TrimSpace(fragment)
		if len(fragment) < minFragmentLength || len(fragment) > maxFragmentLength {
			continue
		}

		goals = append(goals, capitalize(fragment))
		if len(goals) == maxGoals {
			break
		}
	}

	return goals
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	return strings.ToUpper(s[:1]) + s[1:]
}
