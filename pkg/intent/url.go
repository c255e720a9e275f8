// Package intent contains the pure free-text extractors that turn the latest
// user message into structured values: a website URL, a staff selection, a
// goal list, or an approval decision. The heuristics here are deliberately
// simple keyword and regex scans; genuinely free-form steps fall back to them,
// while the hosting UI is expected to offer structured actions wherever it can.
package intent

import (
	"regexp"
	"strings"
)

// URLOutcome classifies what the URL extractor found in a message.
type URLOutcome int

const (
	// URLFound means a website URL was extracted.
	URLFound URLOutcome = iota
	// URLNone means the user stated they have no website.
	URLNone
	// URLUnclear means no URL was found and the user should be re-prompted.
	URLUnclear
)

var (
	schemeURLPattern = regexp.MustCompile(`https?://[^\s<>"']+`)
	wwwURLPattern    = regexp.MustCompile(`\bwww\.[^\s<>"']+`)
	bareURLPattern   = regexp.MustCompile(`\b[a-z0-9][a-z0-9-]*(?:\.[a-z0-9][a-z0-9-]*)*\.[a-z]{2,}(?:/[^\s<>"']*)?`)

	noWebsitePhrases = []string{"no website", "don't have", "dont have", "do not have"}
)

// ExtractURL scans a message for a website address. Matches without a scheme
// are prefixed with https://. A message declaring the user has no website maps
// to the no-website branch; anything else asks for a re-prompt.
func ExtractURL(message string) (string, URLOutcome) {
	lowered := strings.ToLower(strings.TrimSpace(message))

	if match := schemeURLPattern.FindString(lowered); match != "" {
		return strings.TrimRight(match, ".,;!?"), URLFound
	}

	if match := wwwURLPattern.FindString(lowered); match != "" {
		return "https://" + strings.TrimRight(match, ".,;!?"), URLFound
	}

	if match := bareURLPattern.FindString(lowered); match != "" {
		return "https://" + strings.TrimRight(match, ".,;!?"), URLFound
	}

	for _, phrase := range noWebsitePhrases {
		if strings.Contains(lowered, phrase) {
			return "", URLNone
		}
	}

	return "", URLUnclear
}
