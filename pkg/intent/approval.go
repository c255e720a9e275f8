package intent

import (
	"regexp"
	"strings"
)

// Decision is the outcome of scanning a message at the approval gate.
type Decision int

const (
	// DecisionPending means the message carried no clear decision.
	DecisionPending Decision = iota
	// DecisionApproved means the user approved the plan.
	DecisionApproved
	// DecisionRejected means the user asked for changes; the raw message is
	// kept as rejection notes for routing.
	DecisionRejected
)

// Short keywords like "no" and "yes" need word boundaries so "now" and "eyes"
// do not register as decisions.
var (
	approvePattern = regexp.MustCompile(`(?i)\b(approve[d]?|yes|proceed|deploy|go ahead|looks good|lgtm)\b`)
	rejectPattern  = regexp.MustCompile(`(?i)\b(change[sd]?|modify|different|no|reject(ed)?|edit[s]?)\b`)
)

// ExtractApproval scans a message for an approve/reject decision. Rejection
// keywords win when a message contains both, so "no, deploy something else"
// reads as a rejection rather than a go-ahead.
func ExtractApproval(message string) (Decision, string) {
	if rejectPattern.MatchString(message) {
		return DecisionRejected, strings.TrimSpace(message)
	}

	if approvePattern.MatchString(message) {
		return DecisionApproved, ""
	}

	return DecisionPending, ""
}

var startOverPhrases = []string{"start over", "start again", "restart", "begin again"}

// IsStartOver reports whether the message asks to restart onboarding from the
// beginning.
func IsStartOver(message string) bool {
	lowered := strings.ToLower(message)

	for _, phrase := range startOverPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}

	return false
}
