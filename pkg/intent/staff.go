package intent

import (
	"strings"

	"github.com/relayone/onboarding/pkg/models"
)

var recommendedPhrases = []string{"recommended", "top picks", "default"}

// roleSynonyms maps common phrasings to catalog role keys. Scanned in addition
// to catalog name/key substring matches.
var roleSynonyms = map[string]string{
	"missed call":  "receptionist",
	"answer calls": "receptionist",
	"front desk":   "receptionist",
	"appointment":  "booking_agent",
	"calendar":     "booking_agent",
	"scheduling":   "booking_agent",
	"review":       "review_manager",
	"reputation":   "review_manager",
	"follow up":    "lead_nurturer",
	"follow-up":    "lead_nurturer",
	"nurture":      "lead_nurturer",
	"lead":         "lead_nurturer",
	"blog":         "content_writer",
	"copywriting":  "content_writer",
	"writing":      "content_writer",
	"social":       "social_manager",
	"instagram":    "social_manager",
	"facebook":     "social_manager",
	"campaign":     "campaign_strategist",
	"promotion":    "campaign_strategist",
	"marketing strategy": "campaign_strategist",
}

// ExtractStaffRoles turns a free-text message into a set of catalog role keys.
// A message asking for the recommended setup returns the catalog's flagged
// recommended subset exactly. Otherwise the catalog is scanned for name and
// key substring matches plus the synonym table. Results are deduplicated and
// returned in catalog order.
func ExtractStaffRoles(message string) []string {
	lowered := strings.ToLower(message)

	for _, phrase := range recommendedPhrases {
		if strings.Contains(lowered, phrase) {
			return models.RecommendedRoles()
		}
	}

	matched := make(map[string]bool)

	for _, role := range models.Catalog() {
		if strings.Contains(lowered, strings.ToLower(role.Name)) ||
			strings.Contains(lowered, strings.ReplaceAll(role.Key, "_", " ")) {
			matched[role.Key] = true
		}
	}

	for phrase, key := range roleSynonyms {
		if strings.Contains(lowered, phrase) {
			matched[key] = true
		}
	}

	if len(matched) == 0 {
		return nil
	}

	// Catalog order keeps the selection stable regardless of message wording.
	keys := make([]string, 0, len(matched))

	for _, role := range models.Catalog() {
		if matched[role.Key] {
			keys = append(keys, role.Key)
		}
	}

	return keys
}
