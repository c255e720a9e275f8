package models

// StaffRole is one entry of the fixed AI-staff catalog a tenant can hire from.
type StaffRole struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Recommended bool   `json:"recommended"`
}

// staffCatalog is the fixed catalog. Order matters: extraction results are
// returned in catalog order so selections are stable across message wordings.
var staffCatalog = []StaffRole{
	{
		Key:         "receptionist",
		Name:        "AI Receptionist",
		Description: "Answers inbound calls and texts back missed calls instantly",
		Recommended: true,
	},
	{
		Key:         "booking_agent",
		Name:        "Booking Agent",
		Description: "Books appointments and manages the calendar",
		Recommended: true,
	},
	{
		Key:         "review_manager",
		Name:        "Review Manager",
		Description: "Requests, monitors and responds to customer reviews",
		Recommended: true,
	},
	{
		Key:         "lead_nurturer",
		Name:        "Lead Nurturer",
		Description: "Follows up with leads over SMS and email until they convert",
		Recommended: true,
	},
	{
		Key:         "content_writer",
		Name:        "Content Writer",
		Description: "Drafts on-brand emails, posts and landing page copy",
		Recommended: false,
	},
	{
		Key:         "social_manager",
		Name:        "Social Media Manager",
		Description: "Plans and schedules social posts across channels",
		Recommended: false,
	},
	{
		Key:         "campaign_strategist",
		Name:        "Campaign Strategist",
		Description: "Designs seasonal promotions and drip campaigns",
		Recommended: false,
	},
}

// Catalog returns a copy of the fixed staff catalog.
func Catalog() []StaffRole {
	return append([]StaffRole(nil), staffCatalog...)
}

// RecommendedRoles returns the keys of the catalog's flagged recommended subset.
func RecommendedRoles() []string {
	keys := make([]string, 0, len(staffCatalog))

	for _, role := range staffCatalog {
		if role.Recommended {
			keys = append(keys, role.Key)
		}
	}

	return keys
}

// RoleByKey looks a catalog role up by its key.
func RoleByKey(key string) (StaffRole, bool) {
	for _, role := range staffCatalog {
		if role.Key == key {
			return role, true
		}
	}

	return StaffRole{}, false
}
