// Package local provides deterministic in-process collaborators for
// development and demos, used when no collaborator service URLs are
// configured. The deployer only simulates provisioning.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/relayone/onboarding/pkg/models"
)

// BrandScanner fabricates a minimal brand profile from the URL itself.
type BrandScanner struct{}

func NewBrandScanner() *BrandScanner {
	return &BrandScanner{}
}

func (s *BrandScanner) Analyze(_ context.Context, url string) (json.RawMessage, error) {
	name := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "www.")
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}

	profile := map[string]any{
		"source":        "local-scan",
		"url":           url,
		"business_name": name,
		"tone":          "friendly",
	}

	raw, err := json.Marshal(profile)
	if err != nil {
		return nil, err
	}

	return raw, nil
}

// PlanGenerator composes a plan directly from the captured selections, one
// item per staff role plus one campaign per goal.
type PlanGenerator struct{}

func NewPlanGenerator() *PlanGenerator {
	return &PlanGenerator{}
}

func (g *PlanGenerator) Generate(_ context.Context, brandProfile json.RawMessage, staffRoles, goals []string, tenantID string) (json.RawMessage, error) {
	items := make([]map[string]any, 0, len(staffRoles)+len(goals))

	for _, role := range staffRoles {
		items = append(items, map[string]any{
			"kind": "staff",
			"name": role,
		})
	}

	for _, goal := range goals {
		items = append(items, map[string]any{
			"kind": "campaign",
			"name": goal,
		})
	}

	plan := map[string]any{
		"tenant_id": tenantID,
		"summary": fmt.Sprintf("Set up %d AI staff member(s) and %d campaign(s).",
			len(staffRoles), len(goals)),
		"items":         items,
		"brand_profile": brandProfile,
	}

	raw, err := json.Marshal(plan)
	if err != nil {
		return nil, err
	}

	return raw, nil
}

// Deployer pretends every plan item provisions cleanly.
type Deployer struct{}

func NewDeployer() *Deployer {
	return &Deployer{}
}

func (d *Deployer) Deploy(_ context.Context, plan json.RawMessage, tenantID, _ string) (*models.DeploymentResult, error) {
	deployed, err := json.Marshal(map[string]any{
		"tenant_id":   tenantID,
		"deployed_at": time.Now().UTC(),
		"plan":        plan,
	})
	if err != nil {
		return nil, err
	}

	return &models.DeploymentResult{
		Success:  true,
		Deployed: deployed,
	}, nil
}

// CredentialStore reads credentials from a static map, typically loaded from
// the environment at startup.
type CredentialStore struct {
	credentials map[string]string
}

func NewCredentialStore(credentials map[string]string) *CredentialStore {
	return &CredentialStore{credentials: credentials}
}

func (s *CredentialStore) Get(_ context.Context, tenantID string) (string, error) {
	return s.credentials[tenantID], nil
}
