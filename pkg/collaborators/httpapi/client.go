// Package httpapi implements the collaborator interfaces against the internal
// platform services over HTTP. Non-2xx responses and transport failures become
// CollaboratorError, which the workflow treats as retryable.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/relayone/onboarding/pkg/collaborators"
	"github.com/relayone/onboarding/pkg/models"
)

const defaultTimeout = 30 * time.Second

// Config holds the base URLs of the collaborator services. Empty URLs are
// allowed; the binary substitutes local implementations for missing ones.
type Config struct {
	BrandScannerURL  string
	PlanGeneratorURL string
	DeployerURL      string
	CredentialsURL   string
	Timeout          time.Duration
}

type client struct {
	http *http.Client
}

func newClient(timeout time.Duration) *client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &client{http: &http.Client{Timeout: timeout}}
}

// postJSON sends the request body and decodes the response into out. The
// caller's collaborator name labels any failure.
func (c *client) postJSON(ctx context.Context, collaborator, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return collaborators.NewCollaboratorError(collaborator, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return collaborators.NewCollaboratorError(collaborator, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return collaborators.NewCollaboratorError(collaborator, err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return collaborators.NewCollaboratorError(collaborator,
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(snippet)))
	}

	if out == nil {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return collaborators.NewCollaboratorError(collaborator, err)
	}

	return nil
}

// BrandScanner calls the brand analysis service.
type BrandScanner struct {
	client  *client
	baseURL string
}

func NewBrandScanner(cfg Config) *BrandScanner {
	return &BrandScanner{client: newClient(cfg.Timeout), baseURL: cfg.BrandScannerURL}
}

func (s *BrandScanner) Analyze(ctx context.Context, url string) (json.RawMessage, error) {
	var result struct {
		Profile json.RawMessage `json:"profile"`
	}

	err := s.client.postJSON(ctx, "brand_scanner", s.baseURL+"/v1/scan",
		map[string]string{"url": url}, &result)
	if err != nil {
		return nil, err
	}

	return result.Profile, nil
}

// PlanGenerator calls the plan composition service.
type PlanGenerator struct {
	client  *client
	baseURL string
}

func NewPlanGenerator(cfg Config) *PlanGenerator {
	return &PlanGenerator{client: newClient(cfg.Timeout), baseURL: cfg.PlanGeneratorURL}
}

func (g *PlanGenerator) Generate(ctx context.Context, brandProfile json.RawMessage, staffRoles, goals []string, tenantID string) (json.RawMessage, error) {
	request := map[string]any{
		"tenant_id":     tenantID,
		"brand_profile": brandProfile,
		"staff_roles":   staffRoles,
		"goals":         goals,
	}

	var result struct {
		Plan json.RawMessage `json:"plan"`
	}

	err := g.client.postJSON(ctx, "plan_generator", g.baseURL+"/v1/plans", request, &result)
	if err != nil {
		return nil, err
	}

	return result.Plan, nil
}

// Deployer calls the provisioning service. The service reports partial
// failures inside the result body, not as HTTP errors.
type Deployer struct {
	client  *client
	baseURL string
}

func NewDeployer(cfg Config) *Deployer {
	return &Deployer{client: newClient(cfg.Timeout), baseURL: cfg.DeployerURL}
}

func (d *Deployer) Deploy(ctx context.Context, plan json.RawMessage, tenantID, credential string) (*models.DeploymentResult, error) {
	request := map[string]any{
		"tenant_id":  tenantID,
		"credential": credential,
		"plan":       plan,
	}

	var result models.DeploymentResult

	err := d.client.postJSON(ctx, "deployer", d.baseURL+"/v1/deployments", request, &result)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// CredentialStore resolves tenant deployment credentials from the credential
// service. A 404 means the tenant has not connected an account yet, which is
// reported as an empty credential, not an error.
type CredentialStore struct {
	client  *client
	baseURL string
}

func NewCredentialStore(cfg Config) *CredentialStore {
	return &CredentialStore{client: newClient(cfg.Timeout), baseURL: cfg.CredentialsURL}
}

func (s *CredentialStore) Get(ctx context.Context, tenantID string) (string, error) {
	url := s.baseURL + "/v1/tenants/" + tenantID + "/credential"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", collaborators.NewCollaboratorError("credential_store", err)
	}

	resp, err := s.client.http.Do(req)
	if err != nil {
		return "", collaborators.NewCollaboratorError("credential_store", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}

	if resp.StatusCode != http.StatusOK {
		return "", collaborators.NewCollaboratorError("credential_store",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var result struct {
		Credential string `json:"credential"`
	}

	err = json.NewDecoder(resp.Body).Decode(&result)
	if err != nil {
		return "", collaborators.NewCollaboratorError("credential_store", err)
	}

	return result.Credential, nil
}
