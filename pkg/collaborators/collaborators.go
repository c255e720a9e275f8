// Package collaborators defines the interfaces for the external services the
// onboarding workflow depends on: brand analysis, plan generation, deployment
// and tenant credentials. Their internals live in other services; the workflow
// only sees these contracts and treats every result as opaque.
package collaborators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/relayone/onboarding/pkg/models"
)

// CollaboratorError marks a transient failure of an external collaborator.
// Step handlers convert it into a state update (error counter, recovery
// message); it never crosses the orchestrator boundary.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s collaborator failed: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// NewCollaboratorError wraps an underlying failure with the collaborator name.
func NewCollaboratorError(collaborator string, err error) *CollaboratorError {
	return &CollaboratorError{Collaborator: collaborator, Err: err}
}

// IsCollaboratorError checks whether an error is a transient collaborator
// failure.
func IsCollaboratorError(err error) bool {
	var ce *CollaboratorError

	return errors.As(err, &ce)
}

// BrandScanner derives a brand profile from a tenant's website.
type BrandScanner interface {
	Analyze(ctx context.Context, url string) (json.RawMessage, error)
}

// PlanGenerator turns a brand profile, staff selection and goals into a
// provisioning plan for the tenant.
type PlanGenerator interface {
	Generate(ctx context.Context, brandProfile json.RawMessage, staffRoles, goals []string, tenantID string) (json.RawMessage, error)
}

// Deployer provisions the approved plan on the tenant's account. A partial
// deployment is a successful call returning Success=false with Errors
// populated, not an error.
type Deployer interface {
	Deploy(ctx context.Context, plan json.RawMessage, tenantID, credential string) (*models.DeploymentResult, error)
}

// CredentialStore resolves the deployment credential for a tenant. An empty
// credential means no deployment target is connected yet.
type CredentialStore interface {
	Get(ctx context.Context, tenantID string) (string, error)
}
