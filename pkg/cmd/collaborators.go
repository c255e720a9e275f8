package cmd

import (
	"log/slog"

	"github.com/relayone/onboarding/pkg/collaborators"
	"github.com/relayone/onboarding/pkg/collaborators/httpapi"
	"github.com/relayone/onboarding/pkg/collaborators/local"
)

// Collaborators bundles the external service clients the workflow needs.
type Collaborators struct {
	BrandScanner  collaborators.BrandScanner
	PlanGenerator collaborators.PlanGenerator
	Deployer      collaborators.Deployer
	Credentials   collaborators.CredentialStore
}

// NewCollaborators builds the collaborator set from service URLs. Each
// collaborator with an empty URL falls back to its in-process local
// implementation, so a bare binary still runs end to end.
func NewCollaborators(logger *slog.Logger, cfg httpapi.Config, credentials map[string]string) *Collaborators {
	set := &Collaborators{
		BrandScanner:  local.NewBrandScanner(),
		PlanGenerator: local.NewPlanGenerator(),
		Deployer:      local.NewDeployer(),
		Credentials:   local.NewCredentialStore(credentials),
	}

	if cfg.BrandScannerURL != "" {
		set.BrandScanner = httpapi.NewBrandScanner(cfg)
	} else {
		logger.Warn("No brand scanner URL configured, using local scanner")
	}

	if cfg.PlanGeneratorURL != "" {
		set.PlanGenerator = httpapi.NewPlanGenerator(cfg)
	} else {
		logger.Warn("No plan generator URL configured, using local generator")
	}

	if cfg.DeployerURL != "" {
		set.Deployer = httpapi.NewDeployer(cfg)
	} else {
		logger.Warn("No deployer URL configured, deployments will be simulated")
	}

	if cfg.CredentialsURL != "" {
		set.Credentials = httpapi.NewCredentialStore(cfg)
	}

	return set
}
