package workflow

import (
	"strings"

	"github.com/relayone/onboarding/pkg/models"
)

// routeFunc decides the next step for one current step. Returning terminal
// true ends the workflow; the returned step is ignored in that case.
type routeFunc func(state *models.WorkflowState) (next models.Step, terminal bool)

// routes is the explicit transition table. Every defined step has an entry;
// Next falls back to "stay on the current step" so routing is total and never
// produces an undefined step.
var routes = map[models.Step]routeFunc{
	models.StepGreet: func(_ *models.WorkflowState) (models.Step, bool) {
		return models.StepCollectInfo, false
	},

	models.StepCollectInfo: func(state *models.WorkflowState) (models.Step, bool) {
		// The manual-fields branch produces a brand profile without a URL and
		// skips the website scan entirely.
		if len(state.BrandProfile) > 0 {
			return models.StepSelectStaff, false
		}

		if state.WebsiteURL != "" {
			return models.StepScanBrand, false
		}

		return models.StepCollectInfo, false
	},

	models.StepScanBrand: func(state *models.WorkflowState) (models.Step, bool) {
		if len(state.BrandProfile) > 0 {
			return models.StepSelectStaff, false
		}

		if state.LastError != "" {
			if Escalate(state.ErrorCount) {
				return models.StepErrorHandler, false
			}

			return models.StepCollectInfo, false
		}

		return models.StepScanBrand, false
	},

	models.StepSelectStaff: func(state *models.WorkflowState) (models.Step, bool) {
		if len(state.SelectedStaffRoles) > 0 {
			return models.StepSetGoals, false
		}

		return models.StepSelectStaff, false
	},

	models.StepSetGoals: func(state *models.WorkflowState) (models.Step, bool) {
		if len(state.Goals) > 0 {
			return models.StepGeneratePlan, false
		}

		return models.StepSetGoals, false
	},

	models.StepGeneratePlan: func(state *models.WorkflowState) (models.Step, bool) {
		if len(state.BuildPlan) > 0 {
			return models.StepAwaitApproval, false
		}

		if state.LastError != "" {
			if Escalate(state.ErrorCount) {
				return models.StepErrorHandler, false
			}

			return models.StepSetGoals, false
		}

		return models.StepGeneratePlan, false
	},

	models.StepAwaitApproval: func(state *models.WorkflowState) (models.Step, bool) {
		switch state.ApprovalStatus {
		case models.ApprovalApproved:
			return models.StepDeploy, false
		case models.ApprovalRejected:
			return RejectionTarget(state.ApprovalNotes), false
		default:
			return models.StepAwaitApproval, false
		}
	},

	models.StepDeploy: func(state *models.WorkflowState) (models.Step, bool) {
		if state.DeploymentResult != nil {
			return models.StepVerify, false
		}

		if state.LastError != "" {
			if Escalate(state.ErrorCount) {
				return models.StepErrorHandler, false
			}

			return models.StepAwaitApproval, false
		}

		// Missing credential parks the session here until the tenant connects
		// a deployment target out of band.
		return models.StepDeploy, false
	},

	models.StepVerify: func(state *models.WorkflowState) (models.Step, bool) {
		if state.DeploymentResult == nil {
			return models.StepVerify, false
		}

		if state.DeploymentResult.Success {
			return "", true
		}

		// Partial deployment: the user picks between retrying, continuing
		// without the failed pieces, or handing off to support.
		message := strings.ToLower(state.LastUserMessage())

		switch {
		case strings.Contains(message, "retry"):
			return models.StepDeploy, false
		case strings.Contains(message, "continue"), strings.Contains(message, "support"):
			return "", true
		default:
			return models.StepVerify, false
		}
	},

	models.StepErrorHandler: func(state *models.WorkflowState) (models.Step, bool) {
		if Terminate(state.ErrorCount) {
			return "", true
		}

		return RecoveryStep(state.PreviousStep), false
	},
}

// Next is the step router: a pure, total function from state to the next step
// or terminal. Unknown steps stay put rather than derailing the session.
func Next(state *models.WorkflowState) (models.Step, bool) {
	route, ok := routes[state.CurrentStep]
	if !ok {
		return state.CurrentStep, false
	}

	return route(state)
}

// RejectionTarget routes a plan rejection back to an earlier step based on a
// keyword scan over the rejection notes. First match wins.
func RejectionTarget(notes string) models.Step {
	lowered := strings.ToLower(notes)

	switch {
	case strings.Contains(lowered, "staff"), strings.Contains(lowered, "team"):
		return models.StepSelectStaff
	case strings.Contains(lowered, "goal"), strings.Contains(lowered, "objective"):
		return models.StepSetGoals
	case strings.Contains(lowered, "website"), strings.Contains(lowered, "brand"),
		strings.Contains(lowered, "start over"):
		return models.StepCollectInfo
	default:
		return models.StepSelectStaff
	}
}
