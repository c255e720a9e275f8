package workflow

import "github.com/relayone/onboarding/pkg/models"

// Retry/escalation policy for transient collaborator failures. The failure
// counter lives on WorkflowState, is session-scoped, never decremented, and
// resets only when a brand-new session is created.
const (
	// SoftFailureThreshold reroutes the session into the error handler, which
	// apologizes and sends the user back to a retryable upstream step.
	SoftFailureThreshold = 3

	// HardFailureThreshold terminates the session, preserving all state for
	// manual handoff to support.
	HardFailureThreshold = 5
)

// Escalate reports whether the failure count has reached the soft threshold
// and the session should detour through the error handler.
func Escalate(errorCount int) bool {
	return errorCount >= SoftFailureThreshold
}

// Terminate reports whether the failure count has reached the hard ceiling.
func Terminate(errorCount int) bool {
	return errorCount >= HardFailureThreshold
}

// recoverySteps maps the step that was active when the error handler was
// entered to the step the session returns to. An explicit table, not a
// recomputation.
var recoverySteps = map[models.Step]models.Step{
	models.StepScanBrand:    models.StepCollectInfo,
	models.StepGeneratePlan: models.StepSetGoals,
	models.StepDeploy:       models.StepAwaitApproval,
	models.StepVerify:       models.StepVerify,
}

// RecoveryStep returns the step to resume from after the error handler,
// given the step that was active before it.
func RecoveryStep(previous models.Step) models.Step {
	if step, ok := recoverySteps[previous]; ok {
		return step
	}

	return models.StepCollectInfo
}
