// Package workflow implements the onboarding state machine: per-field state
// reducers, one handler per step, a pure step router, the bounded-retry error
// policy, and the orchestrator that drives a session from checkpoint to
// checkpoint.
package workflow

import (
	"time"

	"github.com/relayone/onboarding/pkg/models"
)

// Reduce applies a handler's partial update to a state clone and returns it.
// Merge behavior is an explicit per-field table rather than anything implicit:
//
//   - Transcript: append-only, never truncated or rewritten.
//   - Scalars: last-write-wins when the update sets them.
//   - SelectedStaffRoles, Goals, BrandProfile, BuildPlan: replaced wholesale
//     by the owning step (a set pointer with an empty value clears the field).
//   - ErrorCount: monotonically non-decreasing within a session.
func Reduce(state *models.WorkflowState, update *models.Update) *models.WorkflowState {
	next := state.Clone()

	if update == nil {
		return next
	}

	next.Transcript = append(next.Transcript, update.Transcript...)

	if update.WebsiteURL != nil {
		next.WebsiteURL = *update.WebsiteURL
	}

	if update.BrandProfile != nil {
		next.BrandProfile = *update.BrandProfile
	}

	if update.SelectedStaffRoles != nil {
		next.SelectedStaffRoles = *update.SelectedStaffRoles
	}

	if update.Goals != nil {
		next.Goals = *update.Goals
	}

	if update.BuildPlan != nil {
		next.BuildPlan = *update.BuildPlan
	}

	if update.ApprovalStatus != nil {
		next.ApprovalStatus = *update.ApprovalStatus
	}

	if update.ApprovalNotes != nil {
		next.ApprovalNotes = *update.ApprovalNotes
	}

	if update.DeploymentResult != nil {
		next.DeploymentResult = update.DeploymentResult
	}

	if update.AwaitingUserInput != nil {
		next.AwaitingUserInput = *update.AwaitingUserInput
	}

	if update.ErrorCount != nil && *update.ErrorCount > next.ErrorCount {
		next.ErrorCount = *update.ErrorCount
	}

	if update.LastError != nil {
		next.LastError = *update.LastError
	}

	if update.Status != nil {
		next.Status = *update.Status
	}

	next.UpdatedAt = time.Now().UTC()

	return next
}
