// Package web provides HTTP request and response types for the onboarding API.
package web

import (
	"time"

	"github.com/relayone/onboarding/pkg/models"
)

// StartSessionRequest represents the request body for creating a new session.
type StartSessionRequest struct {
	ThreadID   string `json:"thread_id,omitempty" validate:"omitempty,min=8"`
	TenantID   string `json:"tenant_id"           validate:"required"`
	UserID     string `json:"user_id"             validate:"required"`
	LocationID string `json:"location_id,omitempty"`
}

// ResumeSessionRequest represents the request body for sending a user message
// into a paused session.
type ResumeSessionRequest struct {
	Message string `json:"message" validate:"required,min=1"`
}

// SubmitApprovalRequest represents the request body for the approval gate.
type SubmitApprovalRequest struct {
	Approved bool   `json:"approved"`
	Notes    string `json:"notes,omitempty"`
}

// SessionResponse is the API shape of a session. The transcript is included;
// internal bookkeeping like PreviousStep is not.
type SessionResponse struct {
	ThreadID          string                   `json:"thread_id"`
	TenantID          string                   `json:"tenant_id"`
	UserID            string                   `json:"user_id"`
	LocationID        string                   `json:"location_id,omitempty"`
	CurrentStep       models.Step              `json:"current_step"`
	Status            models.SessionStatus     `json:"status"`
	AwaitingUserInput bool                     `json:"awaiting_user_input"`
	ApprovalStatus    models.ApprovalStatus    `json:"approval_status"`
	WebsiteURL        string                   `json:"website_url,omitempty"`
	SelectedRoles     []string                 `json:"selected_staff_roles,omitempty"`
	Goals             []string                 `json:"goals,omitempty"`
	Transcript        []models.Turn            `json:"transcript"`
	DeploymentResult  *models.DeploymentResult `json:"deployment_result,omitempty"`
	ErrorCount        int                      `json:"error_count"`
	CreatedAt         string                   `json:"created_at"`
	UpdatedAt         string                   `json:"updated_at"`
}

// TransformSessionResponse maps internal workflow state to the API shape.
func TransformSessionResponse(state *models.WorkflowState) SessionResponse {
	return SessionResponse{
		ThreadID:          state.ThreadID,
		TenantID:          state.TenantID,
		UserID:            state.UserID,
		LocationID:        state.LocationID,
		CurrentStep:       state.CurrentStep,
		Status:            state.Status,
		AwaitingUserInput: state.AwaitingUserInput,
		ApprovalStatus:    state.ApprovalStatus,
		WebsiteURL:        state.WebsiteURL,
		SelectedRoles:     state.SelectedStaffRoles,
		Goals:             state.Goals,
		Transcript:        state.Transcript,
		DeploymentResult:  state.DeploymentResult,
		ErrorCount:        state.ErrorCount,
		CreatedAt:         state.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         state.UpdatedAt.Format(time.RFC3339),
	}
}
