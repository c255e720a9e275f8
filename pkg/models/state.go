// Package models defines the core domain models for tenant onboarding sessions.
package models

import (
	"encoding/json"
	"time"
)

// SessionStatus represents the lifecycle state of an onboarding session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"    // In progress, resumable
	SessionStatusCompleted SessionStatus = "completed" // Reached the terminal success outcome
	SessionStatusFailed    SessionStatus = "failed"    // Reached the terminal failure outcome
	SessionStatusAbandoned SessionStatus = "abandoned" // Closed by the idle-session sweep
)

// ApprovalStatus tracks the human approval gate for the generated build plan.
type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = "none"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Role identifies the author of a transcript turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single entry in the session transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// DeploymentResult is the outcome reported by the deployment collaborator.
// A partial deployment is a successful call with Success=false and Errors populated.
type DeploymentResult struct {
	Success  bool            `json:"success"`
	Deployed json.RawMessage `json:"deployed,omitempty"`
	Errors   []string        `json:"errors,omitempty"`
}

// WorkflowState is the full checkpointed state of one onboarding session.
// It is mutated exclusively through Update values applied by the reducer layer.
type WorkflowState struct {
	ThreadID   string `json:"thread_id"   validate:"required"`
	TenantID   string `json:"tenant_id"   validate:"required"`
	UserID     string `json:"user_id"     validate:"required"`
	LocationID string `json:"location_id"`

	Transcript []Turn `json:"transcript"`

	WebsiteURL         string          `json:"website_url,omitempty"`
	BrandProfile       json.RawMessage `json:"brand_profile,omitempty"`
	SelectedStaffRoles []string        `json:"selected_staff_roles,omitempty"`
	Goals              []string        `json:"goals,omitempty"`
	BuildPlan          json.RawMessage `json:"build_plan,omitempty"`

	ApprovalStatus   ApprovalStatus    `json:"approval_status"`
	ApprovalNotes    string            `json:"approval_notes,omitempty"`
	DeploymentResult *DeploymentResult `json:"deployment_result,omitempty"`

	CurrentStep  Step `json:"current_step"`
	PreviousStep Step `json:"previous_step,omitempty"`

	AwaitingUserInput bool   `json:"awaiting_user_input"`
	ErrorCount        int    `json:"error_count"`
	LastError         string `json:"last_error,omitempty"`

	Status     SessionStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	ArchivedAt *time.Time    `json:"archived_at,omitempty"`
}

// NewWorkflowState creates the initial state for a fresh session.
func NewWorkflowState(threadID, tenantID, userID, locationID string) *WorkflowState {
	now := time.Now().UTC()

	return &WorkflowState{
		ThreadID:       threadID,
		TenantID:       tenantID,
		UserID:         userID,
		LocationID:     locationID,
		Transcript:     []Turn{},
		ApprovalStatus: ApprovalNone,
		CurrentStep:    StepGreet,
		Status:         SessionStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Active reports whether the session can still be resumed.
func (s *WorkflowState) Active() bool {
	return s.Status == SessionStatusActive
}

// LastUserMessage returns the content of the most recent user turn, or "".
func (s *WorkflowState) LastUserMessage() string {
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		if s.Transcript[i].Role == RoleUser {
			return s.Transcript[i].Content
		}
	}

	return ""
}

// Clone returns a deep copy of the state. Handlers receive clones so they can
// never mutate checkpointed state directly.
func (s *WorkflowState) Clone() *WorkflowState {
	clone := *s

	clone.Transcript = append([]Turn(nil), s.Transcript...)
	clone.SelectedStaffRoles = append([]string(nil), s.SelectedStaffRoles...)
	clone.Goals = append([]string(nil), s.Goals...)
	clone.BrandProfile = append(json.RawMessage(nil), s.BrandProfile...)
	clone.BuildPlan = append(json.RawMessage(nil), s.BuildPlan...)

	if s.DeploymentResult != nil {
		result := *s.DeploymentResult
		result.Deployed = append(json.RawMessage(nil), s.DeploymentResult.Deployed...)
		result.Errors = append([]string(nil), s.DeploymentResult.Errors...)
		clone.DeploymentResult = &result
	}

	if s.ArchivedAt != nil {
		archived := *s.ArchivedAt
		clone.ArchivedAt = &archived
	}

	return &clone
}
