package models

import "encoding/json"

// Update is the partial-state value a step handler returns. Nil fields leave
// the corresponding state field untouched; non-nil fields are applied by the
// reducer layer with a per-field merge strategy:
//
//   - Transcript turns are appended, never replaced.
//   - Scalars (pointers) are last-write-wins.
//   - Lists and opaque documents are replaced wholesale by the step that owns
//     them; a pointer to an empty slice clears the field.
//   - ErrorCount never decreases.
type Update struct {
	Transcript []Turn

	WebsiteURL         *string
	BrandProfile       *json.RawMessage
	SelectedStaffRoles *[]string
	Goals              *[]string
	BuildPlan          *json.RawMessage

	ApprovalStatus   *ApprovalStatus
	ApprovalNotes    *string
	DeploymentResult *DeploymentResult

	AwaitingUserInput *bool
	ErrorCount        *int
	LastError         *string

	Status *SessionStatus
}

// Say appends an assistant turn to the update's transcript and returns the
// update for chaining.
func (u *Update) Say(content string) *Update {
	u.Transcript = append(u.Transcript, Turn{Role: RoleAssistant, Content: content})

	return u
}

// Fail records a recovery-relevant failure: it bumps the error counter,
// stores the last error, and appends a user-facing recovery message. The raw
// error text never reaches the transcript.
func (u *Update) Fail(prevCount int, lastError, recoveryMessage string) *Update {
	count := prevCount + 1
	u.ErrorCount = &count
	u.LastError = &lastError

	return u.Say(recoveryMessage)
}

// Pointer helpers keep handler code terse.

func StringPtr(s string) *string { return &s }

func BoolPtr(b bool) *bool { return &b }

func IntPtr(i int) *int { return &i }

func ApprovalPtr(a ApprovalStatus) *ApprovalStatus { return &a }

func RolesPtr(roles []string) *[]string { return &roles }

func GoalsPtr(goals []string) *[]string { return &goals }

func RawPtr(raw json.RawMessage) *json.RawMessage { return &raw }
