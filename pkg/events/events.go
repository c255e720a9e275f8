// Package events defines event types and structures for onboarding session
// lifecycle notifications.
package events

import (
	"time"

	"github.com/relayone/onboarding/pkg/models"
)

type EventType string

// Topic carries every onboarding session event.
const Topic = "onboarding.sessions"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	SessionStartedEvent   EventType = "session.started"
	StepCompletedEvent    EventType = "session.step.completed"
	AwaitingInputEvent    EventType = "session.awaiting_input"
	ApprovalDecidedEvent  EventType = "session.approval.decided"
	SessionDeployedEvent  EventType = "session.deployed"
	SessionCompletedEvent EventType = "session.completed"
	SessionFailedEvent    EventType = "session.failed"
	SessionAbandonedEvent EventType = "session.abandoned"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	ThreadID  string    `json:"thread_id"`
	TenantID  string    `json:"tenant_id,omitempty"`
}

type SessionStarted struct {
	BaseEvent

	UserID     string `json:"user_id,omitempty"`
	LocationID string `json:"location_id,omitempty"`
}

func (e SessionStarted) GetType() EventType {
	return SessionStartedEvent
}

type StepCompleted struct {
	BaseEvent

	FromStep models.Step `json:"from_step"`
	ToStep   models.Step `json:"to_step"`
}

func (e StepCompleted) GetType() EventType {
	return StepCompletedEvent
}

type AwaitingInput struct {
	BaseEvent

	Step models.Step `json:"step"`
}

func (e AwaitingInput) GetType() EventType {
	return AwaitingInputEvent
}

type ApprovalDecided struct {
	BaseEvent

	Approved bool   `json:"approved"`
	Notes    string `json:"notes,omitempty"`
}

func (e ApprovalDecided) GetType() EventType {
	return ApprovalDecidedEvent
}

type SessionDeployed struct {
	BaseEvent

	Success bool     `json:"success"`
	Errors  []string `json:"errors,omitempty"`
}

func (e SessionDeployed) GetType() EventType {
	return SessionDeployedEvent
}

type SessionCompleted struct {
	BaseEvent

	FinalStep models.Step `json:"final_step"`
}

func (e SessionCompleted) GetType() EventType {
	return SessionCompletedEvent
}

type SessionFailed struct {
	BaseEvent

	ErrorCount int    `json:"error_count"`
	LastError  string `json:"last_error,omitempty"`
}

func (e SessionFailed) GetType() EventType {
	return SessionFailedEvent
}

type SessionAbandoned struct {
	BaseEvent

	IdleSince time.Time `json:"idle_since"`
}

func (e SessionAbandoned) GetType() EventType {
	return SessionAbandonedEvent
}
