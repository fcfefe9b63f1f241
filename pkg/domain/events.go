package domain

import (
	"context"
	"time"
)

// TurnEvent describes one processed turn.
type TurnEvent struct {
	Timestamp     time.Time  `json:"timestamp"`
	SessionID     string     `json:"session_id"`
	Form          FormName   `json:"form"`
	RequestedSlot string     `json:"requested_slot,omitempty"`
	Status        FormStatus `json:"status"`
}

// ValidationEvent describes one slot validation.
type ValidationEvent struct {
	Timestamp time.Time   `json:"timestamp"`
	SessionID string      `json:"session_id"`
	Form      FormName    `json:"form"`
	Slot      string      `json:"slot"`
	Verdict   VerdictKind `json:"verdict"`
}

// ActionEvent describes one terminal action execution.
type ActionEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	SessionID string        `json:"session_id"`
	Action    string        `json:"action"`
	Status    FormStatus    `json:"status"`
	IsError   bool          `json:"is_error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for coordinator observability.
type LifecycleHooks struct {
	OnTurn       func(context.Context, *TurnEvent)
	OnValidation func(context.Context, *ValidationEvent)
	OnAction     func(context.Context, *ActionEvent)
}

// Outcome is published when a form instance terminates.
type Outcome struct {
	Timestamp      time.Time  `json:"timestamp"`
	SessionID      string     `json:"session_id"`
	Form           FormName   `json:"form"`
	Action         string     `json:"action"`
	Status         FormStatus `json:"status"`
	Email          string     `json:"email,omitempty"`
	IncidentNumber string     `json:"incident_number,omitempty"`
	Error          string     `json:"error,omitempty"`
}
