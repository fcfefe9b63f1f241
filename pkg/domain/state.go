package domain

import (
	"fmt"
	"strings"
	"time"
)

// Session represents the slot snapshot of one conversation.
type Session struct {
	// SessionID is the sender id of the conversation.
	SessionID string `json:"session_id"`

	// Slots holds the collected values. A missing key or a nil value means unset.
	// previous_email lives here too and survives ClearAllSlots.
	Slots map[string]any `json:"slots"`

	// ActiveForm is the form currently being filled (stateful hosts only).
	ActiveForm FormName `json:"active_form,omitempty"`

	// RequestedSlot is the slot the last prompt asked for (stateful hosts only).
	RequestedSlot string `json:"requested_slot,omitempty"`

	// Started is set by the SessionStarted event.
	Started bool `json:"started"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates an empty session.
func NewSession(sessionID string) *Session {
	return &Session{
		SessionID: sessionID,
		Slots:     make(map[string]any),
	}
}

// Slot returns the raw value of a slot (nil when unset).
func (s *Session) Slot(name string) any {
	if s == nil || s.Slots == nil {
		return nil
	}
	return s.Slots[name]
}

// SlotString returns the slot value rendered as a string ("" when unset).
func (s *Session) SlotString(name string) string {
	switch v := s.Slot(name).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// SlotBool interprets the slot as a confirmation. Unset or unrecognised values are false.
func (s *Session) SlotBool(name string) bool {
	switch v := s.Slot(name).(type) {
	case bool:
		return v
	case string:
		b, _ := ParseConfirmation(v)
		return b
	default:
		return false
	}
}

// IsFilled reports whether a slot holds a usable value.
// A false confirmation counts as filled: the user did answer.
func (s *Session) IsFilled(name string) bool {
	switch v := s.Slot(name).(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	default:
		return true
	}
}

// Snapshot returns a deep copy of the session, safe to mutate.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Slots = make(map[string]any, len(s.Slots))
	for k, v := range s.Slots {
		cp.Slots[k] = v
	}
	return &cp
}

// Apply folds events into the session in order.
func (s *Session) Apply(events ...Event) {
	if s.Slots == nil {
		s.Slots = make(map[string]any)
	}
	for _, ev := range events {
		switch ev.Type {
		case EventSetSlot:
			if ev.Value == nil {
				delete(s.Slots, ev.Slot)
			} else {
				s.Slots[ev.Slot] = ev.Value
			}
		case EventClearAllSlots:
			s.Slots = make(map[string]any)
		case EventSessionStarted:
			s.Started = true
		}
	}
}
