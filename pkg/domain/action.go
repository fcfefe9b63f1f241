package domain

// EventType identifies a state-mutation instruction returned to the dialogue collaborator.
type EventType string

// Standard Event Types
const (
	// EventSetSlot sets (or unsets, when Value is nil) a single slot.
	EventSetSlot EventType = "set_slot"

	// EventClearAllSlots unsets every slot of the session.
	EventClearAllSlots EventType = "clear_all_slots"

	// EventSessionStarted marks the beginning of a new conversation.
	EventSessionStarted EventType = "session_started"

	// EventReadyForInput tells the collaborator to wait for the next user message.
	EventReadyForInput EventType = "ready_for_input"
)

// Event is a state mutation the host applies to the session, in order.
type Event struct {
	Type  EventType `json:"type"`
	Slot  string    `json:"slot,omitempty"`
	Value any       `json:"value,omitempty"`
}

// SetSlot builds a SetSlot event. A nil value unsets the slot.
func SetSlot(name string, value any) Event {
	return Event{Type: EventSetSlot, Slot: name, Value: value}
}

// ClearAllSlots builds a ClearAllSlots event.
func ClearAllSlots() Event {
	return Event{Type: EventClearAllSlots}
}

// MarkSessionStarted builds a SessionStarted event.
func MarkSessionStarted() Event {
	return Event{Type: EventSessionStarted}
}

// MarkReadyForInput builds a ReadyForInput event.
func MarkReadyForInput() Event {
	return Event{Type: EventReadyForInput}
}

// Message is a user-facing reply.
// Either Text (a literal) or Response (a canned response id) is set.
type Message struct {
	Text     string `json:"text,omitempty"`
	Response string `json:"response,omitempty"`
}

// Text builds a literal message.
func Text(text string) Message {
	return Message{Text: text}
}

// Response builds a canned-response message.
func Response(id string) Message {
	return Message{Response: id}
}

// IsZero reports whether the message carries nothing.
func (m Message) IsZero() bool {
	return m.Text == "" && m.Response == ""
}
