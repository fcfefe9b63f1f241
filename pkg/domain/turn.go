package domain

// TurnRequest is what the dialogue collaborator sends on every user turn.
type TurnRequest struct {
	SessionID string   `json:"session_id"`
	Form      FormName `json:"form"`

	// RequestedSlot is the slot the previous prompt asked for. Empty on the
	// first turn of a form.
	RequestedSlot string `json:"requested_slot,omitempty"`

	// Candidate is the raw value offered for RequestedSlot.
	Candidate Candidate `json:"candidate"`

	// Slots is the full slot map of the session before this turn.
	Slots map[string]any `json:"slots"`
}

// TurnResult is the outcome of one turn: state mutations to apply in order,
// messages to deliver, and where the form instance now stands.
type TurnResult struct {
	Events   []Event    `json:"events"`
	Messages []Message  `json:"messages"`
	Status   FormStatus `json:"status"`

	// RequestedSlot is the slot being asked for when Status is awaiting_slot.
	RequestedSlot string `json:"requested_slot,omitempty"`

	// Action is the terminal action that ran, if any.
	Action ActionKind `json:"action,omitempty"`
}

// ActionKind tags the terminal action of a form.
type ActionKind string

const (
	ActionOpenIncident        ActionKind = "open_incident"
	ActionCheckIncidentStatus ActionKind = "check_incident_status"
	ActionSendFeedback        ActionKind = "send_feedback"
)

// ActionInput is the validated state handed to a terminal action.
type ActionInput struct {
	SessionID string
	Session   *Session
}

// ActionResult is what a terminal action produced.
type ActionResult struct {
	Status   FormStatus
	Messages []Message

	// Email is the email the action used; it becomes the new previous_email.
	Email string

	// IncidentNumber is set when an incident was opened.
	IncidentNumber string

	// Err records a failed side effect. It has already been turned into a
	// user-facing message; it is kept for logs and outcome events.
	Err error
}
