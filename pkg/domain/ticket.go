package domain

import "strings"

// IncidentState is the lifecycle state reported by the ticketing backend.
type IncidentState string

const (
	IncidentNew        IncidentState = "New"
	IncidentInProgress IncidentState = "In Progress"
	IncidentOnHold     IncidentState = "On Hold"
	IncidentClosed     IncidentState = "Closed"
)

// IncidentStates lists the known states in lifecycle order.
var IncidentStates = []IncidentState{IncidentNew, IncidentInProgress, IncidentOnHold, IncidentClosed}

// Phrase renders the state for a status line, e.g. "is currently awaiting triage".
func (s IncidentState) Phrase() string {
	switch s {
	case IncidentNew:
		return "is currently awaiting triage"
	case IncidentInProgress:
		return "is currently in progress"
	case IncidentOnHold:
		return "has been put on hold"
	case IncidentClosed:
		return "has been closed"
	default:
		return "is in state " + string(s)
	}
}

// Incident is a ticket as seen by this service.
type Incident struct {
	Number           string        `json:"number"`
	Description      string        `json:"description,omitempty"`
	ShortDescription string        `json:"short_description"`
	Priority         string        `json:"priority,omitempty"`
	Email            string        `json:"email,omitempty"`
	OpenedAt         string        `json:"opened_at"`
	State            IncidentState `json:"state"`
}

// NewIncident is the payload for opening an incident.
type NewIncident struct {
	Description      string
	ShortDescription string
	PriorityCode     string
	Email            string
}

// PriorityVocabulary maps human-readable priority labels to backend codes.
type PriorityVocabulary map[string]string

// DefaultPriorities is the vocabulary used when none is configured.
var DefaultPriorities = PriorityVocabulary{
	"low":    "4",
	"medium": "3",
	"high":   "2",
}

// Lookup resolves a label case-insensitively, returning the normalised label and its code.
func (v PriorityVocabulary) Lookup(label string) (string, string, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	code, ok := v[key]
	return key, code, ok
}
