package domain

// FormName identifies a conversational form.
type FormName string

const (
	FormOpenIncident   FormName = "open_incident_form"
	FormIncidentStatus FormName = "incident_status_form"
	FormFeedback       FormName = "feedback_form"
)

// FormStatus is the coordinator state reached at the end of a turn.
type FormStatus string

const (
	StatusAwaitingSlot   FormStatus = "awaiting_slot"
	StatusAllSlotsFilled FormStatus = "all_slots_filled"
	StatusCompleted      FormStatus = "completed"
	StatusCancelled      FormStatus = "cancelled"
)

// IsTerminal reports whether the form instance has ended.
func (s FormStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}
