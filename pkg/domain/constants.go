package domain

// Canned response identifiers. Their wording is owned by the dialogue
// collaborator (or the responses catalog for the chat CLI).
const (
	ResponseAskEmail                 = "utter_ask_email"
	ResponseAskUsePreviousEmail      = "utter_ask_use_previous_email"
	ResponseNoEmail                  = "utter_no_email"
	ResponseNoPriority               = "utter_no_priority"
	ResponseIncidentCreationCanceled = "utter_incident_creation_canceled"
	ResponseFeedbackSendingCanceled  = "utter_feedback_sending_canceled"
)

// AskResponse returns the canned response id that asks for a slot.
// The email slot has its own two-shaped prompt, see ResponseAskEmail.
func AskResponse(slot string) string {
	return "utter_ask_" + slot
}
