package runtime

import "github.com/aretw0/servicedesk/pkg/domain"

// Form is a bundle of required slots gating one terminal action.
type Form struct {
	Name   domain.FormName   `json:"name"`
	Slots  []string          `json:"slots"`
	Action domain.ActionKind `json:"action"`
}

// DefaultForms returns the forms of the help-desk assistant.
func DefaultForms() []Form {
	return []Form{
		{
			Name: domain.FormOpenIncident,
			Slots: []string{
				domain.SlotEmail,
				domain.SlotPriority,
				domain.SlotProblemDescription,
				domain.SlotIncidentTitle,
				domain.SlotConfirm,
			},
			Action: domain.ActionOpenIncident,
		},
		{
			Name:   domain.FormIncidentStatus,
			Slots:  []string{domain.SlotEmail},
			Action: domain.ActionCheckIncidentStatus,
		},
		{
			Name: domain.FormFeedback,
			Slots: []string{
				domain.SlotFeedbackDescription,
				domain.SlotEmail,
				domain.SlotConfirmFeedback,
			},
			Action: domain.ActionSendFeedback,
		},
	}
}

// NextSlot returns the first required slot the session has not filled,
// or "" when the form is complete.
func (f Form) NextSlot(s *domain.Session) string {
	for _, slot := range f.Slots {
		if !s.IsFilled(slot) {
			return slot
		}
	}
	return ""
}

// Prompt returns the message asking for slot.
// The email prompt offers to reuse previous_email when the session has one.
func Prompt(slot string, s *domain.Session) domain.Message {
	if slot == domain.SlotEmail {
		if s.IsFilled(domain.SlotPreviousEmail) {
			return domain.Response(domain.ResponseAskUsePreviousEmail)
		}
		return domain.Response(domain.ResponseAskEmail)
	}
	return domain.Response(domain.AskResponse(slot))
}
