package validator

import (
	"context"
	"strings"

	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/aretw0/servicedesk/pkg/ports"
)

// Email validates the email slot shared by every form.
type Email struct {
	Tickets   ports.TicketClient
	LocalMode bool
}

// Validate resolves the candidate to an email and checks it against the backend.
//
// An empty candidate (or a "no" to reusing the previous email) clears both email
// and previous_email. A "yes" reuses previous_email. In local mode any non-empty
// email is accepted as-is.
func (v *Email) Validate(ctx context.Context, _ string, candidate domain.Candidate, session *domain.Session) domain.Verdict {
	var email string
	switch candidate.Kind {
	case domain.CandidateText:
		email = strings.TrimSpace(candidate.Text)
	case domain.CandidateConfirmation:
		if candidate.Affirmed {
			email = session.SlotString(domain.SlotPreviousEmail)
		}
	}

	if email == "" {
		return domain.Clear(domain.SlotEmail, domain.SlotPreviousEmail)
	}

	if v.LocalMode || v.Tickets == nil {
		return domain.Accept(email, nil)
	}

	lookup := v.Tickets.LookupUserByEmail(ctx, email)
	switch {
	case lookup.CallerID != "":
		return domain.Accept(email, map[string]any{domain.SlotCallerID: lookup.CallerID})
	case lookup.Matches != nil:
		return domain.Reject(domain.Response(domain.ResponseNoEmail))
	case lookup.Err != nil:
		return domain.Reject(domain.Text(lookup.Err.Error()))
	default:
		return domain.Reject(domain.Text("Could not look up " + email + " in the ticketing system."))
	}
}
