package ports

import (
	"context"

	"github.com/aretw0/servicedesk/pkg/domain"
)

// UserLookup is the result of resolving an email to a caller id.
// Exactly one of the three branches holds:
//   - CallerID is set: a single user matched.
//   - Matches is non-nil: zero or several users matched (no single user).
//   - Err is set: the backend failed; its text is shown to the user.
type UserLookup struct {
	CallerID string
	Matches  []string
	Err      error
}

// TicketClient issues calls to the ITSM backend.
// Implementations perform single-attempt calls without retries.
type TicketClient interface {
	// LookupUserByEmail resolves an email to the backend's caller id.
	LookupUserByEmail(ctx context.Context, email string) UserLookup

	// PriorityVocabulary returns the mapping of human labels to backend codes.
	PriorityVocabulary() domain.PriorityVocabulary

	// CreateIncident opens an incident and returns its number.
	CreateIncident(ctx context.Context, incident domain.NewIncident) (string, error)

	// RetrieveIncidentsByEmail lists the incidents raised by the given caller.
	RetrieveIncidentsByEmail(ctx context.Context, email string) ([]domain.Incident, error)
}
