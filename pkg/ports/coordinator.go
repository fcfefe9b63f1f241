package ports

import (
	"context"

	"github.com/aretw0/servicedesk/pkg/domain"
)

// Coordinator is the stateless turn processor used by the driving adapters
// (HTTP, MCP, chat). It keeps no session state between calls.
type Coordinator interface {
	// Bootstrap returns the events that open a new conversation.
	Bootstrap(ctx context.Context, sessionID string) []domain.Event

	// Turn validates the candidate, advances the form and, once every slot
	// is filled, runs its terminal action.
	Turn(ctx context.Context, req domain.TurnRequest) (*domain.TurnResult, error)
}
