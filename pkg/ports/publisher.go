package ports

import (
	"context"

	"github.com/aretw0/servicedesk/pkg/domain"
)

// EventPublisher streams form outcomes to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, outcome domain.Outcome) error
	Close() error
}
