package ports

import (
	"context"

	"github.com/aretw0/servicedesk/pkg/domain"
)

// RecordStore is the single persistence client of the action layer.
// Records are append-only: there is no update or delete path.
type RecordStore interface {
	// Find returns the most recently inserted record of the given kind whose
	// fields equal every entry of filter. The boolean is false when none matches.
	Find(ctx context.Context, kind domain.RecordKind, filter domain.Record) (domain.Record, bool, error)

	// Insert appends a record to the given kind.
	Insert(ctx context.Context, kind domain.RecordKind, record domain.Record) error
}
