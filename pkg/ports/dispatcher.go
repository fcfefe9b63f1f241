package ports

import (
	"context"

	"github.com/aretw0/servicedesk/pkg/domain"
)

// ActionDispatcher runs the terminal action selected by kind.
// It returns domain.ErrUnknownAction for a kind it does not handle; every
// other failure is reported inside the result.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, kind domain.ActionKind, input domain.ActionInput) (domain.ActionResult, error)
}
