package validator

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aretw0/servicedesk/internal/logging"
	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/aretw0/servicedesk/pkg/ports"
)

// Validator maps a raw candidate for one slot to a verdict.
// Validators read the session but never write to it.
type Validator interface {
	Validate(ctx context.Context, slot string, candidate domain.Candidate, session *domain.Session) domain.Verdict
}

// Func adapts a plain function to the Validator interface.
type Func func(ctx context.Context, slot string, candidate domain.Candidate, session *domain.Session) domain.Verdict

// Validate calls f.
func (f Func) Validate(ctx context.Context, slot string, candidate domain.Candidate, session *domain.Session) domain.Verdict {
	return f(ctx, slot, candidate, session)
}

// Config holds the collaborators the validators need.
type Config struct {
	// Tickets resolves emails to caller ids. Unused in local mode.
	Tickets ports.TicketClient
	// LocalMode accepts any non-empty email without contacting the backend.
	LocalMode bool
	// Vocabulary lists the accepted priority labels.
	Vocabulary domain.PriorityVocabulary
	Logger     *slog.Logger
}

// Registry dispatches validation by slot name.
// Slots without a dedicated validator accept any non-empty text.
type Registry struct {
	validators map[string]Validator
	fallback   Validator
	logger     *slog.Logger
}

// New builds the registry used by all three forms.
func New(cfg Config) *Registry {
	if cfg.Vocabulary == nil {
		cfg.Vocabulary = domain.DefaultPriorities
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}

	r := &Registry{
		validators: make(map[string]Validator),
		fallback:   Func(FreeText),
		logger:     cfg.Logger,
	}
	r.Register(domain.SlotEmail, &Email{Tickets: cfg.Tickets, LocalMode: cfg.LocalMode})
	r.Register(domain.SlotPriority, &Priority{Vocabulary: cfg.Vocabulary})
	r.Register(domain.SlotConfirm, Func(Confirmation))
	r.Register(domain.SlotConfirmFeedback, Func(Confirmation))
	return r
}

// Register sets (or replaces) the validator of a slot.
func (r *Registry) Register(slot string, v Validator) {
	r.validators[slot] = v
}

// Validate runs the validator registered for slot.
func (r *Registry) Validate(ctx context.Context, slot string, candidate domain.Candidate, session *domain.Session) domain.Verdict {
	v, ok := r.validators[slot]
	if !ok {
		v = r.fallback
	}
	verdict := v.Validate(ctx, slot, candidate, session)
	r.logger.Debug("slot validated",
		"slot", slot,
		"candidate_kind", candidate.Kind,
		"verdict", verdict.Kind,
	)
	return verdict
}

// Confirmation accepts yes/no answers for confirm-style slots.
// Unrecognised text asks again.
func Confirmation(_ context.Context, slot string, candidate domain.Candidate, _ *domain.Session) domain.Verdict {
	switch candidate.Kind {
	case domain.CandidateConfirmation:
		return domain.Accept(candidate.Affirmed, nil)
	case domain.CandidateText:
		if v, ok := domain.ParseConfirmation(candidate.Text); ok {
			return domain.Accept(v, nil)
		}
	}
	return domain.Clear(slot)
}

// FreeText accepts any non-empty value as trimmed text.
func FreeText(_ context.Context, slot string, candidate domain.Candidate, _ *domain.Session) domain.Verdict {
	if candidate.Kind == domain.CandidateConfirmation {
		return domain.Accept(candidate.String(), nil)
	}
	text := strings.TrimSpace(candidate.Text)
	if text == "" {
		return domain.Clear(slot)
	}
	return domain.Accept(text, nil)
}
