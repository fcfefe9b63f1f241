package servicedesk

import (
	"context"
	"log/slog"

	"github.com/aretw0/servicedesk/internal/actions"
	"github.com/aretw0/servicedesk/internal/logging"
	"github.com/aretw0/servicedesk/internal/runtime"
	"github.com/aretw0/servicedesk/internal/validator"
	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/aretw0/servicedesk/pkg/ports"
)

// Engine is the high-level entry point of the action layer.
// It wires the slot validators, the form coordinator and the terminal actions
// from a single set of collaborators. It is safe for concurrent use.
type Engine struct {
	coordinator *runtime.Coordinator
	actions     *actions.Dispatcher

	tickets    ports.TicketClient
	records    ports.RecordStore
	publisher  ports.EventPublisher
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	localMode  bool
	vocabulary domain.PriorityVocabulary
	pickStatus actions.StatusPicker
	forms      []runtime.Form
}

var _ ports.Coordinator = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithTicketClient sets the ITSM backend client.
func WithTicketClient(c ports.TicketClient) Option {
	return func(e *Engine) {
		e.tickets = c
	}
}

// WithRecordStore sets the store for link and feedback records.
func WithRecordStore(s ports.RecordStore) Option {
	return func(e *Engine) {
		e.records = s
	}
}

// WithPublisher streams terminal outcomes.
func WithPublisher(p ports.EventPublisher) Option {
	return func(e *Engine) {
		e.publisher = p
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLocalMode simulates the ticketing backend instead of calling it.
func WithLocalMode(local bool) Option {
	return func(e *Engine) {
		e.localMode = local
	}
}

// WithVocabulary overrides the priority vocabulary of the ticket client.
func WithVocabulary(v domain.PriorityVocabulary) Option {
	return func(e *Engine) {
		e.vocabulary = v
	}
}

// WithStatusPicker sets how local mode picks a simulated incident state.
func WithStatusPicker(p actions.StatusPicker) Option {
	return func(e *Engine) {
		e.pickStatus = p
	}
}

// WithForm registers an extra form (or replaces a default one).
func WithForm(f runtime.Form) Option {
	return func(e *Engine) {
		e.forms = append(e.forms, f)
	}
}

// New builds an Engine. Without a ticket client it always runs in local mode.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.tickets == nil {
		e.localMode = true
	}
	if e.vocabulary == nil {
		if e.localMode {
			e.vocabulary = domain.DefaultPriorities
		} else {
			e.vocabulary = e.tickets.PriorityVocabulary()
		}
	}

	v := validator.New(validator.Config{
		Tickets:    e.tickets,
		LocalMode:  e.localMode,
		Vocabulary: e.vocabulary,
		Logger:     e.logger,
	})
	e.actions = actions.New(actions.Config{
		Tickets:    e.tickets,
		Records:    e.records,
		LocalMode:  e.localMode,
		Vocabulary: e.vocabulary,
		PickStatus: e.pickStatus,
		Logger:     e.logger,
	})

	coordOpts := []runtime.Option{
		runtime.WithRecordStore(e.records),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLogger(e.logger),
	}
	if e.publisher != nil {
		coordOpts = append(coordOpts, runtime.WithPublisher(e.publisher))
	}
	for _, f := range e.forms {
		coordOpts = append(coordOpts, runtime.WithForm(f))
	}
	e.coordinator = runtime.NewCoordinator(v, e.actions, coordOpts...)

	e.logger.Debug("engine ready", "local_mode", e.localMode, "priorities", len(e.vocabulary))
	return e
}

// Bootstrap returns the events that open a new conversation.
func (e *Engine) Bootstrap(ctx context.Context, sessionID string) []domain.Event {
	return e.coordinator.Bootstrap(ctx, sessionID)
}

// Turn processes one user turn.
func (e *Engine) Turn(ctx context.Context, req domain.TurnRequest) (*domain.TurnResult, error) {
	return e.coordinator.Turn(ctx, req)
}

// Dispatch runs a terminal action directly, bypassing slot collection.
func (e *Engine) Dispatch(ctx context.Context, kind domain.ActionKind, in domain.ActionInput) (domain.ActionResult, error) {
	return e.actions.Dispatch(ctx, kind, in)
}

// Forms returns the forms the engine serves.
func (e *Engine) Forms() []runtime.Form {
	return e.coordinator.Forms()
}

// LocalMode reports whether the ticketing backend is simulated.
func (e *Engine) LocalMode() bool {
	return e.localMode
}

// Vocabulary returns the priority vocabulary in use.
func (e *Engine) Vocabulary() domain.PriorityVocabulary {
	return e.vocabulary
}
