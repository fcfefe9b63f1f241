package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aretw0/servicedesk/internal/logging"
	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/aretw0/servicedesk/pkg/ports"
)

// SlotValidator validates the candidate offered for one slot.
type SlotValidator interface {
	Validate(ctx context.Context, slot string, candidate domain.Candidate, session *domain.Session) domain.Verdict
}

// Coordinator drives one form instance per turn. It keeps no session state
// between calls and is safe for concurrent use.
type Coordinator struct {
	validators SlotValidator
	actions    ports.ActionDispatcher
	records    ports.RecordStore
	publisher  ports.EventPublisher
	forms      map[domain.FormName]Form
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
}

var _ ports.Coordinator = (*Coordinator)(nil)

// Option configures the Coordinator.
type Option func(*Coordinator)

// WithRecordStore sets the store that bootstrap reads the remembered email from.
func WithRecordStore(records ports.RecordStore) Option {
	return func(c *Coordinator) {
		c.records = records
	}
}

// WithPublisher streams terminal outcomes.
func WithPublisher(p ports.EventPublisher) Option {
	return func(c *Coordinator) {
		c.publisher = p
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Coordinator) {
		c.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithForm registers (or replaces) a form definition.
func WithForm(f Form) Option {
	return func(c *Coordinator) {
		c.forms[f.Name] = f
	}
}

// NewCoordinator creates a coordinator serving DefaultForms.
func NewCoordinator(validators SlotValidator, actions ports.ActionDispatcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		validators: validators,
		actions:    actions,
		forms:      make(map[domain.FormName]Form),
		logger:     logging.NewNop(),
	}
	for _, f := range DefaultForms() {
		c.forms[f.Name] = f
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Forms returns the registered forms sorted by name.
func (c *Coordinator) Forms() []Form {
	out := make([]Form, 0, len(c.forms))
	for _, f := range c.forms {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Turn processes one user turn for req.Form.
//
// The only error returned is domain.ErrUnknownForm (or ErrUnknownAction for a
// misconfigured form); every user-facing failure is reported through messages.
func (c *Coordinator) Turn(ctx context.Context, req domain.TurnRequest) (*domain.TurnResult, error) {
	form, ok := c.forms[req.Form]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownForm, req.Form)
	}

	session := domain.NewSession(req.SessionID)
	for k, v := range req.Slots {
		session.Slots[k] = v
	}

	res := &domain.TurnResult{}

	if req.RequestedSlot != "" {
		verdict := c.validators.Validate(ctx, req.RequestedSlot, req.Candidate, session.Snapshot())
		events, msg := translate(req.RequestedSlot, verdict)
		if !msg.IsZero() {
			res.Messages = append(res.Messages, msg)
		}
		res.Events = append(res.Events, events...)
		session.Apply(events...)

		if c.hooks.OnValidation != nil {
			c.hooks.OnValidation(ctx, &domain.ValidationEvent{
				Timestamp: time.Now(),
				SessionID: req.SessionID,
				Form:      form.Name,
				Slot:      req.RequestedSlot,
				Verdict:   verdict.Kind,
			})
		}
	}

	if next := form.NextSlot(session); next != "" {
		res.Status = domain.StatusAwaitingSlot
		res.RequestedSlot = next
		res.Messages = append(res.Messages, Prompt(next, session))
		c.finishTurn(ctx, req, res)
		return res, nil
	}

	if err := c.complete(ctx, form, session, res); err != nil {
		return nil, err
	}
	c.finishTurn(ctx, req, res)
	return res, nil
}

// complete runs the terminal action of a filled form and resets transient
// slots, carrying the used email over as previous_email.
func (c *Coordinator) complete(ctx context.Context, form Form, session *domain.Session, res *domain.TurnResult) error {
	res.Status = domain.StatusAllSlotsFilled
	res.Action = form.Action

	start := time.Now()
	out, err := c.actions.Dispatch(ctx, form.Action, domain.ActionInput{
		SessionID: session.SessionID,
		Session:   session.Snapshot(),
	})
	if err != nil {
		return fmt.Errorf("form %s: %w", form.Name, err)
	}

	res.Status = out.Status
	res.Messages = append(res.Messages, out.Messages...)
	res.Events = append(res.Events, domain.ClearAllSlots())
	if out.Email != "" {
		res.Events = append(res.Events, domain.SetSlot(domain.SlotPreviousEmail, out.Email))
	}

	if c.hooks.OnAction != nil {
		c.hooks.OnAction(ctx, &domain.ActionEvent{
			Timestamp: time.Now(),
			SessionID: session.SessionID,
			Action:    string(form.Action),
			Status:    out.Status,
			IsError:   out.Err != nil,
			Duration:  time.Since(start),
		})
	}

	c.publish(ctx, form, session.SessionID, out)
	return nil
}

func (c *Coordinator) publish(ctx context.Context, form Form, sessionID string, out domain.ActionResult) {
	if c.publisher == nil {
		return
	}

	outcome := domain.Outcome{
		Timestamp:      time.Now(),
		SessionID:      sessionID,
		Form:           form.Name,
		Action:         string(form.Action),
		Status:         out.Status,
		Email:          out.Email,
		IncidentNumber: out.IncidentNumber,
	}
	if out.Err != nil {
		outcome.Error = out.Err.Error()
	}

	if err := c.publisher.Publish(ctx, outcome); err != nil {
		c.logger.WarnContext(ctx, "failed to publish outcome",
			"session_id", sessionID,
			"form", form.Name,
			"error", err,
		)
	}
}

func (c *Coordinator) finishTurn(ctx context.Context, req domain.TurnRequest, res *domain.TurnResult) {
	c.logger.DebugContext(ctx, "turn processed",
		"session_id", req.SessionID,
		"form", req.Form,
		"requested_slot", req.RequestedSlot,
		"status", res.Status,
		"next_slot", res.RequestedSlot,
	)

	if c.hooks.OnTurn != nil {
		c.hooks.OnTurn(ctx, &domain.TurnEvent{
			Timestamp:     time.Now(),
			SessionID:     req.SessionID,
			Form:          req.Form,
			RequestedSlot: res.RequestedSlot,
			Status:        res.Status,
		})
	}
}

// translate turns a verdict into the events that apply it.
// A rejection unsets the slot so it is asked again.
func translate(slot string, v domain.Verdict) ([]domain.Event, domain.Message) {
	switch v.Kind {
	case domain.VerdictAccepted:
		events := []domain.Event{domain.SetSlot(slot, v.Value)}
		keys := make([]string, 0, len(v.Derived))
		for k := range v.Derived {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			events = append(events, domain.SetSlot(k, v.Derived[k]))
		}
		return events, domain.Message{}
	case domain.VerdictRejected:
		return []domain.Event{domain.SetSlot(slot, nil)}, v.Message
	default:
		slots := v.Slots
		if len(slots) == 0 {
			slots = []string{slot}
		}
		events := make([]domain.Event, 0, len(slots))
		for _, s := range slots {
			events = append(events, domain.SetSlot(s, nil))
		}
		return events, domain.Message{}
	}
}
