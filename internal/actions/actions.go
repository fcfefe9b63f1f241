// Package actions implements the terminal actions run when a form completes.
package actions

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/aretw0/servicedesk/internal/logging"
	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/aretw0/servicedesk/pkg/ports"
)

// StatusPicker chooses the simulated incident state in local mode.
type StatusPicker func() domain.IncidentState

// RandomStatus picks uniformly from domain.IncidentStates.
func RandomStatus() domain.IncidentState {
	return domain.IncidentStates[rand.IntN(len(domain.IncidentStates))]
}

// Config holds the collaborators of the terminal actions.
type Config struct {
	Tickets    ports.TicketClient
	Records    ports.RecordStore
	LocalMode  bool
	Vocabulary domain.PriorityVocabulary
	PickStatus StatusPicker
	Logger     *slog.Logger
}

// Dispatcher runs terminal actions by kind. It is safe for concurrent use.
type Dispatcher struct {
	tickets    ports.TicketClient
	records    ports.RecordStore
	localMode  bool
	vocabulary domain.PriorityVocabulary
	pickStatus StatusPicker
	logger     *slog.Logger
}

var _ ports.ActionDispatcher = (*Dispatcher)(nil)

// New creates a Dispatcher. Without a ticket client it runs in local mode.
func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		tickets:    cfg.Tickets,
		records:    cfg.Records,
		localMode:  cfg.LocalMode || cfg.Tickets == nil,
		vocabulary: cfg.Vocabulary,
		pickStatus: cfg.PickStatus,
		logger:     cfg.Logger,
	}
	if d.vocabulary == nil {
		d.vocabulary = domain.DefaultPriorities
	}
	if d.pickStatus == nil {
		d.pickStatus = RandomStatus
	}
	if d.logger == nil {
		d.logger = logging.NewNop()
	}
	return d
}

// Dispatch runs the action selected by kind.
func (d *Dispatcher) Dispatch(ctx context.Context, kind domain.ActionKind, in domain.ActionInput) (domain.ActionResult, error) {
	if in.Session == nil {
		in.Session = domain.NewSession(in.SessionID)
	}

	var res domain.ActionResult
	switch kind {
	case domain.ActionOpenIncident:
		res = d.openIncident(ctx, in)
	case domain.ActionCheckIncidentStatus:
		res = d.checkIncidentStatus(ctx, in)
	case domain.ActionSendFeedback:
		res = d.sendFeedback(ctx, in)
	default:
		return domain.ActionResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownAction, kind)
	}

	if res.Err != nil {
		d.logger.Warn("terminal action failed",
			"action", kind,
			"session_id", in.SessionID,
			"error", res.Err,
		)
	}
	return res, nil
}

func cancelled(email, response string) domain.ActionResult {
	return domain.ActionResult{
		Status:   domain.StatusCancelled,
		Messages: []domain.Message{domain.Response(response)},
		Email:    email,
	}
}

func completed(email string, text string) domain.ActionResult {
	return domain.ActionResult{
		Status:   domain.StatusCompleted,
		Messages: []domain.Message{domain.Text(text)},
		Email:    email,
	}
}
