package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/servicedesk/internal/logging"
	"github.com/aretw0/servicedesk/internal/runtime"
	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/aretw0/servicedesk/pkg/responses"
	"github.com/aretw0/servicedesk/pkg/session"
)

// DefaultSessionID is the sender id used when none is configured.
const DefaultSessionID = "cli"

// HelpText lists the chat commands.
const HelpText = `Commands:
  /incident  open a new incident
  /status    check the status of your incidents
  /feedback  send feedback
  /cancel    abandon the current form
  /help      show this message
  exit       leave the chat`

var formCommands = map[string]domain.FormName{
	"/incident": domain.FormOpenIncident,
	"/status":   domain.FormIncidentStatus,
	"/feedback": domain.FormFeedback,
}

// Runner drives an interactive conversation over a session manager.
// Commands pick a form; every other line answers the slot being asked for.
type Runner struct {
	sessions  *session.Manager
	handler   IOHandler
	catalog   *responses.Catalog
	renderer  ContentRenderer
	logger    *slog.Logger
	sessionID string
}

// NewRunner creates a Runner reading stdin and writing stdout unless
// WithInputHandler says otherwise.
func NewRunner(sessions *session.Manager, opts ...Option) *Runner {
	r := &Runner{
		sessions:  sessions,
		logger:    logging.NewNop(),
		sessionID: DefaultSessionID,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.catalog == nil {
		r.catalog = responses.Default()
	}
	if r.handler == nil {
		r.handler = NewTextHandler(nil, nil, WithTextHandlerRenderer(r.renderer))
	}
	return r
}

// Run loops until the user exits, the input ends or ctx is cancelled.
//
// An interrupt while a form is in progress cancels the form; an interrupt
// with no form in progress ends the chat.
func (r *Runner) Run(ctx context.Context) error {
	signals := NewSignalManager(ctx)
	defer signals.Stop()

	s, started, err := r.sessions.Start(ctx, r.sessionID)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	r.logger.InfoContext(ctx, "chat started", "session_id", r.sessionID, "resumed", !started)

	if started {
		r.say(ctx, HelpText)
	} else {
		r.system(ctx, fmt.Sprintf("Resumed session %s.", r.sessionID))
		if s.ActiveForm != "" && s.RequestedSlot != "" {
			r.say(ctx, r.catalog.Render(runtime.Prompt(s.RequestedSlot, s), s.Slots))
		}
	}

	for {
		line, err := r.handler.Input(signals.Context())
		if err != nil {
			if errors.Is(err, io.EOF) {
				signals.CheckRace()
			}
			if signals.Interrupted() {
				signals.Reset()
				if s.ActiveForm == "" {
					return nil
				}
				if s, err = r.cancel(ctx); err != nil {
					return err
				}
				continue
			}
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		var done bool
		s, done, err = r.handle(ctx, s, line)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func (r *Runner) handle(ctx context.Context, s *domain.Session, line string) (*domain.Session, bool, error) {
	cmd := strings.ToLower(strings.TrimSpace(line))
	switch cmd {
	case "exit", "quit":
		return s, true, nil
	case "/help":
		r.say(ctx, HelpText)
		return s, false, nil
	case "/cancel":
		if s.ActiveForm == "" {
			r.system(ctx, "No form in progress.")
			return s, false, nil
		}
		next, err := r.cancel(ctx)
		return next, false, err
	}

	if form, ok := formCommands[cmd]; ok {
		if s.ActiveForm == form {
			// Restarting the same form; the manager would otherwise treat
			// the command as an answer.
			var err error
			if s, err = r.sessions.Cancel(ctx, r.sessionID); err != nil {
				return s, false, err
			}
		}
		return r.turn(ctx, s, form, domain.AbsentCandidate())
	}

	if strings.HasPrefix(cmd, "/") {
		r.system(ctx, fmt.Sprintf("Unknown command %s. Type /help for the list.", cmd))
		return s, false, nil
	}
	if s.ActiveForm == "" {
		r.system(ctx, "No form in progress. Type /incident, /status or /feedback to begin.")
		return s, false, nil
	}
	return r.turn(ctx, s, "", CandidateFor(s, line))
}

func (r *Runner) turn(ctx context.Context, s *domain.Session, form domain.FormName, c domain.Candidate) (*domain.Session, bool, error) {
	next, res, err := r.sessions.Turn(ctx, r.sessionID, form, c)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownForm) {
			r.system(ctx, err.Error())
			return s, false, nil
		}
		return s, false, fmt.Errorf("turn failed: %w", err)
	}

	msgs := make([]string, 0, len(res.Messages))
	for _, m := range res.Messages {
		msgs = append(msgs, r.catalog.Render(m, next.Slots))
	}
	if err := r.handler.Output(ctx, msgs); err != nil {
		return next, false, err
	}
	return next, false, nil
}

func (r *Runner) cancel(ctx context.Context) (*domain.Session, error) {
	s, err := r.sessions.Cancel(ctx, r.sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel form: %w", err)
	}
	r.system(ctx, "Form cancelled.")
	return s, nil
}

func (r *Runner) say(ctx context.Context, msg string) {
	if err := r.handler.Output(ctx, []string{msg}); err != nil {
		r.logger.WarnContext(ctx, "output failed", "error", err)
	}
}

func (r *Runner) system(ctx context.Context, msg string) {
	if err := r.handler.SystemOutput(ctx, msg); err != nil {
		r.logger.WarnContext(ctx, "output failed", "error", err)
	}
}

// CandidateFor maps a typed line to the candidate for the slot the session
// is asking for. Yes/no answers become confirmations on confirm slots and on
// the email slot when a previous email is on offer.
func CandidateFor(s *domain.Session, line string) domain.Candidate {
	text := strings.TrimSpace(line)
	if text == "" {
		return domain.AbsentCandidate()
	}

	offersConfirmation := false
	switch s.RequestedSlot {
	case domain.SlotConfirm, domain.SlotConfirmFeedback:
		offersConfirmation = true
	case domain.SlotEmail:
		offersConfirmation = s.IsFilled(domain.SlotPreviousEmail)
	}
	if offersConfirmation {
		if v, ok := domain.ParseConfirmation(text); ok {
			return domain.ConfirmationCandidate(v)
		}
	}
	return domain.TextCandidate(text)
}
