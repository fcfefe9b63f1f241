package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/servicedesk/internal/actions"
	"github.com/aretw0/servicedesk/internal/runtime"
	"github.com/aretw0/servicedesk/internal/validator"
	"github.com/aretw0/servicedesk/pkg/adapters/memory"
	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/aretw0/servicedesk/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTickets struct {
	lookup    ports.UserLookup
	number    string
	incidents []domain.Incident

	mu      sync.Mutex
	created int
}

func (f *fakeTickets) LookupUserByEmail(context.Context, string) ports.UserLookup {
	return f.lookup
}

func (f *fakeTickets) PriorityVocabulary() domain.PriorityVocabulary {
	return domain.DefaultPriorities
}

func (f *fakeTickets) CreateIncident(context.Context, domain.NewIncident) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return f.number, nil
}

func (f *fakeTickets) RetrieveIncidentsByEmail(context.Context, string) ([]domain.Incident, error) {
	return f.incidents, nil
}

type recordingPublisher struct {
	outcomes []domain.Outcome
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, o domain.Outcome) error {
	p.outcomes = append(p.outcomes, o)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func newCoordinator(tickets ports.TicketClient, local bool, records ports.RecordStore, opts ...runtime.Option) *runtime.Coordinator {
	v := validator.New(validator.Config{Tickets: tickets, LocalMode: local})
	a := actions.New(actions.Config{Tickets: tickets, Records: records, LocalMode: local})
	return runtime.NewCoordinator(v, a, append([]runtime.Option{runtime.WithRecordStore(records)}, opts...)...)
}

// converse plays answers against a form the way a stateful host would.
func converse(t *testing.T, c *runtime.Coordinator, form domain.FormName, session *domain.Session, answers ...domain.Candidate) *domain.TurnResult {
	t.Helper()
	ctx := context.Background()

	res, err := c.Turn(ctx, domain.TurnRequest{SessionID: session.SessionID, Form: form, Slots: session.Slots})
	require.NoError(t, err)
	session.Apply(res.Events...)

	for _, answer := range answers {
		require.Equal(t, domain.StatusAwaitingSlot, res.Status, "form ended before all answers were given")
		res, err = c.Turn(ctx, domain.TurnRequest{
			SessionID:     session.SessionID,
			Form:          form,
			RequestedSlot: res.RequestedSlot,
			Candidate:     answer,
			Slots:         session.Slots,
		})
		require.NoError(t, err)
		session.Apply(res.Events...)
	}
	return res
}

func TestTurn_UnknownForm(t *testing.T) {
	c := newCoordinator(nil, true, memory.NewRecords())
	_, err := c.Turn(context.Background(), domain.TurnRequest{SessionID: "s", Form: "order_pizza_form"})
	assert.ErrorIs(t, err, domain.ErrUnknownForm)
}

func TestTurn_FirstPrompt(t *testing.T) {
	c := newCoordinator(nil, true, memory.NewRecords())

	res, err := c.Turn(context.Background(), domain.TurnRequest{SessionID: "s", Form: domain.FormOpenIncident})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAwaitingSlot, res.Status)
	assert.Equal(t, domain.SlotEmail, res.RequestedSlot)
	assert.Equal(t, []domain.Message{domain.Response(domain.ResponseAskEmail)}, res.Messages)
	assert.Empty(t, res.Events)

	res, err = c.Turn(context.Background(), domain.TurnRequest{
		SessionID: "s",
		Form:      domain.FormOpenIncident,
		Slots:     map[string]any{domain.SlotPreviousEmail: "old@b.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Message{domain.Response(domain.ResponseAskUsePreviousEmail)}, res.Messages)
}

func TestTurn_FeedbackAsksDescriptionFirst(t *testing.T) {
	c := newCoordinator(nil, true, memory.NewRecords())

	res, err := c.Turn(context.Background(), domain.TurnRequest{SessionID: "s", Form: domain.FormFeedback})
	require.NoError(t, err)
	assert.Equal(t, domain.SlotFeedbackDescription, res.RequestedSlot)
	assert.Equal(t, []domain.Message{domain.Response("utter_ask_feedback_description")}, res.Messages)
}

// Offline incident: the preview echoes the collected slots.
func TestScenario_OfflineOpenIncident(t *testing.T) {
	records := memory.NewRecords()
	c := newCoordinator(nil, true, records)
	session := domain.NewSession("sess-1")

	res := converse(t, c, domain.FormOpenIncident, session,
		domain.TextCandidate("a@b.com"),
		domain.TextCandidate("high"),
		domain.TextCandidate("my disk is full"),
		domain.TextCandidate("disk full"),
		domain.ConfirmationCandidate(true),
	)

	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, domain.ActionOpenIncident, res.Action)
	require.Len(t, res.Messages, 1)
	assert.Regexp(t, `^An incident with the following details would be opened`, res.Messages[0].Text)
	assert.Contains(t, res.Messages[0].Text, "email: a@b.com")

	assert.Equal(t, map[string]any{domain.SlotPreviousEmail: "a@b.com"}, session.Slots)
	assert.Empty(t, records.All(domain.KindUsers), "local mode opens nothing")
}

// Online status check: one incident renders one line.
func TestScenario_OnlineIncidentStatus(t *testing.T) {
	tickets := &fakeTickets{
		lookup: ports.UserLookup{CallerID: "caller-1"},
		incidents: []domain.Incident{
			{Number: "INC001", ShortDescription: "disk full", OpenedAt: "2020-01-01", State: domain.IncidentNew},
		},
	}
	c := newCoordinator(tickets, false, memory.NewRecords())
	session := domain.NewSession("sess-1")

	res := converse(t, c, domain.FormIncidentStatus, session, domain.TextCandidate("a@b.com"))

	assert.Equal(t, domain.StatusCompleted, res.Status)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, `Incident INC001: "disk full", opened on 2020-01-01 is currently awaiting triage`, res.Messages[0].Text)
	assert.Equal(t, []domain.Event{
		domain.SetSlot(domain.SlotEmail, "a@b.com"),
		domain.SetSlot(domain.SlotCallerID, "caller-1"),
		domain.ClearAllSlots(),
		domain.SetSlot(domain.SlotPreviousEmail, "a@b.com"),
	}, res.Events)
}

// Ambiguous caller: the email is rejected and asked again.
func TestScenario_AmbiguousEmail(t *testing.T) {
	tickets := &fakeTickets{lookup: ports.UserLookup{Matches: []string{"id-1", "id-2"}}}
	c := newCoordinator(tickets, false, memory.NewRecords())
	session := domain.NewSession("sess-1")

	res := converse(t, c, domain.FormIncidentStatus, session, domain.TextCandidate("a@b.com"))

	assert.Equal(t, domain.StatusAwaitingSlot, res.Status)
	assert.Equal(t, domain.SlotEmail, res.RequestedSlot)
	assert.Equal(t, domain.Response(domain.ResponseNoEmail), res.Messages[0])
	assert.Contains(t, res.Events, domain.SetSlot(domain.SlotEmail, nil))
	assert.False(t, session.IsFilled(domain.SlotEmail))
}

// Declined feedback: nothing stored, form cancelled.
func TestScenario_FeedbackDeclined(t *testing.T) {
	records := memory.NewRecords()
	c := newCoordinator(nil, true, records)
	session := domain.NewSession("sess-1")

	res := converse(t, c, domain.FormFeedback, session,
		domain.TextCandidate("great bot"),
		domain.TextCandidate("a@b.com"),
		domain.ConfirmationCandidate(false),
	)

	assert.Equal(t, domain.StatusCancelled, res.Status)
	assert.Equal(t, []domain.Message{domain.Response(domain.ResponseFeedbackSendingCanceled)}, res.Messages)
	assert.Empty(t, records.All(domain.KindFeedback))
	assert.Equal(t, "a@b.com", session.SlotString(domain.SlotPreviousEmail))
}

func TestTurn_CancelledIncidentSkipsBackend(t *testing.T) {
	tickets := &fakeTickets{lookup: ports.UserLookup{CallerID: "c"}, number: "INC9"}
	c := newCoordinator(tickets, false, memory.NewRecords())
	session := domain.NewSession("sess-1")

	res := converse(t, c, domain.FormOpenIncident, session,
		domain.TextCandidate("a@b.com"),
		domain.TextCandidate("low"),
		domain.TextCandidate("printer jammed"),
		domain.TextCandidate("printer"),
		domain.TextCandidate("no"),
	)

	assert.Equal(t, domain.StatusCancelled, res.Status)
	assert.Equal(t, 0, tickets.created)
	assert.Equal(t, map[string]any{domain.SlotPreviousEmail: "a@b.com"}, session.Slots)
}

func TestTurn_RejectedPriorityReasks(t *testing.T) {
	c := newCoordinator(nil, true, memory.NewRecords())

	res, err := c.Turn(context.Background(), domain.TurnRequest{
		SessionID:     "s",
		Form:          domain.FormOpenIncident,
		RequestedSlot: domain.SlotPriority,
		Candidate:     domain.TextCandidate("urgent"),
		Slots:         map[string]any{domain.SlotEmail: "a@b.com", domain.SlotPriority: "urgent"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusAwaitingSlot, res.Status)
	assert.Equal(t, domain.SlotPriority, res.RequestedSlot)
	assert.Equal(t, []domain.Message{
		domain.Response(domain.ResponseNoPriority),
		domain.Response("utter_ask_priority"),
	}, res.Messages)
	assert.Equal(t, []domain.Event{domain.SetSlot(domain.SlotPriority, nil)}, res.Events)
}

func TestTurn_EmptyEmailClearsCarryOver(t *testing.T) {
	c := newCoordinator(nil, true, memory.NewRecords())

	res, err := c.Turn(context.Background(), domain.TurnRequest{
		SessionID:     "s",
		Form:          domain.FormIncidentStatus,
		RequestedSlot: domain.SlotEmail,
		Candidate:     domain.ConfirmationCandidate(false),
		Slots:         map[string]any{domain.SlotPreviousEmail: "old@b.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, []domain.Event{
		domain.SetSlot(domain.SlotEmail, nil),
		domain.SetSlot(domain.SlotPreviousEmail, nil),
	}, res.Events)
	assert.Equal(t, domain.Response(domain.ResponseAskEmail), res.Messages[0], "carry-over is gone so a fresh email is asked")
}

func TestTurn_ReusePreviousEmail(t *testing.T) {
	c := newCoordinator(nil, true, memory.NewRecords())
	session := domain.NewSession("sess-1")
	session.Slots[domain.SlotPreviousEmail] = "old@b.com"

	res := converse(t, c, domain.FormIncidentStatus, session, domain.ConfirmationCandidate(true))

	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Contains(t, res.Messages[0].Text, "The most recent incident for old@b.com")
	assert.Equal(t, "old@b.com", session.SlotString(domain.SlotPreviousEmail))
}

func TestTurn_HooksAndPublisher(t *testing.T) {
	var turns, validations, actionsRun int
	var lastAction *domain.ActionEvent
	hooks := domain.LifecycleHooks{
		OnTurn:       func(context.Context, *domain.TurnEvent) { turns++ },
		OnValidation: func(context.Context, *domain.ValidationEvent) { validations++ },
		OnAction: func(_ context.Context, e *domain.ActionEvent) {
			actionsRun++
			lastAction = e
		},
	}
	pub := &recordingPublisher{err: errors.New("broker down")}

	c := newCoordinator(nil, true, memory.NewRecords(),
		runtime.WithLifecycleHooks(hooks),
		runtime.WithPublisher(pub),
	)
	session := domain.NewSession("sess-1")

	res := converse(t, c, domain.FormIncidentStatus, session, domain.TextCandidate("a@b.com"))
	assert.Equal(t, domain.StatusCompleted, res.Status, "publish failures never fail the turn")

	assert.Equal(t, 2, turns)
	assert.Equal(t, 1, validations)
	assert.Equal(t, 1, actionsRun)
	require.NotNil(t, lastAction)
	assert.Equal(t, string(domain.ActionCheckIncidentStatus), lastAction.Action)

	require.Len(t, pub.outcomes, 1)
	assert.Equal(t, domain.FormIncidentStatus, pub.outcomes[0].Form)
	assert.Equal(t, "a@b.com", pub.outcomes[0].Email)
	assert.Equal(t, domain.StatusCompleted, pub.outcomes[0].Status)
}

func TestTurn_CustomForm(t *testing.T) {
	c := newCoordinator(nil, true, memory.NewRecords(), runtime.WithForm(runtime.Form{
		Name:   "quick_status_form",
		Slots:  []string{domain.SlotEmail},
		Action: domain.ActionCheckIncidentStatus,
	}))

	res, err := c.Turn(context.Background(), domain.TurnRequest{
		SessionID: "s",
		Form:      "quick_status_form",
		Slots:     map[string]any{domain.SlotEmail: "a@b.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Len(t, c.Forms(), 4)
}

func TestTurn_ConcurrentSessions(t *testing.T) {
	tickets := &fakeTickets{lookup: ports.UserLookup{CallerID: "c"}, number: "INC1"}
	c := newCoordinator(tickets, false, memory.NewRecords())

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.Turn(context.Background(), domain.TurnRequest{
				SessionID: "sess",
				Form:      domain.FormOpenIncident,
				Slots: map[string]any{
					domain.SlotEmail:              "a@b.com",
					domain.SlotPriority:           "high",
					domain.SlotProblemDescription: "d",
					domain.SlotIncidentTitle:      "t",
					domain.SlotConfirm:            i%2 == 0,
				},
			})
			assert.NoError(t, err)
			assert.True(t, res.Status.IsTerminal())
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 8, tickets.created)
}
