package actions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/servicedesk/internal/actions"
	"github.com/aretw0/servicedesk/pkg/adapters/memory"
	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/aretw0/servicedesk/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTickets struct {
	number    string
	createErr error
	incidents []domain.Incident
	listErr   error

	created []domain.NewIncident
	listed  []string
}

func (f *fakeTickets) LookupUserByEmail(context.Context, string) ports.UserLookup {
	return ports.UserLookup{CallerID: "caller"}
}

func (f *fakeTickets) PriorityVocabulary() domain.PriorityVocabulary {
	return domain.DefaultPriorities
}

func (f *fakeTickets) CreateIncident(_ context.Context, inc domain.NewIncident) (string, error) {
	f.created = append(f.created, inc)
	return f.number, f.createErr
}

func (f *fakeTickets) RetrieveIncidentsByEmail(_ context.Context, email string) ([]domain.Incident, error) {
	f.listed = append(f.listed, email)
	return f.incidents, f.listErr
}

type failingRecords struct{}

func (failingRecords) Find(context.Context, domain.RecordKind, domain.Record) (domain.Record, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (failingRecords) Insert(context.Context, domain.RecordKind, domain.Record) error {
	return errors.New("connection refused")
}

func input(slots map[string]any) domain.ActionInput {
	s := domain.NewSession("sess-1")
	for k, v := range slots {
		s.Slots[k] = v
	}
	return domain.ActionInput{SessionID: "sess-1", Session: s}
}

func incidentSlots(confirm any) map[string]any {
	return map[string]any{
		domain.SlotEmail:              "a@b.com",
		domain.SlotPriority:           "high",
		domain.SlotProblemDescription: "my disk is full",
		domain.SlotIncidentTitle:      "disk full",
		domain.SlotConfirm:            confirm,
	}
}

func TestDispatch_UnknownKind(t *testing.T) {
	d := actions.New(actions.Config{})
	_, err := d.Dispatch(context.Background(), "reboot_server", input(nil))
	assert.ErrorIs(t, err, domain.ErrUnknownAction)
}

func TestOpenIncident_LocalPreview(t *testing.T) {
	d := actions.New(actions.Config{LocalMode: true})

	res, err := d.Dispatch(context.Background(), domain.ActionOpenIncident, input(incidentSlots(true)))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, "a@b.com", res.Email)
	require.Len(t, res.Messages, 1)
	assert.Equal(t,
		"An incident with the following details would be opened if ServiceNow was connected:\n"+
			"email: a@b.com\nproblem description: my disk is full\ntitle: disk full\npriority: high",
		res.Messages[0].Text)
}

func TestOpenIncident_Created(t *testing.T) {
	tickets := &fakeTickets{number: "INC0010001"}
	records := memory.NewRecords()
	d := actions.New(actions.Config{Tickets: tickets, Records: records})

	res, err := d.Dispatch(context.Background(), domain.ActionOpenIncident, input(incidentSlots(true)))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, "INC0010001", res.IncidentNumber)
	assert.Equal(t, "Successfully opened up incident INC0010001 for you. Someone will reach out soon.", res.Messages[0].Text)

	require.Len(t, tickets.created, 1)
	assert.Equal(t, domain.NewIncident{
		Description:      "my disk is full",
		ShortDescription: "disk full",
		PriorityCode:     "2",
		Email:            "a@b.com",
	}, tickets.created[0])

	links := records.All(domain.KindUsers)
	require.Len(t, links, 1)
	var link domain.LinkRecord
	require.NoError(t, domain.DecodeRecord(links[0], &link))
	assert.Equal(t, domain.LinkRecord{IncidentNumber: "INC0010001", Email: "a@b.com", SessionID: "sess-1"}, link)
}

func TestOpenIncident_BackendError(t *testing.T) {
	tickets := &fakeTickets{createErr: domain.NewBackendError(403, "Operation Failed")}
	records := memory.NewRecords()
	d := actions.New(actions.Config{Tickets: tickets, Records: records})

	res, err := d.Dispatch(context.Background(), domain.ActionOpenIncident, input(incidentSlots(true)))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, "Something went wrong while opening an incident for you. Operation Failed", res.Messages[0].Text)
	assert.Error(t, res.Err)
	assert.Empty(t, records.All(domain.KindUsers))
}

func TestOpenIncident_LinkFailureStillSucceeds(t *testing.T) {
	d := actions.New(actions.Config{Tickets: &fakeTickets{number: "INC1"}, Records: failingRecords{}})

	res, err := d.Dispatch(context.Background(), domain.ActionOpenIncident, input(incidentSlots(true)))
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Text, "Successfully opened up incident INC1")
}

func TestConfirmGate(t *testing.T) {
	tests := []struct {
		name     string
		kind     domain.ActionKind
		slots    map[string]any
		response string
	}{
		{"Open Incident Denied", domain.ActionOpenIncident, incidentSlots(false), domain.ResponseIncidentCreationCanceled},
		{"Open Incident Unset", domain.ActionOpenIncident, incidentSlots(nil), domain.ResponseIncidentCreationCanceled},
		{"Open Incident Text No", domain.ActionOpenIncident, incidentSlots("no"), domain.ResponseIncidentCreationCanceled},
		{
			"Feedback Denied", domain.ActionSendFeedback,
			map[string]any{
				domain.SlotFeedbackDescription: "meh",
				domain.SlotEmail:               "a@b.com",
				domain.SlotConfirmFeedback:     false,
			},
			domain.ResponseFeedbackSendingCanceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tickets := &fakeTickets{number: "INC1"}
			records := memory.NewRecords()
			d := actions.New(actions.Config{Tickets: tickets, Records: records})

			res, err := d.Dispatch(context.Background(), tt.kind, input(tt.slots))
			require.NoError(t, err)

			assert.Equal(t, domain.StatusCancelled, res.Status)
			assert.Equal(t, []domain.Message{domain.Response(tt.response)}, res.Messages)
			assert.Equal(t, "a@b.com", res.Email)
			assert.Empty(t, tickets.created)
			assert.Empty(t, records.All(domain.KindUsers))
			assert.Empty(t, records.All(domain.KindFeedback))
		})
	}
}

func TestCheckIncidentStatus_Online(t *testing.T) {
	tickets := &fakeTickets{incidents: []domain.Incident{
		{Number: "INC001", ShortDescription: "disk full", OpenedAt: "2020-01-01", State: domain.IncidentNew},
	}}
	d := actions.New(actions.Config{Tickets: tickets})

	res, err := d.Dispatch(context.Background(), domain.ActionCheckIncidentStatus, input(map[string]any{domain.SlotEmail: "a@b.com"}))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, `Incident INC001: "disk full", opened on 2020-01-01 is currently awaiting triage`, res.Messages[0].Text)
	assert.Equal(t, []string{"a@b.com"}, tickets.listed)
}

func TestCheckIncidentStatus_MultipleLines(t *testing.T) {
	tickets := &fakeTickets{incidents: []domain.Incident{
		{Number: "INC001", ShortDescription: "disk full", OpenedAt: "2020-01-01", State: domain.IncidentClosed},
		{Number: "INC002", ShortDescription: "vpn down", OpenedAt: "2020-02-01", State: domain.IncidentOnHold},
	}}
	d := actions.New(actions.Config{Tickets: tickets})

	res, err := d.Dispatch(context.Background(), domain.ActionCheckIncidentStatus, input(map[string]any{domain.SlotEmail: "a@b.com"}))
	require.NoError(t, err)

	assert.Equal(t,
		"Incident INC001: \"disk full\", opened on 2020-01-01 has been closed\n"+
			"Incident INC002: \"vpn down\", opened on 2020-02-01 has been put on hold",
		res.Messages[0].Text)
}

func TestCheckIncidentStatus_EmptyAndError(t *testing.T) {
	d := actions.New(actions.Config{Tickets: &fakeTickets{}})
	res, err := d.Dispatch(context.Background(), domain.ActionCheckIncidentStatus, input(map[string]any{domain.SlotEmail: "a@b.com"}))
	require.NoError(t, err)
	assert.Equal(t, "No incidents on record for a@b.com", res.Messages[0].Text)

	d = actions.New(actions.Config{Tickets: &fakeTickets{listErr: domain.NewBackendError(500, "Internal Error")}})
	res, err = d.Dispatch(context.Background(), domain.ActionCheckIncidentStatus, input(map[string]any{domain.SlotEmail: "a@b.com"}))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, "Internal Error", res.Messages[0].Text)
}

func TestCheckIncidentStatus_Local(t *testing.T) {
	d := actions.New(actions.Config{
		LocalMode:  true,
		PickStatus: func() domain.IncidentState { return domain.IncidentInProgress },
	})

	res, err := d.Dispatch(context.Background(), domain.ActionCheckIncidentStatus, input(map[string]any{domain.SlotEmail: "a@b.com"}))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t,
		"Since ServiceNow isn't connected, I'm making this up!\nThe most recent incident for a@b.com is currently in progress",
		res.Messages[0].Text)
}

func TestRandomStatus(t *testing.T) {
	for range 20 {
		assert.Contains(t, domain.IncidentStates, actions.RandomStatus())
	}
}

func TestSendFeedback(t *testing.T) {
	records := memory.NewRecords()
	d := actions.New(actions.Config{Records: records, LocalMode: true})

	res, err := d.Dispatch(context.Background(), domain.ActionSendFeedback, input(map[string]any{
		domain.SlotFeedbackDescription: "great bot",
		domain.SlotEmail:               "a@b.com",
		domain.SlotConfirmFeedback:     true,
	}))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, "Thank you for your feedback!", res.Messages[0].Text)

	saved := records.All(domain.KindFeedback)
	require.Len(t, saved, 1)
	var fb domain.FeedbackRecord
	require.NoError(t, domain.DecodeRecord(saved[0], &fb))
	assert.Equal(t, domain.FeedbackRecord{Text: "great bot", Email: "a@b.com", SessionID: "sess-1"}, fb)
}

func TestSendFeedback_InsertError(t *testing.T) {
	d := actions.New(actions.Config{Records: failingRecords{}})

	res, err := d.Dispatch(context.Background(), domain.ActionSendFeedback, input(map[string]any{
		domain.SlotFeedbackDescription: "great bot",
		domain.SlotEmail:               "a@b.com",
		domain.SlotConfirmFeedback:     true,
	}))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, "Something went wrong while saving your feedback. connection refused", res.Messages[0].Text)
	assert.Error(t, res.Err)
}
