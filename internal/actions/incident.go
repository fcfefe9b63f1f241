package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/servicedesk/pkg/domain"
)

func (d *Dispatcher) openIncident(ctx context.Context, in domain.ActionInput) domain.ActionResult {
	s := in.Session
	email := s.SlotString(domain.SlotEmail)
	priority := s.SlotString(domain.SlotPriority)
	description := s.SlotString(domain.SlotProblemDescription)
	title := s.SlotString(domain.SlotIncidentTitle)

	if !s.SlotBool(domain.SlotConfirm) {
		return cancelled(email, domain.ResponseIncidentCreationCanceled)
	}

	if d.localMode {
		return completed(email, fmt.Sprintf(
			"An incident with the following details would be opened if ServiceNow was connected:\n"+
				"email: %s\nproblem description: %s\ntitle: %s\npriority: %s",
			email, description, title, priority,
		))
	}

	_, code, ok := d.vocabulary.Lookup(priority)
	if !ok {
		err := fmt.Errorf("unknown priority %q", priority)
		res := completed(email, "Something went wrong while opening an incident for you. "+err.Error())
		res.Err = err
		return res
	}

	number, err := d.tickets.CreateIncident(ctx, domain.NewIncident{
		Description:      description,
		ShortDescription: title,
		PriorityCode:     code,
		Email:            email,
	})
	if err != nil {
		res := completed(email, "Something went wrong while opening an incident for you. "+err.Error())
		res.Err = err
		return res
	}

	if d.records != nil {
		link := domain.LinkRecord{IncidentNumber: number, Email: email, SessionID: in.SessionID}
		if err := d.records.Insert(ctx, domain.KindUsers, link.Record()); err != nil {
			d.logger.Warn("failed to record incident link",
				"session_id", in.SessionID,
				"incident", number,
				"error", err,
			)
		}
	}

	res := completed(email, fmt.Sprintf(
		"Successfully opened up incident %s for you. Someone will reach out soon.", number,
	))
	res.IncidentNumber = number
	return res
}

func (d *Dispatcher) checkIncidentStatus(ctx context.Context, in domain.ActionInput) domain.ActionResult {
	email := in.Session.SlotString(domain.SlotEmail)

	if d.localMode {
		return completed(email, fmt.Sprintf(
			"Since ServiceNow isn't connected, I'm making this up!\nThe most recent incident for %s %s",
			email, d.pickStatus().Phrase(),
		))
	}

	incidents, err := d.tickets.RetrieveIncidentsByEmail(ctx, email)
	if err != nil {
		res := completed(email, err.Error())
		res.Err = err
		return res
	}
	if len(incidents) == 0 {
		return completed(email, "No incidents on record for "+email)
	}

	lines := make([]string, 0, len(incidents))
	for _, inc := range incidents {
		lines = append(lines, StatusLine(inc))
	}
	return completed(email, strings.Join(lines, "\n"))
}

// StatusLine renders one incident, e.g.
// Incident INC001: "disk full", opened on 2020-01-01 is currently awaiting triage
func StatusLine(inc domain.Incident) string {
	return fmt.Sprintf("Incident %s: \"%s\", opened on %s %s",
		inc.Number, inc.ShortDescription, inc.OpenedAt, inc.State.Phrase())
}
