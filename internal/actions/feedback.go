package actions

import (
	"context"
	"errors"

	"github.com/aretw0/servicedesk/pkg/domain"
)

var errNoRecordStore = errors.New("no record store configured")

func (d *Dispatcher) sendFeedback(ctx context.Context, in domain.ActionInput) domain.ActionResult {
	s := in.Session
	email := s.SlotString(domain.SlotEmail)

	if !s.SlotBool(domain.SlotConfirmFeedback) {
		return cancelled(email, domain.ResponseFeedbackSendingCanceled)
	}

	rec := domain.FeedbackRecord{
		Text:      s.SlotString(domain.SlotFeedbackDescription),
		Email:     email,
		SessionID: in.SessionID,
	}

	err := errNoRecordStore
	if d.records != nil {
		err = d.records.Insert(ctx, domain.KindFeedback, rec.Record())
	}
	if err != nil {
		res := completed(email, "Something went wrong while saving your feedback. "+err.Error())
		res.Err = err
		return res
	}
	return completed(email, "Thank you for your feedback!")
}
