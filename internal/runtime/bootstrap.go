package runtime

import (
	"context"

	"github.com/aretw0/servicedesk/pkg/domain"
)

// Bootstrap returns the events that open a new conversation: the session
// marker, the remembered email (if any) and the ready-for-input marker.
// It never fails; a record store error is logged and treated as no record.
func (c *Coordinator) Bootstrap(ctx context.Context, sessionID string) []domain.Event {
	events := []domain.Event{domain.MarkSessionStarted()}

	if email := c.rememberedEmail(ctx, sessionID); email != "" {
		events = append(events, domain.SetSlot(domain.SlotPreviousEmail, email))
	}

	return append(events, domain.MarkReadyForInput())
}

func (c *Coordinator) rememberedEmail(ctx context.Context, sessionID string) string {
	if c.records == nil {
		return ""
	}

	rec, found, err := c.records.Find(ctx, domain.KindUsers, domain.Record{domain.FieldSessionID: sessionID})
	if err != nil {
		c.logger.WarnContext(ctx, "failed to look up user record", "session_id", sessionID, "error", err)
		return ""
	}
	if !found {
		return ""
	}

	var user domain.UserRecord
	if err := domain.DecodeRecord(rec, &user); err != nil {
		c.logger.WarnContext(ctx, "malformed user record", "session_id", sessionID, "error", err)
		return ""
	}
	return user.Email
}
