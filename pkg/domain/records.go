package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// RecordKind names a collection in the record store.
type RecordKind string

const (
	// KindUsers holds the incident link records; the latest one per session
	// seeds the carry-over email at bootstrap.
	KindUsers RecordKind = "users"
	// KindFeedback holds feedback submissions.
	KindFeedback RecordKind = "feedback"
)

// Record field names, shared by every store adapter.
const (
	FieldSessionID      = "sender_id"
	FieldEmail          = "email"
	FieldIncidentNumber = "incident_number"
	FieldText           = "text"
)

// Record is a schemaless document as persisted by a RecordStore.
type Record map[string]any

// Matches reports whether r has every field of filter with an equal value.
// Values are compared by their string form so decoded numbers and strings agree.
func (r Record) Matches(filter Record) bool {
	for k, want := range filter {
		got, ok := r[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// LinkRecord ties an opened incident to the conversation that opened it.
type LinkRecord struct {
	IncidentNumber string `mapstructure:"incident_number"`
	Email          string `mapstructure:"email"`
	SessionID      string `mapstructure:"sender_id"`
}

// Record encodes the link record.
func (r LinkRecord) Record() Record {
	return Record{
		FieldIncidentNumber: r.IncidentNumber,
		FieldEmail:          r.Email,
		FieldSessionID:      r.SessionID,
	}
}

// FeedbackRecord is a piece of free-text feedback.
type FeedbackRecord struct {
	Text      string `mapstructure:"text"`
	Email     string `mapstructure:"email"`
	SessionID string `mapstructure:"sender_id"`
}

// Record encodes the feedback record.
func (r FeedbackRecord) Record() Record {
	return Record{
		FieldText:      r.Text,
		FieldEmail:     r.Email,
		FieldSessionID: r.SessionID,
	}
}

// UserRecord is the view of a users record that bootstrap needs.
type UserRecord struct {
	SessionID string `mapstructure:"sender_id"`
	Email     string `mapstructure:"email"`
}

// DecodeRecord decodes a Record into a typed struct using mapstructure tags.
// Unknown fields are ignored.
func DecodeRecord(rec Record, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build record decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(rec)); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	return nil
}
