package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/aretw0/servicedesk/pkg/ports"
)

// RecordStoreContractTest is a reusable test suite that verifies if an adapter complies with ports.RecordStore.
// Each run uses a unique session id so it can be pointed at a shared database.
func RecordStoreContractTest(t *testing.T, store ports.RecordStore) {
	t.Helper()
	ctx := context.Background()
	sessionID := fmt.Sprintf("contract-%d", time.Now().UnixNano())

	// 1. Find on an empty kind
	t.Run("Find_NotFound", func(t *testing.T) {
		_, found, err := store.Find(ctx, domain.KindUsers, domain.Record{domain.FieldSessionID: sessionID})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found {
			t.Error("expected no record for a fresh session")
		}
	})

	// 2. Insert and find back
	t.Run("Insert_Find", func(t *testing.T) {
		rec := domain.LinkRecord{IncidentNumber: "INC001", Email: "first@b.com", SessionID: sessionID}.Record()
		if err := store.Insert(ctx, domain.KindUsers, rec); err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		got, found, err := store.Find(ctx, domain.KindUsers, domain.Record{domain.FieldSessionID: sessionID})
		if err != nil || !found {
			t.Fatalf("expected record, found=%v err=%v", found, err)
		}
		if got[domain.FieldEmail] != "first@b.com" {
			t.Errorf("email mismatch: got %v", got[domain.FieldEmail])
		}
	})

	// 3. Latest insert wins
	t.Run("Find_Latest", func(t *testing.T) {
		rec := domain.LinkRecord{IncidentNumber: "INC002", Email: "second@b.com", SessionID: sessionID}.Record()
		if err := store.Insert(ctx, domain.KindUsers, rec); err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		got, found, err := store.Find(ctx, domain.KindUsers, domain.Record{domain.FieldSessionID: sessionID})
		if err != nil || !found {
			t.Fatalf("expected record, found=%v err=%v", found, err)
		}
		if got[domain.FieldIncidentNumber] != "INC002" {
			t.Errorf("expected latest record INC002, got %v", got[domain.FieldIncidentNumber])
		}
	})

	// 4. Kinds are isolated
	t.Run("Kinds_Isolated", func(t *testing.T) {
		rec := domain.FeedbackRecord{Text: "nice", Email: "f@b.com", SessionID: sessionID}.Record()
		if err := store.Insert(ctx, domain.KindFeedback, rec); err != nil {
			t.Fatalf("insert failed: %v", err)
		}

		got, found, err := store.Find(ctx, domain.KindUsers, domain.Record{domain.FieldEmail: "f@b.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found {
			t.Errorf("feedback record leaked into users kind: %v", got)
		}
	})

	// 5. Filter must match every field
	t.Run("Filter_AllFields", func(t *testing.T) {
		_, found, err := store.Find(ctx, domain.KindUsers, domain.Record{
			domain.FieldSessionID: sessionID,
			domain.FieldEmail:     "nobody@b.com",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found {
			t.Error("expected no match when one filter field differs")
		}
	})
}
