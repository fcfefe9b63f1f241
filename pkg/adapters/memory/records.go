package memory

import (
	"context"
	"sync"

	"github.com/aretw0/servicedesk/pkg/domain"
)

// Records implements ports.RecordStore with an append-only slice per kind.
// Safe for concurrent use.
type Records struct {
	data map[domain.RecordKind][]domain.Record
	mu   sync.RWMutex
}

// NewRecords creates an empty record store.
func NewRecords() *Records {
	return &Records{
		data: make(map[domain.RecordKind][]domain.Record),
	}
}

// Insert appends a copy of record to kind.
func (r *Records) Insert(ctx context.Context, kind domain.RecordKind, record domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[kind] = append(r.data[kind], cloneRecord(record))
	return nil
}

// Find scans kind from the newest record backwards.
func (r *Records) Find(ctx context.Context, kind domain.RecordKind, filter domain.Record) (domain.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := r.data[kind]
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].Matches(filter) {
			return cloneRecord(records[i]), true, nil
		}
	}
	return nil, false, nil
}

// All returns a copy of every record of kind, oldest first.
func (r *Records) All(kind domain.RecordKind) []domain.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Record, 0, len(r.data[kind]))
	for _, rec := range r.data[kind] {
		out = append(out, cloneRecord(rec))
	}
	return out
}

func cloneRecord(rec domain.Record) domain.Record {
	cp := make(domain.Record, len(rec))
	for k, v := range rec {
		cp[k] = v
	}
	return cp
}
