package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aretw0/servicedesk/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// scanPage is how many records Find reads per round trip.
const scanPage = 100

// Records implements ports.RecordStore with one Redis list per record kind.
// Inserts append to the tail, so Find walks the list from the tail.
type Records struct {
	client *backend.Client
	prefix string
}

// NewRecords creates a record store over client.
func NewRecords(client *backend.Client, prefix string) *Records {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Records{client: client, prefix: prefix}
}

func (r *Records) key(kind domain.RecordKind) string {
	return r.prefix + "records:" + string(kind)
}

// Insert appends record to kind.
func (r *Records) Insert(ctx context.Context, kind domain.RecordKind, record domain.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := r.client.RPush(ctx, r.key(kind), data).Err(); err != nil {
		return fmt.Errorf("failed to insert %s record: %w", kind, err)
	}
	return nil
}

// Find returns the newest record of kind matching filter.
func (r *Records) Find(ctx context.Context, kind domain.RecordKind, filter domain.Record) (domain.Record, bool, error) {
	for page := int64(0); ; page++ {
		start := -(page + 1) * scanPage
		stop := -page*scanPage - 1

		items, err := r.client.LRange(ctx, r.key(kind), start, stop).Result()
		if err != nil {
			return nil, false, fmt.Errorf("failed to read %s records: %w", kind, err)
		}

		for i := len(items) - 1; i >= 0; i-- {
			var rec domain.Record
			if err := json.Unmarshal([]byte(items[i]), &rec); err != nil {
				return nil, false, fmt.Errorf("failed to unmarshal %s record: %w", kind, err)
			}
			if rec.Matches(filter) {
				return rec, true, nil
			}
		}

		if len(items) < scanPage {
			return nil, false, nil
		}
	}
}
