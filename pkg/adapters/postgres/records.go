// Package postgres implements the record store on PostgreSQL.
//
// Every record kind shares one table with a jsonb body:
//
//	CREATE TABLE servicedesk_records (
//	    id         BIGSERIAL PRIMARY KEY,
//	    kind       TEXT NOT NULL,
//	    body       JSONB NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/aretw0/servicedesk/pkg/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "servicedesk_records"

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Records implements ports.RecordStore over a pgx pool.
type Records struct {
	pool  *pgxpool.Pool
	table string
}

// NewRecords wraps an existing pool.
func NewRecords(pool *pgxpool.Pool, table string) (*Records, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Records{pool: pool, table: table}, nil
}

// Open connects to dsn and ensures the records table exists.
func Open(ctx context.Context, dsn, table string) (*Records, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	r, err := NewRecords(pool, table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := r.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// Migrate creates the records table and its kind index.
func (r *Records) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
	id BIGSERIAL PRIMARY KEY,
	kind TEXT NOT NULL,
	body JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS %[1]s_kind_idx ON %[1]s (kind, id DESC);`, r.table)

	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("migrate %s: %w", r.table, err)
	}
	return nil
}

// Insert appends record to kind.
func (r *Records) Insert(ctx context.Context, kind domain.RecordKind, record domain.Record) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	sql := fmt.Sprintf("INSERT INTO %s (kind, body) VALUES ($1, $2)", r.table)
	if _, err := r.pool.Exec(ctx, sql, string(kind), body); err != nil {
		return fmt.Errorf("insert %s record: %w", kind, err)
	}
	return nil
}

// Find returns the newest record of kind whose body contains filter.
// Containment is checked in SQL and confirmed with Record.Matches so that
// string and numeric filter values behave as in the other stores.
func (r *Records) Find(ctx context.Context, kind domain.RecordKind, filter domain.Record) (domain.Record, bool, error) {
	// String-valued filters go through jsonb containment; the rest are checked in Go.
	contains := domain.Record{}
	for k, v := range filter {
		if s, ok := v.(string); ok {
			contains[k] = s
		}
	}
	probe, err := json.Marshal(contains)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal filter: %w", err)
	}

	sql := fmt.Sprintf("SELECT body FROM %s WHERE kind = $1 AND body @> $2::jsonb ORDER BY id DESC", r.table)
	rows, err := r.pool.Query(ctx, sql, string(kind), probe)
	if err != nil {
		return nil, false, fmt.Errorf("find %s record: %w", kind, err)
	}
	defer rows.Close()

	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, false, fmt.Errorf("scan %s record: %w", kind, err)
		}
		var rec domain.Record
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, false, fmt.Errorf("failed to unmarshal %s record: %w", kind, err)
		}
		if rec.Matches(filter) {
			return rec, true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("find %s record: %w", kind, err)
	}
	return nil, false, nil
}

// Close releases the pool.
func (r *Records) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}
