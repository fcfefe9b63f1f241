package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/servicedesk/pkg/domain"
)

// Records implements ports.RecordStore as one JSON-lines file per kind.
type Records struct {
	BasePath string
	mu       sync.Mutex
}

// NewRecords creates a record store under basePath.
func NewRecords(basePath string) *Records {
	if basePath == "" {
		basePath = filepath.Join(".servicedesk", "records")
	}
	return &Records{BasePath: basePath}
}

func (r *Records) path(kind domain.RecordKind) string {
	return filepath.Join(r.BasePath, string(kind)+".jsonl")
}

// Insert appends record as one line.
func (r *Records) Insert(_ context.Context, kind domain.RecordKind, record domain.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(r.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure records directory: %w", err)
	}

	f, err := os.OpenFile(r.path(kind), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s records: %w", kind, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append %s record: %w", kind, err)
	}
	return f.Sync()
}

// Find returns the last matching line of kind.
func (r *Records) Find(_ context.Context, kind domain.RecordKind, filter domain.Record) (domain.Record, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path(kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to open %s records: %w", kind, err)
	}
	defer f.Close()

	var (
		latest domain.Record
		found  bool
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec domain.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, false, fmt.Errorf("failed to unmarshal %s record: %w", kind, err)
		}
		if rec.Matches(filter) {
			latest, found = rec, true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to read %s records: %w", kind, err)
	}
	return latest, found, nil
}
