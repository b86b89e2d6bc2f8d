package memory

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/orderflow/domain/audit"
)

// Journal is an in-memory implementation of audit.Journal.
type Journal struct {
	entries map[string][]audit.Entry // recordID -> entries
	mu      sync.RWMutex
}

// NewJournal creates a new in-memory journal.
func NewJournal() *Journal {
	return &Journal{
		entries: make(map[string][]audit.Entry),
	}
}

// Append adds an entry.
func (j *Journal) Append(ctx context.Context, entry audit.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries[entry.RecordID] = append(j.entries[entry.RecordID], entry)
	return nil
}

// List returns a record's entries, oldest first.
func (j *Journal) List(ctx context.Context, recordID string) ([]audit.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()

	entries := j.entries[recordID]
	out := make([]audit.Entry, len(entries))
	copy(out, entries)
	return out, nil
}

// Ensure interface compliance.
var _ audit.Journal = (*Journal)(nil)
