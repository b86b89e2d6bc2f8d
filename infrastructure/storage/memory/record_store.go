package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/domain/record"
)

// recordEntry holds a deep copy of a record for storage.
type recordEntry struct {
	data []byte
}

// RecordStore is an in-memory implementation of record.Store.
type RecordStore struct {
	records map[string]*recordEntry
	mu      sync.RWMutex
	now     func() time.Time
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		records: make(map[string]*recordEntry),
		now:     time.Now,
	}
}

// Create persists a new record.
func (s *RecordStore) Create(ctx context.Context, rec *order.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if rec == nil || rec.ID == "" {
		return record.ErrInvalidRecordID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; exists {
		return record.ErrRecordExists
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	s.records[rec.ID] = &recordEntry{data: data}
	return nil
}

// Get retrieves a record by ID.
func (s *RecordStore) Get(ctx context.Context, id string) (*order.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if id == "" {
		return nil, record.ErrInvalidRecordID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.records[id]
	if !ok {
		return nil, record.ErrRecordNotFound
	}
	return decodeRecord(entry.data)
}

// Update applies patch when the stored record meets expect.
func (s *RecordStore) Update(ctx context.Context, id string, patch order.Patch, expect record.Expect) (*order.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if id == "" {
		return nil, record.ErrInvalidRecordID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.records[id]
	if !ok {
		return nil, record.ErrRecordNotFound
	}

	rec, err := decodeRecord(entry.data)
	if err != nil {
		return nil, err
	}
	if !expect.Met(rec) {
		return nil, record.ErrPreconditionFailed
	}

	patch.Apply(rec, s.now())

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	s.records[id] = &recordEntry{data: data}
	return rec, nil
}

// List returns records matching the filter, oldest first.
func (s *RecordStore) List(ctx context.Context, filter record.ListFilter) ([]*order.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*order.Record
	for _, entry := range s.records {
		rec, err := decodeRecord(entry.data)
		if err != nil {
			continue
		}
		if filter.Matches(rec) {
			result = append(result, rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

// Len returns the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func decodeRecord(data []byte) (*order.Record, error) {
	var rec order.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Ensure interface compliance.
var _ record.Store = (*RecordStore)(nil)
