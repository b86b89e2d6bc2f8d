package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/orderflow/domain/notification"
	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/domain/record"
	"github.com/felixgeelhaar/orderflow/infrastructure/storage/memory"
)

// Test helpers

func recordAt(id string, product order.Product, status order.Status) *order.Record {
	rec := order.NewRecord(id, "owner-1", product, decimal.NewFromInt(1000))
	rec.Status = status
	return rec
}

func passport() order.Document {
	return order.Document{Type: "passport", UploadedAt: time.Now()}
}

func verifiedProfile(ownerID string) order.Profile {
	return order.Profile{
		OwnerID:   ownerID,
		KYCStatus: order.KYCVerified,
		Contact:   order.Contact{Name: "Asha", Email: "asha@example.com"},
	}
}

// recordingNotifier captures dispatched events.
type recordingNotifier struct {
	mu     sync.Mutex
	events []*notification.Event
}

func (n *recordingNotifier) Send(_ context.Context, event *notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []*notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*notification.Event, len(n.events))
	copy(out, n.events)
	return out
}

// racingStore moves the record to the next status in moves right before
// each of the first len(moves) updates, simulating a concurrent admin.
type racingStore struct {
	*memory.RecordStore

	mu    sync.Mutex
	moves []order.Status
}

func (s *racingStore) Update(ctx context.Context, id string, patch order.Patch, expect record.Expect) (*order.Record, error) {
	s.mu.Lock()
	var next order.Status
	if len(s.moves) > 0 {
		next, s.moves = s.moves[0], s.moves[1:]
	}
	s.mu.Unlock()

	if next != "" {
		current, err := s.RecordStore.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if _, err := s.RecordStore.Update(ctx, id, order.Patch{Status: &next}, record.ExpectRecord(current)); err != nil {
			return nil, err
		}
	}
	return s.RecordStore.Update(ctx, id, patch, expect)
}

// sideWriteStore applies the next of writes right before each of the first
// len(writes) updates. The writes keep the status, so only the version
// tells the caller its read is stale.
type sideWriteStore struct {
	*memory.RecordStore

	mu     sync.Mutex
	writes []order.Patch
}

func (s *sideWriteStore) Update(ctx context.Context, id string, patch order.Patch, expect record.Expect) (*order.Record, error) {
	s.mu.Lock()
	var side *order.Patch
	if len(s.writes) > 0 {
		side = &s.writes[0]
		s.writes = s.writes[1:]
	}
	s.mu.Unlock()

	if side != nil {
		current, err := s.RecordStore.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if _, err := s.RecordStore.Update(ctx, id, *side, record.ExpectRecord(current)); err != nil {
			return nil, err
		}
	}
	return s.RecordStore.Update(ctx, id, patch, expect)
}

var errStoreDown = errors.New("connection refused")

// brokenStore fails every write.
type brokenStore struct {
	*memory.RecordStore
}

func (s *brokenStore) Update(context.Context, string, order.Patch, record.Expect) (*order.Record, error) {
	return nil, errStoreDown
}

type fixture struct {
	store     *memory.RecordStore
	customers *memory.CustomerStore
	journal   *memory.Journal
	notifier  *recordingNotifier
	service   *Service
}

func newFixture(t *testing.T, opts ...ServiceOption) *fixture {
	t.Helper()

	f := &fixture{
		store:     memory.NewRecordStore(),
		customers: memory.NewCustomerStore(),
		journal:   memory.NewJournal(),
		notifier:  &recordingNotifier{},
	}
	f.customers.PutProfile(verifiedProfile("owner-1"))

	all := append([]ServiceOption{
		WithStore(f.store),
		WithProfiles(f.customers),
		WithDocuments(f.customers),
		WithJournal(f.journal),
		WithNotifier(f.notifier),
	}, opts...)
	svc, err := NewService(all...)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	f.service = svc
	return f
}

func (f *fixture) seed(t *testing.T, rec *order.Record) {
	t.Helper()
	if err := f.store.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func (f *fixture) get(t *testing.T, id string) *order.Record {
	t.Helper()
	rec, err := f.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	return rec
}

func mustEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(opts...)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}
