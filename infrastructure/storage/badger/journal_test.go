package badger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/orderflow/domain/audit"
	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/infrastructure/storage/badger"
)

func newTestJournal(t *testing.T) *badger.Journal {
	t.Helper()

	j, err := badger.NewJournal(badger.Config{InMemory: true})
	if err != nil {
		t.Fatalf("NewJournal failed: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func entry(recordID string, outcome audit.Outcome, from, to order.Status) audit.Entry {
	e := audit.NewEntry(recordID, outcome)
	e.From = from
	e.To = to
	return e
}

func TestJournal_AppendAndList(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	for _, e := range []audit.Entry{
		entry("fx-1", audit.OutcomeCreated, "", order.StatusDraft),
		entry("fx-1", audit.OutcomeApplied, order.StatusDraft, order.StatusPendingDocuments),
		entry("fx-2", audit.OutcomeCreated, "", order.StatusApplied),
		entry("fx-1", audit.OutcomeDenied, order.StatusPendingDocuments, order.StatusApproved),
	} {
		if err := j.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := j.List(ctx, "fx-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("List returned %d entries, want 3", len(got))
	}
	wantOutcomes := []audit.Outcome{audit.OutcomeCreated, audit.OutcomeApplied, audit.OutcomeDenied}
	for i, want := range wantOutcomes {
		if got[i].Outcome != want {
			t.Errorf("entry %d outcome = %s, want %s", i, got[i].Outcome, want)
		}
	}

	path := audit.AppliedPath(got)
	if len(path) != 2 || path[0] != order.StatusDraft || path[1] != order.StatusPendingDocuments {
		t.Errorf("AppliedPath = %v", path)
	}

	empty, err := j.List(ctx, "unknown")
	if err != nil {
		t.Fatalf("List(unknown) failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("List(unknown) returned %d entries", len(empty))
	}
}

func TestJournal_RejectsInvalidEntry(t *testing.T) {
	j := newTestJournal(t)

	if err := j.Append(context.Background(), audit.Entry{}); !errors.Is(err, audit.ErrInvalidEntry) {
		t.Errorf("Append() error = %v, want ErrInvalidEntry", err)
	}
}

func TestJournal_ConcurrentAppends(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := entry("fx-9", audit.OutcomeNoOp, order.StatusApproved, order.StatusApproved)
			e.Reason = fmt.Sprintf("attempt %d", i)
			errs <- j.Append(ctx, e)
		}(i)
	}
	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		if err != nil {
			failed++
		}
	}

	got, err := j.List(ctx, "fx-9")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 20-failed {
		t.Errorf("List returned %d entries, want %d", len(got), 20-failed)
	}
	ids := make(map[string]bool)
	for _, e := range got {
		if ids[e.ID] {
			t.Errorf("duplicate entry %s", e.ID)
		}
		ids[e.ID] = true
	}
}

func TestJournal_CancelledContext(t *testing.T) {
	j := newTestJournal(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := j.Append(ctx, entry("fx-1", audit.OutcomeCreated, "", order.StatusDraft)); !errors.Is(err, context.Canceled) {
		t.Errorf("Append() error = %v, want context.Canceled", err)
	}
	if _, err := j.List(ctx, "fx-1"); !errors.Is(err, context.Canceled) {
		t.Errorf("List() error = %v, want context.Canceled", err)
	}
}

func TestJournal_Retention(t *testing.T) {
	cfg := badger.Config{InMemory: true, Quiet: true}

	if _, err := badger.NewJournal(cfg, badger.WithRetention(-time.Minute)); err == nil {
		t.Fatal("NewJournal() with negative retention should fail")
	}

	j, err := badger.NewJournal(cfg, badger.WithRetention(time.Hour), badger.WithKeyPrefix("tenant-a:"))
	if err != nil {
		t.Fatalf("NewJournal failed: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	ctx := context.Background()
	if err := j.Append(ctx, entry("fx-1", audit.OutcomeCreated, "", order.StatusDraft)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	got, err := j.List(ctx, "fx-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("List returned %d entries, want 1 before the retention elapses", len(got))
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := badger.DefaultConfig()
	if cfg.KeyPrefix == "" || cfg.ConflictRetries < 1 {
		t.Errorf("DefaultConfig() = %+v, want a key prefix and conflict retries", cfg)
	}
	if cfg.Retention != 0 {
		t.Errorf("Retention = %s, default journal keeps entries", cfg.Retention)
	}
}
