package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/orderflow/domain/customer"
	"github.com/felixgeelhaar/orderflow/domain/order"
)

func fastConfig() ExecutorConfig {
	return ConfigWithOptions(
		WithRetryAttempts(3),
		WithRetryDelay(time.Millisecond),
		WithCircuitBreakerThreshold(2),
		WithCircuitBreakerTimeout(time.Minute),
		WithTimeout(time.Second),
	)
}

func TestConfigWithOptions(t *testing.T) {
	t.Parallel()

	cfg := ConfigWithOptions(WithMaxConcurrent(4), WithRetryAttempts(5), WithTimeout(2*time.Second))
	if cfg.MaxConcurrent != 4 || cfg.RetryMaxAttempts != 5 || cfg.DefaultTimeout != 2*time.Second {
		t.Errorf("options not applied: %+v", cfg)
	}
	if cfg.CircuitBreakerThreshold != 5 {
		t.Errorf("CircuitBreakerThreshold = %d, want default 5", cfg.CircuitBreakerThreshold)
	}
}

func TestExecutor_InitialStateClosed(t *testing.T) {
	t.Parallel()

	e := NewExecutor[int](DefaultExecutorConfig())
	if got := e.CircuitBreakerState().String(); got != "closed" {
		t.Errorf("CircuitBreakerState() = %s, want closed", got)
	}
}

func TestExecutor_NegativeConfig(t *testing.T) {
	t.Parallel()

	e := NewExecutor[int](ExecutorConfig{MaxConcurrent: -1, CircuitBreakerThreshold: -1, RetryMaxAttempts: -1})
	got, err := e.Execute(context.Background(), func(context.Context) (int, error) { return 7, nil })
	if err != nil || got != 7 {
		t.Errorf("Execute() = %d, %v; want 7, nil", got, err)
	}
}

func TestProfileLookup_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	next := customer.ProfileLookupFunc(func(_ context.Context, ownerID string) (*order.Profile, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("connection refused")
		}
		return &order.Profile{OwnerID: ownerID, KYCStatus: order.KYCVerified}, nil
	})

	p, err := NewProfileLookup(next, fastConfig()).GetProfile(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if p.KYCStatus != order.KYCVerified {
		t.Errorf("KYCStatus = %s", p.KYCStatus)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestProfileLookup_NotFoundIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	next := customer.ProfileLookupFunc(func(context.Context, string) (*order.Profile, error) {
		calls.Add(1)
		return nil, customer.ErrProfileNotFound
	})
	lookup := NewProfileLookup(next, fastConfig())

	for i := 0; i < 4; i++ {
		_, err := lookup.GetProfile(context.Background(), "ghost")
		if !errors.Is(err, customer.ErrProfileNotFound) {
			t.Fatalf("GetProfile() error = %v, want ErrProfileNotFound", err)
		}
		if errors.Is(err, customer.ErrLookupFailed) {
			t.Fatal("not-found should not be reported as a lookup failure")
		}
	}
	if calls.Load() != 4 {
		t.Errorf("calls = %d, want 4 (one per request)", calls.Load())
	}
}

func TestProfileLookup_ExhaustedRetriesWrapLookupFailed(t *testing.T) {
	t.Parallel()

	next := customer.ProfileLookupFunc(func(context.Context, string) (*order.Profile, error) {
		return nil, errors.New("timeout")
	})

	_, err := NewProfileLookup(next, fastConfig()).GetProfile(context.Background(), "owner-1")
	if !errors.Is(err, customer.ErrLookupFailed) {
		t.Errorf("GetProfile() error = %v, want ErrLookupFailed", err)
	}
}

func TestDocumentLister_BreakerOpens(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	next := customer.DocumentListerFunc(func(context.Context, string, order.Product, string) ([]order.Document, error) {
		calls.Add(1)
		return nil, errors.New("bucket unreachable")
	})
	lister := NewDocumentLister(next, ConfigWithOptions(
		WithRetryAttempts(1),
		WithCircuitBreakerThreshold(2),
		WithCircuitBreakerTimeout(time.Minute),
	))

	for i := 0; i < 5; i++ {
		if _, err := lister.ListDocuments(context.Background(), "o", order.ProductForexCard, "fx-1"); !errors.Is(err, customer.ErrLookupFailed) {
			t.Fatalf("ListDocuments() error = %v, want ErrLookupFailed", err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 before the circuit opened", calls.Load())
	}
	if lister.BreakerState() != "open" {
		t.Errorf("BreakerState() = %s, want open", lister.BreakerState())
	}
}

func TestDocumentLister_PassesThrough(t *testing.T) {
	t.Parallel()

	want := []order.Document{{Type: "passport"}}
	next := customer.DocumentListerFunc(func(context.Context, string, order.Product, string) ([]order.Document, error) {
		return want, nil
	})

	got, err := NewDocumentLister(next, fastConfig()).ListDocuments(context.Background(), "o", order.ProductForexCard, "fx-1")
	if err != nil {
		t.Fatalf("ListDocuments() error = %v", err)
	}
	if len(got) != 1 || got[0].Type != "passport" {
		t.Errorf("got %+v", got)
	}
}

func TestDocumentLister_BreakerDisabled(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	next := customer.DocumentListerFunc(func(context.Context, string, order.Product, string) ([]order.Document, error) {
		calls.Add(1)
		return nil, errors.New("bucket unreachable")
	})
	cfg := ConfigWithOptions(WithRetryAttempts(1), WithCircuitBreakerThreshold(1))
	cfg.DisableCircuitBreaker = true
	lister := NewDocumentLister(next, cfg)

	for i := 0; i < 3; i++ {
		_, _ = lister.ListDocuments(context.Background(), "o", order.ProductForexCard, "fx-1")
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3 with the breaker disabled", calls.Load())
	}
	if lister.BreakerState() != "closed" {
		t.Errorf("BreakerState() = %s, want closed", lister.BreakerState())
	}
}
