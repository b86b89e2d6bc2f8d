// Package record provides the domain interface for order record persistence.
package record

import (
	"context"

	"github.com/felixgeelhaar/orderflow/domain/order"
)

// Store defines the interface for record persistence.
// Implementations may be in-memory, PostgreSQL, or any other backend.
// Records are never deleted; cancellation and rejection are statuses.
type Store interface {
	// Create persists a new record.
	Create(ctx context.Context, rec *order.Record) error

	// Get retrieves a record by ID.
	Get(ctx context.Context, id string) (*order.Record, error)

	// Update atomically applies patch to the record if it still meets
	// expect, and returns the updated record. It returns
	// ErrPreconditionFailed when it does not.
	Update(ctx context.Context, id string, patch order.Patch, expect Expect) (*order.Record, error)

	// List returns records matching the filter.
	List(ctx context.Context, filter ListFilter) ([]*order.Record, error)
}

// Expect is the optimistic precondition of an Update.
type Expect struct {
	// Status is the stored status the caller read.
	Status order.Status

	// Version is the stored version the caller read. Zero checks the
	// status only.
	Version int64
}

// ExpectRecord returns the precondition that rec is still the latest
// stored state.
func ExpectRecord(rec *order.Record) Expect {
	return Expect{Status: rec.Status, Version: rec.Version}
}

// Met reports whether the stored record satisfies the precondition.
func (e Expect) Met(stored *order.Record) bool {
	if stored.Status != e.Status {
		return false
	}
	return e.Version == 0 || stored.Version == e.Version
}

// ListFilter specifies criteria for listing records.
type ListFilter struct {
	// OwnerID filters by owner (empty means all).
	OwnerID string

	// Product filters by product (empty means all).
	Product order.Product

	// Statuses filters by status (empty means all).
	Statuses []order.Status

	// Limit is the maximum number of records to return (0 = no limit).
	Limit int
}

// Matches reports whether rec satisfies the filter.
func (f ListFilter) Matches(rec *order.Record) bool {
	if f.OwnerID != "" && rec.OwnerID != f.OwnerID {
		return false
	}
	if f.Product != "" && rec.Product != f.Product {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if rec.Status == s {
			return true
		}
	}
	return false
}
