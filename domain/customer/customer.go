// Package customer provides the read-only collaborators the lifecycle
// engine consults about the record owner: profile and document presence.
package customer

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/orderflow/domain/order"
)

// Domain errors for customer lookups.
var (
	// ErrProfileNotFound is returned when no profile exists for an owner.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrLookupFailed is returned when a collaborator cannot be reached.
	ErrLookupFailed = errors.New("customer lookup failed")
)

// ProfileLookup reads customer profiles.
type ProfileLookup interface {
	// GetProfile returns the profile of the given owner.
	GetProfile(ctx context.Context, ownerID string) (*order.Profile, error)
}

// DocumentLister reports which documents a customer has uploaded for a
// record. Only presence is reported, never contents.
type DocumentLister interface {
	// ListDocuments returns the documents attached to the record.
	ListDocuments(ctx context.Context, ownerID string, product order.Product, recordID string) ([]order.Document, error)
}

// ProfileLookupFunc adapts a function to ProfileLookup.
type ProfileLookupFunc func(ctx context.Context, ownerID string) (*order.Profile, error)

// GetProfile calls f.
func (f ProfileLookupFunc) GetProfile(ctx context.Context, ownerID string) (*order.Profile, error) {
	return f(ctx, ownerID)
}

// DocumentListerFunc adapts a function to DocumentLister.
type DocumentListerFunc func(ctx context.Context, ownerID string, product order.Product, recordID string) ([]order.Document, error)

// ListDocuments calls f.
func (f DocumentListerFunc) ListDocuments(ctx context.Context, ownerID string, product order.Product, recordID string) ([]order.Document, error) {
	return f(ctx, ownerID, product, recordID)
}
