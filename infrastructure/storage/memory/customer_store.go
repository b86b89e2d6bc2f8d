package memory

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/orderflow/domain/customer"
	"github.com/felixgeelhaar/orderflow/domain/order"
)

// CustomerStore is an in-memory profile lookup and document lister.
type CustomerStore struct {
	profiles  map[string]order.Profile
	documents map[string][]order.Document
	mu        sync.RWMutex
}

// NewCustomerStore creates a new in-memory customer store.
func NewCustomerStore() *CustomerStore {
	return &CustomerStore{
		profiles:  make(map[string]order.Profile),
		documents: make(map[string][]order.Document),
	}
}

// PutProfile stores or replaces a profile.
func (s *CustomerStore) PutProfile(p order.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.OwnerID] = p
}

// SetKYCStatus updates the KYC status of an existing profile.
func (s *CustomerStore) SetKYCStatus(ownerID string, status order.KYCStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[ownerID]
	if !ok {
		return customer.ErrProfileNotFound
	}
	p.KYCStatus = status
	s.profiles[ownerID] = p
	return nil
}

// AttachDocument records the presence of a document on a record.
func (s *CustomerStore) AttachDocument(recordID string, doc order.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[recordID] = append(s.documents[recordID], doc)
}

// GetProfile returns the profile of the given owner.
func (s *CustomerStore) GetProfile(ctx context.Context, ownerID string) (*order.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[ownerID]
	if !ok {
		return nil, customer.ErrProfileNotFound
	}
	return &p, nil
}

// ListDocuments returns the documents attached to the record.
func (s *CustomerStore) ListDocuments(ctx context.Context, _ string, _ order.Product, recordID string) ([]order.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.documents[recordID]
	out := make([]order.Document, len(docs))
	copy(out, docs)
	return out, nil
}

// Ensure interface compliance.
var (
	_ customer.ProfileLookup  = (*CustomerStore)(nil)
	_ customer.DocumentLister = (*CustomerStore)(nil)
)
