package resilience

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/orderflow/domain/customer"
	"github.com/felixgeelhaar/orderflow/domain/order"
)

// profileResult carries a not-found answer through the breaker as a
// success, so missing profiles neither trip the circuit nor get retried.
type profileResult struct {
	profile  *order.Profile
	notFound error
}

// ProfileLookup decorates a customer.ProfileLookup with resilience.
type ProfileLookup struct {
	next customer.ProfileLookup
	exec *Executor[profileResult]
}

// NewProfileLookup wraps next.
func NewProfileLookup(next customer.ProfileLookup, config ExecutorConfig) *ProfileLookup {
	return &ProfileLookup{next: next, exec: NewExecutor[profileResult](config)}
}

// GetProfile returns the owner's profile. Failures after retries surface
// as customer.ErrLookupFailed.
func (p *ProfileLookup) GetProfile(ctx context.Context, ownerID string) (*order.Profile, error) {
	res, err := p.exec.Execute(ctx, func(ctx context.Context) (profileResult, error) {
		profile, err := p.next.GetProfile(ctx, ownerID)
		if errors.Is(err, customer.ErrProfileNotFound) {
			return profileResult{notFound: err}, nil
		}
		return profileResult{profile: profile}, err
	})
	if err != nil {
		return nil, errors.Join(customer.ErrLookupFailed, err)
	}
	if res.notFound != nil {
		return nil, res.notFound
	}
	return res.profile, nil
}

// DocumentLister decorates a customer.DocumentLister with resilience.
type DocumentLister struct {
	next customer.DocumentLister
	exec *Executor[[]order.Document]
}

// NewDocumentLister wraps next.
func NewDocumentLister(next customer.DocumentLister, config ExecutorConfig) *DocumentLister {
	return &DocumentLister{next: next, exec: NewExecutor[[]order.Document](config)}
}

// ListDocuments returns the documents attached to the record.
func (d *DocumentLister) ListDocuments(ctx context.Context, ownerID string, product order.Product, recordID string) ([]order.Document, error) {
	docs, err := d.exec.Execute(ctx, func(ctx context.Context) ([]order.Document, error) {
		return d.next.ListDocuments(ctx, ownerID, product, recordID)
	})
	if err != nil && !errors.Is(err, customer.ErrLookupFailed) {
		return nil, errors.Join(customer.ErrLookupFailed, err)
	}
	return docs, err
}

// BreakerState names the state of the document lister's circuit.
func (d *DocumentLister) BreakerState() string {
	return d.exec.CircuitBreakerState().String()
}

var (
	_ customer.ProfileLookup  = (*ProfileLookup)(nil)
	_ customer.DocumentLister = (*DocumentLister)(nil)
)
