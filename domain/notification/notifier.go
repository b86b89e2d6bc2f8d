package notification

import (
	"context"

	"github.com/felixgeelhaar/orderflow/domain/order"
)

// Channel delivers a rendered template to a recipient. Implementations
// include webhooks and message brokers.
type Channel interface {
	// Dispatch sends the template identified by templateKey.
	Dispatch(ctx context.Context, templateKey string, recipient order.Contact, vars map[string]string) error
}

// Catalog resolves templates by (product, status).
type Catalog interface {
	// Lookup returns the template for the pair. The boolean is false when
	// the pair is not user-notable.
	Lookup(product order.Product, status order.Status) (Template, bool)
}

// Deduper claims event IDs so one logical transition is dispatched once.
type Deduper interface {
	// Claim reports whether the caller is the first to claim id.
	Claim(ctx context.Context, id string) (bool, error)
}

// EventFilter defines a function that filters events.
// Returns true if the event should be sent, false to skip it.
type EventFilter func(event *Event) bool

// FilterByProduct returns a filter that only allows the given products.
func FilterByProduct(products ...order.Product) EventFilter {
	set := make(map[order.Product]bool)
	for _, p := range products {
		set[p] = true
	}
	return func(event *Event) bool {
		return set[event.Product]
	}
}

// FilterByStatus returns a filter that only allows the given statuses.
func FilterByStatus(statuses ...order.Status) EventFilter {
	set := make(map[order.Status]bool)
	for _, s := range statuses {
		set[s] = true
	}
	return func(event *Event) bool {
		return set[event.NewStatus]
	}
}

// CombineFilters returns a filter that requires all provided filters to pass.
func CombineFilters(filters ...EventFilter) EventFilter {
	return func(event *Event) bool {
		for _, f := range filters {
			if !f(event) {
				return false
			}
		}
		return true
	}
}

// Endpoint represents a webhook endpoint configuration.
type Endpoint struct {
	// URL is the webhook endpoint URL.
	URL string `json:"url" yaml:"url"`
	// Secret is the shared secret for HMAC signing.
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty"`
	// Headers are additional HTTP headers to include.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	// Name is an optional friendly name for the endpoint.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}
