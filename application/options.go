package application

import (
	"time"

	"github.com/felixgeelhaar/orderflow/domain/audit"
	"github.com/felixgeelhaar/orderflow/domain/compliance"
	"github.com/felixgeelhaar/orderflow/domain/customer"
	"github.com/felixgeelhaar/orderflow/domain/record"
	"github.com/felixgeelhaar/orderflow/infrastructure/observability"
	"github.com/felixgeelhaar/orderflow/infrastructure/telemetry"
)

// Option configures the engine.
type Option func(*EngineConfig)

// WithPolicy sets the compliance policy.
func WithPolicy(p compliance.Policy) Option {
	return func(c *EngineConfig) {
		c.Policy = p
	}
}

// WithGates appends gates that run after the standard chain.
func WithGates(gates ...compliance.Gate) Option {
	return func(c *EngineConfig) {
		c.Gates = append(c.Gates, gates...)
	}
}

// ServiceOption configures the service.
type ServiceOption func(*ServiceConfig)

// WithEngine sets the lifecycle engine.
func WithEngine(e *Engine) ServiceOption {
	return func(c *ServiceConfig) {
		c.Engine = e
	}
}

// WithStore sets the record store.
func WithStore(s record.Store) ServiceOption {
	return func(c *ServiceConfig) {
		c.Store = s
	}
}

// WithProfiles sets the profile lookup.
func WithProfiles(p customer.ProfileLookup) ServiceOption {
	return func(c *ServiceConfig) {
		c.Profiles = p
	}
}

// WithDocuments sets the document lister.
func WithDocuments(d customer.DocumentLister) ServiceOption {
	return func(c *ServiceConfig) {
		c.Documents = d
	}
}

// WithNotifier sets the notifier invoked after persisted transitions.
func WithNotifier(n Notifier) ServiceOption {
	return func(c *ServiceConfig) {
		c.Notifier = n
	}
}

// WithJournal sets the audit journal.
func WithJournal(j audit.Journal) ServiceOption {
	return func(c *ServiceConfig) {
		c.Journal = j
	}
}

// WithMetrics sets the metrics provider.
func WithMetrics(m *telemetry.MetricsProvider) ServiceOption {
	return func(c *ServiceConfig) {
		c.Metrics = m
	}
}

// WithTracer sets the tracer.
func WithTracer(t *observability.Tracer) ServiceOption {
	return func(c *ServiceConfig) {
		c.Tracer = t
	}
}

// WithClock overrides the time source used for stamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(c *ServiceConfig) {
		c.Now = now
	}
}
