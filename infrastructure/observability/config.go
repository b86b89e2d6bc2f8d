// Package observability provides OpenTelemetry tracing for transition requests.
package observability

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/orderflow"
	"github.com/felixgeelhaar/orderflow/domain/config"
)

// ExporterType names where finished spans go.
type ExporterType string

const (
	// ExporterOTLP exports to an OTLP gRPC collector.
	ExporterOTLP ExporterType = "otlp"
	// ExporterStdout pretty-prints spans to stdout.
	ExporterStdout ExporterType = "stdout"
	// ExporterNoop records nothing.
	ExporterNoop ExporterType = "noop"
)

// ParseExporter maps a telemetry.exporter value to an exporter. An empty
// value selects stdout.
func ParseExporter(s string) (ExporterType, error) {
	switch s {
	case "", string(ExporterStdout):
		return ExporterStdout, nil
	case string(ExporterOTLP):
		return ExporterOTLP, nil
	case string(ExporterNoop), "none":
		return ExporterNoop, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownExporter, s)
	}
}

// Config configures the tracer provider.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	Exporter ExporterType
	// Endpoint is the OTLP collector address, e.g. localhost:4317.
	Endpoint string
	Insecure bool

	// SampleRate is the fraction of root spans kept. Child spans follow
	// their parent's decision, so a transition's store and notification
	// spans are kept or dropped together.
	SampleRate   float64
	BatchTimeout time.Duration

	// Attributes are added to the resource of every span, e.g. the record
	// store backend serving this instance.
	Attributes []attribute.KeyValue
}

// DefaultConfig returns a disabled tracer for the current build.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "orderflow",
		ServiceVersion: orderflow.Version,
		Environment:    "development",
		Exporter:       ExporterNoop,
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
	}
}

// ConfigFromTelemetry builds a tracer config from the portal's telemetry
// section. serviceName is used when the section names none. A disabled
// section yields the noop exporter.
func ConfigFromTelemetry(t config.TelemetryConfig, serviceName string) (Config, error) {
	cfg := DefaultConfig()
	if t.ServiceName != "" {
		serviceName = t.ServiceName
	}
	if serviceName != "" {
		cfg.ServiceName = serviceName
	}
	if t.Environment != "" {
		cfg.Environment = t.Environment
	}
	if !t.Enabled {
		return cfg, nil
	}

	exporter, err := ParseExporter(t.Exporter)
	if err != nil {
		return Config{}, err
	}
	if exporter == ExporterOTLP && t.Endpoint == "" {
		return Config{}, fmt.Errorf("observability: otlp exporter needs an endpoint")
	}
	cfg.Exporter = exporter
	cfg.Endpoint = t.Endpoint
	cfg.Insecure = t.Insecure
	if t.SampleRate > 0 {
		cfg.SampleRate = t.SampleRate
	}
	return cfg, nil
}

// Option configures the tracer provider.
type Option func(*Config)

// WithServiceName sets the service name.
func WithServiceName(name string) Option {
	return func(c *Config) { c.ServiceName = name }
}

// WithEnvironment sets deployment.environment.
func WithEnvironment(env string) Option {
	return func(c *Config) { c.Environment = env }
}

// WithExporter selects the exporter and its endpoint.
func WithExporter(exporter ExporterType, endpoint string) Option {
	return func(c *Config) {
		c.Exporter = exporter
		c.Endpoint = endpoint
	}
}

// WithSampleRate sets the root span sampling rate.
func WithSampleRate(rate float64) Option {
	return func(c *Config) { c.SampleRate = rate }
}

// WithAttributes adds resource attributes.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(c *Config) { c.Attributes = append(c.Attributes, attrs...) }
}
