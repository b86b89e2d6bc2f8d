package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates portal configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *PortalConfig) ValidationErrors {
	v.errors = nil

	v.validateRequired(config)
	v.validateCompliance(config)
	v.validateStorage(config)
	v.validateDocuments(config)
	v.validateAudit(config)
	v.validateNotification(config)
	v.validateResilience(config)
	v.validateTelemetry(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateRequired(config *PortalConfig) {
	if config.Name == "" {
		v.addError("name", "name is required")
	}
	if config.Version == "" {
		v.addError("version", "version is required")
	}
}

func (v *Validator) validateCompliance(config *PortalConfig) {
	if config.Compliance.CashLimitUSD == "" {
		return
	}
	limit, err := decimal.NewFromString(config.Compliance.CashLimitUSD)
	if err != nil {
		v.addError("compliance.cash_limit_usd", fmt.Sprintf("invalid amount: %s", config.Compliance.CashLimitUSD))
		return
	}
	if limit.IsNegative() {
		v.addError("compliance.cash_limit_usd", "cash limit must be non-negative")
	}
}

func (v *Validator) validateStorage(config *PortalConfig) {
	s := config.Storage
	switch s.Backend {
	case "", "memory":
	case "postgres":
		if s.Postgres.DSN == "" {
			v.addError("storage.postgres.dsn", "dsn is required")
		}
	case "sqlite":
		if s.SQLite.Path == "" {
			v.addError("storage.sqlite.path", "path is required")
		}
	case "mongodb":
		if s.MongoDB.URI == "" {
			v.addError("storage.mongodb.uri", "uri is required")
		}
		if s.MongoDB.Database == "" {
			v.addError("storage.mongodb.database", "database is required")
		}
	case "dynamodb":
		if s.DynamoDB.Table == "" {
			v.addError("storage.dynamodb.table", "table is required")
		}
		if d := s.DynamoDB; d.ReadCapacity < 0 || d.WriteCapacity < 0 || (d.ReadCapacity > 0) != (d.WriteCapacity > 0) {
			v.addError("storage.dynamodb.read_capacity", "read and write capacity must both be positive or both be zero")
		}
	default:
		v.addError("storage.backend", fmt.Sprintf("unsupported backend: %s", s.Backend))
	}

	if c := config.Profiles.Cache; c.Enabled && c.Address == "" {
		v.addError("profiles.cache.address", "address is required when the cache is enabled")
	}
}

func (v *Validator) validateDocuments(config *PortalConfig) {
	d := config.Documents
	switch d.Backend {
	case "", "memory":
	case "filesystem":
		if d.Dir == "" {
			v.addError("documents.dir", "dir is required for the filesystem backend")
		}
	case "s3", "gcs":
		if d.Bucket == "" {
			v.addError("documents.bucket", "bucket is required")
		}
	case "azure":
		if d.Bucket == "" {
			v.addError("documents.bucket", "container is required")
		}
		if d.AccountName == "" && d.ConnectionString == "" {
			v.addError("documents.account_name", "account_name or connection_string is required")
		}
	default:
		v.addError("documents.backend", fmt.Sprintf("unsupported backend: %s", d.Backend))
	}
}

func (v *Validator) validateAudit(config *PortalConfig) {
	if config.Audit.Retention < 0 {
		v.addError("audit.retention", "retention must not be negative")
	}
	switch config.Audit.Backend {
	case "", "memory":
	case "badger":
		if config.Audit.Dir == "" {
			v.addError("audit.dir", "dir is required for the badger journal")
		}
	default:
		v.addError("audit.backend", fmt.Sprintf("unsupported backend: %s", config.Audit.Backend))
	}
}

func (v *Validator) validateNotification(config *PortalConfig) {
	n := config.Notification
	if !n.Enabled {
		return
	}

	switch n.Channel {
	case "", "log":
	case "webhook":
		if len(n.Endpoints) == 0 {
			v.addError("notification.endpoints", "at least one endpoint is required for the webhook channel")
		}
		for i, ep := range n.Endpoints {
			path := fmt.Sprintf("notification.endpoints[%d]", i)
			if ep.URL == "" {
				v.addError(path+".url", "endpoint URL is required")
				continue
			}
			if u, err := url.Parse(ep.URL); err != nil || u.Scheme == "" || u.Host == "" {
				v.addError(path+".url", fmt.Sprintf("invalid URL: %s", ep.URL))
			}
		}
	case "kafka":
		if len(n.Kafka.Brokers) == 0 {
			v.addError("notification.kafka.brokers", "at least one broker is required")
		}
		if n.Kafka.Topic == "" {
			v.addError("notification.kafka.topic", "topic is required")
		}
	default:
		v.addError("notification.channel", fmt.Sprintf("unsupported channel: %s", n.Channel))
	}

	switch n.Dedupe {
	case "", "none", "memory":
	case "redis":
		if n.Redis.Address == "" {
			v.addError("notification.redis.address", "address is required for redis dedupe")
		}
	default:
		v.addError("notification.dedupe", fmt.Sprintf("unsupported dedupe backend: %s", n.Dedupe))
	}

	if n.WatchTemplates && n.TemplatesPath == "" {
		v.addError("notification.templates_path", "templates_path is required to watch templates")
	}
}

func (v *Validator) validateResilience(config *PortalConfig) {
	r := config.Resilience
	if r.Timeout < 0 {
		v.addError("resilience.timeout", "timeout must be non-negative")
	}
	if r.Retry.Enabled && r.Retry.MaxAttempts < 1 {
		v.addError("resilience.retry.max_attempts", "max_attempts must be at least 1")
	}
	if r.CircuitBreaker.Enabled && r.CircuitBreaker.Threshold < 1 {
		v.addError("resilience.circuit_breaker.threshold", "threshold must be at least 1")
	}
}

func (v *Validator) validateTelemetry(config *PortalConfig) {
	t := config.Telemetry
	if !t.Enabled {
		return
	}
	switch t.Exporter {
	case "", "stdout", "noop", "none":
	case "otlp":
		if t.Endpoint == "" {
			v.addError("telemetry.endpoint", "endpoint is required for the otlp exporter")
		}
	default:
		v.addError("telemetry.exporter", fmt.Sprintf("unsupported exporter: %s", t.Exporter))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		v.addError("telemetry.sample_rate", "sample_rate must be between 0 and 1")
	}
}
