package config

import (
	"encoding/json"
)

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Schema               string                 `json:"$schema,omitempty"`
	ID                   string                 `json:"$id,omitempty"`
	Title                string                 `json:"title,omitempty"`
	Description          string                 `json:"description,omitempty"`
	Type                 string                 `json:"type,omitempty"`
	Properties           map[string]*JSONSchema `json:"properties,omitempty"`
	Required             []string               `json:"required,omitempty"`
	Items                *JSONSchema            `json:"items,omitempty"`
	AdditionalProperties *JSONSchema            `json:"additionalProperties,omitempty"`
	Enum                 []string               `json:"enum,omitempty"`
	Default              any                    `json:"default,omitempty"`
	Minimum              *float64               `json:"minimum,omitempty"`
	Maximum              *float64               `json:"maximum,omitempty"`
	Pattern              string                 `json:"pattern,omitempty"`
	Format               string                 `json:"format,omitempty"`
}

// GenerateSchema generates a JSON Schema for the portal configuration file.
func GenerateSchema() *JSONSchema {
	return &JSONSchema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		ID:          "https://github.com/felixgeelhaar/orderflow/orderflow-config.schema.json",
		Title:       "Orderflow Configuration",
		Description: "Configuration schema for the order lifecycle service",
		Type:        "object",
		Properties: map[string]*JSONSchema{
			"name":         {Type: "string", Description: "A human-readable name for this deployment", Default: "orderflow"},
			"version":      {Type: "string", Description: "The configuration schema version", Default: "1"},
			"compliance":   generateComplianceSchema(),
			"storage":      generateStorageSchema(),
			"profiles":     generateProfilesSchema(),
			"documents":    generateDocumentsSchema(),
			"audit":        generateAuditSchema(),
			"notification": generateNotificationSchema(),
			"resilience":   generateResilienceSchema(),
			"logging":      generateLoggingSchema(),
			"telemetry":    generateTelemetrySchema(),
			"http":         generateHTTPSchema(),
		},
	}
}

func object(description string, props map[string]*JSONSchema, required ...string) *JSONSchema {
	return &JSONSchema{Type: "object", Description: description, Properties: props, Required: required}
}

func enum(description string, def string, values ...string) *JSONSchema {
	s := &JSONSchema{Type: "string", Description: description, Enum: values}
	if def != "" {
		s.Default = def
	}
	return s
}

func duration(description string, def string) *JSONSchema {
	s := &JSONSchema{Type: "string", Description: description, Format: "duration"}
	if def != "" {
		s.Default = def
	}
	return s
}

func generateComplianceSchema() *JSONSchema {
	return object("Compliance gate tuning", map[string]*JSONSchema{
		"cash_limit_usd": {
			Type:        "string",
			Description: "Forex card cash amount above which enhanced documentation is required",
			Pattern:     `^[0-9]+(\.[0-9]+)?$`,
			Default:     "3000",
		},
		"enhanced_document_types": {
			Type:        "array",
			Description: "Document types that satisfy enhanced documentation",
			Items:       &JSONSchema{Type: "string"},
		},
	})
}

func generateStorageSchema() *JSONSchema {
	return object("Record store selection", map[string]*JSONSchema{
		"backend": enum("Record store backend", "memory", "memory", "postgres", "sqlite", "mongodb", "dynamodb"),
		"postgres": object("PostgreSQL record store", map[string]*JSONSchema{
			"dsn":    {Type: "string", Description: "Connection string"},
			"schema": {Type: "string", Description: "Schema holding the records table"},
		}, "dsn"),
		"sqlite": object("SQLite record store", map[string]*JSONSchema{
			"path": {Type: "string", Description: "Database file path"},
		}, "path"),
		"mongodb": object("MongoDB record store", map[string]*JSONSchema{
			"uri":        {Type: "string", Description: "Connection URI", Format: "uri"},
			"database":   {Type: "string", Default: "orderflow"},
			"collection": {Type: "string", Default: "records"},
			"timeout":    duration("Per-query timeout", "10s"),
		}, "uri", "database"),
		"dynamodb": object("DynamoDB record store", map[string]*JSONSchema{
			"region":         {Type: "string"},
			"table":          {Type: "string", Default: "orderflow_records"},
			"endpoint":       {Type: "string", Description: "Endpoint override for local testing", Format: "uri"},
			"create_table":   {Type: "boolean", Description: "Create the table on startup when missing", Default: false},
			"read_capacity":  {Type: "integer", Description: "Provisioned read capacity; 0 selects on-demand"},
			"write_capacity": {Type: "integer", Description: "Provisioned write capacity; 0 selects on-demand"},
		}, "table"),
	})
}

func generateRedisSchema(description string) *JSONSchema {
	return object(description, map[string]*JSONSchema{
		"enabled":  {Type: "boolean", Default: false},
		"address":  {Type: "string", Description: "host:port"},
		"password": {Type: "string"},
		"db":       {Type: "integer", Minimum: floatPtr(0)},
		"prefix":   {Type: "string", Default: "orderflow:"},
		"ttl":      duration("Key lifetime", ""),
	})
}

func generateProfilesSchema() *JSONSchema {
	return object("Customer profile lookups", map[string]*JSONSchema{
		"cache": generateRedisSchema("Redis read-through cache for profiles"),
	})
}

func generateDocumentsSchema() *JSONSchema {
	return object("Document presence backend", map[string]*JSONSchema{
		"backend":           enum("Object store holding uploads", "memory", "memory", "filesystem", "s3", "gcs", "azure"),
		"dir":               {Type: "string", Description: "Local directory for the filesystem backend"},
		"bucket":            {Type: "string", Description: "Bucket or container name"},
		"prefix":            {Type: "string", Description: "Prefix above owner/product/record"},
		"region":            {Type: "string", Description: "S3 region"},
		"endpoint":          {Type: "string", Description: "S3-compatible endpoint", Format: "uri"},
		"account_name":      {Type: "string", Description: "Azure storage account"},
		"connection_string": {Type: "string", Description: "Azure connection string"},
	})
}

func generateAuditSchema() *JSONSchema {
	return object("Transition journal", map[string]*JSONSchema{
		"backend": enum("Journal backend", "memory", "memory", "badger"),
		"dir":        {Type: "string", Description: "Badger data directory"},
		"key_prefix": {Type: "string", Description: "Key namespace in a shared database", Default: "orderflow:"},
		"retention":  duration("How long entries are kept; empty keeps them forever", ""),
	})
}

func generateNotificationSchema() *JSONSchema {
	return object("Owner notifications", map[string]*JSONSchema{
		"enabled": {Type: "boolean", Default: true},
		"channel": enum("Delivery channel", "log", "log", "webhook", "kafka"),
		"endpoints": {
			Type:        "array",
			Description: "Webhook endpoints",
			Items: object("", map[string]*JSONSchema{
				"name":   {Type: "string"},
				"url":    {Type: "string", Format: "uri"},
				"secret": {Type: "string", Description: "HMAC signing secret"},
				"headers": {
					Type:                 "object",
					AdditionalProperties: &JSONSchema{Type: "string"},
				},
			}, "url"),
		},
		"kafka": object("Kafka channel", map[string]*JSONSchema{
			"brokers": {Type: "array", Items: &JSONSchema{Type: "string"}},
			"topic":   {Type: "string"},
		}),
		"templates_path":  {Type: "string", Description: "YAML file of message templates"},
		"watch_templates": {Type: "boolean", Description: "Reload templates on change", Default: false},
		"async":           {Type: "boolean", Description: "Dispatch after the transition returns", Default: false},
		"dedupe":          enum("Deduplication backend", "memory", "none", "memory", "redis"),
		"redis":           generateRedisSchema("Redis dedupe backend"),
	})
}

func generateResilienceSchema() *JSONSchema {
	return object("Collaborator call resilience", map[string]*JSONSchema{
		"timeout": duration("Per-call timeout", "5s"),
		"retry": object("Retry behavior", map[string]*JSONSchema{
			"enabled":       {Type: "boolean", Default: true},
			"max_attempts":  {Type: "integer", Minimum: floatPtr(1), Default: 3},
			"initial_delay": duration("Delay before the first retry", "100ms"),
		}),
		"circuit_breaker": object("Circuit breaker behavior", map[string]*JSONSchema{
			"enabled":   {Type: "boolean", Default: true},
			"threshold": {Type: "integer", Description: "Failures before opening", Minimum: floatPtr(1), Default: 5},
			"timeout":   duration("How long the circuit stays open", "30s"),
		}),
	})
}

func generateLoggingSchema() *JSONSchema {
	return object("Logger settings", map[string]*JSONSchema{
		"level":  enum("Minimum level", "info", "debug", "info", "warn", "error"),
		"format": enum("Output format", "console", "console", "json"),
	})
}

func generateTelemetrySchema() *JSONSchema {
	return object("Tracing export", map[string]*JSONSchema{
		"enabled":      {Type: "boolean", Default: false},
		"exporter":     enum("Span exporter", "stdout", "stdout", "otlp", "noop", "none"),
		"endpoint":     {Type: "string", Description: "OTLP gRPC endpoint"},
		"service_name": {Type: "string", Default: "orderflow"},
		"sample_rate":  {Type: "number", Minimum: floatPtr(0), Maximum: floatPtr(1)},
		"insecure":     {Type: "boolean", Description: "Dial the OTLP endpoint without TLS", Default: false},
		"environment":  {Type: "string", Default: "development"},
	})
}

func generateHTTPSchema() *JSONSchema {
	return object("API server", map[string]*JSONSchema{
		"address":    {Type: "string", Default: ":8080"},
		"jwt_secret": {Type: "string", Description: "HS256 secret for bearer tokens"},
		"jwt_issuer": {Type: "string", Description: "Required token issuer"},
	})
}

func floatPtr(f float64) *float64 {
	return &f
}

// SchemaJSON returns the JSON Schema as a JSON string.
func SchemaJSON() (string, error) {
	data, err := json.MarshalIndent(GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
