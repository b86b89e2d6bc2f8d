// Package config provides domain models for portal configuration.
package config

import "time"

// PortalConfig represents the complete lifecycle service configuration.
type PortalConfig struct {
	// Name is a human-readable name for this deployment.
	Name string `json:"name" yaml:"name"`
	// Version is the configuration schema version.
	Version string `json:"version" yaml:"version"`

	// Compliance tunes the compliance gates.
	Compliance ComplianceConfig `json:"compliance,omitempty" yaml:"compliance,omitempty"`
	// Storage selects the record store.
	Storage StorageConfig `json:"storage" yaml:"storage"`
	// Profiles configures profile lookups.
	Profiles ProfilesConfig `json:"profiles,omitempty" yaml:"profiles,omitempty"`
	// Documents selects where document presence is read from.
	Documents DocumentsConfig `json:"documents,omitempty" yaml:"documents,omitempty"`
	// Audit selects the transition journal.
	Audit AuditConfig `json:"audit,omitempty" yaml:"audit,omitempty"`
	// Notification configures owner notifications.
	Notification NotificationConfig `json:"notification,omitempty" yaml:"notification,omitempty"`
	// Resilience configures collaborator calls.
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
	// Logging configures the logger.
	Logging LoggingConfig `json:"logging,omitempty" yaml:"logging,omitempty"`
	// Telemetry configures tracing.
	Telemetry TelemetryConfig `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
	// HTTP configures the API server.
	HTTP HTTPConfig `json:"http,omitempty" yaml:"http,omitempty"`
}

// ComplianceConfig tunes the compliance gates.
type ComplianceConfig struct {
	// CashLimitUSD is the enhanced documentation threshold as a decimal string.
	CashLimitUSD string `json:"cash_limit_usd,omitempty" yaml:"cash_limit_usd,omitempty"`
	// EnhancedDocumentTypes satisfy the enhanced documentation requirement.
	EnhancedDocumentTypes []string `json:"enhanced_document_types,omitempty" yaml:"enhanced_document_types,omitempty"`
}

// StorageConfig selects and configures the record store.
type StorageConfig struct {
	// Backend is one of memory, postgres, sqlite, mongodb, dynamodb.
	Backend  string         `json:"backend" yaml:"backend"`
	Postgres PostgresConfig `json:"postgres,omitempty" yaml:"postgres,omitempty"`
	SQLite   SQLiteConfig   `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
	MongoDB  MongoDBConfig  `json:"mongodb,omitempty" yaml:"mongodb,omitempty"`
	DynamoDB DynamoDBConfig `json:"dynamodb,omitempty" yaml:"dynamodb,omitempty"`
}

// PostgresConfig configures the PostgreSQL record store.
type PostgresConfig struct {
	DSN    string `json:"dsn" yaml:"dsn"`
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// SQLiteConfig configures the SQLite record store.
type SQLiteConfig struct {
	Path string `json:"path" yaml:"path"`
}

// MongoDBConfig configures the MongoDB record store.
type MongoDBConfig struct {
	URI        string   `json:"uri" yaml:"uri"`
	Database   string   `json:"database" yaml:"database"`
	Collection string   `json:"collection,omitempty" yaml:"collection,omitempty"`
	Timeout    Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// DynamoDBConfig configures the DynamoDB record store.
type DynamoDBConfig struct {
	Region   string `json:"region" yaml:"region"`
	Table    string `json:"table" yaml:"table"`
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// CreateTable creates the table on startup when it is missing.
	CreateTable bool `json:"create_table,omitempty" yaml:"create_table,omitempty"`
	// ReadCapacity and WriteCapacity provision the table. Zero for both
	// selects on-demand billing.
	ReadCapacity  int64 `json:"read_capacity,omitempty" yaml:"read_capacity,omitempty"`
	WriteCapacity int64 `json:"write_capacity,omitempty" yaml:"write_capacity,omitempty"`
}

// ProfilesConfig configures profile lookups.
type ProfilesConfig struct {
	// Cache enables a Redis read-through cache in front of profile lookups.
	Cache RedisConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
}

// RedisConfig configures a Redis connection.
type RedisConfig struct {
	Enabled  bool     `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Address  string   `json:"address,omitempty" yaml:"address,omitempty"`
	Password string   `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int      `json:"db,omitempty" yaml:"db,omitempty"`
	Prefix   string   `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	TTL      Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

// DocumentsConfig selects the document presence backend.
type DocumentsConfig struct {
	// Backend is one of memory, filesystem, s3, gcs, azure.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// Dir is the local directory for the filesystem backend.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// Bucket is the bucket or container holding uploads.
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	// Prefix is prepended to every owner/product/record path.
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// Region is the S3 region.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
	// Endpoint overrides the S3 endpoint for compatible stores.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// AccountName is the Azure storage account name.
	AccountName string `json:"account_name,omitempty" yaml:"account_name,omitempty"`
	// ConnectionString authenticates Azure without an account name.
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`
}

// AuditConfig selects the transition journal.
type AuditConfig struct {
	// Backend is one of memory, badger.
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	// Dir is the badger data directory.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
	// KeyPrefix namespaces journal keys in a shared badger database.
	KeyPrefix string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
	// Retention expires journal entries after this long. Zero keeps them.
	Retention Duration `json:"retention,omitempty" yaml:"retention,omitempty"`
}

// NotificationConfig contains notification settings.
type NotificationConfig struct {
	// Enabled enables notifications.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Channel is one of log, webhook, kafka.
	Channel string `json:"channel,omitempty" yaml:"channel,omitempty"`
	// Endpoints is the list of webhook endpoints.
	Endpoints []EndpointConfig `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
	// Kafka configures the broker channel.
	Kafka KafkaConfig `json:"kafka,omitempty" yaml:"kafka,omitempty"`
	// TemplatesPath is a YAML file of message templates.
	TemplatesPath string `json:"templates_path,omitempty" yaml:"templates_path,omitempty"`
	// WatchTemplates reloads templates when the file changes.
	WatchTemplates bool `json:"watch_templates,omitempty" yaml:"watch_templates,omitempty"`
	// Async dispatches in the background after the transition returns.
	Async bool `json:"async,omitempty" yaml:"async,omitempty"`
	// Dedupe selects the deduplication backend: none, memory, redis.
	Dedupe string `json:"dedupe,omitempty" yaml:"dedupe,omitempty"`
	// Redis configures the dedupe backend when Dedupe is redis.
	Redis RedisConfig `json:"redis,omitempty" yaml:"redis,omitempty"`
}

// EndpointConfig configures a webhook endpoint.
type EndpointConfig struct {
	// Name is a human-readable name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// URL is the webhook URL.
	URL string `json:"url" yaml:"url"`
	// Secret is the HMAC signing secret.
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty"`
	// Headers are additional HTTP headers.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// KafkaConfig configures the Kafka notification channel.
type KafkaConfig struct {
	Brokers []string `json:"brokers,omitempty" yaml:"brokers,omitempty"`
	Topic   string   `json:"topic,omitempty" yaml:"topic,omitempty"`
}

// ResilienceConfig contains resilience settings for collaborator calls.
type ResilienceConfig struct {
	// Timeout bounds each collaborator call.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Retry configures retry behavior.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// CircuitBreaker configures circuit breaker behavior.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	Enabled      bool     `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	MaxAttempts  int      `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	Enabled   bool     `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Threshold int      `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Timeout   Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// TelemetryConfig configures tracing export.
type TelemetryConfig struct {
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Exporter is one of stdout, otlp.
	Exporter    string  `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	Endpoint    string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	ServiceName string  `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	SampleRate  float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
	// Insecure dials the OTLP endpoint without TLS.
	Insecure bool `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	// Environment is reported as deployment.environment on every span.
	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	// JWTSecret verifies HS256 bearer tokens carrying the actor.
	JWTSecret string `json:"jwt_secret,omitempty" yaml:"jwt_secret,omitempty"`
	// JWTIssuer, when set, must match the token issuer.
	JWTIssuer string `json:"jwt_issuer,omitempty" yaml:"jwt_issuer,omitempty"`
}

// Default returns a configuration that runs entirely in memory.
func Default() PortalConfig {
	return PortalConfig{
		Name:    "orderflow",
		Version: "1",
		Compliance: ComplianceConfig{
			CashLimitUSD:          "3000",
			EnhancedDocumentTypes: []string{"source_of_funds", "bank_statement"},
		},
		Storage:   StorageConfig{Backend: "memory"},
		Documents: DocumentsConfig{Backend: "memory"},
		Audit:     AuditConfig{Backend: "memory"},
		Notification: NotificationConfig{
			Enabled: true,
			Channel: "log",
			Dedupe:  "memory",
		},
		Resilience: ResilienceConfig{
			Timeout: Duration(5 * time.Second),
			Retry: RetryConfig{
				Enabled:      true,
				MaxAttempts:  3,
				InitialDelay: Duration(100 * time.Millisecond),
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:   true,
				Threshold: 5,
				Timeout:   Duration(30 * time.Second),
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		HTTP:    HTTPConfig{Address: ":8080"},
	}
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}

	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
