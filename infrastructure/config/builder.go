package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/orderflow/application"
	"github.com/felixgeelhaar/orderflow/domain/audit"
	"github.com/felixgeelhaar/orderflow/domain/compliance"
	domainconfig "github.com/felixgeelhaar/orderflow/domain/config"
	"github.com/felixgeelhaar/orderflow/domain/customer"
	"github.com/felixgeelhaar/orderflow/domain/notification"
	"github.com/felixgeelhaar/orderflow/domain/record"
	"github.com/felixgeelhaar/orderflow/infrastructure/documents"
	"github.com/felixgeelhaar/orderflow/infrastructure/logging"
	infranotif "github.com/felixgeelhaar/orderflow/infrastructure/notification"
	"github.com/felixgeelhaar/orderflow/infrastructure/observability"
	"github.com/felixgeelhaar/orderflow/infrastructure/resilience"
	"github.com/felixgeelhaar/orderflow/infrastructure/storage/badger"
	"github.com/felixgeelhaar/orderflow/infrastructure/storage/dynamodb"
	"github.com/felixgeelhaar/orderflow/infrastructure/storage/memory"
	"github.com/felixgeelhaar/orderflow/infrastructure/storage/mongodb"
	"github.com/felixgeelhaar/orderflow/infrastructure/storage/postgres"
	redisstore "github.com/felixgeelhaar/orderflow/infrastructure/storage/redis"
	"github.com/felixgeelhaar/orderflow/infrastructure/storage/sqlite"
	"github.com/felixgeelhaar/orderflow/infrastructure/telemetry"
)

// notificationQueueSize bounds pending asynchronous notifications.
const notificationQueueSize = 256

// Builder wires a lifecycle service from configuration.
type Builder struct {
	config    *domainconfig.PortalConfig
	customers *memory.CustomerStore
}

// BuilderOption configures the builder.
type BuilderOption func(*Builder)

// WithCustomerStore supplies the profile source and in-memory document
// backend. A fresh store is created otherwise.
func WithCustomerStore(store *memory.CustomerStore) BuilderOption {
	return func(b *Builder) {
		b.customers = store
	}
}

// NewBuilder creates a new configuration builder.
func NewBuilder(config *domainconfig.PortalConfig, opts ...BuilderOption) *Builder {
	b := &Builder{config: config}
	for _, opt := range opts {
		opt(b)
	}
	if b.customers == nil {
		b.customers = memory.NewCustomerStore()
	}
	return b
}

// BuildResult contains the wired service and the resources backing it.
type BuildResult struct {
	// Service is the lifecycle service.
	Service *application.Service
	// Store is the configured record store.
	Store record.Store
	// Journal is the configured audit journal.
	Journal audit.Journal
	// Customers is the profile source.
	Customers *memory.CustomerStore
	// Dispatcher is nil when notifications are disabled.
	Dispatcher *infranotif.Dispatcher

	closers []func(context.Context) error
}

func (r *BuildResult) onClose(fn func(context.Context) error) {
	r.closers = append(r.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (r *BuildResult) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Build connects every configured backend and returns the service. On
// failure everything acquired so far is released.
func (b *Builder) Build(ctx context.Context) (*BuildResult, error) {
	result := &BuildResult{Customers: b.customers}
	if err := b.build(ctx, result); err != nil {
		_ = result.Close(ctx)
		return nil, fmt.Errorf("%w: %w", domainconfig.ErrBuildFailed, err)
	}
	return result, nil
}

func (b *Builder) build(ctx context.Context, result *BuildResult) error {
	policy, err := b.Policy()
	if err != nil {
		return fmt.Errorf("building policy: %w", err)
	}
	engine, err := application.NewEngine(application.WithPolicy(policy))
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	if result.Store, err = b.buildStore(ctx, result); err != nil {
		return fmt.Errorf("building record store: %w", err)
	}
	profiles, err := b.buildProfiles(result)
	if err != nil {
		return fmt.Errorf("building profile lookup: %w", err)
	}
	docs, err := b.buildDocuments(ctx)
	if err != nil {
		return fmt.Errorf("building document lister: %w", err)
	}
	if result.Journal, err = b.buildJournal(result); err != nil {
		return fmt.Errorf("building audit journal: %w", err)
	}

	metrics := telemetry.NewMetricsProvider(telemetry.DefaultMetricsConfig())
	tracer, err := b.buildTracer(result)
	if err != nil {
		return fmt.Errorf("building tracer: %w", err)
	}
	if result.Dispatcher, err = b.buildDispatcher(ctx, result, metrics); err != nil {
		return fmt.Errorf("building notification: %w", err)
	}

	opts := []application.ServiceOption{
		application.WithEngine(engine),
		application.WithStore(result.Store),
		application.WithProfiles(profiles),
		application.WithDocuments(docs),
		application.WithJournal(result.Journal),
		application.WithMetrics(metrics),
		application.WithTracer(tracer),
	}
	if result.Dispatcher != nil {
		opts = append(opts, application.WithNotifier(result.Dispatcher))
	}
	result.Service, err = application.NewService(opts...)
	return err
}

// Policy returns the compliance policy described by the configuration.
func (b *Builder) Policy() (compliance.Policy, error) {
	policy := compliance.DefaultPolicy()
	c := b.config.Compliance
	if c.CashLimitUSD != "" {
		limit, err := decimal.NewFromString(c.CashLimitUSD)
		if err != nil {
			return compliance.Policy{}, fmt.Errorf("invalid cash limit %q: %w", c.CashLimitUSD, err)
		}
		policy.CashLimitUSD = limit
	}
	if len(c.EnhancedDocumentTypes) > 0 {
		policy.EnhancedDocumentTypes = slices.Clone(c.EnhancedDocumentTypes)
	}
	return policy, nil
}

// ExecutorConfig maps the resilience section onto collaborator executors.
func (b *Builder) ExecutorConfig() resilience.ExecutorConfig {
	r := b.config.Resilience
	cfg := resilience.DefaultExecutorConfig()
	if r.Timeout > 0 {
		cfg.DefaultTimeout = r.Timeout.Duration()
	}
	if r.Retry.Enabled {
		cfg.RetryMaxAttempts = r.Retry.MaxAttempts
		if r.Retry.InitialDelay > 0 {
			cfg.RetryInitialDelay = r.Retry.InitialDelay.Duration()
		}
	} else {
		cfg.RetryMaxAttempts = 1
	}
	if r.CircuitBreaker.Enabled {
		cfg.CircuitBreakerThreshold = r.CircuitBreaker.Threshold
		if r.CircuitBreaker.Timeout > 0 {
			cfg.CircuitBreakerTimeout = r.CircuitBreaker.Timeout.Duration()
		}
	} else {
		cfg.DisableCircuitBreaker = true
	}
	return cfg
}

// LoggingConfig maps the logging section onto the logger configuration.
func LoggingConfig(cfg *domainconfig.PortalConfig) logging.Config {
	lc := logging.DefaultConfig()
	if cfg.Logging.Level != "" {
		lc.Level = cfg.Logging.Level
	}
	if cfg.Logging.Format != "" {
		lc.Format = cfg.Logging.Format
	}
	lc.Output = os.Stderr
	return lc
}

func (b *Builder) buildStore(ctx context.Context, result *BuildResult) (record.Store, error) {
	s := b.config.Storage
	switch s.Backend {
	case "", "memory":
		return memory.NewRecordStore(), nil

	case "postgres":
		pool, err := postgres.NewPool(ctx, postgres.DefaultConfig(), postgres.WithDSN(s.Postgres.DSN))
		if err != nil {
			return nil, err
		}
		result.onClose(func(context.Context) error {
			pool.Close()
			return nil
		})
		schema := s.Postgres.Schema
		if schema == "" {
			schema = postgres.DefaultConfig().Schema
		}
		store := postgres.NewRecordStore(pool, schema)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil

	case "sqlite":
		store, err := sqlite.NewRecordStore(sqlite.DefaultConfig(), sqlite.WithDSN(sqliteDSN(s.SQLite.Path)))
		if err != nil {
			return nil, err
		}
		result.onClose(func(context.Context) error { return store.Close() })
		return store, nil

	case "mongodb":
		opts := []mongodb.ConfigOption{
			mongodb.WithURI(s.MongoDB.URI),
			mongodb.WithDatabase(s.MongoDB.Database),
		}
		if s.MongoDB.Timeout > 0 {
			opts = append(opts, mongodb.WithQueryTimeout(s.MongoDB.Timeout.Duration()))
		}
		client, err := mongodb.NewClient(ctx, opts...)
		if err != nil {
			return nil, err
		}
		result.onClose(client.Close)
		collection := s.MongoDB.Collection
		if collection == "" {
			collection = "records"
		}
		if err := client.CreateIndexes(ctx, collection); err != nil {
			return nil, err
		}
		return mongodb.NewRecordStore(client, collection), nil

	case "dynamodb":
		opts := []dynamodb.ConfigOption{dynamodb.WithRecordsTableName(s.DynamoDB.Table)}
		if s.DynamoDB.Region != "" {
			opts = append(opts, dynamodb.WithRegion(s.DynamoDB.Region))
		}
		if s.DynamoDB.Endpoint != "" {
			opts = append(opts, dynamodb.WithEndpoint(s.DynamoDB.Endpoint))
		}
		if s.DynamoDB.ReadCapacity > 0 {
			opts = append(opts, dynamodb.WithProvisionedCapacity(s.DynamoDB.ReadCapacity, s.DynamoDB.WriteCapacity))
		}
		client, err := dynamodb.NewClient(ctx, opts...)
		if err != nil {
			return nil, err
		}
		if s.DynamoDB.CreateTable {
			if err := client.EnsureRecordsTable(ctx); err != nil {
				return nil, fmt.Errorf("ensure records table: %w", err)
			}
		}
		return dynamodb.NewRecordStore(client), nil

	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", s.Backend)
	}
}

// sqliteDSN turns a bare file path into a read-write-create DSN.
func sqliteDSN(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?mode=rwc"
}

func (b *Builder) newRedisClient(c domainconfig.RedisConfig, result *BuildResult) (*goredis.Client, error) {
	opts := []redisstore.ConfigOption{
		redisstore.WithAddress(c.Address),
		redisstore.WithPassword(c.Password),
		redisstore.WithDB(c.DB),
	}
	if c.Prefix != "" {
		opts = append(opts, redisstore.WithKeyPrefix(c.Prefix))
	}
	client, err := redisstore.NewClient(redisstore.DefaultConfig(), opts...)
	if err != nil {
		return nil, err
	}
	result.onClose(func(context.Context) error { return client.Close() })
	return client, nil
}

func redisPrefix(c domainconfig.RedisConfig) string {
	if c.Prefix != "" {
		return c.Prefix
	}
	return redisstore.DefaultConfig().KeyPrefix
}

func (b *Builder) buildProfiles(result *BuildResult) (customer.ProfileLookup, error) {
	var lookup customer.ProfileLookup = b.customers

	if c := b.config.Profiles.Cache; c.Enabled {
		client, err := b.newRedisClient(c, result)
		if err != nil {
			return nil, err
		}
		lookup = redisstore.NewProfileCache(client, lookup, redisPrefix(c), c.TTL.Duration())
	}

	return resilience.NewProfileLookup(lookup, b.ExecutorConfig()), nil
}

func (b *Builder) buildDocuments(ctx context.Context) (customer.DocumentLister, error) {
	d := b.config.Documents

	var lister customer.DocumentLister
	switch d.Backend {
	case "", "memory":
		return b.customers, nil
	case "filesystem":
		l, err := documents.NewFilesystemLister(d.Dir, d.Prefix)
		if err != nil {
			return nil, err
		}
		lister = l
	case "s3":
		l, err := documents.NewS3Lister(ctx, documents.S3Config{
			Bucket:   d.Bucket,
			Root:     d.Prefix,
			Region:   d.Region,
			Endpoint: d.Endpoint,
		})
		if err != nil {
			return nil, err
		}
		lister = l
	case "gcs":
		l, err := documents.NewGCSLister(ctx, documents.GCSConfig{Bucket: d.Bucket, Root: d.Prefix})
		if err != nil {
			return nil, err
		}
		lister = l
	case "azure":
		l, err := documents.NewAzureLister(documents.AzureConfig{
			Container:        d.Bucket,
			Root:             d.Prefix,
			AccountName:      d.AccountName,
			ConnectionString: d.ConnectionString,
		})
		if err != nil {
			return nil, err
		}
		lister = l
	default:
		return nil, fmt.Errorf("unsupported documents backend: %s", d.Backend)
	}

	return resilience.NewDocumentLister(lister, b.ExecutorConfig()), nil
}

func (b *Builder) buildJournal(result *BuildResult) (audit.Journal, error) {
	a := b.config.Audit
	switch a.Backend {
	case "", "memory":
		return memory.NewJournal(), nil
	case "badger":
		opts := []badger.Option{badger.WithDir(a.Dir), badger.WithRetention(a.Retention.Duration())}
		if a.KeyPrefix != "" {
			opts = append(opts, badger.WithKeyPrefix(a.KeyPrefix))
		}
		journal, err := badger.NewJournal(badger.DefaultConfig(), opts...)
		if err != nil {
			return nil, err
		}
		result.onClose(func(context.Context) error { return journal.Close() })
		return journal, nil
	default:
		return nil, fmt.Errorf("unsupported audit backend: %s", a.Backend)
	}
}

func (b *Builder) buildTracer(result *BuildResult) (*observability.Tracer, error) {
	t := b.config.Telemetry
	if !t.Enabled {
		return nil, nil
	}

	cfg, err := observability.ConfigFromTelemetry(t, b.config.Name)
	if err != nil {
		return nil, err
	}
	cfg.Attributes = append(cfg.Attributes,
		attribute.String("orderflow.storage.backend", b.config.Storage.Backend),
		attribute.String("orderflow.audit.backend", b.config.Audit.Backend),
	)

	provider, err := observability.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	result.onClose(provider.Shutdown)
	return provider.Tracer(), nil
}

func (b *Builder) buildDispatcher(ctx context.Context, result *BuildResult, metrics *telemetry.MetricsProvider) (*infranotif.Dispatcher, error) {
	n := b.config.Notification
	if !n.Enabled {
		return nil, nil
	}

	channel, err := b.buildChannel(result)
	if err != nil {
		return nil, err
	}
	catalog, err := b.buildCatalog(ctx, result)
	if err != nil {
		return nil, err
	}
	deduper, err := b.buildDeduper(result)
	if err != nil {
		return nil, err
	}

	config := infranotif.DispatcherConfig{
		Catalog: catalog,
		Channel: channel,
		Deduper: deduper,
		Metrics: metrics,
	}
	if n.Async {
		config.QueueSize = notificationQueueSize
	}
	dispatcher, err := infranotif.NewDispatcher(config)
	if err != nil {
		return nil, err
	}
	result.onClose(func(context.Context) error { return dispatcher.Close() })
	return dispatcher, nil
}

func (b *Builder) buildChannel(result *BuildResult) (notification.Channel, error) {
	n := b.config.Notification
	switch n.Channel {
	case "", "log":
		return infranotif.LogChannel{}, nil

	case "webhook":
		fan := make(infranotif.FanoutChannel, 0, len(n.Endpoints))
		for _, ep := range n.Endpoints {
			wc := infranotif.DefaultWebhookConfig()
			wc.Endpoint = notification.Endpoint{
				Name:    ep.Name,
				URL:     ep.URL,
				Secret:  ep.Secret,
				Headers: ep.Headers,
			}
			ch, err := infranotif.NewWebhookChannel(wc)
			if err != nil {
				return nil, fmt.Errorf("endpoint %q: %w", ep.Name, err)
			}
			fan = append(fan, ch)
		}
		if len(fan) == 1 {
			return fan[0], nil
		}
		return fan, nil

	case "kafka":
		ch, err := infranotif.NewKafkaChannel(infranotif.KafkaConfig{
			Brokers: n.Kafka.Brokers,
			Topic:   n.Kafka.Topic,
		})
		if err != nil {
			return nil, err
		}
		result.onClose(func(context.Context) error { return ch.Close() })
		return ch, nil

	default:
		return nil, fmt.Errorf("unsupported notification channel: %s", n.Channel)
	}
}

func (b *Builder) buildCatalog(ctx context.Context, result *BuildResult) (notification.Catalog, error) {
	n := b.config.Notification
	if n.TemplatesPath == "" {
		return infranotif.NewDefaultCatalog(), nil
	}

	catalog, err := infranotif.LoadCatalog(n.TemplatesPath)
	if err != nil {
		return nil, err
	}
	if !n.WatchTemplates {
		return catalog, nil
	}

	watcher, err := infranotif.NewCatalogWatcher(catalog, n.TemplatesPath)
	if err != nil {
		return nil, err
	}
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	go watcher.Run(watchCtx)
	result.onClose(func(context.Context) error {
		cancel()
		return watcher.Close()
	})
	return catalog, nil
}

func (b *Builder) buildDeduper(result *BuildResult) (notification.Deduper, error) {
	n := b.config.Notification
	switch n.Dedupe {
	case "none":
		return nil, nil
	case "", "memory":
		return memory.NewDeduper(), nil
	case "redis":
		client, err := b.newRedisClient(n.Redis, result)
		if err != nil {
			return nil, err
		}
		return redisstore.NewDeduper(client, redisPrefix(n.Redis), n.Redis.TTL.Duration()), nil
	default:
		return nil, fmt.Errorf("unsupported dedupe backend: %s", n.Dedupe)
	}
}
