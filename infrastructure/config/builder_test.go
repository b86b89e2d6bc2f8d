package config

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/orderflow/application"
	domainconfig "github.com/felixgeelhaar/orderflow/domain/config"
	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/infrastructure/storage/memory"
)

func TestBuilder_Policy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		limit     string
		docTypes  []string
		wantLimit string
		wantDocs  int
		wantErr   bool
	}{
		{name: "defaults", wantLimit: "3000", wantDocs: 2},
		{name: "override", limit: "2500.50", docTypes: []string{"source_of_funds"}, wantLimit: "2500.5", wantDocs: 1},
		{name: "invalid", limit: "three thousand", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := domainconfig.Default()
			cfg.Compliance.CashLimitUSD = tt.limit
			cfg.Compliance.EnhancedDocumentTypes = tt.docTypes

			policy, err := NewBuilder(&cfg).Policy()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Policy() should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("Policy() error = %v", err)
			}
			if !policy.CashLimitUSD.Equal(decimal.RequireFromString(tt.wantLimit)) {
				t.Errorf("CashLimitUSD = %s, want %s", policy.CashLimitUSD, tt.wantLimit)
			}
			if len(policy.EnhancedDocumentTypes) != tt.wantDocs {
				t.Errorf("EnhancedDocumentTypes = %v", policy.EnhancedDocumentTypes)
			}
		})
	}
}

func TestBuilder_ExecutorConfig(t *testing.T) {
	t.Parallel()

	cfg := domainconfig.Default()
	cfg.Resilience.Timeout = domainconfig.Duration(750 * time.Millisecond)
	cfg.Resilience.Retry.MaxAttempts = 6
	ec := NewBuilder(&cfg).ExecutorConfig()
	if ec.DefaultTimeout != 750*time.Millisecond || ec.RetryMaxAttempts != 6 || ec.DisableCircuitBreaker {
		t.Errorf("ExecutorConfig() = %+v", ec)
	}

	cfg.Resilience.Retry.Enabled = false
	cfg.Resilience.CircuitBreaker.Enabled = false
	ec = NewBuilder(&cfg).ExecutorConfig()
	if ec.RetryMaxAttempts != 1 || !ec.DisableCircuitBreaker {
		t.Errorf("disabled ExecutorConfig() = %+v", ec)
	}
}

func TestLoggingConfig(t *testing.T) {
	t.Parallel()

	cfg := domainconfig.Default()
	cfg.Logging = domainconfig.LoggingConfig{Level: "debug", Format: "json"}
	lc := LoggingConfig(&cfg)
	if lc.Level != "debug" || lc.Format != "json" || lc.Output == nil {
		t.Errorf("LoggingConfig() = %+v", lc)
	}
}

func TestSqliteDSN(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"orders.db", "file:orders.db?mode=rwc"},
		{"file:orders.db?cache=shared", "file:orders.db?cache=shared"},
		{":memory:", ":memory:"},
	}
	for _, tt := range tests {
		if got := sqliteDSN(tt.in); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuilder_Build_InMemory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	customers := memory.NewCustomerStore()
	customers.PutProfile(order.Profile{
		OwnerID:   "owner-1",
		KYCStatus: order.KYCVerified,
		Contact:   order.Contact{Name: "Asha", Email: "asha@example.com"},
	})

	cfg := domainconfig.Default()
	cfg.Notification.Enabled = false
	result, err := NewBuilder(&cfg, WithCustomerStore(customers)).Build(ctx)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer func() { _ = result.Close(ctx) }()

	if result.Customers != customers {
		t.Error("Build() should reuse the supplied customer store")
	}
	if result.Dispatcher != nil {
		t.Error("Dispatcher should be nil with notifications disabled")
	}

	owner := order.Owner("owner-1")
	rec, err := result.Service.Create(ctx, "owner-1", order.ProductCurrencyExchange, decimal.NewFromInt(500), owner)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	res := result.Service.RequestTransition(ctx, rec.ID, order.StatusPendingDocuments, owner, application.Extras{})
	if !res.OK {
		t.Fatalf("RequestTransition() = %+v, want OK", res)
	}

	entries, err := result.Journal.List(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Journal.List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("journal entries = %d, want created + applied", len(entries))
	}
}

func TestBuilder_Build_Durable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	cfg := domainconfig.Default()
	cfg.Storage = domainconfig.StorageConfig{
		Backend: "sqlite",
		SQLite:  domainconfig.SQLiteConfig{Path: filepath.Join(dir, "orders.db")},
	}
	cfg.Audit = domainconfig.AuditConfig{Backend: "badger", Dir: filepath.Join(dir, "audit")}
	cfg.Notification.Dedupe = "none"

	result, err := NewBuilder(&cfg).Build(ctx)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if result.Dispatcher == nil {
		t.Error("Dispatcher should be wired when notifications are enabled")
	}

	admin := order.Admin("admin-1")
	rec, err := result.Service.Create(ctx, "owner-9", order.ProductTravelInsurance, decimal.Zero, admin)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	got, err := result.Service.Get(ctx, rec.ID)
	if err != nil || got.Status != rec.Status {
		t.Errorf("Get() = %+v, %v", got, err)
	}

	if err := result.Close(ctx); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := result.Close(ctx); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestBuilder_Build_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*domainconfig.PortalConfig)
	}{
		{"unknown storage", func(c *domainconfig.PortalConfig) { c.Storage.Backend = "cassandra" }},
		{"unknown documents", func(c *domainconfig.PortalConfig) { c.Documents.Backend = "ftp" }},
		{"s3 without bucket", func(c *domainconfig.PortalConfig) { c.Documents.Backend = "s3" }},
		{"unknown audit", func(c *domainconfig.PortalConfig) { c.Audit.Backend = "etcd" }},
		{"unknown channel", func(c *domainconfig.PortalConfig) { c.Notification.Channel = "pager" }},
		{"kafka without brokers", func(c *domainconfig.PortalConfig) { c.Notification.Channel = "kafka" }},
		{"unknown dedupe", func(c *domainconfig.PortalConfig) { c.Notification.Dedupe = "etcd" }},
		{"unknown exporter", func(c *domainconfig.PortalConfig) {
			c.Telemetry = domainconfig.TelemetryConfig{Enabled: true, Exporter: "zipkin"}
		}},
		{"missing templates", func(c *domainconfig.PortalConfig) {
			c.Notification.TemplatesPath = filepath.Join(t.TempDir(), "absent.yaml")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := domainconfig.Default()
			tt.mutate(&cfg)
			if _, err := NewBuilder(&cfg).Build(context.Background()); !errors.Is(err, domainconfig.ErrBuildFailed) {
				t.Errorf("Build() error = %v, want ErrBuildFailed", err)
			}
		})
	}
}
