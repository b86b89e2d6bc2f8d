package notification

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/felixgeelhaar/orderflow/domain/notification"
	"github.com/felixgeelhaar/orderflow/domain/order"
)

func TestDefaultTemplates(t *testing.T) {
	t.Parallel()

	c := NewDefaultCatalog()

	tests := []struct {
		product order.Product
		status  order.Status
		want    bool
	}{
		{order.ProductCurrencyExchange, order.StatusDocumentsVerified, true},
		{order.ProductCurrencyExchange, order.StatusOutForDelivery, true},
		{order.ProductEducationLoan, order.StatusActionRequired, true},
		{order.ProductEducationLoan, order.StatusUnderReview, false},
		// education loans never pass documents_verified
		{order.ProductEducationLoan, order.StatusDocumentsVerified, false},
		{order.ProductForexCard, order.StatusPendingDocuments, false},
		{order.ProductRemittance, order.StatusRefunded, true},
	}
	for _, tt := range tests {
		_, ok := c.Lookup(tt.product, tt.status)
		if ok != tt.want {
			t.Errorf("Lookup(%s, %s) = %v, want %v", tt.product, tt.status, ok, tt.want)
		}
	}
}

func writeTemplates(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write templates: %v", err)
	}
}

func TestLoadCatalog(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "templates.yaml")
	writeTemplates(t, path, `
include_defaults: true
templates:
  - product: forex_card
    status: approved
    subject: "Card approved"
    body: "Your card {{.record_id}} is approved"
`)

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	tpl, ok := c.Lookup(order.ProductForexCard, order.StatusApproved)
	if !ok || tpl.Subject != "Card approved" {
		t.Errorf("file template should override the default, got %+v", tpl)
	}
	if _, ok := c.Lookup(order.ProductRemittance, order.StatusCompleted); !ok {
		t.Error("include_defaults should keep built-in templates")
	}
}

func TestLoadCatalog_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown product", "templates:\n  - {product: crypto, status: approved, body: x}\n"},
		{"unknown status", "templates:\n  - {product: forex_card, status: shipped, body: x}\n"},
		{"empty body", "templates:\n  - {product: forex_card, status: approved}\n"},
		{"bad syntax", "templates:\n  - {product: forex_card, status: approved, body: \"{{.x\"}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "t.yaml")
			writeTemplates(t, path, tt.content)
			if _, err := LoadCatalog(path); !errors.Is(err, notification.ErrInvalidTemplate) {
				t.Errorf("error = %v, want ErrInvalidTemplate", err)
			}
		})
	}
}

func TestTemplateCatalog_ReplaceKeepsOldOnError(t *testing.T) {
	t.Parallel()

	c := NewDefaultCatalog()
	before := len(c.Keys())

	err := c.Replace([]notification.Template{{Product: "nope", Status: order.StatusApproved, Body: "x"}})
	if err == nil {
		t.Fatal("Replace() should reject invalid templates")
	}
	if len(c.Keys()) != before {
		t.Error("failed Replace should leave the catalog untouched")
	}
}

func TestCatalogWatcher_Reloads(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "templates.yaml")
	writeTemplates(t, path, "templates:\n  - {product: forex_card, status: approved, subject: v1, body: one}\n")

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	w, err := NewCatalogWatcher(c, path)
	if err != nil {
		t.Fatalf("NewCatalogWatcher() error = %v", err)
	}
	defer w.Close()

	reloaded := make(chan error, 8)
	w.OnReload(func(err error) { reloaded <- err })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	writeTemplates(t, path, "templates:\n  - {product: forex_card, status: approved, subject: v2, body: two}\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-reloaded:
			if tpl, _ := c.Lookup(order.ProductForexCard, order.StatusApproved); tpl.Subject == "v2" {
				return
			}
		case <-deadline:
			t.Fatal("catalog was not reloaded")
		}
	}
}

// fakeWriter captures kafka messages.
type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaChannel_Dispatch(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	ch := &KafkaChannel{writer: w, topic: "notifications"}

	err := ch.Dispatch(context.Background(), "remittance.completed", order.Contact{Email: "x@example.com"}, map[string]string{"record_id": "rem-4"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "rem-4" {
		t.Errorf("key = %q, want record ID", w.msgs[0].Key)
	}

	w.err = errors.New("broker down")
	err = ch.Dispatch(context.Background(), "remittance.completed", order.Contact{}, nil)
	if !errors.Is(err, notification.ErrEndpointUnavailable) {
		t.Errorf("error = %v, want ErrEndpointUnavailable", err)
	}

	_ = ch.Close()
	if !w.closed {
		t.Error("Close should close the writer")
	}
}

func TestNewKafkaChannel_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewKafkaChannel(KafkaConfig{Topic: "t"}); err == nil {
		t.Error("expected error without brokers")
	}
	ch, err := NewKafkaChannel(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	if err != nil {
		t.Fatalf("NewKafkaChannel() error = %v", err)
	}
	_ = ch.Close()
}
