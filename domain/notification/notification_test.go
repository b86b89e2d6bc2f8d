package notification

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/orderflow/domain/order"
)

func TestNewEvent(t *testing.T) {
	t.Parallel()

	rec := order.NewRecord("ord-9", "cust-1", order.ProductCurrencyExchange, decimal.Zero)
	rec.Status = order.StatusDocumentsVerified
	rec.Version = 4

	ev := NewEvent(rec, order.Contact{Name: "Asha", Email: "asha@example.com"}, map[string]string{"agent": "desk-2"})

	if ev.ID != "ord-9:4" {
		t.Errorf("ID = %q, want ord-9:4", ev.ID)
	}
	if ev.NewStatus != order.StatusDocumentsVerified {
		t.Errorf("NewStatus = %s, want documents_verified", ev.NewStatus)
	}
	if ev.Context["label"] != "Documents Verified" {
		t.Errorf("label = %q", ev.Context["label"])
	}
	if ev.Context["name"] != "Asha" || ev.Context["agent"] != "desk-2" {
		t.Errorf("Context = %v, missing name or caller vars", ev.Context)
	}
	if _, ok := ev.Context["rejection_reason"]; ok {
		t.Error("empty rejection reason should not be a template variable")
	}
}

func TestTemplateKey(t *testing.T) {
	t.Parallel()

	tpl := Template{Product: order.ProductForexCard, Status: order.StatusApproved}
	if tpl.Key() != "forex_card.approved" {
		t.Errorf("Key() = %q", tpl.Key())
	}
	if TemplateKey(order.ProductForexCard, order.StatusApproved) != tpl.Key() {
		t.Error("TemplateKey and Template.Key disagree")
	}
}

func TestFilters(t *testing.T) {
	t.Parallel()

	ev := &Event{Product: order.ProductRemittance, NewStatus: order.StatusCompleted}

	tests := []struct {
		name   string
		filter EventFilter
		want   bool
	}{
		{"product match", FilterByProduct(order.ProductRemittance), true},
		{"product mismatch", FilterByProduct(order.ProductForexCard), false},
		{"status match", FilterByStatus(order.StatusCompleted, order.StatusDelivered), true},
		{"status mismatch", FilterByStatus(order.StatusApproved), false},
		{"combined", CombineFilters(FilterByProduct(order.ProductRemittance), FilterByStatus(order.StatusCompleted)), true},
		{"combined mismatch", CombineFilters(FilterByProduct(order.ProductRemittance), FilterByStatus(order.StatusApproved)), false},
		{"empty combine", CombineFilters(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.filter(ev); got != tt.want {
				t.Errorf("filter() = %v, want %v", got, tt.want)
			}
		})
	}
}
