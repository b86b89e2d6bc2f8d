package order

import "testing"

func TestDescribe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   Status
		label    string
		category Category
		terminal bool
	}{
		{StatusDraft, "Draft", CategoryInitial, false},
		{StatusDocumentsVerified, "Documents Verified", CategoryCompliance, false},
		{StatusAwaitingPayment, "Awaiting Payment", CategoryPayment, false},
		{StatusOutForDelivery, "Out for Delivery", CategoryFulfillment, false},
		{StatusDelivered, "Delivered", CategoryTerminal, true},
		{StatusCompleted, "Completed", CategoryTerminal, true},
		{StatusCancelled, "Cancelled", CategoryTerminal, true},
		{StatusRejected, "Rejected", CategoryTerminal, true},
		{StatusRefunded, "Refunded", CategoryTerminal, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()

			info := Describe(tt.status)
			if info.Label != tt.label {
				t.Errorf("Label = %q, want %q", info.Label, tt.label)
			}
			if info.Category != tt.category {
				t.Errorf("Category = %s, want %s", info.Category, tt.category)
			}
			if info.Terminal != tt.terminal {
				t.Errorf("Terminal = %v, want %v", info.Terminal, tt.terminal)
			}
		})
	}
}

func TestDescribe_AllStatusesRegistered(t *testing.T) {
	t.Parallel()

	for _, s := range AllStatuses() {
		if !s.IsKnown() {
			t.Errorf("status %s missing from registry", s)
		}
		if Describe(s).Category == CategoryPending {
			t.Errorf("status %s resolved to fallback category", s)
		}
	}
	if len(AllStatuses()) != len(registry) {
		t.Errorf("registry has %d entries, AllStatuses has %d", len(registry), len(AllStatuses()))
	}
}

func TestDescribe_UnknownFallsBack(t *testing.T) {
	t.Parallel()

	info := Describe(Status("on_hold_legacy"))
	if info.Category != CategoryPending {
		t.Errorf("Category = %s, want pending", info.Category)
	}
	if info.Terminal {
		t.Error("unknown status should not be terminal")
	}
	if info.Label != "On Hold Legacy" {
		t.Errorf("Label = %q, want %q", info.Label, "On Hold Legacy")
	}

	if got := Describe("").Label; got != "Unknown" {
		t.Errorf("empty status label = %q, want Unknown", got)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := map[string]Status{
		"pending_review": StatusUnderReview,
		"canceled":       StatusCancelled,
		"under_review":   StatusUnderReview,
		"mystery":        Status("mystery"),
	}
	for raw, want := range tests {
		if got := Normalize(raw); got != want {
			t.Errorf("Normalize(%q) = %s, want %s", raw, got, want)
		}
	}

	if info := Describe("pending_review"); info.Status != StatusUnderReview || info.Category != CategoryCompliance {
		t.Errorf("Describe(pending_review) = %+v, want under_review/compliance", info)
	}
}
