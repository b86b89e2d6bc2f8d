package order

import "testing"

func TestTransitionTables_SubsetOfSuperset(t *testing.T) {
	t.Parallel()

	for _, p := range AllProducts() {
		table := TransitionTable(p)
		if table == nil {
			t.Fatalf("no table for %s", p)
		}
		for from, targets := range table {
			for _, to := range targets {
				if !superset.Contains(from, to) {
					t.Errorf("%s: %s -> %s not in shared table", p, from, to)
				}
			}
		}
	}
}

func TestTransitionTables_TerminalStatuses(t *testing.T) {
	t.Parallel()

	for _, p := range AllProducts() {
		for _, s := range AllStatuses() {
			if !s.IsTerminal() {
				continue
			}
			targets := AllowedTargets(p, s)
			if s == StatusCancelled {
				if len(targets) != 1 || targets[0] != StatusRefundPending {
					t.Errorf("%s: cancelled targets = %v, want [refund_pending]", p, targets)
				}
				continue
			}
			if len(targets) != 0 {
				t.Errorf("%s: terminal %s has targets %v", p, s, targets)
			}
		}
	}
}

func TestTransitionTables_CancellationFromNonTerminal(t *testing.T) {
	t.Parallel()

	for _, p := range AllProducts() {
		for from := range TransitionTable(p) {
			if from.IsTerminal() || from == StatusCancellationPending || from == StatusRefundPending {
				continue
			}
			if !CanTransition(p, from, StatusCancellationPending) {
				t.Errorf("%s: %s cannot request cancellation", p, from)
			}
		}
		if !CanTransition(p, StatusCancellationPending, StatusCancelled) {
			t.Errorf("%s: cancellation_pending -> cancelled missing", p)
		}
		if !CanTransition(p, StatusRefundPending, StatusRefunded) {
			t.Errorf("%s: refund_pending -> refunded missing", p)
		}
	}
}

func TestTransitionTables_InitialStatusHasTargets(t *testing.T) {
	t.Parallel()

	for _, p := range AllProducts() {
		if len(AllowedTargets(p, p.InitialStatus())) == 0 {
			t.Errorf("%s: initial status %s has no targets", p, p.InitialStatus())
		}
	}
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		product Product
		from    Status
		to      Status
		want    bool
	}{
		{ProductCurrencyExchange, StatusDocumentsSubmitted, StatusDocumentsVerified, true},
		{ProductCurrencyExchange, StatusAwaitingPayment, StatusBalancePaid, true},
		{ProductCurrencyExchange, StatusDocumentsVerified, StatusApproved, false},
		{ProductForexCard, StatusDocumentsVerified, StatusApproved, true},
		{ProductForexCard, StatusAwaitingPayment, StatusAdvancePaid, false},
		{ProductEducationLoan, StatusUnderReview, StatusApproved, true},
		{ProductEducationLoan, StatusDraft, StatusPendingDocuments, false},
		{ProductTravelInsurance, StatusApplied, StatusApproved, false},
		{ProductRemittance, StatusBalancePaid, StatusScheduled, false},
		{Product("crypto"), StatusDraft, StatusPendingDocuments, false},
		{ProductEducationLoan, Status("pending_review"), StatusApproved, true},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.product, tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s, %s) = %v, want %v", tt.product, tt.from, tt.to, got, tt.want)
		}
	}
}

func TestReachable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		product Product
		status  Status
		want    bool
	}{
		{ProductCurrencyExchange, StatusDraft, false},
		{ProductCurrencyExchange, StatusPendingDocuments, true},
		{ProductEducationLoan, StatusApplied, false},
		{ProductEducationLoan, StatusUnderReview, true},
		{ProductEducationLoan, StatusDocumentsVerified, false},
		{ProductForexCard, StatusRefunded, true},
		{Product("crypto"), StatusApproved, false},
	}

	for _, tt := range tests {
		if got := Reachable(tt.product, tt.status); got != tt.want {
			t.Errorf("Reachable(%s, %s) = %v, want %v", tt.product, tt.status, got, tt.want)
		}
	}
}

func TestTransitionTable_ReturnsCopy(t *testing.T) {
	t.Parallel()

	table := TransitionTable(ProductForexCard)
	table[StatusDraft] = nil

	if len(AllowedTargets(ProductForexCard, StatusDraft)) == 0 {
		t.Error("mutating the returned table changed the product table")
	}
	if TransitionTable(Product("unknown")) != nil {
		t.Error("unknown product should have no table")
	}
}
