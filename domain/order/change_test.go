package order

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewRecord(t *testing.T) {
	t.Parallel()

	r := NewRecord("ord-1", "cust-1", ProductCurrencyExchange, decimal.NewFromInt(1200))
	if r.Status != StatusDraft {
		t.Errorf("Status = %s, want draft", r.Status)
	}
	if r.PaymentStage != PaymentUnpaid {
		t.Errorf("PaymentStage = %s, want unpaid", r.PaymentStage)
	}
	if r.DocumentVerification != DocumentsPending {
		t.Errorf("DocumentVerification = %s, want pending", r.DocumentVerification)
	}

	loan := NewRecord("loan-1", "cust-1", ProductEducationLoan, decimal.Zero)
	if loan.Status != StatusApplied {
		t.Errorf("Status = %s, want applied", loan.Status)
	}
	if loan.PaymentStage != "" {
		t.Errorf("single-phase product should not track payment stage, got %s", loan.PaymentStage)
	}

	ins := NewRecord("pol-1", "cust-1", ProductTravelInsurance, decimal.Zero)
	if ins.DocumentVerification != "" {
		t.Errorf("travel insurance should not track documents, got %s", ins.DocumentVerification)
	}
}

func TestPatchApply_StampsAreAppendOnly(t *testing.T) {
	t.Parallel()

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewRecord("ord-1", "cust-1", ProductCurrencyExchange, decimal.Zero)
	r.Timestamps[StampSubmitted] = first

	status := StatusDocumentsSubmitted
	Patch{
		Status: &status,
		Stamps: map[TimestampField]time.Time{StampSubmitted: first.Add(time.Hour)},
	}.Apply(r, first.Add(time.Hour))

	if got := r.Timestamps[StampSubmitted]; !got.Equal(first) {
		t.Errorf("submitted_at = %v, want %v", got, first)
	}
	if r.Version != 2 {
		t.Errorf("Version = %d, want 2", r.Version)
	}
}

func TestStateChangePatch_FreeTextFields(t *testing.T) {
	t.Parallel()

	reason := "passport expired"
	empty := ""
	r := NewRecord("ord-1", "cust-1", ProductForexCard, decimal.Zero)
	r.ActionRequiredMessage = "upload passport"
	r.AdminNotes = "called customer"

	change := StateChange{
		From:                  StatusDocumentsSubmitted,
		To:                    StatusDocumentsRejected,
		TimestampField:        StampDocumentRejected,
		RejectionReason:       &reason,
		ActionRequiredMessage: &empty,
		AdminNotes:            &empty,
	}
	now := time.Now()
	change.Patch(now).Apply(r, now)

	if r.RejectionReason != reason {
		t.Errorf("RejectionReason = %q, want %q", r.RejectionReason, reason)
	}
	if r.ActionRequiredMessage != "" || r.AdminNotes != "" {
		t.Errorf("other free-text fields should be cleared, got %q / %q", r.ActionRequiredMessage, r.AdminNotes)
	}
	if !r.Stamped(StampDocumentRejected) {
		t.Error("document_rejected_at should be stamped")
	}
}

func TestRecordClone(t *testing.T) {
	t.Parallel()

	r := NewRecord("ord-1", "cust-1", ProductRemittance, decimal.Zero)
	r.Timestamps[StampSubmitted] = time.Now()

	cp := r.Clone()
	delete(cp.Timestamps, StampSubmitted)
	if !r.Stamped(StampSubmitted) {
		t.Error("Clone shares the timestamp map")
	}
}

func TestTransitionError(t *testing.T) {
	t.Parallel()

	err := Denied("kyc", "Cannot approve: KYC not verified")
	if !errors.Is(err, ErrGateDenied) {
		t.Error("denied error should match ErrGateDenied")
	}
	if CodeOf(err) != CodeGateDenied {
		t.Errorf("CodeOf = %s, want GateDenied", CodeOf(err))
	}

	cause := errors.New("connection reset")
	perr := &TransitionError{Code: CodePersistenceError, Reason: "update failed", Err: cause}
	if !errors.Is(perr, ErrPersistence) || !errors.Is(perr, cause) {
		t.Error("persistence error should match sentinel and cause")
	}
	if CodeOf(ErrConflict) != CodeConflict {
		t.Error("bare sentinel should map to its code")
	}
	if CodeOf(errors.New("other")) != "" {
		t.Error("unrelated error should have no code")
	}
}

func TestActorOwns(t *testing.T) {
	t.Parallel()

	r := NewRecord("ord-1", "cust-1", ProductForexCard, decimal.Zero)
	if !Owner("cust-1").Owns(r) {
		t.Error("owner should own their record")
	}
	if Owner("cust-2").Owns(r) {
		t.Error("other customer should not own record")
	}
	if Admin("cust-1").Owns(r) {
		t.Error("admin role never owns a record")
	}
}

func TestPaymentStageRank(t *testing.T) {
	t.Parallel()

	if !(PaymentStage("").Rank() < PaymentAdvancePaid.Rank() && PaymentAdvancePaid.Rank() < PaymentFullyPaid.Rank()) {
		t.Error("payment stages out of order")
	}
}
