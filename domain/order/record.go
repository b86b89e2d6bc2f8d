package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStage tracks the advance/balance sub-state of two-phase payments.
type PaymentStage string

// Payment stages, strictly ordered.
const (
	PaymentUnpaid      PaymentStage = "unpaid"
	PaymentAdvancePaid PaymentStage = "advance_paid"
	PaymentFullyPaid   PaymentStage = "fully_paid"
)

// Rank returns the position of the stage in the payment sequence.
// An empty stage ranks as unpaid.
func (p PaymentStage) Rank() int {
	switch p {
	case PaymentAdvancePaid:
		return 1
	case PaymentFullyPaid:
		return 2
	default:
		return 0
	}
}

// DocumentVerification is the review verdict on a record's documents.
type DocumentVerification string

// Document verification states.
const (
	DocumentsPending    DocumentVerification = "pending"
	DocumentsVerified   DocumentVerification = "verified"
	DocumentsRejected   DocumentVerification = "rejected"
	DocumentsIncomplete DocumentVerification = "incomplete"
)

// Valid reports whether the verification value is known.
func (d DocumentVerification) Valid() bool {
	switch d {
	case DocumentsPending, DocumentsVerified, DocumentsRejected, DocumentsIncomplete:
		return true
	default:
		return false
	}
}

// KYCStatus is the identity verification state of a customer profile.
type KYCStatus string

// KYC states.
const (
	KYCPending   KYCStatus = "pending"
	KYCSubmitted KYCStatus = "submitted"
	KYCVerified  KYCStatus = "verified"
	KYCRejected  KYCStatus = "rejected"
)

// TimestampField names an audit timestamp stamped by a transition.
type TimestampField string

// Audit timestamps. Once set they are never rewritten.
const (
	StampSubmitted             TimestampField = "submitted_at"
	StampReviewed              TimestampField = "reviewed_at"
	StampDocumentVerified      TimestampField = "document_verified_at"
	StampDocumentRejected      TimestampField = "document_rejected_at"
	StampActionRequired        TimestampField = "action_required_at"
	StampApproved              TimestampField = "approved_at"
	StampRejected              TimestampField = "rejected_at"
	StampAdvancePaid           TimestampField = "advance_paid_at"
	StampPaid                  TimestampField = "paid_at"
	StampProcessing            TimestampField = "processing_at"
	StampScheduled             TimestampField = "scheduled_at"
	StampDispatched            TimestampField = "dispatched_at"
	StampOutForDelivery        TimestampField = "out_for_delivery_at"
	StampDelivered             TimestampField = "delivered_at"
	StampCompleted             TimestampField = "completed_at"
	StampCancellationRequested TimestampField = "cancellation_requested_at"
	StampCancelled             TimestampField = "cancelled_at"
	StampRefundRequested       TimestampField = "refund_requested_at"
	StampRefunded              TimestampField = "refunded_at"

	StampAdvanceRecorded TimestampField = "advance_recorded_at"
	StampBalanceRecorded TimestampField = "balance_recorded_at"
	StampDocumentsReview TimestampField = "documents_reviewed_at"
)

var stampForStatus = map[Status]TimestampField{
	StatusDocumentsSubmitted:  StampSubmitted,
	StatusUnderReview:         StampReviewed,
	StatusDocumentsVerified:   StampDocumentVerified,
	StatusDocumentsRejected:   StampDocumentRejected,
	StatusActionRequired:      StampActionRequired,
	StatusApproved:            StampApproved,
	StatusRejected:            StampRejected,
	StatusAdvancePaid:         StampAdvancePaid,
	StatusBalancePaid:         StampPaid,
	StatusProcessing:          StampProcessing,
	StatusScheduled:           StampScheduled,
	StatusDispatched:          StampDispatched,
	StatusOutForDelivery:      StampOutForDelivery,
	StatusDelivered:           StampDelivered,
	StatusCompleted:           StampCompleted,
	StatusCancellationPending: StampCancellationRequested,
	StatusCancelled:           StampCancelled,
	StatusRefundPending:       StampRefundRequested,
	StatusRefunded:            StampRefunded,
}

// TimestampFor returns the audit timestamp stamped on entering s.
// The boolean is false for statuses that stamp nothing.
func TimestampFor(s Status) (TimestampField, bool) {
	f, ok := stampForStatus[s]
	return f, ok
}

// Record is an order or application moving through the lifecycle.
type Record struct {
	ID      string  `json:"id"`
	OwnerID string  `json:"owner_id"`
	Product Product `json:"product"`
	Status  Status  `json:"status"`
	Version int64   `json:"version"`

	PaymentStage     PaymentStage `json:"payment_stage,omitempty"`
	AdvanceReference string       `json:"advance_reference,omitempty"`
	BalanceReference string       `json:"balance_reference,omitempty"`

	DocumentVerification DocumentVerification `json:"document_verification,omitempty"`

	// AmountUSD is the USD equivalent of the order value.
	AmountUSD                     decimal.Decimal `json:"amount_usd"`
	RequiresEnhancedDocumentation bool            `json:"requires_enhanced_documentation"`

	AdminNotes            string `json:"admin_notes,omitempty"`
	ActionRequiredMessage string `json:"action_required_message,omitempty"`
	RejectionReason       string `json:"rejection_reason,omitempty"`

	Timestamps map[TimestampField]time.Time `json:"timestamps,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecord creates a record in the product's initial status.
func NewRecord(id, ownerID string, product Product, amountUSD decimal.Decimal) *Record {
	now := time.Now().UTC()
	r := &Record{
		ID:         id,
		OwnerID:    ownerID,
		Product:    product,
		Status:     product.InitialStatus(),
		Version:    1,
		AmountUSD:  amountUSD,
		Timestamps: make(map[TimestampField]time.Time),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if product.TwoPhasePayment() {
		r.PaymentStage = PaymentUnpaid
	}
	if product.CollectsDocuments() {
		r.DocumentVerification = DocumentsPending
	}
	return r
}

// Stamped reports whether the audit timestamp has been set.
func (r *Record) Stamped(f TimestampField) bool {
	if r.Timestamps == nil {
		return false
	}
	_, ok := r.Timestamps[f]
	return ok
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Timestamps != nil {
		cp.Timestamps = make(map[TimestampField]time.Time, len(r.Timestamps))
		for k, v := range r.Timestamps {
			cp.Timestamps[k] = v
		}
	}
	return &cp
}

// Contact holds the channels a customer can be reached on.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Profile is the customer profile joined for compliance checks.
// The lifecycle engine reads it and never mutates it.
type Profile struct {
	OwnerID   string    `json:"owner_id"`
	KYCStatus KYCStatus `json:"kyc_status"`
	Contact   Contact   `json:"contact"`
}

// Document is the presence record of an uploaded document.
type Document struct {
	Type       string    `json:"type"`
	UploadedAt time.Time `json:"uploaded_at"`
}
