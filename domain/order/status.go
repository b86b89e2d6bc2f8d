// Package order provides the lifecycle vocabulary shared by every product:
// statuses, products, records and the transition tables that govern them.
package order

// Status is a lifecycle status held by an order or application record.
type Status string

// Lifecycle statuses. Not every status applies to every product.
const (
	StatusDraft               Status = "draft"
	StatusPendingDocuments    Status = "pending_documents"
	StatusDocumentsSubmitted  Status = "documents_submitted"
	StatusDocumentsVerified   Status = "documents_verified"
	StatusDocumentsRejected   Status = "documents_rejected"
	StatusApplied             Status = "applied"
	StatusUnderReview         Status = "under_review"
	StatusActionRequired      Status = "action_required"
	StatusApproved            Status = "approved"
	StatusRejected            Status = "rejected"
	StatusAwaitingPayment     Status = "awaiting_payment"
	StatusAdvancePaid         Status = "advance_paid"
	StatusBalancePaid         Status = "balance_paid"
	StatusProcessing          Status = "processing"
	StatusScheduled           Status = "scheduled"
	StatusDispatched          Status = "dispatched"
	StatusOutForDelivery      Status = "out_for_delivery"
	StatusDelivered           Status = "delivered"
	StatusCompleted           Status = "completed"
	StatusCancellationPending Status = "cancellation_pending"
	StatusCancelled           Status = "cancelled"
	StatusRefundPending       Status = "refund_pending"
	StatusRefunded            Status = "refunded"
)

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return []Status{
		StatusDraft,
		StatusPendingDocuments,
		StatusDocumentsSubmitted,
		StatusDocumentsVerified,
		StatusDocumentsRejected,
		StatusApplied,
		StatusUnderReview,
		StatusActionRequired,
		StatusApproved,
		StatusRejected,
		StatusAwaitingPayment,
		StatusAdvancePaid,
		StatusBalancePaid,
		StatusProcessing,
		StatusScheduled,
		StatusDispatched,
		StatusOutForDelivery,
		StatusDelivered,
		StatusCompleted,
		StatusCancellationPending,
		StatusCancelled,
		StatusRefundPending,
		StatusRefunded,
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsKnown reports whether the status is part of the registry.
func (s Status) IsKnown() bool {
	_, ok := registry[s]
	return ok
}

// IsTerminal reports whether the status ends the lifecycle.
// Cancelled is terminal even though the refund sub-flow may follow it.
func (s Status) IsTerminal() bool {
	info, ok := registry[s]
	return ok && info.Terminal
}

// Product identifies a purchasable product line.
type Product string

// Supported products.
const (
	ProductCurrencyExchange Product = "currency_exchange"
	ProductForexCard        Product = "forex_card"
	ProductEducationLoan    Product = "education_loan"
	ProductRemittance       Product = "remittance"
	ProductTravelInsurance  Product = "travel_insurance"
)

// AllProducts returns every supported product.
func AllProducts() []Product {
	return []Product{
		ProductCurrencyExchange,
		ProductForexCard,
		ProductEducationLoan,
		ProductRemittance,
		ProductTravelInsurance,
	}
}

// String returns the string representation of the product.
func (p Product) String() string {
	return string(p)
}

// Valid reports whether the product is supported.
func (p Product) Valid() bool {
	_, ok := transitionTables[p]
	return ok
}

// RequiresKYC reports whether approval depends on a verified profile.
func (p Product) RequiresKYC() bool {
	return p == ProductForexCard || p == ProductEducationLoan
}

// CollectsDocuments reports whether the product reviews customer documents
// before releasing funds.
func (p Product) CollectsDocuments() bool {
	switch p {
	case ProductCurrencyExchange, ProductForexCard, ProductEducationLoan, ProductRemittance:
		return true
	default:
		return false
	}
}

// TwoPhasePayment reports whether the product is billed as an advance
// followed by a balance.
func (p Product) TwoPhasePayment() bool {
	return p == ProductCurrencyExchange
}

// InitialStatus returns the status a new record of this product starts in.
func (p Product) InitialStatus() Status {
	switch p {
	case ProductEducationLoan, ProductTravelInsurance:
		return StatusApplied
	default:
		return StatusDraft
	}
}
