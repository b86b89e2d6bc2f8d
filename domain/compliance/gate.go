// Package compliance provides the gates that can deny a lifecycle
// transition independently of the transition table. Gates are pure
// predicates over a record, its owner's profile and attached documents.
package compliance

import (
	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/orderflow/domain/order"
)

// Gate names reported in denials.
const (
	GateKYC             = "kyc"
	GateDocument        = "document"
	GateCashLimit       = "cash_limit"
	GatePaymentSequence = "payment_sequence"
)

// Decision is the outcome of a single gate.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Gate    string `json:"gate,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Allow returns an allowing decision for the gate.
func Allow(gate string) Decision {
	return Decision{Allowed: true, Gate: gate}
}

// Deny returns a denying decision for the gate.
func Deny(gate, reason string) Decision {
	return Decision{Allowed: false, Gate: gate, Reason: reason}
}

// Subject is everything a gate may inspect for one requested transition.
type Subject struct {
	Record    *order.Record
	Profile   *order.Profile
	Documents []order.Document
	Target    order.Status

	// RequiresEnhancedDocumentation is the cash-limit annotation.
	// Chain.Evaluate fills it before running the blocking gates.
	RequiresEnhancedDocumentation bool
}

// Gate is a named predicate over a subject.
type Gate interface {
	Name() string
	Check(s Subject) Decision
}

// GateFunc adapts a function to the Gate interface.
type GateFunc struct {
	GateName string
	Fn       func(s Subject) Decision
}

// Name returns the gate name.
func (g GateFunc) Name() string { return g.GateName }

// Check runs the gate.
func (g GateFunc) Check(s Subject) Decision { return g.Fn(s) }

// Policy holds the tunable compliance parameters.
type Policy struct {
	// CashLimitUSD is the regulatory threshold above which enhanced
	// documentation is required before fund release.
	CashLimitUSD decimal.Decimal

	// EnhancedDocumentTypes lists document types that satisfy the
	// enhanced documentation requirement.
	EnhancedDocumentTypes []string
}

// DefaultCashLimitUSD is the regulatory cash threshold.
var DefaultCashLimitUSD = decimal.NewFromInt(3000)

// DefaultPolicy returns the standard compliance policy.
func DefaultPolicy() Policy {
	return Policy{
		CashLimitUSD:          DefaultCashLimitUSD,
		EnhancedDocumentTypes: []string{"source_of_funds", "bank_statement"},
	}
}
