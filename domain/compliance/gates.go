package compliance

import (
	"fmt"

	"github.com/felixgeelhaar/orderflow/domain/order"
)

// fundRelease lists targets that release or collect funds. Products that
// collect documents must have them verified before entering these.
var fundRelease = map[order.Status]bool{
	order.StatusApproved:    true,
	order.StatusAdvancePaid: true,
	order.StatusBalancePaid: true,
}

// fulfillment lists targets that start delivering the product.
var fulfillment = map[order.Status]bool{
	order.StatusProcessing:     true,
	order.StatusScheduled:      true,
	order.StatusDispatched:     true,
	order.StatusOutForDelivery: true,
}

var verbs = map[order.Status]string{
	order.StatusDocumentsVerified: "verify documents",
	order.StatusApproved:          "approve",
	order.StatusAdvancePaid:       "mark advance paid",
	order.StatusBalancePaid:       "mark balance paid",
	order.StatusProcessing:        "start processing",
	order.StatusScheduled:         "schedule delivery",
	order.StatusDispatched:        "dispatch",
	order.StatusOutForDelivery:    "send out for delivery",
}

func verb(target order.Status) string {
	if v, ok := verbs[target]; ok {
		return v
	}
	return "move to " + string(target)
}

// KYCGate denies approval of KYC-bound products unless the owner's
// profile is verified. A missing profile counts as unverified.
func KYCGate(s Subject) Decision {
	if s.Target != order.StatusApproved || !s.Record.Product.RequiresKYC() {
		return Allow(GateKYC)
	}
	if s.Profile == nil || s.Profile.KYCStatus != order.KYCVerified {
		return Deny(GateKYC, "Cannot approve: KYC not verified. Set Action Required instead")
	}
	return Allow(GateKYC)
}

// RequiresEnhancedDocumentation reports whether the USD amount exceeds
// the cash limit. It never denies a transition on its own.
func (p Policy) RequiresEnhancedDocumentation(rec *order.Record) bool {
	return rec.AmountUSD.GreaterThan(p.CashLimitUSD)
}

// CashLimitGate is the non-blocking cash-limit check. It always allows and
// exists so the annotation shows up alongside the other gates.
func (p Policy) CashLimitGate(s Subject) Decision {
	d := Allow(GateCashLimit)
	if p.RequiresEnhancedDocumentation(s.Record) {
		d.Reason = fmt.Sprintf("amount exceeds USD %s: enhanced documentation required", p.CashLimitUSD.String())
	}
	return d
}

// DocumentGate guards document verification and fund release on products
// that collect documents.
func (p Policy) DocumentGate(s Subject) Decision {
	rec := s.Record
	if !rec.Product.CollectsDocuments() {
		return Allow(GateDocument)
	}
	release := fundRelease[s.Target]
	if s.Target != order.StatusDocumentsVerified && !release {
		return Allow(GateDocument)
	}

	if len(s.Documents) == 0 {
		return Deny(GateDocument, "no documents attached")
	}
	if rec.DocumentVerification == order.DocumentsRejected {
		return Deny(GateDocument, fmt.Sprintf("Cannot %s: documents were rejected", verb(s.Target)))
	}
	if !release {
		return Allow(GateDocument)
	}
	if rec.DocumentVerification != order.DocumentsVerified {
		return Deny(GateDocument, fmt.Sprintf("Cannot %s: documents not verified", verb(s.Target)))
	}
	if s.RequiresEnhancedDocumentation && !p.hasEnhancedDocument(s.Documents) {
		return Deny(GateDocument, fmt.Sprintf(
			"Cannot %s: amount exceeds USD %s, enhanced documentation required",
			verb(s.Target), p.CashLimitUSD.String()))
	}
	return Allow(GateDocument)
}

func (p Policy) hasEnhancedDocument(docs []order.Document) bool {
	for _, d := range docs {
		for _, t := range p.EnhancedDocumentTypes {
			if d.Type == t {
				return true
			}
		}
	}
	return false
}

// PaymentSequenceGate enforces payment ordering. Two-phase products need
// the advance recorded before either payment status and the balance
// recorded before fulfillment. Single-phase products need the full
// payment stamped before fulfillment.
func PaymentSequenceGate(s Subject) Decision {
	rec := s.Record
	if rec.Product.TwoPhasePayment() {
		switch {
		case s.Target == order.StatusAdvancePaid || s.Target == order.StatusBalancePaid:
			if rec.PaymentStage.Rank() < order.PaymentAdvancePaid.Rank() {
				return Deny(GatePaymentSequence, fmt.Sprintf("Cannot %s: advance payment not recorded", verb(s.Target)))
			}
		case fulfillment[s.Target]:
			if rec.PaymentStage != order.PaymentFullyPaid {
				return Deny(GatePaymentSequence, fmt.Sprintf("Cannot %s: balance payment not recorded", verb(s.Target)))
			}
		}
		return Allow(GatePaymentSequence)
	}

	if fulfillment[s.Target] && !rec.Stamped(order.StampPaid) {
		return Deny(GatePaymentSequence, fmt.Sprintf("Cannot %s: full payment not recorded", verb(s.Target)))
	}
	return Allow(GatePaymentSequence)
}
