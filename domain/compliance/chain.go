package compliance

// Evaluation is the combined outcome of a gate chain.
type Evaluation struct {
	Decision

	// RequiresEnhancedDocumentation carries the cash-limit annotation so it
	// can be persisted with the transition.
	RequiresEnhancedDocumentation bool

	// Checked lists the gates that ran, in order.
	Checked []string

	// Annotations holds non-blocking notes raised by gates.
	Annotations []string
}

// Chain runs gates in a fixed order and stops at the first denial.
type Chain struct {
	policy Policy
	gates  []Gate
}

// NewChain creates the standard chain: kyc, document, payment sequence.
// The cash-limit annotation is computed before any of them run.
func NewChain(policy Policy) *Chain {
	return &Chain{
		policy: policy,
		gates: []Gate{
			GateFunc{GateName: GateKYC, Fn: KYCGate},
			GateFunc{GateName: GateDocument, Fn: policy.DocumentGate},
			GateFunc{GateName: GatePaymentSequence, Fn: PaymentSequenceGate},
		},
	}
}

// With returns a copy of the chain with extra gates appended.
func (c *Chain) With(gates ...Gate) *Chain {
	all := make([]Gate, 0, len(c.gates)+len(gates))
	all = append(all, c.gates...)
	all = append(all, gates...)
	return &Chain{policy: c.policy, gates: all}
}

// Policy returns the chain's policy.
func (c *Chain) Policy() Policy {
	return c.policy
}

// Evaluate runs the chain against s. The returned evaluation is allowed
// only when every gate allowed.
func (c *Chain) Evaluate(s Subject) Evaluation {
	s.RequiresEnhancedDocumentation = c.policy.RequiresEnhancedDocumentation(s.Record)
	eval := Evaluation{
		Decision:                      Allow(""),
		RequiresEnhancedDocumentation: s.RequiresEnhancedDocumentation,
		Checked:                       []string{GateCashLimit},
	}
	if note := c.policy.CashLimitGate(s).Reason; note != "" {
		eval.Annotations = append(eval.Annotations, note)
	}
	for _, g := range c.gates {
		eval.Checked = append(eval.Checked, g.Name())
		d := g.Check(s)
		if !d.Allowed {
			if d.Gate == "" {
				d.Gate = g.Name()
			}
			eval.Decision = d
			return eval
		}
	}
	return eval
}
