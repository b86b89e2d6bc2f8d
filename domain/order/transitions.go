package order

import "sort"

// StatusTransitions maps each status to the statuses it may move to.
type StatusTransitions map[Status][]Status

// superset is the shared transition table. Product tables restrict it.
var superset = withCancellation(StatusTransitions{
	StatusDraft:              {StatusPendingDocuments, StatusCancelled},
	StatusPendingDocuments:   {StatusDocumentsSubmitted, StatusCancelled},
	StatusDocumentsSubmitted: {StatusDocumentsVerified, StatusDocumentsRejected},
	StatusDocumentsVerified:  {StatusApproved, StatusAwaitingPayment},
	StatusDocumentsRejected:  {StatusPendingDocuments, StatusCancelled},
	StatusApplied:            {StatusUnderReview},
	StatusUnderReview:        {StatusActionRequired, StatusApproved, StatusRejected},
	StatusActionRequired:     {StatusUnderReview, StatusCancelled},
	StatusApproved:           {StatusAwaitingPayment, StatusAdvancePaid},
	StatusAwaitingPayment:    {StatusAdvancePaid, StatusBalancePaid},
	StatusAdvancePaid:        {StatusBalancePaid, StatusCancelled},
	StatusBalancePaid:        {StatusScheduled, StatusProcessing},
	StatusScheduled:          {StatusOutForDelivery},
	StatusProcessing:         {StatusDispatched},
	StatusDispatched:         {StatusDelivered, StatusCompleted},
	StatusOutForDelivery:     {StatusDelivered, StatusCompleted},
})

var transitionTables = map[Product]StatusTransitions{
	ProductCurrencyExchange: withCancellation(StatusTransitions{
		StatusDraft:              {StatusPendingDocuments, StatusCancelled},
		StatusPendingDocuments:   {StatusDocumentsSubmitted, StatusCancelled},
		StatusDocumentsSubmitted: {StatusDocumentsVerified, StatusDocumentsRejected},
		StatusDocumentsVerified:  {StatusAwaitingPayment},
		StatusDocumentsRejected:  {StatusPendingDocuments, StatusCancelled},
		StatusAwaitingPayment:    {StatusAdvancePaid, StatusBalancePaid},
		StatusAdvancePaid:        {StatusBalancePaid, StatusCancelled},
		StatusBalancePaid:        {StatusScheduled},
		StatusScheduled:          {StatusOutForDelivery},
		StatusOutForDelivery:     {StatusDelivered, StatusCompleted},
	}),
	ProductForexCard: withCancellation(StatusTransitions{
		StatusDraft:              {StatusPendingDocuments, StatusCancelled},
		StatusPendingDocuments:   {StatusDocumentsSubmitted, StatusCancelled},
		StatusDocumentsSubmitted: {StatusDocumentsVerified, StatusDocumentsRejected},
		StatusDocumentsVerified:  {StatusApproved},
		StatusDocumentsRejected:  {StatusPendingDocuments, StatusCancelled},
		StatusApproved:           {StatusAwaitingPayment},
		StatusAwaitingPayment:    {StatusBalancePaid},
		StatusBalancePaid:        {StatusProcessing},
		StatusProcessing:         {StatusDispatched},
		StatusDispatched:         {StatusDelivered, StatusCompleted},
	}),
	ProductEducationLoan: withCancellation(StatusTransitions{
		StatusApplied:         {StatusUnderReview},
		StatusUnderReview:     {StatusActionRequired, StatusApproved, StatusRejected},
		StatusActionRequired:  {StatusUnderReview, StatusCancelled},
		StatusApproved:        {StatusAwaitingPayment},
		StatusAwaitingPayment: {StatusBalancePaid},
		StatusBalancePaid:     {StatusProcessing},
		StatusProcessing:      {StatusDispatched},
		StatusDispatched:      {StatusCompleted},
	}),
	ProductRemittance: withCancellation(StatusTransitions{
		StatusDraft:              {StatusPendingDocuments, StatusCancelled},
		StatusPendingDocuments:   {StatusDocumentsSubmitted, StatusCancelled},
		StatusDocumentsSubmitted: {StatusDocumentsVerified, StatusDocumentsRejected},
		StatusDocumentsVerified:  {StatusAwaitingPayment},
		StatusDocumentsRejected:  {StatusPendingDocuments, StatusCancelled},
		StatusAwaitingPayment:    {StatusBalancePaid},
		StatusBalancePaid:        {StatusProcessing},
		StatusProcessing:         {StatusDispatched},
		StatusDispatched:         {StatusCompleted},
	}),
	ProductTravelInsurance: withCancellation(StatusTransitions{
		StatusApplied:         {StatusUnderReview},
		StatusUnderReview:     {StatusActionRequired, StatusApproved, StatusRejected},
		StatusActionRequired:  {StatusUnderReview, StatusCancelled},
		StatusApproved:        {StatusAwaitingPayment},
		StatusAwaitingPayment: {StatusBalancePaid},
		StatusBalancePaid:     {StatusProcessing},
		StatusProcessing:      {StatusDispatched},
		StatusDispatched:      {StatusCompleted},
	}),
}

// withCancellation adds the cancellation and refund sub-flow to a table:
// every non-terminal status may request cancellation, which resolves to
// cancelled and optionally on to a refund.
func withCancellation(t StatusTransitions) StatusTransitions {
	for from, targets := range t {
		if from.IsTerminal() {
			continue
		}
		t[from] = append(targets, StatusCancellationPending)
	}
	t[StatusCancellationPending] = []Status{StatusCancelled}
	t[StatusCancelled] = []Status{StatusRefundPending}
	t[StatusRefundPending] = []Status{StatusRefunded}
	return t
}

// Superset returns a copy of the shared transition table.
func Superset() StatusTransitions {
	return superset.clone()
}

// TransitionTable returns a copy of the transition table for a product.
// It returns nil for unsupported products.
func TransitionTable(p Product) StatusTransitions {
	t, ok := transitionTables[p]
	if !ok {
		return nil
	}
	return t.clone()
}

// AllowedTargets returns the statuses a record of product p may move to
// from status s. The result is nil when s has no outgoing transitions.
func AllowedTargets(p Product, s Status) []Status {
	targets := transitionTables[p][Normalize(string(s))]
	if len(targets) == 0 {
		return nil
	}
	out := make([]Status, len(targets))
	copy(out, targets)
	return out
}

// Reachable reports whether some transition of product p leads into s.
// A product's initial status is not reachable.
func Reachable(p Product, s Status) bool {
	for _, targets := range transitionTables[p] {
		for _, t := range targets {
			if t == s {
				return true
			}
		}
	}
	return false
}

// CanTransition reports whether the product table allows from -> to.
func CanTransition(p Product, from, to Status) bool {
	for _, t := range transitionTables[p][Normalize(string(from))] {
		if t == to {
			return true
		}
	}
	return false
}

// Statuses returns every status that appears in the table, sorted.
func (t StatusTransitions) Statuses() []Status {
	seen := make(map[Status]bool)
	for from, targets := range t {
		seen[from] = true
		for _, to := range targets {
			seen[to] = true
		}
	}
	out := make([]Status, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether the table allows from -> to.
func (t StatusTransitions) Contains(from, to Status) bool {
	for _, target := range t[from] {
		if target == to {
			return true
		}
	}
	return false
}

func (t StatusTransitions) clone() StatusTransitions {
	out := make(StatusTransitions, len(t))
	for from, targets := range t {
		cp := make([]Status, len(targets))
		copy(cp, targets)
		out[from] = cp
	}
	return out
}
