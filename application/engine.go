// Package application provides the application layer for the lifecycle engine.
package application

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/orderflow/domain/compliance"
	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/infrastructure/statemachine"
)

// ownerTransitions lists the moves a record owner may request besides
// cancellation. Everything else is admin-only.
var ownerTransitions = map[order.Status]order.Status{
	order.StatusPendingDocuments:   order.StatusDraft,
	order.StatusDocumentsSubmitted: order.StatusPendingDocuments,
}

// Engine decides whether a transition is allowed. It is pure: it reads
// the record, profile and documents it is handed and never writes.
type Engine struct {
	chain    *compliance.Chain
	machines map[order.Product]*statekit.MachineConfig[*statemachine.Context]
}

// EngineConfig contains configuration for the engine.
type EngineConfig struct {
	Policy compliance.Policy
	Gates  []compliance.Gate
}

// NewEngine creates an engine. Every product table is compiled into a
// statechart up front so a malformed table fails at startup.
func NewEngine(opts ...Option) (*Engine, error) {
	config := EngineConfig{Policy: compliance.DefaultPolicy()}
	for _, opt := range opts {
		opt(&config)
	}

	e := &Engine{
		chain:    compliance.NewChain(config.Policy).With(config.Gates...),
		machines: make(map[order.Product]*statekit.MachineConfig[*statemachine.Context]),
	}
	for _, p := range order.AllProducts() {
		machine, err := statemachine.NewProductMachine(p)
		if err != nil {
			return nil, fmt.Errorf("failed to build chart for %s: %w", p, err)
		}
		e.machines[p] = machine
	}
	return e, nil
}

// TransitionRequest is one requested status change with everything the
// gates need to decide it.
type TransitionRequest struct {
	Record    *order.Record
	Target    order.Status
	Actor     order.Actor
	Profile   *order.Profile
	Documents []order.Document

	// Note is free text. It becomes the rejection reason for rejections,
	// the action-required message for action_required, and admin notes
	// otherwise.
	Note string
}

// Precheck runs the table and actor checks without consulting gates.
func (e *Engine) Precheck(rec *order.Record, target order.Status, actor order.Actor) error {
	if rec == nil {
		return order.NewTransitionError(order.CodeInvalidTransition, "record is required")
	}
	if !rec.Product.Valid() {
		return &order.TransitionError{
			Code:   order.CodeInvalidTransition,
			Reason: fmt.Sprintf("unsupported product %q", rec.Product),
			Err:    order.ErrUnknownProduct,
		}
	}

	from := order.Normalize(string(rec.Status))
	to := order.Normalize(string(target))
	if !order.CanTransition(rec.Product, from, to) {
		return order.NewTransitionError(order.CodeInvalidTransition,
			fmt.Sprintf("cannot move %s from %s to %s", rec.Product, from, to))
	}
	return e.Authorize(rec, actor, from, to)
}

// Authorize checks that actor may move rec from one status to another.
// When from equals to, it checks whether the actor may request the
// target at all, which is how idempotent re-requests are authorized.
func (e *Engine) Authorize(rec *order.Record, actor order.Actor, from, to order.Status) error {
	if !actor.Role.Valid() || actor.ID == "" {
		return &order.TransitionError{Code: order.CodeForbidden, Reason: "actor is not identified", Err: order.ErrInvalidActor}
	}
	if actor.Role == order.RoleAdmin {
		return nil
	}
	if !actor.Owns(rec) {
		return order.NewTransitionError(order.CodeForbidden, "owners may only act on their own records")
	}
	if to == order.StatusCancellationPending {
		return nil
	}
	source, ok := ownerTransitions[to]
	if ok && (from == source || from == to) {
		return nil
	}
	return order.NewTransitionError(order.CodeForbidden,
		fmt.Sprintf("only an admin may move a record to %s", to))
}

// RequestTransition validates the request and returns the state change to
// persist. Checks run in order: transition table, actor, compliance gates.
func (e *Engine) RequestTransition(req TransitionRequest) (*order.StateChange, error) {
	if err := e.Precheck(req.Record, req.Target, req.Actor); err != nil {
		return nil, err
	}

	rec := req.Record
	from := order.Normalize(string(rec.Status))
	to := order.Normalize(string(req.Target))

	eval := e.chain.Evaluate(compliance.Subject{
		Record:    rec,
		Profile:   req.Profile,
		Documents: req.Documents,
		Target:    to,
	})
	if !eval.Allowed {
		return nil, order.Denied(eval.Gate, eval.Reason)
	}

	change := &order.StateChange{
		RecordID:                      rec.ID,
		Product:                       rec.Product,
		From:                          from,
		To:                            to,
		Actor:                         req.Actor,
		RequiresEnhancedDocumentation: eval.RequiresEnhancedDocumentation,
	}
	if field, ok := order.TimestampFor(to); ok {
		change.TimestampField = field
	}
	change.DocumentVerification = verificationFor(rec.Product, to)
	applyNote(change, req.Note)
	return change, nil
}

// verificationFor returns the document verdict a status implies.
func verificationFor(product order.Product, to order.Status) order.DocumentVerification {
	if !product.CollectsDocuments() {
		return ""
	}
	switch to {
	case order.StatusDocumentsVerified:
		return order.DocumentsVerified
	case order.StatusDocumentsRejected:
		return order.DocumentsRejected
	case order.StatusPendingDocuments:
		return order.DocumentsPending
	default:
		return ""
	}
}

// applyNote keeps admin notes, the action-required message and the
// rejection reason mutually exclusive.
func applyNote(change *order.StateChange, note string) {
	empty := ""
	switch change.To {
	case order.StatusRejected, order.StatusDocumentsRejected:
		change.RejectionReason = &note
		change.ActionRequiredMessage = &empty
		change.AdminNotes = &empty
	case order.StatusActionRequired:
		change.ActionRequiredMessage = &note
		change.RejectionReason = &empty
		change.AdminNotes = &empty
	default:
		change.RejectionReason = &empty
		change.ActionRequiredMessage = &empty
		if note != "" {
			change.AdminNotes = &note
		}
	}
}

// ListAllowedTargets returns the statuses actor may request for rec. Gates
// are not consulted, so a listed target may still be denied.
func (e *Engine) ListAllowedTargets(rec *order.Record, actor order.Actor) []order.Status {
	if rec == nil {
		return nil
	}
	from := order.Normalize(string(rec.Status))
	var out []order.Status
	for _, to := range order.AllowedTargets(rec.Product, from) {
		if e.Authorize(rec, actor, from, to) == nil {
			out = append(out, to)
		}
	}
	return out
}

// DescribeStatus returns display information for a status.
func (e *Engine) DescribeStatus(status order.Status) order.StatusInfo {
	return order.Describe(status)
}

// Chart returns the compiled statechart of a product.
func (e *Engine) Chart(product order.Product) (*statekit.MachineConfig[*statemachine.Context], error) {
	machine, ok := e.machines[product]
	if !ok {
		return nil, fmt.Errorf("%w: %s", order.ErrUnknownProduct, product)
	}
	return machine, nil
}

// VerifyHistory replays a status history through the product chart and
// reports the first step the table does not allow.
func (e *Engine) VerifyHistory(product order.Product, history []order.Status) error {
	if _, err := e.Chart(product); err != nil {
		return err
	}
	_, err := statemachine.Replay(product, history)
	return err
}

// Policy returns the compliance policy the engine gates with.
func (e *Engine) Policy() compliance.Policy {
	return e.chain.Policy()
}
