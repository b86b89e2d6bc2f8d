package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/orderflow/domain/compliance"
	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/domain/record"
)

// PaymentTracker records the advance and balance payments of two-phase
// products. It moves the payment stage only; the record status is left to
// the lifecycle engine.
type PaymentTracker struct {
	store record.Store
	now   func() time.Time
}

// NewPaymentTracker creates a payment tracker.
func NewPaymentTracker(store record.Store, now func() time.Time) *PaymentTracker {
	if now == nil {
		now = time.Now
	}
	return &PaymentTracker{store: store, now: now}
}

type paymentStep struct {
	from      order.PaymentStage
	to        order.PaymentStage
	stamp     order.TimestampField
	reference func(*order.Record) string
	patch     func(p *order.Patch, ref string)
}

var (
	advanceStep = paymentStep{
		from:      order.PaymentUnpaid,
		to:        order.PaymentAdvancePaid,
		stamp:     order.StampAdvanceRecorded,
		reference: func(r *order.Record) string { return r.AdvanceReference },
		patch:     func(p *order.Patch, ref string) { p.AdvanceReference = &ref },
	}
	balanceStep = paymentStep{
		from:      order.PaymentAdvancePaid,
		to:        order.PaymentFullyPaid,
		stamp:     order.StampBalanceRecorded,
		reference: func(r *order.Record) string { return r.BalanceReference },
		patch:     func(p *order.Patch, ref string) { p.BalanceReference = &ref },
	}
)

// RecordAdvance moves the payment stage from unpaid to advance_paid.
func (t *PaymentTracker) RecordAdvance(ctx context.Context, recordID, reference string, actor order.Actor) (*order.Record, error) {
	return t.record(ctx, recordID, reference, actor, advanceStep)
}

// RecordBalance moves the payment stage from advance_paid to fully_paid.
func (t *PaymentTracker) RecordBalance(ctx context.Context, recordID, reference string, actor order.Actor) (*order.Record, error) {
	return t.record(ctx, recordID, reference, actor, balanceStep)
}

func (t *PaymentTracker) record(ctx context.Context, recordID, reference string, actor order.Actor, step paymentStep) (*order.Record, error) {
	if actor.Role != order.RoleAdmin || actor.ID == "" {
		return nil, order.NewTransitionError(order.CodeForbidden, "only an admin may record payments")
	}
	if reference == "" {
		return nil, order.NewTransitionError(order.CodeInvalidTransition, "payment reference is required")
	}

	for attempt := 0; attempt < 2; attempt++ {
		rec, err := t.store.Get(ctx, recordID)
		if err != nil {
			return nil, persistenceError(err)
		}
		done, err := t.check(rec, reference, step)
		if err != nil {
			return nil, err
		}
		if done {
			return rec, nil
		}

		stage := step.to
		patch := order.Patch{
			PaymentStage: &stage,
			Stamps:       map[order.TimestampField]time.Time{step.stamp: t.now()},
		}
		step.patch(&patch, reference)

		updated, err := t.store.Update(ctx, rec.ID, patch, record.ExpectRecord(rec))
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, record.ErrPreconditionFailed) {
			return nil, persistenceError(err)
		}
	}
	return nil, &order.TransitionError{
		Code:   order.CodeConflict,
		Reason: order.ErrConflict.Error(),
		Err:    record.ErrPreconditionFailed,
	}
}

// check validates the step against rec. It reports done when the step was
// already recorded with the same reference.
func (t *PaymentTracker) check(rec *order.Record, reference string, step paymentStep) (bool, error) {
	if !rec.Product.TwoPhasePayment() {
		return false, order.NewTransitionError(order.CodeInvalidTransition,
			fmt.Sprintf("%s does not use two-phase payment", rec.Product))
	}
	if order.Normalize(string(rec.Status)).IsTerminal() {
		return false, order.NewTransitionError(order.CodeInvalidTransition,
			fmt.Sprintf("cannot record payment on a %s record", rec.Status))
	}

	stage := rec.PaymentStage
	if stage == "" {
		stage = order.PaymentUnpaid
	}
	switch {
	case stage == step.from:
		return false, nil
	case stage.Rank() >= step.to.Rank():
		if stage == step.to && step.reference(rec) == reference {
			return true, nil
		}
		return false, order.NewTransitionError(order.CodeInvalidTransition,
			fmt.Sprintf("payment stage is already %s", stage))
	default:
		return false, order.Denied(compliance.GatePaymentSequence,
			fmt.Sprintf("Cannot record %s: payment stage is %s", step.to, stage))
	}
}
