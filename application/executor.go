package application

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/domain/record"
	"github.com/felixgeelhaar/orderflow/infrastructure/logging"
)

// Applied is the outcome of a successful Executor.Apply.
type Applied struct {
	// Record is the record after the write, or the fresh record on a no-op.
	Record *order.Record

	// Change is the state change that was persisted. Nil on a no-op.
	Change *order.StateChange

	// NoOp is true when a concurrent writer already moved the record to
	// the requested target.
	NoOp bool

	// Retried is true when the first write lost a race and the request was
	// re-validated against a fresh read.
	Retried bool
}

// Executor persists engine decisions with an optimistic precondition on
// the record's status and version.
type Executor struct {
	engine *Engine
	store  record.Store
	now    func() time.Time
}

// NewExecutor creates an executor.
func NewExecutor(engine *Engine, store record.Store, now func() time.Time) *Executor {
	if now == nil {
		now = time.Now
	}
	return &Executor{engine: engine, store: store, now: now}
}

// Apply validates req and writes the resulting change. When the write
// loses a race the record is re-read: if it already holds the target the
// call is a no-op, otherwise the request is re-validated and written once
// more. A second lost race returns a Conflict error.
func (x *Executor) Apply(ctx context.Context, req TransitionRequest) (*Applied, error) {
	change, err := x.engine.RequestTransition(req)
	if err != nil {
		return nil, err
	}

	updated, err := x.write(ctx, req.Record, change)
	if err == nil {
		return &Applied{Record: updated, Change: change}, nil
	}
	if !errors.Is(err, record.ErrPreconditionFailed) {
		return nil, persistenceError(err)
	}

	logging.Debug().
		Add(logging.RecordID(req.Record.ID)).
		Add(logging.ToStatus(change.To)).
		Msg("precondition failed, re-validating")

	fresh, err := x.store.Get(ctx, req.Record.ID)
	if err != nil {
		return nil, persistenceError(err)
	}
	if order.Normalize(string(fresh.Status)) == change.To {
		return &Applied{Record: fresh, NoOp: true, Retried: true}, nil
	}

	req.Record = fresh
	change, err = x.engine.RequestTransition(req)
	if err != nil {
		return nil, err
	}
	updated, err = x.write(ctx, fresh, change)
	if errors.Is(err, record.ErrPreconditionFailed) {
		return nil, &order.TransitionError{
			Code:   order.CodeConflict,
			Reason: order.ErrConflict.Error(),
			Err:    err,
		}
	}
	if err != nil {
		return nil, persistenceError(err)
	}
	return &Applied{Record: updated, Change: change, Retried: true}, nil
}

// write requires the stored status and version to be the ones the
// decision was made on. The status is compared as stored, not normalized,
// so legacy spellings still match.
func (x *Executor) write(ctx context.Context, rec *order.Record, change *order.StateChange) (*order.Record, error) {
	return x.store.Update(ctx, rec.ID, change.Patch(x.now()), record.ExpectRecord(rec))
}

func persistenceError(err error) *order.TransitionError {
	return &order.TransitionError{
		Code:   order.CodePersistenceError,
		Reason: "failed to persist record",
		Err:    err,
	}
}
