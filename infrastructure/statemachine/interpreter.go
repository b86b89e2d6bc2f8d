package statemachine

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/orderflow/domain/order"
)

// ErrEmptyHistory indicates a replay was requested with no statuses.
var ErrEmptyHistory = errors.New("empty status history")

// Interpreter wraps the statekit interpreter for a single record.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates an interpreter for a product chart.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp: interp,
		ctx:    ctx,
	}
}

// Start enters the chart's initial status.
func (i *Interpreter) Start() {
	i.interp.Start()
	i.ctx.Current = StatusFromMachine(i.interp.State().Value)
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// Status returns the current status.
func (i *Interpreter) Status() order.Status {
	return StatusFromMachine(i.interp.State().Value)
}

// CanTransition reports whether the chart may move to status to.
func (i *Interpreter) CanTransition(to order.Status) bool {
	return order.CanTransition(i.ctx.Product, i.ctx.Current, to)
}

// Transition moves the chart to status to.
func (i *Interpreter) Transition(to order.Status, reason string) error {
	// Send panics on events the current state does not handle.
	if !i.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s for %s", order.ErrInvalidTransition, i.ctx.Current, to, i.ctx.Product)
	}

	i.interp.Send(statekit.Event{
		Type:    EventFor(to),
		Payload: TransitionPayload{To: to, Reason: reason},
	})

	i.ctx.Current = StatusFromMachine(i.interp.State().Value)
	if i.ctx.Current != to {
		return fmt.Errorf("%w: chart rejected %s", order.ErrInvalidTransition, to)
	}
	i.ctx.History = append(i.ctx.History, to)
	return nil
}

// IsTerminal reports whether the chart reached a final status.
func (i *Interpreter) IsTerminal() bool {
	return i.interp.Done()
}

// Context returns the interpreter context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}

// ResumeFrom positions the interpreter at an arbitrary status, used when
// a history does not begin at the product's initial status.
func (i *Interpreter) ResumeFrom(status order.Status) error {
	snapshot := statekit.Snapshot[*Context]{
		MachineID:    MachineID(i.ctx.Product),
		CurrentState: StateID(status),
		Context:      i.ctx,
		CreatedAt:    time.Now(),
	}
	if err := i.interp.Restore(snapshot); err != nil {
		return fmt.Errorf("failed to restore state: %w", err)
	}
	i.ctx.Current = status
	i.ctx.History = []order.Status{status}
	return nil
}

// Replay walks path through the product chart and returns the context
// holding the replayed history. The first status is the starting point.
func Replay(product order.Product, path []order.Status) (*Context, error) {
	if len(path) == 0 {
		return nil, ErrEmptyHistory
	}
	machine, err := NewProductMachine(product)
	if err != nil {
		return nil, err
	}

	start := order.Normalize(string(path[0]))
	ctx := NewContext(product, product.InitialStatus())
	interp := NewInterpreter(machine, ctx)
	interp.Start()
	defer interp.Stop()

	if start != product.InitialStatus() {
		if err := interp.ResumeFrom(start); err != nil {
			return nil, err
		}
	}

	for idx, raw := range path[1:] {
		to := order.Normalize(string(raw))
		if err := interp.Transition(to, ""); err != nil {
			return ctx, fmt.Errorf("step %d: %w", idx+1, err)
		}
	}
	return ctx, nil
}
