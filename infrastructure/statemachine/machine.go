// Package statemachine provides the statekit integration for record lifecycles.
package statemachine

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/orderflow/domain/order"
)

// Context carries a record's lifecycle position through the chart.
type Context struct {
	Product order.Product
	Current order.Status
	History []order.Status

	// LastReason is the reason carried by the most recent transition event.
	LastReason string
}

// NewContext creates a machine context positioned at status.
func NewContext(product order.Product, status order.Status) *Context {
	return &Context{
		Product: product,
		Current: status,
		History: []order.Status{status},
	}
}

// MachineID returns the chart identifier for a product.
func MachineID(product order.Product) string {
	return "orderflow." + string(product)
}

// NewProductMachine builds the statechart for a product from its
// transition table. Statuses with no outgoing transitions are final.
func NewProductMachine(product order.Product) (*statekit.MachineConfig[*Context], error) {
	table := order.TransitionTable(product)
	if table == nil {
		return nil, fmt.Errorf("%w: %s", order.ErrUnknownProduct, product)
	}
	initial := product.InitialStatus()
	if len(table[initial]) == 0 {
		return nil, fmt.Errorf("product %s: initial status %s has no transitions", product, initial)
	}

	b := statekit.NewMachine[*Context](MachineID(product)).
		WithInitial(StateID(initial)).
		WithContext(NewContext(product, initial)).
		WithAction("enterStatus", enterStatus).
		WithAction("recordTransition", recordTransition).
		WithGuard("canTransition", guardCanTransition)

	for _, status := range table.Statuses() {
		sb := b.State(StateID(status)).OnEntry("enterStatus")
		targets := table[status]
		if len(targets) == 0 {
			b = sb.Final().Done()
			continue
		}
		tb := sb.On(EventFor(targets[0])).Target(StateID(targets[0])).Guard("canTransition").Do("recordTransition")
		for _, to := range targets[1:] {
			tb = tb.On(EventFor(to)).Target(StateID(to)).Guard("canTransition").Do("recordTransition")
		}
		b = tb.Done()
	}
	return b.Build()
}

// StateID converts a status to a chart state ID.
func StateID(s order.Status) statekit.StateID {
	return statekit.StateID(s)
}

// StatusFromMachine converts a chart state ID to a status.
func StatusFromMachine(id statekit.StateID) order.Status {
	return order.Status(id)
}

// EventFor returns the event type that moves a record into status to.
func EventFor(to order.Status) statekit.EventType {
	return statekit.EventType("TO_" + strings.ToUpper(string(to)))
}

// StatusFromEvent derives the target status from an event type.
func StatusFromEvent(ev statekit.EventType) order.Status {
	return order.Status(strings.ToLower(strings.TrimPrefix(string(ev), "TO_")))
}

// TransitionPayload carries additional data with a transition event.
type TransitionPayload struct {
	To     order.Status
	Reason string
}

func targetOf(event statekit.Event) order.Status {
	if payload, ok := event.Payload.(TransitionPayload); ok && payload.To != "" {
		return payload.To
	}
	return StatusFromEvent(event.Type)
}

// guardCanTransition re-checks the product table. Guards receive the
// context by value, which for a pointer context is *Context.
func guardCanTransition(ctx *Context, event statekit.Event) bool {
	if ctx == nil {
		return false
	}
	return order.CanTransition(ctx.Product, ctx.Current, targetOf(event))
}

// enterStatus syncs the context with the entered status.
func enterStatus(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	if to := targetOf(event); to != "" && to.IsKnown() {
		(*ctx).Current = to
	}
}

// recordTransition keeps the reason of the transition being taken.
func recordTransition(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	if payload, ok := event.Payload.(TransitionPayload); ok {
		(*ctx).LastReason = payload.Reason
	}
}
