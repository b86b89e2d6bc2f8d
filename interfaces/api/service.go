package api

import (
	"context"

	"github.com/felixgeelhaar/orderflow/application"
	"github.com/felixgeelhaar/orderflow/domain/order"
	infraconfig "github.com/felixgeelhaar/orderflow/infrastructure/config"
)

// Re-export lifecycle types.
type (
	// Service is the lifecycle entry point.
	Service = application.Service
	// ServiceOption configures a service.
	ServiceOption = application.ServiceOption
	// Result is the outcome of a lifecycle request.
	Result = application.Result
	// Extras carries optional request data.
	Extras = application.Extras

	// Record is an order or application.
	Record = order.Record
	// Status is a lifecycle status.
	Status = order.Status
	// StatusInfo is display information for a status.
	StatusInfo = order.StatusInfo
	// Product is a product line.
	Product = order.Product
	// Actor identifies who requests a transition.
	Actor = order.Actor
	// Code classifies a failed request.
	Code = order.Code
	// TransitionError reports why a transition was not applied.
	TransitionError = order.TransitionError
)

// Outcome codes.
const (
	CodeInvalidTransition = order.CodeInvalidTransition
	CodeForbidden         = order.CodeForbidden
	CodeGateDenied        = order.CodeGateDenied
	CodeConflict          = order.CodeConflict
	CodePersistenceError  = order.CodePersistenceError
)

// Payment stages.
const (
	StageAdvance = application.StageAdvance
	StageBalance = application.StageBalance
)

// NewService creates a service with the given options.
func NewService(opts ...ServiceOption) (*Service, error) {
	return application.NewService(opts...)
}

// Admin returns an admin actor.
func Admin(id string) Actor {
	return order.Admin(id)
}

// Owner returns an owner actor.
func Owner(id string) Actor {
	return order.Owner(id)
}

// Describe returns display information for any status string, including
// legacy spellings.
func Describe(raw string) StatusInfo {
	return order.Describe(order.Status(raw))
}

// FromConfig wires a service and its collaborators from configuration.
// Callers must Close the result.
func FromConfig(ctx context.Context, cfg *PortalConfig) (*ConfigBuildResult, error) {
	return infraconfig.NewBuilder(cfg).Build(ctx)
}
