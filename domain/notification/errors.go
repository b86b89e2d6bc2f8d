package notification

import "errors"

// Domain errors for notification operations.
var (
	// ErrEndpointUnavailable indicates the webhook endpoint is not reachable.
	ErrEndpointUnavailable = errors.New("webhook endpoint unavailable")

	// ErrEndpointRejected indicates the endpoint rejected the notification.
	ErrEndpointRejected = errors.New("webhook endpoint rejected notification")

	// ErrDispatcherClosed indicates the dispatcher has been closed.
	ErrDispatcherClosed = errors.New("dispatcher is closed")

	// ErrInvalidEndpoint indicates the endpoint configuration is invalid.
	ErrInvalidEndpoint = errors.New("invalid endpoint configuration")

	// ErrNoRecipient indicates the owner has no contact to notify.
	ErrNoRecipient = errors.New("no recipient contact")

	// ErrInvalidTemplate indicates a template is missing its key or body.
	ErrInvalidTemplate = errors.New("invalid notification template")

	// ErrSigningFailed indicates payload signing failed.
	ErrSigningFailed = errors.New("payload signing failed")
)
