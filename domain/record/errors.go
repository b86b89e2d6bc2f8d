package record

import "errors"

// Domain errors for record store operations.
var (
	// ErrRecordNotFound is returned when a record does not exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrRecordExists is returned when creating a record that already exists.
	ErrRecordExists = errors.New("record already exists")

	// ErrInvalidRecordID is returned when a record ID is empty.
	ErrInvalidRecordID = errors.New("invalid record ID")

	// ErrPreconditionFailed is returned when an update's expected status
	// or version no longer matches the stored record.
	ErrPreconditionFailed = errors.New("record precondition failed")

	// ErrConnectionFailed is returned when connection to the store backend fails.
	ErrConnectionFailed = errors.New("store connection failed")

	// ErrOperationTimeout is returned when a store operation times out.
	ErrOperationTimeout = errors.New("store operation timeout")
)
