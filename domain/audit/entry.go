// Package audit provides the append-only journal of transition decisions.
// Denials are journaled alongside applied transitions because the gate
// reason is the compliance audit trail.
package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/orderflow/domain/order"
)

// Outcome classifies a journal entry.
type Outcome string

// Journal outcomes.
const (
	OutcomeCreated  Outcome = "created"
	OutcomeApplied  Outcome = "applied"
	OutcomeNoOp     Outcome = "no_op"
	OutcomeDenied   Outcome = "denied"
	OutcomeConflict Outcome = "conflict"
	OutcomeFailed   Outcome = "failed"
	OutcomePayment  Outcome = "payment_recorded"
	OutcomeReview   Outcome = "documents_reviewed"
)

// Entry records one decision about one record.
type Entry struct {
	ID        string        `json:"id"`
	RecordID  string        `json:"record_id"`
	Timestamp time.Time     `json:"timestamp"`
	Outcome   Outcome       `json:"outcome"`
	Product   order.Product `json:"product"`
	From      order.Status  `json:"from"`
	To        order.Status  `json:"to"`
	Actor     order.Actor   `json:"actor"`
	Code      order.Code    `json:"code,omitempty"`
	Gate      string        `json:"gate,omitempty"`
	Reason    string        `json:"reason,omitempty"`

	// Version is the record version after the decision. Zero when nothing
	// was written.
	Version int64 `json:"version,omitempty"`
}

// NewEntry creates an entry with a fresh ID and timestamp.
func NewEntry(recordID string, outcome Outcome) Entry {
	return Entry{
		ID:        uuid.NewString(),
		RecordID:  recordID,
		Timestamp: time.Now().UTC(),
		Outcome:   outcome,
	}
}

// Journal stores entries in append order per record.
type Journal interface {
	// Append adds an entry.
	Append(ctx context.Context, entry Entry) error

	// List returns a record's entries, oldest first.
	List(ctx context.Context, recordID string) ([]Entry, error)
}

// Domain errors for journal operations.
var (
	// ErrInvalidEntry is returned when an entry has no ID or record ID.
	ErrInvalidEntry = errors.New("invalid audit entry")

	// ErrJournalUnavailable is returned when the journal backend fails.
	ErrJournalUnavailable = errors.New("audit journal unavailable")
)

// Validate checks that the entry can be stored.
func (e Entry) Validate() error {
	if e.ID == "" || e.RecordID == "" {
		return ErrInvalidEntry
	}
	return nil
}

// AppliedPath extracts the status history from a record's entries: the
// creation status, or the starting status of the first applied
// transition, followed by every applied target.
func AppliedPath(entries []Entry) []order.Status {
	var path []order.Status
	for _, e := range entries {
		switch e.Outcome {
		case OutcomeCreated:
			if len(path) == 0 {
				path = append(path, e.To)
			}
		case OutcomeApplied:
			if len(path) == 0 {
				path = append(path, e.From)
			}
			path = append(path, e.To)
		}
	}
	return path
}
