// Package notification provides domain models for lifecycle notifications
// sent to record owners after a transition has been persisted.
package notification

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/orderflow/domain/order"
)

// Event is a persisted status change worth telling the owner about.
type Event struct {
	// ID identifies one logical transition. It is derived from the record
	// ID and the version the transition produced, so a retried dispatch of
	// the same transition carries the same ID.
	ID string `json:"id"`

	RecordID  string        `json:"record_id"`
	Product   order.Product `json:"product"`
	NewStatus order.Status  `json:"new_status"`

	// Recipient is the owner's contact as read from the profile.
	Recipient order.Contact `json:"recipient"`

	// Context holds template variables.
	Context map[string]string `json:"context,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// EventID returns the dispatch identity of a transition.
func EventID(recordID string, version int64) string {
	return fmt.Sprintf("%s:%d", recordID, version)
}

// NewEvent creates an event for a record that has just been updated.
func NewEvent(rec *order.Record, recipient order.Contact, vars map[string]string) *Event {
	ctx := map[string]string{
		"record_id": rec.ID,
		"product":   string(rec.Product),
		"status":    string(rec.Status),
		"label":     order.Describe(rec.Status).Label,
	}
	if recipient.Name != "" {
		ctx["name"] = recipient.Name
	}
	if rec.ActionRequiredMessage != "" {
		ctx["action_required_message"] = rec.ActionRequiredMessage
	}
	if rec.RejectionReason != "" {
		ctx["rejection_reason"] = rec.RejectionReason
	}
	for k, v := range vars {
		ctx[k] = v
	}
	return &Event{
		ID:        EventID(rec.ID, rec.Version),
		RecordID:  rec.ID,
		Product:   rec.Product,
		NewStatus: rec.Status,
		Recipient: recipient,
		Context:   ctx,
		Timestamp: time.Now().UTC(),
	}
}

// TemplateKey returns the key of the template for (product, status).
func TemplateKey(product order.Product, status order.Status) string {
	return string(product) + "." + string(status)
}

// Template is a message template for one (product, status) pair.
type Template struct {
	Product order.Product `json:"product" yaml:"product"`
	Status  order.Status  `json:"status" yaml:"status"`
	Subject string        `json:"subject" yaml:"subject"`
	Body    string        `json:"body" yaml:"body"`
}

// Key returns the template key.
func (t Template) Key() string {
	return TemplateKey(t.Product, t.Status)
}
