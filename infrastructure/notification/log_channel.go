package notification

import (
	"context"

	"github.com/felixgeelhaar/orderflow/domain/notification"
	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/infrastructure/logging"
)

// LogChannel writes notifications to the structured log instead of
// delivering them. It is the development default.
type LogChannel struct{}

// Dispatch logs the notification.
func (LogChannel) Dispatch(_ context.Context, templateKey string, recipient order.Contact, vars map[string]string) error {
	logging.Info().
		Add(logging.Component("notification")).
		Add(logging.Template(templateKey)).
		Add(logging.RecordID(vars["record_id"])).
		Add(logging.Str("recipient", recipient.Email)).
		Add(logging.Str("subject", vars["subject"])).
		Msg("notification")
	return nil
}

var _ notification.Channel = LogChannel{}
