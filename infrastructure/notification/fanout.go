package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/orderflow/domain/notification"
	"github.com/felixgeelhaar/orderflow/domain/order"
)

// FanoutChannel delivers each notification to every channel in order.
// A failing channel does not stop delivery to the rest.
type FanoutChannel []notification.Channel

// Dispatch sends to all channels and joins their failures.
func (f FanoutChannel) Dispatch(ctx context.Context, templateKey string, recipient order.Contact, vars map[string]string) error {
	var errs []error
	for i, ch := range f {
		if err := ch.Dispatch(ctx, templateKey, recipient, vars); err != nil {
			errs = append(errs, fmt.Errorf("channel %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

var _ notification.Channel = FanoutChannel(nil)
