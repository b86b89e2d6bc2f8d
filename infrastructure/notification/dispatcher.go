// Package notification delivers lifecycle notifications to record owners
// through webhook, Kafka or log channels.
package notification

import (
	"context"
	"strings"
	"sync"
	"text/template"

	"github.com/felixgeelhaar/orderflow/domain/notification"
	"github.com/felixgeelhaar/orderflow/infrastructure/logging"
	"github.com/felixgeelhaar/orderflow/infrastructure/telemetry"
)

// Dispatch results reported to metrics.
const (
	resultSent      = "sent"
	resultSkipped   = "skipped"
	resultDuplicate = "duplicate"
	resultFailed    = "failed"
	resultDropped   = "dropped"
)

// DispatcherConfig configures the dispatcher.
type DispatcherConfig struct {
	// Catalog resolves templates. Defaults to the built-in catalog.
	Catalog notification.Catalog
	// Channel delivers rendered templates. Required.
	Channel notification.Channel
	// Deduper suppresses repeated dispatches of one transition. Optional.
	Deduper notification.Deduper
	// Filter is applied before template lookup. Optional.
	Filter notification.EventFilter
	// Metrics records dispatch results. Optional.
	Metrics *telemetry.MetricsProvider
	// QueueSize enables asynchronous delivery when positive.
	QueueSize int
}

// Dispatcher sends one templated message per persisted transition.
// Failures are logged and swallowed: the transition is the source of
// truth and the notification is best effort.
type Dispatcher struct {
	catalog notification.Catalog
	channel notification.Channel
	deduper notification.Deduper
	filter  notification.EventFilter
	metrics *telemetry.MetricsProvider

	queue chan *notification.Event
	wg    sync.WaitGroup

	closed   bool
	closedMu sync.RWMutex
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(config DispatcherConfig) (*Dispatcher, error) {
	if config.Channel == nil {
		return nil, notification.ErrInvalidEndpoint
	}
	if config.Catalog == nil {
		config.Catalog = NewDefaultCatalog()
	}
	d := &Dispatcher{
		catalog: config.Catalog,
		channel: config.Channel,
		deduper: config.Deduper,
		filter:  config.Filter,
		metrics: config.Metrics,
	}
	if config.QueueSize > 0 {
		d.queue = make(chan *notification.Event, config.QueueSize)
		d.wg.Add(1)
		go d.worker()
	}
	return d, nil
}

// Send delivers the event. It never returns an error; in async mode it
// enqueues and returns immediately.
func (d *Dispatcher) Send(ctx context.Context, event *notification.Event) {
	if event == nil {
		return
	}

	d.closedMu.RLock()
	defer d.closedMu.RUnlock()
	if d.closed {
		logging.Warn().
			Add(logging.RecordID(event.RecordID)).
			Add(logging.ErrorField(notification.ErrDispatcherClosed)).
			Msg("notification dropped")
		d.record(ctx, event, resultDropped)
		return
	}

	if d.queue == nil {
		d.deliver(ctx, event)
		return
	}

	select {
	case d.queue <- event:
	default:
		logging.Warn().
			Add(logging.RecordID(event.RecordID)).
			Add(logging.ToStatus(event.NewStatus)).
			Msg("notification queue full, dropping")
		d.record(ctx, event, resultDropped)
	}
}

// worker drains the queue. Delivery runs detached from the request
// context, which is usually cancelled by the time the event is sent.
func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(context.Background(), event)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event *notification.Event) {
	if d.filter != nil && !d.filter(event) {
		d.record(ctx, event, resultSkipped)
		return
	}

	tpl, ok := d.catalog.Lookup(event.Product, event.NewStatus)
	if !ok {
		logging.Debug().
			Add(logging.RecordID(event.RecordID)).
			Add(logging.Template(notification.TemplateKey(event.Product, event.NewStatus))).
			Msg("no template, skipping notification")
		d.record(ctx, event, resultSkipped)
		return
	}

	if event.Recipient.Email == "" && event.Recipient.Phone == "" {
		logging.Warn().
			Add(logging.RecordID(event.RecordID)).
			Add(logging.Template(tpl.Key())).
			Add(logging.ErrorField(notification.ErrNoRecipient)).
			Msg("notification skipped")
		d.record(ctx, event, resultSkipped)
		return
	}

	if d.deduper != nil && event.ID != "" {
		first, err := d.deduper.Claim(ctx, event.ID)
		switch {
		case err != nil:
			logging.Warn().
				Add(logging.RecordID(event.RecordID)).
				Add(logging.ErrorField(err)).
				Msg("dedupe claim failed, sending anyway")
		case !first:
			logging.Debug().
				Add(logging.RecordID(event.RecordID)).
				Add(logging.Str("event_id", event.ID)).
				Msg("duplicate notification suppressed")
			d.record(ctx, event, resultDuplicate)
			return
		}
	}

	vars, err := render(tpl, event.Context)
	if err == nil {
		err = d.channel.Dispatch(ctx, tpl.Key(), event.Recipient, vars)
	}
	if err != nil {
		logging.Error().
			Add(logging.RecordID(event.RecordID)).
			Add(logging.Product(event.Product)).
			Add(logging.Template(tpl.Key())).
			Add(logging.ErrorField(err)).
			Msg("notification delivery failed")
		d.record(ctx, event, resultFailed)
		return
	}

	logging.Debug().
		Add(logging.RecordID(event.RecordID)).
		Add(logging.Template(tpl.Key())).
		Msg("notification sent")
	d.record(ctx, event, resultSent)
}

func (d *Dispatcher) record(ctx context.Context, event *notification.Event, result string) {
	d.metrics.RecordNotification(ctx, string(event.Product), string(event.NewStatus), result)
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() error {
	d.closedMu.Lock()
	if d.closed {
		d.closedMu.Unlock()
		return nil
	}
	d.closed = true
	if d.queue != nil {
		close(d.queue)
	}
	d.closedMu.Unlock()

	d.wg.Wait()
	return nil
}

// render executes the template's subject and body over vars and returns
// the variables handed to the channel, with "subject" and "body" added.
func render(tpl notification.Template, vars map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(vars)+2)
	for k, v := range vars {
		out[k] = v
	}
	subject, err := execute(tpl.Key()+".subject", tpl.Subject, vars)
	if err != nil {
		return nil, err
	}
	body, err := execute(tpl.Key()+".body", tpl.Body, vars)
	if err != nil {
		return nil, err
	}
	out["subject"] = subject
	out["body"] = strings.TrimSpace(body)
	return out, nil
}

func execute(name, text string, vars map[string]string) (string, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := t.Execute(&b, vars); err != nil {
		return "", err
	}
	return b.String(), nil
}
