// Package telemetry provides OpenTelemetry metrics for the lifecycle engine.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsProvider provides access to metrics instruments. A nil provider
// records nothing.
type MetricsProvider struct {
	meter metric.Meter
	attrs []attribute.KeyValue

	transitions   metric.Int64Counter
	gateDenials   metric.Int64Counter
	conflicts     metric.Int64Counter
	notifications metric.Int64Counter
	payments      metric.Int64Counter

	transitionDuration metric.Float64Histogram

	initOnce sync.Once
	initErr  error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter.
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
	// Attributes are default attributes to attach to all metrics.
	Attributes []attribute.KeyValue
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/felixgeelhaar/orderflow",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider bound to the global
// meter provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		config = DefaultMetricsConfig()
	}

	meter := otel.GetMeterProvider().Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{
		meter: meter,
		attrs: config.Attributes,
	}

	mp.initOnce.Do(func() {
		mp.initErr = mp.initInstruments()
	})

	return mp
}

func (mp *MetricsProvider) initInstruments() error {
	var err error

	mp.transitions, err = mp.meter.Int64Counter(
		"orderflow.transitions",
		metric.WithDescription("Transition requests by outcome"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return err
	}

	mp.gateDenials, err = mp.meter.Int64Counter(
		"orderflow.gate.denials",
		metric.WithDescription("Transitions denied by a compliance gate"),
		metric.WithUnit("{denial}"),
	)
	if err != nil {
		return err
	}

	mp.conflicts, err = mp.meter.Int64Counter(
		"orderflow.conflicts",
		metric.WithDescription("Optimistic precondition failures"),
		metric.WithUnit("{conflict}"),
	)
	if err != nil {
		return err
	}

	mp.notifications, err = mp.meter.Int64Counter(
		"orderflow.notifications",
		metric.WithDescription("Notification dispatch attempts by result"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return err
	}

	mp.payments, err = mp.meter.Int64Counter(
		"orderflow.payments",
		metric.WithDescription("Payment stages recorded"),
		metric.WithUnit("{payment}"),
	)
	if err != nil {
		return err
	}

	mp.transitionDuration, err = mp.meter.Float64Histogram(
		"orderflow.transition.duration",
		metric.WithDescription("Duration of transition requests"),
		metric.WithUnit("ms"),
	)
	return err
}

// Error returns any initialization error.
func (mp *MetricsProvider) Error() error {
	if mp == nil {
		return nil
	}
	return mp.initErr
}

func (mp *MetricsProvider) ready() bool {
	return mp != nil && mp.initErr == nil
}

func (mp *MetricsProvider) with(attrs ...attribute.KeyValue) metric.MeasurementOption {
	all := make([]attribute.KeyValue, 0, len(mp.attrs)+len(attrs))
	all = append(all, mp.attrs...)
	all = append(all, attrs...)
	return metric.WithAttributes(all...)
}

// RecordTransition records a transition request outcome. An empty code
// means the transition was applied.
func (mp *MetricsProvider) RecordTransition(ctx context.Context, product, from, to, code string, duration time.Duration) {
	if !mp.ready() {
		return
	}
	if code == "" {
		code = "OK"
	}
	opt := mp.with(
		attribute.String("product", product),
		attribute.String("from", from),
		attribute.String("to", to),
		attribute.String("code", code),
	)
	mp.transitions.Add(ctx, 1, opt)
	mp.transitionDuration.Record(ctx, float64(duration.Microseconds())/1000.0, opt)
}

// RecordGateDenial records a denial by the named gate.
func (mp *MetricsProvider) RecordGateDenial(ctx context.Context, product, gate string) {
	if !mp.ready() {
		return
	}
	mp.gateDenials.Add(ctx, 1, mp.with(
		attribute.String("product", product),
		attribute.String("gate", gate),
	))
}

// RecordConflict records an optimistic precondition failure.
func (mp *MetricsProvider) RecordConflict(ctx context.Context, product string, retried bool) {
	if !mp.ready() {
		return
	}
	mp.conflicts.Add(ctx, 1, mp.with(
		attribute.String("product", product),
		attribute.Bool("retried", retried),
	))
}

// RecordNotification records a dispatch result: sent, skipped, duplicate or failed.
func (mp *MetricsProvider) RecordNotification(ctx context.Context, product, status, result string) {
	if !mp.ready() {
		return
	}
	mp.notifications.Add(ctx, 1, mp.with(
		attribute.String("product", product),
		attribute.String("status", status),
		attribute.String("result", result),
	))
}

// RecordPayment records a payment stage being recorded.
func (mp *MetricsProvider) RecordPayment(ctx context.Context, product, stage string) {
	if !mp.ready() {
		return
	}
	mp.payments.Add(ctx, 1, mp.with(
		attribute.String("product", product),
		attribute.String("stage", stage),
	))
}
