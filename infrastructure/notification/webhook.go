package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/orderflow/domain/notification"
	"github.com/felixgeelhaar/orderflow/domain/order"
)

// WebhookConfig configures the webhook channel.
type WebhookConfig struct {
	// Endpoint is the delivery target.
	Endpoint notification.Endpoint
	// Timeout is the HTTP request timeout.
	Timeout time.Duration
	// MaxRetries is the maximum number of attempts per delivery.
	MaxRetries int
	// RetryDelay is the initial delay between retries.
	RetryDelay time.Duration
	// BreakerThreshold is consecutive failures before the circuit opens.
	BreakerThreshold int
	// BreakerTimeout is how long the circuit stays open.
	BreakerTimeout time.Duration
	// UserAgent is the User-Agent header value.
	UserAgent string
}

// DefaultWebhookConfig returns sensible default configuration.
func DefaultWebhookConfig() WebhookConfig {
	return WebhookConfig{
		Timeout:          10 * time.Second,
		MaxRetries:       3,
		RetryDelay:       500 * time.Millisecond,
		BreakerThreshold: 5,
		BreakerTimeout:   30 * time.Second,
		UserAgent:        "orderflow-webhook/1.0",
	}
}

// webhookPayload is the JSON body posted to the endpoint.
type webhookPayload struct {
	Template  string            `json:"template"`
	Recipient order.Contact     `json:"recipient"`
	Vars      map[string]string `json:"vars"`
	SentAt    time.Time         `json:"sent_at"`
}

// WebhookChannel posts rendered notifications to an HTTP endpoint,
// retrying server errors behind a circuit breaker.
type WebhookChannel struct {
	config  WebhookConfig
	client  *http.Client
	signer  *Signer
	breaker circuitbreaker.CircuitBreaker[struct{}]
	retrier retry.Retry[struct{}]
}

// NewWebhookChannel creates a webhook channel.
func NewWebhookChannel(config WebhookConfig) (*WebhookChannel, error) {
	if config.Endpoint.URL == "" {
		return nil, notification.ErrInvalidEndpoint
	}
	defaults := DefaultWebhookConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaults.RetryDelay
	}
	if config.BreakerThreshold <= 0 {
		config.BreakerThreshold = defaults.BreakerThreshold
	}
	if config.BreakerTimeout <= 0 {
		config.BreakerTimeout = defaults.BreakerTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}

	threshold := uint32(config.BreakerThreshold) // #nosec G115 -- validated positive above
	c := &WebhookChannel{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		breaker: circuitbreaker.New[struct{}](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    config.BreakerTimeout,
			Timeout:     config.BreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
		}),
		retrier: retry.New[struct{}](retry.Config{
			MaxAttempts:   config.MaxRetries,
			InitialDelay:  config.RetryDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
			// 4xx responses will not get better on retry.
			NonRetryableErrors: []error{notification.ErrEndpointRejected},
		}),
	}
	if config.Endpoint.Secret != "" {
		c.signer = NewSigner(config.Endpoint.Secret)
	}
	return c, nil
}

// Dispatch posts the notification to the endpoint.
func (c *WebhookChannel) Dispatch(ctx context.Context, templateKey string, recipient order.Contact, vars map[string]string) error {
	payload, err := json.Marshal(webhookPayload{
		Template:  templateKey,
		Recipient: recipient,
		Vars:      vars,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to serialize notification: %w", err)
	}

	_, err = c.breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return c.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.post(ctx, payload)
		})
	})
	return err
}

// post performs one delivery attempt. The request is built per attempt so
// the body reader is fresh on every retry.
func (c *WebhookChannel) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", notification.ErrEndpointRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	for key, value := range c.config.Endpoint.Headers {
		req.Header.Set(key, value)
	}
	if c.signer != nil {
		for key, value := range c.signer.Headers(payload, time.Now()) {
			req.Header.Set(key, value)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", notification.ErrEndpointUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", notification.ErrEndpointUnavailable, resp.StatusCode, body)
	default:
		return fmt.Errorf("%w: status %d: %s", notification.ErrEndpointRejected, resp.StatusCode, body)
	}
}

// BreakerState returns the circuit breaker state.
func (c *WebhookChannel) BreakerState() string {
	return c.breaker.State().String()
}

var _ notification.Channel = (*WebhookChannel)(nil)
