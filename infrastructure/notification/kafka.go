package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/felixgeelhaar/orderflow/domain/notification"
	"github.com/felixgeelhaar/orderflow/domain/order"
)

// KafkaConfig configures the Kafka channel.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	MaxAttempts  int
	RetryBackoff time.Duration
}

// messageWriter is the subset of *kafka.Writer the channel uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaMessage is the JSON value published per notification.
type kafkaMessage struct {
	Template  string            `json:"template"`
	Recipient order.Contact     `json:"recipient"`
	Vars      map[string]string `json:"vars"`
	SentAt    time.Time         `json:"sent_at"`
}

// KafkaChannel publishes rendered notifications to a topic for a
// downstream mailer or SMS gateway.
type KafkaChannel struct {
	writer messageWriter
	topic  string
}

// NewKafkaChannel creates a channel backed by a kafka-go writer.
func NewKafkaChannel(config KafkaConfig) (*KafkaChannel, error) {
	if len(config.Brokers) == 0 || config.Topic == "" {
		return nil, fmt.Errorf("%w: kafka brokers and topic are required", notification.ErrInvalidEndpoint)
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 100 * time.Millisecond
	}
	writer := &kafka.Writer{
		Addr:            kafka.TCP(config.Brokers...),
		Topic:           config.Topic,
		Balancer:        &kafka.Hash{},
		RequiredAcks:    kafka.RequireAll,
		MaxAttempts:     config.MaxAttempts,
		WriteBackoffMin: config.RetryBackoff,
		WriteBackoffMax: 10 * config.RetryBackoff,
	}
	return &KafkaChannel{writer: writer, topic: config.Topic}, nil
}

// Dispatch publishes one message keyed by record ID so per-record
// notifications keep their order on a partition.
func (c *KafkaChannel) Dispatch(ctx context.Context, templateKey string, recipient order.Contact, vars map[string]string) error {
	value, err := json.Marshal(kafkaMessage{
		Template:  templateKey,
		Recipient: recipient,
		Vars:      vars,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to serialize notification: %w", err)
	}
	key := vars["record_id"]
	if key == "" {
		key = templateKey
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "template", Value: []byte(templateKey)},
		},
	}
	if err := c.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", notification.ErrEndpointUnavailable, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (c *KafkaChannel) Close() error {
	return c.writer.Close()
}

var _ notification.Channel = (*KafkaChannel)(nil)
