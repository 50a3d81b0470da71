package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
)

// TopicOrderConfirmations carries order confirmation events consumed by the
// mail delivery service.
const TopicOrderConfirmations = "order-confirmations"

// KafkaDispatcher publishes confirmations to a Kafka topic. The downstream
// mailer owns rendering and delivery; this service only emits the event.
type KafkaDispatcher struct {
	writer *kafka.Writer
}

// NewKafkaDispatcher creates a dispatcher writing to the given brokers.
func NewKafkaDispatcher(brokers []string) *KafkaDispatcher {
	return &KafkaDispatcher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        TopicOrderConfirmations,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// DispatchOrderConfirmation publishes the confirmation keyed by order number,
// so retries of the same order land on the same partition.
func (d *KafkaDispatcher) DispatchOrderConfirmation(ctx context.Context, c Confirmation) error {
	value, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal confirmation")
	}

	err = d.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(c.OrderNumber),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		return errors.Wrap(err, "write confirmation")
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}
