package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/orderflow/fulfillment/pkg/tracing"
)

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Sink publishes order confirmations to the notifications topic. Callers
// bound the write with their own timeout; a failed write surfaces as a
// degraded-success warning, never as a fulfillment failure.
type Sink struct {
	log      *slog.Logger
	producer Producer
	topic    string
}

func NewSink(log *slog.Logger, producer Producer, topic string) *Sink {
	return &Sink{log: log, producer: producer, topic: topic}
}

type confirmationEvent struct {
	OrderID string `json:"orderId"`
	Contact string `json:"contact"`
}

func (s *Sink) Notify(ctx context.Context, orderID, contact string) error {
	payload, err := json.Marshal(confirmationEvent{OrderID: orderID, Contact: contact})
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic:   s.topic,
		Key:     []byte(orderID),
		Value:   payload,
		Headers: tracing.InjectKafkaHeaders(ctx, []kafka.Header{{Key: "event_type", Value: []byte("OrderConfirmation")}}),
	}
	if err := s.producer.WriteMessages(ctx, msg); err != nil {
		s.log.Warn("confirmation publish failed", "order_id", orderID, "err", err)
		return err
	}
	return nil
}
