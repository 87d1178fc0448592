package kafka

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/pagecraft/action-service/models"
)

// CheckoutEventProducer publishes checkout lifecycle events for analytics
// and reconciliation consumers.
type CheckoutEventProducer struct {
	writer *kafka.Writer
	topic  string
}

func NewCheckoutEventProducer(brokers []string, topic string) *CheckoutEventProducer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Printf("[ActionService][KafkaProducer] initialized topic=%s brokers=%v", topic, brokers)
	return &CheckoutEventProducer{writer: w, topic: topic}
}

func (p *CheckoutEventProducer) Publish(ctx context.Context, event models.CheckoutEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(event.AttemptID),
		Value: data,
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *CheckoutEventProducer) Close() error {
	log.Printf("[ActionService][KafkaProducer] closing writer topic=%s", p.topic)
	return p.writer.Close()
}
