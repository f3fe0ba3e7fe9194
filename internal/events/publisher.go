package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"ProductCatalog/pkg/tracing"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

type Publisher struct {
	w     messageWriter
	topic string
}

func NewPublisher(w messageWriter, topic string) *Publisher {
	return &Publisher{w: w, topic: topic}
}

// PublishOrderCreated keys the message by order id so one order's events stay
// on one partition.
func (p *Publisher) PublishOrderCreated(ctx context.Context, ev OrderCreated) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal order_created: %w", err)
	}

	headers := []kafka.Header{
		{Key: headerEventType, Value: []byte(EventTypeOrderCreated)},
		{Key: headerEventID, Value: []byte(uuid.NewString())},
	}

	msg := kafka.Message{
		Topic:   p.topic,
		Key:     []byte(ev.Order.ID),
		Value:   body,
		Headers: tracing.InjectKafkaHeaders(ctx, headers),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order_created %s: %w", ev.Order.ID, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.w.Close()
}
