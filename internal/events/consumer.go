package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"ProductCatalog/pkg/tracing"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  group,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// Consumer feeds order_created messages to a handler. Every fetched message is
// committed once handled, whether or not the handler succeeded.
type Consumer struct {
	log     *zap.Logger
	reader  messageReader
	handler OrderCreatedHandler
	dedupe  *Deduper
	timeout time.Duration
	tracer  trace.Tracer
}

// NewConsumer builds a consumer. dedupe may be nil.
func NewConsumer(log *zap.Logger, r messageReader, h OrderCreatedHandler, dedupe *Deduper, timeout time.Duration) *Consumer {
	return &Consumer{
		log:     log,
		reader:  r,
		handler: h,
		dedupe:  dedupe,
		timeout: timeout,
		tracer:  otel.Tracer("catalog-consumer"),
	}
}

// Run blocks until ctx is cancelled (returning nil) or the reader fails.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() { _ = c.reader.Close() }()

	c.log.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer stopped")
				return nil
			}
			return err
		}

		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error("commit failed", zap.Error(err), zap.Int64("offset", msg.Offset))
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	log := c.log.With(
		zap.String("topic", msg.Topic),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	if t := headerValue(msg.Headers, headerEventType); t != "" && t != EventTypeOrderCreated {
		log.Debug("ignoring event", zap.String("event_type", t))
		return
	}

	if c.dedupe != nil {
		seen, err := c.dedupe.Seen(ctx, c.dedupe.Key(msg.Topic, msg.Partition, msg.Offset))
		if err != nil {
			log.Error("idempotency check failed", zap.Error(err))
			return
		}
		if seen {
			log.Info("duplicate message skipped")
			return
		}
	}

	var ev OrderCreated
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		log.Error("undecodable order_created, skipping", zap.Error(err))
		return
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeOrderCreated",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
			attribute.String("order.id", ev.Order.ID),
		),
	)
	defer span.End()

	hctx, cancel := context.WithTimeout(msgCtx, c.timeout)
	defer cancel()

	if err := c.handler.HandleOrderCreated(hctx, ev); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order_created handling failed")
		if errors.Is(err, context.DeadlineExceeded) {
			log.Error("order_created timed out", zap.String("order_id", ev.Order.ID), zap.Error(err))
			return
		}
		log.Error("order_created failed", zap.String("order_id", ev.Order.ID), zap.Error(err))
		return
	}
	log.Info("order_created handled", zap.String("order_id", ev.Order.ID), zap.Int("items", len(ev.Order.OrderDetails)))
}

func headerValue(h []kafka.Header, key string) string {
	for _, hh := range h {
		if hh.Key == key {
			return string(hh.Value)
		}
	}
	return ""
}
