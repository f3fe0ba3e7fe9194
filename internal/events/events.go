// Package events carries the order_created event between the order service and
// the catalog over Kafka.
package events

import "context"

const (
	TopicOrderCreated = "orders.order_created"

	EventTypeOrderCreated = "order_created"
	headerEventType       = "event_type"
	headerEventID         = "event_id"
)

type LineItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type Order struct {
	ID           string     `json:"id,omitempty"`
	OrderDetails []LineItem `json:"order_details"`
}

type OrderCreated struct {
	Order Order `json:"order"`
}

type OrderCreatedHandler interface {
	HandleOrderCreated(ctx context.Context, ev OrderCreated) error
}
