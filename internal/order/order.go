package order

import (
	"context"
	"errors"
	"time"
)

const StatusNew = "NEW"

type Item struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type Order struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Items     []Item    `json:"items"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

var ErrNotFound = errors.New("order not found")

type Store interface {
	Ping(ctx context.Context) error
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
}
