package storage

import (
	"context"
	"fmt"
	"iter"

	"github.com/redis/go-redis/v9"

	"ProductCatalog/internal/hashstore"
	"ProductCatalog/internal/product"
)

// decrementStockScript adds ARGV[2] to field ARGV[1] only when the hash exists,
// so a decrement never fabricates a partial record.
var decrementStockScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
return redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
`)

// Engine is the source of truth for products. Get, Create and Delete are a read
// followed by a write and are not transactional: concurrent creates of the same
// id are last-writer-wins.
type Engine struct {
	client hashstore.Client
}

func New(client hashstore.Client) *Engine {
	return &Engine{client: client}
}

func (e *Engine) Ping(ctx context.Context) error {
	return e.client.Ping(ctx).Err()
}

func (e *Engine) Get(ctx context.Context, id string, includeUnavailable bool) (product.Product, error) {
	fields, found, err := hashstore.Read(ctx, e.client, product.Key(id))
	if err != nil {
		return product.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	if !found {
		return product.Product{}, fmt.Errorf("%w: product id %s does not exist", product.ErrNotFound, id)
	}

	p, err := product.Decode(fields)
	if err != nil {
		return product.Product{}, err
	}
	if !p.Available && !includeUnavailable {
		return product.Product{}, fmt.Errorf("%w: product id %s does not exist", product.ErrNotFound, id)
	}
	return p, nil
}

// List yields every product under the products namespace. Order is whatever
// SCAN returns. A hash that disappears between the scan and the read is skipped.
func (e *Engine) List(ctx context.Context, includeUnavailable bool) iter.Seq2[product.Product, error] {
	return func(yield func(product.Product, error) bool) {
		for key, err := range hashstore.Keys(ctx, e.client, product.KeyPattern) {
			if err != nil {
				yield(product.Product{}, fmt.Errorf("list products: %w", err))
				return
			}

			fields, found, err := hashstore.Read(ctx, e.client, key)
			if err != nil {
				yield(product.Product{}, fmt.Errorf("list products: %w", err))
				return
			}
			if !found {
				continue
			}

			p, err := product.Decode(fields)
			if err != nil {
				if !yield(product.Product{}, err) {
					return
				}
				continue
			}
			if !p.Available && !includeUnavailable {
				continue
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}

// Create writes p as an available record. An existing soft-deleted record with
// the same id is replaced wholesale.
func (e *Engine) Create(ctx context.Context, p product.Product) error {
	key := product.Key(p.ID)

	fields, found, err := hashstore.Read(ctx, e.client, key)
	if err != nil {
		return fmt.Errorf("create product %s: %w", p.ID, err)
	}
	if found {
		existing, err := product.Decode(fields)
		if err != nil {
			return err
		}
		if existing.Available {
			return fmt.Errorf("%w: product id %s already exists", product.ErrAlreadyExists, p.ID)
		}
	}

	p.Available = true
	if err := hashstore.Write(ctx, e.client, key, product.Encode(p)); err != nil {
		return fmt.Errorf("create product %s: %w", p.ID, err)
	}
	return nil
}

// Delete soft-deletes: the record stays, flagged unavailable.
func (e *Engine) Delete(ctx context.Context, id string) error {
	p, err := e.Get(ctx, id, false)
	if err != nil {
		return err
	}

	p.Available = false
	if err := hashstore.Write(ctx, e.client, product.Key(id), product.Encode(p)); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}

// DecrementStock atomically subtracts amount from in_stock and returns the new
// level. There is no floor; stock may go negative.
func (e *Engine) DecrementStock(ctx context.Context, id string, amount int) (int, error) {
	n, err := decrementStockScript.Run(ctx, e.client,
		[]string{product.Key(id)}, product.FieldInStock, -amount).Int64()
	if hashstore.IsNil(err) {
		return 0, fmt.Errorf("%w: product id %s does not exist", product.ErrNotFound, id)
	}
	if err != nil {
		return 0, fmt.Errorf("decrement stock %s: %w", id, err)
	}
	return int(n), nil
}
