// Package cache mirrors product records into a separate Redis database.
//
// The mirror is written only by Create and is never reconciled with later
// changes to the source of truth: deletes and stock movements leave cached
// entries stale.
package cache

import (
	"context"
	"fmt"
	"iter"

	"ProductCatalog/internal/hashstore"
	"ProductCatalog/internal/product"
)

// DefaultDB is the logical Redis database the mirror lives in.
const DefaultDB = 3

var (
	ErrNotFound      = product.NewError(product.KindNotFoundInCache, "product not found in cache")
	ErrAlreadyExists = product.NewError(product.KindAlreadyExistsInCache, "product already exists in cache")
)

type Mirror struct {
	client hashstore.Client
}

func New(client hashstore.Client) *Mirror {
	return &Mirror{client: client}
}

func (m *Mirror) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

func (m *Mirror) Get(ctx context.Context, id string) (product.Product, error) {
	fields, found, err := hashstore.Read(ctx, m.client, product.Key(id))
	if err != nil {
		return product.Product{}, fmt.Errorf("cache get %s: %w", id, err)
	}
	if !found {
		return product.Product{}, fmt.Errorf("%w: product id %s", ErrNotFound, id)
	}
	return product.Decode(fields)
}

func (m *Mirror) List(ctx context.Context) iter.Seq2[product.Product, error] {
	return func(yield func(product.Product, error) bool) {
		for key, err := range hashstore.Keys(ctx, m.client, product.KeyPattern) {
			if err != nil {
				yield(product.Product{}, fmt.Errorf("cache list: %w", err))
				return
			}
			fields, found, err := hashstore.Read(ctx, m.client, key)
			if err != nil {
				yield(product.Product{}, fmt.Errorf("cache list: %w", err))
				return
			}
			if !found {
				continue
			}
			if !yield(product.Decode(fields)) {
				return
			}
		}
	}
}

// Create is strict: any existing entry, whatever its state, is a conflict.
func (m *Mirror) Create(ctx context.Context, p product.Product) error {
	key := product.Key(p.ID)

	_, found, err := hashstore.Read(ctx, m.client, key)
	if err != nil {
		return fmt.Errorf("cache create %s: %w", p.ID, err)
	}
	if found {
		return fmt.Errorf("%w: product id %s", ErrAlreadyExists, p.ID)
	}

	fields := product.Encode(p)
	delete(fields, product.FieldAvailable)
	if err := hashstore.Write(ctx, m.client, key, fields); err != nil {
		return fmt.Errorf("cache create %s: %w", p.ID, err)
	}
	return nil
}
