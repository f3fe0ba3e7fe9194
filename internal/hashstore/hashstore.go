// Package hashstore is the narrow Redis capability the storage engine and the
// cache mirror are built on: whole-hash reads and writes, atomic scripts, and
// key scans.
package hashstore

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/redis/go-redis/v9"
)

const scanCount = 100

// Client is satisfied by *redis.Client.
type Client interface {
	redis.Scripter
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

var _ Client = (*redis.Client)(nil)

// NewClient builds a pooled client from a redis:// URI. A db >= 0 overrides the
// database index carried by the URI.
func NewClient(uri string, db int) (*redis.Client, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}
	if db >= 0 {
		opts.DB = db
	}
	return redis.NewClient(opts), nil
}

// Read returns the hash at key. found is false when the key does not exist.
func Read(ctx context.Context, c Client, key string) (fields map[string]string, found bool, err error) {
	fields, err = c.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, false, err
	}
	return fields, len(fields) > 0, nil
}

// Write sets every field of the hash in one HSET.
func Write(ctx context.Context, c Client, key string, fields map[string]string) error {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return c.HSet(ctx, key, args...).Err()
}

// Keys lazily scans the keys matching pattern. Each call starts a fresh SCAN.
// SCAN may return a key more than once; repeats are dropped.
func Keys(ctx context.Context, c Client, pattern string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		seen := make(map[string]struct{})
		it := c.Scan(ctx, 0, pattern, scanCount).Iterator()
		for it.Next(ctx) {
			key := it.Val()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if !yield(key, nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield("", err)
		}
	}
}

// IsNil reports whether err is the empty reply Redis returns for absent values.
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
