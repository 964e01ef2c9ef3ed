// Package cache puts a Redis read-through cache in front of the catalog and
// warehouse name lookups used when logging transfers.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwZhang-1102/goodsManagement/internal/domain/inventory"
)

const (
	itemKeyPrefix     = "name:item:"
	locationKeyPrefix = "name:location:"
)

// Names resolves display names from Redis, falling back to the registries.
// Redis errors are logged and never fail a lookup.
type Names struct {
	client    redis.Cmdable
	ttl       time.Duration
	items     inventory.ItemResolver
	locations inventory.LocationResolver
	log       *slog.Logger
}

func NewNames(client redis.Cmdable, ttl time.Duration, items inventory.ItemResolver,
	locations inventory.LocationResolver, log *slog.Logger) *Names {

	return &Names{client: client, ttl: ttl, items: items, locations: locations, log: log}
}

func (n *Names) ItemName(ctx context.Context, code string) (string, bool, error) {
	return n.lookup(ctx, itemKeyPrefix+code, func() (string, bool, error) {
		return n.items.ItemName(ctx, code)
	})
}

func (n *Names) LocationName(ctx context.Context, code string) (string, bool, error) {
	return n.lookup(ctx, locationKeyPrefix+code, func() (string, bool, error) {
		return n.locations.LocationName(ctx, code)
	})
}

// ForgetItem drops a cached product name after it was changed or deleted.
func (n *Names) ForgetItem(ctx context.Context, code string) {
	n.forget(ctx, itemKeyPrefix+code)
}

func (n *Names) ForgetLocation(ctx context.Context, code string) {
	n.forget(ctx, locationKeyPrefix+code)
}

func (n *Names) lookup(ctx context.Context, key string, load func() (string, bool, error)) (string, bool, error) {
	name, err := n.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return name, true, nil
	case !errors.Is(err, redis.Nil):
		n.log.Warn("name cache read failed", "key", key, "err", err)
	}

	name, ok, err := load()
	if err != nil || !ok {
		return name, ok, err
	}
	if err := n.client.Set(ctx, key, name, n.ttl).Err(); err != nil {
		n.log.Warn("name cache write failed", "key", key, "err", err)
	}
	return name, true, nil
}

func (n *Names) forget(ctx context.Context, key string) {
	if err := n.client.Del(ctx, key).Err(); err != nil {
		n.log.Warn("name cache invalidate failed", "key", key, "err", err)
	}
}
