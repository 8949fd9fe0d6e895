// Package redcache adds a Redis read-through cache in front of the product
// catalog. Only the public listing is cached; it is the one query every
// storefront visitor triggers.
package redcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/product"
)

const listKey = "catalog:products"

var _ product.Repository = (*CatalogCache)(nil)

// CatalogCache decorates a product.Repository with a TTL-bound cache of the
// public listing. Admin mutations invalidate the key eagerly; stock changes
// made by the order transactions are only as fresh as the TTL, which is why
// the TTL should stay short. Redis failures degrade to the inner repository.
type CatalogCache struct {
	product.Repository

	rdb *redis.Client
	ttl time.Duration
}

// New wraps inner with a Redis-backed listing cache.
func New(inner product.Repository, rdb *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{Repository: inner, rdb: rdb, ttl: ttl}
}

// List serves the public listing from Redis when possible.
func (c *CatalogCache) List(ctx context.Context) ([]product.Product, error) {
	if data, err := c.rdb.Get(ctx, listKey).Bytes(); err == nil {
		var products []product.Product
		if err := json.Unmarshal(data, &products); err == nil {
			return products, nil
		}
		// Unreadable payload: drop it and fall through to the database.
		c.rdb.Del(ctx, listKey)
	}

	products, err := c.Repository.List(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(products); err == nil {
		if err := c.rdb.Set(ctx, listKey, data, c.ttl).Err(); err != nil {
			zctx.From(ctx).Debug("Catalog cache write failed", zap.Error(err))
		}
	}
	return products, nil
}

// Create invalidates the listing after delegating.
func (c *CatalogCache) Create(ctx context.Context, p *product.Product) error {
	return c.invalidateAfter(ctx, c.Repository.Create(ctx, p))
}

// Update invalidates the listing after delegating.
func (c *CatalogCache) Update(ctx context.Context, p *product.Product) error {
	return c.invalidateAfter(ctx, c.Repository.Update(ctx, p))
}

// UpdateStock invalidates the listing after delegating.
func (c *CatalogCache) UpdateStock(ctx context.Context, id int64, stock int) error {
	return c.invalidateAfter(ctx, c.Repository.UpdateStock(ctx, id, stock))
}

// Archive invalidates the listing after delegating.
func (c *CatalogCache) Archive(ctx context.Context, id int64) error {
	return c.invalidateAfter(ctx, c.Repository.Archive(ctx, id))
}

// Restore invalidates the listing after delegating.
func (c *CatalogCache) Restore(ctx context.Context, id int64) error {
	return c.invalidateAfter(ctx, c.Repository.Restore(ctx, id))
}

func (c *CatalogCache) invalidateAfter(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	if derr := c.rdb.Del(ctx, listKey).Err(); derr != nil {
		zctx.From(ctx).Debug("Catalog cache invalidation failed", zap.Error(derr))
	}
	return nil
}
