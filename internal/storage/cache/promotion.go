// Package cache provides a Redis read-through cache in front of the
// promotion store.
package cache

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/foodhub-promotions/internal/domain/promotion"
)

const keyPrefix = "promotion:"

var _ promotion.Repository = (*Promotions)(nil)

// errStaleFill aborts a cache fill whose store read raced with a write.
var errStaleFill = errors.New("promotion changed during fill")

// Promotions caches FindByCode results in Redis and drops the cached entry on
// every write that goes through it. Redis failures are logged and the call
// falls through to the wrapped store.
//
// Every write bumps a per-code generation counter together with the eviction.
// A miss records the generation before reading the store and only fills the
// cache if it is unchanged, so a read that overlapped a write never puts the
// old record back.
//
// Reads may return a usage count up to ttl old when another process wrote it.
// IncrementUsage always runs against the wrapped store.
type Promotions struct {
	next promotion.Repository
	rdb  redis.UniversalClient
	ttl  time.Duration
}

// NewPromotions wraps next with a cache that keeps entries for ttl.
func NewPromotions(next promotion.Repository, rdb redis.UniversalClient, ttl time.Duration) *Promotions {
	return &Promotions{next: next, rdb: rdb, ttl: ttl}
}

func key(code string) string {
	return keyPrefix + code
}

func genKey(code string) string {
	return keyPrefix + code + ":gen"
}

func (c *Promotions) FindByCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	lg := zctx.From(ctx)

	data, err := c.rdb.Get(ctx, key(code)).Bytes()
	switch {
	case err == nil:
		p, err := decodePromotion(data)
		if err == nil {
			return p, nil
		}
		lg.Warn("Drop unreadable cached promotion", zap.String("code", code), zap.Error(err))
		c.evict(ctx, code)
	case errors.Is(err, redis.Nil):
	default:
		lg.Warn("Promotion cache read failed", zap.String("code", code), zap.Error(err))
	}

	gen, genErr := c.generation(ctx, c.rdb, code)

	p, err := c.next.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		lg.Warn("Promotion cache generation read failed", zap.String("code", code), zap.Error(genErr))
		return p, nil
	}

	switch err := c.fill(ctx, code, gen, p); {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		lg.Debug("Skip stale promotion cache fill", zap.String("code", code))
	default:
		lg.Warn("Promotion cache write failed", zap.String("code", code), zap.Error(err))
	}
	return p, nil
}

// fill stores p if no write happened since generation gen was read.
func (c *Promotions) fill(ctx context.Context, code string, gen int64, p *promotion.Promotion) error {
	return c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := c.generation(ctx, tx, code)
		if err != nil {
			return err
		}
		if cur != gen {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(code), encodePromotion(p), c.ttl)
			return nil
		})
		return err
	}, genKey(code))
}

func (c *Promotions) generation(ctx context.Context, rdb redis.Cmdable, code string) (int64, error) {
	gen, err := rdb.Get(ctx, genKey(code)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, err
	}
	return gen, nil
}

func (c *Promotions) Create(ctx context.Context, p *promotion.Promotion) error {
	if err := c.next.Create(ctx, p); err != nil {
		return err
	}
	c.evict(ctx, p.Code)
	return nil
}

func (c *Promotions) IncrementUsage(ctx context.Context, code string) (int, error) {
	usage, err := c.next.IncrementUsage(ctx, code)
	if err == nil || errors.Is(err, promotion.ErrExhausted) {
		c.evict(ctx, code)
	}
	return usage, err
}

func (c *Promotions) UpdateStatus(ctx context.Context, code string, status promotion.Status) error {
	if err := c.next.UpdateStatus(ctx, code, status); err != nil {
		return err
	}
	c.evict(ctx, code)
	return nil
}

// evict drops the cached entry and bumps its generation in one transaction.
func (c *Promotions) evict(ctx context.Context, code string) {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(code))
		pipe.Del(ctx, key(code))
		return nil
	})
	if err != nil {
		zctx.From(ctx).Warn("Promotion cache evict failed", zap.String("code", code), zap.Error(err))
	}
}
