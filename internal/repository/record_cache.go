package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/document-registry/internal/config"
	"github.com/iliyamo/document-registry/internal/model"
)

// RecordStore is the set of record operations the document service needs.
// *RecordRepo and *CachedRecordRepo both satisfy it.
type RecordStore interface {
	List(ctx context.Context) ([]model.Record, error)
	Create(ctx context.Context, rec model.Record) (uint64, error)
	Update(ctx context.Context, rec model.Record, withSubject bool) error
	Delete(ctx context.Context, id uint64) error
}

// CachedRecordRepo keeps the full record list in Redis.  Cached lists are
// keyed by a generation counter that every successful write increments, so
// a list read from the store before a write can only ever be filed under
// the generation it was read in and is never served afterwards.  Redis
// failures are logged and fall through to the wrapped store.
type CachedRecordRepo struct {
	next   RecordStore
	rdb    *redis.Client
	cfg    config.CacheConfig
	genKey string
}

// NewCachedRecordRepo returns next unchanged when caching is disabled or no
// Redis client is available.
func NewCachedRecordRepo(next RecordStore, rdb *redis.Client, cfg config.CacheConfig) RecordStore {
	if !cfg.Enabled || rdb == nil {
		return next
	}
	return &CachedRecordRepo{next: next, rdb: rdb, cfg: cfg, genKey: cfg.Prefix + ":records:gen"}
}

func (c *CachedRecordRepo) listKey(gen int64) string {
	return c.cfg.Prefix + ":records:all:" + strconv.FormatInt(gen, 10)
}

// generation returns the current write generation; 0 before any write.
func (c *CachedRecordRepo) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, c.genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *CachedRecordRepo) List(ctx context.Context) ([]model.Record, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		slog.WarnContext(ctx, "record cache read failed", "key", c.genKey, "err", err)
		return c.next.List(ctx)
	}
	key := c.listKey(gen)

	if bs, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var out []model.Record
		if err := json.Unmarshal(bs, &out); err == nil {
			return out, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		slog.WarnContext(ctx, "record cache read failed", "key", key, "err", err)
	}

	out, err := c.next.List(ctx)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(out); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.cfg.TTL).Err(); err != nil {
			slog.WarnContext(ctx, "record cache write failed", "key", key, "err", err)
		}
	}
	return out, nil
}

func (c *CachedRecordRepo) Create(ctx context.Context, rec model.Record) (uint64, error) {
	id, err := c.next.Create(ctx, rec)
	if err == nil {
		c.invalidate(ctx)
	}
	return id, err
}

func (c *CachedRecordRepo) Update(ctx context.Context, rec model.Record, withSubject bool) error {
	err := c.next.Update(ctx, rec, withSubject)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

func (c *CachedRecordRepo) Delete(ctx context.Context, id uint64) error {
	err := c.next.Delete(ctx, id)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

// invalidate moves readers to a fresh generation.  Lists cached under older
// generations expire with the TTL.
func (c *CachedRecordRepo) invalidate(ctx context.Context) {
	if err := c.rdb.Incr(context.WithoutCancel(ctx), c.genKey).Err(); err != nil {
		slog.WarnContext(ctx, "record cache invalidate failed", "key", c.genKey, "err", err)
	}
}
