// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	importentity "quantpulse_backend/internal/feature/symbolimport/domain/entity"
	importusecase "quantpulse_backend/internal/feature/symbolimport/usecase"
	"quantpulse_backend/internal/feature/symbollist/domain/entity"
	"quantpulse_backend/internal/feature/symbollist/usecase"
)

// DefaultNamespace prefixes every symbol list cache key.
const DefaultNamespace = "symbols"

// CachingSymbolRepository decorates a SymbolRepository with Redis caching.
// It implements the decorator pattern, transparently adding caching without
// modifying the underlying repository.
type CachingSymbolRepository struct {
	inner     usecase.SymbolRepository
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
}

var _ usecase.SymbolRepository = (*CachingSymbolRepository)(nil)

// NewCachingSymbolRepository decorates a SymbolRepository with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "symbols".
func NewCachingSymbolRepository(rdb *redis.Client, ttl time.Duration, inner usecase.SymbolRepository, namespace string) *CachingSymbolRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &CachingSymbolRepository{
		inner:     inner,
		rdb:       rdb,
		ttl:       ttl,
		namespace: namespace,
	}
}

// Search retrieves a page of symbols, checking cache first then falling back to the database.
func (c *CachingSymbolRepository) Search(ctx context.Context, q entity.SymbolQuery) (entity.SymbolPage, error) {
	// Bypass cache if Redis is not configured
	if c.rdb == nil {
		return c.inner.Search(ctx, q)
	}

	key := c.cacheKey(q)

	// 1) Check cache
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out entity.SymbolPage
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// Delete corrupted cache entry
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) Fallback to database
	out, err := c.inner.Search(ctx, q)
	if err != nil {
		return entity.SymbolPage{}, err
	}

	// 3) Store in cache (best effort)
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}

	return out, nil
}

// Exists is not cached: selection must see symbols right after an import.
func (c *CachingSymbolRepository) Exists(ctx context.Context, symbol string) (bool, error) {
	return c.inner.Exists(ctx, symbol)
}

// cacheKey generates a cache key for a specific query.
// The search text is hex-encoded so distinct searches never share a key.
func (c *CachingSymbolRepository) cacheKey(q entity.SymbolQuery) string {
	return fmt.Sprintf("%s:list:%s:%d:%d",
		c.namespace,
		hex.EncodeToString([]byte(q.Search)),
		q.Limit,
		q.Offset,
	)
}

// InvalidatingSymbolWriter decorates the import SymbolWriter so that every
// committed import drops the cached symbol lists.
type InvalidatingSymbolWriter struct {
	inner     importusecase.SymbolWriter
	rdb       *redis.Client
	namespace string
}

var _ importusecase.SymbolWriter = (*InvalidatingSymbolWriter)(nil)

// NewInvalidatingSymbolWriter wraps inner. If namespace is empty, it uses "symbols".
func NewInvalidatingSymbolWriter(rdb *redis.Client, inner importusecase.SymbolWriter, namespace string) *InvalidatingSymbolWriter {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &InvalidatingSymbolWriter{inner: inner, rdb: rdb, namespace: namespace}
}

// UpsertDirectory writes through to the inner writer and invalidates the list cache after commit.
func (w *InvalidatingSymbolWriter) UpsertDirectory(ctx context.Context, source importentity.Source, records []importentity.DirectoryRecord) (importentity.UpsertResult, error) {
	res, err := w.inner.UpsertDirectory(ctx, source, records)
	if err != nil {
		return res, err
	}
	if w.rdb == nil || res.Inserted+res.Updated == 0 {
		return res, nil
	}
	// Best effort: a stale list expires with the TTL
	if err := deleteByPattern(ctx, w.rdb, w.namespace+":list:*"); err != nil {
		slog.Warn("failed to invalidate symbol cache", "exchange", source, "error", err)
	}
	return res, nil
}

// CreateMissing writes through to the inner writer and invalidates the list cache
// when at least one symbol was created.
func (w *InvalidatingSymbolWriter) CreateMissing(ctx context.Context, symbols []importentity.ManualSymbol) (int, error) {
	created, err := w.inner.CreateMissing(ctx, symbols)
	if err != nil || created == 0 || w.rdb == nil {
		return created, err
	}
	if err := deleteByPattern(ctx, w.rdb, w.namespace+":list:*"); err != nil {
		slog.Warn("failed to invalidate symbol cache", "error", err)
	}
	return created, nil
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func deleteByPattern(ctx context.Context, rdb *redis.Client, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}
