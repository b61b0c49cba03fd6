package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LJTian/NewsCache/internal/processor"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ SnapshotStore = (*CachedStore)(nil)

// CachedStore 在任意 SnapshotStore 前加一层 Redis 写穿缓存。
// Redis 出错只记日志，读写都回落到底层存储
type CachedStore struct {
	inner  SnapshotStore
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedStore(inner SnapshotStore, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CachedStore{inner: inner, rdb: rdb, ttl: ttl, logger: logger}
}

func snapshotCacheKey(feed, key string) string {
	return fmt.Sprintf("news:snapshot:%s:%s", feed, key)
}

// feedKeysKey 记录某个 feed 写过的缓存 key，ReplaceAll 时据此失效，避免通配扫描
func feedKeysKey(feed string) string {
	return fmt.Sprintf("news:snapshot-keys:%s", feed)
}

func (c *CachedStore) Get(ctx context.Context, feed, key string) (Snapshot, bool, error) {
	bs, err := c.rdb.Get(ctx, snapshotCacheKey(feed, key)).Bytes()
	if err == nil {
		var cached Snapshot
		if err := json.Unmarshal(bs, &cached); err == nil {
			return cached, true, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Debug("redis get failed", zap.String("feed", feed), zap.String("key", key), zap.Error(err))
	}

	s, found, err := c.inner.Get(ctx, feed, key)
	if err != nil || !found {
		return s, found, err
	}
	c.cache(ctx, s)
	return s, true, nil
}

func (c *CachedStore) Upsert(ctx context.Context, feed, key string, data []processor.Article, ts time.Time) error {
	if err := c.inner.Upsert(ctx, feed, key, data, ts); err != nil {
		return err
	}
	c.cache(ctx, Snapshot{Feed: feed, CacheKey: key, Data: data, Timestamp: ts})
	return nil
}

func (c *CachedStore) ReplaceAll(ctx context.Context, feed string, data []processor.Article, ts time.Time) error {
	if err := c.inner.ReplaceAll(ctx, feed, data, ts); err != nil {
		return err
	}

	if err := c.invalidate(ctx, feed); err != nil {
		// 失效不完整时不再写入 latest，读请求直接回落到底层存储
		c.logger.Error("redis invalidate failed", zap.String("feed", feed), zap.Error(err))
		return nil
	}

	c.cache(ctx, Snapshot{Feed: feed, CacheKey: LatestKey, Data: data, Timestamp: ts})
	return nil
}

// invalidate 删除某个 feed 的全部缓存 key。key 集合读取失败时退回 SCAN
func (c *CachedStore) invalidate(ctx context.Context, feed string) error {
	setKey := feedKeysKey(feed)
	keys, err := c.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		c.logger.Warn("redis list feed keys failed, falling back to scan", zap.String("feed", feed), zap.Error(err))
		keys, err = c.scanFeedKeys(ctx, feed)
		if err != nil {
			return err
		}
	}
	keys = append(keys, setKey)
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *CachedStore) scanFeedKeys(ctx context.Context, feed string) ([]string, error) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, snapshotCacheKey(feed, "*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (c *CachedStore) Close(ctx context.Context) error {
	rerr := c.rdb.Close()
	if err := c.inner.Close(ctx); err != nil {
		return err
	}
	return rerr
}

func (c *CachedStore) cache(ctx context.Context, s Snapshot) {
	bs, err := json.Marshal(s)
	if err != nil {
		return
	}
	k := snapshotCacheKey(s.Feed, s.CacheKey)
	setKey := feedKeysKey(s.Feed)
	_, err = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, k, bs, c.ttl)
		p.SAdd(ctx, setKey, k)
		p.Expire(ctx, setKey, c.ttl)
		return nil
	})
	if err != nil {
		c.logger.Warn("redis write failed", zap.String("feed", s.Feed), zap.String("key", s.CacheKey), zap.Error(err))
	}
}
