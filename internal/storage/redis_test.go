package storage

import (
	"context"
	"testing"
	"time"

	"github.com/LJTian/NewsCache/internal/processor"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCachedStore(t *testing.T) (*CachedStore, *MemoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	inner := NewMemoryStore()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewCachedStore(inner, rdb, time.Minute, zap.NewNop())
	t.Cleanup(func() { s.Close(context.Background()) })
	return s, inner, mr
}

func TestCachedStoreServesFromRedis(t *testing.T) {
	ctx := context.Background()
	s, inner, mr := newTestCachedStore(t)
	ts := time.Date(2024, 3, 5, 7, 2, 0, 0, time.UTC)

	require.NoError(t, s.Upsert(ctx, "news", "2024-03-05", sampleArticles(), ts))
	assert.True(t, mr.Exists(snapshotCacheKey("news", "2024-03-05")))
	members, err := mr.Members(feedKeysKey("news"))
	require.NoError(t, err)
	assert.Equal(t, []string{snapshotCacheKey("news", "2024-03-05")}, members)

	// 底层存储被改写后，读到的仍是 Redis 中的版本
	require.NoError(t, inner.Upsert(ctx, "news", "2024-03-05", []processor.Article{{"title": "behind the cache"}}, ts))

	got, found, err := s.Get(ctx, "news", "2024-03-05")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, sampleArticles(), got.Data)
	assert.True(t, got.Timestamp.Equal(ts))
}

func TestCachedStoreFillsOnMiss(t *testing.T) {
	ctx := context.Background()
	s, inner, mr := newTestCachedStore(t)

	require.NoError(t, inner.Upsert(ctx, "EnNews", "2024-03-05", sampleArticles(), time.Now()))
	assert.False(t, mr.Exists(snapshotCacheKey("EnNews", "2024-03-05")))

	_, found, err := s.Get(ctx, "EnNews", "2024-03-05")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, mr.Exists(snapshotCacheKey("EnNews", "2024-03-05")))
	assert.Greater(t, mr.TTL(snapshotCacheKey("EnNews", "2024-03-05")), time.Duration(0))
}

func TestCachedStoreReplaceAllInvalidatesFeed(t *testing.T) {
	ctx := context.Background()
	s, _, mr := newTestCachedStore(t)
	now := time.Now()

	require.NoError(t, s.Upsert(ctx, "news", "2024-03-04", sampleArticles(), now))
	require.NoError(t, s.Upsert(ctx, "news", "2024-03-05", sampleArticles(), now))
	require.NoError(t, s.Upsert(ctx, "EnNews", "2024-03-05", sampleArticles(), now))

	latest := []processor.Article{{"title": "fresh"}}
	require.NoError(t, s.ReplaceAll(ctx, "news", latest, now))

	assert.False(t, mr.Exists(snapshotCacheKey("news", "2024-03-04")))
	assert.False(t, mr.Exists(snapshotCacheKey("news", "2024-03-05")))
	assert.True(t, mr.Exists(snapshotCacheKey("news", LatestKey)))
	assert.True(t, mr.Exists(snapshotCacheKey("EnNews", "2024-03-05")))

	_, found, err := s.Get(ctx, "news", "2024-03-05")
	require.NoError(t, err)
	assert.False(t, found)

	got, found, err := s.Get(ctx, "news", LatestKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, latest, got.Data)
}

func TestCachedStoreReplaceAllScansWhenKeySetBroken(t *testing.T) {
	ctx := context.Background()
	s, _, mr := newTestCachedStore(t)
	now := time.Now()

	require.NoError(t, s.Upsert(ctx, "news", "2024-03-05", sampleArticles(), now))
	// key 集合被覆盖成字符串，SMEMBERS 返回 WRONGTYPE
	mr.Del(feedKeysKey("news"))
	require.NoError(t, mr.Set(feedKeysKey("news"), "broken"))

	latest := []processor.Article{{"title": "fresh"}}
	require.NoError(t, s.ReplaceAll(ctx, "news", latest, now))

	assert.False(t, mr.Exists(snapshotCacheKey("news", "2024-03-05")))
	_, found, err := s.Get(ctx, "news", "2024-03-05")
	require.NoError(t, err)
	assert.False(t, found)

	got, found, err := s.Get(ctx, "news", LatestKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, latest, got.Data)
}
