package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/LJTian/NewsCache/internal/processor"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// LatestKey 后台定时刷新写入的那条记录使用的 key
const LatestKey = "latest"

// Snapshot 某个 feed 在某个 key（日期或 latest）下保存的一批文章
type Snapshot struct {
	Feed      string              `json:"feed"`
	CacheKey  string              `json:"cacheKey"`
	Data      []processor.Article `json:"data"`
	Timestamp time.Time           `json:"timestamp"`
}

// SnapshotStore 快照存储。Get 未命中时返回 found=false 且 err=nil。
// ReplaceAll 先删除该 feed 的全部记录再插入一条 LatestKey 记录，两步之间不保证原子性
type SnapshotStore interface {
	Get(ctx context.Context, feed, key string) (Snapshot, bool, error)
	Upsert(ctx context.Context, feed, key string, data []processor.Article, ts time.Time) error
	ReplaceAll(ctx context.Context, feed string, data []processor.Article, ts time.Time) error
	Close(ctx context.Context) error
}

// StoreError 存储读写失败
type StoreError struct {
	Op   string
	Feed string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Feed, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

type Options struct {
	Driver string

	MongoURI      string
	MongoDatabase string
	// Collections feed 名到 Mongo 集合名的映射
	Collections map[string]string

	PostgresDSN string

	// RedisAddr 非空时在存储前加一层 Redis 缓存
	RedisAddr string
	RedisTTL  time.Duration
}

// Open 建立存储连接并确认可用；任何失败都应当在监听端口之前终止进程
func Open(ctx context.Context, opts Options, logger *zap.Logger) (SnapshotStore, error) {
	var (
		store SnapshotStore
		err   error
	)
	switch opts.Driver {
	case "mongo":
		store, err = NewMongoStore(ctx, opts.MongoURI, opts.MongoDatabase, opts.Collections)
	case "postgres":
		store, err = NewPostgresStore(opts.PostgresDSN)
	case "memory":
		store = NewMemoryStore()
	default:
		err = fmt.Errorf("unknown store driver %q", opts.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", opts.Driver, err)
	}

	if opts.RedisAddr == "" {
		return store, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis ping failed, cache layer will fall through", zap.String("addr", opts.RedisAddr), zap.Error(err))
	}
	return NewCachedStore(store, rdb, opts.RedisTTL, logger), nil
}
