package refresh

import (
	"context"
	"time"

	"github.com/LJTian/NewsCache/internal/config"
	"github.com/LJTian/NewsCache/internal/processor"
	"github.com/LJTian/NewsCache/internal/storage"
	"go.uber.org/zap"
)

// CacheKeyLayout 请求路径按自然日缓存，YYYY-MM-DD
const CacheKeyLayout = "2006-01-02"

// Loader 抓取并清洗一个 feed
type Loader interface {
	Load(ctx context.Context, feed config.Feed) ([]processor.Article, error)
}

// Policy 决定某次请求直接返回缓存，还是回源刷新并写回存储。
// 不加锁：同一 key 并发过期时可能重复回源，upsert 覆盖写，最后写入者生效
type Policy struct {
	store  storage.SnapshotStore
	loader Loader
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Policy)

// WithClock 替换时钟，测试用
func WithClock(now func() time.Time) Option {
	return func(p *Policy) { p.now = now }
}

// WithLocation 计算日期 key 使用的时区
func WithLocation(loc *time.Location) Option {
	return func(p *Policy) {
		if loc != nil {
			p.loc = loc
		}
	}
}

func NewPolicy(store storage.SnapshotStore, loader Loader, logger *zap.Logger, opts ...Option) *Policy {
	p := &Policy{
		store:  store,
		loader: loader,
		loc:    time.Local,
		now:    time.Now,
		logger: logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Resolve 命中且未过期时原样返回缓存数据，否则回源、清洗并 upsert
func (p *Policy) Resolve(ctx context.Context, feed config.Feed) ([]processor.Article, error) {
	now := p.now()
	key := now.In(p.loc).Format(CacheKeyLayout)

	snap, found, err := p.store.Get(ctx, feed.Name, key)
	if err != nil {
		return nil, err
	}
	if found && now.Sub(snap.Timestamp) < feed.Freshness {
		p.logger.Debug("serve cached snapshot", zap.String("feed", feed.Name), zap.String("key", key), zap.Time("timestamp", snap.Timestamp))
		return snap.Data, nil
	}

	data, err := p.loader.Load(ctx, feed)
	if err != nil {
		return nil, err
	}
	// 时间戳取回源完成的时刻
	fetchedAt := p.now()
	if err := p.store.Upsert(ctx, feed.Name, key, data, fetchedAt); err != nil {
		return nil, err
	}
	p.logger.Info("snapshot refreshed", zap.String("feed", feed.Name), zap.String("key", key), zap.Int("articles", len(data)))
	return data, nil
}
