// Package app 组装 cmd/api 与 cmd/collect 共用的依赖
package app

import (
	"context"

	"github.com/LJTian/NewsCache/internal/collector"
	"github.com/LJTian/NewsCache/internal/config"
	"github.com/LJTian/NewsCache/internal/processor"
	"github.com/LJTian/NewsCache/internal/refresh"
	"github.com/LJTian/NewsCache/internal/storage"
	"go.uber.org/zap"
)

func StoreOptions(cfg *config.Config) storage.Options {
	collections := make(map[string]string, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		collections[f.Name] = f.CollectionName()
	}
	return storage.Options{
		Driver:        cfg.StoreDriver,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		Collections:   collections,
		PostgresDSN:   cfg.PostgresDSN,
		RedisAddr:     cfg.RedisAddr,
		RedisTTL:      cfg.RedisTTL,
	}
}

func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.SnapshotStore, error) {
	return storage.Open(ctx, StoreOptions(cfg), logger)
}

func NewPipeline(cfg *config.Config, logger *zap.Logger) *refresh.Pipeline {
	fetcher := collector.NewDispatcher(
		collector.NewAPIFetcher(cfg.UpstreamTimeout),
		collector.NewRSSFetcher(cfg.UpstreamTimeout),
	)
	enricher := collector.NewImageEnricher(cfg.UpstreamTimeout, logger)
	return refresh.NewPipeline(fetcher, enricher, processor.NewSimpleProcessor(cfg.Location))
}

// SelectFeeds 按名称挑选 feed，names 为空时返回全部
func SelectFeeds(all []config.Feed, names []string) ([]config.Feed, []string) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]config.Feed, len(all))
	for _, f := range all {
		byName[f.Name] = f
	}
	var (
		out     []config.Feed
		unknown []string
	)
	for _, n := range names {
		f, ok := byName[n]
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		out = append(out, f)
	}
	return out, unknown
}
