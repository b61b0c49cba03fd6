package refresh

import (
	"context"

	"github.com/LJTian/NewsCache/internal/collector"
	"github.com/LJTian/NewsCache/internal/config"
	"github.com/LJTian/NewsCache/internal/processor"
)

// Enricher 在清洗前补全原始文章，可为空
type Enricher interface {
	Enrich(ctx context.Context, feed config.Feed, articles []collector.RawArticle) []collector.RawArticle
}

// Pipeline 抓取 → （可选）补全配图 → 清洗，请求路径和后台刷新共用
type Pipeline struct {
	fetcher   collector.Fetcher
	enricher  Enricher
	processor *processor.SimpleProcessor
}

func NewPipeline(fetcher collector.Fetcher, enricher Enricher, p *processor.SimpleProcessor) *Pipeline {
	return &Pipeline{fetcher: fetcher, enricher: enricher, processor: p}
}

func (p *Pipeline) Load(ctx context.Context, feed config.Feed) ([]processor.Article, error) {
	raw, err := p.fetcher.Fetch(ctx, feed)
	if err != nil {
		return nil, err
	}
	if p.enricher != nil {
		raw = p.enricher.Enrich(ctx, feed, raw)
	}
	return p.processor.Process(raw, feed), nil
}
