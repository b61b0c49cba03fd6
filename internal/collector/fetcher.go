package collector

import (
	"context"
	"fmt"

	"github.com/LJTian/NewsCache/internal/config"
)

// RawArticle 上游返回的单条新闻原始对象，字段名由 feed 配置决定
type RawArticle map[string]any

// String 按字段名取字符串值，缺失或类型不符时返回空串
func (r RawArticle) String(field string) string {
	if field == "" {
		return ""
	}
	s, _ := r[field].(string)
	return s
}

// Fetcher 抽象每一个上游新闻源
type Fetcher interface {
	Fetch(ctx context.Context, feed config.Feed) ([]RawArticle, error)
}

// UpstreamError 上游请求失败、非 2xx 或返回结构不符合预期
type UpstreamError struct {
	Feed string
	Op   string
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %s: %v", e.Feed, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Dispatcher 按 feed.Format 选择具体的 Fetcher
type Dispatcher struct {
	fetchers map[string]Fetcher
}

func NewDispatcher(api, rss Fetcher) *Dispatcher {
	return &Dispatcher{fetchers: map[string]Fetcher{
		config.FormatJSON: api,
		config.FormatRSS:  rss,
	}}
}

func (d *Dispatcher) Fetch(ctx context.Context, feed config.Feed) ([]RawArticle, error) {
	format := feed.Format
	if format == "" {
		format = config.FormatJSON
	}
	f, ok := d.fetchers[format]
	if !ok || f == nil {
		return nil, &UpstreamError{Feed: feed.Name, Op: "dispatch", Err: fmt.Errorf("no fetcher for format %q", format)}
	}
	return f.Fetch(ctx, feed)
}
