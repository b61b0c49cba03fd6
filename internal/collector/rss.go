package collector

import (
	"context"
	"net/http"
	"time"

	"github.com/LJTian/NewsCache/internal/config"
	"github.com/mmcdole/gofeed"
)

// RSSFetcher 解析 RSS / Atom 源，并按 feed 的字段名映射成 RawArticle，
// 使后续清洗流程与 JSON 接口一致
type RSSFetcher struct {
	parser *gofeed.Parser
}

func NewRSSFetcher(timeout time.Duration) *RSSFetcher {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: timeout}
	p.UserAgent = "NewsCacheBot/1.0"
	return &RSSFetcher{parser: p}
}

func (r *RSSFetcher) Fetch(ctx context.Context, feed config.Feed) ([]RawArticle, error) {
	parsed, err := r.parser.ParseURLWithContext(feed.Endpoint, ctx)
	if err != nil {
		return nil, &UpstreamError{Feed: feed.Name, Op: "parse feed", Err: err}
	}

	out := make([]RawArticle, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		a := RawArticle{feed.TitleField: item.Title}
		if feed.URLField != "" && item.Link != "" {
			a[feed.URLField] = item.Link
		}
		if feed.ImageField != "" && item.Image != nil && item.Image.URL != "" {
			a[feed.ImageField] = item.Image.URL
		}
		if feed.DateField != "" {
			if item.Published != "" {
				a[feed.DateField] = item.Published
			} else if item.Updated != "" {
				a[feed.DateField] = item.Updated
			}
		}
		out = append(out, a)
	}
	return out, nil
}
