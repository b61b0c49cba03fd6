package collector

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/LJTian/NewsCache/internal/config"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

const enrichConcurrency = 4

// ImageEnricher 为缺少配图的文章抓取原文页面的 og:image
type ImageEnricher struct {
	timeout time.Duration
	logger  *zap.Logger
}

func NewImageEnricher(timeout time.Duration, logger *zap.Logger) *ImageEnricher {
	return &ImageEnricher{timeout: timeout, logger: logger}
}

// Enrich 原地补全 image 字段。只处理清洗后会被保留的前 MaxArticles 条（标题非空），
// 抓取失败时保持原样
func (e *ImageEnricher) Enrich(ctx context.Context, feed config.Feed, articles []RawArticle) []RawArticle {
	if !feed.EnrichImages || feed.URLField == "" || feed.ImageField == "" {
		return articles
	}

	var (
		wg   sync.WaitGroup
		sem  = make(chan struct{}, enrichConcurrency)
		kept int
	)
	for _, a := range articles {
		if kept >= feed.MaxArticles || ctx.Err() != nil {
			break
		}
		if strings.TrimSpace(a.String(feed.TitleField)) == "" {
			continue
		}
		kept++

		link := a.String(feed.URLField)
		if link == "" || a.String(feed.ImageField) != "" {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(a RawArticle, link string) {
			defer wg.Done()
			defer func() { <-sem }()

			img, err := e.ogImage(link)
			if err != nil {
				e.logger.Debug("enrich image failed", zap.String("feed", feed.Name), zap.String("url", link), zap.Error(err))
				return
			}
			if img != "" {
				a[feed.ImageField] = img
			}
		}(a, link)
	}
	wg.Wait()
	return articles
}

func (e *ImageEnricher) ogImage(link string) (string, error) {
	c := colly.NewCollector(colly.UserAgent("NewsCacheBot/1.0"))
	c.SetRequestTimeout(e.timeout)

	var og, twitter string
	c.OnHTML(`meta[property="og:image"]`, func(h *colly.HTMLElement) {
		if og == "" {
			og = strings.TrimSpace(h.Attr("content"))
		}
	})
	c.OnHTML(`meta[name="twitter:image"]`, func(h *colly.HTMLElement) {
		if twitter == "" {
			twitter = strings.TrimSpace(h.Attr("content"))
		}
	})

	if err := c.Visit(link); err != nil {
		return "", err
	}
	if og != "" {
		return og, nil
	}
	return twitter, nil
}
