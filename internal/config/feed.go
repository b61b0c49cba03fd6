package config

import (
	"fmt"
	"net/http"
	"time"
)

const (
	FormatJSON = "json"
	FormatRSS  = "rss"
)

// Feed 描述一个上游新闻源：请求方式、返回结构中的字段名以及缓存策略
type Feed struct {
	Name       string `yaml:"name"`
	Route      string `yaml:"route"`
	Collection string `yaml:"collection"`

	Format   string            `yaml:"format"`
	Method   string            `yaml:"method"`
	Endpoint string            `yaml:"endpoint"`
	Headers  map[string]string `yaml:"headers"`
	Body     map[string]any    `yaml:"body"`

	ListField  string `yaml:"list_field"`
	TitleField string `yaml:"title_field"`
	URLField   string `yaml:"url_field"`
	ImageField string `yaml:"image_field"`
	DateField  string `yaml:"date_field"`

	MaxArticles  int           `yaml:"max_articles"`
	Freshness    time.Duration `yaml:"freshness"`
	FormatDates  bool          `yaml:"format_dates"`
	EnrichImages bool          `yaml:"enrich_images"`
}

// DefaultFeeds 返回内置的两个 feed：阿拉伯语半岛新闻与英文 newsnow
func DefaultFeeds(apiKey string) []Feed {
	return []Feed{
		{
			Name:       "news",
			Route:      "/api/news",
			Collection: "NewsCollection",
			Format:     FormatJSON,
			Method:     http.MethodGet,
			Endpoint:   "https://arabic-news-api.p.rapidapi.com/aljazeera",
			Headers: map[string]string{
				"X-RapidAPI-Key":  apiKey,
				"X-RapidAPI-Host": "arabic-news-api.p.rapidapi.com",
			},
			ListField:   "results",
			TitleField:  "headline",
			URLField:    "url",
			ImageField:  "image",
			DateField:   "date",
			MaxArticles: 10,
			Freshness:   30 * time.Minute,
		},
		{
			Name:       "EnNews",
			Route:      "/api/EnNews",
			Collection: "EnNews",
			Format:     FormatJSON,
			Method:     http.MethodPost,
			Endpoint:   "https://newsnow.p.rapidapi.com/newsv2",
			Headers: map[string]string{
				"X-RapidAPI-Key":  apiKey,
				"X-RapidAPI-Host": "newsnow.p.rapidapi.com",
			},
			Body: map[string]any{
				"query":        "Palestine",
				"page":         1,
				"time_bounded": false,
				"from_date":    "01/02/2023",
				"to_date":      "05/06/2021",
				"location":     "",
				"category":     "",
				"source":       "",
			},
			ListField:   "news",
			TitleField:  "title",
			URLField:    "url",
			ImageField:  "image",
			DateField:   "date",
			MaxArticles: 15,
			Freshness:   30 * time.Minute,
			FormatDates: true,
		},
	}
}

func (f Feed) Validate() error {
	switch {
	case f.Name == "":
		return fmt.Errorf("config: feed without name")
	case f.Route == "":
		return fmt.Errorf("config: feed %s: route is required", f.Name)
	case f.Endpoint == "":
		return fmt.Errorf("config: feed %s: endpoint is required", f.Name)
	case f.TitleField == "":
		return fmt.Errorf("config: feed %s: title_field is required", f.Name)
	case f.MaxArticles <= 0:
		return fmt.Errorf("config: feed %s: max_articles must be positive", f.Name)
	case f.Freshness <= 0:
		return fmt.Errorf("config: feed %s: freshness must be positive", f.Name)
	}

	switch f.Format {
	case FormatJSON:
		if f.ListField == "" {
			return fmt.Errorf("config: feed %s: list_field is required for json feeds", f.Name)
		}
	case FormatRSS:
	default:
		return fmt.Errorf("config: feed %s: unknown format %q", f.Name, f.Format)
	}

	switch f.Method {
	case "", http.MethodGet, http.MethodPost:
	default:
		return fmt.Errorf("config: feed %s: unsupported method %q", f.Name, f.Method)
	}
	return nil
}

// CollectionName 返回 feed 在文档库中的集合名，未配置时退回 feed 名
func (f Feed) CollectionName() string {
	if f.Collection != "" {
		return f.Collection
	}
	return f.Name
}
