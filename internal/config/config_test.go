package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvWithDefault(t *testing.T) {
	const key = "TEST_APP_PORT"

	// 环境变量未设置时，应该返回默认值
	_ = os.Unsetenv(key)
	if got := getEnv(key, "9000"); got != "9000" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "9000")
	}

	// 环境变量设置后，应优先返回环境变量
	t.Setenv(key, "8080")
	if got := getEnv(key, "9000"); got != "8080" {
		t.Fatalf("getEnv(%q) = %q, want %q", key, got, "8080")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("PORT", "4000")
	t.Setenv("RAPIDAPI_KEY", "secret")
	t.Setenv("FEEDS_FILE", "")
	t.Setenv("STORE_DRIVER", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.AppPort != "4000" {
		t.Fatalf("AppPort = %q, want %q", cfg.AppPort, "4000")
	}
	if cfg.StoreDriver != "mongo" {
		t.Fatalf("StoreDriver = %q, want mongo", cfg.StoreDriver)
	}
	if cfg.RefreshSpec != "@every 30m" {
		t.Fatalf("RefreshSpec = %q", cfg.RefreshSpec)
	}
	if len(cfg.Feeds) != 2 {
		t.Fatalf("expected 2 default feeds, got %d", len(cfg.Feeds))
	}
	news, en := cfg.Feeds[0], cfg.Feeds[1]
	if news.MaxArticles != 10 || news.Method != "GET" || news.TitleField != "headline" {
		t.Fatalf("unexpected primary feed: %+v", news)
	}
	if en.MaxArticles != 15 || en.Method != "POST" || en.ListField != "news" || !en.FormatDates {
		t.Fatalf("unexpected secondary feed: %+v", en)
	}
	if news.Headers["X-RapidAPI-Key"] != "secret" {
		t.Fatalf("api key not propagated to headers: %v", news.Headers)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cassandra")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("UPSTREAM_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for bad UPSTREAM_TIMEOUT")
	}
}

func TestLoadFeedsFile(t *testing.T) {
	const doc = `
feeds:
  - name: tech
    route: /api/tech
    format: rss
    endpoint: https://example.com/rss
    title_field: title
    url_field: url
    max_articles: 5
    freshness: 24h
    headers:
      Authorization: "Bearer ${TEST_FEED_TOKEN}"
`
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write feeds file: %v", err)
	}
	t.Setenv("TEST_FEED_TOKEN", "abc")
	t.Setenv("FEEDS_FILE", path)
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("UPSTREAM_TIMEOUT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(cfg.Feeds) != 1 {
		t.Fatalf("expected 1 feed, got %d", len(cfg.Feeds))
	}
	f := cfg.Feeds[0]
	if f.Freshness != 24*time.Hour {
		t.Fatalf("Freshness = %v, want 24h", f.Freshness)
	}
	if f.Headers["Authorization"] != "Bearer abc" {
		t.Fatalf("header not expanded: %q", f.Headers["Authorization"])
	}
	if f.CollectionName() != "tech" {
		t.Fatalf("CollectionName = %q, want tech", f.CollectionName())
	}
}

func TestFeedValidate(t *testing.T) {
	base := DefaultFeeds("")[0]

	cases := []struct {
		name   string
		mutate func(*Feed)
	}{
		{"no name", func(f *Feed) { f.Name = "" }},
		{"no route", func(f *Feed) { f.Route = "" }},
		{"zero max", func(f *Feed) { f.MaxArticles = 0 }},
		{"zero freshness", func(f *Feed) { f.Freshness = 0 }},
		{"bad format", func(f *Feed) { f.Format = "xml" }},
		{"json without list", func(f *Feed) { f.ListField = "" }},
		{"bad method", func(f *Feed) { f.Method = "DELETE" }},
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("default feed should be valid: %v", err)
	}
	for _, c := range cases {
		f := base
		c.mutate(&f)
		if err := f.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", c.name)
		}
	}
}
