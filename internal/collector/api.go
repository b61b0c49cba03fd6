package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/LJTian/NewsCache/internal/config"
)

const apiMaxResponseBytes = 4 << 20 // 4MB

// APIFetcher 请求返回 JSON 的新闻接口（RapidAPI 一类），文章列表位于 feed.ListField
type APIFetcher struct {
	client *http.Client
}

func NewAPIFetcher(timeout time.Duration) *APIFetcher {
	return &APIFetcher{client: &http.Client{Timeout: timeout}}
}

func (a *APIFetcher) Fetch(ctx context.Context, feed config.Feed) ([]RawArticle, error) {
	method := feed.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if method == http.MethodPost && feed.Body != nil {
		bs, err := json.Marshal(feed.Body)
		if err != nil {
			return nil, &UpstreamError{Feed: feed.Name, Op: "encode body", Err: err}
		}
		body = bytes.NewReader(bs)
	}

	req, err := http.NewRequestWithContext(ctx, method, feed.Endpoint, body)
	if err != nil {
		return nil, &UpstreamError{Feed: feed.Name, Op: "build request", Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range feed.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Feed: feed.Name, Op: "request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Feed: feed.Name, Op: "request", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, apiMaxResponseBytes)).Decode(&payload); err != nil {
		return nil, &UpstreamError{Feed: feed.Name, Op: "decode", Err: err}
	}

	// null 与缺失一样视为结构错误，否则会把空列表当成功写入缓存
	rawList, ok := payload[feed.ListField]
	if !ok || len(rawList) == 0 || string(rawList) == "null" {
		return nil, &UpstreamError{Feed: feed.Name, Op: "decode", Err: fmt.Errorf("missing list field %q", feed.ListField)}
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(rawList, &entries); err != nil {
		return nil, &UpstreamError{Feed: feed.Name, Op: "decode", Err: fmt.Errorf("list field %q: %w", feed.ListField, err)}
	}

	// 非对象的元素直接跳过
	out := make([]RawArticle, 0, len(entries))
	for _, e := range entries {
		var article RawArticle
		if err := json.Unmarshal(e, &article); err != nil || article == nil {
			continue
		}
		out = append(out, article)
	}
	return out, nil
}
