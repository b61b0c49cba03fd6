package processor

import (
	"maps"
	"strings"
	"time"

	"github.com/LJTian/NewsCache/internal/collector"
	"github.com/LJTian/NewsCache/internal/config"
	"github.com/araddon/dateparse"
)

// DisplayDateLayout DD-MM-YYYY HH:MM
const DisplayDateLayout = "02-01-2006 15:04"

// DisplayDateField 格式化后的展示时间写入的字段
const DisplayDateField = "displayDate"

// Article 是写入存储层与返回给前端的单条新闻：保留上游对象的全部字段，
// 只改写链接并按需追加 displayDate
type Article map[string]any

// String 按字段名取字符串值，缺失或类型不符时返回空串
func (a Article) String(field string) string {
	if field == "" {
		return ""
	}
	s, _ := a[field].(string)
	return s
}

func (a Article) rewrite(field string) {
	if u := a.String(field); u != "" {
		a[field] = RewriteURL(u)
	}
}

// SimpleProcessor 过滤空标题、截断条数、改写链接并格式化日期
type SimpleProcessor struct {
	loc *time.Location
}

// NewSimpleProcessor loc 为展示时间使用的时区，nil 时使用本地时区
func NewSimpleProcessor(loc *time.Location) *SimpleProcessor {
	if loc == nil {
		loc = time.Local
	}
	return &SimpleProcessor{loc: loc}
}

// Process 保持上游顺序，不做重排
func (p *SimpleProcessor) Process(items []collector.RawArticle, feed config.Feed) []Article {
	limit := feed.MaxArticles
	if limit < 0 {
		limit = 0
	}
	out := make([]Article, 0, min(len(items), limit))

	for _, it := range items {
		if len(out) >= limit {
			break
		}
		title := strings.TrimSpace(it.String(feed.TitleField))
		if title == "" {
			continue
		}

		a := Article(maps.Clone(it))
		a.rewrite(feed.URLField)
		if feed.ImageField != feed.URLField {
			a.rewrite(feed.ImageField)
		}
		if date := a.String(feed.DateField); feed.FormatDates && date != "" {
			if d, ok := p.formatDisplayDate(date); ok {
				a[DisplayDateField] = d
			}
		}
		out = append(out, a)
	}
	return out
}

// RewriteURL 在第一个 ".com" 后插入一个点（没有 .com 时处理第一个 ".net"），
// 只改写一处，用于阻止下游聊天工具自动展开链接预览
func RewriteURL(u string) string {
	if strings.Contains(u, ".com") {
		return strings.Replace(u, ".com", ".com.", 1)
	}
	if strings.Contains(u, ".net") {
		return strings.Replace(u, ".net", ".net.", 1)
	}
	return u
}

func (p *SimpleProcessor) formatDisplayDate(s string) (string, bool) {
	t, err := dateparse.ParseIn(strings.TrimSpace(s), p.loc)
	if err != nil {
		return "", false
	}
	return t.In(p.loc).Format(DisplayDateLayout), true
}
