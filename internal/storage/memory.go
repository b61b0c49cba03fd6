package storage

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/LJTian/NewsCache/internal/processor"
)

var _ SnapshotStore = (*MemoryStore)(nil)

// MemoryStore 进程内存储，用于本地开发与测试
type MemoryStore struct {
	mu    sync.RWMutex
	feeds map[string]map[string]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{feeds: make(map[string]map[string]Snapshot)}
}

func (m *MemoryStore) Get(ctx context.Context, feed, key string) (Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.feeds[feed][key]
	if !ok {
		return Snapshot{}, false, nil
	}
	return cloneSnapshot(s), true, nil
}

func (m *MemoryStore) Upsert(ctx context.Context, feed, key string, data []processor.Article, ts time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.feeds[feed] == nil {
		m.feeds[feed] = make(map[string]Snapshot)
	}
	m.feeds[feed][key] = cloneSnapshot(Snapshot{Feed: feed, CacheKey: key, Data: data, Timestamp: ts})
	return nil
}

func (m *MemoryStore) ReplaceAll(ctx context.Context, feed string, data []processor.Article, ts time.Time) error {
	m.mu.Lock()
	delete(m.feeds, feed)
	m.mu.Unlock()

	return m.Upsert(ctx, feed, LatestKey, data, ts)
}

// Len 返回某个 feed 当前的记录数
func (m *MemoryStore) Len(feed string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.feeds[feed])
}

func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}

func cloneSnapshot(s Snapshot) Snapshot {
	if s.Data != nil {
		data := make([]processor.Article, len(s.Data))
		for i, a := range s.Data {
			data[i] = maps.Clone(a)
		}
		s.Data = data
	}
	return s
}
