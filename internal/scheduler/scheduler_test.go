package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LJTian/NewsCache/internal/config"
	"github.com/LJTian/NewsCache/internal/processor"
	"github.com/LJTian/NewsCache/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLoader struct {
	mu    sync.Mutex
	calls map[string]int
	data  map[string][]processor.Article
	fail  map[string]error
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		calls: map[string]int{},
		data:  map[string][]processor.Article{},
		fail:  map[string]error{},
	}
}

func (f *fakeLoader) Load(ctx context.Context, feed config.Feed) ([]processor.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[feed.Name]++
	if err := f.fail[feed.Name]; err != nil {
		return nil, err
	}
	return f.data[feed.Name], nil
}

func (f *fakeLoader) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func testFeeds() []config.Feed {
	return []config.Feed{
		{Name: "news", MaxArticles: 10, Freshness: 30 * time.Minute},
		{Name: "EnNews", MaxArticles: 15, Freshness: 30 * time.Minute},
	}
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("every now and then", testFeeds(), newFakeLoader(), storage.NewMemoryStore(), zap.NewNop())
	assert.Error(t, err)
}

func TestRunOnceReplacesLatest(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Upsert(ctx, "news", "2024-03-04", []processor.Article{{"title": "old"}}, time.Now()))
	require.NoError(t, store.Upsert(ctx, "news", storage.LatestKey, []processor.Article{{"title": "older"}}, time.Now()))

	loader := newFakeLoader()
	loader.data["news"] = []processor.Article{{"title": "n1"}, {"title": "n2"}}
	loader.data["EnNews"] = []processor.Article{{"title": "e1"}}

	s, err := New("@every 30m", testFeeds(), loader, store, zap.NewNop())
	require.NoError(t, err)
	fixed := time.Date(2024, 3, 5, 7, 2, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.RunOnce(ctx)

	for name, want := range loader.data {
		assert.Equal(t, 1, store.Len(name), name)
		snap, found, err := store.Get(ctx, name, storage.LatestKey)
		require.NoError(t, err)
		require.True(t, found, name)
		assert.Equal(t, want, snap.Data)
		assert.True(t, snap.Timestamp.Equal(fixed))
	}
}

func TestRunOnceSwallowsErrors(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	previous := []processor.Article{{"title": "previous"}}
	require.NoError(t, store.ReplaceAll(ctx, "news", previous, time.Now()))

	loader := newFakeLoader()
	loader.fail["news"] = errors.New("upstream down")
	loader.data["EnNews"] = []processor.Article{{"title": "e1"}}

	s, err := New("@every 30m", testFeeds(), loader, store, zap.NewNop())
	require.NoError(t, err)

	s.RunOnce(ctx)
	s.RunOnce(ctx)

	assert.Equal(t, 2, loader.count("news"))
	snap, found, err := store.Get(ctx, "news", storage.LatestKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, previous, snap.Data)

	_, found, _ = store.Get(ctx, "EnNews", storage.LatestKey)
	assert.True(t, found)
}

func TestStartRunsImmediately(t *testing.T) {
	loader := newFakeLoader()
	s, err := New("@every 30m", testFeeds(), loader, storage.NewMemoryStore(), zap.NewNop())
	require.NoError(t, err)

	s.Start()
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return loader.count("news") == 1 && loader.count("EnNews") == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, s.cron.Entries(), 1)
}

type blockingLoader struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingLoader) Load(ctx context.Context, feed config.Feed) ([]processor.Article, error) {
	b.entered <- struct{}{}
	<-b.release
	return []processor.Article{{"title": feed.Name}}, nil
}

func TestStopWaitsForInitialRun(t *testing.T) {
	loader := &blockingLoader{entered: make(chan struct{}, 1), release: make(chan struct{})}
	store := storage.NewMemoryStore()
	s, err := New("@every 30m", testFeeds()[:1], loader, store, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	select {
	case <-loader.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("initial run did not start")
	}

	done := s.Stop()
	select {
	case <-done.Done():
		t.Fatal("stop finished while the initial run was still loading")
	case <-time.After(50 * time.Millisecond):
	}

	close(loader.release)
	select {
	case <-done.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not finish after the initial run")
	}
	assert.Equal(t, 1, store.Len("news"))
}
