package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/LJTian/NewsCache/internal/config"
	"github.com/LJTian/NewsCache/internal/processor"
	"github.com/LJTian/NewsCache/internal/storage"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Loader 抓取并清洗一个 feed
type Loader interface {
	Load(ctx context.Context, feed config.Feed) ([]processor.Article, error)
}

// Scheduler 与请求无关的后台刷新：固定间隔对所有 feed 回源，并用 ReplaceAll 覆盖 latest 记录
type Scheduler struct {
	cron   *cron.Cron
	feeds  []config.Feed
	loader Loader
	store  storage.SnapshotStore
	logger *zap.Logger
	now    func() time.Time

	// 每个 feed 单次刷新的超时
	tickTimeout time.Duration

	mu      sync.Mutex
	started bool
	// 启动时立即执行的那一轮不经过 cron，单独跟踪
	initial sync.WaitGroup
}

func New(spec string, feeds []config.Feed, loader Loader, store storage.SnapshotStore, logger *zap.Logger) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:        c,
		feeds:       feeds,
		loader:      loader,
		store:       store,
		logger:      logger,
		now:         time.Now,
		tickTimeout: 2 * time.Minute,
	}

	_, err := c.AddFunc(spec, func() { s.RunOnce(context.Background()) })
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Start 启动定时任务，并立即在后台执行一轮
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.RunOnce(context.Background())
	}()
}

// Stop 停止调度，返回的 context 在正在执行的任务（包括启动时的首轮）结束后 Done
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	s.started = false
	cronDone := s.cron.Stop()
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronDone.Done()
		s.initial.Wait()
		cancel()
	}()
	return ctx
}

// RunOnce 对所有 feed 执行一轮刷新，错误只记录不返回
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.logger.Info("start background refresh", zap.Int("feeds", len(s.feeds)))

	var wg sync.WaitGroup
	for _, f := range s.feeds {
		feed := f
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.refresh(ctx, feed)
		}()
	}

	wg.Wait()
	s.logger.Info("background refresh done")
}

func (s *Scheduler) refresh(ctx context.Context, feed config.Feed) {
	ctx, cancel := context.WithTimeout(ctx, s.tickTimeout)
	defer cancel()

	log := s.logger.With(zap.String("feed", feed.Name))
	data, err := s.loader.Load(ctx, feed)
	if err != nil {
		log.Error("background fetch failed", zap.Error(err))
		return
	}
	if err := s.store.ReplaceAll(ctx, feed.Name, data, s.now()); err != nil {
		log.Error("background store failed", zap.Error(err))
		return
	}
	log.Info("latest snapshot stored", zap.Int("articles", len(data)))
}
