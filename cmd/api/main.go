package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LJTian/NewsCache/internal/api"
	"github.com/LJTian/NewsCache/internal/app"
	"github.com/LJTian/NewsCache/internal/config"
	"github.com/LJTian/NewsCache/internal/logging"
	"github.com/LJTian/NewsCache/internal/refresh"
	"github.com/LJTian/NewsCache/internal/scheduler"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 必须先连上存储再监听端口，连接失败直接退出
	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init store failed", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}

	pipeline := app.NewPipeline(cfg, logger)

	s, err := scheduler.New(cfg.RefreshSpec, cfg.Feeds, pipeline, store, logger)
	if err != nil {
		logger.Fatal("init scheduler failed", zap.String("spec", cfg.RefreshSpec), zap.Error(err))
	}
	s.Start()

	policy := refresh.NewPolicy(store, pipeline, logger, refresh.WithLocation(cfg.Location))

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           api.NewServer(policy, cfg.Feeds, logger).NewEngine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting api server", zap.String("addr", srv.Addr), zap.Int("feeds", len(cfg.Feeds)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server exit", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	select {
	case <-s.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("background refresh still running at shutdown")
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Warn("close store", zap.Error(err))
	}
}
