package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/LJTian/NewsCache/internal/app"
	"github.com/LJTian/NewsCache/internal/config"
	"github.com/LJTian/NewsCache/internal/logging"
	"github.com/LJTian/NewsCache/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// 一个仅执行一轮后台刷新的命令行入口：适合手动触发或外部 cron 调用
var rootCmd = &cobra.Command{
	Use:   "collect [feed...]",
	Short: "Fetch feeds once and overwrite their latest snapshots",
	Long:  "collect runs a single background refresh for all configured feeds, or only the named ones, then exits.",
	RunE:  runCollect,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	feeds, unknown := app.SelectFeeds(cfg.Feeds, args)
	if len(unknown) > 0 {
		return fmt.Errorf("unknown feeds: %s", strings.Join(unknown, ", "))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := context.Background()
	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init store failed: %w", err)
	}
	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()

	s, err := scheduler.New(cfg.RefreshSpec, feeds, app.NewPipeline(cfg, logger), store, logger)
	if err != nil {
		return err
	}

	// 只执行一轮刷新后退出
	s.RunOnce(ctx)
	return nil
}
