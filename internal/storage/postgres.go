package storage

import (
	"context"
	"errors"
	"time"

	"github.com/LJTian/NewsCache/internal/processor"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var _ SnapshotStore = (*PostgresStore)(nil)

// SnapshotRow 所有 feed 共用一张表，主键为 (feed, cache_key)
type SnapshotRow struct {
	Feed      string                                 `gorm:"primaryKey;size:64"`
	CacheKey  string                                 `gorm:"primaryKey;size:32"`
	Data      datatypes.JSONSlice[processor.Article] `gorm:"type:jsonb"`
	Timestamp time.Time                              `gorm:"index"`
}

func (SnapshotRow) TableName() string {
	return "snapshots"
}

type PostgresStore struct {
	DB *gorm.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&SnapshotRow{}); err != nil {
		return nil, err
	}

	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) Get(ctx context.Context, feed, key string) (Snapshot, bool, error) {
	var row SnapshotRow
	// 未命中是常态，不需要打印 record not found
	silent := s.DB.Session(&gorm.Session{Logger: s.DB.Logger.LogMode(logger.Silent)})
	err := silent.WithContext(ctx).Where("feed = ? AND cache_key = ?", feed, key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, &StoreError{Op: "get", Feed: feed, Err: err}
	}
	return row.toSnapshot(), true, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, feed, key string, data []processor.Article, ts time.Time) error {
	row := newSnapshotRow(feed, key, data, ts)
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "feed"}, {Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "timestamp"}),
	}).Create(&row).Error
	if err != nil {
		return &StoreError{Op: "upsert", Feed: feed, Err: err}
	}
	return nil
}

func (s *PostgresStore) ReplaceAll(ctx context.Context, feed string, data []processor.Article, ts time.Time) error {
	db := s.DB.WithContext(ctx)
	if err := db.Where("feed = ?", feed).Delete(&SnapshotRow{}).Error; err != nil {
		return &StoreError{Op: "delete", Feed: feed, Err: err}
	}
	row := newSnapshotRow(feed, LatestKey, data, ts)
	if err := db.Create(&row).Error; err != nil {
		return &StoreError{Op: "insert", Feed: feed, Err: err}
	}
	return nil
}

func (s *PostgresStore) Close(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newSnapshotRow(feed, key string, data []processor.Article, ts time.Time) SnapshotRow {
	if data == nil {
		data = []processor.Article{}
	}
	return SnapshotRow{
		Feed:      feed,
		CacheKey:  key,
		Data:      datatypes.NewJSONSlice(data),
		Timestamp: ts,
	}
}

func (r SnapshotRow) toSnapshot() Snapshot {
	return Snapshot{
		Feed:      r.Feed,
		CacheKey:  r.CacheKey,
		Data:      []processor.Article(r.Data),
		Timestamp: r.Timestamp,
	}
}
