package storage

import (
	"context"
	"errors"
	"time"

	"github.com/LJTian/NewsCache/internal/processor"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var _ SnapshotStore = (*MongoStore)(nil)

// snapshotDoc 集合中的文档结构：{cacheKey, data, timestamp}
type snapshotDoc struct {
	CacheKey  string              `bson:"cacheKey"`
	Data      []processor.Article `bson:"data"`
	Timestamp time.Time           `bson:"timestamp"`
}

// MongoStore 每个 feed 一个集合，整个进程共用一个 client
type MongoStore struct {
	client      *mongo.Client
	db          *mongo.Database
	collections map[string]string
}

func NewMongoStore(ctx context.Context, uri, database string, collections map[string]string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// 上游对象里的嵌套文档解码为 map，保证再序列化成 JSON 时结构不变
	opts := options.Client().ApplyURI(uri).SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &MongoStore{
		client:      client,
		db:          client.Database(database),
		collections: collections,
	}, nil
}

func (m *MongoStore) collection(feed string) *mongo.Collection {
	name := feed
	if c, ok := m.collections[feed]; ok && c != "" {
		name = c
	}
	return m.db.Collection(name)
}

func (m *MongoStore) Get(ctx context.Context, feed, key string) (Snapshot, bool, error) {
	var doc snapshotDoc
	err := m.collection(feed).FindOne(ctx, keyFilter(key)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, &StoreError{Op: "get", Feed: feed, Err: err}
	}
	return doc.toSnapshot(feed), true, nil
}

func (m *MongoStore) Upsert(ctx context.Context, feed, key string, data []processor.Article, ts time.Time) error {
	doc := newSnapshotDoc(key, data, ts)
	update := bson.M{"$set": bson.M{"data": doc.Data, "timestamp": doc.Timestamp}}
	_, err := m.collection(feed).UpdateOne(ctx, keyFilter(key), update, options.Update().SetUpsert(true))
	if err != nil {
		return &StoreError{Op: "upsert", Feed: feed, Err: err}
	}
	return nil
}

func (m *MongoStore) ReplaceAll(ctx context.Context, feed string, data []processor.Article, ts time.Time) error {
	coll := m.collection(feed)
	if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
		return &StoreError{Op: "delete", Feed: feed, Err: err}
	}
	if _, err := coll.InsertOne(ctx, newSnapshotDoc(LatestKey, data, ts)); err != nil {
		return &StoreError{Op: "insert", Feed: feed, Err: err}
	}
	return nil
}

func (m *MongoStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func keyFilter(key string) bson.M {
	return bson.M{"cacheKey": key}
}

func newSnapshotDoc(key string, data []processor.Article, ts time.Time) snapshotDoc {
	if data == nil {
		data = []processor.Article{}
	}
	// BSON 只保存到毫秒
	return snapshotDoc{CacheKey: key, Data: data, Timestamp: ts.Truncate(time.Millisecond)}
}

func (d snapshotDoc) toSnapshot(feed string) Snapshot {
	return Snapshot{Feed: feed, CacheKey: d.CacheKey, Data: d.Data, Timestamp: d.Timestamp}
}
