package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppPort string

	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	PostgresDSN   string
	RedisAddr     string
	RedisTTL      time.Duration

	RapidAPIKey     string
	RefreshSpec     string
	UpstreamTimeout time.Duration

	// Location 用于计算缓存日期 key 与展示时间；为空时使用进程本地时区
	Location *time.Location
	LogLevel string

	Feeds []Feed
}

func Load() (*Config, error) {
	cfg := &Config{
		AppPort:       getEnv("APP_PORT", getEnv("PORT", "3000")),
		StoreDriver:   getEnv("STORE_DRIVER", "mongo"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "NewsDB"),
		PostgresDSN:   getEnv("POSTGRES_DSN", "host=localhost user=newscache password=newscache dbname=newscache port=5432 sslmode=disable TimeZone=UTC"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RapidAPIKey:   getEnv("RAPIDAPI_KEY", ""),
		RefreshSpec:   getEnv("REFRESH_SPEC", "@every 30m"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Location:      time.Local,
	}

	var err error
	if cfg.RedisTTL, err = getDuration("REDIS_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = getDuration("UPSTREAM_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}

	if tz := getEnv("LOCAL_TZ", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("config: LOCAL_TZ %q: %w", tz, err)
		}
		cfg.Location = loc
	}

	switch cfg.StoreDriver {
	case "mongo", "postgres", "memory":
	default:
		return nil, fmt.Errorf("config: unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	// 未指定 FEEDS_FILE 时使用内置的两个 feed
	if path := getEnv("FEEDS_FILE", ""); path != "" {
		feeds, err := LoadFeeds(path)
		if err != nil {
			return nil, err
		}
		cfg.Feeds = feeds
	} else {
		cfg.Feeds = DefaultFeeds(cfg.RapidAPIKey)
	}

	for _, f := range cfg.Feeds {
		if err := f.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadFeeds 读取 YAML 格式的 feed 表，header 中的 ${VAR} 会按环境变量展开
func LoadFeeds(path string) ([]Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read feeds file: %w", err)
	}
	var file struct {
		Feeds []Feed `yaml:"feeds"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config: parse feeds file: %w", err)
	}
	if len(file.Feeds) == 0 {
		return nil, fmt.Errorf("config: feeds file %s defines no feeds", path)
	}
	for i := range file.Feeds {
		for k, v := range file.Feeds[i].Headers {
			file.Feeds[i].Headers[k] = os.ExpandEnv(v)
		}
	}
	return file.Feeds, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
