package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Cache    CacheConfig
	Relay    RelayConfig
}

type ServerConfig struct {
	Port        int           `envconfig:"API_PORT" default:"9823"`
	ReadTimeout time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	// WriteTimeout defaults to 0 (disabled): relayed transfers can
	// legitimately outlive any fixed deadline.
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"0"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type UpstreamConfig struct {
	APIBase       string        `envconfig:"BILIBILI_API_BASE" default:"https://api.bilibili.com"`
	ParseBase     string        `envconfig:"BPARSE_API_BASE" default:"https://api.injahow.cn/bparse"`
	ShortLinkBase string        `envconfig:"SHORTLINK_BASE" default:"https://b23.tv"`
	WatchPageBase string        `envconfig:"WATCH_PAGE_BASE" default:"https://www.bilibili.com"`
	ProxyURL      string        `envconfig:"PROXY_URL"`
	UserAgent     string        `envconfig:"UPSTREAM_USER_AGENT" default:"Mozilla/5.0"`
	Timeout       time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"15s"`
	RetryAttempts int           `envconfig:"UPSTREAM_RETRY_ATTEMPTS" default:"3"`
	RetryPause    time.Duration `envconfig:"UPSTREAM_RETRY_PAUSE" default:"500ms"`
}

type CacheConfig struct {
	// Backend selects the response cache store: memory or redis.
	Backend       string        `envconfig:"CACHE_BACKEND" default:"memory"`
	TTL           time.Duration `envconfig:"CACHE_TTL" default:"1h"`
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
}

type RelayConfig struct {
	Enabled   bool `envconfig:"RELAY_ENABLED" default:"true"`
	ChunkSize int  `envconfig:"RELAY_CHUNK_SIZE" default:"1048576"`
}

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

func Load() (*Config, error) {
	// godotenv.Load does not override already-set environment variables,
	// so real env always wins over the .env file.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Cache.Backend != CacheBackendMemory && cfg.Cache.Backend != CacheBackendRedis {
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	return &cfg, nil
}
