// Package config 加载服务配置，按优先级从低到高分三层：
//
//  1. 结构体默认值（Default）
//  2. YAML 配置文件（可选）
//  3. CLIPFEED_ 前缀的环境变量，嵌套层级用双下划线分隔
//
// 例如 CLIPFEED_RECOMMEND__EXCLUSION_WINDOW=24h 覆盖 recommend.exclusion_window，
// CLIPFEED_REDIS__ADDR=localhost:6379 覆盖 redis.addr。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/clipfeed/catalog"
	"github.com/rushteam/clipfeed/pkg/logging"
	"github.com/rushteam/clipfeed/pkg/validation"
	"github.com/rushteam/clipfeed/recommend"
	"github.com/rushteam/clipfeed/store"
)

const (
	// EnvPrefix 是环境变量前缀
	EnvPrefix = "CLIPFEED_"

	// PathEnvVar 指定配置文件路径
	PathEnvVar = "CLIPFEED_CONFIG"
)

// DefaultPaths 是未指定路径时依次查找的配置文件。
var DefaultPaths = []string{
	"clipfeed.yaml",
	"clipfeed.yml",
	"/etc/clipfeed/config.yaml",
}

// 目录后端
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// 画像后端
const (
	ProfilesKV    = "kv"
	ProfilesFeast = "feast"
)

// Config 是服务的完整配置。
type Config struct {
	Server    ServerConfig      `koanf:"server"`
	Log       logging.Config    `koanf:"log"`
	Redis     store.RedisConfig `koanf:"redis"`
	Catalog   CatalogConfig     `koanf:"catalog"`
	Profiles  ProfilesConfig    `koanf:"profiles"`
	History   HistoryConfig     `koanf:"history"`
	Recommend recommend.Config  `koanf:"recommend"`
}

// ServerConfig 是 HTTP 服务配置。
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`

	// RequestTimeout 单次推荐请求的总预算
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gte=0"`

	// DefaultLimit 请求未带 limit 时使用
	DefaultLimit int `koanf:"default_limit" validate:"gt=0,ltefield=MaxLimit"`

	// MaxLimit 单次请求 limit 的上限，超出时按上限处理
	MaxLimit int `koanf:"max_limit" validate:"gt=0"`
}

// CatalogConfig 选择目录后端。
type CatalogConfig struct {
	// Driver: memory / sqlite / postgres
	Driver string `koanf:"driver" validate:"oneof=memory sqlite postgres"`

	// SQLitePath 仅 sqlite 使用
	SQLitePath string `koanf:"sqlite_path" validate:"required_if=Driver sqlite"`

	Postgres catalog.DatabaseConfig `koanf:"postgres"`
	Breaker  catalog.BreakerConfig  `koanf:"breaker"`

	// AutoMigrate 启动时建表（sqlite / postgres）
	AutoMigrate bool `koanf:"auto_migrate"`

	// Fixtures 启动时写入的 YAML 数据，开发环境使用
	Fixtures string `koanf:"fixtures"`
}

// ProfilesConfig 选择画像后端。观看历史始终在 KV 中。
type ProfilesConfig struct {
	// Driver: kv（与观看历史共用 Redis / 内存）或 feast
	Driver string            `koanf:"driver" validate:"oneof=kv feast"`
	Feast  store.FeastConfig `koanf:"feast"`
}

// HistoryConfig 是观看历史配置。
type HistoryConfig struct {
	// Retention 观看记录保留时长，应不小于 recommend.exclusion_window
	Retention time.Duration `koanf:"retention" validate:"gte=0"`
}

// Default 返回默认配置：内存目录、内存 KV，监听 :8080。
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 20 * time.Second,
			RequestTimeout:  5 * time.Second,
			DefaultLimit:    10,
			MaxLimit:        100,
		},
		Log: logging.Config{
			Level:     "info",
			Format:    "json",
			Timestamp: true,
		},
		Redis: store.RedisConfig{
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		Catalog: CatalogConfig{
			Driver:      DriverMemory,
			SQLitePath:  "clipfeed.db",
			AutoMigrate: true,
			Postgres: catalog.DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "clipfeed",
				DBName:   "clipfeed",
				SSLMode:  "disable",
				LogLevel: "warn",
			},
			Breaker: catalog.DefaultBreakerConfig(),
		},
		Profiles: ProfilesConfig{
			Driver: ProfilesKV,
			Feast:  store.DefaultFeastConfig(),
		},
		History: HistoryConfig{
			Retention: store.DefaultViewRetention,
		},
		Recommend: recommend.DefaultConfig(),
	}
}

// sliceKeys 是环境变量中以逗号分隔的列表字段。
var sliceKeys = []string{
	"recommend.blocked_video_ids",
}

// Load 加载配置。path 为空时依次查找 CLIPFEED_CONFIG 与 DefaultPaths，都不存在则只用默认值与环境变量。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = findFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := splitSlices(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKey 把 CLIPFEED_RECOMMEND__TOP_TAGS 转成 recommend.top_tags。
// CLIPFEED_CONFIG 不是配置项，返回空字符串跳过。
func envKey(key string) string {
	if key == PathEnvVar {
		return ""
	}
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

func splitSlices(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		s, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(key, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return nil
}
