package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rushteam/clipfeed/core"
)

// RedisConfig 是 Redis 连接配置。
type RedisConfig struct {
	Addr         string        `koanf:"addr"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db" validate:"gte=0"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// RedisStore 是 Redis 实现的 KeyValueStore，生产环境的画像与观看历史都存放在这里。
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建连接并 Ping 一次，连接失败直接返回错误。
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient 复用已有的客户端。
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Name() string { return "redis" }

// Ping 用于健康检查。
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrStoreNotFound
	}
	return val, err
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return r.client.Del(ctx, key).Err()
	}
	return r.client.Expire(ctx, key, ttl).Err()
}

func (r *RedisStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (r *RedisStore) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error) {
	return r.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: formatScore(min),
		Max: formatScore(max),
	}).Result()
}

func (r *RedisStore) ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error) {
	return r.client.ZRemRangeByScore(ctx, key, formatScore(min), formatScore(max)).Result()
}

func formatScore(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ core.KeyValueStore = (*RedisStore)(nil)
