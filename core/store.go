package core

import (
	"context"
	"time"
)

// Store 是画像文档所在的 KV 存储。
// 实现：store.MemoryStore（开发/测试）、store.RedisStore（生产）。
type Store interface {
	// Name 返回后端名称，用于日志
	Name() string

	// Get 读取 key，不存在时返回 ErrStoreNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入 key；ttl <= 0 表示不过期
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Delete(ctx context.Context, key string) error

	Close() error
}

// KeyValueStore 在 Store 之上增加有序集合，用于观看时间线。
type KeyValueStore interface {
	Store

	// ZAdd 写入成员；成员已存在时覆盖分数
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRangeByScore 返回分数在 [min, max] 内的成员，按分数升序
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error)

	// ZRemRangeByScore 删除分数在 [min, max] 内的成员，返回删除数量
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error)

	// Expire 设置 key 的过期时间；key 不存在时不做任何事
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// ErrStoreNotFound 表示 key 不存在。
var ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

// IsStoreNotFound 判断是否为存储层的 key 不存在。
func IsStoreNotFound(err error) bool {
	d := GetDomainError(err)
	return d != nil && d.Module == ModuleStore && d.Code == ErrorCodeNotFound
}
