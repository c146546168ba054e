package core

import (
	"context"
	"time"
)

// ProfileStore 是画像存储的领域接口。
// 画像不存在时返回 NOT_FOUND 错误（例如 ErrStoreNotFound），由上层视为"无信号"。
type ProfileStore interface {
	GetProfile(ctx context.Context, kind SourceKind, sourceID string) (*Profile, error)
}

// ViewHistory 是观看历史的领域接口，只用于构建排除集。
type ViewHistory interface {
	// GetRecentViews 返回用户在 since 之后看过的视频 ID
	GetRecentViews(ctx context.Context, userID string, since time.Time) ([]string, error)
}
