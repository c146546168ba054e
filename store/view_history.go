package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rushteam/clipfeed/core"
)

// DefaultViewRetention 是观看时间线的保留时长，需大于排除窗口。
const DefaultViewRetention = 7 * 24 * time.Hour

// ViewHistory 实现 core.ViewHistory。
// 每个用户一个有序集合 views:{user}，member 为视频 ID，score 为观看时间（unix 秒）。
// 重复观看只保留最后一次时间；超过保留时长的记录在写入时裁剪。
type ViewHistory struct {
	kv        core.KeyValueStore
	retention time.Duration
}

// ViewHistoryOption 配置 ViewHistory。
type ViewHistoryOption func(*ViewHistory)

// WithRetention 设置保留时长，<= 0 时使用 DefaultViewRetention。
func WithRetention(d time.Duration) ViewHistoryOption {
	return func(h *ViewHistory) {
		if d > 0 {
			h.retention = d
		}
	}
}

func NewViewHistory(kv core.KeyValueStore, opts ...ViewHistoryOption) *ViewHistory {
	h := &ViewHistory{kv: kv, retention: DefaultViewRetention}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ core.ViewHistory = (*ViewHistory)(nil)

// Retention 返回保留时长。
func (h *ViewHistory) Retention() time.Duration { return h.retention }

// GetRecentViews 返回 since 之后（含）看过的视频 ID，按观看时间升序。
func (h *ViewHistory) GetRecentViews(ctx context.Context, userID string, since time.Time) ([]string, error) {
	if userID == "" {
		return nil, nil
	}
	return h.kv.ZRangeByScore(ctx, ViewsKey(userID), float64(since.Unix()), math.Inf(1))
}

// RecordView 记录一次观看，并裁剪 at 之前超过保留时长的记录。
func (h *ViewHistory) RecordView(ctx context.Context, userID, videoID string, at time.Time) error {
	if userID == "" || videoID == "" {
		return core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "store: user id and video id are required")
	}
	key := ViewsKey(userID)
	if err := h.kv.ZAdd(ctx, key, float64(at.Unix()), videoID); err != nil {
		return fmt.Errorf("record view %s/%s: %w", userID, videoID, err)
	}
	cutoff := at.Add(-h.retention).Unix()
	if _, err := h.kv.ZRemRangeByScore(ctx, key, math.Inf(-1), float64(cutoff-1)); err != nil {
		return fmt.Errorf("trim views of %s: %w", userID, err)
	}
	return h.kv.Expire(ctx, key, h.retention)
}
