package filter

import (
	"context"
	"time"

	"github.com/rushteam/clipfeed/core"
)

// DefaultExclusionWindow 是排除集的回看窗口：最近 1 小时看过的视频不再推荐。
const DefaultExclusionWindow = time.Hour

// BuildExclusionSet 读取用户在 [now-window, now] 内看过的视频，构建排除集。
//
// 失败时放行（fail-open）：总是返回可用的集合（可能为空），err 只用于观测。
// userID 为空或 history 为 nil 时返回空集合。
func BuildExclusionSet(
	ctx context.Context,
	history core.ViewHistory,
	userID string,
	window time.Duration,
	now time.Time,
) (core.ExclusionSet, error) {
	if history == nil || userID == "" {
		return core.NewExclusionSet(), nil
	}
	if window <= 0 {
		window = DefaultExclusionWindow
	}
	ids, err := history.GetRecentViews(ctx, userID, now.Add(-window))
	if err != nil {
		return core.NewExclusionSet(), err
	}
	return core.NewExclusionSet(ids...), nil
}

// ExclusionFilter 过滤掉请求排除集（rctx.Exclusion）中的视频。
type ExclusionFilter struct{}

func NewExclusionFilter() *ExclusionFilter {
	return &ExclusionFilter{}
}

func (f *ExclusionFilter) Name() string {
	return "filter.exclusion"
}

func (f *ExclusionFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil {
		return false, nil
	}
	return rctx.Exclusion.Has(item.ID), nil
}
