package filter

import (
	"context"

	"github.com/rushteam/clipfeed/core"
)

// BlacklistFilter 是黑名单过滤器，过滤掉运营下架但目录中尚未删除的视频。
type BlacklistFilter struct {
	ids map[string]struct{}
}

// NewBlacklistFilter 创建一个黑名单过滤器。
func NewBlacklistFilter(videoIDs []string) *BlacklistFilter {
	ids := make(map[string]struct{}, len(videoIDs))
	for _, id := range videoIDs {
		if id != "" {
			ids[id] = struct{}{}
		}
	}
	return &BlacklistFilter{ids: ids}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

// Len 返回黑名单大小。
func (f *BlacklistFilter) Len() int { return len(f.ids) }

func (f *BlacklistFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return false, nil
	}
	_, ok := f.ids[item.ID]
	return ok, nil
}
