package rank

import (
	"context"
	"sort"

	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/pipeline"
)

// OrderNode 按 (Score 降序, 播放数降序) 稳定排序。
// 分数相同按播放数决胜；两者都相同时保持候选池的准入顺序，结果可复现。
type OrderNode struct{}

func (n *OrderNode) Name() string        { return "rank.order" }
func (n *OrderNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *OrderNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	SortItems(items)
	return items, nil
}

// SortItems 原地排序，nil 排在最后。
func SortItems(items []*core.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Views() > b.Views()
	})
}
