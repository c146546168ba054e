package filter

import (
	"context"

	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/pipeline"
	"github.com/rushteam/clipfeed/pkg/logging"
	"github.com/rushteam/clipfeed/pkg/utils"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该物品就会被过滤掉；保留下来的物品顺序不变。
type FilterNode struct {
	Filters []Filter
}

func (n *FilterNode) Name() string {
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	out := make([]*core.Item, 0, len(items))
	filtered := make(map[string]int, len(n.Filters))

	for _, item := range items {
		if item == nil {
			continue
		}

		reason := ""
		for _, f := range n.Filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				// 过滤器错误时保留该物品，不中断流程
				logging.Ctx(ctx).Debug().Err(err).Str("filter", f.Name()).Str("item", item.ID).Msg("filter error, item kept")
				continue
			}
			if ok {
				reason = f.Name()
				break
			}
		}

		if reason != "" {
			filtered[reason]++
			item.PutLabel("filtered", utils.Label{Value: "true", Source: reason})
			continue
		}
		out = append(out, item)
	}

	if len(filtered) > 0 {
		ev := logging.Ctx(ctx).Debug().Int("in", len(items)).Int("out", len(out))
		for name, c := range filtered {
			ev = ev.Int(name, c)
		}
		ev.Msg("candidates filtered")
	}
	return out, nil
}
