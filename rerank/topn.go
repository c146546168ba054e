package rerank

import (
	"context"

	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，在排序之后截取前 N 个物品。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &rank.SimilarityNode{},   // 打分
//	        &rank.OrderNode{},        // 排序
//	        &rerank.TopNNode{},       // 截取请求的 limit 个
//	    },
//	}
type TopNNode struct {
	// N 要保留的物品数量
	// 如果 N <= 0，使用 rctx.Limit；两者都 <= 0 时不截断
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	limit := n.N
	if limit <= 0 && rctx != nil {
		limit = rctx.Limit
	}
	if limit <= 0 || len(items) <= limit {
		return items, nil
	}
	return items[:limit], nil
}
