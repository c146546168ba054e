package pipeline

import (
	"context"

	"github.com/rushteam/clipfeed/core"
)

// Kind 用于标记 Node 类型，方便观测/编排（例如按阶段打点）。
type Kind string

const (
	KindRecall Kind = "recall" // 召回阶段：生成候选池或兜底采样
	KindFilter Kind = "filter" // 过滤阶段：剔除排除集等不符合约束的候选
	KindRank   Kind = "rank"   // 排序阶段：对候选打分并排序
	KindReRank Kind = "rerank" // 重排阶段：截断到请求数量
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用"输入 items -> 输出 items"的形态，方便 Recall 生成、Filter 截断、Rank 排序等操作。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}

// NodeFunc 把函数包装成 Node，用于测试或一次性的小步骤。
type NodeFunc struct {
	NodeName string
	NodeKind Kind
	Fn       func(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error)
}

func (n NodeFunc) Name() string { return n.NodeName }
func (n NodeFunc) Kind() Kind   { return n.NodeKind }

func (n NodeFunc) Process(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	return n.Fn(ctx, rctx, items)
}
