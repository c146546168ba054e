package recall

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/pipeline"
	"github.com/rushteam/clipfeed/pkg/logging"
	"github.com/rushteam/clipfeed/pkg/utils"
)

// 合并策略
const (
	MergePriority = "priority" // 按 Sources 顺序去重，先准入者优先（默认）
	MergeUnion    = "union"    // 不去重，保留所有来源
)

// Fanout 是一个 Recall Node：并发执行多个召回源，并按优先级合并结果。
//
//   - 各召回源并发读取，每个召回源有独立超时
//   - 某个召回源失败只让它贡献 0 个候选，不影响其他召回源，也不让请求失败
//   - 合并在全部读取完成之后进行：Sources 顺序即优先级，组内保持召回源返回的顺序，
//     因此输出顺序确定，与 goroutine 完成先后无关
type Fanout struct {
	Sources       []Source
	Dedup         bool
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	MergeStrategy string        // priority / union

	// OnSourceError 召回源失败时回调（可选），用于打点
	OnSourceError func(source string, err error)
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

type sourceResult struct {
	items   []*core.Item
	err     error
	elapsed time.Duration
}

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	results := make([]sourceResult, len(n.Sources))
	var eg errgroup.Group
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		eg.Go(func() error {
			recallCtx, cancel := withTimeout(ctx, n.Timeout)
			defer cancel()

			start := time.Now()
			items, err := src.Recall(recallCtx, rctx)
			// 每个 goroutine 只写自己的槽位，无需加锁
			results[i] = sourceResult{items: items, err: err, elapsed: time.Since(start)}
			return nil
		})
	}
	_ = eg.Wait()

	return n.merge(ctx, rctx, results), nil
}

func (n *Fanout) merge(ctx context.Context, rctx *core.RecommendContext, results []sourceResult) []*core.Item {
	logger := logging.Ctx(ctx)
	var trace *core.Trace
	if rctx != nil {
		trace = rctx.Trace
	}
	dedup := n.Dedup && n.MergeStrategy != MergeUnion

	total := 0
	for _, r := range results {
		total += len(r.items)
	}
	seen := make(map[string]*core.Item, total)
	out := make([]*core.Item, 0, total)

	for i, r := range results {
		name := n.Sources[i].Name()
		st := core.SubsetTrace{Source: name, Fetched: len(r.items)}
		if r.err != nil {
			// 部分结果（例如标签召回中个别标签失败）仍然准入
			st.Err = r.err.Error()
			logger.Warn().Err(r.err).Str("source", name).Dur("elapsed", r.elapsed).Msg("recall source failed")
			if n.OnSourceError != nil {
				n.OnSourceError(name, r.err)
			}
		}

		for _, it := range r.items {
			if it == nil {
				continue
			}
			it.PutLabel("recall_source", utils.Label{Value: name, Source: "recall"})
			it.PutLabel("recall_priority", utils.Label{Value: strconv.Itoa(i), Source: "recall"})

			if dedup {
				if old, ok := seen[it.ID]; ok {
					// 已被更高优先级的召回源准入，只合并解释信息
					old.PutLabel("recall_source", utils.Label{Value: name, Source: "recall"})
					continue
				}
				seen[it.ID] = it
			}
			out = append(out, it)
			st.Admitted++
		}
		trace.AddSubset(st)
	}
	return out
}
