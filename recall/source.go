package recall

import (
	"context"
	"time"

	"github.com/rushteam/clipfeed/core"
)

// Source 表示一个可复用的召回源（近期/热门/标签/...）。
// 可以把它理解为"可并发 fan-out 的策略单元"。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// requestNow 返回请求参考时间，未设置时取当前时间。
func requestNow(rctx *core.RecommendContext) time.Time {
	if rctx != nil && !rctx.Now.IsZero() {
		return rctx.Now
	}
	return time.Now()
}

// withTimeout 为单次目录调用设置超时；timeout <= 0 时沿用上游 deadline。
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// videoItems 把目录查询结果包装成候选。
func videoItems(videos []*core.Video) []*core.Item {
	out := make([]*core.Item, 0, len(videos))
	for _, v := range videos {
		if v == nil {
			continue
		}
		out = append(out, core.NewVideoItem(v))
	}
	return out
}
