package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/pkg/logging"
)

// Pipeline 把推荐逻辑拆成可组合的 Node 链，按顺序执行。
// Node 返回错误时立即终止；降级（例如某个召回源失败）应由 Node 自身吸收。
type Pipeline struct {
	Nodes []Node

	// Logger 为空时使用全局 logger
	Logger *zerolog.Logger
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	logger := p.logger(ctx)
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("pipeline node %s: %w", node.Name(), err)
		}
		logger.Debug().
			Str("node", node.Name()).
			Str("kind", string(node.Kind())).
			Int("in", len(cur)).
			Int("out", len(next)).
			Dur("elapsed", time.Since(start)).
			Msg("node done")
		cur = next
	}
	return cur, nil
}

func (p *Pipeline) logger(ctx context.Context) zerolog.Logger {
	base := logging.LoggerFromContext(ctx)
	if p.Logger != nil {
		base = *p.Logger
	}
	return logging.CtxWith(ctx, base).Str("component", "pipeline").Logger()
}
