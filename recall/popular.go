package recall

import (
	"context"

	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/pipeline"
)

// Popular 是热门召回源：全目录按播放数倒序。
// Popular 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Popular struct {
	Catalog core.Catalog

	// Limit 最多召回数量，默认 50
	Limit int
}

func (r *Popular) Name() string        { return "recall.popular" }
func (r *Popular) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *Popular) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *Popular) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	limit := r.Limit
	if limit <= 0 {
		limit = 50
	}
	videos, err := r.Catalog.QueryVideos(ctx, core.VideoFilter{}, core.OrderViewsDesc, 0, limit)
	if err != nil {
		return nil, err
	}
	return videoItems(videos), nil
}
