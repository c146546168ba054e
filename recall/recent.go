package recall

import (
	"context"
	"time"

	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/pipeline"
)

// Recent 是近期召回源：窗口内上传的视频，按上传时间倒序。
// Recent 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Recent struct {
	Catalog core.Catalog

	// Window 回看窗口，默认 30 天
	Window time.Duration

	// Limit 最多召回数量，默认 50
	Limit int
}

func (r *Recent) Name() string        { return "recall.recent" }
func (r *Recent) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *Recent) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *Recent) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	window := r.Window
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	limit := r.Limit
	if limit <= 0 {
		limit = 50
	}
	videos, err := r.Catalog.QueryVideos(ctx,
		core.VideoFilter{UploadedSince: requestNow(rctx).Add(-window)},
		core.OrderUploadedDesc, 0, limit)
	if err != nil {
		return nil, err
	}
	return videoItems(videos), nil
}
