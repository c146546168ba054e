package recall

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/pipeline"
	"github.com/rushteam/clipfeed/pkg/utils"
)

// TagMatch 是标签召回源：取画像权重最高的 TopTags 个标签，
// 每个标签召回 PerTag 个 hashtag 包含该标签的视频。
//
// 各标签并发查询，结果按标签权重顺序拼接；个别标签失败时返回其余标签的结果和错误。
// 画像没有标签偏好时返回空。
type TagMatch struct {
	Catalog core.Catalog

	// TopTags 使用的标签数，默认 5
	TopTags int

	// PerTag 每个标签召回数量，默认 20
	PerTag int
}

func (r *TagMatch) Name() string        { return "recall.tag" }
func (r *TagMatch) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *TagMatch) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *TagMatch) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if rctx == nil || rctx.Profile == nil {
		return nil, nil
	}
	topN := r.TopTags
	if topN <= 0 {
		topN = 5
	}
	perTag := r.PerTag
	if perTag <= 0 {
		perTag = 20
	}
	tags := rctx.Profile.TopTags(topN)
	if len(tags) == 0 {
		return nil, nil
	}

	pages := make([][]*core.Video, len(tags))
	errs := make([]error, len(tags))
	var eg errgroup.Group
	for i, tw := range tags {
		eg.Go(func() error {
			videos, err := r.Catalog.QueryVideos(ctx, core.VideoFilter{Hashtag: tw.Tag}, core.OrderNatural, 0, perTag)
			if err != nil {
				errs[i] = fmt.Errorf("tag %q: %w", tw.Tag, err)
				return nil
			}
			pages[i] = videos
			return nil
		})
	}
	_ = eg.Wait()

	var out []*core.Item
	for i, videos := range pages {
		for _, it := range videoItems(videos) {
			it.PutLabel("recall_tag", utils.Label{Value: tags[i].Tag, Source: "recall"})
			out = append(out, it)
		}
	}
	return out, errors.Join(errs...)
}
