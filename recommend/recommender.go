// Package recommend 编排一次推荐请求：
//
//	校验请求 → 解析画像 + 构建排除集（并发，均可降级）
//	  → 无信号：兜底随机采样
//	  → 有信号：召回候选池 → 过滤 → 相似度打分 → 排序 → 截断
//
// 只有请求校验失败会返回错误，其他失败都降级为"尽力而为"的结果。
package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/filter"
	"github.com/rushteam/clipfeed/pipeline"
	"github.com/rushteam/clipfeed/pkg/logging"
	"github.com/rushteam/clipfeed/pkg/validation"
	"github.com/rushteam/clipfeed/rank"
	"github.com/rushteam/clipfeed/recall"
	"github.com/rushteam/clipfeed/rerank"
)

// Recommender 是推荐核心。构建后只读，可被多个请求并发使用。
type Recommender struct {
	catalog  core.Catalog
	profiles *ProfileResolver
	history  core.ViewHistory

	cfg    Config
	rand   recall.Rand
	logger zerolog.Logger
	now    func() time.Time

	fallback *recall.FallbackSampler
	signal   *pipeline.Pipeline
}

// Option 配置 Recommender。
type Option func(*Recommender)

// WithConfig 替换策略参数，零值字段使用默认值。
func WithConfig(cfg Config) Option {
	return func(r *Recommender) { r.cfg = cfg }
}

// WithRand 指定兜底采样的随机源，测试中传入固定种子。
func WithRand(rnd recall.Rand) Option {
	return func(r *Recommender) { r.rand = rnd }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Recommender) { r.logger = logger }
}

// WithClock 指定参考时间来源。
func WithClock(now func() time.Time) Option {
	return func(r *Recommender) { r.now = now }
}

// New 创建 Recommender。profiles 和 history 可以为 nil，分别视为"没有画像"和"没有观看记录"。
// 配置非法或候选过滤表达式编译失败时返回错误。
func New(catalog core.Catalog, profiles core.ProfileStore, history core.ViewHistory, opts ...Option) (*Recommender, error) {
	if catalog == nil {
		return nil, fmt.Errorf("recommend: catalog is required")
	}
	r := &Recommender{
		catalog:  catalog,
		profiles: &ProfileResolver{Store: profiles},
		history:  history,
		cfg:      DefaultConfig(),
		rand:     recall.DefaultRand,
		logger:   logging.WithComponent("recommend"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := validation.Struct(&r.cfg); err != nil {
		return nil, fmt.Errorf("recommend config: %w", err)
	}
	r.cfg = r.cfg.withDefaults()

	filters := []filter.Filter{filter.NewExclusionFilter()}
	if len(r.cfg.BlockedVideoIDs) > 0 {
		filters = append(filters, filter.NewBlacklistFilter(r.cfg.BlockedVideoIDs))
	}
	if r.cfg.CandidateFilter != "" {
		ef, err := filter.NewExprFilter(r.cfg.CandidateFilter)
		if err != nil {
			return nil, fmt.Errorf("recommend candidate_filter: %w", err)
		}
		filters = append(filters, ef)
	}

	r.fallback = &recall.FallbackSampler{
		Catalog: catalog,
		Windows: r.cfg.FallbackWindows,
		Rand:    r.rand,
		Timeout: r.cfg.QueryTimeout,
	}
	r.signal = &pipeline.Pipeline{
		Logger: &r.logger,
		Nodes: []pipeline.Node{
			&recall.Fanout{
				Sources: []recall.Source{
					&recall.Recent{Catalog: catalog, Window: r.cfg.RecentWindow, Limit: r.cfg.RecentLimit},
					&recall.Popular{Catalog: catalog, Limit: r.cfg.PopularLimit},
					&recall.TagMatch{Catalog: catalog, TopTags: r.cfg.TopTags, PerTag: r.cfg.PerTagLimit},
				},
				Dedup:         true,
				Timeout:       r.cfg.QueryTimeout,
				MaxConcurrent: r.cfg.MaxConcurrent,
				MergeStrategy: recall.MergePriority,
				OnSourceError: func(source string, _ error) {
					subsetFailuresTotal.WithLabelValues(source).Inc()
				},
			},
			&filter.FilterNode{Filters: filters},
			pipeline.NodeFunc{
				NodeName: "recommend.pool",
				NodeKind: pipeline.KindFilter,
				Fn: func(_ context.Context, rctx *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
					if rctx.Trace != nil {
						rctx.Trace.PoolSize = len(items)
					}
					return items, nil
				},
			},
			&rank.SimilarityNode{Weights: r.cfg.weights()},
			&rank.OrderNode{},
			&rerank.TopNNode{},
		},
	}
	return r, nil
}

// Config 返回补齐默认值后的策略参数。
func (r *Recommender) Config() Config { return r.cfg }

// Recommend 返回最多 req.Limit 个视频，顺序即推荐顺序。
// 只有请求非法时返回错误（INVALID_INPUT 的 *core.DomainError）；没有结果时返回空切片。
func (r *Recommender) Recommend(ctx context.Context, req Request) ([]*core.Video, error) {
	videos, _, err := r.RecommendWithTrace(ctx, req)
	return videos, err
}

// RecommendWithTrace 与 Recommend 相同，同时返回本次请求的决策轨迹。
// 校验失败时轨迹为 nil。
func (r *Recommender) RecommendWithTrace(ctx context.Context, req Request) ([]*core.Video, *core.Trace, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		requestsTotal.WithLabelValues(pathInvalid).Inc()
		return nil, nil, err
	}

	trace := &core.Trace{
		SourceKind: req.SourceKind,
		SourceID:   req.SourceID,
		UserID:     req.UserID,
		Limit:      req.Limit,
	}
	rctx := &core.RecommendContext{
		SourceKind: req.SourceKind,
		SourceID:   req.SourceID,
		UserID:     req.UserID,
		Limit:      req.Limit,
		Now:        r.now(),
		Trace:      trace,
	}
	logger := logging.CtxWith(ctx, r.logger).
		Str("source_kind", string(req.SourceKind)).
		Str("source_id", req.SourceID).
		Logger()

	r.resolve(ctx, rctx, &logger)

	var (
		items []*core.Item
		err   error
		path  string
	)
	switch signal := rctx.Profile.Signal(); signal {
	case core.SignalNone:
		path = pathFallback
		items, err = r.fallback.Process(ctx, rctx, nil)
	case core.SignalVectorOnly, core.SignalTagsOnly, core.SignalBoth:
		path = pathSignal
		items, err = r.signal.Run(ctx, rctx, nil)
	default:
		err = fmt.Errorf("unknown signal %v", signal)
	}
	if err != nil {
		// 只可能是请求被取消或超时，按空结果返回
		logger.Warn().Err(err).Str("path", path).Msg("recommend degraded to empty result")
		items = nil
	}

	videos := core.Videos(items)
	trace.Returned = len(videos)
	trace.Elapsed = time.Since(start)

	requestsTotal.WithLabelValues(path).Inc()
	requestDuration.WithLabelValues(path).Observe(trace.Elapsed.Seconds())
	returnedVideos.Observe(float64(len(videos)))
	logger.Debug().Object("trace", trace).Str("path", path).Msg("recommend done")

	return videos, trace, nil
}

// resolve 并发读取画像与排除集，两者失败都降级为空值。
func (r *Recommender) resolve(ctx context.Context, rctx *core.RecommendContext, logger *zerolog.Logger) {
	var (
		profile    *core.Profile
		profileErr error
		exclusion  core.ExclusionSet
		exclErr    error
	)
	var eg errgroup.Group
	eg.Go(func() error {
		profile, profileErr = r.profiles.Resolve(ctx, rctx.SourceKind, rctx.SourceID)
		return nil
	})
	eg.Go(func() error {
		exclusion, exclErr = filter.BuildExclusionSet(ctx, r.history, rctx.UserID, r.cfg.ExclusionWindow, rctx.Now)
		return nil
	})
	_ = eg.Wait()

	trace := rctx.Trace
	if profileErr != nil {
		degradedTotal.WithLabelValues("profile").Inc()
		trace.ProfileErr = profileErr.Error()
		logger.Warn().Err(profileErr).Msg("profile lookup failed, treated as no signal")
	}
	if exclErr != nil {
		degradedTotal.WithLabelValues("exclusion").Inc()
		trace.ExclusionFailed = true
		logger.Warn().Err(exclErr).Str("user_id", rctx.UserID).Msg("exclusion lookup failed, fail open")
	}

	rctx.Profile = profile
	rctx.Exclusion = exclusion
	trace.Signal = profile.Signal()
	trace.ExclusionSize = exclusion.Len()
}
