package recall

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/pipeline"
	"github.com/rushteam/clipfeed/pkg/logging"
	"github.com/rushteam/clipfeed/pkg/utils"
)

// Window 是兜底采样的一个时间窗口。
type Window struct {
	Name        string        `koanf:"name" yaml:"name" validate:"required"`
	Span        time.Duration `koanf:"span" yaml:"span" validate:"gt=0"`
	Probability float64       `koanf:"probability" yaml:"probability" validate:"gte=0,lte=1"`
}

// FillWindow 是窗口之后不限时间补足阶段在 Trace 中的名字。
const FillWindow = "all"

// DefaultWindows 返回默认窗口：7 天 0.6，30 天 0.3，365 天 0.1。
func DefaultWindows() []Window {
	return []Window{
		{Name: "7d", Span: 7 * 24 * time.Hour, Probability: 0.6},
		{Name: "30d", Span: 30 * 24 * time.Hour, Probability: 0.3},
		{Name: "365d", Span: 365 * 24 * time.Hour, Probability: 0.1},
	}
}

// SubQuota 计算窗口配额 floor(limit*p)+1。+1 保证小 limit 时每个窗口也能分到名额，
// 多分配的部分由剩余数量吸收。
// 结果超出 int 范围时截断为 math.MaxInt。
func SubQuota(limit int, probability float64) int {
	if limit <= 0 {
		return 0
	}
	q := math.Floor(float64(limit) * probability)
	if q >= math.MaxInt {
		return math.MaxInt
	}
	return int(q) + 1
}

// FallbackSampler 是无信号时的兜底召回：按时间窗口加权随机采样。
//
// 每个窗口先统计数量，再在 [0, max(0, count-subQuota)] 内随机取偏移分页读取，
// 按窗口顺序消费直到剩余数量为 0。所有窗口之后仍有剩余时，对全目录用同样方式补足。
//
// 计数与分页都是并发读取，偏移在计数完成后按窗口顺序抽取，因此固定种子的结果是确定的。
// 计数与分页之间目录可能发生变化，这是 count+offset 分页接受的一致性弱点。
// 兜底路径不使用排除集。
type FallbackSampler struct {
	Catalog core.Catalog
	Windows []Window
	Rand    Rand

	// Timeout 单次目录调用超时
	Timeout time.Duration
}

func (n *FallbackSampler) Name() string        { return "recall.fallback" }
func (n *FallbackSampler) Kind() pipeline.Kind { return pipeline.KindRecall }

type windowPlan struct {
	window   Window
	filter   core.VideoFilter
	subQuota int
	count    int
	offset   int
	page     []*core.Video
	err      error
}

func (n *FallbackSampler) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return n.Recall(ctx, rctx)
}

// Recall 返回最多 rctx.Limit 个视频，顺序为窗口消费顺序。
func (n *FallbackSampler) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if rctx == nil || rctx.Limit <= 0 {
		return nil, nil
	}
	limit := rctx.Limit
	now := requestNow(rctx)
	windows := n.Windows
	if len(windows) == 0 {
		windows = DefaultWindows()
	}

	plans := make([]*windowPlan, len(windows))
	for i, w := range windows {
		plans[i] = &windowPlan{
			window:   w,
			filter:   core.VideoFilter{UploadedSince: now.Add(-w.Span)},
			subQuota: SubQuota(limit, w.Probability),
		}
	}

	// 1. 并发计数
	var eg errgroup.Group
	for _, p := range plans {
		eg.Go(func() error {
			callCtx, cancel := withTimeout(ctx, n.Timeout)
			defer cancel()
			p.count, p.err = n.Catalog.CountVideos(callCtx, p.filter)
			return nil
		})
	}
	_ = eg.Wait()

	// 2. 按窗口顺序抽取偏移
	for _, p := range plans {
		if p.err != nil || p.count <= 0 {
			continue
		}
		p.offset = n.offset(p.count, p.pageSize())
	}

	// 3. 并发分页
	var pages errgroup.Group
	for _, p := range plans {
		if p.err != nil || p.count <= 0 || p.subQuota <= 0 {
			continue
		}
		pages.Go(func() error {
			callCtx, cancel := withTimeout(ctx, n.Timeout)
			defer cancel()
			p.page, p.err = n.Catalog.QueryVideos(callCtx, p.filter, core.OrderNatural, p.offset, p.pageSize())
			return nil
		})
	}
	_ = pages.Wait()

	// 4. 按窗口顺序消费
	logger := logging.Ctx(ctx)
	trace := rctx.Trace
	remaining := limit
	fetched := 0
	for _, p := range plans {
		fetched += len(p.page)
	}
	// 按实际读到的数量分配，limit 可能远大于目录
	seen := make(map[string]struct{}, fetched)
	out := make([]*core.Item, 0, min(limit, fetched))

	for _, p := range plans {
		taken := 0
		for _, v := range p.page {
			if remaining <= 0 {
				break
			}
			if !admit(v, seen) {
				continue
			}
			out = append(out, fallbackItem(v, p.window.Name))
			taken++
			remaining--
		}
		wt := core.WindowTrace{
			Window:   p.window.Name,
			SubQuota: p.subQuota,
			Count:    p.count,
			Offset:   p.offset,
			Taken:    taken,
		}
		if p.err != nil {
			wt.Err = p.err.Error()
			logger.Warn().Err(p.err).Str("window", p.window.Name).Msg("fallback window failed")
		}
		trace.AddWindow(wt)
	}

	if remaining <= 0 {
		return out, nil
	}

	// 5. 不限时间补足
	fill := n.fill(ctx, remaining, len(out))
	taken := 0
	for _, v := range fill.page {
		if remaining <= 0 {
			break
		}
		if !admit(v, seen) {
			continue
		}
		out = append(out, fallbackItem(v, FillWindow))
		taken++
		remaining--
	}
	wt := core.WindowTrace{
		Window:   FillWindow,
		SubQuota: fill.subQuota,
		Count:    fill.count,
		Offset:   fill.offset,
		Taken:    taken,
	}
	if fill.err != nil {
		wt.Err = fill.err.Error()
		logger.Warn().Err(fill.err).Str("window", FillWindow).Msg("fallback fill failed")
	}
	trace.AddWindow(wt)
	return out, nil
}

// fill 对全目录分页。页大小取剩余数量加已取数量，
// 这样即使页中包含已取过的视频，也足够补满剩余名额。
func (n *FallbackSampler) fill(ctx context.Context, remaining, taken int) *windowPlan {
	p := &windowPlan{subQuota: remaining + taken}

	callCtx, cancel := withTimeout(ctx, n.Timeout)
	p.count, p.err = n.Catalog.CountVideos(callCtx, p.filter)
	cancel()
	if p.err != nil {
		p.err = fmt.Errorf("count: %w", p.err)
		return p
	}
	if p.count <= 0 {
		return p
	}
	p.offset = n.offset(p.count, p.pageSize())

	callCtx, cancel = withTimeout(ctx, n.Timeout)
	defer cancel()
	p.page, p.err = n.Catalog.QueryVideos(callCtx, p.filter, core.OrderNatural, p.offset, p.pageSize())
	return p
}

// pageSize 是实际分页大小：配额不超过窗口内的视频数。
func (p *windowPlan) pageSize() int {
	return min(p.subQuota, p.count)
}

// offset 在 [0, max(0, count-pageSize)] 内均匀取值。
func (n *FallbackSampler) offset(count, pageSize int) int {
	upper := count - pageSize
	if upper <= 0 {
		return 0
	}
	r := n.Rand
	if r == nil {
		r = DefaultRand
	}
	return r.IntN(upper + 1)
}

func admit(v *core.Video, seen map[string]struct{}) bool {
	if v == nil {
		return false
	}
	if _, ok := seen[v.ID]; ok {
		return false
	}
	seen[v.ID] = struct{}{}
	return true
}

func fallbackItem(v *core.Video, window string) *core.Item {
	it := core.NewVideoItem(v)
	it.PutLabel("recall_source", utils.Label{Value: "fallback", Source: "recall"})
	it.PutLabel("fallback_window", utils.Label{Value: window, Source: "recall"})
	return it
}
