package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/pkg/logging"
)

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "clipfeed_catalog_breaker_state",
		Help: "Catalog circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"catalog"})

	breakerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipfeed_catalog_breaker_requests_total",
		Help: "Catalog calls through the circuit breaker by result",
	}, []string{"catalog", "result"})
)

// BreakerConfig 是熔断配置。
type BreakerConfig struct {
	// MaxRequests 半开状态允许的并发探测数
	MaxRequests uint32 `koanf:"max_requests" validate:"gte=1"`
	// Interval 关闭状态下计数清零周期
	Interval time.Duration `koanf:"interval"`
	// Timeout 打开后多久进入半开
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
	// MinRequests 统计窗口内至少多少请求才判断失败率
	MinRequests uint32 `koanf:"min_requests" validate:"gte=1"`
	// FailureRatio 达到该失败率时打开
	FailureRatio float64 `koanf:"failure_ratio" validate:"gt=0,lte=1"`
}

// DefaultBreakerConfig 返回默认熔断配置。
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// BreakerCatalog 给目录调用加熔断。
// 目录持续失败时快速返回 core.ErrCatalogUnavailable，推荐链路把它当作普通子集失败降级处理。
// NOT_FOUND 与调用方取消不计入失败。
type BreakerCatalog struct {
	next   core.Catalog
	cb     *gobreaker.CircuitBreaker[any]
	logger zerolog.Logger
}

func NewBreakerCatalog(next core.Catalog, cfg BreakerConfig) *BreakerCatalog {
	name := next.Name()
	logger := logging.WithComponent("catalog.breaker").With().Str("catalog", name).Logger()
	breakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		// 调用方取消或超时不代表目录不健康，不计入失败
		IsSuccessful: func(err error) bool {
			return err == nil || core.IsNotFound(err) || callerDone(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("catalog breaker state changed")
			breakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return &BreakerCatalog{next: next, cb: cb, logger: logger}
}

var _ core.Catalog = (*BreakerCatalog)(nil)

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func callerDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (b *BreakerCatalog) Name() string { return b.next.Name() }

// State 返回当前熔断状态。
func (b *BreakerCatalog) State() gobreaker.State { return b.cb.State() }

func (b *BreakerCatalog) execute(fn func() (any, error)) (any, error) {
	out, err := b.cb.Execute(fn)
	name := b.next.Name()
	switch {
	case err == nil:
		breakerRequests.WithLabelValues(name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		breakerRequests.WithLabelValues(name, "rejected").Inc()
		return nil, fmt.Errorf("%w: %w", core.ErrCatalogUnavailable, err)
	case core.IsNotFound(err):
		breakerRequests.WithLabelValues(name, "not_found").Inc()
	case callerDone(err):
		breakerRequests.WithLabelValues(name, "canceled").Inc()
	default:
		breakerRequests.WithLabelValues(name, "failure").Inc()
	}
	return out, err
}

func (b *BreakerCatalog) CountVideos(ctx context.Context, f core.VideoFilter) (int, error) {
	out, err := b.execute(func() (any, error) {
		return b.next.CountVideos(ctx, f)
	})
	if err != nil {
		return 0, err
	}
	return out.(int), nil
}

func (b *BreakerCatalog) QueryVideos(ctx context.Context, f core.VideoFilter, orderBy core.OrderBy, offset, limit int) ([]*core.Video, error) {
	out, err := b.execute(func() (any, error) {
		return b.next.QueryVideos(ctx, f, orderBy, offset, limit)
	})
	if err != nil {
		return nil, err
	}
	return out.([]*core.Video), nil
}

func (b *BreakerCatalog) GetVideo(ctx context.Context, id string) (*core.Video, error) {
	out, err := b.execute(func() (any, error) {
		return b.next.GetVideo(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return out.(*core.Video), nil
}
