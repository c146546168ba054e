package recommend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 推荐路径标签
const (
	pathFallback = "fallback"
	pathSignal   = "signal"
	pathInvalid  = "invalid"
)

var (
	// requestsTotal 按路径统计请求数：fallback / signal / invalid
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipfeed_recommend_requests_total",
			Help: "Total number of recommend requests by path",
		},
		[]string{"path"},
	)

	// requestDuration 按路径统计请求耗时
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clipfeed_recommend_duration_seconds",
			Help:    "Duration of recommend requests in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"path"},
	)

	// subsetFailuresTotal 候选池召回源失败次数
	subsetFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipfeed_recommend_subset_failures_total",
			Help: "Total number of candidate subset reads that failed and contributed no candidates",
		},
		[]string{"source"},
	)

	// degradedTotal 降级次数：profile / exclusion
	degradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clipfeed_recommend_degraded_total",
			Help: "Total number of lookups that failed and were degraded to an empty value",
		},
		[]string{"lookup"},
	)

	// returnedVideos 每次返回的视频数
	returnedVideos = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "clipfeed_recommend_returned_videos",
			Help:    "Number of videos returned per recommend request",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
)
