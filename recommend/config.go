package recommend

import (
	"time"

	"github.com/rushteam/clipfeed/filter"
	"github.com/rushteam/clipfeed/rank"
	"github.com/rushteam/clipfeed/recall"
)

// Config 是推荐策略的全部参数，零值字段在 New 中按 DefaultConfig 补齐。
type Config struct {
	// RecentWindow 近期召回的回看窗口
	RecentWindow time.Duration `koanf:"recent_window" validate:"gte=0"`
	RecentLimit  int           `koanf:"recent_limit" validate:"gte=0"`
	PopularLimit int           `koanf:"popular_limit" validate:"gte=0"`
	TopTags      int           `koanf:"top_tags" validate:"gte=0"`
	PerTagLimit  int           `koanf:"per_tag_limit" validate:"gte=0"`

	VectorWeight float64 `koanf:"vector_weight" validate:"gte=0,lte=1"`
	TagWeight    float64 `koanf:"tag_weight" validate:"gte=0,lte=1"`

	// ExclusionWindow 排除集回看窗口，默认 1 小时
	ExclusionWindow time.Duration `koanf:"exclusion_window" validate:"gte=0"`

	// QueryTimeout 单次目录调用超时，0 表示只受请求 deadline 约束
	QueryTimeout time.Duration `koanf:"query_timeout" validate:"gte=0"`

	// MaxConcurrent 候选池召回源的最大并发，0 表示不限制
	MaxConcurrent int `koanf:"max_concurrent" validate:"gte=0"`

	// CandidateFilter 可选的 CEL 表达式，在打分之前求值，返回 false 的候选被过滤
	CandidateFilter string `koanf:"candidate_filter"`

	// BlockedVideoIDs 下架视频，只作用于信号路径
	BlockedVideoIDs []string `koanf:"blocked_video_ids"`

	FallbackWindows []recall.Window `koanf:"fallback_windows" validate:"dive"`
}

// DefaultConfig 返回默认策略参数。
func DefaultConfig() Config {
	return Config{
		RecentWindow:    30 * 24 * time.Hour,
		RecentLimit:     50,
		PopularLimit:    50,
		TopTags:         5,
		PerTagLimit:     20,
		VectorWeight:    rank.DefaultVectorWeight,
		TagWeight:       rank.DefaultTagWeight,
		ExclusionWindow: filter.DefaultExclusionWindow,
		QueryTimeout:    2 * time.Second,
		FallbackWindows: recall.DefaultWindows(),
	}
}

// withDefaults 用默认值补齐零值字段。
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RecentWindow <= 0 {
		c.RecentWindow = d.RecentWindow
	}
	if c.RecentLimit <= 0 {
		c.RecentLimit = d.RecentLimit
	}
	if c.PopularLimit <= 0 {
		c.PopularLimit = d.PopularLimit
	}
	if c.TopTags <= 0 {
		c.TopTags = d.TopTags
	}
	if c.PerTagLimit <= 0 {
		c.PerTagLimit = d.PerTagLimit
	}
	if c.VectorWeight == 0 && c.TagWeight == 0 {
		c.VectorWeight, c.TagWeight = d.VectorWeight, d.TagWeight
	}
	if c.ExclusionWindow <= 0 {
		c.ExclusionWindow = d.ExclusionWindow
	}
	if len(c.FallbackWindows) == 0 {
		c.FallbackWindows = d.FallbackWindows
	}
	return c
}

func (c Config) weights() rank.Weights {
	return rank.Weights{Vector: c.VectorWeight, Tag: c.TagWeight}
}
