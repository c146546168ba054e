package core

import (
	"time"

	"github.com/rs/zerolog"
)

// Trace 是一次推荐请求的决策轨迹，只作为旁路观测使用，不参与排序。
// 各字段在固定的决策点写入；nil Trace 上的方法都是空操作。
type Trace struct {
	SourceKind SourceKind
	SourceID   string
	UserID     string
	Limit      int

	Signal Signal

	// ProfileErr 画像读取失败时的错误（已降级为无信号）
	ProfileErr string

	ExclusionSize   int
	ExclusionFailed bool

	// Subsets 是候选池各召回子集的结果，顺序即去重优先级
	Subsets []SubsetTrace

	// Windows 是兜底采样各时间窗口的结果，最后一项可能是不限时间的补足
	Windows []WindowTrace

	PoolSize int
	Returned int
	Elapsed  time.Duration
}

// SubsetTrace 记录单个召回子集。
type SubsetTrace struct {
	Source   string
	Fetched  int
	Admitted int
	Err      string
}

// WindowTrace 记录兜底采样的单个时间窗口。
type WindowTrace struct {
	Window   string
	SubQuota int
	Count    int
	Offset   int
	Taken    int
	Err      string
}

func (t *Trace) AddSubset(s SubsetTrace) {
	if t == nil {
		return
	}
	t.Subsets = append(t.Subsets, s)
}

func (t *Trace) AddWindow(w WindowTrace) {
	if t == nil {
		return
	}
	t.Windows = append(t.Windows, w)
}

// MarshalZerologObject 让 Trace 可以直接作为结构化日志字段输出。
func (t *Trace) MarshalZerologObject(e *zerolog.Event) {
	if t == nil {
		return
	}
	e.Str("source_kind", string(t.SourceKind)).
		Str("source_id", t.SourceID).
		Str("user_id", t.UserID).
		Int("limit", t.Limit).
		Str("signal", t.Signal.String()).
		Int("exclusion_size", t.ExclusionSize).
		Bool("exclusion_failed", t.ExclusionFailed).
		Int("pool_size", t.PoolSize).
		Int("returned", t.Returned).
		Dur("elapsed", t.Elapsed)
	if t.ProfileErr != "" {
		e.Str("profile_err", t.ProfileErr)
	}
	for _, s := range t.Subsets {
		e.Dict("subset_"+s.Source, zerolog.Dict().
			Int("fetched", s.Fetched).
			Int("admitted", s.Admitted).
			Str("err", s.Err))
	}
	for _, w := range t.Windows {
		e.Dict("window_"+w.Window, zerolog.Dict().
			Int("sub_quota", w.SubQuota).
			Int("count", w.Count).
			Int("offset", w.Offset).
			Int("taken", w.Taken).
			Str("err", w.Err))
	}
}
