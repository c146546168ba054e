package core

import "time"

// RecommendContext 承载一次推荐请求的对象、画像与决策信息，贯穿整个 Pipeline 透传。
// 它只在单次请求内有效，不跨请求共享。
type RecommendContext struct {
	SourceKind SourceKind
	SourceID   string
	UserID     string // 用于构建排除集；可以为空
	Limit      int

	// Now 是本次请求的参考时间，所有时间窗口都相对它计算
	Now time.Time

	// Profile 是解析后的画像，无画像时为空画像而不是 nil
	Profile *Profile

	// Exclusion 是用户近期看过的视频 ID，仅信号路径使用
	Exclusion ExclusionSet

	// Trace 是可选的决策轨迹，为 nil 时不记录
	Trace *Trace
}

// Signal 返回本次请求画像的信号类型。
func (rctx *RecommendContext) Signal() Signal {
	if rctx == nil {
		return SignalNone
	}
	return rctx.Profile.Signal()
}

// ExclusionSet 是视频 ID 集合。nil 集合可以安全读取。
type ExclusionSet map[string]struct{}

// NewExclusionSet 由 ID 列表构建集合，忽略空 ID。
func NewExclusionSet(ids ...string) ExclusionSet {
	s := make(ExclusionSet, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		s[id] = struct{}{}
	}
	return s
}

func (s ExclusionSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s ExclusionSet) Len() int { return len(s) }
