package recommend

import (
	"context"

	"github.com/rushteam/clipfeed/core"
)

// ProfileResolver 读取推荐对象的画像。
//
// 画像不存在是正常状态（无信号）；其他读取错误也降级为空画像，
// 错误只返回给调用方用于观测，返回的画像永远不为 nil。
type ProfileResolver struct {
	Store core.ProfileStore
}

func (r *ProfileResolver) Resolve(ctx context.Context, kind core.SourceKind, sourceID string) (*core.Profile, error) {
	empty := core.NewProfile(kind, sourceID)
	if r == nil || r.Store == nil {
		return empty, nil
	}
	p, err := r.Store.GetProfile(ctx, kind, sourceID)
	switch {
	case err == nil && p != nil:
		return p, nil
	case err == nil, core.IsStoreNotFound(err), core.IsNotFound(err):
		return empty, nil
	default:
		return empty, err
	}
}
