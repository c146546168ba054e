package recommend

import (
	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/pkg/validation"
)

// Request 是一次推荐请求。
type Request struct {
	SourceKind core.SourceKind `json:"source_kind" validate:"required,oneof=user class"`
	SourceID   string          `json:"source_id"`

	// UserID 是发起请求的用户，用于构建排除集，可以为空
	UserID string `json:"user_id"`

	Limit int `json:"limit" validate:"gt=0"`
}

// Validate 校验请求。失败时返回 INVALID_INPUT 的 *core.DomainError，
// 这是推荐链路中唯一会拒绝请求的错误。
func (r Request) Validate() error {
	if err := validation.Struct(&r); err != nil {
		return core.NewDomainError(core.ModuleRecommend, core.ErrorCodeInvalidInput, err.Error())
	}
	return nil
}
