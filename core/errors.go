package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX），可穿透 fmt.Errorf("%w") 包装
//
// 使用场景：
//   - 请求校验：INVALID_INPUT（唯一会被调用方看到的拒绝）
//   - Store / Catalog：NOT_FOUND
//   - 下游不可用：UNAVAILABLE
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "INVALID_INPUT"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "catalog", "recommend"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// GetDomainError 获取错误链中的 DomainError，如果没有则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore     = "store"     // KV 存储
	ModuleCatalog   = "catalog"   // 视频目录
	ModuleRecommend = "recommend" // 推荐编排
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// ErrVideoNotFound 表示目录中不存在该视频
var ErrVideoNotFound = NewDomainError(ModuleCatalog, ErrorCodeNotFound, "catalog: video not found")

// ErrCatalogUnavailable 表示目录暂不可用（例如熔断打开）
var ErrCatalogUnavailable = NewDomainError(ModuleCatalog, ErrorCodeUnavailable, "catalog: unavailable")
