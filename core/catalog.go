package core

import (
	"context"
	"time"
)

// OrderBy 是目录查询的排序方式。
type OrderBy int

const (
	// OrderNatural 按目录自然顺序（ID 升序），保证分页偏移有意义
	OrderNatural OrderBy = iota
	// OrderUploadedDesc 按上传时间倒序
	OrderUploadedDesc
	// OrderViewsDesc 按播放数倒序
	OrderViewsDesc
)

func (o OrderBy) String() string {
	switch o {
	case OrderUploadedDesc:
		return "uploaded_desc"
	case OrderViewsDesc:
		return "views_desc"
	default:
		return "natural"
	}
}

// VideoFilter 是目录查询条件，零值字段表示不过滤。
type VideoFilter struct {
	// UploadedSince 上传时间下界（含）
	UploadedSince time.Time

	// Hashtag 视频 hashtag 中包含该标签（小写精确匹配）
	Hashtag string

	// Creator 创作者引用相等
	Creator string
}

// Catalog 是视频目录的领域接口，推荐链路只读。
//
// 实现：
//   - catalog.MemoryCatalog（测试/开发）
//   - catalog.GormCatalog（Postgres / SQLite）
//   - catalog.BreakerCatalog（熔断装饰器）
type Catalog interface {
	// Name 返回目录后端名称（用于日志/监控）
	Name() string

	// CountVideos 统计满足条件的视频数
	CountVideos(ctx context.Context, filter VideoFilter) (int, error)

	// QueryVideos 按条件、排序分页读取视频
	QueryVideos(ctx context.Context, filter VideoFilter, orderBy OrderBy, offset, limit int) ([]*Video, error)

	// GetVideo 读取单个视频，不存在时返回 ErrVideoNotFound
	GetVideo(ctx context.Context, id string) (*Video, error)
}
