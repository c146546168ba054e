// Package catalog 提供 core.Catalog 的实现：
//
//	MemoryCatalog   内存目录，开发与测试使用，可由 YAML fixtures 初始化
//	GormCatalog     Postgres（生产）/ SQLite（测试）
//	BreakerCatalog  熔断装饰器，包裹任意 Catalog
package catalog

import (
	"github.com/rushteam/clipfeed/core"
)

// normalizeVideo 补齐缺省字段，写入目录前调用。
func normalizeVideo(v *core.Video) *core.Video {
	c := v.Clone()
	if c.Creator == "" {
		c.Creator = core.DefaultCreator
	}
	c.UploadedAt = c.UploadedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c
}

// tagSet 返回去重后的小写 hashtag，保持首次出现顺序。
func tagSet(hashtags []string) []string {
	seen := make(map[string]struct{}, len(hashtags))
	out := make([]string, 0, len(hashtags))
	for _, h := range hashtags {
		h = core.NormalizeTag(h)
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// matches 判断视频是否满足过滤条件。
func matches(v *core.Video, f core.VideoFilter) bool {
	if !f.UploadedSince.IsZero() && v.UploadedAt.Before(f.UploadedSince) {
		return false
	}
	if f.Hashtag != "" && !v.HasHashtag(f.Hashtag) {
		return false
	}
	if f.Creator != "" && v.Creator != f.Creator {
		return false
	}
	return true
}
