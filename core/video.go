package core

import (
	"strings"
	"time"
)

// DefaultCreator 是缺失创作者引用时使用的占位值。
const DefaultCreator = "users/unknown"

// Engagement 是视频互动数据的只读快照，推荐链路不会修改它。
type Engagement struct {
	Views            int64   `json:"views" yaml:"views"`
	Likes            int64   `json:"likes" yaml:"likes"`
	Shares           int64   `json:"shares" yaml:"shares"`
	Bookmarks        int64   `json:"bookmarks" yaml:"bookmarks"`
	CompletionRate   float64 `json:"completionRate" yaml:"completionRate"`
	AverageWatchTime float64 `json:"averageWatchTime" yaml:"averageWatchTime"`
}

// Video 是目录中的一条视频记录。
// 在一次请求内视为不可变；Embedding 可以为空。
type Video struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	VideoURL     string     `json:"videoUrl"`
	ThumbnailURL string     `json:"thumbnailUrl"`
	Duration     float64    `json:"duration"` // 秒
	UploadedAt   time.Time  `json:"uploadedAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Creator      string     `json:"creator"`
	Hashtags     []string   `json:"hashtags,omitempty"`
	Embedding    []float64  `json:"-"`
	Engagement   Engagement `json:"engagement"`
}

// NormalizeTag 返回标签的规范形式：去掉首尾空白并转小写。
// 目录存储、过滤与画像标签都按这个形式比较。
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// HasHashtag 判断视频是否带有 tag（按 NormalizeTag 比较的精确匹配）。
// 空白标签不匹配任何视频。
func (v *Video) HasHashtag(tag string) bool {
	tag = NormalizeTag(tag)
	if tag == "" {
		return false
	}
	for _, h := range v.Hashtags {
		if NormalizeTag(h) == tag {
			return true
		}
	}
	return false
}

// LowerHashtags 返回小写化后的 hashtag 列表，保持原有顺序。
func (v *Video) LowerHashtags() []string {
	out := make([]string, len(v.Hashtags))
	for i, h := range v.Hashtags {
		out[i] = strings.ToLower(h)
	}
	return out
}

// Clone 返回视频的深拷贝，存储层用它避免调用方改写内部数据。
func (v *Video) Clone() *Video {
	if v == nil {
		return nil
	}
	c := *v
	if v.Hashtags != nil {
		c.Hashtags = append([]string(nil), v.Hashtags...)
	}
	if v.Embedding != nil {
		c.Embedding = append([]float64(nil), v.Embedding...)
	}
	return &c
}
