package core

import "github.com/rushteam/clipfeed/pkg/utils"

// Item 是推荐链路中的统一承载结构：视频、分数、特征、标签。
// Labels 用于解释与观测；Score 用于排序决策。
// Item 只在一次请求内存在，不会被持久化。
type Item struct {
	ID       string
	Score    float64
	Video    *Video
	Features map[string]float64
	Meta     map[string]any
	Labels   map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:       id,
		Score:    0,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]utils.Label),
	}
}

// NewVideoItem 用目录中的视频构建候选。
func NewVideoItem(v *Video) *Item {
	it := NewItem(v.ID)
	it.Video = v
	return it
}

// Views 返回视频播放数，用于同分时的确定性排序。
func (it *Item) Views() int64 {
	if it == nil || it.Video == nil {
		return 0
	}
	return it.Video.Engagement.Views
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Videos 按顺序取出 items 中的视频，丢弃分数等请求内信息。
func Videos(items []*Item) []*Video {
	out := make([]*Video, 0, len(items))
	for _, it := range items {
		if it == nil || it.Video == nil {
			continue
		}
		out = append(out, it.Video)
	}
	return out
}
