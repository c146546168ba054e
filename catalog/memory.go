package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/rushteam/clipfeed/core"
)

// MemoryCatalog 是内存目录，自然顺序为 ID 升序。
// 读写并发安全；返回的视频都是拷贝。
type MemoryCatalog struct {
	mu     sync.RWMutex
	videos map[string]*core.Video
	ids    []string // 有序 ID
}

func NewMemoryCatalog(videos ...*core.Video) *MemoryCatalog {
	c := &MemoryCatalog{videos: make(map[string]*core.Video, len(videos))}
	for _, v := range videos {
		c.put(v)
	}
	return c
}

var _ core.Catalog = (*MemoryCatalog)(nil)

func (c *MemoryCatalog) Name() string { return "memory" }

// PutVideo 新增或覆盖一条视频。
func (c *MemoryCatalog) PutVideo(_ context.Context, v *core.Video) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(v)
	return nil
}

func (c *MemoryCatalog) put(v *core.Video) {
	if v == nil || v.ID == "" {
		return
	}
	if _, ok := c.videos[v.ID]; !ok {
		i := sort.SearchStrings(c.ids, v.ID)
		c.ids = append(c.ids, "")
		copy(c.ids[i+1:], c.ids[i:])
		c.ids[i] = v.ID
	}
	c.videos[v.ID] = normalizeVideo(v)
}

// Len 返回目录中的视频数。
func (c *MemoryCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}

func (c *MemoryCatalog) CountVideos(ctx context.Context, f core.VideoFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, id := range c.ids {
		if matches(c.videos[id], f) {
			n++
		}
	}
	return n, nil
}

func (c *MemoryCatalog) QueryVideos(ctx context.Context, f core.VideoFilter, orderBy core.OrderBy, offset, limit int) ([]*core.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}

	c.mu.RLock()
	matched := make([]*core.Video, 0, len(c.ids))
	for _, id := range c.ids {
		if v := c.videos[id]; matches(v, f) {
			matched = append(matched, v)
		}
	}
	c.mu.RUnlock()

	// 次序键为 ID，与 GormCatalog 一致
	switch orderBy {
	case core.OrderUploadedDesc:
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].UploadedAt.After(matched[j].UploadedAt)
		})
	case core.OrderViewsDesc:
		sort.SliceStable(matched, func(i, j int) bool {
			return matched[i].Engagement.Views > matched[j].Engagement.Views
		})
	}

	if offset >= len(matched) {
		return nil, nil
	}
	end := len(matched)
	if limit < end-offset {
		end = offset + limit
	}
	out := make([]*core.Video, 0, end-offset)
	for _, v := range matched[offset:end] {
		out = append(out, v.Clone())
	}
	return out, nil
}

func (c *MemoryCatalog) GetVideo(ctx context.Context, id string) (*core.Video, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.videos[id]
	if !ok {
		return nil, core.ErrVideoNotFound
	}
	return v.Clone(), nil
}
