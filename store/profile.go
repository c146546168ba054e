package store

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/pkg/conv"
)

// profileDoc 是画像在 KV 中的 JSON 文档。
// 离线任务写入时类型并不严格（数字可能是字符串），读取时用 conv 宽松转换。
type profileDoc struct {
	Embedding      []any          `json:"embedding,omitempty"`
	TagPreferences map[string]any `json:"tagPreferences,omitempty"`
	UpdatedAt      time.Time      `json:"updatedAt,omitempty"`
}

// ProfileStore 实现 core.ProfileStore，画像存放在 profile:{kind}:{id}。
type ProfileStore struct {
	kv core.Store
}

func NewProfileStore(kv core.Store) *ProfileStore {
	return &ProfileStore{kv: kv}
}

var _ core.ProfileStore = (*ProfileStore)(nil)

// GetProfile 读取画像。key 不存在时返回 core.ErrStoreNotFound。
// 向量中存在无法转换的元素时视为没有向量，而不是截断成错误维度。
func (s *ProfileStore) GetProfile(ctx context.Context, kind core.SourceKind, sourceID string) (*core.Profile, error) {
	data, err := s.kv.Get(ctx, ProfileKey(string(kind), sourceID))
	if err != nil {
		return nil, err
	}

	var doc profileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode profile %s/%s: %w", kind, sourceID, err)
	}

	p := core.NewProfile(kind, sourceID)
	p.UpdateTime = doc.UpdatedAt
	if vec, ok := conv.SliceToFloat64(doc.Embedding); ok && len(vec) > 0 {
		p.Embedding = vec
	}
	for tag, w := range conv.MapToFloat64(doc.TagPreferences) {
		p.SetTagPreference(tag, w)
	}
	return p, nil
}

// PutProfile 写入画像，供离线任务与测试使用。
func (s *ProfileStore) PutProfile(ctx context.Context, p *core.Profile) error {
	doc := profileDoc{UpdatedAt: p.UpdateTime}
	if len(p.Embedding) > 0 {
		doc.Embedding = make([]any, len(p.Embedding))
		for i, v := range p.Embedding {
			doc.Embedding[i] = v
		}
	}
	if len(p.TagPreferences) > 0 {
		doc.TagPreferences = make(map[string]any, len(p.TagPreferences))
		for tag, w := range p.TagPreferences {
			doc.TagPreferences[tag] = w
		}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode profile %s/%s: %w", p.Kind, p.SourceID, err)
	}
	return s.kv.Set(ctx, ProfileKey(string(p.Kind), p.SourceID), data, 0)
}
