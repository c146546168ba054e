package store

import (
	"context"
	"fmt"
	"io"

	feast "github.com/feast-dev/feast/sdk/go"
	"github.com/feast-dev/feast/sdk/go/protos/feast/types"

	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/vector"
)

// FeastConfig 是 Feast 在线特征服务配置。
// 画像由离线任务物化到 Feast，向量与标签偏好是同一张特征表里的三列。
type FeastConfig struct {
	Host    string `koanf:"host"`
	Port    int    `koanf:"port" validate:"gte=0"`
	Project string `koanf:"project"`

	// 特征引用，格式 feature_table:feature
	EmbeddingFeature  string `koanf:"embedding_feature"`
	TagsFeature       string `koanf:"tags_feature"`
	TagWeightsFeature string `koanf:"tag_weights_feature"`

	// 实体列名，按 SourceKind 区分
	UserEntity  string `koanf:"user_entity"`
	ClassEntity string `koanf:"class_entity"`
}

// DefaultFeastConfig 返回默认的特征引用与实体列名。
func DefaultFeastConfig() FeastConfig {
	return FeastConfig{
		Port:              6565,
		Project:           "clipfeed",
		EmbeddingFeature:  "profile:embedding",
		TagsFeature:       "profile:tags",
		TagWeightsFeature: "profile:tag_weights",
		UserEntity:        "user_id",
		ClassEntity:       "class_id",
	}
}

// OnlineFeatureClient 是 Feast 在线特征查询接口，*feast.GrpcClient 实现了它。
type OnlineFeatureClient interface {
	GetOnlineFeatures(ctx context.Context, req *feast.OnlineFeaturesRequest) (*feast.OnlineFeaturesResponse, error)
}

// FeastProfileStore 从 Feast 在线存储读取画像，实现 core.ProfileStore。
// 只读：画像写入由 Feast 物化完成。
type FeastProfileStore struct {
	client OnlineFeatureClient
	cfg    FeastConfig
}

func NewFeastProfileStore(client OnlineFeatureClient, cfg FeastConfig) *FeastProfileStore {
	return &FeastProfileStore{client: client, cfg: cfg}
}

// DialFeast 建立 gRPC 连接并返回画像存储。
func DialFeast(cfg FeastConfig) (*FeastProfileStore, error) {
	port := cfg.Port
	if port == 0 {
		port = 6565
	}
	client, err := feast.NewGrpcClient(cfg.Host, port)
	if err != nil {
		return nil, fmt.Errorf("feast dial %s:%d: %w", cfg.Host, port, err)
	}
	return NewFeastProfileStore(client, cfg), nil
}

var _ core.ProfileStore = (*FeastProfileStore)(nil)

func (s *FeastProfileStore) Name() string { return "feast" }

// Close 关闭底层连接（客户端支持时）。
func (s *FeastProfileStore) Close() error {
	if c, ok := s.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *FeastProfileStore) entityKey(kind core.SourceKind) string {
	if kind == core.SourceClass {
		return s.cfg.ClassEntity
	}
	return s.cfg.UserEntity
}

// GetProfile 读取画像。三个特征都没有值时返回 core.ErrStoreNotFound。
func (s *FeastProfileStore) GetProfile(ctx context.Context, kind core.SourceKind, sourceID string) (*core.Profile, error) {
	req := &feast.OnlineFeaturesRequest{
		Features: []string{s.cfg.EmbeddingFeature, s.cfg.TagsFeature, s.cfg.TagWeightsFeature},
		Entities: []feast.Row{{s.entityKey(kind): feast.StrVal(sourceID)}},
		Project:  s.cfg.Project,
	}
	resp, err := s.client.GetOnlineFeatures(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("feast get profile %s/%s: %w", kind, sourceID, err)
	}
	if resp == nil {
		return nil, core.ErrStoreNotFound
	}
	rows := resp.Rows()
	if len(rows) == 0 {
		return nil, core.ErrStoreNotFound
	}
	return s.decode(kind, sourceID, rows[0])
}

func (s *FeastProfileStore) decode(kind core.SourceKind, sourceID string, row feast.Row) (*core.Profile, error) {
	p := core.NewProfile(kind, sourceID)
	// 含 NaN / Inf 的向量整体丢弃，画像退化为只有标签或无信号
	if vec := floatList(row[s.cfg.EmbeddingFeature]); vector.IsFinite(vec) {
		p.Embedding = vec
	}

	tags := row[s.cfg.TagsFeature].GetStringListVal().GetVal()
	weights := floatList(row[s.cfg.TagWeightsFeature])
	if len(tags) != len(weights) {
		return nil, fmt.Errorf("feast profile %s/%s: %d tags but %d weights", kind, sourceID, len(tags), len(weights))
	}
	for i, tag := range tags {
		p.SetTagPreference(tag, weights[i])
	}

	if p.Signal() == core.SignalNone {
		return nil, core.ErrStoreNotFound
	}
	return p, nil
}

// floatList 读取 double / float / int64 列表特征，其它类型视为没有值。
// 非有限值原样返回，由调用方决定如何处理。
func floatList(v *types.Value) []float64 {
	if l := v.GetDoubleListVal(); l != nil && len(l.GetVal()) > 0 {
		return append([]float64(nil), l.GetVal()...)
	}
	if l := v.GetFloatListVal(); l != nil && len(l.GetVal()) > 0 {
		out := make([]float64, len(l.GetVal()))
		for i, f := range l.GetVal() {
			out[i] = float64(f)
		}
		return out
	}
	if l := v.GetInt64ListVal(); l != nil && len(l.GetVal()) > 0 {
		out := make([]float64, len(l.GetVal()))
		for i, n := range l.GetVal() {
			out[i] = float64(n)
		}
		return out
	}
	return nil
}
