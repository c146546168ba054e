package rank

import (
	"context"
	"math"
	"strings"

	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/pipeline"
	"github.com/rushteam/clipfeed/pkg/utils"
	"github.com/rushteam/clipfeed/vector"
)

// 默认融合权重：同时有向量和标签时 0.7*向量 + 0.3*标签
const (
	DefaultVectorWeight = 0.7
	DefaultTagWeight    = 0.3
)

// 写入 item.Features 的特征名
const (
	FeatureVectorSim = "vector_sim"
	FeatureTagSim    = "tag_sim"
)

// VectorSimilarity 计算画像向量与视频向量的相似度。
// 余弦为负时按 0 处理，使融合分数落在 [0, 1]。
func VectorSimilarity(profile, video []float64) float64 {
	sim := vector.Cosine(profile, video)
	if sim < 0 {
		return 0
	}
	return sim
}

// TagSimilarity 计算标签重合度。
//
// tags 按权重降序传入（见 core.Profile.SortedTags）。对每个画像标签，
// 在视频 hashtag 中找第一个与之互为子串的（例如 "chem" 与 "chemistry"），
// 命中则累加该标签权重，每个画像标签最多计一次。结果为命中权重 / 总权重。
// 空 hashtag 是任何标签的子串，因此会命中所有画像标签。
func TagSimilarity(tags []core.TagWeight, hashtags []string) float64 {
	if len(tags) == 0 || len(hashtags) == 0 {
		return 0
	}
	lowered := make([]string, len(hashtags))
	for i, h := range hashtags {
		lowered[i] = strings.ToLower(h)
	}

	// 按最大权重归一，权重极大时总和不会溢出
	scale := 0.0
	for _, tw := range tags {
		scale = max(scale, tw.Weight)
	}
	if scale <= 0 || math.IsInf(scale, 0) || math.IsNaN(scale) {
		return 0
	}

	total, matched := 0.0, 0.0
	for _, tw := range tags {
		w := tw.Weight / scale
		total += w
		tag := strings.ToLower(tw.Tag)
		for _, h := range lowered {
			if strings.Contains(tag, h) || strings.Contains(h, tag) {
				matched += w
				break
			}
		}
	}
	if total <= 0 {
		return 0
	}
	return matched / total
}

// Weights 是向量信号与标签信号的融合权重，只在两种信号都存在时使用。
type Weights struct {
	Vector float64
	Tag    float64
}

// DefaultWeights 返回 0.7 / 0.3。
func DefaultWeights() Weights {
	return Weights{Vector: DefaultVectorWeight, Tag: DefaultTagWeight}
}

// CombineScores 按信号类型融合两个相似度：
//
//	SignalBoth        w.Vector*vectorSim + w.Tag*tagSim
//	SignalVectorOnly  vectorSim
//	SignalTagsOnly    tagSim
//	SignalNone        0
func CombineScores(signal core.Signal, w Weights, vectorSim, tagSim float64) float64 {
	switch signal {
	case core.SignalBoth:
		return w.Vector*vectorSim + w.Tag*tagSim
	case core.SignalVectorOnly:
		return vectorSim
	case core.SignalTagsOnly:
		return tagSim
	default:
		return 0
	}
}

// Score 对单个视频打分，是 SimilarityNode 的纯函数版本。
func Score(profile *core.Profile, w Weights, v *core.Video) (combined, vectorSim, tagSim float64) {
	signal := profile.Signal()
	if signal == core.SignalNone || v == nil {
		return 0, 0, 0
	}
	if signal == core.SignalBoth || signal == core.SignalVectorOnly {
		vectorSim = VectorSimilarity(profile.Embedding, v.Embedding)
	}
	if signal == core.SignalBoth || signal == core.SignalTagsOnly {
		tagSim = TagSimilarity(profile.SortedTags(), v.Hashtags)
	}
	return CombineScores(signal, w, vectorSim, tagSim), vectorSim, tagSim
}

// SimilarityNode 用画像与候选视频的相似度为每个候选打分。
//   - 更新 item.Score
//   - 写入 features：vector_sim / tag_sim
//   - 写入 labels：rank_signal
//
// 本节点只打分不排序，排序交给 OrderNode。
type SimilarityNode struct {
	// Weights 为零值时使用 DefaultWeights
	Weights Weights
}

func (n *SimilarityNode) Name() string        { return "rank.similarity" }
func (n *SimilarityNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *SimilarityNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if rctx == nil || len(items) == 0 {
		return items, nil
	}
	w := n.Weights
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	profile := rctx.Profile
	signal := profile.Signal()
	// 排序后的标签只算一次
	var tags []core.TagWeight
	if signal == core.SignalBoth || signal == core.SignalTagsOnly {
		tags = profile.SortedTags()
	}

	for _, it := range items {
		if it == nil || it.Video == nil {
			continue
		}
		var vecSim, tagSim float64
		if signal == core.SignalBoth || signal == core.SignalVectorOnly {
			vecSim = VectorSimilarity(profile.Embedding, it.Video.Embedding)
		}
		if tags != nil {
			tagSim = TagSimilarity(tags, it.Video.Hashtags)
		}
		it.Score = CombineScores(signal, w, vecSim, tagSim)
		if it.Features == nil {
			it.Features = make(map[string]float64, 2)
		}
		it.Features[FeatureVectorSim] = vecSim
		it.Features[FeatureTagSim] = tagSim
		it.PutLabel("rank_signal", utils.Label{Value: signal.String(), Source: "rank"})
	}
	return items, nil
}
