package core

import (
	"math"
	"sort"
	"strings"
	"time"
)

// SourceKind 是推荐对象的类型：用户或班级。
type SourceKind string

const (
	SourceUser  SourceKind = "user"
	SourceClass SourceKind = "class"
)

// Valid 判断 SourceKind 是否受支持。
func (k SourceKind) Valid() bool {
	return k == SourceUser || k == SourceClass
}

// Signal 描述画像中可用的个性化信号，由 Profile.Signal 一次性推导。
type Signal int

const (
	SignalNone       Signal = iota // 无向量、无标签偏好：走随机兜底
	SignalVectorOnly               // 只有向量
	SignalTagsOnly                 // 只有标签偏好
	SignalBoth                     // 两者都有
)

func (s Signal) String() string {
	switch s {
	case SignalVectorOnly:
		return "vector_only"
	case SignalTagsOnly:
		return "tags_only"
	case SignalBoth:
		return "both"
	default:
		return "none"
	}
}

// Profile 是推荐对象（用户或班级）的预计算画像。
//
//	维度            作用
//	Embedding       向量相似度
//	TagPreferences  标签重合度、标签召回
//
// 两者都为空是合法状态，表示"没有信号"。
type Profile struct {
	Kind     SourceKind
	SourceID string

	// Embedding 是定长数值向量，可能为空
	Embedding []float64

	// TagPreferences: key 为小写标签，value 为非负权重
	TagPreferences map[string]float64

	UpdateTime time.Time
}

// NewProfile 创建一个空画像。
func NewProfile(kind SourceKind, sourceID string) *Profile {
	return &Profile{
		Kind:           kind,
		SourceID:       sourceID,
		TagPreferences: make(map[string]float64),
	}
}

// Signal 返回画像的信号类型。nil 画像视为无信号。
func (p *Profile) Signal() Signal {
	if p == nil {
		return SignalNone
	}
	hasVec := len(p.Embedding) > 0
	hasTags := len(p.TagPreferences) > 0
	switch {
	case hasVec && hasTags:
		return SignalBoth
	case hasVec:
		return SignalVectorOnly
	case hasTags:
		return SignalTagsOnly
	default:
		return SignalNone
	}
}

// SetTagPreference 写入标签偏好；标签按 NormalizeTag 规范化，负权重按 0 处理，同名标签权重累加。
// NaN 与 ±Inf 权重被忽略，累加溢出时截断为 math.MaxFloat64。
func (p *Profile) SetTagPreference(tag string, weight float64) {
	if p.TagPreferences == nil {
		p.TagPreferences = make(map[string]float64)
	}
	tag = NormalizeTag(tag)
	if tag == "" || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return
	}
	if weight < 0 {
		weight = 0
	}
	sum := p.TagPreferences[tag] + weight
	if math.IsInf(sum, 1) {
		sum = math.MaxFloat64
	}
	p.TagPreferences[tag] = sum
}

// TagWeight 是一个带权标签。
type TagWeight struct {
	Tag    string
	Weight float64
}

// SortedTags 返回按权重降序排列的标签；权重相同按标签字典序，保证结果稳定。
func (p *Profile) SortedTags() []TagWeight {
	if p == nil || len(p.TagPreferences) == 0 {
		return nil
	}
	out := make([]TagWeight, 0, len(p.TagPreferences))
	for tag, w := range p.TagPreferences {
		out = append(out, TagWeight{Tag: strings.ToLower(tag), Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// TopTags 返回权重最高的 n 个标签。
func (p *Profile) TopTags(n int) []TagWeight {
	tags := p.SortedTags()
	if n >= 0 && len(tags) > n {
		tags = tags[:n]
	}
	return tags
}
