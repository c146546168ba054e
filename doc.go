// Package clipfeed 是短视频推荐核心：给定用户或班级，返回按个性化程度排序的视频列表。
//
// 请求处理分两条路径：
//   - 画像有向量或标签偏好：多路召回（最近上传、热门、偏好标签）合并去重，
//     排除最近看过的视频，按 0.7*向量相似度 + 0.3*标签匹配 打分并截断
//   - 画像为空：按 7 天 / 30 天 / 365 天时间窗加权随机抽样兜底
//
// 除参数错误外，任何依赖故障都只会降级（空画像、空排除集、空结果），不会让请求失败。
//
// 包结构：
//
//	core       领域类型与接口（Video、Profile、Catalog、Trace）
//	catalog    视频目录实现（内存 / gorm）与熔断装饰器
//	store      KV 存储（内存 / Redis）、画像与观看历史、Feast 画像
//	recall     召回源、并发合并与兜底抽样
//	filter     排除集、黑名单、表达式过滤
//	rank       相似度打分与排序
//	rerank     截断
//	pipeline   Node 串联执行
//	recommend  请求入口：参数校验、画像解析、路径选择
//	config     koanf 分层配置
//	cmd/clipfeed  HTTP 服务
package clipfeed

import (
	"github.com/rushteam/clipfeed/pipeline"
	"github.com/rushteam/clipfeed/recommend"
)

// 轻量 facade：便于直接 import "clipfeed" 使用核心抽象。
type (
	Recommender = recommend.Recommender
	Request     = recommend.Request
	Pipeline    = pipeline.Pipeline
	Node        = pipeline.Node
)

// New 创建推荐器，等同于 recommend.New。
var New = recommend.New
