// Package store 提供 core.Store / core.KeyValueStore 的实现，以及构建在 KV 之上的
// 画像存储（ProfileStore）与观看历史（ViewHistory）。画像也可以从 Feast 读取（FeastProfileStore）。
//
// 接口定义在 core 包：
//
//	var kv core.KeyValueStore = store.NewMemoryStore()
//	profiles := store.NewProfileStore(kv)
//	history := store.NewViewHistory(kv)
package store

import "fmt"

// ProfileKey 返回画像文档的 key，例如 profile:user:u1。
func ProfileKey(kind, sourceID string) string {
	return fmt.Sprintf("profile:%s:%s", kind, sourceID)
}

// ViewsKey 返回用户观看时间线（有序集合，score 为 unix 秒）的 key。
func ViewsKey(userID string) string {
	return "views:" + userID
}
