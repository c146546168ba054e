package utils

// Label 是推荐链路中的解释信息：召回来源、命中标签、打分信号等。
// 只用于观测与调试，不参与排序。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rank / rerank
}

// MergeLabel 合并同名 Label，保留历史：
// - Value: 以 '|' 累积
// - Source: 以 ',' 累积（相同来源不重复）
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "" || existing.Source == incoming.Source:
		if incoming.Source != "" {
			merged.Source = incoming.Source
		}
	case incoming.Source == "":
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}
