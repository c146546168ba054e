// Package conv 提供类型转换、map/slice 转换等泛型工具，主要用于解析结构松散的画像文档。
package conv

import (
	"math"
	"strconv"
)

// ToFloat64 将 any 转为 float64。
// 支持 float64、float32、各类整型和数字字符串；bool 视为 1.0/0.0。
// NaN 与 ±Inf（包括 "Inf"、"NaN" 这类字符串）视为转换失败。
func ToFloat64(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return finite(val)
	case float32:
		return finite(float64(val))
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	case bool:
		if val {
			return 1.0, true
		}
		return 0.0, true
	default:
		return 0, false
	}
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ConvertMap 将 map[K]V1 按 convert 转为 map[K]V2，convert 返回 false 的条目被跳过。
func ConvertMap[K comparable, V1, V2 any](m map[K]V1, convert func(V1) (V2, bool)) map[K]V2 {
	if m == nil {
		return nil
	}
	out := make(map[K]V2, len(m))
	for k, v := range m {
		if v2, ok := convert(v); ok {
			out[k] = v2
		}
	}
	return out
}

// MapToFloat64 将 map[string]any 转为 map[string]float64，仅保留可转为 float64 的 value。
func MapToFloat64(m map[string]any) map[string]float64 {
	return ConvertMap(m, func(v any) (float64, bool) { return ToFloat64(v) })
}

// ConvertSlice 将 []T 按 convert 转为 []U，convert 返回 false 的元素被跳过。
func ConvertSlice[T, U any](s []T, convert func(T) (U, bool)) []U {
	if s == nil {
		return nil
	}
	out := make([]U, 0, len(s))
	for _, v := range s {
		if u, ok := convert(v); ok {
			out = append(out, u)
		}
	}
	return out
}

// SliceToFloat64 将 []any 转为 []float64。
// 向量必须逐元素可转换，任一元素失败时返回 (nil, false)，避免维度被静默改变。
func SliceToFloat64(s []any) ([]float64, bool) {
	out := ConvertSlice(s, ToFloat64)
	if len(out) != len(s) {
		return nil, false
	}
	return out, true
}
