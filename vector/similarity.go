// Package vector 提供稠密向量的相似度计算。
package vector

import "math"

// Dot 计算点积，长度不一致时返回 0。
func Dot(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm 计算 L2 范数。
func Norm(a []float64) float64 {
	sum := 0.0
	for _, v := range a {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// IsFinite 判断向量中是否没有 NaN 与 ±Inf。
func IsFinite(a []float64) bool {
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// maxAbs 返回最大绝对值；含 NaN 时返回 NaN。
func maxAbs(a []float64) float64 {
	m := 0.0
	for _, v := range a {
		m = math.Max(m, math.Abs(v))
	}
	return m
}

// Cosine 计算余弦相似度，取值 [-1, 1]。
// 任一向量为空、维度不一致、模长为 0 或含非有限值时返回 0。
// 两个向量先各自按最大绝对值缩放，分量极大或极小时平方和不会溢出。
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	sa, sb := maxAbs(a), maxAbs(b)
	if sa == 0 || sb == 0 || math.IsNaN(sa) || math.IsNaN(sb) || math.IsInf(sa, 0) || math.IsInf(sb, 0) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := a[i]/sa, b[i]/sb
		dot += x * y
		normA += x * x
		normB += y * y
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return 0
	}
	// 浮点误差可能略微越界
	return math.Max(-1, math.Min(1, sim))
}
