package conv

import (
	"math"
	"reflect"
	"testing"
)

func TestToFloat64(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{1.5, 1.5, true},
		{float32(2), 2, true},
		{3, 3, true},
		{int64(4), 4, true},
		{"0.25", 0.25, true},
		{"abc", 0, false},
		// 非有限值不能进入打分
		{"Inf", 0, false},
		{"-infinity", 0, false},
		{"NaN", 0, false},
		{"1e400", 0, false},
		{math.Inf(1), 0, false},
		{math.NaN(), 0, false},
		{float32(math.Inf(-1)), 0, false},
		{true, 1, true},
		{nil, 0, false},
		{[]int{1}, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToFloat64(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ToFloat64(%v) = %v, %v, want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSliceToFloat64(t *testing.T) {
	got, ok := SliceToFloat64([]any{1, "2", 3.5})
	if !ok || !reflect.DeepEqual(got, []float64{1, 2, 3.5}) {
		t.Errorf("SliceToFloat64() = %v, %v", got, ok)
	}
	if got, ok := SliceToFloat64([]any{1, "Inf"}); ok || got != nil {
		t.Errorf("SliceToFloat64(Inf) = %v, %v; want nil, false", got, ok)
	}
	if got, ok := SliceToFloat64([]any{1, "x"}); ok || got != nil {
		t.Errorf("SliceToFloat64(bad) = %v, %v, want nil, false", got, ok)
	}
}

func TestMapToFloat64(t *testing.T) {
	got := MapToFloat64(map[string]any{"a": "1", "b": 2, "c": "bad"})
	if want := map[string]float64{"a": 1, "b": 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("MapToFloat64() = %v, want %v", got, want)
	}
	if MapToFloat64(nil) != nil {
		t.Error("MapToFloat64(nil) should be nil")
	}
}
