package rerank

import (
	"context"
	"testing"

	"github.com/rushteam/clipfeed/core"
)

func makeItems(n int) []*core.Item {
	out := make([]*core.Item, n)
	for i := range out {
		out[i] = core.NewItem(string(rune('a' + i)))
	}
	return out
}

func TestTopNNode(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		limit int
		in    int
		want  int
	}{
		{"explicit N", 2, 0, 5, 2},
		{"N wins over limit", 3, 1, 5, 3},
		{"falls back to rctx limit", 0, 4, 5, 4},
		{"fewer items than limit", 0, 10, 3, 3},
		{"no bound", 0, 0, 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := &TopNNode{N: tt.n}
			got, err := node.Process(context.Background(), &core.RecommendContext{Limit: tt.limit}, makeItems(tt.in))
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestTopNNodeKeepsOrder(t *testing.T) {
	got, _ := (&TopNNode{}).Process(context.Background(), &core.RecommendContext{Limit: 2}, makeItems(4))
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("TopN changed order: %s, %s", got[0].ID, got[1].ID)
	}
}
