package rank

import (
	"context"
	"testing"

	"github.com/rushteam/clipfeed/core"
)

func scored(id string, score float64, views int64) *core.Item {
	it := core.NewVideoItem(&core.Video{ID: id, Engagement: core.Engagement{Views: views}})
	it.Score = score
	return it
}

func TestOrderNode(t *testing.T) {
	items := []*core.Item{
		scored("low", 0.1, 5000),
		scored("tie-few-views", 0.5, 10),
		nil,
		scored("tie-many-views", 0.5, 1000),
		scored("top", 0.9, 0),
	}
	got, err := (&OrderNode{}).Process(context.Background(), nil, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	want := []string{"top", "tie-many-views", "tie-few-views", "low"}
	for i, id := range want {
		if got[i] == nil || got[i].ID != id {
			t.Fatalf("position %d = %v, want %s", i, got[i], id)
		}
	}
	if got[4] != nil {
		t.Errorf("nil item should sort last")
	}
}

func TestOrderNodeStableOnFullTie(t *testing.T) {
	items := []*core.Item{scored("first", 0.5, 7), scored("second", 0.5, 7)}
	SortItems(items)
	if items[0].ID != "first" || items[1].ID != "second" {
		t.Errorf("full tie should keep admission order, got %s, %s", items[0].ID, items[1].ID)
	}
}
