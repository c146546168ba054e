package catalog

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rushteam/clipfeed/core"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time { return testNow.AddDate(0, 0, -d) }

// sampleVideos 是各目录实现共用的测试数据
func sampleVideos() []*core.Video {
	return []*core.Video{
		{ID: "v1", Title: "Waves", UploadedAt: daysAgo(1), Creator: "users/alice", Hashtags: []string{"Physics", "waves"}, Embedding: []float64{1, 0}, Engagement: core.Engagement{Views: 50}},
		{ID: "v2", Title: "Acids", UploadedAt: daysAgo(10), Creator: "users/bob", Hashtags: []string{"chemistry"}, Engagement: core.Engagement{Views: 500}},
		{ID: "v3", Title: "Orbits", UploadedAt: daysAgo(40), Hashtags: []string{"physics", "space", "physics"}, Engagement: core.Engagement{Views: 500}},
		{ID: "v4", Title: "Poems", UploadedAt: daysAgo(400), Creator: "users/alice", Engagement: core.Engagement{Views: 5}},
	}
}

func ids(vs []*core.Video) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// testCatalogContract 校验 core.Catalog 的查询语义，c 需已写入 sampleVideos
func testCatalogContract(t *testing.T, c core.Catalog) {
	ctx := context.Background()

	countTests := []struct {
		name   string
		filter core.VideoFilter
		want   int
	}{
		{"all", core.VideoFilter{}, 4},
		{"last 7 days", core.VideoFilter{UploadedSince: daysAgo(7)}, 1},
		{"last 30 days", core.VideoFilter{UploadedSince: daysAgo(30)}, 2},
		{"hashtag case insensitive", core.VideoFilter{Hashtag: "PHYSICS"}, 2},
		{"hashtag padded", core.VideoFilter{Hashtag: " physics\t"}, 2},
		{"hashtag blank", core.VideoFilter{Hashtag: "  "}, 0},
		{"hashtag and window", core.VideoFilter{Hashtag: "physics", UploadedSince: daysAgo(30)}, 1},
		{"creator", core.VideoFilter{Creator: "users/alice"}, 2},
		{"default creator", core.VideoFilter{Creator: core.DefaultCreator}, 1},
		{"no match", core.VideoFilter{Hashtag: "cooking"}, 0},
	}
	for _, tt := range countTests {
		t.Run("count/"+tt.name, func(t *testing.T) {
			got, err := c.CountVideos(ctx, tt.filter)
			if err != nil {
				t.Fatalf("CountVideos() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CountVideos() = %d, want %d", got, tt.want)
			}
		})
	}

	queryTests := []struct {
		name          string
		filter        core.VideoFilter
		order         core.OrderBy
		offset, limit int
		want          []string
	}{
		{"natural", core.VideoFilter{}, core.OrderNatural, 0, 10, []string{"v1", "v2", "v3", "v4"}},
		{"natural page", core.VideoFilter{}, core.OrderNatural, 1, 2, []string{"v2", "v3"}},
		{"offset past end", core.VideoFilter{}, core.OrderNatural, 9, 2, nil},
		{"zero limit", core.VideoFilter{}, core.OrderNatural, 0, 0, nil},
		// offset+limit 超出 int 范围时取到末尾
		{"max int limit", core.VideoFilter{}, core.OrderNatural, 2, math.MaxInt, []string{"v3", "v4"}},
		{"newest first", core.VideoFilter{}, core.OrderUploadedDesc, 0, 3, []string{"v1", "v2", "v3"}},
		{"newest in window", core.VideoFilter{UploadedSince: daysAgo(30)}, core.OrderUploadedDesc, 0, 50, []string{"v1", "v2"}},
		{"views desc ties by id", core.VideoFilter{}, core.OrderViewsDesc, 0, 4, []string{"v2", "v3", "v1", "v4"}},
		{"by hashtag", core.VideoFilter{Hashtag: "physics"}, core.OrderNatural, 0, 20, []string{"v1", "v3"}},
	}
	for _, tt := range queryTests {
		t.Run("query/"+tt.name, func(t *testing.T) {
			got, err := c.QueryVideos(ctx, tt.filter, tt.order, tt.offset, tt.limit)
			if err != nil {
				t.Fatalf("QueryVideos() error = %v", err)
			}
			if !equalIDs(ids(got), tt.want) {
				t.Errorf("QueryVideos() = %v, want %v", ids(got), tt.want)
			}
		})
	}

	t.Run("get", func(t *testing.T) {
		v, err := c.GetVideo(ctx, "v3")
		if err != nil {
			t.Fatalf("GetVideo() error = %v", err)
		}
		if v.Title != "Orbits" || v.Creator != core.DefaultCreator || v.Engagement.Views != 500 {
			t.Errorf("GetVideo() = %+v", v)
		}
		if len(v.Hashtags) != 3 {
			t.Errorf("hashtags should keep original order and duplicates, got %v", v.Hashtags)
		}
		if !v.UploadedAt.Equal(daysAgo(40)) {
			t.Errorf("UploadedAt = %v, want %v", v.UploadedAt, daysAgo(40))
		}
		v1, _ := c.GetVideo(ctx, "v1")
		if len(v1.Embedding) != 2 || v1.Embedding[0] != 1 {
			t.Errorf("Embedding = %v", v1.Embedding)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		if _, err := c.GetVideo(ctx, "nope"); !core.IsNotFound(err) {
			t.Errorf("GetVideo(missing) error = %v, want not found", err)
		}
	})
}
