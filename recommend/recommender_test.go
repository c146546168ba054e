package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rushteam/clipfeed/catalog"
	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/recall"
	"github.com/rushteam/clipfeed/store"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func video(id string, ageDays int, views int64, tags ...string) *core.Video {
	return &core.Video{
		ID:         id,
		UploadedAt: testNow.Add(-time.Duration(ageDays) * 24 * time.Hour),
		Hashtags:   tags,
		Engagement: core.Engagement{Views: views},
	}
}

func videoIDs(videos []*core.Video) []string {
	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.ID
	}
	return ids
}

func equalIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

type fixture struct {
	catalog  *catalog.MemoryCatalog
	kv       *store.MemoryStore
	profiles *store.ProfileStore
	history  *store.ViewHistory
}

func newFixture(t *testing.T, videos ...*core.Video) *fixture {
	t.Helper()
	kv := store.NewMemoryStore()
	t.Cleanup(func() { _ = kv.Close() })
	return &fixture{
		catalog:  catalog.NewMemoryCatalog(videos...),
		kv:       kv,
		profiles: store.NewProfileStore(kv),
		history:  store.NewViewHistory(kv),
	}
}

func (f *fixture) recommender(t *testing.T, opts ...Option) *Recommender {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return testNow }), WithRand(recall.NewRand(1))}, opts...)
	r, err := New(f.catalog, f.profiles, f.history, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func (f *fixture) putTags(t *testing.T, kind core.SourceKind, id string, tags map[string]float64) {
	t.Helper()
	p := core.NewProfile(kind, id)
	for tag, w := range tags {
		p.SetTagPreference(tag, w)
	}
	if err := f.profiles.PutProfile(context.Background(), p); err != nil {
		t.Fatalf("PutProfile() error = %v", err)
	}
}

// countingCatalog 统计目录调用次数。
type countingCatalog struct {
	core.Catalog
	calls atomic.Int32
}

func (c *countingCatalog) CountVideos(ctx context.Context, f core.VideoFilter) (int, error) {
	c.calls.Add(1)
	return c.Catalog.CountVideos(ctx, f)
}

func (c *countingCatalog) QueryVideos(ctx context.Context, f core.VideoFilter, o core.OrderBy, offset, limit int) ([]*core.Video, error) {
	c.calls.Add(1)
	return c.Catalog.QueryVideos(ctx, f, o, offset, limit)
}

func TestRecommendValidation(t *testing.T) {
	cat := &countingCatalog{Catalog: catalog.NewMemoryCatalog(video("a", 1, 0))}
	r, err := New(cat, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name string
		req  Request
	}{
		{"unknown kind", Request{SourceKind: "group", SourceID: "g1", Limit: 10}},
		{"missing kind", Request{SourceID: "u1", Limit: 10}},
		{"zero limit", Request{SourceKind: core.SourceUser, SourceID: "u1"}},
		{"negative limit", Request{SourceKind: core.SourceClass, SourceID: "c1", Limit: -3}},
	}
	before := testutil.ToFloat64(requestsTotal.WithLabelValues(pathInvalid))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			videos, trace, err := r.RecommendWithTrace(context.Background(), tt.req)
			if !core.IsInvalidInput(err) {
				t.Fatalf("error = %v, want INVALID_INPUT", err)
			}
			if de := core.GetDomainError(err); de.Module != core.ModuleRecommend {
				t.Errorf("module = %s, want %s", de.Module, core.ModuleRecommend)
			}
			if videos != nil || trace != nil {
				t.Errorf("rejected request returned %v, %v", videos, trace)
			}
		})
	}
	if n := cat.calls.Load(); n != 0 {
		t.Errorf("catalog called %d times for invalid requests", n)
	}
	if got := testutil.ToFloat64(requestsTotal.WithLabelValues(pathInvalid)) - before; got != float64(len(tests)) {
		t.Errorf("invalid requests metric delta = %v, want %d", got, len(tests))
	}
}

func TestRecommendNoProfileOldCatalog(t *testing.T) {
	f := newFixture(t, video("a", 400, 0), video("b", 400, 0), video("c", 400, 0))
	videos, trace, err := f.recommender(t).RecommendWithTrace(context.Background(),
		Request{SourceKind: core.SourceUser, SourceID: "nobody", Limit: 10})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(videos) != 3 {
		t.Fatalf("Recommend() = %v, want 3 videos", videoIDs(videos))
	}
	if trace.Signal != core.SignalNone || trace.Returned != 3 {
		t.Errorf("trace = %+v", trace)
	}
}

func TestRecommendFallbackWindows(t *testing.T) {
	var videos []*core.Video
	for i := range 30 {
		videos = append(videos, video(fmt.Sprintf("v%02d", i), i*10, int64(i)))
	}
	f := newFixture(t, videos...)
	got, trace, err := f.recommender(t).RecommendWithTrace(context.Background(),
		Request{SourceKind: core.SourceClass, SourceID: "c1", Limit: 10})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(got) != 10 {
		t.Errorf("Recommend() returned %d, want 10", len(got))
	}
	if len(trace.Windows) < 3 {
		t.Fatalf("trace windows = %+v", trace.Windows)
	}
	want := []int{7, 4, 2}
	for i, w := range trace.Windows[:3] {
		if w.SubQuota != want[i] {
			t.Errorf("window %s sub quota = %d, want %d", w.Window, w.SubQuota, want[i])
		}
	}
	if len(trace.Subsets) != 0 {
		t.Errorf("fallback path should not read candidate subsets")
	}
}

func signalFixture(t *testing.T) *fixture {
	f := newFixture(t,
		video("m1", 1, 10, "math"),
		video("m2", 2, 500, "Math", "algebra"),
		video("s1", 1, 1000, "science"),
		video("watched", 1, 5, "math"),
		video("stale", 3, 50, "math"),
	)
	f.putTags(t, core.SourceUser, "u1", map[string]float64{"math": 1})
	ctx := context.Background()
	if err := f.history.RecordView(ctx, "u1", "watched", testNow.Add(-10*time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := f.history.RecordView(ctx, "u1", "stale", testNow.Add(-2*time.Hour)); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestRecommendSignalPath(t *testing.T) {
	f := signalFixture(t)
	videos, trace, err := f.recommender(t).RecommendWithTrace(context.Background(),
		Request{SourceKind: core.SourceUser, SourceID: "u1", UserID: "u1", Limit: 3})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	// 三个 math 视频同分，按播放数排序；watched 在 1 小时内看过被排除
	if want := []string{"m2", "stale", "m1"}; !equalIDs(videoIDs(videos), want) {
		t.Fatalf("Recommend() = %v, want %v", videoIDs(videos), want)
	}
	if trace.Signal != core.SignalTagsOnly {
		t.Errorf("signal = %v, want tags_only", trace.Signal)
	}
	if trace.ExclusionSize != 1 || trace.ExclusionFailed {
		t.Errorf("exclusion = %d failed=%v", trace.ExclusionSize, trace.ExclusionFailed)
	}
	if len(trace.Subsets) != 3 || trace.Subsets[0].Source != "recall.recent" {
		t.Errorf("subsets = %+v", trace.Subsets)
	}
	if trace.PoolSize != 4 || trace.Returned != 3 {
		t.Errorf("pool = %d returned = %d, want 4 and 3", trace.PoolSize, trace.Returned)
	}
}

func TestRecommendExclusionOnlyForUser(t *testing.T) {
	f := signalFixture(t)
	// 没有 UserID 时不排除
	videos, err := f.recommender(t).Recommend(context.Background(),
		Request{SourceKind: core.SourceUser, SourceID: "u1", Limit: 10})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(videos) != 5 {
		t.Errorf("Recommend() = %v, want all 5", videoIDs(videos))
	}
}

func TestRecommendScoreBlending(t *testing.T) {
	a := video("a", 1, 0, "math")
	a.Embedding = []float64{1, 0}
	b := video("b", 1, 0, "math")
	b.Embedding = []float64{0, 1}
	c := video("c", 1, 0)
	c.Embedding = []float64{1, 0}
	d := video("d", 1, 0)

	f := newFixture(t, a, b, c, d)
	p := core.NewProfile(core.SourceClass, "c1")
	p.Embedding = []float64{2, 0}
	p.SetTagPreference("math", 1)
	if err := f.profiles.PutProfile(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	videos, trace, err := f.recommender(t).RecommendWithTrace(context.Background(),
		Request{SourceKind: core.SourceClass, SourceID: "c1", Limit: 10})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	// a = 0.7+0.3, c = 0.7, b = 0.3, d = 0
	if want := []string{"a", "c", "b", "d"}; !equalIDs(videoIDs(videos), want) {
		t.Errorf("Recommend() = %v, want %v", videoIDs(videos), want)
	}
	if trace.Signal != core.SignalBoth {
		t.Errorf("signal = %v, want both", trace.Signal)
	}
}

func TestRecommendBoundEqualsLimit(t *testing.T) {
	var videos []*core.Video
	for i := range 40 {
		videos = append(videos, video(fmt.Sprintf("v%02d", i), 1, int64(i), "math"))
	}
	f := newFixture(t, videos...)
	f.putTags(t, core.SourceUser, "u1", map[string]float64{"math": 1})
	r := f.recommender(t)
	for _, limit := range []int{1, 7, 40, 100} {
		got, err := r.Recommend(context.Background(), Request{SourceKind: core.SourceUser, SourceID: "u1", Limit: limit})
		if err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
		if want := min(limit, 40); len(got) != want {
			t.Errorf("limit %d: returned %d, want %d", limit, len(got), want)
		}
	}
}

type failingProfiles struct{}

func (failingProfiles) GetProfile(context.Context, core.SourceKind, string) (*core.Profile, error) {
	return nil, errors.New("redis: connection refused")
}

type failingHistory struct{}

func (failingHistory) GetRecentViews(context.Context, string, time.Time) ([]string, error) {
	return nil, errors.New("redis: i/o timeout")
}

func TestRecommendProfileFailureDegrades(t *testing.T) {
	cat := catalog.NewMemoryCatalog(video("a", 1, 0), video("b", 2, 0))
	r, err := New(cat, failingProfiles{}, nil, WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	before := testutil.ToFloat64(degradedTotal.WithLabelValues("profile"))
	videos, trace, err := r.RecommendWithTrace(context.Background(),
		Request{SourceKind: core.SourceUser, SourceID: "u1", Limit: 5})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(videos) != 2 {
		t.Errorf("Recommend() = %v, want fallback results", videoIDs(videos))
	}
	if trace.ProfileErr == "" || trace.Signal != core.SignalNone {
		t.Errorf("trace = %+v", trace)
	}
	if got := testutil.ToFloat64(degradedTotal.WithLabelValues("profile")) - before; got != 1 {
		t.Errorf("profile degraded delta = %v, want 1", got)
	}
}

func TestRecommendExclusionFailOpen(t *testing.T) {
	f := signalFixture(t)
	r, err := New(f.catalog, f.profiles, failingHistory{}, WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	videos, trace, err := r.RecommendWithTrace(context.Background(),
		Request{SourceKind: core.SourceUser, SourceID: "u1", UserID: "u1", Limit: 10})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if !trace.ExclusionFailed || trace.ExclusionSize != 0 {
		t.Errorf("trace = %+v", trace)
	}
	if len(videos) != 5 {
		t.Errorf("fail-open should keep watched videos, got %v", videoIDs(videos))
	}
}

// popularFailCatalog 让按播放数排序的查询失败。
type popularFailCatalog struct{ core.Catalog }

func (c popularFailCatalog) QueryVideos(ctx context.Context, f core.VideoFilter, o core.OrderBy, offset, limit int) ([]*core.Video, error) {
	if o == core.OrderViewsDesc {
		return nil, errors.New("statement timeout")
	}
	return c.Catalog.QueryVideos(ctx, f, o, offset, limit)
}

func TestRecommendSubsetFailure(t *testing.T) {
	f := signalFixture(t)
	r, err := New(popularFailCatalog{f.catalog}, f.profiles, f.history, WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	before := testutil.ToFloat64(subsetFailuresTotal.WithLabelValues("recall.popular"))
	videos, trace, err := r.RecommendWithTrace(context.Background(),
		Request{SourceKind: core.SourceUser, SourceID: "u1", UserID: "u1", Limit: 10})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(videos) != 4 {
		t.Errorf("Recommend() = %v, want 4 from remaining subsets", videoIDs(videos))
	}
	if trace.Subsets[1].Err == "" {
		t.Errorf("popular subset should record its error: %+v", trace.Subsets[1])
	}
	if got := testutil.ToFloat64(subsetFailuresTotal.WithLabelValues("recall.popular")) - before; got != 1 {
		t.Errorf("subset failure delta = %v, want 1", got)
	}
}

func TestRecommendCandidateFilters(t *testing.T) {
	f := signalFixture(t)
	cfg := DefaultConfig()
	cfg.BlockedVideoIDs = []string{"m2"}
	cfg.CandidateFilter = `item.views < 1000`
	videos, err := f.recommender(t, WithConfig(cfg)).Recommend(context.Background(),
		Request{SourceKind: core.SourceUser, SourceID: "u1", UserID: "u1", Limit: 10})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if want := []string{"stale", "m1"}; !equalIDs(videoIDs(videos), want) {
		t.Errorf("Recommend() = %v, want %v", videoIDs(videos), want)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	tests := []struct {
		name string
		cfg  func(*Config)
	}{
		{"filter syntax", func(c *Config) { c.CandidateFilter = "item.views >" }},
		{"weight range", func(c *Config) { c.VectorWeight = 1.5 }},
		{"window span", func(c *Config) { c.FallbackWindows = []recall.Window{{Name: "7d", Probability: 0.5}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.cfg(&cfg)
			if _, err := New(cat, nil, nil, WithConfig(cfg)); err == nil {
				t.Error("New() should fail")
			}
		})
	}
	if _, err := New(nil, nil, nil); err == nil {
		t.Error("New() without catalog should fail")
	}
}

func TestRecommendCanceledContext(t *testing.T) {
	f := signalFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	videos, err := f.recommender(t).Recommend(ctx, Request{SourceKind: core.SourceUser, SourceID: "u1", Limit: 5})
	if err != nil {
		t.Fatalf("canceled request should degrade, got %v", err)
	}
	if len(videos) != 0 {
		t.Errorf("Recommend() = %v, want empty", videoIDs(videos))
	}
}
