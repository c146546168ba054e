package catalog

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/clipfeed/core"
)

// Fixtures 是开发环境的种子数据（YAML）。
//
//	videos:
//	  - id: v1
//	    title: Intro to Physics
//	    ageDays: 3            # 相对加载时间，与 uploadedAt 二选一
//	    hashtags: [physics, science]
//	    embedding: [1, 0]
//	    engagement: {views: 120, likes: 8}
//	profiles:
//	  - kind: user
//	    id: u1
//	    tagPreferences: {physics: 2}
//	views:
//	  - user: u1
//	    video: v1
//	    minutesAgo: 20
type Fixtures struct {
	Videos   []VideoFixture   `yaml:"videos"`
	Profiles []ProfileFixture `yaml:"profiles"`
	Views    []ViewFixture    `yaml:"views"`
}

type VideoFixture struct {
	ID           string          `yaml:"id"`
	Title        string          `yaml:"title"`
	Description  string          `yaml:"description"`
	VideoURL     string          `yaml:"videoUrl"`
	ThumbnailURL string          `yaml:"thumbnailUrl"`
	Duration     float64         `yaml:"duration"`
	UploadedAt   time.Time       `yaml:"uploadedAt"`
	AgeDays      float64         `yaml:"ageDays"`
	Creator      string          `yaml:"creator"`
	Hashtags     []string        `yaml:"hashtags"`
	Embedding    []float64       `yaml:"embedding"`
	Engagement   core.Engagement `yaml:"engagement"`
}

type ProfileFixture struct {
	Kind           core.SourceKind    `yaml:"kind"`
	ID             string             `yaml:"id"`
	Embedding      []float64          `yaml:"embedding"`
	TagPreferences map[string]float64 `yaml:"tagPreferences"`
}

type ViewFixture struct {
	User       string  `yaml:"user"`
	Video      string  `yaml:"video"`
	MinutesAgo float64 `yaml:"minutesAgo"`
}

// VideoWriter 由可写目录实现（MemoryCatalog、GormCatalog）。
type VideoWriter interface {
	PutVideo(ctx context.Context, v *core.Video) error
}

// ProfileWriter 由 store.ProfileStore 实现。
type ProfileWriter interface {
	PutProfile(ctx context.Context, p *core.Profile) error
}

// ViewWriter 由 store.ViewHistory 实现。
type ViewWriter interface {
	RecordView(ctx context.Context, userID, videoID string, at time.Time) error
}

// DecodeFixtures 解析 YAML。
func DecodeFixtures(r io.Reader) (*Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	for i, p := range f.Profiles {
		if !p.Kind.Valid() {
			return nil, fmt.Errorf("fixtures: profile %d has invalid kind %q", i, p.Kind)
		}
	}
	return &f, nil
}

// LoadFixtures 从文件读取 fixtures。
func LoadFixtures(path string) (*Fixtures, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixtures: %w", err)
	}
	defer fp.Close()
	return DecodeFixtures(fp)
}

// VideosAt 把视频 fixture 转成目录记录，ageDays 相对 now 计算。
func (f *Fixtures) VideosAt(now time.Time) []*core.Video {
	out := make([]*core.Video, 0, len(f.Videos))
	for _, vf := range f.Videos {
		uploaded := vf.UploadedAt
		if uploaded.IsZero() {
			uploaded = now.Add(-time.Duration(vf.AgeDays * float64(24*time.Hour)))
		}
		out = append(out, &core.Video{
			ID:           vf.ID,
			Title:        vf.Title,
			Description:  vf.Description,
			VideoURL:     vf.VideoURL,
			ThumbnailURL: vf.ThumbnailURL,
			Duration:     vf.Duration,
			UploadedAt:   uploaded,
			UpdatedAt:    uploaded,
			Creator:      vf.Creator,
			Hashtags:     vf.Hashtags,
			Embedding:    vf.Embedding,
			Engagement:   vf.Engagement,
		})
	}
	return out
}

// Seed 把 fixtures 写入目录与存储。profiles / views 为 nil 时跳过对应部分。
func (f *Fixtures) Seed(ctx context.Context, now time.Time, videos VideoWriter, profiles ProfileWriter, views ViewWriter) error {
	for _, v := range f.VideosAt(now) {
		if err := videos.PutVideo(ctx, v); err != nil {
			return fmt.Errorf("seed video %s: %w", v.ID, err)
		}
	}
	if profiles != nil {
		for _, pf := range f.Profiles {
			p := core.NewProfile(pf.Kind, pf.ID)
			p.Embedding = pf.Embedding
			for tag, w := range pf.TagPreferences {
				p.SetTagPreference(tag, w)
			}
			p.UpdateTime = now
			if err := profiles.PutProfile(ctx, p); err != nil {
				return fmt.Errorf("seed profile %s/%s: %w", pf.Kind, pf.ID, err)
			}
		}
	}
	if views != nil {
		for _, vw := range f.Views {
			at := now.Add(-time.Duration(vw.MinutesAgo * float64(time.Minute)))
			if err := views.RecordView(ctx, vw.User, vw.Video, at); err != nil {
				return fmt.Errorf("seed view %s/%s: %w", vw.User, vw.Video, err)
			}
		}
	}
	return nil
}
