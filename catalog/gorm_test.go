package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/rushteam/clipfeed/core"
)

func newSQLiteCatalog(t *testing.T) *GormCatalog {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := OpenSQLite(dsn, "silent")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewGormCatalog(db)
}

func TestGormCatalogContract(t *testing.T) {
	c := newSQLiteCatalog(t)
	ctx := context.Background()
	for _, v := range sampleVideos() {
		if err := c.PutVideo(ctx, v); err != nil {
			t.Fatalf("PutVideo(%s) error = %v", v.ID, err)
		}
	}
	testCatalogContract(t, c)
}

func TestGormCatalogUpsertRebuildsHashtags(t *testing.T) {
	c := newSQLiteCatalog(t)
	ctx := context.Background()

	_ = c.PutVideo(ctx, &core.Video{ID: "v1", Title: "a", UploadedAt: testNow, Hashtags: []string{"math"}})
	_ = c.PutVideo(ctx, &core.Video{ID: "v1", Title: "b", UploadedAt: testNow, Hashtags: []string{"art"}})

	if n, _ := c.CountVideos(ctx, core.VideoFilter{Hashtag: "math"}); n != 0 {
		t.Errorf("stale hashtag still indexed, count = %d", n)
	}
	if n, _ := c.CountVideos(ctx, core.VideoFilter{Hashtag: "art"}); n != 1 {
		t.Errorf("new hashtag not indexed, count = %d", n)
	}
	v, _ := c.GetVideo(ctx, "v1")
	if v.Title != "b" {
		t.Errorf("Title = %q, want b", v.Title)
	}
}

func TestGormCatalogRejectsEmptyID(t *testing.T) {
	c := newSQLiteCatalog(t)
	if err := c.PutVideo(context.Background(), &core.Video{}); !core.IsInvalidInput(err) {
		t.Errorf("PutVideo(empty id) error = %v", err)
	}
}

func TestGormCatalogName(t *testing.T) {
	if got := newSQLiteCatalog(t).Name(); got != "gorm:sqlite" {
		t.Errorf("Name() = %q", got)
	}
}

func TestDatabaseConfigDSN(t *testing.T) {
	dsn := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "clips"}.DSN()
	for _, want := range []string{"host=db", "port=5432", "dbname=clips", "sslmode=disable", "TimeZone=UTC"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN %q missing %q", dsn, want)
		}
	}
}

// 带空白的 hashtag 在内存目录与数据库目录中的匹配结果一致
func TestCatalogsAgreeOnPaddedHashtags(t *testing.T) {
	ctx := context.Background()
	v := &core.Video{ID: "p1", Title: "padded", UploadedAt: testNow, Hashtags: []string{" Physics ", "\tspace"}}

	db := newSQLiteCatalog(t)
	if err := db.PutVideo(ctx, v); err != nil {
		t.Fatalf("PutVideo() error = %v", err)
	}
	backends := map[string]core.Catalog{
		"memory": NewMemoryCatalog(v),
		"sqlite": db,
	}

	tests := []struct {
		tag  string
		want int
	}{
		{"physics", 1},
		{"SPACE", 1},
		{" space ", 1},
		{"phys", 0},
	}
	for name, c := range backends {
		for _, tt := range tests {
			got, err := c.CountVideos(ctx, core.VideoFilter{Hashtag: tt.tag})
			if err != nil {
				t.Fatalf("%s CountVideos(%q) error = %v", name, tt.tag, err)
			}
			if got != tt.want {
				t.Errorf("%s CountVideos(%q) = %d, want %d", name, tt.tag, got, tt.want)
			}
		}
	}
}
