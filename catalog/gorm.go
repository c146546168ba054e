package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/rushteam/clipfeed/core"
)

// videoRow 是 videos 表的行结构。
// hashtags 保留原始顺序存 JSON；过滤走 video_hashtags 表。
type videoRow struct {
	ID               string         `gorm:"primaryKey;size:64"`
	Title            string         `gorm:"not null;default:''"`
	Description      string         `gorm:"not null;default:''"`
	VideoURL         string         `gorm:"column:video_url"`
	ThumbnailURL     string         `gorm:"column:thumbnail_url"`
	Duration         float64        `gorm:"not null;default:0"`
	UploadedAt       time.Time      `gorm:"not null;index"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime:false"`
	Creator          string         `gorm:"size:128;index"`
	Hashtags         datatypes.JSON `gorm:"column:hashtags"`
	Embedding        datatypes.JSON `gorm:"column:embedding"`
	Views            int64          `gorm:"not null;default:0;index"`
	Likes            int64          `gorm:"not null;default:0"`
	Shares           int64          `gorm:"not null;default:0"`
	Bookmarks        int64          `gorm:"not null;default:0"`
	CompletionRate   float64        `gorm:"not null;default:0"`
	AverageWatchTime float64        `gorm:"not null;default:0"`
}

func (videoRow) TableName() string { return "videos" }

// videoTagRow 是 hashtag 倒排表，tag 统一小写。
type videoTagRow struct {
	VideoID string `gorm:"primaryKey;size:64"`
	Tag     string `gorm:"primaryKey;size:128;index"`
}

func (videoTagRow) TableName() string { return "video_hashtags" }

func toRow(v *core.Video) (*videoRow, error) {
	hashtags, err := json.Marshal(v.Hashtags)
	if err != nil {
		return nil, err
	}
	row := &videoRow{
		ID:               v.ID,
		Title:            v.Title,
		Description:      v.Description,
		VideoURL:         v.VideoURL,
		ThumbnailURL:     v.ThumbnailURL,
		Duration:         v.Duration,
		UploadedAt:       v.UploadedAt,
		UpdatedAt:        v.UpdatedAt,
		Creator:          v.Creator,
		Hashtags:         datatypes.JSON(hashtags),
		Views:            v.Engagement.Views,
		Likes:            v.Engagement.Likes,
		Shares:           v.Engagement.Shares,
		Bookmarks:        v.Engagement.Bookmarks,
		CompletionRate:   v.Engagement.CompletionRate,
		AverageWatchTime: v.Engagement.AverageWatchTime,
	}
	if len(v.Embedding) > 0 {
		emb, err := json.Marshal(v.Embedding)
		if err != nil {
			return nil, err
		}
		row.Embedding = datatypes.JSON(emb)
	}
	return row, nil
}

func (r *videoRow) toVideo() (*core.Video, error) {
	v := &core.Video{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		VideoURL:     r.VideoURL,
		ThumbnailURL: r.ThumbnailURL,
		Duration:     r.Duration,
		UploadedAt:   r.UploadedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		Creator:      r.Creator,
		Engagement: core.Engagement{
			Views:            r.Views,
			Likes:            r.Likes,
			Shares:           r.Shares,
			Bookmarks:        r.Bookmarks,
			CompletionRate:   r.CompletionRate,
			AverageWatchTime: r.AverageWatchTime,
		},
	}
	if v.Creator == "" {
		v.Creator = core.DefaultCreator
	}
	if len(r.Hashtags) > 0 {
		if err := json.Unmarshal(r.Hashtags, &v.Hashtags); err != nil {
			return nil, fmt.Errorf("decode hashtags of %s: %w", r.ID, err)
		}
	}
	if len(r.Embedding) > 0 {
		if err := json.Unmarshal(r.Embedding, &v.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding of %s: %w", r.ID, err)
		}
	}
	return v, nil
}

// DatabaseConfig 是 Postgres 连接配置。
type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode"`
	// LogLevel: silent / error / warn / info
	LogLevel string `koanf:"log_level"`
}

// DSN 返回 Postgres 连接串。
func (c DatabaseConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.DBName, c.Port, sslMode)
}

// GormConfig 根据日志级别返回 gorm 配置。
func GormConfig(level string) *gorm.Config {
	mode := logger.Warn
	switch strings.ToLower(level) {
	case "silent":
		mode = logger.Silent
	case "error":
		mode = logger.Error
	case "info":
		mode = logger.Info
	}
	return &gorm.Config{
		Logger:  logger.Default.LogMode(mode),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// OpenPostgres 打开 Postgres 连接。
func OpenPostgres(cfg DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// OpenSQLite 打开 SQLite 数据库，单机部署与测试使用。
// path 可以是文件路径或 "file::memory:?cache=shared"。
func OpenSQLite(path, logLevel string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), GormConfig(logLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	return db, nil
}

// Migrate 建表与索引。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&videoRow{}, &videoTagRow{})
}

// GormCatalog 是基于 gorm 的目录实现。
// 自然顺序为 id 升序；所有排序都以 id 作为次序键，保证分页稳定。
type GormCatalog struct {
	db *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

var _ core.Catalog = (*GormCatalog)(nil)

func (c *GormCatalog) Name() string { return "gorm:" + c.db.Dialector.Name() }

// Ping 用于健康检查。
func (c *GormCatalog) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *GormCatalog) scoped(ctx context.Context, f core.VideoFilter) *gorm.DB {
	q := c.db.WithContext(ctx).Model(&videoRow{})
	if !f.UploadedSince.IsZero() {
		q = q.Where("uploaded_at >= ?", f.UploadedSince.UTC())
	}
	if f.Hashtag != "" {
		sub := c.db.Model(&videoTagRow{}).Select("video_id").Where("tag = ?", core.NormalizeTag(f.Hashtag))
		q = q.Where("id IN (?)", sub)
	}
	if f.Creator != "" {
		q = q.Where("creator = ?", f.Creator)
	}
	return q
}

func orderClause(o core.OrderBy) string {
	switch o {
	case core.OrderUploadedDesc:
		return "uploaded_at DESC, id ASC"
	case core.OrderViewsDesc:
		return "views DESC, id ASC"
	default:
		return "id ASC"
	}
}

func (c *GormCatalog) CountVideos(ctx context.Context, f core.VideoFilter) (int, error) {
	var n int64
	if err := c.scoped(ctx, f).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count videos: %w", err)
	}
	return int(n), nil
}

func (c *GormCatalog) QueryVideos(ctx context.Context, f core.VideoFilter, orderBy core.OrderBy, offset, limit int) ([]*core.Video, error) {
	if limit <= 0 {
		return nil, nil
	}
	if offset < 0 {
		offset = 0
	}
	var rows []*videoRow
	err := c.scoped(ctx, f).
		Order(orderClause(orderBy)).
		Offset(offset).Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	out := make([]*core.Video, 0, len(rows))
	for _, r := range rows {
		v, err := r.toVideo()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *GormCatalog) GetVideo(ctx context.Context, id string) (*core.Video, error) {
	var row videoRow
	err := c.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrVideoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w", id, err)
	}
	return row.toVideo()
}

// PutVideo 新增或覆盖视频，并重建其 hashtag 倒排。
func (c *GormCatalog) PutVideo(ctx context.Context, v *core.Video) error {
	if v == nil || v.ID == "" {
		return core.NewDomainError(core.ModuleCatalog, core.ErrorCodeInvalidInput, "catalog: video id is required")
	}
	row, err := toRow(normalizeVideo(v))
	if err != nil {
		return fmt.Errorf("encode video %s: %w", v.ID, err)
	}
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error; err != nil {
			return fmt.Errorf("upsert video %s: %w", v.ID, err)
		}
		if err := tx.Where("video_id = ?", v.ID).Delete(&videoTagRow{}).Error; err != nil {
			return fmt.Errorf("clear hashtags of %s: %w", v.ID, err)
		}
		tags := tagSet(v.Hashtags)
		if len(tags) == 0 {
			return nil
		}
		tagRows := make([]videoTagRow, 0, len(tags))
		for _, t := range tags {
			tagRows = append(tagRows, videoTagRow{VideoID: v.ID, Tag: t})
		}
		if err := tx.Create(&tagRows).Error; err != nil {
			return fmt.Errorf("insert hashtags of %s: %w", v.ID, err)
		}
		return nil
	})
}
