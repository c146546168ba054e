package main

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rushteam/clipfeed/catalog"
	"github.com/rushteam/clipfeed/config"
	"github.com/rushteam/clipfeed/core"
	"github.com/rushteam/clipfeed/pkg/logging"
	"github.com/rushteam/clipfeed/recommend"
	"github.com/rushteam/clipfeed/store"
)

// app 持有服务运行期间的全部依赖。
type app struct {
	handler *handler
	closers []func() error
}

// writableCatalog 是可以写入 fixtures 的目录。
type writableCatalog interface {
	core.Catalog
	catalog.VideoWriter
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	checks := map[string]func(context.Context) error{}

	// KV：配置了 Redis 地址就用 Redis，否则用内存
	var kv core.KeyValueStore
	if cfg.Redis.Addr != "" {
		rs, err := store.NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		kv = rs
		checks["redis"] = rs.Ping
	} else {
		kv = store.NewMemoryStore()
	}
	a.closers = append(a.closers, kv.Close)

	base, err := a.openCatalog(cfg.Catalog, checks)
	if err != nil {
		a.Close()
		return nil, err
	}

	history := store.NewViewHistory(kv, store.WithRetention(cfg.History.Retention))
	if history.Retention() < cfg.Recommend.ExclusionWindow {
		logging.Warn().
			Dur("retention", history.Retention()).
			Dur("exclusion_window", cfg.Recommend.ExclusionWindow).
			Msg("view retention shorter than exclusion window")
	}
	profiles, profileWriter, err := a.openProfiles(cfg.Profiles, kv)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Catalog.Fixtures != "" {
		fx, err := catalog.LoadFixtures(cfg.Catalog.Fixtures)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := fx.Seed(ctx, time.Now(), base, profileWriter, history); err != nil {
			a.Close()
			return nil, err
		}
		logging.Info().
			Str("path", cfg.Catalog.Fixtures).
			Int("videos", len(fx.Videos)).
			Int("profiles", len(fx.Profiles)).
			Msg("fixtures seeded")
	}

	rec, err := recommend.New(
		catalog.NewBreakerCatalog(base, cfg.Catalog.Breaker),
		profiles,
		history,
		recommend.WithConfig(cfg.Recommend),
		recommend.WithLogger(logging.WithComponent("recommend")),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	httpLogger := logging.WithComponent("http")
	a.handler = &handler{
		rec:            rec,
		defaultLimit:   cfg.Server.DefaultLimit,
		maxLimit:       cfg.Server.MaxLimit,
		requestTimeout: cfg.Server.RequestTimeout,
		logger:         &httpLogger,
		checks:         checks,
	}
	logging.Info().
		Str("catalog", base.Name()).
		Str("kv", kv.Name()).
		Str("profiles", cfg.Profiles.Driver).
		Dur("exclusion_window", rec.Config().ExclusionWindow).
		Msg("recommender ready")
	return a, nil
}

func (a *app) openCatalog(cfg config.CatalogConfig, checks map[string]func(context.Context) error) (writableCatalog, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err = catalog.OpenSQLite(cfg.SQLitePath, cfg.Postgres.LogLevel)
	case config.DriverPostgres:
		db, err = catalog.OpenPostgres(cfg.Postgres)
	default:
		return catalog.NewMemoryCatalog(), nil
	}
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	if cfg.AutoMigrate {
		if err := catalog.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate catalog: %w", err)
		}
	}
	gc := catalog.NewGormCatalog(db)
	checks["catalog"] = gc.Ping
	return gc, nil
}

// openProfiles 返回画像读取端与 fixtures 写入端。Feast 由物化任务写入，写入端为 nil。
func (a *app) openProfiles(cfg config.ProfilesConfig, kv core.Store) (core.ProfileStore, catalog.ProfileWriter, error) {
	if cfg.Driver != config.ProfilesFeast {
		ps := store.NewProfileStore(kv)
		return ps, ps, nil
	}
	if cfg.Feast.Host == "" {
		return nil, nil, fmt.Errorf("profiles.feast.host is required when profiles.driver is feast")
	}
	fs, err := store.DialFeast(cfg.Feast)
	if err != nil {
		return nil, nil, err
	}
	a.closers = append(a.closers, fs.Close)
	return fs, nil, nil
}

// Close 按创建的逆序释放资源。
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.Warn().Err(err).Msg("close failed")
		}
	}
	a.closers = nil
}
