// clipfeed 是视频推荐服务：
//
//	GET /v1/videos?source_kind=user&source_id=u1&user_id=u1&limit=10
//	GET /healthz
//	GET /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rushteam/clipfeed/config"
	"github.com/rushteam/clipfeed/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (default: $CLIPFEED_CONFIG or ./clipfeed.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "clipfeed: %v\n", err)
		os.Exit(1)
	}
	logging.Init(cfg.Log)

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("clipfeed exited")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      a.handler.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Server.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
