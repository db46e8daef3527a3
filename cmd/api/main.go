package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/pingmonitor/internal/config"
	"github.com/hamed0406/pingmonitor/internal/httpapi"
	"github.com/hamed0406/pingmonitor/internal/logging"
	"github.com/hamed0406/pingmonitor/internal/metrics"
	"github.com/hamed0406/pingmonitor/internal/notify"
	"github.com/hamed0406/pingmonitor/internal/probe"
	"github.com/hamed0406/pingmonitor/internal/repo"
	"github.com/hamed0406/pingmonitor/internal/repo/postgres"
	"github.com/hamed0406/pingmonitor/internal/repo/sqlite"
	"github.com/hamed0406/pingmonitor/internal/session"
	"github.com/hamed0406/pingmonitor/internal/ws"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store_open_failed", zap.Error(err))
	}
	defer closeStore()

	m := metrics.New()

	var prober probe.Prober = probe.NewPingProber(cfg.PingBinary)
	if cfg.DNSDiagnostics {
		prober = &probe.DiagnosingProber{Inner: prober, Resolver: net.DefaultResolver}
	}

	opts := session.Options{
		StoreTimeout:      cfg.StoreTimeout,
		StopWhenUnwatched: cfg.StopWhenUnwatched,
		Platform:          probe.CurrentPlatform(),
		Metrics:           m,
	}
	var notifiers notify.Multi
	if slack := notify.NewSlack(cfg.SlackWebhook); slack != nil {
		notifiers = append(notifiers, slack)
	}
	if len(notifiers) > 0 {
		opts.Notifier = notifiers
	}
	engine := session.NewEngine(logger, prober, store, opts)
	hub := ws.NewHub(logger, m, cfg.AllowedOrigins)

	api := httpapi.NewServer(logger, engine, hub, store, httpapi.Options{
		Bounds:         cfg.Bounds,
		Metrics:        m,
		StaticDir:      cfg.StaticDir,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown_signal")
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_listen_failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown", zap.Error(err))
	}
	if err := engine.Shutdown(shutdownCtx); err != nil {
		logger.Warn("engine_shutdown", zap.Error(err))
	}
	hub.Close()
	logger.Info("shutdown_complete")
}

// openStore prefers Postgres when DATABASE_URL is set and falls back to the
// sqlite file at DB_PATH.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.ResultStore, func(), error) {
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("store_postgres")
		return pg, pg.Close, nil
	}
	lite, err := sqlite.New(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("store_sqlite", zap.String("path", cfg.DBPath))
	return lite, func() {
		if err := lite.Close(); err != nil {
			logger.Warn("store_close", zap.Error(err))
		}
	}, nil
}
