package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hamed0406/sitewatch/internal/config"
	"github.com/hamed0406/sitewatch/internal/httpapi"
	"github.com/hamed0406/sitewatch/internal/logging"
	"github.com/hamed0406/sitewatch/internal/logstore"
	"github.com/hamed0406/sitewatch/internal/notify"
	"github.com/hamed0406/sitewatch/internal/probe"
	"github.com/hamed0406/sitewatch/internal/registry"
	"github.com/hamed0406/sitewatch/internal/repo"
	"github.com/hamed0406/sitewatch/internal/repo/file"
	pg "github.com/hamed0406/sitewatch/internal/repo/postgres"
	"github.com/hamed0406/sitewatch/internal/repo/sqlite"
	"github.com/hamed0406/sitewatch/internal/scheduler"
)

const shutdownTimeout = 20 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.NewLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("exit", zap.Error(err))
		_ = logger.Sync()
		log.Fatal(err)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SkipTLSVerify {
		logger.Warn("tls_verification_disabled",
			zap.String("detail", "SKIP_TLS_VERIFY=true: certificates of monitored sites are NOT verified"))
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("store_close_failed", zap.Error(err))
		}
	}()

	checker := probe.WithRetries(
		probe.NewHTTPChecker(probe.Options{Timeout: cfg.ProbeTimeout, InsecureSkipVerify: cfg.SkipTLSVerify}),
		cfg.RetryAttempts, cfg.RetryBackoff,
	)
	sched := scheduler.New(scheduler.Deps{
		Registry: registry.New(),
		Logs:     logstore.New(cfg.MaxLogEntries),
		Checker:  checker,
		Store:    store,
		Notifier: notify.NewLog(logger.Named("notify")),
		Ticker:   scheduler.NewCronTicker(logger),
		Logger:   logger,
	})
	if err := sched.Restore(ctx); err != nil {
		// Keep running in memory; a corrupt file snapshot has already been moved aside.
		logger.Error("snapshot_restore_failed", zap.Error(err))
	}

	api := httpapi.NewServer(logger, sched)
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: api.Router(httpapi.RouterOptions{
			AllowedOrigins: cfg.AllowedOrigins,
			RateLimitRPM:   cfg.RateLimitRPM,
			RateLimitBurst: cfg.RateLimitBurst,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api_listen", zap.String("addr", cfg.Addr), zap.String("store", cfg.StoreKind()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown_started")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return multierr.Combine(srv.Shutdown(sctx), sched.Stop(sctx))
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.SnapshotStore, func() error, error) {
	switch cfg.StoreKind() {
	case "postgres":
		s, err := pg.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		return s, func() error { s.Close(); return nil }, nil
	case "sqlite":
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		return s, s.Close, nil
	default:
		return file.New(cfg.DataFile), func() error { return nil }, nil
	}
}
