package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baharkarakas/loyalty-admin/internal/api"
	"github.com/baharkarakas/loyalty-admin/internal/auth"
	"github.com/baharkarakas/loyalty-admin/internal/config"
	"github.com/baharkarakas/loyalty-admin/internal/db"
	"github.com/baharkarakas/loyalty-admin/internal/logger"
	"github.com/baharkarakas/loyalty-admin/internal/metrics"
	"github.com/baharkarakas/loyalty-admin/internal/repository/postgres"
	"github.com/baharkarakas/loyalty-admin/internal/services"
	"github.com/baharkarakas/loyalty-admin/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, 10)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			return err
		}
		log.Info("migrations applied")
	}

	repos := postgres.NewRepositories(pool)
	wp := worker.NewPool(cfg.WorkerCount)
	defer wp.Stop()

	metrics.Init()
	userSvc := services.NewUserService(repos.Users)
	recordSvc := services.NewRecordService(repos.Records, repos.Users, repos.AuditLogs, wp)
	if err := userSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}

	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	r := api.NewRouter(cfg, api.RouterDeps{TM: tm, Users: userSvc, Records: recordSvc})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
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
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
