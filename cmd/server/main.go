package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/agencydesk/agencydesk/internal/api"
	"github.com/agencydesk/agencydesk/internal/config"
	"github.com/agencydesk/agencydesk/internal/domain/maintenance"
	"github.com/agencydesk/agencydesk/internal/domain/tasks"
	"github.com/agencydesk/agencydesk/internal/domain/tenants"
	"github.com/agencydesk/agencydesk/internal/infra/db"
	httpx "github.com/agencydesk/agencydesk/internal/infra/http"
	"github.com/agencydesk/agencydesk/internal/infra/logger"
	"github.com/agencydesk/agencydesk/internal/infra/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func runMigrations(dsn string) error {
	sqlDB, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()
	return goose.Up(sqlDB, "migrations")
}

func main() {
	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	tenantRepo := tenants.NewRepo(pool)
	taskRepo := tasks.NewRepo(pool)
	cycleRepo := maintenance.NewRepo(pool)

	svcOpts := []maintenance.Option{}
	if cfg.Metrics.Enabled {
		svcOpts = append(svcOpts, maintenance.WithMetrics(metrics.New()))
	}
	svc := maintenance.NewService(cycleRepo, tenantRepo, log, svcOpts...)

	router := api.NewRouter(
		api.NewAdminHandler(svc, tenantRepo, taskRepo, log),
		api.NewPortalHandler(svc, tenantRepo, log),
		log,
	)

	srv := httpx.New(cfg.HTTP.Addr, cfg.Metrics.Enabled, router)
	go func() {
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}
