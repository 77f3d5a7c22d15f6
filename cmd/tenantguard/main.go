// Command tenantguard runs the tenant isolation service: HTTP API, audit
// write-behind worker, provisioning worker, and WebSocket event hub.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tenantguardhq/tenantguard/internal/api"
	"github.com/tenantguardhq/tenantguard/internal/config"
	"github.com/tenantguardhq/tenantguard/internal/db"
	"github.com/tenantguardhq/tenantguard/internal/db/migrations"
	"github.com/tenantguardhq/tenantguard/internal/dbpool"
	"github.com/tenantguardhq/tenantguard/internal/isolation"
	"github.com/tenantguardhq/tenantguard/internal/service"
	"github.com/tenantguardhq/tenantguard/internal/store"
	"github.com/tenantguardhq/tenantguard/internal/ws"
)

// version is set at build time via -ldflags.
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("service exited with error")
	}

	log.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		return err
	}

	base := store.Base{Pool: pool, Log: log}
	auditStore := store.NewAuditStore(base)
	provisioningStore := store.NewProvisioningStore(base)
	tenantStore := store.NewTenantStore(base)
	runtimeConfigStore := store.NewRuntimeConfigStore(base)

	hub := ws.NewHub(log)

	// Isolation decisions flow: enforcer -> audit logger -> write-behind
	// worker -> store. The worker keeps audit persistence off request paths.
	auditWorker := service.NewAuditWorker(auditStore, log, cfg.AuditQueueSize)
	auditLogger := service.NewTenantAuditLogger(auditWorker, log)
	enforcer := isolation.NewEnforcer(auditLogger, log)

	orchestrator := service.NewOrchestrator(provisioningStore, tenantStore, runtimeConfigStore, enforcer, hub, log)
	auditService := service.NewAuditService(auditStore, log)

	router := api.NewRouter(ctx, &api.RouterDeps{
		Log:          log,
		Pool:         pool,
		Hub:          hub,
		Audit:        auditService,
		Provisioning: orchestrator,
		CORSOrigins:  cfg.CORSOrigins,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		auditWorker.Run(gctx)
		return nil
	})

	if cfg.EnableProvisionWorker {
		worker := service.NewProvisionWorker(orchestrator, provisioningStore, log, cfg.ProvisionInterval, cfg.ProvisionBatch)
		g.Go(func() error {
			worker.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Addr(),
			"version": version,
		}).Info("tenantguard listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
