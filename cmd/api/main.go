package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/config"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/database"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/database/migration"
	handlers "github.com/nivi333/lavoro-ai-ferri-sub003/internal/http/handler"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/http/middleware"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/metrics"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/otel"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/repository/postgres"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/service"
	"github.com/nivi333/lavoro-ai-ferri-sub003/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	loc := time.UTC
	if tz := os.Getenv("APP_TIMEZONE"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			log.Fatalf("invalid APP_TIMEZONE %q: %v", tz, err)
		}
		loc = l
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracerShutdown, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}

	// Shared pool first: nothing else works without the shared schema.
	db, err := database.NewSharedPool(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	// Shared-schema migrations run before the server accepts traffic. A
	// failure here means the registry tables may be missing, so starting
	// up would only produce confusing per-request errors.
	if err := migration.EnsureShared(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to run shared migrations: %v", err)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m, err := metrics.New(promReg)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(promReg)
	if err != nil {
		log.Fatalf("failed to register http metrics: %v", err)
	}

	prov := migration.NewProvisioner(db, loc)
	registry := database.NewTenantRegistry(cfg.Database, prov, m, loc)
	defer registry.CloseAll()

	// Object storage is optional; tenant drops skip the purge when unset.
	var objStore storage.TenantObjectStore
	if cfg.MinIO.Endpoint != "" {
		objStore, err = storage.NewMinIO(cfg.MinIO)
		if err != nil {
			log.Fatalf("failed to initialize object storage: %v", err)
		}
	}

	tenantRepo := postgres.NewTenantPostgres(db)
	memberRepo := postgres.NewMembershipPostgres(db)
	tenantSvc := service.NewTenantService(db, tenantRepo, memberRepo, prov, registry, objStore, m)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(nil))
	app.Use(promMiddleware.Handler())
	app.Use(otelfiber.Middleware())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, db, tenantSvc, cfg.AdminToken)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()

	// Drain in dependency order: stop accepting requests, then release the
	// tenant pools, then the shared pool, then flush traces.
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if err := registry.CloseAll(); err != nil {
		log.Printf("tenant pool shutdown: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Printf("shared pool shutdown: %v", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tracerShutdown(shutdownCtx); err != nil {
		log.Printf("tracer shutdown: %v", err)
	}
}
