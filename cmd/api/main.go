package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-api/internal/config"
	appointmentHandler "github.com/jwalitptl/clinic-api/internal/handler/appointment"
	dashboardHandler "github.com/jwalitptl/clinic-api/internal/handler/dashboard"
	healthHandler "github.com/jwalitptl/clinic-api/internal/handler/health"
	patientHandler "github.com/jwalitptl/clinic-api/internal/handler/patient"
	paymentHandler "github.com/jwalitptl/clinic-api/internal/handler/payment"
	prescriptionHandler "github.com/jwalitptl/clinic-api/internal/handler/prescription"
	visitHandler "github.com/jwalitptl/clinic-api/internal/handler/visit"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/internal/router"
	appointmentService "github.com/jwalitptl/clinic-api/internal/service/appointment"
	dashboardService "github.com/jwalitptl/clinic-api/internal/service/dashboard"
	eventService "github.com/jwalitptl/clinic-api/internal/service/event"
	patientService "github.com/jwalitptl/clinic-api/internal/service/patient"
	paymentService "github.com/jwalitptl/clinic-api/internal/service/payment"
	prescriptionService "github.com/jwalitptl/clinic-api/internal/service/prescription"
	visitService "github.com/jwalitptl/clinic-api/internal/service/visit"
	"github.com/jwalitptl/clinic-api/internal/validation"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	"github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/tracing"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

func main() {
	cfg, err := config.Load(os.Getenv("CLINIC_CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	lg := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
	})
	log.Logger = lg.Zerolog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.Monitoring.Namespace)
	m.MustRegister(registry)

	gw, db, err := openGateway(ctx, cfg.Database, m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	if db != nil {
		defer db.Close()
	}

	v := validation.New()
	events := eventService.NewService(gw.Outbox)
	drafts := prescriptionService.NewDraftStore(cfg.Drafts.TTL, cfg.Drafts.CleanupInterval, m)

	patientSvc := patientService.NewService(gw, v, events, lg.With("service", "patient"))
	visitSvc := visitService.NewService(gw, v, events, lg.With("service", "visit"))
	paymentSvc := paymentService.NewService(gw, v, events, lg.With("service", "payment"))
	appointmentSvc := appointmentService.NewService(gw, v, events, lg.With("service", "appointment"))
	prescriptionSvc := prescriptionService.NewService(gw, v, drafts, events, m, lg.With("service", "prescription"))
	dashboardSvc := dashboardService.NewService(gw)

	var authMiddleware *middleware.AuthMiddleware
	if cfg.Auth.Enabled {
		authMiddleware = middleware.NewAuthMiddleware(auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer))
	} else {
		log.Warn().Msg("authentication is disabled")
	}

	var pinger healthHandler.Pinger
	if db != nil {
		pinger = db
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORS.AllowedOrigins

	tracingService := ""
	if cfg.Tracing.Enabled {
		tracingService = cfg.Tracing.ServiceName
	}

	r := router.NewRouter(
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			CORSConfig:       cors,
			RequestTimeout:   cfg.Server.RequestTimeout,
			MaxBodyBytes:     middleware.DefaultMaxBodySize,
			TracingService:   tracingService,
			Metrics:          m,
		},
		authMiddleware,
		healthHandler.NewHandler(pinger, registry),
		patientHandler.NewHandler(patientSvc),
		visitHandler.NewHandler(visitSvc),
		paymentHandler.NewHandler(paymentSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		prescriptionHandler.NewHandler(prescriptionSvc),
		dashboardHandler.NewHandler(dashboardSvc),
	)
	r.Setup()

	if cfg.Outbox.Embedded {
		startRelay(ctx, cfg, gw, lg, m)
	}

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("driver", cfg.Database.Driver).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to flush traces")
	}

	log.Info().Msg("server exited properly")
}

// openGateway returns a nil db for the in-memory driver.
func openGateway(ctx context.Context, cfg config.DatabaseConfig, m *metrics.Metrics) (*repository.Gateway, *sqlx.DB, error) {
	if cfg.Driver == config.DriverMemory {
		gw, _ := memory.NewGateway()
		log.Warn().Msg("using in-memory storage, data is lost on exit")
		return gw, nil, nil
	}

	db, err := postgres.NewDB(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return postgres.NewGateway(db, m), db, nil
}

func startRelay(ctx context.Context, cfg *config.Config, gw *repository.Gateway, lg *logger.Logger, m *metrics.Metrics) {
	publisher, err := redis.Dial(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, lg.Zerolog(), m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	go func() {
		<-ctx.Done()
		_ = publisher.Close()
	}()

	processor, err := worker.NewOutboxProcessor(gw.Outbox, publisher, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
		MaxRetries:    cfg.Outbox.MaxRetries,
		Channel:       cfg.Redis.Channel,
	}, lg.With("component", "outbox"), m)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create outbox processor")
	}
	go processor.Start(ctx)

	cleanup := worker.NewOutboxCleanupWorker(gw.Outbox, cfg.Outbox.Retention, time.Hour, lg.With("component", "outbox_cleanup"))
	go cleanup.Start(ctx)
}
