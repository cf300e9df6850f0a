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

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ezhealth/appointment-api/internal/config"
	"github.com/ezhealth/appointment-api/internal/email"
	"github.com/ezhealth/appointment-api/internal/handler/health"
	"github.com/ezhealth/appointment-api/internal/handler/prometheus"
	"github.com/ezhealth/appointment-api/internal/storage"
	"github.com/ezhealth/appointment-api/pkg/logger"
	"github.com/ezhealth/appointment-api/pkg/messaging/redis"
	"github.com/ezhealth/appointment-api/pkg/metrics"
	"github.com/ezhealth/appointment-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	l := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if cfg.Database.Driver == "memory" {
		l.Fatal().Msg("the outbox worker needs a shared database, not the memory driver")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to open storage")
	}
	defer repos.Close()

	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, l)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create Redis broker")
	}
	defer broker.Close()

	promHandler := prometheus.New("ezhealth_worker")
	processor := worker.NewOutboxProcessor(
		repos.Outbox,
		repos.Users,
		repos.Doctors,
		broker,
		email.NewSMTPService(cfg.Email),
		worker.OutboxProcessorConfig{
			Channel:      cfg.Redis.Channel,
			BatchSize:    cfg.Outbox.BatchSize,
			PollInterval: cfg.Outbox.PollInterval,
			MaxAttempts:  cfg.Outbox.MaxAttempts,
			RetryDelay:   cfg.Outbox.RetryDelay,
			Retention:    time.Duration(cfg.Outbox.RetentionHours) * time.Hour,
		},
		l,
		metrics.New("ezhealth_worker", promHandler.Registry()),
	)

	srv := healthServer(cfg.Server.WorkerPort, promHandler, health.NewHandler(
		health.Check{Name: "database", Ping: repos.Ping},
		health.Check{Name: "redis", Ping: broker.Ping},
	))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error().Err(err).Msg("health server failed")
			stop()
		}
	}()

	processor.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("health server forced to shutdown")
	}
	l.Info().Msg("worker exited properly")
}

func healthServer(port int, prom *prometheus.Handler, h *health.Handler) *http.Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	h.RegisterRoutes(engine.Group(""))
	engine.GET("/metrics", prom.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
