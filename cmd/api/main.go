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
	"golang.org/x/time/rate"

	"github.com/ezhealth/appointment-api/internal/config"
	appointmentHandler "github.com/ezhealth/appointment-api/internal/handler/appointment"
	doctorHandler "github.com/ezhealth/appointment-api/internal/handler/doctor"
	"github.com/ezhealth/appointment-api/internal/handler/health"
	paymentHandler "github.com/ezhealth/appointment-api/internal/handler/payment"
	prescriptionHandler "github.com/ezhealth/appointment-api/internal/handler/prescription"
	"github.com/ezhealth/appointment-api/internal/handler/prometheus"
	"github.com/ezhealth/appointment-api/internal/media"
	"github.com/ezhealth/appointment-api/internal/middleware"
	"github.com/ezhealth/appointment-api/internal/router"
	appointmentService "github.com/ezhealth/appointment-api/internal/service/appointment"
	doctorService "github.com/ezhealth/appointment-api/internal/service/doctor"
	"github.com/ezhealth/appointment-api/internal/service/notification"
	paymentService "github.com/ezhealth/appointment-api/internal/service/payment"
	prescriptionService "github.com/ezhealth/appointment-api/internal/service/prescription"
	"github.com/ezhealth/appointment-api/internal/storage"
	"github.com/ezhealth/appointment-api/pkg/auth"
	"github.com/ezhealth/appointment-api/pkg/logger"
	"github.com/ezhealth/appointment-api/pkg/metrics"
	"github.com/ezhealth/appointment-api/pkg/payment"
	"github.com/ezhealth/appointment-api/pkg/payment/razorpay"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	l := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.RegisterValidators()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to open storage")
	}
	defer repos.Close()
	if cfg.Database.Driver == "memory" {
		l.Warn().Msg("using in-memory storage, data will not survive a restart")
	}

	fee, _ := cfg.Appointment.Fee()

	promHandler := prometheus.New("ezhealth")
	m := metrics.New("ezhealth", promHandler.Registry())
	notifier := notification.NewOutboxNotifier(repos.Outbox, l)

	doctors := doctorService.NewService(repos.Doctors, cfg.Cache.DoctorTTL, cfg.Cache.CleanupInterval, l)
	appointments := appointmentService.NewService(repos.Appointments, doctors, notifier, m,
		appointmentService.Config{
			MeetingLinkTemplate: cfg.Appointment.MeetingLinkTemplate,
			DefaultFee:          fee,
		}, l)
	payments := paymentService.NewService(repos.Appointments,
		razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, l),
		payment.NewSigner(cfg.Razorpay.KeySecret),
		notifier, m,
		paymentService.Config{Currency: cfg.Razorpay.Currency, Timeout: cfg.Razorpay.Timeout}, l)

	mediaStore, err := media.NewDiskStore(cfg.Media.Root, cfg.Media.BaseURL)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to prepare media storage")
	}
	prescriptions := prescriptionService.NewService(repos.Prescriptions, repos.Appointments, mediaStore, l)

	jwt := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)

	r := router.NewRouter(
		middleware.NewAuthMiddleware(jwt),
		promHandler,
		health.NewHandler(health.Check{Name: "database", Ping: repos.Ping}),
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			CORSConfig:       middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins),
			RequestTimeout:   cfg.Server.RequestTimeout,
			MaxBodySize:      cfg.Server.MaxBodyBytes,
			MediaRoot:        cfg.Media.Root,
			MediaURL:         cfg.Media.BaseURL,
		},
		appointmentHandler.NewHandler(appointments),
		paymentHandler.NewHandler(payments, cfg.Razorpay.KeyID),
		doctorHandler.NewHandler(doctors),
		prescriptionHandler.NewHandler(prescriptions),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		l.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	l.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("server forced to shutdown")
	}

	l.Info().Msg("server exited properly")
}
