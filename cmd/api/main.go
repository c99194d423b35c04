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

	"github.com/Dan9191/bank-portal/internal/config"
	"github.com/Dan9191/bank-portal/internal/gateway"
	"github.com/Dan9191/bank-portal/internal/handler"
	"github.com/Dan9191/bank-portal/internal/metrics"
	"github.com/Dan9191/bank-portal/internal/middleware"
	"github.com/Dan9191/bank-portal/internal/ratelimit"
	"github.com/Dan9191/bank-portal/internal/repository"
	"github.com/Dan9191/bank-portal/internal/scheduler"
	"github.com/Dan9191/bank-portal/internal/security"
	"github.com/Dan9191/bank-portal/internal/service"
	"github.com/Dan9191/bank-portal/internal/session"
	"github.com/Dan9191/bank-portal/internal/utils/email"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Platform clients
	anon, err := gateway.New(gateway.Config{URL: cfg.SupabaseURL, APIKey: cfg.SupabaseAnonKey})
	if err != nil {
		logger.Fatalf("Failed to create platform client: %v", err)
	}

	// Initialize storage
	store, sweeperStore, closeStore := openStores(cfg, anon, logger)
	defer closeStore()

	sealer, err := security.NewSealer(cfg.EncryptionKey, cfg.HMACSecret)
	if err != nil {
		logger.Fatalf("Failed to initialize sealer: %v", err)
	}

	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		redisLimiter, err := ratelimit.NewRedisFromURL(ctx, cfg.RedisURL, cfg.PINAttemptsPerMinute, time.Minute)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		limiter = redisLimiter
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	// Initialize layers
	svc := service.NewService(store, logger, cfg, service.Dependencies{
		Auth:     anon.Auth(),
		Blobs:    anon.Storage(),
		Notifier: email.New(cfg, logger),
		Limiter:  limiter,
		Sealer:   sealer,
		Metrics:  m,
	})
	resolver := session.NewResolver(cfg.SessionCookie, cfg.SupabaseJWTSecret, anon.Auth(), logger).WithPINSealer(sealer)
	h := handler.NewHandler(svc, resolver, cfg, logger)

	// Background jobs
	var sched *scheduler.Scheduler
	if sweeperStore != nil {
		sched = scheduler.New(sweeperStore, logger, m)
		if err := sched.ScheduleCardExpiry(cfg.CardExpirySchedule); err != nil {
			logger.Fatalf("Failed to schedule card expiry: %v", err)
		}
		sched.Start()
	} else {
		logger.Warn("SUPABASE_SERVICE_KEY not set, card expiry sweep disabled")
	}

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.Logging(logger, m))
	r.Handle("/metrics", metrics.Handler(registry)).Methods(http.MethodGet)
	h.RegisterRoutes(r)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
}

// openStores returns the request-scoped store and the store used by the
// sweeper, which runs without a caller token. The sweeper store is nil when
// no privileged credentials are configured.
func openStores(cfg *config.Config, anon *gateway.Client, logger *logrus.Logger) (repository.Store, scheduler.CardExpirer, func()) {
	if cfg.DataBackend == config.BackendPostgres {
		db, err := sqlx.Connect("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		store := repository.NewPostgres(db)
		return store, store, func() { _ = db.Close() }
	}

	store := repository.NewREST(anon)
	if cfg.SupabaseServiceKey == "" {
		return store, nil, func() {}
	}
	privileged, err := gateway.New(gateway.Config{URL: cfg.SupabaseURL, APIKey: cfg.SupabaseServiceKey})
	if err != nil {
		logger.Fatalf("Failed to create service client: %v", err)
	}
	return store, repository.NewREST(privileged), func() {}
}
