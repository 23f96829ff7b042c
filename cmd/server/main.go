// cmd/server/main.go
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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/trade-registry/internal/config"
	"github.com/javajoker/trade-registry/internal/database"
	"github.com/javajoker/trade-registry/internal/events"
	"github.com/javajoker/trade-registry/internal/i18n"
	"github.com/javajoker/trade-registry/internal/metrics"
	"github.com/javajoker/trade-registry/internal/router"
	"github.com/javajoker/trade-registry/internal/services"
	"github.com/javajoker/trade-registry/internal/store"
	"github.com/javajoker/trade-registry/internal/workflow"
)

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger := newLogger(cfg.Log)

	// Initialize database
	db, err := database.Initialize(cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db, logger)

	// Run database migrations
	if err := database.RunMigrations(db, logger); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}
	if err := database.SeedInitialData(db, logger); err != nil {
		logger.WithError(err).Fatal("Failed to seed initial data")
	}
	if err := database.VerifyStatusLookup(db); err != nil {
		logger.WithError(err).Fatal("Status lookup does not match the workflow")
	}

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.LocalesPath, cfg.I18n.DefaultLocale); err != nil {
		logger.WithError(err).Fatal("Failed to initialize i18n")
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := events.NewHub(32, m)
	var publisher workflow.EventPublisher = hub
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		relay := events.NewRedisRelay(client, hub, cfg.Redis.Channel, logger)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("Redis event relay stopped")
			}
		}()
		publisher = relay
		logger.WithField("channel", cfg.Redis.Channel).Info("Request events relayed through Redis")
	}

	notificationService := services.NewNotificationService(db, cfg, logger)

	engine := workflow.NewEngine(store.NewRequestStore(db),
		workflow.WithPublisher(publisher),
		workflow.WithDispatcher(notificationService),
		workflow.WithObserver(m),
		workflow.WithLogger(logger),
		workflow.WithReservationTTL(time.Duration(cfg.Workflow.ReservationDays)*24*time.Hour),
		workflow.WithDefaultFee(cfg.Workflow.DefaultFee),
	)

	// Initialize router
	r, err := router.Initialize(router.Dependencies{
		DB:                  db,
		Config:              cfg,
		Logger:              logger,
		Engine:              engine,
		Hub:                 hub,
		Metrics:             m,
		Gatherer:            reg,
		NotificationService: notificationService,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize router")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:     r,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		// The event stream is long-lived, so no write timeout.
		IdleTimeout: time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
