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

	"github.com/wintergreen/academia-backend/config"
	"github.com/wintergreen/academia-backend/internal/app"
	"github.com/wintergreen/academia-backend/internal/db"
	"github.com/wintergreen/academia-backend/internal/metrics"
	"github.com/wintergreen/academia-backend/internal/scheduler"
	"github.com/wintergreen/academia-backend/pkg/logger"
	"github.com/wintergreen/academia-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: logFormat == "console",
	})

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", err)
	}

	logger.Info("Starting WinterGreen Academia backend", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	m := metrics.New()
	deps, dispatcher, err := app.BuildDeps(cfg, m)
	if err != nil {
		logger.Fatal("Failed to build dependencies", err)
	}
	defer func() {
		if err := redis.Close(); err != nil {
			logger.Error("Failed to close Redis connection", err)
		}
	}()

	container, err := app.NewContainer(db.GetDB(), cfg, deps)
	if err != nil {
		logger.Fatal("Failed to wire application", err)
	}

	dispatcher.Start()

	expiry := scheduler.NewExpiryScheduler(container.Certificates, cfg.Scheduler.ExpiryCron, cfg.Scheduler.ReminderLead)
	if err := expiry.Start(); err != nil {
		logger.Fatal("Failed to start expiry scheduler", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           container.Router().Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", err)
	}
	expiry.Stop()
	if err := dispatcher.Stop(ctx); err != nil {
		logger.Warn("Notification queue not drained before shutdown", map[string]interface{}{
			"error": err.Error(),
		})
	}
	logger.Info("Server stopped successfully")
}
