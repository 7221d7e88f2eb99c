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
	"github.com/sirupsen/logrus"

	"github.com/agrilink/agrilink-backend/internal/apperrors"
	"github.com/agrilink/agrilink-backend/internal/cache"
	"github.com/agrilink/agrilink-backend/internal/config"
	"github.com/agrilink/agrilink-backend/internal/database"
	"github.com/agrilink/agrilink-backend/internal/i18n"
	"github.com/agrilink/agrilink-backend/internal/llm"
	"github.com/agrilink/agrilink-backend/internal/logging"
	"github.com/agrilink/agrilink-backend/internal/oauth"
	"github.com/agrilink/agrilink-backend/internal/router"
	"github.com/agrilink/agrilink-backend/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logging.Setup(cfg)

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db); err != nil {
			logrus.WithError(err).Fatal("Failed to run migrations")
		}
	}

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	// Set Gin mode
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	deps, closeDeps := buildDependencies(cfg)
	defer closeDeps()

	r, stopRouter := router.Initialize(db, cfg, deps)
	defer stopRouter()

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithFields(logrus.Fields{
			"port":        cfg.Server.Port,
			"environment": cfg.Environment,
		}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
		return
	}

	logrus.Info("Server exited")
}

// buildDependencies creates the optional outbound clients. A missing or
// unreachable integration is logged and left nil.
func buildDependencies(cfg *config.Config) (router.Dependencies, func()) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	deps := router.Dependencies{
		Payment: services.NewPaymentGateway(cfg.Payment),
	}
	closers := []func(){}

	storage, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage")
	}
	deps.Storage = storage

	if cfg.Redis.Enabled() {
		client, err := cache.OpenRedis(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logrus.WithError(err).Warn("Redis unavailable, weather lookups will not be cached")
		} else {
			deps.Cache = cache.NewRedisCache(client)
			closers = append(closers, func() { _ = client.Close() })
		}
	}

	if client, err := llm.New(ctx, cfg.LLM); err != nil {
		logIntegration("AI advisor", err)
	} else {
		deps.LLM = client
		logrus.WithField("provider", client.Provider()).Info("AI advisor enabled")
	}

	if verifier, err := oauth.NewGoogleVerifier(ctx, cfg.Google.ClientID); err != nil {
		logIntegration("Google login", err)
	} else {
		deps.Google = verifier
	}

	if deps.Payment == nil {
		logIntegration("Card repayments", apperrors.ErrNotConfigured)
	}

	return deps, func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}
}

func logIntegration(feature string, err error) {
	entry := logrus.WithField("feature", feature)
	if errors.Is(err, apperrors.ErrNotConfigured) {
		entry.Info("Integration not configured, feature disabled")
		return
	}
	entry.WithError(err).Warn("Integration failed to initialize, feature disabled")
}
