package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenish-go/internal/api"
	"github.com/andresuchdata/replenish-go/internal/cache"
	"github.com/andresuchdata/replenish-go/internal/config"
	"github.com/andresuchdata/replenish-go/internal/repository"
	"github.com/andresuchdata/replenish-go/internal/repository/postgres"
	"github.com/andresuchdata/replenish-go/internal/service"
	"github.com/andresuchdata/replenish-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Setup(cfg.App.LogLevel, cfg.App.LogFormat)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	defaults := cfg.Engine.Policy()
	if err := defaults.Validate(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid engine configuration")
	}

	// Initialize database; ad-hoc planning still works without one
	var repo repository.SnapshotRepository
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Database unavailable, snapshot routes disabled")
	} else {
		defer db.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.EnsureSchema(ctx); err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to ensure schema")
		}
		cancel()
		repo = postgres.NewSnapshotRepository(db)
	}

	// Initialize cache
	planCache, err := cache.NewPlanCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Plan cache unavailable, continuing without it")
		planCache = cache.NewNoopPlanCache()
	}

	// Initialize services
	planService := service.NewPlanService(repo, planCache, defaults)

	router := api.NewRouter(&api.Services{PlanService: planService}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Str("urgency_scheme", string(defaults.UrgencyScheme)).
			Bool("database", repo != nil).
			Bool("cache", cfg.Cache.Enabled).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

