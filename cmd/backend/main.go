// Package main provides the entry point for the SnapLink URL shortener service.
package main

import (
	"SnapLink-Backend/internal/auth"
	"SnapLink-Backend/internal/config"
	"SnapLink-Backend/internal/database"
	httpHandler "SnapLink-Backend/internal/handler/http"
	"SnapLink-Backend/internal/middleware"
	"SnapLink-Backend/internal/repository/postgres"
	"SnapLink-Backend/internal/service"
	"SnapLink-Backend/pkg/geo"
	"SnapLink-Backend/pkg/logger"
	"SnapLink-Backend/pkg/random"
	"SnapLink-Backend/pkg/useragent"
	"context"
	lg "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)
	defer func() {
		if err := log.Sync(); err != nil {
			lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
		}
	}()

	log.Info("starting SnapLink service", zap.String("env", cfg.Env))

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations if enabled
	if cfg.Database.AutoMigrate {
		log.Info("running database migrations (auto_migrate: true)")
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Info("skipping database migrations (auto_migrate: false)")
	}

	// Optional Redis-backed rate limiting. When disabled the limiters
	// become pass-through.
	var createLimiter, apiLimiter *middleware.RateLimiter
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis is unreachable, rate limiting will fail open", zap.Error(err))
		}
		pingCancel()

		createLimiter = middleware.NewRateLimiter(redisClient, "create", cfg.RateLimit.CreatePerMinute, time.Minute, log)
		apiLimiter = middleware.NewRateLimiter(redisClient, "api", cfg.RateLimit.APIPerMinute, time.Minute, log)
	} else {
		log.Info("redis disabled, rate limiting is off")
	}

	// Initialize storage and services
	storage := postgres.New(db, log)
	classifier := useragent.New(log)
	shortenerService := service.NewShortener(
		storage,
		random.NewGenerator(time.Now().UnixNano()),
		classifier,
		geo.NoopResolver{},
		&cfg.Shortener,
		log,
	)

	// Initialize JWT service for authentication
	jwtService := auth.NewJWTService(&auth.JWTConfig{
		SecretKey:           []byte(cfg.Auth.JWTSecret),
		AccessTokenDuration: cfg.Auth.AccessTokenTTL,
		Issuer:              cfg.Auth.Issuer,
	})
	passwordService := auth.NewPasswordService()

	// Create unified HTTP server
	apiServer := httpHandler.NewServer(
		storage,
		shortenerService,
		jwtService,
		passwordService,
		createLimiter,
		apiLimiter,
		log,
		cfg.Shortener.BaseURL,
	)

	httpServer := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      apiServer.SetupRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	log.Info("starting HTTP server", zap.String("address", cfg.HTTPServer.Address))

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down SnapLink service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}
}
