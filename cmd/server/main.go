package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"billsmith/backend/internal/cache"
	"billsmith/backend/internal/config"
	"billsmith/backend/internal/httpapi"
	"billsmith/backend/internal/logging"
	"billsmith/backend/internal/service"
	"billsmith/backend/internal/store"
	"billsmith/backend/internal/store/memory"
	pgstore "billsmith/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	logger := logging.NewLogger(cfg.LogFormat, cfg.LogLevel)

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid security configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info().Msg("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		logger.Info().Msg("repository: in-memory")
	}

	statusCache := cache.RunStatusCache(cache.NoopRunStatusCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisRunStatusCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, using noop cache")
		} else {
			statusCache = redisCache
			closers = append(closers, redisCache.Close)
			logger.Info().Msg("cache: redis")
		}
	} else {
		logger.Info().Msg("cache: noop")
	}

	svc := service.New(repo, statusCache, logger, service.Options{
		StatusTTL:         time.Duration(cfg.RunStatusTTLSeconds) * time.Second,
		MaxBillAmount:     cfg.MaxBillAmount,
		ExactMargin:       cfg.ExactMargin,
		AsyncDayThreshold: cfg.AsyncDayThreshold,
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, logger)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Address()).Msg("bill generator backend listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error().Err(err).Msg("close error")
		}
	}

	logger.Info().Msg("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}
