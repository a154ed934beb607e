package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aegis-id/aegis/internal/app"
	"github.com/aegis-id/aegis/internal/auth"
	"github.com/aegis-id/aegis/internal/observability"
	"github.com/aegis-id/aegis/internal/platform/cache"
	"github.com/aegis-id/aegis/internal/platform/db"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	var (
		users     auth.UserRepository
		sessions  auth.SessionRepository
		providers auth.ProviderRepository
	)

	if cfg.PGDSN != "" {
		dbpool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer dbpool.Close()
		users = auth.NewPGUserRepository(dbpool)
		sessions = auth.NewPGSessionRepository(dbpool)
		providers = auth.NewPGProviderRepository(dbpool)
	} else {
		logger.Warn("PG_DSN not set, using in-memory repositories")
		users = auth.NewMemoryUserRepository()
		sessions = auth.NewMemorySessionRepository()
		providers = auth.NewMemoryProviderRepository()
	}

	if cfg.RedisAddr != "" {
		redisClient, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		sessions = auth.NewRedisSessionRepository(redisClient, "aegis")
	}

	hasher := auth.NewHasher()
	tokens := auth.NewTokenService(cfg.TokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	service := auth.NewService(logger, hasher, tokens, cfg.EnforcePasswordPolicy)

	signIn := auth.NewSignIn(logger, service, users, sessions)
	signUp := auth.NewSignUp(logger, service, users, providers)
	validation := auth.NewTokenValidation(logger, tokens, users, sessions)

	metrics := observability.NewMetrics()
	authHandler := auth.NewHandler(logger, signIn, signUp, validation, sessions, users, metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		AuthHandler: authHandler,
		Metrics:     metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}
