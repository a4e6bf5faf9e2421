package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planwise/planwise/internal/api"
	"github.com/planwise/planwise/internal/auth"
	"github.com/planwise/planwise/internal/config"
	httpserver "github.com/planwise/planwise/internal/http"
	"github.com/planwise/planwise/internal/janitor"
	"github.com/planwise/planwise/internal/logger"
	"github.com/planwise/planwise/internal/planner"
	"github.com/planwise/planwise/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("planwise", "info")
		fallback.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New("planwise", cfg.LogLevel)
	log.Info().Msg("starting planwise server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create db pool")
	}
	defer pool.Close()

	if err := store.ApplyMigrations(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	st := store.New(pool)

	sessionManager := auth.NewSessionManager(cfg, st.Sessions)
	authService, err := auth.NewService(ctx, cfg, st, sessionManager, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth service")
	}

	plannerClient := planner.New(planner.Options{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	}, log)

	feedTokens := auth.NewFeedTokenIssuer(st.FeedTokens)
	apiHandler := api.NewHandler(cfg, st, plannerClient, feedTokens, log)

	jan := janitor.New(st, cfg.Quota.Window, log)
	if err := jan.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start janitor")
	}
	defer jan.Stop()

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      httpserver.NewRouter(cfg, st, authService, apiHandler, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
