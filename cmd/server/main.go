// Command server runs the assignment marketplace API: HTTP transport, the
// SQLite-backed persistence layer, and the background expiration sweeper.
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
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/campuswriters/go-market-backend/internal/config"
	httpapi "github.com/campuswriters/go-market-backend/internal/http"
	"github.com/campuswriters/go-market-backend/internal/jobs"
	"github.com/campuswriters/go-market-backend/internal/observability"
	"github.com/campuswriters/go-market-backend/internal/repo"
	"github.com/campuswriters/go-market-backend/internal/secrets"
	"github.com/campuswriters/go-market-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

// @title        Campus Writers Marketplace API
// @version      1.0
// @description  Marketplace connecting clients who post assignment requests with writers who accept them.
// @BasePath     /api/v1

func main() {
	// .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shCtx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	vault, err := secrets.New(cfg.Market.ContactKey)
	if err != nil {
		log.Fatal().Err(err).Msg("contact vault setup failed")
	}
	if !vault.Enabled() {
		log.Warn().Msg("CONTACT_KEY not set; contact storage disabled")
	}

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	requestSvc := httpapi.RegisterRoutes(engine, db, vault, cfg)

	// Expiration sweeper: run once at startup to catch up after downtime,
	// then on the configured schedule.
	runner := jobs.NewRunner(log.Logger, 5*time.Minute)
	sweep := &jobs.ExpireStaleJob{Requests: requestSvc, Log: log.Logger}
	if err := runner.Register(cfg.Market.SweepSpec, sweep); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.Market.SweepSpec).Msg("invalid sweep schedule")
	}
	runner.RunNow(sweep)
	runner.Start()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	runner.Stop()

	shCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
