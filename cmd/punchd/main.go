package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hbeckers/punchd/internal/api"
	"github.com/hbeckers/punchd/internal/clock"
	"github.com/hbeckers/punchd/internal/config"
	apperrors "github.com/hbeckers/punchd/internal/errors"
	"github.com/hbeckers/punchd/internal/handler"
	"github.com/hbeckers/punchd/internal/jobs"
	"github.com/hbeckers/punchd/internal/middleware"
	"github.com/hbeckers/punchd/internal/scheduler"
	"github.com/hbeckers/punchd/internal/store"
	"github.com/hbeckers/punchd/internal/token"
	"github.com/hbeckers/punchd/internal/tracker"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setLogLevel(cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load timezone")
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Str("path", cfg.DatabasePath).Msg("database opened")

	credStore := store.NewFileCredentialStore(cfg.CredentialsPath, cfg.EncryptionKey)
	tokens := token.NewCache()
	gateway := api.NewClient(cfg.APIBaseURL, tokens, credStore,
		api.WithHTTPClient(&http.Client{Timeout: config.GatewayRequestTimeout}))

	clk := clock.NewSystem(loc)
	trk := tracker.New(gateway, db, credStore, clk)

	sched := scheduler.New(clk, trk, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
		defer cancel()
		autoRestart, err := db.AutoRestart(ctx)
		if err != nil {
			log.Error().Err(err).Msg("failed to read auto-restart preference")
			return false
		}
		return autoRestart
	})
	trk.SetScheduler(sched)
	defer sched.Disarm()

	// Reconcile persisted session state against the remote service before
	// accepting commands. An inconclusive result is not fatal; the tracker
	// stays in recovering until a later operation resolves it.
	recoverCtx, recoverCancel := context.WithTimeout(context.Background(), config.TimerOperationTimeout)
	if err := trk.RecoverState(recoverCtx); err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeRecoveryInconclusive) {
			log.Warn().Err(err).Msg("state recovery inconclusive, continuing")
		} else {
			log.Error().Err(err).Msg("state recovery failed")
		}
	}
	recoverCancel()

	h := handler.New(trk, db, credStore, gateway)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Mount("/", h.Routes())
	})

	resyncJob := jobs.NewResyncJob(trk, cfg.ResyncInterval())
	resyncJob.Start()
	defer resyncJob.Stop()

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		IdleTimeout: config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
