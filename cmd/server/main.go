package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ZuzannaKurillova/trAIvel/internal/api"
	"github.com/ZuzannaKurillova/trAIvel/internal/config"
	"github.com/ZuzannaKurillova/trAIvel/internal/explorer"
	"github.com/ZuzannaKurillova/trAIvel/internal/logging"
	"github.com/ZuzannaKurillova/trAIvel/internal/metrics"
	"github.com/ZuzannaKurillova/trAIvel/internal/recommend"
	"github.com/ZuzannaKurillova/trAIvel/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Println("Warning: reading .env:", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsProvider, err := metrics.Setup()
	if err != nil {
		return fmt.Errorf("setting up metrics: %w", err)
	}
	instruments, err := metrics.NewInstruments(metricsProvider.MeterProvider())
	if err != nil {
		return fmt.Errorf("creating instruments: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Wire dependencies.
	client := recommend.NewClient(cfg.BackendURL,
		recommend.WithTimeout(cfg.RequestTimeout),
		recommend.WithLogger(log.With("component", "recommend")),
	)
	controller := explorer.NewController(client, store, instruments, log.With("component", "explorer"))
	handlers := api.NewHandlers(controller, log)

	router := api.NewRouter(handlers, store, client, api.RouterConfig{
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   cfg.RateLimit,
		SessionTTL:  cfg.SessionTTL,
	}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelError),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metricsProvider.Handler())
	metricsSrv := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", "port", cfg.Port, "backend", cfg.BackendURL, "session_store", cfg.SessionStore)
		return listen(srv)
	})

	g.Go(func() error {
		log.Info("metrics server starting", "port", cfg.MetricsPort)
		return listen(metricsSrv)
	})

	// Graceful shutdown on SIGINT / SIGTERM, or when either listener fails.
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("graceful shutdown: %w", err))
		}
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
		}

		controller.Wait()

		if err := metricsProvider.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("server shut down cleanly")
	return nil
}

// listen serves until Shutdown; a clean close is not an error.
func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listening on %s: %w", srv.Addr, err)
	}
	return nil
}

// openStore builds the configured session store and its cleanup.
func openStore(ctx context.Context, cfg config.Config) (explorer.Store, func(), error) {
	switch cfg.SessionStore {
	case config.StoreRedis:
		client, err := session.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return session.NewRedisStore(client, cfg.SessionTTL), func() { _ = client.Close() }, nil
	default:
		return session.NewMemoryStore(cfg.SessionTTL), func() {}, nil
	}
}
