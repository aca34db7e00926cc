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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"skincare/internal/api"
	"skincare/internal/booking"
	"skincare/internal/cache"
	"skincare/internal/config"
	"skincare/internal/database"
	"skincare/internal/events"
	"skincare/internal/feedback"
	"skincare/internal/metrics"
	"skincare/internal/reporting"
	"skincare/shared/audit"
)

func main() {
	cfg, err := config.Load(os.Getenv("SKINCARE_CONFIG_PATH"))
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}

	logger := newLogger(cfg.Logging)

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}
	store := cache.New(rdb, cfg.CacheTTL(), &logger)
	directory := cache.NewDirectory(db, store)

	bus := events.NewEventBus(&logger)
	bookings := booking.NewService(db, directory, bus, &logger)
	reports := reporting.NewEngine(db, directory, &logger)
	ratings := feedback.NewService(db, db, directory, bus, &logger)

	if cfg.CacheTTL() > 0 {
		reports.UseCache(store, cache.DashboardKey)
		invalidating := append([]string{feedback.EventCreated, api.EventDirectoryChanged}, booking.EventTypes...)
		bus.Subscribe(store.InvalidateOn(cache.DashboardKey), invalidating...)
	}
	bus.Subscribe(func(e events.Event) error {
		logger.Debug().Str("event", e.Type).Str("event_id", e.ID).RawJSON("payload", e.Payload).Msg("lifecycle event")
		return nil
	}, booking.EventTypes...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	backup := database.NewBackupService(db, cfg.Backup, &logger)
	go backup.Start(ctx)

	if cfg.Audit.Enabled {
		auditor := audit.NewService(audit.Config{
			ExportDir:     cfg.Audit.ExportDir,
			ExportOnStart: cfg.Audit.ExportOnStart,
		}, db, audit.NewExcelizeWriter, &logger)
		auditor.Start()
		defer auditor.Stop()
	}

	server := api.NewHTTPServer(api.Config{
		Port:              cfg.Server.Port,
		APIKey:            cfg.Server.APIKey,
		ReadTimeout:       cfg.ReadTimeout(),
		WriteTimeout:      cfg.WriteTimeout(),
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}, api.Deps{
		Bookings:  bookings,
		Reports:   reports,
		Feedback:  ratings,
		Directory: db,
		Events:    bus,
	}, &logger)

	if cfg.Server.APIKey == "" {
		logger.Warn().Msg("server.api_key is empty; API is unauthenticated")
	}

	logger.Info().Int("port", cfg.Server.Port).Msg("Skincare booking service started")
	if err := server.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("api server error")
	}
	logger.Info().Msg("Skincare booking service stopped")
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		logger = zerolog.New(output)
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	serve(ctx, port, mux, "health", logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serve(ctx, port, mux, "metrics", logger)
}

func serve(ctx context.Context, port int, h http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Str("server", name).Msg("server error")
	}
}
