package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.etcd.io/bbolt"

	"github.com/alorle/iptv-catalog/circuitbreaker"
	"github.com/alorle/iptv-catalog/config"
	"github.com/alorle/iptv-catalog/internal/adapter/driven"
	"github.com/alorle/iptv-catalog/internal/adapter/driver"
	"github.com/alorle/iptv-catalog/internal/application"
	"github.com/alorle/iptv-catalog/internal/grouping"
	"github.com/alorle/iptv-catalog/internal/memory"
	portdriven "github.com/alorle/iptv-catalog/internal/port/driven"
	"github.com/alorle/iptv-catalog/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Create structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Resilience.SlogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("starting iptv-catalog",
		"address", cfg.HTTP.Address,
		"port", cfg.HTTP.Port,
		"db_path", cfg.Storage.DBPath,
		"refresh_cron", cfg.Playlist.RefreshCron,
		"series_key_mode", cfg.Grouping.SeriesKeyMode,
		"log_level", cfg.Resilience.LogLevel,
	)

	// Preference storage: BoltDB when a path is configured, memory otherwise
	var prefs portdriven.PreferenceRepository
	var db *bbolt.DB
	if cfg.Storage.DBPath != "" {
		db, err = bbolt.Open(cfg.Storage.DBPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Printf("error closing database: %v", err)
			}
		}()

		boltPrefs, err := driven.NewPreferenceBoltDBRepository(db)
		if err != nil {
			log.Fatalf("failed to create preference repository: %v", err)
		}
		prefs = boltPrefs
	} else {
		logger.Warn("no database path configured, preferences will not survive restarts")
		prefs = memory.NewPreferenceRepository()
	}

	// Playlist source guarded by a circuit breaker
	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:             "playlist",
		FailureThreshold: cfg.Resilience.CBFailureThreshold,
		Timeout:          cfg.Resilience.CBTimeout,
		HalfOpenRequests: cfg.Resilience.CBHalfOpenRequests,
		Logger:           logger,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			metrics.SetCircuitBreakerState(name, to.String())
			if to == circuitbreaker.StateOpen {
				metrics.RecordCircuitBreakerTrip(name)
			}
		},
	})
	metrics.SetCircuitBreakerState("playlist", breaker.State().String())
	source := driven.NewPlaylistHTTPSource(cfg.Playlist.FetchTimeout, cfg.Playlist.UserAgent, breaker)

	groupingCfg, err := cfg.Grouping.GrouperConfig()
	if err != nil {
		log.Fatalf("invalid grouping configuration: %v", err)
	}

	// Create application services
	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	catalogService, err := application.NewCatalogService(startCtx, source, prefs, grouping.New(groupingCfg), logger)
	if err != nil {
		cancelStart()
		log.Fatalf("failed to create catalog service: %v", err)
	}
	if catalogService.PlaylistURL() == "" && cfg.Playlist.URL != "" {
		if err := catalogService.SetPlaylistURL(startCtx, cfg.Playlist.URL); err != nil {
			logger.Error("failed to save configured playlist url", "error", err)
		}
	}
	cancelStart()
	defer catalogService.Close()

	healthService := application.NewHealthService(prefs, catalogService)

	// Create HTTP handlers
	catalogHandler := driver.NewCatalogHTTPHandler(catalogService)
	healthHandler := driver.NewHealthHTTPHandler(healthService)

	mux := http.NewServeMux()
	mux.Handle("/catalog", catalogHandler)
	mux.Handle("/catalog/", catalogHandler)
	mux.Handle("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())

	// Reload timeouts are bounded by the fetch timeout, plus room for parsing and grouping
	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.HTTP.Address, cfg.HTTP.Port),
		Handler:      driver.LogRequests(logger, mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Playlist.FetchTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	if cfg.Playlist.LoadOnStart {
		if err := catalogService.LoadPlaylistAsync(); err != nil {
			logger.Info("initial playlist load skipped", "reason", err)
		}
	}

	var scheduler *driver.RefreshScheduler
	if cfg.Playlist.RefreshCron != "" {
		scheduler, err = driver.NewRefreshScheduler(cfg.Playlist.RefreshCron, catalogService, logger)
		if err != nil {
			log.Fatalf("failed to create refresh scheduler: %v", err)
		}
		scheduler.Start()
		logger.Info("scheduled playlist refresh enabled", "cron", cfg.Playlist.RefreshCron)
	}

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
		case <-ctx.Done():
		}
	}

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
