// backend-go/cmd/server/main.go
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

	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/api"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/cache"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/config"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/forecast"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/metrics"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/pattern"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/repository"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/service"
	"github.com/andresuchdata/vyaparsaathi/backend-go/internal/storage"
	"github.com/andresuchdata/vyaparsaathi/backend-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetFormat(cfg.Log.Format)
	logger.SetLevel(cfg.Log.Level)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to apply schema")
	}

	rec, err := metrics.New()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	// Calendar lookups go through the cache when redis is enabled
	calendarCache, err := cache.NewCalendarCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Calendar cache unavailable, reading calendar from database")
		calendarCache = cache.NewNoopCalendarCache()
	}
	calendar := cache.NewCachedCalendar(postgres.NewCalendarRepository(db), calendarCache)

	// Patterns and result archives live in object storage when configured
	patterns := pattern.NewHolder(pattern.DefaultSnapshot())
	var results repository.ResultStore = postgres.NewResultRepository(db)
	if cfg.Storage.Enabled {
		objects, err := storage.NewS3Client(storage.S3Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			UseSSL:    cfg.Storage.UseSSL,
		})
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
		}
		reader := storage.PatternReader{Store: objects}
		reloadPatterns(ctx, patterns, reader, cfg.Storage.PatternPrefix)
		go refreshPatterns(ctx, patterns, reader, cfg.Storage.PatternPrefix, cfg.Storage.PatternRefresh)
		results = storage.NewObjectArchive(results, objects, cfg.Storage.ArchivePrefix, rec)
	}

	var provider forecast.Provider = forecast.NewHistoricalProvider(56)
	var breaker api.BreakerState
	if cfg.Forecast.ProviderURL != "" {
		remote := forecast.NewHTTPProvider(providerConfig(cfg))
		provider, breaker = remote, remote
		logger.Log.Info().Str("url", cfg.Forecast.ProviderURL).Msg("Using external forecast provider")
	}

	// Initialize services
	deps := coreDependencies(cfg, calendar, provider, patterns)
	deps.History = postgres.NewHistoryRepository(db)
	deps.Inventory = postgres.NewInventoryRepository(db)
	deps.Results = results
	deps.Runs = postgres.NewRunRepository(db)
	deps.Metrics = rec
	forecastService := service.NewForecastService(serviceConfig(cfg), deps)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{Forecasts: forecastService, Metrics: rec, Provider: breaker}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}

	logger.Log.Info().Msg("Server exiting")
}

// reloadPatterns swaps in a fresh snapshot. On failure the current snapshot stays in place.
func reloadPatterns(ctx context.Context, holder *pattern.Holder, reader pattern.ObjectReader, prefix string) {
	snap, err := pattern.LoadSnapshot(ctx, reader, prefix, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		logger.Log.Warn().Err(err).Str("prefix", prefix).Msg("Failed to load patterns, keeping current snapshot")
		return
	}
	holder.Swap(snap)
	logger.Log.Info().Int("patterns", snap.Len()).Str("version", snap.Version()).Msg("Patterns loaded")
}

func refreshPatterns(ctx context.Context, holder *pattern.Holder, reader pattern.ObjectReader, prefix string, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reloadPatterns(ctx, holder, reader, prefix)
		}
	}
}
