package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yegors/metar-reader/internal/api"
	"github.com/yegors/metar-reader/internal/config"
	"github.com/yegors/metar-reader/internal/observability"
	"github.com/yegors/metar-reader/internal/publish"
	"github.com/yegors/metar-reader/internal/storage/sqlite"
	"github.com/yegors/metar-reader/internal/weather"
	"github.com/yegors/metar-reader/internal/websocket"
	"github.com/yegors/metar-reader/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		FilePath:   cfg.Logging.FilePath,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting METAR reader",
		logger.String("version", Version),
		logger.String("config_path", cfg.Source))

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped with error", logger.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// background goroutines that use resources closed by the defers below
	var background sync.WaitGroup
	stopBackground := func() {
		cancel()
		background.Wait()
	}

	metrics := observability.NewMetrics()
	weatherConfig := weather.WeatherConfig(cfg.Weather)
	clock := clockwork.NewRealClock()

	var cache weather.ReportCache
	switch cfg.Cache.Backend {
	case "redis":
		redisCache, err := weather.NewRedisCache(ctx, cfg.Cache.RedisURL, weatherConfig.CacheExpiry(), log)
		if err != nil {
			return err
		}
		defer redisCache.Close()
		cache = redisCache
	default:
		cache = weather.NewMemoryCache(weatherConfig.CacheExpiry(), clock, log)
	}

	client := weather.NewClient(weatherConfig, metrics, log)
	weatherService := weather.NewService(weatherConfig, client, cache, clock, metrics, log)

	if cfg.Storage.Enabled {
		storage, err := sqlite.NewReportStorage(cfg.Storage.SQLitePath, log)
		if err != nil {
			return fmt.Errorf("failed to open report storage: %w", err)
		}
		defer storage.Close()
		// runs before Close so no prune is in flight
		defer stopBackground()
		weatherService.SetHistoryStore(storage)

		if cfg.Storage.RetentionDays > 0 {
			background.Add(1)
			go func() {
				defer background.Done()
				pruneHistory(ctx, storage, time.Duration(cfg.Storage.RetentionDays)*24*time.Hour, log)
			}()
		}
	}

	if cfg.Publish.Enabled {
		publisher, err := publish.NewKafkaPublisher(publish.Config{
			Brokers: cfg.Publish.Brokers,
			Topic:   cfg.Publish.Topic,
		}, log)
		if err != nil {
			return err
		}
		defer publisher.Close()
		weatherService.SetPublisher(publisher)
	}

	var liveFeed http.HandlerFunc
	var wsServer *websocket.Server
	if cfg.Server.EnableLiveFeed {
		wsServer = websocket.NewServer(metrics, log)
		background.Add(1)
		go func() {
			defer background.Done()
			wsServer.Run(ctx)
		}()
		weatherService.SetBroadcaster(wsServer)
		liveFeed = wsServer.HandleConnection
	}

	var metricsHandler http.Handler
	if cfg.Server.EnableMetrics {
		metricsHandler = api.DefaultMetricsHandler()
	}

	var clientCounter api.ClientCounter
	if wsServer != nil {
		clientCounter = wsServer
	}
	handler := api.NewHandler(weatherService, clientCounter, Version, log)
	router := api.NewRouter(handler, liveFeed, metricsHandler, cfg.Server.StaticFilesDir, log)

	if err := weatherService.Start(); err != nil {
		return err
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("Shutting down server...", logger.String("signal", sig.String()))
	case err := <-serverErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", logger.Error(err))
	}

	// after Shutdown so no request can start a publish once Stop has drained them
	log.Info("Stopping weather service...")
	weatherService.Stop()

	// stops the live feed hub and the retention loop
	stopBackground()

	log.Info("Server fully stopped")
	return runErr
}

// pruneHistory deletes stored reports older than retention once an hour
func pruneHistory(ctx context.Context, storage *sqlite.ReportStorage, retention time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		if _, err := storage.PruneOlderThan(time.Now().Add(-retention)); err != nil {
			log.Error("Failed to prune report history", logger.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
