package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dandantas/adbfleet/internal/config"
	"github.com/dandantas/adbfleet/internal/database"
	"github.com/dandantas/adbfleet/internal/device"
	"github.com/dandantas/adbfleet/internal/events"
	"github.com/dandantas/adbfleet/internal/handler"
	"github.com/dandantas/adbfleet/internal/metadata"
	"github.com/dandantas/adbfleet/internal/model"
	"github.com/dandantas/adbfleet/internal/scheduler"
	"github.com/dandantas/adbfleet/internal/script"
	"github.com/dandantas/adbfleet/internal/service"
	"github.com/dandantas/adbfleet/internal/webhook"
	"github.com/dandantas/adbfleet/internal/worker"
	"github.com/dandantas/adbfleet/pkg/middleware"
	"github.com/redis/go-redis/v9"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	config.InitLogger(cfg)

	slog.Info("Starting ADB Fleet Service", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	adb := device.NewADBExecutor(cfg.ADBPath, cfg.ADBCommandTimeout)
	if err := adb.Available(ctx); err != nil {
		// adb may be installed later; device requests answer 503 until then
		slog.Warn("adb is not available yet", "error", err)
	}

	var (
		db       *database.MongoDB
		exec     device.Executor = adb
		names    service.NameRepository
		delivery webhook.DeliveryStore
		pinger   handler.Pinger
		history  = handler.NewHistoryHandler(nil, nil)
	)
	if cfg.MongoEnabled {
		db, err = database.Connect(ctx, database.Options{
			URI:         cfg.MongoURI,
			Database:    cfg.MongoDatabase,
			Timeout:     cfg.MongoTimeout,
			MaxPoolSize: cfg.MongoMaxPoolSize,
			MinPoolSize: cfg.MongoMinPoolSize,
		})
		if err != nil {
			slog.Error("Failed to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := db.Disconnect(context.Background()); err != nil {
				slog.Error("Failed to disconnect from MongoDB", "error", err)
			}
		}()

		if err := database.CreateIndexes(ctx, db); err != nil {
			slog.Error("Failed to create indexes", "error", err)
			os.Exit(1)
		}

		commandLogs := database.NewCommandLogRepository(db)
		deliveryRepo := database.NewDeliveryRepository(db)

		exec = device.NewAuditedExecutor(adb, commandLogs)
		names = database.NewDeviceNameRepository(db)
		delivery = deliveryRepo
		pinger = db
		history = handler.NewHistoryHandler(deliveryRepo, commandLogs)
	} else {
		slog.Warn("MongoDB disabled, device names are kept in memory")
		names = database.NewMemoryDeviceNameRepository()
	}

	catalog, err := loadCatalog(cfg.Jobs.ScriptCatalogPath)
	if err != nil {
		slog.Error("Failed to load script catalog", "error", err)
		os.Exit(1)
	}

	ytdlp := metadata.NewYtDlpResolver(cfg.YtDlpPath, cfg.MetadataTimeout)
	resolver := newResolver(cfg, ytdlp)

	// Job lifecycle listeners
	var listeners []service.JobListener
	if cfg.RedisAddr != "" {
		client, err := events.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer closeRedis(client)
		listeners = append(listeners, events.NewRedisPublisher(client, cfg.RedisChannel, cfg.Jobs.Retention))
	}

	var (
		notifier *webhook.Notifier
		breaker  handler.BreakerReporter
	)
	if cfg.JobWebhookURL != "" {
		hook := model.Webhook{
			URL: cfg.JobWebhookURL,
			Retry: model.RetryPolicy{
				MaxAttempts:  cfg.WebhookRetries,
				InitialDelay: cfg.WebhookBackoff,
				MaxDelay:     cfg.WebhookMaxWait,
			},
		}

		dispatcher := webhook.NewDispatcher(cfg.WebhookTimeout)
		breaker = dispatcher
		notifier, err = webhook.NewNotifier(
			dispatcher,
			hook,
			delivery,
			hook.Retry.Budget(cfg.WebhookTimeout),
		)
		if err != nil {
			slog.Error("Invalid job webhook", "error", err)
			os.Exit(1)
		}
		listeners = append(listeners, notifier)
	}

	// Initialize job engine
	store := model.NewJobStore()
	manager := service.NewJobManager(store, listeners...)
	youtube := service.NewYouTubeAutomation(exec, catalog, resolver, service.PlaylistTimingsFromConfig(cfg.Jobs)).
		WithChannels(ytdlp)
	signIn := service.NewGoogleSignIn(exec, catalog, cfg.Jobs.DeviceSpacing)

	// Frames are captured with the bare executor so screencaps stay out of the audit log
	engine := service.NewLiveStreamEngine(
		adb,
		device.NewScreenCapturer(adb, cfg.Stream.TempDir),
		model.NewSessionStore(),
		service.StreamTimingsFromConfig(cfg.Stream),
	)

	pool := worker.NewWorkerPool(cfg.WorkerPoolSize, cfg.WorkerQueueSize, exec.Execute)
	pool.Start()

	janitor, err := scheduler.NewJanitor(store, cfg.Jobs.Retention, cfg.Jobs.RetentionSchedule)
	if err != nil {
		slog.Error("Failed to create job janitor", "error", err)
		os.Exit(1)
	}
	janitor.Start()

	// Create CORS config
	corsConfig := middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   cfg.CORSAllowedMethods,
		AllowedHeaders:   cfg.CORSAllowedHeaders,
		AllowCredentials: cfg.CORSAllowCredentials,
		MaxAge:           cfg.CORSMaxAge,
	}

	router := handler.NewRouter(
		handler.NewJobHandler(manager, youtube, signIn),
		handler.NewStreamHandler(engine, corsConfig),
		handler.NewDeviceHandler(service.NewDeviceService(exec, names, pool)),
		handler.NewVideoHandler(service.NewVideoService(resolver).WithChannels(ytdlp)),
		history,
		handler.NewHealthHandler(adb, pinger, pool, breaker, version),
		corsConfig,
	)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Handler(),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
	}

	go func() {
		slog.Info("Starting HTTP server", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("Received shutdown signal, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	janitor.Stop(shutdownCtx)

	// Streams first so open SSE and WebSocket responses can finish
	slog.Info("Stopping live streams...")
	if err := engine.Shutdown(shutdownCtx); err != nil {
		slog.Error("Live streams did not stop in time", "error", err)
	}

	slog.Info("Stopping jobs...")
	if err := manager.Shutdown(shutdownCtx); err != nil {
		slog.Error("Jobs did not stop in time", "error", err)
	}

	slog.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	pool.Stop()

	if notifier != nil {
		if err := notifier.Close(shutdownCtx); err != nil {
			slog.Error("Pending job notifications dropped", "error", err)
		}
	}

	slog.Info("ADB Fleet Service stopped")
}

func loadCatalog(path string) (*script.Catalog, error) {
	if path == "" {
		return script.Default()
	}
	slog.Info("Loading script catalog", "path", path)
	return script.Load(path)
}

// newResolver prefers the YouTube Data API when a key is configured and falls back to yt-dlp
func newResolver(cfg *config.Config, ytdlp *metadata.YtDlpResolver) metadata.ChainResolver {
	var chain metadata.ChainResolver
	if cfg.YouTubeAPIKey != "" {
		chain = append(chain, metadata.NewYouTubeResolver(
			cfg.YouTubeAPIKey,
			cfg.YouTubeAPIURL,
			metadata.NewHTTPClient(cfg.MetadataTimeout),
		))
	}
	return append(chain, ytdlp)
}

func closeRedis(client *redis.Client) {
	if err := client.Close(); err != nil {
		slog.Error("Failed to close Redis client", "error", err)
	}
}
