package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"carpool/internal/app"
	"carpool/internal/config"
	internalRedis "carpool/internal/redis"
	"carpool/internal/repository"
	"carpool/internal/service"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	// Open the snapshot store. A store that cannot be opened is not fatal:
	// the engine notices on load and continues in memory.
	store, closer, err := app.NewSnapshotStore(ctx, cfg, nrApp, logger)
	if err != nil {
		log.Printf("failed to open %s store: %v", cfg.Store.Backend, err)
		store = repository.Unavailable(err)
	} else {
		defer closer.Close()
		log.Printf("Using %s store", cfg.Store.Backend)
	}

	// Redis is optional; without it sessions live in process memory.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Connected to Redis")
	}

	server, err := wireServer(ctx, store, redisClient, nrApp, logger, cfg)
	if err != nil {
		log.Fatalf("failed to wire server: %v", err)
	}

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	ctx context.Context,
	store repository.SnapshotStore,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	logger *slog.Logger,
	cfg *config.Config,
) (*http.Server, error) {
	creds, err := service.NewCredentialStrategy(cfg.Auth.Credentials)
	if err != nil {
		return nil, err
	}

	// Initialize sessions.
	var sessions internalRedis.SessionStoreInterface
	if redisClient != nil {
		sessions = internalRedis.NewSessionStore(redisClient, cfg.Auth.SessionTTL.Std())
	} else {
		sessions = internalRedis.NewMemorySessionStore(cfg.Auth.SessionTTL.Std())
	}

	// Initialize services.
	engine := service.NewBookingEngine(
		service.NewAccountLedger(creds),
		service.NewRideRegistry(),
		store,
		service.NewNotificationService(logger),
		logger,
	)
	engine.Open(ctx)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		Engine:       engine,
		SessionStore: sessions,
		RedisClient:  redisClient,
		NewRelicApp:  nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}, nil
}
