package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoPolymarket/unifygate/internal/catalog"
	"github.com/GoPolymarket/unifygate/internal/config"
	"github.com/GoPolymarket/unifygate/internal/handler"
	"github.com/GoPolymarket/unifygate/internal/live"
	"github.com/GoPolymarket/unifygate/internal/model"
	"github.com/GoPolymarket/unifygate/internal/pkg/logger"
	"github.com/GoPolymarket/unifygate/internal/pkg/secretbox"
	"github.com/GoPolymarket/unifygate/internal/repository"
	"github.com/GoPolymarket/unifygate/internal/service"
	"github.com/GoPolymarket/unifygate/internal/unify"
	"github.com/gin-gonic/gin"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 0. Initialize Logger (needs log.level / log.format)
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	// 2. Initialize Persistence
	// Installations, call log, live connections, users (Postgres > Memory)
	var (
		installRepo service.InstallationRepo   = service.NewMemoryInstallationStore()
		callRepo    service.CallRepo           = service.NewMemoryCallStore(1000)
		liveRepo    service.LiveConnectionRepo = service.NewMemoryLiveConnectionStore()
		userRepo    service.UserRepo
	)
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err == nil {
			logger.Info("Connected to PostgreSQL")
			installRepo = repository.NewPostgresInstallationRepo(db)
			callRepo = repository.NewPostgresCallRepo(db)
			liveRepo = repository.NewPostgresLiveConnectionRepo(db)
			userRepo = repository.NewPostgresUserRepo(db)
		} else {
			logger.Error("Failed to connect to DB, falling back to memory stores", "error", err)
		}
	}

	// Session revocations (Redis > Memory)
	var revocations service.RevocationStore
	var redisClient *repository.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = repository.NewRedisClient(cfg)
		if err == nil {
			logger.Info("Connected to Redis")
			revocations = repository.NewRedisRevocationStore(redisClient, cfg.Redis.RevocationPrefix)
		} else {
			logger.Error("Failed to connect to Redis, falling back to memory", "error", err)
			redisClient = nil
		}
	}
	if revocations == nil {
		revocations = service.NewMemoryRevocationStore()
	}

	// Call record stream (optional)
	var publisher service.CallPublisher
	var kafkaPublisher *repository.KafkaCallPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err = repository.NewKafkaCallPublisher(cfg.Kafka)
		if err == nil {
			logger.Info("Publishing call records to Kafka", "topic", cfg.Kafka.Topic)
			publisher = kafkaPublisher
		} else {
			logger.Error("Kafka publisher disabled", "error", err)
			kafkaPublisher = nil
		}
	}

	box, err := secretbox.New(cfg.Security.TokenKey)
	if err != nil {
		log.Fatalf("Failed to initialize token encryption: %v", err)
	}
	if !box.Enabled() {
		logger.Warn("security.token_key not set, Unify tokens are stored in clear")
	}

	// 3. Initialize Core Services
	rootCtx, stopRelays := context.WithCancel(context.Background())
	defer stopRelays()

	authSvc, err := service.NewAuthService(cfg.Auth, userRepo, revocations)
	if err != nil {
		log.Fatalf("Failed to initialize auth service: %v", err)
	}
	installSvc := service.NewInstallationService(installRepo, box)
	callLog := service.NewCallLogService(callRepo, publisher)
	feed := live.NewFeed(cfg.Live.BufferSize)
	client := unify.NewClientFromConfig(cfg.Upstream)
	cat := catalog.Default()

	proxySvc := service.NewProxyService(installSvc, client, callLog,
		service.WithFeed(feed), service.WithCatalog(cat, cfg.Upstream.EnforceCatalog))
	liveSvc := service.NewLiveService(installSvc, client, liveRepo, feed)
	limits := service.NewLimiterRegistry(cfg.RateLimit)

	var relays *live.RelayGroup
	if cfg.Live.RelayUpstream {
		relays = live.NewRelayGroup(rootCtx, feed, func(userID, installationID string) live.URLSource {
			id := &model.Identity{UserID: userID}
			return func(ctx context.Context) (string, error) {
				resp, err := liveSvc.Issue(ctx, id, installationID)
				if err != nil {
					return "", err
				}
				return resp.WebsocketURL, nil
			}
		})
	}

	// 4. Initialize Handlers
	handlers := handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc, cfg.Auth.CookieSecure),
		Installations: handler.NewInstallationHandler(installSvc),
		Proxy:         handler.NewProxyHandler(proxySvc),
		LiveURL:       handler.NewLiveURLHandler(liveSvc),
		Telemetry:     handler.NewTelemetryHandler(callLog),
		Catalog:       handler.NewCatalogHandler(cat),
		Live:          handler.NewLiveHandler(feed, installSvc, relays, cfg.Live.SubscriberBuffer),
	}

	// 5. Setup Router
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	r := handler.NewRouter(handlers, authSvc, limits, metricsPath)

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("UnifyGate started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stopRelays()
	if relays != nil {
		relays.Wait()
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("Failed to flush Kafka writer", "error", err)
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("Server exiting")
}
