package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ClarkHamofares/chat-app/internal/audit"
	"github.com/ClarkHamofares/chat-app/internal/auth"
	"github.com/ClarkHamofares/chat-app/internal/cache"
	"github.com/ClarkHamofares/chat-app/internal/config"
	"github.com/ClarkHamofares/chat-app/internal/domain"
	"github.com/ClarkHamofares/chat-app/internal/events"
	"github.com/ClarkHamofares/chat-app/internal/handler"
	"github.com/ClarkHamofares/chat-app/internal/hub"
	"github.com/ClarkHamofares/chat-app/internal/repository"
	"github.com/ClarkHamofares/chat-app/internal/service"
	"github.com/ClarkHamofares/chat-app/pkg/database"
	"github.com/ClarkHamofares/chat-app/pkg/log"
	"github.com/ClarkHamofares/chat-app/pkg/storage"
)

const conversationCachePrefix = "chat:conv"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log.Init(cfg.Log)
	logger := log.L()

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, &domain.UserModel{}, &domain.MessageModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	userRepo := repository.NewGormUserRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)

	var convCache cache.ConversationCache
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisConversationCache(cfg.Cache.Address, cfg.Cache.Password, cfg.Cache.DB, conversationCachePrefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisCache.Close()
		convCache = redisCache
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		producer, err := events.NewConfluentProducer(cfg.Events.Brokers, cfg.Events.Topic)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create kafka producer")
		}
		defer producer.Close()
		publisher = producer
	}

	store, err := newStorage(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize media storage")
	}

	auditor := audit.New()
	tokens := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	h := hub.New(publisher)
	relay := service.NewRelayService(h, messageRepo, convCache, cfg.Cache.TTL, publisher, auditor)
	accounts := service.NewAccountService(userRepo, tokens, auditor)

	wsHandler := handler.NewWSHandler(h, relay, tokens, auditor, cfg.WebSocket, cfg.Auth.TokenQueryParam)
	httpHandler := handler.NewHTTPHandler(accounts, relay, tokens, store)

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	httpHandler.RegisterRoutes(router, wsHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			logger.Info().Str("addr", metricsSrv.Addr).Msg("metrics server listening")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("relay listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("metrics server forced shutdown")
		}
	}

	logger.Info().Msg("server exited")
}

func newStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return storage.NewS3Storage(ctx, cfg.Storage.S3)
	default:
		return storage.NewLocalStorage(cfg.Storage.Local)
	}
}
