package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariel-naviandana/chat-cs/internal/api"
	"github.com/ariel-naviandana/chat-cs/internal/cache"
	cfgpkg "github.com/ariel-naviandana/chat-cs/internal/config"
	"github.com/ariel-naviandana/chat-cs/internal/kafka"
	"github.com/ariel-naviandana/chat-cs/internal/notify"
	"github.com/ariel-naviandana/chat-cs/internal/repository"
	"github.com/ariel-naviandana/chat-cs/internal/service"
	"github.com/ariel-naviandana/chat-cs/internal/utils"
	"github.com/ariel-naviandana/chat-cs/internal/wa"
	"github.com/ariel-naviandana/chat-cs/internal/ws"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := cfgpkg.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	logger, err := utils.NewLogger(cfg.App.Env != "production")
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Mongo
	mc, err := repository.ConnectMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		logger.Fatal("mongo init", zap.Error(err))
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()
	db := mc.Database(cfg.Mongo.Database)
	repo := repository.NewMongoRepo(db.Collection(cfg.Mongo.MessagesCollection), db.Collection(cfg.Mongo.ChatsCollection))

	// Redis presence cache, optional
	var presence *cache.PresenceStore
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("redis unavailable, presence cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			presence = cache.NewPresenceStore(rdb, cfg.Redis.Prefix)
		}
	}

	// Kafka producer, optional
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicIn)
	defer producer.Close()

	// WhatsApp transport
	wac := wa.New(wa.Config{
		StoreURI:      cfg.WhatsApp.StoreURI,
		LogLevel:      cfg.WhatsApp.LogLevel,
		ReconnectBase: cfg.ReconnectBase,
		ReconnectMax:  cfg.ReconnectMax,
	}, logger)

	hub := ws.NewHub()
	notifier := notify.NewHubNotifier(hub)

	engine := service.NewEngine(wac, repo, notifier, logger)
	engine.SetSendTimeout(cfg.SendTimeout)

	bridge := service.NewBridge(wac, repo, notifier, producer, presence, logger)
	wac.RegisterHandlers(bridge.Handlers())

	if err := wac.Initialize(ctx); err != nil {
		logger.Fatal("whatsapp init", zap.Error(err))
	}
	defer wac.Disconnect()

	app := api.NewServer(engine, repo, presence, hub, wac, logger)
	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.App.Port)); err != nil {
			logger.Fatal("server listen", zap.Error(err))
		}
	}()
	logger.Info("chat-cs started", zap.Int("port", cfg.App.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = app.ShutdownWithContext(shutdownCtx)
}
