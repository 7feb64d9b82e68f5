package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecoovision-presence/internal/cache"
	"ecoovision-presence/internal/config"
	"ecoovision-presence/internal/database"
	"ecoovision-presence/internal/httpapi"
	"ecoovision-presence/internal/identifier"
	"ecoovision-presence/internal/ledger"
	"ecoovision-presence/internal/lights"
	"ecoovision-presence/internal/logger"
	mqttutil "ecoovision-presence/internal/mqtt"
	"ecoovision-presence/internal/presence"
	redisutil "ecoovision-presence/internal/redis"
	"ecoovision-presence/internal/repository"
	"ecoovision-presence/internal/service"

	"go.uber.org/zap"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "ecoovision-presence")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 连接 PostgreSQL（目录/注册表引导和活动落库都依赖它）
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	personRepo := repository.NewPersonRepository(db, log)
	roomRepo := repository.NewRoomRepository(db, log)
	activityRepo := repository.NewActivityRepository(db, log)

	// 4. 引导住户目录和房间注册表
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	persons, err := personRepo.LoadAll(ctx)
	if err != nil {
		log.Fatal("Failed to load persons", zap.Error(err))
	}
	rooms, err := roomRepo.LoadAll(ctx)
	if err != nil {
		log.Fatal("Failed to load rooms", zap.Error(err))
	}
	directory := presence.NewDirectory(persons)
	registry := presence.NewRegistry(rooms)
	log.Info("State bootstrapped",
		zap.Int("person_count", len(persons)),
		zap.Int("room_count", len(rooms)),
	)

	// 5. 连接 Redis（可选：实时缓存 + 活动 Stream 发布）
	var stateCache presence.StateCache
	redisClient := redisutil.NewRedisClient(&cfg.Redis)
	if err := redisutil.Ping(ctx, redisClient); err != nil {
		log.Warn("Redis unavailable, cache and stream publishing disabled", zap.Error(err))
		redisutil.Close(redisClient)
		redisClient = nil
	} else {
		defer redisutil.Close(redisClient)
		stateCache = cache.New(
			redisClient,
			cfg.Presence.Cache.RoomKeyPrefix,
			cfg.Presence.Cache.PersonKeyPrefix,
			cfg.Presence.Cache.HouseEmptyKey,
			time.Duration(cfg.Presence.Cache.TTLSeconds)*time.Second,
			log,
		)
	}

	// 6. 连接 MQTT（可选：灯控下发）
	var lightPublisher presence.LightPublisher = lights.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		mqttClient, err := mqttutil.NewClient(&cfg.MQTT)
		if err != nil {
			log.Warn("MQTT unavailable, light commands disabled", zap.Error(err))
		} else {
			defer mqttClient.Disconnect()
			lightPublisher = lights.NewMQTTPublisher(
				mqttClient,
				cfg.Presence.LightTopicPattern,
				cfg.Presence.LightAllOffTopic,
				cfg.MQTT.QoS,
				log,
			)
		}
	}

	// 7. 组装转换引擎
	activityLedger := ledger.New(activityRepo, redisClient, cfg.Presence.ActivityStream, log)
	persister := repository.NewStatePersister(personRepo, roomRepo)
	engine := presence.NewEngine(directory, registry, activityLedger, persister, stateCache, lightPublisher, log)

	// 8. 识别服务客户端
	recognizer := identifier.NewClient(
		cfg.Recognizer.BaseURL,
		time.Duration(cfg.Recognizer.TimeoutSeconds)*time.Second,
		cfg.Recognizer.RetryCount,
		log,
	)

	// 9. HTTP + WebSocket 路由
	router := httpapi.NewRouter(log)
	router.RegisterPresenceRoutes(httpapi.NewPresenceHandler(directory, registry, personRepo, activityRepo, log))
	router.RegisterStreamRoutes(httpapi.NewStreamHandler(recognizer, engine, directory, cfg.Presence.AssetRef, log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// 10. 等待信号（优雅关闭）
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		log.Error("HTTP server error", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop HTTP server", zap.Error(err))
	}

	log.Info("Presence service stopped")
}
