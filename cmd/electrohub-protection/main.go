package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"electrohub-protection/internal/config"
	httpapi "electrohub-protection/internal/http"
	"electrohub-protection/internal/repository"
	"electrohub-protection/internal/service"
	"electrohub-protection/internal/store"
	"electrohub-protection/pkg/database"
	"electrohub-protection/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const serviceVersion = "1.0.0"

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "electrohub-protection")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	var kv store.KV
	if err := redisClient.Ping(context.Background()).Err(); err == nil {
		kv = store.NewRedisKV(redisClient)
	} else {
		// Redis 不可用时禁用响应缓存，核心计算不受影响
		log.Warn("Redis unavailable, response caching disabled", zap.Error(err))
	}

	var (
		db          *sql.DB
		devicesRepo repository.DevicesRepository
		arcRepo     repository.ArcFlashRepository
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for electrohub-protection")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repos", zap.Error(err))
		}
	}
	if db != nil {
		devicesRepo = repository.NewPostgresDevicesRepo(db)
		arcRepo = repository.NewPostgresArcFlashRepo(db)
	} else {
		// DB 未就绪：内存仓库支持联测（可用 SEED_DEMO 预置演示数据）
		mem := repository.NewMemoryRepo()
		if os.Getenv("SEED_DEMO") != "false" {
			seedDemoSite(mem)
			log.Info("seeded demo site into memory repo", zap.String("site", demoSite))
		}
		devicesRepo = mem
		arcRepo = mem
	}

	var assist service.AssistClient
	if cfg.Assist.Enabled {
		assist = service.NewAssistClient(cfg.Assist.BaseURL, cfg.Assist.Timeout, log)
		log.Info("assist client enabled", zap.String("base_url", cfg.Assist.BaseURL))
	}

	checkSvc := service.NewCheckService(devicesRepo, arcRepo, kv, cfg.Cache.TTL, log)
	pointSvc := service.NewPointService(devicesRepo, arcRepo, kv, log)
	autofillSvc := service.NewAutofillService(devicesRepo, assist, log)

	router := httpapi.NewRouter(log)
	router.RegisterProtectionRoutes(
		httpapi.NewPointHandler(pointSvc, log),
		httpapi.NewCheckHandler(checkSvc, log),
		httpapi.NewAutofillHandler(autofillSvc, log),
	)
	router.RegisterHealthRoute("electrohub-protection", serviceVersion)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	_ = redisClient.Close()
	if db != nil {
		_ = db.Close()
	}
}
