// Command loadfixtures migrates the schema and seeds an empty catalog from
// the configured fixtures object, then exits.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"quizhub_backend/internal/app"
	"quizhub_backend/internal/config"
	"quizhub_backend/pkg/database"
	"quizhub_backend/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	configDir := flag.String("config", "configs", "配置文件目录")
	object := flag.String("file", "", "fixtures 对象名，默认使用配置中的 storage.fixtures_object")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *object != "" {
		cfg.Storage.FixturesObject = *object
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 只清理目录缓存，不需要 Redis 时传 nil
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, catalog cache not invalidated", zap.Error(err))
		rdb = nil
	}

	a, err := app.New(cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize application", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	defer a.Close(ctx)

	if err := a.LoadFixtures(ctx); err != nil {
		logger.Log.Fatal("Failed to load fixtures", zap.Error(err))
	}
}
