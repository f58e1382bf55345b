// cmd/db/historian.go is an asynchronous historian service that pops game actions from a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Luka-CB/card-game-server/internal/cache"
	"github.com/Luka-CB/card-game-server/internal/config"
	"github.com/Luka-CB/card-game-server/internal/database"
	"github.com/Luka-CB/card-game-server/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)
	if !cfg.PostgresEnabled() {
		logger.Fatal("the historian needs a database: set PG_HOST")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer rdb.Close()

	pool, err := database.ConnectDB(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatalf("%v", err)
	}

	hs := historian.New(
		cache.NewRedisActionLog(rdb, cfg.HistorianQueue),
		database.NewActionWriter(pool),
		cfg.Historian,
		logger,
	)
	logger.Infof("draining %s", cfg.HistorianQueue)
	hs.Run(ctx)
	logger.Info("Historian shutdown complete.")
}
