// cmd/historian drains the action queue that the server fills into postgres.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/hanabi/internal/cache"
	"github.com/jason-s-yu/hanabi/internal/config"
	"github.com/jason-s-yu/hanabi/internal/database"
	"github.com/jason-s-yu/hanabi/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.SetLevel(cfg.LogLevel)
	if cfg.RedisAddr == "" || cfg.DatabaseURL == "" {
		log.Fatal("historian needs REDIS_ADDR and DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}
	defer rdb.Close()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal(err)
	}

	hs := historian.New(rdb, database.NewArchive(pool), historian.Options{
		Queue:      cfg.QueueName,
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlush,
		Inactivity: cfg.InactivityTimeout,
	}, log.StandardLogger())

	if err := hs.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("historian stopped: %v", err)
	}
	log.Info("Historian shutdown complete.")
}
