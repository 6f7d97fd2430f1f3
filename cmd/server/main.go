// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/hanabi/internal/auth"
	"github.com/jason-s-yu/hanabi/internal/cache"
	"github.com/jason-s-yu/hanabi/internal/config"
	"github.com/jason-s-yu/hanabi/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	tokens, err := auth.NewTokenIssuer(cfg.TokenExpire)
	if err != nil {
		return err
	}
	gate, err := auth.NewPasswordGate(cfg.TablePassword)
	if err != nil {
		return err
	}

	opts := handlers.TableOptions{
		Rules:        cfg.Rules,
		EnforceTurns: cfg.EnforceTurns,
		Gate:         gate,
		Tokens:       tokens,
		Logger:       logger,
	}
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return err
		}
		pub := cache.NewPublisher(rdb, cfg.QueueName)
		defer pub.Close()
		opts.Recorder = pub
		logger.Infof("Recording actions to redis list %s at %s", cfg.QueueName, cfg.RedisAddr)
	}

	hub := handlers.NewWSHub(logger)
	table, err := handlers.NewTable(hub, opts)
	if err != nil {
		return err
	}
	defer table.Close()

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: handlers.NewRouter(handlers.RouterConfig{
			Logger:         logger,
			Table:          table,
			Hub:            hub,
			AllowedOrigins: cfg.AllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
