package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hongminglow/portfolio-be/internal/config"
	"github.com/hongminglow/portfolio-be/internal/http/handlers"
	"github.com/hongminglow/portfolio-be/internal/observability"
	"github.com/hongminglow/portfolio-be/internal/server"
	"github.com/hongminglow/portfolio-be/internal/storage"
	"github.com/hongminglow/portfolio-be/internal/storage/memory"
	"github.com/hongminglow/portfolio-be/internal/storage/postgres"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, pinger, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	redisClient, err := openRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	svc := server.NewServices(cfg, store, log, metrics)
	if err := svc.Accounts.EnsureAdmin(ctx, cfg.AdminPassword); err != nil {
		return fmt.Errorf("set up admin user: %w", err)
	}

	srv, err := server.New(ctx, cfg, store, svc, log, server.Options{
		DB:      pinger,
		Redis:   redisClient,
		Metrics: metrics,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"addr":    cfg.HTTPAddress(),
			"storage": cfg.StorageDriver,
			"redis":   redisClient != nil,
		}).Info("portfolio backend listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// openStore returns the configured store and, for Postgres, its health pinger.
func openStore(ctx context.Context, cfg config.Config) (storage.Store, handlers.Pinger, error) {
	if cfg.StorageDriver == config.DriverMemory {
		return memory.New(), nil, nil
	}
	pg, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("init database: %w", err)
	}
	return pg, pg, nil
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}
