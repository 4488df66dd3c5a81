package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/study-review-server/internal/actionlog"
	"github.com/study-review-server/internal/analytics"
	"github.com/study-review-server/internal/api"
	"github.com/study-review-server/internal/cache"
	"github.com/study-review-server/internal/config"
	"github.com/study-review-server/internal/decision"
	"github.com/study-review-server/internal/domain"
	"github.com/study-review-server/internal/logging"
	"github.com/study-review-server/internal/reports"
	"github.com/study-review-server/internal/service"
	"github.com/study-review-server/pkg/backend"
)

func main() {
	root := &cobra.Command{
		Use:   "study-review-server",
		Short: "Backend for the clinical study review dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "validate-config",
		Short: "Load and validate configuration, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := config.NewManager()
			if err != nil {
				return err
			}
			if err := manager.Validate(); err != nil {
				return err
			}
			fmt.Println("configuration ok")
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer() error {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := logging.NewLogger(cfg.Logging)
	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting study review server")

	redisClient, err := newRedisClient(cfg.Cache)
	if err != nil {
		log.Fatalf("Failed to configure Redis: %v", err)
	}
	if redisClient != nil {
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.WithField("error", err.Error()).Warn("Redis unreachable, running with memory cache only")
			redisClient = nil
		}
		cancel()
	}

	studyCache := cache.NewStudyCache(cache.Config{
		RedisClient: redisClient,
		DefaultTTL:  cfg.Cache.DefaultTTL,
		MemorySize:  cfg.Cache.MemorySize,
		Enabled:     true,
	}, logger)

	client := backend.NewResilientClient(backend.NewClient(cfg.Backend), logger)
	trail := actionlog.New(actionlog.DefaultCapacity)
	reviewService := service.NewReviewService(client, studyCache, decision.NewManager(), trail, logger)

	engine := analytics.NewEngine(cfg.Dashboard.AnalyticsWindowDays, cfg.Dashboard.AnalyticsTopN)
	selection := reports.NewSelection()
	generator := reports.NewGenerator(client, logger)

	server := api.NewServer(cfg, reviewService, engine, selection, generator, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// newRedisClient builds the optional distributed cache tier. An empty
// URL disables it.
func newRedisClient(cfg domain.CacheConfig) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.PoolTimeout > 0 {
		opts.PoolTimeout = cfg.PoolTimeout
	}
	return redis.NewClient(opts), nil
}
