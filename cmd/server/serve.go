package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/OpenNSW/flowtrack/internal/auth"
	"github.com/OpenNSW/flowtrack/internal/config"
	"github.com/OpenNSW/flowtrack/internal/dashboard"
	"github.com/OpenNSW/flowtrack/internal/database"
	"github.com/OpenNSW/flowtrack/internal/export"
	"github.com/OpenNSW/flowtrack/internal/middleware"
	"github.com/OpenNSW/flowtrack/internal/observability"
	"github.com/OpenNSW/flowtrack/internal/workflow"
	"github.com/OpenNSW/flowtrack/internal/workflow/cache"
	"github.com/OpenNSW/flowtrack/internal/workflow/events"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Start the HTTP API and the dashboard sweep",
		Flags:  []cli.Flag{seedFileFlag(false)},
		Action: serve,
	}
}

func serve(ctx context.Context, command *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	slog.Info("configuration loaded successfully",
		"db_driver", cfg.Database.Driver,
		"db_host", cfg.Database.Host,
		"db_port", cfg.Database.Port,
		"db_name", cfg.Database.Name,
		"storage", cfg.Storage.Type,
		"redis_enabled", cfg.Redis.Addr != "",
		"sweep_schedule", cfg.Dashboard.SweepSchedule,
	)

	slog.Info("CORS configuration",
		"allowed_origins", cfg.CORS.AllowedOrigins,
		"allowed_methods", cfg.CORS.AllowedMethods,
		"allowed_headers", cfg.CORS.AllowedHeaders,
		"allow_credentials", cfg.CORS.AllowCredentials,
		"max_age", cfg.CORS.MaxAge,
	)

	db, err := database.New(&cfg.Database, isDebug(command))
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()
	if err := database.HealthCheck(db); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				slog.Error("failed to close redis client", "error", err)
			}
		}()
		if err := cache.Ping(ctx, redisClient); err != nil {
			slog.Warn("redis not reachable at startup, template reads fall back to the database", "error", err)
		}
	}

	driver, err := export.NewStorageFromConfig(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize snapshot storage: %w", err)
	}

	pubSub := events.NewGoChannel(int64(cfg.Events.BufferSize), slog.Default())
	defer func() {
		if err := pubSub.Close(); err != nil {
			slog.Error("failed to close event channel", "error", err)
		}
	}()

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	opts := workflow.Options{
		DB:                    db,
		QueryTimeout:          cfg.Database.QueryTimeout(),
		CacheTTL:              cfg.Redis.CacheTTL(),
		Publisher:             pubSub,
		Subscriber:            pubSub,
		Metrics:               metrics,
		Snapshots:             export.NewSnapshotService(driver),
		NearDeadline:          cfg.Engine.NearDeadlineThreshold(),
		DashboardMaxWorkflows: cfg.Dashboard.SweepMaxWorkflows,
	}
	if redisClient != nil {
		opts.Redis = redisClient
	}
	wm := workflow.NewManager(opts)

	if path := command.String("seed-file"); path != "" {
		if err := runSeed(ctx, wm, path); err != nil {
			return err
		}
	}

	if err := wm.StartEventListener(); err != nil {
		return err
	}
	defer wm.StopEventListener()

	var sweeper *dashboard.Sweeper
	if cfg.Dashboard.SweepSchedule != "" {
		sweeper, err = dashboard.NewSweeper(wm.Dashboard(), metrics, cfg.Dashboard.SweepSchedule, true)
		if err != nil {
			return err
		}
		sweeper.Start()
	}

	if !isDebug(command) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.CORS(&cfg.CORS), metrics.Middleware(), auth.Middleware())
	r.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(observability.Handler(prometheus.DefaultGatherer)))
	wm.RegisterRoutes(r.Group("/api/v1"))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server...")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	} else {
		slog.Info("server gracefully stopped")
	}

	if sweeper != nil {
		sweeper.Stop(shutdownCtx)
	}

	slog.Info("server stopped")
	return nil
}
