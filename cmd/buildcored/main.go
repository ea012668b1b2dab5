// Command buildcored runs the build-task orchestration core: it loads
// configuration, opens the Postgres-backed repository, wires the task
// executor onto the world-effect ports, and serves the ops HTTP surface
// (/healthz, /readyz, /metrics) until told to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/voxelforge/buildcore/internal/config"
	"github.com/voxelforge/buildcore/internal/database"
	"github.com/voxelforge/buildcore/internal/logging"
	"github.com/voxelforge/buildcore/pkg/audit"
	"github.com/voxelforge/buildcore/pkg/buildservice"
	"github.com/voxelforge/buildcore/pkg/executor"
	"github.com/voxelforge/buildcore/pkg/metrics"
	"github.com/voxelforge/buildcore/pkg/repository/postgres"
	"github.com/voxelforge/buildcore/pkg/validation"
	"github.com/voxelforge/buildcore/pkg/worldeffect"
)

func main() {
	configPath := flag.String("config", "/etc/buildcore/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "buildcored: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
	if err != nil {
		fmt.Fprintf(os.Stderr, "buildcored: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("buildcored exiting", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	dbCfg := &database.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Name,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}
	db, err := database.Connect(dbCfg, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	repo := postgres.New(db, logger)

	tick := worldeffect.NewTickExecutor(cfg.Executor.TickQueueDepth)
	defer tick.Stop()
	world := worldeffect.NewFakeWorld(tick)

	registry := executor.NewDefaultRegistry(&worldeffect.Ports{
		BlockSet:  world,
		BlockFill: world,
		Prefab:    world,
	})
	taskValidator := validation.New()
	exec := executor.New(registry, taskValidator, cfg.Executor.Timeout, logger)

	locker, closeLocker := newLocker(cfg, logger)
	defer closeLocker()

	// svc and auditor are the orchestration core a transport layer would
	// mount handlers onto; wiring them here proves the dependency graph
	// assembles even though no RPC/HTTP surface exposes them yet.
	svc := buildservice.New(repo, exec, taskValidator, buildservice.SystemClock{}, locker, logger)
	auditor := audit.New(repo)
	logger.Info("build service wired",
		zap.Int("registered_task_types", registry.Count()),
		zap.Bool("build_service_ready", svc != nil),
		zap.Bool("audit_service_ready", auditor != nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsSrv := metrics.NewServer(cfg.Server.MetricsPort, logger, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if registry.Count() == 0 {
			return fmt.Errorf("world-effect registry has no registered task types")
		}
		return nil
	})
	metricsSrv.StartAsync()
	logger.Info("buildcored started", zap.String("metrics_port", cfg.Server.MetricsPort))

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return metricsSrv.Stop(shutdownCtx)
}

// newLocker builds a RedisLocker when Redis is configured, falling back
// to an in-process LocalLocker for single-instance deployments.
func newLocker(cfg *config.Config, logger *zap.Logger) (buildservice.BuildLocker, func()) {
	if cfg.Redis.Addr == "" {
		logger.Info("redis address not configured, using in-process build locker")
		return buildservice.NewLocalLocker(), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return buildservice.NewRedisLocker(client, cfg.Redis.LockTTL), func() { client.Close() }
}
