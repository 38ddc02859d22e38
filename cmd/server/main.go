package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ogurasousui/employee-management/internal/adapters/cache/redis"
	"github.com/ogurasousui/employee-management/internal/adapters/events/kafka"
	"github.com/ogurasousui/employee-management/internal/adapters/http/handler"
	"github.com/ogurasousui/employee-management/internal/adapters/repository/postgres"
	"github.com/ogurasousui/employee-management/internal/adapters/security"
	"github.com/ogurasousui/employee-management/internal/core/auth"
	"github.com/ogurasousui/employee-management/internal/core/employee"
	"github.com/ogurasousui/employee-management/internal/core/health"
	"github.com/ogurasousui/employee-management/internal/platform/config"
	pg "github.com/ogurasousui/employee-management/internal/platform/db/postgres"
	"github.com/ogurasousui/employee-management/internal/platform/logger"
	"github.com/ogurasousui/employee-management/internal/platform/server"
)

const serviceName = "employee-management"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if _, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: serviceName}); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	if err := run(ctx, cfg); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database pool: %w", err)
	}
	defer dbPool.Close()

	probes := health.NewService(0)
	probes.Register("postgres", health.CheckerFunc(dbPool.Ping))

	var (
		limiter auth.AttemptLimiter
		revoker auth.TokenRevoker
	)
	if cfg.Redis.Enabled() {
		rdb, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("initialize redis: %w", err)
		}
		defer closeQuietly("redis", rdb)

		limiter = redis.NewLoginLimiter(rdb, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow)
		revoker = redis.NewTokenBlacklist(rdb)
		probes.Register("redis", pingRedis(rdb))
	} else {
		slog.Warn("redis is not configured; login throttling and logout revocation are disabled")
	}

	var events employee.EventPublisher = employee.NoopPublisher{}
	if cfg.Kafka.Enabled() {
		publisher := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer closeQuietly("kafka", publisher)
		events = publisher
	}

	repo := postgres.NewEmployeeRepository(dbPool)
	txManager := pg.NewTransactionManager(dbPool)
	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost)
	tokens := security.NewJWTManager(security.JWTConfig{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		TTL:      cfg.Auth.TokenTTL,
	})

	employeeSvc := employee.NewService(repo, hasher, nil, txManager, events)
	authSvc := auth.NewService(auth.Dependencies{
		Registrar: employeeSvc,
		Employees: repo,
		Hasher:    hasher,
		Issuer:    tokens,
		Verifier:  tokens,
		Limiter:   limiter,
		Revoker:   revoker,
	})

	router := handler.NewRouter(
		handler.NewHandler(employeeSvc, authSvc, probes),
		handler.NewMiddleware(authSvc, cfg.Server.AllowedOrigins),
	)

	srv := server.New(server.Config{
		HTTPAddr:        cfg.Server.HTTPListenAddr,
		GRPCAddr:        cfg.Server.GRPCListenAddr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router, probes)

	return srv.Run(ctx)
}

func pingRedis(rdb goredis.UniversalClient) health.CheckerFunc {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

type closer interface {
	Close() error
}

func closeQuietly(name string, c closer) {
	if err := c.Close(); err != nil {
		slog.Warn("failed to close client", "client", name, "error", err)
	}
}
