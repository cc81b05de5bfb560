package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/assetdesk/ledger-service/config"
	"github.com/assetdesk/ledger-service/pkg/cache"
	"github.com/assetdesk/ledger-service/pkg/clock"
	"github.com/assetdesk/ledger-service/pkg/logger"
	"github.com/assetdesk/ledger-service/pkg/postgres"

	"github.com/assetdesk/ledger-service/internal/ledger"
	ledgerListenerPkg "github.com/assetdesk/ledger-service/internal/ledger/listener"
	ledgerRepoPkg "github.com/assetdesk/ledger-service/internal/ledger/repository"
	ledgerUCPkg "github.com/assetdesk/ledger-service/internal/ledger/usecase"
	"github.com/assetdesk/ledger-service/internal/notify"
	reqRepoPkg "github.com/assetdesk/ledger-service/internal/request/repository"
	reqSchedulerPkg "github.com/assetdesk/ledger-service/internal/request/scheduler"
	reqUCPkg "github.com/assetdesk/ledger-service/internal/request/usecase"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.Config{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             "info",
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
		logConfig.Level = cfg.Logger.Level
	}

	appLogger := logger.New(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.New(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Redis (optional cross-replica lock)
	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Fatal("Could not connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// 5. Initialize Kafka
	notifier := notify.NewKafkaNotifier(&notify.KafkaConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.NotifyTopic,
	})
	defer notifier.Close()

	kafkaReader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.ResolutionTopic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaReader.Close()
	appLogger.Info("Connected to Kafka",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("notify_topic", cfg.Kafka.NotifyTopic),
		zap.String("resolution_topic", cfg.Kafka.ResolutionTopic),
	)

	// 6. Initialize Repositories
	ledgerRepo := ledgerRepoPkg.NewPGRepository(db)
	reqRepo := reqRepoPkg.NewPGRepository(db)

	// 7. Initialize UseCases
	clk := clock.New()
	registry := ledger.NewRegistry()
	ledgerUC := ledgerUCPkg.NewLedgerUseCase(ledgerRepo, registry, notifier, redisClient, clk, appLogger)
	reqUC := reqUCPkg.NewRequestUseCase(reqRepo, notifier, clk, cfg.Ledger.RequestTTL, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ledgerUC.Warmup(ctx); err != nil {
		appLogger.Fatal("Could not warm up claim registry", zap.Error(err))
	}

	// 8. Start background workers
	expiryScheduler := reqSchedulerPkg.New(reqUC, cfg.Ledger.SchedulerTick, appLogger)
	go expiryScheduler.Start(ctx)

	resolutionListener := ledgerListenerPkg.NewResolutionListener(kafkaReader, ledgerUC, appLogger)
	go resolutionListener.Start(ctx)

	// 9. Start gRPC server (health + reflection)
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	lis, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port))

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	cancel()
	grpcServer.GracefulStop()
	appLogger.Info("Server stopped")
}
