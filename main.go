package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	awsgo_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"parking_allocator/internal/api"
	"parking_allocator/internal/api/handler"
	"parking_allocator/internal/api/middleware"
	"parking_allocator/internal/config"
	"parking_allocator/internal/idempotency"
	"parking_allocator/internal/logger"
	"parking_allocator/internal/metrics"
	"parking_allocator/internal/notify"
	"parking_allocator/internal/repository"
	"parking_allocator/internal/repository/memory"
	"parking_allocator/internal/repository/postgresql"
	"parking_allocator/internal/service"
)

const sinkTimeout = 3 * time.Second

func main() {
	cfg := config.Load()

	zl, err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.AppEnv,
		ServiceName: "parking-allocator",
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	metrics.Register(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, db, err := openStore(ctx, cfg)
	if err != nil {
		zl.Fatal("failed to open store", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	authService := service.NewAuthService(store.Users(), cfg.JWTSecret, cfg.JWTExpirationHours)
	if err := authService.BootstrapAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		zl.Fatal("failed to bootstrap admin", zap.Error(err))
	}

	webSocketManager := handler.NewWebSocketManager()
	go webSocketManager.Start(ctx)

	dispatcher := notify.NewDispatcher(sinkTimeout, webSocketManager)
	services := api.Services{
		Auth:    authService,
		Reports: service.NewReportService(store.Reports()),
		Users:   service.NewUserService(store),
	}
	if db != nil {
		services.DB = db
	}

	if cfg.UsesAWS() {
		awsSDKCfg, err := awsgo_config.LoadDefaultConfig(ctx, awsgo_config.WithRegion(cfg.AWSRegion))
		if err != nil {
			zl.Fatal("failed to load AWS SDK config", zap.Error(err))
		}
		zl.Info("AWS SDK config loaded", zap.String("region", cfg.AWSRegion))

		if cfg.SQSEventQueueURL != "" {
			dispatcher.Add(notify.NewSQSPublisher(sqs.NewFromConfig(awsSDKCfg), cfg.SQSEventQueueURL))
		}
		if cfg.IoTMQTTEndpoint != "" {
			iotClient := notify.NewIoTDataClient(awsSDKCfg, cfg.IoTMQTTEndpoint)
			dispatcher.Add(notify.NewIoTPublisher(iotClient, cfg.IoTTopicPrefix))
		}
		if cfg.LPREnabled {
			services.LPR = service.NewLPRService(rekognition.NewFromConfig(awsSDKCfg))
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := notify.NewKafkaPublisher(notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				zl.Warn("failed to close kafka writer", zap.Error(err))
			}
		}()
		dispatcher.Add(kafkaPublisher)
	}

	if cfg.RedisAddr != "" {
		redisClient, err := idempotency.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			zl.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
		services.Idempotency = idempotency.NewRedisGuard(redisClient, cfg.IdempotencyTTL)
	}

	zl.Info("event sinks configured", zap.Int("count", dispatcher.Len()))
	services.Parking = service.NewParkingService(store, dispatcher)
	services.Reservations = service.NewReservationService(store, dispatcher)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	router := api.SetupRouter(services, authMiddleware, limiter, webSocketManager, zl)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("ListenAndServe failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down server")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shut down", zap.Error(err))
	}
	zl.Info("server stopped")
}

// openStore returns the configured store and, for SQL drivers, the pool it uses.
func openStore(ctx context.Context, cfg *config.Config) (repository.Store, *sql.DB, error) {
	if cfg.DBDriver == "memory" {
		zap.L().Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), nil, nil
	}

	db, err := postgresql.NewDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := postgresql.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	zap.L().Info("database connected and migrated", zap.String("driver", cfg.DBDriver))
	return postgresql.NewStore(db), db, nil
}
