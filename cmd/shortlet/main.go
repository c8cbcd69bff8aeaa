package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"shortlet/internal/app/jobs"
	"shortlet/internal/app/policies"
	"shortlet/internal/infra/bootstrap"
	"shortlet/internal/infra/broker/kafka"
	"shortlet/internal/infra/config"
	mongodb "shortlet/internal/infra/db/mongo"
	"shortlet/internal/infra/gateway"
	ginserver "shortlet/internal/infra/http/gin"
	"shortlet/internal/infra/obs"
	"shortlet/internal/infra/outbox"
	"shortlet/internal/infra/schedule"
	"shortlet/internal/infra/storage/s3"
)

const (
	clientID       = "shortlet-api"
	jobTimeout     = 2 * time.Minute
	bcryptCost     = 12
	shutdownWindow = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger := obs.NewLogger("dev")
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	metrics := obs.NewMetrics()

	storage, relay, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("storage init failed", "error", err)
		os.Exit(1)
	}
	defer closeStorage()

	archive, err := openArchive(cfg, logger)
	if err != nil {
		logger.Error("statement archive init failed", "error", err)
		os.Exit(1)
	}

	app, err := bootstrap.Build(bootstrap.Deps{
		Config:       cfg,
		Storage:      storage,
		Gateway:      openGateway(cfg, logger),
		Archive:      archive,
		Logger:       logger,
		Metrics:      metrics,
		Clock:        time.Now,
		PasswordCost: bcryptCost,
	})
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	if cfg.AdminEmail != "" {
		if err := app.Auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Error("admin bootstrap failed", "error", err)
			os.Exit(1)
		}
	}

	if cfg.JobsEnabled {
		cron := schedule.NewCron(logger, metrics, jobTimeout)
		if err := app.Jobs.Register(cron, jobs.DefaultSpecs()); err != nil {
			logger.Error("job registration failed", "error", err)
			os.Exit(1)
		}
		cron.Start()
		defer cron.Stop()
	}

	if relay != nil && len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, clientID)
		if err != nil {
			logger.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer func() { _ = producer.Close() }()
		worker := &outbox.Worker{
			Store:       relay,
			Producer:    producer,
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Source:      bootstrap.EventSource,
			ID:          clientID + "-" + uuid.NewString(),
			Backoff:     cfg.RetryBackoff,
			Metrics:     metrics,
			Logger:      logger,
		}
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	} else {
		logger.Info("outbox relay disabled", "memory", cfg.Memory(), "brokers", len(cfg.KafkaBrokers))
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger, Metrics: metrics}, app.Health, app.Handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWindow)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "env", cfg.Env, "memory", cfg.Memory(), "gateway", cfg.GatewayMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (bootstrap.Storage, *outbox.MongoStore, func(), error) {
	if cfg.Memory() {
		logger.Warn("MONGO_URI not set, using in-memory storage")
		storage, _ := bootstrap.MemoryStorage(cfg.IdempotencyTTL)
		return storage, nil, func() {}, nil
	}
	client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return bootstrap.Storage{}, nil, nil, err
	}
	closer := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			logger.Error("mongo disconnect failed", "error", err)
		}
	}
	storage, relay, err := bootstrap.MongoStorage(ctx, client, cfg.IdempotencyTTL)
	if err != nil {
		closer()
		return bootstrap.Storage{}, nil, nil, err
	}
	return storage, relay, closer, nil
}

func openGateway(cfg config.Config, logger *slog.Logger) policies.PaymentGateway {
	if cfg.GatewayMode == config.GatewayHTTP {
		return gateway.NewHTTPClient(cfg.GatewayBaseURL, cfg.GatewaySecretKey, cfg.GatewayTimeout, logger)
	}
	sandbox := gateway.NewSandbox()
	// Without a checkout page nobody can pay, so local runs settle on verify.
	sandbox.AutoSucceed = cfg.Env == "dev"
	logger.Warn("sandbox payment gateway in use", "auto_succeed", sandbox.AutoSucceed)
	return sandbox
}

func openArchive(cfg config.Config, logger *slog.Logger) (policies.StatementArchive, error) {
	if cfg.S3Endpoint == "" {
		return s3.NoopArchive{}, nil
	}
	return s3.NewStatementArchive(s3.Options{
		Endpoint:  cfg.S3Endpoint,
		UseSSL:    cfg.S3UseSSL,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Prefix:    "statements",
	}, logger)
}
