package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/zaptalk/zaptalk-be/internal/config"
	"github.com/zaptalk/zaptalk-be/internal/jobs"
	"github.com/zaptalk/zaptalk-be/internal/jobs/campaign"
	"github.com/zaptalk/zaptalk-be/internal/jobs/domain"
	"github.com/zaptalk/zaptalk-be/internal/jobs/importer"
	"github.com/zaptalk/zaptalk-be/internal/jobs/reporter"
	"github.com/zaptalk/zaptalk-be/internal/worker"
	"github.com/zaptalk/zaptalk-be/internal/worker/storage"
	"github.com/zaptalk/zaptalk-be/shared/logger"
	"github.com/zaptalk/zaptalk-be/shared/postgresql"
	"github.com/zaptalk/zaptalk-be/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize RabbitMQ client. A broker outage is not fatal here: pools
	// for unavailable domains simply do not start.
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		appLogger.Warn("Failed to initialize RabbitMQ, worker pools will be unavailable",
			slog.Any("error", err),
		)
	} else {
		appLogger.Info("RabbitMQ connection established")
	}

	// Build the domain handlers and their routers on top of the shared
	// worker storage.
	store := storage.NewStorage(dbClient.GetDB(), appLogger.Logger)

	importHandlers := importer.NewHandlers(importer.NewCSVParser(), store, appLogger.Logger)
	reportHandlers := reporter.NewHandlers(store, reporter.NewFileGenerator(cfg.Export.Dir), appLogger.Logger)
	campaignHandlers := campaign.NewHandlers(store, store, appLogger.Logger)

	routers := map[domain.Queue]*jobs.Router{
		domain.QueueImport:   importHandlers.Router(),
		domain.QueueReport:   reportHandlers.Router(),
		domain.QueueCampaign: campaignHandlers.Router(),
	}

	prefetch := map[domain.Queue]int{
		domain.QueueImport:   cfg.Workers.Import.PrefetchCount,
		domain.QueueReport:   cfg.Workers.Report.PrefetchCount,
		domain.QueueCampaign: cfg.Workers.Campaign.PrefetchCount,
	}

	// Keep the broker interface nil when the client is nil, so the pool's
	// availability check sees it as absent rather than panicking.
	var broker worker.Broker
	if rabbitClient != nil {
		broker = rabbitClient
	}

	factory := func(queue domain.Queue, concurrency int) worker.PoolHandle {
		pool := worker.NewPool(worker.PoolConfig{
			Queue:       queue,
			Concurrency: concurrency,
			Prefetch:    prefetch[queue],
			Router:      routers[queue],
			Broker:      broker,
			Store:       store,
			Logger:      appLogger.Logger,
		})
		if pool == nil {
			return nil
		}
		return pool
	}

	manager := worker.NewManager(factory, appLogger.Logger)
	manager.Initialize(worker.InitOptions{
		Import: worker.DomainOptions{
			Enabled:     cfg.Workers.Import.Enabled,
			Concurrency: cfg.Workers.Import.Concurrency,
		},
		Report: worker.DomainOptions{
			Enabled:     cfg.Workers.Report.Enabled,
			Concurrency: cfg.Workers.Report.Concurrency,
		},
		Campaign: worker.DomainOptions{
			Enabled:     cfg.Workers.Campaign.Enabled,
			Concurrency: cfg.Workers.Campaign.Concurrency,
		},
	})

	appLogger.Info("Worker service started successfully",
		slog.Any("status", manager.Status()),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	appLogger.Info("Received signal, shutting down gracefully",
		slog.String("signal", sig.String()),
	)

	manager.Shutdown(cfg.Workers.ShutdownTimeout)

	// Cleanup function to close all resources
	cleanup := func() {
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}
	cleanup()

	appLogger.Info("Worker service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client with every domain queue
// declared
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	queues := make([]string, 0, len(domain.Queues))
	for _, q := range domain.Queues {
		queues = append(queues, string(q))
	}

	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		Queues:             queues,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
